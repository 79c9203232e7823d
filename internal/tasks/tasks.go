package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/chat"
	"github.com/desertthunder/mixtape/internal/metrics"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/desertthunder/mixtape/internal/tracks"
)

// Acknowledger sends the engine's side effects back to the chat.
type Acknowledger interface {
	React(ctx context.Context, ref chat.MessageRef, name string) error
	Reply(ctx context.Context, ref chat.MessageRef, text string) error
	Post(ctx context.Context, channel, text string) error
}

// EngineOpts configures an [Engine].
type EngineOpts struct {
	Logger       *log.Logger
	Metrics      *metrics.Metrics
	Timeout      time.Duration // Bound on one Treat call; 0 for none
	BackfillRate float64       // Tracks per second during Backfill; 0 for unpaced
}

// Engine runs reconciliations. It is driven by a single goroutine.
type Engine struct {
	registry *tracks.Registry
	ack      Acknowledger
	logger   *log.Logger
	metrics  *metrics.Metrics
	timeout  time.Duration
	rate     float64
}

func NewEngine(registry *tracks.Registry, ack Acknowledger, opts EngineOpts) *Engine {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	return &Engine{
		registry: registry,
		ack:      ack,
		logger:   shared.WithLogger(opts.Logger, "component", "engine"),
		metrics:  opts.Metrics,
		timeout:  opts.Timeout,
		rate:     opts.BackfillRate,
	}
}

// Step is what happened on one service during a reconciliation.
type Step struct {
	Service tracks.Service
	Outcome tracks.Outcome
	Link    string
	Err     error
}

// Report summarizes a [Engine.Treat] call.
type Report struct {
	Origin Step
	Cross  []Step
}

// Treat ensures origin is in its own playlist and then cross-searches every other configured service,
// acknowledging each step on the message at ref.
//
// A failure on one service never stops the others. Cross-search misses are announced in the channel;
// any other failure reacts "<service>_error" and is explained in the thread.
func (e *Engine) Treat(ctx context.Context, origin tracks.Track, ref chat.MessageRef) *Report {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	logger := shared.WithLogger(e.logger, "origin", origin.Service(), "added_by", origin.AddedBy())

	if err := origin.Refine(ctx); err != nil {
		logger.Warn("could not refine title", "id", origin.ID(), "error", err)
	}

	report := &Report{Origin: e.ensure(ctx, logger, origin, ref)}

	for _, svc := range e.registry.Others(origin.Service()) {
		placeholder, err := e.registry.Placeholder(svc, origin)
		if err != nil {
			logger.Error("could not build placeholder", "service", svc, "error", err)
			e.reply(ctx, ref, failureText(svc, origin.Title(), err))
			report.Cross = append(report.Cross, Step{Service: svc, Err: err})
			continue
		}

		step := e.ensure(ctx, logger, placeholder, ref)
		report.Cross = append(report.Cross, step)

		switch {
		case errors.Is(step.Err, shared.ErrTrackNotFound):
			e.post(ctx, ref.Channel, fmt.Sprintf("Cross searching on %s failed to find %s", svc.Label(), origin.Title()))
		case step.Err == nil:
			e.reply(ctx, ref, step.Link)
		}
	}

	return report
}

// ensure runs [tracks.Track.EnsureInOwnPlaylist] and reacts with the outcome.
func (e *Engine) ensure(ctx context.Context, logger *log.Logger, t tracks.Track, ref chat.MessageRef) Step {
	svc := t.Service()
	outcome, err := t.EnsureInOwnPlaylist(ctx)
	step := Step{Service: svc, Outcome: outcome, Link: t.Link(), Err: err}

	switch {
	case errors.Is(err, shared.ErrTrackNotFound):
		logger.Info("track not found", "service", svc, "title", t.Title())
		e.metrics.Reconciliation(string(svc), "not_found")
		e.react(ctx, ref, reaction(svc, "not_found"))
	case err != nil:
		logger.Error("reconciliation failed", "service", svc, "title", t.Title(), "error", err)
		e.metrics.Reconciliation(string(svc), "error")
		e.react(ctx, ref, reaction(svc, "error"))
		e.reply(ctx, ref, failureText(svc, t.Title(), err))
	default:
		logger.Info("track "+outcome.String(), "service", svc, "id", t.ID(), "title", t.Title(), "playlist", t.PlaylistID())
		e.metrics.Reconciliation(string(svc), outcome.String())
		e.react(ctx, ref, reaction(svc, outcome.String()))
	}
	return step
}

func (e *Engine) react(ctx context.Context, ref chat.MessageRef, name string) {
	if err := e.ack.React(ctx, ref, name); err != nil {
		e.logger.Warn("reaction failed", "name", name, "error", err)
	}
}

func (e *Engine) reply(ctx context.Context, ref chat.MessageRef, text string) {
	if err := e.ack.Reply(ctx, ref, text); err != nil {
		e.logger.Warn("reply failed", "error", err)
	}
}

func (e *Engine) post(ctx context.Context, channel, text string) {
	if err := e.ack.Post(ctx, channel, text); err != nil {
		e.logger.Warn("post failed", "error", err)
	}
}

// reaction names the emoji for a service outcome, e.g. "spotify_added".
func reaction(svc tracks.Service, outcome string) string {
	return strings.ToLower(string(svc)) + "_" + outcome
}

// failureText is the thread reply for a step that failed for a reason other than a miss.
func failureText(svc tracks.Service, title string, err error) string {
	reason := "the service returned an error"
	switch {
	case errors.Is(err, shared.ErrRetriesExceeded), errors.Is(err, shared.ErrAuthFailed):
		reason = "re-authentication failed"
	case errors.Is(err, shared.ErrPlaylistNotFound):
		reason = "the playlist was not found"
	case errors.Is(err, shared.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		reason = "the request timed out"
	case errors.Is(err, shared.ErrServiceUnavailable):
		reason = "the service is unavailable"
	}
	return fmt.Sprintf("Adding %s to %s failed: %s", title, svc.Label(), reason)
}
