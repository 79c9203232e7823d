package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/desertthunder/mixtape/internal/tracks"
	"golang.org/x/time/rate"
)

// BackfillResult counts what a [Engine.Backfill] did.
type BackfillResult struct {
	From     tracks.Service
	To       tracks.Service
	Total    int
	Added    int
	Existing int
	NotFound int
	Failed   int
	Missing  []string // Titles with no match on the destination
}

// Backfill cross-searches every entry of the from playlist on the to service and ensures each match is
// in the to playlist. Tracks are processed one at a time, paced by the configured backfill rate.
//
// It is a one-shot catch-up for playlists that existed before a service was configured; per-track
// failures are counted and do not stop the run.
func (e *Engine) Backfill(ctx context.Context, progress chan<- ProgressUpdate, from, to tracks.Service) (*BackfillResult, error) {
	if from == to {
		return nil, fmt.Errorf("%w: backfill source and destination are both %s", shared.ErrInvalidArgument, from)
	}
	for _, svc := range []tracks.Service{from, to} {
		if !e.registry.Has(svc) {
			return nil, fmt.Errorf("%w: %s is not configured", shared.ErrUnrecognizedService, svc)
		}
	}

	sendProgress(progress, fetchSourceUpdate(from))
	entries, err := e.registry.Contents(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("listing %s playlist: %w", from, err)
	}

	result := &BackfillResult{From: from, To: to, Total: len(entries)}
	sendProgress(progress, foundSourceUpdate(from, len(entries)))

	limit := rate.Inf
	if e.rate > 0 {
		limit = rate.Limit(e.rate)
	}
	limiter := rate.NewLimiter(limit, 1)
	logger := shared.WithLogger(e.logger, "backfill", string(from)+":"+string(to))

	for i, entry := range entries {
		if err := limiter.Wait(ctx); err != nil {
			return result, fmt.Errorf("%w: backfill interrupted after %d of %d: %w", shared.ErrTimeout, i, len(entries), err)
		}

		title := entry.Title
		if title == "" {
			if source, err := e.registry.New(from, entry.ID, title, "backfill"); err == nil {
				if err := source.Refine(ctx); err == nil {
					title = source.Title()
				}
			}
		}

		placeholder, err := e.registry.New(to, "", title, "backfill")
		if err != nil {
			return result, err
		}

		outcome, err := placeholder.EnsureInOwnPlaylist(ctx)
		label := outcome.String()
		switch {
		case errors.Is(err, shared.ErrTrackNotFound):
			result.NotFound++
			result.Missing = append(result.Missing, title)
			label = "not_found"
		case err != nil:
			result.Failed++
			label = "error"
			logger.Warn("backfill step failed", "title", title, "error", err)
		case outcome == tracks.AlreadyPresent:
			result.Existing++
		default:
			result.Added++
		}

		e.metrics.Backfilled(string(to), label)
		sendProgress(progress, crossSearchUpdate(i+1, len(entries), title, to, label))
	}

	logger.Info("backfill finished", "total", result.Total, "added", result.Added, "existing", result.Existing,
		"not_found", result.NotFound, "failed", result.Failed)
	sendProgress(progress, finishedUpdate(result))
	return result, nil
}
