// Package bot runs the chat session: connect, announce, read, dispatch and reconnect.
package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/changelog"
	"github.com/desertthunder/mixtape/internal/chat"
	"github.com/desertthunder/mixtape/internal/eventlog"
	"github.com/desertthunder/mixtape/internal/formatter"
	"github.com/desertthunder/mixtape/internal/metrics"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/desertthunder/mixtape/internal/tasks"
	"github.com/desertthunder/mixtape/internal/tracks"
)

// Options configures a [Session]. Transport, Classifier, Engine and Registry are required.
type Options struct {
	Transport      chat.Transport
	Classifier     *chat.Classifier
	Engine         *tasks.Engine
	Registry       *tracks.Registry
	Changelog      *changelog.Store   // Optional
	Events         *eventlog.Recorder // Optional
	Requests       *eventlog.FeatureLog
	Metrics        *metrics.Metrics
	Logger         *log.Logger
	DefaultChannel string        // Where the changelog is announced
	MaxReconnects  int           // Consecutive failed connects before giving up
	ReconnectDelay time.Duration // Pause before each reconnect
	OnConnect      func(bool)    // Connection state hook, e.g. for health checks
}

// Session is the bot's main loop. Events are handled one at a time, to completion, in arrival order.
type Session struct {
	opts      Options
	logger    *log.Logger
	usernames map[string]string
	announced bool
}

func NewSession(opts Options) *Session {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.MaxReconnects <= 0 {
		opts.MaxReconnects = 5
	}
	return &Session{
		opts:      opts,
		logger:    shared.WithLogger(opts.Logger, "component", "session"),
		usernames: map[string]string{},
	}
}

// Run connects and processes events until ctx is cancelled or the connection cannot be restored.
//
// Every failed connect counts towards [Options.MaxReconnects]; a successful connect resets the count.
// When the count reaches the cap Run returns [shared.ErrReconnectsExhausted]. Cancelling ctx returns nil.
func (s *Session) Run(ctx context.Context) error {
	failures := 0
	defer s.opts.Transport.Close()

	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			s.opts.Metrics.Reconnect()
			if err := sleep(ctx, s.opts.ReconnectDelay); err != nil {
				return nil
			}
		}

		self, err := s.opts.Transport.Connect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			failures++
			s.logger.Warn("connect failed", "failures", failures, "max", s.opts.MaxReconnects, "error", err)
			if failures >= s.opts.MaxReconnects {
				return fmt.Errorf("%w: %d consecutive failures: %w", shared.ErrReconnectsExhausted, failures, err)
			}
			continue
		}

		failures = 0
		s.setConnected(true)
		if self != "" {
			s.opts.Classifier.SetSelf(self)
		}
		s.announce(ctx)

		err = s.read(ctx)
		s.setConnected(false)
		if ctx.Err() != nil {
			return nil
		}
		s.logger.Warn("connection dropped, reconnecting", "error", err)
	}
}

func (s *Session) read(ctx context.Context) error {
	for {
		events, err := s.opts.Transport.Read(ctx)
		if err != nil {
			return err
		}
		for _, ev := range events {
			s.Handle(ctx, ev)
		}
	}
}

func (s *Session) setConnected(ok bool) {
	if s.opts.OnConnect != nil {
		s.opts.OnConnect(ok)
	}
}

// announce posts the newest unprinted changelog, once per process.
func (s *Session) announce(ctx context.Context) {
	if s.announced || s.opts.Changelog == nil || s.opts.DefaultChannel == "" {
		return
	}

	entry, err := s.opts.Changelog.Pending()
	if err != nil {
		s.logger.Warn("could not read changelog", "error", err)
		return
	}
	s.announced = true
	if entry == nil {
		return
	}

	if err := s.opts.Transport.Post(ctx, s.opts.DefaultChannel, entry.Message()); err != nil {
		s.logger.Warn("could not post changelog", "path", entry.Path, "error", err)
		s.announced = false
		return
	}
	if err := s.opts.Changelog.MarkPrinted(entry); err != nil {
		s.logger.Error("could not mark changelog", "path", entry.Path, "error", err)
		return
	}
	s.logger.Info("changelog announced", "path", entry.Path)
}

// Handle classifies one event and carries out what it asks for.
func (s *Session) Handle(ctx context.Context, ev chat.Event) {
	if s.opts.Events != nil {
		if _, err := s.opts.Events.Record(ev.Raw, ev); err != nil {
			s.logger.Warn("could not record event", "error", err)
		}
	}

	cl := s.opts.Classifier.Classify(ev, s.username(ctx, ev))
	s.opts.Metrics.Event(cl.Kind.String())

	switch cl.Kind {
	case chat.Submission:
		s.logger.Info("submission", "service", cl.Track.Service(), "id", cl.Track.ID(), "by", cl.Username)
		s.opts.Engine.Treat(ctx, cl.Track, cl.Ref)
	case chat.ListPlaylist:
		for _, svc := range cl.Services {
			s.list(ctx, cl.Ref.Channel, svc)
		}
	case chat.FeatureRequest:
		s.request(ctx, cl)
	case chat.Notice:
		if err := s.opts.Transport.Reply(ctx, cl.Ref, cl.Text); err != nil {
			s.logger.Warn("could not post notice", "error", err)
		}
	}
}

func (s *Session) username(ctx context.Context, ev chat.Event) string {
	user := ev.Body().User
	if ev.Type != "message" || user == "" {
		return ""
	}
	if name, ok := s.usernames[user]; ok {
		return name
	}

	name, err := s.opts.Transport.Username(ctx, user)
	if err != nil {
		s.logger.Warn("username lookup failed", "user", user, "error", err)
		return user
	}
	s.usernames[user] = name
	return name
}

func (s *Session) list(ctx context.Context, channel string, svc tracks.Service) {
	s.logger.Info("playlist contents requested", "service", svc)

	entries, err := s.opts.Registry.Contents(ctx, svc)
	if err != nil {
		s.logger.Error("could not list playlist", "service", svc, "error", err)
		return
	}

	binding, _ := s.opts.Registry.Binding(svc)
	listing := formatter.Listing{Service: svc.Label(), PlaylistID: binding.PlaylistID, Entries: entries}
	if err := s.opts.Transport.Upload(ctx, channel, formatter.SnippetFilename(listing), formatter.Snippet(listing)); err != nil {
		s.logger.Error("could not upload playlist", "service", svc, "error", err)
	}
}

func (s *Session) request(ctx context.Context, cl chat.Classification) {
	if s.opts.Requests == nil {
		return
	}
	if err := s.opts.Requests.Append(cl.Username, cl.Text); err != nil {
		s.logger.Error("could not log feature request", "error", err)
		return
	}
	if err := s.opts.Transport.Post(ctx, cl.Ref.Channel, "Feature request logged."); err != nil {
		s.logger.Warn("could not confirm feature request", "error", err)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
