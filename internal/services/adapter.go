package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/shared"
	"golang.org/x/time/rate"
)

// AdapterOpts configures the retry discipline of an [Adapter].
type AdapterOpts struct {
	MaxAttempts    int                  // Attempts per logical step; 0 retries until success
	ReauthInterval time.Duration        // Minimum spacing between re-authentications
	Logger         *log.Logger          // Defaults to [shared.NewLogger]
	OnReauth       func(service string) // Optional hook, e.g. a metrics counter
}

// Adapter gives tracks a uniform view of a [Client] and owns its retry policy.
//
// When a step fails because the session expired, the adapter re-authenticates the client and
// repeats the whole step. Playlist listings restart from the first page, never from the page that
// failed. Any other failure is returned as is.
//
// An Adapter is shared by every track of its service and is not safe for concurrent re-authentication.
type Adapter struct {
	client      Client
	maxAttempts int
	limiter     *rate.Limiter
	logger      *log.Logger
	onReauth    func(string)
}

// NewAdapter wraps client with the retry policy described by opts.
func NewAdapter(client Client, opts AdapterOpts) *Adapter {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	limit := rate.Inf
	if opts.ReauthInterval > 0 {
		limit = rate.Every(opts.ReauthInterval)
	}

	return &Adapter{
		client:      client,
		maxAttempts: opts.MaxAttempts,
		limiter:     rate.NewLimiter(limit, 1),
		logger:      shared.WithLogger(opts.Logger, "service", client.Name()),
		onReauth:    opts.OnReauth,
	}
}

// Name returns the wrapped client's service tag.
func (a *Adapter) Name() string {
	return a.client.Name()
}

// Search returns the best match for query, or nil when the service found nothing.
func (a *Adapter) Search(ctx context.Context, query string) (*Result, error) {
	var result *Result
	err := a.retry(ctx, "search", func() error {
		var err error
		result, err = a.client.Search(ctx, query)
		return err
	})
	return result, err
}

// Lookup fetches the canonical title of a known id.
func (a *Adapter) Lookup(ctx context.Context, id string) (*Result, error) {
	var result *Result
	err := a.retry(ctx, "lookup", func() error {
		var err error
		result, err = a.client.Lookup(ctx, id)
		return err
	})
	return result, err
}

// Entries drains the playlist listing into a slice.
func (a *Adapter) Entries(ctx context.Context, playlistID string) ([]Entry, error) {
	var entries []Entry
	err := a.retry(ctx, "list", func() error {
		entries = entries[:0]
		for entry, err := range a.client.Items(ctx, playlistID) {
			if err != nil {
				return err
			}
			entries = append(entries, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Members returns the set of ids currently in the playlist.
func (a *Adapter) Members(ctx context.Context, playlistID string) (map[string]struct{}, error) {
	entries, err := a.Entries(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	members := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		members[entry.ID] = struct{}{}
	}
	return members, nil
}

// Insert appends id to the playlist.
func (a *Adapter) Insert(ctx context.Context, playlistID, id string) error {
	return a.retry(ctx, "insert", func() error {
		return a.client.Insert(ctx, playlistID, id)
	})
}

func (a *Adapter) retry(ctx context.Context, op string, fn func() error) error {
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil || !errors.Is(err, shared.ErrSessionExpired) {
			return err
		}

		if a.maxAttempts > 0 && attempt >= a.maxAttempts {
			return fmt.Errorf("%w: %s on %s after %d attempts: %w", shared.ErrRetriesExceeded, op, a.Name(), attempt, err)
		}

		a.logger.Warn("session expired, re-authenticating", "op", op, "attempt", attempt)
		if err := a.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: %s on %s: %w", shared.ErrTimeout, op, a.Name(), err)
		}

		if err := a.client.Reauthenticate(ctx); err != nil {
			if !errors.Is(err, shared.ErrSessionExpired) {
				return fmt.Errorf("%w: %s: %w", shared.ErrAuthFailed, a.Name(), err)
			}
			a.logger.Warn("re-authentication did not take, retrying", "error", err)
		}

		if a.onReauth != nil {
			a.onReauth(a.Name())
		}
	}
}
