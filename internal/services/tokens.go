package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/shared"
	"golang.org/x/oauth2"
)

// persistingTokenSource refreshes through base and saves every new access token back to the store.
type persistingTokenSource struct {
	mu      sync.Mutex
	base    oauth2.TokenSource
	store   TokenStore
	service string
	last    string
	logger  *log.Logger
}

func newPersistingTokenSource(ctx context.Context, cfg *oauth2.Config, token *oauth2.Token, store TokenStore, service string, logger *log.Logger) *persistingTokenSource {
	return &persistingTokenSource{
		base:    cfg.TokenSource(ctx, token),
		store:   store,
		service: service,
		last:    token.AccessToken,
		logger:  logger,
	}
}

// Token implements [oauth2.TokenSource].
func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	if token.AccessToken != s.last {
		s.last = token.AccessToken
		if err := s.store.Save(s.service, token); err != nil {
			s.logger.Warn("failed to persist refreshed token", "service", s.service, "error", err)
		} else {
			s.logger.Debug("persisted refreshed token", "service", s.service)
		}
	}
	return token, nil
}

// storedSession returns a token source seeded with the stored token as is.
func storedSession(ctx context.Context, cfg *oauth2.Config, store TokenStore, service string, logger *log.Logger) (*persistingTokenSource, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: no token store", shared.ErrNotAuthenticated)
	}

	token, err := store.Token(service)
	if err != nil {
		return nil, fmt.Errorf("%w: run `mixtape auth %s`: %w", shared.ErrNotAuthenticated, service, err)
	}
	return newPersistingTokenSource(ctx, cfg, token, store, service, logger), nil
}

// refreshedSession exchanges the stored refresh token for a new access token before returning the
// source. The stored access token is discarded even when its expiry says it is still valid, since
// the server has already rejected it.
func refreshedSession(ctx context.Context, cfg *oauth2.Config, store TokenStore, service string, logger *log.Logger) (*persistingTokenSource, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: no token store", shared.ErrNotAuthenticated)
	}

	stored, err := store.Token(service)
	if err != nil {
		return nil, fmt.Errorf("%w: run `mixtape auth %s`: %w", shared.ErrNotAuthenticated, service, err)
	}
	if stored.RefreshToken == "" {
		return nil, fmt.Errorf("%w: %s token cannot be refreshed, run `mixtape auth %s`", shared.ErrAuthFailed, service, service)
	}

	src := newPersistingTokenSource(ctx, cfg, &oauth2.Token{RefreshToken: stored.RefreshToken}, store, service, logger)
	if _, err := src.Token(); err != nil {
		return nil, tokenError(err)
	}
	return src, nil
}

// tokenError classifies a failed refresh. A rejected grant is permanent; anything else is retried.
func tokenError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.ErrorCode == "invalid_grant" {
		return fmt.Errorf("%w: refresh token rejected: %w", shared.ErrAuthFailed, err)
	}
	return fmt.Errorf("%w: token refresh: %w", shared.ErrSessionExpired, err)
}
