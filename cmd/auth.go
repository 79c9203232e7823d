package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/desertthunder/mixtape/internal/server"
	"github.com/desertthunder/mixtape/internal/services"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/desertthunder/mixtape/internal/ui"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

const authTimeout = 2 * time.Minute

// authorizer is an OAuth-backed service client.
type authorizer interface {
	Name() string
	OAuthConfig() *oauth2.Config
	AuthURL(state string) string
}

// AuthSpotify runs the authorization code flow for Spotify and stores the token.
func (r *Runner) AuthSpotify(ctx context.Context, cmd *cli.Command) error {
	tokens, db, err := r.openTokens()
	if err != nil {
		return err
	}
	defer db.Close()

	svc, err := services.NewSpotifyService(r.config.Spotify, tokens, r.logger)
	if err != nil {
		return fmt.Errorf("failed to create Spotify service: %w", err)
	}
	return r.authorize(ctx, svc, tokens)
}

// AuthYouTube runs the authorization code flow for YouTube and stores the token.
func (r *Runner) AuthYouTube(ctx context.Context, cmd *cli.Command) error {
	tokens, db, err := r.openTokens()
	if err != nil {
		return err
	}
	defer db.Close()

	svc, err := services.NewYouTubeService(r.config.YouTube, tokens, r.logger)
	if err != nil {
		return fmt.Errorf("failed to create YouTube service: %w", err)
	}
	return r.authorize(ctx, svc, tokens)
}

func (r *Runner) authorize(ctx context.Context, svc authorizer, store services.TokenStore) error {
	token, err := r.doOAuth(ctx, svc)
	if err != nil {
		return err
	}

	if err := store.Save(svc.Name(), token); err != nil {
		return fmt.Errorf("failed to save %s token: %w", svc.Name(), err)
	}

	r.writePlainln("%s", ui.Styles.OK("Authorization successful"))
	r.writePlain("%s\n", ui.Styles.OK("Token for %s saved to %s", svc.Name(), r.config.Database.Path))
	return nil
}

// doOAuth serves the callback on the redirect URI's host, opens the browser and waits for the code exchange.
func (r *Runner) doOAuth(ctx context.Context, svc authorizer) (*oauth2.Token, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	conf := svc.OAuthConfig()
	redirect, err := url.Parse(conf.RedirectURL)
	if err != nil || redirect.Host == "" {
		return nil, fmt.Errorf("%w: redirect_uri %q", shared.ErrInvalidConfig, conf.RedirectURL)
	}

	handler := server.NewOAuthHandler(svc.Name(), redirect.Path, conf, state)
	router := server.NewBasicRouter()
	router.Use(server.Recover(r.logger))
	router.Handler(handler)

	ctx, cancel := context.WithTimeout(ctx, authTimeout)
	defer cancel()

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.New(redirect.Host, router, r.logger).Run(ctx)
	}()

	authURL := svc.AuthURL(state)
	r.writePlain("→ Opening browser for %s authorization...\n", svc.Name())
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("%s", ui.Styles.Warn("Could not open browser automatically."))
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}
	r.writePlain("%s\n", ui.Styles.Help("Waiting for authorization (2 minute timeout)..."))

	var result server.OAuthResult
	select {
	case result = <-handler.Result():
	case err := <-serverErrors:
		if err == nil {
			err = ctx.Err()
		}
		return nil, fmt.Errorf("callback server stopped: %w", err)
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: authorization timed out after %v", shared.ErrTimeout, authTimeout)
		}
		return nil, ctx.Err()
	}

	if result.Err != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Err)
	}
	if result.Token == nil {
		return nil, fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
	}
	return result.Token, nil
}

type tokenStatus struct {
	Service   string    `json:"service"`
	Expiry    time.Time `json:"expiry"`
	Refresh   bool      `json:"refreshable"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AuthStatus lists the tokens stored for each service.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	tokens, db, err := r.openTokens()
	if err != nil {
		return err
	}
	defer db.Close()

	stored, err := tokens.List()
	if err != nil {
		return fmt.Errorf("failed to list tokens: %w", err)
	}

	statuses := make([]tokenStatus, 0, len(stored))
	for _, t := range stored {
		statuses = append(statuses, tokenStatus{
			Service:   t.Service,
			Expiry:    t.Token.Expiry,
			Refresh:   t.Token.RefreshToken != "",
			UpdatedAt: t.UpdatedAt,
		})
	}

	if cmd.Bool("json") {
		return r.writeJSON(statuses, true)
	}

	r.writePlain("%s\n", ui.Styles.Title("Stored tokens"))
	if len(statuses) == 0 {
		r.writePlain("%s\n", ui.Styles.Warn("No tokens stored. Run 'mixtape auth spotify' or 'mixtape auth youtube'."))
		return nil
	}
	for _, s := range statuses {
		line := fmt.Sprintf("%-10s updated %s", s.Service, s.UpdatedAt.Format(time.RFC3339))
		switch {
		case s.Refresh:
			r.writePlain("%s\n", ui.Styles.OK("%s (refreshable)", line))
		case !s.Expiry.IsZero() && s.Expiry.Before(time.Now()):
			r.writePlain("%s\n", ui.Styles.Err("%s (expired %s)", line, s.Expiry.Format(time.RFC3339)))
		default:
			r.writePlain("%s\n", ui.Styles.Warn("%s (expires %s)", line, s.Expiry.Format(time.RFC3339)))
		}
	}
	return nil
}
