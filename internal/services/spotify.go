package services

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
)

const (
	defaultRedirectURI = "http://127.0.0.1:3000/callback"
	spotifyPageSize    = 100
)

var spotifyScopes = []string{
	spotifyauth.ScopePlaylistReadPrivate,
	spotifyauth.ScopePlaylistReadCollaborative,
	spotifyauth.ScopePlaylistModifyPublic,
	spotifyauth.ScopePlaylistModifyPrivate,
}

// SpotifyService implements [Client] on top of the zmb3/spotify Web API client.
//
// The session is built from the token stored for "spotify"; refreshed tokens are written back to the
// store. [SpotifyService.Reauthenticate] forces a refresh through the stored refresh token.
type SpotifyService struct {
	config *oauth2.Config
	store  TokenStore
	client *spotify.Client
	opts   []spotify.ClientOption
	logger *log.Logger
}

// NewSpotifyService creates a Spotify client from configured credentials.
func NewSpotifyService(cfg shared.SpotifyConfig, store TokenStore, logger *log.Logger, opts ...spotify.ClientOption) (*SpotifyService, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("%w: spotify client_id", shared.ErrMissingCredentials)
	}
	if cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: spotify client_secret", shared.ErrMissingCredentials)
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	redirectURI := cfg.RedirectURI
	if redirectURI == "" {
		redirectURI = defaultRedirectURI
	}

	return &SpotifyService{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  redirectURI,
			Scopes:       spotifyScopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  spotifyauth.AuthURL,
				TokenURL: spotifyauth.TokenURL,
			},
		},
		store:  store,
		opts:   append([]spotify.ClientOption{spotify.WithRetry(true)}, opts...),
		logger: shared.WithLogger(logger, "service", Spotify),
	}, nil
}

// Name returns the service tag.
func (s *SpotifyService) Name() string {
	return Spotify
}

// OAuthConfig exposes the OAuth2 configuration for the interactive auth flow.
func (s *SpotifyService) OAuthConfig() *oauth2.Config {
	return s.config
}

// AuthURL returns the authorization URL for user login.
func (s *SpotifyService) AuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Reauthenticate refreshes the stored token against the token endpoint and rebuilds the API client.
func (s *SpotifyService) Reauthenticate(ctx context.Context) error {
	src, err := refreshedSession(context.WithoutCancel(ctx), s.config, s.store, Spotify, s.logger)
	if err != nil {
		return err
	}

	s.useHTTPClient(oauth2.NewClient(context.WithoutCancel(ctx), src))
	s.logger.Info("session refreshed")
	return nil
}

func (s *SpotifyService) useHTTPClient(c *http.Client) {
	s.client = spotify.New(c, s.opts...)
}

func (s *SpotifyService) ensure(ctx context.Context) error {
	if s.client != nil {
		return nil
	}

	src, err := storedSession(context.WithoutCancel(ctx), s.config, s.store, Spotify, s.logger)
	if err != nil {
		return err
	}
	s.useHTTPClient(oauth2.NewClient(context.WithoutCancel(ctx), src))
	s.logger.Info("session established")
	return nil
}

// Search returns the first track matching query.
func (s *SpotifyService) Search(ctx context.Context, query string) (*Result, error) {
	if err := s.ensure(ctx); err != nil {
		return nil, err
	}

	res, err := s.client.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(1))
	if err != nil {
		return nil, s.translate(err)
	}

	if res.Tracks == nil || len(res.Tracks.Tracks) == 0 {
		return nil, nil
	}

	track := res.Tracks.Tracks[0]
	return &Result{ID: string(track.ID), Title: spotifyTitle(track.SimpleTrack)}, nil
}

// Lookup fetches a track by id.
func (s *SpotifyService) Lookup(ctx context.Context, id string) (*Result, error) {
	if err := s.ensure(ctx); err != nil {
		return nil, err
	}

	track, err := s.client.GetTrack(ctx, spotify.ID(id))
	if err != nil {
		return nil, s.translate(err)
	}
	return &Result{ID: string(track.ID), Title: spotifyTitle(track.SimpleTrack)}, nil
}

// Items walks the playlist page by page. Episodes and local files are skipped.
func (s *SpotifyService) Items(ctx context.Context, playlistID string) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		if err := s.ensure(ctx); err != nil {
			yield(Entry{}, err)
			return
		}

		page, err := s.client.GetPlaylistItems(ctx, spotify.ID(playlistID), spotify.Limit(spotifyPageSize))
		if err != nil {
			yield(Entry{}, s.translate(err))
			return
		}

		for {
			for _, item := range page.Items {
				track := item.Track.Track
				if track == nil || track.ID == "" {
					continue
				}
				if !yield(Entry{ID: string(track.ID), Title: spotifyTitle(track.SimpleTrack)}, nil) {
					return
				}
			}

			err := s.client.NextPage(ctx, page)
			if errors.Is(err, spotify.ErrNoMorePages) {
				return
			}
			if err != nil {
				yield(Entry{}, s.translate(err))
				return
			}
		}
	}
}

// Insert adds the track to the playlist.
func (s *SpotifyService) Insert(ctx context.Context, playlistID, id string) error {
	if err := s.ensure(ctx); err != nil {
		return err
	}

	if _, err := s.client.AddTracksToPlaylist(ctx, spotify.ID(playlistID), spotify.ID(id)); err != nil {
		return s.translate(err)
	}
	return nil
}

// translate maps Spotify and OAuth failures onto shared sentinels.
func (s *SpotifyService) translate(err error) error {
	var apiErr spotify.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: %s", shared.ErrSessionExpired, apiErr.Message)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, apiErr.Message)
		}
		return fmt.Errorf("%w: spotify status %d: %s", shared.ErrAPIRequest, apiErr.Status, apiErr.Message)
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return tokenError(err)
	}

	return fmt.Errorf("%w: spotify: %w", shared.ErrAPIRequest, err)
}

// spotifyTitle renders "<first artist> - <name>".
func spotifyTitle(t spotify.SimpleTrack) string {
	if len(t.Artists) == 0 {
		return t.Name
	}
	return strings.TrimSpace(t.Artists[0].Name) + " - " + t.Name
}
