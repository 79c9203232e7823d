package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"iter"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

const (
	youtubeVideoKind  = "youtube#video"
	youtubeSearchSize = 10
	youtubePageSize   = 50
)

// YouTubeService implements [Client] with the YouTube Data API v3.
type YouTubeService struct {
	config *oauth2.Config
	store  TokenStore
	svc    *youtube.Service
	opts   []option.ClientOption
	logger *log.Logger
}

// NewYouTubeService reads the Google OAuth client secrets file and prepares a YouTube client.
//
// The API session itself is created lazily from the stored "youtube" token.
func NewYouTubeService(cfg shared.YouTubeConfig, store TokenStore, logger *log.Logger, opts ...option.ClientOption) (*YouTubeService, error) {
	if cfg.ClientSecretsPath == "" {
		return nil, fmt.Errorf("%w: youtube client_secrets_path", shared.ErrMissingCredentials)
	}

	data, err := os.ReadFile(cfg.ClientSecretsPath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read client secrets: %w", shared.ErrMissingCredentials, err)
	}

	conf, err := google.ConfigFromJSON(data, youtube.YoutubeScope)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse client secrets: %w", shared.ErrInvalidConfig, err)
	}
	if cfg.RedirectURI != "" {
		conf.RedirectURL = cfg.RedirectURI
	}

	return newYouTubeService(conf, store, logger, opts...), nil
}

func newYouTubeService(conf *oauth2.Config, store TokenStore, logger *log.Logger, opts ...option.ClientOption) *YouTubeService {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &YouTubeService{
		config: conf,
		store:  store,
		opts:   opts,
		logger: shared.WithLogger(logger, "service", YouTube),
	}
}

// Name returns the service tag.
func (y *YouTubeService) Name() string {
	return YouTube
}

// OAuthConfig exposes the OAuth2 configuration for the interactive auth flow.
func (y *YouTubeService) OAuthConfig() *oauth2.Config {
	return y.config
}

// AuthURL returns the Google consent URL, requesting a refresh token.
func (y *YouTubeService) AuthURL(state string) string {
	return y.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Reauthenticate exchanges the stored refresh token for a new access token and rebuilds the API service.
func (y *YouTubeService) Reauthenticate(ctx context.Context) error {
	src, err := refreshedSession(context.WithoutCancel(ctx), y.config, y.store, YouTube, y.logger)
	if err != nil {
		return err
	}

	if err := y.useHTTPClient(ctx, oauth2.NewClient(context.WithoutCancel(ctx), src)); err != nil {
		return err
	}
	y.logger.Info("session refreshed")
	return nil
}

func (y *YouTubeService) useHTTPClient(ctx context.Context, c *http.Client) error {
	opts := append([]option.ClientOption{option.WithHTTPClient(c)}, y.opts...)
	svc, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return fmt.Errorf("%w: youtube: %w", shared.ErrServiceUnavailable, err)
	}
	y.svc = svc
	return nil
}

func (y *YouTubeService) ensure(ctx context.Context) error {
	if y.svc != nil {
		return nil
	}

	src, err := storedSession(context.WithoutCancel(ctx), y.config, y.store, YouTube, y.logger)
	if err != nil {
		return err
	}
	return y.useHTTPClient(ctx, oauth2.NewClient(context.WithoutCancel(ctx), src))
}

// Search returns the first video among the top search results.
func (y *YouTubeService) Search(ctx context.Context, query string) (*Result, error) {
	if err := y.ensure(ctx); err != nil {
		return nil, err
	}

	resp, err := y.svc.Search.List([]string{"id", "snippet"}).
		Q(query).
		MaxResults(youtubeSearchSize).
		Context(ctx).
		Do()
	if err != nil {
		return nil, y.translate(err)
	}

	for _, item := range resp.Items {
		if item.Id == nil || item.Id.Kind != youtubeVideoKind {
			continue
		}
		title := query
		if item.Snippet != nil {
			title = html.UnescapeString(item.Snippet.Title)
		}
		return &Result{ID: item.Id.VideoId, Title: title}, nil
	}
	return nil, nil
}

// Lookup fetches a video's title.
func (y *YouTubeService) Lookup(ctx context.Context, id string) (*Result, error) {
	if err := y.ensure(ctx); err != nil {
		return nil, err
	}

	resp, err := y.svc.Videos.List([]string{"snippet"}).Id(id).Context(ctx).Do()
	if err != nil {
		return nil, y.translate(err)
	}
	if len(resp.Items) == 0 || resp.Items[0].Snippet == nil {
		return nil, fmt.Errorf("%w: youtube video %s", shared.ErrTrackNotFound, id)
	}
	return &Result{ID: id, Title: resp.Items[0].Snippet.Title}, nil
}

// Items walks the playlist following nextPageToken.
func (y *YouTubeService) Items(ctx context.Context, playlistID string) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		if err := y.ensure(ctx); err != nil {
			yield(Entry{}, err)
			return
		}

		pageToken := ""
		for {
			call := y.svc.PlaylistItems.List([]string{"snippet"}).
				PlaylistId(playlistID).
				MaxResults(youtubePageSize).
				Context(ctx)
			if pageToken != "" {
				call = call.PageToken(pageToken)
			}

			resp, err := call.Do()
			if err != nil {
				yield(Entry{}, y.translate(err))
				return
			}

			for _, item := range resp.Items {
				if item.Snippet == nil || item.Snippet.ResourceId == nil {
					continue
				}
				entry := Entry{ID: item.Snippet.ResourceId.VideoId, Title: item.Snippet.Title}
				if !yield(entry, nil) {
					return
				}
			}

			if resp.NextPageToken == "" {
				return
			}
			pageToken = resp.NextPageToken
		}
	}
}

// Insert appends the video to the playlist.
func (y *YouTubeService) Insert(ctx context.Context, playlistID, id string) error {
	if err := y.ensure(ctx); err != nil {
		return err
	}

	item := &youtube.PlaylistItem{
		Snippet: &youtube.PlaylistItemSnippet{
			PlaylistId: playlistID,
			ResourceId: &youtube.ResourceId{Kind: youtubeVideoKind, VideoId: id},
		},
	}
	if _, err := y.svc.PlaylistItems.Insert([]string{"snippet"}, item).Context(ctx).Do(); err != nil {
		return y.translate(err)
	}
	return nil
}

func (y *YouTubeService) translate(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: %s", shared.ErrSessionExpired, apiErr.Message)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, apiErr.Message)
		}
		return fmt.Errorf("%w: youtube status %d: %s", shared.ErrAPIRequest, apiErr.Code, apiErr.Message)
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return tokenError(err)
	}

	return fmt.Errorf("%w: youtube: %w", shared.ErrAPIRequest, err)
}
