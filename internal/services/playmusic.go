package services

import (
	"context"
	"fmt"
	"iter"
	"net/http"
	"net/url"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/shared"
)

// PlayMusicService implements [Client] for Google Play Music through its HTTP proxy.
//
// Proxy endpoints:
//
//	POST /auth/login                   {"username","password"} -> {"session"}
//	GET  /search?q=                    -> {"results":[{"id","title"}]}
//	GET  /tracks/{id}                  -> {"id","title"}
//	GET  /playlists/{id}/entries?page= -> {"entries":[{"id","title"}],"next_page":""}
//	POST /playlists/{id}/entries       {"id"}
//
// A 401 from any endpoint means the proxy session lapsed.
type PlayMusicService struct {
	api      *APIService
	username string
	password string
	loggedIn bool
	logger   *log.Logger
}

type playMusicItem struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// NewPlayMusicService creates a Play Music client for the configured proxy.
func NewPlayMusicService(cfg shared.PlayMusicConfig, client *http.Client, logger *log.Logger) *PlayMusicService {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &PlayMusicService{
		api:      NewAPIService(cfg.ProxyURL, client),
		username: cfg.Username,
		password: cfg.Password,
		logger:   shared.WithLogger(logger, "service", PlayMusic),
	}
}

// Name returns the service tag.
func (p *PlayMusicService) Name() string {
	return PlayMusic
}

// Reauthenticate logs in to the proxy with the configured account.
func (p *PlayMusicService) Reauthenticate(ctx context.Context) error {
	if p.username == "" || p.password == "" {
		return fmt.Errorf("%w: playmusic username and password", shared.ErrMissingCredentials)
	}

	resp, err := p.api.Post(ctx, "/auth/login", map[string]string{"username": p.username, "password": p.password})
	if err != nil {
		return fmt.Errorf("%w: playmusic login: %w", shared.ErrServiceUnavailable, err)
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: playmusic login: %s", shared.ErrAuthFailed, resp.Detail())
	}
	if !resp.OK() {
		return p.statusError(resp)
	}

	var session struct {
		Session string `json:"session"`
	}
	if err := resp.Decode(&session); err != nil {
		return err
	}

	p.api.SetSession(session.Session)
	p.loggedIn = true
	p.logger.Info("session established")
	return nil
}

func (p *PlayMusicService) ensure(ctx context.Context) error {
	if p.loggedIn {
		return nil
	}
	return p.Reauthenticate(ctx)
}

func (p *PlayMusicService) call(ctx context.Context, method, path string, body, result any) error {
	if err := p.ensure(ctx); err != nil {
		return err
	}

	resp, err := p.api.Do(ctx, method, path, body)
	if err != nil {
		return fmt.Errorf("%w: playmusic: %w", shared.ErrAPIRequest, err)
	}
	if !resp.OK() {
		return p.statusError(resp)
	}
	if result == nil {
		return nil
	}
	return resp.Decode(result)
}

func (p *PlayMusicService) statusError(resp *APIResponse) error {
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", shared.ErrSessionExpired, resp.Detail())
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, resp.Detail())
	}
	return fmt.Errorf("%w: playmusic status %d: %s", shared.ErrAPIRequest, resp.StatusCode, resp.Detail())
}

// Search returns the first result for query.
func (p *PlayMusicService) Search(ctx context.Context, query string) (*Result, error) {
	var resp struct {
		Results []playMusicItem `json:"results"`
	}
	if err := p.call(ctx, http.MethodGet, "/search?q="+url.QueryEscape(query), nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}
	return &Result{ID: resp.Results[0].ID, Title: resp.Results[0].Title}, nil
}

// Lookup fetches a track by id.
func (p *PlayMusicService) Lookup(ctx context.Context, id string) (*Result, error) {
	var item playMusicItem
	if err := p.call(ctx, http.MethodGet, "/tracks/"+url.PathEscape(id), nil, &item); err != nil {
		return nil, err
	}
	return &Result{ID: item.ID, Title: item.Title}, nil
}

// Items walks the playlist following next_page cursors.
func (p *PlayMusicService) Items(ctx context.Context, playlistID string) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		cursor := ""
		for {
			path := "/playlists/" + url.PathEscape(playlistID) + "/entries"
			if cursor != "" {
				path += "?page=" + url.QueryEscape(cursor)
			}

			var page struct {
				Entries  []playMusicItem `json:"entries"`
				NextPage string          `json:"next_page"`
			}
			if err := p.call(ctx, http.MethodGet, path, nil, &page); err != nil {
				yield(Entry{}, err)
				return
			}

			for _, item := range page.Entries {
				if !yield(Entry{ID: item.ID, Title: item.Title}, nil) {
					return
				}
			}

			if page.NextPage == "" {
				return
			}
			cursor = page.NextPage
		}
	}
}

// Insert appends id to the playlist.
func (p *PlayMusicService) Insert(ctx context.Context, playlistID, id string) error {
	path := "/playlists/" + url.PathEscape(playlistID) + "/entries"
	return p.call(ctx, http.MethodPost, path, map[string]string{"id": id}, nil)
}
