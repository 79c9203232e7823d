package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/mixtape/internal/shared"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"
)

func newYouTubeTestServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			fmt.Fprintf(w, `{"error":{"code":%d,"message":"denied"}}`, status)
			return
		}

		switch {
		case strings.HasSuffix(r.URL.Path, "/search"):
			json.NewEncoder(w).Encode(map[string]any{
				"items": []any{
					map[string]any{"id": map[string]any{"kind": "youtube#channel", "channelId": "ch"}},
					map[string]any{
						"id":      map[string]any{"kind": "youtube#video", "videoId": "yt1"},
						"snippet": map[string]any{"title": "Artist - Song &amp; More"},
					},
				},
			})
		case strings.HasSuffix(r.URL.Path, "/videos"):
			if r.URL.Query().Get("id") == "missing" {
				json.NewEncoder(w).Encode(map[string]any{"items": []any{}})
				return
			}
			json.NewEncoder(w).Encode(map[string]any{
				"items": []any{map[string]any{"id": "yt1", "snippet": map[string]any{"title": "Artist - Song"}}},
			})
		case strings.HasSuffix(r.URL.Path, "/playlistItems") && r.Method == http.MethodGet:
			item := func(id string) map[string]any {
				return map[string]any{"snippet": map[string]any{"title": "t " + id, "resourceId": map[string]any{"videoId": id}}}
			}
			if r.URL.Query().Get("pageToken") == "" {
				json.NewEncoder(w).Encode(map[string]any{"items": []any{item("v1"), item("v2")}, "nextPageToken": "p2"})
				return
			}
			json.NewEncoder(w).Encode(map[string]any{"items": []any{item("v3")}})
		case strings.HasSuffix(r.URL.Path, "/playlistItems") && r.Method == http.MethodPost:
			var body struct {
				Snippet struct {
					PlaylistID string `json:"playlistId"`
					ResourceID struct {
						Kind    string `json:"kind"`
						VideoID string `json:"videoId"`
					} `json:"resourceId"`
				} `json:"snippet"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			if body.Snippet.PlaylistID != "pl" || body.Snippet.ResourceID.VideoID != "yt9" || body.Snippet.ResourceID.Kind != "youtube#video" {
				t.Errorf("unexpected insert body %+v", body)
			}
			json.NewEncoder(w).Encode(map[string]any{"id": "item"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func newTestYouTube(t *testing.T, server *httptest.Server) *YouTubeService {
	t.Helper()
	svc := newYouTubeService(&oauth2.Config{}, newMemStore(), shared.NewLogger(io.Discard), option.WithEndpoint(server.URL+"/"))
	if err := svc.useHTTPClient(context.Background(), server.Client()); err != nil {
		t.Fatalf("failed to build service: %v", err)
	}
	return svc
}

func TestYouTubeService(t *testing.T) {
	t.Run("NewYouTubeService", func(t *testing.T) {
		t.Run("Reads client secrets", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "client_secrets.json")
			secrets := `{"installed":{"client_id":"cid","client_secret":"cs","auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token","redirect_uris":["http://localhost"]}}`
			if err := os.WriteFile(path, []byte(secrets), 0600); err != nil {
				t.Fatalf("failed to write secrets: %v", err)
			}

			svc, err := NewYouTubeService(shared.YouTubeConfig{ClientSecretsPath: path, RedirectURI: "http://127.0.0.1:3000/callback"}, nil, nil)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if svc.OAuthConfig().ClientID != "cid" {
				t.Errorf("expected client id cid, got %s", svc.OAuthConfig().ClientID)
			}
			if svc.OAuthConfig().RedirectURL != "http://127.0.0.1:3000/callback" {
				t.Errorf("expected redirect override, got %s", svc.OAuthConfig().RedirectURL)
			}
			if !strings.Contains(svc.AuthURL("st"), "access_type=offline") {
				t.Errorf("expected offline access in %s", svc.AuthURL("st"))
			}
		})

		t.Run("Missing secrets path", func(t *testing.T) {
			if _, err := NewYouTubeService(shared.YouTubeConfig{}, nil, nil); !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("Unreadable secrets", func(t *testing.T) {
			cfg := shared.YouTubeConfig{ClientSecretsPath: filepath.Join(t.TempDir(), "nope.json")}
			if _, err := NewYouTubeService(cfg, nil, nil); !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})
	})

	t.Run("Search picks first video", func(t *testing.T) {
		server := newYouTubeTestServer(t, http.StatusOK)
		defer server.Close()

		result, err := newTestYouTube(t, server).Search(context.Background(), "song")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result == nil || result.ID != "yt1" {
			t.Fatalf("expected yt1, got %+v", result)
		}
		if result.Title != "Artist - Song & More" {
			t.Errorf("expected unescaped title, got %s", result.Title)
		}
	})

	t.Run("Lookup", func(t *testing.T) {
		server := newYouTubeTestServer(t, http.StatusOK)
		defer server.Close()

		svc := newTestYouTube(t, server)
		result, err := svc.Lookup(context.Background(), "yt1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.Title != "Artist - Song" {
			t.Errorf("expected title, got %s", result.Title)
		}

		if _, err := svc.Lookup(context.Background(), "missing"); !errors.Is(err, shared.ErrTrackNotFound) {
			t.Errorf("expected ErrTrackNotFound, got %v", err)
		}
	})

	t.Run("Items follows page tokens", func(t *testing.T) {
		server := newYouTubeTestServer(t, http.StatusOK)
		defer server.Close()

		var ids []string
		for entry, err := range newTestYouTube(t, server).Items(context.Background(), "pl") {
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			ids = append(ids, entry.ID)
		}
		if strings.Join(ids, ",") != "v1,v2,v3" {
			t.Errorf("expected v1,v2,v3, got %v", ids)
		}
	})

	t.Run("Insert", func(t *testing.T) {
		server := newYouTubeTestServer(t, http.StatusOK)
		defer server.Close()

		if err := newTestYouTube(t, server).Insert(context.Background(), "pl", "yt9"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("Error translation", func(t *testing.T) {
		tc := []struct {
			name   string
			status int
			want   error
		}{
			{name: "unauthorized", status: http.StatusUnauthorized, want: shared.ErrSessionExpired},
			{name: "not found", status: http.StatusNotFound, want: shared.ErrPlaylistNotFound},
			{name: "bad request", status: http.StatusBadRequest, want: shared.ErrAPIRequest},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				server := newYouTubeTestServer(t, tt.status)
				defer server.Close()

				err := newTestYouTube(t, server).Insert(context.Background(), "pl", "yt9")
				if !errors.Is(err, tt.want) {
					t.Errorf("expected %v, got %v", tt.want, err)
				}
			})
		}
	})

	t.Run("Reauthenticate refreshes a rejected token", func(t *testing.T) {
		refreshes := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if r.URL.Path == "/token" {
				refreshes++
				fmt.Fprint(w, `{"access_token":"fresh","token_type":"Bearer","expires_in":3600}`)
				return
			}
			if r.Header.Get("Authorization") != "Bearer fresh" {
				w.WriteHeader(http.StatusUnauthorized)
				fmt.Fprint(w, `{"error":{"code":401,"message":"Invalid Credentials"}}`)
				return
			}
			json.NewEncoder(w).Encode(map[string]any{
				"items": []any{map[string]any{"id": "yt1", "snippet": map[string]any{"title": "Artist - Song"}}},
			})
		}))
		defer server.Close()

		conf := &oauth2.Config{
			ClientID: "cid",
			Endpoint: oauth2.Endpoint{TokenURL: server.URL + "/token", AuthStyle: oauth2.AuthStyleInParams},
		}
		store := newMemStore(YouTube, &oauth2.Token{AccessToken: "revoked", RefreshToken: "r", TokenType: "Bearer", Expiry: time.Now().Add(time.Hour)})
		svc := newYouTubeService(conf, store, shared.NewLogger(io.Discard), option.WithEndpoint(server.URL+"/"))

		result, err := quietAdapter(svc, 3).Lookup(context.Background(), "yt1")
		if err != nil {
			t.Fatalf("expected recovery, got %v", err)
		}
		if result.Title != "Artist - Song" {
			t.Errorf("expected title, got %s", result.Title)
		}
		if refreshes != 1 {
			t.Errorf("expected one token request, got %d", refreshes)
		}
	})
}
