package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/mixtape/internal/shared"
	"golang.org/x/oauth2"
)

type stubExchanger struct {
	token *oauth2.Token
	err   error
	code  string
}

func (s *stubExchanger) Exchange(ctx context.Context, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error) {
	s.code = code
	return s.token, s.err
}

func TestOAuthHandler(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		ex := &stubExchanger{token: &oauth2.Token{AccessToken: "access"}}
		h := NewOAuthHandler("spotify", "/callback", ex, "state-1")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest("GET", "/callback?state=state-1&code=abc", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "spotify connected") {
			t.Errorf("expected success page, got %s", rec.Body.String())
		}
		if ex.code != "abc" {
			t.Errorf("expected code abc, got %s", ex.code)
		}

		result := <-h.Result()
		if result.Err != nil || result.Token.AccessToken != "access" || result.Service != "spotify" {
			t.Errorf("unexpected result %+v", result)
		}
	})

	tc := []struct {
		name   string
		query  string
		ex     *stubExchanger
		status int
	}{
		{name: "state mismatch", query: "state=other&code=abc", ex: &stubExchanger{}, status: http.StatusBadRequest},
		{name: "denied", query: "state=s&error=access_denied", ex: &stubExchanger{}, status: http.StatusBadRequest},
		{name: "exchange failure", query: "state=s&code=abc", ex: &stubExchanger{err: errors.New("boom")}, status: http.StatusInternalServerError},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			h := NewOAuthHandler("youtube", "", tt.ex, "s")
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest("GET", "/callback?"+tt.query, nil))

			if rec.Code != tt.status {
				t.Errorf("expected %d, got %d", tt.status, rec.Code)
			}
			if result := <-h.Result(); !errors.Is(result.Err, shared.ErrAuthFailed) {
				t.Errorf("expected ErrAuthFailed, got %v", result.Err)
			}
		})
	}

	t.Run("second callback rejected", func(t *testing.T) {
		h := NewOAuthHandler("spotify", "/cb", &stubExchanger{token: &oauth2.Token{}}, "s")
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/cb?state=s&code=a", nil))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest("GET", "/cb?state=s&code=a", nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
		if routes := h.Routes(); len(routes) != 1 || routes[0] != "/cb" {
			t.Errorf("unexpected routes %v", routes)
		}
	})
}

func TestBotRouter(t *testing.T) {
	health := &Health{}
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("metrics")) })
	router := NewBotRouter(health, metrics, shared.NewLogger(nil))

	t.Run("health follows connection", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("expected 503 before connect, got %d", rec.Code)
		}

		health.SetConnected(true)
		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))

		var body map[string]any
		json.NewDecoder(rec.Body).Decode(&body)
		if rec.Code != http.StatusOK || body["status"] != "connected" {
			t.Errorf("expected connected, got %d %v", rec.Code, body)
		}
	})

	t.Run("metrics method filtering", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
		if rec.Body.String() != "metrics" {
			t.Errorf("unexpected body %q", rec.Body.String())
		}

		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("POST", "/metrics", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
	})

	t.Run("middleware order", func(t *testing.T) {
		var order []string
		mark := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		r := NewBasicRouter()
		r.Use(mark("outer"), mark("inner"))
		r.Handle("GET", "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

		if len(order) != 2 || order[0] != "outer" || order[1] != "inner" {
			t.Errorf("unexpected order %v", order)
		}
	})

	t.Run("recovers panics", func(t *testing.T) {
		r := NewBasicRouter()
		r.Use(Recover(shared.NewLogger(nil)))
		r.Handle("GET", "/panic", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { panic("boom") }))

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest("GET", "/panic", nil))
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
	})
}

func TestServerShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	srv := New(ln.Addr().String(), NewBotRouter(&Health{}, nil, shared.NewLogger(nil)), nil)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
