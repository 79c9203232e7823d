package services

import (
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/desertthunder/mixtape/internal/shared"
	"golang.org/x/oauth2"
)

// memStore is an in-memory [TokenStore].
type memStore struct {
	mu     sync.Mutex
	tokens map[string]*oauth2.Token
	saves  int
}

func newMemStore(kv ...any) *memStore {
	s := &memStore{tokens: map[string]*oauth2.Token{}}
	for i := 0; i+1 < len(kv); i += 2 {
		s.tokens[kv[i].(string)] = kv[i+1].(*oauth2.Token)
	}
	return s
}

func (s *memStore) Token(service string) (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.tokens[service]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrNotAuthenticated, service)
	}
	return token, nil
}

func (s *memStore) Save(service string, token *oauth2.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[service] = token
	s.saves++
	return nil
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// failingBody errors on every read.
type failingBody struct{}

func (failingBody) Read(p []byte) (int, error) { return 0, errors.New("read failed") }

func (failingBody) Close() error { return nil }
