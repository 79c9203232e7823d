package services

import (
	"context"
	"iter"

	"golang.org/x/oauth2"
)

// Service tags used in configuration, reactions and token storage.
const (
	YouTube   = "youtube"
	Spotify   = "spotify"
	PlayMusic = "playmusic"
)

// Client is the raw capability set of one remote music service.
//
// Implementations translate service-native failures: an expired or rejected session surfaces as
// [shared.ErrSessionExpired] so the [Adapter] can re-authenticate and retry.
type Client interface {
	// Name returns the service tag (e.g., "spotify")
	Name() string

	// Search returns the best match for query, or nil when nothing matched.
	Search(ctx context.Context, query string) (*Result, error)

	// Lookup fetches the canonical title for a known id.
	Lookup(ctx context.Context, id string) (*Result, error)

	// Items lazily walks every entry of a playlist, following pagination until the service reports no
	// further page. A fresh call restarts from the first page.
	Items(ctx context.Context, playlistID string) iter.Seq2[Entry, error]

	// Insert appends id to the playlist.
	Insert(ctx context.Context, playlistID, id string) error

	// Reauthenticate replaces the client's session with a newly issued one. A stored credential the
	// service already rejected must not be reused.
	Reauthenticate(ctx context.Context) error
}

// Result is a search or lookup hit.
type Result struct {
	ID    string
	Title string
}

// Entry is one playlist member.
type Entry struct {
	ID    string
	Title string
}

// TokenStore loads and saves OAuth tokens by service tag.
type TokenStore interface {
	Token(service string) (*oauth2.Token, error)
	Save(service string, token *oauth2.Token) error
}
