package tracks

import (
	"context"
	"fmt"

	"github.com/desertthunder/mixtape/internal/services"
	"github.com/desertthunder/mixtape/internal/shared"
)

// Service is a music service tag.
type Service string

const (
	YouTube   Service = services.YouTube
	Spotify   Service = services.Spotify
	PlayMusic Service = services.PlayMusic
)

// Order is the fixed iteration order over services.
var Order = []Service{YouTube, Spotify, PlayMusic}

// Label is the display name used in chat messages.
func (s Service) Label() string {
	switch s {
	case YouTube:
		return "YouTube"
	case Spotify:
		return "Spotify"
	case PlayMusic:
		return "PlayMusic"
	default:
		return string(s)
	}
}

// ParseService maps a configured tag onto a [Service].
func ParseService(name string) (Service, error) {
	for _, s := range Order {
		if string(s) == name {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q", shared.ErrUnrecognizedService, name)
}

// Outcome reports what ensuring playlist membership did.
type Outcome int

const (
	Added Outcome = iota
	AlreadyPresent
)

func (o Outcome) String() string {
	switch o {
	case Added:
		return "added"
	case AlreadyPresent:
		return "exists"
	default:
		return ""
	}
}

// Adapter is the per-service capability a track acts through.
//
// [services.Adapter] is the production implementation.
type Adapter interface {
	Search(ctx context.Context, query string) (*services.Result, error)
	Lookup(ctx context.Context, id string) (*services.Result, error)
	Entries(ctx context.Context, playlistID string) ([]services.Entry, error)
	Members(ctx context.Context, playlistID string) (map[string]struct{}, error)
	Insert(ctx context.Context, playlistID, id string) error
}

// Track is a song on one service.
type Track interface {
	ID() string
	Title() string
	AddedBy() string
	Link() string
	Service() Service
	PlaylistID() string

	// Resolved reports whether the service id is known.
	Resolved() bool

	// ResolveIfUnknown searches the track's own service by title when the id is unset. It returns true
	// when a search ran and succeeded, and [shared.ErrTrackNotFound] when the search found nothing.
	ResolveIfUnknown(ctx context.Context) (bool, error)

	// Refine replaces the title with the service's canonical title for a known id.
	Refine(ctx context.Context) error

	// PlaylistMembers returns every id currently in the target playlist.
	PlaylistMembers(ctx context.Context) (map[string]struct{}, error)

	// EnsureInOwnPlaylist resolves the track if needed and inserts it unless already present.
	EnsureInOwnPlaylist(ctx context.Context) (Outcome, error)

	sealed() variant
}

type variant struct {
	service    Service
	linkFormat string
	query      func(title string) string
}

// track holds the state and behavior shared by all variants.
type track struct {
	kind       variant
	id         string
	title      string
	addedBy    string
	playlistID string
	adapter    Adapter
}

func (t *track) ID() string { return t.id }

func (t *track) Title() string { return t.title }

func (t *track) AddedBy() string { return t.addedBy }

func (t *track) Service() Service { return t.kind.service }

func (t *track) PlaylistID() string { return t.playlistID }

func (t *track) Resolved() bool { return t.id != "" }

func (t *track) sealed() variant { return t.kind }

// Link is the public URL for the track, or "" while unresolved.
func (t *track) Link() string {
	if t.id == "" {
		return ""
	}
	return fmt.Sprintf(t.kind.linkFormat, t.id)
}

func (t *track) String() string {
	return fmt.Sprintf("%s[%s] %q", t.kind.service, t.id, t.title)
}

func (t *track) ResolveIfUnknown(ctx context.Context) (bool, error) {
	if t.id != "" {
		return false, nil
	}
	if t.title == "" || t.addedBy == "" {
		return false, fmt.Errorf("%w: unresolved %s track needs a title and submitter", shared.ErrInvalidInput, t.kind.service)
	}

	result, err := t.adapter.Search(ctx, t.kind.query(t.title))
	if err != nil {
		return false, err
	}
	if result == nil || result.ID == "" {
		return false, fmt.Errorf("%w: %q on %s", shared.ErrTrackNotFound, t.title, t.kind.service.Label())
	}

	t.id = result.ID
	if result.Title != "" {
		t.title = result.Title
	}
	return true, nil
}

func (t *track) Refine(ctx context.Context) error {
	if t.id == "" {
		return nil
	}

	result, err := t.adapter.Lookup(ctx, t.id)
	if err != nil {
		return err
	}
	if result != nil && result.Title != "" {
		t.title = result.Title
	}
	return nil
}

func (t *track) PlaylistMembers(ctx context.Context) (map[string]struct{}, error) {
	if t.playlistID == "" {
		return nil, fmt.Errorf("%w: no %s playlist configured", shared.ErrPlaylistNotFound, t.kind.service)
	}
	return t.adapter.Members(ctx, t.playlistID)
}

func (t *track) EnsureInOwnPlaylist(ctx context.Context) (Outcome, error) {
	if _, err := t.ResolveIfUnknown(ctx); err != nil {
		return Added, err
	}

	members, err := t.PlaylistMembers(ctx)
	if err != nil {
		return Added, err
	}
	if _, ok := members[t.id]; ok {
		return AlreadyPresent, nil
	}

	if err := t.adapter.Insert(ctx, t.playlistID, t.id); err != nil {
		return Added, err
	}
	return Added, nil
}
