package tracks

import (
	"context"
	"fmt"

	"github.com/desertthunder/mixtape/internal/services"
	"github.com/desertthunder/mixtape/internal/shared"
)

// Binding attaches an adapter and target playlist to a service.
type Binding struct {
	Service    Service
	Adapter    Adapter
	PlaylistID string
}

// Registry is the set of configured services.
type Registry struct {
	bindings map[Service]Binding
}

// NewRegistry builds a registry. A later binding for the same service replaces an earlier one.
func NewRegistry(bindings ...Binding) *Registry {
	r := &Registry{bindings: make(map[Service]Binding, len(bindings))}
	for _, b := range bindings {
		r.bindings[b.Service] = b
	}
	return r
}

// Services returns the configured services in [Order].
func (r *Registry) Services() []Service {
	out := make([]Service, 0, len(r.bindings))
	for _, s := range Order {
		if _, ok := r.bindings[s]; ok {
			out = append(out, s)
		}
	}
	return out
}

// Others returns every configured service except s, in [Order].
func (r *Registry) Others(s Service) []Service {
	out := make([]Service, 0, len(r.bindings))
	for _, svc := range r.Services() {
		if svc != s {
			out = append(out, svc)
		}
	}
	return out
}

// Has reports whether s is configured.
func (r *Registry) Has(s Service) bool {
	_, ok := r.bindings[s]
	return ok
}

// Binding returns the binding for s.
func (r *Registry) Binding(s Service) (Binding, bool) {
	b, ok := r.bindings[s]
	return b, ok
}

// New creates a track of the variant for s, targeting the configured playlist.
func (r *Registry) New(s Service, id, title, addedBy string) (Track, error) {
	b, ok := r.bindings[s]
	if !ok {
		return nil, fmt.Errorf("%w: %s is not configured", shared.ErrUnrecognizedService, s)
	}

	switch s {
	case YouTube:
		return NewYouTubeTrack(id, title, addedBy, b.PlaylistID, b.Adapter), nil
	case Spotify:
		return NewSpotifyTrack(id, title, addedBy, b.PlaylistID, b.Adapter), nil
	case PlayMusic:
		return NewPlayMusicTrack(id, title, addedBy, b.PlaylistID, b.Adapter), nil
	}
	return nil, fmt.Errorf("%w: %s", shared.ErrUnrecognizedService, s)
}

// Placeholder creates an unresolved track on s carrying the title and submitter of from.
func (r *Registry) Placeholder(s Service, from Track) (Track, error) {
	return r.New(s, "", from.Title(), from.AddedBy())
}

// Contents lists the configured playlist of s.
func (r *Registry) Contents(ctx context.Context, s Service) ([]services.Entry, error) {
	b, ok := r.bindings[s]
	if !ok {
		return nil, fmt.Errorf("%w: %s is not configured", shared.ErrUnrecognizedService, s)
	}
	if b.PlaylistID == "" {
		return nil, fmt.Errorf("%w: no %s playlist configured", shared.ErrPlaylistNotFound, s)
	}
	return b.Adapter.Entries(ctx, b.PlaylistID)
}
