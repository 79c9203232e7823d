package testing

import (
	"context"
	"fmt"
	"iter"
	"sync"

	"github.com/desertthunder/mixtape/internal/chat"
	"github.com/desertthunder/mixtape/internal/services"
	"github.com/desertthunder/mixtape/internal/shared"
)

// FakeAdapter is an in-memory tracks.Adapter: a searchable catalog and one playlist.
type FakeAdapter struct {
	mu       sync.Mutex
	catalog  map[string]services.Result
	playlist []services.Entry

	SearchErr error
	ListErr   error
	InsertErr error

	Queries  []string
	Inserted []string
	Lists    int
}

func NewFakeAdapter() *FakeAdapter {
	return &FakeAdapter{catalog: map[string]services.Result{}}
}

// Catalog makes query resolve to id with the given canonical title.
func (f *FakeAdapter) Catalog(query, id, title string) *FakeAdapter {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.catalog[query] = services.Result{ID: id, Title: title}
	return f
}

// Seed puts entries in the playlist.
func (f *FakeAdapter) Seed(entries ...services.Entry) *FakeAdapter {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playlist = append(f.playlist, entries...)
	return f
}

func (f *FakeAdapter) Search(ctx context.Context, query string) (*services.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Queries = append(f.Queries, query)
	if f.SearchErr != nil {
		return nil, f.SearchErr
	}
	if r, ok := f.catalog[query]; ok {
		return &r, nil
	}
	return nil, nil
}

func (f *FakeAdapter) Lookup(ctx context.Context, id string) (*services.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.catalog {
		if r.ID == id {
			return &r, nil
		}
	}
	for _, e := range f.playlist {
		if e.ID == id {
			return &services.Result{ID: e.ID, Title: e.Title}, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", shared.ErrTrackNotFound, id)
}

func (f *FakeAdapter) Entries(ctx context.Context, playlistID string) ([]services.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Lists++
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	return append([]services.Entry(nil), f.playlist...), nil
}

func (f *FakeAdapter) Members(ctx context.Context, playlistID string) (map[string]struct{}, error) {
	entries, err := f.Entries(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		out[e.ID] = struct{}{}
	}
	return out, nil
}

func (f *FakeAdapter) Insert(ctx context.Context, playlistID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.InsertErr != nil {
		return f.InsertErr
	}
	title := id
	for _, r := range f.catalog {
		if r.ID == id {
			title = r.Title
		}
	}
	f.Inserted = append(f.Inserted, id)
	f.playlist = append(f.playlist, services.Entry{ID: id, Title: title})
	return nil
}

// FakeClient is a [services.Client] over a [FakeAdapter]'s catalog and playlist.
type FakeClient struct {
	*FakeAdapter
	Tag     string
	Reauths int
}

func NewFakeClient(tag string) *FakeClient {
	return &FakeClient{FakeAdapter: NewFakeAdapter(), Tag: tag}
}

func (f *FakeClient) Name() string { return f.Tag }

func (f *FakeClient) Items(ctx context.Context, playlistID string) iter.Seq2[services.Entry, error] {
	return func(yield func(services.Entry, error) bool) {
		entries, err := f.Entries(ctx, playlistID)
		if err != nil {
			yield(services.Entry{}, err)
			return
		}
		for _, e := range entries {
			if !yield(e, nil) {
				return
			}
		}
	}
}

func (f *FakeClient) Reauthenticate(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Reauths++
	return nil
}

// Ack is one side effect sent back to the chat.
type Ack struct {
	Kind    string // react, reply, post or upload
	Channel string
	TS      string
	Text    string
}

// FakeAcknowledger records reactions, replies and posts.
type FakeAcknowledger struct {
	mu   sync.Mutex
	acks []Ack
	Err  error
}

func (f *FakeAcknowledger) record(a Ack) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acks = append(f.acks, a)
	return f.Err
}

func (f *FakeAcknowledger) React(ctx context.Context, ref chat.MessageRef, name string) error {
	return f.record(Ack{Kind: "react", Channel: ref.Channel, TS: ref.Timestamp, Text: name})
}

func (f *FakeAcknowledger) Reply(ctx context.Context, ref chat.MessageRef, text string) error {
	return f.record(Ack{Kind: "reply", Channel: ref.Channel, TS: ref.Timestamp, Text: text})
}

func (f *FakeAcknowledger) Post(ctx context.Context, channel, text string) error {
	return f.record(Ack{Kind: "post", Channel: channel, Text: text})
}

// Acks returns every recorded side effect in order.
func (f *FakeAcknowledger) Acks() []Ack {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Ack(nil), f.acks...)
}

// Texts returns the text of every recorded side effect of kind.
func (f *FakeAcknowledger) Texts(kind string) []string {
	var out []string
	for _, a := range f.Acks() {
		if a.Kind == kind {
			out = append(out, a.Text)
		}
	}
	return out
}

// Connection scripts one [FakeTransport.Connect] call and the reads that follow it.
type Connection struct {
	Err     error
	Batches [][]chat.Event
}

// FakeTransport is a scripted [chat.Transport].
//
// Each Connect consumes the next [Connection]. Reads return its batches in order and then report a drop.
// Once the script is exhausted every Connect fails.
type FakeTransport struct {
	FakeAcknowledger

	Self      string
	Script    []Connection
	Usernames map[string]string

	mu       sync.Mutex
	connects int
	pending  [][]chat.Event
	closed   int
}

func (f *FakeTransport) Connect(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := f.connects
	f.connects++
	if n >= len(f.Script) {
		return "", fmt.Errorf("%w: script exhausted", shared.ErrTransportDropped)
	}
	if err := f.Script[n].Err; err != nil {
		return "", err
	}
	f.pending = f.Script[n].Batches
	return f.Self, nil
}

func (f *FakeTransport) Read(ctx context.Context) ([]chat.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.pending) == 0 {
		return nil, fmt.Errorf("%w: end of script", shared.ErrTransportDropped)
	}
	batch := f.pending[0]
	f.pending = f.pending[1:]
	return batch, nil
}

func (f *FakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

func (f *FakeTransport) Username(ctx context.Context, userID string) (string, error) {
	if name, ok := f.Usernames[userID]; ok {
		return name, nil
	}
	return "", fmt.Errorf("%w: unknown user %s", shared.ErrAPIRequest, userID)
}

func (f *FakeTransport) Upload(ctx context.Context, channel, filename, content string) error {
	return f.record(Ack{Kind: "upload", Channel: channel, TS: filename, Text: content})
}

// Connects returns how many times Connect was called.
func (f *FakeTransport) Connects() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connects
}
