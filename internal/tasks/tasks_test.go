package tasks

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/desertthunder/mixtape/internal/chat"
	"github.com/desertthunder/mixtape/internal/metrics"
	"github.com/desertthunder/mixtape/internal/services"
	"github.com/desertthunder/mixtape/internal/shared"
	tu "github.com/desertthunder/mixtape/internal/testing"
	"github.com/desertthunder/mixtape/internal/tracks"
)

type fixture struct {
	yt, sp, gp *tu.FakeAdapter
	registry   *tracks.Registry
	ack        *tu.FakeAcknowledger
	engine     *Engine
	ref        chat.MessageRef
}

func newFixture() *fixture {
	f := &fixture{
		yt:  tu.NewFakeAdapter(),
		sp:  tu.NewFakeAdapter(),
		gp:  tu.NewFakeAdapter(),
		ack: &tu.FakeAcknowledger{},
		ref: chat.MessageRef{Channel: "C1", Timestamp: "100.1"},
	}
	f.registry = tracks.NewRegistry(
		tracks.Binding{Service: tracks.YouTube, Adapter: f.yt, PlaylistID: "yt-pl"},
		tracks.Binding{Service: tracks.Spotify, Adapter: f.sp, PlaylistID: "sp-pl"},
		tracks.Binding{Service: tracks.PlayMusic, Adapter: f.gp, PlaylistID: "gp-pl"},
	)
	f.engine = NewEngine(f.registry, f.ack, EngineOpts{Metrics: metrics.New()})
	return f
}

func (f *fixture) origin(t *testing.T, svc tracks.Service, id, title string) tracks.Track {
	t.Helper()
	track, err := f.registry.New(svc, id, title, "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return track
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestTreat(t *testing.T) {
	t.Run("mirrors into every service", func(t *testing.T) {
		f := newFixture()
		f.yt.Catalog("unused", "yt1", "Artist - Song (Official Video)")
		f.sp.Catalog("artist - song", "sp1", "Artist - Song")
		f.gp.Catalog("Artist - Song (Official Video)", "gp1", "Song")

		report := f.engine.Treat(context.Background(), f.origin(t, tracks.YouTube, "yt1", "attachment title"), f.ref)

		if report.Origin.Err != nil || report.Origin.Outcome != tracks.Added {
			t.Fatalf("unexpected origin step %+v", report.Origin)
		}
		if len(report.Cross) != 2 || report.Cross[0].Service != tracks.Spotify || report.Cross[1].Service != tracks.PlayMusic {
			t.Fatalf("expected spotify then playmusic, got %+v", report.Cross)
		}

		if !equal(f.yt.Inserted, []string{"yt1"}) || !equal(f.sp.Inserted, []string{"sp1"}) || !equal(f.gp.Inserted, []string{"gp1"}) {
			t.Errorf("unexpected inserts yt=%v sp=%v gp=%v", f.yt.Inserted, f.sp.Inserted, f.gp.Inserted)
		}

		wantReactions := []string{"youtube_added", "spotify_added", "playmusic_added"}
		if got := f.ack.Texts("react"); !equal(got, wantReactions) {
			t.Errorf("expected reactions %v, got %v", wantReactions, got)
		}

		wantReplies := []string{"https://open.spotify.com/track/sp1", "https://play.google.com/music/m/gp1"}
		if got := f.ack.Texts("reply"); !equal(got, wantReplies) {
			t.Errorf("expected replies %v, got %v", wantReplies, got)
		}
		for _, a := range f.ack.Acks() {
			if a.Kind == "reply" && (a.Channel != "C1" || a.TS != "100.1") {
				t.Errorf("reply not threaded under the submission: %+v", a)
			}
		}
	})

	t.Run("exactly two cross searches, independent failures", func(t *testing.T) {
		f := newFixture()
		f.gp.Catalog("Song", "gp1", "Song")

		report := f.engine.Treat(context.Background(), f.origin(t, tracks.YouTube, "yt1", "Song"), f.ref)

		if len(f.sp.Queries) != 1 || len(f.gp.Queries) != 1 || len(f.yt.Queries) != 0 {
			t.Errorf("expected one search each on spotify and playmusic, got yt=%v sp=%v gp=%v", f.yt.Queries, f.sp.Queries, f.gp.Queries)
		}
		if !errors.Is(report.Cross[0].Err, shared.ErrTrackNotFound) {
			t.Errorf("expected spotify miss, got %v", report.Cross[0].Err)
		}
		if report.Cross[1].Err != nil || !equal(f.gp.Inserted, []string{"gp1"}) {
			t.Errorf("expected playmusic to succeed after spotify miss, got %+v", report.Cross[1])
		}

		if got := f.ack.Texts("post"); !equal(got, []string{"Cross searching on Spotify failed to find Song"}) {
			t.Errorf("unexpected posts %v", got)
		}
		if got := f.ack.Texts("react"); !equal(got, []string{"youtube_added", "spotify_not_found", "playmusic_added"}) {
			t.Errorf("unexpected reactions %v", got)
		}
		if len(f.sp.Inserted) != 0 {
			t.Errorf("expected no spotify insert, got %v", f.sp.Inserted)
		}
	})

	t.Run("already present", func(t *testing.T) {
		f := newFixture()
		f.sp.Seed(services.Entry{ID: "sp1", Title: "Song"})
		f.yt.Catalog("Song", "yt1", "Song").Seed(services.Entry{ID: "yt1"})
		f.gp.Catalog("Song", "gp1", "Song")

		f.engine.Treat(context.Background(), f.origin(t, tracks.Spotify, "sp1", "song"), f.ref)

		if len(f.sp.Inserted) != 0 || len(f.yt.Inserted) != 0 {
			t.Errorf("expected no duplicate inserts, got sp=%v yt=%v", f.sp.Inserted, f.yt.Inserted)
		}
		if got := f.ack.Texts("react"); !equal(got, []string{"spotify_exists", "youtube_exists", "playmusic_added"}) {
			t.Errorf("unexpected reactions %v", got)
		}
	})

	t.Run("treating twice is idempotent", func(t *testing.T) {
		f := newFixture()
		f.sp.Catalog("song", "sp1", "Song")
		f.gp.Catalog("Song", "gp1", "Song")

		f.engine.Treat(context.Background(), f.origin(t, tracks.YouTube, "yt1", "Song"), f.ref)
		f.engine.Treat(context.Background(), f.origin(t, tracks.YouTube, "yt1", "Song"), f.ref)

		if len(f.yt.Inserted) != 1 || len(f.sp.Inserted) != 1 || len(f.gp.Inserted) != 1 {
			t.Errorf("expected one insert per service, got yt=%v sp=%v gp=%v", f.yt.Inserted, f.sp.Inserted, f.gp.Inserted)
		}
	})

	t.Run("service errors are acknowledged and do not abort", func(t *testing.T) {
		f := newFixture()
		f.yt.ListErr = fmt.Errorf("%w: 500", shared.ErrAPIRequest)
		f.sp.SearchErr = fmt.Errorf("%w: sp", shared.ErrRetriesExceeded)
		f.gp.Catalog("Song", "gp1", "Song")

		report := f.engine.Treat(context.Background(), f.origin(t, tracks.YouTube, "yt1", "Song"), f.ref)

		if !errors.Is(report.Origin.Err, shared.ErrAPIRequest) {
			t.Errorf("expected origin error, got %v", report.Origin.Err)
		}
		if !errors.Is(report.Cross[0].Err, shared.ErrRetriesExceeded) {
			t.Errorf("expected spotify error, got %v", report.Cross[0].Err)
		}
		if report.Cross[1].Err != nil {
			t.Errorf("expected playmusic success, got %v", report.Cross[1].Err)
		}

		if got := f.ack.Texts("react"); !equal(got, []string{"youtube_error", "spotify_error", "playmusic_added"}) {
			t.Errorf("unexpected reactions %v", got)
		}
		wantReplies := []string{
			"Adding Song to YouTube failed: the service returned an error",
			"Adding Song to Spotify failed: re-authentication failed",
			"https://play.google.com/music/m/gp1",
		}
		if got := f.ack.Texts("reply"); !equal(got, wantReplies) {
			t.Errorf("expected replies %v, got %v", wantReplies, got)
		}
		if posts := f.ack.Texts("post"); len(posts) != 0 {
			t.Errorf("expected no not-found posts for errors, got %v", posts)
		}
	})

	t.Run("insert failures on both sides reach the chat", func(t *testing.T) {
		f := newFixture()
		f.yt.InsertErr = fmt.Errorf("%w: quota", shared.ErrAPIRequest)
		f.sp.SearchErr = fmt.Errorf("%w: 502", shared.ErrAPIRequest)
		f.gp.ListErr = fmt.Errorf("%w: gp-pl", shared.ErrPlaylistNotFound)

		f.engine.Treat(context.Background(), f.origin(t, tracks.YouTube, "yt1", "Song"), f.ref)

		if got := f.ack.Texts("react"); !equal(got, []string{"youtube_error", "spotify_error", "playmusic_error"}) {
			t.Errorf("unexpected reactions %v", got)
		}
		if got := f.ack.Texts("reply"); len(got) != 3 || got[2] != "Adding Song to PlayMusic failed: the playlist was not found" {
			t.Errorf("expected a failure reply per service, got %v", got)
		}
	})

	t.Run("acknowledgement failures are tolerated", func(t *testing.T) {
		f := newFixture()
		f.ack.Err = errors.New("already_reacted")
		f.sp.Catalog("song", "sp1", "Song")

		report := f.engine.Treat(context.Background(), f.origin(t, tracks.YouTube, "yt1", "Song"), f.ref)
		if report.Cross[0].Err != nil || len(f.sp.Inserted) != 1 {
			t.Errorf("expected spotify insert despite ack failures, got %+v", report.Cross[0])
		}
	})

	t.Run("only configured services", func(t *testing.T) {
		yt, sp := tu.NewFakeAdapter(), tu.NewFakeAdapter().Catalog("song", "sp1", "Song")
		ack := &tu.FakeAcknowledger{}
		registry := tracks.NewRegistry(
			tracks.Binding{Service: tracks.YouTube, Adapter: yt, PlaylistID: "yt-pl"},
			tracks.Binding{Service: tracks.Spotify, Adapter: sp, PlaylistID: "sp-pl"},
		)
		origin, _ := registry.New(tracks.YouTube, "yt1", "Song", "alice")

		report := NewEngine(registry, ack, EngineOpts{}).Treat(context.Background(), origin, chat.MessageRef{Channel: "C1", Timestamp: "1"})
		if len(report.Cross) != 1 || report.Cross[0].Service != tracks.Spotify {
			t.Errorf("expected a single spotify cross search, got %+v", report.Cross)
		}
	})
}

func TestBackfill(t *testing.T) {
	t.Run("mirrors every entry", func(t *testing.T) {
		f := newFixture()
		f.yt.Seed(
			services.Entry{ID: "yt1", Title: "One [Official Video]"},
			services.Entry{ID: "yt2", Title: "Two"},
			services.Entry{ID: "yt3", Title: "Three"},
		)
		f.sp.Catalog("one", "sp1", "One").Catalog("two", "sp2", "Two").Seed(services.Entry{ID: "sp2"})

		progress := make(chan ProgressUpdate, 16)
		result, err := f.engine.Backfill(context.Background(), progress, tracks.YouTube, tracks.Spotify)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if result.Total != 3 || result.Added != 1 || result.Existing != 1 || result.NotFound != 1 {
			t.Errorf("unexpected result %+v", result)
		}
		if !equal(result.Missing, []string{"Three"}) {
			t.Errorf("unexpected missing %v", result.Missing)
		}
		if !equal(f.sp.Inserted, []string{"sp1"}) {
			t.Errorf("unexpected inserts %v", f.sp.Inserted)
		}
		if len(f.ack.Acks()) != 0 {
			t.Errorf("backfill should not talk to the chat, got %v", f.ack.Acks())
		}

		close(progress)
		var last ProgressUpdate
		count := 0
		for u := range progress {
			last = u
			count++
		}
		if count != 6 || last.Phase != Finished {
			t.Errorf("expected 6 updates ending in finished, got %d ending in %v", count, last.Phase)
		}
	})

	t.Run("validates services", func(t *testing.T) {
		f := newFixture()
		if _, err := f.engine.Backfill(context.Background(), nil, tracks.Spotify, tracks.Spotify); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}

		partial := NewEngine(tracks.NewRegistry(tracks.Binding{Service: tracks.YouTube, Adapter: tu.NewFakeAdapter(), PlaylistID: "p"}), f.ack, EngineOpts{})
		if _, err := partial.Backfill(context.Background(), nil, tracks.YouTube, tracks.Spotify); !errors.Is(err, shared.ErrUnrecognizedService) {
			t.Errorf("expected ErrUnrecognizedService, got %v", err)
		}
	})

	t.Run("source listing failure", func(t *testing.T) {
		f := newFixture()
		f.yt.ListErr = fmt.Errorf("%w: boom", shared.ErrAPIRequest)
		if _, err := f.engine.Backfill(context.Background(), nil, tracks.YouTube, tracks.Spotify); !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		f := newFixture()
		f.yt.Seed(services.Entry{ID: "yt1", Title: "One"})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		result, err := f.engine.Backfill(ctx, nil, tracks.YouTube, tracks.Spotify)
		if !errors.Is(err, shared.ErrTimeout) || result == nil || result.Added != 0 {
			t.Errorf("expected interrupted backfill, got %+v, %v", result, err)
		}
	})

	t.Run("phase names", func(t *testing.T) {
		for phase, want := range map[Phase]string{FetchSource: "fetch_source", CrossSearch: "cross_search", Finished: "finished"} {
			if phase.String() != want {
				t.Errorf("expected %s, got %s", want, phase.String())
			}
		}
	})
}
