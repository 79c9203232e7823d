package chat

import (
	"testing"

	"github.com/desertthunder/mixtape/internal/tracks"
)

func testRegistry(svcs ...tracks.Service) *tracks.Registry {
	bindings := make([]tracks.Binding, 0, len(svcs))
	for _, s := range svcs {
		bindings = append(bindings, tracks.Binding{Service: s, PlaylistID: string(s) + "-pl"})
	}
	return tracks.NewRegistry(bindings...)
}

func unfurl(attachments ...Attachment) Event {
	return Event{
		Type:    "message",
		Subtype: "message_changed",
		Channel: "C1",
		Message: &Event{Type: "message", User: "U1", TS: "100.1", Attachments: attachments},
	}
}

func TestClassifier(t *testing.T) {
	all := testRegistry(tracks.YouTube, tracks.Spotify, tracks.PlayMusic)
	c := NewClassifier(all, nil)

	t.Run("youtube submission", func(t *testing.T) {
		got := c.Classify(unfurl(Attachment{
			ServiceName: "YouTube",
			Title:       "Song",
			FromURL:     "https://www.youtube.com/watch?v=abc123&list=XYZ",
		}), "alice")

		if got.Kind != Submission {
			t.Fatalf("expected submission, got %v", got.Kind)
		}
		if _, ok := got.Track.(*tracks.YouTubeTrack); !ok {
			t.Errorf("expected *tracks.YouTubeTrack, got %T", got.Track)
		}
		if got.Track.ID() != "abc123" || got.Track.Title() != "Song" || got.Track.AddedBy() != "alice" {
			t.Errorf("unexpected track %v", got.Track)
		}
		if got.Ref != (MessageRef{Channel: "C1", Timestamp: "100.1"}) {
			t.Errorf("unexpected ref %+v", got.Ref)
		}
	})

	t.Run("first recognized attachment wins", func(t *testing.T) {
		got := c.Classify(unfurl(
			Attachment{Title: "no service"},
			Attachment{ServiceName: "Spotify", Title: "Album", FromURL: "https://open.spotify.com/album/x"},
			Attachment{ServiceName: "Spotify", Title: "Track", FromURL: "spotify:track:sp1"},
			Attachment{ServiceName: "YouTube", Title: "Video", FromURL: "https://youtu.be/yt1"},
		), "alice")

		if got.Kind != Submission || got.Track.Service() != tracks.Spotify || got.Track.ID() != "sp1" {
			t.Errorf("expected spotify sp1, got %v %v", got.Kind, got.Track)
		}
	})

	t.Run("plain message with attachment", func(t *testing.T) {
		ev := Event{Type: "message", Channel: "C1", User: "U1", TS: "1.0", Attachments: []Attachment{
			{ServiceName: "Google Play Music", Title: "Song", FromURL: "https://play.google.com/music/m/Tgp1"},
		}}

		got := c.Classify(ev, "bob")
		if got.Kind != Submission || got.Track.Service() != tracks.PlayMusic {
			t.Errorf("expected playmusic submission, got %v", got.Kind)
		}
	})

	t.Run("thread replies are never submissions", func(t *testing.T) {
		attachment := Attachment{ServiceName: "YouTube", Title: "Song", FromURL: "https://youtu.be/abc123"}

		outer := unfurl(attachment)
		outer.Message.ThreadTS = "99.0"
		if got := c.Classify(outer, "alice"); got.Kind != Ignore {
			t.Errorf("expected nested reply to be ignored, got %v", got.Kind)
		}

		direct := Event{Type: "message", Channel: "C1", TS: "1.0", ThreadTS: "0.5", Attachments: []Attachment{attachment}}
		if got := c.Classify(direct, "alice"); got.Kind != Ignore {
			t.Errorf("expected reply to be ignored, got %v", got.Kind)
		}
	})

	t.Run("bot messages ignored", func(t *testing.T) {
		ev := unfurl(Attachment{ServiceName: "YouTube", FromURL: "https://youtu.be/abc123"})
		ev.Message.BotID = "B1"
		if got := c.Classify(ev, "bot"); got.Kind != Ignore {
			t.Errorf("expected ignore, got %v", got.Kind)
		}
	})

	t.Run("own messages ignored", func(t *testing.T) {
		self := NewClassifier(all, nil)
		self.SetSelf("U1")
		if got := self.Classify(unfurl(Attachment{ServiceName: "YouTube", FromURL: "https://youtu.be/a"}), "me"); got.Kind != Ignore {
			t.Errorf("expected ignore, got %v", got.Kind)
		}
	})

	t.Run("unknown service notice", func(t *testing.T) {
		got := c.Classify(unfurl(Attachment{ServiceName: "SoundCloud", FromURL: "https://soundcloud.com/x"}), "alice")
		if got.Kind != Notice || got.Text != "I don't know how to handle SoundCloud links yet." {
			t.Errorf("unexpected %v %q", got.Kind, got.Text)
		}
	})

	t.Run("unconfigured service notice", func(t *testing.T) {
		partial := NewClassifier(testRegistry(tracks.YouTube), nil)
		got := partial.Classify(unfurl(Attachment{ServiceName: "Spotify", FromURL: "spotify:track:x"}), "alice")
		if got.Kind != Notice {
			t.Errorf("expected notice, got %v", got.Kind)
		}
	})

	t.Run("unrecognized link notice", func(t *testing.T) {
		got := c.Classify(unfurl(Attachment{ServiceName: "Spotify", FromURL: "https://open.spotify.com/artist/x"}), "alice")
		if got.Kind != Notice || got.Text != "I couldn't find a track id in https://open.spotify.com/artist/x." {
			t.Errorf("unexpected %v %q", got.Kind, got.Text)
		}
	})

	t.Run("non message events", func(t *testing.T) {
		for _, typ := range []string{"hello", "reaction_added", "user_typing", ""} {
			if got := c.Classify(Event{Type: typ, Text: "--list spotify"}, ""); got.Kind != Ignore {
				t.Errorf("%q: expected ignore, got %v", typ, got.Kind)
			}
		}
	})
}

func TestClassifierCommands(t *testing.T) {
	c := NewClassifier(testRegistry(tracks.YouTube, tracks.Spotify), nil)

	tc := []struct {
		name     string
		text     string
		kind     Kind
		services []tracks.Service
		body     string
	}{
		{name: "list one", text: "hey --list Spotify please", kind: ListPlaylist, services: []tracks.Service{tracks.Spotify}},
		{name: "list both", text: "--list youtube spotify", kind: ListPlaylist, services: []tracks.Service{tracks.YouTube, tracks.Spotify}},
		{name: "list unconfigured", text: "--list playmusic", kind: Ignore},
		{name: "request", text: "--request dark mode", kind: FeatureRequest, body: "dark mode"},
		{name: "request mid sentence", text: "please --request dark mode", kind: Ignore},
		{name: "empty request", text: "--request   ", kind: Ignore},
		{name: "chatter", text: "nice tune", kind: Ignore},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(Event{Type: "message", Channel: "C1", User: "U1", TS: "1.0", Text: tt.text}, "alice")
			if got.Kind != tt.kind {
				t.Fatalf("expected %v, got %v", tt.kind, got.Kind)
			}
			if len(got.Services) != len(tt.services) {
				t.Fatalf("expected services %v, got %v", tt.services, got.Services)
			}
			for i := range tt.services {
				if got.Services[i] != tt.services[i] {
					t.Errorf("expected services %v, got %v", tt.services, got.Services)
				}
			}
			if got.Text != tt.body {
				t.Errorf("expected body %q, got %q", tt.body, got.Text)
			}
		})
	}
}

func TestParseEvent(t *testing.T) {
	raw := []byte(`{"type":"message","subtype":"message_changed","channel":"C1",` +
		`"message":{"user":"U1","ts":"1.5","thread_ts":"1.0","attachments":[{"service_name":"YouTube","from_url":"https://youtu.be/x"}]}}`)

	ev, err := ParseEvent(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ev.IsReply() {
		t.Error("expected nested thread_ts to mark a reply")
	}
	if ev.Ref() != (MessageRef{Channel: "C1", Timestamp: "1.5"}) {
		t.Errorf("unexpected ref %+v", ev.Ref())
	}
	if string(ev.Raw) != string(raw) {
		t.Error("expected raw frame to be kept")
	}
	if ev.Body().Attachments[0].URL() != "https://youtu.be/x" {
		t.Errorf("unexpected attachment %+v", ev.Body().Attachments)
	}

	if _, err := ParseEvent([]byte("{")); err == nil {
		t.Error("expected error for truncated frame")
	}
}
