package tracks

import (
	"regexp"
	"strings"
)

var (
	youtubeVariant   = variant{service: YouTube, linkFormat: "https://www.youtube.com/watch?v=%s", query: strings.TrimSpace}
	spotifyVariant   = variant{service: Spotify, linkFormat: "https://open.spotify.com/track/%s", query: NormalizeSearch}
	playMusicVariant = variant{service: PlayMusic, linkFormat: "https://play.google.com/music/m/%s", query: strings.TrimSpace}
)

// YouTubeTrack is a YouTube video.
type YouTubeTrack struct{ track }

// SpotifyTrack is a Spotify track. Its searches use [NormalizeSearch].
type SpotifyTrack struct{ track }

// PlayMusicTrack is a Google Play Music track.
type PlayMusicTrack struct{ track }

// NewYouTubeTrack creates a YouTube track; id may be empty for a placeholder.
func NewYouTubeTrack(id, title, addedBy, playlistID string, adapter Adapter) *YouTubeTrack {
	return &YouTubeTrack{track{kind: youtubeVariant, id: id, title: title, addedBy: addedBy, playlistID: playlistID, adapter: adapter}}
}

// NewSpotifyTrack creates a Spotify track; id may be empty for a placeholder.
func NewSpotifyTrack(id, title, addedBy, playlistID string, adapter Adapter) *SpotifyTrack {
	return &SpotifyTrack{track{kind: spotifyVariant, id: id, title: title, addedBy: addedBy, playlistID: playlistID, adapter: adapter}}
}

// NewPlayMusicTrack creates a Play Music track; id may be empty for a placeholder.
func NewPlayMusicTrack(id, title, addedBy, playlistID string, adapter Adapter) *PlayMusicTrack {
	return &PlayMusicTrack{track{kind: playMusicVariant, id: id, title: title, addedBy: addedBy, playlistID: playlistID, adapter: adapter}}
}

// LinkFor renders the public URL for id on service, or "" for an unknown service or empty id.
func LinkFor(service Service, id string) string {
	switch service {
	case YouTube:
		return (&track{kind: youtubeVariant, id: id}).Link()
	case Spotify:
		return (&track{kind: spotifyVariant, id: id}).Link()
	case PlayMusic:
		return (&track{kind: playMusicVariant, id: id}).Link()
	}
	return ""
}

var (
	bracketGroup = regexp.MustCompile(`\s*\[[^\]]*\]\s*`)
	parenGroup   = regexp.MustCompile(`\s*\((?:[^()]|\([^()]*\))*\)\s*`)
	noiseWord    = regexp.MustCompile(`official|lyric|new`)
	spaces       = regexp.MustCompile(`\s+`)
)

// NormalizeSearch cleans a title before it is searched on Spotify.
//
// The title is lower-cased, every [...] group is dropped, and (...) groups mentioning "official",
// "lyric" or "new" are dropped, including one level of nested parentheses. Other parentheticals, such
// as featured artists, are kept.
func NormalizeSearch(title string) string {
	s := strings.ToLower(title)
	s = bracketGroup.ReplaceAllString(s, " ")
	s = parenGroup.ReplaceAllStringFunc(s, func(group string) string {
		if noiseWord.MatchString(group) {
			return " "
		}
		return group
	})
	return strings.TrimSpace(spaces.ReplaceAllString(s, " "))
}
