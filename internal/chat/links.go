package chat

import (
	"fmt"
	"strings"

	"github.com/desertthunder/mixtape/internal/shared"
)

// YouTubeID extracts the video id from a watch URL or a youtu.be shortlink.
func YouTubeID(url string) (string, error) {
	var rest string
	switch {
	case strings.Contains(url, ".be/"):
		_, rest, _ = strings.Cut(url, ".be/")
	case strings.Contains(url, "?v="):
		_, rest, _ = strings.Cut(url, "?v=")
	case strings.Contains(url, "&v="):
		_, rest, _ = strings.Cut(url, "&v=")
	}

	id := cutAny(rest, "&?#/")
	if id == "" {
		return "", fmt.Errorf("%w: %s", shared.ErrUnrecognizedLinkFormat, url)
	}
	return id, nil
}

// SpotifyID extracts the track id from an open.spotify.com URL or a spotify:track: URI.
func SpotifyID(url string) (string, error) {
	if !strings.Contains(url, "track") {
		return "", fmt.Errorf("%w: %s is not a track", shared.ErrUnrecognizedLinkFormat, url)
	}

	url, _, _ = strings.Cut(url, "?")

	var id string
	if strings.Count(url, ":") > 1 {
		id = url[strings.LastIndex(url, ":")+1:]
	} else if _, rest, ok := strings.Cut(url, "track/"); ok {
		id = cutAny(rest, "/#")
	}

	if id == "" {
		return "", fmt.Errorf("%w: %s", shared.ErrUnrecognizedLinkFormat, url)
	}
	return id, nil
}

// PlayMusicID extracts the track id from a play.google.com/music/m/ URL.
func PlayMusicID(url string) (string, error) {
	_, rest, ok := strings.Cut(url, "/m/")
	id := cutAny(rest, "?&#/")
	if !ok || id == "" {
		return "", fmt.Errorf("%w: %s", shared.ErrUnrecognizedLinkFormat, url)
	}
	return id, nil
}

func cutAny(s, seps string) string {
	if i := strings.IndexAny(s, seps); i >= 0 {
		return s[:i]
	}
	return s
}
