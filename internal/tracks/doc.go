// Package tracks models a song submission on one music service.
//
// A [Track] is one of three variants ([YouTubeTrack], [SpotifyTrack], [PlayMusicTrack]) sharing a single
// operation set. A track either arrives with a service id (taken from a chat link) or starts as a
// placeholder with no id, created to cross-search another service by title. The link is always derived
// from the service and id, never stored.
//
// Tracks hold a non-owning [Adapter] for their service; adapters live for the whole process and are
// shared by every track of that service. The [Registry] knows which services are configured, their
// adapters and target playlists, and iterates them in a fixed order: YouTube, Spotify, PlayMusic.
package tracks
