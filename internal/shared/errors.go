package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrSessionExpired   = fmt.Errorf("session expired")
	ErrRetriesExceeded  = fmt.Errorf("retry attempts exceeded")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// Database errors
	ErrNoMigrations = fmt.Errorf("no migrations to roll back")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrPlaylistNotFound   = fmt.Errorf("playlist not found")
	ErrTrackNotFound      = fmt.Errorf("track not found")

	// Chat errors
	ErrUnrecognizedService    = fmt.Errorf("unrecognized service")
	ErrUnrecognizedLinkFormat = fmt.Errorf("unrecognized link format")
	ErrTransportDropped       = fmt.Errorf("chat transport dropped")
	ErrReconnectsExhausted    = fmt.Errorf("reconnect attempts exhausted")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
