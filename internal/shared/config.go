package shared

import (
	_ "embed"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Slack     SlackConfig     `toml:"slack"`
	Services  ServicesConfig  `toml:"services"`
	Spotify   SpotifyConfig   `toml:"spotify"`
	YouTube   YouTubeConfig   `toml:"youtube"`
	PlayMusic PlayMusicConfig `toml:"playmusic"`
	Retry     RetryConfig     `toml:"retry"`
	Session   SessionConfig   `toml:"session"`
	Backfill  BackfillConfig  `toml:"backfill"`
	Logging   LoggingConfig   `toml:"logging"`
	Changelog ChangelogConfig `toml:"changelog"`
	Database  DatabaseConfig  `toml:"database"`
	Server    ServerConfig    `toml:"server"`
}

// SlackConfig contains the bot token and optional API override.
type SlackConfig struct {
	Token          string `toml:"token"`
	APIURL         string `toml:"api_url"`
	DefaultChannel string `toml:"default_channel"`
}

// ServicesConfig lists the music services tracks are mirrored into.
type ServicesConfig struct {
	Enabled []string `toml:"enabled"`
}

// IsEnabled reports whether the named service appears in the enabled list.
func (s ServicesConfig) IsEnabled(name string) bool {
	return slices.Contains(s.Enabled, name)
}

// SpotifyConfig contains Spotify API credentials and the mirrored playlist.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
	PlaylistID   string `toml:"playlist_id"`
}

// YouTubeConfig points at the Google OAuth client secrets file and the mirrored playlist.
type YouTubeConfig struct {
	ClientSecretsPath string `toml:"client_secrets_path"`
	RedirectURI       string `toml:"redirect_uri"`
	PlaylistID        string `toml:"playlist_id"`
}

// PlayMusicConfig contains the proxy location and login for the Play Music service.
type PlayMusicConfig struct {
	ProxyURL   string `toml:"proxy_url"`
	Username   string `toml:"username"`
	Password   string `toml:"password"`
	PlaylistID string `toml:"playlist_id"`
}

// RetryConfig bounds re-authentication retries on expired sessions.
//
// MaxAttempts of zero retries until the operation succeeds.
type RetryConfig struct {
	MaxAttempts      int           `toml:"max_attempts"`
	ReauthInterval   time.Duration `toml:"reauth_interval"`
	ReconcileTimeout time.Duration `toml:"reconcile_timeout"`
}

// SessionConfig controls chat reconnect behavior.
type SessionConfig struct {
	MaxReconnects  int           `toml:"max_reconnects"`
	ReconnectDelay time.Duration `toml:"reconnect_delay"`
}

// BackfillConfig paces catch-up runs.
type BackfillConfig struct {
	Rate float64 `toml:"rate"`
}

// LoggingConfig contains log level and on-disk log locations.
type LoggingConfig struct {
	Level           string `toml:"level"`
	EventDir        string `toml:"event_dir"`
	FeatureRequests string `toml:"feature_requests"`
}

// ChangelogConfig points at the directory of changelog files.
type ChangelogConfig struct {
	Dir string `toml:"dir"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Enabled bool   `toml:"enabled"`
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the values of the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	for _, name := range c.Services.Enabled {
		switch name {
		case "youtube", "spotify", "playmusic":
		default:
			return fmt.Errorf("%w: unknown service %q", ErrInvalidConfig, name)
		}
	}
	if c.Retry.MaxAttempts < 0 {
		return fmt.Errorf("%w: retry.max_attempts must not be negative", ErrInvalidConfig)
	}
	if c.Session.MaxReconnects < 0 {
		return fmt.Errorf("%w: session.max_reconnects must not be negative", ErrInvalidConfig)
	}
	return nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
