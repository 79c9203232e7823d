package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/chat"
	"github.com/desertthunder/mixtape/internal/metrics"
	"github.com/desertthunder/mixtape/internal/repositories"
	"github.com/desertthunder/mixtape/internal/services"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/desertthunder/mixtape/internal/tracks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	metrics    *metrics.Metrics

	// clients and transport replace what config would build, when set.
	clients   map[tracks.Service]services.Client
	transport chat.Transport
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Metrics    *metrics.Metrics
	Clients    map[tracks.Service]services.Client
	Transport  chat.Transport
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}

	return &Runner{
		config:     opts.Config,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		metrics:    opts.Metrics,
		clients:    opts.Clients,
		transport:  opts.Transport,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, runCommand, backfillCommand, authCommand, playlistCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// load reads the file named by --config unless a config was injected, and applies its log level.
func (r *Runner) load(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if r.config == nil {
		config, err := shared.LoadConfig(cmd.String("config"))
		if err != nil {
			return ctx, fmt.Errorf("%w: %w (run 'mixtape setup' to create one)", shared.ErrMissingConfig, err)
		}
		r.config = config
	}

	if err := shared.ApplyLogLevel(r.logger, r.config.Logging.Level); err != nil {
		r.logger.Warn("ignoring log level", "error", err)
	}
	return ctx, nil
}

// openTokens opens the database, runs pending migrations and returns the token repository.
func (r *Runner) openTokens() (*repositories.TokenRepository, *sql.DB, error) {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return repositories.NewTokenRepository(db), db, nil
}

// client builds the raw client for svc from config.
func (r *Runner) client(svc tracks.Service, store services.TokenStore) (services.Client, error) {
	if c, ok := r.clients[svc]; ok {
		return c, nil
	}

	switch svc {
	case tracks.Spotify:
		return services.NewSpotifyService(r.config.Spotify, store, r.logger)
	case tracks.YouTube:
		return services.NewYouTubeService(r.config.YouTube, store, r.logger)
	case tracks.PlayMusic:
		return services.NewPlayMusicService(r.config.PlayMusic, r.httpClient, r.logger), nil
	default:
		return nil, fmt.Errorf("%w: %q", shared.ErrUnrecognizedService, svc)
	}
}

func (r *Runner) playlistID(svc tracks.Service) string {
	switch svc {
	case tracks.Spotify:
		return r.config.Spotify.PlaylistID
	case tracks.YouTube:
		return r.config.YouTube.PlaylistID
	case tracks.PlayMusic:
		return r.config.PlayMusic.PlaylistID
	}
	return ""
}

// registry binds every enabled service to a retrying adapter and its configured playlist.
func (r *Runner) registry(store services.TokenStore) (*tracks.Registry, error) {
	adapterOpts := services.AdapterOpts{
		MaxAttempts:    r.config.Retry.MaxAttempts,
		ReauthInterval: r.config.Retry.ReauthInterval,
		Logger:         r.logger,
		OnReauth:       r.metrics.Reauth,
	}

	var bindings []tracks.Binding
	for _, name := range r.config.Services.Enabled {
		svc, err := tracks.ParseService(name)
		if err != nil {
			return nil, err
		}

		client, err := r.client(svc, store)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s client: %w", svc, err)
		}

		playlist := r.playlistID(svc)
		if playlist == "" {
			r.logger.Warn("no playlist configured", "service", svc)
		}

		bindings = append(bindings, tracks.Binding{
			Service:    svc,
			Adapter:    services.NewAdapter(client, adapterOpts),
			PlaylistID: playlist,
		})
	}

	if len(bindings) == 0 {
		return nil, fmt.Errorf("%w: services.enabled is empty", shared.ErrInvalidConfig)
	}
	return tracks.NewRegistry(bindings...), nil
}

// parseRoute parses a "from:to" service pair.
func parseRoute(s string) (from, to tracks.Service, err error) {
	left, right, ok := strings.Cut(s, ":")
	if !ok {
		return "", "", fmt.Errorf("%w: expected from:to, got %q", shared.ErrInvalidArgument, s)
	}
	if from, err = tracks.ParseService(strings.TrimSpace(left)); err != nil {
		return "", "", err
	}
	if to, err = tracks.ParseService(strings.TrimSpace(right)); err != nil {
		return "", "", err
	}
	return from, to, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
