package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/mixtape/internal/bot"
	"github.com/desertthunder/mixtape/internal/changelog"
	"github.com/desertthunder/mixtape/internal/chat"
	"github.com/desertthunder/mixtape/internal/eventlog"
	"github.com/desertthunder/mixtape/internal/server"
	"github.com/desertthunder/mixtape/internal/tasks"
	"github.com/desertthunder/mixtape/internal/tracks"
	"github.com/urfave/cli/v3"
)

func (r *Runner) engine(registry *tracks.Registry, ack tasks.Acknowledger) *tasks.Engine {
	return tasks.NewEngine(registry, ack, tasks.EngineOpts{
		Logger:       r.logger,
		Metrics:      r.metrics,
		Timeout:      r.config.Retry.ReconcileTimeout,
		BackfillRate: r.config.Backfill.Rate,
	})
}

func (r *Runner) chatTransport() (chat.Transport, error) {
	if r.transport != nil {
		return r.transport, nil
	}
	return chat.NewSlackTransport(r.config.Slack, r.httpClient, r.logger)
}

// Run connects the bot to Slack and processes messages until interrupted or the reconnect cap is hit.
//
// With --backfill from:to the catch-up runs to completion before the session starts.
func (r *Runner) Run(ctx context.Context, cmd *cli.Command) error {
	tokens, db, err := r.openTokens()
	if err != nil {
		return err
	}
	defer db.Close()

	registry, err := r.registry(tokens)
	if err != nil {
		return err
	}

	transport, err := r.chatTransport()
	if err != nil {
		return fmt.Errorf("failed to create chat transport: %w", err)
	}
	engine := r.engine(registry, transport)

	if route := cmd.String("backfill"); route != "" {
		from, to, err := parseRoute(route)
		if err != nil {
			return err
		}
		if _, err := r.backfill(ctx, engine, from, to); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	health := &server.Health{}
	if r.config.Server.Enabled {
		srv := server.New(r.config.Server.Addr(), server.NewBotRouter(health, r.metrics.Handler(), r.logger), r.logger)
		go func() {
			if err := srv.Run(ctx); err != nil {
				r.logger.Error("http server stopped", "error", err)
			}
		}()
	}

	opts := bot.Options{
		Transport:      transport,
		Classifier:     chat.NewClassifier(registry, r.logger),
		Engine:         engine,
		Registry:       registry,
		Metrics:        r.metrics,
		Logger:         r.logger,
		DefaultChannel: r.config.Slack.DefaultChannel,
		MaxReconnects:  r.config.Session.MaxReconnects,
		ReconnectDelay: r.config.Session.ReconnectDelay,
		OnConnect:      health.SetConnected,
	}
	if dir := r.config.Changelog.Dir; dir != "" {
		opts.Changelog = changelog.NewStore(dir)
	}
	if dir := r.config.Logging.EventDir; dir != "" {
		opts.Events = eventlog.NewRecorder(dir)
	}
	if path := r.config.Logging.FeatureRequests; path != "" {
		opts.Requests = eventlog.NewFeatureLog(path)
	}

	r.logger.Info("starting session", "services", registry.Services())
	return bot.NewSession(opts).Run(ctx)
}
