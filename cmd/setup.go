package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/desertthunder/mixtape/internal/ui"
	"github.com/urfave/cli/v3"
)

// Setup writes config.toml from the template when missing, creates the changelog and event log
// directories, then initializes the database.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if _, err := os.Stat(configPath); err != nil {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
		r.writePlain("%s\n", ui.Styles.OK("Created %s", configPath))
	}

	config, err := shared.LoadConfig(configPath)
	if err != nil {
		r.logger.Warn("failed to load config, using defaults", "error", err)
		config = shared.DefaultConfig()
	}
	r.config = config

	for _, dir := range []string{config.Changelog.Dir, config.Logging.EventDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	if cmd.Bool("rollback") {
		return r.rollback()
	}

	r.logger.Info("initializing database", "path", config.Database.Path)
	_, db, err := r.openTokens()
	if err != nil {
		return err
	}
	defer db.Close()

	r.logger.Infof("setup complete for database: %v", config.Database.Path)
	r.writePlain("%s\n", ui.Styles.OK("Database ready at %s", config.Database.Path))
	r.writePlainln("Next steps:")
	r.writePlain("1. Fill in [slack], [spotify], [youtube] and [playmusic] in %s\n", configPath)
	r.writePlain("2. Run 'mixtape auth spotify' and 'mixtape auth youtube'\n")
	r.writePlain("3. Run 'mixtape run'\n")
	return nil
}

// rollback reverts the newest applied migration without running pending ones.
func (r *Runner) rollback() error {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	version, err := shared.RollbackMigration(db)
	if errors.Is(err, shared.ErrNoMigrations) {
		return r.writePlain("%s\n", ui.Styles.Warn("Nothing to roll back in %s", r.config.Database.Path))
	}
	if err != nil {
		return err
	}

	r.logger.Info("rolled back migration", "version", version, "path", r.config.Database.Path)
	return r.writePlain("%s\n", ui.Styles.OK("Rolled back migration %04d", version))
}
