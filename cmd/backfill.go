package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/mixtape/internal/tasks"
	"github.com/desertthunder/mixtape/internal/tracks"
	"github.com/desertthunder/mixtape/internal/ui"
	"github.com/urfave/cli/v3"
)

// Backfill mirrors the --from playlist into the --to service and prints progress.
func (r *Runner) Backfill(ctx context.Context, cmd *cli.Command) error {
	from, to, err := parseRoute(cmd.String("from") + ":" + cmd.String("to"))
	if err != nil {
		return err
	}

	tokens, db, err := r.openTokens()
	if err != nil {
		return err
	}
	defer db.Close()

	registry, err := r.registry(tokens)
	if err != nil {
		return err
	}

	_, err = r.backfill(ctx, r.engine(registry, nil), from, to)
	return err
}

// backfill runs [tasks.Engine.Backfill], rendering its progress updates as they arrive.
func (r *Runner) backfill(ctx context.Context, engine *tasks.Engine, from, to tracks.Service) (*tasks.BackfillResult, error) {
	r.writePlain("%s\n", ui.Styles.Title("Backfill %s → %s", from.Label(), to.Label()))

	progress := make(chan tasks.ProgressUpdate, 64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			switch update.Phase {
			case tasks.FetchSource:
				r.writePlain("%s\n", ui.Styles.Help("%s", update.Message))
			case tasks.CrossSearch:
				r.writePlain("%s\n", ui.Styles.Progress(update.Step, update.Total, update.Message))
			case tasks.Finished:
				r.writePlain("%s\n", ui.Styles.OK("%s", update.Message))
			}
		}
	}()

	result, err := engine.Backfill(ctx, progress, from, to)
	close(progress)
	<-done

	if err != nil {
		r.writePlain("%s\n", ui.Styles.Err("backfill stopped: %v", err))
		return result, fmt.Errorf("backfill %s:%s: %w", from, to, err)
	}

	if len(result.Missing) > 0 {
		r.writePlainln("%s", ui.Styles.Warn("No match on %s for %d tracks:", to.Label(), len(result.Missing)))
		for _, title := range result.Missing {
			r.writePlain("  • %s\n", title)
		}
	}
	return result, nil
}
