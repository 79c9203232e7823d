package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/desertthunder/mixtape/internal/formatter"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/desertthunder/mixtape/internal/tracks"
	"github.com/desertthunder/mixtape/internal/ui"
	"github.com/urfave/cli/v3"
)

func (r *Runner) serviceArg(cmd *cli.Command) (tracks.Service, error) {
	name := cmd.StringArg("service")
	if name == "" {
		return "", fmt.Errorf("%w: service", shared.ErrMissingArgument)
	}
	return tracks.ParseService(name)
}

// PlaylistList prints the mirrored playlist of one service in the requested format.
func (r *Runner) PlaylistList(ctx context.Context, cmd *cli.Command) error {
	svc, err := r.serviceArg(cmd)
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

	entries, err := registry.Contents(ctx, svc)
	if err != nil {
		return fmt.Errorf("failed to list %s playlist: %w", svc, err)
	}
	binding, _ := registry.Binding(svc)
	listing := formatter.Listing{Service: svc.Label(), PlaylistID: binding.PlaylistID, Entries: entries}

	var w io.Writer = r.output
	if path := cmd.String("output"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if err := formatter.Write(w, listing, cmd.String("format")); err != nil {
		return err
	}
	if path := cmd.String("output"); path != "" {
		r.writePlain("%s\n", ui.Styles.OK("Wrote %d tracks to %s", len(entries), path))
	}
	return nil
}

// PlaylistSearch runs the search a cross-search would run for query and prints the match.
func (r *Runner) PlaylistSearch(ctx context.Context, cmd *cli.Command) error {
	svc, err := r.serviceArg(cmd)
	if err != nil {
		return err
	}
	query := cmd.StringArg("query")
	if query == "" {
		return fmt.Errorf("%w: query", shared.ErrMissingArgument)
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

	track, err := registry.New(svc, "", query, "cli")
	if err != nil {
		return err
	}

	if _, err := track.ResolveIfUnknown(ctx); err != nil {
		if errors.Is(err, shared.ErrTrackNotFound) {
			return r.writePlain("%s\n", ui.Styles.Warn("No match on %s for %q", svc.Label(), query))
		}
		return fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}

	r.writePlain("%s\n", ui.Styles.OK("%s", track.Title()))
	return r.writePlain("%s\n", track.Link())
}
