// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create config.toml, initialize the database and run migrations",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "rollback",
				Usage: "Revert the most recent migration instead of applying pending ones",
			},
		},
		Action: r.Setup,
	}
}

// runCommand starts the bot
func runCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Connect to Slack and mirror shared tracks until interrupted",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:  "backfill",
				Usage: "Mirror one playlist into another before connecting, as from:to (e.g. youtube:spotify)",
			},
		},
		Before: r.load,
		Action: r.Run,
	}
}

func backfillCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "backfill",
		Usage: "Mirror every track of one service playlist into another",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:     "from",
				Usage:    "Source service (youtube, spotify, playmusic)",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "to",
				Usage:    "Destination service",
				Required: true,
			},
		},
		Before: r.load,
		Action: r.Backfill,
	}
}

// authCommand handles OAuth flows and stored tokens
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authorize music services",
		Commands: []*cli.Command{
			{
				Name:   "spotify",
				Usage:  "Authorize Spotify with OAuth2 and store the token",
				Flags:  []cli.Flag{configFlag()},
				Before: r.load,
				Action: r.AuthSpotify,
			},
			{
				Name:   "youtube",
				Usage:  "Authorize YouTube with OAuth2 and store the token",
				Flags:  []cli.Flag{configFlag()},
				Before: r.load,
				Action: r.AuthYouTube,
			},
			{
				Name:   "status",
				Usage:  "List stored tokens",
				Flags:  []cli.Flag{configFlag(), &cli.BoolFlag{Name: "json", Usage: "Output raw JSON"}},
				Before: r.load,
				Action: r.AuthStatus,
			},
		},
	}
}

// playlistCommand inspects the mirrored playlists
func playlistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlist",
		Aliases: []string{"pl"},
		Usage:   "Inspect the mirrored playlists",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "Print the contents of a service playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "service"},
				},
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: snippet, txt, csv or json",
						Value:   "snippet",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write to a file instead of stdout",
					},
				},
				Before: r.load,
				Action: r.PlaylistList,
			},
			{
				Name:  "search",
				Usage: "Search a service the way cross-searches do",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "service"},
					&cli.StringArg{Name: "query"},
				},
				Flags:  []cli.Flag{configFlag()},
				Before: r.load,
				Action: r.PlaylistSearch,
			},
		},
	}
}
