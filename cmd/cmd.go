// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// exportCommand writes one DJ CSV per playlist reference.
func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "export",
		Aliases:   []string{"x"},
		Usage:     "Export playlists as DJ CSV (title, artist, album, ISRC, BPM, Camelot key, energy, genres)",
		ArgsUsage: "<playlist-url|uri|id>...",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output directory, or - to write a single playlist's CSV to stdout (default: export.output_dir)",
			},
			&cli.IntFlag{
				Name:    "workers",
				Aliases: []string{"w"},
				Usage:   "Playlists exported concurrently (default: export.workers)",
			},
		},
		Action: r.Export,
	}
}

// spotifyCommand handles Spotify account operations
func spotifyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "spotify",
		Aliases: []string{"spot"},
		Usage:   "Spotify account operations",
		Commands: []*cli.Command{
			{
				Name:   "auth",
				Usage:  "Authorize djcsv to read your playlists (OAuth2 authorization code flow)",
				Action: r.SpotifyAuth,
			},
			{
				Name:  "playlists",
				Usage: "List your Spotify playlists",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of playlists to show (0 for all)",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print JSON output",
					},
				},
				Action: r.SpotifyPlaylists,
			},
		},
	}
}

// setupCommand handles first-run setup.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write a config file with default settings to the --config path",
				Action: r.SetupConfig,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command for interactive playlist export.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Pick playlists to export from an interactive list",
		Action:  r.TUI,
	}
}
