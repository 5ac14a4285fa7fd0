package main

import (
	"context"

	"github.com/desertthunder/djcsv/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupConfig writes the default configuration to the --config path.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	if err := shared.CreateConfigFile(r.configPath); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", r.configPath)

	r.writePlain("✓ Config written to %s\n\n", r.configPath)
	r.writePlain("Next steps:\n")
	r.writePlain("1. Create an app at https://developer.spotify.com/dashboard with redirect URI %s\n", r.config.Credentials.Spotify.RedirectURI)
	r.writePlain("2. Set credentials.spotify.client_id and client_secret in %s\n", r.configPath)
	r.writePlain("3. Run 'djcsv spotify auth' to read private playlists, or export public ones right away\n")
	return nil
}
