package main

import (
	"context"

	"github.com/urfave/cli/v3"
)

// SpotifyPlaylists lists the user's playlists with the ids `djcsv export` accepts.
func (r *Runner) SpotifyPlaylists(ctx context.Context, cmd *cli.Command) error {
	limit := cmd.Int("limit")

	svc, err := r.userService(ctx)
	if err != nil {
		return authHint(err)
	}

	r.logger.Debug("listing spotify playlists", "limit", limit)

	playlists, err := svc.GetPlaylists(ctx)
	if err != nil {
		return authHint(err)
	}

	if limit > 0 && limit < len(playlists) {
		playlists = playlists[:limit]
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlists, cmd.Bool("pretty"))
	}

	r.writePlain("Found %d playlists:\n\n", len(playlists))
	for i, p := range playlists {
		r.writePlain("%d. %s\n", i+1, p.Name)
		r.writePlain("   URI: %s\n", p.Ref())
		r.writePlain("   Tracks: %d\n", p.TrackCount)
		if p.Owner != "" {
			r.writePlain("   Owner: %s\n", p.Owner)
		}
		r.writePlain("\n")
	}

	if len(playlists) > 0 {
		r.writePlain("Export one with: djcsv export %s\n", playlists[0].Ref())
	}
	return nil
}
