package main

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/desertthunder/djcsv/internal/server"
	"github.com/desertthunder/djcsv/internal/services"
	"github.com/desertthunder/djcsv/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

const authTimeout = 2 * time.Minute

// SpotifyAuth runs the authorization code flow and stores the user token in the config file.
//
// Starts a local HTTP server, opens the browser for user authorization and exchanges the code for tokens.
func (r *Runner) SpotifyAuth(ctx context.Context, cmd *cli.Command) error {
	svc, err := r.newSpotifyService()
	if err != nil {
		return err
	}

	token, err := r.doOAuth(ctx, svc)
	if err != nil {
		return err
	}

	if err := r.saveTokens(token); err != nil {
		return err
	}

	r.writePlain("\n✓ Authorization successful\n")
	r.writePlain("✓ Tokens saved to %s\n\n", r.configPath)
	r.writePlain("You can now use: djcsv spotify playlists\n")

	return nil
}

// doOAuth executes the OAuth2 authorization flow with a local callback server.
func (r *Runner) doOAuth(ctx context.Context, svc services.OAuthService) (*oauth2.Token, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	addr := net.JoinHostPort(r.config.Server.Host, strconv.Itoa(r.config.Server.Port))
	srv, err := server.NewCallbackServer(addr, server.NewOAuthHandler(svc, state), r.logger)
	if err != nil {
		return nil, err
	}
	srv.Start()

	authURL := svc.GetAuthURL(state)
	r.writePlain("→ Opening browser for Spotify authorization...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warn("failed to open browser automatically", "error", err)
		r.writePlain("\n⚠ Could not open browser automatically.\n")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (%s timeout)...\n", authTimeout)
	return srv.Wait(ctx, authTimeout)
}
