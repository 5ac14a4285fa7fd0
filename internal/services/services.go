// package services defines the provider interfaces consumed by the export pipeline and implements
// them against the Spotify Web API.
package services

import (
	"context"

	"github.com/desertthunder/djcsv/internal/models"
	"golang.org/x/oauth2"
)

// PlaylistProvider returns playlist contents and metadata.
type PlaylistProvider interface {
	// GetContents returns every item of the playlist in playlist order, including non-track items.
	GetContents(ctx context.Context, ref models.PlaylistRef) ([]models.PlaylistItem, error)

	// GetMetadata returns the playlist display attributes.
	GetMetadata(ctx context.Context, ref models.PlaylistRef) (*models.PlaylistMetadata, error)
}

// MetadataProvider answers one bulk lookup request per call.
//
// Implementations may omit ids they cannot resolve; callers are expected to backfill.
// Each method has an endpoint-specific maximum number of ids per call.
type MetadataProvider interface {
	// AudioFeatures returns tempo, key, mode and energy keyed by track id (up to 100 ids).
	AudioFeatures(ctx context.Context, trackIDs []string) (map[string]models.AudioFeatures, error)

	// TrackISRCs returns ISRC codes keyed by track id (up to 50 ids).
	TrackISRCs(ctx context.Context, trackIDs []string) (map[string]string, error)

	// ArtistGenres returns genre lists keyed by artist id (up to 50 ids).
	ArtistGenres(ctx context.Context, artistIDs []string) (map[string][]string, error)
}

// Library lists the playlists visible to the authenticated user.
type Library interface {
	GetPlaylists(ctx context.Context) ([]models.Playlist, error)
}

// Service is a music provider that can back a full export.
type Service interface {
	PlaylistProvider
	MetadataProvider
	Library

	// Name returns the name of the service (e.g., "Spotify")
	Name() string
}

// OAuthService extends [Service] with the authorization code flow used by the CLI.
type OAuthService interface {
	Service

	// GetAuthURL returns the authorization URL for the given state token.
	GetAuthURL(state string) string

	// GetOAuthConfig returns the underlying [oauth2.Config] used for code exchange.
	GetOAuthConfig() *oauth2.Config

	// ExchangeCode trades an authorization code from the redirect for a user token.
	ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error)

	// SetTokenRefreshCallback registers fn to receive tokens refreshed during requests.
	SetTokenRefreshCallback(fn func(*oauth2.Token))

	// AuthenticateApp switches the service to an application token from the client credentials grant.
	AuthenticateApp(ctx context.Context) error

	// OAuthenticate switches the service to the given user token.
	OAuthenticate(ctx context.Context, token *oauth2.Token) error
}
