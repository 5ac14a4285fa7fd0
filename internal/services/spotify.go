// Spotify API implementation of [Service]
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/desertthunder/djcsv/internal/models"
	"github.com/desertthunder/djcsv/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// Endpoint limits documented by the Web API.
	maxTrackIDs        = 50
	maxAudioFeatureIDs = 100
	maxArtistIDs       = 50
	playlistPageSize   = 100
	libraryPageSize    = 50

	playlistItemFields = "items(track(uri,name,album(name),artists(name,uri))),next,total"
)

var _ OAuthService = (*SpotifyService)(nil)

// SpotifyService implements [Service] for the Spotify Web API.
//
// Requests are authorized either with a user token ([SpotifyService.OAuthenticate]) or with an
// app-only client credentials token ([SpotifyService.AuthenticateApp]). App tokens can read public
// playlists but not the user's library.
type SpotifyService struct {
	config         *oauth2.Config
	baseURL        string
	baseClient     *http.Client
	timeout        time.Duration
	httpClient     *http.Client
	authenticated  bool
	onTokenRefresh func(*oauth2.Token)
}

// Option configures a [SpotifyService].
type Option func(*SpotifyService)

// WithBaseURL overrides the Web API base URL.
func WithBaseURL(u string) Option {
	return func(s *SpotifyService) {
		if u != "" {
			s.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithTokenURL overrides the accounts token endpoint.
func WithTokenURL(u string) Option {
	return func(s *SpotifyService) {
		if u != "" {
			s.config.Endpoint.TokenURL = u
		}
	}
}

// WithHTTPClient sets the client whose transport carries API and token requests.
func WithHTTPClient(c *http.Client) Option {
	return func(s *SpotifyService) {
		if c != nil {
			s.baseClient = c
		}
	}
}

// WithTimeout bounds every API request.
func WithTimeout(d time.Duration) Option {
	return func(s *SpotifyService) {
		s.timeout = d
	}
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
func NewSpotifyService(credentials map[string]string, opts ...Option) (*SpotifyService, error) {
	clientID := credentials["client_id"]
	if clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret := credentials["client_secret"]
	if clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	redirectURI := credentials["redirect_uri"]
	if redirectURI == "" {
		redirectURI = "http://127.0.0.1:3000/callback"
	}

	s := &SpotifyService{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Scopes: []string{
				"playlist-read-private",
				"playlist-read-collaborative",
			},
			Endpoint: oauth2.Endpoint{
				AuthURL:  spotifyAuthURL,
				TokenURL: spotifyTokenURL,
			},
		},
		baseURL:    spotifyBaseURL,
		baseClient: http.DefaultClient,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// GetAuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// GetOAuthConfig returns the OAuth2 configuration.
func (s *SpotifyService) GetOAuthConfig() *oauth2.Config {
	return s.config
}

// SetTokenRefreshCallback registers fn to be called whenever the user token is refreshed.
func (s *SpotifyService) SetTokenRefreshCallback(fn func(*oauth2.Token)) {
	s.onTokenRefresh = fn
}

// Authenticate authorizes requests from a credential map holding either an "auth_code" from the
// callback or an "access_token" (with optional "refresh_token").
func (s *SpotifyService) Authenticate(ctx context.Context, credentials map[string]string) error {
	if code := credentials["auth_code"]; code != "" {
		token, err := s.ExchangeCode(ctx, code)
		if err != nil {
			return err
		}
		return s.OAuthenticate(ctx, token)
	}

	if accessToken := credentials["access_token"]; accessToken != "" {
		return s.OAuthenticate(ctx, &oauth2.Token{
			AccessToken:  accessToken,
			RefreshToken: credentials["refresh_token"],
			TokenType:    "Bearer",
		})
	}

	return fmt.Errorf("%w: need access_token or auth_code", shared.ErrMissingCredentials)
}

// ExchangeCode trades an authorization code for a user token.
func (s *SpotifyService) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := s.config.Exchange(s.tokenContext(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}
	return token, nil
}

// Authenticated reports whether a token source has been installed.
func (s *SpotifyService) Authenticated() bool {
	return s.authenticated
}

// OAuthenticate authorizes requests with a user token, refreshing it when it expires.
func (s *SpotifyService) OAuthenticate(ctx context.Context, token *oauth2.Token) error {
	if token == nil {
		return fmt.Errorf("%w: no user token", shared.ErrNotAuthenticated)
	}

	ctx = s.tokenContext(ctx)
	source := &refreshableTokenSource{
		source:   s.config.TokenSource(ctx, token),
		last:     token.AccessToken,
		callback: s.onTokenRefresh,
	}
	s.useTokenSource(ctx, source)
	return nil
}

// AuthenticateApp authorizes requests with a client credentials token.
func (s *SpotifyService) AuthenticateApp(ctx context.Context) error {
	cc := &clientcredentials.Config{
		ClientID:     s.config.ClientID,
		ClientSecret: s.config.ClientSecret,
		TokenURL:     s.config.Endpoint.TokenURL,
	}

	ctx = s.tokenContext(ctx)
	source := cc.TokenSource(ctx)
	if _, err := source.Token(); err != nil {
		return fmt.Errorf("%w: client credentials: %v", shared.ErrAuthFailed, err)
	}
	s.useTokenSource(ctx, source)
	return nil
}

// tokenContext detaches ctx from cancellation and carries the base client for token requests.
func (s *SpotifyService) tokenContext(ctx context.Context) context.Context {
	return context.WithValue(context.WithoutCancel(ctx), oauth2.HTTPClient, s.baseClient)
}

func (s *SpotifyService) useTokenSource(ctx context.Context, ts oauth2.TokenSource) {
	client := oauth2.NewClient(ctx, ts)
	client.Timeout = s.timeout
	s.httpClient = client
	s.authenticated = true
}

// doRequest performs an authenticated GET against the Web API and decodes the JSON body into result.
//
// endpoint is either a path relative to the base URL or an absolute "next" URL returned by a page.
func (s *SpotifyService) doRequest(ctx context.Context, endpoint string, query url.Values, result any) error {
	if !s.authenticated {
		return fmt.Errorf("%w: call OAuthenticate or AuthenticateApp first", shared.ErrNotAuthenticated)
	}

	apiURL := endpoint
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		apiURL = s.baseURL + endpoint
	}
	if len(query) > 0 {
		apiURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: status %d", shared.ErrTokenExpired, resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: status %d", shared.ErrPlaylistNotFound, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("%w: spotify status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// GetContents retrieves every playlist item, following pagination, in playlist order.
func (s *SpotifyService) GetContents(ctx context.Context, ref models.PlaylistRef) ([]models.PlaylistItem, error) {
	var items []models.PlaylistItem

	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(ref.ID))
	query := url.Values{
		"limit":  {strconv.Itoa(playlistPageSize)},
		"fields": {playlistItemFields},
	}

	for {
		var page spotifyPlaylistItems
		if err := s.doRequest(ctx, endpoint, query, &page); err != nil {
			return nil, fmt.Errorf("failed to fetch playlist items: %w", err)
		}

		for _, it := range page.Items {
			if it.Track == nil {
				continue
			}
			items = append(items, toPlaylistItem(*it.Track))
		}

		if page.Next == nil || *page.Next == "" {
			break
		}
		endpoint, query = *page.Next, nil
	}

	return items, nil
}

// GetMetadata retrieves the playlist name.
func (s *SpotifyService) GetMetadata(ctx context.Context, ref models.PlaylistRef) (*models.PlaylistMetadata, error) {
	var body spotifyPlaylistName
	endpoint := fmt.Sprintf("/playlists/%s", url.PathEscape(ref.ID))
	if err := s.doRequest(ctx, endpoint, url.Values{"fields": {"name"}}, &body); err != nil {
		return nil, fmt.Errorf("failed to fetch playlist metadata: %w", err)
	}
	return &models.PlaylistMetadata{Name: body.Name}, nil
}

// GetPlaylists retrieves all playlists for the authenticated user.
func (s *SpotifyService) GetPlaylists(ctx context.Context) ([]models.Playlist, error) {
	var playlists []models.Playlist

	endpoint := "/me/playlists"
	query := url.Values{"limit": {strconv.Itoa(libraryPageSize)}}

	for {
		var page spotifyPlaylistPage
		if err := s.doRequest(ctx, endpoint, query, &page); err != nil {
			return nil, err
		}

		for _, sp := range page.Items {
			playlists = append(playlists, models.Playlist{
				ID:          sp.ID,
				Name:        sp.Name,
				Description: sp.Description,
				Owner:       sp.Owner.DisplayName,
				TrackCount:  sp.Tracks.Total,
				Public:      sp.Public,
			})
		}

		if page.Next == nil || *page.Next == "" {
			break
		}
		endpoint, query = *page.Next, nil
	}

	return playlists, nil
}

// AudioFeatures retrieves audio features for up to 100 tracks.
func (s *SpotifyService) AudioFeatures(ctx context.Context, trackIDs []string) (map[string]models.AudioFeatures, error) {
	if err := checkIDs(trackIDs, maxAudioFeatureIDs); err != nil {
		return nil, err
	}

	var body spotifyAudioFeaturesResponse
	if err := s.doRequest(ctx, "/audio-features", idsQuery(trackIDs), &body); err != nil {
		return nil, err
	}

	result := make(map[string]models.AudioFeatures, len(body.AudioFeatures))
	for i, f := range body.AudioFeatures {
		if f == nil {
			continue
		}
		features := models.UnknownFeatures()
		features.Tempo = f.Tempo
		features.Energy = f.Energy
		if f.Key != nil {
			features.Key = *f.Key
		}
		if f.Mode != nil {
			features.Mode = *f.Mode
		}
		result[responseKey(trackIDs, len(body.AudioFeatures), i, f.ID)] = features
	}

	return result, nil
}

// TrackISRCs retrieves ISRC codes for up to 50 tracks. Tracks without an ISRC map to [models.Unknown].
func (s *SpotifyService) TrackISRCs(ctx context.Context, trackIDs []string) (map[string]string, error) {
	if err := checkIDs(trackIDs, maxTrackIDs); err != nil {
		return nil, err
	}

	var body spotifyTracksResponse
	if err := s.doRequest(ctx, "/tracks", idsQuery(trackIDs), &body); err != nil {
		return nil, err
	}

	result := make(map[string]string, len(body.Tracks))
	for i, t := range body.Tracks {
		if t == nil {
			continue
		}
		isrc := t.ExternalIDs.ISRC
		if isrc == "" {
			isrc = models.Unknown
		}
		result[responseKey(trackIDs, len(body.Tracks), i, t.ID)] = isrc
	}

	return result, nil
}

// ArtistGenres retrieves genre lists for up to 50 artists.
func (s *SpotifyService) ArtistGenres(ctx context.Context, artistIDs []string) (map[string][]string, error) {
	if err := checkIDs(artistIDs, maxArtistIDs); err != nil {
		return nil, err
	}

	var body spotifyArtistsResponse
	if err := s.doRequest(ctx, "/artists", idsQuery(artistIDs), &body); err != nil {
		return nil, err
	}

	result := make(map[string][]string, len(body.Artists))
	for i, a := range body.Artists {
		if a == nil {
			continue
		}
		genres := a.Genres
		if genres == nil {
			genres = []string{}
		}
		result[responseKey(artistIDs, len(body.Artists), i, a.ID)] = genres
	}

	return result, nil
}

func toPlaylistItem(t spotifyItemTrack) models.PlaylistItem {
	artists := make([]models.ArtistRef, 0, len(t.Artists))
	for _, a := range t.Artists {
		artists = append(artists, models.ArtistRef{Name: a.Name, URI: a.URI})
	}
	return models.PlaylistItem{
		URI:     t.URI,
		Name:    t.Name,
		Album:   t.Album.Name,
		Artists: artists,
	}
}

func checkIDs(ids []string, max int) error {
	if len(ids) == 0 {
		return fmt.Errorf("%w: no ids provided", shared.ErrInvalidArgument)
	}
	if len(ids) > max {
		return fmt.Errorf("%w: maximum %d ids allowed, got %d", shared.ErrInvalidArgument, max, len(ids))
	}
	return nil
}

func idsQuery(ids []string) url.Values {
	return url.Values{"ids": {strings.Join(ids, ",")}}
}

// responseKey maps a bulk response entry back to the requested id.
//
// Bulk endpoints answer in request order with nulls for unknown ids, so the requested id is used
// when the lengths line up; this keeps relinked tracks (whose returned id differs) attached to the
// id that was asked for.
func responseKey(requested []string, n, i int, returned string) string {
	if n == len(requested) {
		return requested[i]
	}
	return returned
}

// refreshableTokenSource wraps an [oauth2.TokenSource] and reports tokens that differ from the last one seen.
type refreshableTokenSource struct {
	source   oauth2.TokenSource
	callback func(*oauth2.Token)

	mu   sync.Mutex
	last string
}

func (r *refreshableTokenSource) Token() (*oauth2.Token, error) {
	token, err := r.source.Token()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	changed := token.AccessToken != r.last
	r.last = token.AccessToken
	r.mu.Unlock()

	if changed && r.callback != nil {
		r.callback(token)
	}
	return token, nil
}
