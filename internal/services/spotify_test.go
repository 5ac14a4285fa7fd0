package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/desertthunder/djcsv/internal/models"
	"github.com/desertthunder/djcsv/internal/shared"
	"golang.org/x/oauth2"
)

var testCredentials = map[string]string{
	"client_id":     "test_client_id",
	"client_secret": "test_client_secret",
}

// newTestService starts an API server backed by handler and returns a service authenticated against it.
func newTestService(t *testing.T, handler http.HandlerFunc) *SpotifyService {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	srv, err := NewSpotifyService(testCredentials, WithBaseURL(server.URL), WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}

	if err := srv.Authenticate(context.Background(), map[string]string{"access_token": "test_token"}); err != nil {
		t.Fatalf("failed to authenticate: %v", err)
	}
	return srv
}

func writeJSON(t *testing.T, w http.ResponseWriter, body string) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write([]byte(body)); err != nil {
		t.Errorf("failed to write response: %v", err)
	}
}

func TestSpotifyService(t *testing.T) {
	t.Run("NewSpotifyService", func(t *testing.T) {
		t.Run("With Valid Credentials", func(t *testing.T) {
			srv, err := NewSpotifyService(map[string]string{
				"client_id":     "test_client_id",
				"client_secret": "test_client_secret",
				"redirect_uri":  "http://localhost:9999/callback",
			})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if srv.Name() != "Spotify" {
				t.Errorf("expected service name 'Spotify', got %s", srv.Name())
			}
			if srv.config.RedirectURL != "http://localhost:9999/callback" {
				t.Errorf("expected configured redirect URI, got %s", srv.config.RedirectURL)
			}
		})

		t.Run("Missing Client ID", func(t *testing.T) {
			_, err := NewSpotifyService(map[string]string{"client_secret": "test_client_secret"})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("Missing Client Secret", func(t *testing.T) {
			_, err := NewSpotifyService(map[string]string{"client_id": "test_client_id"})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("Default Redirect URI", func(t *testing.T) {
			srv, err := NewSpotifyService(testCredentials)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if srv.config.RedirectURL != "http://127.0.0.1:3000/callback" {
				t.Errorf("expected default redirect URI, got %s", srv.config.RedirectURL)
			}
		})

		t.Run("Options", func(t *testing.T) {
			srv, err := NewSpotifyService(testCredentials, WithBaseURL("http://api.test/v1/"), WithTokenURL("http://accounts.test/token"))
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if srv.baseURL != "http://api.test/v1" {
				t.Errorf("expected trailing slash trimmed, got %s", srv.baseURL)
			}
			if srv.config.Endpoint.TokenURL != "http://accounts.test/token" {
				t.Errorf("expected token URL override, got %s", srv.config.Endpoint.TokenURL)
			}
		})
	})

	t.Run("Get AuthURL", func(t *testing.T) {
		srv, err := NewSpotifyService(testCredentials)
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}

		authURL := srv.GetAuthURL("test_state")
		for _, want := range []string{"accounts.spotify.com", "test_client_id", "test_state", "playlist-read-private"} {
			if !strings.Contains(authURL, want) {
				t.Errorf("auth URL should contain %q, got %s", want, authURL)
			}
		}
	})

	t.Run("Authenticate", func(t *testing.T) {
		t.Run("WithAccessToken", func(t *testing.T) {
			srv, _ := NewSpotifyService(testCredentials)

			if err := srv.Authenticate(context.Background(), map[string]string{"access_token": "test_access_token"}); err != nil {
				t.Errorf("expected no error with access token, got %v", err)
			}
			if !srv.Authenticated() {
				t.Error("expected service to be authenticated")
			}
		})

		t.Run("Missing Credentials", func(t *testing.T) {
			srv, _ := NewSpotifyService(testCredentials)

			err := srv.Authenticate(context.Background(), map[string]string{})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("Requests Before Authentication", func(t *testing.T) {
			srv, _ := NewSpotifyService(testCredentials)

			_, err := srv.GetMetadata(context.Background(), models.PlaylistRef{ID: "abc"})
			if !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected ErrNotAuthenticated, got %v", err)
			}
		})

		t.Run("Nil User Token", func(t *testing.T) {
			srv, _ := NewSpotifyService(testCredentials)

			if err := srv.OAuthenticate(context.Background(), nil); !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected ErrNotAuthenticated, got %v", err)
			}
		})

		t.Run("Client Credentials", func(t *testing.T) {
			var grantType, authHeader string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				switch r.URL.Path {
				case "/token":
					_ = r.ParseForm()
					grantType = r.PostForm.Get("grant_type")
					writeJSON(t, w, `{"access_token":"app_token","token_type":"bearer","expires_in":3600}`)
				case "/playlists/abc":
					authHeader = r.Header.Get("Authorization")
					writeJSON(t, w, `{"name":"Warmup"}`)
				default:
					http.NotFound(w, r)
				}
			}))
			defer server.Close()

			srv, _ := NewSpotifyService(testCredentials,
				WithBaseURL(server.URL),
				WithTokenURL(server.URL+"/token"),
				WithHTTPClient(server.Client()),
			)

			if err := srv.AuthenticateApp(context.Background()); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if grantType != "client_credentials" {
				t.Errorf("expected client_credentials grant, got %q", grantType)
			}

			meta, err := srv.GetMetadata(context.Background(), models.PlaylistRef{ID: "abc"})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if meta.Name != "Warmup" {
				t.Errorf("expected name Warmup, got %s", meta.Name)
			}
			if authHeader != "Bearer app_token" {
				t.Errorf("expected app token on request, got %q", authHeader)
			}
		})

		t.Run("Client Credentials Rejected", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"error":"invalid_client"}`, http.StatusBadRequest)
			}))
			defer server.Close()

			srv, _ := NewSpotifyService(testCredentials, WithTokenURL(server.URL), WithHTTPClient(server.Client()))

			if err := srv.AuthenticateApp(context.Background()); !errors.Is(err, shared.ErrAuthFailed) {
				t.Errorf("expected ErrAuthFailed, got %v", err)
			}
			if srv.Authenticated() {
				t.Error("expected service to stay unauthenticated")
			}
		})
	})

	t.Run("Service Interface", func(t *testing.T) {
		srv, err := NewSpotifyService(testCredentials)
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}

		var _ Service = srv
		var _ OAuthService = srv
	})

	t.Run("SetTokenRefreshCallback", func(t *testing.T) {
		srv, _ := NewSpotifyService(testCredentials)

		t.Run("sets callback successfully", func(t *testing.T) {
			srv.SetTokenRefreshCallback(func(*oauth2.Token) {})
			if srv.onTokenRefresh == nil {
				t.Error("expected callback to be set")
			}
		})

		t.Run("can set nil callback", func(t *testing.T) {
			srv.SetTokenRefreshCallback(nil)
			if srv.onTokenRefresh != nil {
				t.Error("expected callback to be nil")
			}
		})
	})
}

func TestSpotifyEndpoints(t *testing.T) {
	ctx := context.Background()

	t.Run("GetContents", func(t *testing.T) {
		t.Run("follows pagination and keeps order", func(t *testing.T) {
			var serverURL string
			srv := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/playlists/pl1/tracks" {
					http.NotFound(w, r)
					return
				}
				if r.URL.Query().Get("offset") == "" {
					if r.URL.Query().Get("limit") != "100" {
						t.Errorf("expected limit=100, got %q", r.URL.Query().Get("limit"))
					}
					writeJSON(t, w, fmt.Sprintf(`{
						"items": [
							{"track": {"uri": "spotify:track:t1", "name": "One", "album": {"name": "A"}, "artists": [{"name": "X", "uri": "spotify:artist:a1"}]}},
							{"track": null}
						],
						"next": "%s/playlists/pl1/tracks?offset=100",
						"total": 3
					}`, serverURL))
					return
				}
				writeJSON(t, w, `{
					"items": [
						{"track": {"uri": "spotify:local:foo:bar:baz:120", "name": "Local", "album": {"name": ""}, "artists": []}},
						{"track": {"uri": "spotify:track:t2", "name": "Two", "album": {"name": "B"}, "artists": [{"name": "Y", "uri": "spotify:artist:a2"}, {"name": "Z", "uri": "spotify:artist:a3"}]}}
					],
					"next": null,
					"total": 3
				}`)
			})
			serverURL = srv.baseURL

			items, err := srv.GetContents(ctx, models.PlaylistRef{ID: "pl1"})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if len(items) != 3 {
				t.Fatalf("expected 3 items, got %d", len(items))
			}
			if items[0].URI != "spotify:track:t1" || items[2].URI != "spotify:track:t2" {
				t.Errorf("unexpected order: %+v", items)
			}
			if items[1].IsTrack() {
				t.Error("local file should not be a track")
			}
			if got := items[2].ArtistNames(); got != "Y, Z" {
				t.Errorf("expected artists 'Y, Z', got %q", got)
			}
		})

		t.Run("missing playlist", func(t *testing.T) {
			srv := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
				http.NotFound(w, r)
			})

			_, err := srv.GetContents(ctx, models.PlaylistRef{ID: "missing"})
			if !errors.Is(err, shared.ErrPlaylistNotFound) {
				t.Errorf("expected ErrPlaylistNotFound, got %v", err)
			}
		})
	})

	t.Run("Status Mapping", func(t *testing.T) {
		tests := []struct {
			name   string
			status int
			want   error
		}{
			{"unauthorized", http.StatusUnauthorized, shared.ErrTokenExpired},
			{"not found", http.StatusNotFound, shared.ErrPlaylistNotFound},
			{"rate limited", http.StatusTooManyRequests, shared.ErrAPIRequest},
			{"server error", http.StatusInternalServerError, shared.ErrAPIRequest},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				srv := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(tt.status)
				})

				_, err := srv.GetMetadata(ctx, models.PlaylistRef{ID: "abc"})
				if !errors.Is(err, tt.want) {
					t.Errorf("expected %v, got %v", tt.want, err)
				}
			})
		}
	})

	t.Run("GetPlaylists", func(t *testing.T) {
		srv := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/me/playlists" {
				http.NotFound(w, r)
				return
			}
			writeJSON(t, w, `{
				"items": [
					{"id": "p1", "name": "Peak Time", "description": "", "owner": {"id": "u", "display_name": "dj"}, "public": true, "tracks": {"total": 42}}
				],
				"next": null
			}`)
		})

		playlists, err := srv.GetPlaylists(ctx)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(playlists) != 1 {
			t.Fatalf("expected 1 playlist, got %d", len(playlists))
		}

		p := playlists[0]
		if p.ID != "p1" || p.Name != "Peak Time" || p.Owner != "dj" || p.TrackCount != 42 || !p.Public {
			t.Errorf("unexpected playlist: %+v", p)
		}
	})

	t.Run("AudioFeatures", func(t *testing.T) {
		t.Run("keys by requested id and skips nulls", func(t *testing.T) {
			srv := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
				if got := r.URL.Query().Get("ids"); got != "t1,t2,t3" {
					t.Errorf("expected ids t1,t2,t3, got %q", got)
				}
				writeJSON(t, w, `{"audio_features": [
					{"id": "t1", "tempo": 124.5, "key": 9, "mode": 0, "energy": 0.82},
					null,
					{"id": "relinked", "tempo": 128, "key": -1, "mode": 1, "energy": 0.5}
				]}`)
			})

			features, err := srv.AudioFeatures(ctx, []string{"t1", "t2", "t3"})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if len(features) != 2 {
				t.Fatalf("expected 2 entries, got %d", len(features))
			}
			f1 := features["t1"]
			if f1.Tempo == nil || *f1.Tempo != 124.5 || f1.Key != 9 || f1.Mode != 0 {
				t.Errorf("unexpected features for t1: %+v", f1)
			}
			if _, ok := features["t2"]; ok {
				t.Error("null entry should be omitted")
			}
			if f3, ok := features["t3"]; !ok || f3.Key != -1 {
				t.Errorf("expected relinked entry under requested id t3, got %+v", features)
			}
		})

		t.Run("rejects oversized batches", func(t *testing.T) {
			srv := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
				t.Error("no request expected")
			})

			ids := make([]string, 101)
			for i := range ids {
				ids[i] = fmt.Sprintf("t%d", i)
			}

			if _, err := srv.AudioFeatures(ctx, ids); !errors.Is(err, shared.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
			if _, err := srv.AudioFeatures(ctx, nil); !errors.Is(err, shared.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument for empty ids, got %v", err)
			}
		})
	})

	t.Run("TrackISRCs", func(t *testing.T) {
		srv := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/tracks" {
				http.NotFound(w, r)
				return
			}
			writeJSON(t, w, `{"tracks": [
				{"id": "t1", "external_ids": {"isrc": "USRC17607839"}},
				{"id": "t2", "external_ids": {}}
			]}`)
		})

		isrcs, err := srv.TrackISRCs(ctx, []string{"t1", "t2"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if isrcs["t1"] != "USRC17607839" {
			t.Errorf("expected ISRC for t1, got %q", isrcs["t1"])
		}
		if isrcs["t2"] != models.Unknown {
			t.Errorf("expected %s for missing ISRC, got %q", models.Unknown, isrcs["t2"])
		}
	})

	t.Run("ArtistGenres", func(t *testing.T) {
		srv := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/artists" {
				http.NotFound(w, r)
				return
			}
			body := map[string]any{
				"artists": []any{
					map[string]any{"id": "a1", "genres": []string{"house", "deep house"}},
					map[string]any{"id": "a2", "genres": nil},
				},
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(body)
		})

		genres, err := srv.ArtistGenres(ctx, []string{"a1", "a2"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if strings.Join(genres["a1"], "|") != "house|deep house" {
			t.Errorf("unexpected genres for a1: %v", genres["a1"])
		}
		if g, ok := genres["a2"]; !ok || g == nil || len(g) != 0 {
			t.Errorf("expected empty genre list for a2, got %#v", g)
		}
	})
}

func TestRefreshableTokenSource(t *testing.T) {
	t.Run("calls callback on first token fetch", func(t *testing.T) {
		var captured *oauth2.Token

		source := &refreshableTokenSource{
			source:   &mockTokenSource{token: &oauth2.Token{AccessToken: "test_token"}},
			callback: func(token *oauth2.Token) { captured = token },
		}

		token, err := source.Token()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if captured == nil || captured.AccessToken != "test_token" {
			t.Errorf("expected callback with test_token, got %+v", captured)
		}
		if token.AccessToken != "test_token" {
			t.Errorf("expected returned token to be 'test_token', got %s", token.AccessToken)
		}
	})

	t.Run("skips callback for the initial token", func(t *testing.T) {
		callCount := 0
		source := &refreshableTokenSource{
			source:   &mockTokenSource{token: &oauth2.Token{AccessToken: "stored"}},
			last:     "stored",
			callback: func(*oauth2.Token) { callCount++ },
		}

		_, _ = source.Token()
		if callCount != 0 {
			t.Errorf("expected no callback for unchanged stored token, got %d", callCount)
		}
	})

	t.Run("calls callback when token changes", func(t *testing.T) {
		callCount := 0
		mockSource := &mockTokenSource{token: &oauth2.Token{AccessToken: "token1"}}

		source := &refreshableTokenSource{
			source:   mockSource,
			callback: func(*oauth2.Token) { callCount++ },
		}

		_, _ = source.Token()
		_, _ = source.Token()
		if callCount != 1 {
			t.Errorf("expected callback called once, got %d", callCount)
		}

		mockSource.token = &oauth2.Token{AccessToken: "token2"}
		token2, _ := source.Token()

		if callCount != 2 {
			t.Errorf("expected callback called twice, got %d", callCount)
		}
		if token2.AccessToken != "token2" {
			t.Errorf("expected new token, got %s", token2.AccessToken)
		}
	})

	t.Run("handles nil callback gracefully", func(t *testing.T) {
		source := &refreshableTokenSource{
			source: &mockTokenSource{token: &oauth2.Token{AccessToken: "test_token"}},
		}

		token, err := source.Token()
		if err != nil {
			t.Fatalf("expected no error with nil callback, got %v", err)
		}
		if token.AccessToken != "test_token" {
			t.Error("expected token to be returned despite nil callback")
		}
	})

	t.Run("propagates source errors", func(t *testing.T) {
		source := &refreshableTokenSource{
			source: &mockTokenSource{err: errors.New("token source error")},
			callback: func(*oauth2.Token) {
				t.Error("callback should not be called on error")
			},
		}

		token, err := source.Token()
		if err == nil || !strings.Contains(err.Error(), "token source error") {
			t.Errorf("expected source error, got %v", err)
		}
		if token != nil {
			t.Error("expected nil token on error")
		}
	})
}

// mockTokenSource implements [oauth2.TokenSource] for testing
type mockTokenSource struct {
	token *oauth2.Token
	err   error
}

func (m *mockTokenSource) Token() (*oauth2.Token, error) {
	return m.token, m.err
}
