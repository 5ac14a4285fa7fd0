package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/djcsv/internal/models"
	"github.com/desertthunder/djcsv/internal/shared"
	tu "github.com/desertthunder/djcsv/internal/testing"
	"golang.org/x/oauth2"
)

const playlistID = "37i9dQZF1DXcBWIGoYBM5M"

func mockSpotify() *tu.MockService {
	return &tu.MockService{
		Items: map[string][]models.PlaylistItem{
			playlistID: {
				tu.Track("t1", "Intro", "a1"),
				tu.Track("t2", "Peak, Time", "a1", "a2"),
			},
			"emptyPlaylist0000000ab": {},
		},
		Names: map[string]string{playlistID: "Friday: Warm/Up!"},
		Playlists: []models.Playlist{
			{ID: playlistID, Name: "Friday: Warm/Up!", Owner: "dj", TrackCount: 2},
			{ID: "emptyPlaylist0000000ab", Name: "Scratch", TrackCount: 0},
		},
		Features: map[string]models.AudioFeatures{
			"t1": {Tempo: tu.Float(124), Key: 8, Mode: 1, Energy: tu.Float(0.8)},
		},
		ISRCs:  map[string]string{"t1": "USAAA0000001"},
		Genres: map[string][]string{"a1": {"house"}, "a2": {"techno"}},
	}
}

type testRunner struct {
	*Runner
	out     *bytes.Buffer
	notices *bytes.Buffer
}

func newTestRunner(t *testing.T, svc *tu.MockService) testRunner {
	t.Helper()
	out, notices := &bytes.Buffer{}, &bytes.Buffer{}
	r := NewRunner(RunnerOpts{
		ConfigPath: filepath.Join(t.TempDir(), "config.toml"),
		Spotify:    svc,
		Logger:     log.New(&bytes.Buffer{}),
		Output:     out,
		Notices:    notices,
	})
	return testRunner{Runner: r, out: out, notices: notices}
}

// run executes args against the full command tree, with --config pointing at the runner's path.
func (tr testRunner) run(args ...string) error {
	argv := append([]string{"djcsv", "--config", tr.configPath}, args...)
	return newApp(tr.Runner).Run(context.Background(), argv)
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			spotify := &tu.MockService{}

			runner := NewRunner(RunnerOpts{
				Config:     config,
				ConfigPath: "custom.toml",
				Logger:     logger,
				Output:     output,
				Spotify:    spotify,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.configPath != "custom.toml" {
				t.Errorf("expected configPath custom.toml, got %s", runner.configPath)
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.spotify != spotify {
				t.Error("expected spotify to be set")
			}
		})

		t.Run("with nil options uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
			if runner.configPath != "config.toml" {
				t.Errorf("expected default config path, got %s", runner.configPath)
			}
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to stdout")
			}
			if runner.notices != os.Stderr {
				t.Error("expected notices to default to stderr")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if got := output.String(); got != "{\n  \"key\": \"value\"\n}\n" {
				t.Errorf("unexpected output %q", got)
			}
		})

		t.Run("writes compact JSON", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]int{"n": 1}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if got := output.String(); got != "{\"n\":1}\n" {
				t.Errorf("unexpected output %q", got)
			}
		})

		t.Run("handles marshal error", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"a": "b"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("formats text", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("%d tracks\n", 3); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "3 tracks\n" {
				t.Errorf("unexpected output %q", output.String())
			}
		})

		t.Run("handles write failure after limit", func(t *testing.T) {
			lw := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &lw})

			if err := runner.writePlain("first"); err != nil {
				t.Fatalf("expected first write to succeed, got %v", err)
			}
			if err := runner.writePlain("second"); err == nil {
				t.Error("expected second write to fail")
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		names := []string{}
		for _, c := range runner.register() {
			names = append(names, c.Name)
		}
		if got := strings.Join(names, ","); got != "export,spotify,setup,tui" {
			t.Errorf("unexpected commands %q", got)
		}
	})

	t.Run("saveTokens", func(t *testing.T) {
		t.Run("saves tokens successfully", func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "config.toml")

			config := shared.DefaultConfig()
			config.Credentials.Spotify.ClientID = "test_id"
			config.Credentials.Spotify.ClientSecret = "test_secret"

			runner := NewRunner(RunnerOpts{Config: config, ConfigPath: configPath, Logger: log.New(&bytes.Buffer{})})

			token := &oauth2.Token{AccessToken: "new_access_token", RefreshToken: "new_refresh_token"}
			if err := runner.saveTokens(token); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			loaded, err := shared.LoadConfig(configPath)
			if err != nil {
				t.Fatalf("failed to reload config: %v", err)
			}
			if loaded.Credentials.Spotify.AccessToken != "new_access_token" {
				t.Errorf("expected access token to be updated, got %s", loaded.Credentials.Spotify.AccessToken)
			}
			if loaded.Credentials.Spotify.RefreshToken != "new_refresh_token" {
				t.Errorf("expected refresh token to be updated, got %s", loaded.Credentials.Spotify.RefreshToken)
			}
			if loaded.Credentials.Spotify.ClientID != "test_id" {
				t.Errorf("expected client id to be kept, got %s", loaded.Credentials.Spotify.ClientID)
			}
		})

		t.Run("handles nil config", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{ConfigPath: filepath.Join(t.TempDir(), "c.toml")})
			runner.config = nil

			err := runner.saveTokens(&oauth2.Token{AccessToken: "x"})
			if !errors.Is(err, shared.ErrMissingConfig) {
				t.Errorf("expected ErrMissingConfig, got %v", err)
			}
		})

		t.Run("handles nil token", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{ConfigPath: filepath.Join(t.TempDir(), "c.toml")})

			if err := runner.saveTokens(nil); !errors.Is(err, shared.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
		})
	})

	t.Run("service", func(t *testing.T) {
		t.Run("requires client credentials", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Logger: log.New(&bytes.Buffer{})})

			if _, err := runner.service(context.Background()); !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("user commands require a stored token", func(t *testing.T) {
			config := shared.DefaultConfig()
			config.Credentials.Spotify.ClientID = "id"
			config.Credentials.Spotify.ClientSecret = "secret"
			runner := NewRunner(RunnerOpts{Config: config, Logger: log.New(&bytes.Buffer{})})

			_, err := runner.userService(context.Background())
			if !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Fatalf("expected ErrNotAuthenticated, got %v", err)
			}
			if !strings.Contains(authHint(err).Error(), "djcsv spotify auth") {
				t.Errorf("expected auth hint, got %v", authHint(err))
			}
		})
	})
}

func TestParseRefs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    []string
		wantErr error
	}{
		{"uri", []string{"spotify:playlist:" + playlistID}, []string{playlistID}, nil},
		{"url with query", []string{"https://open.spotify.com/playlist/" + playlistID + "?si=abc"}, []string{playlistID}, nil},
		{"bare id", []string{playlistID}, []string{playlistID}, nil},
		{"track rejected", []string{"spotify:track:" + playlistID}, nil, shared.ErrInvalidPlaylistRef},
		{"album url rejected", []string{"https://open.spotify.com/album/" + playlistID}, nil, shared.ErrInvalidPlaylistRef},
		{"none", nil, nil, shared.ErrMissingArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			refs, err := parseRefs(tt.args)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(refs) != len(tt.want) || refs[0].ID != tt.want[0] {
				t.Errorf("expected %v, got %+v", tt.want, refs)
			}
		})
	}
}

func TestExportCommand(t *testing.T) {
	t.Run("writes a CSV per playlist", func(t *testing.T) {
		tr := newTestRunner(t, mockSpotify())
		dir := t.TempDir()

		if err := tr.run("export", "-o", dir, "spotify:playlist:"+playlistID); err != nil {
			t.Fatalf("export failed: %v", err)
		}

		path := filepath.Join(dir, "dj-export-Friday WarmUp.csv")
		tu.AssertFileExists(t, path)
		content := tu.MustReadFile(t, path)

		lines := strings.Split(content, "\r\n")
		if len(lines) != 3 {
			t.Fatalf("expected header and 2 rows, got %d: %q", len(lines), content)
		}
		if !strings.HasPrefix(lines[0], "Title,Artist,Album,ISRC,Spotify ID,BPM,Key (Camelot),Energy,Genres") {
			t.Errorf("unexpected header %q", lines[0])
		}
		if lines[1] != "Intro,Artist a1,Album t1,USAAA0000001,t1,124,4B,0.8,house" {
			t.Errorf("unexpected first row %q", lines[1])
		}

		summary := tr.notices.String()
		if !strings.Contains(summary, "Friday: Warm/Up! → ") || !strings.Contains(summary, "Exported 1 of 1 playlists") {
			t.Errorf("unexpected summary %q", summary)
		}
	})

	t.Run("writes to stdout with -", func(t *testing.T) {
		tr := newTestRunner(t, mockSpotify())

		if err := tr.run("export", "-o", "-", playlistID); err != nil {
			t.Fatalf("export failed: %v", err)
		}
		if !strings.HasPrefix(tr.out.String(), "Title,Artist") {
			t.Errorf("expected CSV on stdout, got %q", tr.out.String())
		}
		if strings.Contains(tr.out.String(), "Exported") {
			t.Error("summary must not be mixed into CSV output")
		}
	})

	t.Run("stdout accepts a single playlist", func(t *testing.T) {
		tr := newTestRunner(t, mockSpotify())

		err := tr.run("export", "-o", "-", playlistID, "emptyPlaylist0000000ab")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("rejects non-playlist references", func(t *testing.T) {
		svc := mockSpotify()
		tr := newTestRunner(t, svc)

		err := tr.run("export", "-o", t.TempDir(), "spotify:track:"+playlistID)
		if !errors.Is(err, shared.ErrInvalidPlaylistRef) {
			t.Errorf("expected ErrInvalidPlaylistRef, got %v", err)
		}
		if len(svc.Calls(tu.MethodAudioFeatures)) != 0 {
			t.Error("expected no requests for an invalid reference")
		}
	})

	t.Run("reports empty and failed playlists", func(t *testing.T) {
		tr := newTestRunner(t, mockSpotify())
		dir := t.TempDir()

		err := tr.run("export", "-o", dir, "-w", "1", playlistID, "emptyPlaylist0000000ab", "missingPlaylist0000000")
		if !errors.Is(err, shared.ErrExportFailed) {
			t.Fatalf("expected ErrExportFailed, got %v", err)
		}

		summary := tr.notices.String()
		for _, want := range []string{"no tracks", "✗ spotify:playlist:missingPlaylist0000000", "1 empty", "1 failed"} {
			if !strings.Contains(summary, want) {
				t.Errorf("expected %q in summary %q", want, summary)
			}
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 1 {
			t.Errorf("expected one file written, got %d", len(entries))
		}
	})
}

func TestSpotifyPlaylistsCommand(t *testing.T) {
	t.Run("lists playlists", func(t *testing.T) {
		tr := newTestRunner(t, mockSpotify())

		if err := tr.run("spotify", "playlists", "--limit", "1"); err != nil {
			t.Fatalf("playlists failed: %v", err)
		}
		out := tr.out.String()
		if !strings.Contains(out, "Found 1 playlists") || !strings.Contains(out, "spotify:playlist:"+playlistID) {
			t.Errorf("unexpected output %q", out)
		}
		if strings.Contains(out, "Scratch") {
			t.Error("expected limit to apply")
		}
	})

	t.Run("json output", func(t *testing.T) {
		tr := newTestRunner(t, mockSpotify())

		if err := tr.run("spotify", "playlists", "--json"); err != nil {
			t.Fatalf("playlists failed: %v", err)
		}
		if !strings.HasPrefix(tr.out.String(), "[{") {
			t.Errorf("expected JSON array, got %q", tr.out.String())
		}
	})
}

func TestSetupConfigCommand(t *testing.T) {
	tr := newTestRunner(t, mockSpotify())

	if err := tr.run("setup", "config"); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	tu.AssertFileExists(t, tr.configPath)

	if _, err := shared.LoadConfig(tr.configPath); err != nil {
		t.Errorf("written config does not load: %v", err)
	}

	if err := tr.run("setup", "config"); err == nil {
		t.Error("expected error when config already exists")
	}
}

func TestBefore(t *testing.T) {
	t.Run("loads config and log level", func(t *testing.T) {
		tr := newTestRunner(t, mockSpotify())

		config := shared.DefaultConfig()
		config.Export.Workers = 4
		config.Log.Level = "debug"
		if err := shared.SaveConfig(tr.configPath, config); err != nil {
			t.Fatal(err)
		}

		if err := tr.run("spotify", "playlists"); err != nil {
			t.Fatalf("run failed: %v", err)
		}
		if tr.config.Export.Workers != 4 {
			t.Errorf("expected workers 4 from file, got %d", tr.config.Export.Workers)
		}
		if tr.logger.GetLevel() != log.DebugLevel {
			t.Errorf("expected debug level, got %v", tr.logger.GetLevel())
		}
	})

	t.Run("flag overrides level", func(t *testing.T) {
		tr := newTestRunner(t, mockSpotify())

		argv := []string{"djcsv", "--config", tr.configPath, "--log-level", "error", "spotify", "playlists"}
		if err := newApp(tr.Runner).Run(context.Background(), argv); err != nil {
			t.Fatalf("run failed: %v", err)
		}
		if tr.logger.GetLevel() != log.ErrorLevel {
			t.Errorf("expected error level, got %v", tr.logger.GetLevel())
		}
	})

	t.Run("invalid level fails", func(t *testing.T) {
		tr := newTestRunner(t, mockSpotify())

		argv := []string{"djcsv", "--config", tr.configPath, "--log-level", "loud", "spotify", "playlists"}
		if err := newApp(tr.Runner).Run(context.Background(), argv); !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}
