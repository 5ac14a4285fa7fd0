package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/djcsv/internal/lookup"
	"github.com/desertthunder/djcsv/internal/repositories"
	"github.com/desertthunder/djcsv/internal/services"
	"github.com/desertthunder/djcsv/internal/shared"
	"github.com/desertthunder/djcsv/internal/tasks"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	spotify    services.Service
	logger     *log.Logger
	output     io.Writer
	notices    io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Spotify    services.Service // built from Config on first use when nil
	Logger     *log.Logger
	Output     io.Writer // command results, CSV included when exporting to "-"
	Notices    io.Writer // export notices and summaries
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.ConfigPath == "" {
		opts.ConfigPath = "config.toml"
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Notices == nil {
		opts.Notices = os.Stderr
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		spotify:    opts.Spotify,
		logger:     opts.Logger,
		output:     opts.Output,
		notices:    opts.Notices,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		exportCommand, spotifyCommand, setupCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Before loads the configuration named by --config and applies the log level.
//
// A missing file is not an error: the embedded defaults are used and `djcsv setup config` can create one.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	r.configPath = cmd.String("config")

	if _, err := os.Stat(r.configPath); err == nil {
		config, err := shared.LoadConfig(r.configPath)
		if err != nil {
			return ctx, err
		}
		r.config = config
	} else {
		r.logger.Debug("config file not found, using defaults", "path", r.configPath)
	}

	level := r.config.Log.Level
	if override := cmd.String("log-level"); override != "" {
		level = override
	}
	lvl, err := shared.ParseLevel(level)
	if err != nil {
		return ctx, err
	}
	shared.SetLogLevel(r.logger, lvl)

	return ctx, nil
}

// SetLogger replaces the logger, e.g. with a file logger while the TUI owns the terminal.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// service returns the Spotify client. With a stored user token it acts for the user and persists
// refreshed tokens; otherwise it uses an application token, which can only read public playlists.
func (r *Runner) service(ctx context.Context) (services.Service, error) {
	if r.spotify != nil {
		return r.spotify, nil
	}

	svc, err := r.newSpotifyService()
	if err != nil {
		return nil, err
	}

	if token := r.config.Credentials.Spotify.Token(); token != nil {
		svc.SetTokenRefreshCallback(func(t *oauth2.Token) {
			if err := r.saveTokens(t); err != nil {
				r.logger.Warn("failed to persist refreshed token", "error", err)
			}
		})
		if err := svc.OAuthenticate(ctx, token); err != nil {
			return nil, err
		}
	} else {
		r.logger.Info("no user token stored, using client credentials (public playlists only)")
		if err := svc.AuthenticateApp(ctx); err != nil {
			return nil, err
		}
	}

	r.spotify = svc
	return svc, nil
}

// userService is [Runner.service] for commands that need the user's own library.
func (r *Runner) userService(ctx context.Context) (services.Service, error) {
	if r.spotify == nil && r.config.Credentials.Spotify.Token() == nil {
		return nil, fmt.Errorf("%w: run `djcsv spotify auth` first", shared.ErrNotAuthenticated)
	}
	return r.service(ctx)
}

func (r *Runner) newSpotifyService() (*services.SpotifyService, error) {
	creds := r.config.Credentials.Spotify
	if !creds.HasClient() {
		return nil, fmt.Errorf("%w: set credentials.spotify.client_id and client_secret in %s", shared.ErrMissingCredentials, r.configPath)
	}

	return services.NewSpotifyService(creds.Map(),
		services.WithBaseURL(r.config.Spotify.BaseURL),
		services.WithTimeout(r.config.Spotify.Timeout()),
	)
}

// saveTokens stores token in the config and writes it to the config path.
func (r *Runner) saveTokens(token *oauth2.Token) error {
	if r.config == nil {
		return fmt.Errorf("%w: config is nil", shared.ErrMissingConfig)
	}
	if err := r.config.Credentials.Spotify.Update(token); err != nil {
		return fmt.Errorf("failed to update spotify configuration: %w", err)
	}
	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		return err
	}
	r.logger.Debug("tokens saved", "path", r.configPath)
	return nil
}

// pipeline is an [tasks.Exporter] backed by an in-memory database that holds the genre cache
// and the export run history for the lifetime of one command.
type pipeline struct {
	exporter *tasks.Exporter
	runs     *repositories.ExportRunRepository
	genres   *repositories.GenreRepository
	db       *sql.DB
}

func (r *Runner) newPipeline(svc services.Service, notifier tasks.Notifier, sink tasks.FileSink) (*pipeline, error) {
	db, err := shared.OpenMigrated(shared.MemoryDSN)
	if err != nil {
		return nil, err
	}

	genres := repositories.NewGenreRepository(db, r.config.Cache.TTL(), r.config.Cache.MaxEntries)
	runs := repositories.NewExportRunRepository(db)
	lookups := lookup.New(svc, genres, r.config.Batch, r.config.Spotify.RequestsPerSecond, r.logger)

	return &pipeline{
		exporter: tasks.NewExporter(svc, lookups, notifier, sink, r.logger).WithRuns(runs),
		runs:     runs,
		genres:   genres,
		db:       db,
	}, nil
}

func (p *pipeline) Close() error {
	return p.db.Close()
}

// authHint adds a next step to errors the user can fix by authorizing again.
func authHint(err error) error {
	if errors.Is(err, shared.ErrTokenExpired) || errors.Is(err, shared.ErrNotAuthenticated) {
		return fmt.Errorf("%w (run `djcsv spotify auth` to authorize again)", err)
	}
	return err
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(append(output, '\n')); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	return writeTo(r.output, format, args...)
}

func (r *Runner) writeNotice(format string, args ...any) error {
	return writeTo(r.notices, format, args...)
}

func writeTo(w io.Writer, format string, args ...any) error {
	if _, err := fmt.Fprintf(w, format, args...); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
