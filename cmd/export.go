package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/djcsv/internal/models"
	"github.com/desertthunder/djcsv/internal/shared"
	"github.com/desertthunder/djcsv/internal/tasks"
	"github.com/desertthunder/djcsv/internal/ui"
	"github.com/urfave/cli/v3"
)

// Export writes a DJ CSV for every playlist reference given as an argument.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	refs, err := parseRefs(cmd.Args().Slice())
	if err != nil {
		return err
	}

	output := cmd.String("output")
	if output == "" {
		output = r.config.Export.OutputDir
	}
	toStdout := output == "-"
	if toStdout && len(refs) > 1 {
		return fmt.Errorf("%w: --output - accepts a single playlist", shared.ErrInvalidArgument)
	}

	workers := cmd.Int("workers")
	if workers == 0 {
		workers = r.config.Export.Workers
	}

	svc, err := r.service(ctx)
	if err != nil {
		return authHint(err)
	}

	var sink tasks.FileSink = tasks.NewDirSink(output)
	if toStdout {
		sink = tasks.NewWriterSink(r.output)
	}

	p, err := r.newPipeline(svc, ui.NewNotifier(r.notices), sink)
	if err != nil {
		return err
	}
	defer p.Close()

	progress := make(chan tasks.ProgressUpdate, 32)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			r.logger.Debug(update.Message, "phase", update.Phase, "step", update.Step, "total", update.Total)
		}
	}()

	start := time.Now()
	result, err := p.exporter.ExportMany(ctx, progress, refs, tasks.ExportManyOpts{NumWorkers: workers})
	close(progress)
	<-done
	if err != nil {
		return err
	}

	r.summarize(ctx, p, result, time.Since(start))

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if result.FailedExports > 0 {
		return authHint(fmt.Errorf("%w: %d of %d playlists failed", shared.ErrExportFailed, result.FailedExports, result.TotalPlaylists))
	}
	return nil
}

// summarize prints one line per playlist followed by totals from the run history.
func (r *Runner) summarize(ctx context.Context, p *pipeline, result *tasks.BulkExportResult, elapsed time.Duration) {
	r.writeNotice("\n")
	for _, res := range result.Results {
		switch {
		case res.Error != nil:
			r.writeNotice("✗ %s: %v\n", res.Ref, res.Error)
		case res.Result.Empty:
			r.writeNotice("– %s: no tracks\n", res.Result.DisplayName())
		default:
			r.writeNotice("✓ %s → %s (%d tracks)\n", res.Result.DisplayName(), res.Result.Location, res.Result.Tracks)
		}
	}

	r.writeNotice("\nExported %d of %d playlists in %s", result.SuccessfulExports, result.TotalPlaylists, elapsed.Round(time.Millisecond))
	if result.EmptyPlaylists > 0 {
		r.writeNotice(", %d empty", result.EmptyPlaylists)
	}
	if result.FailedExports > 0 {
		r.writeNotice(", %d failed", result.FailedExports)
	}
	r.writeNotice("\n")

	runs, err := p.runs.List(ctx, "")
	if err != nil {
		r.logger.Warn("failed to list export runs", "error", err)
		return
	}
	for _, run := range runs {
		r.logger.Debug("export run", "id", run.ID, "seq", run.Sequence, "playlist", run.PlaylistID,
			"status", run.Status, "tracks", run.Tracks, "duration", run.Duration())
	}

	if n, err := p.genres.Count(ctx); err == nil {
		r.logger.Debug("genre cache", "artists", n)
	}
}

// parseRefs accepts playlist URLs, URIs and bare ids. Anything else is rejected before any request is made.
func parseRefs(args []string) ([]models.PlaylistRef, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: at least one playlist reference", shared.ErrMissingArgument)
	}

	refs := make([]models.PlaylistRef, 0, len(args))
	for _, arg := range args {
		ref, ok := models.ParsePlaylistRef(arg)
		if !ok {
			return nil, fmt.Errorf("%w: %q", shared.ErrInvalidPlaylistRef, arg)
		}
		refs = append(refs, ref)
	}
	return refs, nil
}
