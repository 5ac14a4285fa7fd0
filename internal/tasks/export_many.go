package tasks

import (
	"context"
	"fmt"
	"sync"

	"github.com/desertthunder/djcsv/internal/models"
	"github.com/desertthunder/djcsv/internal/shared"
)

const (
	defaultWorkers = 2
	maxWorkers     = 8
)

// ExportManyOpts contains configuration for multi-playlist exports.
type ExportManyOpts struct {
	NumWorkers int // Concurrent exports (default: 2, max: 8)
}

// PlaylistExportResult is the outcome of one playlist in [Exporter.ExportMany].
type PlaylistExportResult struct {
	Ref    models.PlaylistRef
	Result *ExportResult // nil on failure
	Error  error
}

// BulkExportResult summarizes a multi-playlist export. Results keep the order of the input refs.
type BulkExportResult struct {
	TotalPlaylists    int
	SuccessfulExports int
	EmptyPlaylists    int
	FailedExports     int
	Results           []PlaylistExportResult
}

type exportJob struct {
	index int
	ref   models.PlaylistRef
}

// ExportMany exports several playlists with a bounded worker pool.
//
// A failed playlist does not stop the others. The lookups, and therefore the genre cache and the
// request pacing, are shared across all workers.
func (e *Exporter) ExportMany(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	refs []models.PlaylistRef,
	opts ExportManyOpts,
) (*BulkExportResult, error) {
	if len(refs) == 0 {
		return nil, fmt.Errorf("%w: no playlists to export", shared.ErrMissingArgument)
	}

	if opts.NumWorkers <= 0 {
		opts.NumWorkers = defaultWorkers
	}
	if opts.NumWorkers > maxWorkers {
		opts.NumWorkers = maxWorkers
	}
	opts.NumWorkers = min(opts.NumWorkers, len(refs))

	result := &BulkExportResult{
		TotalPlaylists: len(refs),
		Results:        make([]PlaylistExportResult, len(refs)),
	}

	jobs := make(chan exportJob, len(refs))
	results := make(chan exportJob, len(refs))

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go e.exportWorker(ctx, &wg, prog, jobs, results, result.Results)
	}

	for i, ref := range refs {
		jobs <- exportJob{index: i, ref: ref}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for job := range results {
		completed++
		res := result.Results[job.index]

		switch {
		case res.Error != nil:
			result.FailedExports++
			e.sendProgress(prog, exportFailedUpdate(completed, len(refs), res.Ref, res.Error))
		case res.Result.Empty:
			result.EmptyPlaylists++
			e.sendProgress(prog, exportCompletedUpdate(completed, len(refs), res.Result))
		default:
			result.SuccessfulExports++
			e.sendProgress(prog, exportCompletedUpdate(completed, len(refs), res.Result))
		}
	}

	for i := range result.Results {
		if result.Results[i].Ref.ID == "" {
			result.Results[i] = PlaylistExportResult{Ref: refs[i], Error: fmt.Errorf("%w: %v", shared.ErrExportFailed, context.Cause(ctx))}
			result.FailedExports++
		}
	}

	return result, nil
}

// exportWorker exports playlists from the jobs channel, writing each outcome to its slot in out.
func (e *Exporter) exportWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	prog chan<- ProgressUpdate,
	jobs <-chan exportJob,
	done chan<- exportJob,
	out []PlaylistExportResult,
) {
	defer wg.Done()

	for job := range jobs {
		if ctx.Err() != nil {
			return
		}

		e.sendProgress(prog, exportingPlaylistUpdate(job.index+1, len(out), job.ref))
		res, err := e.Export(ctx, job.ref, nil)
		out[job.index] = PlaylistExportResult{Ref: job.ref, Result: res, Error: err}
		done <- job
	}
}
