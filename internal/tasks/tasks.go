package tasks

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/djcsv/internal/formatter"
	"github.com/desertthunder/djcsv/internal/lookup"
	"github.com/desertthunder/djcsv/internal/models"
	"github.com/desertthunder/djcsv/internal/services"
	"github.com/desertthunder/djcsv/internal/shared"
	"golang.org/x/sync/errgroup"
)

// User-facing notices.
const (
	FetchingNotice = "Fetching track data…"
	EmptyNotice    = "No tracks found in playlist."
	FailureNotice  = "Export failed. Check the log for details."
)

// SuccessNotice reports a finished export of n tracks.
func SuccessNotice(n int) string {
	return fmt.Sprintf("Successfully exported %d tracks!", n)
}

// Notifier shows short status messages to the user.
type Notifier interface {
	Notify(msg string, isError bool)
}

// FileSink delivers a finished CSV and returns where it ended up.
type FileSink interface {
	Deliver(content []byte, filename string) (string, error)
}

// RunRecorder stores export attempts.
type RunRecorder interface {
	Create(ctx context.Context, run *models.ExportRun) error
	Update(ctx context.Context, run *models.ExportRun) error
}

// ExportResult describes a finished export.
type ExportResult struct {
	RunID    string
	Playlist models.PlaylistRef
	Name     string // empty when the playlist name could not be fetched
	Tracks   int
	Filename string
	Location string
	Empty    bool // no tracks; nothing was written
}

// DisplayName returns the playlist name, or its id when the name is unknown.
func (r *ExportResult) DisplayName() string {
	if r.Name != "" {
		return r.Name
	}
	return r.Playlist.ID
}

// Exporter joins a playlist's items with their audio features, ISRCs and artist genres and writes
// the result as a DJ CSV.
type Exporter struct {
	provider services.PlaylistProvider
	lookups  *lookup.Lookups
	notifier Notifier
	sink     FileSink
	runs     RunRecorder
	logger   *log.Logger
}

// NewExporter creates an Exporter.
func NewExporter(provider services.PlaylistProvider, lookups *lookup.Lookups, notifier Notifier, sink FileSink, logger *log.Logger) *Exporter {
	if logger == nil {
		logger = log.Default()
	}
	return &Exporter{
		provider: provider,
		lookups:  lookups,
		notifier: notifier,
		sink:     sink,
		logger:   logger,
	}
}

// WithRuns records every export attempt in runs.
func (e *Exporter) WithRuns(runs RunRecorder) *Exporter {
	e.runs = runs
	return e
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *Exporter) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Export exports one playlist.
//
// An empty playlist is not an error: the user is told, no file is written and the result has
// Empty set. Any failure is logged with its cause, reported to the user with a single generic
// notice and returned wrapped in [shared.ErrExportFailed].
func (e *Exporter) Export(ctx context.Context, ref models.PlaylistRef, progress chan<- ProgressUpdate) (*ExportResult, error) {
	if e.provider == nil || e.lookups == nil {
		return nil, fmt.Errorf("%w: exporter not initialized", shared.ErrServiceUnavailable)
	}

	run := models.NewExportRun(shared.GenerateID(), ref.ID)
	logger := shared.WithLogger(e.logger, "export_id", run.ID, "playlist", ref.ID)

	e.notify(FetchingNotice, false)
	e.record(ctx, logger, run, true)

	result, err := e.export(ctx, ref, progress, logger)
	if err != nil {
		logger.Error("export failed", "error", err)
		e.notify(FailureNotice, true)

		run.Finish(models.ExportFailed, err)
		e.record(ctx, logger, run, false)
		return nil, fmt.Errorf("%w: %w", shared.ErrExportFailed, err)
	}

	result.RunID = run.ID
	run.PlaylistName = result.Name
	run.Tracks = result.Tracks
	run.Location = result.Location

	if result.Empty {
		logger.Info("playlist has no tracks")
		e.notify(EmptyNotice, true)
		run.Finish(models.ExportEmpty, nil)
	} else {
		logger.Info("export complete", "tracks", result.Tracks, "location", result.Location)
		e.notify(SuccessNotice(result.Tracks), false)
		run.Finish(models.ExportCompleted, nil)
	}

	e.record(ctx, logger, run, false)
	return result, nil
}

func (e *Exporter) export(ctx context.Context, ref models.PlaylistRef, progress chan<- ProgressUpdate, logger *log.Logger) (*ExportResult, error) {
	e.sendProgress(progress, fetchPlaylistUpdate(ref))

	var (
		items []models.PlaylistItem
		name  string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		all, err := e.provider.GetContents(gctx, ref)
		if err != nil {
			return fmt.Errorf("failed to fetch playlist contents: %w", err)
		}
		items = filterTracks(all)
		logger.Debug("playlist contents", "items", len(all), "tracks", len(items))
		return nil
	})
	g.Go(func() error {
		meta, err := e.provider.GetMetadata(gctx, ref)
		if err != nil {
			logger.Warn("playlist name unavailable", "error", err)
			return nil
		}
		name = meta.Name
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &ExportResult{Playlist: ref, Name: name}
	if len(items) == 0 {
		result.Empty = true
		return result, nil
	}

	trackIDs := make([]string, len(items))
	var artistIDs []string
	for i, item := range items {
		trackIDs[i] = item.TrackID()
		artistIDs = append(artistIDs, item.ArtistIDs()...)
	}
	artistIDs = lookup.Dedupe(artistIDs)

	e.sendProgress(progress, fetchMetadataUpdate(len(trackIDs), len(artistIDs)))

	var (
		features []models.AudioFeatures
		isrcs    []string
		genres   map[string][]string
	)

	g, gctx = errgroup.WithContext(ctx)
	g.Go(func() error {
		features = e.lookups.Features.Ordered(gctx, trackIDs)
		return nil
	})
	g.Go(func() error {
		isrcs = e.lookups.ISRCs.Ordered(gctx, trackIDs)
		return nil
	})
	g.Go(func() error {
		genres = e.lookups.Genres.Lookup(gctx, artistIDs)
		return nil
	})
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("metadata lookup interrupted: %w", err)
	}

	records := joinRecords(items, trackIDs, features, isrcs, genres)

	e.sendProgress(progress, encodeUpdate(len(records)))
	content := formatter.EncodeCSV(records)
	filename := formatter.ExportFilename(name, ref.ID)

	e.sendProgress(progress, deliverUpdate(filename))
	location, err := e.sink.Deliver(content, filename)
	if err != nil {
		return nil, fmt.Errorf("failed to deliver %s: %w", filename, err)
	}

	result.Tracks = len(records)
	result.Filename = filename
	result.Location = location
	return result, nil
}

// joinRecords zips the per-track lookups with the playlist items. All slices are aligned with items.
func joinRecords(
	items []models.PlaylistItem,
	trackIDs []string,
	features []models.AudioFeatures,
	isrcs []string,
	genres map[string][]string,
) []models.TrackRecord {
	records := make([]models.TrackRecord, len(items))
	for i, item := range items {
		artistIDs := item.ArtistIDs()
		lists := make([][]string, 0, len(artistIDs))
		for _, id := range artistIDs {
			lists = append(lists, genres[id])
		}

		f := features[i]
		records[i] = models.TrackRecord{
			Title:     item.Name,
			Artist:    item.ArtistNames(),
			Album:     item.Album,
			ISRC:      isrcs[i],
			SpotifyID: trackIDs[i],
			Tempo:     f.Tempo,
			Key:       f.Key,
			Mode:      f.Mode,
			Energy:    f.Energy,
			Genres:    lookup.Merge(lists...),
		}
	}
	return records
}

func filterTracks(items []models.PlaylistItem) []models.PlaylistItem {
	tracks := make([]models.PlaylistItem, 0, len(items))
	for _, item := range items {
		if item.IsTrack() {
			tracks = append(tracks, item)
		}
	}
	return tracks
}

func (e *Exporter) notify(msg string, isError bool) {
	if e.notifier != nil {
		e.notifier.Notify(msg, isError)
	}
}

// record stores run. Errors are logged, not returned.
func (e *Exporter) record(ctx context.Context, logger *log.Logger, run *models.ExportRun, create bool) {
	if e.runs == nil {
		return
	}

	ctx = context.WithoutCancel(ctx)
	var err error
	if create {
		err = e.runs.Create(ctx, run)
	} else {
		err = e.runs.Update(ctx, run)
	}
	if err != nil {
		logger.Warn("failed to record export run", "status", run.Status, "error", err)
	}
}
