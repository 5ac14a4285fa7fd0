package tasks

import (
	"fmt"

	"github.com/desertthunder/djcsv/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchPlaylist Phase = iota
	FetchMetadata
	Encode
	Deliver
	ExportPlaylist
)

func (p Phase) String() string {
	switch p {
	case FetchPlaylist:
		return "fetch_playlist"
	case FetchMetadata:
		return "fetch_metadata"
	case Encode:
		return "encode"
	case Deliver:
		return "deliver"
	case ExportPlaylist:
		return "export_playlist"
	default:
		return ""
	}
}

func fetchPlaylistUpdate(ref models.PlaylistRef) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPlaylist,
		Step:    1,
		Total:   4,
		Message: fmt.Sprintf("Fetching playlist %s...", ref.ID),
	}
}

func fetchMetadataUpdate(tracks, artists int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchMetadata,
		Step:    2,
		Total:   4,
		Message: fmt.Sprintf("Fetching metadata for %d tracks and %d artists...", tracks, artists),
	}
}

func encodeUpdate(tracks int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Encode,
		Step:    3,
		Total:   4,
		Message: fmt.Sprintf("Encoding %d rows...", tracks),
	}
}

func deliverUpdate(filename string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Deliver,
		Step:    4,
		Total:   4,
		Message: fmt.Sprintf("Writing %s...", filename),
		Data:    filename,
	}
}

func exportingPlaylistUpdate(step, total int, ref models.PlaylistRef) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Exporting: %s...", step, total, ref.ID),
	}
}

func exportCompletedUpdate(step, total int, res *ExportResult) ProgressUpdate {
	msg := fmt.Sprintf("[%d/%d] ✓ %s (%d tracks)", step, total, res.DisplayName(), res.Tracks)
	if res.Empty {
		msg = fmt.Sprintf("[%d/%d] - %s (empty)", step, total, res.DisplayName())
	}
	return ProgressUpdate{
		Phase:   ExportPlaylist,
		Step:    step,
		Total:   total,
		Message: msg,
		Data:    res,
	}
}

func exportFailedUpdate(step, total int, ref models.PlaylistRef, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, ref.ID, err),
	}
}
