package models

import (
	"fmt"
	"time"
)

// ExportStatus is the lifecycle state of an [ExportRun].
type ExportStatus string

const (
	ExportRunning   ExportStatus = "running"
	ExportCompleted ExportStatus = "completed"
	ExportEmpty     ExportStatus = "empty"
	ExportFailed    ExportStatus = "failed"
)

// ExportRun records one playlist export attempt.
type ExportRun struct {
	ID           string
	Sequence     int
	PlaylistID   string
	PlaylistName string
	Status       ExportStatus
	Tracks       int
	Location     string // where the CSV was delivered
	Error        string
	StartedAt    time.Time
	FinishedAt   *time.Time
}

// NewExportRun creates a running export for playlistID.
func NewExportRun(id, playlistID string) *ExportRun {
	return &ExportRun{
		ID:         id,
		PlaylistID: playlistID,
		Status:     ExportRunning,
		StartedAt:  time.Now(),
	}
}

// Finish moves the run to a terminal status.
func (r *ExportRun) Finish(status ExportStatus, err error) {
	now := time.Now()
	r.Status = status
	r.FinishedAt = &now
	if err != nil {
		r.Error = err.Error()
	}
}

// Duration returns how long the run took, or zero while it is running.
func (r *ExportRun) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Validate checks that the run can be stored.
func (r *ExportRun) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("export run id is required")
	}
	if r.PlaylistID == "" {
		return fmt.Errorf("playlist id is required")
	}
	switch r.Status {
	case ExportRunning, ExportCompleted, ExportEmpty, ExportFailed:
	default:
		return fmt.Errorf("invalid export status %q", r.Status)
	}
	return nil
}
