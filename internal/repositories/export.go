package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/djcsv/internal/models"
)

// ExportRunRepository records export attempts for the current process.
type ExportRunRepository struct {
	db *sql.DB
}

// NewExportRunRepository creates a new ExportRunRepository with the given database connection
func NewExportRunRepository(db *sql.DB) *ExportRunRepository {
	return &ExportRunRepository{db: db}
}

// Create inserts run with the next sequence number.
func (r *ExportRunRepository) Create(ctx context.Context, run *models.ExportRun) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	sequence, err := NextSequence(ctx, tx, "export_runs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	query := `
		INSERT INTO export_runs (
			id, sequence, playlist_id, playlist_name, status, tracks,
			location, error_message, started_at, finished_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = tx.ExecContext(ctx, query,
		run.ID,
		sequence,
		run.PlaylistID,
		nullable(run.PlaylistName),
		string(run.Status),
		run.Tracks,
		nullable(run.Location),
		nullable(run.Error),
		run.StartedAt,
		run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert export run: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit export run: %w", err)
	}

	run.Sequence = sequence
	return nil
}

// Update stores the mutable fields of run.
func (r *ExportRunRepository) Update(ctx context.Context, run *models.ExportRun) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		UPDATE export_runs
		SET playlist_name = ?, status = ?, tracks = ?, location = ?, error_message = ?, finished_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		nullable(run.PlaylistName),
		string(run.Status),
		run.Tracks,
		nullable(run.Location),
		nullable(run.Error),
		run.FinishedAt,
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update export run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("export run not found: %s", run.ID)
	}

	return nil
}

// Get retrieves an export run by ID
func (r *ExportRunRepository) Get(ctx context.Context, id string) (*models.ExportRun, error) {
	query := `
		SELECT id, sequence, playlist_id, playlist_name, status, tracks, location, error_message, started_at, finished_at
		FROM export_runs
		WHERE id = ?
	`

	run, err := scanExportRun(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("export run not found: %s", id)
	}
	return run, err
}

// List retrieves export runs in creation order, optionally filtered by status.
func (r *ExportRunRepository) List(ctx context.Context, status models.ExportStatus) ([]*models.ExportRun, error) {
	query := `
		SELECT id, sequence, playlist_id, playlist_name, status, tracks, location, error_message, started_at, finished_at
		FROM export_runs
	`

	args := []any{}
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, string(status))
	}
	query += " ORDER BY sequence ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query export runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.ExportRun
	for rows.Next() {
		run, err := scanExportRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanExportRun scans a single row into a [models.ExportRun]
func scanExportRun(row scanner) (*models.ExportRun, error) {
	var (
		run          models.ExportRun
		status       string
		playlistName sql.NullString
		location     sql.NullString
		errorMessage sql.NullString
		startedAt    time.Time
		finishedAt   sql.NullTime
	)

	err := row.Scan(
		&run.ID, &run.Sequence, &run.PlaylistID, &playlistName, &status, &run.Tracks,
		&location, &errorMessage, &startedAt, &finishedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan export run: %w", err)
	}

	run.Status = models.ExportStatus(status)
	run.PlaylistName = playlistName.String
	run.Location = location.String
	run.Error = errorMessage.String
	run.StartedAt = startedAt
	if finishedAt.Valid {
		run.FinishedAt = &finishedAt.Time
	}

	return &run, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
