// package repositories provides the SQLite-backed stores used during an export session.
package repositories

import (
	"context"
	"database/sql"
	"fmt"
)

// NextSequence returns the next sequence number for table within tx.
//
// Sequence numbers give runs a stable, human-readable order independent of their UUIDs.
func NextSequence(ctx context.Context, tx *sql.Tx, table string) (int, error) {
	var sequence int
	query := fmt.Sprintf("SELECT COALESCE(MAX(sequence), 0) + 1 FROM %s", table)
	if err := tx.QueryRowContext(ctx, query).Scan(&sequence); err != nil {
		return 0, fmt.Errorf("failed to get sequence value: %w", err)
	}
	return sequence, nil
}
