package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// maxQueryParams keeps IN (...) lists well below SQLite's bound variable limit.
const maxQueryParams = 500

// GenreRepository caches artist genre lists in SQLite.
//
// Entries older than ttl are ignored on read and purged on write. When maxEntries is positive
// the oldest entries beyond it are evicted after every write.
type GenreRepository struct {
	db         *sql.DB
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

// NewGenreRepository creates a new GenreRepository. A zero ttl keeps entries forever and a zero
// maxEntries leaves the table unbounded.
func NewGenreRepository(db *sql.DB, ttl time.Duration, maxEntries int) *GenreRepository {
	return &GenreRepository{db: db, ttl: ttl, maxEntries: maxEntries, now: time.Now}
}

// GetMany returns cached genres for the ids present and fresh in the cache.
func (r *GenreRepository) GetMany(ctx context.Context, artistIDs []string) (map[string][]string, error) {
	out := make(map[string][]string, len(artistIDs))

	for start := 0; start < len(artistIDs); start += maxQueryParams {
		chunk := artistIDs[start:min(start+maxQueryParams, len(artistIDs))]

		args := make([]any, 0, len(chunk)+1)
		for _, id := range chunk {
			args = append(args, id)
		}
		args = append(args, r.cutoff())

		query := fmt.Sprintf(`
			SELECT artist_id, genres
			FROM artist_genres
			WHERE artist_id IN (%s) AND cached_at >= ?
		`, placeholders(len(chunk)))

		if err := r.scanInto(ctx, out, query, args...); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// PutMany stores genres, replacing existing entries, then applies expiry and the size bound.
func (r *GenreRepository) PutMany(ctx context.Context, genres map[string][]string) error {
	if len(genres) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO artist_genres (artist_id, genres, cached_at)
		VALUES (?, ?, ?)
		ON CONFLICT(artist_id) DO UPDATE SET genres = excluded.genres, cached_at = excluded.cached_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	cachedAt := r.now().UnixNano()
	for id, list := range genres {
		if list == nil {
			list = []string{}
		}
		data, err := json.Marshal(list)
		if err != nil {
			return fmt.Errorf("failed to encode genres for %s: %w", id, err)
		}
		if _, err := stmt.ExecContext(ctx, id, string(data), cachedAt); err != nil {
			return fmt.Errorf("failed to cache genres for %s: %w", id, err)
		}
	}

	if r.ttl > 0 {
		if _, err := tx.ExecContext(ctx, `DELETE FROM artist_genres WHERE cached_at < ?`, r.cutoff()); err != nil {
			return fmt.Errorf("failed to purge expired genres: %w", err)
		}
	}

	if r.maxEntries > 0 {
		_, err := tx.ExecContext(ctx, `
			DELETE FROM artist_genres
			WHERE artist_id NOT IN (
				SELECT artist_id FROM artist_genres ORDER BY cached_at DESC, rowid DESC LIMIT ?
			)
		`, r.maxEntries)
		if err != nil {
			return fmt.Errorf("failed to evict genres: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit genres: %w", err)
	}
	return nil
}

// Count returns the number of cached entries, including expired ones not yet purged.
func (r *GenreRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM artist_genres`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count genres: %w", err)
	}
	return n, nil
}

func (r *GenreRepository) cutoff() int64 {
	if r.ttl <= 0 {
		return 0
	}
	return r.now().Add(-r.ttl).UnixNano()
}

func (r *GenreRepository) scanInto(ctx context.Context, out map[string][]string, query string, args ...any) error {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to query genres: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return fmt.Errorf("failed to scan genres: %w", err)
		}

		var genres []string
		if err := json.Unmarshal([]byte(data), &genres); err != nil {
			return fmt.Errorf("failed to decode genres for %s: %w", id, err)
		}
		if genres == nil {
			genres = []string{}
		}
		out[id] = genres
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating genres: %w", err)
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
