// Package sqlite persists the global n-gram frequency table between the two
// corpus passes, plus the end-of-run drop summary.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS vocab (
	ngram TEXT PRIMARY KEY,
	count INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS run_summary (
	counter TEXT PRIMARY KEY,
	value INTEGER NOT NULL
);`

// VocabStore implements domain.VocabStore on SQLite. Pass one writes the
// frequency table; pass two treats it as read-only shared state.
type VocabStore struct {
	db *sql.DB
}

// Open opens (creating if needed) the vocabulary database at path. The
// caller should Close the store when done.
func Open(path string) (*VocabStore, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(10000)")
	if err != nil {
		return nil, fmt.Errorf("open vocab database: %w", err)
	}
	// Writers arrive from every pipeline worker at once. A single connection
	// queues their transactions instead of tripping SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init vocab schema: %w", err)
	}
	return &VocabStore{db: db}, nil
}

// Close closes the underlying database.
func (s *VocabStore) Close() error {
	return s.db.Close()
}

// Reset clears any frequency table left over from a previous run.
func (s *VocabStore) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM vocab`); err != nil {
		return fmt.Errorf("reset vocab: %w", err)
	}
	return nil
}

// AddCounts folds a batch of n-gram counts into the global table.
func (s *VocabStore) AddCounts(ctx context.Context, counts map[string]int) error {
	if len(counts) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin vocab transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO vocab (ngram, count) VALUES (?, ?)
		ON CONFLICT (ngram) DO UPDATE SET count = count + excluded.count`)
	if err != nil {
		return fmt.Errorf("prepare vocab upsert: %w", err)
	}
	defer stmt.Close()

	for ngram, count := range counts {
		if _, err := stmt.ExecContext(ctx, ngram, count); err != nil {
			return fmt.Errorf("upsert ngram %q: %w", ngram, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit vocab transaction: %w", err)
	}
	return nil
}

// GlobalCounts loads the full frequency table.
func (s *VocabStore) GlobalCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT ngram, count FROM vocab`)
	if err != nil {
		return nil, fmt.Errorf("query vocab: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var ngram string
		var count int
		if err := rows.Scan(&ngram, &count); err != nil {
			return nil, fmt.Errorf("scan vocab row: %w", err)
		}
		counts[ngram] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vocab rows: %w", err)
	}
	return counts, nil
}

// SaveSummary upserts the end-of-run counter values.
func (s *VocabStore) SaveSummary(ctx context.Context, counters map[string]int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin summary transaction: %w", err)
	}
	defer tx.Rollback()

	for name, value := range counters {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO run_summary (counter, value) VALUES (?, ?)
			ON CONFLICT (counter) DO UPDATE SET value = excluded.value`,
			name, value,
		)
		if err != nil {
			return fmt.Errorf("upsert counter %q: %w", name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit summary transaction: %w", err)
	}
	return nil
}
