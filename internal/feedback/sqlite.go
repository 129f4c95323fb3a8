package feedback

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store on an embedded SQLite database file. It is the
// default backend: a single counter table needs no external service.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database file and ensures the
// feedback table exists.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open feedback database: %w", err)
	}

	// SQLite permits one writer at a time; a single connection serializes
	// writes in-process so concurrent Record calls never lose updates.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS feedback (
			solution      TEXT PRIMARY KEY,
			success_count INTEGER NOT NULL DEFAULT 0 CHECK (success_count >= 0)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create feedback table: %w", err)
	}
	return nil
}

// Record atomically upserts the success counter.
func (s *SQLiteStore) Record(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO feedback (solution, success_count)
		VALUES (?, 1)
		ON CONFLICT (solution)
		DO UPDATE SET success_count = success_count + 1
	`, key)
	if err != nil {
		return fmt.Errorf("failed to record feedback: %w", err)
	}
	return nil
}

// Get returns the success count, 0 if the key has never been recorded.
func (s *SQLiteStore) Get(ctx context.Context, key string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT success_count FROM feedback WHERE solution = ?`, key,
	).Scan(&count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get feedback count: %w", err)
	}
	return count, nil
}

// Ping verifies the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ensure SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)
