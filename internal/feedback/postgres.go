package feedback

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store on a PostgreSQL table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a connection pool and ensures the feedback table
// exists.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS feedback (
			solution      TEXT PRIMARY KEY,
			success_count BIGINT NOT NULL DEFAULT 0 CHECK (success_count >= 0)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create feedback table: %w", err)
	}
	return nil
}

// Record atomically upserts the success counter. The single-statement
// ON CONFLICT increment makes concurrent records safe without caller locking.
func (s *PostgresStore) Record(ctx context.Context, key string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO feedback (solution, success_count)
		VALUES ($1, 1)
		ON CONFLICT (solution)
		DO UPDATE SET success_count = feedback.success_count + 1
	`, key)
	if err != nil {
		return fmt.Errorf("failed to record feedback: %w", err)
	}
	return nil
}

// Get returns the success count, 0 if the key has never been recorded.
func (s *PostgresStore) Get(ctx context.Context, key string) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx,
		`SELECT success_count FROM feedback WHERE solution = $1`, key,
	).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get feedback count: %w", err)
	}
	return count, nil
}

// Ping verifies the database is reachable.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Ensure PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)
