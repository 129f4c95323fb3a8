// Package feedback provides the persistent per-solution success counters that
// weight solution ranking.
package feedback

import (
	"context"
)

// Store defines the contract for the feedback counter table. Record must be
// atomic against concurrent callers (no lost updates); Get need not be
// linearizable with concurrent writes.
type Store interface {
	// Record inserts the key with count 1 if absent, otherwise increments
	// the count by 1.
	Record(ctx context.Context, key string) error

	// Get returns the success count for the key, 0 if absent.
	Get(ctx context.Context, key string) (int64, error)

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error

	// Close releases the underlying connections.
	Close() error
}

// Key builds the counter key for a ticket's solution tier, e.g. "4711_solution2".
func Key(ticketID, solutionKey string) string {
	return ticketID + "_" + solutionKey
}
