package ticket

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/fieldops/ticketd/internal/index"
)

// ErrAlignment reports a vector index whose item count does not match the
// ticket metadata store. Serving with misaligned state would silently attach
// the wrong ticket to every search hit, so the catalog refuses to load.
var ErrAlignment = errors.New("vector index and ticket metadata are misaligned")

// Snapshot is an immutable pairing of the ticket records with the index built
// over them. Queries hold one snapshot for their whole execution.
type Snapshot struct {
	Tickets  []Ticket
	Searcher index.Searcher
}

// Loader builds a fully validated snapshot from the backing files or services.
type Loader func(ctx context.Context) (*Snapshot, error)

// Catalog is the shared, read-only process-wide ticket state. Reload replaces
// the snapshot atomically; in-flight queries keep the snapshot they started
// with and only new queries observe the swap.
type Catalog struct {
	load Loader
	snap atomic.Pointer[Snapshot]
}

// NewCatalog loads the initial snapshot. A load failure here means the service
// must not start serving.
func NewCatalog(ctx context.Context, load Loader) (*Catalog, error) {
	c := &Catalog{load: load}
	if err := c.Reload(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Snapshot returns the current snapshot.
func (c *Catalog) Snapshot() *Snapshot {
	return c.snap.Load()
}

// Reload builds a new snapshot and swaps it in. On failure the previous
// snapshot stays in place.
func (c *Catalog) Reload(ctx context.Context) error {
	snap, err := c.load(ctx)
	if err != nil {
		return err
	}
	c.snap.Store(snap)
	return nil
}

// FlatLoader loads tickets and a flat index from disk and verifies their
// positional alignment and dimension.
func FlatLoader(indexPath, ticketsPath string, dimension int) Loader {
	return func(ctx context.Context) (*Snapshot, error) {
		tickets, err := LoadTickets(ticketsPath)
		if err != nil {
			return nil, err
		}

		idx, err := index.ReadFlatFile(indexPath)
		if err != nil {
			return nil, err
		}

		if idx.Dimension() != dimension {
			return nil, fmt.Errorf("%w: index dimension %d, expected %d",
				ErrAlignment, idx.Dimension(), dimension)
		}
		if idx.Len() != len(tickets) {
			return nil, fmt.Errorf("%w: index has %d items, metadata has %d tickets",
				ErrAlignment, idx.Len(), len(tickets))
		}

		return &Snapshot{Tickets: tickets, Searcher: idx}, nil
	}
}

// Counter reports the number of items behind a remote searcher.
type Counter interface {
	Count(ctx context.Context) (int, error)
}

// RemoteLoader loads tickets from disk and pairs them with a remote searcher,
// verifying the remote item count against the metadata length.
func RemoteLoader(ticketsPath string, searcher index.Searcher, counter Counter) Loader {
	return func(ctx context.Context) (*Snapshot, error) {
		tickets, err := LoadTickets(ticketsPath)
		if err != nil {
			return nil, err
		}

		count, err := counter.Count(ctx)
		if err != nil {
			return nil, fmt.Errorf("counting remote index items: %w", err)
		}
		if count != len(tickets) {
			return nil, fmt.Errorf("%w: remote index has %d items, metadata has %d tickets",
				ErrAlignment, count, len(tickets))
		}

		return &Snapshot{Tickets: tickets, Searcher: searcher}, nil
	}
}
