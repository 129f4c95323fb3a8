package index

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strconv"

	"github.com/qdrant/go-client/qdrant"
)

// positionKey is the payload field carrying the ticket's position in the
// metadata store. The ingestion job sets it on every point so that positional
// alignment survives the remote hop.
const positionKey = "position"

// Qdrant implements Searcher against a remote Qdrant collection.
type Qdrant struct {
	client     *qdrant.Client
	collection string
}

// NewQdrant creates a Qdrant-backed searcher.
// url should be in format "host:port" (e.g., "localhost:6334").
func NewQdrant(ctx context.Context, url, collection string) (*Qdrant, error) {
	host, portStr, err := net.SplitHostPort(url)
	if err != nil {
		// If no port specified, assume default
		host = url
		portStr = "6334"
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid port in qdrant url: %w", err)
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	exists, err := client.CollectionExists(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to check collection existence: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("qdrant collection %q does not exist", collection)
	}

	return &Qdrant{client: client, collection: collection}, nil
}

// Close closes the Qdrant client connection.
func (q *Qdrant) Close() error {
	return q.client.Close()
}

// Count returns the exact number of points in the collection. The catalog uses
// it to verify alignment with the ticket metadata store at startup.
func (q *Qdrant) Count(ctx context.Context) (int, error) {
	count, err := q.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: q.collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count points: %w", err)
	}
	return int(count), nil
}

// Search performs similarity search and maps each point back to its catalog
// position. Results follow the documented order: descending score, ties by
// ascending position.
func (q *Qdrant) Search(ctx context.Context, queryVector []float32, k int) ([]Hit, error) {
	if k <= 0 {
		return nil, nil
	}

	response, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQuery(queryVector...),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	hits := make([]Hit, 0, len(response))
	for _, point := range response {
		payload := point.Payload
		if payload == nil {
			return nil, fmt.Errorf("point %s has no payload", point.Id)
		}
		pos, ok := payload[positionKey]
		if !ok {
			return nil, fmt.Errorf("point %s has no %q payload field", point.Id, positionKey)
		}
		hits = append(hits, Hit{
			Position: int(pos.GetIntegerValue()),
			Score:    point.Score,
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return worseThan(hits[j], hits[i])
	})

	return hits, nil
}

// Ensure Qdrant implements Searcher.
var _ Searcher = (*Qdrant)(nil)
