// Command tixindex builds the serving artifacts for ticketd: it embeds each
// ticket's search text and writes the flat vector index next to the ordered
// ticket metadata file. Vectors are written strictly in input order; the
// catalog depends on position i of the index matching record i of the
// metadata file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/fieldops/ticketd/internal/config"
	"github.com/fieldops/ticketd/internal/embedder"
	"github.com/fieldops/ticketd/internal/index"
	"github.com/fieldops/ticketd/internal/ticket"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("index build failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		ticketsPath = flag.String("tickets", "", "ticket metadata JSON array (defaults to TICKETS_PATH)")
		indexPath   = flag.String("out", "", "output index file (defaults to INDEX_PATH)")
		concurrency = flag.Int("concurrency", 4, "parallel embedding requests")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if *ticketsPath == "" {
		*ticketsPath = cfg.TicketsPath
	}
	if *indexPath == "" {
		*indexPath = cfg.IndexPath
	}
	if *concurrency <= 0 {
		return errors.New("concurrency must be positive")
	}

	tickets, err := ticket.LoadTickets(*ticketsPath)
	if err != nil {
		return err
	}
	if len(tickets) == 0 {
		return fmt.Errorf("no tickets in %s", *ticketsPath)
	}

	embed := embedder.NewOllamaEmbedder(embedder.OllamaConfig{
		BaseURL:   cfg.OllamaURL,
		Model:     cfg.EmbeddingModel,
		Dimension: cfg.EmbeddingDimension,
		Timeout:   cfg.EmbeddingTimeout,
	})

	slog.Info("building index",
		"tickets", len(tickets),
		"model", cfg.EmbeddingModel,
		"dimension", cfg.EmbeddingDimension,
		"out", *indexPath,
	)

	start := time.Now()
	vectors, err := embedAll(context.Background(), embed, tickets, *concurrency)
	if err != nil {
		// A partial index would shift every later position against the
		// metadata file, so any failure aborts the whole build.
		return err
	}

	flat, err := index.NewFlat(cfg.EmbeddingDimension)
	if err != nil {
		return err
	}
	for i, vec := range vectors {
		if err := flat.Add(vec); err != nil {
			return fmt.Errorf("adding vector for ticket %s: %w", tickets[i].TicketID, err)
		}
	}

	if err := flat.WriteFlatFile(*indexPath); err != nil {
		return err
	}

	slog.Info("index written",
		"vectors", flat.Len(),
		"path", *indexPath,
		"duration", time.Since(start),
	)
	return nil
}

// embedAll embeds every ticket's search text with bounded concurrency and
// returns the vectors in ticket order.
func embedAll(ctx context.Context, embed embedder.Embedder, tickets []ticket.Ticket, concurrency int) ([][]float32, error) {
	vectors := make([][]float32, len(tickets))
	errs := make([]error, len(tickets))

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, t := range tickets {
		wg.Add(1)
		go func(i int, t ticket.Ticket) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			vec, err := embed.Embed(ctx, t.SearchText())
			if err != nil {
				errs[i] = fmt.Errorf("embedding ticket %s: %w", t.TicketID, err)
				return
			}
			vectors[i] = vec
		}(i, t)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return vectors, nil
}
