package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fieldops/ticketd/internal/config"
	"github.com/fieldops/ticketd/internal/embedder"
	"github.com/fieldops/ticketd/internal/feedback"
	"github.com/fieldops/ticketd/internal/index"
	"github.com/fieldops/ticketd/internal/llm"
	"github.com/fieldops/ticketd/internal/reranker"
	"github.com/fieldops/ticketd/internal/scoring"
	"github.com/fieldops/ticketd/internal/server"
	"github.com/fieldops/ticketd/internal/service"
	"github.com/fieldops/ticketd/internal/session"
	"github.com/fieldops/ticketd/internal/summarizer"
	"github.com/fieldops/ticketd/internal/ticket"
)

func main() {
	// Set up structured logging
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("failed to run server", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	slog.Info("starting ticket recommendation service",
		"http_port", cfg.HTTPPort,
		"environment", cfg.Environment,
		"index_backend", cfg.IndexBackend,
		"feedback_backend", cfg.FeedbackBackend,
	)

	// Initialize feedback store
	feedbackStore, err := newFeedbackStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open feedback store: %w", err)
	}
	defer feedbackStore.Close()
	slog.Info("connected to feedback store", "backend", cfg.FeedbackBackend)

	// Initialize ticket catalog
	catalog, closeIndex, err := newCatalog(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to load ticket catalog: %w", err)
	}
	defer closeIndex()
	slog.Info("loaded ticket catalog",
		"backend", cfg.IndexBackend,
		"tickets", len(catalog.Snapshot().Tickets),
	)

	// Initialize Ollama embedder
	embed := embedder.NewOllamaEmbedder(embedder.OllamaConfig{
		BaseURL:   cfg.OllamaURL,
		Model:     cfg.EmbeddingModel,
		Dimension: cfg.EmbeddingDimension,
		Timeout:   cfg.EmbeddingTimeout,
	})
	slog.Info("initialized Ollama embedder", "model", cfg.EmbeddingModel)

	// Initialize Ollama LLM
	llmClient := llm.NewOllamaClient(
		llm.WithBaseURL(cfg.OllamaURL),
		llm.WithModel(cfg.RerankModel),
	)
	slog.Info("initialized Ollama LLM",
		"rerank_model", cfg.RerankModel,
		"summary_model", cfg.SummaryModel,
	)

	rerank := reranker.New(llmClient,
		reranker.WithModel(cfg.RerankModel),
		reranker.WithAlpha(cfg.RerankAlpha),
		reranker.WithConcurrency(cfg.RerankConcurrency),
		reranker.WithLogger(slog.Default()),
	)

	summarize := summarizer.New(llmClient,
		summarizer.WithModel(cfg.SummaryModel),
		summarizer.WithLogger(slog.Default()),
	)

	sessions := session.NewStore(cfg.SessionTTL)

	recommender := service.New(catalog, embed, rerank, summarize, feedbackStore, sessions, service.Config{
		TopK:                   cfg.TopK,
		FusionWeights:          scoring.FusionWeights{Vector: cfg.VectorWeight, Keyword: cfg.KeywordWeight},
		FinalBeta:              cfg.FinalBeta,
		LowConfidenceThreshold: cfg.LowConfidenceThreshold,
		Logger:                 slog.Default(),
	})

	// Create HTTP server
	httpServer, err := server.NewHTTPServer(server.HTTPServerConfig{
		Port:           cfg.HTTPPort,
		Logger:         slog.Default(),
		AllowedOrigins: []string{"*"}, // Configure in production
		APIKey:         cfg.APIKey,
		AdminAPIKey:    cfg.AdminAPIKey,
		Ready:          feedbackStore.Ping,
	}, recommender)
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}

	// Start server
	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.Start(); err != nil {
			errCh <- err
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		slog.Info("received shutdown signal", "signal", sig)
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown HTTP server", "error", err)
	}

	slog.Info("server stopped")
	return nil
}

// newFeedbackStore opens the configured feedback backend.
func newFeedbackStore(ctx context.Context, cfg *config.Config) (feedback.Store, error) {
	switch cfg.FeedbackBackend {
	case "postgres":
		return feedback.NewPostgresStore(ctx, cfg.DatabaseURL)
	default:
		return feedback.NewSQLiteStore(cfg.FeedbackDBPath)
	}
}

// newCatalog builds the ticket catalog on the configured index backend. The
// returned closer releases the backend's connection, if it holds one.
func newCatalog(ctx context.Context, cfg *config.Config) (*ticket.Catalog, func(), error) {
	switch cfg.IndexBackend {
	case "qdrant":
		qd, err := index.NewQdrant(ctx, cfg.QdrantGRPCURL, cfg.QdrantCollection)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to Qdrant: %w", err)
		}
		catalog, err := ticket.NewCatalog(ctx, ticket.RemoteLoader(cfg.TicketsPath, qd, qd))
		if err != nil {
			qd.Close()
			return nil, nil, err
		}
		return catalog, func() { qd.Close() }, nil
	default:
		catalog, err := ticket.NewCatalog(ctx,
			ticket.FlatLoader(cfg.IndexPath, cfg.TicketsPath, cfg.EmbeddingDimension))
		if err != nil {
			return nil, nil, err
		}
		return catalog, func() {}, nil
	}
}

// Ensure interfaces are satisfied at compile time
var (
	_ embedder.Embedder          = (*embedder.OllamaEmbedder)(nil)
	_ llm.LLM                    = (*llm.OllamaClient)(nil)
	_ index.Searcher             = (*index.Flat)(nil)
	_ index.Searcher             = (*index.Qdrant)(nil)
	_ ticket.Counter             = (*index.Qdrant)(nil)
	_ feedback.Store             = (*feedback.SQLiteStore)(nil)
	_ feedback.Store             = (*feedback.PostgresStore)(nil)
	_ service.RerankScorer       = (*reranker.Reranker)(nil)
	_ service.SolutionSummarizer = (*summarizer.Summarizer)(nil)
	_ server.Recommender         = (*service.Recommender)(nil)
)
