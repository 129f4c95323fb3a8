package reranker

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fieldops/ticketd/internal/llm"
	"github.com/fieldops/ticketd/internal/scoring"
	"github.com/fieldops/ticketd/internal/ticket"
)

const (
	// DefaultAlpha weights the LLM judgment against recency.
	DefaultAlpha = 0.8

	// DefaultConcurrency bounds the fan-out of per-candidate LLM calls.
	DefaultConcurrency = 5

	// ratingMaxTokens caps the numeric-rating reply; the model is asked for a
	// single decimal number.
	ratingMaxTokens = 10
)

// Reranker scores query/ticket pairs with an LLM relevance rating fused with
// recency decay.
type Reranker struct {
	llmClient   llm.LLM
	model       string
	alpha       float64
	concurrency int
	logger      *slog.Logger
	now         func() time.Time
}

// Option is a functional option for configuring Reranker.
type Option func(*Reranker)

// WithModel sets the model to use for relevance rating.
func WithModel(model string) Option {
	return func(r *Reranker) {
		r.model = model
	}
}

// WithAlpha sets the AI-vs-recency weight.
func WithAlpha(alpha float64) Option {
	return func(r *Reranker) {
		r.alpha = alpha
	}
}

// WithConcurrency sets the fan-out bound for ScoreAll.
func WithConcurrency(n int) Option {
	return func(r *Reranker) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithLogger sets the logger for fail-open score degradations.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reranker) {
		r.logger = logger
	}
}

// WithClock overrides the time source. Tests use it to pin recency.
func WithClock(now func() time.Time) Option {
	return func(r *Reranker) {
		r.now = now
	}
}

// New creates an LLM-based reranker.
func New(llmClient llm.LLM, opts ...Option) *Reranker {
	r := &Reranker{
		llmClient:   llmClient,
		model:       llm.DefaultModel,
		alpha:       DefaultAlpha,
		concurrency: DefaultConcurrency,
		logger:      slog.Default(),
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// ScoreTicket scores a single query/ticket pair. It never fails: degraded
// sub-scores fall back to 0.0 and are logged.
func (r *Reranker) ScoreTicket(ctx context.Context, query string, t ticket.Ticket) Score {
	ai := r.aiScore(ctx, query, t)
	recency := r.recencyScore(t)

	return Score{
		AI:       ai,
		Recency:  recency,
		Combined: r.alpha*ai + (1-r.alpha)*recency,
	}
}

// ScoreAll scores every candidate with bounded concurrency and returns the
// scores indexed by the original candidate order. All candidates are scored;
// the final ranker's tie-break is defined over the original retrieval order,
// not LLM response arrival order, so position in the result slice is the
// position in the input.
func (r *Reranker) ScoreAll(ctx context.Context, query string, tickets []ticket.Ticket) []Score {
	scores := make([]Score, len(tickets))

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, r.concurrency)

	for i, t := range tickets {
		wg.Add(1)
		go func(idx int, tk ticket.Ticket) {
			defer wg.Done()

			// Acquire semaphore
			select {
			case semaphore <- struct{}{}:
				defer func() { <-semaphore }()
			case <-ctx.Done():
				return
			}

			scores[idx] = r.ScoreTicket(ctx, query, tk)
		}(i, t)
	}

	wg.Wait()
	return scores
}

// aiScore asks the LLM for a single numeric relevance rating in [0,1].
// Transport and parse failures degrade to 0.0.
func (r *Reranker) aiScore(ctx context.Context, query string, t ticket.Ticket) float64 {
	prompt := buildRatingPrompt(query, t)

	opts := llm.GenerateOptions{
		Model:       r.model,
		Temperature: 0, // Deterministic scoring
		MaxTokens:   ratingMaxTokens,
	}

	response, err := r.llmClient.Generate(ctx, prompt, opts)
	if err != nil {
		r.logger.Warn("relevance rating failed, scoring 0",
			"ticket_id", t.TicketID, "error", err)
		return 0.0
	}

	score, err := parseRating(response)
	if err != nil {
		r.logger.Warn("unparsable relevance rating, scoring 0",
			"ticket_id", t.TicketID, "reply", response, "error", err)
		return 0.0
	}

	return scoring.Clamp01(score)
}

// recencyScore computes the time-decay score, logging unparsable dates.
func (r *Reranker) recencyScore(t ticket.Ticket) float64 {
	if strings.TrimSpace(t.DateFinished1) == "" {
		return 0.0 // treat missing dates as old
	}

	finishedAt, err := scoring.ParseFinishedAt(t.DateFinished1, t.TimeFinished1)
	if err != nil {
		r.logger.Warn("unparsable ticket finish date, scoring 0",
			"ticket_id", t.TicketID, "date", t.DateFinished1, "error", err)
		return 0.0
	}

	return scoring.Recency(finishedAt, r.now())
}

// buildRatingPrompt constructs the numeric-rating prompt.
func buildRatingPrompt(query string, t ticket.Ticket) string {
	var sb strings.Builder
	sb.WriteString("Query: \"")
	sb.WriteString(query)
	sb.WriteString("\"\nTicket: \"")
	sb.WriteString(t.Summary())
	sb.WriteString("\"\nRate the relevance from 0 (not relevant) to 1 (highly relevant).\n")
	sb.WriteString("Return only the numeric value.")
	return sb.String()
}

// parseRating extracts the decimal rating from the LLM reply.
func parseRating(response string) (float64, error) {
	response = strings.TrimSpace(response)
	score, err := strconv.ParseFloat(response, 64)
	if err != nil {
		return 0, fmt.Errorf("expected a decimal rating: %w", err)
	}
	return score, nil
}
