// Package service orchestrates the recommendation pipeline: hybrid retrieval,
// LLM reranking, final ticket selection, and feedback-weighted solution
// ranking.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fieldops/ticketd/internal/embedder"
	"github.com/fieldops/ticketd/internal/feedback"
	"github.com/fieldops/ticketd/internal/reranker"
	"github.com/fieldops/ticketd/internal/scoring"
	"github.com/fieldops/ticketd/internal/session"
	"github.com/fieldops/ticketd/internal/solution"
	"github.com/fieldops/ticketd/internal/summarizer"
	"github.com/fieldops/ticketd/internal/ticket"
)

var (
	// ErrSuperseded reports that a newer query on the same session arrived
	// while this one was in flight; its result was discarded uncommitted.
	ErrSuperseded = errors.New("query superseded by a newer request")

	// ErrNoCandidates reports an empty search result (e.g. an empty catalog).
	ErrNoCandidates = errors.New("no candidate tickets found")
)

// DefaultFinalBeta weights retrieval against reranking in the final score.
const DefaultFinalBeta = 0.6

// DefaultLowConfidenceThreshold marks recommendations that do not closely
// match any historical ticket.
const DefaultLowConfidenceThreshold = 0.3

// RerankScorer scores all candidates for a query, indexed by the original
// candidate order.
type RerankScorer interface {
	ScoreAll(ctx context.Context, query string, tickets []ticket.Ticket) []reranker.Score
}

// SolutionSummarizer condenses a ticket's solutions into prose steps.
type SolutionSummarizer interface {
	Summarize(ctx context.Context, t ticket.Ticket) string
}

// ScoredCandidate carries one retrieved ticket through the pipeline stages.
// All scores are in [0,1].
type ScoredCandidate struct {
	Position       int
	Ticket         ticket.Ticket
	VectorScore    float64
	KeywordScore   float64
	RetrievalScore float64
	RerankScore    float64
	FinalScore     float64
}

// Recommendation is the pipeline's final answer for one query.
type Recommendation struct {
	SessionID  string
	Ticket     ticket.Ticket
	Score      float64
	Solutions  []solution.Candidate
	Summary    string
	Candidates []ScoredCandidate

	// LowConfidence warns that the best match scored below the confidence
	// threshold and may be unreliable.
	LowConfidence bool

	// SafetyWarning flags summaries containing system-reset class actions.
	SafetyWarning bool
}

// Config holds the ranking parameters of the pipeline.
type Config struct {
	TopK                   int
	FusionWeights          scoring.FusionWeights
	FinalBeta              float64
	LowConfidenceThreshold float64
	Logger                 *slog.Logger
}

// Recommender runs the retrieval-and-ranking pipeline over the ticket catalog.
type Recommender struct {
	catalog   *ticket.Catalog
	embed     embedder.Embedder
	rerank    RerankScorer
	summarize SolutionSummarizer
	feedback  feedback.Store
	sessions  *session.Store

	topK          int
	weights       scoring.FusionWeights
	beta          float64
	lowConfidence float64
	logger        *slog.Logger
}

// New creates a Recommender.
func New(
	catalog *ticket.Catalog,
	embed embedder.Embedder,
	rerank RerankScorer,
	summarize SolutionSummarizer,
	feedbackStore feedback.Store,
	sessions *session.Store,
	cfg Config,
) *Recommender {
	topK := cfg.TopK
	if topK <= 0 {
		topK = 5
	}
	weights := cfg.FusionWeights
	if weights == (scoring.FusionWeights{}) {
		weights = scoring.DefaultFusionWeights()
	}
	beta := cfg.FinalBeta
	if beta <= 0 {
		beta = DefaultFinalBeta
	}
	threshold := cfg.LowConfidenceThreshold
	if threshold <= 0 {
		threshold = DefaultLowConfidenceThreshold
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Recommender{
		catalog:       catalog,
		embed:         embed,
		rerank:        rerank,
		summarize:     summarize,
		feedback:      feedbackStore,
		sessions:      sessions,
		topK:          topK,
		weights:       weights,
		beta:          beta,
		lowConfidence: threshold,
		logger:        logger,
	}
}

// Recommend runs the full pipeline for one query and commits the result to
// the session. If a newer query on the same session supersedes this one
// before commit, the result is discarded and ErrSuperseded returned.
//
// The query embedding is structurally required and fails the query; every
// downstream sub-score is fail-open so one flaky collaborator cannot abort
// ticket selection.
func (r *Recommender) Recommend(ctx context.Context, sessionID, query string) (*Recommendation, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}
	if sessionID == "" {
		return nil, fmt.Errorf("session ID is required")
	}

	token := r.sessions.Begin(sessionID)
	snap := r.catalog.Snapshot()

	// A repeated query skips retrieval and reranking but re-ranks solutions,
	// since feedback counts may have moved since the last time.
	if cached, ok := r.sessions.Cached(sessionID, query); ok {
		if cached.Position < len(snap.Tickets) && snap.Tickets[cached.Position].TicketID == cached.TicketID {
			return r.finish(ctx, sessionID, token, query, snap.Tickets[cached.Position], cached.Position, cached.Score, nil)
		}
		// The catalog was reloaded underneath the cache entry; fall through
		// to a fresh search.
	}

	queryVector, err := r.embed.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	hits, err := snap.Searcher.Search(ctx, queryVector, r.topK)
	if err != nil {
		return nil, fmt.Errorf("searching ticket index: %w", err)
	}
	if len(hits) == 0 {
		return nil, ErrNoCandidates
	}

	candidates := make([]ScoredCandidate, len(hits))
	tickets := make([]ticket.Ticket, len(hits))
	for i, hit := range hits {
		if hit.Position < 0 || hit.Position >= len(snap.Tickets) {
			return nil, fmt.Errorf("search hit position %d outside catalog of %d tickets",
				hit.Position, len(snap.Tickets))
		}
		t := snap.Tickets[hit.Position]
		tickets[i] = t

		keywordScore := scoring.KeywordOverlap(query, t.SearchText())
		candidates[i] = ScoredCandidate{
			Position:       hit.Position,
			Ticket:         t,
			VectorScore:    float64(hit.Score),
			KeywordScore:   keywordScore,
			RetrievalScore: r.weights.Fuse(float64(hit.Score), keywordScore),
		}
	}

	// Every candidate gets its own rerank pass: any of them could win after
	// reranking, so there is no early termination.
	rerankScores := r.rerank.ScoreAll(ctx, query, tickets)
	for i := range candidates {
		candidates[i].RerankScore = rerankScores[i].Combined
		candidates[i].FinalScore = r.beta*candidates[i].RetrievalScore + (1-r.beta)*candidates[i].RerankScore
	}

	best := selectBest(candidates)

	rec, err := r.finish(ctx, sessionID, token, query,
		candidates[best].Ticket, candidates[best].Position, candidates[best].FinalScore, candidates)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// finish ranks the winning ticket's solutions, summarizes them, attaches
// warnings, and commits the result under the request token.
func (r *Recommender) finish(ctx context.Context, sessionID string, token uint64, query string,
	t ticket.Ticket, position int, score float64, candidates []ScoredCandidate) (*Recommendation, error) {

	solutions := r.rankSolutions(ctx, t)
	summary := r.summarize.Summarize(ctx, t)

	committed := r.sessions.Commit(sessionID, token, session.Result{
		Query:    query,
		Position: position,
		TicketID: t.TicketID,
		Score:    score,
	})
	if !committed {
		r.logger.Debug("discarding superseded query result",
			"session_id", sessionID, "ticket_id", t.TicketID)
		return nil, ErrSuperseded
	}

	return &Recommendation{
		SessionID:     sessionID,
		Ticket:        t,
		Score:         score,
		Solutions:     solutions,
		Summary:       summary,
		Candidates:    candidates,
		LowConfidence: score < r.lowConfidence,
		SafetyWarning: summarizer.ContainsRiskPhrase(summary),
	}, nil
}

// rankSolutions orders the ticket's solutions, reading feedback counts
// best-effort: a store failure counts as 0 and is logged.
func (r *Recommender) rankSolutions(ctx context.Context, t ticket.Ticket) []solution.Candidate {
	return solution.Rank(t, func(solutionKey string) int64 {
		key := feedback.Key(t.TicketID, solutionKey)
		count, err := r.feedback.Get(ctx, key)
		if err != nil {
			r.logger.Warn("feedback lookup failed, counting 0", "key", key, "error", err)
			return 0
		}
		return count
	})
}

// SubmitFeedback records that a solution worked for the user and marks it in
// the session's clicked-set. The acknowledgment contract is strict: the
// session is only updated after the store accepted the write.
func (r *Recommender) SubmitFeedback(ctx context.Context, sessionID, ticketID, solutionKey string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}
	if ticketID == "" {
		return fmt.Errorf("ticket ID is required")
	}
	if !solution.ValidKey(solutionKey) {
		return fmt.Errorf("unknown solution key %q", solutionKey)
	}

	key := feedback.Key(ticketID, solutionKey)
	if err := r.feedback.Record(ctx, key); err != nil {
		r.logger.Error("recording feedback failed", "key", key, "error", err)
		return fmt.Errorf("recording feedback: %w", err)
	}

	r.sessions.MarkClicked(sessionID, ticketID, solutionKey)
	return nil
}

// Reload atomically swaps in a freshly validated catalog snapshot.
func (r *Recommender) Reload(ctx context.Context) error {
	return r.catalog.Reload(ctx)
}

// selectBest is a stable argmax over finalScore: ties keep the earliest
// candidate in the original top-k retrieval order.
func selectBest(candidates []ScoredCandidate) int {
	best := 0
	for i := 1; i < len(candidates); i++ {
		if candidates[i].FinalScore > candidates[best].FinalScore {
			best = i
		}
	}
	return best
}
