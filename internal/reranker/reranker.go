// Package reranker provides second-pass relevance adjustment for retrieved
// tickets.
//
// Re-ranking combines an LLM judgment of query/ticket relevance with a
// recency decay over the ticket's finish date. It is more expensive than
// retrieval (one LLM call per candidate) but substantially better at telling
// apart candidates whose vector scores are close.
//
// Scoring is fail-open: an unreachable LLM or an unparsable reply degrades
// that sub-score to 0.0 instead of failing the query. A rerank failure must
// not abort ticket selection.
package reranker

// Score is the rerank result for one ticket.
type Score struct {
	// AI is the LLM-judged semantic relevance, clamped to [0,1].
	AI float64

	// Recency is the exponential time-decay score in [0,1].
	Recency float64

	// Combined is alpha*AI + (1-alpha)*Recency.
	Combined float64
}
