// Package summarizer turns a ticket's raw solution texts into a prose list of
// troubleshooting steps, and screens summaries for risky actions.
package summarizer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fieldops/ticketd/internal/llm"
	"github.com/fieldops/ticketd/internal/solution"
	"github.com/fieldops/ticketd/internal/ticket"
)

const (
	// NoSolutionsMessage is returned for tickets without any usable solution.
	NoSolutionsMessage = "No solutions available for this ticket."

	// summaryFailedMessage is the fail-open fallback when the LLM call fails.
	summaryFailedMessage = "Error generating summary."

	// summaryTemperature keeps the summary close to the source text while
	// allowing minor rephrasing.
	summaryTemperature = 0.2

	summaryMaxTokens = 300
)

// riskPhrases are actions that warrant a safety warning before the user
// follows the summarized steps. Matching is case-insensitive substring.
var riskPhrases = []string{
	"factory reset",
	"full recovery",
	"delete",
	"reinstall os",
}

// Summarizer condenses a ticket's solutions into numbered steps via the LLM.
type Summarizer struct {
	llmClient llm.LLM
	model     string
	logger    *slog.Logger
}

// Option is a functional option for configuring Summarizer.
type Option func(*Summarizer)

// WithModel sets the model to use for summarization.
func WithModel(model string) Option {
	return func(s *Summarizer) {
		s.model = model
	}
}

// WithLogger sets the logger for fail-open degradations.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Summarizer) {
		s.logger = logger
	}
}

// New creates a Summarizer.
func New(llmClient llm.LLM, opts ...Option) *Summarizer {
	s := &Summarizer{
		llmClient: llmClient,
		model:     llm.DefaultModel,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Summarize combines the ticket's solutions into a numbered list of
// actionable steps. It never fails: an unusable reply degrades to a fixed
// message so the recommendation still renders.
func (s *Summarizer) Summarize(ctx context.Context, t ticket.Ticket) string {
	solutions := collectSolutions(t)
	if len(solutions) == 0 {
		return NoSolutionsMessage
	}

	prompt := buildSummaryPrompt(solutions)

	opts := llm.GenerateOptions{
		Model:       s.model,
		Temperature: summaryTemperature,
		MaxTokens:   summaryMaxTokens,
	}

	response, err := s.llmClient.Generate(ctx, prompt, opts)
	if err != nil {
		s.logger.Warn("solution summarization failed",
			"ticket_id", t.TicketID, "error", err)
		return summaryFailedMessage
	}

	return strings.TrimSpace(response)
}

// ContainsRiskPhrase reports whether the text mentions a system-reset class
// action the user should confirm backups before attempting.
func ContainsRiskPhrase(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range riskPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// collectSolutions gathers usable solution texts in escalation tier order.
func collectSolutions(t ticket.Ticket) []string {
	var solutions []string
	for _, key := range []string{solution.Key1, solution.Key2, solution.Key3} {
		text := strings.TrimSpace(t.Solution(key))
		if solution.Included(text) {
			solutions = append(solutions, text)
		}
	}
	return solutions
}

// buildSummaryPrompt constructs the step-summarization prompt.
func buildSummaryPrompt(solutions []string) string {
	var sb strings.Builder
	sb.WriteString("You are a technical support assistant.\n")
	sb.WriteString("Here are the solutions attempted for a ticket:\n")
	for i, sol := range solutions {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, sol))
	}
	sb.WriteString("\nSummarize these solutions into a numbered list of actionable steps only.\n")
	sb.WriteString("Do NOT include any notes, explanations, or assumptions.\n")
	sb.WriteString("Do NOT reference previous solutions.\n")
	sb.WriteString("Return only the numbered steps.")
	return sb.String()
}
