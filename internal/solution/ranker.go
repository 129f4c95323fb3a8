// Package solution ranks a ticket's remediation steps by a fixed escalation
// hierarchy weighted with community feedback.
package solution

import (
	"sort"
	"strings"

	"github.com/fieldops/ticketd/internal/ticket"
)

// Solution tier keys. solution1 is the first escalation tier and carries the
// highest default trust.
const (
	Key1 = "solution1"
	Key2 = "solution2"
	Key3 = "solution3"
)

// hierarchyWeight is the fixed trust weight per escalation tier.
var hierarchyWeight = map[string]float64{
	Key1: 1.0,
	Key2: 0.8,
	Key3: 0.6,
}

// presentationOrder is the fixed order solutions are collected in before
// scoring. Ranking does not depend on it: ties resolve by hierarchy key.
var presentationOrder = [...]string{Key3, Key2, Key1}

// Candidate is one ranked remediation step.
type Candidate struct {
	Key           string
	Text          string
	FeedbackCount int64

	// FinalScore is (1 + 0.5*FeedbackCount) * hierarchyWeight.
	FinalScore float64

	// Confidence is FinalScore normalized so the top-ranked candidate is
	// exactly 1.0.
	Confidence float64
}

// ValidKey reports whether key names a known solution tier.
func ValidKey(key string) bool {
	_, ok := hierarchyWeight[key]
	return ok
}

// HierarchyWeight returns the tier's fixed trust weight.
func HierarchyWeight(key string) float64 {
	if w, ok := hierarchyWeight[key]; ok {
		return w
	}
	return 0.5
}

// Included reports whether a solution text takes part in ranking. The
// ingestion job passes spreadsheet cells through verbatim, so empty strings
// and the "nan" null marker both mean "no solution at this tier".
func Included(text string) bool {
	text = strings.TrimSpace(text)
	return text != "" && strings.ToLower(text) != "nan"
}

// Rank scores and orders the ticket's solutions. countFor supplies the
// feedback count per tier key; lookup failures are the caller's to absorb
// (degrade to 0).
//
// Order is descending FinalScore. Equal scores resolve by ascending hierarchy
// key (solution1 before solution2 before solution3), an explicit tie-break
// independent of the presentation iteration order.
func Rank(t ticket.Ticket, countFor func(solutionKey string) int64) []Candidate {
	candidates := make([]Candidate, 0, len(presentationOrder))

	for _, key := range presentationOrder {
		text := strings.TrimSpace(t.Solution(key))
		if !Included(text) {
			continue
		}

		count := countFor(key)
		if count < 0 {
			count = 0
		}
		feedbackScore := 1 + 0.5*float64(count)

		candidates = append(candidates, Candidate{
			Key:           key,
			Text:          text,
			FeedbackCount: count,
			FinalScore:    feedbackScore * HierarchyWeight(key),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].FinalScore != candidates[j].FinalScore {
			return candidates[i].FinalScore > candidates[j].FinalScore
		}
		return candidates[i].Key < candidates[j].Key
	})

	if len(candidates) > 0 {
		max := candidates[0].FinalScore
		for i := range candidates {
			candidates[i].Confidence = candidates[i].FinalScore / max
		}
	}

	return candidates
}
