// Package scoring holds the pure score functions of the retrieval pipeline:
// lexical keyword overlap, retrieval fusion, and recency decay. All scores
// are in [0,1].
package scoring

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
)

var wordPattern = regexp.MustCompile(`\w+`)

// KeywordOverlap returns the fraction of the query's distinct tokens that
// appear in text. Tokens are case-insensitive word matches; intersection is
// over sets, not multisets. A query with no tokens scores 0.
func KeywordOverlap(query, text string) float64 {
	queryWords := tokenSet(query)
	if len(queryWords) == 0 {
		return 0.0
	}

	textWords := tokenSet(text)
	overlap := 0
	for w := range queryWords {
		if _, ok := textWords[w]; ok {
			overlap++
		}
	}
	return float64(overlap) / float64(len(queryWords))
}

func tokenSet(s string) map[string]struct{} {
	words := wordPattern.FindAllString(strings.ToLower(s), -1)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// FusionWeights are the convex weights combining vector similarity with
// keyword overlap into one retrieval score.
type FusionWeights struct {
	Vector  float64
	Keyword float64
}

// DefaultFusionWeights favor semantic similarity over lexical overlap.
func DefaultFusionWeights() FusionWeights {
	return FusionWeights{Vector: 0.7, Keyword: 0.3}
}

// Validate rejects weight pairs that are not a convex combination.
func (w FusionWeights) Validate() error {
	if w.Vector < 0 || w.Keyword < 0 {
		return fmt.Errorf("fusion weights must be non-negative")
	}
	if sum := w.Vector + w.Keyword; math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("fusion weights must sum to 1, got %g", sum)
	}
	return nil
}

// Fuse combines the two retrieval signals. Inputs are clamped to [0,1] first,
// so the result is in [0,1] and monotone non-decreasing in each input.
func (w FusionWeights) Fuse(vectorScore, keywordScore float64) float64 {
	return w.Vector*Clamp01(vectorScore) + w.Keyword*Clamp01(keywordScore)
}

// finishedAtLayout parses the ingestion job's day.month.year + 24h time format.
const finishedAtLayout = "2.1.2006 15:04"

// ParseFinishedAt parses a ticket's finish date and time. A missing time
// defaults to midnight. An empty date is reported as an error so callers can
// log it; the score fallback is theirs to apply.
func ParseFinishedAt(dateVal, timeVal string) (time.Time, error) {
	if strings.TrimSpace(dateVal) == "" {
		return time.Time{}, fmt.Errorf("missing finish date")
	}
	if strings.TrimSpace(timeVal) == "" {
		timeVal = "00:00"
	}
	t, err := time.ParseInLocation(finishedAtLayout, dateVal+" "+timeVal, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing finish date: %w", err)
	}
	return t, nil
}

// Recency returns exp(-daysSince/365): 1.0 at zero elapsed time, smoothly
// decaying with a one-year characteristic scale. Finish times in the future
// clamp to 1.0.
func Recency(finishedAt, now time.Time) float64 {
	days := now.Sub(finishedAt).Hours() / 24
	if days <= 0 {
		return 1.0
	}
	return math.Exp(-days / 365)
}

// RecencyScore combines parsing and decay, treating absent or unparsable
// dates as maximally old (0.0). It never fails: recency is a soft signal and
// must not abort ticket selection.
func RecencyScore(dateVal, timeVal string, now time.Time) float64 {
	finishedAt, err := ParseFinishedAt(dateVal, timeVal)
	if err != nil {
		return 0.0
	}
	return Recency(finishedAt, now)
}

// Clamp01 clamps x to [0,1].
func Clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
