package scoring

import (
	"math"
	"testing"
	"time"
)

func TestKeywordOverlap(t *testing.T) {
	tests := []struct {
		name  string
		query string
		text  string
		want  float64
	}{
		{"full overlap", "printer offline", "printer went offline yesterday", 1.0},
		{"half overlap", "printer offline", "the printer is jammed", 0.5},
		{"no overlap", "printer offline", "disk full on server", 0.0},
		{"case insensitive", "PRINTER Offline", "printer OFFLINE", 1.0},
		{"set semantics in text", "printer", "printer printer printer", 1.0},
		{"duplicate query tokens count once", "printer printer offline", "printer is fine", 0.5},
		{"empty query", "", "anything", 0.0},
		{"punctuation only query", "!!! ...", "anything", 0.0},
		{"empty text", "printer", "", 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := KeywordOverlap(tt.query, tt.text)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("KeywordOverlap(%q, %q) = %g, want %g", tt.query, tt.text, got, tt.want)
			}
		})
	}
}

func TestKeywordOverlap_SelfIdentity(t *testing.T) {
	text := "network switch dropped all VLAN traffic after firmware update"
	if got := KeywordOverlap(text, text); got != 1.0 {
		t.Errorf("overlap of a text with itself = %g, want 1.0", got)
	}
}

func TestFusionWeights_Validate(t *testing.T) {
	tests := []struct {
		name    string
		weights FusionWeights
		wantErr bool
	}{
		{"defaults", DefaultFusionWeights(), false},
		{"even split", FusionWeights{Vector: 0.5, Keyword: 0.5}, false},
		{"does not sum to one", FusionWeights{Vector: 0.7, Keyword: 0.7}, true},
		{"negative weight", FusionWeights{Vector: 1.5, Keyword: -0.5}, true},
		{"zero", FusionWeights{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.weights.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFuse(t *testing.T) {
	w := DefaultFusionWeights()

	if got := w.Fuse(1.0, 1.0); math.Abs(got-1.0) > 1e-12 {
		t.Errorf("Fuse(1,1) = %g, want 1.0", got)
	}
	if got := w.Fuse(0, 0); got != 0 {
		t.Errorf("Fuse(0,0) = %g, want 0", got)
	}
	if got := w.Fuse(1.0, 0); math.Abs(got-0.7) > 1e-12 {
		t.Errorf("Fuse(1,0) = %g, want 0.7", got)
	}

	// Out-of-range inputs are clamped before weighting.
	if got := w.Fuse(2.0, -1.0); math.Abs(got-0.7) > 1e-12 {
		t.Errorf("Fuse(2,-1) = %g, want 0.7", got)
	}
}

func TestFuse_Monotone(t *testing.T) {
	w := DefaultFusionWeights()
	low := w.Fuse(0.4, 0.5)
	high := w.Fuse(0.6, 0.5)
	if high <= low {
		t.Errorf("raising the vector score lowered the fusion: %g -> %g", low, high)
	}

	low = w.Fuse(0.5, 0.2)
	high = w.Fuse(0.5, 0.9)
	if high <= low {
		t.Errorf("raising the keyword score lowered the fusion: %g -> %g", low, high)
	}
}

func TestParseFinishedAt(t *testing.T) {
	got, err := ParseFinishedAt("5.3.2024", "14:30")
	if err != nil {
		t.Fatalf("ParseFinishedAt returned error: %v", err)
	}
	want := time.Date(2024, 3, 5, 14, 30, 0, 0, time.Local)
	if !got.Equal(want) {
		t.Errorf("ParseFinishedAt = %v, want %v", got, want)
	}
}

func TestParseFinishedAt_MissingTimeDefaultsToMidnight(t *testing.T) {
	got, err := ParseFinishedAt("5.3.2024", "")
	if err != nil {
		t.Fatalf("ParseFinishedAt returned error: %v", err)
	}
	if got.Hour() != 0 || got.Minute() != 0 {
		t.Errorf("missing time parsed as %02d:%02d, want 00:00", got.Hour(), got.Minute())
	}
}

func TestParseFinishedAt_Errors(t *testing.T) {
	if _, err := ParseFinishedAt("", "14:30"); err == nil {
		t.Error("expected error for missing date")
	}
	if _, err := ParseFinishedAt("2024-03-05", "14:30"); err == nil {
		t.Error("expected error for wrong date layout")
	}
}

func TestRecency(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	if got := Recency(now, now); got != 1.0 {
		t.Errorf("Recency(now, now) = %g, want 1.0", got)
	}

	// Future finish times clamp rather than exceed 1.0.
	if got := Recency(now.Add(24*time.Hour), now); got != 1.0 {
		t.Errorf("Recency(future) = %g, want 1.0", got)
	}

	oneYear := Recency(now.AddDate(-1, 0, 0), now)
	if math.Abs(oneYear-math.Exp(-1)) > 0.01 {
		t.Errorf("Recency(one year ago) = %g, want ~%g", oneYear, math.Exp(-1))
	}

	older := Recency(now.AddDate(-2, 0, 0), now)
	if older >= oneYear {
		t.Errorf("recency did not decrease with age: 1y=%g 2y=%g", oneYear, older)
	}
}

func TestRecencyScore_FailsOpen(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	if got := RecencyScore("", "", now); got != 0.0 {
		t.Errorf("RecencyScore with missing date = %g, want 0.0", got)
	}
	if got := RecencyScore("not-a-date", "14:00", now); got != 0.0 {
		t.Errorf("RecencyScore with garbage date = %g, want 0.0", got)
	}
	if got := RecencyScore("1.6.2024", "12:00", now); got <= 0.9 {
		t.Errorf("RecencyScore for a fresh ticket = %g, want near 1.0", got)
	}
}

func TestClamp01(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{-0.5, 0},
		{0, 0},
		{0.42, 0.42},
		{1, 1},
		{7.3, 1},
	}
	for _, tt := range tests {
		if got := Clamp01(tt.in); got != tt.want {
			t.Errorf("Clamp01(%g) = %g, want %g", tt.in, got, tt.want)
		}
	}
}
