package solution

import (
	"math"
	"testing"

	"github.com/fieldops/ticketd/internal/ticket"
)

func noFeedback(string) int64 { return 0 }

func TestValidKey(t *testing.T) {
	for _, key := range []string{Key1, Key2, Key3} {
		if !ValidKey(key) {
			t.Errorf("ValidKey(%q) = false, want true", key)
		}
	}
	for _, key := range []string{"", "solution4", "Solution1"} {
		if ValidKey(key) {
			t.Errorf("ValidKey(%q) = true, want false", key)
		}
	}
}

func TestHierarchyWeight(t *testing.T) {
	tests := []struct {
		key  string
		want float64
	}{
		{Key1, 1.0},
		{Key2, 0.8},
		{Key3, 0.6},
		{"unknown", 0.5},
	}
	for _, tt := range tests {
		if got := HierarchyWeight(tt.key); got != tt.want {
			t.Errorf("HierarchyWeight(%q) = %g, want %g", tt.key, got, tt.want)
		}
	}
}

func TestIncluded(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"restart the spooler", true},
		{"", false},
		{"   ", false},
		{"nan", false},
		{"NaN", false},
		{"  nan  ", false},
		{"nanotech coating", true},
	}
	for _, tt := range tests {
		if got := Included(tt.text); got != tt.want {
			t.Errorf("Included(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestRank_FeedbackOutweighsHierarchy(t *testing.T) {
	// solution1 with no feedback scores 1*1.0 = 1.0; solution2 with three
	// confirmations scores (1 + 0.5*3)*0.8 = 2.0 and must rank first.
	tk := ticket.Ticket{
		TicketID:  "T-1",
		Solution1: "reseat the cable",
		Solution2: "replace the NIC",
	}
	counts := map[string]int64{Key2: 3}

	ranked := Rank(tk, func(key string) int64 { return counts[key] })
	if len(ranked) != 2 {
		t.Fatalf("got %d candidates, want 2", len(ranked))
	}

	if ranked[0].Key != Key2 {
		t.Errorf("top candidate = %s, want %s", ranked[0].Key, Key2)
	}
	if math.Abs(ranked[0].FinalScore-2.0) > 1e-12 {
		t.Errorf("top FinalScore = %g, want 2.0", ranked[0].FinalScore)
	}
	if math.Abs(ranked[1].FinalScore-1.0) > 1e-12 {
		t.Errorf("second FinalScore = %g, want 1.0", ranked[1].FinalScore)
	}

	if ranked[0].Confidence != 1.0 {
		t.Errorf("top Confidence = %g, want 1.0", ranked[0].Confidence)
	}
	if math.Abs(ranked[1].Confidence-0.5) > 1e-12 {
		t.Errorf("second Confidence = %g, want 0.5", ranked[1].Confidence)
	}
}

func TestRank_ZeroFeedbackFollowsHierarchy(t *testing.T) {
	tk := ticket.Ticket{
		TicketID:  "T-2",
		Solution1: "first tier fix",
		Solution2: "second tier fix",
		Solution3: "third tier fix",
	}

	ranked := Rank(tk, noFeedback)
	if len(ranked) != 3 {
		t.Fatalf("got %d candidates, want 3", len(ranked))
	}

	wantOrder := []string{Key1, Key2, Key3}
	for i, want := range wantOrder {
		if ranked[i].Key != want {
			t.Errorf("rank %d = %s, want %s", i, ranked[i].Key, want)
		}
	}
	if ranked[0].Confidence != 1.0 {
		t.Errorf("top Confidence = %g, want 1.0", ranked[0].Confidence)
	}
}

func TestRank_TieBreaksByHierarchyKey(t *testing.T) {
	// Force a score tie: solution2 at (1+0.5*1)*0.8 = 1.2 and solution3 at
	// (1+0.5*2)*0.6 = 1.2. The lower hierarchy key wins.
	tk := ticket.Ticket{
		TicketID:  "T-3",
		Solution2: "swap the fuser",
		Solution3: "escalate to vendor",
	}
	counts := map[string]int64{Key2: 1, Key3: 2}

	ranked := Rank(tk, func(key string) int64 { return counts[key] })
	if len(ranked) != 2 {
		t.Fatalf("got %d candidates, want 2", len(ranked))
	}
	if ranked[0].FinalScore != ranked[1].FinalScore {
		t.Fatalf("expected a score tie, got %g vs %g", ranked[0].FinalScore, ranked[1].FinalScore)
	}
	if ranked[0].Key != Key2 {
		t.Errorf("tie resolved to %s, want %s", ranked[0].Key, Key2)
	}
}

func TestRank_SkipsEmptyAndNullSolutions(t *testing.T) {
	tk := ticket.Ticket{
		TicketID:  "T-4",
		Solution1: "nan",
		Solution2: "   ",
		Solution3: "reinstall the driver",
	}

	ranked := Rank(tk, noFeedback)
	if len(ranked) != 1 {
		t.Fatalf("got %d candidates, want 1", len(ranked))
	}
	if ranked[0].Key != Key3 {
		t.Errorf("kept candidate = %s, want %s", ranked[0].Key, Key3)
	}
}

func TestRank_NoSolutions(t *testing.T) {
	ranked := Rank(ticket.Ticket{TicketID: "T-5"}, noFeedback)
	if len(ranked) != 0 {
		t.Errorf("got %d candidates for a ticket with no solutions, want 0", len(ranked))
	}
}

func TestRank_NegativeCountsTreatedAsZero(t *testing.T) {
	tk := ticket.Ticket{TicketID: "T-6", Solution1: "power cycle"}
	ranked := Rank(tk, func(string) int64 { return -7 })
	if len(ranked) != 1 {
		t.Fatalf("got %d candidates, want 1", len(ranked))
	}
	if ranked[0].FeedbackCount != 0 {
		t.Errorf("FeedbackCount = %d, want 0", ranked[0].FeedbackCount)
	}
	if ranked[0].FinalScore != 1.0 {
		t.Errorf("FinalScore = %g, want 1.0", ranked[0].FinalScore)
	}
}
