package eval

import (
	"math"
	"testing"

	"github.com/corvelia/finrag/internal/core/domain"
)

func scoreOf(t *testing.T, v domain.JudgeVerdict) float64 {
	t.Helper()
	if v.Score == nil {
		t.Fatalf("%s: expected a score, got nil (%s)", v.Key, v.Comment)
	}
	return *v.Score
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestRecallAtKFullHit(t *testing.T) {
	v := RecallAtK([]string{"a", "b", "c"}, []string{"a"}, 3)
	if got := scoreOf(t, v); got != 1.0 {
		t.Fatalf("expected 1.0, got %f", got)
	}
}

func TestRecallAtKPartial(t *testing.T) {
	v := RecallAtK([]string{"a", "x", "y"}, []string{"a", "b"}, 3)
	if got := scoreOf(t, v); !almostEqual(got, 0.5) {
		t.Fatalf("expected 0.5, got %f", got)
	}
}

func TestRecallAtKTruncates(t *testing.T) {
	v := RecallAtK([]string{"x", "y", "a"}, []string{"a"}, 2)
	if got := scoreOf(t, v); got != 0.0 {
		t.Fatalf("hit beyond k must not count, got %f", got)
	}
}

func TestRecallAtKEmptyGold(t *testing.T) {
	v := RecallAtK([]string{"a"}, nil, 3)
	if v.Score != nil {
		t.Fatalf("expected nil score for empty gold, got %f", *v.Score)
	}
	if v.Comment == "" {
		t.Fatalf("expected explanatory comment")
	}
}

func TestMRRAtKThirdRank(t *testing.T) {
	v := MRRAtK([]string{"z", "x", "y"}, []string{"y"}, 3)
	if got := scoreOf(t, v); !almostEqual(got, 1.0/3.0) {
		t.Fatalf("expected 1/3, got %f", got)
	}
}

func TestMRRAtKNoHit(t *testing.T) {
	v := MRRAtK([]string{"x", "y", "z"}, []string{"not_in_list"}, 3)
	if got := scoreOf(t, v); got != 0.0 {
		t.Fatalf("expected 0.0, got %f", got)
	}
}

func TestMRRAtKFirstOfMany(t *testing.T) {
	v := MRRAtK([]string{"x", "gold1", "gold2"}, []string{"gold1", "gold2"}, 3)
	if got := scoreOf(t, v); !almostEqual(got, 0.5) {
		t.Fatalf("expected 1/2, got %f", got)
	}
}

func TestMRRAtKEmptyGold(t *testing.T) {
	v := MRRAtK([]string{"x"}, []string{}, 2)
	if v.Score != nil {
		t.Fatalf("expected nil score for empty gold")
	}
}

func TestMAPAtKInterleavedGold(t *testing.T) {
	// Hits at ranks 1, 3, 5: (1 + 2/3 + 3/5) / 3.
	v := MAPAtK([]string{"A", "X", "B", "Y", "C", "Z"}, []string{"A", "B", "C"}, 6)
	want := (1.0 + 2.0/3.0 + 3.0/5.0) / 3.0
	if got := scoreOf(t, v); !almostEqual(got, want) {
		t.Fatalf("expected %f, got %f", want, got)
	}
}

func TestMAPAtKCutoffDenominator(t *testing.T) {
	// k=2 caps the denominator at min(|gold|, k) = 2.
	v := MAPAtK([]string{"A", "X", "B", "C"}, []string{"A", "B", "C"}, 2)
	if got := scoreOf(t, v); !almostEqual(got, 0.5) {
		t.Fatalf("expected 0.5, got %f", got)
	}
}

func TestMAPAtKAdjacentGold(t *testing.T) {
	// Hits at ranks 2 and 3: (1/2 + 2/3) / 2.
	v := MAPAtK([]string{"x", "gold1", "gold2"}, []string{"gold1", "gold2"}, 3)
	want := (0.5 + 2.0/3.0) / 2.0
	if got := scoreOf(t, v); !almostEqual(got, want) {
		t.Fatalf("expected %f, got %f", want, got)
	}
}

func TestMAPAtKNoHit(t *testing.T) {
	v := MAPAtK([]string{"x", "y", "z"}, []string{"not_in_list"}, 3)
	if got := scoreOf(t, v); got != 0.0 {
		t.Fatalf("expected 0.0 for non-empty gold with no hits, got %f", got)
	}
}

func TestMAPAtKEmptyGold(t *testing.T) {
	v := MAPAtK([]string{"x", "y"}, nil, 2)
	if v.Score != nil {
		t.Fatalf("expected nil score for empty gold")
	}
}
