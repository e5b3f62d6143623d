package services_test

import (
	"testing"

	"gyanburu-backend/internal/models"
	"gyanburu-backend/internal/services"
)

func TestClassifyExhaustive(t *testing.T) {
	for a := 0; a < 4; a++ {
		for b := 0; b < 4; b++ {
			for c := 0; c < 4; c++ {
				idx := [models.ReelCount]int{a, b, c}
				got := services.Classify(idx)

				var want models.OutcomeClass
				switch {
				case a == b && b == c:
					want = models.OutcomeThreeOfKind
				case a == b || b == c || a == c:
					want = models.OutcomePair
				default:
					want = models.OutcomeLose
				}
				if got != want {
					t.Errorf("Classify(%v) = %s, want %s", idx, got, want)
				}
			}
		}
	}
}

func TestSpinMultipliers(t *testing.T) {
	cases := []struct {
		draws []int
		class models.OutcomeClass
		mult  float64
	}{
		{[]int{3, 3, 3}, models.OutcomeThreeOfKind, 10},
		{[]int{1, 2, 1}, models.OutcomePair, 2},
		{[]int{0, 1, 2}, models.OutcomeLose, 0},
	}

	for _, tc := range cases {
		gen := services.NewOutcomeGenerator(newSeq(tc.draws...), 10, 2)
		out := gen.Spin(7)

		if out.Class != tc.class {
			t.Errorf("draws %v: expected %s, got %s", tc.draws, tc.class, out.Class)
		}
		if out.Multiplier != tc.mult {
			t.Errorf("draws %v: expected multiplier %.0f, got %.0f", tc.draws, tc.mult, out.Multiplier)
		}
		for i, v := range tc.draws {
			if out.Indices[i] != v {
				t.Errorf("draws %v: indices %v do not match the source", tc.draws, out.Indices)
				break
			}
		}
	}
}

func TestCryptoSourceStaysInRange(t *testing.T) {
	gen := services.NewOutcomeGenerator(nil, 10, 2)
	seen := map[int]bool{}

	for i := 0; i < 2000; i++ {
		out := gen.Spin(7)
		for _, idx := range out.Indices {
			if idx < 0 || idx >= 7 {
				t.Fatalf("index %d outside [0, 7)", idx)
			}
			seen[idx] = true
		}
		if out.Class != services.Classify(out.Indices) {
			t.Fatalf("class %s does not match indices %v", out.Class, out.Indices)
		}
	}

	if len(seen) != 7 {
		t.Errorf("Expected all 7 symbols over 2000 spins, saw %d", len(seen))
	}
}

func TestPayout(t *testing.T) {
	if got := services.Payout(10, 10); got != 100 {
		t.Errorf("Expected 100, got %d", got)
	}
	if got := services.Payout(7, 1.5); got != 10 {
		t.Errorf("Expected floor(10.5) = 10, got %d", got)
	}
	if got := services.Payout(10, 0); got != 0 {
		t.Errorf("Expected 0 on a loss, got %d", got)
	}
}
