package services_test

import (
	"encoding/json"
	"errors"
	"math"
	"math/rand"
	"testing"

	"gyanburu-backend/internal/services"
)

func TestClampInt(t *testing.T) {
	cases := []struct {
		name     string
		value    any
		min, max int64
		want     int64
	}{
		{"in range", 5, 1, 10, 5},
		{"floors", 7.9, 1, 10, 7},
		{"below min", 0.9, 1, 10, 1},
		{"above max", 10.7, 1, 10, 10},
		{"negative floors down", -3.5, -10, 10, -4},
		{"numeric string", " 7 ", 1, 10, 7},
		{"json number", json.Number("42"), 1, 100, 42},
		{"garbage string", "abc", 1, 10, 1},
		{"empty string", "", 3, 10, 3},
		{"nil", nil, 2, 10, 2},
		{"bool", true, 4, 10, 4},
		{"NaN", math.NaN(), 1, 10, 1},
		{"+Inf", math.Inf(1), 1, 10, 1},
		{"-Inf", math.Inf(-1), 1, 10, 1},
		{"infinity string", "Infinity", 1, 10, 1},
		{"huge", 1e300, 1, 10, 10},
		{"slice", []int{3}, 1, 10, 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := services.ClampInt(tc.value, tc.min, tc.max); got != tc.want {
				t.Errorf("ClampInt(%v, %d, %d) = %d, want %d", tc.value, tc.min, tc.max, got, tc.want)
			}
		})
	}
}

func TestClampIntAlwaysInRange(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 5000; i++ {
		min := r.Int63n(1000) - 500
		max := min + r.Int63n(1000)
		v := (r.Float64() - 0.5) * 1e6

		got := services.ClampInt(v, min, max)
		if got < min || got > max {
			t.Fatalf("ClampInt(%f, %d, %d) = %d escaped the range", v, min, max, got)
		}
	}
}

func TestLookupVariant(t *testing.T) {
	if v := services.LookupVariant("pachinko_scores"); v.MaxBet != 100 || v.MaxRounds != 10000 {
		t.Errorf("Unexpected pachinko limits %+v", v)
	}
	if v := services.LookupVariant("scores"); v.MaxBet != 5000 || v.MaxRounds != 20000 {
		t.Errorf("Unexpected scores limits %+v", v)
	}
	if v := services.LookupVariant("../../admin"); v.Name != services.DefaultVariant {
		t.Errorf("Unknown variants should fall back to %s, got %s", services.DefaultVariant, v.Name)
	}
}

func TestCheckFeasibility(t *testing.T) {
	variant := services.LookupVariant("scores")
	params := services.ClampPlayParams(variant, 100, 10, 100)

	if params.Bound() != 100000 {
		t.Fatalf("Expected bound 100000, got %d", params.Bound())
	}

	if err := services.CheckFeasibility(200000, params); !errors.Is(err, services.ErrScoreInfeasible) {
		t.Errorf("Expected ErrScoreInfeasible for 200000, got %v", err)
	}
	if err := services.CheckFeasibility(100000, params); err != nil {
		t.Errorf("Score at the bound should be accepted, got %v", err)
	}
	if err := services.CheckFeasibility(90000, params); err != nil {
		t.Errorf("Score below the bound should be accepted, got %v", err)
	}

	pachinko := services.ClampPlayParams(services.LookupVariant("pachinko_scores"), 1e9, 1e9, 1e9)
	if pachinko.MaxBet != 100 || pachinko.MaxMultiplier != 10 || pachinko.RoundsPlayed != 10000 {
		t.Errorf("Declared parameters were not clamped: %+v", pachinko)
	}
	if err := services.CheckFeasibility(services.MaxScore+1, pachinko); !errors.Is(err, services.ErrScoreInfeasible) {
		t.Errorf("Scores above MaxScore must be infeasible, got %v", err)
	}
}
