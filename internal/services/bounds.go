package services

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MaxScore is the absolute leaderboard cap regardless of variant.
const MaxScore int64 = 5_000_000

// Variant is a named leaderboard configuration with its own play limits.
type Variant struct {
	Name          string
	MaxBet        int64
	MaxMultiplier int64
	MaxRounds     int64
}

const DefaultVariant = "scores"

var variants = map[string]Variant{
	"pachinko_scores": {Name: "pachinko_scores", MaxBet: 100, MaxMultiplier: 10, MaxRounds: 10000},
	"scores":          {Name: "scores", MaxBet: 5000, MaxMultiplier: 10, MaxRounds: 20000},
}

// LookupVariant resolves a client-supplied collection against the allow-list.
func LookupVariant(key string) Variant {
	if v, ok := variants[key]; ok {
		return v
	}
	return variants[DefaultVariant]
}

func IsKnownVariant(key string) bool {
	_, ok := variants[key]
	return ok
}

// PlayParams are the client-declared play parameters after clamping.
type PlayParams struct {
	MaxBet        int64
	MaxMultiplier int64
	RoundsPlayed  int64
}

func (p PlayParams) Bound() int64 {
	return p.MaxBet * p.MaxMultiplier * p.RoundsPlayed
}

func ClampPlayParams(v Variant, maxBet, maxMultiplier, roundsPlayed any) PlayParams {
	return PlayParams{
		MaxBet:        ClampInt(maxBet, 1, v.MaxBet),
		MaxMultiplier: ClampInt(maxMultiplier, 1, v.MaxMultiplier),
		RoundsPlayed:  ClampInt(roundsPlayed, 1, v.MaxRounds),
	}
}

// CheckFeasibility rejects scores no honest play session could reach.
func CheckFeasibility(score int64, p PlayParams) error {
	if score > MaxScore {
		return fmt.Errorf("%w: %d above cap %d", ErrScoreInfeasible, score, MaxScore)
	}
	if bound := p.Bound(); score > bound {
		return fmt.Errorf("%w: %d above bound %d", ErrScoreInfeasible, score, bound)
	}
	return nil
}

// ClampInt coerces value to a number, floors it and clamps into [min, max].
// Anything that is not a finite number yields min.
func ClampInt(value any, min, max int64) int64 {
	f, ok := toFloat(value)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return min
	}
	f = math.Floor(f)
	if f <= float64(min) {
		return min
	}
	if f >= float64(max) {
		return max
	}
	return int64(f)
}

// toFloat accepts numbers and numeric strings.
func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
