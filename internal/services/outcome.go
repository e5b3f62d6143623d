package services

import (
	"crypto/rand"
	"math"
	"math/big"

	"gyanburu-backend/internal/models"
)

// RandomSource yields uniform integers in [0, n).
type RandomSource interface {
	IntN(n int) int
}

// CryptoSource draws from crypto/rand. Safe for concurrent use.
type CryptoSource struct{}

func (CryptoSource) IntN(n int) int {
	if n <= 0 {
		return 0
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		// crypto/rand only fails when the OS entropy source is broken.
		panic("crypto/rand unavailable: " + err.Error())
	}
	return int(v.Int64())
}

type Outcome struct {
	Indices    [models.ReelCount]int
	Class      models.OutcomeClass
	Multiplier float64
}

type OutcomeGenerator struct {
	rng               RandomSource
	jackpotMultiplier float64
	pairMultiplier    float64
}

func NewOutcomeGenerator(rng RandomSource, jackpotMultiplier, pairMultiplier float64) *OutcomeGenerator {
	if rng == nil {
		rng = CryptoSource{}
	}
	return &OutcomeGenerator{
		rng:               rng,
		jackpotMultiplier: jackpotMultiplier,
		pairMultiplier:    pairMultiplier,
	}
}

func (g *OutcomeGenerator) Spin(symbolCount int) Outcome {
	var out Outcome
	for i := range out.Indices {
		out.Indices[i] = g.rng.IntN(symbolCount)
	}
	out.Class = Classify(out.Indices)
	out.Multiplier = g.MultiplierFor(out.Class)
	return out
}

func (g *OutcomeGenerator) MultiplierFor(class models.OutcomeClass) float64 {
	switch class {
	case models.OutcomeThreeOfKind:
		return g.jackpotMultiplier
	case models.OutcomePair:
		return g.pairMultiplier
	default:
		return 0
	}
}

func Classify(idx [models.ReelCount]int) models.OutcomeClass {
	switch {
	case idx[0] == idx[1] && idx[1] == idx[2]:
		return models.OutcomeThreeOfKind
	case idx[0] == idx[1] || idx[1] == idx[2] || idx[0] == idx[2]:
		return models.OutcomePair
	default:
		return models.OutcomeLose
	}
}

// Payout is the gross amount credited back for a bet, before the stake debit.
func Payout(bet int64, multiplier float64) int64 {
	return int64(math.Floor(float64(bet) * multiplier))
}
