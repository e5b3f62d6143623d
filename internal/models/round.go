package models

import "time"

type OutcomeClass string

const (
	OutcomeLose        OutcomeClass = "lose"
	OutcomePair        OutcomeClass = "pair"
	OutcomeThreeOfKind OutcomeClass = "three-of-a-kind"
)

// ReelCount is the number of symbols drawn per spin.
const ReelCount = 3

// Round is one settled wager. Payout is gross; Net is what the wallet moved by.
type Round struct {
	ID           string         `json:"id"`
	Identity     string         `json:"identity"`
	Bet          int64          `json:"bet"`
	SymbolCount  int            `json:"symbol_count"`
	Indices      [ReelCount]int `json:"indices"`
	Class        OutcomeClass   `json:"class"`
	Multiplier   float64        `json:"multiplier"`
	Payout       int64          `json:"payout"`
	Net          int64          `json:"net"`
	CreditsAfter int64          `json:"credits_after"`
	CreatedAt    time.Time      `json:"created_at"`
}
