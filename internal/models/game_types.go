package models

// SpinRequest is the payload of the placeBetAndSpin callable. Bet stays a
// float so fractional or out-of-range values reach validation instead of
// failing JSON binding.
type SpinRequest struct {
	Bet       float64 `json:"bet"`
	IconCount *int    `json:"iconCount,omitempty"`
}

type SpinResult struct {
	Indices    [ReelCount]int `json:"indices"`
	Type       OutcomeClass   `json:"type"`
	Mult       float64        `json:"mult"`
	Payout     int64          `json:"payout"`
	NewCredits int64          `json:"newCredits"`
	RoundID    string         `json:"roundId"`
}

type CheckoutRequest struct {
	PriceID string `json:"priceId" form:"priceId"`
	UID     string `json:"uid" form:"uid"`
}
