package events

import "time"

// RoundSettled is emitted once per committed spin.
type RoundSettled struct {
	RoundID      string    `json:"round_id"`
	Identity     string    `json:"identity"`
	Bet          int64     `json:"bet"`
	SymbolCount  int       `json:"symbol_count"`
	Indices      []int     `json:"indices"`
	Class        string    `json:"class"`
	Multiplier   float64   `json:"multiplier"`
	Payout       int64     `json:"payout"`
	Net          int64     `json:"net"`
	CreditsAfter int64     `json:"credits_after"`
	SettledAt    time.Time `json:"settled_at"`
	TsUnixMs     int64     `json:"ts_unix_ms"`
}

// PaymentCredited is emitted when a checkout event adds credits to a wallet.
// Duplicate deliveries never produce a second event.
type PaymentCredited struct {
	DepositID    string    `json:"deposit_id"`
	Identity     string    `json:"identity"`
	EventID      string    `json:"event_id"`
	SessionID    string    `json:"session_id,omitempty"`
	Amount       int64     `json:"amount"`
	BalanceAfter int64     `json:"balance_after"`
	CreditedAt   time.Time `json:"credited_at"`
	TsUnixMs     int64     `json:"ts_unix_ms"`
}
