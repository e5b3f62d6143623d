package models

import "time"

// Wallet is keyed by identity. Credits never go below zero. Applied payment
// event ids live in a set beside the wallet, not in this record.
type Wallet struct {
	Identity    string    `json:"identity"`
	Credits     int64     `json:"credits"`
	LastUpdated time.Time `json:"last_updated"`
}

func NewWallet(identity string, credits int64, now time.Time) *Wallet {
	return &Wallet{
		Identity:    identity,
		Credits:     credits,
		LastUpdated: now,
	}
}

// Deposit records one payment credit applied to a wallet.
type Deposit struct {
	ID           string    `json:"id"`
	Identity     string    `json:"identity"`
	EventID      string    `json:"event_id"`
	SessionID    string    `json:"session_id,omitempty"`
	Amount       int64     `json:"amount"`
	BalanceAfter int64     `json:"balance_after"`
	CreatedAt    time.Time `json:"created_at"`
}

type BalanceResponse struct {
	Identity    string    `json:"identity"`
	Credits     int64     `json:"credits"`
	LastUpdated time.Time `json:"last_updated"`
}
