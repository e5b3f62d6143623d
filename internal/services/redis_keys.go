package services

import "time"

const (
	KeyWallet         = "wallet:%s"
	KeyWalletRounds   = "wallet:%s:rounds"
	KeyWalletDeposits = "wallet:%s:deposits"
	KeyWalletEvents   = "wallet:%s:events"
	KeyRateLimit      = "rate_limits:%s"
	KeyFixedWindow    = "rl:%s:%d"
	KeyScore          = "score:%s"
	KeyLeaderboard    = "scores:%s"

	// TTLMargin keeps counters alive slightly past their window.
	TTLMargin = 10 * time.Second

	maxTxAttempts = 3
)
