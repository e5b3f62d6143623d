package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

func GenerateRoundID() string {
	return fmt.Sprintf("round_%s_%s",
		time.Now().UTC().Format("20060102"),
		uuid.NewString())
}

func GenerateScoreID() string {
	return uuid.NewString()
}

func GenerateDepositID() string {
	return fmt.Sprintf("dep_%s", uuid.NewString())
}

// ApplySpin returns the wallet balance after debiting bet and crediting payout.
func ApplySpin(credits, bet, payout int64) int64 {
	return credits - bet + payout
}
