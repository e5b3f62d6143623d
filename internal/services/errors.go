package services

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidBet          = errors.New("invalid bet")
	ErrInvalidScore        = errors.New("invalid score")
	ErrUnauthenticated     = errors.New("authentication required")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrWalletNotFound      = errors.New("wallet does not exist")
	ErrRateLimited         = errors.New("rate limit exceeded")
	ErrScoreInfeasible     = errors.New("score exceeds maximum possible")
	ErrInvalidSignature    = errors.New("invalid payment event signature")
	ErrInvalidCheckout     = errors.New("invalid checkout request")
	ErrUpstream            = errors.New("upstream failure")

	ErrCheckoutNotConfigured = errors.New("checkout is not configured")
)

// RateLimitError carries how long the caller should wait before retrying.
type RateLimitError struct {
	Reason     string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: %s (retry after %s)", ErrRateLimited, e.Reason, e.RetryAfter)
}

func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

func upstream(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrUpstream, err)
}
