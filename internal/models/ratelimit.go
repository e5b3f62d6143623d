package models

import "time"

// RateLimitWindow is the per-identity counter read and written inside the
// settlement transaction.
type RateLimitWindow struct {
	WindowStart  time.Time `json:"window_start"`
	Count        int       `json:"count"`
	LastActionAt time.Time `json:"last_action_at"`
}
