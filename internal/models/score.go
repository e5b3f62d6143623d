package models

import "time"

// ScoreEntry is an immutable leaderboard row.
type ScoreEntry struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Score      int64     `json:"score"`
	Collection string    `json:"collection"`
	Identity   string    `json:"identity,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// ScoreSubmission is the single request type behind both the anonymous HTTP
// endpoint and the authenticated RPC. Numeric fields stay untyped so that
// clamping can coerce whatever the client sent.
type ScoreSubmission struct {
	Identity      string `json:"-"`
	Name          any    `json:"name"`
	Score         any    `json:"score"`
	Collection    string `json:"collection"`
	MaxBet        any    `json:"maxBet"`
	MaxMultiplier any    `json:"maxMultiplier"`
	RoundsPlayed  any    `json:"roundsPlayed"`
}

type ScoreResponse struct {
	ID    string `json:"id"`
	Score int64  `json:"score"`
}
