package services

import (
	"context"
	"database/sql"
	"fmt"

	"gyanburu-backend/internal/models"

	_ "github.com/lib/pq"
)

const scoresSchema = `
CREATE TABLE IF NOT EXISTS scores (
	id          TEXT PRIMARY KEY,
	collection  TEXT NOT NULL,
	name        TEXT NOT NULL,
	score       BIGINT NOT NULL CHECK (score >= 0),
	identity    TEXT,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS scores_collection_score_idx ON scores (collection, score DESC);
`

// PostgresScoreStore persists leaderboard entries in a scores table.
type PostgresScoreStore struct {
	db *sql.DB
}

func ConnectPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

func NewPostgresScoreStore(db *sql.DB) *PostgresScoreStore {
	return &PostgresScoreStore{db: db}
}

func (s *PostgresScoreStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, scoresSchema); err != nil {
		return fmt.Errorf("create scores schema: %w", err)
	}
	return nil
}

func (s *PostgresScoreStore) SaveScore(ctx context.Context, entry *models.ScoreEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scores(id, collection, name, score, identity, created_at) VALUES($1,$2,$3,$4,NULLIF($5,''),$6)`,
		entry.ID, entry.Collection, entry.Name, entry.Score, entry.Identity, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert score: %w", err)
	}
	return nil
}

func (s *PostgresScoreStore) TopScores(ctx context.Context, collection string, limit int64) ([]*models.ScoreEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, collection, name, score, COALESCE(identity, ''), created_at
		   FROM scores WHERE collection=$1 ORDER BY score DESC, created_at ASC LIMIT $2`,
		collection, limit)
	if err != nil {
		return nil, fmt.Errorf("query scores: %w", err)
	}
	defer rows.Close()

	entries := []*models.ScoreEntry{}
	for rows.Next() {
		var e models.ScoreEntry
		if err := rows.Scan(&e.ID, &e.Collection, &e.Name, &e.Score, &e.Identity, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

func (s *PostgresScoreStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
