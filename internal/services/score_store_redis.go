package services

import (
	"context"
	"encoding/json"
	"fmt"

	"gyanburu-backend/internal/models"

	"github.com/redis/go-redis/v9"
)

// RedisScoreStore keeps entries as JSON documents plus one sorted set per
// collection for ranking.
type RedisScoreStore struct {
	client *redis.Client
}

func NewRedisScoreStore(redisService *RedisService) *RedisScoreStore {
	return &RedisScoreStore{client: redisService.client}
}

func (s *RedisScoreStore) SaveScore(ctx context.Context, entry *models.ScoreEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal score: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, fmt.Sprintf(KeyScore, entry.ID), data, 0)
		pipe.ZAdd(ctx, fmt.Sprintf(KeyLeaderboard, entry.Collection), redis.Z{
			Score:  float64(entry.Score),
			Member: entry.ID,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save score: %w", err)
	}
	return nil
}

func (s *RedisScoreStore) TopScores(ctx context.Context, collection string, limit int64) ([]*models.ScoreEntry, error) {
	ids, err := s.client.ZRevRange(ctx, fmt.Sprintf(KeyLeaderboard, collection), 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get leaderboard ids: %w", err)
	}
	if len(ids) == 0 {
		return []*models.ScoreEntry{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Get(ctx, fmt.Sprintf(KeyScore, id))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("pipeline execution failed: %w", err)
	}

	entries := make([]*models.ScoreEntry, 0, len(ids))
	for _, cmd := range cmds {
		data, err := cmd.Bytes()
		if err != nil {
			continue
		}
		var entry models.ScoreEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			continue
		}
		entries = append(entries, &entry)
	}
	return entries, nil
}
