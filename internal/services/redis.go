package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gyanburu-backend/internal/config"
	"gyanburu-backend/internal/models"

	"github.com/redis/go-redis/v9"
)

type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

type listReader interface {
	LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
}

type RedisService struct {
	client *redis.Client
}

func NewRedisService(cfg *config.Config) (*RedisService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisService{client: client}, nil
}

// NewRedisServiceFromClient wraps an existing client, e.g. one pointed at
// miniredis in tests.
func NewRedisServiceFromClient(client *redis.Client) *RedisService {
	return &RedisService{client: client}
}

func (s *RedisService) Client() *redis.Client {
	return s.client
}

func (s *RedisService) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisService) Close() error {
	return s.client.Close()
}

// GetWallet returns nil, nil when the identity has no wallet yet.
func (s *RedisService) GetWallet(ctx context.Context, identity string) (*models.Wallet, error) {
	return readWallet(ctx, s.client, fmt.Sprintf(KeyWallet, identity))
}

// SaveWallet overwrites the wallet outside any transaction. Only seeding and
// tests use it; settlement writes through Watch.
func (s *RedisService) SaveWallet(ctx context.Context, wallet *models.Wallet) error {
	data, err := json.Marshal(wallet)
	if err != nil {
		return fmt.Errorf("failed to marshal wallet: %w", err)
	}
	return s.client.Set(ctx, fmt.Sprintf(KeyWallet, wallet.Identity), data, 0).Err()
}

func (s *RedisService) GetRounds(ctx context.Context, identity string, limit int64) ([]*models.Round, error) {
	return readList[models.Round](ctx, s.client, fmt.Sprintf(KeyWalletRounds, identity), limit)
}

func (s *RedisService) GetDeposits(ctx context.Context, identity string, limit int64) ([]*models.Deposit, error) {
	return readList[models.Deposit](ctx, s.client, fmt.Sprintf(KeyWalletDeposits, identity), limit)
}

func (s *RedisService) GetRateLimitWindow(ctx context.Context, identity string) (*models.RateLimitWindow, error) {
	data, err := s.client.Get(ctx, fmt.Sprintf(KeyRateLimit, identity)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var w models.RateLimitWindow
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("failed to unmarshal rate limit window: %w", err)
	}
	return &w, nil
}

// readList returns the newest limit entries of a JSON list, newest first.
func readList[T any](ctx context.Context, c listReader, key string, limit int64) ([]*T, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	raw, err := c.LRange(ctx, key, -limit, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}

	out := make([]*T, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		var item T
		if err := json.Unmarshal([]byte(raw[i]), &item); err != nil {
			continue
		}
		out = append(out, &item)
	}
	return out, nil
}

func readWallet(ctx context.Context, c stringGetter, key string) (*models.Wallet, error) {
	data, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	var wallet models.Wallet
	if err := json.Unmarshal(data, &wallet); err != nil {
		return nil, fmt.Errorf("failed to unmarshal wallet: %w", err)
	}
	if wallet.Credits < 0 {
		return nil, fmt.Errorf("wallet %s has negative credits %d", key, wallet.Credits)
	}
	return &wallet, nil
}

func readRateLimitWindow(ctx context.Context, c stringGetter, key string) (models.RateLimitWindow, error) {
	var w models.RateLimitWindow
	data, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return w, nil
	}
	if err != nil {
		return w, fmt.Errorf("failed to get rate limit window: %w", err)
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return w, fmt.Errorf("failed to unmarshal rate limit window: %w", err)
	}
	return w, nil
}

// watchRetry runs fn under WATCH on keys, re-running from scratch when a
// concurrent writer invalidates the transaction.
func watchRetry(ctx context.Context, c *redis.Client, fn func(tx *redis.Tx) error, keys ...string) error {
	var err error
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		err = c.Watch(ctx, fn, keys...)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return fmt.Errorf("transaction contention after %d attempts: %w", maxTxAttempts, err)
}
