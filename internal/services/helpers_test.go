package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"gyanburu-backend/internal/models"
	"gyanburu-backend/internal/services"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *services.RedisService) {
	t.Helper()
	m := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { client.Close() })
	return m, services.NewRedisServiceFromClient(client)
}

// seqSource replays vals in order, wrapping around.
type seqSource struct {
	mu   sync.Mutex
	vals []int
	i    int
}

func newSeq(vals ...int) *seqSource {
	return &seqSource{vals: vals}
}

func (s *seqSource) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.vals[s.i%len(s.vals)]
	s.i++
	return v % n
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 5, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingBroadcaster struct {
	mu       sync.Mutex
	balances map[string]int64
}

func (b *recordingBroadcaster) BroadcastBalance(identity string, credits int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.balances == nil {
		b.balances = map[string]int64{}
	}
	b.balances[identity] = credits
}

type recordingPublisher struct {
	mu       sync.Mutex
	rounds   []*models.Round
	deposits []*models.Deposit
}

func (p *recordingPublisher) PublishRoundSettled(_ context.Context, r *models.Round) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rounds = append(p.rounds, r)
	return nil
}

func (p *recordingPublisher) PublishPaymentCredited(_ context.Context, d *models.Deposit) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deposits = append(p.deposits, d)
	return nil
}

func seedWallet(t *testing.T, rs *services.RedisService, identity string, credits int64) {
	t.Helper()
	w := models.NewWallet(identity, credits, time.Now())
	if err := rs.SaveWallet(context.Background(), w); err != nil {
		t.Fatalf("Failed to seed wallet: %v", err)
	}
}

func walletCredits(t *testing.T, rs *services.RedisService, identity string) int64 {
	t.Helper()
	w, err := rs.GetWallet(context.Background(), identity)
	if err != nil {
		t.Fatalf("Failed to get wallet: %v", err)
	}
	if w == nil {
		t.Fatalf("Wallet for %s does not exist", identity)
	}
	return w.Credits
}
