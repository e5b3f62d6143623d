package services_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"gyanburu-backend/internal/events"
	"gyanburu-backend/internal/services"
)

// stalledWriter stands in for a broker that accepts connections but never acks.
type stalledWriter struct {
	mu      sync.Mutex
	release chan struct{}
	msgs    []kafka.Message
}

func (w *stalledWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	select {
	case <-w.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *stalledWriter) Close() error { return nil }

func TestSettleSpinDoesNotWaitForKafka(t *testing.T) {
	_, rs := setupTestRedis(t)
	seedWallet(t, rs, "alice", 100)

	rounds := &stalledWriter{release: make(chan struct{})}
	payments := &stalledWriter{release: make(chan struct{})}
	publisher := events.NewPublisher(rounds, payments, zap.NewNop())
	engine := newTestEngine(rs, newSeq(3, 3, 3), testGameConfig(), services.WithPublisher(publisher))

	start := time.Now()
	result, err := engine.SettleSpin(context.Background(), "alice", 10, 7)
	if err != nil {
		t.Fatalf("SettleSpin failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("SettleSpin waited %s on a stalled broker", elapsed)
	}
	if result.NewCredits != 190 {
		t.Errorf("Expected 190 credits, got %d", result.NewCredits)
	}

	close(rounds.release)
	close(payments.release)
	if err := publisher.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if len(rounds.msgs) != 1 {
		t.Fatalf("Expected the round to be published after release, got %d", len(rounds.msgs))
	}
	var e events.RoundSettled
	if err := json.Unmarshal(rounds.msgs[0].Value, &e); err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if e.RoundID != result.RoundID || e.CreditsAfter != 190 {
		t.Errorf("Unexpected event %+v", e)
	}
}
