package events

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"gyanburu-backend/internal/models"
)

type captureWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *captureWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

// blockingWriter holds every write until release is closed.
type blockingWriter struct {
	captureWriter
	release chan struct{}
}

func (w *blockingWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	select {
	case <-w.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	return w.captureWriter.WriteMessages(ctx, msgs...)
}

func TestPublishRoundSettled(t *testing.T) {
	rounds, payments := &captureWriter{}, &captureWriter{}
	p := NewPublisher(rounds, payments, zap.NewNop())

	round := &models.Round{
		ID:           "round_1",
		Identity:     "alice",
		Bet:          10,
		SymbolCount:  7,
		Indices:      [models.ReelCount]int{3, 3, 3},
		Class:        models.OutcomeThreeOfKind,
		Multiplier:   10,
		Payout:       100,
		Net:          90,
		CreditsAfter: 190,
		CreatedAt:    time.Now(),
	}
	if err := p.PublishRoundSettled(context.Background(), round); err != nil {
		t.Fatalf("PublishRoundSettled failed: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if len(rounds.msgs) != 1 || len(payments.msgs) != 0 {
		t.Fatalf("Expected one message on the rounds topic, got %d/%d", len(rounds.msgs), len(payments.msgs))
	}
	msg := rounds.msgs[0]
	if string(msg.Key) != "alice" {
		t.Errorf("Expected key alice, got %q", msg.Key)
	}

	var e RoundSettled
	if err := json.Unmarshal(msg.Value, &e); err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if e.RoundID != "round_1" || e.Class != "three-of-a-kind" || e.CreditsAfter != 190 || len(e.Indices) != 3 {
		t.Errorf("Unexpected event %+v", e)
	}
}

func TestPublishPaymentCredited(t *testing.T) {
	rounds, payments := &captureWriter{}, &captureWriter{}
	p := NewPublisher(rounds, payments, zap.NewNop())

	deposit := &models.Deposit{ID: "dep_1", Identity: "bob", EventID: "evt_1", Amount: 1000, BalanceAfter: 1100}
	if err := p.PublishPaymentCredited(context.Background(), deposit); err != nil {
		t.Fatalf("PublishPaymentCredited failed: %v", err)
	}
	p.Close()

	if len(payments.msgs) != 1 || string(payments.msgs[0].Key) != "bob" {
		t.Fatalf("Expected one payment message keyed by bob, got %+v", payments.msgs)
	}

	var e PaymentCredited
	if err := json.Unmarshal(payments.msgs[0].Value, &e); err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if e.EventID != "evt_1" || e.Amount != 1000 || e.BalanceAfter != 1100 {
		t.Errorf("Unexpected event %+v", e)
	}
}

func TestPublishKeepsOrderPerTopic(t *testing.T) {
	rounds := &captureWriter{}
	p := NewPublisher(rounds, &captureWriter{}, zap.NewNop())

	for _, id := range []string{"r1", "r2", "r3"} {
		if err := p.PublishRoundSettled(context.Background(), &models.Round{ID: id, Identity: "alice"}); err != nil {
			t.Fatalf("PublishRoundSettled failed: %v", err)
		}
	}
	p.Close()

	if len(rounds.msgs) != 3 {
		t.Fatalf("Expected 3 messages, got %d", len(rounds.msgs))
	}
	for i, want := range []string{"r1", "r2", "r3"} {
		var e RoundSettled
		json.Unmarshal(rounds.msgs[i].Value, &e)
		if e.RoundID != want {
			t.Errorf("Message %d: expected %s, got %s", i, want, e.RoundID)
		}
	}
}

func TestPublishDoesNotWaitForBroker(t *testing.T) {
	rounds := &blockingWriter{release: make(chan struct{})}
	p := NewPublisher(rounds, &captureWriter{}, zap.NewNop())

	start := time.Now()
	for i := 0; i < 10; i++ {
		if err := p.PublishRoundSettled(context.Background(), &models.Round{ID: "r", Identity: "alice"}); err != nil {
			t.Fatalf("PublishRoundSettled failed: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 200*time.Millisecond {
		t.Errorf("Publishing waited on the writer for %s", elapsed)
	}

	close(rounds.release)
	p.Close()
	if len(rounds.msgs) != 10 {
		t.Errorf("Expected all 10 queued messages flushed on close, got %d", len(rounds.msgs))
	}
}

func TestPublishQueueFull(t *testing.T) {
	rounds := &blockingWriter{release: make(chan struct{})}
	p := NewPublisher(rounds, &captureWriter{}, zap.NewNop())
	defer func() {
		close(rounds.release)
		p.Close()
	}()

	var full bool
	// One message may already be held by the drain goroutine.
	for i := 0; i < queueSize+2; i++ {
		if err := p.PublishRoundSettled(context.Background(), &models.Round{ID: "r"}); errors.Is(err, ErrQueueFull) {
			full = true
			break
		}
	}
	if !full {
		t.Error("Expected ErrQueueFull once the queue filled up")
	}
}

func TestPublishWriteErrorIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	p := NewPublisher(&captureWriter{err: errors.New("broker unreachable")}, &captureWriter{}, zap.New(core))

	if err := p.PublishRoundSettled(context.Background(), &models.Round{ID: "r", Identity: "alice"}); err != nil {
		t.Fatalf("Enqueue should succeed, got %v", err)
	}
	p.Close()

	if logs.FilterMessage("write kafka message failed").Len() != 1 {
		t.Errorf("Expected the write failure to be logged, got %v", logs.All())
	}
}

func TestPublishAfterClose(t *testing.T) {
	rounds, payments := &captureWriter{}, &captureWriter{}
	p := NewPublisher(rounds, payments, zap.NewNop())
	if err := p.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !rounds.closed || !payments.closed {
		t.Error("Both writers should be closed")
	}
	if err := p.PublishRoundSettled(context.Background(), &models.Round{ID: "r"}); !errors.Is(err, ErrPublisherClosed) {
		t.Errorf("Expected ErrPublisherClosed, got %v", err)
	}
}

func TestSplitBrokers(t *testing.T) {
	got := splitBrokers(" a:9092, ,b:9092 ")
	if len(got) != 2 || got[0] != "a:9092" || got[1] != "b:9092" {
		t.Errorf("Unexpected brokers %v", got)
	}
}

// Requires a reachable broker in KAFKA_BROKERS.
func TestKafkaIntegration(t *testing.T) {
	brokers := os.Getenv("KAFKA_BROKERS")
	if brokers == "" {
		t.Skip("KAFKA_BROKERS not set")
	}

	p := NewKafkaPublisher(brokers, "slots.rounds.settled.test", "slots.payments.credited.test", zap.NewNop())
	if err := p.PublishRoundSettled(context.Background(), &models.Round{ID: "round_it", Identity: "it"}); err != nil {
		t.Fatalf("PublishRoundSettled failed: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}
