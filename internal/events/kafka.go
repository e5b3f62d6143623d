package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"gyanburu-backend/internal/models"
)

const (
	queueSize    = 1024
	writeTimeout = 5 * time.Second
)

var (
	ErrQueueFull       = errors.New("event queue is full")
	ErrPublisherClosed = errors.New("event publisher is closed")
)

// MessageWriter is the part of *kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes settled rounds and credited payments to their own
// topics, keyed by identity so one player's events stay ordered. Publish
// calls only enqueue; each topic is drained by its own goroutine, so a slow
// broker never holds up a settled request.
type KafkaPublisher struct {
	rounds   *topicQueue
	payments *topicQueue
	now      func() time.Time
}

func NewWriter(brokers, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(splitBrokers(brokers)...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           50 * time.Millisecond,
		WriteTimeout:           2 * time.Second,
		MaxAttempts:            3,
	}
}

func NewKafkaPublisher(brokers, roundsTopic, paymentsTopic string, log *zap.Logger) *KafkaPublisher {
	return NewPublisher(NewWriter(brokers, roundsTopic), NewWriter(brokers, paymentsTopic), log)
}

func NewPublisher(rounds, payments MessageWriter, log *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		rounds:   newTopicQueue("rounds", rounds, log),
		payments: newTopicQueue("payments", payments, log),
		now:      time.Now,
	}
}

func (p *KafkaPublisher) PublishRoundSettled(_ context.Context, round *models.Round) error {
	e := RoundSettled{
		RoundID:      round.ID,
		Identity:     round.Identity,
		Bet:          round.Bet,
		SymbolCount:  round.SymbolCount,
		Indices:      round.Indices[:],
		Class:        string(round.Class),
		Multiplier:   round.Multiplier,
		Payout:       round.Payout,
		Net:          round.Net,
		CreditsAfter: round.CreditsAfter,
		SettledAt:    round.CreatedAt,
		TsUnixMs:     p.now().UnixMilli(),
	}
	return p.enqueue(p.rounds, round.Identity, e)
}

func (p *KafkaPublisher) PublishPaymentCredited(_ context.Context, deposit *models.Deposit) error {
	e := PaymentCredited{
		DepositID:    deposit.ID,
		Identity:     deposit.Identity,
		EventID:      deposit.EventID,
		SessionID:    deposit.SessionID,
		Amount:       deposit.Amount,
		BalanceAfter: deposit.BalanceAfter,
		CreditedAt:   deposit.CreatedAt,
		TsUnixMs:     p.now().UnixMilli(),
	}
	return p.enqueue(p.payments, deposit.Identity, e)
}

func (p *KafkaPublisher) enqueue(q *topicQueue, key string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return q.push(kafka.Message{Key: []byte(key), Value: b, Time: p.now()})
}

// Close stops accepting events, flushes what is queued and closes both writers.
func (p *KafkaPublisher) Close() error {
	return errors.Join(p.rounds.close(), p.payments.close())
}

type topicQueue struct {
	name   string
	writer MessageWriter
	log    *zap.Logger

	mu     sync.RWMutex
	closed bool
	msgs   chan kafka.Message
	done   chan struct{}
}

func newTopicQueue(name string, w MessageWriter, log *zap.Logger) *topicQueue {
	q := &topicQueue{
		name:   name,
		writer: w,
		log:    log,
		msgs:   make(chan kafka.Message, queueSize),
		done:   make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *topicQueue) push(msg kafka.Message) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrPublisherClosed
	}
	select {
	case q.msgs <- msg:
		return nil
	default:
		return fmt.Errorf("%s: %w", q.name, ErrQueueFull)
	}
}

func (q *topicQueue) run() {
	defer close(q.done)
	for msg := range q.msgs {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		if err := q.writer.WriteMessages(ctx, msg); err != nil {
			q.log.Warn("write kafka message failed",
				zap.String("topic", q.name),
				zap.ByteString("key", msg.Key),
				zap.Error(err))
		}
		cancel()
	}
}

func (q *topicQueue) close() error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.msgs)
	}
	q.mu.Unlock()

	<-q.done
	return q.writer.Close()
}

func splitBrokers(brokers string) []string {
	var out []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
