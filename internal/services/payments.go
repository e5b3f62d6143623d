package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gyanburu-backend/internal/metrics"
	"gyanburu-backend/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
	"go.uber.org/zap"
)

// MetadataIdentityKey is the checkout metadata field carrying the identity.
const MetadataIdentityKey = "uid"

type PaymentConfig struct {
	WebhookSecret string
	CreditAmount  int64
}

type PaymentService struct {
	redisService *RedisService
	cfg          PaymentConfig

	broadcaster Broadcaster
	publisher   EventPublisher
	metrics     *metrics.Metrics
	log         *zap.Logger
	now         func() time.Time
}

func NewPaymentService(redisService *RedisService, cfg PaymentConfig, opts ...PaymentOption) *PaymentService {
	s := &PaymentService{
		redisService: redisService,
		cfg:          cfg,
		broadcaster:  nopBroadcaster{},
		publisher:    nopPublisher{},
		log:          zap.NewNop(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type PaymentOption func(*PaymentService)

func PaymentBroadcaster(b Broadcaster) PaymentOption {
	return func(s *PaymentService) { s.broadcaster = b }
}

func PaymentPublisher(p EventPublisher) PaymentOption {
	return func(s *PaymentService) { s.publisher = p }
}

func PaymentMetrics(m *metrics.Metrics) PaymentOption {
	return func(s *PaymentService) { s.metrics = m }
}

func PaymentLogger(l *zap.Logger) PaymentOption {
	return func(s *PaymentService) { s.log = l }
}

// PaymentResult describes what an accepted event did.
type PaymentResult struct {
	EventID    string
	EventType  string
	Identity   string
	Credited   bool
	Duplicate  bool
	NewCredits int64
}

// VerifyEvent checks the signature header over the raw body. Nothing is read
// or written before this succeeds. Without a webhook secret every event is
// rejected.
func (s *PaymentService) VerifyEvent(payload []byte, signatureHeader string) (stripe.Event, error) {
	if s.cfg.WebhookSecret == "" {
		s.metrics.Payment("invalid_signature")
		return stripe.Event{}, fmt.Errorf("%w: webhook secret is not configured", ErrInvalidSignature)
	}
	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, s.cfg.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		s.metrics.Payment("invalid_signature")
		return stripe.Event{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return event, nil
}

// ProcessEvent credits the wallet attached to a completed checkout. Other
// event types are acknowledged untouched.
func (s *PaymentService) ProcessEvent(ctx context.Context, event stripe.Event) (*PaymentResult, error) {
	result := &PaymentResult{EventID: event.ID, EventType: string(event.Type)}

	if event.Type != stripe.EventTypeCheckoutSessionCompleted {
		s.metrics.Payment("ignored")
		return result, nil
	}
	if event.Data == nil {
		return result, fmt.Errorf("event %s has no data", event.ID)
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		s.metrics.Payment("error")
		return result, fmt.Errorf("failed to decode checkout session: %w", err)
	}

	identity := session.Metadata[MetadataIdentityKey]
	if identity == "" {
		s.metrics.Payment("unattributed")
		s.log.Warn("checkout completed without identity metadata; no wallet credited",
			zap.String("event_id", event.ID), zap.String("session_id", session.ID))
		return result, nil
	}
	result.Identity = identity

	deposit, duplicate, err := s.CreditWallet(ctx, identity, event.ID, session.ID, s.cfg.CreditAmount)
	if err != nil {
		s.metrics.Payment("error")
		return result, err
	}
	if duplicate {
		s.metrics.Payment("duplicate")
		result.Duplicate = true
		s.log.Info("payment event already applied", zap.String("event_id", event.ID), zap.String("identity", identity))
		return result, nil
	}

	result.Credited = true
	result.NewCredits = deposit.BalanceAfter
	s.metrics.Payment("credited")
	s.log.Info("credited wallet",
		zap.String("identity", identity),
		zap.Int64("amount", deposit.Amount),
		zap.String("event_id", event.ID))

	s.broadcaster.BroadcastBalance(identity, deposit.BalanceAfter)
	if err := s.publisher.PublishPaymentCredited(ctx, deposit); err != nil {
		s.log.Warn("publish payment failed", zap.String("event_id", event.ID), zap.Error(err))
	}
	return result, nil
}

// CreditWallet adds amount to the identity's wallet once per eventID. A
// missing wallet is opened with amount as its balance.
func (s *PaymentService) CreditWallet(ctx context.Context, identity, eventID, sessionID string, amount int64) (*models.Deposit, bool, error) {
	walletKey := fmt.Sprintf(KeyWallet, identity)
	depositsKey := fmt.Sprintf(KeyWalletDeposits, identity)
	eventsKey := fmt.Sprintf(KeyWalletEvents, identity)

	var (
		deposit   *models.Deposit
		duplicate bool
	)
	txf := func(tx *redis.Tx) error {
		deposit, duplicate = nil, false
		now := s.now()

		seen, err := tx.SIsMember(ctx, eventsKey, eventID).Result()
		if err != nil {
			return err
		}
		if seen {
			duplicate = true
			return nil
		}

		wallet, err := readWallet(ctx, tx, walletKey)
		if err != nil {
			return err
		}
		if wallet == nil {
			wallet = models.NewWallet(identity, 0, now)
		}

		wallet.Credits += amount
		wallet.LastUpdated = now

		d := &models.Deposit{
			ID:           models.GenerateDepositID(),
			Identity:     identity,
			EventID:      eventID,
			SessionID:    sessionID,
			Amount:       amount,
			BalanceAfter: wallet.Credits,
			CreatedAt:    now,
		}

		walletData, err := json.Marshal(wallet)
		if err != nil {
			return err
		}
		depositData, err := json.Marshal(d)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, walletKey, walletData, 0)
			pipe.RPush(ctx, depositsKey, depositData)
			pipe.SAdd(ctx, eventsKey, eventID)
			return nil
		})
		if err != nil {
			return err
		}
		deposit = d
		return nil
	}

	if err := watchRetry(ctx, s.redisService.client, txf, walletKey, eventsKey); err != nil {
		return nil, false, upstream("credit wallet", err)
	}
	return deposit, duplicate, nil
}
