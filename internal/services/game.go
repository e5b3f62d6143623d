package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"gyanburu-backend/internal/config"
	"gyanburu-backend/internal/metrics"
	"gyanburu-backend/internal/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type GameConfig struct {
	// AutoCreateWallet opens a wallet with DefaultCredits on first spin.
	// When false a missing wallet fails with ErrWalletNotFound.
	AutoCreateWallet   bool
	DefaultCredits     int64
	DefaultSymbolCount int
	MinSymbolCount     int
	MaxSymbolCount     int
	Policy             SpinPolicy
}

func GameConfigFrom(cfg *config.Config) GameConfig {
	return GameConfig{
		AutoCreateWallet:   cfg.AutoCreateWallet,
		DefaultCredits:     cfg.DefaultCredits,
		DefaultSymbolCount: cfg.DefaultSymbolCount,
		MinSymbolCount:     cfg.MinSymbolCount,
		MaxSymbolCount:     cfg.MaxSymbolCount,
		Policy: SpinPolicy{
			Window:   cfg.SpinWindow,
			Limit:    cfg.SpinWindowLimit,
			Cooldown: cfg.SpinCooldown,
		},
	}
}

type GameEngine struct {
	redisService *RedisService
	outcomes     *OutcomeGenerator
	cfg          GameConfig

	broadcaster Broadcaster
	publisher   EventPublisher
	metrics     *metrics.Metrics
	log         *zap.Logger
	now         func() time.Time
}

type EngineOption func(*GameEngine)

func WithBroadcaster(b Broadcaster) EngineOption {
	return func(ge *GameEngine) { ge.broadcaster = b }
}

func WithPublisher(p EventPublisher) EngineOption {
	return func(ge *GameEngine) { ge.publisher = p }
}

func WithMetrics(m *metrics.Metrics) EngineOption {
	return func(ge *GameEngine) { ge.metrics = m }
}

func WithLogger(l *zap.Logger) EngineOption {
	return func(ge *GameEngine) { ge.log = l }
}

func WithClock(now func() time.Time) EngineOption {
	return func(ge *GameEngine) { ge.now = now }
}

func NewGameEngine(redisService *RedisService, outcomes *OutcomeGenerator, cfg GameConfig, opts ...EngineOption) *GameEngine {
	ge := &GameEngine{
		redisService: redisService,
		outcomes:     outcomes,
		cfg:          cfg,
		broadcaster:  nopBroadcaster{},
		publisher:    nopPublisher{},
		log:          zap.NewNop(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(ge)
	}
	return ge
}

// ValidateBet accepts finite, positive, whole-credit bets.
func ValidateBet(bet float64) (int64, error) {
	if math.IsNaN(bet) || math.IsInf(bet, 0) || bet <= 0 {
		return 0, fmt.Errorf("%w: bet must be a positive number", ErrInvalidBet)
	}
	if bet != math.Trunc(bet) || bet > math.MaxInt32 {
		return 0, fmt.Errorf("%w: bet must be a whole number of credits", ErrInvalidBet)
	}
	return int64(bet), nil
}

// SymbolCount resolves the reel size for a request. Zero means the default;
// anything else is clamped so a client cannot shrink the reel.
func (ge *GameEngine) SymbolCount(requested int) int {
	if requested == 0 {
		requested = ge.cfg.DefaultSymbolCount
	}
	return int(ClampInt(requested, int64(ge.cfg.MinSymbolCount), int64(ge.cfg.MaxSymbolCount)))
}

// SettleSpin debits bet, draws an outcome and credits the payout in one
// transaction together with the rate-limit update and round record.
func (ge *GameEngine) SettleSpin(ctx context.Context, identity string, bet float64, symbolCount int) (*models.SpinResult, error) {
	if identity == "" {
		return nil, ErrUnauthenticated
	}
	amount, err := ValidateBet(bet)
	if err != nil {
		ge.metrics.SpinRejected("invalid_bet")
		return nil, err
	}
	symbols := ge.SymbolCount(symbolCount)

	walletKey := fmt.Sprintf(KeyWallet, identity)
	roundsKey := fmt.Sprintf(KeyWalletRounds, identity)
	limitKey := fmt.Sprintf(KeyRateLimit, identity)

	var round *models.Round
	txf := func(tx *redis.Tx) error {
		now := ge.now()

		wallet, err := readWallet(ctx, tx, walletKey)
		if err != nil {
			return err
		}
		if wallet == nil {
			if !ge.cfg.AutoCreateWallet {
				return ErrWalletNotFound
			}
			wallet = models.NewWallet(identity, ge.cfg.DefaultCredits, now)
		}

		if amount > wallet.Credits {
			return fmt.Errorf("%w: have %d, need %d", ErrInsufficientCredits, wallet.Credits, amount)
		}

		window, err := readRateLimitWindow(ctx, tx, limitKey)
		if err != nil {
			return err
		}
		nextWindow, err := ge.cfg.Policy.Apply(window, now)
		if err != nil {
			return err
		}

		outcome := ge.outcomes.Spin(symbols)
		payout := Payout(amount, outcome.Multiplier)
		newCredits := models.ApplySpin(wallet.Credits, amount, payout)

		wallet.Credits = newCredits
		wallet.LastUpdated = now

		r := &models.Round{
			ID:           models.GenerateRoundID(),
			Identity:     identity,
			Bet:          amount,
			SymbolCount:  symbols,
			Indices:      outcome.Indices,
			Class:        outcome.Class,
			Multiplier:   outcome.Multiplier,
			Payout:       payout,
			Net:          payout - amount,
			CreditsAfter: newCredits,
			CreatedAt:    now,
		}

		walletData, err := json.Marshal(wallet)
		if err != nil {
			return err
		}
		roundData, err := json.Marshal(r)
		if err != nil {
			return err
		}
		windowData, err := json.Marshal(nextWindow)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, walletKey, walletData, 0)
			pipe.RPush(ctx, roundsKey, roundData)
			pipe.Set(ctx, limitKey, windowData, ge.cfg.Policy.TTL())
			return nil
		})
		if err != nil {
			return err
		}

		round = r
		return nil
	}

	if err := watchRetry(ctx, ge.redisService.client, txf, walletKey, limitKey); err != nil {
		return nil, ge.spinFailure(identity, err)
	}

	ge.metrics.Spin(string(round.Class))
	ge.broadcaster.BroadcastBalance(identity, round.CreditsAfter)
	if err := ge.publisher.PublishRoundSettled(ctx, round); err != nil {
		ge.log.Warn("publish round failed", zap.String("round_id", round.ID), zap.Error(err))
	}

	return &models.SpinResult{
		Indices:    round.Indices,
		Type:       round.Class,
		Mult:       round.Multiplier,
		Payout:     round.Payout,
		NewCredits: round.CreditsAfter,
		RoundID:    round.ID,
	}, nil
}

func (ge *GameEngine) spinFailure(identity string, err error) error {
	switch {
	case errors.Is(err, ErrInsufficientCredits):
		ge.metrics.SpinRejected("insufficient_credits")
	case errors.Is(err, ErrWalletNotFound):
		ge.metrics.SpinRejected("wallet_not_found")
	case errors.Is(err, ErrRateLimited):
		ge.metrics.SpinRejected("rate_limited")
		ge.metrics.RateLimited("spin")
	default:
		ge.metrics.SpinRejected("upstream")
		ge.log.Error("settle spin failed", zap.String("identity", identity), zap.Error(err))
		return upstream("settle spin", err)
	}
	return err
}

// Balance reports the wallet without creating it.
func (ge *GameEngine) Balance(ctx context.Context, identity string) (*models.BalanceResponse, error) {
	wallet, err := ge.redisService.GetWallet(ctx, identity)
	if err != nil {
		return nil, upstream("get wallet", err)
	}
	if wallet == nil {
		if !ge.cfg.AutoCreateWallet {
			return nil, ErrWalletNotFound
		}
		return &models.BalanceResponse{Identity: identity, Credits: ge.cfg.DefaultCredits}, nil
	}
	return &models.BalanceResponse{
		Identity:    identity,
		Credits:     wallet.Credits,
		LastUpdated: wallet.LastUpdated,
	}, nil
}

func (ge *GameEngine) Rounds(ctx context.Context, identity string, limit int64) ([]*models.Round, error) {
	rounds, err := ge.redisService.GetRounds(ctx, identity, limit)
	if err != nil {
		return nil, upstream("get rounds", err)
	}
	return rounds, nil
}
