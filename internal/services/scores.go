package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"gyanburu-backend/internal/metrics"
	"gyanburu-backend/internal/models"

	"go.uber.org/zap"
)

const (
	MaxNameLength = 20
	DefaultName   = "Player"
)

// ScoreStore persists immutable leaderboard entries.
type ScoreStore interface {
	SaveScore(ctx context.Context, entry *models.ScoreEntry) error
	TopScores(ctx context.Context, collection string, limit int64) ([]*models.ScoreEntry, error)
}

type ScoreService struct {
	store           ScoreStore
	requireIdentity bool
	metrics         *metrics.Metrics
	log             *zap.Logger
	now             func() time.Time
}

func NewScoreService(store ScoreStore, requireIdentity bool, m *metrics.Metrics, log *zap.Logger) *ScoreService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ScoreService{
		store:           store,
		requireIdentity: requireIdentity,
		metrics:         m,
		log:             log,
		now:             time.Now,
	}
}

// Submit validates, bounds and stores a score. The anonymous and
// authenticated request shapes both land here.
func (s *ScoreService) Submit(ctx context.Context, sub models.ScoreSubmission) (*models.ScoreEntry, error) {
	variant := LookupVariant(sub.Collection)

	if s.requireIdentity && sub.Identity == "" {
		s.metrics.Score(variant.Name, "unauthenticated")
		return nil, ErrUnauthenticated
	}

	score, err := ParseScore(sub.Score)
	if err != nil {
		s.metrics.Score(variant.Name, "invalid")
		return nil, err
	}

	params := ClampPlayParams(variant, sub.MaxBet, sub.MaxMultiplier, sub.RoundsPlayed)
	if err := CheckFeasibility(score, params); err != nil {
		s.metrics.Score(variant.Name, "infeasible")
		s.log.Info("rejected infeasible score",
			zap.String("collection", variant.Name),
			zap.Int64("score", score),
			zap.Int64("bound", params.Bound()),
			zap.String("identity", sub.Identity))
		return nil, err
	}

	entry := &models.ScoreEntry{
		ID:         models.GenerateScoreID(),
		Name:       SanitizeName(sub.Name),
		Score:      score,
		Collection: variant.Name,
		Identity:   sub.Identity,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.store.SaveScore(ctx, entry); err != nil {
		s.metrics.Score(variant.Name, "error")
		s.log.Error("save score failed", zap.String("collection", variant.Name), zap.Error(err))
		return nil, upstream("save score", err)
	}

	s.metrics.Score(variant.Name, "accepted")
	return entry, nil
}

func (s *ScoreService) Leaderboard(ctx context.Context, collection string, limit int64) ([]*models.ScoreEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	entries, err := s.store.TopScores(ctx, LookupVariant(collection).Name, limit)
	if err != nil {
		return nil, upstream("top scores", err)
	}
	return entries, nil
}

// ParseScore requires a finite non-negative number and floors it. Values past
// MaxScore are kept so feasibility rejects them instead of storing a cap.
// A missing score counts as zero.
func ParseScore(raw any) (int64, error) {
	if raw == nil {
		return 0, nil
	}
	f, ok := toFloat(raw)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0, fmt.Errorf("%w: %v", ErrInvalidScore, raw)
	}
	f = math.Floor(f)
	if f >= math.MaxInt64 {
		return math.MaxInt64, nil
	}
	return int64(f), nil
}

// SanitizeName trims, replaces newlines with spaces, drops other control
// characters and caps the length in runes.
func SanitizeName(raw any) string {
	var name string
	switch v := raw.(type) {
	case nil:
	case string:
		name = v
	default:
		name = fmt.Sprint(v)
	}

	name = strings.Map(func(r rune) rune {
		switch {
		case r == '\r' || r == '\n':
			return ' '
		case unicode.IsControl(r), r == utf8.RuneError:
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)

	if utf8.RuneCountInString(name) > MaxNameLength {
		name = strings.TrimSpace(string([]rune(name)[:MaxNameLength]))
	}
	if name == "" {
		return DefaultName
	}
	return name
}
