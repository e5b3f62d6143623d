package services

import (
	"context"

	"gyanburu-backend/internal/models"
)

// Broadcaster pushes committed balances to connected clients.
type Broadcaster interface {
	BroadcastBalance(identity string, credits int64)
}

// EventPublisher receives committed wallet mutations for downstream consumers.
type EventPublisher interface {
	PublishRoundSettled(ctx context.Context, round *models.Round) error
	PublishPaymentCredited(ctx context.Context, deposit *models.Deposit) error
}

type nopBroadcaster struct{}

func (nopBroadcaster) BroadcastBalance(string, int64) {}

type nopPublisher struct{}

func (nopPublisher) PublishRoundSettled(context.Context, *models.Round) error { return nil }

func (nopPublisher) PublishPaymentCredited(context.Context, *models.Deposit) error { return nil }
