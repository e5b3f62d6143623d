package services

import (
	"context"
	"fmt"

	"gyanburu-backend/internal/config"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
)

// sessionCreator is the slice of the Stripe client used to open sessions.
type sessionCreator interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

type CheckoutService struct {
	sessions     sessionCreator
	defaultPrice string
	successURL   string
	cancelURL    string
}

func NewCheckoutService(cfg *config.Config) (*CheckoutService, error) {
	if cfg.StripeSecretKey == "" {
		return nil, ErrCheckoutNotConfigured
	}
	sc := &client.API{}
	sc.Init(cfg.StripeSecretKey, nil)
	return newCheckoutService(sc.CheckoutSessions, cfg), nil
}

func newCheckoutService(sessions sessionCreator, cfg *config.Config) *CheckoutService {
	return &CheckoutService{
		sessions:     sessions,
		defaultPrice: cfg.StripePriceID,
		successURL:   cfg.SuccessURL,
		cancelURL:    cfg.CancelURL,
	}
}

// DefaultPrice is used when a request names no price.
func (s *CheckoutService) DefaultPrice() string {
	return s.defaultPrice
}

// CreateCheckout opens a one-item payment session and returns its URL. The
// identity rides along as metadata so the webhook can attribute the payment.
func (s *CheckoutService) CreateCheckout(ctx context.Context, priceID, identity string) (string, error) {
	if priceID == "" {
		priceID = s.defaultPrice
	}
	if priceID == "" {
		return "", fmt.Errorf("%w: price is required", ErrInvalidCheckout)
	}

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(priceID), Quantity: stripe.Int64(1)},
		},
		SuccessURL: stripe.String(s.successURL),
		CancelURL:  stripe.String(s.cancelURL),
	}
	params.Context = ctx
	if identity != "" {
		params.ClientReferenceID = stripe.String(identity)
		params.AddMetadata(MetadataIdentityKey, identity)
	}

	session, err := s.sessions.New(params)
	if err != nil {
		return "", upstream("create checkout session", err)
	}
	return session.URL, nil
}
