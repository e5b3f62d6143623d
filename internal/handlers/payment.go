package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v82"
	"go.uber.org/zap"

	"gyanburu-backend/internal/middleware"
	"gyanburu-backend/internal/models"
	"gyanburu-backend/internal/services"
)

const maxWebhookBody = 65536

type PaymentProcessor interface {
	VerifyEvent(payload []byte, signatureHeader string) (stripe.Event, error)
	ProcessEvent(ctx context.Context, event stripe.Event) (*services.PaymentResult, error)
}

type CheckoutCreator interface {
	CreateCheckout(ctx context.Context, priceID, identity string) (string, error)
}

type PaymentHandler struct {
	payments PaymentProcessor
	checkout CheckoutCreator
	log      *zap.Logger
}

// NewPaymentHandler accepts a nil checkout when no processor key is
// configured; the checkout route then answers 503.
func NewPaymentHandler(payments PaymentProcessor, checkout CheckoutCreator, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{payments: payments, checkout: checkout, log: log}
}

// Webhook acknowledges every signed event, including ones that fail to
// apply, so the processor does not retry into the same failure.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unreadable body"})
		return
	}

	event, err := h.payments.VerifyEvent(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		h.log.Warn("webhook signature rejected", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid signature"})
		return
	}

	result, err := h.payments.ProcessEvent(c.Request.Context(), event)
	if err != nil {
		h.log.Error("webhook processing failed",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
	} else if result.Credited {
		h.log.Info("webhook credited wallet",
			zap.String("event_id", result.EventID),
			zap.String("identity", result.Identity),
			zap.Int64("new_credits", result.NewCredits))
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

// Checkout redirects GET callers to the hosted page and returns the URL to
// POST callers.
func (h *PaymentHandler) Checkout(c *gin.Context) {
	if h.checkout == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Checkout is not available"})
		return
	}

	var req models.CheckoutRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	identity := middleware.Identity(c)
	if identity == "" {
		identity = req.UID
	}

	url, err := h.checkout.CreateCheckout(c.Request.Context(), req.PriceID, identity)
	switch {
	case errors.Is(err, services.ErrInvalidCheckout):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing price"})
		return
	case err != nil:
		h.log.Error("create checkout failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create checkout session"})
		return
	}

	if c.Request.Method == http.MethodGet {
		c.Redirect(http.StatusFound, url)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}
