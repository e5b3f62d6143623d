package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gyanburu-backend/internal/middleware"
	"gyanburu-backend/internal/models"
	"gyanburu-backend/internal/services"
)

type WalletReader interface {
	Balance(ctx context.Context, identity string) (*models.BalanceResponse, error)
	Rounds(ctx context.Context, identity string, limit int64) ([]*models.Round, error)
}

type WalletHandler struct {
	wallets WalletReader
	log     *zap.Logger
}

func NewWalletHandler(wallets WalletReader, log *zap.Logger) *WalletHandler {
	return &WalletHandler{wallets: wallets, log: log}
}

func (h *WalletHandler) GetBalance(c *gin.Context) {
	identity := middleware.Identity(c)

	balance, err := h.wallets.Balance(c.Request.Context(), identity)
	if errors.Is(err, services.ErrWalletNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Wallet not found"})
		return
	}
	if err != nil {
		h.log.Error("get balance failed", zap.String("identity", identity), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get balance"})
		return
	}

	c.JSON(http.StatusOK, balance)
}

func (h *WalletHandler) GetRounds(c *gin.Context) {
	identity := middleware.Identity(c)
	limit, ok := queryLimit(c, 50)
	if !ok {
		return
	}

	rounds, err := h.wallets.Rounds(c.Request.Context(), identity, limit)
	if err != nil {
		h.log.Error("get rounds failed", zap.String("identity", identity), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get rounds"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"rounds": rounds,
		"count":  len(rounds),
	})
}

// queryLimit reads a positive ?limit=, using def when it is absent. A
// malformed value is answered with 400.
func queryLimit(c *gin.Context, def int64) (int64, bool) {
	raw, ok := c.GetQuery("limit")
	if !ok || raw == "" {
		return def, true
	}
	limit, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
		return 0, false
	}
	return limit, true
}
