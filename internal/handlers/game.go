package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gyanburu-backend/internal/middleware"
	"gyanburu-backend/internal/models"
	"gyanburu-backend/internal/services"
)

type SpinSettler interface {
	SettleSpin(ctx context.Context, identity string, bet float64, symbolCount int) (*models.SpinResult, error)
}

type GameHandler struct {
	engine SpinSettler
	log    *zap.Logger
}

func NewGameHandler(engine SpinSettler, log *zap.Logger) *GameHandler {
	return &GameHandler{engine: engine, log: log}
}

// PlaceBetAndSpin is the placeBetAndSpin callable.
func (h *GameHandler) PlaceBetAndSpin(c *gin.Context) {
	identity := middleware.Identity(c)
	if identity == "" {
		rpcFail(c, h.log, services.ErrUnauthenticated)
		return
	}

	req, ok := bindRPC[models.SpinRequest](c)
	if !ok {
		return
	}

	symbols := 0
	if req.IconCount != nil {
		symbols = *req.IconCount
	}

	result, err := h.engine.SettleSpin(c.Request.Context(), identity, req.Bet, symbols)
	if err != nil {
		rpcFail(c, h.log, err)
		return
	}
	rpcResult(c, result)
}
