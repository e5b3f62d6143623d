package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gyanburu-backend/internal/middleware"
	"gyanburu-backend/internal/models"
	"gyanburu-backend/internal/services"
)

type ScoreSubmitter interface {
	Submit(ctx context.Context, sub models.ScoreSubmission) (*models.ScoreEntry, error)
	Leaderboard(ctx context.Context, collection string, limit int64) ([]*models.ScoreEntry, error)
}

type ScoreHandler struct {
	scores ScoreSubmitter
	log    *zap.Logger
}

func NewScoreHandler(scores ScoreSubmitter, log *zap.Logger) *ScoreHandler {
	return &ScoreHandler{scores: scores, log: log}
}

// SubmitAnonymous serves the plain HTTP score endpoint. Preflight and the
// per-IP limit are handled by middleware ahead of it.
func (h *ScoreHandler) SubmitAnonymous(c *gin.Context) {
	if c.Request.Method != http.MethodPost {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
		return
	}

	var sub models.ScoreSubmission
	if err := c.ShouldBindJSON(&sub); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	sub.Identity = middleware.Identity(c)

	entry, err := h.scores.Submit(c.Request.Context(), sub)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, models.ScoreResponse{ID: entry.ID, Score: entry.Score})
	case errors.Is(err, services.ErrInvalidScore):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid score"})
	case errors.Is(err, services.ErrScoreInfeasible):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Score exceeds maximum possible for the declared play"})
	case errors.Is(err, services.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Sign in required"})
	default:
		h.log.Error("score submission failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
	}
}

// SaveScore is the saveScore callable; it always requires an identity.
func (h *ScoreHandler) SaveScore(c *gin.Context) {
	identity := middleware.Identity(c)
	if identity == "" {
		rpcFail(c, h.log, services.ErrUnauthenticated)
		return
	}

	sub, ok := bindRPC[models.ScoreSubmission](c)
	if !ok {
		return
	}
	sub.Identity = identity

	entry, err := h.scores.Submit(c.Request.Context(), sub)
	if err != nil {
		rpcFail(c, h.log, err)
		return
	}
	rpcResult(c, models.ScoreResponse{ID: entry.ID, Score: entry.Score})
}

func (h *ScoreHandler) Leaderboard(c *gin.Context) {
	collection := services.LookupVariant(c.Param("collection")).Name
	limit, ok := queryLimit(c, 10)
	if !ok {
		return
	}

	entries, err := h.scores.Leaderboard(c.Request.Context(), collection, limit)
	if err != nil {
		h.log.Error("leaderboard failed", zap.String("collection", collection), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"collection": collection,
		"entries":    entries,
	})
}
