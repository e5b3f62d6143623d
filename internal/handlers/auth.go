package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"gyanburu-backend/internal/middleware"
)

const guestPrefix = "guest_"

type TokenIssuer interface {
	GenerateToken(uid string) (string, error)
}

type AuthHandler struct {
	tokens TokenIssuer
	ttl    time.Duration
	log    *zap.Logger
}

func NewAuthHandler(tokens TokenIssuer, ttl time.Duration, log *zap.Logger) *AuthHandler {
	return &AuthHandler{tokens: tokens, ttl: ttl, log: log}
}

// Guest opens an anonymous session. A caller that already holds a valid
// token gets a fresh one for the same identity, so the wallet survives.
func (h *AuthHandler) Guest(c *gin.Context) {
	identity := middleware.Identity(c)
	if identity == "" {
		identity = guestPrefix + uuid.NewString()
	}

	token, err := h.tokens.GenerateToken(identity)
	if err != nil {
		h.log.Error("issue token failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"uid":        identity,
		"expires_in": int64(h.ttl.Seconds()),
	})
}
