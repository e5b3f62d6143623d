package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"gyanburu-backend/internal/services"
)

const (
	IdentityKey = "uid"
	SessionKey  = "session_id"
)

var errMalformedAuth = errors.New("invalid authorization format")

type TokenValidator interface {
	ValidateToken(token string) (*services.Claims, error)
}

// tokenFrom reads a bearer token from the Authorization header, falling back
// to the token query parameter for websocket upgrades.
func tokenFrom(c *gin.Context) (string, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return c.Query("token"), nil
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", errMalformedAuth
	}
	return parts[1], nil
}

// AuthMiddleware rejects requests without a valid token.
func AuthMiddleware(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := tokenFrom(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization format"})
			return
		}
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		claims, err := validator.ValidateToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set(IdentityKey, claims.UID)
		c.Set(SessionKey, claims.SessionID)
		c.Next()
	}
}

// OptionalAuth attaches the identity when a valid token is present and lets
// every request through. Handlers decide whether identity is required.
func OptionalAuth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := tokenFrom(c)
		if err == nil && tokenString != "" {
			if claims, err := validator.ValidateToken(tokenString); err == nil {
				c.Set(IdentityKey, claims.UID)
				c.Set(SessionKey, claims.SessionID)
			}
		}
		c.Next()
	}
}

// Identity returns the authenticated identity or "".
func Identity(c *gin.Context) string {
	return c.GetString(IdentityKey)
}
