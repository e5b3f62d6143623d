package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gyanburu-backend/internal/services"
)

// Callable status codes.
const (
	codeUnauthenticated    = "unauthenticated"
	codeInvalidArgument    = "invalid-argument"
	codeFailedPrecondition = "failed-precondition"
	codeResourceExhausted  = "resource-exhausted"
	codeInternal           = "internal"
)

type rpcRequest[T any] struct {
	Data T `json:"data"`
}

type rpcError struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func bindRPC[T any](c *gin.Context) (T, bool) {
	var req rpcRequest[T]
	if err := c.ShouldBindJSON(&req); err != nil {
		writeRPCError(c, http.StatusBadRequest, rpcError{Status: codeInvalidArgument, Message: "Invalid request body"})
		return req.Data, false
	}
	return req.Data, true
}

func rpcResult(c *gin.Context, v any) {
	c.JSON(http.StatusOK, gin.H{"result": v})
}

func writeRPCError(c *gin.Context, status int, e rpcError) {
	c.AbortWithStatusJSON(status, gin.H{"error": e})
}

// rpcFail maps service errors onto callable codes. Unknown errors are logged
// and reported as internal without detail.
func rpcFail(c *gin.Context, log *zap.Logger, err error) {
	var rle *services.RateLimitError
	switch {
	case errors.Is(err, services.ErrUnauthenticated):
		writeRPCError(c, http.StatusUnauthorized, rpcError{Status: codeUnauthenticated, Message: "Sign in required"})
	case errors.Is(err, services.ErrInvalidBet):
		writeRPCError(c, http.StatusBadRequest, rpcError{Status: codeInvalidArgument, Message: "Bet must be a positive whole number"})
	case errors.Is(err, services.ErrInvalidScore):
		writeRPCError(c, http.StatusBadRequest, rpcError{Status: codeInvalidArgument, Message: "Invalid score"})
	case errors.Is(err, services.ErrInsufficientCredits):
		writeRPCError(c, http.StatusBadRequest, rpcError{Status: codeFailedPrecondition, Message: "Insufficient credits"})
	case errors.Is(err, services.ErrWalletNotFound):
		writeRPCError(c, http.StatusBadRequest, rpcError{Status: codeFailedPrecondition, Message: "Wallet does not exist"})
	case errors.Is(err, services.ErrScoreInfeasible):
		writeRPCError(c, http.StatusBadRequest, rpcError{Status: codeFailedPrecondition, Message: "Score exceeds allowed bounds"})
	case errors.As(err, &rle):
		writeRPCError(c, http.StatusTooManyRequests, rpcError{
			Status:  codeResourceExhausted,
			Message: "Too many requests",
			Details: gin.H{"retryAfterMs": rle.RetryAfter.Milliseconds()},
		})
	default:
		log.Error("rpc failed", zap.String("path", c.FullPath()), zap.Error(err))
		writeRPCError(c, http.StatusInternalServerError, rpcError{Status: codeInternal, Message: "Internal error"})
	}
}
