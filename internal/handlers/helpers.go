package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"authcore/internal/middleware"
	"authcore/internal/models"
	"authcore/internal/repositories"
	"authcore/internal/services"
)

// respondError maps service errors to status codes. Anything unrecognised
// is logged and hidden behind a generic 500.
func respondError(c *gin.Context, log *zap.Logger, scope string, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrSecondFactorRequired):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error(), "second_factor_required": true})
	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrInvalidOrExpiredCode):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidSecondFactor):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrExpiredOrInvalidProof):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrDuplicateIdentity):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrTokenExpired):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error(), "token_expired": true})
	case errors.Is(err, services.ErrInvalidSignature):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error(), "token_expired": false})
	case errors.Is(err, repositories.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, context.DeadlineExceeded):
		log.Warn(scope+" timed out", zap.Error(err))
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "request timed out"})
	default:
		log.Error(scope+" failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

func currentUserID(c *gin.Context) (string, bool) {
	id := c.GetString(middleware.ContextUserIDKey)
	if id == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return "", false
	}
	return id, true
}

// AuthResponse is the body of every endpoint that signs someone in.
type AuthResponse struct {
	User   models.UserSummary `json:"user"`
	Tokens models.TokenPair   `json:"tokens"`
}

func authResponse(res *models.AuthResult) AuthResponse {
	return AuthResponse{User: res.User.Summary(), Tokens: res.Tokens}
}
