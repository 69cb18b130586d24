package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"authcore/internal/services"
)

const (
	ContextUserIDKey = "user_id"
	ContextClaimsKey = "claims"
)

// TokenVerifier is the part of services.TokenService the middleware needs.
type TokenVerifier interface {
	Verify(token string) (*services.Claims, error)
}

// AuthMiddleware requires a valid access token and stores its claims in the
// gin context.
func AuthMiddleware(tokens TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		tokenStr, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
			return
		}

		claims, err := tokens.Verify(tokenStr)
		if err != nil {
			expired := errors.Is(err, services.ErrTokenExpired)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":         err.Error(),
				"token_expired": expired,
			})
			return
		}

		c.Set(ContextUserIDKey, claims.UserID())
		c.Set(ContextClaimsKey, claims)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// ClaimsFrom returns the claims stored by AuthMiddleware.
func ClaimsFrom(c *gin.Context) (*services.Claims, bool) {
	v, ok := c.Get(ContextClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*services.Claims)
	return claims, ok
}
