package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/etests/etests-backend/internal/response"
	"github.com/etests/etests-backend/internal/service"
	"github.com/gin-gonic/gin"
)

const (
	// ContextKeyClaims is the Gin context key for JWT claims.
	ContextKeyClaims = "claims"
)

// Authenticator resolves an access token to claims, enforcing the single
// active session. Implemented by service.AuthService.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*service.Claims, error)
}

// RequireAuth validates the bearer access token from the Authorization header.
func RequireAuth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authenticate(c, auth, bearerToken(c))
	}
}

// RequireWSAuth validates an access token from the query param ?token=...
// Used for WebSocket upgrade requests, which cannot carry headers from browsers.
func RequireWSAuth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authenticate(c, auth, c.Query("token"))
	}
}

func authenticate(c *gin.Context, auth Authenticator, token string) {
	if token == "" {
		response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	claims, err := auth.Authenticate(c.Request.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTokenExpired):
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenExpired)
		case errors.Is(err, service.ErrSessionInvalidated):
			response.AbortFail(c, http.StatusUnauthorized, response.ErrSessionInvalidated)
		case errors.Is(err, service.ErrAccountDisabled):
			response.AbortFail(c, http.StatusForbidden, response.ErrAccountDisabled)
		case errors.Is(err, service.ErrTokenInvalid):
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
		default:
			_ = c.Error(err)
			response.AbortFail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	c.Set(ContextKeyClaims, claims)
	c.Next()
}

// GetClaims retrieves the JWT claims from the Gin context.
func GetClaims(c *gin.Context) *service.Claims {
	val, exists := c.Get(ContextKeyClaims)
	if !exists {
		return nil
	}
	claims, ok := val.(*service.Claims)
	if !ok {
		return nil
	}
	return claims
}

func bearerToken(c *gin.Context) string {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}
