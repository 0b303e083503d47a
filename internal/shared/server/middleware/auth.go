package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"research-backend/internal/shared/apperr"
	"research-backend/internal/shared/server/respond"
)

const (
	userIDKey    = "userId"
	userEmailKey = "userEmail"
	userNameKey  = "userName"
)

// Principal is the resolved caller of an authenticated request.
type Principal struct {
	ID    string
	Email string
	Name  string
}

// Authenticator resolves a bearer token to the user it was issued for.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (Principal, error)
}

// Auth requires a valid bearer token and stores the caller's identity in
// the gin context. Failures answer 401 with a reason code.
func Auth(authn Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}

		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			respond.Error(c, http.StatusUnauthorized, "missing_token", "missing bearer token", nil)
			return
		}

		principal, err := authn.Authenticate(c.Request.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, apperr.ErrTokenExpired):
				respond.Error(c, http.StatusUnauthorized, "token_expired", "token has expired", nil)
			case errors.Is(err, apperr.ErrInvalidToken):
				respond.Error(c, http.StatusUnauthorized, "invalid_token", "invalid token", nil)
			case errors.Is(err, apperr.ErrUserNotFound):
				respond.Error(c, http.StatusUnauthorized, "user_not_found", "user not found", nil)
			default:
				respond.Error(c, http.StatusInternalServerError, "internal", "could not authenticate request", nil)
			}
			return
		}

		c.Set(userIDKey, principal.ID)
		if principal.Email != "" {
			c.Set(userEmailKey, principal.Email)
		}
		if principal.Name != "" {
			c.Set(userNameKey, principal.Name)
		}
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

// UserIDFromContext fetches the user ID set by the auth middleware.
func UserIDFromContext(c *gin.Context) string {
	return contextString(c, userIDKey)
}

// UserEmailFromContext fetches the user email set by the auth middleware.
func UserEmailFromContext(c *gin.Context) string {
	return contextString(c, userEmailKey)
}

// UserNameFromContext fetches the user name set by the auth middleware.
func UserNameFromContext(c *gin.Context) string {
	return contextString(c, userNameKey)
}

func contextString(c *gin.Context, key string) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(key)
	if s, ok := val.(string); ok {
		return s
	}
	return ""
}
