package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"

	"research-backend/internal/shared/server/respond"
	"research-backend/internal/shared/telemetry"
)

// Recovery recovers from panics, reports them to Sentry when a hub is
// attached, and returns a standardized error response. Events carry the
// authenticated user when the auth middleware ran before the panic.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				telemetry.Error("panic", map[string]any{
					"request_id": RequestIDFromContext(c),
					"user_id":    UserIDFromContext(c),
					"error":      fmt.Sprint(rec),
					"stack":      string(debug.Stack()),
					"path":       c.Request.URL.Path,
					"method":     c.Request.Method,
				})
				if hub := sentrygin.GetHubFromContext(c); hub != nil {
					hub.WithScope(func(scope *sentry.Scope) {
						if id := UserIDFromContext(c); id != "" {
							scope.SetUser(sentry.User{
								ID:       id,
								Email:    UserEmailFromContext(c),
								Username: UserNameFromContext(c),
							})
						}
						scope.SetTag("request_id", RequestIDFromContext(c))
						hub.RecoverWithContext(c.Request.Context(), rec)
					})
				}
				respond.Error(c, http.StatusInternalServerError, "internal", "unexpected server error", nil)
			}
		}()
		c.Next()
	}
}
