package server

import (
	"net/http"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"

	"research-backend/internal/analytics"
	"research-backend/internal/auth"
	"research-backend/internal/chat"
	"research-backend/internal/documents"
	"research-backend/internal/shared/config"
	"research-backend/internal/shared/metrics"
	"research-backend/internal/shared/server/middleware"
	"research-backend/internal/shared/server/respond"
)

// RouterDeps groups the handlers mounted by NewRouter.
type RouterDeps struct {
	Config           config.Config
	Metrics          *metrics.Metrics
	Authenticator    middleware.Authenticator
	RateLimiter      *middleware.RateLimiter
	AuthHandler      *auth.Handler
	GoogleAuth       *auth.GoogleService
	DocumentHandler  *documents.Handler
	ChatHandler      *chat.Handler
	AnalyticsHandler *analytics.Handler
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	cfg := deps.Config
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(middleware.RequestID())
	if cfg.SentryDSN != "" {
		// Outermost so the hub is attached before Recovery runs.
		r.Use(sentrygin.New(sentrygin.Options{Repanic: false}))
	}
	r.Use(
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
	)
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware())
		r.GET("/metrics", deps.Metrics.Handler())
	}

	limiter := deps.RateLimiter
	if limiter == nil {
		limiter = middleware.NewRateLimiter(nil)
	}
	authLimit := middleware.RateLimit("auth", middleware.RateLimitRule{PerMinute: cfg.AuthPerMinute}, limiter)
	askLimit := middleware.RateLimit("chat_ask", middleware.RateLimitRule{PerMinute: cfg.AskPerMinute}, limiter)

	api := r.Group("/api")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	if deps.AuthHandler != nil {
		deps.AuthHandler.RegisterPublicRoutes(api, authLimit)
	}
	if deps.GoogleAuth != nil {
		deps.GoogleAuth.RegisterRoutes(api)
	}

	protected := api.Group("")
	protected.Use(middleware.Auth(deps.Authenticator))
	if deps.AuthHandler != nil {
		deps.AuthHandler.RegisterRoutes(protected)
	}
	if deps.DocumentHandler != nil {
		deps.DocumentHandler.RegisterRoutes(protected)
	}
	if deps.ChatHandler != nil {
		deps.ChatHandler.RegisterRoutes(protected, askLimit)
	}
	if deps.AnalyticsHandler != nil {
		deps.AnalyticsHandler.RegisterRoutes(protected)
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
