package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"research-backend/internal/analytics"
	"research-backend/internal/auth"
	"research-backend/internal/chat"
	"research-backend/internal/documents"
	"research-backend/internal/extract"
	"research-backend/internal/llm"
	"research-backend/internal/llm/openai"
	"research-backend/internal/shared/apperr"
	sharedauth "research-backend/internal/shared/auth"
	"research-backend/internal/shared/config"
	"research-backend/internal/shared/metrics"
	"research-backend/internal/shared/resilience"
	"research-backend/internal/shared/server"
	"research-backend/internal/shared/server/middleware"
	"research-backend/internal/shared/storage/db"
	mongostore "research-backend/internal/shared/storage/mongo"
	"research-backend/internal/shared/storage/object"
	localstore "research-backend/internal/shared/storage/object/local"
	s3store "research-backend/internal/shared/storage/object/s3"
	"research-backend/internal/shared/telemetry"
	"research-backend/internal/users"
)

// App holds the wired services and the HTTP router.
type App struct {
	Config    config.Config
	Router    *gin.Engine
	Metrics   *metrics.Metrics
	Store     object.Store
	Users     *users.Service
	Auth      *auth.Service
	Documents *documents.Service
	Chat      *chat.Service
	Analytics *analytics.Service

	closers []func(context.Context) error
}

// Option overrides a dependency, mainly for tests.
type Option func(*overrides)

type overrides struct {
	llm llm.Client
}

// WithLLM replaces the configured LLM provider client.
func WithLLM(client llm.Client) Option {
	return func(o *overrides) { o.llm = client }
}

type repos struct {
	users     users.Repo
	documents documents.Repo
	chat      chat.Repo
}

// Build connects the configured stores and wires every service.
func Build(ctx context.Context, cfg config.Config, opts ...Option) (*App, error) {
	var ov overrides
	for _, opt := range opts {
		opt(&ov)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrConfiguration, err)
	}

	app := &App{Config: cfg, Metrics: metrics.New()}

	r, err := app.buildRepos(ctx)
	if err != nil {
		_ = app.Close(context.Background())
		return nil, err
	}
	store, err := buildStore(ctx, cfg)
	if err != nil {
		_ = app.Close(context.Background())
		return nil, err
	}
	app.Store = store

	tokens, err := sharedauth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		_ = app.Close(context.Background())
		return nil, err
	}

	llmClient := ov.llm
	if llmClient == nil {
		llmClient, err = buildLLM(cfg)
		if err != nil {
			_ = app.Close(context.Background())
			return nil, err
		}
	}
	guarded := llm.NewGuarded(llmClient, cfg.LLMProvider, cfg.LLMTimeout, resilience.DefaultConfig(), app.Metrics)

	app.Users = users.NewService(r.users, cfg.StoreTimeout)
	app.Auth = auth.NewService(app.Users, tokens)
	app.Documents = &documents.Service{
		Repo:         r.documents,
		Store:        store,
		Extractor:    extract.NewPDF(),
		Metrics:      app.Metrics,
		StoreTimeout: cfg.StoreTimeout,
	}
	app.Chat = &chat.Service{
		Repo:         r.chat,
		Documents:    app.Documents,
		LLM:          guarded,
		Metrics:      app.Metrics,
		StoreTimeout: cfg.StoreTimeout,
	}
	app.Documents.Chats = app.Chat
	app.Analytics = &analytics.Service{Documents: app.Documents, Chats: app.Chat}

	// Without Google settings the routes stay mounted and answer
	// auth_not_configured.
	google := auth.NewGoogleService(app.Auth, auth.GoogleConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
		UIRedirect:   cfg.UIRedirectURL,
	})

	app.Router = server.NewRouter(server.RouterDeps{
		Config:           cfg,
		Metrics:          app.Metrics,
		Authenticator:    app.Auth.Authenticator(),
		RateLimiter:      middleware.NewRateLimiter(nil),
		AuthHandler:      auth.NewHandler(app.Auth),
		GoogleAuth:       google,
		DocumentHandler:  documents.NewHandler(app.Documents),
		ChatHandler:      chat.NewHandler(app.Chat),
		AnalyticsHandler: analytics.NewHandler(app.Analytics),
	})

	telemetry.Info("bootstrap.ready", map[string]any{
		"store_driver": cfg.StoreDriver,
		"object_store": cfg.ObjectStoreType,
		"llm_provider": cfg.LLMProvider,
	})
	return app, nil
}

// Close releases store connections in reverse order of creation.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) buildRepos(ctx context.Context) (repos, error) {
	cfg := a.Config
	switch cfg.StoreDriver {
	case "mongo":
		client, database, err := mongostore.Connect(ctx, cfg.MongoURL, cfg.DBName, mongostore.DefaultOptions())
		if err != nil {
			return repos{}, err
		}
		a.closers = append(a.closers, client.Disconnect)
		if err := mongostore.EnsureIndexes(ctx, database); err != nil {
			return repos{}, err
		}
		return mongoRepos(database), nil
	case "postgres":
		sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
		if err != nil {
			return repos{}, err
		}
		a.closers = append(a.closers, func(context.Context) error { return sqlDB.Close() })
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			return repos{}, err
		}
		return pgRepos(sqlDB), nil
	case "memory":
		telemetry.Warn("bootstrap.memory_store", map[string]any{"env": cfg.Env})
		return repos{
			users:     users.NewMemoryRepo(),
			documents: documents.NewMemoryRepo(),
			chat:      chat.NewMemoryRepo(),
		}, nil
	default:
		return repos{}, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
}

func mongoRepos(database *mongo.Database) repos {
	return repos{
		users:     users.NewMongoRepo(database),
		documents: documents.NewMongoRepo(database),
		chat:      chat.NewMongoRepo(database),
	}
}

func pgRepos(sqlDB *sql.DB) repos {
	return repos{
		users:     &users.PGRepo{DB: sqlDB},
		documents: &documents.PGRepo{DB: sqlDB},
		chat:      &chat.PGRepo{DB: sqlDB},
	}
}

func buildStore(ctx context.Context, cfg config.Config) (object.Store, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir)
	}
}

// buildLLM returns the provider client. A missing key is not fatal: chat
// requests fail individually with a configuration error.
func buildLLM(cfg config.Config) (llm.Client, error) {
	switch strings.ToLower(cfg.LLMProvider) {
	case "stub":
		return llm.StaticClient{}, nil
	case "", "openai":
		if strings.TrimSpace(cfg.LLMAPIKey) == "" {
			telemetry.Warn("bootstrap.llm_not_configured", map[string]any{"provider": cfg.LLMProvider})
			return llm.UnconfiguredClient{}, nil
		}
		timeout := cfg.LLMTimeout
		if timeout <= 0 {
			timeout = 120 * time.Second
		}
		return openai.NewClient(openai.Config{
			APIKey:  cfg.LLMAPIKey,
			Model:   cfg.LLMModel,
			BaseURL: cfg.LLMBaseURL,
			Timeout: timeout,
		})
	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER %q", cfg.LLMProvider)
	}
}
