package api

import (
	"context"
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/webrana-crm-intake/internal/api/handlers"
	"github.com/welldanyogia/webrana-crm-intake/internal/api/middleware"
	"github.com/welldanyogia/webrana-crm-intake/internal/logger"
	"github.com/welldanyogia/webrana-crm-intake/internal/repository"
	"gorm.io/gorm"
)

const defaultBodyLimit = "2M"

// RouterConfig holds dependencies for the router
type RouterConfig struct {
	DB           *gorm.DB
	IntakeRepo   repository.IntakeRepository
	Processor    handlers.EmailProcessor
	Submitter    handlers.DecisionSubmitter
	Dedup        handlers.DuplicateFilter // nil disables webhook dedup
	Webhooks     []handlers.WebhookProvider
	HealthChecks map[string]handlers.Pinger
	Logger       *slog.Logger

	// Security configuration
	APIKey            string   // empty disables API key auth
	ReviewerJWTSecret string   // empty disables reviewer tokens
	AllowedOrigins    []string // allowed CORS origins
	Production        bool
	RateLimit         float64 // requests per second per IP
	RateBurst         int
	BodyLimit         string
}

// NewRouter creates and configures the Echo router with all routes.
// ctx bounds background work such as rate limiter cleanup.
func NewRouter(ctx context.Context, cfg *RouterConfig) *echo.Echo {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	sec := logger.FromLogger(log)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.SecureHeaders())
	e.Use(middleware.SecureCORS(cfg.AllowedOrigins, cfg.Production))

	if cfg.RateLimit > 0 {
		e.Use(middleware.RateLimiter(ctx, cfg.RateLimit, cfg.RateBurst, sec))
	}

	bodyLimit := cfg.BodyLimit
	if bodyLimit == "" {
		bodyLimit = defaultBodyLimit
	}
	e.Use(middleware.BodyLimit(bodyLimit))
	e.Use(middleware.RequestLogger(log))

	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.HealthChecks)
	intakeHandler := handlers.NewIntakeHandler(cfg.Processor, cfg.Submitter, cfg.IntakeRepo)
	webhookHandler := handlers.NewWebhookHandler(cfg.Processor, cfg.Dedup, enabledWebhooks(cfg.Webhooks, cfg.Production, log), sec, log)

	// Health routes (no auth required)
	e.GET("/health", healthHandler.Health)
	e.GET("/ready", healthHandler.Ready)

	api := e.Group("/api")
	api.Use(middleware.APIKeyAuth(cfg.APIKey, sec))

	intakes := api.Group("/email-intakes")
	intakes.POST("/process", intakeHandler.Process)
	intakes.GET("/pending", intakeHandler.ListPending)
	intakes.GET("/:id", intakeHandler.Get)
	intakes.POST("/:id/decision", intakeHandler.SubmitDecision, middleware.ReviewerJWT(cfg.ReviewerJWTSecret, sec))

	// Webhook routes authenticate per provider
	webhooks := api.Group("/webhooks")
	webhooks.POST("/email/:provider", webhookHandler.Receive)

	return e
}

// enabledWebhooks drops providers without a secret in production. They would
// otherwise accept unauthenticated posts, since webhook routes skip the API key.
func enabledWebhooks(providers []handlers.WebhookProvider, production bool, log *slog.Logger) []handlers.WebhookProvider {
	if !production {
		return providers
	}
	enabled := make([]handlers.WebhookProvider, 0, len(providers))
	for _, p := range providers {
		if p.Secret == "" {
			log.Warn("webhook provider disabled: no secret configured", slog.String("provider", p.Parser.Name()))
			continue
		}
		enabled = append(enabled, p)
	}
	return enabled
}
