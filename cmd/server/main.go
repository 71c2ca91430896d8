package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gosmtp "github.com/emersion/go-smtp"
	"github.com/redis/go-redis/v9"
	"github.com/welldanyogia/webrana-crm-intake/internal/ai"
	"github.com/welldanyogia/webrana-crm-intake/internal/api"
	"github.com/welldanyogia/webrana-crm-intake/internal/api/handlers"
	"github.com/welldanyogia/webrana-crm-intake/internal/api/middleware"
	"github.com/welldanyogia/webrana-crm-intake/internal/commands"
	"github.com/welldanyogia/webrana-crm-intake/internal/config"
	"github.com/welldanyogia/webrana-crm-intake/internal/crm"
	"github.com/welldanyogia/webrana-crm-intake/internal/database"
	"github.com/welldanyogia/webrana-crm-intake/internal/dedup"
	"github.com/welldanyogia/webrana-crm-intake/internal/events"
	"github.com/welldanyogia/webrana-crm-intake/internal/intake"
	"github.com/welldanyogia/webrana-crm-intake/internal/logger"
	"github.com/welldanyogia/webrana-crm-intake/internal/normalizer"
	"github.com/welldanyogia/webrana-crm-intake/internal/repository"
	"github.com/welldanyogia/webrana-crm-intake/internal/smtp"
	"github.com/welldanyogia/webrana-crm-intake/internal/storage"
	"github.com/welldanyogia/webrana-crm-intake/internal/webhook"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("server exited with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadWithValidation()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(os.Stdout, cfg.LogLevel)
	slog.SetDefault(log)
	slog.Info("Starting CRM email intake server...")
	cfg.LogConfig(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg.DatabaseURL, cfg.IsProduction())
	if err != nil {
		return err
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		return err
	}

	archive, err := storage.NewLocalArchive(cfg.RawArchivePath)
	if err != nil {
		return fmt.Errorf("init raw archive: %w", err)
	}

	intakeRepo := repository.NewIntakeRepository(db)
	healthChecks := map[string]handlers.Pinger{}

	// Events go to the log always and to Redis when configured.
	publishers := events.Multi{events.NewLogPublisher(log)}
	var duplicates interface {
		handlers.DuplicateFilter
		smtp.DuplicateFilter
	}
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()

		redisPublisher := events.NewRedisPublisher(rdb, cfg.EventsQueue)
		publishers = append(publishers, redisPublisher)
		healthChecks["redis"] = redisPublisher
		duplicates = dedup.NewFilter(rdb, cfg.DedupTTL)
	}

	chat := ai.NewChatClient(ai.ClientConfig{
		BaseURL: cfg.AIBaseURL,
		APIKey:  cfg.AIAPIKey,
		Model:   cfg.AIModel,
		Timeout: cfg.AITimeout,
	})

	processor := intake.NewProcessInboundEmail(&intake.ProcessInboundEmailConfig{
		Normalizer: normalizer.New(),
		CRM:        crm.NewProvider(repository.NewContactRepository(db)),
		Engine:     ai.NewEngine(chat, log),
		Repository: intakeRepo,
		Publisher:  publishers,
		Retry: intake.RetryPolicy{
			MaxAttempts:     cfg.AIMaxAttempts,
			InitialInterval: cfg.AIInitialBackoff,
			MaxInterval:     cfg.AIMaxBackoff,
			Multiplier:      2,
		},
		Logger: log,
	})

	tasks, deals := commandServices(cfg, db, log)
	submitter := intake.NewSubmitDecision(&intake.SubmitDecisionConfig{
		Repository: intakeRepo,
		Tasks:      tasks,
		Deals:      deals,
		Publisher:  publishers,
		Logger:     log,
	})

	routerCfg := &api.RouterConfig{
		DB:           db,
		IntakeRepo:   intakeRepo,
		Processor:    processor,
		Submitter:    submitter,
		HealthChecks: healthChecks,
		Logger:       log,
		Webhooks: []handlers.WebhookProvider{
			{Parser: webhook.Generic{}, Secret: cfg.WebhookSecret},
			{Parser: webhook.Mailgun{}, Secret: cfg.MailgunSigningKey},
			{Parser: webhook.SendGrid{}, Secret: cfg.SendGridWebhookSecret},
		},
		APIKey:            cfg.APIKey,
		ReviewerJWTSecret: cfg.ReviewerJWTSecret,
		AllowedOrigins:    middleware.ParseOrigins(cfg.AllowedOrigins),
		Production:        cfg.IsProduction(),
		RateLimit:         cfg.RateLimitRequests,
		RateBurst:         cfg.RateLimitBurst,
	}
	if duplicates != nil {
		routerCfg.Dedup = duplicates
	}
	e := api.NewRouter(ctx, routerCfg)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		addr := fmt.Sprintf(":%d", cfg.APIPort)
		slog.Info("HTTP server listening", slog.String("addr", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	var smtpServer *gosmtp.Server
	if cfg.SMTPEnabled {
		tlsConfig, err := smtp.LoadTLSConfig(cfg.SMTPTLSCert, cfg.SMTPTLSKey)
		if err != nil {
			return err
		}
		backendCfg := &smtp.BackendConfig{
			Processor: processor,
			Archive:   archive,
			Logger:    log,
		}
		if duplicates != nil {
			backendCfg.Dedup = duplicates
		}
		smtpServer = smtp.NewSecureServer(smtp.NewBackend(backendCfg), &smtp.ServerConfig{
			Addr:      fmt.Sprintf(":%d", cfg.SMTPPort),
			Domain:    cfg.SMTPDomain,
			TLSConfig: tlsConfig,
		})

		g.Go(func() error {
			slog.Info("SMTP server listening", slog.String("addr", smtpServer.Addr))
			if err := smtpServer.ListenAndServe(); err != nil && !errors.Is(err, gosmtp.ErrServerClosed) {
				return fmt.Errorf("smtp server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var errs []error
		if err := e.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
		if smtpServer != nil {
			if err := smtpServer.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("smtp shutdown: %w", err))
			}
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("Server stopped")
	return nil
}

// commandServices picks gorm-backed or in-memory task and deal services.
func commandServices(cfg *config.Config, db *gorm.DB, log *slog.Logger) (intake.TaskCommandService, intake.PipelineCommandService) {
	if cfg.CommandBackend == config.CommandBackendMemory {
		seq := commands.NewSequence(cfg.CommandSequenceStart)
		return commands.NewInMemoryTaskService(seq, log), commands.NewInMemoryDealService(seq, log)
	}
	workItems := repository.NewWorkItemRepository(db)
	return commands.NewTaskService(workItems, log), commands.NewDealService(workItems, log)
}
