package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Command service backends
const (
	CommandBackendDatabase = "database"
	CommandBackendMemory   = "memory"
)

// Config holds all configuration for the application
type Config struct {
	// Database
	DatabaseURL string

	// Server ports
	APIPort  int
	SMTPPort int

	// SMTP ingress
	SMTPEnabled bool
	SMTPDomain  string
	SMTPTLSCert string
	SMTPTLSKey  string

	// Storage
	RawArchivePath string

	// Logging
	LogLevel string

	// Security
	APIKey            string
	AllowedOrigins    string
	AppEnv            string
	ReviewerJWTSecret string

	// Webhook secrets
	WebhookSecret         string
	MailgunSigningKey     string
	SendGridWebhookSecret string

	// Rate Limiting
	RateLimitRequests float64
	RateLimitBurst    int

	// AI
	AIBaseURL        string
	AIAPIKey         string
	AIModel          string
	AITimeout        time.Duration
	AIMaxAttempts    int
	AIInitialBackoff time.Duration
	AIMaxBackoff     time.Duration

	// Redis
	RedisURL    string
	EventsQueue string
	DedupTTL    time.Duration

	// Command services
	CommandBackend       string
	CommandSequenceStart int64
}

// fileConfig mirrors the optional YAML file. Every value can be overridden
// by the environment variable named in flatten.
type fileConfig struct {
	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`
	API struct {
		Port           string `yaml:"port"`
		Key            string `yaml:"key"`
		AllowedOrigins string `yaml:"allowed_origins"`
		RateLimit      string `yaml:"rate_limit"`
		RateBurst      string `yaml:"rate_burst"`
	} `yaml:"api"`
	SMTP struct {
		Enabled string `yaml:"enabled"`
		Port    string `yaml:"port"`
		Domain  string `yaml:"domain"`
		TLSCert string `yaml:"tls_cert"`
		TLSKey  string `yaml:"tls_key"`
	} `yaml:"smtp"`
	Storage struct {
		RawArchivePath string `yaml:"raw_archive_path"`
	} `yaml:"storage"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	App struct {
		Env string `yaml:"env"`
	} `yaml:"app"`
	Webhooks struct {
		Secret            string `yaml:"secret"`
		MailgunSigningKey string `yaml:"mailgun_signing_key"`
		SendGridSecret    string `yaml:"sendgrid_secret"`
	} `yaml:"webhooks"`
	Reviewer struct {
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"reviewer"`
	AI struct {
		BaseURL        string `yaml:"base_url"`
		APIKey         string `yaml:"api_key"`
		Model          string `yaml:"model"`
		Timeout        string `yaml:"timeout"`
		MaxAttempts    string `yaml:"max_attempts"`
		InitialBackoff string `yaml:"initial_backoff"`
		MaxBackoff     string `yaml:"max_backoff"`
	} `yaml:"ai"`
	Redis struct {
		URL    string `yaml:"url"`
		Queues struct {
			Events string `yaml:"events"`
		} `yaml:"queues"`
		DedupTTL string `yaml:"dedup_ttl"`
	} `yaml:"redis"`
	Commands struct {
		Backend       string `yaml:"backend"`
		SequenceStart string `yaml:"sequence_start"`
	} `yaml:"commands"`
}

func (f *fileConfig) flatten() map[string]string {
	return map[string]string{
		"DATABASE_URL":            f.Database.URL,
		"API_PORT":                f.API.Port,
		"API_KEY":                 f.API.Key,
		"ALLOWED_ORIGINS":         f.API.AllowedOrigins,
		"RATE_LIMIT_REQUESTS":     f.API.RateLimit,
		"RATE_LIMIT_BURST":        f.API.RateBurst,
		"SMTP_ENABLED":            f.SMTP.Enabled,
		"SMTP_PORT":               f.SMTP.Port,
		"SMTP_DOMAIN":             f.SMTP.Domain,
		"SMTP_TLS_CERT":           f.SMTP.TLSCert,
		"SMTP_TLS_KEY":            f.SMTP.TLSKey,
		"RAW_ARCHIVE_PATH":        f.Storage.RawArchivePath,
		"LOG_LEVEL":               f.Log.Level,
		"APP_ENV":                 f.App.Env,
		"WEBHOOK_SECRET":          f.Webhooks.Secret,
		"MAILGUN_SIGNING_KEY":     f.Webhooks.MailgunSigningKey,
		"SENDGRID_WEBHOOK_SECRET": f.Webhooks.SendGridSecret,
		"REVIEWER_JWT_SECRET":     f.Reviewer.JWTSecret,
		"AI_BASE_URL":             f.AI.BaseURL,
		"AI_API_KEY":              f.AI.APIKey,
		"AI_MODEL":                f.AI.Model,
		"AI_TIMEOUT":              f.AI.Timeout,
		"AI_MAX_ATTEMPTS":         f.AI.MaxAttempts,
		"AI_INITIAL_BACKOFF":      f.AI.InitialBackoff,
		"AI_MAX_BACKOFF":          f.AI.MaxBackoff,
		"REDIS_URL":               f.Redis.URL,
		"EVENTS_QUEUE":            f.Redis.Queues.Events,
		"DEDUP_TTL":               f.Redis.DedupTTL,
		"COMMAND_BACKEND":         f.Commands.Backend,
		"COMMAND_SEQUENCE_START":  f.Commands.SequenceStart,
	}
}

// source resolves a key from the environment first, then the YAML file.
type source map[string]string

func (s source) get(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return s[key]
}

func (s source) getOr(key, fallback string) string {
	if v := s.get(key); v != "" {
		return v
	}
	return fallback
}

func (s source) intOr(key string, fallback int) (int, error) {
	v := s.get(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	return n, nil
}

func (s source) boolOr(key string, fallback bool) (bool, error) {
	v := s.get(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be a valid boolean: %w", key, err)
	}
	return b, nil
}

func (s source) durationOr(key string, fallback time.Duration) (time.Duration, error) {
	v := s.get(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid duration: %w", key, err)
	}
	return d, nil
}

// readFile loads the YAML file named by CONFIG_PATH, expanding ${VAR}
// references. No CONFIG_PATH means no file.
func readFile() (source, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		return source{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	var raw fileConfig
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &raw); err != nil {
		return nil, fmt.Errorf("parse config YAML: %w", err)
	}
	return raw.flatten(), nil
}

// Load reads configuration from the optional YAML file and environment
// variables. Environment variables win over file values.
func Load() (*Config, error) {
	src, err := readFile()
	if err != nil {
		return nil, err
	}

	cfg := &Config{}

	// Required: DATABASE_URL
	cfg.DatabaseURL = src.get("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required but not set")
	}

	if cfg.APIPort, err = src.intOr("API_PORT", 8080); err != nil {
		return nil, err
	}
	if cfg.SMTPPort, err = src.intOr("SMTP_PORT", 2525); err != nil {
		return nil, err
	}
	if cfg.SMTPEnabled, err = src.boolOr("SMTP_ENABLED", true); err != nil {
		return nil, err
	}
	cfg.SMTPDomain = src.getOr("SMTP_DOMAIN", "localhost")
	cfg.SMTPTLSCert = src.get("SMTP_TLS_CERT")
	cfg.SMTPTLSKey = src.get("SMTP_TLS_KEY")

	cfg.RawArchivePath = src.getOr("RAW_ARCHIVE_PATH", "./raw-messages")
	cfg.LogLevel = src.getOr("LOG_LEVEL", "info")

	// Security configuration
	cfg.APIKey = src.get("API_KEY")
	cfg.AllowedOrigins = src.get("ALLOWED_ORIGINS")
	cfg.AppEnv = src.getOr("APP_ENV", "development")
	cfg.ReviewerJWTSecret = src.get("REVIEWER_JWT_SECRET")
	cfg.WebhookSecret = src.get("WEBHOOK_SECRET")
	cfg.MailgunSigningKey = src.get("MAILGUN_SIGNING_KEY")
	cfg.SendGridWebhookSecret = src.get("SENDGRID_WEBHOOK_SECRET")

	// Rate limiting configuration; malformed values keep the default
	cfg.RateLimitRequests = 10.0
	if rps := src.get("RATE_LIMIT_REQUESTS"); rps != "" {
		if v, err := strconv.ParseFloat(rps, 64); err == nil {
			cfg.RateLimitRequests = v
		}
	}
	cfg.RateLimitBurst = 20
	if burst := src.get("RATE_LIMIT_BURST"); burst != "" {
		if v, err := strconv.Atoi(burst); err == nil {
			cfg.RateLimitBurst = v
		}
	}

	// AI provider
	cfg.AIBaseURL = src.getOr("AI_BASE_URL", "https://api.openai.com/v1")
	cfg.AIAPIKey = src.get("AI_API_KEY")
	cfg.AIModel = src.getOr("AI_MODEL", "gpt-4o-mini")
	if cfg.AITimeout, err = src.durationOr("AI_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.AIMaxAttempts, err = src.intOr("AI_MAX_ATTEMPTS", 3); err != nil {
		return nil, err
	}
	if cfg.AIInitialBackoff, err = src.durationOr("AI_INITIAL_BACKOFF", 2*time.Second); err != nil {
		return nil, err
	}
	if cfg.AIMaxBackoff, err = src.durationOr("AI_MAX_BACKOFF", 10*time.Second); err != nil {
		return nil, err
	}

	// Redis
	cfg.RedisURL = src.get("REDIS_URL")
	cfg.EventsQueue = src.getOr("EVENTS_QUEUE", "intake-events")
	if cfg.DedupTTL, err = src.durationOr("DEDUP_TTL", 24*time.Hour); err != nil {
		return nil, err
	}

	// Command services
	cfg.CommandBackend = strings.ToLower(src.getOr("COMMAND_BACKEND", CommandBackendDatabase))
	start, err := src.intOr("COMMAND_SEQUENCE_START", 1000)
	if err != nil {
		return nil, err
	}
	cfg.CommandSequenceStart = int64(start)

	return cfg, nil
}

// LoadWithValidation loads and validates configuration, failing fast on errors
func LoadWithValidation() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.IsProduction() {
		if err := cfg.ValidateProduction(); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// IsProduction reports whether APP_ENV is production
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DatabaseURL cannot be empty")
	}
	if c.APIPort <= 0 || c.APIPort > 65535 {
		return fmt.Errorf("APIPort must be between 1 and 65535")
	}
	if c.SMTPEnabled && (c.SMTPPort <= 0 || c.SMTPPort > 65535) {
		return fmt.Errorf("SMTPPort must be between 1 and 65535")
	}
	if c.RawArchivePath == "" {
		return fmt.Errorf("RawArchivePath cannot be empty")
	}
	if c.AIMaxAttempts < 1 {
		return fmt.Errorf("AI_MAX_ATTEMPTS must be at least 1")
	}
	if c.AIInitialBackoff > c.AIMaxBackoff {
		return fmt.Errorf("AI_INITIAL_BACKOFF must not exceed AI_MAX_BACKOFF")
	}
	if c.CommandBackend != CommandBackendDatabase && c.CommandBackend != CommandBackendMemory {
		return fmt.Errorf("COMMAND_BACKEND must be %q or %q", CommandBackendDatabase, CommandBackendMemory)
	}
	if (c.SMTPTLSCert == "") != (c.SMTPTLSKey == "") {
		return fmt.Errorf("SMTP_TLS_CERT and SMTP_TLS_KEY must be set together")
	}
	return nil
}

// ValidateProduction performs additional validation for production environment
func (c *Config) ValidateProduction() error {
	if c.APIKey == "" {
		return fmt.Errorf("API_KEY is required in production")
	}

	if c.AllowedOrigins == "" {
		return fmt.Errorf("ALLOWED_ORIGINS is required in production")
	}

	if strings.Contains(c.AllowedOrigins, "*") {
		return fmt.Errorf("wildcard (*) origins are not allowed in production")
	}

	if strings.Contains(c.DatabaseURL, "sslmode=disable") {
		return fmt.Errorf("sslmode=disable is not allowed in production")
	}

	if c.WebhookSecret == "" {
		return fmt.Errorf("WEBHOOK_SECRET is required in production")
	}

	if c.AIAPIKey == "" {
		return fmt.Errorf("AI_API_KEY is required in production")
	}

	return nil
}

// LogConfig logs configuration values (excluding secrets)
func (c *Config) LogConfig(logger *slog.Logger) {
	logger.Info("configuration loaded",
		slog.Int("api_port", c.APIPort),
		slog.Int("smtp_port", c.SMTPPort),
		slog.Bool("smtp_enabled", c.SMTPEnabled),
		slog.String("smtp_domain", c.SMTPDomain),
		slog.Bool("smtp_tls", c.SMTPTLSCert != ""),
		slog.String("raw_archive_path", c.RawArchivePath),
		slog.String("log_level", c.LogLevel),
		slog.String("app_env", c.AppEnv),
		slog.Bool("api_key_set", c.APIKey != ""),
		slog.Bool("allowed_origins_set", c.AllowedOrigins != ""),
		slog.Bool("webhook_secret_set", c.WebhookSecret != ""),
		slog.Bool("mailgun_key_set", c.MailgunSigningKey != ""),
		slog.Bool("sendgrid_secret_set", c.SendGridWebhookSecret != ""),
		slog.Bool("reviewer_jwt_set", c.ReviewerJWTSecret != ""),
		slog.Float64("rate_limit_rps", c.RateLimitRequests),
		slog.Int("rate_limit_burst", c.RateLimitBurst),
		slog.String("ai_base_url", c.AIBaseURL),
		slog.String("ai_model", c.AIModel),
		slog.Duration("ai_timeout", c.AITimeout),
		slog.Int("ai_max_attempts", c.AIMaxAttempts),
		slog.Bool("redis_enabled", c.RedisURL != ""),
		slog.String("events_queue", c.EventsQueue),
		slog.Duration("dedup_ttl", c.DedupTTL),
		slog.String("command_backend", c.CommandBackend),
	)
}
