package smtp

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/welldanyogia/webrana-crm-intake/internal/domain"
	"github.com/welldanyogia/webrana-crm-intake/internal/logger"
	"github.com/welldanyogia/webrana-crm-intake/internal/storage"
)

// Security limits
const (
	DefaultMaxMessageSize = storage.MaxMessageSize
	DefaultMaxRecipients  = 100
	DefaultReadTimeout    = 60 * time.Second
	DefaultWriteTimeout   = 60 * time.Second
	DefaultMaxLineLength  = 2000

	// DefaultProcessTimeout bounds one pipeline run, AI retries included.
	DefaultProcessTimeout = 2 * time.Minute
)

// EmailProcessor runs the intake pipeline for one raw email
type EmailProcessor interface {
	Execute(ctx context.Context, raw domain.RawEmail) (*domain.IntakeRecord, error)
}

// DuplicateFilter drops redelivered messages by Message-ID
type DuplicateFilter interface {
	IsNew(ctx context.Context, messageID string) (bool, error)
	Forget(ctx context.Context, messageID string) error
}

// Backend implements the go-smtp Backend interface
type Backend struct {
	processor      EmailProcessor
	archive        storage.RawArchive
	dedup          DuplicateFilter
	processTimeout time.Duration
	logger         *slog.Logger
	sec            *logger.SecurityLogger
}

// BackendConfig holds configuration for the SMTP backend
type BackendConfig struct {
	Processor      EmailProcessor
	Archive        storage.RawArchive
	Dedup          DuplicateFilter
	ProcessTimeout time.Duration
	Logger         *slog.Logger
}

// NewBackend creates a new SMTP backend. Archive and Dedup may be nil.
func NewBackend(cfg *BackendConfig) *Backend {
	timeout := cfg.ProcessTimeout
	if timeout <= 0 {
		timeout = DefaultProcessTimeout
	}
	return &Backend{
		processor:      cfg.Processor,
		archive:        cfg.Archive,
		dedup:          cfg.Dedup,
		processTimeout: timeout,
		logger:         cfg.Logger,
		sec:            logger.FromLogger(cfg.Logger),
	}
}

// NewSession creates a new SMTP session
func (b *Backend) NewSession(c *smtp.Conn) (smtp.Session, error) {
	remote := ""
	if c != nil && c.Conn() != nil {
		remote = c.Conn().RemoteAddr().String()
	}
	if b.logger != nil {
		b.logger.Info("new SMTP connection", slog.String("remote_addr", remote))
	}
	return NewSession(b, remote), nil
}

// ServerConfig holds security configuration for the SMTP server
type ServerConfig struct {
	Addr           string
	Domain         string
	MaxMessageSize int64
	MaxRecipients  int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowInsecure  bool
	TLSConfig      *tls.Config
}

// NewSecureServer creates a new SMTP server with security settings
func NewSecureServer(backend *Backend, cfg *ServerConfig) *smtp.Server {
	s := smtp.NewServer(backend)

	s.Addr = cfg.Addr
	s.Domain = cfg.Domain

	if cfg.MaxMessageSize > 0 {
		s.MaxMessageBytes = cfg.MaxMessageSize
	} else {
		s.MaxMessageBytes = DefaultMaxMessageSize
	}

	if cfg.MaxRecipients > 0 {
		s.MaxRecipients = cfg.MaxRecipients
	} else {
		s.MaxRecipients = DefaultMaxRecipients
	}

	if cfg.ReadTimeout > 0 {
		s.ReadTimeout = cfg.ReadTimeout
	} else {
		s.ReadTimeout = DefaultReadTimeout
	}

	if cfg.WriteTimeout > 0 {
		s.WriteTimeout = cfg.WriteTimeout
	} else {
		s.WriteTimeout = DefaultWriteTimeout
	}

	s.AllowInsecureAuth = cfg.AllowInsecure

	if cfg.TLSConfig != nil {
		s.TLSConfig = cfg.TLSConfig
	}

	// Bound line length against oversized command lines
	s.MaxLineLength = DefaultMaxLineLength

	return s
}

// LoadTLSConfig builds a TLS 1.2+ config from a certificate pair. Empty
// paths return a nil config.
func LoadTLSConfig(certFile, keyFile string) (*tls.Config, error) {
	if certFile == "" || keyFile == "" {
		return nil, nil
	}
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("load SMTP TLS key pair: %w", err)
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}
