package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/webrana-crm-intake/internal/api/response"
	"github.com/welldanyogia/webrana-crm-intake/internal/logger"
	"github.com/welldanyogia/webrana-crm-intake/internal/webhook"
)

// DuplicateFilter drops redelivered messages by Message-ID
type DuplicateFilter interface {
	IsNew(ctx context.Context, messageID string) (bool, error)
	Forget(ctx context.Context, messageID string) error
}

// WebhookProvider pairs a payload parser with its shared secret
type WebhookProvider struct {
	Parser webhook.Parser
	Secret string
}

// WebhookHandler receives inbound email from providers
type WebhookHandler struct {
	processor EmailProcessor
	dedup     DuplicateFilter
	providers map[string]WebhookProvider
	sec       *logger.SecurityLogger
	logger    *slog.Logger
}

// NewWebhookHandler creates a new WebhookHandler. dedup may be nil.
func NewWebhookHandler(processor EmailProcessor, dedup DuplicateFilter, providers []WebhookProvider, sec *logger.SecurityLogger, log *slog.Logger) *WebhookHandler {
	if log == nil {
		log = slog.Default()
	}
	if sec == nil {
		sec = logger.FromLogger(log)
	}
	byName := make(map[string]WebhookProvider, len(providers))
	for _, p := range providers {
		byName[p.Parser.Name()] = p
	}
	return &WebhookHandler{
		processor: processor,
		dedup:     dedup,
		providers: byName,
		sec:       sec,
		logger:    log,
	}
}

// Receive handles POST /api/webhooks/email/:provider
func (h *WebhookHandler) Receive(c echo.Context) error {
	provider, ok := h.providers[c.Param("provider")]
	if !ok {
		h.sec.SuspiciousActivity(c.RealIP(), c.Path(), "unknown_webhook_provider")
		return response.NotFound(c, "unknown webhook provider")
	}

	payload, err := readPayload(c)
	if err != nil {
		return response.BadRequest(c, "Invalid JSON payload")
	}

	if !provider.Parser.Validate(payload, c.Request().Header, provider.Secret) {
		h.sec.AuthFailure(c.RealIP(), c.Path(), "invalid_webhook_signature")
		return response.Unauthorized(c, "Invalid webhook signature")
	}

	raw, err := provider.Parser.Parse(payload, c.Request().Header)
	if err != nil {
		return response.Error(c, err)
	}

	ctx := c.Request().Context()
	messageID, _ := raw["message_id"].(string)

	if h.dedup != nil && messageID != "" {
		isNew, err := h.dedup.IsNew(ctx, messageID)
		if err != nil {
			h.logger.Warn("dedup check failed, processing anyway",
				slog.String("message_id", messageID),
				slog.String("error", err.Error()))
		} else if !isNew {
			h.sec.DuplicateDelivery(provider.Parser.Name(), c.RealIP(), messageID)
			return response.Conflict(c, "Duplicate message: "+messageID)
		}
	}

	record, err := h.processor.Execute(ctx, raw)
	if err != nil {
		h.release(ctx, messageID)
		return response.Error(c, err)
	}

	return response.Created(c, toDetail(record))
}

// release lets a provider retry a delivery that failed downstream.
func (h *WebhookHandler) release(ctx context.Context, messageID string) {
	if h.dedup == nil || messageID == "" {
		return
	}
	if err := h.dedup.Forget(ctx, messageID); err != nil {
		h.logger.Warn("failed to release message id",
			slog.String("message_id", messageID),
			slog.String("error", err.Error()))
	}
}

// readPayload decodes a JSON body or falls back to form fields.
func readPayload(c echo.Context) (map[string]any, error) {
	req := c.Request()
	if strings.HasPrefix(req.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		payload := map[string]any{}
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			return nil, err
		}
		return payload, nil
	}

	form, err := c.FormParams()
	if err != nil {
		return nil, err
	}
	payload := make(map[string]any, len(form))
	for k, v := range form {
		if len(v) > 0 {
			payload[k] = v[0]
		}
	}
	return payload, nil
}
