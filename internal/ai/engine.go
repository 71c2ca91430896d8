// Package ai implements the intake analysis engine on top of a
// chat-completion style LLM.
package ai

import (
	"context"
	"log/slog"

	"github.com/welldanyogia/webrana-crm-intake/internal/domain"
	apperrors "github.com/welldanyogia/webrana-crm-intake/internal/errors"
)

const systemPrompt = "You are an AI assistant that analyzes customer emails for a CRM system. Always respond with valid JSON only."

// Completer sends one prompt to an LLM and returns the raw text reply.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Engine analyzes normalized emails with an LLM.
type Engine struct {
	client Completer
	logger *slog.Logger
}

// NewEngine creates an Engine
func NewEngine(client Completer, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{client: client, logger: logger}
}

// Analyze returns the structured analysis and the recommended follow-ups.
// Transport failures are service-unavailable errors; a reply that cannot be
// parsed is a validation error.
func (e *Engine) Analyze(ctx context.Context, email *domain.NormalizedEmail, crm domain.CRMContext) (*domain.AIIntakeResult, *domain.Recommendations, error) {
	prompt := buildPrompt(email, crm)

	content, err := e.client.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		e.logger.Error("LLM call failed", "sender", email.SenderEmail(), "error", err)
		return nil, nil, apperrors.ServiceUnavailable(err, "LLM service unavailable")
	}

	result, recs, skipped, err := parseResponse(content, email)
	if err != nil {
		e.logger.Warn("LLM reply rejected", "sender", email.SenderEmail(), "error", err)
		return nil, nil, err
	}
	if skipped > 0 {
		e.logger.Debug("dropped invalid items from LLM reply", "sender", email.SenderEmail(), "skipped", skipped)
	}
	return result, recs, nil
}
