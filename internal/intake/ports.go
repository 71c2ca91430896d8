// Package intake orchestrates the email intake pipeline and the
// reviewer decision workflow over narrow collaborator interfaces.
package intake

import (
	"context"

	"github.com/welldanyogia/webrana-crm-intake/internal/domain"
)

// Normalizer turns a raw email mapping into a validated NormalizedEmail.
// It fails with a validation error when from or to is missing or malformed.
type Normalizer interface {
	Normalize(ctx context.Context, raw domain.RawEmail) (*domain.NormalizedEmail, error)
}

// CRMContextProvider looks up what the CRM knows about a sender.
// LookupContactByEmail returns a nil map when no contact exists.
type CRMContextProvider interface {
	LookupContactByEmail(ctx context.Context, email string) (map[string]any, error)
	GetRecentInteractions(ctx context.Context, email string, limit int) ([]map[string]any, error)
}

// AIIntakeEngine analyzes an email. Recommendations may be nil when the
// engine produced none. Unparseable output is a validation error.
type AIIntakeEngine interface {
	Analyze(ctx context.Context, email *domain.NormalizedEmail, crm domain.CRMContext) (*domain.AIIntakeResult, *domain.Recommendations, error)
}

// EventPublisher emits domain events.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}

// TaskCommandService creates tasks in the downstream task system.
type TaskCommandService interface {
	CreateTask(ctx context.Context, title, description string, priority domain.Priority, dueDate string) (map[string]any, error)
}

// PipelineCommandService creates deals in the downstream sales pipeline.
type PipelineCommandService interface {
	CreateDeal(ctx context.Context, contactEmail, stage string, value float64, notes string) (map[string]any, error)
}
