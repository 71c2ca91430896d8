package intake

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/welldanyogia/webrana-crm-intake/internal/domain"
	apperrors "github.com/welldanyogia/webrana-crm-intake/internal/errors"
	"github.com/welldanyogia/webrana-crm-intake/internal/policy"
	"github.com/welldanyogia/webrana-crm-intake/internal/repository"
	"golang.org/x/sync/errgroup"
)

// RecentInteractionLimit is how many interactions the AI engine sees.
const RecentInteractionLimit = 10

// ProcessInboundEmailConfig holds the collaborators of ProcessInboundEmail
type ProcessInboundEmailConfig struct {
	Normalizer Normalizer
	CRM        CRMContextProvider
	Engine     AIIntakeEngine
	Repository repository.IntakeRepository
	Publisher  EventPublisher
	Retry      RetryPolicy
	Logger     *slog.Logger
	Now        func() time.Time
}

// ProcessInboundEmail runs normalize → enrich → analyze → route → persist → publish.
type ProcessInboundEmail struct {
	normalizer Normalizer
	crm        CRMContextProvider
	engine     AIIntakeEngine
	repo       repository.IntakeRepository
	publisher  EventPublisher
	retry      RetryPolicy
	logger     *slog.Logger
	now        func() time.Time
}

// NewProcessInboundEmail creates the intake orchestrator
func NewProcessInboundEmail(cfg *ProcessInboundEmailConfig) *ProcessInboundEmail {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	retry := cfg.Retry
	if retry.MaxAttempts == 0 {
		retry = DefaultRetryPolicy()
	}
	return &ProcessInboundEmail{
		normalizer: cfg.Normalizer,
		crm:        cfg.CRM,
		engine:     cfg.Engine,
		repo:       cfg.Repository,
		publisher:  cfg.Publisher,
		retry:      retry,
		logger:     logger,
		now:        now,
	}
}

// Execute processes one raw email and returns the persisted record.
//
// Validation errors from the normalizer or the engine are returned unchanged.
// If the engine keeps failing after the retry budget, a service-unavailable
// error is returned. In both cases nothing is persisted and no event is emitted.
func (p *ProcessInboundEmail) Execute(ctx context.Context, raw domain.RawEmail) (*domain.IntakeRecord, error) {
	email, err := p.normalizer.Normalize(ctx, raw)
	if err != nil {
		return nil, err
	}

	crmCtx, err := p.lookupContext(ctx, email.SenderEmail())
	if err != nil {
		return nil, err
	}

	result, recs, err := p.analyze(ctx, email, crmCtx)
	if err != nil {
		return nil, err
	}
	if recs == nil {
		recs = domain.EmptyRecommendations()
	}
	if !recs.HasRecommendations() {
		p.logger.Debug("analysis produced no recommendations", "sender", email.SenderEmail())
	}

	status := domain.StatusPendingReview
	if policy.ShouldAutoApprove(result.Confidence.OverallScore) {
		status = domain.StatusAutoApproved
	}

	now := p.now()
	saved, err := p.repo.Save(ctx, &domain.IntakeRecord{
		NormalizedEmail: *email,
		AIResult:        *result,
		Recommendations: *recs,
		Status:          status,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		return nil, fmt.Errorf("persist intake: %w", err)
	}

	p.logger.Info("email intake processed",
		"intake_id", saved.ID,
		"sender", saved.SenderEmail(),
		"confidence", saved.ConfidenceScore(),
		"status", saved.Status,
		"existing_contact", crmCtx.IsExistingContact,
	)

	event := domain.EmailIntakeProcessed{
		IntakeID:        saved.ID,
		Timestamp:       saved.CreatedAt,
		ConfidenceScore: saved.ConfidenceScore(),
		SenderEmail:     saved.SenderEmail(),
		Subject:         saved.Subject(),
		Status:          saved.Status,
	}
	if err := p.publisher.Publish(ctx, event); err != nil {
		p.logger.Error("failed to publish event",
			"event", event.EventName(),
			"intake_id", saved.ID,
			"error", err,
		)
	}

	return saved, nil
}

// lookupContext runs the contact and interaction lookups concurrently.
func (p *ProcessInboundEmail) lookupContext(ctx context.Context, sender string) (domain.CRMContext, error) {
	var (
		contact      map[string]any
		interactions []map[string]any
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		contact, err = p.crm.LookupContactByEmail(gctx, sender)
		return err
	})
	g.Go(func() error {
		var err error
		interactions, err = p.crm.GetRecentInteractions(gctx, sender, RecentInteractionLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.CRMContext{}, fmt.Errorf("lookup crm context: %w", err)
	}

	if contact == nil || interactions == nil {
		interactions = []map[string]any{}
	}
	return domain.CRMContext{
		Contact:            contact,
		RecentInteractions: interactions,
		IsExistingContact:  contact != nil,
	}, nil
}

// analyze calls the engine under the retry policy. Validation errors stop
// the loop immediately.
func (p *ProcessInboundEmail) analyze(ctx context.Context, email *domain.NormalizedEmail, crmCtx domain.CRMContext) (*domain.AIIntakeResult, *domain.Recommendations, error) {
	var (
		result *domain.AIIntakeResult
		recs   *domain.Recommendations
	)

	op := func() error {
		r, rc, err := p.engine.Analyze(ctx, email, crmCtx)
		if err != nil {
			if apperrors.IsInvalidInput(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		result, recs = r, rc
		return nil
	}
	notify := func(err error, wait time.Duration) {
		p.logger.Warn("AI engine call failed, retrying",
			"sender", email.SenderEmail(),
			"wait", wait,
			"error", err,
		)
	}

	if err := backoff.RetryNotify(op, p.retry.backOff(ctx), notify); err != nil {
		if apperrors.IsInvalidInput(err) {
			return nil, nil, err
		}
		p.logger.Error("AI engine unavailable",
			"sender", email.SenderEmail(),
			"attempts", p.retry.MaxAttempts,
			"error", err,
		)
		return nil, nil, apperrors.ServiceUnavailable(err, "AI service unavailable")
	}
	return result, recs, nil
}
