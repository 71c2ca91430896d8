package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/welldanyogia/webrana-crm-intake/internal/domain"
	apperrors "github.com/welldanyogia/webrana-crm-intake/internal/errors"
	"github.com/welldanyogia/webrana-crm-intake/internal/repository"
)

// DecisionRequest is a reviewer's verdict on one intake's recommendations.
type DecisionRequest struct {
	IntakeID            uint
	ApprovedTaskIndices []int
	ApprovedDealIndices []int
	DecidedBy           string
	Notes               string
}

// SubmitDecisionConfig holds the collaborators of SubmitDecision
type SubmitDecisionConfig struct {
	Repository repository.IntakeRepository
	Tasks      TaskCommandService
	Deals      PipelineCommandService
	Publisher  EventPublisher
	Logger     *slog.Logger
	Now        func() time.Time
}

// SubmitDecision materializes approved recommendations and records the decision.
//
// Side effects are at-least-once: when a task or deal creation fails, items
// created earlier in the same call are not rolled back. An intake accepts one
// decision; a second submit fails with a duplicate-entry error before any
// task or deal is created, or at persistence if two submits race.
type SubmitDecision struct {
	repo      repository.IntakeRepository
	tasks     TaskCommandService
	deals     PipelineCommandService
	publisher EventPublisher
	logger    *slog.Logger
	now       func() time.Time
}

// NewSubmitDecision creates the decision orchestrator
func NewSubmitDecision(cfg *SubmitDecisionConfig) *SubmitDecision {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &SubmitDecision{
		repo:      cfg.Repository,
		tasks:     cfg.Tasks,
		deals:     cfg.Deals,
		publisher: cfg.Publisher,
		logger:    logger,
		now:       now,
	}
}

// Execute validates every index before any downstream call, then creates
// approved tasks and deals in ascending index order and persists the decision.
func (s *SubmitDecision) Execute(ctx context.Context, req DecisionRequest) (*domain.IntakeRecord, error) {
	record, err := s.repo.GetByID(ctx, req.IntakeID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("Intake %d not found", req.IntakeID)
		}
		return nil, fmt.Errorf("load intake: %w", err)
	}

	if record.IsDecided() {
		return nil, apperrors.Conflict("Intake %d already has a decision", req.IntakeID)
	}

	recs := record.Recommendations
	if err := validateIndices("task", req.ApprovedTaskIndices, len(recs.Tasks)); err != nil {
		return nil, err
	}
	if err := validateIndices("deal", req.ApprovedDealIndices, len(recs.Deals)); err != nil {
		return nil, err
	}

	taskIdx := normalizeIndices(req.ApprovedTaskIndices)
	dealIdx := normalizeIndices(req.ApprovedDealIndices)

	createdTasks := make([]map[string]any, 0, len(taskIdx))
	for _, i := range taskIdx {
		t := recs.Tasks[i]
		created, err := s.tasks.CreateTask(ctx, t.Title, t.Description, t.Priority, t.DueDate)
		if err != nil {
			s.logPartial(req.IntakeID, len(createdTasks), 0, err)
			return nil, fmt.Errorf("create task %d: %w", i, err)
		}
		createdTasks = append(createdTasks, created)
	}

	createdDeals := make([]map[string]any, 0, len(dealIdx))
	for _, i := range dealIdx {
		d := recs.Deals[i]
		created, err := s.deals.CreateDeal(ctx, d.ContactEmail, d.DealStage, d.Value, d.Notes)
		if err != nil {
			s.logPartial(req.IntakeID, len(createdTasks), len(createdDeals), err)
			return nil, fmt.Errorf("create deal %d: %w", i, err)
		}
		createdDeals = append(createdDeals, created)
	}

	decidedAt := s.now()
	decision := &domain.IntakeDecision{
		ApprovedTaskIndices: taskIdx,
		ApprovedDealIndices: dealIdx,
		RejectedTaskIndices: complement(taskIdx, len(recs.Tasks)),
		RejectedDealIndices: complement(dealIdx, len(recs.Deals)),
		CreatedTasks:        createdTasks,
		CreatedDeals:        createdDeals,
		Notes:               req.Notes,
		DecidedAt:           &decidedAt,
		DecidedBy:           req.DecidedBy,
	}

	updated, err := s.repo.UpdateDecision(ctx, req.IntakeID, decision)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("Intake %d not found", req.IntakeID)
		}
		s.logPartial(req.IntakeID, len(createdTasks), len(createdDeals), err)
		if errors.Is(err, repository.ErrAlreadyDecided) {
			return nil, apperrors.Conflict("Intake %d already has a decision", req.IntakeID)
		}
		return nil, fmt.Errorf("persist decision: %w", err)
	}

	s.logger.Info("intake decision submitted",
		"intake_id", updated.ID,
		"status", updated.Status,
		"tasks_created", len(createdTasks),
		"deals_created", len(createdDeals),
		"decided_by", req.DecidedBy,
	)

	event := domain.UserDecisionSubmitted{
		IntakeID:          updated.ID,
		Timestamp:         decidedAt,
		ApprovedTaskCount: len(taskIdx),
		ApprovedDealCount: len(dealIdx),
		DecidedBy:         req.DecidedBy,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("failed to publish event",
			"event", event.EventName(),
			"intake_id", updated.ID,
			"error", err,
		)
	}

	return updated, nil
}

func (s *SubmitDecision) logPartial(intakeID uint, tasks, deals int, err error) {
	if tasks == 0 && deals == 0 {
		return
	}
	s.logger.Warn("decision aborted after partial side effects",
		"intake_id", intakeID,
		"tasks_created", tasks,
		"deals_created", deals,
		"error", err,
	)
}

// validateIndices fails on the first index outside [0, n).
func validateIndices(kind string, indices []int, n int) error {
	for _, idx := range indices {
		if idx < 0 || idx >= n {
			return apperrors.Validation("Invalid %s index: %d", kind, idx)
		}
	}
	return nil
}

// normalizeIndices returns a sorted copy without duplicates.
func normalizeIndices(indices []int) []int {
	out := slices.Clone(indices)
	slices.Sort(out)
	out = slices.Compact(out)
	if out == nil {
		out = []int{}
	}
	return out
}

// complement returns the indices in [0, n) not present in approved (sorted).
func complement(approved []int, n int) []int {
	out := make([]int, 0, n-len(approved))
	for i := 0; i < n; i++ {
		if _, found := slices.BinarySearch(approved, i); !found {
			out = append(out, i)
		}
	}
	return out
}
