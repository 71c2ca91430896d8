package handlers

import (
	"context"
	"fmt"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/webrana-crm-intake/internal/api/middleware"
	"github.com/welldanyogia/webrana-crm-intake/internal/api/response"
	"github.com/welldanyogia/webrana-crm-intake/internal/domain"
	apperrors "github.com/welldanyogia/webrana-crm-intake/internal/errors"
	"github.com/welldanyogia/webrana-crm-intake/internal/intake"
	"github.com/welldanyogia/webrana-crm-intake/internal/repository"
	"github.com/welldanyogia/webrana-crm-intake/internal/validator"
)

const (
	maxDecidedByLength = 255
	maxNotesLength     = 2000
)

// EmailProcessor runs the inbound email pipeline
type EmailProcessor interface {
	Execute(ctx context.Context, raw domain.RawEmail) (*domain.IntakeRecord, error)
}

// DecisionSubmitter applies a reviewer decision to an intake
type DecisionSubmitter interface {
	Execute(ctx context.Context, req intake.DecisionRequest) (*domain.IntakeRecord, error)
}

// IntakeHandler handles email intake HTTP requests
type IntakeHandler struct {
	processor  EmailProcessor
	submitter  DecisionSubmitter
	intakeRepo repository.IntakeRepository
}

// NewIntakeHandler creates a new IntakeHandler
func NewIntakeHandler(processor EmailProcessor, submitter DecisionSubmitter, intakeRepo repository.IntakeRepository) *IntakeHandler {
	return &IntakeHandler{
		processor:  processor,
		submitter:  submitter,
		intakeRepo: intakeRepo,
	}
}

// Process handles POST /api/email-intakes/process
func (h *IntakeHandler) Process(c echo.Context) error {
	var req ProcessEmailRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}
	if len(req.RawEmail) == 0 {
		return response.BadRequest(c, "raw_email is required")
	}

	record, err := h.processor.Execute(c.Request().Context(), domain.RawEmail(req.RawEmail))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, toDetail(record))
}

// ListPending handles GET /api/email-intakes/pending
func (h *IntakeHandler) ListPending(c echo.Context) error {
	skip, limit, err := validator.ParsePagination(c.QueryParam("skip"), c.QueryParam("limit"))
	if err != nil {
		return response.Error(c, err)
	}

	ctx := c.Request().Context()
	records, err := h.intakeRepo.ListPendingReviews(ctx, skip, limit)
	if err != nil {
		return response.InternalError(c, "failed to list pending intakes")
	}

	total, err := h.intakeRepo.CountPending(ctx)
	if err != nil {
		return response.InternalError(c, "failed to count pending intakes")
	}

	items := make([]IntakeListItem, 0, len(records))
	for i := range records {
		items = append(items, toListItem(&records[i]))
	}

	return response.Paginated(c, items, total, limit, skip)
}

// Get handles GET /api/email-intakes/:id
func (h *IntakeHandler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return response.BadRequest(c, "invalid intake ID")
	}

	record, err := h.intakeRepo.GetByID(c.Request().Context(), id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return response.NotFound(c, fmt.Sprintf("Intake record not found: %d", id))
		}
		return response.InternalError(c, "failed to get intake")
	}

	return response.Success(c, toDetail(record))
}

// SubmitDecision handles POST /api/email-intakes/:id/decision
func (h *IntakeHandler) SubmitDecision(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return response.BadRequest(c, "invalid intake ID")
	}

	var req SubmitDecisionRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	decidedBy := validator.SanitizeString(req.DecidedBy, maxDecidedByLength)
	if decidedBy == "" {
		decidedBy = middleware.ReviewerFromContext(c)
	}

	record, err := h.submitter.Execute(c.Request().Context(), intake.DecisionRequest{
		IntakeID:            id,
		ApprovedTaskIndices: req.ApprovedTaskIndices,
		ApprovedDealIndices: req.ApprovedDealIndices,
		DecidedBy:           decidedBy,
		Notes:               validator.SanitizeString(req.Notes, maxNotesLength),
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, toDetail(record))
}

func parseID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", c.Param("id"))
	}
	return uint(id), nil
}
