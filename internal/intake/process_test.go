package intake_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/welldanyogia/webrana-crm-intake/internal/domain"
	apperrors "github.com/welldanyogia/webrana-crm-intake/internal/errors"
	"github.com/welldanyogia/webrana-crm-intake/internal/intake"
	"github.com/welldanyogia/webrana-crm-intake/internal/normalizer"
	"github.com/welldanyogia/webrana-crm-intake/tests/mocks"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func analysis(score float64) *domain.AIIntakeResult {
	return &domain.AIIntakeResult{
		Summary:    domain.Summary{Text: "Says hi", KeyPoints: []string{}},
		Intent:     domain.IntentOther,
		Entities:   []domain.ExtractedEntity{},
		Confidence: domain.Confidence{OverallScore: score, Reasoning: "short message"},
	}
}

// ProcessInboundEmailTestSuite tests the intake orchestrator
type ProcessInboundEmailTestSuite struct {
	suite.Suite
	crm       *mocks.MockCRMContextProvider
	engine    *mocks.MockAIIntakeEngine
	repo      *mocks.MockIntakeRepository
	publisher *mocks.MockEventPublisher
	uc        *intake.ProcessInboundEmail
	ctx       context.Context
	raw       domain.RawEmail
}

func (s *ProcessInboundEmailTestSuite) SetupTest() {
	s.crm = new(mocks.MockCRMContextProvider)
	s.engine = new(mocks.MockAIIntakeEngine)
	s.repo = new(mocks.MockIntakeRepository)
	s.publisher = new(mocks.MockEventPublisher)
	s.uc = intake.NewProcessInboundEmail(&intake.ProcessInboundEmailConfig{
		Normalizer: normalizer.New(),
		CRM:        s.crm,
		Engine:     s.engine,
		Repository: s.repo,
		Publisher:  s.publisher,
		Retry:      intake.RetryPolicy{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond},
		Logger:     discardLogger(),
		Now:        func() time.Time { return fixedNow },
	})
	s.ctx = context.Background()
	s.raw = domain.RawEmail{"from": "a@x.com", "to": []any{"b@y.com"}, "subject": "Hi", "text": "body"}
}

func (s *ProcessInboundEmailTestSuite) TearDownTest() {
	s.crm.AssertExpectations(s.T())
	s.engine.AssertExpectations(s.T())
	s.repo.AssertExpectations(s.T())
	s.publisher.AssertExpectations(s.T())
}

func TestProcessInboundEmailTestSuite(t *testing.T) {
	suite.Run(t, new(ProcessInboundEmailTestSuite))
}

func (s *ProcessInboundEmailTestSuite) expectNoContact() {
	s.crm.On("LookupContactByEmail", mock.Anything, "a@x.com").Return(nil, nil)
	s.crm.On("GetRecentInteractions", mock.Anything, "a@x.com", intake.RecentInteractionLimit).Return([]map[string]any{}, nil)
}

// expectSave echoes the record back with an id, as the database would.
func (s *ProcessInboundEmailTestSuite) expectSave(status domain.Status) {
	s.repo.On("Save", mock.Anything, mock.MatchedBy(func(r *domain.IntakeRecord) bool {
		return r.ID == 0 && r.Status == status
	})).Return(func(_ context.Context, r *domain.IntakeRecord) *domain.IntakeRecord {
		saved := *r
		saved.ID = 1
		return &saved
	}, nil)
}

// ==================== Routing Tests ====================

func (s *ProcessInboundEmailTestSuite) TestExecute_HighConfidence_AutoApproved() {
	// Arrange
	s.expectNoContact()
	s.engine.On("Analyze", mock.Anything, mock.Anything, mock.Anything).Return(analysis(0.9), nil, nil)
	s.expectSave(domain.StatusAutoApproved)
	s.publisher.On("Publish", mock.Anything, mock.MatchedBy(func(e domain.Event) bool {
		ev, ok := e.(domain.EmailIntakeProcessed)
		return ok && ev.IntakeID == 1 && ev.Status == domain.StatusAutoApproved &&
			ev.SenderEmail == "a@x.com" && ev.Subject == "Hi" && ev.ConfidenceScore == 0.9 &&
			ev.Timestamp.Equal(fixedNow)
	})).Return(nil)

	// Act
	record, err := s.uc.Execute(s.ctx, s.raw)

	// Assert
	require.NoError(s.T(), err)
	assert.Equal(s.T(), uint(1), record.ID)
	assert.Equal(s.T(), domain.StatusAutoApproved, record.Status)
	assert.NotNil(s.T(), record.Recommendations.Tasks)
	assert.NotNil(s.T(), record.Recommendations.Deals)
}

func (s *ProcessInboundEmailTestSuite) TestExecute_LowConfidence_PendingReview() {
	s.expectNoContact()
	s.engine.On("Analyze", mock.Anything, mock.Anything, mock.Anything).Return(analysis(0.5), nil, nil)
	s.expectSave(domain.StatusPendingReview)
	s.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	record, err := s.uc.Execute(s.ctx, s.raw)

	require.NoError(s.T(), err)
	assert.Equal(s.T(), domain.StatusPendingReview, record.Status)
}

func (s *ProcessInboundEmailTestSuite) TestExecute_BoundaryScore_AutoApproved() {
	s.expectNoContact()
	s.engine.On("Analyze", mock.Anything, mock.Anything, mock.Anything).Return(analysis(0.85), nil, nil)
	s.expectSave(domain.StatusAutoApproved)
	s.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	record, err := s.uc.Execute(s.ctx, s.raw)

	require.NoError(s.T(), err)
	assert.Equal(s.T(), domain.StatusAutoApproved, record.Status)
}

// ==================== Failure Tests ====================

func (s *ProcessInboundEmailTestSuite) TestExecute_MissingFrom_NoSideEffects() {
	for _, raw := range []domain.RawEmail{
		{"to": []any{"b@y.com"}, "subject": "Hi", "text": "body"},
		{"from": "a@x.com", "subject": "Hi", "text": "body"},
	} {
		_, err := s.uc.Execute(s.ctx, raw)

		require.Error(s.T(), err)
		assert.True(s.T(), apperrors.IsInvalidInput(err))
	}
	s.repo.AssertNotCalled(s.T(), "Save", mock.Anything, mock.Anything)
	s.publisher.AssertNotCalled(s.T(), "Publish", mock.Anything, mock.Anything)
}

func (s *ProcessInboundEmailTestSuite) TestExecute_EngineKeepsFailing_ServiceUnavailable() {
	s.expectNoContact()
	s.engine.On("Analyze", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil, errors.New("upstream timeout"))

	_, err := s.uc.Execute(s.ctx, s.raw)

	require.Error(s.T(), err)
	assert.True(s.T(), apperrors.IsServiceUnavailable(err))
	s.engine.AssertNumberOfCalls(s.T(), "Analyze", 3)
	s.repo.AssertNotCalled(s.T(), "Save", mock.Anything, mock.Anything)
	s.publisher.AssertNotCalled(s.T(), "Publish", mock.Anything, mock.Anything)
}

func (s *ProcessInboundEmailTestSuite) TestExecute_EngineRecoversOnRetry() {
	s.expectNoContact()
	s.engine.On("Analyze", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil, errors.New("503")).Once()
	s.engine.On("Analyze", mock.Anything, mock.Anything, mock.Anything).Return(analysis(0.6), nil, nil).Once()
	s.expectSave(domain.StatusPendingReview)
	s.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	record, err := s.uc.Execute(s.ctx, s.raw)

	require.NoError(s.T(), err)
	assert.Equal(s.T(), uint(1), record.ID)
	s.engine.AssertNumberOfCalls(s.T(), "Analyze", 2)
}

func (s *ProcessInboundEmailTestSuite) TestExecute_EngineValidationError_NotRetried() {
	s.expectNoContact()
	s.engine.On("Analyze", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, nil, apperrors.Validation("LLM did not return valid JSON"))

	_, err := s.uc.Execute(s.ctx, s.raw)

	require.Error(s.T(), err)
	assert.True(s.T(), apperrors.IsInvalidInput(err))
	assert.Equal(s.T(), "LLM did not return valid JSON", err.Error())
	s.engine.AssertNumberOfCalls(s.T(), "Analyze", 1)
	s.repo.AssertNotCalled(s.T(), "Save", mock.Anything, mock.Anything)
}

func (s *ProcessInboundEmailTestSuite) TestExecute_PublishFailure_StillReturnsRecord() {
	s.expectNoContact()
	s.engine.On("Analyze", mock.Anything, mock.Anything, mock.Anything).Return(analysis(0.9), nil, nil)
	s.expectSave(domain.StatusAutoApproved)
	s.publisher.On("Publish", mock.Anything, mock.Anything).Return(errors.New("bus down"))

	record, err := s.uc.Execute(s.ctx, s.raw)

	require.NoError(s.T(), err)
	assert.Equal(s.T(), uint(1), record.ID)
}

func (s *ProcessInboundEmailTestSuite) TestExecute_CRMFailure_Propagates() {
	s.crm.On("LookupContactByEmail", mock.Anything, "a@x.com").Return(nil, errors.New("db gone"))
	s.crm.On("GetRecentInteractions", mock.Anything, "a@x.com", intake.RecentInteractionLimit).Return([]map[string]any{}, nil).Maybe()

	_, err := s.uc.Execute(s.ctx, s.raw)

	require.Error(s.T(), err)
	assert.Contains(s.T(), err.Error(), "db gone")
	s.engine.AssertNotCalled(s.T(), "Analyze", mock.Anything, mock.Anything, mock.Anything)
}

// ==================== CRM Context Tests ====================

func (s *ProcessInboundEmailTestSuite) TestExecute_NoContact_EngineSeesEmptyContext() {
	s.crm.On("LookupContactByEmail", mock.Anything, "a@x.com").Return(nil, nil)
	s.crm.On("GetRecentInteractions", mock.Anything, "a@x.com", intake.RecentInteractionLimit).Return(nil, nil)
	s.engine.On("Analyze", mock.Anything, mock.Anything, mock.MatchedBy(func(c domain.CRMContext) bool {
		return c.Contact == nil && c.RecentInteractions != nil && len(c.RecentInteractions) == 0 && !c.IsExistingContact
	})).Return(analysis(0.5), nil, nil)
	s.expectSave(domain.StatusPendingReview)
	s.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	_, err := s.uc.Execute(s.ctx, s.raw)

	require.NoError(s.T(), err)
}

func (s *ProcessInboundEmailTestSuite) TestExecute_KnownContact_EngineSeesHistory() {
	contact := map[string]any{"id": uint(5), "name": "Alice", "email": "a@x.com"}
	interactions := []map[string]any{{"type": "call"}, {"type": "email"}}
	s.crm.On("LookupContactByEmail", mock.Anything, "a@x.com").Return(contact, nil)
	s.crm.On("GetRecentInteractions", mock.Anything, "a@x.com", intake.RecentInteractionLimit).Return(interactions, nil)
	s.engine.On("Analyze", mock.Anything, mock.MatchedBy(func(e *domain.NormalizedEmail) bool {
		return e.SenderEmail() == "a@x.com"
	}), mock.MatchedBy(func(c domain.CRMContext) bool {
		return c.IsExistingContact && c.Contact["name"] == "Alice" && len(c.RecentInteractions) == 2
	})).Return(analysis(0.9), &domain.Recommendations{
		Tasks: []domain.TaskRecommendation{{Title: "Call", Description: "Call back", Priority: domain.PriorityLow}},
	}, nil)
	s.expectSave(domain.StatusAutoApproved)
	s.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	record, err := s.uc.Execute(s.ctx, s.raw)

	require.NoError(s.T(), err)
	require.Len(s.T(), record.Recommendations.Tasks, 1)
}
