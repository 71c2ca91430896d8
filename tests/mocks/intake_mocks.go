package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/welldanyogia/webrana-crm-intake/internal/domain"
	"github.com/welldanyogia/webrana-crm-intake/internal/intake"
)

// MockNormalizer implements intake.Normalizer
type MockNormalizer struct {
	mock.Mock
}

// Normalize converts a raw email mapping
func (m *MockNormalizer) Normalize(ctx context.Context, raw domain.RawEmail) (*domain.NormalizedEmail, error) {
	args := m.Called(ctx, raw)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.NormalizedEmail), args.Error(1)
}

// MockCRMContextProvider implements intake.CRMContextProvider
type MockCRMContextProvider struct {
	mock.Mock
}

// LookupContactByEmail returns the contact for an address, or nil
func (m *MockCRMContextProvider) LookupContactByEmail(ctx context.Context, email string) (map[string]any, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]any), args.Error(1)
}

// GetRecentInteractions returns recent interactions for an address
func (m *MockCRMContextProvider) GetRecentInteractions(ctx context.Context, email string, limit int) ([]map[string]any, error) {
	args := m.Called(ctx, email, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]map[string]any), args.Error(1)
}

// MockAIIntakeEngine implements intake.AIIntakeEngine
type MockAIIntakeEngine struct {
	mock.Mock
}

// Analyze returns the analysis for an email
func (m *MockAIIntakeEngine) Analyze(ctx context.Context, email *domain.NormalizedEmail, crm domain.CRMContext) (*domain.AIIntakeResult, *domain.Recommendations, error) {
	args := m.Called(ctx, email, crm)
	var result *domain.AIIntakeResult
	if args.Get(0) != nil {
		result = args.Get(0).(*domain.AIIntakeResult)
	}
	var recs *domain.Recommendations
	if args.Get(1) != nil {
		recs = args.Get(1).(*domain.Recommendations)
	}
	return result, recs, args.Error(2)
}

// MockEventPublisher implements intake.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

// Publish emits an event
func (m *MockEventPublisher) Publish(ctx context.Context, event domain.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockTaskCommandService implements intake.TaskCommandService
type MockTaskCommandService struct {
	mock.Mock
}

// CreateTask creates a task
func (m *MockTaskCommandService) CreateTask(ctx context.Context, title, description string, priority domain.Priority, dueDate string) (map[string]any, error) {
	args := m.Called(ctx, title, description, priority, dueDate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]any), args.Error(1)
}

// MockPipelineCommandService implements intake.PipelineCommandService
type MockPipelineCommandService struct {
	mock.Mock
}

// CreateDeal creates a deal
func (m *MockPipelineCommandService) CreateDeal(ctx context.Context, contactEmail, stage string, value float64, notes string) (map[string]any, error) {
	args := m.Called(ctx, contactEmail, stage, value, notes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]any), args.Error(1)
}

// MockEmailProcessor stands in for the Process-Inbound-Email orchestrator
type MockEmailProcessor struct {
	mock.Mock
}

// Execute processes a raw email
func (m *MockEmailProcessor) Execute(ctx context.Context, raw domain.RawEmail) (*domain.IntakeRecord, error) {
	args := m.Called(ctx, raw)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IntakeRecord), args.Error(1)
}

// MockDecisionSubmitter stands in for the Submit-Decision orchestrator
type MockDecisionSubmitter struct {
	mock.Mock
}

// Execute submits a decision
func (m *MockDecisionSubmitter) Execute(ctx context.Context, req intake.DecisionRequest) (*domain.IntakeRecord, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IntakeRecord), args.Error(1)
}

// MockDuplicateFilter implements dedup-style message id filtering
type MockDuplicateFilter struct {
	mock.Mock
}

// IsNew reports whether the message id has not been seen before
func (m *MockDuplicateFilter) IsNew(ctx context.Context, messageID string) (bool, error) {
	args := m.Called(ctx, messageID)
	return args.Bool(0), args.Error(1)
}

// Forget removes a message id so a failed delivery can be retried
func (m *MockDuplicateFilter) Forget(ctx context.Context, messageID string) error {
	args := m.Called(ctx, messageID)
	return args.Error(0)
}
