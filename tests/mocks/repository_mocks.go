package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/welldanyogia/webrana-crm-intake/internal/domain"
)

// MockIntakeRepository implements repository.IntakeRepository
type MockIntakeRepository struct {
	mock.Mock
}

// Save persists a new intake
func (m *MockIntakeRepository) Save(ctx context.Context, record *domain.IntakeRecord) (*domain.IntakeRecord, error) {
	args := m.Called(ctx, record)
	if fn, ok := args.Get(0).(func(context.Context, *domain.IntakeRecord) *domain.IntakeRecord); ok {
		return fn(ctx, record), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IntakeRecord), args.Error(1)
}

// GetByID retrieves an intake by its ID
func (m *MockIntakeRepository) GetByID(ctx context.Context, id uint) (*domain.IntakeRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IntakeRecord), args.Error(1)
}

// ListPendingReviews lists intakes awaiting review
func (m *MockIntakeRepository) ListPendingReviews(ctx context.Context, skip, limit int) ([]domain.IntakeRecord, error) {
	args := m.Called(ctx, skip, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.IntakeRecord), args.Error(1)
}

// CountPending counts intakes awaiting review
func (m *MockIntakeRepository) CountPending(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// UpdateDecision attaches a decision to an intake
func (m *MockIntakeRepository) UpdateDecision(ctx context.Context, id uint, decision *domain.IntakeDecision) (*domain.IntakeRecord, error) {
	args := m.Called(ctx, id, decision)
	if fn, ok := args.Get(0).(func(context.Context, uint, *domain.IntakeDecision) *domain.IntakeRecord); ok {
		return fn(ctx, id, decision), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IntakeRecord), args.Error(1)
}
