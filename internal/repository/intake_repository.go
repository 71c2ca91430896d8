package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/welldanyogia/webrana-crm-intake/internal/domain"
	"github.com/welldanyogia/webrana-crm-intake/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// IntakeRepository defines the interface for intake record persistence
type IntakeRepository interface {
	Save(ctx context.Context, record *domain.IntakeRecord) (*domain.IntakeRecord, error)
	GetByID(ctx context.Context, id uint) (*domain.IntakeRecord, error)
	ListPendingReviews(ctx context.Context, skip, limit int) ([]domain.IntakeRecord, error)
	CountPending(ctx context.Context) (int64, error)
	UpdateDecision(ctx context.Context, id uint, decision *domain.IntakeDecision) (*domain.IntakeRecord, error)
}

// intakeRepository implements IntakeRepository using GORM
type intakeRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewIntakeRepository creates a new IntakeRepository instance
func NewIntakeRepository(db *gorm.DB) IntakeRepository {
	return &intakeRepository{db: db, now: time.Now}
}

// Save inserts a new intake and returns the stored record with its assigned ID.
func (r *intakeRepository) Save(ctx context.Context, record *domain.IntakeRecord) (*domain.IntakeRecord, error) {
	row := models.NewEmailIntake(record)
	row.ID = 0
	now := r.now().UTC()
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	row.UpdatedAt = now

	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, fmt.Errorf("failed to save intake: %w", err)
	}
	return row.ToDomain(), nil
}

// GetByID retrieves an intake by its ID
func (r *intakeRepository) GetByID(ctx context.Context, id uint) (*domain.IntakeRecord, error) {
	var row models.EmailIntake
	result := r.db.WithContext(ctx).First(&row, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get intake by ID: %w", result.Error)
	}
	return row.ToDomain(), nil
}

// ListPendingReviews returns intakes awaiting review, newest first
func (r *intakeRepository) ListPendingReviews(ctx context.Context, skip, limit int) ([]domain.IntakeRecord, error) {
	var rows []models.EmailIntake
	result := r.db.WithContext(ctx).
		Where("status = ?", string(domain.StatusPendingReview)).
		Order("created_at DESC").
		Order("id DESC").
		Offset(skip).
		Limit(limit).
		Find(&rows)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list pending intakes: %w", result.Error)
	}

	records := make([]domain.IntakeRecord, 0, len(rows))
	for i := range rows {
		records = append(records, *rows[i].ToDomain())
	}
	return records, nil
}

// CountPending returns the number of intakes awaiting review
func (r *intakeRepository) CountPending(ctx context.Context) (int64, error) {
	var total int64
	result := r.db.WithContext(ctx).
		Model(&models.EmailIntake{}).
		Where("status = ?", string(domain.StatusPendingReview)).
		Count(&total)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to count pending intakes: %w", result.Error)
	}
	return total, nil
}

// UpdateDecision attaches a decision and derives the new status from it.
// The row is locked for the duration of the transaction so concurrent
// decisions on the same intake are serialized by the database. An intake is
// decided once; later calls fail with ErrAlreadyDecided.
func (r *intakeRepository) UpdateDecision(ctx context.Context, id uint, decision *domain.IntakeDecision) (*domain.IntakeRecord, error) {
	var row models.EmailIntake
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&row, id)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to load intake: %w", result.Error)
		}
		if row.Decision != nil {
			return ErrAlreadyDecided
		}

		row.Decision = decision
		row.Status = string(decision.ResultingStatus())
		row.UpdatedAt = r.now().UTC()

		if err := tx.Save(&row).Error; err != nil {
			return fmt.Errorf("failed to update intake decision: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return row.ToDomain(), nil
}
