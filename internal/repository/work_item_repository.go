package repository

import (
	"context"
	"fmt"

	"github.com/welldanyogia/webrana-crm-intake/internal/models"
	"gorm.io/gorm"
)

// WorkItemRepository persists tasks and deals created from approved recommendations
type WorkItemRepository interface {
	CreateTask(ctx context.Context, task *models.Task) error
	CreateDeal(ctx context.Context, deal *models.Deal) error
}

type workItemRepository struct {
	db *gorm.DB
}

// NewWorkItemRepository creates a new WorkItemRepository instance
func NewWorkItemRepository(db *gorm.DB) WorkItemRepository {
	return &workItemRepository{db: db}
}

// CreateTask inserts a task; the database assigns its ID
func (r *workItemRepository) CreateTask(ctx context.Context, task *models.Task) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// CreateDeal inserts a deal; the database assigns its ID
func (r *workItemRepository) CreateDeal(ctx context.Context, deal *models.Deal) error {
	if err := r.db.WithContext(ctx).Create(deal).Error; err != nil {
		return fmt.Errorf("failed to create deal: %w", err)
	}
	return nil
}
