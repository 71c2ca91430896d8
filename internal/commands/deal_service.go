package commands

import (
	"context"
	"log/slog"
	"time"

	"github.com/welldanyogia/webrana-crm-intake/internal/models"
	"github.com/welldanyogia/webrana-crm-intake/internal/repository"
)

// DealService stores deals in the local database.
type DealService struct {
	repo   repository.WorkItemRepository
	logger *slog.Logger
}

// NewDealService creates a database-backed DealService
func NewDealService(repo repository.WorkItemRepository, logger *slog.Logger) *DealService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DealService{repo: repo, logger: logger}
}

// CreateDeal inserts a deal and returns it as a map.
func (s *DealService) CreateDeal(ctx context.Context, contactEmail, stage string, value float64, notes string) (map[string]any, error) {
	deal := &models.Deal{
		ContactEmail: contactEmail,
		Stage:        stage,
		Value:        value,
		Notes:        notes,
		Source:       models.SourceEmailIntake,
	}
	if err := s.repo.CreateDeal(ctx, deal); err != nil {
		return nil, err
	}
	s.logger.Info("deal created", "deal_id", deal.ID, "stage", stage)
	return dealMap(int64(deal.ID), contactEmail, stage, value, notes, deal.CreatedAt), nil
}

// InMemoryDealService stands in for an external sales pipeline.
type InMemoryDealService struct {
	seq    *Sequence
	logger *slog.Logger
	now    func() time.Time
}

// NewInMemoryDealService creates an InMemoryDealService drawing ids from seq
func NewInMemoryDealService(seq *Sequence, logger *slog.Logger) *InMemoryDealService {
	if logger == nil {
		logger = slog.Default()
	}
	return &InMemoryDealService{seq: seq, logger: logger, now: time.Now}
}

// CreateDeal returns a deal map with the next id from the sequence.
func (s *InMemoryDealService) CreateDeal(_ context.Context, contactEmail, stage string, value float64, notes string) (map[string]any, error) {
	id := s.seq.Next()
	s.logger.Info("deal created", "deal_id", id, "stage", stage, "backend", "memory")
	return dealMap(id, contactEmail, stage, value, notes, s.now()), nil
}

func dealMap(id int64, contactEmail, stage string, value float64, notes string, createdAt time.Time) map[string]any {
	return map[string]any{
		"id":            id,
		"contact_email": contactEmail,
		"stage":         stage,
		"value":         value,
		"notes":         notes,
		"created_at":    createdAt.UTC().Format(time.RFC3339),
	}
}
