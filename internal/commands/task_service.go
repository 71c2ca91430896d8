package commands

import (
	"context"
	"log/slog"
	"time"

	"github.com/welldanyogia/webrana-crm-intake/internal/domain"
	"github.com/welldanyogia/webrana-crm-intake/internal/models"
	"github.com/welldanyogia/webrana-crm-intake/internal/repository"
)

// TaskService stores tasks in the local database.
type TaskService struct {
	repo   repository.WorkItemRepository
	logger *slog.Logger
}

// NewTaskService creates a database-backed TaskService
func NewTaskService(repo repository.WorkItemRepository, logger *slog.Logger) *TaskService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskService{repo: repo, logger: logger}
}

// CreateTask inserts an open task and returns it as a map.
func (s *TaskService) CreateTask(ctx context.Context, title, description string, priority domain.Priority, dueDate string) (map[string]any, error) {
	task := &models.Task{
		Title:       title,
		Description: description,
		Priority:    string(priority),
		DueDate:     dueDate,
		Status:      "open",
		Source:      models.SourceEmailIntake,
	}
	if err := s.repo.CreateTask(ctx, task); err != nil {
		return nil, err
	}
	s.logger.Info("task created", "task_id", task.ID, "priority", task.Priority)
	return taskMap(int64(task.ID), title, description, priority, dueDate, task.CreatedAt), nil
}

// InMemoryTaskService stands in for an external task system.
type InMemoryTaskService struct {
	seq    *Sequence
	logger *slog.Logger
	now    func() time.Time
}

// NewInMemoryTaskService creates an InMemoryTaskService drawing ids from seq
func NewInMemoryTaskService(seq *Sequence, logger *slog.Logger) *InMemoryTaskService {
	if logger == nil {
		logger = slog.Default()
	}
	return &InMemoryTaskService{seq: seq, logger: logger, now: time.Now}
}

// CreateTask returns a task map with the next id from the sequence.
func (s *InMemoryTaskService) CreateTask(_ context.Context, title, description string, priority domain.Priority, dueDate string) (map[string]any, error) {
	id := s.seq.Next()
	s.logger.Info("task created", "task_id", id, "priority", priority, "backend", "memory")
	return taskMap(id, title, description, priority, dueDate, s.now()), nil
}

func taskMap(id int64, title, description string, priority domain.Priority, dueDate string, createdAt time.Time) map[string]any {
	m := map[string]any{
		"id":          id,
		"title":       title,
		"description": description,
		"priority":    string(priority),
		"status":      "open",
		"created_at":  createdAt.UTC().Format(time.RFC3339),
	}
	if dueDate != "" {
		m["due_date"] = dueDate
	}
	return m
}
