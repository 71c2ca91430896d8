package domain

import (
	"strings"

	apperrors "github.com/welldanyogia/webrana-crm-intake/internal/errors"
	"github.com/welldanyogia/webrana-crm-intake/internal/validator"
)

// Priority of a recommended task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ParsePriority validates a priority label.
func ParsePriority(label string) (Priority, error) {
	switch p := Priority(strings.ToLower(strings.TrimSpace(label))); p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return p, nil
	default:
		return "", apperrors.Validation("Invalid priority: %s", label)
	}
}

// TaskRecommendation is a follow-up task suggested by the AI.
type TaskRecommendation struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    Priority `json:"priority"`
	DueDate     string   `json:"due_date,omitempty"`
}

// Validate checks the task invariants.
func (t TaskRecommendation) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return apperrors.Validation("Task title cannot be empty")
	}
	if strings.TrimSpace(t.Description) == "" {
		return apperrors.Validation("Task description cannot be empty")
	}
	if _, err := ParsePriority(string(t.Priority)); err != nil {
		return err
	}
	return nil
}

// DealRecommendation is a pipeline deal suggested by the AI.
type DealRecommendation struct {
	ContactEmail string  `json:"contact_email"`
	DealStage    string  `json:"deal_stage"`
	Value        float64 `json:"value"`
	Notes        string  `json:"notes"`
}

// Validate checks the deal invariants.
func (d DealRecommendation) Validate() error {
	if err := validator.ValidateEmail(d.ContactEmail); err != nil {
		return apperrors.Validation("Invalid contact email: %s", d.ContactEmail)
	}
	if strings.TrimSpace(d.DealStage) == "" {
		return apperrors.Validation("Deal stage cannot be empty")
	}
	if d.Value < 0 {
		return apperrors.Validation("Deal value cannot be negative")
	}
	if strings.TrimSpace(d.Notes) == "" {
		return apperrors.Validation("Deal notes cannot be empty")
	}
	return nil
}

// Recommendations groups the AI's suggested follow-ups.
type Recommendations struct {
	Tasks []TaskRecommendation `json:"tasks"`
	Deals []DealRecommendation `json:"deals"`
}

// EmptyRecommendations returns a Recommendations value with non-nil empty slices.
func EmptyRecommendations() *Recommendations {
	return &Recommendations{Tasks: []TaskRecommendation{}, Deals: []DealRecommendation{}}
}

// HasRecommendations reports whether anything was suggested.
func (r *Recommendations) HasRecommendations() bool {
	return r.Total() > 0
}

// Total returns the number of suggestions.
func (r *Recommendations) Total() int {
	return len(r.Tasks) + len(r.Deals)
}
