package domain

import "time"

// Status is the review state of an intake.
type Status string

const (
	StatusPendingReview Status = "pending_review"
	StatusAutoApproved  Status = "auto_approved"
	StatusUserApproved  Status = "user_approved"
	StatusRejected      Status = "rejected"
)

// IntakeDecision records a reviewer's verdict on the recommendations.
type IntakeDecision struct {
	ApprovedTaskIndices []int            `json:"approved_task_indices"`
	ApprovedDealIndices []int            `json:"approved_deal_indices"`
	RejectedTaskIndices []int            `json:"rejected_task_indices"`
	RejectedDealIndices []int            `json:"rejected_deal_indices"`
	CreatedTasks        []map[string]any `json:"created_tasks"`
	CreatedDeals        []map[string]any `json:"created_deals"`
	Notes               string           `json:"notes,omitempty"`
	DecidedAt           *time.Time       `json:"decided_at,omitempty"`
	DecidedBy           string           `json:"decided_by,omitempty"`
}

// HasApprovals reports whether any task or deal was approved.
func (d *IntakeDecision) HasApprovals() bool {
	return len(d.ApprovedTaskIndices) > 0 || len(d.ApprovedDealIndices) > 0
}

// ResultingStatus is the status an intake takes once this decision is attached.
func (d *IntakeDecision) ResultingStatus() Status {
	if d.HasApprovals() {
		return StatusUserApproved
	}
	return StatusRejected
}

// IntakeRecord is the aggregate root of the pipeline. ID is zero until persisted.
type IntakeRecord struct {
	ID              uint            `json:"id"`
	NormalizedEmail NormalizedEmail `json:"normalized_email"`
	AIResult        AIIntakeResult  `json:"ai_result"`
	Recommendations Recommendations `json:"recommendations"`
	Status          Status          `json:"status"`
	Decision        *IntakeDecision `json:"decision,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// SenderEmail returns the sender's address.
func (r *IntakeRecord) SenderEmail() string {
	return r.NormalizedEmail.SenderEmail()
}

// Subject returns the email subject.
func (r *IntakeRecord) Subject() string {
	return r.NormalizedEmail.Subject()
}

// ConfidenceScore returns the AI's overall score.
func (r *IntakeRecord) ConfidenceScore() float64 {
	return r.AIResult.Confidence.OverallScore
}

// IsDecided reports whether a reviewer decision is attached.
func (r *IntakeRecord) IsDecided() bool {
	return r.Decision != nil
}
