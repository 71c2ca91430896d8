package domain

import "time"

// Event names used on the wire.
const (
	EventEmailIntakeProcessed  = "EmailIntakeProcessed"
	EventUserDecisionSubmitted = "UserDecisionSubmitted"
)

// Event is a domain event emitted by the orchestrators.
type Event interface {
	EventName() string
}

// EmailIntakeProcessed is emitted after an intake is persisted.
type EmailIntakeProcessed struct {
	IntakeID        uint      `json:"intake_id"`
	Timestamp       time.Time `json:"timestamp"`
	ConfidenceScore float64   `json:"confidence_score"`
	SenderEmail     string    `json:"sender_email"`
	Subject         string    `json:"subject"`
	Status          Status    `json:"status"`
}

// EventName implements Event.
func (EmailIntakeProcessed) EventName() string { return EventEmailIntakeProcessed }

// UserDecisionSubmitted is emitted after a decision is persisted.
type UserDecisionSubmitted struct {
	IntakeID          uint      `json:"intake_id"`
	Timestamp         time.Time `json:"timestamp"`
	ApprovedTaskCount int       `json:"approved_task_count"`
	ApprovedDealCount int       `json:"approved_deal_count"`
	DecidedBy         string    `json:"decided_by,omitempty"`
}

// EventName implements Event.
func (UserDecisionSubmitted) EventName() string { return EventUserDecisionSubmitted }
