package models

import (
	"time"

	"github.com/welldanyogia/webrana-crm-intake/internal/domain"
)

// EmailIntake is the persisted form of an intake record.
// The aggregate parts are stored as JSON text; sender, subject, score and
// status are denormalized for filtering and indexing.
type EmailIntake struct {
	ID              uint                   `gorm:"primaryKey"`
	SenderEmail     string                 `gorm:"not null;size:255;index:idx_email_intakes_sender_created,priority:1"`
	Subject         string                 `gorm:"size:500"`
	ConfidenceScore float64                `gorm:"not null;index:idx_email_intakes_status_confidence,priority:2"`
	Status          string                 `gorm:"not null;size:50;index:idx_email_intakes_status_confidence,priority:1"`
	NormalizedEmail domain.NormalizedEmail `gorm:"serializer:json;type:text;not null"`
	AIResult        domain.AIIntakeResult  `gorm:"column:ai_result;serializer:json;type:text;not null"`
	Recommendations domain.Recommendations `gorm:"serializer:json;type:text;not null"`
	Decision        *domain.IntakeDecision `gorm:"serializer:json;type:text"`
	CreatedAt       time.Time              `gorm:"autoCreateTime;index:idx_email_intakes_sender_created,priority:2"`
	UpdatedAt       time.Time              `gorm:"autoUpdateTime"`
}

// TableName returns the table name for EmailIntake
func (EmailIntake) TableName() string {
	return "email_intakes"
}

// NewEmailIntake converts a domain record into its row form.
func NewEmailIntake(r *domain.IntakeRecord) *EmailIntake {
	return &EmailIntake{
		ID:              r.ID,
		SenderEmail:     r.SenderEmail(),
		Subject:         r.Subject(),
		ConfidenceScore: r.ConfidenceScore(),
		Status:          string(r.Status),
		NormalizedEmail: r.NormalizedEmail,
		AIResult:        r.AIResult,
		Recommendations: r.Recommendations,
		Decision:        r.Decision,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

// ToDomain converts the row back into a domain record.
func (m *EmailIntake) ToDomain() *domain.IntakeRecord {
	return &domain.IntakeRecord{
		ID:              m.ID,
		NormalizedEmail: m.NormalizedEmail,
		AIResult:        m.AIResult,
		Recommendations: m.Recommendations,
		Status:          domain.Status(m.Status),
		Decision:        m.Decision,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}
