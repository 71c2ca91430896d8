package models

import "time"

// Source values for work items created by the intake pipeline.
const SourceEmailIntake = "email_intake"

// Task is a follow-up task materialized from an approved recommendation.
type Task struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"not null;size:255" json:"title"`
	Description string    `json:"description"`
	Priority    string    `gorm:"not null;size:20" json:"priority"`
	DueDate     string    `gorm:"size:32" json:"due_date,omitempty"`
	Status      string    `gorm:"not null;size:20;default:open" json:"status"`
	Source      string    `gorm:"size:50" json:"source"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for Task
func (Task) TableName() string {
	return "tasks"
}

// Deal is a pipeline deal materialized from an approved recommendation.
type Deal struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	ContactEmail string    `gorm:"not null;size:255;index" json:"contact_email"`
	Stage        string    `gorm:"not null;size:50" json:"stage"`
	Value        float64   `gorm:"not null;default:0" json:"value"`
	Notes        string    `json:"notes"`
	Source       string    `gorm:"size:50" json:"source"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for Deal
func (Deal) TableName() string {
	return "deals"
}
