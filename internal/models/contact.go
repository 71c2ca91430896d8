package models

import (
	"strings"
	"time"
)

// Contact is a CRM contact, keyed by lowercase email.
type Contact struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"uniqueIndex;not null;size:255" json:"email"`
	FirstName string    `gorm:"size:100" json:"first_name,omitempty"`
	LastName  string    `gorm:"size:100" json:"last_name,omitempty"`
	Company   string    `gorm:"size:255" json:"company,omitempty"`
	Phone     string    `gorm:"size:50" json:"phone,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	Interactions []Interaction `gorm:"foreignKey:ContactID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName returns the table name for Contact
func (Contact) TableName() string {
	return "contacts"
}

// FullName joins first and last name.
func (c *Contact) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// Interaction is one touchpoint with a contact: an appointment, meeting or call.
type Interaction struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ContactID   uint      `gorm:"not null;index:idx_interactions_contact_occurred,priority:1" json:"contact_id"`
	Type        string    `gorm:"not null;size:50" json:"type"`
	Title       string    `gorm:"size:500" json:"title,omitempty"`
	Status      string    `gorm:"size:50" json:"status,omitempty"`
	Description string    `json:"description,omitempty"`
	Location    string    `gorm:"size:255" json:"location,omitempty"`
	OccurredAt  time.Time `gorm:"not null;index:idx_interactions_contact_occurred,priority:2" json:"occurred_at"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for Interaction
func (Interaction) TableName() string {
	return "interactions"
}
