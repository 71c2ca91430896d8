package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/welldanyogia/webrana-crm-intake/internal/models"
	"gorm.io/gorm"
)

// ContactRepository defines the interface for CRM contact data access
type ContactRepository interface {
	Create(ctx context.Context, contact *models.Contact) error
	GetByEmail(ctx context.Context, email string) (*models.Contact, error)
	AddInteraction(ctx context.Context, interaction *models.Interaction) error
	ListRecentInteractions(ctx context.Context, contactID uint, limit int) ([]models.Interaction, error)
}

// contactRepository implements ContactRepository using GORM
type contactRepository struct {
	db *gorm.DB
}

// NewContactRepository creates a new ContactRepository instance
func NewContactRepository(db *gorm.DB) ContactRepository {
	return &contactRepository{db: db}
}

// Create creates a new contact with a lowercased email
func (r *contactRepository) Create(ctx context.Context, contact *models.Contact) error {
	contact.Email = strings.ToLower(strings.TrimSpace(contact.Email))
	result := r.db.WithContext(ctx).Create(contact)
	if result.Error != nil {
		if isDuplicateKeyError(result.Error) {
			return ErrDuplicateEntry
		}
		return fmt.Errorf("failed to create contact: %w", result.Error)
	}
	return nil
}

// GetByEmail retrieves a contact by email, case-insensitively
func (r *contactRepository) GetByEmail(ctx context.Context, email string) (*models.Contact, error) {
	var contact models.Contact
	result := r.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&contact)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get contact by email: %w", result.Error)
	}
	return &contact, nil
}

// AddInteraction records an interaction for a contact
func (r *contactRepository) AddInteraction(ctx context.Context, interaction *models.Interaction) error {
	if err := r.db.WithContext(ctx).Create(interaction).Error; err != nil {
		return fmt.Errorf("failed to add interaction: %w", err)
	}
	return nil
}

// ListRecentInteractions returns a contact's interactions, newest first
func (r *contactRepository) ListRecentInteractions(ctx context.Context, contactID uint, limit int) ([]models.Interaction, error) {
	var interactions []models.Interaction
	result := r.db.WithContext(ctx).
		Where("contact_id = ?", contactID).
		Order("occurred_at DESC").
		Limit(limit).
		Find(&interactions)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list interactions: %w", result.Error)
	}
	return interactions, nil
}
