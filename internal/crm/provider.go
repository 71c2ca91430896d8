// Package crm exposes CRM contact data to the intake pipeline.
package crm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/welldanyogia/webrana-crm-intake/internal/models"
	"github.com/welldanyogia/webrana-crm-intake/internal/repository"
)

// Provider answers contact and interaction lookups by sender address.
type Provider struct {
	contacts repository.ContactRepository
}

// NewProvider creates a Provider
func NewProvider(contacts repository.ContactRepository) *Provider {
	return &Provider{contacts: contacts}
}

// LookupContactByEmail returns the contact as a map, or nil when unknown.
func (p *Provider) LookupContactByEmail(ctx context.Context, email string) (map[string]any, error) {
	contact, err := p.contacts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("lookup contact: %w", err)
	}
	return contactMap(contact), nil
}

// GetRecentInteractions returns up to limit interactions, newest first.
// An unknown sender has no interactions.
func (p *Provider) GetRecentInteractions(ctx context.Context, email string, limit int) ([]map[string]any, error) {
	contact, err := p.contacts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return []map[string]any{}, nil
		}
		return nil, fmt.Errorf("lookup contact: %w", err)
	}

	interactions, err := p.contacts.ListRecentInteractions(ctx, contact.ID, limit)
	if err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0, len(interactions))
	for i := range interactions {
		out = append(out, interactionMap(&interactions[i]))
	}
	return out, nil
}

func contactMap(c *models.Contact) map[string]any {
	return map[string]any{
		"id":         c.ID,
		"email":      c.Email,
		"name":       c.FullName(),
		"first_name": c.FirstName,
		"last_name":  c.LastName,
		"company":    c.Company,
		"phone":      c.Phone,
	}
}

func interactionMap(i *models.Interaction) map[string]any {
	return map[string]any{
		"id":          i.ID,
		"type":        i.Type,
		"title":       i.Title,
		"status":      i.Status,
		"description": i.Description,
		"location":    i.Location,
		"occurred_at": i.OccurredAt.UTC().Format(time.RFC3339),
	}
}
