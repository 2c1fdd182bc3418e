package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// WhatsAppTemplate is reusable message text with named {{variable}} placeholders
type WhatsAppTemplate struct {
	ID         uuid.UUID `db:"id"`
	Name       string    `db:"name"`
	Body       string    `db:"body"`
	UsageCount int       `db:"usage_count"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

const sqlGetWhatsAppTemplateByID = `
SELECT id, name, body, usage_count, created_at, updated_at
FROM whatsapp_templates
WHERE id = $1
`

// GetWhatsAppTemplateByID retrieves a template by ID
func (s *Store) GetWhatsAppTemplateByID(ctx context.Context, templateID uuid.UUID) (WhatsAppTemplate, error) {
	var template WhatsAppTemplate
	err := s.db.GetContext(ctx, &template, sqlGetWhatsAppTemplateByID, templateID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return WhatsAppTemplate{}, ErrNotFound
		}
		s.logger.Error(ctx, "failed to get whatsapp template by id", err)
		return WhatsAppTemplate{}, fmt.Errorf("failed to get whatsapp template by id: %w", err)
	}
	return template, nil
}

const sqlListWhatsAppTemplates = `
SELECT id, name, body, usage_count, created_at, updated_at
FROM whatsapp_templates
ORDER BY name ASC
`

// ListWhatsAppTemplates retrieves all templates
func (s *Store) ListWhatsAppTemplates(ctx context.Context) ([]WhatsAppTemplate, error) {
	var templates []WhatsAppTemplate
	err := s.db.SelectContext(ctx, &templates, sqlListWhatsAppTemplates)
	if err != nil {
		s.logger.Error(ctx, "failed to list whatsapp templates", err)
		return nil, fmt.Errorf("failed to list whatsapp templates: %w", err)
	}
	return templates, nil
}

const sqlIncrementWhatsAppTemplateUsage = `
UPDATE whatsapp_templates
SET usage_count = usage_count + 1, updated_at = CURRENT_TIMESTAMP
WHERE id = $1
`

// IncrementWhatsAppTemplateUsage bumps a template's usage counter
func (s *Store) IncrementWhatsAppTemplateUsage(ctx context.Context, templateID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, sqlIncrementWhatsAppTemplateUsage, templateID)
	if err != nil {
		s.logger.Error(ctx, "failed to increment whatsapp template usage", err)
		return fmt.Errorf("failed to increment whatsapp template usage: %w", err)
	}
	return nil
}

// WhatsAppConversation is one row per distinct phone number, pointing at the
// most recent lead for that number
type WhatsAppConversation struct {
	ID        uuid.UUID  `db:"id"`
	Phone     string     `db:"phone"`
	LeadID    *uuid.UUID `db:"lead_id"`
	Status    string     `db:"status"`
	CreatedAt time.Time  `db:"created_at"`
	UpdatedAt time.Time  `db:"updated_at"`
}

const sqlGetWhatsAppConversationByPhone = `
SELECT id, phone, lead_id, status, created_at, updated_at
FROM whatsapp_conversations
WHERE phone = $1
`

// GetWhatsAppConversationByPhone retrieves the conversation for a phone number
func (s *Store) GetWhatsAppConversationByPhone(ctx context.Context, phone string) (WhatsAppConversation, error) {
	var conversation WhatsAppConversation
	err := s.db.GetContext(ctx, &conversation, sqlGetWhatsAppConversationByPhone, phone)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return WhatsAppConversation{}, ErrNotFound
		}
		s.logger.Error(ctx, "failed to get whatsapp conversation by phone", err)
		return WhatsAppConversation{}, fmt.Errorf("failed to get whatsapp conversation by phone: %w", err)
	}
	return conversation, nil
}

const sqlCreateWhatsAppConversation = `
INSERT INTO whatsapp_conversations (phone, lead_id, status)
VALUES ($1, $2, 'active')
RETURNING id, phone, lead_id, status, created_at, updated_at
`

// CreateWhatsAppConversation opens a fresh active conversation for a phone number
func (s *Store) CreateWhatsAppConversation(ctx context.Context, phone string, leadID *uuid.UUID) (WhatsAppConversation, error) {
	var conversation WhatsAppConversation
	err := s.db.GetContext(ctx, &conversation, sqlCreateWhatsAppConversation, phone, leadID)
	if err != nil {
		s.logger.Error(ctx, "failed to create whatsapp conversation", err)
		return WhatsAppConversation{}, fmt.Errorf("failed to create whatsapp conversation: %w", err)
	}
	return conversation, nil
}

const sqlUpdateWhatsAppConversationLead = `
UPDATE whatsapp_conversations
SET lead_id = $2, updated_at = CURRENT_TIMESTAMP
WHERE id = $1
RETURNING id, phone, lead_id, status, created_at, updated_at
`

// UpdateWhatsAppConversationLead re-points a conversation at a newer lead thread
func (s *Store) UpdateWhatsAppConversationLead(ctx context.Context, conversationID, leadID uuid.UUID) (WhatsAppConversation, error) {
	var conversation WhatsAppConversation
	err := s.db.GetContext(ctx, &conversation, sqlUpdateWhatsAppConversationLead, conversationID, leadID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return WhatsAppConversation{}, ErrNotFound
		}
		s.logger.Error(ctx, "failed to update whatsapp conversation lead", err)
		return WhatsAppConversation{}, fmt.Errorf("failed to update whatsapp conversation lead: %w", err)
	}
	return conversation, nil
}

const sqlUpdateWhatsAppConversationStatus = `
UPDATE whatsapp_conversations
SET status = $2, updated_at = CURRENT_TIMESTAMP
WHERE id = $1
RETURNING id, phone, lead_id, status, created_at, updated_at
`

// UpdateWhatsAppConversationStatus updates a conversation's status
func (s *Store) UpdateWhatsAppConversationStatus(ctx context.Context, conversationID uuid.UUID, status string) (WhatsAppConversation, error) {
	var conversation WhatsAppConversation
	err := s.db.GetContext(ctx, &conversation, sqlUpdateWhatsAppConversationStatus, conversationID, status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return WhatsAppConversation{}, ErrNotFound
		}
		s.logger.Error(ctx, "failed to update whatsapp conversation status", err)
		return WhatsAppConversation{}, fmt.Errorf("failed to update whatsapp conversation status: %w", err)
	}
	return conversation, nil
}
