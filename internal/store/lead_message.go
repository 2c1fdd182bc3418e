package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// LeadMessage represents one message in a lead's conversation thread.
// Immutable except for the delivery status fields.
type LeadMessage struct {
	ID                uuid.UUID  `db:"id"`
	LeadID            uuid.UUID  `db:"lead_id"`
	FromRole          string     `db:"from_role"`
	FromID            *uuid.UUID `db:"from_id"`
	Content           string     `db:"content"`
	Channel           string     `db:"channel"`
	MessageType       string     `db:"message_type"`
	ExternalMessageID *string    `db:"external_message_id"`
	Status            string     `db:"status"`
	DeliveredAt       *time.Time `db:"delivered_at"`
	ReadAt            *time.Time `db:"read_at"`
	Metadata          JSONB      `db:"metadata"`
	CreatedAt         time.Time  `db:"created_at"`
}

// InsertLeadMessageParams represents parameters for appending a message to a thread
type InsertLeadMessageParams struct {
	LeadID            uuid.UUID
	FromRole          string
	FromID            *uuid.UUID
	Content           string
	Channel           string
	MessageType       string
	ExternalMessageID *string
	Status            string
	Metadata          JSONB
}

const sqlInsertLeadMessage = `
INSERT INTO lead_messages (lead_id, from_role, from_id, content, channel, message_type, external_message_id, status, metadata)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id, lead_id, from_role, from_id, content, channel, message_type, external_message_id, status, delivered_at, read_at, metadata, created_at
`

// InsertLeadMessage appends a message to a lead's thread
func (s *Store) InsertLeadMessage(ctx context.Context, params InsertLeadMessageParams) (LeadMessage, error) {
	var message LeadMessage
	err := s.db.GetContext(ctx, &message, sqlInsertLeadMessage,
		params.LeadID,
		params.FromRole,
		params.FromID,
		params.Content,
		params.Channel,
		params.MessageType,
		params.ExternalMessageID,
		params.Status,
		params.Metadata)
	if err != nil {
		s.logger.Error(ctx, "failed to insert lead message", err)
		return LeadMessage{}, fmt.Errorf("failed to insert lead message: %w", err)
	}
	return message, nil
}

const sqlListLeadMessagesByLeadID = `
SELECT id, lead_id, from_role, from_id, content, channel, message_type, external_message_id, status, delivered_at, read_at, metadata, created_at
FROM lead_messages
WHERE lead_id = $1
ORDER BY created_at ASC
`

// ListLeadMessagesByLeadID retrieves a lead's full message thread in order
func (s *Store) ListLeadMessagesByLeadID(ctx context.Context, leadID uuid.UUID) ([]LeadMessage, error) {
	var messages []LeadMessage
	err := s.db.SelectContext(ctx, &messages, sqlListLeadMessagesByLeadID, leadID)
	if err != nil {
		s.logger.Error(ctx, "failed to list lead messages", err)
		return nil, fmt.Errorf("failed to list lead messages: %w", err)
	}
	return messages, nil
}

const sqlUpdateLeadMessageDelivery = `
UPDATE lead_messages
SET status = $2,
    delivered_at = CASE WHEN $2 = 'delivered' THEN CURRENT_TIMESTAMP ELSE delivered_at END,
    read_at = CASE WHEN $2 = 'read' THEN CURRENT_TIMESTAMP ELSE read_at END
WHERE external_message_id = $1
RETURNING id, lead_id, from_role, from_id, content, channel, message_type, external_message_id, status, delivered_at, read_at, metadata, created_at
`

// UpdateLeadMessageDelivery applies a delivery-receipt status to the message
// identified by the provider's message id
func (s *Store) UpdateLeadMessageDelivery(ctx context.Context, externalMessageID, status string) (LeadMessage, error) {
	var message LeadMessage
	err := s.db.GetContext(ctx, &message, sqlUpdateLeadMessageDelivery, externalMessageID, status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return LeadMessage{}, ErrNotFound
		}
		s.logger.Error(ctx, "failed to update lead message delivery", err)
		return LeadMessage{}, fmt.Errorf("failed to update lead message delivery: %w", err)
	}
	return message, nil
}
