package processor

import (
	"context"
	"errors"
	"strings"

	"holanu-server/internal/observability"
	"holanu-server/internal/store"

	"github.com/google/uuid"
)

// stopKeyword blocks a conversation when it appears anywhere in an inbound
// visitor message, any case.
const stopKeyword = "stop"

// AddMessageParams represents parameters for appending a message to a lead's
// thread
type AddMessageParams struct {
	LeadID            uuid.UUID
	FromRole          string
	FromID            *uuid.UUID
	Content           string
	Channel           string
	MessageType       string
	ExternalMessageID *string
	Metadata          store.JSONB
}

// AddMessage appends one message to a lead's conversation thread
func (p *CRMProcessor) AddMessage(ctx context.Context, params AddMessageParams) (store.LeadMessage, error) {
	messageType := params.MessageType
	if messageType == "" {
		messageType = store.MessageTypeText
	}

	message, err := p.store.InsertLeadMessage(ctx, store.InsertLeadMessageParams{
		LeadID:            params.LeadID,
		FromRole:          params.FromRole,
		FromID:            params.FromID,
		Content:           params.Content,
		Channel:           params.Channel,
		MessageType:       messageType,
		ExternalMessageID: params.ExternalMessageID,
		Status:            store.MessageStatusSent,
		Metadata:          params.Metadata,
	})
	if err != nil {
		p.logger.Error(ctx, "failed to add lead message", err)
		return store.LeadMessage{}, err
	}

	p.publisher.PublishLeadMessage(ctx, message.LeadID, message.ID, message.FromRole, message.Channel)
	return message, nil
}

// InboundMessage is one webhook payload from the messaging provider
type InboundMessage struct {
	From        string
	Body        string
	MessageID   string
	MessageType string
}

// ProcessInboundMessage threads an inbound WhatsApp message onto the
// visitor's lead. The same phone number always lands on its most recent
// lead; a first-time visitor gets a fresh lead created (and scored and
// assigned) before the message is appended. A message containing the stop
// keyword blocks the visitor's conversation after the message is stored.
func (p *CRMProcessor) ProcessInboundMessage(ctx context.Context, inbound InboundMessage) (store.LeadMessage, error) {
	phone := NormalizePhone(inbound.From)
	ctx = observability.WithFields(ctx,
		observability.Field{Key: "channel", Value: store.MessageChannelWhatsApp},
	)

	lead, err := p.store.GetLatestLeadByPhone(ctx, phone)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			p.logger.Error(ctx, "failed to look up lead by phone", err)
			return store.LeadMessage{}, err
		}

		lead, err = p.CreateLead(ctx, CreateLeadParams{
			UserName:  phone,
			UserPhone: phone,
			Source:    store.LeadSourceWhatsApp,
			Message:   inbound.Body,
		})
		if err != nil {
			return store.LeadMessage{}, err
		}
	}

	ctx = observability.WithFields(ctx, observability.Field{Key: "lead_id", Value: lead.ID.String()})

	var externalID *string
	if inbound.MessageID != "" {
		externalID = &inbound.MessageID
	}

	message, err := p.AddMessage(ctx, AddMessageParams{
		LeadID:            lead.ID,
		FromRole:          store.MessageRoleVisitor,
		Content:           inbound.Body,
		Channel:           store.MessageChannelWhatsApp,
		MessageType:       inbound.MessageType,
		ExternalMessageID: externalID,
	})
	if err != nil {
		return store.LeadMessage{}, err
	}

	conversation, err := p.getOrCreateConversation(ctx, phone, &lead.ID)
	if err != nil {
		return store.LeadMessage{}, err
	}

	if containsStopKeyword(inbound.Body) {
		if _, err := p.store.UpdateWhatsAppConversationStatus(ctx, conversation.ID, store.ConversationStatusBlocked); err != nil {
			p.logger.Error(ctx, "failed to block conversation on stop keyword", err)
			return store.LeadMessage{}, err
		}
		p.logger.Info(ctx, "conversation blocked by stop keyword")
	}

	return message, nil
}

// getOrCreateConversation finds the conversation for a phone number, keeping
// it pointed at the most recent lead, or creates an active one.
func (p *CRMProcessor) getOrCreateConversation(ctx context.Context, phone string, leadID *uuid.UUID) (store.WhatsAppConversation, error) {
	conversation, err := p.store.GetWhatsAppConversationByPhone(ctx, phone)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			p.logger.Error(ctx, "failed to look up conversation", err)
			return store.WhatsAppConversation{}, err
		}

		conversation, err = p.store.CreateWhatsAppConversation(ctx, phone, leadID)
		if err != nil {
			p.logger.Error(ctx, "failed to create conversation", err)
			return store.WhatsAppConversation{}, err
		}
		return conversation, nil
	}

	if leadID != nil && (conversation.LeadID == nil || *conversation.LeadID != *leadID) {
		conversation, err = p.store.UpdateWhatsAppConversationLead(ctx, conversation.ID, *leadID)
		if err != nil {
			p.logger.Error(ctx, "failed to re-point conversation at lead", err)
			return store.WhatsAppConversation{}, err
		}
	}

	return conversation, nil
}

// HandleDeliveryReceipt applies a provider status callback to the matching
// outbound message. Receipts for unknown message ids are ignored.
func (p *CRMProcessor) HandleDeliveryReceipt(ctx context.Context, externalMessageID, providerStatus string) error {
	status, ok := mapDeliveryStatus(providerStatus)
	if !ok {
		return nil
	}

	_, err := p.store.UpdateLeadMessageDelivery(ctx, externalMessageID, status)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		p.logger.Error(ctx, "failed to apply delivery receipt", err)
		return err
	}
	return nil
}

func mapDeliveryStatus(providerStatus string) (string, bool) {
	switch strings.ToLower(providerStatus) {
	case "sent", "queued":
		return store.MessageStatusSent, true
	case "delivered":
		return store.MessageStatusDelivered, true
	case "read":
		return store.MessageStatusRead, true
	case "failed", "undelivered":
		return store.MessageStatusFailed, true
	}
	return "", false
}

func containsStopKeyword(body string) bool {
	return strings.Contains(strings.ToLower(body), stopKeyword)
}
