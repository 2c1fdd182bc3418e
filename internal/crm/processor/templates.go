package processor

import (
	"context"
	"errors"
	"strings"

	"holanu-server/internal/observability"
	"holanu-server/internal/store"

	"github.com/google/uuid"
)

// RenderTemplate substitutes {{name}} placeholders with the supplied
// variables. Substitution is literal string replacement with no escaping;
// unknown placeholders are left in place.
func RenderTemplate(body string, variables map[string]string) string {
	rendered := body
	for name, value := range variables {
		rendered = strings.ReplaceAll(rendered, "{{"+name+"}}", value)
	}
	return rendered
}

// ListTemplates returns all reusable WhatsApp templates
func (p *CRMProcessor) ListTemplates(ctx context.Context) ([]store.WhatsAppTemplate, error) {
	templates, err := p.store.ListWhatsAppTemplates(ctx)
	if err != nil {
		p.logger.Error(ctx, "failed to list templates", err)
		return nil, err
	}
	return templates, nil
}

// SendWhatsAppParams represents parameters for an outbound WhatsApp send
type SendWhatsAppParams struct {
	LeadID     uuid.UUID
	Body       string
	TemplateID *uuid.UUID
	Variables  map[string]string
}

// SendWhatsAppMessage sends a message to a lead's phone number, optionally
// rendered from a template, and records it on the lead's thread with the
// provider's message id for delivery-receipt correlation.
func (p *CRMProcessor) SendWhatsAppMessage(ctx context.Context, agentID uuid.UUID, params SendWhatsAppParams) (store.LeadMessage, error) {
	lead, err := p.GetLead(ctx, agentID, params.LeadID)
	if err != nil {
		return store.LeadMessage{}, err
	}

	ctx = observability.WithFields(ctx, observability.Field{Key: "lead_id", Value: lead.ID.String()})

	body := params.Body
	messageType := store.MessageTypeText
	if params.TemplateID != nil {
		template, err := p.store.GetWhatsAppTemplateByID(ctx, *params.TemplateID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return store.LeadMessage{}, ErrTemplateNotFound
			}
			p.logger.Error(ctx, "failed to load template", err)
			return store.LeadMessage{}, err
		}

		body = RenderTemplate(template.Body, params.Variables)
		messageType = store.MessageTypeTemplate

		if err := p.store.IncrementWhatsAppTemplateUsage(ctx, template.ID); err != nil {
			p.logger.Error(ctx, "failed to increment template usage", err)
		}
	}

	var externalID *string
	if p.whatsapp != nil {
		sid, err := p.whatsapp.SendWhatsApp(ctx, lead.UserPhone, body)
		if err != nil {
			p.logger.Error(ctx, "failed to send whatsapp message", err)
			return store.LeadMessage{}, err
		}
		if sid != "" {
			externalID = &sid
		}
	}

	message, err := p.AddMessage(ctx, AddMessageParams{
		LeadID:            lead.ID,
		FromRole:          store.MessageRoleAgent,
		FromID:            &agentID,
		Content:           body,
		Channel:           store.MessageChannelWhatsApp,
		MessageType:       messageType,
		ExternalMessageID: externalID,
	})
	if err != nil {
		return store.LeadMessage{}, err
	}

	return message, nil
}
