package processor

//go:generate go run go.uber.org/mock/mockgen@latest -source=processor.go -destination=mocks_test.go -package=processor

import (
	"context"
	"errors"
	"fmt"

	"holanu-server/internal/events"
	"holanu-server/internal/observability"
	"holanu-server/internal/store"

	"github.com/google/uuid"
)

// CRMStore defines the database operations required by CRMProcessor
type CRMStore interface {
	CreateLead(ctx context.Context, params store.CreateLeadParams) (store.Lead, error)
	GetLeadByID(ctx context.Context, leadID uuid.UUID) (store.Lead, error)
	GetLatestLeadByPhone(ctx context.Context, phone string) (store.Lead, error)
	UpdateLeadScore(ctx context.Context, leadID uuid.UUID, score float64) (store.Lead, error)
	AssignLead(ctx context.Context, leadID, agentID uuid.UUID) (store.Lead, error)
	UpdateLeadStatus(ctx context.Context, leadID uuid.UUID, status string) (store.Lead, error)
	ListLeads(ctx context.Context, params store.ListLeadsParams) (store.ListLeadsResult, error)

	InsertLeadMessage(ctx context.Context, params store.InsertLeadMessageParams) (store.LeadMessage, error)
	ListLeadMessagesByLeadID(ctx context.Context, leadID uuid.UUID) ([]store.LeadMessage, error)
	UpdateLeadMessageDelivery(ctx context.Context, externalMessageID, status string) (store.LeadMessage, error)

	InsertLeadAssignment(ctx context.Context, leadID, agentID uuid.UUID, assignedBy string, reason *string) (store.LeadAssignment, error)
	ListLeadAssignmentsByLeadID(ctx context.Context, leadID uuid.UUID) ([]store.LeadAssignment, error)
	InsertLeadNote(ctx context.Context, leadID, agentID uuid.UUID, note string) (store.LeadNote, error)
	ListLeadNotesByLeadID(ctx context.Context, leadID uuid.UUID) ([]store.LeadNote, error)

	GetAgentByID(ctx context.Context, agentID uuid.UUID) (store.Agent, error)
	GetAgentLeadLoads(ctx context.Context) ([]store.AgentLeadLoad, error)

	GetWhatsAppTemplateByID(ctx context.Context, templateID uuid.UUID) (store.WhatsAppTemplate, error)
	ListWhatsAppTemplates(ctx context.Context) ([]store.WhatsAppTemplate, error)
	IncrementWhatsAppTemplateUsage(ctx context.Context, templateID uuid.UUID) error

	GetWhatsAppConversationByPhone(ctx context.Context, phone string) (store.WhatsAppConversation, error)
	CreateWhatsAppConversation(ctx context.Context, phone string, leadID *uuid.UUID) (store.WhatsAppConversation, error)
	UpdateWhatsAppConversationLead(ctx context.Context, conversationID, leadID uuid.UUID) (store.WhatsAppConversation, error)
	UpdateWhatsAppConversationStatus(ctx context.Context, conversationID uuid.UUID, status string) (store.WhatsAppConversation, error)
}

// WhatsAppSender delivers outbound WhatsApp messages
type WhatsAppSender interface {
	SendWhatsApp(ctx context.Context, to, body string) (string, error)
}

// EmailSender delivers notification emails
type EmailSender interface {
	SendEmail(ctx context.Context, from, to, subject, htmlContent string) (string, error)
}

var (
	ErrLeadNotFound     = errors.New("lead not found")
	ErrTemplateNotFound = errors.New("template not found")
	ErrInvalidSource    = errors.New("invalid lead source")
	ErrInvalidStatus    = errors.New("invalid lead status")
	ErrUnauthorized     = errors.New("unauthorized access to lead")
)

type CRMProcessor struct {
	store       CRMStore
	scorer      Scorer
	assigner    Assigner
	whatsapp    WhatsAppSender
	mailer      EmailSender
	publisher   *events.Publisher
	emailSender string
	logger      *observability.Logger
}

// New creates a CRMProcessor. Pass a nil scorer or assigner to use the
// documented defaults; pass a nil whatsapp or mailer client to disable the
// corresponding side effects.
func New(store CRMStore, scorer Scorer, assigner Assigner, whatsapp WhatsAppSender, mailer EmailSender,
	publisher *events.Publisher, emailSender string, logger *observability.Logger) CRMProcessor {
	if scorer == nil {
		scorer = DefaultScorer{}
	}
	if assigner == nil {
		assigner = &LeastLoadedAssigner{store: store}
	}
	return CRMProcessor{
		store:       store,
		scorer:      scorer,
		assigner:    assigner,
		whatsapp:    whatsapp,
		mailer:      mailer,
		publisher:   publisher,
		emailSender: emailSender,
		logger:      logger,
	}
}

// CreateLeadParams represents parameters for creating a lead
type CreateLeadParams struct {
	PropertyID *uuid.UUID
	AgentID    *uuid.UUID
	UserName   string
	UserPhone  string
	UserEmail  *string
	Source     string
	Message    string
	Priority   string
}

// CreateLead inserts a lead, scores it, and routes it to an agent. The score
// is written before assignment runs so an assignment strategy can use it.
func (p *CRMProcessor) CreateLead(ctx context.Context, params CreateLeadParams) (store.Lead, error) {
	if !isValidLeadSource(params.Source) {
		return store.Lead{}, ErrInvalidSource
	}
	if params.Priority == "" {
		params.Priority = store.LeadPriorityNormal
	}

	phone := NormalizePhone(params.UserPhone)
	ctx = observability.WithFields(ctx,
		observability.Field{Key: "lead_source", Value: params.Source},
	)

	lead, err := p.store.CreateLead(ctx, store.CreateLeadParams{
		PropertyID: params.PropertyID,
		AgentID:    params.AgentID,
		UserName:   params.UserName,
		UserPhone:  phone,
		UserEmail:  params.UserEmail,
		Source:     params.Source,
		Message:    params.Message,
		Priority:   params.Priority,
	})
	if err != nil {
		p.logger.Error(ctx, "failed to create lead", err)
		return store.Lead{}, err
	}

	ctx = observability.WithFields(ctx, observability.Field{Key: "lead_id", Value: lead.ID.String()})

	score := p.scorer.Score(lead)
	lead, err = p.store.UpdateLeadScore(ctx, lead.ID, score)
	if err != nil {
		p.logger.Error(ctx, "failed to write lead score", err)
		return store.Lead{}, err
	}

	if lead.AgentID == nil {
		lead, err = p.autoAssign(ctx, lead)
		if err != nil {
			return store.Lead{}, err
		}
	}

	p.publisher.PublishLeadCreated(ctx, lead.ID, derefUUID(lead.PropertyID), lead.AgentID, lead.Score)
	p.logger.Info(ctx, "lead created successfully")
	return lead, nil
}

// autoAssign routes a lead to an agent, records the audit row, and notifies
// the agent by email. A nil pick (no eligible agents) leaves the lead
// unassigned; the email is best effort.
func (p *CRMProcessor) autoAssign(ctx context.Context, lead store.Lead) (store.Lead, error) {
	agentID, err := p.assigner.Assign(ctx, lead)
	if err != nil {
		p.logger.Error(ctx, "failed to pick agent for lead", err)
		return store.Lead{}, err
	}
	if agentID == nil {
		p.logger.Warn(ctx, "no eligible agent for lead, leaving unassigned")
		return lead, nil
	}

	lead, err = p.store.AssignLead(ctx, lead.ID, *agentID)
	if err != nil {
		p.logger.Error(ctx, "failed to assign lead", err)
		return store.Lead{}, err
	}

	reason := "auto: least-loaded agent"
	if _, err := p.store.InsertLeadAssignment(ctx, lead.ID, *agentID, "system", &reason); err != nil {
		p.logger.Error(ctx, "failed to record lead assignment", err)
		return store.Lead{}, err
	}

	p.publisher.PublishLeadAssigned(ctx, lead.ID, *agentID, reason)
	p.notifyAgent(ctx, lead, *agentID)
	return lead, nil
}

func (p *CRMProcessor) notifyAgent(ctx context.Context, lead store.Lead, agentID uuid.UUID) {
	if p.mailer == nil {
		return
	}

	agent, err := p.store.GetAgentByID(ctx, agentID)
	if err != nil {
		p.logger.Error(ctx, "failed to load agent for lead notification", err)
		return
	}

	subject := fmt.Sprintf("New lead: %s", lead.UserName)
	html := fmt.Sprintf("<p>A new lead has been assigned to you.</p><p><strong>%s</strong> (%s)</p><p>%s</p>",
		lead.UserName, lead.UserPhone, lead.Message)

	if _, err := p.mailer.SendEmail(ctx, p.emailSender, agent.Email, subject, html); err != nil {
		p.logger.Error(ctx, "failed to send lead notification email", err)
	}
}

// GetLead retrieves a lead owned by the given agent
func (p *CRMProcessor) GetLead(ctx context.Context, agentID, leadID uuid.UUID) (store.Lead, error) {
	lead, err := p.store.GetLeadByID(ctx, leadID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Lead{}, ErrLeadNotFound
		}
		p.logger.Error(ctx, "failed to get lead", err)
		return store.Lead{}, err
	}
	if lead.AgentID == nil || *lead.AgentID != agentID {
		return store.Lead{}, ErrUnauthorized
	}
	return lead, nil
}

// GetLeadByPhone returns the most recent lead for a phone number, or
// ErrLeadNotFound
func (p *CRMProcessor) GetLeadByPhone(ctx context.Context, phone string) (store.Lead, error) {
	lead, err := p.store.GetLatestLeadByPhone(ctx, NormalizePhone(phone))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Lead{}, ErrLeadNotFound
		}
		return store.Lead{}, err
	}
	return lead, nil
}

// UpdateLeadStatus performs a caller-directed status write. Transitions are
// not blocked here; the calling layer decides which actions to offer.
func (p *CRMProcessor) UpdateLeadStatus(ctx context.Context, agentID, leadID uuid.UUID, status string) (store.Lead, error) {
	if !isValidLeadStatus(status) {
		return store.Lead{}, ErrInvalidStatus
	}
	if _, err := p.GetLead(ctx, agentID, leadID); err != nil {
		return store.Lead{}, err
	}

	lead, err := p.store.UpdateLeadStatus(ctx, leadID, status)
	if err != nil {
		p.logger.Error(ctx, "failed to update lead status", err)
		return store.Lead{}, err
	}

	p.publisher.PublishLeadStatusChanged(ctx, lead.ID, status)
	return lead, nil
}

// ListLeads lists an agent's leads, hottest first
func (p *CRMProcessor) ListLeads(ctx context.Context, agentID uuid.UUID, status *string, page, limit int) (store.ListLeadsResult, error) {
	result, err := p.store.ListLeads(ctx, store.ListLeadsParams{
		AgentID: agentID,
		Status:  status,
		Page:    page,
		Limit:   limit,
	})
	if err != nil {
		p.logger.Error(ctx, "failed to list leads", err)
		return store.ListLeadsResult{}, err
	}
	return result, nil
}

// AddNote appends a note to a lead's audit trail
func (p *CRMProcessor) AddNote(ctx context.Context, agentID, leadID uuid.UUID, note string) (store.LeadNote, error) {
	if _, err := p.GetLead(ctx, agentID, leadID); err != nil {
		return store.LeadNote{}, err
	}

	created, err := p.store.InsertLeadNote(ctx, leadID, agentID, note)
	if err != nil {
		p.logger.Error(ctx, "failed to insert lead note", err)
		return store.LeadNote{}, err
	}
	return created, nil
}

// GetLeadThread returns a lead's full message history in order
func (p *CRMProcessor) GetLeadThread(ctx context.Context, agentID, leadID uuid.UUID) ([]store.LeadMessage, error) {
	if _, err := p.GetLead(ctx, agentID, leadID); err != nil {
		return nil, err
	}
	return p.store.ListLeadMessagesByLeadID(ctx, leadID)
}

// GetAssignmentHistory returns a lead's routing audit trail, oldest first
func (p *CRMProcessor) GetAssignmentHistory(ctx context.Context, agentID, leadID uuid.UUID) ([]store.LeadAssignment, error) {
	if _, err := p.GetLead(ctx, agentID, leadID); err != nil {
		return nil, err
	}
	return p.store.ListLeadAssignmentsByLeadID(ctx, leadID)
}

func isValidLeadSource(source string) bool {
	switch source {
	case store.LeadSourceWhatsApp, store.LeadSourceContactForm, store.LeadSourceCall, store.LeadSourceWebsite:
		return true
	}
	return false
}

func isValidLeadStatus(status string) bool {
	switch status {
	case store.LeadStatusNew, store.LeadStatusContacted, store.LeadStatusQualified,
		store.LeadStatusNotInterested, store.LeadStatusConverted, store.LeadStatusLost:
		return true
	}
	return false
}

func derefUUID(id *uuid.UUID) uuid.UUID {
	if id == nil {
		return uuid.Nil
	}
	return *id
}
