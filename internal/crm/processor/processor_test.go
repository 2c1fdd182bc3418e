package processor

import (
	"context"
	"testing"
	"time"

	"holanu-server/internal/events"
	"holanu-server/internal/observability"
	"holanu-server/internal/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCRMStore is an in-memory CRMStore for exercising the routing rules
// without a database.
type fakeCRMStore struct {
	leads         map[uuid.UUID]store.Lead
	leadOrder     []uuid.UUID
	messages      []store.LeadMessage
	assignments   []store.LeadAssignment
	notes         []store.LeadNote
	agents        map[uuid.UUID]store.Agent
	loads         []store.AgentLeadLoad
	templates     map[uuid.UUID]store.WhatsAppTemplate
	conversations map[string]store.WhatsAppConversation
}

func newFakeCRMStore() *fakeCRMStore {
	return &fakeCRMStore{
		leads:         make(map[uuid.UUID]store.Lead),
		agents:        make(map[uuid.UUID]store.Agent),
		templates:     make(map[uuid.UUID]store.WhatsAppTemplate),
		conversations: make(map[string]store.WhatsAppConversation),
	}
}

func (f *fakeCRMStore) CreateLead(_ context.Context, params store.CreateLeadParams) (store.Lead, error) {
	lead := store.Lead{
		ID:         uuid.New(),
		PropertyID: params.PropertyID,
		AgentID:    params.AgentID,
		UserName:   params.UserName,
		UserPhone:  params.UserPhone,
		UserEmail:  params.UserEmail,
		Source:     params.Source,
		Message:    params.Message,
		Status:     store.LeadStatusNew,
		Priority:   params.Priority,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	f.leads[lead.ID] = lead
	f.leadOrder = append(f.leadOrder, lead.ID)
	return lead, nil
}

func (f *fakeCRMStore) GetLeadByID(_ context.Context, leadID uuid.UUID) (store.Lead, error) {
	lead, ok := f.leads[leadID]
	if !ok {
		return store.Lead{}, store.ErrNotFound
	}
	return lead, nil
}

func (f *fakeCRMStore) GetLatestLeadByPhone(_ context.Context, phone string) (store.Lead, error) {
	for i := len(f.leadOrder) - 1; i >= 0; i-- {
		lead := f.leads[f.leadOrder[i]]
		if lead.UserPhone == phone {
			return lead, nil
		}
	}
	return store.Lead{}, store.ErrNotFound
}

func (f *fakeCRMStore) UpdateLeadScore(_ context.Context, leadID uuid.UUID, score float64) (store.Lead, error) {
	lead, ok := f.leads[leadID]
	if !ok {
		return store.Lead{}, store.ErrNotFound
	}
	lead.Score = score
	f.leads[leadID] = lead
	return lead, nil
}

func (f *fakeCRMStore) AssignLead(_ context.Context, leadID, agentID uuid.UUID) (store.Lead, error) {
	lead, ok := f.leads[leadID]
	if !ok {
		return store.Lead{}, store.ErrNotFound
	}
	lead.AgentID = &agentID
	f.leads[leadID] = lead
	return lead, nil
}

func (f *fakeCRMStore) UpdateLeadStatus(_ context.Context, leadID uuid.UUID, status string) (store.Lead, error) {
	lead, ok := f.leads[leadID]
	if !ok {
		return store.Lead{}, store.ErrNotFound
	}
	lead.Status = status
	f.leads[leadID] = lead
	return lead, nil
}

func (f *fakeCRMStore) ListLeads(_ context.Context, params store.ListLeadsParams) (store.ListLeadsResult, error) {
	var leads []store.Lead
	for _, id := range f.leadOrder {
		lead := f.leads[id]
		if lead.AgentID != nil && *lead.AgentID == params.AgentID {
			leads = append(leads, lead)
		}
	}
	return store.ListLeadsResult{Leads: leads, TotalCount: len(leads), Page: params.Page, Limit: params.Limit, TotalPages: 1}, nil
}

func (f *fakeCRMStore) InsertLeadMessage(_ context.Context, params store.InsertLeadMessageParams) (store.LeadMessage, error) {
	message := store.LeadMessage{
		ID:                uuid.New(),
		LeadID:            params.LeadID,
		FromRole:          params.FromRole,
		FromID:            params.FromID,
		Content:           params.Content,
		Channel:           params.Channel,
		MessageType:       params.MessageType,
		ExternalMessageID: params.ExternalMessageID,
		Status:            params.Status,
		Metadata:          params.Metadata,
		CreatedAt:         time.Now(),
	}
	f.messages = append(f.messages, message)
	return message, nil
}

func (f *fakeCRMStore) ListLeadMessagesByLeadID(_ context.Context, leadID uuid.UUID) ([]store.LeadMessage, error) {
	var messages []store.LeadMessage
	for _, message := range f.messages {
		if message.LeadID == leadID {
			messages = append(messages, message)
		}
	}
	return messages, nil
}

func (f *fakeCRMStore) UpdateLeadMessageDelivery(_ context.Context, externalMessageID, status string) (store.LeadMessage, error) {
	for i, message := range f.messages {
		if message.ExternalMessageID != nil && *message.ExternalMessageID == externalMessageID {
			f.messages[i].Status = status
			return f.messages[i], nil
		}
	}
	return store.LeadMessage{}, store.ErrNotFound
}

func (f *fakeCRMStore) InsertLeadAssignment(_ context.Context, leadID, agentID uuid.UUID, assignedBy string, reason *string) (store.LeadAssignment, error) {
	assignment := store.LeadAssignment{
		ID:         uuid.New(),
		LeadID:     leadID,
		AgentID:    agentID,
		AssignedBy: assignedBy,
		Reason:     reason,
		CreatedAt:  time.Now(),
	}
	f.assignments = append(f.assignments, assignment)
	return assignment, nil
}

func (f *fakeCRMStore) ListLeadAssignmentsByLeadID(_ context.Context, leadID uuid.UUID) ([]store.LeadAssignment, error) {
	var out []store.LeadAssignment
	for _, assignment := range f.assignments {
		if assignment.LeadID == leadID {
			out = append(out, assignment)
		}
	}
	return out, nil
}

func (f *fakeCRMStore) InsertLeadNote(_ context.Context, leadID, agentID uuid.UUID, note string) (store.LeadNote, error) {
	n := store.LeadNote{ID: uuid.New(), LeadID: leadID, AgentID: agentID, Note: note, CreatedAt: time.Now()}
	f.notes = append(f.notes, n)
	return n, nil
}

func (f *fakeCRMStore) ListLeadNotesByLeadID(_ context.Context, leadID uuid.UUID) ([]store.LeadNote, error) {
	var notes []store.LeadNote
	for _, n := range f.notes {
		if n.LeadID == leadID {
			notes = append(notes, n)
		}
	}
	return notes, nil
}

func (f *fakeCRMStore) GetAgentByID(_ context.Context, agentID uuid.UUID) (store.Agent, error) {
	agent, ok := f.agents[agentID]
	if !ok {
		return store.Agent{}, store.ErrNotFound
	}
	return agent, nil
}

func (f *fakeCRMStore) GetAgentLeadLoads(_ context.Context) ([]store.AgentLeadLoad, error) {
	return f.loads, nil
}

func (f *fakeCRMStore) GetWhatsAppTemplateByID(_ context.Context, templateID uuid.UUID) (store.WhatsAppTemplate, error) {
	template, ok := f.templates[templateID]
	if !ok {
		return store.WhatsAppTemplate{}, store.ErrNotFound
	}
	return template, nil
}

func (f *fakeCRMStore) ListWhatsAppTemplates(_ context.Context) ([]store.WhatsAppTemplate, error) {
	var templates []store.WhatsAppTemplate
	for _, template := range f.templates {
		templates = append(templates, template)
	}
	return templates, nil
}

func (f *fakeCRMStore) IncrementWhatsAppTemplateUsage(_ context.Context, templateID uuid.UUID) error {
	template, ok := f.templates[templateID]
	if !ok {
		return store.ErrNotFound
	}
	template.UsageCount++
	f.templates[templateID] = template
	return nil
}

func (f *fakeCRMStore) GetWhatsAppConversationByPhone(_ context.Context, phone string) (store.WhatsAppConversation, error) {
	conversation, ok := f.conversations[phone]
	if !ok {
		return store.WhatsAppConversation{}, store.ErrNotFound
	}
	return conversation, nil
}

func (f *fakeCRMStore) CreateWhatsAppConversation(_ context.Context, phone string, leadID *uuid.UUID) (store.WhatsAppConversation, error) {
	conversation := store.WhatsAppConversation{
		ID:        uuid.New(),
		Phone:     phone,
		LeadID:    leadID,
		Status:    store.ConversationStatusActive,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	f.conversations[phone] = conversation
	return conversation, nil
}

func (f *fakeCRMStore) UpdateWhatsAppConversationLead(_ context.Context, conversationID, leadID uuid.UUID) (store.WhatsAppConversation, error) {
	for phone, conversation := range f.conversations {
		if conversation.ID == conversationID {
			conversation.LeadID = &leadID
			f.conversations[phone] = conversation
			return conversation, nil
		}
	}
	return store.WhatsAppConversation{}, store.ErrNotFound
}

func (f *fakeCRMStore) UpdateWhatsAppConversationStatus(_ context.Context, conversationID uuid.UUID, status string) (store.WhatsAppConversation, error) {
	for phone, conversation := range f.conversations {
		if conversation.ID == conversationID {
			conversation.Status = status
			f.conversations[phone] = conversation
			return conversation, nil
		}
	}
	return store.WhatsAppConversation{}, store.ErrNotFound
}

// fakeWhatsAppSender records sends and returns deterministic message sids
type fakeWhatsAppSender struct {
	sent []struct{ To, Body string }
}

func (f *fakeWhatsAppSender) SendWhatsApp(_ context.Context, to, body string) (string, error) {
	f.sent = append(f.sent, struct{ To, Body string }{to, body})
	return "SM" + uuid.NewString()[:8], nil
}

func newTestCRMProcessor(t *testing.T) (*CRMProcessor, *fakeCRMStore, *fakeWhatsAppSender) {
	t.Helper()
	logger := observability.NewLogger()
	fake := newFakeCRMStore()
	sender := &fakeWhatsAppSender{}
	publisher := events.NewPublisher(logger)
	p := New(fake, nil, nil, sender, nil, publisher, "noreply@holanu.example", logger)
	return &p, fake, sender
}

func addAgent(f *fakeCRMStore, openLeads int) uuid.UUID {
	agent := store.Agent{ID: uuid.New(), Name: "Agent", Email: "agent@holanu.example", MembershipTier: store.MembershipPremium, Active: true}
	f.agents[agent.ID] = agent
	f.loads = append(f.loads, store.AgentLeadLoad{AgentID: agent.ID, OpenLeads: openLeads})
	return agent.ID
}

func TestCreateLeadScoresAndAssigns(t *testing.T) {
	ctx := context.Background()
	p, fake, _ := newTestCRMProcessor(t)

	busy := addAgent(fake, 7)
	idle := addAgent(fake, 2)

	email := "buyer@example.com"
	propertyID := uuid.New()
	lead, err := p.CreateLead(ctx, CreateLeadParams{
		PropertyID: &propertyID,
		UserName:   "Budi",
		UserPhone:  "0812-3456-7890",
		UserEmail:  &email,
		Source:     store.LeadSourceWhatsApp,
		Message:    "Is the house on Jalan Sudirman still available? I would like to view it this weekend.",
	})
	require.NoError(t, err)

	assert.Greater(t, lead.Score, 0.0)
	require.NotNil(t, lead.AgentID)
	assert.Equal(t, idle, *lead.AgentID)
	assert.NotEqual(t, busy, *lead.AgentID)

	require.Len(t, fake.assignments, 1)
	assert.Equal(t, "system", fake.assignments[0].AssignedBy)

	// Phone was normalized to E.164 on the way in.
	assert.Equal(t, "+6281234567890", lead.UserPhone)
}

func TestCreateLeadWithoutEligibleAgents(t *testing.T) {
	ctx := context.Background()
	p, fake, _ := newTestCRMProcessor(t)

	lead, err := p.CreateLead(ctx, CreateLeadParams{
		UserName:  "Sari",
		UserPhone: "+628111222333",
		Source:    store.LeadSourceContactForm,
		Message:   "hello",
	})
	require.NoError(t, err)
	assert.Nil(t, lead.AgentID)
	assert.Empty(t, fake.assignments)
}

func TestCreateLeadInvalidSource(t *testing.T) {
	p, _, _ := newTestCRMProcessor(t)
	_, err := p.CreateLead(context.Background(), CreateLeadParams{
		UserName:  "X",
		UserPhone: "+628111222333",
		Source:    "carrier_pigeon",
	})
	assert.ErrorIs(t, err, ErrInvalidSource)
}

func TestProcessInboundMessageThreadsByPhone(t *testing.T) {
	ctx := context.Background()
	p, fake, _ := newTestCRMProcessor(t)
	addAgent(fake, 0)

	first, err := p.ProcessInboundMessage(ctx, InboundMessage{
		From:      "081234567890",
		Body:      "Hi, is this still for sale?",
		MessageID: "wamid.1",
	})
	require.NoError(t, err)

	// Same visitor, different formatting of the same number.
	second, err := p.ProcessInboundMessage(ctx, InboundMessage{
		From:      "+62 812-3456-7890",
		Body:      "Could you send more photos?",
		MessageID: "wamid.2",
	})
	require.NoError(t, err)

	assert.Len(t, fake.leads, 1)
	assert.Len(t, fake.messages, 2)
	assert.Equal(t, first.LeadID, second.LeadID)

	conversation, err := fake.GetWhatsAppConversationByPhone(ctx, "+6281234567890")
	require.NoError(t, err)
	assert.Equal(t, store.ConversationStatusActive, conversation.Status)
	require.NotNil(t, conversation.LeadID)
	assert.Equal(t, first.LeadID, *conversation.LeadID)
}

func TestProcessInboundMessageStopKeyword(t *testing.T) {
	ctx := context.Background()
	p, fake, _ := newTestCRMProcessor(t)
	addAgent(fake, 0)

	_, err := p.ProcessInboundMessage(ctx, InboundMessage{
		From: "+628555666777",
		Body: "interested in the villa",
	})
	require.NoError(t, err)

	_, err = p.ProcessInboundMessage(ctx, InboundMessage{
		From: "+628555666777",
		Body: "Please STOP messaging me",
	})
	require.NoError(t, err)

	conversation, err := fake.GetWhatsAppConversationByPhone(ctx, "+628555666777")
	require.NoError(t, err)
	assert.Equal(t, store.ConversationStatusBlocked, conversation.Status)

	// The opt-out message itself is still stored on the thread.
	assert.Len(t, fake.messages, 2)
}

func TestContainsStopKeywordIsCaseInsensitive(t *testing.T) {
	assert.True(t, containsStopKeyword("stop"))
	assert.True(t, containsStopKeyword("Please Stop now"))
	assert.True(t, containsStopKeyword("STOP"))
	assert.False(t, containsStopKeyword("shop hours?"))
}

func TestRenderTemplate(t *testing.T) {
	body := "Hello {{name}}, the viewing for {{property}} is at {{time}}."
	rendered := RenderTemplate(body, map[string]string{
		"name":     "Budi",
		"property": "Villa Kemang",
		"time":     "15:00",
	})
	assert.Equal(t, "Hello Budi, the viewing for Villa Kemang is at 15:00.", rendered)

	// Unknown placeholders are left in place, not erased.
	partial := RenderTemplate("Hi {{name}}, ref {{code}}", map[string]string{"name": "Sari"})
	assert.Equal(t, "Hi Sari, ref {{code}}", partial)
}

func TestSendWhatsAppMessageWithTemplate(t *testing.T) {
	ctx := context.Background()
	p, fake, sender := newTestCRMProcessor(t)
	agentID := addAgent(fake, 0)

	lead, err := p.CreateLead(ctx, CreateLeadParams{
		UserName:  "Budi",
		UserPhone: "+628123456789",
		Source:    store.LeadSourceWhatsApp,
		Message:   "hi",
	})
	require.NoError(t, err)
	require.NotNil(t, lead.AgentID)
	require.Equal(t, agentID, *lead.AgentID)

	template := store.WhatsAppTemplate{ID: uuid.New(), Name: "greeting", Body: "Hello {{name}}, thanks for your interest!"}
	fake.templates[template.ID] = template

	message, err := p.SendWhatsAppMessage(ctx, agentID, SendWhatsAppParams{
		LeadID:     lead.ID,
		TemplateID: &template.ID,
		Variables:  map[string]string{"name": "Budi"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Hello Budi, thanks for your interest!", message.Content)
	assert.Equal(t, store.MessageTypeTemplate, message.MessageType)
	assert.Equal(t, store.MessageRoleAgent, message.FromRole)
	require.NotNil(t, message.ExternalMessageID)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "+628123456789", sender.sent[0].To)

	assert.Equal(t, 1, fake.templates[template.ID].UsageCount)
}

func TestHandleDeliveryReceipt(t *testing.T) {
	ctx := context.Background()
	p, fake, _ := newTestCRMProcessor(t)
	agentID := addAgent(fake, 0)

	lead, err := p.CreateLead(ctx, CreateLeadParams{
		UserName:  "Budi",
		UserPhone: "+628123456789",
		Source:    store.LeadSourceWhatsApp,
		Message:   "hi",
	})
	require.NoError(t, err)

	message, err := p.SendWhatsAppMessage(ctx, agentID, SendWhatsAppParams{LeadID: lead.ID, Body: "On my way"})
	require.NoError(t, err)
	require.NotNil(t, message.ExternalMessageID)

	require.NoError(t, p.HandleDeliveryReceipt(ctx, *message.ExternalMessageID, "delivered"))
	thread, err := fake.ListLeadMessagesByLeadID(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, store.MessageStatusDelivered, thread[0].Status)

	// Unknown message ids and unknown statuses are both ignored.
	assert.NoError(t, p.HandleDeliveryReceipt(ctx, "SMmissing", "delivered"))
	assert.NoError(t, p.HandleDeliveryReceipt(ctx, *message.ExternalMessageID, "teleported"))
}

func TestDefaultScorerOrdering(t *testing.T) {
	scorer := DefaultScorer{}
	email := "a@b.c"
	propertyID := uuid.New()

	hot := scorer.Score(store.Lead{
		Source:     store.LeadSourceWhatsApp,
		Message:    "I want to buy this house as soon as possible, please call me back today to arrange a viewing.",
		UserEmail:  &email,
		PropertyID: &propertyID,
	})
	cold := scorer.Score(store.Lead{Source: store.LeadSourceWebsite})

	assert.Greater(t, hot, cold)
	assert.LessOrEqual(t, hot, float64(maxLeadScore))
	assert.Equal(t, 20.0, cold)
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "+6281234567890", NormalizePhone("081234567890"))
	assert.Equal(t, "+6281234567890", NormalizePhone("+62 812-3456-7890"))
	assert.Equal(t, "+6281234567890", NormalizePhone("  +6281234567890 "))
	// Unparseable input passes through trimmed.
	assert.Equal(t, "not-a-number", NormalizePhone(" not-a-number "))
}

func TestUpdateLeadStatus(t *testing.T) {
	ctx := context.Background()
	p, fake, _ := newTestCRMProcessor(t)
	agentID := addAgent(fake, 0)

	lead, err := p.CreateLead(ctx, CreateLeadParams{
		UserName:  "Budi",
		UserPhone: "+628123456789",
		Source:    store.LeadSourceCall,
		Message:   "hi",
	})
	require.NoError(t, err)

	updated, err := p.UpdateLeadStatus(ctx, agentID, lead.ID, store.LeadStatusContacted)
	require.NoError(t, err)
	assert.Equal(t, store.LeadStatusContacted, updated.Status)

	_, err = p.UpdateLeadStatus(ctx, agentID, lead.ID, "archived")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = p.UpdateLeadStatus(ctx, uuid.New(), lead.ID, store.LeadStatusQualified)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestGetAssignmentHistory(t *testing.T) {
	ctx := context.Background()
	p, fake, _ := newTestCRMProcessor(t)
	agentID := addAgent(fake, 0)

	lead, err := p.CreateLead(ctx, CreateLeadParams{
		UserName:  "Budi",
		UserPhone: "+628123456789",
		Source:    store.LeadSourceWebsite,
		Message:   "interested in the listing",
	})
	require.NoError(t, err)

	assignments, err := p.GetAssignmentHistory(ctx, agentID, lead.ID)
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	assert.Equal(t, lead.ID, assignments[0].LeadID)
	assert.Equal(t, agentID, assignments[0].AgentID)
	assert.Equal(t, "system", assignments[0].AssignedBy)

	_, err = p.GetAssignmentHistory(ctx, uuid.New(), lead.ID)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = p.GetAssignmentHistory(ctx, agentID, uuid.New())
	assert.ErrorIs(t, err, ErrLeadNotFound)
}
