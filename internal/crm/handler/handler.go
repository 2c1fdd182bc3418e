package handler

import (
	"errors"
	"fmt"
	"net/http"

	"holanu-server/internal/apierrors"
	"holanu-server/internal/auth"
	"holanu-server/internal/crm/processor"
	"holanu-server/internal/observability"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	processor *processor.CRMProcessor
	logger    *observability.Logger
}

func New(processor *processor.CRMProcessor, logger *observability.Logger) Handler {
	return Handler{
		processor: processor,
		logger:    logger,
	}
}

// CreateLeadRequest represents the HTTP request for creating a lead
type CreateLeadRequest struct {
	PropertyID *string `json:"property_id,omitempty"`
	AgentID    *string `json:"agent_id,omitempty"`
	UserName   string  `json:"user_name" binding:"required,min=1,max=255"`
	UserPhone  string  `json:"user_phone" binding:"required,min=5,max=32"`
	UserEmail  *string `json:"user_email,omitempty" binding:"omitempty,email"`
	Source     string  `json:"source" binding:"required,oneof=whatsapp contact_form call website"`
	Message    string  `json:"message"`
	Priority   string  `json:"priority" binding:"omitempty,oneof=low normal high"`
}

// UpdateLeadStatusRequest represents the HTTP request for moving a lead
// through the pipeline
type UpdateLeadStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// AddNoteRequest represents the HTTP request for attaching a note to a lead
type AddNoteRequest struct {
	Note string `json:"note" binding:"required,min=1,max=5000"`
}

// SendWhatsAppRequest represents the HTTP request for sending a WhatsApp
// message on a lead thread. Either a body or a template reference is required.
type SendWhatsAppRequest struct {
	Body       string            `json:"body"`
	TemplateID *string           `json:"template_id,omitempty"`
	Variables  map[string]string `json:"variables,omitempty"`
}

// HandleCreateLead creates a lead, scores it, and routes it to an agent
func (h *Handler) HandleCreateLead(c *gin.Context) {
	ctx := c.Request.Context()

	var req CreateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.ValidationError(c, err)
		return
	}

	params := processor.CreateLeadParams{
		UserName:  req.UserName,
		UserPhone: req.UserPhone,
		UserEmail: req.UserEmail,
		Source:    req.Source,
		Message:   req.Message,
		Priority:  req.Priority,
	}
	if req.PropertyID != nil {
		propertyID, err := uuid.Parse(*req.PropertyID)
		if err != nil {
			apierrors.BadRequest(c, "INVALID_INPUT", "Invalid property ID format")
			return
		}
		params.PropertyID = &propertyID
	}
	if req.AgentID != nil {
		agentID, err := uuid.Parse(*req.AgentID)
		if err != nil {
			apierrors.BadRequest(c, "INVALID_INPUT", "Invalid agent ID format")
			return
		}
		params.AgentID = &agentID
	}

	ctx = observability.WithFields(ctx,
		observability.Field{Key: "source", Value: req.Source},
	)

	lead, err := h.processor.CreateLead(ctx, params)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, lead)
}

// HandleListLeads lists the calling agent's leads, hottest first
func (h *Handler) HandleListLeads(c *gin.Context) {
	ctx := c.Request.Context()

	agentID, ok := h.getAgentID(c)
	if !ok {
		return
	}

	page := 1
	if pageStr := c.Query("page"); pageStr != "" {
		if _, err := fmt.Sscanf(pageStr, "%d", &page); err != nil || page < 1 {
			page = 1
		}
	}

	limit := 20
	if limitStr := c.Query("limit"); limitStr != "" {
		if _, err := fmt.Sscanf(limitStr, "%d", &limit); err != nil || limit < 1 || limit > 100 {
			limit = 20
		}
	}

	var status *string
	if statusStr := c.Query("status"); statusStr != "" {
		status = &statusStr
	}

	result, err := h.processor.ListLeads(ctx, agentID, status, page, limit)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"leads": result.Leads,
		"pagination": gin.H{
			"total_count": result.TotalCount,
			"page":        result.Page,
			"page_size":   result.Limit,
			"total_pages": result.TotalPages,
		},
	})
}

// HandleGetLeadByPhone finds the most recent lead for a phone number. Used by
// agents to pull up a caller's history mid-conversation.
func (h *Handler) HandleGetLeadByPhone(c *gin.Context) {
	ctx := c.Request.Context()

	agentID, ok := h.getAgentID(c)
	if !ok {
		return
	}

	phone := c.Query("phone")
	if phone == "" {
		apierrors.BadRequest(c, "INVALID_INPUT", "phone query parameter is required")
		return
	}

	lead, err := h.processor.GetLeadByPhone(ctx, phone)
	if err != nil {
		h.handleError(c, err)
		return
	}
	if lead.AgentID == nil || *lead.AgentID != agentID {
		apierrors.Forbidden(c, "FORBIDDEN", "You do not have access to this lead")
		return
	}

	c.JSON(http.StatusOK, lead)
}

// HandleGetLead retrieves one lead
func (h *Handler) HandleGetLead(c *gin.Context) {
	ctx := c.Request.Context()

	agentID, ok := h.getAgentID(c)
	if !ok {
		return
	}
	leadID, ok := h.getLeadID(c)
	if !ok {
		return
	}

	lead, err := h.processor.GetLead(ctx, agentID, leadID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, lead)
}

// HandleUpdateLeadStatus moves a lead through the pipeline
func (h *Handler) HandleUpdateLeadStatus(c *gin.Context) {
	ctx := c.Request.Context()

	agentID, ok := h.getAgentID(c)
	if !ok {
		return
	}
	leadID, ok := h.getLeadID(c)
	if !ok {
		return
	}

	var req UpdateLeadStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.ValidationError(c, err)
		return
	}

	lead, err := h.processor.UpdateLeadStatus(ctx, agentID, leadID, req.Status)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, lead)
}

// HandleAddNote attaches an internal note to a lead
func (h *Handler) HandleAddNote(c *gin.Context) {
	ctx := c.Request.Context()

	agentID, ok := h.getAgentID(c)
	if !ok {
		return
	}
	leadID, ok := h.getLeadID(c)
	if !ok {
		return
	}

	var req AddNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.ValidationError(c, err)
		return
	}

	note, err := h.processor.AddNote(ctx, agentID, leadID, req.Note)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, note)
}

// HandleGetLeadThread returns a lead's full message history, oldest first
func (h *Handler) HandleGetLeadThread(c *gin.Context) {
	ctx := c.Request.Context()

	agentID, ok := h.getAgentID(c)
	if !ok {
		return
	}
	leadID, ok := h.getLeadID(c)
	if !ok {
		return
	}

	messages, err := h.processor.GetLeadThread(ctx, agentID, leadID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// HandleGetAssignmentHistory returns a lead's routing audit trail
func (h *Handler) HandleGetAssignmentHistory(c *gin.Context) {
	ctx := c.Request.Context()

	agentID, ok := h.getAgentID(c)
	if !ok {
		return
	}
	leadID, ok := h.getLeadID(c)
	if !ok {
		return
	}

	assignments, err := h.processor.GetAssignmentHistory(ctx, agentID, leadID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"assignments": assignments})
}

// HandleSendWhatsApp sends an outbound WhatsApp message on a lead thread,
// optionally rendered from a stored template
func (h *Handler) HandleSendWhatsApp(c *gin.Context) {
	ctx := c.Request.Context()

	agentID, ok := h.getAgentID(c)
	if !ok {
		return
	}
	leadID, ok := h.getLeadID(c)
	if !ok {
		return
	}

	var req SendWhatsAppRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.ValidationError(c, err)
		return
	}
	if req.Body == "" && req.TemplateID == nil {
		apierrors.BadRequest(c, "INVALID_INPUT", "Either body or template_id is required")
		return
	}

	params := processor.SendWhatsAppParams{
		LeadID:    leadID,
		Body:      req.Body,
		Variables: req.Variables,
	}
	if req.TemplateID != nil {
		templateID, err := uuid.Parse(*req.TemplateID)
		if err != nil {
			apierrors.BadRequest(c, "INVALID_INPUT", "Invalid template ID format")
			return
		}
		params.TemplateID = &templateID
	}

	message, err := h.processor.SendWhatsAppMessage(ctx, agentID, params)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, message)
}

// HandleListTemplates lists the reusable WhatsApp templates
func (h *Handler) HandleListTemplates(c *gin.Context) {
	ctx := c.Request.Context()

	templates, err := h.processor.ListTemplates(ctx)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"templates": templates})
}

// HandleInboundWhatsApp is the public webhook for inbound WhatsApp messages.
// The provider posts form-encoded Twilio fields; the endpoint always answers
// 200 so the provider does not retry on our processing failures.
func (h *Handler) HandleInboundWhatsApp(c *gin.Context) {
	ctx := c.Request.Context()

	from := c.PostForm("From")
	body := c.PostForm("Body")
	messageID := c.PostForm("MessageSid")
	if from == "" {
		c.Status(http.StatusOK)
		return
	}

	_, err := h.processor.ProcessInboundMessage(ctx, processor.InboundMessage{
		From:        from,
		Body:        body,
		MessageID:   messageID,
		MessageType: c.PostForm("MessageType"),
	})
	if err != nil {
		h.logger.Error(ctx, "failed to process inbound whatsapp message", err)
	}

	c.Status(http.StatusOK)
}

// HandleDeliveryStatus is the public callback for outbound message delivery
// receipts. Always answers 200 for the same reason as the inbound webhook.
func (h *Handler) HandleDeliveryStatus(c *gin.Context) {
	ctx := c.Request.Context()

	messageSid := c.PostForm("MessageSid")
	messageStatus := c.PostForm("MessageStatus")
	if messageSid == "" {
		c.Status(http.StatusOK)
		return
	}

	if err := h.processor.HandleDeliveryReceipt(ctx, messageSid, messageStatus); err != nil {
		h.logger.Error(ctx, "failed to record delivery receipt", err)
	}

	c.Status(http.StatusOK)
}

func (h *Handler) getAgentID(c *gin.Context) (uuid.UUID, bool) {
	agentID, err := auth.CallerID(c)
	if err != nil {
		apierrors.Unauthorized(c, "Agent ID not found in context")
		return uuid.UUID{}, false
	}
	return agentID, true
}

func (h *Handler) getLeadID(c *gin.Context) (uuid.UUID, bool) {
	leadID, err := uuid.Parse(c.Param("lead_id"))
	if err != nil {
		apierrors.BadRequest(c, "INVALID_INPUT", "Invalid lead ID format")
		return uuid.UUID{}, false
	}
	return leadID, true
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, processor.ErrLeadNotFound):
		apierrors.NotFound(c, "Lead not found")
	case errors.Is(err, processor.ErrTemplateNotFound):
		apierrors.NotFound(c, "Template not found")
	case errors.Is(err, processor.ErrUnauthorized):
		apierrors.Forbidden(c, "FORBIDDEN", "You do not have access to this lead")
	case errors.Is(err, processor.ErrInvalidSource),
		errors.Is(err, processor.ErrInvalidStatus):
		apierrors.BadRequest(c, "INVALID_INPUT", err.Error())
	default:
		apierrors.InternalError(c, err)
	}
}
