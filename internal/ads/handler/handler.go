package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"holanu-server/internal/ads/processor"
	"holanu-server/internal/apierrors"
	"holanu-server/internal/auth"
	"holanu-server/internal/observability"
	"holanu-server/internal/ratelimit"
	"holanu-server/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// trackRateLimit caps public tracking calls per client per minute
const trackRateLimit = 120

type Handler struct {
	processor processor.AdsProcessor
	limiter   *ratelimit.Service
	logger    *observability.Logger
}

func New(processor processor.AdsProcessor, limiter *ratelimit.Service, logger *observability.Logger) Handler {
	return Handler{
		processor: processor,
		limiter:   limiter,
		logger:    logger,
	}
}

// CreateCampaignRequest represents the HTTP request for creating a campaign
type CreateCampaignRequest struct {
	Name           string    `json:"name" binding:"required,min=1,max=255"`
	CampaignType   string    `json:"campaign_type" binding:"required,oneof=featured premium super_premium banner"`
	TargetLocation *string   `json:"target_location,omitempty"`
	Budget         int64     `json:"budget" binding:"required,gt=0"`
	BidType        string    `json:"bid_type" binding:"required,oneof=flat_fee cpc cpm"`
	BidAmount      int64     `json:"bid_amount" binding:"gte=0"`
	StartAt        time.Time `json:"start_at" binding:"required"`
	EndAt          time.Time `json:"end_at" binding:"required"`
}

// ActivateCampaignRequest represents the HTTP request for activating a campaign
type ActivateCampaignRequest struct {
	PaymentID     *string `json:"payment_id,omitempty"`
	PaymentMethod *string `json:"payment_method,omitempty"`
}

// PaymentCallbackRequest represents a payment provider's status callback
type PaymentCallbackRequest struct {
	TransactionID string `json:"transaction_id" binding:"required"`
	Status        string `json:"status" binding:"required"`
}

// TrackRequest represents the public tracking payload
type TrackRequest struct {
	CampaignID string  `json:"campaign_id"`
	PropertyID *string `json:"property_id,omitempty"`
	EventType  string  `json:"event_type"`
	Referrer   string  `json:"referrer,omitempty"`
}

// HandleCreateCampaign creates a new draft campaign
func (h *Handler) HandleCreateCampaign(c *gin.Context) {
	ctx := c.Request.Context()

	agentID, ok := h.getAgentID(c)
	if !ok {
		return
	}

	var req CreateCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.ValidationError(c, err)
		return
	}

	ctx = observability.WithFields(ctx,
		observability.Field{Key: "agent_id", Value: agentID.String()},
		observability.Field{Key: "campaign_type", Value: req.CampaignType},
	)

	campaign, err := h.processor.CreateCampaign(ctx, agentID, processor.CreateCampaignParams{
		Name:           req.Name,
		CampaignType:   req.CampaignType,
		TargetLocation: req.TargetLocation,
		Budget:         req.Budget,
		BidType:        req.BidType,
		BidAmount:      req.BidAmount,
		StartAt:        req.StartAt,
		EndAt:          req.EndAt,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, campaign)
}

// HandleListCampaigns lists the agent's campaigns
func (h *Handler) HandleListCampaigns(c *gin.Context) {
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

	result, err := h.processor.ListCampaigns(ctx, agentID, status, page, limit)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"campaigns": result.Campaigns,
		"pagination": gin.H{
			"total_count": result.TotalCount,
			"page":        result.Page,
			"page_size":   result.Limit,
			"total_pages": result.TotalPages,
		},
	})
}

// HandleGetCampaign retrieves one campaign
func (h *Handler) HandleGetCampaign(c *gin.Context) {
	ctx := c.Request.Context()

	agentID, ok := h.getAgentID(c)
	if !ok {
		return
	}
	campaignID, ok := h.getCampaignID(c)
	if !ok {
		return
	}

	campaign, err := h.processor.GetCampaign(ctx, agentID, campaignID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, campaign)
}

// HandleActivateCampaign activates a campaign, optionally recording a payment
func (h *Handler) HandleActivateCampaign(c *gin.Context) {
	ctx := c.Request.Context()

	agentID, ok := h.getAgentID(c)
	if !ok {
		return
	}
	campaignID, ok := h.getCampaignID(c)
	if !ok {
		return
	}

	// An empty body is a valid activation without a payment.
	var req ActivateCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		apierrors.ValidationError(c, err)
		return
	}

	campaign, err := h.processor.ActivateCampaign(ctx, agentID, campaignID, req.PaymentID, req.PaymentMethod)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, campaign)
}

// HandlePauseCampaign pauses a campaign
func (h *Handler) HandlePauseCampaign(c *gin.Context) {
	h.handleStatusChange(c, h.processor.PauseCampaign)
}

// HandleCancelCampaign cancels a campaign
func (h *Handler) HandleCancelCampaign(c *gin.Context) {
	h.handleStatusChange(c, h.processor.CancelCampaign)
}

// HandleCompleteCampaign completes a campaign
func (h *Handler) HandleCompleteCampaign(c *gin.Context) {
	h.handleStatusChange(c, h.processor.CompleteCampaign)
}

// HandleGetAnalytics returns the aggregated event counts for a campaign
func (h *Handler) HandleGetAnalytics(c *gin.Context) {
	ctx := c.Request.Context()

	agentID, ok := h.getAgentID(c)
	if !ok {
		return
	}
	campaignID, ok := h.getCampaignID(c)
	if !ok {
		return
	}

	analytics, err := h.processor.GetCampaignAnalytics(ctx, agentID, campaignID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, analytics)
}

// HandleGetTransactions lists billing records for a campaign
func (h *Handler) HandleGetTransactions(c *gin.Context) {
	ctx := c.Request.Context()

	agentID, ok := h.getAgentID(c)
	if !ok {
		return
	}
	campaignID, ok := h.getCampaignID(c)
	if !ok {
		return
	}

	transactions, err := h.processor.GetTransactions(ctx, agentID, campaignID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transactions": transactions})
}

// HandlePaymentCallback is the public webhook for payment-provider status
// updates on ad transactions. The payload is parsed but not signature-verified
// here; the endpoint always answers 200 so the provider does not retry on our
// processing failures.
func (h *Handler) HandlePaymentCallback(c *gin.Context) {
	ctx := c.Request.Context()

	var req PaymentCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Status(http.StatusOK)
		return
	}

	transactionID, err := uuid.Parse(req.TransactionID)
	if err != nil {
		c.Status(http.StatusOK)
		return
	}

	if _, err := h.processor.ApplyPaymentUpdate(ctx, transactionID, req.Status); err != nil {
		h.logger.Error(ctx, "failed to apply payment callback", err)
	}

	c.Status(http.StatusOK)
}

// HandleTrack records a public ad event. The endpoint always answers 204:
// tracking calls come from browser pixels and must never receive an error,
// whatever was wrong with the payload or the campaign state.
func (h *Handler) HandleTrack(c *gin.Context) {
	ctx := c.Request.Context()

	clientIP := observability.GetRealClientIP(c)
	userAgent := observability.GetRealUserAgent(c)

	if h.limiter != nil {
		result, err := h.limiter.Check(ctx, clientIP, trackRateLimit)
		if err == nil && !result.Allowed {
			c.Status(http.StatusNoContent)
			return
		}
	}

	var req TrackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Status(http.StatusNoContent)
		return
	}

	campaignID, err := uuid.Parse(req.CampaignID)
	if err != nil {
		c.Status(http.StatusNoContent)
		return
	}

	var propertyID *uuid.UUID
	if req.PropertyID != nil {
		if id, err := uuid.Parse(*req.PropertyID); err == nil {
			propertyID = &id
		}
	}

	err = h.processor.TrackImpression(ctx, campaignID, propertyID, req.EventType, processor.TrackMeta{
		IP:        clientIP,
		UserAgent: userAgent,
		Referrer:  req.Referrer,
	})
	if err != nil {
		h.logger.Error(ctx, "failed to track impression", err)
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) handleStatusChange(c *gin.Context, change func(ctx context.Context, agentID, campaignID uuid.UUID) (store.AdCampaign, error)) {
	ctx := c.Request.Context()

	agentID, ok := h.getAgentID(c)
	if !ok {
		return
	}
	campaignID, ok := h.getCampaignID(c)
	if !ok {
		return
	}

	campaign, err := change(ctx, agentID, campaignID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, campaign)
}

func (h *Handler) getAgentID(c *gin.Context) (uuid.UUID, bool) {
	agentID, err := auth.CallerID(c)
	if err != nil {
		apierrors.Unauthorized(c, "Agent ID not found in context")
		return uuid.UUID{}, false
	}
	return agentID, true
}

func (h *Handler) getCampaignID(c *gin.Context) (uuid.UUID, bool) {
	campaignID, err := uuid.Parse(c.Param("campaign_id"))
	if err != nil {
		apierrors.BadRequest(c, "INVALID_INPUT", "Invalid campaign ID format")
		return uuid.UUID{}, false
	}
	return campaignID, true
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, processor.ErrCampaignNotFound):
		apierrors.NotFound(c, "Campaign not found")
	case errors.Is(err, processor.ErrUnauthorized):
		apierrors.Forbidden(c, "FORBIDDEN", "You do not have access to this campaign")
	case errors.Is(err, processor.ErrCampaignLimitReached):
		apierrors.Forbidden(c, "CAMPAIGN_LIMIT_REACHED", "Campaign limit reached for your plan")
	case errors.Is(err, processor.ErrInvalidCampaignType),
		errors.Is(err, processor.ErrInvalidBidType),
		errors.Is(err, processor.ErrInvalidDateRange):
		apierrors.BadRequest(c, "INVALID_INPUT", err.Error())
	default:
		apierrors.InternalError(c, err)
	}
}
