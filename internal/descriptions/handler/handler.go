package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"holanu-server/internal/apierrors"
	"holanu-server/internal/auth"
	"holanu-server/internal/descriptions/processor"
	"holanu-server/internal/observability"
	"holanu-server/internal/tiers"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// UsageStore counts a month's generated variants for quota enforcement
type UsageStore interface {
	CountAIDescriptionsByAgentIDSince(ctx context.Context, agentID uuid.UUID, since time.Time) (int, error)
}

type Handler struct {
	processor   processor.DescriptionsProcessor
	tierService *tiers.TierService
	usage       UsageStore
	logger      *observability.Logger
}

func New(processor processor.DescriptionsProcessor, tierService *tiers.TierService, usage UsageStore, logger *observability.Logger) Handler {
	return Handler{
		processor:   processor,
		tierService: tierService,
		usage:       usage,
		logger:      logger,
	}
}

// GenerateRequest represents the HTTP request for generating variants
type GenerateRequest struct {
	Tone         string `json:"tone" binding:"omitempty,oneof=formal casual persuasive"`
	Length       string `json:"length" binding:"omitempty,oneof=short medium long"`
	Focus        string `json:"focus" binding:"omitempty,oneof=seo selling_points family_friendly investment"`
	VariantCount int    `json:"variant_count" binding:"omitempty,min=1,max=5"`
}

// HandleGenerate generates description variants for a property. The monthly
// tier quota is checked here, before the provider is ever called, so a
// refused request costs nothing.
func (h *Handler) HandleGenerate(c *gin.Context) {
	ctx := c.Request.Context()

	agentID, ok := h.getAgentID(c)
	if !ok {
		return
	}
	propertyID, ok := h.getPropertyID(c)
	if !ok {
		return
	}

	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.ValidationError(c, err)
		return
	}

	requested := req.VariantCount
	if requested < 1 {
		requested = 3
	}

	allowed, err := h.checkQuota(ctx, agentID, requested)
	if err != nil {
		apierrors.InternalError(c, err)
		return
	}
	if !allowed {
		apierrors.Forbidden(c, "UPGRADE_REQUIRED", "Monthly AI description limit reached for your plan")
		return
	}

	descriptions, err := h.processor.Generate(ctx, agentID, processor.GenerateParams{
		PropertyID:   propertyID,
		Tone:         req.Tone,
		Length:       req.Length,
		Focus:        req.Focus,
		VariantCount: req.VariantCount,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"descriptions": descriptions})
}

// HandleListByProperty lists all variants ever generated for a property
func (h *Handler) HandleListByProperty(c *gin.Context) {
	ctx := c.Request.Context()

	if _, ok := h.getAgentID(c); !ok {
		return
	}
	propertyID, ok := h.getPropertyID(c)
	if !ok {
		return
	}

	descriptions, err := h.processor.ListByProperty(ctx, propertyID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"descriptions": descriptions})
}

// checkQuota reports whether the agent can generate `requested` more variants
// this calendar month. A nil tier limit means unlimited.
func (h *Handler) checkQuota(ctx context.Context, agentID uuid.UUID, requested int) (bool, error) {
	limit, err := h.tierService.GetLimitByAgentID(ctx, agentID, tiers.LimitMonthlyAIDescriptions)
	if err != nil {
		return false, err
	}
	if limit == nil {
		return true, nil
	}

	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	used, err := h.usage.CountAIDescriptionsByAgentIDSince(ctx, agentID, monthStart)
	if err != nil {
		return false, err
	}
	return used+requested <= *limit, nil
}

func (h *Handler) getAgentID(c *gin.Context) (uuid.UUID, bool) {
	agentID, err := auth.CallerID(c)
	if err != nil {
		apierrors.Unauthorized(c, "Agent ID not found in context")
		return uuid.UUID{}, false
	}
	return agentID, true
}

func (h *Handler) getPropertyID(c *gin.Context) (uuid.UUID, bool) {
	propertyID, err := uuid.Parse(c.Param("property_id"))
	if err != nil {
		apierrors.BadRequest(c, "INVALID_INPUT", "Invalid property ID format")
		return uuid.UUID{}, false
	}
	return propertyID, true
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, processor.ErrPropertyNotFound):
		apierrors.NotFound(c, "Property not found")
	case errors.Is(err, processor.ErrGenerationFailed):
		apierrors.ServiceUnavailable(c, "GENERATION_UNAVAILABLE", "Description generation is temporarily unavailable", err)
	default:
		apierrors.InternalError(c, err)
	}
}
