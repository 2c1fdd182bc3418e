package api

import (
	"net/http"

	adsHandler "holanu-server/internal/ads/handler"
	"holanu-server/internal/auth"
	crmHandler "holanu-server/internal/crm/handler"
	descriptionsHandler "holanu-server/internal/descriptions/handler"
	"holanu-server/internal/store"

	"github.com/gin-gonic/gin"
)

type API struct {
	router              *gin.RouterGroup
	authMiddleware      auth.Middleware
	adsHandler          adsHandler.Handler
	crmHandler          crmHandler.Handler
	crmStreamHandler    crmHandler.StreamHandler
	descriptionsHandler descriptionsHandler.Handler
}

func New(
	router *gin.RouterGroup,
	authMiddleware auth.Middleware,
	adsHandler adsHandler.Handler,
	crmHandler crmHandler.Handler,
	crmStreamHandler crmHandler.StreamHandler,
	descriptionsHandler descriptionsHandler.Handler,
) API {
	return API{
		router:              router,
		authMiddleware:      authMiddleware,
		adsHandler:          adsHandler,
		crmHandler:          crmHandler,
		crmStreamHandler:    crmStreamHandler,
		descriptionsHandler: descriptionsHandler,
	}
}

func (a *API) RegisterRoutes() {
	a.Health()
	apiGroup := a.router.Group("/api")

	// Public endpoints: the browser tracking pixel, the lead capture form,
	// and the WhatsApp provider webhooks.
	apiGroup.POST("/track", a.adsHandler.HandleTrack)
	apiGroup.POST("/leads", a.crmHandler.HandleCreateLead)
	webhookGroup := apiGroup.Group("/webhooks")
	{
		webhookGroup.POST("/whatsapp/inbound", a.crmHandler.HandleInboundWhatsApp)
		webhookGroup.POST("/whatsapp/status", a.crmHandler.HandleDeliveryStatus)
		webhookGroup.POST("/payments", a.adsHandler.HandlePaymentCallback)
	}

	protectedGroup := apiGroup.Group("/protected",
		a.authMiddleware.HandleJWTMiddleware,
		a.authMiddleware.RequireRole(store.RoleAgent, store.RoleAdmin),
	)
	{
		campaignGroup := protectedGroup.Group("/campaigns")
		campaignGroup.POST("", a.adsHandler.HandleCreateCampaign)
		campaignGroup.GET("", a.adsHandler.HandleListCampaigns)
		campaignGroup.GET("/:campaign_id", a.adsHandler.HandleGetCampaign)
		campaignGroup.POST("/:campaign_id/activate", a.adsHandler.HandleActivateCampaign)
		campaignGroup.POST("/:campaign_id/pause", a.adsHandler.HandlePauseCampaign)
		campaignGroup.POST("/:campaign_id/cancel", a.adsHandler.HandleCancelCampaign)
		campaignGroup.POST("/:campaign_id/complete", a.adsHandler.HandleCompleteCampaign)
		campaignGroup.GET("/:campaign_id/analytics", a.adsHandler.HandleGetAnalytics)
		campaignGroup.GET("/:campaign_id/transactions", a.adsHandler.HandleGetTransactions)

		leadGroup := protectedGroup.Group("/leads")
		leadGroup.GET("", a.crmHandler.HandleListLeads)
		leadGroup.GET("/stream", a.crmStreamHandler.HandleLeadStream)
		leadGroup.GET("/by-phone", a.crmHandler.HandleGetLeadByPhone)
		leadGroup.GET("/:lead_id", a.crmHandler.HandleGetLead)
		leadGroup.PATCH("/:lead_id/status", a.crmHandler.HandleUpdateLeadStatus)
		leadGroup.POST("/:lead_id/notes", a.crmHandler.HandleAddNote)
		leadGroup.GET("/:lead_id/messages", a.crmHandler.HandleGetLeadThread)
		leadGroup.GET("/:lead_id/assignments", a.crmHandler.HandleGetAssignmentHistory)
		leadGroup.POST("/:lead_id/whatsapp", a.crmHandler.HandleSendWhatsApp)

		protectedGroup.GET("/whatsapp/templates", a.crmHandler.HandleListTemplates)

		propertyGroup := protectedGroup.Group("/properties")
		propertyGroup.POST("/:property_id/descriptions", a.descriptionsHandler.HandleGenerate)
		propertyGroup.GET("/:property_id/descriptions", a.descriptionsHandler.HandleListByProperty)
	}
}

func (a *API) Health() {
	a.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})
}
