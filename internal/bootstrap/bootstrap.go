package bootstrap

import (
	"context"

	"holanu-server/internal/auth"
	"holanu-server/internal/clients/googleai"
	"holanu-server/internal/clients/mail"
	"holanu-server/internal/clients/openai"
	redisClient "holanu-server/internal/clients/redis"
	"holanu-server/internal/clients/twilio"
	"holanu-server/internal/config"
	"holanu-server/internal/events"
	"holanu-server/internal/observability"
	"holanu-server/internal/ratelimit"
	"holanu-server/internal/store"
	"holanu-server/internal/tiers"

	adsHandler "holanu-server/internal/ads/handler"
	adsProcessor "holanu-server/internal/ads/processor"
	crmHandler "holanu-server/internal/crm/handler"
	crmProcessor "holanu-server/internal/crm/processor"
	descriptionsHandler "holanu-server/internal/descriptions/handler"
	descriptionsProcessor "holanu-server/internal/descriptions/processor"
)

// Dependencies holds all initialized application dependencies
type Dependencies struct {
	// Core
	Store  store.Store
	Logger *observability.Logger

	// Middleware
	AuthMiddleware auth.Middleware

	// Handlers
	AdsHandler          adsHandler.Handler
	CRMHandler          crmHandler.Handler
	CRMStreamHandler    crmHandler.StreamHandler
	DescriptionsHandler descriptionsHandler.Handler

	// Infrastructure
	EventPublisher *events.Publisher
	Redis          *redisClient.Client
}

// Initialize wires every processor and handler from configuration.
// External clients that are optional (Redis, OpenAI) come up disabled when
// their configuration is absent.
func Initialize(ctx context.Context, cfg *config.Config, logger *observability.Logger) (*Dependencies, error) {
	db, err := store.New(cfg.Database.ConnectionString(), logger)
	if err != nil {
		logger.Error(ctx, "failed to initialize store", err)
		return nil, err
	}

	authMiddleware := auth.NewMiddleware(cfg.Auth.JWTSecret, logger)

	redis, err := redisClient.NewClient(cfg.Redis, logger)
	if err != nil {
		logger.Error(ctx, "failed to connect to redis", err)
		return nil, err
	}
	limiter := ratelimit.NewService(redis, logger)

	tierService := tiers.New(&db, logger)

	publisher := events.NewPublisher(logger)

	whatsappClient := twilio.NewClient(
		cfg.Services.TwilioAccountSID,
		cfg.Services.TwilioAuthToken,
		cfg.Services.TwilioWhatsAppFrom,
		logger,
	)

	mailClient, err := mail.NewResendClient(cfg.Services.ResendAPIKey, logger)
	if err != nil {
		logger.Error(ctx, "failed to initialize mail client", err)
		return nil, err
	}

	generator := textGenerator(cfg, logger)

	adsProc := adsProcessor.New(&db, tierService, logger)
	adsHdl := adsHandler.New(adsProc, limiter, logger)

	crmProc := crmProcessor.New(&db, nil, nil, whatsappClient, mailClient, publisher,
		cfg.Services.DefaultEmailSender, logger)
	crmHdl := crmHandler.New(&crmProc, logger)
	crmStream := crmHandler.NewStreamHandler(publisher, logger)

	descProc := descriptionsProcessor.New(&db, generator, logger)
	descHdl := descriptionsHandler.New(descProc, tierService, &db, logger)

	return &Dependencies{
		Store:               db,
		Logger:              logger,
		AuthMiddleware:      authMiddleware,
		AdsHandler:          adsHdl,
		CRMHandler:          crmHdl,
		CRMStreamHandler:    crmStream,
		DescriptionsHandler: descHdl,
		EventPublisher:      publisher,
		Redis:               redis,
	}, nil
}

// textGenerator selects the description provider from configuration,
// defaulting to Gemini.
func textGenerator(cfg *config.Config, logger *observability.Logger) descriptionsProcessor.TextGenerator {
	if cfg.Services.TextProvider == "openai" && cfg.Services.OpenAIAPIKey != "" {
		return openai.NewClient(cfg.Services.OpenAIAPIKey, logger)
	}
	return googleai.NewClient(cfg.Services.GoogleAIAPIKey, logger)
}

// Cleanup releases held connections
func (d *Dependencies) Cleanup() {
	if d.Redis != nil {
		d.Redis.Close()
	}
}
