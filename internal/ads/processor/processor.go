package processor

//go:generate go run go.uber.org/mock/mockgen@latest -source=processor.go -destination=mocks_test.go -package=processor

import (
	"context"
	"errors"
	"time"

	"holanu-server/internal/observability"
	"holanu-server/internal/store"
	"holanu-server/internal/tiers"

	"github.com/google/uuid"
)

// AdsStore defines the database operations required by AdsProcessor
type AdsStore interface {
	CreateAdCampaign(ctx context.Context, params store.CreateAdCampaignParams) (store.AdCampaign, error)
	GetAdCampaignByID(ctx context.Context, campaignID uuid.UUID) (store.AdCampaign, error)
	UpdateAdCampaignStatus(ctx context.Context, campaignID uuid.UUID, status string) (store.AdCampaign, error)
	ListAdCampaigns(ctx context.Context, params store.ListAdCampaignsParams) (store.ListAdCampaignsResult, error)
	CountActiveAdCampaignsByAgentID(ctx context.Context, agentID uuid.UUID) (int, error)

	InsertAdImpression(ctx context.Context, params store.InsertAdImpressionParams) (store.AdImpression, error)
	GetCampaignSpend(ctx context.Context, campaignID uuid.UUID) (int64, error)
	HasRecentAdImpression(ctx context.Context, campaignID uuid.UUID, sessionID, eventType string, since time.Time) (bool, error)
	GetCampaignEventCounts(ctx context.Context, campaignID uuid.UUID) (store.CampaignEventCounts, error)

	CreateAdTransaction(ctx context.Context, params store.CreateAdTransactionParams) (store.AdTransaction, error)
	GetAdTransactionsByCampaignID(ctx context.Context, campaignID uuid.UUID) ([]store.AdTransaction, error)
	UpdateAdTransactionStatus(ctx context.Context, transactionID uuid.UUID, status string) (store.AdTransaction, error)
}

var (
	ErrCampaignNotFound     = errors.New("campaign not found")
	ErrInvalidCampaignType  = errors.New("invalid campaign type")
	ErrInvalidBidType       = errors.New("invalid bid type")
	ErrInvalidDateRange     = errors.New("campaign end date must be after start date")
	ErrUnauthorized         = errors.New("unauthorized access to campaign")
	ErrCampaignLimitReached = errors.New("campaign limit reached for your plan")
	ErrTransactionNotFound  = errors.New("transaction not found")
)

type AdsProcessor struct {
	store       AdsStore
	tierService *tiers.TierService
	logger      *observability.Logger
}

func New(store AdsStore, tierService *tiers.TierService, logger *observability.Logger) AdsProcessor {
	return AdsProcessor{
		store:       store,
		tierService: tierService,
		logger:      logger,
	}
}

// CreateCampaignParams represents parameters for creating a campaign
type CreateCampaignParams struct {
	Name           string
	CampaignType   string
	TargetLocation *string
	Budget         int64
	BidType        string
	BidAmount      int64
	StartAt        time.Time
	EndAt          time.Time
}

// CreateCampaign creates a new draft campaign for an agent
func (p *AdsProcessor) CreateCampaign(ctx context.Context, agentID uuid.UUID, params CreateCampaignParams) (store.AdCampaign, error) {
	ctx = observability.WithFields(ctx,
		observability.Field{Key: "agent_id", Value: agentID.String()},
		observability.Field{Key: "campaign_type", Value: params.CampaignType},
	)

	if !isValidCampaignType(params.CampaignType) {
		return store.AdCampaign{}, ErrInvalidCampaignType
	}
	if !isValidBidType(params.BidType) {
		return store.AdCampaign{}, ErrInvalidBidType
	}
	if !params.EndAt.After(params.StartAt) {
		return store.AdCampaign{}, ErrInvalidDateRange
	}

	campaignLimit, err := p.tierService.GetLimitByAgentID(ctx, agentID, tiers.LimitActiveCampaigns)
	if err != nil {
		p.logger.Error(ctx, "failed to get campaign limit", err)
		return store.AdCampaign{}, err
	}

	if campaignLimit != nil {
		currentCount, err := p.store.CountActiveAdCampaignsByAgentID(ctx, agentID)
		if err != nil {
			p.logger.Error(ctx, "failed to count campaigns", err)
			return store.AdCampaign{}, err
		}

		if currentCount >= *campaignLimit {
			ctx = observability.WithFields(ctx,
				observability.Field{Key: "current_count", Value: currentCount},
				observability.Field{Key: "limit", Value: *campaignLimit},
			)
			p.logger.Warn(ctx, "campaign limit reached")
			return store.AdCampaign{}, ErrCampaignLimitReached
		}
	}

	campaign, err := p.store.CreateAdCampaign(ctx, store.CreateAdCampaignParams{
		AgentID:        agentID,
		Name:           params.Name,
		CampaignType:   params.CampaignType,
		TargetLocation: params.TargetLocation,
		Budget:         params.Budget,
		BidType:        params.BidType,
		BidAmount:      params.BidAmount,
		StartAt:        params.StartAt,
		EndAt:          params.EndAt,
	})
	if err != nil {
		p.logger.Error(ctx, "failed to create campaign", err)
		return store.AdCampaign{}, err
	}

	p.logger.Info(ctx, "campaign created successfully")
	return campaign, nil
}

// GetCampaign retrieves a campaign owned by the given agent
func (p *AdsProcessor) GetCampaign(ctx context.Context, agentID, campaignID uuid.UUID) (store.AdCampaign, error) {
	campaign, err := p.store.GetAdCampaignByID(ctx, campaignID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.AdCampaign{}, ErrCampaignNotFound
		}
		p.logger.Error(ctx, "failed to get campaign", err)
		return store.AdCampaign{}, err
	}
	if campaign.AgentID != agentID {
		return store.AdCampaign{}, ErrUnauthorized
	}
	return campaign, nil
}

// ListCampaigns lists an agent's campaigns with an optional status filter
func (p *AdsProcessor) ListCampaigns(ctx context.Context, agentID uuid.UUID, status *string, page, limit int) (store.ListAdCampaignsResult, error) {
	result, err := p.store.ListAdCampaigns(ctx, store.ListAdCampaignsParams{
		AgentID: agentID,
		Status:  status,
		Page:    page,
		Limit:   limit,
	})
	if err != nil {
		p.logger.Error(ctx, "failed to list campaigns", err)
		return store.ListAdCampaignsResult{}, err
	}
	return result, nil
}

// ActivateCampaign transitions a campaign to active. When a payment id is
// supplied a paid transaction is recorded first, with the amount sourced from
// the campaign budget.
func (p *AdsProcessor) ActivateCampaign(ctx context.Context, agentID, campaignID uuid.UUID, paymentID *string, paymentMethod *string) (store.AdCampaign, error) {
	ctx = observability.WithFields(ctx,
		observability.Field{Key: "campaign_id", Value: campaignID.String()},
	)

	campaign, err := p.GetCampaign(ctx, agentID, campaignID)
	if err != nil {
		return store.AdCampaign{}, err
	}

	if paymentID != nil {
		_, err = p.store.CreateAdTransaction(ctx, store.CreateAdTransactionParams{
			CampaignID:        campaign.ID,
			AgentID:           campaign.AgentID,
			Amount:            campaign.Budget,
			PaymentMethod:     paymentMethod,
			ExternalPaymentID: paymentID,
			Status:            store.TransactionStatusPaid,
		})
		if err != nil {
			p.logger.Error(ctx, "failed to record activation transaction", err)
			return store.AdCampaign{}, err
		}
	}

	updated, err := p.store.UpdateAdCampaignStatus(ctx, campaign.ID, store.CampaignStatusActive)
	if err != nil {
		p.logger.Error(ctx, "failed to activate campaign", err)
		return store.AdCampaign{}, err
	}

	p.logger.Info(ctx, "campaign activated")
	return updated, nil
}

// PauseCampaign sets a campaign's status to paused
func (p *AdsProcessor) PauseCampaign(ctx context.Context, agentID, campaignID uuid.UUID) (store.AdCampaign, error) {
	return p.setStatus(ctx, agentID, campaignID, store.CampaignStatusPaused)
}

// CancelCampaign sets a campaign's status to cancelled
func (p *AdsProcessor) CancelCampaign(ctx context.Context, agentID, campaignID uuid.UUID) (store.AdCampaign, error) {
	return p.setStatus(ctx, agentID, campaignID, store.CampaignStatusCancelled)
}

// CompleteCampaign sets a campaign's status to completed
func (p *AdsProcessor) CompleteCampaign(ctx context.Context, agentID, campaignID uuid.UUID) (store.AdCampaign, error) {
	return p.setStatus(ctx, agentID, campaignID, store.CampaignStatusCompleted)
}

// setStatus writes the requested status after an ownership check. Status
// transitions are not otherwise guarded; callers only offer these actions
// from valid states.
func (p *AdsProcessor) setStatus(ctx context.Context, agentID, campaignID uuid.UUID, status string) (store.AdCampaign, error) {
	ctx = observability.WithFields(ctx,
		observability.Field{Key: "campaign_id", Value: campaignID.String()},
		observability.Field{Key: "new_status", Value: status},
	)

	if _, err := p.GetCampaign(ctx, agentID, campaignID); err != nil {
		return store.AdCampaign{}, err
	}

	updated, err := p.store.UpdateAdCampaignStatus(ctx, campaignID, status)
	if err != nil {
		p.logger.Error(ctx, "failed to update campaign status", err)
		return store.AdCampaign{}, err
	}

	p.logger.Info(ctx, "campaign status updated")
	return updated, nil
}

// GetTransactions lists billing records for a campaign owned by the agent
func (p *AdsProcessor) GetTransactions(ctx context.Context, agentID, campaignID uuid.UUID) ([]store.AdTransaction, error) {
	if _, err := p.GetCampaign(ctx, agentID, campaignID); err != nil {
		return nil, err
	}

	transactions, err := p.store.GetAdTransactionsByCampaignID(ctx, campaignID)
	if err != nil {
		p.logger.Error(ctx, "failed to get campaign transactions", err)
		return nil, err
	}
	return transactions, nil
}

// ApplyPaymentUpdate applies a payment-provider status callback to a
// transaction. Callbacks carrying a status outside the transaction enum are
// ignored so a provider's intermediate states never corrupt the ledger.
func (p *AdsProcessor) ApplyPaymentUpdate(ctx context.Context, transactionID uuid.UUID, status string) (store.AdTransaction, error) {
	if !isValidTransactionStatus(status) {
		return store.AdTransaction{}, nil
	}

	ctx = observability.WithFields(ctx,
		observability.Field{Key: "transaction_id", Value: transactionID.String()},
		observability.Field{Key: "payment_status", Value: status},
	)

	txn, err := p.store.UpdateAdTransactionStatus(ctx, transactionID, status)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.AdTransaction{}, ErrTransactionNotFound
		}
		p.logger.Error(ctx, "failed to apply payment update", err)
		return store.AdTransaction{}, err
	}

	p.logger.Info(ctx, "transaction status updated")
	return txn, nil
}

func isValidTransactionStatus(status string) bool {
	switch status {
	case store.TransactionStatusPending, store.TransactionStatusPaid,
		store.TransactionStatusFailed, store.TransactionStatusRefunded:
		return true
	}
	return false
}

func isValidCampaignType(campaignType string) bool {
	switch campaignType {
	case store.CampaignTypeFeatured, store.CampaignTypePremium, store.CampaignTypeSuperPremium, store.CampaignTypeBanner:
		return true
	}
	return false
}

func isValidBidType(bidType string) bool {
	switch bidType {
	case store.BidTypeFlatFee, store.BidTypeCPC, store.BidTypeCPM:
		return true
	}
	return false
}
