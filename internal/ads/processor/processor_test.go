package processor

import (
	"context"
	"testing"
	"time"

	"holanu-server/internal/observability"
	"holanu-server/internal/store"
	"holanu-server/internal/tiers"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAdsStore is an in-memory AdsStore for exercising the tracking and
// billing rules without a database.
type fakeAdsStore struct {
	campaigns    map[uuid.UUID]store.AdCampaign
	impressions  []store.AdImpression
	transactions []store.AdTransaction
}

func newFakeAdsStore() *fakeAdsStore {
	return &fakeAdsStore{campaigns: make(map[uuid.UUID]store.AdCampaign)}
}

func (f *fakeAdsStore) CreateAdCampaign(_ context.Context, params store.CreateAdCampaignParams) (store.AdCampaign, error) {
	campaign := store.AdCampaign{
		ID:             uuid.New(),
		AgentID:        params.AgentID,
		Name:           params.Name,
		CampaignType:   params.CampaignType,
		TargetLocation: params.TargetLocation,
		Budget:         params.Budget,
		BidType:        params.BidType,
		BidAmount:      params.BidAmount,
		StartAt:        params.StartAt,
		EndAt:          params.EndAt,
		Status:         store.CampaignStatusDraft,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	f.campaigns[campaign.ID] = campaign
	return campaign, nil
}

func (f *fakeAdsStore) GetAdCampaignByID(_ context.Context, campaignID uuid.UUID) (store.AdCampaign, error) {
	campaign, ok := f.campaigns[campaignID]
	if !ok {
		return store.AdCampaign{}, store.ErrNotFound
	}
	return campaign, nil
}

func (f *fakeAdsStore) UpdateAdCampaignStatus(_ context.Context, campaignID uuid.UUID, status string) (store.AdCampaign, error) {
	campaign, ok := f.campaigns[campaignID]
	if !ok {
		return store.AdCampaign{}, store.ErrNotFound
	}
	campaign.Status = status
	campaign.UpdatedAt = time.Now()
	f.campaigns[campaignID] = campaign
	return campaign, nil
}

func (f *fakeAdsStore) ListAdCampaigns(_ context.Context, params store.ListAdCampaignsParams) (store.ListAdCampaignsResult, error) {
	var campaigns []store.AdCampaign
	for _, campaign := range f.campaigns {
		if campaign.AgentID != params.AgentID {
			continue
		}
		if params.Status != nil && campaign.Status != *params.Status {
			continue
		}
		campaigns = append(campaigns, campaign)
	}
	return store.ListAdCampaignsResult{
		Campaigns:  campaigns,
		TotalCount: len(campaigns),
		Page:       params.Page,
		Limit:      params.Limit,
		TotalPages: 1,
	}, nil
}

func (f *fakeAdsStore) CountActiveAdCampaignsByAgentID(_ context.Context, agentID uuid.UUID) (int, error) {
	count := 0
	for _, campaign := range f.campaigns {
		if campaign.AgentID != agentID {
			continue
		}
		switch campaign.Status {
		case store.CampaignStatusDraft, store.CampaignStatusActive, store.CampaignStatusPaused:
			count++
		}
	}
	return count, nil
}

func (f *fakeAdsStore) InsertAdImpression(_ context.Context, params store.InsertAdImpressionParams) (store.AdImpression, error) {
	impression := store.AdImpression{
		ID:           uuid.New(),
		CampaignID:   params.CampaignID,
		PropertyID:   params.PropertyID,
		EventType:    params.EventType,
		SessionID:    params.SessionID,
		CostIncurred: params.CostIncurred,
		Meta:         params.Meta,
		CreatedAt:    time.Now(),
	}
	f.impressions = append(f.impressions, impression)
	return impression, nil
}

func (f *fakeAdsStore) GetCampaignSpend(_ context.Context, campaignID uuid.UUID) (int64, error) {
	var spend int64
	for _, impression := range f.impressions {
		if impression.CampaignID == campaignID {
			spend += impression.CostIncurred
		}
	}
	return spend, nil
}

func (f *fakeAdsStore) HasRecentAdImpression(_ context.Context, campaignID uuid.UUID, sessionID, eventType string, since time.Time) (bool, error) {
	for _, impression := range f.impressions {
		if impression.CampaignID == campaignID &&
			impression.SessionID == sessionID &&
			impression.EventType == eventType &&
			impression.CreatedAt.After(since) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeAdsStore) GetCampaignEventCounts(_ context.Context, campaignID uuid.UUID) (store.CampaignEventCounts, error) {
	var counts store.CampaignEventCounts
	for _, impression := range f.impressions {
		if impression.CampaignID != campaignID {
			continue
		}
		switch impression.EventType {
		case store.EventTypeImpression:
			counts.Impressions++
		case store.EventTypeClick:
			counts.Clicks++
		case store.EventTypeWhatsAppClick:
			counts.WhatsAppClicks++
		}
		counts.TotalSpend += impression.CostIncurred
	}
	return counts, nil
}

func (f *fakeAdsStore) CreateAdTransaction(_ context.Context, params store.CreateAdTransactionParams) (store.AdTransaction, error) {
	txn := store.AdTransaction{
		ID:                uuid.New(),
		CampaignID:        params.CampaignID,
		AgentID:           params.AgentID,
		Amount:            params.Amount,
		PaymentMethod:     params.PaymentMethod,
		ExternalPaymentID: params.ExternalPaymentID,
		Status:            params.Status,
		Notes:             params.Notes,
		CreatedAt:         time.Now(),
		UpdatedAt:         time.Now(),
	}
	f.transactions = append(f.transactions, txn)
	return txn, nil
}

func (f *fakeAdsStore) GetAdTransactionsByCampaignID(_ context.Context, campaignID uuid.UUID) ([]store.AdTransaction, error) {
	var txns []store.AdTransaction
	for _, txn := range f.transactions {
		if txn.CampaignID == campaignID {
			txns = append(txns, txn)
		}
	}
	return txns, nil
}

func (f *fakeAdsStore) UpdateAdTransactionStatus(_ context.Context, transactionID uuid.UUID, status string) (store.AdTransaction, error) {
	for i, txn := range f.transactions {
		if txn.ID == transactionID {
			f.transactions[i].Status = status
			f.transactions[i].UpdatedAt = time.Now()
			return f.transactions[i], nil
		}
	}
	return store.AdTransaction{}, store.ErrNotFound
}

// fakeTierStore resolves every agent to the pro membership so campaign
// limits never interfere with tracking tests.
type fakeTierStore struct{}

func (fakeTierStore) GetAgentByID(_ context.Context, agentID uuid.UUID) (store.Agent, error) {
	return store.Agent{ID: agentID, MembershipTier: store.MembershipPro, Active: true}, nil
}

func newTestProcessor(t *testing.T) (*AdsProcessor, *fakeAdsStore) {
	t.Helper()
	logger := observability.NewLogger()
	fake := newFakeAdsStore()
	tierService := tiers.New(fakeTierStore{}, logger)
	p := New(fake, tierService, logger)
	return &p, fake
}

func activeCampaign(t *testing.T, fake *fakeAdsStore, bidType string, bidAmount, budget int64) store.AdCampaign {
	t.Helper()
	campaign, err := fake.CreateAdCampaign(context.Background(), store.CreateAdCampaignParams{
		AgentID:      uuid.New(),
		Name:         "Listing boost",
		CampaignType: store.CampaignTypeFeatured,
		Budget:       budget,
		BidType:      bidType,
		BidAmount:    bidAmount,
		StartAt:      time.Now().Add(-time.Hour),
		EndAt:        time.Now().Add(24 * time.Hour),
	})
	require.NoError(t, err)
	campaign, err = fake.UpdateAdCampaignStatus(context.Background(), campaign.ID, store.CampaignStatusActive)
	require.NoError(t, err)
	return campaign
}

func TestCalculateCost(t *testing.T) {
	tests := []struct {
		name      string
		bidType   string
		bidAmount int64
		eventType string
		wantCost  int64
		billable  bool
	}{
		{"flat fee impression", store.BidTypeFlatFee, 50000, store.EventTypeImpression, 0, true},
		{"flat fee click", store.BidTypeFlatFee, 50000, store.EventTypeClick, 0, true},
		{"cpc click", store.BidTypeCPC, 5000, store.EventTypeClick, 5000, true},
		{"cpc whatsapp click", store.BidTypeCPC, 5000, store.EventTypeWhatsAppClick, 5000, true},
		{"cpc impression not billable", store.BidTypeCPC, 5000, store.EventTypeImpression, 0, false},
		{"cpm impression", store.BidTypeCPM, 10000, store.EventTypeImpression, 10, true},
		{"cpm click not billable", store.BidTypeCPM, 10000, store.EventTypeClick, 0, false},
		{"unknown bid type", "free", 1000, store.EventTypeClick, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cost, billable := CalculateCost(tt.bidType, tt.bidAmount, tt.eventType)
			assert.Equal(t, tt.wantCost, cost)
			assert.Equal(t, tt.billable, billable)
		})
	}
}

func TestTrackImpressionGates(t *testing.T) {
	ctx := context.Background()
	p, fake := newTestProcessor(t)

	t.Run("missing campaign is a no-op", func(t *testing.T) {
		err := p.TrackImpression(ctx, uuid.New(), nil, store.EventTypeImpression, TrackMeta{IP: "1.2.3.4", UserAgent: "ua"})
		require.NoError(t, err)
		assert.Empty(t, fake.impressions)
	})

	t.Run("inactive campaign is a no-op", func(t *testing.T) {
		campaign := activeCampaign(t, fake, store.BidTypeCPM, 10000, 100000)
		_, err := fake.UpdateAdCampaignStatus(ctx, campaign.ID, store.CampaignStatusPaused)
		require.NoError(t, err)

		err = p.TrackImpression(ctx, campaign.ID, nil, store.EventTypeImpression, TrackMeta{IP: "1.2.3.4", UserAgent: "ua"})
		require.NoError(t, err)
		assert.Empty(t, fake.impressions)
	})

	t.Run("expired window is a no-op regardless of status", func(t *testing.T) {
		campaign := activeCampaign(t, fake, store.BidTypeCPM, 10000, 100000)
		expired := fake.campaigns[campaign.ID]
		expired.StartAt = time.Now().Add(-48 * time.Hour)
		expired.EndAt = time.Now().Add(-24 * time.Hour)
		fake.campaigns[campaign.ID] = expired

		err := p.TrackImpression(ctx, campaign.ID, nil, store.EventTypeImpression, TrackMeta{IP: "1.2.3.4", UserAgent: "ua"})
		require.NoError(t, err)
		assert.Empty(t, fake.impressions)
	})

	t.Run("non-billable event is discarded", func(t *testing.T) {
		campaign := activeCampaign(t, fake, store.BidTypeCPC, 5000, 100000)

		err := p.TrackImpression(ctx, campaign.ID, nil, store.EventTypeImpression, TrackMeta{IP: "1.2.3.4", UserAgent: "ua"})
		require.NoError(t, err)
		assert.Empty(t, fake.impressions)
	})
}

func TestTrackImpressionDeduplication(t *testing.T) {
	ctx := context.Background()
	p, fake := newTestProcessor(t)
	campaign := activeCampaign(t, fake, store.BidTypeCPM, 10000, 100000)

	meta := TrackMeta{IP: "10.0.0.7", UserAgent: "Mozilla/5.0"}

	err := p.TrackImpression(ctx, campaign.ID, nil, store.EventTypeImpression, meta)
	require.NoError(t, err)
	require.Len(t, fake.impressions, 1)

	// Identical event inside the window is suppressed.
	err = p.TrackImpression(ctx, campaign.ID, nil, store.EventTypeImpression, meta)
	require.NoError(t, err)
	assert.Len(t, fake.impressions, 1)

	// Same event from a different client is recorded.
	err = p.TrackImpression(ctx, campaign.ID, nil, store.EventTypeImpression, TrackMeta{IP: "10.0.0.8", UserAgent: "Mozilla/5.0"})
	require.NoError(t, err)
	assert.Len(t, fake.impressions, 2)

	// Once the first event falls outside the window the same client counts
	// again.
	fake.impressions[0].CreatedAt = time.Now().Add(-31 * time.Second)
	err = p.TrackImpression(ctx, campaign.ID, nil, store.EventTypeImpression, meta)
	require.NoError(t, err)
	assert.Len(t, fake.impressions, 3)
}

func TestTrackImpressionBudgetCeiling(t *testing.T) {
	ctx := context.Background()
	p, fake := newTestProcessor(t)
	campaign := activeCampaign(t, fake, store.BidTypeCPC, 2000, 6000)

	clients := []TrackMeta{
		{IP: "10.0.0.1", UserAgent: "ua"},
		{IP: "10.0.0.2", UserAgent: "ua"},
		{IP: "10.0.0.3", UserAgent: "ua"},
	}
	for _, meta := range clients {
		err := p.TrackImpression(ctx, campaign.ID, nil, store.EventTypeClick, meta)
		require.NoError(t, err)
	}
	require.Len(t, fake.impressions, 3)

	analytics, err := p.GetCampaignAnalytics(ctx, campaign.AgentID, campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, analytics.Clicks)
	assert.Equal(t, int64(6000), analytics.TotalSpend)
	assert.Equal(t, int64(0), analytics.RemainingBudget)

	// A fourth click from a fourth client would exceed the budget.
	err = p.TrackImpression(ctx, campaign.ID, nil, store.EventTypeClick, TrackMeta{IP: "10.0.0.4", UserAgent: "ua"})
	require.NoError(t, err)
	assert.Len(t, fake.impressions, 3)

	spend, err := fake.GetCampaignSpend(ctx, campaign.ID)
	require.NoError(t, err)
	assert.LessOrEqual(t, spend, campaign.Budget)
}

func TestGetCampaignAnalytics(t *testing.T) {
	ctx := context.Background()
	p, fake := newTestProcessor(t)

	t.Run("zero impressions gives zero ctr", func(t *testing.T) {
		campaign := activeCampaign(t, fake, store.BidTypeCPM, 10000, 100000)

		analytics, err := p.GetCampaignAnalytics(ctx, campaign.AgentID, campaign.ID)
		require.NoError(t, err)
		assert.Zero(t, analytics.CTR)
		assert.Zero(t, analytics.TotalSpend)
		assert.Equal(t, campaign.Budget, analytics.RemainingBudget)
	})

	t.Run("ctr counts clicks and whatsapp clicks", func(t *testing.T) {
		campaign := activeCampaign(t, fake, store.BidTypeFlatFee, 0, 100000)
		for i := 0; i < 4; i++ {
			_, err := fake.InsertAdImpression(ctx, store.InsertAdImpressionParams{
				CampaignID: campaign.ID, EventType: store.EventTypeImpression, SessionID: uuid.NewString(),
			})
			require.NoError(t, err)
		}
		_, err := fake.InsertAdImpression(ctx, store.InsertAdImpressionParams{
			CampaignID: campaign.ID, EventType: store.EventTypeClick, SessionID: uuid.NewString(),
		})
		require.NoError(t, err)
		_, err = fake.InsertAdImpression(ctx, store.InsertAdImpressionParams{
			CampaignID: campaign.ID, EventType: store.EventTypeWhatsAppClick, SessionID: uuid.NewString(),
		})
		require.NoError(t, err)

		analytics, err := p.GetCampaignAnalytics(ctx, campaign.AgentID, campaign.ID)
		require.NoError(t, err)
		assert.Equal(t, 4, analytics.Impressions)
		assert.Equal(t, 1, analytics.Clicks)
		assert.Equal(t, 1, analytics.WhatsAppClicks)
		assert.InDelta(t, 50.0, analytics.CTR, 0.001)
	})

	t.Run("days remaining floors at zero", func(t *testing.T) {
		campaign := activeCampaign(t, fake, store.BidTypeFlatFee, 0, 100000)
		past := fake.campaigns[campaign.ID]
		past.StartAt = time.Now().Add(-72 * time.Hour)
		past.EndAt = time.Now().Add(-48 * time.Hour)
		fake.campaigns[campaign.ID] = past

		analytics, err := p.GetCampaignAnalytics(ctx, campaign.AgentID, campaign.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, analytics.DaysRemaining)
	})
}

func TestSessionID(t *testing.T) {
	at := time.Date(2025, 6, 1, 10, 30, 15, 0, time.UTC)

	a := SessionID("1.2.3.4", "Mozilla/5.0", at)
	b := SessionID("1.2.3.4", "Mozilla/5.0", at.Add(20*time.Second))
	c := SessionID("1.2.3.4", "Mozilla/5.0", at.Add(time.Minute))
	d := SessionID("5.6.7.8", "Mozilla/5.0", at)

	// Same client within the same minute bucket collapses to one session.
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, a, d)
	assert.Len(t, a, 16)
}

func TestActivateCampaign(t *testing.T) {
	ctx := context.Background()
	p, fake := newTestProcessor(t)

	campaign, err := fake.CreateAdCampaign(ctx, store.CreateAdCampaignParams{
		AgentID:      uuid.New(),
		Name:         "Premium run",
		CampaignType: store.CampaignTypePremium,
		Budget:       250000,
		BidType:      store.BidTypeFlatFee,
		StartAt:      time.Now(),
		EndAt:        time.Now().Add(7 * 24 * time.Hour),
	})
	require.NoError(t, err)

	paymentID := "pay_8675309"
	method := "bank_transfer"
	updated, err := p.ActivateCampaign(ctx, campaign.AgentID, campaign.ID, &paymentID, &method)
	require.NoError(t, err)
	assert.Equal(t, store.CampaignStatusActive, updated.Status)

	require.Len(t, fake.transactions, 1)
	txn := fake.transactions[0]
	assert.Equal(t, campaign.Budget, txn.Amount)
	assert.Equal(t, store.TransactionStatusPaid, txn.Status)
	require.NotNil(t, txn.ExternalPaymentID)
	assert.Equal(t, paymentID, *txn.ExternalPaymentID)
}

func TestApplyPaymentUpdate(t *testing.T) {
	ctx := context.Background()
	p, fake := newTestProcessor(t)

	campaign := activeCampaign(t, fake, store.BidTypeFlatFee, 0, 250000)
	txn, err := fake.CreateAdTransaction(ctx, store.CreateAdTransactionParams{
		CampaignID: campaign.ID,
		AgentID:    campaign.AgentID,
		Amount:     campaign.Budget,
		Status:     store.TransactionStatusPending,
	})
	require.NoError(t, err)

	t.Run("valid status is applied", func(t *testing.T) {
		updated, err := p.ApplyPaymentUpdate(ctx, txn.ID, store.TransactionStatusPaid)
		require.NoError(t, err)
		assert.Equal(t, store.TransactionStatusPaid, updated.Status)
		assert.Equal(t, store.TransactionStatusPaid, fake.transactions[0].Status)
	})

	t.Run("unknown provider status is ignored", func(t *testing.T) {
		updated, err := p.ApplyPaymentUpdate(ctx, txn.ID, "settlement_in_progress")
		require.NoError(t, err)
		assert.Equal(t, uuid.Nil, updated.ID)
		assert.Equal(t, store.TransactionStatusPaid, fake.transactions[0].Status)
	})

	t.Run("missing transaction", func(t *testing.T) {
		_, err := p.ApplyPaymentUpdate(ctx, uuid.New(), store.TransactionStatusFailed)
		assert.ErrorIs(t, err, ErrTransactionNotFound)
	})
}

func TestCreateCampaignValidation(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestProcessor(t)
	agentID := uuid.New()

	base := CreateCampaignParams{
		Name:         "Boost",
		CampaignType: store.CampaignTypeFeatured,
		Budget:       100000,
		BidType:      store.BidTypeCPC,
		BidAmount:    2000,
		StartAt:      time.Now(),
		EndAt:        time.Now().Add(24 * time.Hour),
	}

	t.Run("bad campaign type", func(t *testing.T) {
		params := base
		params.CampaignType = "sponsored"
		_, err := p.CreateCampaign(ctx, agentID, params)
		assert.ErrorIs(t, err, ErrInvalidCampaignType)
	})

	t.Run("bad bid type", func(t *testing.T) {
		params := base
		params.BidType = "cpa"
		_, err := p.CreateCampaign(ctx, agentID, params)
		assert.ErrorIs(t, err, ErrInvalidBidType)
	})

	t.Run("end before start", func(t *testing.T) {
		params := base
		params.EndAt = params.StartAt.Add(-time.Hour)
		_, err := p.CreateCampaign(ctx, agentID, params)
		assert.ErrorIs(t, err, ErrInvalidDateRange)
	})

	t.Run("valid campaign starts in draft", func(t *testing.T) {
		campaign, err := p.CreateCampaign(ctx, agentID, base)
		require.NoError(t, err)
		assert.Equal(t, store.CampaignStatusDraft, campaign.Status)
	})
}
