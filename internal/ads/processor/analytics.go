package processor

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
)

// Analytics summarizes the recorded events and budget position of a campaign
type Analytics struct {
	CampaignID      uuid.UUID `json:"campaign_id"`
	Impressions     int       `json:"impressions"`
	Clicks          int       `json:"clicks"`
	WhatsAppClicks  int       `json:"whatsapp_clicks"`
	CTR             float64   `json:"ctr"`
	TotalSpend      int64     `json:"total_spend"`
	RemainingBudget int64     `json:"remaining_budget"`
	DaysRemaining   int       `json:"days_remaining"`
}

// GetCampaignAnalytics aggregates all recorded events for a campaign. Pure
// read-side; no side effects.
func (p *AdsProcessor) GetCampaignAnalytics(ctx context.Context, agentID, campaignID uuid.UUID) (Analytics, error) {
	campaign, err := p.GetCampaign(ctx, agentID, campaignID)
	if err != nil {
		return Analytics{}, err
	}

	counts, err := p.store.GetCampaignEventCounts(ctx, campaignID)
	if err != nil {
		p.logger.Error(ctx, "failed to get campaign event counts", err)
		return Analytics{}, err
	}

	var ctr float64
	if counts.Impressions > 0 {
		ctr = float64(counts.Clicks+counts.WhatsAppClicks) / float64(counts.Impressions) * 100
	}

	daysRemaining := int(math.Ceil(time.Until(campaign.EndAt).Hours() / 24))
	if daysRemaining < 0 {
		daysRemaining = 0
	}

	return Analytics{
		CampaignID:      campaign.ID,
		Impressions:     counts.Impressions,
		Clicks:          counts.Clicks,
		WhatsAppClicks:  counts.WhatsAppClicks,
		CTR:             ctr,
		TotalSpend:      counts.TotalSpend,
		RemainingBudget: campaign.Budget - counts.TotalSpend,
		DaysRemaining:   daysRemaining,
	}, nil
}
