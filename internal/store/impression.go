package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AdImpression represents one attributed ad event. Rows are append-only.
type AdImpression struct {
	ID           uuid.UUID  `db:"id"`
	CampaignID   uuid.UUID  `db:"campaign_id"`
	PropertyID   *uuid.UUID `db:"property_id"`
	EventType    string     `db:"event_type"`
	SessionID    string     `db:"session_id"`
	CostIncurred int64      `db:"cost_incurred"`
	Meta         JSONB      `db:"meta"`
	CreatedAt    time.Time  `db:"created_at"`
}

// InsertAdImpressionParams represents parameters for recording an impression
type InsertAdImpressionParams struct {
	CampaignID   uuid.UUID
	PropertyID   *uuid.UUID
	EventType    string
	SessionID    string
	CostIncurred int64
	Meta         JSONB
}

const sqlInsertAdImpression = `
INSERT INTO ad_impressions (campaign_id, property_id, event_type, session_id, cost_incurred, meta)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, campaign_id, property_id, event_type, session_id, cost_incurred, meta, created_at
`

// InsertAdImpression records a single ad event
func (s *Store) InsertAdImpression(ctx context.Context, params InsertAdImpressionParams) (AdImpression, error) {
	var impression AdImpression
	err := s.db.GetContext(ctx, &impression, sqlInsertAdImpression,
		params.CampaignID,
		params.PropertyID,
		params.EventType,
		params.SessionID,
		params.CostIncurred,
		params.Meta)
	if err != nil {
		s.logger.Error(ctx, "failed to insert ad impression", err)
		return AdImpression{}, fmt.Errorf("failed to insert ad impression: %w", err)
	}
	return impression, nil
}

const sqlGetCampaignSpend = `
SELECT COALESCE(SUM(cost_incurred), 0) FROM ad_impressions WHERE campaign_id = $1
`

// GetCampaignSpend returns the cumulative cost of all recorded events for a campaign
func (s *Store) GetCampaignSpend(ctx context.Context, campaignID uuid.UUID) (int64, error) {
	var spend int64
	err := s.db.GetContext(ctx, &spend, sqlGetCampaignSpend, campaignID)
	if err != nil {
		s.logger.Error(ctx, "failed to get campaign spend", err)
		return 0, fmt.Errorf("failed to get campaign spend: %w", err)
	}
	return spend, nil
}

const sqlHasRecentAdImpression = `
SELECT EXISTS (
    SELECT 1 FROM ad_impressions
    WHERE campaign_id = $1 AND session_id = $2 AND event_type = $3 AND created_at > $4
)
`

// HasRecentAdImpression reports whether the same (campaign, session, event) was
// already recorded after the given cutoff
func (s *Store) HasRecentAdImpression(ctx context.Context, campaignID uuid.UUID, sessionID, eventType string, since time.Time) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, sqlHasRecentAdImpression, campaignID, sessionID, eventType, since)
	if err != nil {
		s.logger.Error(ctx, "failed to check recent ad impression", err)
		return false, fmt.Errorf("failed to check recent ad impression: %w", err)
	}
	return exists, nil
}

// CampaignEventCounts holds per-event tallies and total spend for a campaign
type CampaignEventCounts struct {
	Impressions    int   `db:"impressions"`
	Clicks         int   `db:"clicks"`
	WhatsAppClicks int   `db:"whatsapp_clicks"`
	TotalSpend     int64 `db:"total_spend"`
}

const sqlGetCampaignEventCounts = `
SELECT
    COALESCE(COUNT(*) FILTER (WHERE event_type = 'impression'), 0)::int AS impressions,
    COALESCE(COUNT(*) FILTER (WHERE event_type = 'click'), 0)::int AS clicks,
    COALESCE(COUNT(*) FILTER (WHERE event_type = 'whatsapp_click'), 0)::int AS whatsapp_clicks,
    COALESCE(SUM(cost_incurred), 0) AS total_spend
FROM ad_impressions
WHERE campaign_id = $1
`

// GetCampaignEventCounts aggregates recorded events for a campaign
func (s *Store) GetCampaignEventCounts(ctx context.Context, campaignID uuid.UUID) (CampaignEventCounts, error) {
	var counts CampaignEventCounts
	err := s.db.GetContext(ctx, &counts, sqlGetCampaignEventCounts, campaignID)
	if err != nil {
		s.logger.Error(ctx, "failed to get campaign event counts", err)
		return CampaignEventCounts{}, fmt.Errorf("failed to get campaign event counts: %w", err)
	}
	return counts, nil
}
