package processor

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"holanu-server/internal/observability"
	"holanu-server/internal/store"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// dedupWindow is how long an identical (campaign, session, event) tuple is
// suppressed after being recorded.
const dedupWindow = 30 * time.Second

// TrackMeta carries the client attributes of one tracking call
type TrackMeta struct {
	IP        string
	UserAgent string
	Referrer  string
}

// SessionID derives a short client fingerprint from the request attributes
// and a minute-truncated timestamp. It exists only to deduplicate rapid
// repeat events, not to identify users.
func SessionID(ip, userAgent string, at time.Time) string {
	bucket := at.UTC().Truncate(time.Minute)
	sum := blake2b.Sum256([]byte(fmt.Sprintf("%s|%s|%d", ip, userAgent, bucket.Unix())))
	return hex.EncodeToString(sum[:8])
}

// TrackImpression records one ad event for an active campaign. Every policy
// rejection (missing campaign, inactive status, outside date window,
// non-billable event, budget exhausted, duplicate) is a silent no-op: the
// tracking endpoint serves public browser contexts and must never error back
// to them. Only store failures return an error.
func (p *AdsProcessor) TrackImpression(ctx context.Context, campaignID uuid.UUID, propertyID *uuid.UUID, eventType string, meta TrackMeta) error {
	ctx = observability.WithFields(ctx,
		observability.Field{Key: "campaign_id", Value: campaignID.String()},
		observability.Field{Key: "event_type", Value: eventType},
	)

	campaign, err := p.store.GetAdCampaignByID(ctx, campaignID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}
	if campaign.Status != store.CampaignStatusActive {
		return nil
	}

	now := time.Now()
	if now.Before(campaign.StartAt) || now.After(campaign.EndAt) {
		return nil
	}

	cost, billable := CalculateCost(campaign.BidType, campaign.BidAmount, eventType)
	if !billable {
		return nil
	}

	if cost > 0 {
		spend, err := p.store.GetCampaignSpend(ctx, campaignID)
		if err != nil {
			return err
		}
		if spend+cost > campaign.Budget {
			p.logger.Info(ctx, "discarding event that would exceed campaign budget")
			return nil
		}
	}

	sessionID := SessionID(meta.IP, meta.UserAgent, now)

	duplicate, err := p.store.HasRecentAdImpression(ctx, campaignID, sessionID, eventType, now.Add(-dedupWindow))
	if err != nil {
		return err
	}
	if duplicate {
		return nil
	}

	_, err = p.store.InsertAdImpression(ctx, store.InsertAdImpressionParams{
		CampaignID:   campaignID,
		PropertyID:   propertyID,
		EventType:    eventType,
		SessionID:    sessionID,
		CostIncurred: cost,
		Meta: store.JSONB{
			"ip":         meta.IP,
			"user_agent": meta.UserAgent,
			"referrer":   meta.Referrer,
		},
	})
	if err != nil {
		return err
	}

	return nil
}
