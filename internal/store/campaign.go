package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AdCampaign represents an advertising run for one agent
type AdCampaign struct {
	ID             uuid.UUID `db:"id"`
	AgentID        uuid.UUID `db:"agent_id"`
	Name           string    `db:"name"`
	CampaignType   string    `db:"campaign_type"`
	TargetLocation *string   `db:"target_location"`
	Budget         int64     `db:"budget"`
	BidType        string    `db:"bid_type"`
	BidAmount      int64     `db:"bid_amount"`
	StartAt        time.Time `db:"start_at"`
	EndAt          time.Time `db:"end_at"`
	Status         string    `db:"status"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// CreateAdCampaignParams represents parameters for creating a campaign
type CreateAdCampaignParams struct {
	AgentID        uuid.UUID
	Name           string
	CampaignType   string
	TargetLocation *string
	Budget         int64
	BidType        string
	BidAmount      int64
	StartAt        time.Time
	EndAt          time.Time
}

const sqlCreateAdCampaign = `
INSERT INTO ad_campaigns (agent_id, name, campaign_type, target_location, budget, bid_type, bid_amount, start_at, end_at, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 'draft')
RETURNING id, agent_id, name, campaign_type, target_location, budget, bid_type, bid_amount, start_at, end_at, status, created_at, updated_at
`

// CreateAdCampaign creates a new campaign in draft status
func (s *Store) CreateAdCampaign(ctx context.Context, params CreateAdCampaignParams) (AdCampaign, error) {
	var campaign AdCampaign
	err := s.db.GetContext(ctx, &campaign, sqlCreateAdCampaign,
		params.AgentID,
		params.Name,
		params.CampaignType,
		params.TargetLocation,
		params.Budget,
		params.BidType,
		params.BidAmount,
		params.StartAt,
		params.EndAt)
	if err != nil {
		s.logger.Error(ctx, "failed to create ad campaign", err)
		return AdCampaign{}, fmt.Errorf("failed to create ad campaign: %w", err)
	}
	return campaign, nil
}

const sqlGetAdCampaignByID = `
SELECT id, agent_id, name, campaign_type, target_location, budget, bid_type, bid_amount, start_at, end_at, status, created_at, updated_at
FROM ad_campaigns
WHERE id = $1
`

// GetAdCampaignByID retrieves a campaign by ID
func (s *Store) GetAdCampaignByID(ctx context.Context, campaignID uuid.UUID) (AdCampaign, error) {
	var campaign AdCampaign
	err := s.db.GetContext(ctx, &campaign, sqlGetAdCampaignByID, campaignID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return AdCampaign{}, ErrNotFound
		}
		s.logger.Error(ctx, "failed to get ad campaign by id", err)
		return AdCampaign{}, fmt.Errorf("failed to get ad campaign by id: %w", err)
	}
	return campaign, nil
}

const sqlUpdateAdCampaignStatus = `
UPDATE ad_campaigns
SET status = $2, updated_at = CURRENT_TIMESTAMP
WHERE id = $1
RETURNING id, agent_id, name, campaign_type, target_location, budget, bid_type, bid_amount, start_at, end_at, status, created_at, updated_at
`

// UpdateAdCampaignStatus updates a campaign's status
func (s *Store) UpdateAdCampaignStatus(ctx context.Context, campaignID uuid.UUID, status string) (AdCampaign, error) {
	var campaign AdCampaign
	err := s.db.GetContext(ctx, &campaign, sqlUpdateAdCampaignStatus, campaignID, status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return AdCampaign{}, ErrNotFound
		}
		s.logger.Error(ctx, "failed to update ad campaign status", err)
		return AdCampaign{}, fmt.Errorf("failed to update ad campaign status: %w", err)
	}
	return campaign, nil
}

// ListAdCampaignsParams represents parameters for listing campaigns with filters
type ListAdCampaignsParams struct {
	AgentID uuid.UUID
	Status  *string
	Page    int
	Limit   int
}

// ListAdCampaignsResult represents the result of listing campaigns with pagination
type ListAdCampaignsResult struct {
	Campaigns  []AdCampaign
	TotalCount int
	Page       int
	Limit      int
	TotalPages int
}

// ListAdCampaigns retrieves campaigns for an agent with pagination and an optional status filter
func (s *Store) ListAdCampaigns(ctx context.Context, params ListAdCampaignsParams) (ListAdCampaignsResult, error) {
	query := `SELECT id, agent_id, name, campaign_type, target_location, budget, bid_type, bid_amount, start_at, end_at, status, created_at, updated_at
	          FROM ad_campaigns
	          WHERE agent_id = $1`
	countQuery := `SELECT COUNT(*) FROM ad_campaigns WHERE agent_id = $1`

	args := []interface{}{params.AgentID}
	argCount := 1

	if params.Status != nil {
		argCount++
		query += fmt.Sprintf(" AND status = $%d", argCount)
		countQuery += fmt.Sprintf(" AND status = $%d", argCount)
		args = append(args, *params.Status)
	}

	var totalCount int
	err := s.db.GetContext(ctx, &totalCount, countQuery, args...)
	if err != nil {
		s.logger.Error(ctx, "failed to get total ad campaign count", err)
		return ListAdCampaignsResult{}, fmt.Errorf("failed to get total ad campaign count: %w", err)
	}

	offset := (params.Page - 1) * params.Limit
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argCount+1, argCount+2)
	args = append(args, params.Limit, offset)

	var campaigns []AdCampaign
	err = s.db.SelectContext(ctx, &campaigns, query, args...)
	if err != nil {
		s.logger.Error(ctx, "failed to list ad campaigns", err)
		return ListAdCampaignsResult{}, fmt.Errorf("failed to list ad campaigns: %w", err)
	}

	totalPages := (totalCount + params.Limit - 1) / params.Limit

	return ListAdCampaignsResult{
		Campaigns:  campaigns,
		TotalCount: totalCount,
		Page:       params.Page,
		Limit:      params.Limit,
		TotalPages: totalPages,
	}, nil
}

const sqlCountActiveAdCampaignsByAgentID = `
SELECT COUNT(*) FROM ad_campaigns WHERE agent_id = $1 AND status IN ('draft', 'active', 'paused')
`

// CountActiveAdCampaignsByAgentID counts an agent's campaigns that are not yet finished
func (s *Store) CountActiveAdCampaignsByAgentID(ctx context.Context, agentID uuid.UUID) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, sqlCountActiveAdCampaignsByAgentID, agentID)
	if err != nil {
		s.logger.Error(ctx, "failed to count active ad campaigns", err)
		return 0, fmt.Errorf("failed to count active ad campaigns: %w", err)
	}
	return count, nil
}
