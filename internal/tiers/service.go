package tiers

import (
	"context"

	"holanu-server/internal/observability"
	"holanu-server/internal/store"

	"github.com/google/uuid"
)

// TierStore defines the database operations required by TierService
type TierStore interface {
	GetAgentByID(ctx context.Context, agentID uuid.UUID) (store.Agent, error)
}

// TierService resolves membership tiers and their feature limits
type TierService struct {
	store  TierStore
	logger *observability.Logger
}

// New creates a new TierService
func New(store TierStore, logger *observability.Logger) *TierService {
	return &TierService{
		store:  store,
		logger: logger,
	}
}

// TierInfo represents the complete tier information for an agent
type TierInfo struct {
	TierName    string          `json:"tier_name"`
	DisplayName string          `json:"display_name"`
	Limits      map[string]*int `json:"limits"`
}

// GetTierInfoByAgentID retrieves tier information for an agent
func (s *TierService) GetTierInfoByAgentID(ctx context.Context, agentID uuid.UUID) (TierInfo, error) {
	ctx = observability.WithFields(ctx,
		observability.Field{Key: "operation", Value: "get_tier_info"},
		observability.Field{Key: "agent_id", Value: agentID.String()},
	)

	agent, err := s.store.GetAgentByID(ctx, agentID)
	if err != nil {
		s.logger.Error(ctx, "failed to get agent for tier lookup", err)
		return TierInfo{}, err
	}

	tierName := GetTierForMembership(agent.MembershipTier)
	return TierInfo{
		TierName:    string(tierName),
		DisplayName: GetTierDisplayName(tierName),
		Limits:      TierLimits[tierName],
	}, nil
}

// GetLimitByAgentID returns the limit value for an agent (nil means unlimited)
func (s *TierService) GetLimitByAgentID(ctx context.Context, agentID uuid.UUID, limitName string) (*int, error) {
	tierInfo, err := s.GetTierInfoByAgentID(ctx, agentID)
	if err != nil {
		return nil, err
	}

	return tierInfo.Limits[limitName], nil
}
