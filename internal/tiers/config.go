package tiers

import "strings"

// TierName represents a membership tier
type TierName string

const (
	TierFree    TierName = "free"
	TierPremium TierName = "premium"
	TierPro     TierName = "pro"
)

// Limit names used by the feature services
const (
	LimitActiveCampaigns       = "active_campaigns"
	LimitMonthlyAIDescriptions = "monthly_ai_descriptions"
)

// TierLimits maps tier names to per-feature limits. A nil entry means
// unlimited.
var TierLimits = map[TierName]map[string]*int{
	TierFree: {
		LimitActiveCampaigns:       intPtr(1),
		LimitMonthlyAIDescriptions: intPtr(5),
	},
	TierPremium: {
		LimitActiveCampaigns:       intPtr(5),
		LimitMonthlyAIDescriptions: intPtr(50),
	},
	TierPro: {
		LimitActiveCampaigns:       nil,
		LimitMonthlyAIDescriptions: intPtr(500),
	},
}

// TierDisplayNames maps tier names to display strings
var TierDisplayNames = map[TierName]string{
	TierFree:    "Free",
	TierPremium: "Premium",
	TierPro:     "Pro",
}

// GetTierForMembership returns the tier for an agent's membership value,
// defaulting to free for anything unrecognized
func GetTierForMembership(membership string) TierName {
	switch TierName(strings.ToLower(membership)) {
	case TierPremium:
		return TierPremium
	case TierPro:
		return TierPro
	default:
		return TierFree
	}
}

// GetTierDisplayName returns the display name for a tier
func GetTierDisplayName(tier TierName) string {
	if name, ok := TierDisplayNames[tier]; ok {
		return name
	}
	return "Free"
}

func intPtr(i int) *int {
	return &i
}
