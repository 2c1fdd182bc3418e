package processor

import "holanu-server/internal/store"

// Scorer ranks a freshly created lead. Higher score means hotter lead.
type Scorer interface {
	Score(lead store.Lead) float64
}

// DefaultScorer is a placeholder heuristic, not a tuned model. The weights
// below encode only the ordering intuition (direct contact beats passive
// browsing, engaged messages beat empty ones); swap in a real strategy via
// the Scorer interface when one exists.
type DefaultScorer struct{}

const maxLeadScore = 100

var sourceBaseScores = map[string]float64{
	store.LeadSourceWhatsApp:    40,
	store.LeadSourceCall:        35,
	store.LeadSourceContactForm: 30,
	store.LeadSourceWebsite:     20,
}

func (DefaultScorer) Score(lead store.Lead) float64 {
	score := sourceBaseScores[lead.Source]

	switch {
	case len(lead.Message) >= 100:
		score += 20
	case len(lead.Message) >= 20:
		score += 10
	case len(lead.Message) > 0:
		score += 5
	}

	if lead.UserEmail != nil && *lead.UserEmail != "" {
		score += 10
	}
	if lead.PropertyID != nil {
		score += 15
	}
	if lead.Priority == store.LeadPriorityHigh {
		score += 10
	}

	if score > maxLeadScore {
		score = maxLeadScore
	}
	return score
}
