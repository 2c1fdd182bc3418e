package processor

import (
	"context"

	"holanu-server/internal/store"

	"github.com/google/uuid"
)

// Assigner picks an agent for a new lead. A nil agent id with a nil error
// means no agent is currently eligible.
type Assigner interface {
	Assign(ctx context.Context, lead store.Lead) (*uuid.UUID, error)
}

// AssignerStore is the subset of the store the default assigner needs
type AssignerStore interface {
	GetAgentLeadLoads(ctx context.Context) ([]store.AgentLeadLoad, error)
}

// LeastLoadedAssigner routes each lead to the active agent with the fewest
// open leads, breaking ties by agent seniority (creation order). Assignment
// does not currently condition on the lead's score; the score is available
// to strategies that want it.
type LeastLoadedAssigner struct {
	store AssignerStore
}

func NewLeastLoadedAssigner(store AssignerStore) *LeastLoadedAssigner {
	return &LeastLoadedAssigner{store: store}
}

func (a *LeastLoadedAssigner) Assign(ctx context.Context, _ store.Lead) (*uuid.UUID, error) {
	loads, err := a.store.GetAgentLeadLoads(ctx)
	if err != nil {
		return nil, err
	}
	if len(loads) == 0 {
		return nil, nil
	}

	best := loads[0]
	for _, load := range loads[1:] {
		if load.OpenLeads < best.OpenLeads {
			best = load
		}
	}
	return &best.AgentID, nil
}
