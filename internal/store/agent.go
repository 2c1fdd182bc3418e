package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Agent represents a property agent account
type Agent struct {
	ID             uuid.UUID `db:"id"`
	Name           string    `db:"name"`
	Email          string    `db:"email"`
	Phone          string    `db:"phone"`
	MembershipTier string    `db:"membership_tier"`
	Active         bool      `db:"active"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

const sqlGetAgentByID = `
SELECT id, name, email, phone, membership_tier, active, created_at, updated_at
FROM agents
WHERE id = $1
`

// GetAgentByID retrieves an agent by ID
func (s *Store) GetAgentByID(ctx context.Context, agentID uuid.UUID) (Agent, error) {
	var agent Agent
	err := s.db.GetContext(ctx, &agent, sqlGetAgentByID, agentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Agent{}, ErrNotFound
		}
		s.logger.Error(ctx, "failed to get agent by id", err)
		return Agent{}, fmt.Errorf("failed to get agent by id: %w", err)
	}
	return agent, nil
}

// AgentLeadLoad pairs an agent with their count of open leads
type AgentLeadLoad struct {
	AgentID   uuid.UUID `db:"agent_id"`
	OpenLeads int       `db:"open_leads"`
}

const sqlGetAgentLeadLoads = `
SELECT a.id AS agent_id,
       COALESCE(COUNT(l.id) FILTER (WHERE l.status IN ('new', 'contacted', 'qualified')), 0)::int AS open_leads
FROM agents a
LEFT JOIN leads l ON l.agent_id = a.id
WHERE a.active = true
GROUP BY a.id
ORDER BY a.created_at ASC
`

// GetAgentLeadLoads returns every active agent with their open-lead count,
// in agent creation order
func (s *Store) GetAgentLeadLoads(ctx context.Context) ([]AgentLeadLoad, error) {
	var loads []AgentLeadLoad
	err := s.db.SelectContext(ctx, &loads, sqlGetAgentLeadLoads)
	if err != nil {
		s.logger.Error(ctx, "failed to get agent lead loads", err)
		return nil, fmt.Errorf("failed to get agent lead loads: %w", err)
	}
	return loads, nil
}
