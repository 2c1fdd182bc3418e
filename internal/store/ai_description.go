package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AIDescription represents one generated text variant for a property.
// Rows are immutable once created.
type AIDescription struct {
	ID            uuid.UUID `db:"id"`
	PropertyID    uuid.UUID `db:"property_id"`
	AgentID       uuid.UUID `db:"agent_id"`
	PromptUsed    string    `db:"prompt_used"`
	Model         string    `db:"model"`
	GeneratedText string    `db:"generated_text"`
	VariantIndex  int       `db:"variant_index"`
	TokensUsed    int       `db:"tokens_used"`
	CostIncurred  int       `db:"cost_incurred"`
	CreatedAt     time.Time `db:"created_at"`
}

// InsertAIDescriptionParams represents parameters for persisting one variant
type InsertAIDescriptionParams struct {
	PropertyID    uuid.UUID
	AgentID       uuid.UUID
	PromptUsed    string
	Model         string
	GeneratedText string
	VariantIndex  int
	TokensUsed    int
	CostIncurred  int
}

const sqlInsertAIDescription = `
INSERT INTO ai_descriptions (property_id, agent_id, prompt_used, model, generated_text, variant_index, tokens_used, cost_incurred)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id, property_id, agent_id, prompt_used, model, generated_text, variant_index, tokens_used, cost_incurred, created_at
`

// InsertAIDescriptions persists a batch of generated variants in one transaction
func (s *Store) InsertAIDescriptions(ctx context.Context, params []InsertAIDescriptionParams) ([]AIDescription, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.Error(ctx, "failed to begin ai description transaction", err)
		return nil, fmt.Errorf("failed to begin ai description transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	descriptions := make([]AIDescription, 0, len(params))
	for _, p := range params {
		var description AIDescription
		err := tx.GetContext(ctx, &description, sqlInsertAIDescription,
			p.PropertyID,
			p.AgentID,
			p.PromptUsed,
			p.Model,
			p.GeneratedText,
			p.VariantIndex,
			p.TokensUsed,
			p.CostIncurred)
		if err != nil {
			s.logger.Error(ctx, "failed to insert ai description", err)
			return nil, fmt.Errorf("failed to insert ai description: %w", err)
		}
		descriptions = append(descriptions, description)
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error(ctx, "failed to commit ai descriptions", err)
		return nil, fmt.Errorf("failed to commit ai descriptions: %w", err)
	}
	return descriptions, nil
}

const sqlListAIDescriptionsByPropertyID = `
SELECT id, property_id, agent_id, prompt_used, model, generated_text, variant_index, tokens_used, cost_incurred, created_at
FROM ai_descriptions
WHERE property_id = $1
ORDER BY created_at DESC, variant_index ASC
`

// ListAIDescriptionsByPropertyID retrieves all generated variants for a property
func (s *Store) ListAIDescriptionsByPropertyID(ctx context.Context, propertyID uuid.UUID) ([]AIDescription, error) {
	var descriptions []AIDescription
	err := s.db.SelectContext(ctx, &descriptions, sqlListAIDescriptionsByPropertyID, propertyID)
	if err != nil {
		s.logger.Error(ctx, "failed to list ai descriptions by property id", err)
		return nil, fmt.Errorf("failed to list ai descriptions by property id: %w", err)
	}
	return descriptions, nil
}

const sqlCountAIDescriptionsByAgentIDSince = `
SELECT COUNT(*) FROM ai_descriptions WHERE agent_id = $1 AND created_at >= $2
`

// CountAIDescriptionsByAgentIDSince counts variants generated by an agent since
// the given time; used for membership quota checks
func (s *Store) CountAIDescriptionsByAgentIDSince(ctx context.Context, agentID uuid.UUID, since time.Time) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, sqlCountAIDescriptionsByAgentIDSince, agentID, since)
	if err != nil {
		s.logger.Error(ctx, "failed to count ai descriptions by agent id", err)
		return 0, fmt.Errorf("failed to count ai descriptions by agent id: %w", err)
	}
	return count, nil
}
