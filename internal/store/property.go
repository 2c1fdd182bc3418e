package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Property represents a listing owned by an agent. Listing CRUD lives in the
// marketplace frontend layer; this package only reads what the core needs.
type Property struct {
	ID           uuid.UUID `db:"id"`
	AgentID      uuid.UUID `db:"agent_id"`
	Title        string    `db:"title"`
	PropertyType string    `db:"property_type"`
	Address      string    `db:"address"`
	City         string    `db:"city"`
	Province     string    `db:"province"`
	Price        int64     `db:"price"`
	Description  string    `db:"description"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

const sqlGetPropertyByID = `
SELECT id, agent_id, title, property_type, address, city, province, price, description, created_at, updated_at
FROM properties
WHERE id = $1
`

// GetPropertyByID retrieves a property by ID
func (s *Store) GetPropertyByID(ctx context.Context, propertyID uuid.UUID) (Property, error) {
	var property Property
	err := s.db.GetContext(ctx, &property, sqlGetPropertyByID, propertyID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Property{}, ErrNotFound
		}
		s.logger.Error(ctx, "failed to get property by id", err)
		return Property{}, fmt.Errorf("failed to get property by id: %w", err)
	}
	return property, nil
}
