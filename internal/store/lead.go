package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Lead represents a prospective customer inquiry
type Lead struct {
	ID              uuid.UUID  `db:"id"`
	PropertyID      *uuid.UUID `db:"property_id"`
	AgentID         *uuid.UUID `db:"agent_id"`
	UserName        string     `db:"user_name"`
	UserPhone       string     `db:"user_phone"`
	UserEmail       *string    `db:"user_email"`
	Source          string     `db:"source"`
	Message         string     `db:"message"`
	Status          string     `db:"status"`
	Priority        string     `db:"priority"`
	Score           float64    `db:"score"`
	LastContactedAt *time.Time `db:"last_contacted_at"`
	ConvertedAt     *time.Time `db:"converted_at"`
	CreatedAt       time.Time  `db:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"`
}

// CreateLeadParams represents parameters for creating a lead
type CreateLeadParams struct {
	PropertyID *uuid.UUID
	AgentID    *uuid.UUID
	UserName   string
	UserPhone  string
	UserEmail  *string
	Source     string
	Message    string
	Priority   string
}

const sqlCreateLead = `
INSERT INTO leads (property_id, agent_id, user_name, user_phone, user_email, source, message, status, priority, score)
VALUES ($1, $2, $3, $4, $5, $6, $7, 'new', $8, 0)
RETURNING id, property_id, agent_id, user_name, user_phone, user_email, source, message, status, priority, score, last_contacted_at, converted_at, created_at, updated_at
`

// CreateLead creates a new lead with status=new and a zero score
func (s *Store) CreateLead(ctx context.Context, params CreateLeadParams) (Lead, error) {
	var lead Lead
	err := s.db.GetContext(ctx, &lead, sqlCreateLead,
		params.PropertyID,
		params.AgentID,
		params.UserName,
		params.UserPhone,
		params.UserEmail,
		params.Source,
		params.Message,
		params.Priority)
	if err != nil {
		s.logger.Error(ctx, "failed to create lead", err)
		return Lead{}, fmt.Errorf("failed to create lead: %w", err)
	}
	return lead, nil
}

const sqlGetLeadByID = `
SELECT id, property_id, agent_id, user_name, user_phone, user_email, source, message, status, priority, score, last_contacted_at, converted_at, created_at, updated_at
FROM leads
WHERE id = $1
`

// GetLeadByID retrieves a lead by ID
func (s *Store) GetLeadByID(ctx context.Context, leadID uuid.UUID) (Lead, error) {
	var lead Lead
	err := s.db.GetContext(ctx, &lead, sqlGetLeadByID, leadID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Lead{}, ErrNotFound
		}
		s.logger.Error(ctx, "failed to get lead by id", err)
		return Lead{}, fmt.Errorf("failed to get lead by id: %w", err)
	}
	return lead, nil
}

const sqlGetLatestLeadByPhone = `
SELECT id, property_id, agent_id, user_name, user_phone, user_email, source, message, status, priority, score, last_contacted_at, converted_at, created_at, updated_at
FROM leads
WHERE user_phone = $1
ORDER BY created_at DESC
LIMIT 1
`

// GetLatestLeadByPhone retrieves the most recent lead for a phone number
func (s *Store) GetLatestLeadByPhone(ctx context.Context, phone string) (Lead, error) {
	var lead Lead
	err := s.db.GetContext(ctx, &lead, sqlGetLatestLeadByPhone, phone)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Lead{}, ErrNotFound
		}
		s.logger.Error(ctx, "failed to get latest lead by phone", err)
		return Lead{}, fmt.Errorf("failed to get latest lead by phone: %w", err)
	}
	return lead, nil
}

const sqlUpdateLeadScore = `
UPDATE leads
SET score = $2, updated_at = CURRENT_TIMESTAMP
WHERE id = $1
RETURNING id, property_id, agent_id, user_name, user_phone, user_email, source, message, status, priority, score, last_contacted_at, converted_at, created_at, updated_at
`

// UpdateLeadScore writes the computed score back onto the lead row
func (s *Store) UpdateLeadScore(ctx context.Context, leadID uuid.UUID, score float64) (Lead, error) {
	var lead Lead
	err := s.db.GetContext(ctx, &lead, sqlUpdateLeadScore, leadID, score)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Lead{}, ErrNotFound
		}
		s.logger.Error(ctx, "failed to update lead score", err)
		return Lead{}, fmt.Errorf("failed to update lead score: %w", err)
	}
	return lead, nil
}

const sqlAssignLead = `
UPDATE leads
SET agent_id = $2, updated_at = CURRENT_TIMESTAMP
WHERE id = $1
RETURNING id, property_id, agent_id, user_name, user_phone, user_email, source, message, status, priority, score, last_contacted_at, converted_at, created_at, updated_at
`

// AssignLead sets the lead's owning agent
func (s *Store) AssignLead(ctx context.Context, leadID, agentID uuid.UUID) (Lead, error) {
	var lead Lead
	err := s.db.GetContext(ctx, &lead, sqlAssignLead, leadID, agentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Lead{}, ErrNotFound
		}
		s.logger.Error(ctx, "failed to assign lead", err)
		return Lead{}, fmt.Errorf("failed to assign lead: %w", err)
	}
	return lead, nil
}

const sqlUpdateLeadStatus = `
UPDATE leads
SET status = $2,
    last_contacted_at = CASE WHEN $2 = 'contacted' THEN CURRENT_TIMESTAMP ELSE last_contacted_at END,
    converted_at = CASE WHEN $2 = 'converted' THEN CURRENT_TIMESTAMP ELSE converted_at END,
    updated_at = CURRENT_TIMESTAMP
WHERE id = $1
RETURNING id, property_id, agent_id, user_name, user_phone, user_email, source, message, status, priority, score, last_contacted_at, converted_at, created_at, updated_at
`

// UpdateLeadStatus performs a caller-directed status write, stamping the
// contact/conversion timestamps as a side effect
func (s *Store) UpdateLeadStatus(ctx context.Context, leadID uuid.UUID, status string) (Lead, error) {
	var lead Lead
	err := s.db.GetContext(ctx, &lead, sqlUpdateLeadStatus, leadID, status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Lead{}, ErrNotFound
		}
		s.logger.Error(ctx, "failed to update lead status", err)
		return Lead{}, fmt.Errorf("failed to update lead status: %w", err)
	}
	return lead, nil
}

// ListLeadsParams represents parameters for listing leads with filters
type ListLeadsParams struct {
	AgentID uuid.UUID
	Status  *string
	Page    int
	Limit   int
}

// ListLeadsResult represents the result of listing leads with pagination
type ListLeadsResult struct {
	Leads      []Lead
	TotalCount int
	Page       int
	Limit      int
	TotalPages int
}

// ListLeads retrieves an agent's leads ordered by score, hottest first
func (s *Store) ListLeads(ctx context.Context, params ListLeadsParams) (ListLeadsResult, error) {
	query := `SELECT id, property_id, agent_id, user_name, user_phone, user_email, source, message, status, priority, score, last_contacted_at, converted_at, created_at, updated_at
	          FROM leads
	          WHERE agent_id = $1`
	countQuery := `SELECT COUNT(*) FROM leads WHERE agent_id = $1`

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
		s.logger.Error(ctx, "failed to get total lead count", err)
		return ListLeadsResult{}, fmt.Errorf("failed to get total lead count: %w", err)
	}

	offset := (params.Page - 1) * params.Limit
	query += fmt.Sprintf(" ORDER BY score DESC, created_at DESC LIMIT $%d OFFSET $%d", argCount+1, argCount+2)
	args = append(args, params.Limit, offset)

	var leads []Lead
	err = s.db.SelectContext(ctx, &leads, query, args...)
	if err != nil {
		s.logger.Error(ctx, "failed to list leads", err)
		return ListLeadsResult{}, fmt.Errorf("failed to list leads: %w", err)
	}

	totalPages := (totalCount + params.Limit - 1) / params.Limit

	return ListLeadsResult{
		Leads:      leads,
		TotalCount: totalCount,
		Page:       params.Page,
		Limit:      params.Limit,
		TotalPages: totalPages,
	}, nil
}
