package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// LeadAssignment is an append-only audit record of a lead being routed to an agent
type LeadAssignment struct {
	ID         uuid.UUID `db:"id"`
	LeadID     uuid.UUID `db:"lead_id"`
	AgentID    uuid.UUID `db:"agent_id"`
	AssignedBy string    `db:"assigned_by"`
	Reason     *string   `db:"reason"`
	CreatedAt  time.Time `db:"created_at"`
}

const sqlInsertLeadAssignment = `
INSERT INTO lead_assignments (lead_id, agent_id, assigned_by, reason)
VALUES ($1, $2, $3, $4)
RETURNING id, lead_id, agent_id, assigned_by, reason, created_at
`

// InsertLeadAssignment records an assignment audit entry
func (s *Store) InsertLeadAssignment(ctx context.Context, leadID, agentID uuid.UUID, assignedBy string, reason *string) (LeadAssignment, error) {
	var assignment LeadAssignment
	err := s.db.GetContext(ctx, &assignment, sqlInsertLeadAssignment, leadID, agentID, assignedBy, reason)
	if err != nil {
		s.logger.Error(ctx, "failed to insert lead assignment", err)
		return LeadAssignment{}, fmt.Errorf("failed to insert lead assignment: %w", err)
	}
	return assignment, nil
}

const sqlListLeadAssignmentsByLeadID = `
SELECT id, lead_id, agent_id, assigned_by, reason, created_at
FROM lead_assignments
WHERE lead_id = $1
ORDER BY created_at ASC
`

// ListLeadAssignmentsByLeadID retrieves a lead's assignment history
func (s *Store) ListLeadAssignmentsByLeadID(ctx context.Context, leadID uuid.UUID) ([]LeadAssignment, error) {
	var assignments []LeadAssignment
	err := s.db.SelectContext(ctx, &assignments, sqlListLeadAssignmentsByLeadID, leadID)
	if err != nil {
		s.logger.Error(ctx, "failed to list lead assignments", err)
		return nil, fmt.Errorf("failed to list lead assignments: %w", err)
	}
	return assignments, nil
}

// LeadNote is an append-only note on a lead
type LeadNote struct {
	ID        uuid.UUID `db:"id"`
	LeadID    uuid.UUID `db:"lead_id"`
	AgentID   uuid.UUID `db:"agent_id"`
	Note      string    `db:"note"`
	CreatedAt time.Time `db:"created_at"`
}

const sqlInsertLeadNote = `
INSERT INTO lead_notes (lead_id, agent_id, note)
VALUES ($1, $2, $3)
RETURNING id, lead_id, agent_id, note, created_at
`

// InsertLeadNote appends a note to a lead
func (s *Store) InsertLeadNote(ctx context.Context, leadID, agentID uuid.UUID, note string) (LeadNote, error) {
	var leadNote LeadNote
	err := s.db.GetContext(ctx, &leadNote, sqlInsertLeadNote, leadID, agentID, note)
	if err != nil {
		s.logger.Error(ctx, "failed to insert lead note", err)
		return LeadNote{}, fmt.Errorf("failed to insert lead note: %w", err)
	}
	return leadNote, nil
}

const sqlListLeadNotesByLeadID = `
SELECT id, lead_id, agent_id, note, created_at
FROM lead_notes
WHERE lead_id = $1
ORDER BY created_at DESC
`

// ListLeadNotesByLeadID retrieves a lead's notes, newest first
func (s *Store) ListLeadNotesByLeadID(ctx context.Context, leadID uuid.UUID) ([]LeadNote, error) {
	var notes []LeadNote
	err := s.db.SelectContext(ctx, &notes, sqlListLeadNotesByLeadID, leadID)
	if err != nil {
		s.logger.Error(ctx, "failed to list lead notes", err)
		return nil, fmt.Errorf("failed to list lead notes: %w", err)
	}
	return notes, nil
}
