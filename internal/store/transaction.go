package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AdTransaction represents a billing record tied to a campaign
type AdTransaction struct {
	ID                uuid.UUID `db:"id"`
	CampaignID        uuid.UUID `db:"campaign_id"`
	AgentID           uuid.UUID `db:"agent_id"`
	Amount            int64     `db:"amount"`
	PaymentMethod     *string   `db:"payment_method"`
	ExternalPaymentID *string   `db:"external_payment_id"`
	Status            string    `db:"status"`
	Notes             *string   `db:"notes"`
	CreatedAt         time.Time `db:"created_at"`
	UpdatedAt         time.Time `db:"updated_at"`
}

// CreateAdTransactionParams represents parameters for recording a billing entry
type CreateAdTransactionParams struct {
	CampaignID        uuid.UUID
	AgentID           uuid.UUID
	Amount            int64
	PaymentMethod     *string
	ExternalPaymentID *string
	Status            string
	Notes             *string
}

const sqlCreateAdTransaction = `
INSERT INTO ad_transactions (campaign_id, agent_id, amount, payment_method, external_payment_id, status, notes)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, campaign_id, agent_id, amount, payment_method, external_payment_id, status, notes, created_at, updated_at
`

// CreateAdTransaction records a billing entry for a campaign
func (s *Store) CreateAdTransaction(ctx context.Context, params CreateAdTransactionParams) (AdTransaction, error) {
	var txn AdTransaction
	err := s.db.GetContext(ctx, &txn, sqlCreateAdTransaction,
		params.CampaignID,
		params.AgentID,
		params.Amount,
		params.PaymentMethod,
		params.ExternalPaymentID,
		params.Status,
		params.Notes)
	if err != nil {
		s.logger.Error(ctx, "failed to create ad transaction", err)
		return AdTransaction{}, fmt.Errorf("failed to create ad transaction: %w", err)
	}
	return txn, nil
}

const sqlUpdateAdTransactionStatus = `
UPDATE ad_transactions
SET status = $2, updated_at = CURRENT_TIMESTAMP
WHERE id = $1
RETURNING id, campaign_id, agent_id, amount, payment_method, external_payment_id, status, notes, created_at, updated_at
`

// UpdateAdTransactionStatus updates a transaction's payment status
func (s *Store) UpdateAdTransactionStatus(ctx context.Context, transactionID uuid.UUID, status string) (AdTransaction, error) {
	var txn AdTransaction
	err := s.db.GetContext(ctx, &txn, sqlUpdateAdTransactionStatus, transactionID, status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return AdTransaction{}, ErrNotFound
		}
		s.logger.Error(ctx, "failed to update ad transaction status", err)
		return AdTransaction{}, fmt.Errorf("failed to update ad transaction status: %w", err)
	}
	return txn, nil
}

const sqlGetAdTransactionsByCampaignID = `
SELECT id, campaign_id, agent_id, amount, payment_method, external_payment_id, status, notes, created_at, updated_at
FROM ad_transactions
WHERE campaign_id = $1
ORDER BY created_at DESC
`

// GetAdTransactionsByCampaignID retrieves all billing entries for a campaign
func (s *Store) GetAdTransactionsByCampaignID(ctx context.Context, campaignID uuid.UUID) ([]AdTransaction, error) {
	var txns []AdTransaction
	err := s.db.SelectContext(ctx, &txns, sqlGetAdTransactionsByCampaignID, campaignID)
	if err != nil {
		s.logger.Error(ctx, "failed to get ad transactions by campaign id", err)
		return nil, fmt.Errorf("failed to get ad transactions by campaign id: %w", err)
	}
	return txns, nil
}
