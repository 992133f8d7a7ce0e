package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"booking-marketplace/internal/models"

	"github.com/google/uuid"
)

// PayoutRepository handles payout data operations
type PayoutRepository struct {
	db *sql.DB
}

// NewPayoutRepository creates a new payout repository
func NewPayoutRepository(db *sql.DB) *PayoutRepository {
	return &PayoutRepository{db: db}
}

// CreateForFullBalance drains a vendor's entire balance into a pending
// payout, atomically: the debit, the payout row and the paid flag on the
// vendor's redeemed tickets all commit together. A vendor with nothing
// accrued gets a conflict, not an empty payout.
func (r *PayoutRepository) CreateForFullBalance(vendorID string) (*models.Payout, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var balance int64
	err = tx.QueryRow("SELECT balance FROM vendor_balances WHERE vendor_id = ?", vendorID).Scan(&balance)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to read vendor balance: %w", err)
	}
	if balance <= 0 {
		return nil, &models.ConflictError{
			Kind:    models.ConflictNothingOwed,
			Message: fmt.Sprintf("vendor %s has no balance to pay out", vendorID),
		}
	}

	if err := debitVendorBalance(tx, vendorID, balance); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	payout := &models.Payout{
		ID:        uuid.NewString(),
		VendorID:  vendorID,
		Amount:    balance,
		Status:    models.PayoutPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err = tx.Exec(`
		INSERT INTO payouts (id, vendor_id, amount, transfer_id, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		payout.ID, payout.VendorID, payout.Amount, payout.TransferID,
		payout.Status, payout.CreatedAt, payout.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create payout: %w", err)
	}

	if err := markVendorTicketsPaid(tx, vendorID); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit payout: %w", err)
	}

	return payout, nil
}

// SetTransferID records the gateway transfer reference on a payout
func (r *PayoutRepository) SetTransferID(id, transferID string) error {
	res, err := r.db.Exec(`
		UPDATE payouts SET transfer_id = ?, updated_at = ?
		WHERE id = ?`, transferID, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to set payout transfer id: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return &models.NotFoundError{Resource: "payout", ID: id}
	}

	return nil
}

// Refund restores a failed payout's amount to the vendor's balance and
// marks the payout failed, atomically.
func (r *PayoutRepository) Refund(id string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var vendorID string
	var amount int64
	err = tx.QueryRow("SELECT vendor_id, amount FROM payouts WHERE id = ? AND status = ?", id, models.PayoutPending).
		Scan(&vendorID, &amount)
	if err != nil {
		if err == sql.ErrNoRows {
			return &models.NotFoundError{Resource: "pending payout", ID: id}
		}
		return fmt.Errorf("failed to read payout: %w", err)
	}

	if _, err = tx.Exec(`
		UPDATE payouts SET status = ?, updated_at = ?
		WHERE id = ?`, models.PayoutFailed, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("failed to mark payout failed: %w", err)
	}

	if err := creditVendorBalance(tx, vendorID, amount); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit payout refund: %w", err)
	}

	return nil
}

// GetByTransferID retrieves a payout by its gateway transfer reference
func (r *PayoutRepository) GetByTransferID(transferID string) (*models.Payout, error) {
	payout := &models.Payout{}
	err := r.db.QueryRow(`
		SELECT id, vendor_id, amount, transfer_id, status, created_at, updated_at
		FROM payouts
		WHERE transfer_id = ?`, transferID).Scan(
		&payout.ID, &payout.VendorID, &payout.Amount, &payout.TransferID,
		&payout.Status, &payout.CreatedAt, &payout.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, &models.NotFoundError{Resource: "payout"}
		}
		return nil, fmt.Errorf("failed to get payout: %w", err)
	}
	return payout, nil
}

// UpdateStatusByTransferID moves the payout matching a transfer reference
// to the given status.
func (r *PayoutRepository) UpdateStatusByTransferID(transferID string, status models.PayoutStatus) error {
	res, err := r.db.Exec(`
		UPDATE payouts SET status = ?, updated_at = ?
		WHERE transfer_id = ?`, status, time.Now().UTC(), transferID)
	if err != nil {
		return fmt.Errorf("failed to update payout status: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return &models.NotFoundError{Resource: "payout"}
	}

	return nil
}

// ListByVendor returns a vendor's payouts, newest first
func (r *PayoutRepository) ListByVendor(vendorID string) ([]*models.Payout, error) {
	rows, err := r.db.Query(`
		SELECT id, vendor_id, amount, transfer_id, status, created_at, updated_at
		FROM payouts
		WHERE vendor_id = ?
		ORDER BY created_at DESC`, vendorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payouts: %w", err)
	}
	defer rows.Close()

	var payouts []*models.Payout
	for rows.Next() {
		payout := &models.Payout{}
		err := rows.Scan(&payout.ID, &payout.VendorID, &payout.Amount, &payout.TransferID,
			&payout.Status, &payout.CreatedAt, &payout.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payout: %w", err)
		}
		payouts = append(payouts, payout)
	}

	return payouts, rows.Err()
}
