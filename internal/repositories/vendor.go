package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"booking-marketplace/internal/models"
)

// VendorRepository handles vendor balance data operations
type VendorRepository struct {
	db *sql.DB
}

// NewVendorRepository creates a new vendor repository
func NewVendorRepository(db *sql.DB) *VendorRepository {
	return &VendorRepository{db: db}
}

// GetBalance retrieves a vendor's balance. A vendor with no balance row yet
// has a zero balance.
func (r *VendorRepository) GetBalance(vendorID string) (*models.VendorBalance, error) {
	balance := &models.VendorBalance{}
	err := r.db.QueryRow(`
		SELECT vendor_id, balance, created_at, updated_at
		FROM vendor_balances
		WHERE vendor_id = ?`, vendorID).Scan(
		&balance.VendorID, &balance.Balance, &balance.CreatedAt, &balance.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			now := time.Now().UTC()
			return &models.VendorBalance{VendorID: vendorID, CreatedAt: now, UpdatedAt: now}, nil
		}
		return nil, fmt.Errorf("failed to get vendor balance: %w", err)
	}
	return balance, nil
}

// AdjustBalance applies a signed delta to a vendor's balance, creating the
// row if needed. Negative balances are permitted.
func (r *VendorRepository) AdjustBalance(vendorID string, delta int64) error {
	return creditVendorBalance(r.db, vendorID, delta)
}

// creditVendorBalance upserts a vendor's balance by a signed delta inside
// the caller's transaction or directly on the pool.
func creditVendorBalance(e execer, vendorID string, delta int64) error {
	now := time.Now().UTC()
	_, err := e.Exec(`
		INSERT INTO vendor_balances (vendor_id, balance, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (vendor_id)
		DO UPDATE SET balance = balance + excluded.balance, updated_at = excluded.updated_at`,
		vendorID, delta, now, now)
	if err != nil {
		return fmt.Errorf("failed to adjust vendor balance: %w", err)
	}
	return nil
}

// debitVendorBalance subtracts amount from a vendor's balance only if the
// full amount is covered. Zero rows affected means the balance moved since
// it was read.
func debitVendorBalance(e execer, vendorID string, amount int64) error {
	res, err := e.Exec(`
		UPDATE vendor_balances
		SET balance = balance - ?, updated_at = ?
		WHERE vendor_id = ? AND balance >= ?`,
		amount, time.Now().UTC(), vendorID, amount)
	if err != nil {
		return fmt.Errorf("failed to debit vendor balance: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return &models.ConflictError{
			Kind:    models.ConflictNothingOwed,
			Message: fmt.Sprintf("vendor %s balance no longer covers %d", vendorID, amount),
		}
	}

	return nil
}
