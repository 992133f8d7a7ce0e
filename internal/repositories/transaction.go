package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"booking-marketplace/internal/models"

	"github.com/google/uuid"
)

// TransactionRepository handles transaction data operations
type TransactionRepository struct {
	db *sql.DB
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

const transactionColumns = `id, user_id, external_session_id, external_payment_ref, amount, status, type,
		metadata, gateway_error, dispute_id, dispute_status, dispute_amount, charge_detail, created_at, updated_at`

// Create creates a new transaction with its line snapshot
func (r *TransactionRepository) Create(tx *models.Transaction) (*models.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return nil, &models.ValidationError{Message: err.Error()}
	}

	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}

	metadata, err := tx.MarshalLines()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	tx.CreatedAt = now
	tx.UpdatedAt = now

	_, err = r.db.Exec(`
		INSERT INTO transactions (id, user_id, external_session_id, external_payment_ref, amount, status, type, metadata, gateway_error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.UserID, tx.ExternalSessionID, tx.ExternalPaymentRef,
		tx.Amount, tx.Status, tx.Type, metadata, tx.GatewayError,
		tx.CreatedAt, tx.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	return tx, nil
}

// GetByID retrieves a transaction by ID
func (r *TransactionRepository) GetByID(id string) (*models.Transaction, error) {
	return r.getOne("id = ?", id)
}

// GetBySessionID retrieves the payment transaction for a gateway session
func (r *TransactionRepository) GetBySessionID(sessionID string) (*models.Transaction, error) {
	return r.getOne("external_session_id = ? AND type = 'payment'", sessionID)
}

// GetByPaymentRef retrieves the payment transaction for a gateway payment reference
func (r *TransactionRepository) GetByPaymentRef(paymentRef string) (*models.Transaction, error) {
	return r.getOne("external_payment_ref = ? AND type = 'payment'", paymentRef)
}

func (r *TransactionRepository) getOne(where string, args ...interface{}) (*models.Transaction, error) {
	tx := &models.Transaction{}
	var metadata string
	err := r.db.QueryRow(
		"SELECT "+transactionColumns+" FROM transactions WHERE "+where, args...).Scan(
		&tx.ID,
		&tx.UserID,
		&tx.ExternalSessionID,
		&tx.ExternalPaymentRef,
		&tx.Amount,
		&tx.Status,
		&tx.Type,
		&metadata,
		&tx.GatewayError,
		&tx.DisputeID,
		&tx.DisputeStatus,
		&tx.DisputeAmount,
		&tx.ChargeDetail,
		&tx.CreatedAt,
		&tx.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, &models.NotFoundError{Resource: "transaction"}
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	if err := tx.UnmarshalLines(metadata); err != nil {
		return nil, err
	}

	return tx, nil
}

// MarkSucceeded records the gateway's confirmation atomically: the status
// flips to succeeded and the payment reference is stored only if the
// transaction is still pending or processing. Zero rows affected means
// another delivery of the same event got here first.
func (r *TransactionRepository) MarkSucceeded(id, paymentRef string) (bool, error) {
	res, err := r.db.Exec(`
		UPDATE transactions
		SET status = ?, external_payment_ref = ?, updated_at = ?
		WHERE id = ? AND status IN (?, ?)`,
		models.TransactionSucceeded, paymentRef, time.Now().UTC(),
		id, models.TransactionPending, models.TransactionProcessing)
	if err != nil {
		return false, fmt.Errorf("failed to mark transaction succeeded: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows > 0, nil
}

// UpdateStatus sets a transaction's status
func (r *TransactionRepository) UpdateStatus(id string, status models.TransactionStatus) error {
	res, err := r.db.Exec(`
		UPDATE transactions SET status = ?, updated_at = ?
		WHERE id = ?`, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update transaction status: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return &models.NotFoundError{Resource: "transaction", ID: id}
	}

	return nil
}

// SetFailed marks a transaction failed and records the gateway's error detail
func (r *TransactionRepository) SetFailed(id, gatewayError string) error {
	res, err := r.db.Exec(`
		UPDATE transactions SET status = ?, gateway_error = ?, updated_at = ?
		WHERE id = ?`, models.TransactionFailed, gatewayError, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to mark transaction failed: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return &models.NotFoundError{Resource: "transaction", ID: id}
	}

	return nil
}

// SetDispute records dispute details and marks the transaction disputed
func (r *TransactionRepository) SetDispute(id, disputeID, disputeStatus string, amount int64) error {
	res, err := r.db.Exec(`
		UPDATE transactions SET status = ?, dispute_id = ?, dispute_status = ?, dispute_amount = ?, updated_at = ?
		WHERE id = ?`,
		models.TransactionDisputed, disputeID, disputeStatus, amount, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to record dispute: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return &models.NotFoundError{Resource: "transaction", ID: id}
	}

	return nil
}

// SetChargeDetail stores the charge breakdown reported by the gateway
func (r *TransactionRepository) SetChargeDetail(id, detail string) error {
	res, err := r.db.Exec(`
		UPDATE transactions SET charge_detail = ?, updated_at = ?
		WHERE id = ?`, detail, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to set charge detail: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return &models.NotFoundError{Resource: "transaction", ID: id}
	}

	return nil
}

// AppendRefund records one refund entry and moves the transaction to the
// given refund status in a single transaction.
func (r *TransactionRepository) AppendRefund(refund *models.PartialRefund, newStatus models.TransactionStatus) error {
	dbTx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	if refund.ID == "" {
		refund.ID = uuid.NewString()
	}
	refund.CreatedAt = time.Now().UTC()

	_, err = dbTx.Exec(`
		INSERT INTO transaction_refunds (id, transaction_id, ticket_id, refund_id, amount, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		refund.ID, refund.TransactionID, refund.TicketID,
		refund.RefundID, refund.Amount, refund.Reason, refund.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append refund entry: %w", err)
	}

	res, err := dbTx.Exec(`
		UPDATE transactions SET status = ?, updated_at = ?
		WHERE id = ?`, newStatus, refund.CreatedAt, refund.TransactionID)
	if err != nil {
		return fmt.Errorf("failed to update transaction refund status: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return &models.NotFoundError{Resource: "transaction", ID: refund.TransactionID}
	}

	if err = dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit refund entry: %w", err)
	}

	return nil
}

// SumRefunds returns the total amount already refunded against a transaction
func (r *TransactionRepository) SumRefunds(transactionID string) (int64, error) {
	var total int64
	err := r.db.QueryRow(`
		SELECT COALESCE(SUM(amount), 0) FROM transaction_refunds
		WHERE transaction_id = ?`, transactionID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum refunds: %w", err)
	}
	return total, nil
}

// ListRefunds returns the refund entries for a transaction, oldest first
func (r *TransactionRepository) ListRefunds(transactionID string) ([]models.PartialRefund, error) {
	rows, err := r.db.Query(`
		SELECT id, transaction_id, ticket_id, refund_id, amount, reason, created_at
		FROM transaction_refunds
		WHERE transaction_id = ?
		ORDER BY created_at ASC`, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list refunds: %w", err)
	}
	defer rows.Close()

	var refunds []models.PartialRefund
	for rows.Next() {
		var ref models.PartialRefund
		err := rows.Scan(&ref.ID, &ref.TransactionID, &ref.TicketID, &ref.RefundID, &ref.Amount, &ref.Reason, &ref.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan refund entry: %w", err)
		}
		refunds = append(refunds, ref)
	}

	return refunds, rows.Err()
}
