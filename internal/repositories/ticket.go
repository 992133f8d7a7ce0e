package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"booking-marketplace/internal/models"

	"github.com/google/uuid"
)

// TicketRepository handles ticket data operations. Redemption and
// cancellation touch the vendor balance in the same database transaction as
// the status change, so a credit can never exist without its redeemed
// ticket or survive the ticket's reversal.
type TicketRepository struct {
	db *sql.DB
}

// NewTicketRepository creates a new ticket repository
func NewTicketRepository(db *sql.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

const ticketColumns = `id, user_id, transaction_id, vendor_id, product_item_id, unit_price,
		vendor_owed, vendor_paid, status, status_reason, created_at, updated_at`

// Create creates a new ticket
func (r *TicketRepository) Create(ticket *models.Ticket) (*models.Ticket, error) {
	if err := ticket.Validate(); err != nil {
		return nil, &models.ValidationError{Message: err.Error()}
	}

	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}
	if ticket.Status == "" {
		ticket.Status = models.TicketActive
	}

	now := time.Now().UTC()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now

	_, err := r.db.Exec(`
		INSERT INTO tickets (id, user_id, transaction_id, vendor_id, product_item_id, unit_price, vendor_owed, vendor_paid, status, status_reason, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ticket.ID, ticket.UserID, ticket.TransactionID, ticket.VendorID,
		ticket.ProductItemID, ticket.UnitPrice, ticket.VendorOwed, ticket.VendorPaid,
		ticket.Status, ticket.StatusReason, ticket.CreatedAt, ticket.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create ticket: %w", err)
	}

	return ticket, nil
}

// GetByID retrieves a ticket by ID
func (r *TicketRepository) GetByID(id string) (*models.Ticket, error) {
	ticket := &models.Ticket{}
	err := scanTicket(r.db.QueryRow(
		"SELECT "+ticketColumns+" FROM tickets WHERE id = ?", id), ticket)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, &models.NotFoundError{Resource: "ticket", ID: id}
		}
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}
	return ticket, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTicket(row rowScanner, t *models.Ticket) error {
	return row.Scan(
		&t.ID, &t.UserID, &t.TransactionID, &t.VendorID, &t.ProductItemID,
		&t.UnitPrice, &t.VendorOwed, &t.VendorPaid, &t.Status, &t.StatusReason,
		&t.CreatedAt, &t.UpdatedAt)
}

// ListByTransaction returns every ticket issued for a transaction
func (r *TicketRepository) ListByTransaction(transactionID string) ([]*models.Ticket, error) {
	return r.list("SELECT "+ticketColumns+" FROM tickets WHERE transaction_id = ? ORDER BY created_at ASC", transactionID)
}

// ListRefundable returns a transaction's tickets that have not already been
// cancelled by a refund.
func (r *TicketRepository) ListRefundable(transactionID string) ([]*models.Ticket, error) {
	return r.list(`
		SELECT `+ticketColumns+` FROM tickets
		WHERE transaction_id = ? AND status != ?
		ORDER BY created_at ASC`, transactionID, models.TicketCancelled)
}

func (r *TicketRepository) list(query string, args ...interface{}) ([]*models.Ticket, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tickets: %w", err)
	}
	defer rows.Close()

	var tickets []*models.Ticket
	for rows.Next() {
		ticket := &models.Ticket{}
		if err := scanTicket(rows, ticket); err != nil {
			return nil, fmt.Errorf("failed to scan ticket: %w", err)
		}
		tickets = append(tickets, ticket)
	}

	return tickets, rows.Err()
}

// Redeem moves an active ticket to redeemed and credits the vendor's
// balance with the ticket's frozen share, atomically. Redeeming a ticket
// that is already redeemed succeeds without crediting again.
func (r *TicketRepository) Redeem(id string) (*models.Ticket, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	ticket := &models.Ticket{}
	err = scanTicket(tx.QueryRow(
		"SELECT "+ticketColumns+" FROM tickets WHERE id = ?", id), ticket)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, &models.NotFoundError{Resource: "ticket", ID: id}
		}
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}

	if ticket.IsRedeemed() {
		return ticket, tx.Commit()
	}
	if !ticket.CanTransitionTo(models.TicketRedeemed) {
		return nil, &models.ConflictError{
			Kind:    models.ConflictInvalidTransition,
			Message: fmt.Sprintf("ticket %s cannot be redeemed from status %s", id, ticket.Status),
		}
	}

	now := time.Now().UTC()

	// The status precondition repeats inside the update so a concurrent
	// redeem cannot credit the vendor twice.
	res, err := tx.Exec(`
		UPDATE tickets SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		models.TicketRedeemed, now, id, models.TicketActive)
	if err != nil {
		return nil, fmt.Errorf("failed to redeem ticket: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return nil, &models.ConflictError{
			Kind:    models.ConflictInvalidTransition,
			Message: fmt.Sprintf("ticket %s changed status during redemption", id),
		}
	}

	if err := creditVendorBalance(tx, ticket.VendorID, ticket.VendorOwed); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit redemption: %w", err)
	}

	ticket.Status = models.TicketRedeemed
	ticket.UpdatedAt = now
	return ticket, nil
}

// UpdateStatus moves a ticket to a new status after checking the
// transition, recording the reason.
func (r *TicketRepository) UpdateStatus(id string, status models.TicketStatus, reason string) (*models.Ticket, error) {
	ticket, err := r.GetByID(id)
	if err != nil {
		return nil, err
	}

	if ticket.Status == status {
		return ticket, nil
	}
	if !ticket.CanTransitionTo(status) {
		return nil, &models.ConflictError{
			Kind:    models.ConflictInvalidTransition,
			Message: fmt.Sprintf("ticket %s cannot move from %s to %s", id, ticket.Status, status),
		}
	}

	now := time.Now().UTC()
	res, err := r.db.Exec(`
		UPDATE tickets SET status = ?, status_reason = ?, updated_at = ?
		WHERE id = ? AND status = ?`, status, reason, now, id, ticket.Status)
	if err != nil {
		return nil, fmt.Errorf("failed to update ticket status: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return nil, &models.ConflictError{
			Kind:    models.ConflictInvalidTransition,
			Message: fmt.Sprintf("ticket %s changed status concurrently", id),
		}
	}

	ticket.Status = status
	ticket.StatusReason = reason
	ticket.UpdatedAt = now
	return ticket, nil
}

// CancelWithReversal moves a ticket to the given terminal status and, if
// redeeming it created a vendor credit that has not been paid out, debits
// that credit back out in the same database transaction. The balance is
// allowed to go negative.
func (r *TicketRepository) CancelWithReversal(id string, status models.TicketStatus, reason string) (*models.Ticket, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	ticket := &models.Ticket{}
	err = scanTicket(tx.QueryRow(
		"SELECT "+ticketColumns+" FROM tickets WHERE id = ?", id), ticket)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, &models.NotFoundError{Resource: "ticket", ID: id}
		}
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}

	if !ticket.CanTransitionTo(status) {
		return nil, &models.ConflictError{
			Kind:    models.ConflictInvalidTransition,
			Message: fmt.Sprintf("ticket %s cannot move from %s to %s", id, ticket.Status, status),
		}
	}

	reverseCredit := ticket.CreditPending()
	now := time.Now().UTC()

	res, err := tx.Exec(`
		UPDATE tickets SET status = ?, status_reason = ?, updated_at = ?
		WHERE id = ? AND status = ?`, status, reason, now, id, ticket.Status)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel ticket: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return nil, &models.ConflictError{
			Kind:    models.ConflictInvalidTransition,
			Message: fmt.Sprintf("ticket %s changed status concurrently", id),
		}
	}

	if reverseCredit {
		if err := creditVendorBalance(tx, ticket.VendorID, -ticket.VendorOwed); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit ticket cancellation: %w", err)
	}

	ticket.Status = status
	ticket.StatusReason = reason
	ticket.UpdatedAt = now
	return ticket, nil
}

// markVendorTicketsPaid flags a vendor's redeemed, unpaid tickets as
// covered by a payout, inside the caller's transaction.
func markVendorTicketsPaid(e execer, vendorID string) error {
	_, err := e.Exec(`
		UPDATE tickets SET vendor_paid = 1, updated_at = ?
		WHERE vendor_id = ? AND status = ? AND vendor_paid = 0`,
		time.Now().UTC(), vendorID, models.TicketRedeemed)
	if err != nil {
		return fmt.Errorf("failed to mark vendor tickets paid: %w", err)
	}
	return nil
}
