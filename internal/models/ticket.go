package models

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// TicketStatus represents the status of a ticket
type TicketStatus string

const (
	TicketActive    TicketStatus = "active"
	TicketRedeemed  TicketStatus = "redeemed"
	TicketCancelled TicketStatus = "cancelled"
	TicketRevoked   TicketStatus = "revoked"
)

// DefaultFeeRate is the platform's cut of a sale, applied when a vendor has
// no specific rate configured.
const DefaultFeeRate = 0.13

// Ticket represents one redeemable entitlement unit created after a
// confirmed payment. VendorOwed is frozen at creation from the fee rate in
// effect at that moment.
type Ticket struct {
	ID            string       `json:"id" db:"id"`
	UserID        string       `json:"user_id" db:"user_id"`
	TransactionID string       `json:"transaction_id" db:"transaction_id"`
	VendorID      string       `json:"vendor_id" db:"vendor_id"`
	ProductItemID string       `json:"product_item_id" db:"product_item_id"`
	UnitPrice     int64        `json:"unit_price" db:"unit_price"` // in minor units
	VendorOwed    int64        `json:"vendor_owed" db:"vendor_owed"`
	VendorPaid    bool         `json:"vendor_paid" db:"vendor_paid"`
	Status        TicketStatus `json:"status" db:"status"`
	StatusReason  string       `json:"status_reason,omitempty" db:"status_reason"`
	CreatedAt     time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at" db:"updated_at"`
}

// Validate validates the ticket data
func (t *Ticket) Validate() error {
	if t.UserID == "" {
		return errors.New("user id is required")
	}

	if t.TransactionID == "" {
		return errors.New("transaction id is required")
	}

	if t.VendorID == "" {
		return errors.New("vendor id is required")
	}

	if t.UnitPrice < 0 {
		return errors.New("unit price cannot be negative")
	}

	return validateTicketStatus(t.Status)
}

func validateTicketStatus(status TicketStatus) error {
	switch status {
	case TicketActive, TicketRedeemed, TicketCancelled, TicketRevoked:
		return nil
	default:
		return fmt.Errorf("invalid ticket status: %s", status)
	}
}

// CanTransitionTo reports whether the ticket may move to the new status.
// Redeemed is reachable only from active; cancelled and revoked are
// terminal. Re-entering redeemed from redeemed is allowed as a no-op.
func (t *Ticket) CanTransitionTo(newStatus TicketStatus) bool {
	switch t.Status {
	case TicketActive:
		return newStatus == TicketRedeemed || newStatus == TicketCancelled || newStatus == TicketRevoked
	case TicketRedeemed:
		return newStatus == TicketRedeemed || newStatus == TicketCancelled || newStatus == TicketRevoked
	default:
		return false
	}
}

// IsTerminal returns true if the ticket is cancelled or revoked
func (t *Ticket) IsTerminal() bool {
	return t.Status == TicketCancelled || t.Status == TicketRevoked
}

// IsRedeemed returns true if the ticket has been redeemed
func (t *Ticket) IsRedeemed() bool {
	return t.Status == TicketRedeemed
}

// CreditPending returns true if redeeming this ticket created a vendor
// credit that has not been paid out yet.
func (t *Ticket) CreditPending() bool {
	return t.Status == TicketRedeemed && !t.VendorPaid
}

// VendorShare computes a vendor's cut of a unit price after the platform
// fee, rounded to the nearest minor unit.
func VendorShare(unitPrice int64, feeRate float64) int64 {
	if feeRate <= 0 {
		return unitPrice
	}
	fee := int64(math.Round(float64(unitPrice) * feeRate))
	return unitPrice - fee
}
