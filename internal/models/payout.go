package models

import (
	"errors"
	"time"
)

// PayoutStatus represents the status of a vendor payout
type PayoutStatus string

const (
	PayoutPending   PayoutStatus = "pending"
	PayoutSucceeded PayoutStatus = "succeeded"
	PayoutFailed    PayoutStatus = "failed"
)

// Payout represents one transfer of earned balance to a vendor. TransferID
// is the gateway's transfer identifier and is what the transfer-created
// webhook keys on.
type Payout struct {
	ID         string       `json:"id" db:"id"`
	VendorID   string       `json:"vendor_id" db:"vendor_id"`
	Amount     int64        `json:"amount" db:"amount"` // in minor units
	TransferID string       `json:"transfer_id" db:"transfer_id"`
	Status     PayoutStatus `json:"status" db:"status"`
	CreatedAt  time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at" db:"updated_at"`
}

// Validate validates the payout data
func (p *Payout) Validate() error {
	if p.VendorID == "" {
		return errors.New("vendor id is required")
	}

	if p.Amount <= 0 {
		return errors.New("payout amount must be greater than zero")
	}

	return validatePayoutStatus(p.Status)
}

func validatePayoutStatus(status PayoutStatus) error {
	switch status {
	case PayoutPending, PayoutSucceeded, PayoutFailed:
		return nil
	default:
		return errors.New("invalid payout status")
	}
}

// IsPending returns true if the transfer has not been confirmed yet
func (p *Payout) IsPending() bool {
	return p.Status == PayoutPending
}

// VendorBalance represents a vendor's earned, not-yet-paid-out funds.
// Refund reversals may push it negative.
type VendorBalance struct {
	VendorID  string    `json:"vendor_id" db:"vendor_id"`
	Balance   int64     `json:"balance" db:"balance"` // in minor units
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
