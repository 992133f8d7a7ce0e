package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// TransactionStatus represents the lifecycle state of a transaction
type TransactionStatus string

const (
	TransactionPending           TransactionStatus = "pending"
	TransactionProcessing        TransactionStatus = "processing"
	TransactionSucceeded         TransactionStatus = "succeeded"
	TransactionFailed            TransactionStatus = "failed"
	TransactionRefunded          TransactionStatus = "refunded"
	TransactionPartiallyRefunded TransactionStatus = "partially_refunded"
	TransactionDisputed          TransactionStatus = "disputed"
)

// TransactionType distinguishes payments from refunds and vendor payouts
type TransactionType string

const (
	TransactionPayment TransactionType = "payment"
	TransactionRefund  TransactionType = "refund"
	TransactionPayout  TransactionType = "payout"
)

// Transaction represents the gateway-backed record of one checkout attempt
// and its lifecycle. ExternalSessionID is unique among payment transactions;
// ExternalPaymentRef is set once the gateway confirms the charge.
type Transaction struct {
	ID                 string            `json:"id" db:"id"`
	UserID             string            `json:"user_id" db:"user_id"`
	ExternalSessionID  string            `json:"external_session_id" db:"external_session_id"`
	ExternalPaymentRef string            `json:"external_payment_ref" db:"external_payment_ref"`
	Amount             int64             `json:"amount" db:"amount"` // in minor units
	Status             TransactionStatus `json:"status" db:"status"`
	Type               TransactionType   `json:"type" db:"type"`
	Lines              []CartLine        `json:"lines"` // metadata snapshot of the cart at checkout
	GatewayError       string            `json:"gateway_error,omitempty" db:"gateway_error"`
	DisputeID          string            `json:"dispute_id,omitempty" db:"dispute_id"`
	DisputeStatus      string            `json:"dispute_status,omitempty" db:"dispute_status"`
	DisputeAmount      int64             `json:"dispute_amount,omitempty" db:"dispute_amount"`
	ChargeDetail       string            `json:"charge_detail,omitempty" db:"charge_detail"`
	CreatedAt          time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at" db:"updated_at"`
}

// PartialRefund represents one appended refund entry against a transaction
type PartialRefund struct {
	ID            string    `json:"id" db:"id"`
	TransactionID string    `json:"transaction_id" db:"transaction_id"`
	TicketID      string    `json:"ticket_id" db:"ticket_id"`
	RefundID      string    `json:"refund_id" db:"refund_id"`
	Amount        int64     `json:"amount" db:"amount"`
	Reason        string    `json:"reason" db:"reason"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// Validate validates the transaction data
func (t *Transaction) Validate() error {
	if t.UserID == "" {
		return errors.New("user id is required")
	}

	if t.Amount <= 0 {
		return errors.New("amount must be greater than zero")
	}

	if err := validateTransactionStatus(t.Status); err != nil {
		return err
	}

	return validateTransactionType(t.Type)
}

func validateTransactionStatus(status TransactionStatus) error {
	switch status {
	case TransactionPending, TransactionProcessing, TransactionSucceeded,
		TransactionFailed, TransactionRefunded, TransactionPartiallyRefunded,
		TransactionDisputed:
		return nil
	default:
		return fmt.Errorf("invalid transaction status: %s", status)
	}
}

func validateTransactionType(txType TransactionType) error {
	switch txType {
	case TransactionPayment, TransactionRefund, TransactionPayout:
		return nil
	default:
		return fmt.Errorf("invalid transaction type: %s", txType)
	}
}

// IsTerminal returns true if no further lifecycle transitions are expected
func (t *Transaction) IsTerminal() bool {
	switch t.Status {
	case TransactionFailed, TransactionRefunded, TransactionDisputed:
		return true
	default:
		return false
	}
}

// IsSucceeded returns true once the gateway has confirmed payment
func (t *Transaction) IsSucceeded() bool {
	return t.Status == TransactionSucceeded ||
		t.Status == TransactionPartiallyRefunded ||
		t.Status == TransactionRefunded
}

// MarshalLines encodes the line snapshot for the metadata column
func (t *Transaction) MarshalLines() (string, error) {
	data, err := json.Marshal(t.Lines)
	if err != nil {
		return "", fmt.Errorf("failed to marshal line snapshot: %w", err)
	}
	return string(data), nil
}

// UnmarshalLines decodes the metadata column into the line snapshot
func (t *Transaction) UnmarshalLines(metadata string) error {
	if metadata == "" {
		t.Lines = nil
		return nil
	}
	if err := json.Unmarshal([]byte(metadata), &t.Lines); err != nil {
		return fmt.Errorf("failed to unmarshal line snapshot: %w", err)
	}
	return nil
}

// AmountInCurrency returns the amount in the main currency as a float
func (t *Transaction) AmountInCurrency() float64 {
	return float64(t.Amount) / 100.0
}
