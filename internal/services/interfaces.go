package services

import (
	"time"

	"booking-marketplace/internal/models"
)

// Repository interfaces consumed by the service layer. Concrete
// implementations live in the repositories package; tests substitute mocks.

// CartRepository defines cart data operations
type CartRepository interface {
	GetByOwner(ownerID string) (*models.Cart, error)
	AddItem(ownerID, productItemID string, quantity int) (*models.Cart, error)
	RemoveItem(ownerID, productItemID string) error
	Clear(ownerID string) error
	SetCheckoutStatus(ownerID string, inProgress bool) error
	DeleteByOwner(ownerID string) error
	FindIdle(cutoff time.Time) ([]*models.Cart, error)
	FindStuckCheckout(cutoff time.Time) ([]*models.Cart, error)
	Reclaim(cartID string) error
	ForceClearCheckout(cartID string) error
}

// InventoryRepository defines inventory unit data operations
type InventoryRepository interface {
	Create(unit *models.InventoryUnit) (*models.InventoryUnit, error)
	GetByID(id string) (*models.InventoryUnit, error)
	AtomicAdjustQuantity(id string, delta int, requiredStatus models.UnitStatus, requiredMinimum int) error
	ReturnQuantity(id string, quantity int) error
}

// TransactionRepository defines transaction data operations
type TransactionRepository interface {
	Create(tx *models.Transaction) (*models.Transaction, error)
	GetByID(id string) (*models.Transaction, error)
	GetBySessionID(sessionID string) (*models.Transaction, error)
	GetByPaymentRef(paymentRef string) (*models.Transaction, error)
	MarkSucceeded(id, paymentRef string) (bool, error)
	UpdateStatus(id string, status models.TransactionStatus) error
	SetFailed(id, gatewayError string) error
	SetDispute(id, disputeID, disputeStatus string, amount int64) error
	SetChargeDetail(id, detail string) error
	AppendRefund(refund *models.PartialRefund, newStatus models.TransactionStatus) error
	SumRefunds(transactionID string) (int64, error)
	ListRefunds(transactionID string) ([]models.PartialRefund, error)
}

// TicketRepository defines ticket data operations
type TicketRepository interface {
	Create(ticket *models.Ticket) (*models.Ticket, error)
	GetByID(id string) (*models.Ticket, error)
	ListByTransaction(transactionID string) ([]*models.Ticket, error)
	ListRefundable(transactionID string) ([]*models.Ticket, error)
	Redeem(id string) (*models.Ticket, error)
	UpdateStatus(id string, status models.TicketStatus, reason string) (*models.Ticket, error)
	CancelWithReversal(id string, status models.TicketStatus, reason string) (*models.Ticket, error)
}

// VendorRepository defines vendor balance data operations
type VendorRepository interface {
	GetBalance(vendorID string) (*models.VendorBalance, error)
	AdjustBalance(vendorID string, delta int64) error
}

// PayoutRepository defines payout data operations
type PayoutRepository interface {
	CreateForFullBalance(vendorID string) (*models.Payout, error)
	SetTransferID(id, transferID string) error
	Refund(id string) error
	GetByTransferID(transferID string) (*models.Payout, error)
	UpdateStatusByTransferID(transferID string, status models.PayoutStatus) error
	ListByVendor(vendorID string) ([]*models.Payout, error)
}

// PaymentGateway defines the outbound payment gateway operations
type PaymentGateway interface {
	CreateSession(req *SessionRequest) (*Session, error)
	GetSession(sessionID string) (*Session, error)
	CreateRefund(paymentRef string, amount int64, reason string) (*Refund, error)
	CreateTransfer(destination string, amount int64) (*Transfer, error)
	VerifyWebhookSignature(payload []byte, signature string) bool
}

// Notifier defines best-effort outbound notifications. Destination
// addresses are assumed resolved upstream.
type Notifier interface {
	SendPurchaseReceipt(email string, tx *models.Transaction, tickets []*models.Ticket) error
	SendVendorSaleNotice(vendorContact string, ticketCount int, amount int64) error
	SendRefundNotice(email string, amount int64, reason string) error
}
