package services

import (
	"errors"

	"booking-marketplace/internal/models"
)

// MockNotifier is a test double for the mail notifier
type MockNotifier struct {
	Receipts      []string // recipient emails
	VendorNotices []string // vendor contacts
	RefundNotices []string // recipient emails

	FailSends bool
}

// NewMockNotifier creates a mock notifier
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) SendPurchaseReceipt(email string, tx *models.Transaction, tickets []*models.Ticket) error {
	if m.FailSends {
		return errors.New("mock mail failure")
	}
	m.Receipts = append(m.Receipts, email)
	return nil
}

func (m *MockNotifier) SendVendorSaleNotice(vendorContact string, ticketCount int, amount int64) error {
	if m.FailSends {
		return errors.New("mock mail failure")
	}
	m.VendorNotices = append(m.VendorNotices, vendorContact)
	return nil
}

func (m *MockNotifier) SendRefundNotice(email string, amount int64, reason string) error {
	if m.FailSends {
		return errors.New("mock mail failure")
	}
	m.RefundNotices = append(m.RefundNotices, email)
	return nil
}
