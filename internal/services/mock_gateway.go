package services

import (
	"errors"
	"fmt"

	"booking-marketplace/internal/models"
)

// MockGateway is a test double for the payment gateway. Calls are recorded;
// behavior is overridable per function.
type MockGateway struct {
	CreateSessionFn  func(req *SessionRequest) (*Session, error)
	GetSessionFn     func(sessionID string) (*Session, error)
	CreateRefundFn   func(paymentRef string, amount int64, reason string) (*Refund, error)
	CreateTransferFn func(destination string, amount int64) (*Transfer, error)

	CreatedSessions  []*SessionRequest
	CreatedRefunds   []*Refund
	CreatedTransfers []*Transfer

	FailAll bool
}

// NewMockGateway creates a mock gateway with working defaults
func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

func (m *MockGateway) CreateSession(req *SessionRequest) (*Session, error) {
	if m.FailAll {
		return nil, &models.GatewayError{Op: "create session", Err: errors.New("mock gateway failure")}
	}
	if m.CreateSessionFn != nil {
		return m.CreateSessionFn(req)
	}

	m.CreatedSessions = append(m.CreatedSessions, req)
	n := len(m.CreatedSessions)
	return &Session{
		ID:           fmt.Sprintf("sess_%d", n),
		ClientSecret: fmt.Sprintf("secret_%d", n),
		URL:          fmt.Sprintf("https://gateway.test/pay/sess_%d", n),
		Status:       "open",
		Amount:       req.Amount,
	}, nil
}

func (m *MockGateway) GetSession(sessionID string) (*Session, error) {
	if m.FailAll {
		return nil, &models.GatewayError{Op: "get session", Err: errors.New("mock gateway failure")}
	}
	if m.GetSessionFn != nil {
		return m.GetSessionFn(sessionID)
	}
	return &Session{ID: sessionID, Status: "open"}, nil
}

func (m *MockGateway) CreateRefund(paymentRef string, amount int64, reason string) (*Refund, error) {
	if m.FailAll {
		return nil, &models.GatewayError{Op: "create refund", Err: errors.New("mock gateway failure")}
	}
	if m.CreateRefundFn != nil {
		return m.CreateRefundFn(paymentRef, amount, reason)
	}

	refund := &Refund{
		ID:         fmt.Sprintf("re_%d", len(m.CreatedRefunds)+1),
		PaymentRef: paymentRef,
		Amount:     amount,
		Status:     "pending",
	}
	m.CreatedRefunds = append(m.CreatedRefunds, refund)
	return refund, nil
}

func (m *MockGateway) CreateTransfer(destination string, amount int64) (*Transfer, error) {
	if m.FailAll {
		return nil, &models.GatewayError{Op: "create transfer", Err: errors.New("mock gateway failure")}
	}
	if m.CreateTransferFn != nil {
		return m.CreateTransferFn(destination, amount)
	}

	transfer := &Transfer{
		ID:          fmt.Sprintf("tr_%d", len(m.CreatedTransfers)+1),
		Destination: destination,
		Amount:      amount,
		Status:      "pending",
	}
	m.CreatedTransfers = append(m.CreatedTransfers, transfer)
	return transfer, nil
}

func (m *MockGateway) VerifyWebhookSignature(payload []byte, signature string) bool {
	return signature != "invalid"
}
