package services

import (
	"fmt"
	"log"

	"booking-marketplace/internal/models"
)

// CheckoutService turns a cart into a gateway checkout session backed by a
// pending transaction.
type CheckoutService struct {
	cartRepo        CartRepository
	transactionRepo TransactionRepository
	gateway         PaymentGateway
	returnURL       string
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(cartRepo CartRepository, transactionRepo TransactionRepository, gateway PaymentGateway, returnURL string) *CheckoutService {
	return &CheckoutService{
		cartRepo:        cartRepo,
		transactionRepo: transactionRepo,
		gateway:         gateway,
		returnURL:       returnURL,
	}
}

// CheckoutSession is returned to the client to drive the hosted payment page
type CheckoutSession struct {
	SessionID    string `json:"session_id"`
	ClientSecret string `json:"client_secret"`
	URL          string `json:"url"`
	Amount       int64  `json:"amount"`
}

// CreateSession opens a gateway checkout session for the owner's cart and
// persists the pending transaction. On any failure after the checkout flag
// was set, the flag is rolled back and the reservations are left intact so
// the shopper can retry.
func (s *CheckoutService) CreateSession(ownerID, email string) (*CheckoutSession, error) {
	cart, err := s.cartRepo.GetByOwner(ownerID)
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		return nil, &models.ValidationError{Message: "cart is empty"}
	}

	total := cart.TotalAmount()
	if total <= 0 {
		return nil, &models.ValidationError{Message: "cart total must be greater than zero"}
	}

	if err := s.cartRepo.SetCheckoutStatus(ownerID, true); err != nil {
		return nil, err
	}

	session, err := s.createGatewaySession(ownerID, email, cart, total)
	if err != nil {
		s.rollbackCheckoutFlag(ownerID)
		return nil, fmt.Errorf("%w: %v", models.ErrCheckoutCreationFailed, err)
	}

	tx := &models.Transaction{
		UserID:            ownerID,
		ExternalSessionID: session.ID,
		Amount:            total,
		Status:            models.TransactionPending,
		Type:              models.TransactionPayment,
		Lines:             cart.Lines,
	}
	if _, err := s.transactionRepo.Create(tx); err != nil {
		s.rollbackCheckoutFlag(ownerID)
		return nil, fmt.Errorf("%w: %v", models.ErrCheckoutCreationFailed, err)
	}

	return &CheckoutSession{
		SessionID:    session.ID,
		ClientSecret: session.ClientSecret,
		URL:          session.URL,
		Amount:       total,
	}, nil
}

func (s *CheckoutService) createGatewaySession(ownerID, email string, cart *models.Cart, total int64) (*Session, error) {
	metadata := map[string]string{
		"owner_id":   ownerID,
		"line_count": fmt.Sprintf("%d", len(cart.Lines)),
	}

	return s.gateway.CreateSession(&SessionRequest{
		Email:     email,
		Amount:    total,
		Reference: cart.ID,
		ReturnURL: s.returnURL,
		Metadata:  metadata,
	})
}

func (s *CheckoutService) rollbackCheckoutFlag(ownerID string) {
	if err := s.cartRepo.SetCheckoutStatus(ownerID, false); err != nil {
		log.Printf("checkout: failed to roll back checkout flag for owner %s: %v", ownerID, err)
	}
}

// GetSessionStatus is a read-only passthrough to the gateway
func (s *CheckoutService) GetSessionStatus(sessionID string) (*Session, error) {
	return s.gateway.GetSession(sessionID)
}
