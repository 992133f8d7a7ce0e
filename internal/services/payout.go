package services

import (
	"log"

	"booking-marketplace/internal/models"
)

// PayoutService drains a vendor's earned balance into a gateway transfer.
type PayoutService struct {
	payoutRepo PayoutRepository
	vendorRepo VendorRepository
	gateway    PaymentGateway
}

// NewPayoutService creates a new payout service
func NewPayoutService(payoutRepo PayoutRepository, vendorRepo VendorRepository, gateway PaymentGateway) *PayoutService {
	return &PayoutService{
		payoutRepo: payoutRepo,
		vendorRepo: vendorRepo,
		gateway:    gateway,
	}
}

// GetBalance returns a vendor's current earned balance
func (s *PayoutService) GetBalance(vendorID string) (*models.VendorBalance, error) {
	return s.vendorRepo.GetBalance(vendorID)
}

// RequestPayout pays out a vendor's full balance. The balance is debited
// and the payout recorded locally before the gateway transfer; if the
// transfer cannot be created the debit is restored and the payout marked
// failed. Confirmation to succeeded arrives later via the transfer webhook.
func (s *PayoutService) RequestPayout(vendorID string) (*models.Payout, error) {
	payout, err := s.payoutRepo.CreateForFullBalance(vendorID)
	if err != nil {
		return nil, err
	}

	transfer, err := s.gateway.CreateTransfer(vendorID, payout.Amount)
	if err != nil {
		if refundErr := s.payoutRepo.Refund(payout.ID); refundErr != nil {
			log.Printf("payout: failed to restore balance after transfer failure for payout %s: %v", payout.ID, refundErr)
		}
		return nil, err
	}

	if err := s.payoutRepo.SetTransferID(payout.ID, transfer.ID); err != nil {
		return nil, err
	}
	payout.TransferID = transfer.ID

	return payout, nil
}

// ListPayouts returns a vendor's payout history
func (s *PayoutService) ListPayouts(vendorID string) ([]*models.Payout, error) {
	return s.payoutRepo.ListByVendor(vendorID)
}
