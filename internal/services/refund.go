package services

import (
	"fmt"
	"log"

	"booking-marketplace/internal/models"
)

// RefundService reverses ticket, transaction and vendor ledger state and
// asks the gateway for the money back. The local compensations run before
// the gateway call and are deliberately not rolled back if it fails: a
// reconciliation gap is preferred over refunding a customer without
// reversing the books.
type RefundService struct {
	ticketRepo      TicketRepository
	transactionRepo TransactionRepository
	gateway         PaymentGateway
	notifier        Notifier
}

// NewRefundService creates a new refund service
func NewRefundService(ticketRepo TicketRepository, transactionRepo TransactionRepository, gateway PaymentGateway, notifier Notifier) *RefundService {
	return &RefundService{
		ticketRepo:      ticketRepo,
		transactionRepo: transactionRepo,
		gateway:         gateway,
		notifier:        notifier,
	}
}

// RefundTicket refunds a single ticket's unit price. The ticket is
// cancelled (reversing any unpaid vendor credit), then the gateway refund
// is issued and recorded against the parent transaction. notifyEmail, when
// set, gets a best-effort refund notice.
func (s *RefundService) RefundTicket(ticketID, reason, notifyEmail string) (*models.PartialRefund, error) {
	ticket, err := s.ticketRepo.CancelWithReversal(ticketID, models.TicketCancelled, reason)
	if err != nil {
		return nil, err
	}

	tx, err := s.transactionRepo.GetByID(ticket.TransactionID)
	if err != nil {
		return nil, err
	}

	if tx.ExternalPaymentRef == "" {
		return nil, &models.ConflictError{
			Kind:    models.ConflictInvalidTransition,
			Message: fmt.Sprintf("transaction %s has no payment reference; cannot refund an unconfirmed payment", tx.ID),
		}
	}

	refundReason := fmt.Sprintf("%s (ticket %s, transaction %s)", reason, ticket.ID, tx.ID)
	refund, err := s.gateway.CreateRefund(tx.ExternalPaymentRef, ticket.UnitPrice, refundReason)
	if err != nil {
		// The ticket stays cancelled and the ledger reversal stands.
		return nil, err
	}

	entry := &models.PartialRefund{
		TransactionID: tx.ID,
		TicketID:      ticket.ID,
		RefundID:      refund.ID,
		Amount:        ticket.UnitPrice,
		Reason:        reason,
	}
	if err := s.transactionRepo.AppendRefund(entry, models.TransactionPartiallyRefunded); err != nil {
		return nil, err
	}

	if notifyEmail != "" {
		if err := s.notifier.SendRefundNotice(notifyEmail, ticket.UnitPrice, reason); err != nil {
			log.Printf("refund: failed to send refund notice for ticket %s: %v", ticket.ID, err)
		}
	}

	return entry, nil
}

// RefundTransaction refunds whatever remains of a transaction after prior
// partial refunds, cancelling its outstanding tickets first.
func (s *RefundService) RefundTransaction(transactionID, notifyEmail string) (*models.PartialRefund, error) {
	tx, err := s.transactionRepo.GetByID(transactionID)
	if err != nil {
		return nil, err
	}

	tickets, err := s.ticketRepo.ListRefundable(transactionID)
	if err != nil {
		return nil, err
	}
	for _, ticket := range tickets {
		if !ticket.CanTransitionTo(models.TicketCancelled) {
			continue
		}
		if _, err := s.ticketRepo.CancelWithReversal(ticket.ID, models.TicketCancelled, "order refunded"); err != nil {
			return nil, err
		}
	}

	refunded, err := s.transactionRepo.SumRefunds(transactionID)
	if err != nil {
		return nil, err
	}
	remaining := tx.Amount - refunded
	if remaining <= 0 {
		return nil, &models.ConflictError{
			Kind:    models.ConflictAlreadyFullyRefunded,
			Message: fmt.Sprintf("transaction %s is already fully refunded", transactionID),
		}
	}

	if tx.ExternalPaymentRef == "" {
		return nil, &models.ConflictError{
			Kind:    models.ConflictInvalidTransition,
			Message: fmt.Sprintf("transaction %s has no payment reference; cannot refund an unconfirmed payment", tx.ID),
		}
	}

	if err := s.transactionRepo.UpdateStatus(transactionID, models.TransactionRefunded); err != nil {
		return nil, err
	}

	reason := "order refunded"
	refund, err := s.gateway.CreateRefund(tx.ExternalPaymentRef, remaining, fmt.Sprintf("%s (transaction %s)", reason, tx.ID))
	if err != nil {
		// Status stays refunded; the missing gateway refund is a
		// reconciliation item, not something to roll back.
		return nil, err
	}

	entry := &models.PartialRefund{
		TransactionID: tx.ID,
		RefundID:      refund.ID,
		Amount:        remaining,
		Reason:        reason,
	}
	if err := s.transactionRepo.AppendRefund(entry, models.TransactionRefunded); err != nil {
		return nil, err
	}

	if notifyEmail != "" {
		if err := s.notifier.SendRefundNotice(notifyEmail, remaining, reason); err != nil {
			log.Printf("refund: failed to send refund notice for transaction %s: %v", tx.ID, err)
		}
	}

	return entry, nil
}
