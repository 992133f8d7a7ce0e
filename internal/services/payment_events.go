package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"booking-marketplace/internal/models"
)

// Webhook event types delivered by the payment gateway
const (
	EventSessionCompleted = "checkout.session.completed"
	EventSessionExpired   = "checkout.session.expired"
	EventPaymentFailed    = "payment_intent.payment_failed"
	EventChargeSucceeded  = "charge.succeeded"
	EventTransferCreated  = "transfer.created"
	EventDisputeCreated   = "charge.dispute.created"
	EventChargeRefunded   = "charge.refunded"
)

// WebhookEvent is the envelope every gateway webhook delivers
type WebhookEvent struct {
	ID   string          `json:"id"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type sessionCompletedPayload struct {
	SessionID     string `json:"session_id"`
	PaymentRef    string `json:"payment_ref"`
	CustomerEmail string `json:"customer_email"`
}

type sessionExpiredPayload struct {
	SessionID string `json:"session_id"`
}

type paymentFailedPayload struct {
	SessionID string `json:"session_id"`
	Error     string `json:"error"`
}

type chargeSucceededPayload struct {
	PaymentRef    string          `json:"payment_ref"`
	CustomerEmail string          `json:"customer_email"`
	Detail        json.RawMessage `json:"detail"`
}

type transferCreatedPayload struct {
	TransferID string `json:"transfer_id"`
}

type disputeCreatedPayload struct {
	PaymentRef    string `json:"payment_ref"`
	DisputeID     string `json:"dispute_id"`
	DisputeStatus string `json:"status"`
	Amount        int64  `json:"amount"`
}

type chargeRefundedPayload struct {
	PaymentRef string `json:"payment_ref"`
	Amount     int64  `json:"amount"`
}

// PaymentEventService advances transaction, ticket and payout state in
// response to gateway webhooks. Delivery is at-least-once, possibly out of
// order and possibly duplicated, so every handler keys its mutations on a
// naturally idempotent identifier: the session id, the payment reference or
// the transfer id.
type PaymentEventService struct {
	transactionRepo TransactionRepository
	cartRepo        CartRepository
	inventoryRepo   InventoryRepository
	ticketRepo      TicketRepository
	payoutRepo      PayoutRepository
	tickets         *TicketService
	notifier        Notifier
}

// NewPaymentEventService creates a new payment event service
func NewPaymentEventService(
	transactionRepo TransactionRepository,
	cartRepo CartRepository,
	inventoryRepo InventoryRepository,
	ticketRepo TicketRepository,
	payoutRepo PayoutRepository,
	tickets *TicketService,
	notifier Notifier,
) *PaymentEventService {
	return &PaymentEventService{
		transactionRepo: transactionRepo,
		cartRepo:        cartRepo,
		inventoryRepo:   inventoryRepo,
		ticketRepo:      ticketRepo,
		payoutRepo:      payoutRepo,
		tickets:         tickets,
		notifier:        notifier,
	}
}

// HandleEvent dispatches one webhook event to its handler. Unknown event
// types are acknowledged and ignored.
func (s *PaymentEventService) HandleEvent(event *WebhookEvent) error {
	switch event.Type {
	case EventSessionCompleted:
		return s.handleSessionCompleted(event.Data)
	case EventSessionExpired:
		return s.handleSessionExpired(event.Data)
	case EventPaymentFailed:
		return s.handlePaymentFailed(event.Data)
	case EventChargeSucceeded:
		return s.handleChargeSucceeded(event.Data)
	case EventTransferCreated:
		return s.handleTransferCreated(event.Data)
	case EventDisputeCreated:
		return s.handleDisputeCreated(event.Data)
	case EventChargeRefunded:
		return s.handleChargeRefunded(event.Data)
	default:
		log.Printf("payment events: ignoring unknown event type %q", event.Type)
		return nil
	}
}

// handleSessionCompleted fulfills a paid checkout: the transaction flips to
// succeeded, one ticket is issued per purchased unit, and the cart is
// deleted without returning inventory since the sale consumes the
// reservation. Replays are absorbed by the conditional status flip.
func (s *PaymentEventService) handleSessionCompleted(data json.RawMessage) error {
	var payload sessionCompletedPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("failed to parse session completed payload: %w", err)
	}
	if payload.PaymentRef == "" {
		return errors.New("session completed event carries no payment reference")
	}

	tx, err := s.transactionRepo.GetBySessionID(payload.SessionID)
	if err != nil {
		return fmt.Errorf("failed to resolve transaction for session %s: %w", payload.SessionID, err)
	}

	claimed, err := s.transactionRepo.MarkSucceeded(tx.ID, payload.PaymentRef)
	if err != nil {
		return err
	}
	if !claimed {
		log.Printf("payment events: session %s already fulfilled, skipping", payload.SessionID)
		return nil
	}

	var issued []*models.Ticket
	for _, line := range tx.Lines {
		// A unit deleted between checkout and fulfillment is skipped, not
		// fatal: the remaining lines still get their tickets.
		if _, err := s.inventoryRepo.GetByID(line.ProductItemID); err != nil {
			if models.IsNotFound(err) {
				log.Printf("payment events: inventory unit %s missing during fulfillment of session %s, skipping line",
					line.ProductItemID, payload.SessionID)
				continue
			}
			return err
		}

		for i := 0; i < line.Quantity; i++ {
			ticket, err := s.tickets.CreateTicket(&models.Ticket{
				UserID:        tx.UserID,
				TransactionID: tx.ID,
				VendorID:      line.VendorID,
				ProductItemID: line.ProductItemID,
				UnitPrice:     line.UnitPrice,
			})
			if err != nil {
				return fmt.Errorf("failed to issue ticket for unit %s: %w", line.ProductItemID, err)
			}
			issued = append(issued, ticket)
		}
	}

	if err := s.cartRepo.DeleteByOwner(tx.UserID); err != nil {
		log.Printf("payment events: failed to delete cart for owner %s after fulfillment: %v", tx.UserID, err)
	}

	log.Printf("payment events: session %s fulfilled, %d ticket(s) issued", payload.SessionID, len(issued))
	return nil
}

// handleSessionExpired clears the checkout flag; the reservations stay
// until the idle sweep reclaims them.
func (s *PaymentEventService) handleSessionExpired(data json.RawMessage) error {
	var payload sessionExpiredPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("failed to parse session expired payload: %w", err)
	}

	tx, err := s.transactionRepo.GetBySessionID(payload.SessionID)
	if err != nil {
		return fmt.Errorf("failed to resolve transaction for session %s: %w", payload.SessionID, err)
	}

	if err := s.cartRepo.SetCheckoutStatus(tx.UserID, false); err != nil && !models.IsNotFound(err) {
		return err
	}
	return nil
}

func (s *PaymentEventService) handlePaymentFailed(data json.RawMessage) error {
	var payload paymentFailedPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("failed to parse payment failed payload: %w", err)
	}

	tx, err := s.transactionRepo.GetBySessionID(payload.SessionID)
	if err != nil {
		return fmt.Errorf("failed to resolve transaction for session %s: %w", payload.SessionID, err)
	}

	if err := s.transactionRepo.SetFailed(tx.ID, payload.Error); err != nil {
		return err
	}

	if err := s.cartRepo.SetCheckoutStatus(tx.UserID, false); err != nil && !models.IsNotFound(err) {
		return err
	}
	return nil
}

// handleChargeSucceeded attaches captured-charge detail and fires the
// purchase notifications. Notification failures are logged, never
// propagated.
func (s *PaymentEventService) handleChargeSucceeded(data json.RawMessage) error {
	var payload chargeSucceededPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("failed to parse charge succeeded payload: %w", err)
	}

	tx, err := s.transactionRepo.GetByPaymentRef(payload.PaymentRef)
	if err != nil {
		return fmt.Errorf("failed to resolve transaction for payment ref %s: %w", payload.PaymentRef, err)
	}

	if len(payload.Detail) > 0 {
		if err := s.transactionRepo.SetChargeDetail(tx.ID, string(payload.Detail)); err != nil {
			return err
		}
	}

	if !tx.IsSucceeded() {
		if err := s.transactionRepo.UpdateStatus(tx.ID, models.TransactionSucceeded); err != nil {
			return err
		}
	}

	s.sendPurchaseNotifications(tx, payload.CustomerEmail)
	return nil
}

func (s *PaymentEventService) sendPurchaseNotifications(tx *models.Transaction, customerEmail string) {
	tickets, err := s.ticketRepo.ListByTransaction(tx.ID)
	if err != nil {
		log.Printf("payment events: failed to list tickets for receipt on transaction %s: %v", tx.ID, err)
		return
	}

	if customerEmail != "" {
		if err := s.notifier.SendPurchaseReceipt(customerEmail, tx, tickets); err != nil {
			log.Printf("payment events: failed to send purchase receipt for transaction %s: %v", tx.ID, err)
		}
	}

	type vendorSale struct {
		count  int
		amount int64
	}
	sales := make(map[string]*vendorSale)
	for _, ticket := range tickets {
		sale, ok := sales[ticket.VendorID]
		if !ok {
			sale = &vendorSale{}
			sales[ticket.VendorID] = sale
		}
		sale.count++
		sale.amount += ticket.UnitPrice
	}
	for vendorID, sale := range sales {
		if err := s.notifier.SendVendorSaleNotice(vendorID, sale.count, sale.amount); err != nil {
			log.Printf("payment events: failed to send sale notice to vendor %s: %v", vendorID, err)
		}
	}
}

// handleTransferCreated confirms a vendor payout. A transfer with no local
// payout record is logged and ignored.
func (s *PaymentEventService) handleTransferCreated(data json.RawMessage) error {
	var payload transferCreatedPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("failed to parse transfer created payload: %w", err)
	}

	err := s.payoutRepo.UpdateStatusByTransferID(payload.TransferID, models.PayoutSucceeded)
	if err != nil {
		if models.IsNotFound(err) {
			log.Printf("payment events: no payout found for transfer %s, ignoring", payload.TransferID)
			return nil
		}
		return err
	}
	return nil
}

func (s *PaymentEventService) handleDisputeCreated(data json.RawMessage) error {
	var payload disputeCreatedPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("failed to parse dispute created payload: %w", err)
	}

	tx, err := s.transactionRepo.GetByPaymentRef(payload.PaymentRef)
	if err != nil {
		return fmt.Errorf("failed to resolve transaction for payment ref %s: %w", payload.PaymentRef, err)
	}

	return s.transactionRepo.SetDispute(tx.ID, payload.DisputeID, payload.DisputeStatus, payload.Amount)
}

// handleChargeRefunded only acknowledges the event. Refund state is owned
// by the refund service, which already recorded this refund when it asked
// the gateway for it.
func (s *PaymentEventService) handleChargeRefunded(data json.RawMessage) error {
	var payload chargeRefundedPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("failed to parse charge refunded payload: %w", err)
	}

	log.Printf("payment events: gateway confirmed refund of %d on payment ref %s", payload.Amount, payload.PaymentRef)
	return nil
}
