package services

import (
	"booking-marketplace/internal/models"
)

// TicketService manages the ticket lifecycle. Moving a ticket into the
// redeemed state is the only point where vendor earnings are created.
type TicketService struct {
	ticketRepo TicketRepository
	feeRate    float64
}

// NewTicketService creates a new ticket service
func NewTicketService(ticketRepo TicketRepository, feeRate float64) *TicketService {
	if feeRate <= 0 {
		feeRate = models.DefaultFeeRate
	}
	return &TicketService{
		ticketRepo: ticketRepo,
		feeRate:    feeRate,
	}
}

// CreateTicket issues one ticket, freezing the vendor's share at the fee
// rate in effect right now.
func (s *TicketService) CreateTicket(ticket *models.Ticket) (*models.Ticket, error) {
	ticket.Status = models.TicketActive
	ticket.VendorOwed = models.VendorShare(ticket.UnitPrice, s.feeRate)
	return s.ticketRepo.Create(ticket)
}

// GetTicket retrieves a ticket by ID
func (s *TicketService) GetTicket(id string) (*models.Ticket, error) {
	return s.ticketRepo.GetByID(id)
}

// UpdateStatus moves a ticket through its lifecycle. A transition into
// redeemed credits the vendor's balance atomically with the status change;
// all other transitions only change state.
func (s *TicketService) UpdateStatus(id string, status models.TicketStatus, reason string) (*models.Ticket, error) {
	if status == models.TicketRedeemed {
		return s.ticketRepo.Redeem(id)
	}
	return s.ticketRepo.UpdateStatus(id, status, reason)
}

// RedeemTicket marks a ticket redeemed and credits the vendor. Redeeming an
// already-redeemed ticket is a no-op success.
func (s *TicketService) RedeemTicket(id string) (*models.Ticket, error) {
	return s.ticketRepo.Redeem(id)
}
