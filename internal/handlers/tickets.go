package handlers

import (
	"encoding/json"
	"net/http"

	"booking-marketplace/internal/models"
	"booking-marketplace/internal/services"

	"github.com/go-chi/chi/v5"
)

// TicketHandler serves ticket lifecycle and refund endpoints
type TicketHandler struct {
	tickets *services.TicketService
	refunds *services.RefundService
}

// NewTicketHandler creates a new ticket handler
func NewTicketHandler(tickets *services.TicketService, refunds *services.RefundService) *TicketHandler {
	return &TicketHandler{tickets: tickets, refunds: refunds}
}

// RegisterRoutes mounts ticket and refund routes on the router
func (h *TicketHandler) RegisterRoutes(r chi.Router) {
	r.Route("/tickets/{ticketID}", func(r chi.Router) {
		r.Get("/", h.GetTicket)
		r.Post("/redeem", h.RedeemTicket)
		r.Post("/status", h.UpdateStatus)
		r.Post("/refund", h.RefundTicket)
	})
	r.Post("/transactions/{transactionID}/refund", h.RefundTransaction)
}

// GetTicket returns one ticket
func (h *TicketHandler) GetTicket(w http.ResponseWriter, r *http.Request) {
	ticket, err := h.tickets.GetTicket(chi.URLParam(r, "ticketID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

// RedeemTicket marks a ticket redeemed, crediting the vendor
func (h *TicketHandler) RedeemTicket(w http.ResponseWriter, r *http.Request) {
	ticket, err := h.tickets.RedeemTicket(chi.URLParam(r, "ticketID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

type updateStatusRequest struct {
	Status models.TicketStatus `json:"status"`
	Reason string              `json:"reason"`
}

// UpdateStatus moves a ticket through its lifecycle
func (h *TicketHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	ticket, err := h.tickets.UpdateStatus(chi.URLParam(r, "ticketID"), req.Status, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

type refundRequest struct {
	Reason      string `json:"reason"`
	NotifyEmail string `json:"notify_email,omitempty"`
}

// RefundTicket refunds a single ticket's unit price
func (h *TicketHandler) RefundTicket(w http.ResponseWriter, r *http.Request) {
	var req refundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.Reason == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "reason is required"})
		return
	}

	entry, err := h.refunds.RefundTicket(chi.URLParam(r, "ticketID"), req.Reason, req.NotifyEmail)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// RefundTransaction refunds whatever remains of a transaction
func (h *TicketHandler) RefundTransaction(w http.ResponseWriter, r *http.Request) {
	var req refundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	entry, err := h.refunds.RefundTransaction(chi.URLParam(r, "transactionID"), req.NotifyEmail)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
