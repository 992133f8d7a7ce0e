package handlers

import (
	"net/http"

	"booking-marketplace/internal/services"

	"github.com/go-chi/chi/v5"
)

// PayoutHandler serves vendor balance and payout endpoints
type PayoutHandler struct {
	payouts *services.PayoutService
}

// NewPayoutHandler creates a new payout handler
func NewPayoutHandler(payouts *services.PayoutService) *PayoutHandler {
	return &PayoutHandler{payouts: payouts}
}

// RegisterRoutes mounts vendor payout routes on the router
func (h *PayoutHandler) RegisterRoutes(r chi.Router) {
	r.Route("/vendors/{vendorID}", func(r chi.Router) {
		r.Get("/balance", h.GetBalance)
		r.Get("/payouts", h.ListPayouts)
		r.Post("/payouts", h.RequestPayout)
	})
}

// GetBalance returns a vendor's earned, not-yet-paid-out balance
func (h *PayoutHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.payouts.GetBalance(chi.URLParam(r, "vendorID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balance)
}

// RequestPayout drains the vendor's full balance into a gateway transfer
func (h *PayoutHandler) RequestPayout(w http.ResponseWriter, r *http.Request) {
	payout, err := h.payouts.RequestPayout(chi.URLParam(r, "vendorID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, payout)
}

// ListPayouts returns the vendor's payout history
func (h *PayoutHandler) ListPayouts(w http.ResponseWriter, r *http.Request) {
	payouts, err := h.payouts.ListPayouts(chi.URLParam(r, "vendorID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payouts)
}
