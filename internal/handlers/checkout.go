package handlers

import (
	"encoding/json"
	"net/http"

	"booking-marketplace/internal/services"

	"github.com/go-chi/chi/v5"
)

// CheckoutHandler serves checkout session endpoints
type CheckoutHandler struct {
	checkout *services.CheckoutService
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(checkout *services.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout}
}

// RegisterRoutes mounts checkout routes on the router
func (h *CheckoutHandler) RegisterRoutes(r chi.Router) {
	r.Route("/checkout", func(r chi.Router) {
		r.Post("/sessions", h.CreateSession)
		r.Get("/sessions/{sessionID}", h.GetSessionStatus)
	})
}

type createSessionRequest struct {
	Email string `json:"email"`
}

// CreateSession opens a gateway checkout session for the caller's cart
func (h *CheckoutHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	session, err := h.checkout.CreateSession(owner, req.Email)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, session)
}

// GetSessionStatus passes a session status query through to the gateway
func (h *CheckoutHandler) GetSessionStatus(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	session, err := h.checkout.GetSessionStatus(sessionID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, session)
}
