package handlers

import (
	"encoding/json"
	"net/http"

	"booking-marketplace/internal/models"
	"booking-marketplace/internal/services"

	"github.com/go-chi/chi/v5"
)

// CartHandler serves cart endpoints
type CartHandler struct {
	carts *services.CartService
}

// NewCartHandler creates a new cart handler
func NewCartHandler(carts *services.CartService) *CartHandler {
	return &CartHandler{carts: carts}
}

// RegisterRoutes mounts cart routes on the router
func (h *CartHandler) RegisterRoutes(r chi.Router) {
	r.Route("/cart", func(r chi.Router) {
		r.Get("/", h.GetCart)
		r.Delete("/", h.ClearCart)
		r.Post("/items", h.AddItem)
		r.Delete("/items/{productItemID}", h.RemoveItem)
		r.Put("/checkout-status", h.SetCheckoutStatus)
	})
}

// GetCart returns the caller's cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireUserID(w, r)
	if !ok {
		return
	}

	cart, err := h.carts.GetCart(owner)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, cart)
}

// AddItem reserves inventory into the caller's cart
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req models.AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	cart, err := h.carts.AddItem(owner, &req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, cart)
}

// RemoveItem releases one line's reservation
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireUserID(w, r)
	if !ok {
		return
	}

	productItemID := chi.URLParam(r, "productItemID")
	if err := h.carts.RemoveItem(owner, productItemID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ClearCart releases everything and deletes the cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.carts.ClearCart(owner); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type checkoutStatusRequest struct {
	InProgress bool `json:"in_progress"`
}

// SetCheckoutStatus toggles the sweep exemption flag
func (h *CartHandler) SetCheckoutStatus(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req checkoutStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if err := h.carts.SetCheckoutStatus(owner, req.InProgress); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
