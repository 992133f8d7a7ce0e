package handlers

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	"booking-marketplace/internal/services"

	"github.com/go-chi/chi/v5"
)

// SignatureHeader carries the gateway's HMAC signature of the webhook body
const SignatureHeader = "X-Gateway-Signature"

// WebhookHandler receives payment gateway webhooks. Only malformed or
// unverifiable payloads are rejected; once an event reaches dispatch it is
// always acknowledged with 200 so the gateway stops retrying, and internal
// handler failures are logged instead of surfaced.
type WebhookHandler struct {
	events  *services.PaymentEventService
	gateway services.PaymentGateway
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(events *services.PaymentEventService, gateway services.PaymentGateway) *WebhookHandler {
	return &WebhookHandler{events: events, gateway: gateway}
}

// RegisterRoutes mounts webhook routes on the router
func (h *WebhookHandler) RegisterRoutes(r chi.Router) {
	r.Post("/webhooks/payment", h.HandleWebhook)
}

// HandleWebhook verifies, parses and dispatches one gateway event
func (h *WebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "failed to read request body"})
		return
	}

	signature := r.Header.Get(SignatureHeader)
	if !h.gateway.VerifyWebhookSignature(body, signature) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid webhook signature"})
		return
	}

	var event services.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed webhook payload"})
		return
	}
	if event.Type == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "webhook payload missing event type"})
		return
	}

	if err := h.events.HandleEvent(&event); err != nil {
		log.Printf("webhook: handler failed for event %s (%s): %v", event.ID, event.Type, err)
	}

	w.WriteHeader(http.StatusOK)
}
