package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"booking-marketplace/internal/models"
)

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			log.Printf("handlers: failed to encode response: %v", err)
		}
	}
}

// writeError maps the service error taxonomy onto HTTP status codes
func writeError(w http.ResponseWriter, err error) {
	var validationErr *models.ValidationError
	if errors.As(err, &validationErr) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: validationErr.Message})
		return
	}

	var conflictErr *models.ConflictError
	if errors.As(err, &conflictErr) {
		writeJSON(w, http.StatusConflict, errorResponse{Error: conflictErr.Message, Kind: string(conflictErr.Kind)})
		return
	}

	var notFoundErr *models.NotFoundError
	if errors.As(err, &notFoundErr) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: notFoundErr.Error()})
		return
	}

	var gatewayErr *models.GatewayError
	if errors.As(err, &gatewayErr) || errors.Is(err, models.ErrCheckoutCreationFailed) {
		log.Printf("handlers: gateway failure: %v", err)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
		return
	}

	log.Printf("handlers: internal error: %v", err)
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
}

// userID resolves the caller's identity. Authentication happens upstream;
// the resolved identity arrives in a header.
func userID(r *http.Request) string {
	return r.Header.Get("X-User-ID")
}

func requireUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := userID(r)
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing X-User-ID header"})
		return "", false
	}
	return id, true
}
