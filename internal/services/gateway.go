package services

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"booking-marketplace/internal/config"
	"booking-marketplace/internal/models"

	"github.com/sony/gobreaker/v2"
)

// GatewayService talks to the payment gateway's REST API. Every call runs
// through a circuit breaker so a flapping gateway fails fast instead of
// tying up request handlers.
type GatewayService struct {
	config  config.GatewayConfig
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
}

// NewGatewayService creates a new gateway client
func NewGatewayService(cfg config.GatewayConfig) *GatewayService {
	settings := gobreaker.Settings{
		Name:    "payment-gateway",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}

	return &GatewayService{
		config:  cfg,
		client:  &http.Client{Timeout: 30 * time.Second},
		breaker: gobreaker.NewCircuitBreaker[[]byte](settings),
	}
}

// SessionRequest represents a hosted checkout session creation request
type SessionRequest struct {
	Email     string            `json:"email"`
	Amount    int64             `json:"amount"` // in minor units
	Reference string            `json:"reference"`
	ReturnURL string            `json:"return_url"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Session represents a hosted checkout session at the gateway
type Session struct {
	ID            string `json:"id"`
	ClientSecret  string `json:"client_secret"`
	URL           string `json:"url"`
	Status        string `json:"status"` // open, complete, expired
	PaymentStatus string `json:"payment_status"`
	PaymentRef    string `json:"payment_ref"`
	Amount        int64  `json:"amount"`
}

// Refund represents a refund created at the gateway
type Refund struct {
	ID         string `json:"id"`
	PaymentRef string `json:"payment_ref"`
	Amount     int64  `json:"amount"`
	Status     string `json:"status"`
}

// Transfer represents a vendor payout transfer at the gateway
type Transfer struct {
	ID          string `json:"id"`
	Destination string `json:"destination"`
	Amount      int64  `json:"amount"`
	Status      string `json:"status"`
}

type gatewayErrorBody struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// CreateSession creates a hosted checkout session
func (s *GatewayService) CreateSession(req *SessionRequest) (*Session, error) {
	body, err := s.do("POST", "/v1/checkout/sessions", req)
	if err != nil {
		return nil, &models.GatewayError{Op: "create session", Err: err}
	}

	var session Session
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, &models.GatewayError{Op: "create session", Err: fmt.Errorf("failed to decode session response: %w", err)}
	}

	return &session, nil
}

// GetSession retrieves a checkout session's current state
func (s *GatewayService) GetSession(sessionID string) (*Session, error) {
	body, err := s.do("GET", "/v1/checkout/sessions/"+sessionID, nil)
	if err != nil {
		return nil, &models.GatewayError{Op: "get session", Err: err}
	}

	var session Session
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, &models.GatewayError{Op: "get session", Err: fmt.Errorf("failed to decode session response: %w", err)}
	}

	return &session, nil
}

// CreateRefund asks the gateway to refund part or all of a charge
func (s *GatewayService) CreateRefund(paymentRef string, amount int64, reason string) (*Refund, error) {
	req := map[string]interface{}{
		"payment_ref": paymentRef,
		"amount":      amount,
		"reason":      reason,
	}

	body, err := s.do("POST", "/v1/refunds", req)
	if err != nil {
		return nil, &models.GatewayError{Op: "create refund", Err: err}
	}

	var refund Refund
	if err := json.Unmarshal(body, &refund); err != nil {
		return nil, &models.GatewayError{Op: "create refund", Err: fmt.Errorf("failed to decode refund response: %w", err)}
	}

	return &refund, nil
}

// CreateTransfer initiates a payout transfer to a vendor
func (s *GatewayService) CreateTransfer(destination string, amount int64) (*Transfer, error) {
	req := map[string]interface{}{
		"destination": destination,
		"amount":      amount,
	}

	body, err := s.do("POST", "/v1/transfers", req)
	if err != nil {
		return nil, &models.GatewayError{Op: "create transfer", Err: err}
	}

	var transfer Transfer
	if err := json.Unmarshal(body, &transfer); err != nil {
		return nil, &models.GatewayError{Op: "create transfer", Err: fmt.Errorf("failed to decode transfer response: %w", err)}
	}

	return &transfer, nil
}

func (s *GatewayService) do(method, path string, payload interface{}) ([]byte, error) {
	return s.breaker.Execute(func() ([]byte, error) {
		var reqBody io.Reader
		if payload != nil {
			jsonData, err := json.Marshal(payload)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal request: %w", err)
			}
			reqBody = bytes.NewBuffer(jsonData)
		}

		httpReq, err := http.NewRequest(method, s.config.BaseURL+path, reqBody)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		httpReq.Header.Set("Authorization", "Bearer "+s.config.APIKey)
		httpReq.Header.Set("Accept", "application/json")
		if payload != nil {
			httpReq.Header.Set("Content-Type", "application/json")
		}

		resp, err := s.client.Do(httpReq)
		if err != nil {
			return nil, fmt.Errorf("failed to send request: %w", err)
		}
		defer resp.Body.Close()

		bodyBytes, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read response body: %w", err)
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, s.handleAPIError(resp.StatusCode, bodyBytes)
		}

		return bodyBytes, nil
	})
}

func (s *GatewayService) handleAPIError(statusCode int, body []byte) error {
	var gwErr gatewayErrorBody
	if err := json.Unmarshal(body, &gwErr); err != nil {
		return fmt.Errorf("API error (status %d): %s", statusCode, string(body))
	}

	switch statusCode {
	case 400:
		return fmt.Errorf("bad request: %s", gwErr.Message)
	case 401:
		return fmt.Errorf("unauthorized: check API keys - %s", gwErr.Message)
	case 404:
		return fmt.Errorf("not found: %s", gwErr.Message)
	case 422:
		return fmt.Errorf("validation error: %s", gwErr.Message)
	default:
		return fmt.Errorf("gateway error (status %d): %s", statusCode, gwErr.Message)
	}
}

// VerifyWebhookSignature checks a webhook payload against its signature
// header using the shared webhook secret.
func (s *GatewayService) VerifyWebhookSignature(payload []byte, signature string) bool {
	mac := hmac.New(sha512.New, []byte(s.config.WebhookSecret))
	mac.Write(payload)
	expectedSignature := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(signature), []byte(expectedSignature))
}
