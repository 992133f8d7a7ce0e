package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"booking-marketplace/internal/config"
	"booking-marketplace/internal/models"
)

// MailService sends transactional email via the Resend API. Sends are
// best-effort: fulfillment never fails because a notice could not go out.
type MailService struct {
	config config.MailConfig
	client *http.Client
}

// NewMailService creates a new mail service
func NewMailService(cfg config.MailConfig) *MailService {
	return &MailService{
		config: cfg,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// mailRequest represents the request structure for the Resend API
type mailRequest struct {
	From    string    `json:"from"`
	To      []string  `json:"to"`
	Subject string    `json:"subject"`
	Text    string    `json:"text,omitempty"`
	Tags    []mailTag `json:"tags,omitempty"`
}

type mailTag struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type mailErrorResponse struct {
	Message string `json:"message"`
	Name    string `json:"name"`
}

func (s *MailService) fromField() string {
	if s.config.FromName != "" {
		return fmt.Sprintf("%s <%s>", s.config.FromName, s.config.FromEmail)
	}
	return s.config.FromEmail
}

// SendPurchaseReceipt notifies a buyer that their payment cleared and their
// tickets were issued.
func (s *MailService) SendPurchaseReceipt(email string, tx *models.Transaction, tickets []*models.Ticket) error {
	text := fmt.Sprintf(`Thank you for your purchase!

Your payment of %.2f has been confirmed and %d ticket(s) have been issued.

Order reference: %s

Your tickets:
`, tx.AmountInCurrency(), len(tickets), tx.ID)

	for _, ticket := range tickets {
		text += fmt.Sprintf("  - %s (ticket %s)\n", ticket.ProductItemID, ticket.ID)
	}

	text += "\nPresent a ticket id at the venue to redeem it.\n"

	return s.send(mailRequest{
		From:    s.fromField(),
		To:      []string{email},
		Subject: "Your booking is confirmed",
		Text:    text,
		Tags: []mailTag{
			{Name: "category", Value: "purchase_receipt"},
		},
	})
}

// SendVendorSaleNotice notifies a vendor that tickets of theirs were sold
func (s *MailService) SendVendorSaleNotice(vendorContact string, ticketCount int, amount int64) error {
	text := fmt.Sprintf(`You made a sale!

%d ticket(s) were just purchased for a total of %.2f.

Your share is credited when each ticket is redeemed.
`, ticketCount, float64(amount)/100.0)

	return s.send(mailRequest{
		From:    s.fromField(),
		To:      []string{vendorContact},
		Subject: "New sale on your listing",
		Text:    text,
		Tags: []mailTag{
			{Name: "category", Value: "vendor_sale_notice"},
		},
	})
}

// SendRefundNotice notifies a buyer that a refund was issued
func (s *MailService) SendRefundNotice(email string, amount int64, reason string) error {
	text := fmt.Sprintf(`A refund of %.2f has been issued to your original payment method.

Reason: %s

Refunds typically appear within 5-10 business days.
`, float64(amount)/100.0, reason)

	return s.send(mailRequest{
		From:    s.fromField(),
		To:      []string{email},
		Subject: "Your refund has been issued",
		Text:    text,
		Tags: []mailTag{
			{Name: "category", Value: "refund_notice"},
		},
	})
}

func (s *MailService) send(req mailRequest) error {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal email request: %w", err)
	}

	httpReq, err := http.NewRequest("POST", "https://api.resend.com/emails", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create email request: %w", err)
	}

	httpReq.Header.Set("Authorization", "Bearer "+s.config.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send email request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp mailErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
			return fmt.Errorf("email API error (status %d)", resp.StatusCode)
		}
		return fmt.Errorf("email API error: %s (%s)", errResp.Message, errResp.Name)
	}

	return nil
}
