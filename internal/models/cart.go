package models

import (
	"errors"
	"time"
)

// Cart represents a shopper's open order. One cart per owner.
type Cart struct {
	ID                 string     `json:"id" db:"id"`
	OwnerID            string     `json:"owner_id" db:"owner_id"`
	CheckoutInProgress bool       `json:"checkout_in_progress" db:"checkout_in_progress"`
	Lines              []CartLine `json:"lines"`
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at" db:"updated_at"`
}

// CartLine represents a reserved line item. The snapshot fields are frozen
// from the inventory unit at reservation time.
type CartLine struct {
	ProductItemID string    `json:"product_item_id" db:"product_item_id"`
	Name          string    `json:"name" db:"name"`
	UnitPrice     int64     `json:"unit_price" db:"unit_price"` // in minor units
	Quantity      int       `json:"quantity" db:"quantity"`
	VendorID      string    `json:"vendor_id" db:"vendor_id"`
	ScheduledAt   time.Time `json:"scheduled_at" db:"scheduled_at"`
	DurationMin   int       `json:"duration_min" db:"duration_min"`
}

// AddItemRequest represents a request to reserve quantity into a cart
type AddItemRequest struct {
	ProductItemID string `json:"product_item_id"`
	Quantity      int    `json:"quantity"`
}

// Validate validates an add-item request
func (req *AddItemRequest) Validate() error {
	if req.ProductItemID == "" {
		return errors.New("product item id is required")
	}

	if req.Quantity < 1 {
		return errors.New("quantity must be at least 1")
	}

	return nil
}

// TotalAmount returns the cart total in minor units
func (c *Cart) TotalAmount() int64 {
	var total int64
	for _, line := range c.Lines {
		total += line.UnitPrice * int64(line.Quantity)
	}
	return total
}

// IsEmpty returns true if the cart holds no lines
func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// FindLine returns the line for a product item, if present
func (c *Cart) FindLine(productItemID string) (*CartLine, bool) {
	for i := range c.Lines {
		if c.Lines[i].ProductItemID == productItemID {
			return &c.Lines[i], true
		}
	}
	return nil, false
}

// IdleSince returns true if the cart has not been touched since the cutoff
func (c *Cart) IdleSince(cutoff time.Time) bool {
	return c.UpdatedAt.Before(cutoff)
}

// Subtotal returns the line subtotal in minor units
func (l *CartLine) Subtotal() int64 {
	return l.UnitPrice * int64(l.Quantity)
}
