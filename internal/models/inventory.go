package models

import (
	"errors"
	"time"
)

// UnitStatus represents the publication status of an inventory unit
type UnitStatus string

const (
	UnitDraft     UnitStatus = "draft"
	UnitPublished UnitStatus = "published"
	UnitArchived  UnitStatus = "archived"
)

// InventoryUnit represents a sellable, dated capacity slot
type InventoryUnit struct {
	ID                string     `json:"id" db:"id"`
	VendorID          string     `json:"vendor_id" db:"vendor_id"`
	Name              string     `json:"name" db:"name"`
	UnitPrice         int64      `json:"unit_price" db:"unit_price"` // in minor units
	AvailableQuantity int        `json:"available_quantity" db:"available_quantity"`
	Status            UnitStatus `json:"status" db:"status"`
	ScheduledAt       time.Time  `json:"scheduled_at" db:"scheduled_at"`
	DurationMin       int        `json:"duration_min" db:"duration_min"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
}

// Validate validates the inventory unit data
func (u *InventoryUnit) Validate() error {
	if u.VendorID == "" {
		return errors.New("vendor id is required")
	}

	if u.Name == "" {
		return errors.New("unit name is required")
	}

	if u.UnitPrice < 0 {
		return errors.New("unit price cannot be negative")
	}

	if u.AvailableQuantity < 0 {
		return errors.New("available quantity cannot be negative")
	}

	return u.validateStatus()
}

func (u *InventoryUnit) validateStatus() error {
	switch u.Status {
	case UnitDraft, UnitPublished, UnitArchived:
		return nil
	default:
		return errors.New("invalid inventory unit status")
	}
}

// IsPublished returns true if the unit can be sold
func (u *InventoryUnit) IsPublished() bool {
	return u.Status == UnitPublished
}

// CanReserve returns true if the requested quantity can be reserved
func (u *InventoryUnit) CanReserve(quantity int) bool {
	return u.IsPublished() && u.AvailableQuantity >= quantity
}

// PriceInCurrency returns the unit price in the main currency as a float
func (u *InventoryUnit) PriceInCurrency() float64 {
	return float64(u.UnitPrice) / 100.0
}
