package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"booking-marketplace/internal/models"

	"github.com/google/uuid"
)

// InventoryRepository handles inventory unit data operations
type InventoryRepository struct {
	db *sql.DB
}

// NewInventoryRepository creates a new inventory repository
func NewInventoryRepository(db *sql.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

// Create creates a new inventory unit
func (r *InventoryRepository) Create(unit *models.InventoryUnit) (*models.InventoryUnit, error) {
	if err := unit.Validate(); err != nil {
		return nil, &models.ValidationError{Message: err.Error()}
	}

	if unit.ID == "" {
		unit.ID = uuid.NewString()
	}

	now := time.Now().UTC()
	unit.CreatedAt = now
	unit.UpdatedAt = now

	_, err := r.db.Exec(`
		INSERT INTO inventory_units (id, vendor_id, name, unit_price, available_quantity, status, scheduled_at, duration_min, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		unit.ID, unit.VendorID, unit.Name, unit.UnitPrice, unit.AvailableQuantity,
		unit.Status, unit.ScheduledAt, unit.DurationMin, unit.CreatedAt, unit.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create inventory unit: %w", err)
	}

	return unit, nil
}

// GetByID retrieves an inventory unit by ID
func (r *InventoryRepository) GetByID(id string) (*models.InventoryUnit, error) {
	unit := &models.InventoryUnit{}
	err := r.db.QueryRow(`
		SELECT id, vendor_id, name, unit_price, available_quantity, status, scheduled_at, duration_min, created_at, updated_at
		FROM inventory_units
		WHERE id = ?`, id).Scan(
		&unit.ID,
		&unit.VendorID,
		&unit.Name,
		&unit.UnitPrice,
		&unit.AvailableQuantity,
		&unit.Status,
		&unit.ScheduledAt,
		&unit.DurationMin,
		&unit.CreatedAt,
		&unit.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, &models.NotFoundError{Resource: "inventory unit", ID: id}
		}
		return nil, fmt.Errorf("failed to get inventory unit: %w", err)
	}

	return unit, nil
}

// AtomicAdjustQuantity adjusts an inventory unit's available quantity by
// delta in a single conditional update. For negative deltas the unit must
// have the required status and at least requiredMinimum available before
// the adjustment; the count can never go negative.
func (r *InventoryRepository) AtomicAdjustQuantity(id string, delta int, requiredStatus models.UnitStatus, requiredMinimum int) error {
	return adjustQuantity(r.db, id, delta, requiredStatus, requiredMinimum)
}

// ReturnQuantity adds quantity back to a unit with no preconditions, used
// when a reservation is released.
func (r *InventoryRepository) ReturnQuantity(id string, quantity int) error {
	return returnQuantity(r.db, id, quantity)
}

// execer lets the adjustment primitives run either directly on the pool or
// inside a repository transaction.
type execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

func adjustQuantity(e execer, id string, delta int, requiredStatus models.UnitStatus, requiredMinimum int) error {
	res, err := e.Exec(`
		UPDATE inventory_units
		SET available_quantity = available_quantity + ?, updated_at = ?
		WHERE id = ? AND status = ? AND available_quantity >= ?`,
		delta, time.Now().UTC(), id, requiredStatus, requiredMinimum)
	if err != nil {
		return fmt.Errorf("failed to adjust inventory quantity: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows > 0 {
		return nil
	}

	// The conditional update matched nothing; read the unit back to report
	// the precise cause without having mutated anything.
	var status models.UnitStatus
	var available int
	err = e.QueryRow("SELECT status, available_quantity FROM inventory_units WHERE id = ?", id).Scan(&status, &available)
	if err != nil {
		if err == sql.ErrNoRows {
			return &models.NotFoundError{Resource: "inventory unit", ID: id}
		}
		return fmt.Errorf("failed to inspect inventory unit: %w", err)
	}

	if status != requiredStatus {
		return &models.ConflictError{
			Kind:    models.ConflictProductUnavailable,
			Message: fmt.Sprintf("inventory unit %s is not available for sale (status: %s)", id, status),
		}
	}

	return &models.ConflictError{
		Kind:    models.ConflictInsufficientInventory,
		Message: fmt.Sprintf("insufficient inventory for unit %s (requested: %d, available: %d)", id, requiredMinimum, available),
	}
}

func returnQuantity(e execer, id string, quantity int) error {
	res, err := e.Exec(`
		UPDATE inventory_units
		SET available_quantity = available_quantity + ?, updated_at = ?
		WHERE id = ?`, quantity, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to return inventory quantity: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return &models.NotFoundError{Resource: "inventory unit", ID: id}
	}

	return nil
}
