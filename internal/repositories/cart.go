package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"booking-marketplace/internal/models"

	"github.com/google/uuid"
)

// CartRepository handles cart data operations. Operations that touch both a
// cart and the inventory ledger run inside one database transaction so a
// reservation and its cart line can never diverge.
type CartRepository struct {
	db *sql.DB
}

// NewCartRepository creates a new cart repository
func NewCartRepository(db *sql.DB) *CartRepository {
	return &CartRepository{db: db}
}

// GetByOwner retrieves a cart with its lines by owner ID
func (r *CartRepository) GetByOwner(ownerID string) (*models.Cart, error) {
	cart := &models.Cart{}
	err := r.db.QueryRow(`
		SELECT id, owner_id, checkout_in_progress, created_at, updated_at
		FROM carts
		WHERE owner_id = ?`, ownerID).Scan(
		&cart.ID,
		&cart.OwnerID,
		&cart.CheckoutInProgress,
		&cart.CreatedAt,
		&cart.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, &models.NotFoundError{Resource: "cart"}
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	lines, err := r.loadLines(cart.ID)
	if err != nil {
		return nil, err
	}
	cart.Lines = lines

	return cart, nil
}

func (r *CartRepository) loadLines(cartID string) ([]models.CartLine, error) {
	rows, err := r.db.Query(`
		SELECT product_item_id, name, unit_price, quantity, vendor_id, scheduled_at, duration_min
		FROM cart_lines
		WHERE cart_id = ?
		ORDER BY created_at ASC`, cartID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart lines: %w", err)
	}
	defer rows.Close()

	var lines []models.CartLine
	for rows.Next() {
		var line models.CartLine
		err := rows.Scan(
			&line.ProductItemID,
			&line.Name,
			&line.UnitPrice,
			&line.Quantity,
			&line.VendorID,
			&line.ScheduledAt,
			&line.DurationMin,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cart line: %w", err)
		}
		lines = append(lines, line)
	}

	return lines, rows.Err()
}

// AddItem reserves quantity from an inventory unit and upserts the matching
// cart line in one atomic unit. On any failure nothing is mutated.
func (r *CartRepository) AddItem(ownerID, productItemID string, quantity int) (*models.Cart, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	// Snapshot the unit before the conditional decrement so the cart line
	// freezes name, price and schedule as sold.
	var unit models.InventoryUnit
	err = tx.QueryRow(`
		SELECT id, vendor_id, name, unit_price, available_quantity, status, scheduled_at, duration_min
		FROM inventory_units
		WHERE id = ?`, productItemID).Scan(
		&unit.ID, &unit.VendorID, &unit.Name, &unit.UnitPrice,
		&unit.AvailableQuantity, &unit.Status, &unit.ScheduledAt, &unit.DurationMin)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, &models.NotFoundError{Resource: "inventory unit", ID: productItemID}
		}
		return nil, fmt.Errorf("failed to load inventory unit: %w", err)
	}

	if err := adjustQuantity(tx, productItemID, -quantity, models.UnitPublished, quantity); err != nil {
		return nil, err
	}

	var cartID string
	err = tx.QueryRow("SELECT id FROM carts WHERE owner_id = ?", ownerID).Scan(&cartID)
	switch {
	case err == sql.ErrNoRows:
		cartID = uuid.NewString()
		_, err = tx.Exec(`
			INSERT INTO carts (id, owner_id, checkout_in_progress, created_at, updated_at)
			VALUES (?, ?, 0, ?, ?)`, cartID, ownerID, now, now)
		if err != nil {
			return nil, fmt.Errorf("failed to create cart: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to look up cart: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO cart_lines (cart_id, product_item_id, name, unit_price, quantity, vendor_id, scheduled_at, duration_min, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (cart_id, product_item_id)
		DO UPDATE SET quantity = quantity + excluded.quantity`,
		cartID, productItemID, unit.Name, unit.UnitPrice, quantity,
		unit.VendorID, unit.ScheduledAt, unit.DurationMin, now)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert cart line: %w", err)
	}

	if _, err = tx.Exec("UPDATE carts SET updated_at = ? WHERE id = ?", now, cartID); err != nil {
		return nil, fmt.Errorf("failed to touch cart: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit add item: %w", err)
	}

	return r.GetByOwner(ownerID)
}

// RemoveItem returns a line's reserved quantity to inventory and deletes
// the line, atomically.
func (r *CartRepository) RemoveItem(ownerID, productItemID string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	var cartID string
	err = tx.QueryRow("SELECT id FROM carts WHERE owner_id = ?", ownerID).Scan(&cartID)
	if err != nil {
		if err == sql.ErrNoRows {
			return &models.NotFoundError{Resource: "cart"}
		}
		return fmt.Errorf("failed to look up cart: %w", err)
	}

	var quantity int
	err = tx.QueryRow(`
		SELECT quantity FROM cart_lines
		WHERE cart_id = ? AND product_item_id = ?`, cartID, productItemID).Scan(&quantity)
	if err != nil {
		if err == sql.ErrNoRows {
			return &models.NotFoundError{Resource: "cart line", ID: productItemID}
		}
		return fmt.Errorf("failed to look up cart line: %w", err)
	}

	// A deleted inventory unit is tolerated: the reservation simply has
	// nowhere to go back to.
	if err := returnQuantity(tx, productItemID, quantity); err != nil && !models.IsNotFound(err) {
		return err
	}

	if _, err = tx.Exec("DELETE FROM cart_lines WHERE cart_id = ? AND product_item_id = ?", cartID, productItemID); err != nil {
		return fmt.Errorf("failed to delete cart line: %w", err)
	}

	if _, err = tx.Exec("UPDATE carts SET updated_at = ? WHERE id = ?", now, cartID); err != nil {
		return fmt.Errorf("failed to touch cart: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit remove item: %w", err)
	}

	return nil
}

// Clear returns every reserved quantity to inventory and deletes the cart
func (r *CartRepository) Clear(ownerID string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var cartID string
	err = tx.QueryRow("SELECT id FROM carts WHERE owner_id = ?", ownerID).Scan(&cartID)
	if err != nil {
		if err == sql.ErrNoRows {
			return &models.NotFoundError{Resource: "cart"}
		}
		return fmt.Errorf("failed to look up cart: %w", err)
	}

	if err := releaseCartLines(tx, cartID); err != nil {
		return err
	}

	if _, err = tx.Exec("DELETE FROM carts WHERE id = ?", cartID); err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit clear cart: %w", err)
	}

	return nil
}

// releaseCartLines returns every line's quantity to inventory inside the
// caller's transaction. Lines themselves are removed by the cart delete via
// ON DELETE CASCADE.
func releaseCartLines(tx *sql.Tx, cartID string) error {
	rows, err := tx.Query("SELECT product_item_id, quantity FROM cart_lines WHERE cart_id = ?", cartID)
	if err != nil {
		return fmt.Errorf("failed to load cart lines: %w", err)
	}

	type release struct {
		productItemID string
		quantity      int
	}
	var releases []release
	for rows.Next() {
		var rel release
		if err := rows.Scan(&rel.productItemID, &rel.quantity); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan cart line: %w", err)
		}
		releases = append(releases, rel)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating cart lines: %w", err)
	}

	for _, rel := range releases {
		if err := returnQuantity(tx, rel.productItemID, rel.quantity); err != nil && !models.IsNotFound(err) {
			return err
		}
	}

	return nil
}

// SetCheckoutStatus toggles the checkout-in-progress flag. Either direction
// refreshes the idle timer.
func (r *CartRepository) SetCheckoutStatus(ownerID string, inProgress bool) error {
	res, err := r.db.Exec(`
		UPDATE carts SET checkout_in_progress = ?, updated_at = ?
		WHERE owner_id = ?`, inProgress, time.Now().UTC(), ownerID)
	if err != nil {
		return fmt.Errorf("failed to set checkout status: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return &models.NotFoundError{Resource: "cart"}
	}

	return nil
}

// DeleteByOwner removes a cart without returning its reservations to
// inventory. Used after fulfillment, where the sale consumes them.
func (r *CartRepository) DeleteByOwner(ownerID string) error {
	_, err := r.db.Exec("DELETE FROM carts WHERE owner_id = ?", ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	return nil
}

// FindIdle returns carts untouched since the cutoff that are not mid-checkout
func (r *CartRepository) FindIdle(cutoff time.Time) ([]*models.Cart, error) {
	return r.findCarts(`
		SELECT id, owner_id, checkout_in_progress, created_at, updated_at
		FROM carts
		WHERE checkout_in_progress = 0 AND updated_at < ?`, cutoff)
}

// FindStuckCheckout returns carts whose checkout flag has been set since
// before the cutoff.
func (r *CartRepository) FindStuckCheckout(cutoff time.Time) ([]*models.Cart, error) {
	return r.findCarts(`
		SELECT id, owner_id, checkout_in_progress, created_at, updated_at
		FROM carts
		WHERE checkout_in_progress = 1 AND updated_at < ?`, cutoff)
}

func (r *CartRepository) findCarts(query string, args ...interface{}) ([]*models.Cart, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query carts: %w", err)
	}
	defer rows.Close()

	var carts []*models.Cart
	for rows.Next() {
		cart := &models.Cart{}
		err := rows.Scan(&cart.ID, &cart.OwnerID, &cart.CheckoutInProgress, &cart.CreatedAt, &cart.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cart: %w", err)
		}
		carts = append(carts, cart)
	}

	return carts, rows.Err()
}

// Reclaim returns an expired cart's reservations to inventory and deletes
// it, atomically. A cart that disappeared since it was found idle is not an
// error.
func (r *CartRepository) Reclaim(cartID string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Re-check under the transaction so a cart that became active again is
	// left alone and its reservations are not double-released.
	var inProgress bool
	err = tx.QueryRow("SELECT checkout_in_progress FROM carts WHERE id = ?", cartID).Scan(&inProgress)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil
		}
		return fmt.Errorf("failed to re-check cart: %w", err)
	}
	if inProgress {
		return nil
	}

	if err := releaseCartLines(tx, cartID); err != nil {
		return err
	}

	if _, err = tx.Exec("DELETE FROM carts WHERE id = ?", cartID); err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cart reclaim: %w", err)
	}

	return nil
}

// ForceClearCheckout clears a stuck checkout flag without touching the
// reservations. The idle sweep picks the cart up from here.
func (r *CartRepository) ForceClearCheckout(cartID string) error {
	_, err := r.db.Exec(`
		UPDATE carts SET checkout_in_progress = 0, updated_at = ?
		WHERE id = ?`, time.Now().UTC(), cartID)
	if err != nil {
		return fmt.Errorf("failed to clear checkout flag: %w", err)
	}
	return nil
}
