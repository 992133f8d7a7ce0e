package services

import (
	"testing"
	"time"

	"booking-marketplace/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartService_GetCart_MissingCartIsEmpty(t *testing.T) {
	env := newTestEnv(t)
	carts := env.cartService()

	cart, err := carts.GetCart("owner-new")
	require.NoError(t, err)
	assert.Equal(t, "owner-new", cart.OwnerID)
	assert.True(t, cart.IsEmpty())
}

func TestCartService_AddItem(t *testing.T) {
	env := newTestEnv(t)
	carts := env.cartService()

	unit := env.createUnit(t, "vendor-1", 1500, 5)

	cart, err := carts.AddItem("owner-a", &models.AddItemRequest{ProductItemID: unit.ID, Quantity: 2})
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, int64(3000), cart.TotalAmount())

	got, err := env.inventory.GetByID(unit.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.AvailableQuantity)

	t.Run("invalid request is rejected before touching inventory", func(t *testing.T) {
		_, err := carts.AddItem("owner-a", &models.AddItemRequest{ProductItemID: unit.ID, Quantity: 0})
		var validationErr *models.ValidationError
		assert.ErrorAs(t, err, &validationErr)
	})
}

func TestCartService_SweepOnce(t *testing.T) {
	env := newTestEnv(t)
	carts := env.cartService()

	idleUnit := env.createUnit(t, "vendor-1", 1500, 5)
	idleCart, err := env.carts.AddItem("owner-idle", idleUnit.ID, 3)
	require.NoError(t, err)
	backdate(t, env, idleCart.ID, 25*time.Minute)

	stuckUnit := env.createUnit(t, "vendor-1", 1500, 5)
	stuckCart, err := env.carts.AddItem("owner-stuck", stuckUnit.ID, 2)
	require.NoError(t, err)
	require.NoError(t, env.carts.SetCheckoutStatus("owner-stuck", true))
	backdate(t, env, stuckCart.ID, 90*time.Minute)

	freshUnit := env.createUnit(t, "vendor-1", 1500, 5)
	_, err = env.carts.AddItem("owner-fresh", freshUnit.ID, 1)
	require.NoError(t, err)

	carts.SweepOnce()

	// The idle cart is gone and its reservation returned.
	_, err = env.carts.GetByOwner("owner-idle")
	assert.True(t, models.IsNotFound(err))
	got, err := env.inventory.GetByID(idleUnit.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.AvailableQuantity)

	// The stuck checkout flag is cleared; the reservation is not returned
	// until the idle sweep picks the cart up on a later pass.
	stuck, err := env.carts.GetByOwner("owner-stuck")
	require.NoError(t, err)
	assert.False(t, stuck.CheckoutInProgress)
	got, err = env.inventory.GetByID(stuckUnit.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.AvailableQuantity)

	// The fresh cart is untouched.
	fresh, err := env.carts.GetByOwner("owner-fresh")
	require.NoError(t, err)
	require.Len(t, fresh.Lines, 1)
}

func TestCartService_SweepOnce_ClearedCheckoutBecomesIdle(t *testing.T) {
	env := newTestEnv(t)
	carts := env.cartService()

	unit := env.createUnit(t, "vendor-1", 1500, 5)
	cart, err := env.carts.AddItem("owner-a", unit.ID, 2)
	require.NoError(t, err)
	require.NoError(t, env.carts.SetCheckoutStatus("owner-a", true))
	backdate(t, env, cart.ID, 90*time.Minute)

	carts.SweepOnce()
	backdate(t, env, cart.ID, 25*time.Minute)
	carts.SweepOnce()

	_, err = env.carts.GetByOwner("owner-a")
	assert.True(t, models.IsNotFound(err))

	got, err := env.inventory.GetByID(unit.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.AvailableQuantity)
}

func backdate(t *testing.T, env *testEnv, cartID string, age time.Duration) {
	t.Helper()
	_, err := env.db.Exec("UPDATE carts SET updated_at = ? WHERE id = ?", time.Now().UTC().Add(-age), cartID)
	require.NoError(t, err)
}
