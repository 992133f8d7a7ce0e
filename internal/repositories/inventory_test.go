package repositories

import (
	"testing"

	"booking-marketplace/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInventoryRepository_AtomicAdjustQuantity(t *testing.T) {
	db := setupTestDB(t)
	repo := NewInventoryRepository(db.DB)

	t.Run("decrements within capacity", func(t *testing.T) {
		unit := createTestUnit(t, repo, 5, models.UnitPublished)

		err := repo.AtomicAdjustQuantity(unit.ID, -2, models.UnitPublished, 2)
		require.NoError(t, err)

		got, err := repo.GetByID(unit.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, got.AvailableQuantity)
	})

	t.Run("fails with insufficient inventory and no mutation", func(t *testing.T) {
		unit := createTestUnit(t, repo, 5, models.UnitPublished)

		err := repo.AtomicAdjustQuantity(unit.ID, -6, models.UnitPublished, 6)
		assert.True(t, models.IsConflict(err, models.ConflictInsufficientInventory))

		got, err := repo.GetByID(unit.ID)
		require.NoError(t, err)
		assert.Equal(t, 5, got.AvailableQuantity)
	})

	t.Run("fails when unit is not published", func(t *testing.T) {
		unit := createTestUnit(t, repo, 5, models.UnitDraft)

		err := repo.AtomicAdjustQuantity(unit.ID, -1, models.UnitPublished, 1)
		assert.True(t, models.IsConflict(err, models.ConflictProductUnavailable))
	})

	t.Run("fails with not found for a missing unit", func(t *testing.T) {
		err := repo.AtomicAdjustQuantity("missing", -1, models.UnitPublished, 1)
		assert.True(t, models.IsNotFound(err))
	})
}

func TestInventoryRepository_ReturnQuantity(t *testing.T) {
	db := setupTestDB(t)
	repo := NewInventoryRepository(db.DB)

	unit := createTestUnit(t, repo, 2, models.UnitPublished)

	require.NoError(t, repo.ReturnQuantity(unit.ID, 3))

	got, err := repo.GetByID(unit.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.AvailableQuantity)

	assert.True(t, models.IsNotFound(repo.ReturnQuantity("missing", 1)))
}

func TestInventoryRepository_Create_Validates(t *testing.T) {
	db := setupTestDB(t)
	repo := NewInventoryRepository(db.DB)

	_, err := repo.Create(&models.InventoryUnit{Name: "No vendor", Status: models.UnitDraft})

	var validationErr *models.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}
