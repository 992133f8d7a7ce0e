package repositories

import (
	"testing"
	"time"

	"booking-marketplace/internal/database"
	"booking-marketplace/internal/models"

	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.NewConnection(database.Config{Path: t.TempDir() + "/test.db"})
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())

	t.Cleanup(func() { db.Close() })
	return db
}

func createTestUnit(t *testing.T, repo *InventoryRepository, quantity int, status models.UnitStatus) *models.InventoryUnit {
	t.Helper()

	unit, err := repo.Create(&models.InventoryUnit{
		VendorID:          "vendor-1",
		Name:              "Sunset kayak tour",
		UnitPrice:         4500,
		AvailableQuantity: quantity,
		Status:            status,
		ScheduledAt:       time.Now().UTC().Add(72 * time.Hour),
		DurationMin:       90,
	})
	require.NoError(t, err)
	return unit
}
