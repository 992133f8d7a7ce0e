package repositories

import (
	"testing"

	"booking-marketplace/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayoutRepository_CreateForFullBalance(t *testing.T) {
	db := setupTestDB(t)
	payoutRepo := NewPayoutRepository(db.DB)
	vendorRepo := NewVendorRepository(db.DB)
	ticketRepo := NewTicketRepository(db.DB)

	txRepo := NewTransactionRepository(db.DB)
	_, err := txRepo.Create(&models.Transaction{
		ID: "tx-1", UserID: "user-1", Amount: 8500,
		Status: models.TransactionSucceeded, Type: models.TransactionPayment,
	})
	require.NoError(t, err)

	t.Run("drains the balance and marks redeemed tickets paid", func(t *testing.T) {
		ticket := createTestTicket(t, ticketRepo, "vendor-a", 7395)
		_, err := ticketRepo.Redeem(ticket.ID)
		require.NoError(t, err)

		payout, err := payoutRepo.CreateForFullBalance("vendor-a")
		require.NoError(t, err)
		assert.Equal(t, int64(7395), payout.Amount)
		assert.Equal(t, models.PayoutPending, payout.Status)

		assert.Equal(t, int64(0), vendorBalance(t, vendorRepo, "vendor-a"))

		got, err := ticketRepo.GetByID(ticket.ID)
		require.NoError(t, err)
		assert.True(t, got.VendorPaid)
	})

	t.Run("empty balance yields a conflict", func(t *testing.T) {
		_, err := payoutRepo.CreateForFullBalance("vendor-broke")
		assert.True(t, models.IsConflict(err, models.ConflictNothingOwed))
	})

	t.Run("negative balance yields a conflict", func(t *testing.T) {
		require.NoError(t, vendorRepo.AdjustBalance("vendor-debt", -500))
		_, err := payoutRepo.CreateForFullBalance("vendor-debt")
		assert.True(t, models.IsConflict(err, models.ConflictNothingOwed))
	})
}

func TestPayoutRepository_TransferLifecycle(t *testing.T) {
	db := setupTestDB(t)
	payoutRepo := NewPayoutRepository(db.DB)
	vendorRepo := NewVendorRepository(db.DB)

	require.NoError(t, vendorRepo.AdjustBalance("vendor-a", 5000))
	payout, err := payoutRepo.CreateForFullBalance("vendor-a")
	require.NoError(t, err)

	require.NoError(t, payoutRepo.SetTransferID(payout.ID, "tr_1"))

	got, err := payoutRepo.GetByTransferID("tr_1")
	require.NoError(t, err)
	assert.Equal(t, payout.ID, got.ID)

	require.NoError(t, payoutRepo.UpdateStatusByTransferID("tr_1", models.PayoutSucceeded))
	got, err = payoutRepo.GetByTransferID("tr_1")
	require.NoError(t, err)
	assert.Equal(t, models.PayoutSucceeded, got.Status)

	assert.True(t, models.IsNotFound(payoutRepo.UpdateStatusByTransferID("tr_unknown", models.PayoutSucceeded)))
}

func TestPayoutRepository_Refund(t *testing.T) {
	db := setupTestDB(t)
	payoutRepo := NewPayoutRepository(db.DB)
	vendorRepo := NewVendorRepository(db.DB)

	require.NoError(t, vendorRepo.AdjustBalance("vendor-a", 5000))
	payout, err := payoutRepo.CreateForFullBalance("vendor-a")
	require.NoError(t, err)
	assert.Equal(t, int64(0), vendorBalance(t, vendorRepo, "vendor-a"))

	require.NoError(t, payoutRepo.Refund(payout.ID))

	assert.Equal(t, int64(5000), vendorBalance(t, vendorRepo, "vendor-a"))

	payouts, err := payoutRepo.ListByVendor("vendor-a")
	require.NoError(t, err)
	require.Len(t, payouts, 1)
	assert.Equal(t, models.PayoutFailed, payouts[0].Status)

	// Only pending payouts can be refunded.
	assert.True(t, models.IsNotFound(payoutRepo.Refund(payout.ID)))
}
