package services

import (
	"testing"
	"time"

	"booking-marketplace/internal/database"
	"booking-marketplace/internal/models"
	"booking-marketplace/internal/repositories"

	"github.com/stretchr/testify/require"
)

// testEnv wires real repositories on a throwaway database with mocked
// external collaborators.
type testEnv struct {
	db           *database.DB
	carts        *repositories.CartRepository
	inventory    *repositories.InventoryRepository
	transactions *repositories.TransactionRepository
	tickets      *repositories.TicketRepository
	vendors      *repositories.VendorRepository
	payouts      *repositories.PayoutRepository
	gateway      *MockGateway
	notifier     *MockNotifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.NewConnection(database.Config{Path: t.TempDir() + "/test.db"})
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())
	t.Cleanup(func() { db.Close() })

	return &testEnv{
		db:           db,
		carts:        repositories.NewCartRepository(db.DB),
		inventory:    repositories.NewInventoryRepository(db.DB),
		transactions: repositories.NewTransactionRepository(db.DB),
		tickets:      repositories.NewTicketRepository(db.DB),
		vendors:      repositories.NewVendorRepository(db.DB),
		payouts:      repositories.NewPayoutRepository(db.DB),
		gateway:      NewMockGateway(),
		notifier:     NewMockNotifier(),
	}
}

func (env *testEnv) ticketService() *TicketService {
	return NewTicketService(env.tickets, models.DefaultFeeRate)
}

func (env *testEnv) checkoutService() *CheckoutService {
	return NewCheckoutService(env.carts, env.transactions, env.gateway, "http://localhost:8080/checkout/return")
}

func (env *testEnv) eventService() *PaymentEventService {
	return NewPaymentEventService(env.transactions, env.carts, env.inventory,
		env.tickets, env.payouts, env.ticketService(), env.notifier)
}

func (env *testEnv) refundService() *RefundService {
	return NewRefundService(env.tickets, env.transactions, env.gateway, env.notifier)
}

func (env *testEnv) cartService() *CartService {
	return NewCartService(env.carts, 20*time.Minute, 60*time.Minute, time.Minute)
}

func (env *testEnv) payoutService() *PayoutService {
	return NewPayoutService(env.payouts, env.vendors, env.gateway)
}

func (env *testEnv) createUnit(t *testing.T, vendorID string, price int64, quantity int) *models.InventoryUnit {
	t.Helper()

	unit, err := env.inventory.Create(&models.InventoryUnit{
		VendorID:          vendorID,
		Name:              "Vineyard tasting",
		UnitPrice:         price,
		AvailableQuantity: quantity,
		Status:            models.UnitPublished,
		ScheduledAt:       time.Now().UTC().Add(48 * time.Hour),
		DurationMin:       120,
	})
	require.NoError(t, err)
	return unit
}
