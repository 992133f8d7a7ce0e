package services

import (
	"testing"

	"booking-marketplace/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fulfilledOrder runs a cart all the way through fulfillment and returns the
// succeeded transaction with its issued tickets.
func fulfilledOrder(t *testing.T, env *testEnv, owner string, unitID string, quantity int) (*models.Transaction, []*models.Ticket) {
	t.Helper()

	sessionID := checkoutFixture(t, env, owner, unitID, quantity)
	require.NoError(t, env.eventService().HandleEvent(event(t, EventSessionCompleted, sessionCompletedPayload{
		SessionID:  sessionID,
		PaymentRef: "pay_" + sessionID,
	})))

	tx, err := env.transactions.GetBySessionID(sessionID)
	require.NoError(t, err)
	tickets, err := env.tickets.ListByTransaction(tx.ID)
	require.NoError(t, err)
	return tx, tickets
}

func TestRefundService_RefundTicket_Redeemed(t *testing.T) {
	env := newTestEnv(t)
	refunds := env.refundService()

	unit := env.createUnit(t, "vendor-1", 8500, 5)
	tx, tickets := fulfilledOrder(t, env, "owner-a", unit.ID, 1)
	ticket := tickets[0]

	_, err := env.tickets.Redeem(ticket.ID)
	require.NoError(t, err)
	owed := models.VendorShare(8500, models.DefaultFeeRate)
	assert.Equal(t, owed, vendorLedger(t, env, "vendor-1"))

	entry, err := refunds.RefundTicket(ticket.ID, "event cancelled", "shopper@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(8500), entry.Amount)
	assert.Equal(t, tx.ID, entry.TransactionID)

	// The unpaid redemption credit is pulled back.
	assert.Equal(t, int64(0), vendorLedger(t, env, "vendor-1"))

	got, err := env.tickets.GetByID(ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TicketCancelled, got.Status)

	refreshed, err := env.transactions.GetByID(tx.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionPartiallyRefunded, refreshed.Status)

	entries, err := env.transactions.ListRefunds(tx.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ticket.ID, entries[0].TicketID)

	assert.Equal(t, []string{"shopper@example.com"}, env.notifier.RefundNotices)
}

func TestRefundService_RefundTicket_GatewayFailureKeepsCompensation(t *testing.T) {
	env := newTestEnv(t)
	refunds := env.refundService()

	unit := env.createUnit(t, "vendor-1", 8500, 5)
	tx, tickets := fulfilledOrder(t, env, "owner-a", unit.ID, 1)
	ticket := tickets[0]
	_, err := env.tickets.Redeem(ticket.ID)
	require.NoError(t, err)

	env.gateway.CreateRefundFn = func(paymentRef string, amount int64, reason string) (*Refund, error) {
		return nil, &models.GatewayError{Op: "create refund", Err: assert.AnError}
	}

	_, err = refunds.RefundTicket(ticket.ID, "event cancelled", "")
	var gatewayErr *models.GatewayError
	require.ErrorAs(t, err, &gatewayErr)

	// Cancellation and ledger reversal stand; no refund entry is recorded.
	got, err := env.tickets.GetByID(ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TicketCancelled, got.Status)
	assert.Equal(t, int64(0), vendorLedger(t, env, "vendor-1"))

	entries, err := env.transactions.ListRefunds(tx.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRefundService_RefundTicket_NoPaymentRef(t *testing.T) {
	env := newTestEnv(t)
	refunds := env.refundService()

	unit := env.createUnit(t, "vendor-1", 8500, 5)
	sessionID := checkoutFixture(t, env, "owner-a", unit.ID, 1)

	tx, err := env.transactions.GetBySessionID(sessionID)
	require.NoError(t, err)
	ticket, err := env.ticketService().CreateTicket(&models.Ticket{
		UserID:        "owner-a",
		TransactionID: tx.ID,
		VendorID:      "vendor-1",
		ProductItemID: unit.ID,
		UnitPrice:     8500,
	})
	require.NoError(t, err)

	_, err = refunds.RefundTicket(ticket.ID, "event cancelled", "")
	assert.True(t, models.IsConflict(err, models.ConflictInvalidTransition))
}

func TestRefundService_RefundTransaction(t *testing.T) {
	env := newTestEnv(t)
	refunds := env.refundService()

	unit := env.createUnit(t, "vendor-1", 1500, 5)
	tx, tickets := fulfilledOrder(t, env, "owner-a", unit.ID, 3)
	require.Len(t, tickets, 3)

	// One ticket is refunded individually first.
	_, err := refunds.RefundTicket(tickets[0].ID, "changed plans", "")
	require.NoError(t, err)

	entry, err := refunds.RefundTransaction(tx.ID, "shopper@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(3000), entry.Amount)

	refreshed, err := env.transactions.GetByID(tx.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionRefunded, refreshed.Status)

	// Refund entries never exceed the amount charged.
	total, err := env.transactions.SumRefunds(tx.ID)
	require.NoError(t, err)
	assert.Equal(t, tx.Amount, total)

	for _, ticket := range tickets {
		got, err := env.tickets.GetByID(ticket.ID)
		require.NoError(t, err)
		assert.Equal(t, models.TicketCancelled, got.Status)
	}

	assert.Equal(t, []string{"shopper@example.com"}, env.notifier.RefundNotices)
}

func TestRefundService_RefundTransaction_AlreadyFullyRefunded(t *testing.T) {
	env := newTestEnv(t)
	refunds := env.refundService()

	unit := env.createUnit(t, "vendor-1", 1500, 5)
	tx, _ := fulfilledOrder(t, env, "owner-a", unit.ID, 1)

	_, err := refunds.RefundTransaction(tx.ID, "")
	require.NoError(t, err)

	_, err = refunds.RefundTransaction(tx.ID, "")
	assert.True(t, models.IsConflict(err, models.ConflictAlreadyFullyRefunded))
}

func TestRefundService_RefundTransaction_GatewayFailure(t *testing.T) {
	env := newTestEnv(t)
	refunds := env.refundService()
	unit := env.createUnit(t, "vendor-1", 1500, 5)
	tx, _ := fulfilledOrder(t, env, "owner-a", unit.ID, 2)

	env.gateway.CreateRefundFn = func(paymentRef string, amount int64, reason string) (*Refund, error) {
		return nil, &models.GatewayError{Op: "create refund", Err: assert.AnError}
	}

	_, err := refunds.RefundTransaction(tx.ID, "")
	var gatewayErr *models.GatewayError
	require.ErrorAs(t, err, &gatewayErr)

	// The status flip stays; the missing money is a reconciliation item.
	refreshed, err := env.transactions.GetByID(tx.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionRefunded, refreshed.Status)

	entries, err := env.transactions.ListRefunds(tx.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func vendorLedger(t *testing.T, env *testEnv, vendorID string) int64 {
	t.Helper()
	balance, err := env.vendors.GetBalance(vendorID)
	require.NoError(t, err)
	return balance.Balance
}
