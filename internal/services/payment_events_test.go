package services

import (
	"encoding/json"
	"fmt"
	"testing"

	"booking-marketplace/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func event(t *testing.T, eventType string, payload interface{}) *WebhookEvent {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return &WebhookEvent{ID: "evt_1", Type: eventType, Data: data}
}

// checkoutFixture drives a cart through checkout and returns the session id
func checkoutFixture(t *testing.T, env *testEnv, owner string, unitID string, quantity int) string {
	t.Helper()
	_, err := env.carts.AddItem(owner, unitID, quantity)
	require.NoError(t, err)
	session, err := env.checkoutService().CreateSession(owner, "shopper@example.com")
	require.NoError(t, err)
	return session.SessionID
}

func TestPaymentEvents_SessionCompleted(t *testing.T) {
	env := newTestEnv(t)
	events := env.eventService()

	unit := env.createUnit(t, "vendor-1", 4500, 5)
	sessionID := checkoutFixture(t, env, "owner-a", unit.ID, 1)

	err := events.HandleEvent(event(t, EventSessionCompleted, sessionCompletedPayload{
		SessionID:  sessionID,
		PaymentRef: "pay_1",
	}))
	require.NoError(t, err)

	tx, err := env.transactions.GetBySessionID(sessionID)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionSucceeded, tx.Status)
	assert.Equal(t, "pay_1", tx.ExternalPaymentRef)

	tickets, err := env.tickets.ListByTransaction(tx.ID)
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.Equal(t, models.TicketActive, tickets[0].Status)
	assert.Equal(t, int64(4500), tickets[0].UnitPrice)
	assert.Equal(t, models.VendorShare(4500, models.DefaultFeeRate), tickets[0].VendorOwed)

	// Cart is gone, inventory stays consumed.
	_, err = env.carts.GetByOwner("owner-a")
	assert.True(t, models.IsNotFound(err))
	got, err := env.inventory.GetByID(unit.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.AvailableQuantity)
}

func TestPaymentEvents_SessionCompleted_ReplayIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	events := env.eventService()

	unit := env.createUnit(t, "vendor-1", 4500, 5)
	sessionID := checkoutFixture(t, env, "owner-a", unit.ID, 2)

	payload := sessionCompletedPayload{SessionID: sessionID, PaymentRef: "pay_1"}
	require.NoError(t, events.HandleEvent(event(t, EventSessionCompleted, payload)))
	require.NoError(t, events.HandleEvent(event(t, EventSessionCompleted, payload)))

	tx, err := env.transactions.GetBySessionID(sessionID)
	require.NoError(t, err)

	tickets, err := env.tickets.ListByTransaction(tx.ID)
	require.NoError(t, err)
	assert.Len(t, tickets, 2)

	got, err := env.inventory.GetByID(unit.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.AvailableQuantity)
}

func TestPaymentEvents_SessionCompleted_RequiresPaymentRef(t *testing.T) {
	env := newTestEnv(t)
	events := env.eventService()

	unit := env.createUnit(t, "vendor-1", 4500, 5)
	sessionID := checkoutFixture(t, env, "owner-a", unit.ID, 1)

	err := events.HandleEvent(event(t, EventSessionCompleted, sessionCompletedPayload{
		SessionID: sessionID,
	}))
	require.Error(t, err)

	tx, err := env.transactions.GetBySessionID(sessionID)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionPending, tx.Status)
}

func TestPaymentEvents_SessionCompleted_MissingUnitIsSkipped(t *testing.T) {
	env := newTestEnv(t)
	events := env.eventService()

	unitA := env.createUnit(t, "vendor-1", 4500, 5)
	unitB := env.createUnit(t, "vendor-2", 3000, 5)
	_, err := env.carts.AddItem("owner-a", unitA.ID, 1)
	require.NoError(t, err)
	_, err = env.carts.AddItem("owner-a", unitB.ID, 1)
	require.NoError(t, err)
	session, err := env.checkoutService().CreateSession("owner-a", "shopper@example.com")
	require.NoError(t, err)

	// The unit vanishes between checkout and fulfillment.
	_, err = env.db.Exec("DELETE FROM inventory_units WHERE id = ?", unitB.ID)
	require.NoError(t, err)

	require.NoError(t, events.HandleEvent(event(t, EventSessionCompleted, sessionCompletedPayload{
		SessionID:  session.SessionID,
		PaymentRef: "pay_1",
	})))

	tx, err := env.transactions.GetBySessionID(session.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionSucceeded, tx.Status)

	tickets, err := env.tickets.ListByTransaction(tx.ID)
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.Equal(t, unitA.ID, tickets[0].ProductItemID)
}

func TestPaymentEvents_SessionExpired(t *testing.T) {
	env := newTestEnv(t)
	events := env.eventService()

	unit := env.createUnit(t, "vendor-1", 4500, 5)
	sessionID := checkoutFixture(t, env, "owner-a", unit.ID, 2)

	require.NoError(t, events.HandleEvent(event(t, EventSessionExpired, sessionExpiredPayload{
		SessionID: sessionID,
	})))

	cart, err := env.carts.GetByOwner("owner-a")
	require.NoError(t, err)
	assert.False(t, cart.CheckoutInProgress)

	// Inventory stays reserved; reclaiming is the sweep's job.
	got, err := env.inventory.GetByID(unit.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.AvailableQuantity)
}

func TestPaymentEvents_PaymentFailed(t *testing.T) {
	env := newTestEnv(t)
	events := env.eventService()

	unit := env.createUnit(t, "vendor-1", 4500, 5)
	sessionID := checkoutFixture(t, env, "owner-a", unit.ID, 1)

	require.NoError(t, events.HandleEvent(event(t, EventPaymentFailed, paymentFailedPayload{
		SessionID: sessionID,
		Error:     "insufficient funds",
	})))

	tx, err := env.transactions.GetBySessionID(sessionID)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionFailed, tx.Status)
	assert.Equal(t, "insufficient funds", tx.GatewayError)

	cart, err := env.carts.GetByOwner("owner-a")
	require.NoError(t, err)
	assert.False(t, cart.CheckoutInProgress)
}

func TestPaymentEvents_ChargeSucceeded(t *testing.T) {
	env := newTestEnv(t)
	events := env.eventService()

	unit := env.createUnit(t, "vendor-1", 4500, 5)
	sessionID := checkoutFixture(t, env, "owner-a", unit.ID, 2)
	require.NoError(t, events.HandleEvent(event(t, EventSessionCompleted, sessionCompletedPayload{
		SessionID:  sessionID,
		PaymentRef: "pay_1",
	})))

	detail := json.RawMessage(`{"card":"visa","last4":"4242"}`)
	require.NoError(t, events.HandleEvent(event(t, EventChargeSucceeded, chargeSucceededPayload{
		PaymentRef:    "pay_1",
		CustomerEmail: "shopper@example.com",
		Detail:        detail,
	})))

	tx, err := env.transactions.GetByPaymentRef("pay_1")
	require.NoError(t, err)
	assert.JSONEq(t, string(detail), tx.ChargeDetail)
	assert.Equal(t, models.TransactionSucceeded, tx.Status)

	assert.Equal(t, []string{"shopper@example.com"}, env.notifier.Receipts)
	assert.Equal(t, []string{"vendor-1"}, env.notifier.VendorNotices)
}

func TestPaymentEvents_ChargeSucceeded_NotificationFailureIsSwallowed(t *testing.T) {
	env := newTestEnv(t)
	events := env.eventService()
	env.notifier.FailSends = true

	unit := env.createUnit(t, "vendor-1", 4500, 5)
	sessionID := checkoutFixture(t, env, "owner-a", unit.ID, 1)
	require.NoError(t, events.HandleEvent(event(t, EventSessionCompleted, sessionCompletedPayload{
		SessionID:  sessionID,
		PaymentRef: "pay_1",
	})))

	require.NoError(t, events.HandleEvent(event(t, EventChargeSucceeded, chargeSucceededPayload{
		PaymentRef:    "pay_1",
		CustomerEmail: "shopper@example.com",
	})))
}

func TestPaymentEvents_TransferCreated(t *testing.T) {
	env := newTestEnv(t)
	events := env.eventService()

	require.NoError(t, env.vendors.AdjustBalance("vendor-1", 5000))
	payout, err := env.payouts.CreateForFullBalance("vendor-1")
	require.NoError(t, err)
	require.NoError(t, env.payouts.SetTransferID(payout.ID, "tr_1"))

	require.NoError(t, events.HandleEvent(event(t, EventTransferCreated, transferCreatedPayload{
		TransferID: "tr_1",
	})))

	got, err := env.payouts.GetByTransferID("tr_1")
	require.NoError(t, err)
	assert.Equal(t, models.PayoutSucceeded, got.Status)

	// A transfer this service never created is logged and ignored.
	require.NoError(t, events.HandleEvent(event(t, EventTransferCreated, transferCreatedPayload{
		TransferID: "tr_unknown",
	})))
}

func TestPaymentEvents_DisputeCreated(t *testing.T) {
	env := newTestEnv(t)
	events := env.eventService()

	unit := env.createUnit(t, "vendor-1", 4500, 5)
	sessionID := checkoutFixture(t, env, "owner-a", unit.ID, 1)
	require.NoError(t, events.HandleEvent(event(t, EventSessionCompleted, sessionCompletedPayload{
		SessionID:  sessionID,
		PaymentRef: "pay_1",
	})))

	require.NoError(t, events.HandleEvent(event(t, EventDisputeCreated, disputeCreatedPayload{
		PaymentRef:    "pay_1",
		DisputeID:     "dp_1",
		DisputeStatus: "needs_response",
		Amount:        4500,
	})))

	tx, err := env.transactions.GetByPaymentRef("pay_1")
	require.NoError(t, err)
	assert.Equal(t, models.TransactionDisputed, tx.Status)
	assert.Equal(t, "dp_1", tx.DisputeID)
}

func TestPaymentEvents_ChargeRefundedIsAcknowledgedOnly(t *testing.T) {
	env := newTestEnv(t)
	events := env.eventService()

	require.NoError(t, events.HandleEvent(event(t, EventChargeRefunded, chargeRefundedPayload{
		PaymentRef: "pay_1",
		Amount:     4500,
	})))
}

func TestPaymentEvents_UnknownTypeIsIgnored(t *testing.T) {
	env := newTestEnv(t)
	events := env.eventService()

	require.NoError(t, events.HandleEvent(&WebhookEvent{
		ID:   "evt_x",
		Type: "account.updated",
		Data: json.RawMessage(`{}`),
	}))
}

func TestPaymentEvents_SessionCompleted_UnknownSession(t *testing.T) {
	env := newTestEnv(t)
	events := env.eventService()

	err := events.HandleEvent(event(t, EventSessionCompleted, sessionCompletedPayload{
		SessionID:  fmt.Sprintf("sess_%d", 999),
		PaymentRef: "pay_1",
	}))
	assert.True(t, models.IsNotFound(err))
}
