package order_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nordmark/vitrine/internal/domain"
	"github.com/nordmark/vitrine/internal/events"
	"github.com/nordmark/vitrine/internal/gateway"
	"github.com/nordmark/vitrine/internal/order"
)

func newMachine(t *testing.T) (*order.Machine, *order.MockStore, *gateway.MockProvider) {
	t.Helper()
	store := order.NewMockStore()
	gw := gateway.NewMockProvider()
	m, err := order.NewMachine(order.MachineConfig{Store: store, Gateway: gw})
	require.NoError(t, err)
	return m, store, gw
}

func testDraft() *domain.OrderDraft {
	return &domain.OrderDraft{
		Items: []domain.DraftItem{
			{ProductID: "p1", Quantity: 2, UnitPriceCents: 1500},
		},
		AddressID:     "addr-1",
		SubtotalCents: 3000,
		ShippingCents: 500,
		TotalCents:    3500,
	}
}

// placeOrder creates a gateway preference plus its PENDING order, the way
// the checkout handler does before redirecting the buyer.
func placeOrder(t *testing.T, m *order.Machine, gw *gateway.MockProvider) *domain.Order {
	t.Helper()
	pref, err := gw.CreatePreference(context.Background(), gateway.CreatePreferenceParams{
		Items: []gateway.PreferenceItem{{ProductID: "p1", Title: "p1", Quantity: 2, UnitPriceCents: 1500}},
	})
	require.NoError(t, err)

	o, err := m.CreateFromIntent(context.Background(), "u1", testDraft(), pref.ID)
	require.NoError(t, err)
	return o
}

func TestMachine_CreateFromIntentStartsPending(t *testing.T) {
	m, _, gw := newMachine(t)

	o := placeOrder(t, m, gw)
	assert.Equal(t, domain.OrderPending, o.Status)
	assert.NotEmpty(t, o.OrderID)
	assert.Equal(t, int32(3500), o.TotalCents)

	got, err := m.GetByPayment(context.Background(), o.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, o.OrderID, got.OrderID)
}

func TestMachine_CreateRejectsBadDrafts(t *testing.T) {
	m, _, _ := newMachine(t)

	_, err := m.CreateFromIntent(context.Background(), "u1", testDraft(), "")
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))

	_, err = m.CreateFromIntent(context.Background(), "u1", nil, "pay_1")
	assert.ErrorIs(t, err, domain.ErrEmptyCart)

	noAddr := testDraft()
	noAddr.AddressID = ""
	_, err = m.CreateFromIntent(context.Background(), "u1", noAddr, "pay_1")
	assert.ErrorIs(t, err, domain.ErrNoAddressSelected)
}

func TestMachine_ConfirmRedirectApprovedPaysOrder(t *testing.T) {
	m, store, gw := newMachine(t)
	o := placeOrder(t, m, gw)
	gw.SetStatus(o.PaymentID, gateway.StatusApproved)

	confirmed, err := m.ConfirmRedirect(context.Background(), order.RedirectParams{
		PaymentID:     o.PaymentID,
		ClaimedStatus: "approved",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPaid, confirmed.Status)

	stored, err := store.GetByID(context.Background(), o.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPaid, stored.Status)
}

func TestMachine_ConfirmRedirectReplayIsIdempotent(t *testing.T) {
	m, _, gw := newMachine(t)
	o := placeOrder(t, m, gw)
	gw.SetStatus(o.PaymentID, gateway.StatusApproved)

	params := order.RedirectParams{PaymentID: o.PaymentID, ClaimedStatus: "approved"}

	_, err := m.ConfirmRedirect(context.Background(), params)
	require.NoError(t, err)

	// A refresh of the confirmation page replays the redirect.
	again, err := m.ConfirmRedirect(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPaid, again.Status)
}

func TestMachine_ConfirmRedirectRejectedCancels(t *testing.T) {
	m, store, gw := newMachine(t)
	o := placeOrder(t, m, gw)
	gw.SetStatus(o.PaymentID, gateway.StatusRejected)

	_, err := m.ConfirmRedirect(context.Background(), order.RedirectParams{
		PaymentID:     o.PaymentID,
		ClaimedStatus: "rejected",
	})
	assert.ErrorIs(t, err, domain.ErrPaymentNotApproved)

	stored, err := store.GetByID(context.Background(), o.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderCancelled, stored.Status)
}

func TestMachine_ConfirmRedirectForgedApprovalDetected(t *testing.T) {
	m, store, gw := newMachine(t)
	o := placeOrder(t, m, gw)
	// Gateway still reports pending, but the redirect URL claims approval.

	_, err := m.ConfirmRedirect(context.Background(), order.RedirectParams{
		PaymentID:     o.PaymentID,
		ClaimedStatus: "approved",
	})
	assert.ErrorIs(t, err, domain.ErrStaleRedirect)

	stored, err := store.GetByID(context.Background(), o.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPending, stored.Status, "a claimed status alone must never change state")
}

func TestMachine_ConfirmRedirectStillPendingIsNotAnError(t *testing.T) {
	m, _, gw := newMachine(t)
	o := placeOrder(t, m, gw)

	confirmed, err := m.ConfirmRedirect(context.Background(), order.RedirectParams{
		PaymentID: o.PaymentID,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPending, confirmed.Status)
}

func TestMachine_ConfirmRedirectVerificationFailureChangesNothing(t *testing.T) {
	m, store, gw := newMachine(t)
	o := placeOrder(t, m, gw)
	gw.StatusErr = assert.AnError

	_, err := m.ConfirmRedirect(context.Background(), order.RedirectParams{
		PaymentID:     o.PaymentID,
		ClaimedStatus: "approved",
	})
	require.Error(t, err)
	assert.Equal(t, domain.EGATEWAY, domain.ErrorCode(err))

	stored, err := store.GetByID(context.Background(), o.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPending, stored.Status)
}

func TestMachine_ConfirmRedirectUnknownPayment(t *testing.T) {
	m, _, _ := newMachine(t)

	_, err := m.ConfirmRedirect(context.Background(), order.RedirectParams{PaymentID: "nope"})
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestMachine_ShipmentLifecycle(t *testing.T) {
	m, _, gw := newMachine(t)
	o := placeOrder(t, m, gw)
	gw.SetStatus(o.PaymentID, gateway.StatusApproved)

	// Cannot ship before payment is confirmed.
	_, err := m.MarkShipped(context.Background(), o.OrderID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = m.ConfirmRedirect(context.Background(), order.RedirectParams{PaymentID: o.PaymentID})
	require.NoError(t, err)

	shipped, err := m.MarkShipped(context.Background(), o.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderShipped, shipped.Status)

	// Shipped is terminal.
	_, err = m.MarkShipped(context.Background(), o.OrderID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	_, err = m.Cancel(context.Background(), o.OrderID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestMachine_CancelOnlyPendingOrders(t *testing.T) {
	m, _, gw := newMachine(t)
	o := placeOrder(t, m, gw)

	cancelled, err := m.Cancel(context.Background(), o.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderCancelled, cancelled.Status)

	// Terminal: a late approval redirect cannot resurrect it.
	gw.SetStatus(o.PaymentID, gateway.StatusApproved)
	_, err = m.ConfirmRedirect(context.Background(), order.RedirectParams{PaymentID: o.PaymentID})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestMachine_TransitionsPublishEvents(t *testing.T) {
	store := order.NewMockStore()
	gw := gateway.NewMockProvider()
	bus := events.NewBus()

	ch := make(chan events.Event, 1)
	sub := bus.Subscribe(events.TopicOrderStatus, func(e events.Event) { ch <- e })
	defer sub.Unsubscribe()

	m, err := order.NewMachine(order.MachineConfig{Store: store, Gateway: gw, Bus: bus})
	require.NoError(t, err)

	o := placeOrder(t, m, gw)
	gw.SetStatus(o.PaymentID, gateway.StatusApproved)
	_, err = m.ConfirmRedirect(context.Background(), order.RedirectParams{PaymentID: o.PaymentID})
	require.NoError(t, err)

	e := <-ch
	payload, ok := e.Payload.(events.OrderStatusEvent)
	require.True(t, ok)
	assert.Equal(t, o.OrderID, payload.OrderID)
	assert.Equal(t, string(domain.OrderPending), payload.From)
	assert.Equal(t, string(domain.OrderPaid), payload.To)
}

func TestMachine_ListByUserNewestFirst(t *testing.T) {
	m, _, gw := newMachine(t)

	first := placeOrder(t, m, gw)
	second := placeOrder(t, m, gw)

	orders, err := m.ListByUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	// Both orders share a creation instant at test speed; just verify the
	// set, not the tie-break.
	ids := []string{orders[0].OrderID, orders[1].OrderID}
	assert.ElementsMatch(t, []string{first.OrderID, second.OrderID}, ids)
}
