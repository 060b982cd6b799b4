package checkout_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nordmark/vitrine/internal/checkout"
	"github.com/nordmark/vitrine/internal/domain"
	"github.com/nordmark/vitrine/internal/events"
	"github.com/nordmark/vitrine/internal/gateway"
	"github.com/nordmark/vitrine/internal/order"
)

func TestBuildDraft_Pricing(t *testing.T) {
	lines := []domain.CartLine{
		{ProductID: "p1", Quantity: 1, UnitPriceCents: 100, DiscountPercent: 10},
	}

	draft, err := checkout.BuildDraft(lines, "addr-1", 0)
	require.NoError(t, err)

	assert.Equal(t, int32(100), draft.SubtotalCents)
	assert.Equal(t, int32(10), draft.DiscountCents)
	assert.Equal(t, int32(0), draft.ShippingCents)
	assert.Equal(t, int32(90), draft.TotalCents)
}

func TestBuildDraft_MultiLineWithShipping(t *testing.T) {
	lines := []domain.CartLine{
		{ProductID: "p1", Quantity: 3, UnitPriceCents: 250, DiscountPercent: 0},
		{ProductID: "p2", Quantity: 2, UnitPriceCents: 1000, DiscountPercent: 25},
	}

	draft, err := checkout.BuildDraft(lines, "addr-1", 500)
	require.NoError(t, err)

	assert.Equal(t, int32(2750), draft.SubtotalCents)
	assert.Equal(t, int32(500), draft.DiscountCents)
	assert.Equal(t, int32(2750-500+500), draft.TotalCents)
}

func TestBuildDraft_SkipsTombstones(t *testing.T) {
	lines := []domain.CartLine{
		{ProductID: "p1", Quantity: 0, UnitPriceCents: 100},
		{ProductID: "p2", Quantity: 1, UnitPriceCents: 200},
	}

	draft, err := checkout.BuildDraft(lines, "addr-1", 0)
	require.NoError(t, err)
	require.Len(t, draft.Items, 1)
	assert.Equal(t, "p2", draft.Items[0].ProductID)
}

func TestBuildDraft_Errors(t *testing.T) {
	_, err := checkout.BuildDraft(nil, "addr-1", 0)
	assert.ErrorIs(t, err, domain.ErrEmptyCart)

	onlyTombstones := []domain.CartLine{{ProductID: "p1", Quantity: 0}}
	_, err = checkout.BuildDraft(onlyTombstones, "addr-1", 0)
	assert.ErrorIs(t, err, domain.ErrEmptyCart)

	lines := []domain.CartLine{{ProductID: "p1", Quantity: 1, UnitPriceCents: 100}}
	_, err = checkout.BuildDraft(lines, "", 0)
	assert.ErrorIs(t, err, domain.ErrNoAddressSelected)
}

func TestBuildDraft_IsPure(t *testing.T) {
	lines := []domain.CartLine{
		{ProductID: "p2", Quantity: 1, UnitPriceCents: 200},
		{ProductID: "p1", Quantity: 2, UnitPriceCents: 100},
	}

	d1, err := checkout.BuildDraft(lines, "addr-1", 300)
	require.NoError(t, err)
	d2, err := checkout.BuildDraft(lines, "addr-1", 300)
	require.NoError(t, err)

	assert.Equal(t, d1, d2)
	assert.Equal(t, d1.Hash(), d2.Hash())
}

func TestDraftHash_OrderInsensitiveContentSensitive(t *testing.T) {
	a := &domain.OrderDraft{
		Items: []domain.DraftItem{
			{ProductID: "p1", Quantity: 1, UnitPriceCents: 100},
			{ProductID: "p2", Quantity: 2, UnitPriceCents: 200},
		},
		AddressID: "addr-1", SubtotalCents: 500, TotalCents: 500,
	}
	b := &domain.OrderDraft{
		Items: []domain.DraftItem{
			{ProductID: "p2", Quantity: 2, UnitPriceCents: 200},
			{ProductID: "p1", Quantity: 1, UnitPriceCents: 100},
		},
		AddressID: "addr-1", SubtotalCents: 500, TotalCents: 500,
	}
	assert.Equal(t, a.Hash(), b.Hash(), "item order must not change the hash")

	c := *a
	c.AddressID = "addr-2"
	assert.NotEqual(t, a.Hash(), c.Hash())
}

func newOrchestrator(t *testing.T, gw gateway.Provider) (checkout.Orchestrator, *checkout.MemoryIntentStore) {
	t.Helper()
	intents := checkout.NewMemoryIntentStore()
	orch, err := checkout.NewOrchestrator(checkout.Config{
		Gateway: gw,
		Intents: intents,
	})
	require.NoError(t, err)
	return orch, intents
}

func testDraft(t *testing.T) *domain.OrderDraft {
	t.Helper()
	draft, err := checkout.BuildDraft([]domain.CartLine{
		{ProductID: "p1", Quantity: 2, UnitPriceCents: 1500, DiscountPercent: 10},
	}, "addr-1", 500)
	require.NoError(t, err)
	return draft
}

func TestRequestPayment_CreatesIntentOnce(t *testing.T) {
	gw := gateway.NewMockProvider()
	orch, _ := newOrchestrator(t, gw)
	draft := testDraft(t)

	first, err := orch.RequestPayment(context.Background(), draft)
	require.NoError(t, err)
	assert.NotEmpty(t, first.InitPoint)
	assert.Equal(t, draft.Hash(), first.DraftHash)

	// A second click with identical cart content reuses the intent.
	second, err := orch.RequestPayment(context.Background(), draft)
	require.NoError(t, err)
	assert.Equal(t, first.IntentID, second.IntentID)
	assert.Equal(t, 1, gw.CreateCalls(), "same draft hash must not hit the gateway twice")
}

func TestRequestPayment_ChangedCartCreatesNewIntent(t *testing.T) {
	gw := gateway.NewMockProvider()
	orch, _ := newOrchestrator(t, gw)
	draft := testDraft(t)

	first, err := orch.RequestPayment(context.Background(), draft)
	require.NoError(t, err)

	changed, err := checkout.BuildDraft([]domain.CartLine{
		{ProductID: "p1", Quantity: 3, UnitPriceCents: 1500, DiscountPercent: 10},
	}, "addr-1", 500)
	require.NoError(t, err)

	second, err := orch.RequestPayment(context.Background(), changed)
	require.NoError(t, err)
	assert.NotEqual(t, first.IntentID, second.IntentID)
	assert.Equal(t, 2, gw.CreateCalls())
}

func TestRequestPayment_GatewayFailureStoresNothing(t *testing.T) {
	gw := gateway.NewMockProvider()
	gw.CreateErr = assert.AnError
	orch, intents := newOrchestrator(t, gw)
	draft := testDraft(t)

	_, err := orch.RequestPayment(context.Background(), draft)
	require.Error(t, err)

	stored, err := intents.ActiveForDraft(context.Background(), draft.Hash())
	require.NoError(t, err)
	assert.Nil(t, stored, "failed creation must leave no intent behind")

	// Recovery: the next attempt goes back to the gateway.
	gw.CreateErr = nil
	intent, err := orch.RequestPayment(context.Background(), draft)
	require.NoError(t, err)
	assert.NotNil(t, intent)
}

func TestRequestPayment_DiscountedUnitPricesSentToGateway(t *testing.T) {
	gw := gateway.NewMockProvider()
	orch, _ := newOrchestrator(t, gw)

	draft, err := checkout.BuildDraft([]domain.CartLine{
		{ProductID: "p1", Quantity: 1, UnitPriceCents: 1000, DiscountPercent: 20},
	}, "addr-1", 250)
	require.NoError(t, err)

	_, err = orch.RequestPayment(context.Background(), draft)
	require.NoError(t, err)

	params, ok := gw.LastCreate()
	require.True(t, ok)
	require.Len(t, params.Items, 1)
	assert.Equal(t, int64(800), params.Items[0].UnitPriceCents)
	assert.Equal(t, int64(250), params.ShippingCents)
	assert.Equal(t, draft.Hash(), params.ExternalReference)
}

// newCheckoutLoop wires the orchestrator, order machine and intent release
// handler together the way the composition root does.
func newCheckoutLoop(t *testing.T, gw *gateway.MockProvider) (checkout.Orchestrator, *order.Machine) {
	t.Helper()

	orch, intents := newOrchestrator(t, gw)

	bus := events.NewBus()
	bus.Subscribe(events.TopicOrderStatus, checkout.ReleaseIntentOnSettlement(intents, nil))

	machine, err := order.NewMachine(order.MachineConfig{
		Store:   order.NewMockStore(),
		Gateway: gw,
		Bus:     bus,
	})
	require.NoError(t, err)

	return orch, machine
}

func TestRequestPayment_RetryAfterRejectedPayment(t *testing.T) {
	ctx := context.Background()
	gw := gateway.NewMockProvider()
	orch, machine := newCheckoutLoop(t, gw)

	draft := testDraft(t)
	first, err := orch.RequestPayment(ctx, draft)
	require.NoError(t, err)
	firstParams, ok := gw.LastCreate()
	require.True(t, ok)

	_, err = machine.CreateFromIntent(ctx, "user-1", draft, first.PreferenceID)
	require.NoError(t, err)

	// The payment is declined; redirect verification cancels the order.
	gw.SetStatus(first.PreferenceID, gateway.StatusRejected)
	_, err = machine.ConfirmRedirect(ctx, order.RedirectParams{PaymentID: first.PreferenceID})
	require.ErrorIs(t, err, domain.ErrPaymentNotApproved)

	// Retrying the identical cart must reach the gateway again with a
	// fresh session, not hand back the dead one.
	second, err := orch.RequestPayment(ctx, draft)
	require.NoError(t, err)
	assert.Equal(t, 2, gw.CreateCalls(), "retry after rejection must create a new gateway session")
	assert.NotEqual(t, first.PreferenceID, second.PreferenceID)

	secondParams, ok := gw.LastCreate()
	require.True(t, ok)
	assert.NotEqual(t, firstParams.IdempotencyKey, secondParams.IdempotencyKey,
		"a fresh attempt must not reuse the gateway idempotency key")
}

func TestRequestPayment_RepurchaseAfterPaidOrder(t *testing.T) {
	ctx := context.Background()
	gw := gateway.NewMockProvider()
	orch, machine := newCheckoutLoop(t, gw)

	draft := testDraft(t)
	first, err := orch.RequestPayment(ctx, draft)
	require.NoError(t, err)

	_, err = machine.CreateFromIntent(ctx, "user-1", draft, first.PreferenceID)
	require.NoError(t, err)

	gw.SetStatus(first.PreferenceID, gateway.StatusApproved)
	_, err = machine.ConfirmRedirect(ctx, order.RedirectParams{PaymentID: first.PreferenceID})
	require.NoError(t, err)

	// Buying the same cart content again is a new purchase, not a replay
	// of the spent session.
	second, err := orch.RequestPayment(ctx, draft)
	require.NoError(t, err)
	assert.Equal(t, 2, gw.CreateCalls())
	assert.NotEqual(t, first.PreferenceID, second.PreferenceID)
}

func TestMemoryIntentStore_DeleteByPreference(t *testing.T) {
	ctx := context.Background()
	store := checkout.NewMemoryIntentStore()

	require.NoError(t, store.Save(ctx, &domain.PaymentIntent{
		IntentID: "i1", DraftHash: "h1", PreferenceID: "pref_1",
	}))

	require.NoError(t, store.DeleteByPreference(ctx, "pref_1"))
	intent, err := store.ActiveForDraft(ctx, "h1")
	require.NoError(t, err)
	assert.Nil(t, intent)

	// Unknown preferences are a no-op.
	require.NoError(t, store.DeleteByPreference(ctx, "pref_unknown"))
}

func TestRequestPayment_ValidatesDraft(t *testing.T) {
	gw := gateway.NewMockProvider()
	orch, _ := newOrchestrator(t, gw)

	_, err := orch.RequestPayment(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrEmptyCart)

	_, err = orch.RequestPayment(context.Background(), &domain.OrderDraft{
		Items: []domain.DraftItem{{ProductID: "p1", Quantity: 1}},
	})
	assert.ErrorIs(t, err, domain.ErrNoAddressSelected)
}
