package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nordmark/vitrine/internal/domain"
)

func TestErrorCode(t *testing.T) {
	assert.Equal(t, "", domain.ErrorCode(nil))
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(domain.ErrInvalidQuantity))
	assert.Equal(t, domain.EINTERNAL, domain.ErrorCode(errors.New("plain")))

	// Codes survive wrapping.
	wrapped := fmt.Errorf("outer: %w", domain.ErrLineNotFound)
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(wrapped))
	assert.True(t, domain.IsCode(wrapped, domain.ENOTFOUND))
}

func TestErrorMessage_HidesInternalDetails(t *testing.T) {
	internal := domain.Internal(errors.New("pq: connection reset"), "order.create", "failed to store order")
	msg := domain.ErrorMessage(internal)
	assert.NotContains(t, msg, "connection reset")
	assert.NotContains(t, msg, "failed to store order")

	visible := domain.Invalid("cart.update", "Quantity exceeds available stock")
	assert.Equal(t, "Quantity exceeds available stock", domain.ErrorMessage(visible))
}

func TestErrorIsMatchesSentinels(t *testing.T) {
	err := domain.WrapError(domain.ErrOrderNotFound, domain.ENOTFOUND, "order.get", "lookup failed")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to domain.OrderStatus
		ok       bool
	}{
		{domain.OrderPending, domain.OrderPaid, true},
		{domain.OrderPending, domain.OrderCancelled, true},
		{domain.OrderPaid, domain.OrderShipped, true},
		{domain.OrderPending, domain.OrderShipped, false},
		{domain.OrderPaid, domain.OrderCancelled, false},
		{domain.OrderPaid, domain.OrderPending, false},
		{domain.OrderShipped, domain.OrderCancelled, false},
		{domain.OrderCancelled, domain.OrderPaid, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.ok, domain.CanTransition(c.from, c.to), "%s -> %s", c.from, c.to)
	}
}

func TestIdentity(t *testing.T) {
	g := domain.Guest()
	assert.True(t, g.IsGuest())
	assert.Empty(t, g.UserID())
	assert.Equal(t, "guest", g.String())

	u := domain.Authenticated("u1")
	assert.False(t, u.IsGuest())
	assert.Equal(t, "u1", u.UserID())
	assert.Equal(t, "user:u1", u.String())
}

func TestCartLineTombstone(t *testing.T) {
	assert.True(t, domain.CartLine{ProductID: "p1"}.Tombstone())
	assert.False(t, domain.CartLine{ProductID: "p1", Quantity: 1}.Tombstone())
}

func TestSyncStatus(t *testing.T) {
	assert.False(t, domain.SyncIdle.Syncing())
	assert.True(t, domain.SyncScheduled.Syncing())
	assert.True(t, domain.SyncInFlight.Syncing())

	assert.Equal(t, "idle", domain.SyncIdle.String())
	assert.Equal(t, "scheduled", domain.SyncScheduled.String())
	assert.Equal(t, "in_flight", domain.SyncInFlight.String())
}
