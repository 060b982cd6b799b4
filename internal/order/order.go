package order

import (
	"context"

	"github.com/nordmark/vitrine/internal/domain"
)

// Store persists orders. Orders are append-only apart from guarded status
// updates.
type Store interface {
	// Create inserts the order and its items.
	Create(ctx context.Context, o *domain.Order) error

	// GetByID returns the order, or domain.ErrOrderNotFound.
	GetByID(ctx context.Context, orderID string) (*domain.Order, error)

	// GetByPaymentID returns the order bound to a gateway payment, or
	// domain.ErrOrderNotFound.
	GetByPaymentID(ctx context.Context, paymentID string) (*domain.Order, error)

	// ListByUser returns a user's orders, newest first.
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)

	// UpdateStatus moves the order from -> to, guarded in the store so a
	// concurrent transition cannot skip states. Returns
	// domain.ErrInvalidTransition when the order is no longer in from.
	UpdateStatus(ctx context.Context, orderID string, from, to domain.OrderStatus) error
}
