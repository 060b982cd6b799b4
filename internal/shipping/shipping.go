package shipping

import (
	"context"

	"github.com/nordmark/vitrine/internal/address"
)

// Calculator quotes shipping cost for an order before draft pricing.
type Calculator interface {
	// Quote returns the shipping cost in cents for delivering an order
	// with the given merchandise subtotal to the given address.
	Quote(ctx context.Context, dest *address.Address, subtotalCents int32) (int32, error)
}
