package shipping

import (
	"context"

	"github.com/nordmark/vitrine/internal/address"
)

// FlatRateCalculator charges a single flat rate, waived above a free
// shipping threshold.
type FlatRateCalculator struct {
	costCents     int32
	freeOverCents int32
}

// NewFlatRateCalculator creates a flat-rate calculator. A freeOverCents of
// zero disables free shipping.
func NewFlatRateCalculator(costCents, freeOverCents int32) *FlatRateCalculator {
	return &FlatRateCalculator{costCents: costCents, freeOverCents: freeOverCents}
}

// Quote returns the flat rate, or zero once the subtotal clears the free
// shipping threshold. The destination does not affect the price.
func (c *FlatRateCalculator) Quote(ctx context.Context, dest *address.Address, subtotalCents int32) (int32, error) {
	if c.freeOverCents > 0 && subtotalCents >= c.freeOverCents {
		return 0, nil
	}
	return c.costCents, nil
}
