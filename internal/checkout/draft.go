package checkout

import (
	"github.com/nordmark/vitrine/internal/domain"
)

// BuildDraft computes a priced order draft from cart lines. It is a pure
// function of its inputs: no I/O, no clock, no mutation of the cart. The
// same lines, address and shipping always produce an identical draft, and
// therefore an identical draft hash.
//
// Tombstoned lines are skipped. Per-line discounts are floored integer
// cents, matching how the storefront displays them.
func BuildDraft(lines []domain.CartLine, addressID string, shippingCents int32) (*domain.OrderDraft, error) {
	items := make([]domain.DraftItem, 0, len(lines))
	var subtotal, discount int64

	for _, l := range lines {
		if l.Tombstone() {
			continue
		}

		lineTotal := int64(l.UnitPriceCents) * int64(l.Quantity)
		subtotal += lineTotal
		discount += lineTotal * int64(l.DiscountPercent) / 100

		items = append(items, domain.DraftItem{
			ProductID:       l.ProductID,
			Quantity:        l.Quantity,
			UnitPriceCents:  l.UnitPriceCents,
			DiscountPercent: l.DiscountPercent,
		})
	}

	if len(items) == 0 {
		return nil, domain.ErrEmptyCart
	}
	if addressID == "" {
		return nil, domain.ErrNoAddressSelected
	}

	return &domain.OrderDraft{
		Items:         items,
		AddressID:     addressID,
		SubtotalCents: int32(subtotal),
		DiscountCents: int32(discount),
		ShippingCents: shippingCents,
		TotalCents:    int32(subtotal-discount) + shippingCents,
	}, nil
}
