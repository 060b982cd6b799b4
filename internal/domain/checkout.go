package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Checkout domain errors.
var (
	ErrEmptyCart         = &Error{Code: EINVALID, Message: "Cart is empty"}
	ErrNoAddressSelected = &Error{Code: EINVALID, Message: "No delivery address selected"}
)

// DraftItem is a priced order line inside a draft.
type DraftItem struct {
	ProductID       string `json:"productId"`
	Quantity        int32  `json:"quantity"`
	UnitPriceCents  int32  `json:"unitPriceCents"`
	DiscountPercent int32  `json:"discountPercent"`
}

// OrderDraft is a computed pricing snapshot of a cart bound to an address.
// Drafts are never persisted; an order record exists only after payment
// intent creation succeeds.
type OrderDraft struct {
	Items         []DraftItem `json:"items"`
	AddressID     string      `json:"addressId"`
	SubtotalCents int32       `json:"subtotalCents"`
	DiscountCents int32       `json:"discountCents"`
	ShippingCents int32       `json:"shippingCents"`
	TotalCents    int32       `json:"totalCents"`
}

// Hash returns a stable content hash of the draft, used as the idempotency
// key for payment intent creation: the same cart content, address and totals
// always produce the same hash, so repeated checkout clicks reuse the
// existing intent instead of creating duplicates.
func (d *OrderDraft) Hash() string {
	items := make([]DraftItem, len(d.Items))
	copy(items, d.Items)
	sort.Slice(items, func(i, j int) bool { return items[i].ProductID < items[j].ProductID })

	var b strings.Builder
	fmt.Fprintf(&b, "addr=%s;sub=%d;disc=%d;ship=%d;total=%d", d.AddressID, d.SubtotalCents, d.DiscountCents, d.ShippingCents, d.TotalCents)
	for _, it := range items {
		fmt.Fprintf(&b, ";%s:%d:%d:%d", it.ProductID, it.Quantity, it.UnitPriceCents, it.DiscountPercent)
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// PaymentIntent binds a gateway preference to the draft it was created for.
// Exactly one intent may be active per draft hash; creating a second intent
// for the same draft content must not double-charge.
type PaymentIntent struct {
	IntentID     string    `json:"intentId"`
	DraftHash    string    `json:"draftHash"`
	PreferenceID string    `json:"preferenceId"`
	InitPoint    string    `json:"initPoint"`
	CreatedAt    time.Time `json:"createdAt"`
}
