package gateway

import (
	"context"
)

// Status is the payment state as reported by the gateway. It is the only
// source of truth for whether a payment happened; redirect parameters are
// never trusted.
type Status string

const (
	StatusApproved Status = "approved"
	StatusPending  Status = "pending"
	StatusRejected Status = "rejected"
	StatusUnknown  Status = "unknown"
)

// PreferenceItem is one purchasable line in a payment preference.
type PreferenceItem struct {
	ProductID      string
	Title          string
	Quantity       int32
	UnitPriceCents int64
}

// CreatePreferenceParams contains parameters for creating a payment
// preference.
type CreatePreferenceParams struct {
	Items []PreferenceItem

	// ShippingCents is added as its own line.
	ShippingCents int64

	Currency string

	// ExternalReference ties the gateway payment back to our draft.
	ExternalReference string

	// IdempotencyKey deduplicates retries of this creation attempt at the
	// gateway. It must be unique per attempt, not per draft: a draft whose
	// earlier payment was cancelled gets a fresh key so the gateway does
	// not replay the dead session.
	IdempotencyKey string

	SuccessURL string
	CancelURL  string
}

// Preference is a created gateway payment the buyer is redirected to.
type Preference struct {
	// ID identifies the payment at the gateway.
	ID string

	// InitPoint is the hosted payment page URL.
	InitPoint string
}

// Provider defines the interface for the payment gateway.
type Provider interface {
	// CreatePreference registers a pending payment and returns the hosted
	// payment URL.
	CreatePreference(ctx context.Context, params CreatePreferenceParams) (*Preference, error)

	// GetPaymentStatus returns the authoritative status of a payment.
	// Called after every redirect, whatever the redirect claims.
	GetPaymentStatus(ctx context.Context, paymentID string) (Status, error)
}
