package gateway

import "errors"

var (
	// ErrMissingAPIKey is returned when the provider is built without
	// credentials.
	ErrMissingAPIKey = errors.New("gateway: API key is required")

	// ErrNoItems is returned when a preference is requested for an empty
	// item list.
	ErrNoItems = errors.New("gateway: preference requires at least one item")

	// ErrPaymentNotFound is returned when the gateway has no record of the
	// payment ID.
	ErrPaymentNotFound = errors.New("gateway: payment not found")
)
