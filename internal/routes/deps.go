package routes

import (
	"net/http"

	"github.com/nordmark/vitrine/internal/handler/api"
)

// APIDeps contains dependencies for the storefront API routes
type APIDeps struct {
	// Cart wire contract, written by the session engine's sync batches
	CartHandler *api.CartHandler

	// Checkout and redirect confirmation
	CheckoutHandler *api.CheckoutHandler

	// Orders (manual placement, reads, back-office transitions)
	OrderHandler *api.OrderHandler

	// Address book
	AddressHandler *api.AddressHandler

	// Probes
	HealthHandler *api.HealthHandler

	// Prometheus scrape endpoint
	MetricsHandler http.Handler
}
