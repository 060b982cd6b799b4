package routes

import (
	"github.com/nordmark/vitrine/internal/router"
)

// RegisterAPIRoutes registers the storefront API surface.
func RegisterAPIRoutes(r *router.Router, deps APIDeps) {
	// Cart wire contract
	r.Get("/cart-item/{userID}", deps.CartHandler.Get)
	r.Patch("/cart-item/update-quantity", deps.CartHandler.UpdateQuantity)
	r.Delete("/cart-item/remove", deps.CartHandler.Remove)

	// Checkout
	r.Post("/payment/create", deps.CheckoutHandler.CreatePayment)
	r.Get("/payment/status/{id}", deps.CheckoutHandler.PaymentStatus)
	r.Get("/order-confirmation", deps.CheckoutHandler.Confirmation)

	// Orders
	r.Post("/order/create", deps.OrderHandler.Create)
	r.Get("/orders", deps.OrderHandler.List)
	r.Get("/orders/{id}", deps.OrderHandler.Get)
	r.Post("/orders/{id}/ship", deps.OrderHandler.Ship)
	r.Post("/orders/{id}/cancel", deps.OrderHandler.Cancel)

	// Address book
	r.Post("/address", deps.AddressHandler.Create)
	r.Get("/address/user/{userID}", deps.AddressHandler.List)
	r.Delete("/address/{id}", deps.AddressHandler.Delete)

	// Operational endpoints
	r.Get("/healthz", deps.HealthHandler.Healthz)
	r.Get("/readyz", deps.HealthHandler.Readyz)
	r.Handle("GET", "/metrics", deps.MetricsHandler)
}
