package domain

import "time"

// Order domain errors.
var (
	ErrOrderNotFound      = &Error{Code: ENOTFOUND, Message: "Order not found"}
	ErrInvalidTransition  = &Error{Code: ECONFLICT, Message: "Order status transition not allowed"}
	ErrStaleRedirect      = &Error{Code: ESTALE, Message: "Redirect status contradicts verified gateway status"}
	ErrPaymentNotApproved = &Error{Code: EGATEWAY, Message: "Payment has not been approved by the gateway"}
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderPaid      OrderStatus = "PAID"
	OrderShipped   OrderStatus = "SHIPPED"
	OrderCancelled OrderStatus = "CANCELLED"
)

// orderTransitions lists the allowed forward edges. Cancellation is only
// reachable from PENDING: an already-paid order cannot be silently
// cancelled through this path.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending: {OrderPaid, OrderCancelled},
	OrderPaid:    {OrderShipped},
}

// CanTransition reports whether from -> to is an allowed order transition.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// OrderItem is a priced line snapshot frozen at order creation.
type OrderItem struct {
	ProductID       string `json:"productId"`
	Quantity        int32  `json:"quantity"`
	UnitPriceCents  int32  `json:"unitPriceCents"`
	DiscountPercent int32  `json:"discountPercent"`
}

// Order is the persisted record of a placed order. Orders are created once,
// mutated only through guarded status transitions, and never deleted
// (audit trail). UserID is empty for guest orders placed through the
// manual handoff path.
type Order struct {
	OrderID       string      `json:"orderId"`
	UserID        string      `json:"userId,omitempty"`
	AddressID     string      `json:"addressId"`
	Items         []OrderItem `json:"items"`
	Status        OrderStatus `json:"status"`
	PaymentID     string      `json:"paymentId,omitempty"`
	SubtotalCents int32       `json:"subtotalCents"`
	DiscountCents int32       `json:"discountCents"`
	ShippingCents int32       `json:"shippingCents"`
	TotalCents    int32       `json:"totalCents"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}
