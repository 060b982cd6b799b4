package api

import (
	"net/http"

	"github.com/nordmark/vitrine/internal/address"
	"github.com/nordmark/vitrine/internal/checkout"
	"github.com/nordmark/vitrine/internal/domain"
	"github.com/nordmark/vitrine/internal/order"
	"github.com/nordmark/vitrine/internal/shipping"
)

// OrderHandler serves order reads, the manual placement path and the
// back-office transitions.
type OrderHandler struct {
	machine   *order.Machine
	addresses address.Store
	shipping  shipping.Calculator
}

// NewOrderHandler creates an order handler.
func NewOrderHandler(machine *order.Machine, addresses address.Store, ship shipping.Calculator) *OrderHandler {
	return &OrderHandler{machine: machine, addresses: addresses, shipping: ship}
}

type createOrderRequest struct {
	UserID    string `json:"userId,omitempty"`
	AddressID string `json:"addressId"`
	Items     []struct {
		ProductID       string `json:"productId"`
		Quantity        int32  `json:"quantity"`
		UnitPriceCents  int32  `json:"unitPriceCents"`
		DiscountPercent int32  `json:"discountPercent"`
	} `json:"items"`
}

// Create handles POST /order/create: the manual handoff path. The items
// arrive in the request because guest carts live on the client; the order
// starts PENDING with no gateway payment attached.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if req.AddressID == "" {
		respondError(w, r, domain.ErrNoAddressSelected)
		return
	}

	addr, err := h.addresses.GetByID(ctx, req.AddressID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	lines := make([]domain.CartLine, 0, len(req.Items))
	var subtotal int32
	for _, it := range req.Items {
		if it.Quantity <= 0 {
			respondError(w, r, domain.ErrInvalidQuantity)
			return
		}
		lineTotal := it.UnitPriceCents * it.Quantity
		subtotal += lineTotal - lineTotal*it.DiscountPercent/100
		lines = append(lines, domain.CartLine{
			ProductID:       it.ProductID,
			Quantity:        it.Quantity,
			UnitPriceCents:  it.UnitPriceCents,
			DiscountPercent: it.DiscountPercent,
		})
	}

	shippingCents, err := h.shipping.Quote(ctx, addr, subtotal)
	if err != nil {
		respondError(w, r, domain.Internal(err, "order.create", "failed to quote shipping"))
		return
	}

	draft, err := checkout.BuildDraft(lines, req.AddressID, shippingCents)
	if err != nil {
		respondError(w, r, err)
		return
	}

	o, err := h.machine.CreateManual(ctx, req.UserID, draft)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, o)
}

// Get handles GET /orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	o, err := h.machine.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

// List handles GET /orders?userId=...
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		respondError(w, r, domain.Invalid("order.list", "userId is required"))
		return
	}

	orders, err := h.machine.ListByUser(r.Context(), userID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	respondJSON(w, http.StatusOK, orders)
}

// Ship handles POST /orders/{id}/ship.
func (h *OrderHandler) Ship(w http.ResponseWriter, r *http.Request) {
	o, err := h.machine.MarkShipped(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

// Cancel handles POST /orders/{id}/cancel.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	o, err := h.machine.Cancel(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}
