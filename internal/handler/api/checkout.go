package api

import (
	"errors"
	"net/http"

	"github.com/nordmark/vitrine/internal/address"
	"github.com/nordmark/vitrine/internal/checkout"
	"github.com/nordmark/vitrine/internal/domain"
	"github.com/nordmark/vitrine/internal/gateway"
	"github.com/nordmark/vitrine/internal/order"
	"github.com/nordmark/vitrine/internal/shipping"
)

// CheckoutHandler drives payment creation and redirect confirmation.
type CheckoutHandler struct {
	carts        CartStore
	addresses    address.Store
	shipping     shipping.Calculator
	orchestrator checkout.Orchestrator
	machine      *order.Machine
	gateway      gateway.Provider
}

// NewCheckoutHandler creates a checkout handler.
func NewCheckoutHandler(carts CartStore, addresses address.Store, ship shipping.Calculator, orch checkout.Orchestrator, machine *order.Machine, gw gateway.Provider) *CheckoutHandler {
	return &CheckoutHandler{
		carts:        carts,
		addresses:    addresses,
		shipping:     ship,
		orchestrator: orch,
		machine:      machine,
		gateway:      gw,
	}
}

type createPaymentRequest struct {
	UserID    string `json:"userId"`
	AddressID string `json:"addressId"`
}

type createPaymentResponse struct {
	ID        string `json:"id"`
	InitPoint string `json:"init_point"`
}

// CreatePayment handles POST /payment/create. It prices the server cart
// into a draft, requests (or reuses) the payment intent for that draft,
// and makes sure a PENDING order exists for the payment before the buyer
// is redirected.
func (h *CheckoutHandler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if req.UserID == "" {
		respondError(w, r, domain.Invalid("checkout.create", "userId is required"))
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
	if addr.UserID != req.UserID {
		respondError(w, r, domain.NotFound("checkout.create", "address", req.AddressID))
		return
	}

	lines, err := h.carts.GetLines(ctx, req.UserID)
	if err != nil {
		respondError(w, r, domain.Internal(err, "checkout.create", "failed to load cart"))
		return
	}

	var subtotal int32
	for _, l := range lines {
		lineTotal := l.UnitPriceCents * l.Quantity
		subtotal += lineTotal - lineTotal*l.DiscountPercent/100
	}

	shippingCents, err := h.shipping.Quote(ctx, addr, subtotal)
	if err != nil {
		respondError(w, r, domain.Internal(err, "checkout.create", "failed to quote shipping"))
		return
	}

	draft, err := checkout.BuildDraft(lines, req.AddressID, shippingCents)
	if err != nil {
		respondError(w, r, err)
		return
	}

	intent, err := h.orchestrator.RequestPayment(ctx, draft)
	if err != nil {
		respondError(w, r, err)
		return
	}

	// The order rides on the payment: a reused intent already has one.
	if _, err := h.machine.GetByPayment(ctx, intent.PreferenceID); err != nil {
		if !errors.Is(err, domain.ErrOrderNotFound) {
			respondError(w, r, err)
			return
		}
		if _, err := h.machine.CreateFromIntent(ctx, req.UserID, draft, intent.PreferenceID); err != nil {
			respondError(w, r, err)
			return
		}
	}

	respondJSON(w, http.StatusCreated, createPaymentResponse{
		ID:        intent.PreferenceID,
		InitPoint: intent.InitPoint,
	})
}

type paymentStatusResponse struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	OrderID     string `json:"orderId,omitempty"`
	OrderStatus string `json:"orderStatus,omitempty"`
}

// PaymentStatus handles GET /payment/status/{id}: the authoritative
// gateway status plus the bound order's state.
func (h *CheckoutHandler) PaymentStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	paymentID := r.PathValue("id")
	if paymentID == "" {
		respondError(w, r, domain.Invalid("checkout.status", "payment ID is required"))
		return
	}

	status, err := h.gateway.GetPaymentStatus(ctx, paymentID)
	if err != nil {
		if errors.Is(err, gateway.ErrPaymentNotFound) {
			respondError(w, r, domain.NotFound("checkout.status", "payment", paymentID))
			return
		}
		respondError(w, r, err)
		return
	}

	resp := paymentStatusResponse{ID: paymentID, Status: string(status)}
	if o, err := h.machine.GetByPayment(ctx, paymentID); err == nil {
		resp.OrderID = o.OrderID
		resp.OrderStatus = string(o.Status)
	}

	respondJSON(w, http.StatusOK, resp)
}

type confirmationResponse struct {
	OrderID     string `json:"orderId"`
	OrderStatus string `json:"orderStatus"`
	PaymentID   string `json:"paymentId"`
}

// Confirmation handles GET /order-confirmation. The query parameters come
// from the gateway redirect through the buyer's browser; the state machine
// re-verifies with the gateway before trusting any of it.
func (h *CheckoutHandler) Confirmation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claimed := r.URL.Query().Get("status")
	if claimed == "" {
		// Some gateways report the outcome under collection_status instead.
		claimed = r.URL.Query().Get("collection_status")
	}

	params := order.RedirectParams{
		PaymentID:     r.URL.Query().Get("payment_id"),
		ClaimedStatus: claimed,
	}

	o, err := h.machine.ConfirmRedirect(ctx, params)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, confirmationResponse{
		OrderID:     o.OrderID,
		OrderStatus: string(o.Status),
		PaymentID:   o.PaymentID,
	})
}
