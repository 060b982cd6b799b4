package api

import (
	"context"
	"net/http"

	"github.com/nordmark/vitrine/internal/catalog"
	"github.com/nordmark/vitrine/internal/domain"
)

// CartStore is the server-side cart persistence the handler writes to.
type CartStore interface {
	GetLines(ctx context.Context, userID string) ([]domain.CartLine, error)
	UpsertQuantity(ctx context.Context, userID, productID string, quantity, unitPriceCents, discountPercent int32) error
	Remove(ctx context.Context, userID, productID string) error
}

// CartHandler serves the cart wire contract consumed by the session
// engine's sync batches:
//
//	GET    /cart-item/{userID}
//	PATCH  /cart-item/update-quantity
//	DELETE /cart-item/remove
type CartHandler struct {
	store   CartStore
	catalog catalog.Service
}

// NewCartHandler creates a cart handler.
func NewCartHandler(store CartStore, cat catalog.Service) *CartHandler {
	return &CartHandler{store: store, catalog: cat}
}

// Get handles GET /cart-item/{userID}. An empty cart returns an empty
// array, never null: clients distinguish "empty" from "unreachable" by
// status code alone.
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")
	if userID == "" {
		respondError(w, r, domain.Invalid("cart.get", "user ID is required"))
		return
	}

	lines, err := h.store.GetLines(r.Context(), userID)
	if err != nil {
		respondError(w, r, domain.Internal(err, "cart.get", "failed to load cart"))
		return
	}
	if lines == nil {
		lines = []domain.CartLine{}
	}

	respondJSON(w, http.StatusOK, lines)
}

// The update body names the product itemId while remove names it
// productId. Both carry the catalog product ID; the asymmetry is part of
// the published contract.
type cartUpdateRequest struct {
	UserID   string `json:"userId"`
	ItemID   string `json:"itemId"`
	Quantity int32  `json:"quantity,omitempty"`
}

type cartRemoveRequest struct {
	UserID    string `json:"userId"`
	ProductID string `json:"productId"`
}

// UpdateQuantity handles PATCH /cart-item/update-quantity. The quantity is
// a target value, not a delta, so a replayed batch item is harmless. New
// lines snapshot the catalog's current price and discount.
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var req cartUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if req.UserID == "" || req.ItemID == "" {
		respondError(w, r, domain.Invalid("cart.update", "userId and itemId are required"))
		return
	}
	if req.Quantity <= 0 {
		respondError(w, r, domain.ErrInvalidQuantity)
		return
	}

	product, err := h.catalog.GetProduct(r.Context(), req.ItemID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if product.Stock < req.Quantity {
		respondError(w, r, domain.Invalid("cart.update", "requested quantity exceeds stock"))
		return
	}

	err = h.store.UpsertQuantity(r.Context(), req.UserID, req.ItemID, req.Quantity, product.PriceCents, product.DiscountPercent)
	if err != nil {
		respondError(w, r, domain.Internal(err, "cart.update", "failed to update cart item"))
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"userId":   req.UserID,
		"itemId":   req.ItemID,
		"quantity": req.Quantity,
	})
}

// Remove handles DELETE /cart-item/remove. Removing an absent line
// succeeds: deletes are idempotent so batch replays cannot fail here.
func (h *CartHandler) Remove(w http.ResponseWriter, r *http.Request) {
	var req cartRemoveRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if req.UserID == "" || req.ProductID == "" {
		respondError(w, r, domain.Invalid("cart.remove", "userId and productId are required"))
		return
	}

	if err := h.store.Remove(r.Context(), req.UserID, req.ProductID); err != nil {
		respondError(w, r, domain.Internal(err, "cart.remove", "failed to remove cart item"))
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"userId":    req.UserID,
		"productId": req.ProductID,
	})
}
