package api

import (
	"net/http"

	"github.com/nordmark/vitrine/internal/address"
	"github.com/nordmark/vitrine/internal/domain"
)

// AddressHandler serves the address book.
type AddressHandler struct {
	store address.Store
}

// NewAddressHandler creates an address handler.
func NewAddressHandler(store address.Store) *AddressHandler {
	return &AddressHandler{store: store}
}

// Create handles POST /address.
func (h *AddressHandler) Create(w http.ResponseWriter, r *http.Request) {
	var addr address.Address
	if err := decodeJSON(r, &addr); err != nil {
		respondError(w, r, err)
		return
	}
	if addr.UserID == "" {
		respondError(w, r, domain.Invalid("address.create", "userId is required"))
		return
	}
	addr.ID = ""

	if err := address.Validate(&addr); err != nil {
		respondError(w, r, err)
		return
	}

	if err := h.store.Create(r.Context(), &addr); err != nil {
		respondError(w, r, domain.Internal(err, "address.create", "failed to store address"))
		return
	}

	respondJSON(w, http.StatusCreated, addr)
}

// List handles GET /address/user/{userID}.
func (h *AddressHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")
	if userID == "" {
		respondError(w, r, domain.Invalid("address.list", "user ID is required"))
		return
	}

	addrs, err := h.store.ListByUser(r.Context(), userID)
	if err != nil {
		respondError(w, r, domain.Internal(err, "address.list", "failed to list addresses"))
		return
	}
	if addrs == nil {
		addrs = []address.Address{}
	}
	respondJSON(w, http.StatusOK, addrs)
}

// Delete handles DELETE /address/{id}?userId=...
func (h *AddressHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		respondError(w, r, domain.Invalid("address.delete", "userId is required"))
		return
	}

	if err := h.store.Delete(r.Context(), r.PathValue("id"), userID); err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusNoContent, nil)
}
