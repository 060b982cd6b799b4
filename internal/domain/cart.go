package domain

// Cart domain errors.
var (
	ErrCartNotFound    = &Error{Code: ENOTFOUND, Message: "Cart not found"}
	ErrLineNotFound    = &Error{Code: ENOTFOUND, Message: "Cart line not found"}
	ErrInvalidQuantity = &Error{Code: EINVALID, Message: "Quantity must not be negative"}
	ErrCartUnavailable = &Error{Code: ENETWORK, Message: "Cart state unknown: server unreachable"}
)

// CartLine is a single cart entry with a price snapshot taken at add time.
// A line with Quantity == 0 is a removal tombstone: it marks a pending
// delete and is never persisted as zero in the authoritative store.
// Lines are owned by exactly one store at a time; identity transitions copy
// values, never share references.
type CartLine struct {
	LineID          string `json:"lineId"`
	ProductID       string `json:"productId"`
	Quantity        int32  `json:"quantity"`
	UnitPriceCents  int32  `json:"unitPriceCents"`
	DiscountPercent int32  `json:"discountPercent"`
}

// Tombstone reports whether the line is a pending removal.
func (l CartLine) Tombstone() bool {
	return l.Quantity == 0
}

// Identity is the cart's owner: guest (no backing key) or an authenticated
// user. An identity is immutable for the lifetime of a session fragment;
// switching identity forces a new cart store through the reconciler.
type Identity struct {
	userID string
}

// Guest returns the anonymous identity.
func Guest() Identity {
	return Identity{}
}

// Authenticated returns the identity for a known user.
func Authenticated(userID string) Identity {
	return Identity{userID: userID}
}

// IsGuest reports whether no user identity is established.
func (i Identity) IsGuest() bool {
	return i.userID == ""
}

// UserID returns the backing user id, or "" for guests.
func (i Identity) UserID() string {
	return i.userID
}

func (i Identity) String() string {
	if i.IsGuest() {
		return "guest"
	}
	return "user:" + i.userID
}

// PendingMutation is a coalesced cart write: the latest target quantity for
// a product within one debounce window. TargetQuantity <= 0 requests a
// delete; anything else is a quantity-set upsert. Mutations are keyed by
// product so that only the last write per product survives a window.
type PendingMutation struct {
	ProductID      string `json:"productId"`
	TargetQuantity int32  `json:"targetQuantity"`
}

// SyncStatus describes the sync scheduler's state machine.
type SyncStatus int

const (
	// SyncIdle means no pending mutations and no batch in flight.
	SyncIdle SyncStatus = iota

	// SyncScheduled means mutations are pending and the debounce timer is
	// running; each new mutation restarts the timer.
	SyncScheduled

	// SyncInFlight means a batch has been sent. At most one batch is in
	// flight per identity; mutations arriving now queue into the next batch.
	SyncInFlight
)

func (s SyncStatus) String() string {
	switch s {
	case SyncIdle:
		return "idle"
	case SyncScheduled:
		return "scheduled"
	case SyncInFlight:
		return "in_flight"
	default:
		return "unknown"
	}
}

// Syncing reports whether the UI should show a sync indicator
// (Scheduled or InFlight). It gates destructive actions like checkout but
// never blocks cart mutations.
func (s SyncStatus) Syncing() bool {
	return s == SyncScheduled || s == SyncInFlight
}
