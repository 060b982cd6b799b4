package cart

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"github.com/nordmark/vitrine/internal/domain"
	"github.com/nordmark/vitrine/internal/events"
	"github.com/nordmark/vitrine/internal/storage"
)

// StorageKey is the well-known key holding the serialized guest cart.
const StorageKey = "vitrine.cart"

// LocalStore holds the guest cart. All operations are synchronous and
// immediately visible to readers. Every mutation is written through to the
// backing store and published on the bus for the cart-count UI.
type LocalStore struct {
	mu    sync.Mutex
	lines []domain.CartLine
	store storage.Store
	bus   *events.Bus
}

// NewLocalStore creates a guest cart backed by store, loading any cart
// persisted under StorageKey. Unreadable or corrupt persisted state
// degrades to an empty cart rather than failing.
func NewLocalStore(store storage.Store, bus *events.Bus) *LocalStore {
	s := &LocalStore{store: store, bus: bus}

	if data, err := store.Read(StorageKey); err == nil {
		var lines []domain.CartLine
		if json.Unmarshal(data, &lines) == nil {
			s.lines = lines
		}
	}

	return s
}

// Lines returns a copy of the current cart lines.
func (s *LocalStore) Lines() []domain.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyLines()
}

// Upsert adds the line or, if a line for the product exists, sets its
// quantity. A zero quantity removes the line (tombstones are resolved
// immediately in the local store; there is no remote write to wait for).
func (s *LocalStore) Upsert(line domain.CartLine) error {
	if line.Quantity < 0 {
		return domain.ErrInvalidQuantity
	}
	if line.Quantity == 0 {
		return s.Remove(line.ProductID)
	}

	s.mu.Lock()
	for i := range s.lines {
		if s.lines[i].ProductID == line.ProductID {
			s.lines[i].Quantity = line.Quantity
			s.persistAndNotify()
			s.mu.Unlock()
			return nil
		}
	}

	if line.LineID == "" {
		line.LineID = uuid.New().String()
	}
	s.lines = append(s.lines, line)
	s.persistAndNotify()
	s.mu.Unlock()
	return nil
}

// SetQuantity sets the quantity of an existing line. Zero removes it.
func (s *LocalStore) SetQuantity(productID string, quantity int32) error {
	if quantity < 0 {
		return domain.ErrInvalidQuantity
	}
	if quantity == 0 {
		return s.Remove(productID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.lines {
		if s.lines[i].ProductID == productID {
			s.lines[i].Quantity = quantity
			s.persistAndNotify()
			return nil
		}
	}

	return domain.ErrLineNotFound
}

// Remove deletes the line for a product. Removing a missing product is not
// an error.
func (s *LocalStore) Remove(productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.lines {
		if s.lines[i].ProductID == productID {
			s.lines = append(s.lines[:i], s.lines[i+1:]...)
			s.persistAndNotify()
			return nil
		}
	}

	return nil
}

// Clear empties the cart and deletes the persisted key. Used by the
// reconciler when the guest cart is discarded on login.
func (s *LocalStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lines = nil
	_ = s.store.Delete(StorageKey)
	s.notify()
}

// ItemCount returns the total quantity across all lines (cart badge).
func (s *LocalStore) ItemCount() int32 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int32
	for _, l := range s.lines {
		n += l.Quantity
	}
	return n
}

// persistAndNotify writes through to storage and publishes the change.
// Callers hold s.mu. Local mutations never fail: a storage write error
// loses durability, not the in-memory cart.
func (s *LocalStore) persistAndNotify() {
	if data, err := json.Marshal(s.lines); err == nil {
		_ = s.store.Write(StorageKey, data)
	}
	s.notify()
}

func (s *LocalStore) notify() {
	if s.bus != nil {
		s.bus.Publish(events.Event{Topic: events.TopicCartChanged, Payload: s.copyLines()})
	}
}

// copyLines returns a defensive copy. Callers hold s.mu.
func (s *LocalStore) copyLines() []domain.CartLine {
	out := make([]domain.CartLine, len(s.lines))
	copy(out, s.lines)
	return out
}
