package cart

import (
	"log/slog"
	"sync"
	"time"

	"github.com/nordmark/vitrine/internal/domain"
	"github.com/nordmark/vitrine/internal/events"
	"github.com/nordmark/vitrine/internal/storage"
	"github.com/nordmark/vitrine/internal/telemetry"
)

// Session is the single entry point for cart reads and writes. It owns
// exactly one active store at a time: the guest LocalStore, or, once an
// identity is established, an authoritative snapshot kept in sync with
// the ServerStore through the scheduler. All mutations funnel through the
// session; nothing writes to the server store directly.
type Session struct {
	server  ServerStore
	storage storage.Store
	bus     *events.Bus
	logger  *slog.Logger
	metrics *telemetry.BusinessMetrics

	window       time.Duration
	batchTimeout time.Duration

	mu       sync.Mutex
	identity domain.Identity
	local    *LocalStore
	sched    *Scheduler
	snapshot []domain.CartLine // authoritative view, authenticated only
}

// SessionConfig holds session configuration.
type SessionConfig struct {
	Server  ServerStore
	Storage storage.Store

	// Window and BatchTimeout are passed through to the scheduler.
	Window       time.Duration
	BatchTimeout time.Duration

	Bus     *events.Bus
	Logger  *slog.Logger
	Metrics *telemetry.BusinessMetrics
}

// NewSession creates a session starting as a guest, loading any persisted
// guest cart.
func NewSession(cfg SessionConfig) *Session {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Storage == nil {
		cfg.Storage = storage.NewMemoryStore()
	}

	return &Session{
		server:       cfg.Server,
		storage:      cfg.Storage,
		bus:          cfg.Bus,
		logger:       cfg.Logger,
		metrics:      cfg.Metrics,
		window:       cfg.Window,
		batchTimeout: cfg.BatchTimeout,
		identity:     domain.Guest(),
		local:        NewLocalStore(cfg.Storage, cfg.Bus),
	}
}

// Identity returns the current cart identity.
func (s *Session) Identity() domain.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// Lines returns the active cart's lines: the local store for guests, the
// authoritative snapshot for authenticated users.
func (s *Session) Lines() []domain.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.identity.IsGuest() {
		return s.local.Lines()
	}

	out := make([]domain.CartLine, 0, len(s.snapshot))
	for _, l := range s.snapshot {
		if !l.Tombstone() {
			out = append(out, l)
		}
	}
	return out
}

// Syncing reports whether a batch is scheduled or in flight. The UI gates
// checkout on this; mutations are never blocked by it.
func (s *Session) Syncing() bool {
	s.mu.Lock()
	sched := s.sched
	s.mu.Unlock()

	return sched != nil && sched.Syncing()
}

// Upsert adds a line or sets the quantity of an existing one.
func (s *Session) Upsert(line domain.CartLine) error {
	if line.Quantity < 0 {
		return domain.ErrInvalidQuantity
	}
	s.countMutation("upsert")

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.identity.IsGuest() {
		return s.local.Upsert(line)
	}

	s.applyOptimistic(line)
	s.sched.Enqueue(line.ProductID, line.Quantity)
	s.notifyLocked()
	return nil
}

// SetQuantity sets the quantity for a product. Zero tombstones the line.
func (s *Session) SetQuantity(productID string, quantity int32) error {
	if quantity < 0 {
		return domain.ErrInvalidQuantity
	}
	s.countMutation("upsert")

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.identity.IsGuest() {
		return s.local.SetQuantity(productID, quantity)
	}

	for i := range s.snapshot {
		if s.snapshot[i].ProductID == productID {
			s.snapshot[i].Quantity = quantity
			s.sched.Enqueue(productID, quantity)
			s.notifyLocked()
			return nil
		}
	}

	return domain.ErrLineNotFound
}

// Remove deletes the line for a product.
func (s *Session) Remove(productID string) error {
	s.countMutation("remove")

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.identity.IsGuest() {
		return s.local.Remove(productID)
	}

	// Tombstone locally, delete remotely via the next batch.
	for i := range s.snapshot {
		if s.snapshot[i].ProductID == productID {
			s.snapshot[i].Quantity = 0
		}
	}
	s.sched.Enqueue(productID, 0)
	s.notifyLocked()
	return nil
}

// applyOptimistic updates the snapshot in place. Callers hold s.mu.
func (s *Session) applyOptimistic(line domain.CartLine) {
	for i := range s.snapshot {
		if s.snapshot[i].ProductID == line.ProductID {
			s.snapshot[i].Quantity = line.Quantity
			return
		}
	}
	s.snapshot = append(s.snapshot, line)
}

// applySnapshot installs an authoritative cart fetched for forUser. A
// refresh from a batch abandoned by an identity switch is dropped here.
func (s *Session) applySnapshot(forUser string, lines []domain.CartLine) {
	s.mu.Lock()

	if s.identity.UserID() != forUser {
		s.mu.Unlock()
		return
	}
	s.snapshot = lines
	s.notifyLocked()
	s.mu.Unlock()
}

// notifyLocked publishes the current view for the cart-count UI.
// Callers hold s.mu.
func (s *Session) notifyLocked() {
	if s.bus == nil {
		return
	}

	out := make([]domain.CartLine, 0, len(s.snapshot))
	for _, l := range s.snapshot {
		if !l.Tombstone() {
			out = append(out, l)
		}
	}
	s.bus.Publish(events.Event{Topic: events.TopicCartChanged, Payload: out})
}

func (s *Session) countMutation(kind string) {
	if s.metrics != nil {
		s.metrics.CartMutations.WithLabelValues(kind).Inc()
	}
}
