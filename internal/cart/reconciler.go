package cart

import (
	"context"

	"github.com/nordmark/vitrine/internal/domain"
)

// Login switches the session from the guest cart to userID's server cart.
// The guest cart is discarded, not merged: its persisted key is deleted
// before the server cart is adopted, so a later logout starts from an
// empty guest cart. The store swap is atomic with respect to mutations.
//
// If the authoritative fetch fails the identity still switches, but the
// cart state is unknown: Lines returns nothing and the caller gets a
// network error to surface. Refresh retries the fetch.
func (s *Session) Login(ctx context.Context, userID string) error {
	if userID == "" {
		return domain.Invalid("cart.login", "user ID is required")
	}

	s.mu.Lock()

	if s.identity.UserID() == userID {
		s.mu.Unlock()
		return nil
	}

	// Re-login as a different user: abandon the old identity's scheduler
	// first so its in-flight batch cannot touch the new state.
	if s.sched != nil {
		s.sched.Stop()
		s.sched = nil
	}

	s.local.Clear()
	s.identity = domain.Authenticated(userID)
	s.snapshot = nil
	s.sched = NewScheduler(s.server, SchedulerConfig{
		UserID:       userID,
		Window:       s.window,
		BatchTimeout: s.batchTimeout,
		OnRefresh: func(lines []domain.CartLine) {
			s.applySnapshot(userID, lines)
		},
		Logger:  s.logger,
		Bus:     s.bus,
		Metrics: s.metrics,
	})

	s.mu.Unlock()

	s.logger.Info("cart identity switched", "user_id", userID)

	lines, err := s.server.Fetch(ctx, userID)
	if err != nil {
		s.logger.Warn("initial cart fetch failed", "user_id", userID, "error", err)
		return err
	}

	s.applySnapshot(userID, lines)
	return nil
}

// Logout returns the session to a fresh guest cart. Any in-flight batch
// for the old identity is abandoned; its result will not leak into the
// guest cart.
func (s *Session) Logout() {
	s.mu.Lock()

	if s.identity.IsGuest() {
		s.mu.Unlock()
		return
	}

	userID := s.identity.UserID()
	if s.sched != nil {
		s.sched.Stop()
		s.sched = nil
	}
	s.identity = domain.Guest()
	s.snapshot = nil
	s.local = NewLocalStore(s.storage, s.bus)
	s.notifyLocked()

	s.mu.Unlock()

	s.logger.Info("cart identity cleared", "user_id", userID)
}

// Refresh re-fetches the authoritative cart for the current identity.
// No-op for guests.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	identity := s.identity
	s.mu.Unlock()

	if identity.IsGuest() {
		return nil
	}

	lines, err := s.server.Fetch(ctx, identity.UserID())
	if err != nil {
		return err
	}

	s.applySnapshot(identity.UserID(), lines)
	return nil
}
