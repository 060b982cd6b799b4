package cart

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/nordmark/vitrine/internal/domain"
	"github.com/nordmark/vitrine/internal/events"
	"github.com/nordmark/vitrine/internal/telemetry"
)

// DefaultDebounceWindow is how long the scheduler waits after the last
// mutation before committing a batch.
const DefaultDebounceWindow = 1200 * time.Millisecond

// Scheduler coalesces rapid cart mutations into debounced batches against
// the server store. It is a timer-driven state machine:
//
//	Idle -> (mutation) -> Scheduled -> (window elapses) -> InFlight -> Idle
//
// The debounce timer restarts on every mutation while Scheduled. Mutations
// arriving while a batch is InFlight accumulate into the next batch; when
// the batch completes and the next batch is non-empty, the scheduler goes
// straight back to Scheduled. At most one batch is ever in flight.
//
// After every batch the scheduler re-fetches the authoritative cart and
// hands it to the refresh observer, including after partial failures,
// which are resolved by resync, never by blindly re-sending the batch.
type Scheduler struct {
	store   ServerStore
	userID  string
	window  time.Duration
	timeout time.Duration
	logger  *slog.Logger
	bus     *events.Bus
	metrics *telemetry.BusinessMetrics

	// onRefresh receives the authoritative cart after each batch.
	onRefresh func([]domain.CartLine)

	// onSyncError receives batch failures after the resync.
	onSyncError func(error)

	mu      sync.Mutex
	status  domain.SyncStatus
	pending map[string]int32 // current window, keyed by product
	next    map[string]int32 // accumulates while a batch is in flight
	timer   *time.Timer
	stopped bool
}

// SchedulerConfig holds scheduler configuration.
type SchedulerConfig struct {
	// UserID identifies whose server cart the batches target.
	UserID string

	// Window is the debounce interval. Defaults to DefaultDebounceWindow.
	Window time.Duration

	// BatchTimeout bounds one ApplyBatch + re-fetch round trip. Defaults to 15s.
	BatchTimeout time.Duration

	// OnRefresh receives the authoritative cart after each completed batch.
	OnRefresh func([]domain.CartLine)

	// OnSyncError receives a partial-sync error when some batch items were
	// not applied, or the transport error when the whole batch failed. The
	// authoritative re-fetch runs either way.
	OnSyncError func(error)

	Logger  *slog.Logger
	Bus     *events.Bus
	Metrics *telemetry.BusinessMetrics
}

// NewScheduler creates a scheduler in the Idle state.
func NewScheduler(store ServerStore, cfg SchedulerConfig) *Scheduler {
	if cfg.Window <= 0 {
		cfg.Window = DefaultDebounceWindow
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = 15 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Scheduler{
		store:       store,
		userID:      cfg.UserID,
		window:      cfg.Window,
		timeout:     cfg.BatchTimeout,
		logger:      cfg.Logger,
		bus:         cfg.Bus,
		metrics:     cfg.Metrics,
		onRefresh:   cfg.OnRefresh,
		onSyncError: cfg.OnSyncError,
		pending:     make(map[string]int32),
		next:        make(map[string]int32),
	}
}

// Enqueue records a mutation: the latest target quantity per product wins
// within a window. Enqueue never blocks on sync state: mutations are
// accepted in every state, including while a batch is in flight.
func (s *Scheduler) Enqueue(productID string, targetQuantity int32) {
	s.mu.Lock()

	if s.stopped {
		s.mu.Unlock()
		return
	}

	var publish domain.SyncStatus = -1
	switch s.status {
	case domain.SyncInFlight:
		s.next[productID] = targetQuantity
	case domain.SyncScheduled:
		s.pending[productID] = targetQuantity
		s.timer.Reset(s.window)
	default: // Idle
		s.pending[productID] = targetQuantity
		s.status = domain.SyncScheduled
		s.timer = time.AfterFunc(s.window, s.fire)
		publish = domain.SyncScheduled
	}

	s.mu.Unlock()

	if publish >= 0 {
		s.publishStatus(publish)
	}
}

// Status returns the current sync state.
func (s *Scheduler) Status() domain.SyncStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Syncing reports Scheduled or InFlight. The UI uses it to gate checkout,
// never to block mutations.
func (s *Scheduler) Syncing() bool {
	return s.Status().Syncing()
}

// Stop abandons the scheduler: the debounce timer is cancelled and the
// result of any in-flight batch is discarded instead of applied. Called by
// the reconciler on identity transitions.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	if s.timer != nil {
		s.timer.Stop()
	}
}

// fire runs when the debounce window elapses: it promotes the pending map
// to an in-flight batch.
func (s *Scheduler) fire() {
	s.mu.Lock()

	if s.stopped || len(s.pending) == 0 {
		s.status = domain.SyncIdle
		s.mu.Unlock()
		return
	}

	batch := make([]domain.PendingMutation, 0, len(s.pending))
	for productID, quantity := range s.pending {
		batch = append(batch, domain.PendingMutation{ProductID: productID, TargetQuantity: quantity})
	}
	s.pending = make(map[string]int32)
	s.status = domain.SyncInFlight

	s.mu.Unlock()

	s.publishStatus(domain.SyncInFlight)
	s.run(batch)
}

// run sends one batch and resynchronizes from the authoritative cart.
func (s *Scheduler) run(batch []domain.PendingMutation) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	result, err := s.store.ApplyBatch(ctx, s.userID, batch)

	var syncErr error
	outcome := "ok"
	switch {
	case err != nil:
		outcome = "failed"
		syncErr = err
		s.logger.Warn("sync batch failed", "user_id", s.userID, "size", len(batch), "error", err)
	case len(result.Failed) > 0:
		outcome = "failed"
		if result.Partial() {
			outcome = "partial"
		}
		syncErr = domain.PartialSync("cart.sync", result.Applied, len(result.Failed))
		s.logger.Warn("sync batch incomplete",
			"user_id", s.userID,
			"applied", result.Applied,
			"failed", len(result.Failed),
		)
	}

	// Re-fetch regardless of outcome: the authoritative cart, not the
	// optimistic local state, is what the UI must converge on. The fetch
	// is sequenced after ApplyBatch so it observes the batch's effects.
	lines, fetchErr := s.store.Fetch(ctx, s.userID)
	if fetchErr != nil {
		s.logger.Warn("post-batch cart fetch failed", "user_id", s.userID, "error", fetchErr)
	}

	s.mu.Lock()

	if s.stopped {
		// Identity changed while the batch was in flight: discard the
		// result rather than applying it to the new identity's store.
		s.mu.Unlock()
		s.observeBatch(len(batch), "abandoned")
		return
	}

	var publish domain.SyncStatus
	if len(s.next) > 0 {
		s.pending, s.next = s.next, make(map[string]int32)
		s.status = domain.SyncScheduled
		s.timer = time.AfterFunc(s.window, s.fire)
		publish = domain.SyncScheduled
	} else {
		s.status = domain.SyncIdle
		publish = domain.SyncIdle
	}
	refresh := s.onRefresh
	onError := s.onSyncError

	s.mu.Unlock()

	s.observeBatch(len(batch), outcome)
	if fetchErr == nil && refresh != nil {
		refresh(lines)
	}
	if syncErr != nil && onError != nil {
		onError(syncErr)
	}
	s.publishStatus(publish)
}

func (s *Scheduler) publishStatus(status domain.SyncStatus) {
	if s.bus != nil {
		s.bus.Publish(events.Event{Topic: events.TopicCartSync, Payload: status})
	}
}

func (s *Scheduler) observeBatch(size int, result string) {
	if s.metrics == nil {
		return
	}
	s.metrics.SyncBatches.WithLabelValues(result).Inc()
	s.metrics.SyncBatchSize.Observe(float64(size))
}
