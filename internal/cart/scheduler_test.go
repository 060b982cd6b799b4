package cart_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nordmark/vitrine/internal/cart"
	"github.com/nordmark/vitrine/internal/domain"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestScheduler_CoalescesRapidMutations(t *testing.T) {
	store := cart.NewMockServerStore()
	s := cart.NewScheduler(store, cart.SchedulerConfig{
		UserID: "u1",
		Window: 50 * time.Millisecond,
	})

	// Three rapid clicks on the same product: only the last target counts.
	s.Enqueue("p1", 3)
	s.Enqueue("p1", 4)
	s.Enqueue("p1", 5)

	assert.Equal(t, domain.SyncScheduled, s.Status())

	waitFor(t, time.Second, func() bool { return s.Status() == domain.SyncIdle })

	batches := store.Batches()
	require.Len(t, batches, 1, "rapid mutations must coalesce into one batch")
	require.Len(t, batches[0], 1)
	assert.Equal(t, "p1", batches[0][0].ProductID)
	assert.Equal(t, int32(5), batches[0][0].TargetQuantity)
}

func TestScheduler_LastWritePerProductWins(t *testing.T) {
	store := cart.NewMockServerStore()
	s := cart.NewScheduler(store, cart.SchedulerConfig{
		UserID: "u1",
		Window: 50 * time.Millisecond,
	})

	s.Enqueue("p1", 2)
	s.Enqueue("p2", 7)
	s.Enqueue("p1", 0) // removed before the window closed

	waitFor(t, time.Second, func() bool { return s.Status() == domain.SyncIdle })

	batches := store.Batches()
	require.Len(t, batches, 1)
	require.Len(t, batches[0], 2)

	targets := map[string]int32{}
	for _, m := range batches[0] {
		targets[m.ProductID] = m.TargetQuantity
	}
	assert.Equal(t, int32(0), targets["p1"])
	assert.Equal(t, int32(7), targets["p2"])
}

func TestScheduler_TimerRestartsOnMutation(t *testing.T) {
	store := cart.NewMockServerStore()
	s := cart.NewScheduler(store, cart.SchedulerConfig{
		UserID: "u1",
		Window: 120 * time.Millisecond,
	})

	s.Enqueue("p1", 1)
	time.Sleep(70 * time.Millisecond)
	s.Enqueue("p1", 2) // restarts the window

	// The original window has elapsed, but the restarted one has not.
	time.Sleep(70 * time.Millisecond)
	assert.Empty(t, store.Batches(), "batch must not fire while mutations keep arriving")

	waitFor(t, time.Second, func() bool { return len(store.Batches()) == 1 })
	assert.Equal(t, int32(2), store.Batches()[0][0].TargetQuantity)
}

func TestScheduler_MutationsDuringInFlightFormNextBatch(t *testing.T) {
	store := cart.NewMockServerStore()
	inFlight := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	store.OnBatch = func([]domain.PendingMutation) {
		once.Do(func() {
			close(inFlight)
			<-release
		})
	}

	s := cart.NewScheduler(store, cart.SchedulerConfig{
		UserID: "u1",
		Window: 30 * time.Millisecond,
	})

	s.Enqueue("p1", 1)
	<-inFlight
	assert.Equal(t, domain.SyncInFlight, s.Status())

	// Mutations while in flight are accepted, never dropped.
	s.Enqueue("p2", 4)
	close(release)

	waitFor(t, time.Second, func() bool { return len(store.Batches()) == 2 })
	waitFor(t, time.Second, func() bool { return s.Status() == domain.SyncIdle })

	batches := store.Batches()
	require.Len(t, batches[1], 1)
	assert.Equal(t, "p2", batches[1][0].ProductID)
}

func TestScheduler_StopAbandonsInFlightResult(t *testing.T) {
	store := cart.NewMockServerStore()
	inFlight := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	store.OnBatch = func([]domain.PendingMutation) {
		once.Do(func() {
			close(inFlight)
			<-release
		})
	}

	var mu sync.Mutex
	var refreshed bool
	s := cart.NewScheduler(store, cart.SchedulerConfig{
		UserID: "u1",
		Window: 30 * time.Millisecond,
		OnRefresh: func([]domain.CartLine) {
			mu.Lock()
			refreshed = true
			mu.Unlock()
		},
	})

	s.Enqueue("p1", 1)
	<-inFlight

	// Identity transition while the batch is in flight.
	s.Stop()
	close(release)

	time.Sleep(100 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.False(t, refreshed, "abandoned batch result must not be applied")
}

func TestScheduler_PartialFailureResolvedByRefetch(t *testing.T) {
	store := cart.NewMockServerStore()
	store.FailProducts["p2"] = true

	var mu sync.Mutex
	var refreshedWith []domain.CartLine
	s := cart.NewScheduler(store, cart.SchedulerConfig{
		UserID: "u1",
		Window: 30 * time.Millisecond,
		OnRefresh: func(lines []domain.CartLine) {
			mu.Lock()
			refreshedWith = lines
			mu.Unlock()
		},
	})

	s.Enqueue("p1", 2)
	s.Enqueue("p2", 9)

	waitFor(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return refreshedWith != nil
	})

	// The authoritative re-fetch reflects what actually applied: p1 only.
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, refreshedWith, 1)
	assert.Equal(t, "p1", refreshedWith[0].ProductID)
	assert.Equal(t, int32(2), refreshedWith[0].Quantity)
}

func TestScheduler_PartialFailureReportedAsSyncError(t *testing.T) {
	store := cart.NewMockServerStore()
	store.FailProducts["p2"] = true

	var mu sync.Mutex
	var syncErr error
	s := cart.NewScheduler(store, cart.SchedulerConfig{
		UserID: "u1",
		Window: 30 * time.Millisecond,
		OnSyncError: func(err error) {
			mu.Lock()
			syncErr = err
			mu.Unlock()
		},
	})

	s.Enqueue("p1", 2)
	s.Enqueue("p2", 9)

	waitFor(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return syncErr != nil
	})

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, domain.IsCode(syncErr, domain.EPARTIAL))
	assert.Contains(t, domain.ErrorMessage(syncErr), "1 of 2")
}

func TestScheduler_FullyAppliedBatchReportsNoError(t *testing.T) {
	store := cart.NewMockServerStore()

	var mu sync.Mutex
	var syncErr error
	s := cart.NewScheduler(store, cart.SchedulerConfig{
		UserID: "u1",
		Window: 30 * time.Millisecond,
		OnSyncError: func(err error) {
			mu.Lock()
			syncErr = err
			mu.Unlock()
		},
	})

	s.Enqueue("p1", 2)

	waitFor(t, time.Second, func() bool { return s.Status() == domain.SyncIdle })

	mu.Lock()
	defer mu.Unlock()
	assert.NoError(t, syncErr)
}

func TestScheduler_EnqueueNeverBlocksOnSyncState(t *testing.T) {
	store := cart.NewMockServerStore()
	s := cart.NewScheduler(store, cart.SchedulerConfig{
		UserID: "u1",
		Window: 40 * time.Millisecond,
	})

	for i := int32(1); i <= 20; i++ {
		s.Enqueue("p1", i)
	}
	assert.True(t, s.Syncing())

	waitFor(t, time.Second, func() bool { return s.Status() == domain.SyncIdle })
	assert.False(t, s.Syncing())
}
