package cart

import (
	"context"
	"sync"

	"github.com/nordmark/vitrine/internal/domain"
)

// MockServerStore is an in-memory ServerStore for tests. It applies
// batches to an internal map and records every batch it receives.
type MockServerStore struct {
	mu      sync.Mutex
	carts   map[string]map[string]domain.CartLine
	batches [][]domain.PendingMutation

	// FetchErr, when set, makes Fetch fail.
	FetchErr error

	// FailProducts lists product IDs whose mutations are rejected,
	// producing partial batch results.
	FailProducts map[string]bool

	// OnBatch, when set, is called synchronously with each batch before it
	// is applied. Tests use it to block or observe in-flight batches.
	OnBatch func(muts []domain.PendingMutation)
}

// NewMockServerStore creates an empty mock server store.
func NewMockServerStore() *MockServerStore {
	return &MockServerStore{
		carts:        make(map[string]map[string]domain.CartLine),
		FailProducts: make(map[string]bool),
	}
}

// Seed installs a user's server cart.
func (m *MockServerStore) Seed(userID string, lines []domain.CartLine) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cart := make(map[string]domain.CartLine, len(lines))
	for _, l := range lines {
		cart[l.ProductID] = l
	}
	m.carts[userID] = cart
}

func (m *MockServerStore) Fetch(ctx context.Context, userID string) ([]domain.CartLine, error) {
	if m.FetchErr != nil {
		return nil, m.FetchErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var lines []domain.CartLine
	for _, l := range m.carts[userID] {
		lines = append(lines, l)
	}
	return lines, nil
}

func (m *MockServerStore) ApplyBatch(ctx context.Context, userID string, muts []domain.PendingMutation) (*BatchResult, error) {
	if m.OnBatch != nil {
		m.OnBatch(muts)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.batches = append(m.batches, muts)

	cart := m.carts[userID]
	if cart == nil {
		cart = make(map[string]domain.CartLine)
		m.carts[userID] = cart
	}

	result := &BatchResult{}
	for _, mut := range muts {
		if m.FailProducts[mut.ProductID] {
			result.Failed = append(result.Failed, FailedMutation{ProductID: mut.ProductID, Reason: "rejected"})
			continue
		}

		if mut.TargetQuantity <= 0 {
			delete(cart, mut.ProductID)
		} else if line, ok := cart[mut.ProductID]; ok {
			line.Quantity = mut.TargetQuantity
			cart[mut.ProductID] = line
		} else {
			cart[mut.ProductID] = domain.CartLine{ProductID: mut.ProductID, Quantity: mut.TargetQuantity}
		}
		result.Applied++
	}

	return result, nil
}

// Batches returns a copy of all batches received so far.
func (m *MockServerStore) Batches() [][]domain.PendingMutation {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([][]domain.PendingMutation, len(m.batches))
	copy(out, m.batches)
	return out
}
