package gateway

import (
	"context"
	"fmt"
	"sync"
)

// MockProvider is an in-memory Provider for tests. Created preferences are
// recorded and start as pending; tests flip statuses with SetStatus.
type MockProvider struct {
	mu       sync.Mutex
	seq      int
	statuses map[string]Status
	created  []CreatePreferenceParams

	// CreateErr, when set, makes CreatePreference fail.
	CreateErr error

	// StatusErr, when set, makes GetPaymentStatus fail.
	StatusErr error
}

// NewMockProvider creates an empty mock gateway.
func NewMockProvider() *MockProvider {
	return &MockProvider{statuses: make(map[string]Status)}
}

func (m *MockProvider) CreatePreference(ctx context.Context, params CreatePreferenceParams) (*Preference, error) {
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	if len(params.Items) == 0 {
		return nil, ErrNoItems
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	id := fmt.Sprintf("pref_%d", m.seq)
	m.statuses[id] = StatusPending
	m.created = append(m.created, params)

	return &Preference{
		ID:        id,
		InitPoint: "https://gateway.test/pay/" + id,
	}, nil
}

func (m *MockProvider) GetPaymentStatus(ctx context.Context, paymentID string) (Status, error) {
	if m.StatusErr != nil {
		return StatusUnknown, m.StatusErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	status, ok := m.statuses[paymentID]
	if !ok {
		return StatusUnknown, ErrPaymentNotFound
	}
	return status, nil
}

// SetStatus sets the status the mock reports for a payment.
func (m *MockProvider) SetStatus(paymentID string, status Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses[paymentID] = status
}

// CreateCalls returns how many preferences were created.
func (m *MockProvider) CreateCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.created)
}

// LastCreate returns the params of the most recent CreatePreference call.
func (m *MockProvider) LastCreate() (CreatePreferenceParams, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.created) == 0 {
		return CreatePreferenceParams{}, false
	}
	return m.created[len(m.created)-1], true
}
