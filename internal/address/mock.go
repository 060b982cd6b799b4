package address

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/nordmark/vitrine/internal/domain"
)

// MockStore is an in-memory Store for tests.
type MockStore struct {
	mu    sync.Mutex
	addrs map[string]Address

	CreateErr error
	GetErr    error
}

// NewMockStore creates an empty mock address store.
func NewMockStore() *MockStore {
	return &MockStore{addrs: make(map[string]Address)}
}

func (m *MockStore) Create(ctx context.Context, addr *Address) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if addr.ID == "" {
		addr.ID = uuid.New().String()
	}
	m.addrs[addr.ID] = *addr
	return nil
}

func (m *MockStore) GetByID(ctx context.Context, id string) (*Address, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	addr, ok := m.addrs[id]
	if !ok {
		return nil, domain.NotFound("address.get", "address", id)
	}
	return &addr, nil
}

func (m *MockStore) ListByUser(ctx context.Context, userID string) ([]Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Address
	for _, a := range m.addrs {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *MockStore) Delete(ctx context.Context, id, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.addrs[id]
	if !ok || a.UserID != userID {
		return domain.NotFound("address.delete", "address", id)
	}
	delete(m.addrs, id)
	return nil
}
