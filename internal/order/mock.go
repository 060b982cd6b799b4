package order

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/nordmark/vitrine/internal/domain"
)

// MockStore is an in-memory Store for tests. UpdateStatus enforces the
// same compare-and-set guard as the postgres store.
type MockStore struct {
	mu     sync.Mutex
	orders map[string]domain.Order

	CreateErr error
}

// NewMockStore creates an empty mock order store.
func NewMockStore() *MockStore {
	return &MockStore{orders: make(map[string]domain.Order)}
}

func (m *MockStore) Create(ctx context.Context, o *domain.Order) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.orders[o.OrderID] = *o
	return nil
}

func (m *MockStore) GetByID(ctx context.Context, orderID string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[orderID]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return &o, nil
}

func (m *MockStore) GetByPaymentID(ctx context.Context, paymentID string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, o := range m.orders {
		if o.PaymentID == paymentID && paymentID != "" {
			out := o
			return &out, nil
		}
	}
	return nil, domain.ErrOrderNotFound
}

func (m *MockStore) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MockStore) UpdateStatus(ctx context.Context, orderID string, from, to domain.OrderStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if o.Status != from {
		return domain.ErrInvalidTransition
	}

	o.Status = to
	o.UpdatedAt = time.Now().UTC()
	m.orders[orderID] = o
	return nil
}
