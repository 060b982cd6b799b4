package catalog

import (
	"context"
	"sync"
)

// MockService implements Service with a fixed product set. Used in tests
// and local development without a catalog deployment.
type MockService struct {
	mu       sync.RWMutex
	products map[string]Product
}

// NewMockService creates a mock catalog seeded with the given products.
func NewMockService(products ...Product) *MockService {
	m := &MockService{products: make(map[string]Product, len(products))}
	for _, p := range products {
		m.products[p.ID] = p
	}
	return m
}

// Put adds or replaces a product.
func (m *MockService) Put(p Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[p.ID] = p
}

// GetProduct returns the product with the given id.
func (m *MockService) GetProduct(ctx context.Context, id string) (*Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.products[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	return &p, nil
}

// Search returns products in the given category, or all products when the
// category is empty. The query matches against the product name.
func (m *MockService) Search(ctx context.Context, query, category string) ([]Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Product
	for _, p := range m.products {
		if category != "" && p.Category != category {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}
