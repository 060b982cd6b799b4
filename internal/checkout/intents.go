package checkout

import (
	"context"
	"sync"

	"github.com/nordmark/vitrine/internal/domain"
)

// IntentStore persists payment intents keyed by draft hash. It is the
// idempotency ledger for checkout: at most one active intent per hash.
// An intent stays active only while its order is PENDING; once the order
// settles the intent is released so the same cart content can be bought
// again through a fresh gateway session.
type IntentStore interface {
	// ActiveForDraft returns the active intent for a draft hash, or
	// (nil, nil) when none exists.
	ActiveForDraft(ctx context.Context, draftHash string) (*domain.PaymentIntent, error)

	// Save stores a newly created intent.
	Save(ctx context.Context, intent *domain.PaymentIntent) error

	// DeleteByPreference releases the intent bound to a gateway payment.
	// Deleting an unknown preference is not an error.
	DeleteByPreference(ctx context.Context, preferenceID string) error
}

// MemoryIntentStore is an in-memory IntentStore. Suitable for tests and
// single-process deployments; production uses the postgres store.
type MemoryIntentStore struct {
	mu     sync.Mutex
	byHash map[string]domain.PaymentIntent
}

// NewMemoryIntentStore creates an empty intent store.
func NewMemoryIntentStore() *MemoryIntentStore {
	return &MemoryIntentStore{byHash: make(map[string]domain.PaymentIntent)}
}

func (s *MemoryIntentStore) ActiveForDraft(ctx context.Context, draftHash string) (*domain.PaymentIntent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	intent, ok := s.byHash[draftHash]
	if !ok {
		return nil, nil
	}
	return &intent, nil
}

func (s *MemoryIntentStore) Save(ctx context.Context, intent *domain.PaymentIntent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byHash[intent.DraftHash] = *intent
	return nil
}

func (s *MemoryIntentStore) DeleteByPreference(ctx context.Context, preferenceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for hash, intent := range s.byHash {
		if intent.PreferenceID == preferenceID {
			delete(s.byHash, hash)
		}
	}
	return nil
}
