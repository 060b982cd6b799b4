package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nordmark/vitrine/internal/checkout"
	"github.com/nordmark/vitrine/internal/domain"
)

// IntentStore implements checkout.IntentStore on postgres. The unique
// index on draft_hash is the hard idempotency guarantee behind the
// orchestrator's check-then-create.
type IntentStore struct {
	pool *pgxpool.Pool
}

var _ checkout.IntentStore = (*IntentStore)(nil)

// NewIntentStore creates a postgres-backed payment intent store.
func NewIntentStore(pool *pgxpool.Pool) *IntentStore {
	return &IntentStore{pool: pool}
}

func (s *IntentStore) ActiveForDraft(ctx context.Context, draftHash string) (*domain.PaymentIntent, error) {
	var intent domain.PaymentIntent
	err := s.pool.QueryRow(ctx, `
		SELECT id, draft_hash, preference_id, init_point, created_at
		FROM payment_intents
		WHERE draft_hash = $1`, draftHash).
		Scan(&intent.IntentID, &intent.DraftHash, &intent.PreferenceID, &intent.InitPoint, &intent.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment intent: %w", err)
	}
	return &intent, nil
}

func (s *IntentStore) DeleteByPreference(ctx context.Context, preferenceID string) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM payment_intents
		WHERE preference_id = $1`, preferenceID)
	if err != nil {
		return fmt.Errorf("failed to delete payment intent: %w", err)
	}
	return nil
}

func (s *IntentStore) Save(ctx context.Context, intent *domain.PaymentIntent) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO payment_intents (id, draft_hash, preference_id, init_point, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (draft_hash) DO NOTHING`,
		intent.IntentID, intent.DraftHash, intent.PreferenceID, intent.InitPoint, intent.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save payment intent: %w", err)
	}
	return nil
}
