package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nordmark/vitrine/internal/domain"
)

// CartStore is the authoritative per-user cart. Upserts set quantity to
// the target value (never increment), so replayed batch items are
// harmless. The price snapshot is frozen at first insert; quantity
// changes never re-price a line.
type CartStore struct {
	pool *pgxpool.Pool
}

// NewCartStore creates a postgres-backed cart store.
func NewCartStore(pool *pgxpool.Pool) *CartStore {
	return &CartStore{pool: pool}
}

// GetLines returns a user's cart lines. An empty cart is a valid result,
// not an error.
func (s *CartStore) GetLines(ctx context.Context, userID string) ([]domain.CartLine, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, product_id, quantity, unit_price_cents, discount_percent
		FROM cart_items
		WHERE user_id = $1
		ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cart items: %w", err)
	}
	defer rows.Close()

	var lines []domain.CartLine
	for rows.Next() {
		var l domain.CartLine
		if err := rows.Scan(&l.LineID, &l.ProductID, &l.Quantity, &l.UnitPriceCents, &l.DiscountPercent); err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read cart items: %w", err)
	}

	return lines, nil
}

// UpsertQuantity sets the quantity for a product, inserting the line with
// its price snapshot if it does not exist yet.
func (s *CartStore) UpsertQuantity(ctx context.Context, userID, productID string, quantity, unitPriceCents, discountPercent int32) error {
	if quantity <= 0 {
		return domain.ErrInvalidQuantity
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO cart_items (id, user_id, product_id, quantity, unit_price_cents, discount_percent)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = now()`,
		uuid.New().String(), userID, productID, quantity, unitPriceCents, discountPercent)
	if err != nil {
		return fmt.Errorf("failed to upsert cart item: %w", err)
	}

	return nil
}

// Remove deletes the line for a product. Removing a missing line is not
// an error; batch deletes may race with each other.
func (s *CartStore) Remove(ctx context.Context, userID, productID string) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM cart_items
		WHERE user_id = $1 AND product_id = $2`, userID, productID)
	if err != nil {
		return fmt.Errorf("failed to remove cart item: %w", err)
	}
	return nil
}

// Clear empties a user's cart. Called after an order is paid.
func (s *CartStore) Clear(ctx context.Context, userID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}
