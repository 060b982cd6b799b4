package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nordmark/vitrine/internal/domain"
	"github.com/nordmark/vitrine/internal/order"
)

// OrderStore implements order.Store on postgres. Status updates are
// compare-and-set: the WHERE clause carries the expected current status,
// so two racing transitions cannot both win.
type OrderStore struct {
	pool *pgxpool.Pool
}

var _ order.Store = (*OrderStore)(nil)

// NewOrderStore creates a postgres-backed order store.
func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

// Create inserts the order and its items in one transaction.
func (s *OrderStore) Create(ctx context.Context, o *domain.Order) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (id, user_id, address_id, status, payment_id,
			subtotal_cents, discount_cents, shipping_cents, total_cents,
			created_at, updated_at)
		VALUES ($1, NULLIF($2, ''), $3, $4, NULLIF($5, ''), $6, $7, $8, $9, $10, $11)`,
		o.OrderID, o.UserID, o.AddressID, string(o.Status), o.PaymentID,
		o.SubtotalCents, o.DiscountCents, o.ShippingCents, o.TotalCents,
		o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for _, it := range o.Items {
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items (order_id, product_id, quantity, unit_price_cents, discount_percent)
			VALUES ($1, $2, $3, $4, $5)`,
			o.OrderID, it.ProductID, it.Quantity, it.UnitPriceCents, it.DiscountPercent)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit order: %w", err)
	}

	return nil
}

// GetByID returns the order with its items.
func (s *OrderStore) GetByID(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.getOne(ctx, `WHERE o.id = $1`, orderID)
}

// GetByPaymentID returns the order bound to a gateway payment.
func (s *OrderStore) GetByPaymentID(ctx context.Context, paymentID string) (*domain.Order, error) {
	return s.getOne(ctx, `WHERE o.payment_id = $1`, paymentID)
}

func (s *OrderStore) getOne(ctx context.Context, where string, arg any) (*domain.Order, error) {
	var o domain.Order
	err := s.pool.QueryRow(ctx, `
		SELECT o.id, COALESCE(o.user_id, ''), o.address_id, o.status, COALESCE(o.payment_id, ''),
			o.subtotal_cents, o.discount_cents, o.shipping_cents, o.total_cents,
			o.created_at, o.updated_at
		FROM orders o `+where, arg).
		Scan(&o.OrderID, &o.UserID, &o.AddressID, &o.Status, &o.PaymentID,
			&o.SubtotalCents, &o.DiscountCents, &o.ShippingCents, &o.TotalCents,
			&o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	items, err := s.itemsFor(ctx, o.OrderID)
	if err != nil {
		return nil, err
	}
	o.Items = items

	return &o, nil
}

// ListByUser returns a user's orders, newest first, without items.
func (s *OrderStore) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, COALESCE(user_id, ''), address_id, status, COALESCE(payment_id, ''),
			subtotal_cents, discount_cents, shipping_cents, total_cents,
			created_at, updated_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.OrderID, &o.UserID, &o.AddressID, &o.Status, &o.PaymentID,
			&o.SubtotalCents, &o.DiscountCents, &o.ShippingCents, &o.TotalCents,
			&o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read orders: %w", err)
	}

	return out, nil
}

// UpdateStatus performs the guarded transition. Zero rows updated means
// the order moved out of the expected status first (or does not exist).
func (s *OrderStore) UpdateStatus(ctx context.Context, orderID string, from, to domain.OrderStatus) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE orders
		SET status = $1, updated_at = now()
		WHERE id = $2 AND status = $3`,
		string(to), orderID, string(from))
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, orderID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check order: %w", err)
		}
		if !exists {
			return domain.ErrOrderNotFound
		}
		return domain.ErrInvalidTransition
	}

	return nil
}

func (s *OrderStore) itemsFor(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT product_id, quantity, unit_price_cents, discount_percent
		FROM order_items
		WHERE order_id = $1`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(&it.ProductID, &it.Quantity, &it.UnitPriceCents, &it.DiscountPercent); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read order items: %w", err)
	}

	return items, nil
}
