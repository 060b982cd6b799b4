package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nordmark/vitrine/internal/address"
	"github.com/nordmark/vitrine/internal/domain"
)

// AddressStore implements address.Store on postgres.
type AddressStore struct {
	pool *pgxpool.Pool
}

var _ address.Store = (*AddressStore)(nil)

// NewAddressStore creates a postgres-backed address store.
func NewAddressStore(pool *pgxpool.Pool) *AddressStore {
	return &AddressStore{pool: pool}
}

func (s *AddressStore) Create(ctx context.Context, addr *address.Address) error {
	if addr.ID == "" {
		addr.ID = uuid.New().String()
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO addresses (id, user_id, name, street, city, state, zip_code, country)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		addr.ID, addr.UserID, addr.Name, addr.Street, addr.City, addr.State, addr.ZipCode, addr.Country)
	if err != nil {
		return fmt.Errorf("failed to insert address: %w", err)
	}

	return nil
}

func (s *AddressStore) GetByID(ctx context.Context, id string) (*address.Address, error) {
	var addr address.Address
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, name, street, city, state, zip_code, country
		FROM addresses
		WHERE id = $1`, id).
		Scan(&addr.ID, &addr.UserID, &addr.Name, &addr.Street, &addr.City, &addr.State, &addr.ZipCode, &addr.Country)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NotFound("address.get", "address", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get address: %w", err)
	}
	return &addr, nil
}

func (s *AddressStore) ListByUser(ctx context.Context, userID string) ([]address.Address, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, name, street, city, state, zip_code, country
		FROM addresses
		WHERE user_id = $1
		ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query addresses: %w", err)
	}
	defer rows.Close()

	var out []address.Address
	for rows.Next() {
		var addr address.Address
		if err := rows.Scan(&addr.ID, &addr.UserID, &addr.Name, &addr.Street, &addr.City, &addr.State, &addr.ZipCode, &addr.Country); err != nil {
			return nil, fmt.Errorf("failed to scan address: %w", err)
		}
		out = append(out, addr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read addresses: %w", err)
	}

	return out, nil
}

func (s *AddressStore) Delete(ctx context.Context, id, userID string) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM addresses
		WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete address: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("address.delete", "address", id)
	}
	return nil
}
