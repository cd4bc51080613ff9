package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rl1809/cart-allocation/internal/core/domain"
)

func (s *SQLAdapter) CreateCart(ctx context.Context, cart domain.Cart) (*domain.Cart, error) {
	cart.CreatedAt = now()
	cart.UpdatedAt = cart.CreatedAt

	id, err := s.dialect.insert(ctx, s.db, `
		INSERT INTO carts (name, row_count, column_count, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		cart.Name, cart.Rows, cart.Columns, cart.Active, cart.CreatedAt, cart.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert cart: %w", err)
	}
	cart.ID = id
	return &cart, nil
}

func (s *SQLAdapter) GetCart(ctx context.Context, id int64) (*domain.Cart, error) {
	cart, err := scanCart(s.db.QueryRowContext(ctx, s.q(`SELECT `+cartCols+` FROM carts WHERE id = ?`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query cart: %w", err)
	}
	return cart, nil
}

func (s *SQLAdapter) UpdateCart(ctx context.Context, cart domain.Cart) (*domain.Cart, error) {
	cart.UpdatedAt = now()
	_, err := s.db.ExecContext(ctx, s.q(`
		UPDATE carts SET name = ?, row_count = ?, column_count = ?, active = ?, updated_at = ?
		WHERE id = ?`),
		cart.Name, cart.Rows, cart.Columns, cart.Active, cart.UpdatedAt, cart.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update cart: %w", err)
	}

	updated, err := s.GetCart(ctx, cart.ID)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, domain.ErrCartNotFound
	}
	return updated, nil
}

func (s *SQLAdapter) DeleteCart(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, s.q(`DELETE FROM carts WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return domain.ErrCartNotFound
	}
	return nil
}

func (s *SQLAdapter) CartInUse(ctx context.Context, id int64) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, s.q(`
		SELECT COUNT(*) FROM cart_assignments WHERE cart_id = ? AND state = ?`),
		id, string(domain.StateDraft)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("query cart usage: %w", err)
	}
	return n > 0, nil
}
