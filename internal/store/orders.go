package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// CreateOrder inserts a new order and returns its id.
func (s *Store) CreateOrder(ctx context.Context, o *Order) (int64, error) {
	ts := now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO orders (user_id, currency_code, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		o.UserID, o.CurrencyCode, ts, ts)
	if err != nil {
		return 0, fmt.Errorf("create order: %w", err)
	}
	return res.LastInsertId()
}

// GetOrder returns the order with the given id, or ErrNotFound.
func (s *Store) GetOrder(ctx context.Context, id int64) (*Order, error) {
	var o Order
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, currency_code, created_at, updated_at FROM orders WHERE id = ?`, id).
		Scan(&o.ID, &o.UserID, &o.CurrencyCode, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order %d: %w", id, err)
	}
	return &o, nil
}

// ListOrders returns orders for one user, or every order when userID is
// zero (admin view). Ordered by id.
func (s *Store) ListOrders(ctx context.Context, userID int64) ([]*Order, error) {
	query := `SELECT id, user_id, currency_code, created_at, updated_at FROM orders`
	args := []any{}
	if userID != 0 {
		query += ` WHERE user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []*Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.CurrencyCode, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		orders = append(orders, &o)
	}
	return orders, rows.Err()
}

// UpdateOrder updates an order's currency. Returns ErrNotFound when the
// id does not exist.
func (s *Store) UpdateOrder(ctx context.Context, o *Order) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE orders SET currency_code = ?, updated_at = ? WHERE id = ?`,
		o.CurrencyCode, now(), o.ID)
	if err != nil {
		return fmt.Errorf("update order %d: %w", o.ID, err)
	}
	return requireRow(res)
}

// DeleteOrder removes an order and its services via cascade.
func (s *Store) DeleteOrder(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM orders WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete order %d: %w", id, err)
	}
	return requireRow(res)
}
