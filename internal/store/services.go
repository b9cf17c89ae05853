package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

const serviceColumns = `id, user_id, order_id, name, status, price, extension, config, created_at, updated_at`

func scanService(row interface{ Scan(...any) error }) (*Service, error) {
	var (
		svc Service
		raw string
	)
	err := row.Scan(&svc.ID, &svc.UserID, &svc.OrderID, &svc.Name, &svc.Status,
		&svc.Price, &svc.Extension, &raw, &svc.CreatedAt, &svc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if raw != "" && raw != "{}" {
		if err := json.Unmarshal([]byte(raw), &svc.Config); err != nil {
			return nil, fmt.Errorf("decode service %d config: %w", svc.ID, err)
		}
	}
	return &svc, nil
}

func encodeConfig(cfg map[string]any) (string, error) {
	if len(cfg) == 0 {
		return "{}", nil
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("encode service config: %w", err)
	}
	return string(raw), nil
}

// CreateService inserts a new service row and returns its id. Status
// defaults to pending when unset.
func (s *Store) CreateService(ctx context.Context, svc *Service) (int64, error) {
	if svc.Status == "" {
		svc.Status = ServiceStatusPending
	}
	raw, err := encodeConfig(svc.Config)
	if err != nil {
		return 0, err
	}
	ts := now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO services (user_id, order_id, name, status, price, extension, config, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		svc.UserID, svc.OrderID, svc.Name, svc.Status, svc.Price, svc.Extension, raw, ts, ts)
	if err != nil {
		return 0, fmt.Errorf("create service: %w", err)
	}
	return res.LastInsertId()
}

// GetService returns the service with the given id, or ErrNotFound.
func (s *Store) GetService(ctx context.Context, id int64) (*Service, error) {
	svc, err := scanService(s.db.QueryRowContext(ctx,
		`SELECT `+serviceColumns+` FROM services WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get service %d: %w", id, err)
	}
	return svc, nil
}

// ListServices returns services for one user, or every service when
// userID is zero. Ordered by id.
func (s *Store) ListServices(ctx context.Context, userID int64) ([]*Service, error) {
	query := `SELECT ` + serviceColumns + ` FROM services`
	args := []any{}
	if userID != 0 {
		query += ` WHERE user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	defer rows.Close()

	var services []*Service
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		services = append(services, svc)
	}
	return services, rows.Err()
}

// UpdateService persists the mutable fields of a service: name, status,
// price, and the extension config blob.
func (s *Store) UpdateService(ctx context.Context, svc *Service) error {
	raw, err := encodeConfig(svc.Config)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE services SET name = ?, status = ?, price = ?, config = ?, updated_at = ? WHERE id = ?`,
		svc.Name, svc.Status, svc.Price, raw, now(), svc.ID)
	if err != nil {
		return fmt.Errorf("update service %d: %w", svc.ID, err)
	}
	return requireRow(res)
}

// SetServiceStatus updates only the lifecycle status of a service.
func (s *Store) SetServiceStatus(ctx context.Context, id int64, status string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE services SET status = ?, updated_at = ? WHERE id = ?`,
		status, now(), id)
	if err != nil {
		return fmt.Errorf("set service %d status: %w", id, err)
	}
	return requireRow(res)
}

// DeleteService removes a service row.
func (s *Store) DeleteService(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM services WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete service %d: %w", id, err)
	}
	return requireRow(res)
}
