package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// CreateUser inserts a new user and returns its id. The password must
// already be hashed. Returns ErrAlreadyExists when the email is taken.
func (s *Store) CreateUser(ctx context.Context, u *User) (int64, error) {
	ts := now()
	if u.Role == "" {
		u.Role = "customer"
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (first_name, last_name, email, password, role, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.FirstName, u.LastName, u.Email, u.Password, u.Role, u.IsActive, ts, ts)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("email %s: %w", u.Email, ErrAlreadyExists)
		}
		return 0, fmt.Errorf("create user: %w", err)
	}
	return res.LastInsertId()
}

func scanUser(sc interface{ Scan(...any) error }) (*User, error) {
	var u User
	err := sc.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.Password, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

const userColumns = `id, first_name, last_name, email, password, role, is_active, created_at, updated_at`

// GetUser returns the user with the given id, or ErrNotFound.
func (s *Store) GetUser(ctx context.Context, id int64) (*User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return u, nil
}

// GetUserByEmail returns the user with the given email (case
// insensitive), or ErrNotFound.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

// ListUsers returns all users ordered by id.
func (s *Store) ListUsers(ctx context.Context) ([]*User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpdateUser updates the mutable fields of a user. Returns ErrNotFound
// when the id does not exist.
func (s *Store) UpdateUser(ctx context.Context, u *User) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET first_name = ?, last_name = ?, email = ?, role = ?, is_active = ?, updated_at = ?
		 WHERE id = ?`,
		u.FirstName, u.LastName, u.Email, u.Role, u.IsActive, now(), u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("email %s: %w", u.Email, ErrAlreadyExists)
		}
		return fmt.Errorf("update user %d: %w", u.ID, err)
	}
	return requireRow(res)
}

// SetUserPassword replaces a user's password hash.
func (s *Store) SetUserPassword(ctx context.Context, id int64, hash string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET password = ?, updated_at = ? WHERE id = ?`, hash, now(), id)
	if err != nil {
		return fmt.Errorf("set password for user %d: %w", id, err)
	}
	return requireRow(res)
}

// DeleteUser removes a user and, via cascade, everything they own.
func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user %d: %w", id, err)
	}
	return requireRow(res)
}

// requireRow converts a zero-row update or delete into ErrNotFound.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
