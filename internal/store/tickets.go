package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// CreateTicket opens a new support ticket and returns its id. Priority
// defaults to normal.
func (s *Store) CreateTicket(ctx context.Context, t *Ticket) (int64, error) {
	if t.Status == "" {
		t.Status = TicketStatusOpen
	}
	if t.Priority == "" {
		t.Priority = TicketPriorityNormal
	}
	ts := now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tickets (user_id, subject, status, priority, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		t.UserID, t.Subject, t.Status, t.Priority, ts, ts)
	if err != nil {
		return 0, fmt.Errorf("create ticket: %w", err)
	}
	return res.LastInsertId()
}

// GetTicket returns a ticket with its message thread loaded, or
// ErrNotFound.
func (s *Store) GetTicket(ctx context.Context, id int64) (*Ticket, error) {
	var t Ticket
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, subject, status, priority, created_at, updated_at FROM tickets WHERE id = ?`, id).
		Scan(&t.ID, &t.UserID, &t.Subject, &t.Status, &t.Priority, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get ticket %d: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, ticket_id, user_id, message, is_staff, created_at FROM ticket_messages WHERE ticket_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("get ticket %d messages: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var m TicketMessage
		if err := rows.Scan(&m.ID, &m.TicketID, &m.UserID, &m.Message, &m.IsStaff, &m.CreatedAt); err != nil {
			return nil, err
		}
		t.Messages = append(t.Messages, m)
	}
	return &t, rows.Err()
}

// ListTickets returns tickets for one user, or every ticket when userID
// is zero. Message threads are not loaded.
func (s *Store) ListTickets(ctx context.Context, userID int64) ([]*Ticket, error) {
	query := `SELECT id, user_id, subject, status, priority, created_at, updated_at FROM tickets`
	args := []any{}
	if userID != 0 {
		query += ` WHERE user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	defer rows.Close()

	var tickets []*Ticket
	for rows.Next() {
		var t Ticket
		if err := rows.Scan(&t.ID, &t.UserID, &t.Subject, &t.Status, &t.Priority, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		tickets = append(tickets, &t)
	}
	return tickets, rows.Err()
}

// AddTicketMessage appends a message to a ticket's thread and bumps the
// ticket's updated_at. Returns ErrNotFound when the ticket is missing.
func (s *Store) AddTicketMessage(ctx context.Context, m *TicketMessage) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("add ticket message: %w", err)
	}
	defer tx.Rollback()

	ts := now()
	bump, err := tx.ExecContext(ctx,
		`UPDATE tickets SET updated_at = ? WHERE id = ?`, ts, m.TicketID)
	if err != nil {
		return 0, fmt.Errorf("add ticket message: %w", err)
	}
	if err := requireRow(bump); err != nil {
		return 0, err
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO ticket_messages (ticket_id, user_id, message, is_staff, created_at) VALUES (?, ?, ?, ?, ?)`,
		m.TicketID, m.UserID, m.Message, m.IsStaff, ts)
	if err != nil {
		return 0, fmt.Errorf("add ticket message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return id, tx.Commit()
}

// SetTicketStatus updates a ticket's status (open or closed).
func (s *Store) SetTicketStatus(ctx context.Context, id int64, status string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tickets SET status = ?, updated_at = ? WHERE id = ?`,
		status, now(), id)
	if err != nil {
		return fmt.Errorf("set ticket %d status: %w", id, err)
	}
	return requireRow(res)
}

// DeleteTicket removes a ticket and its messages via cascade.
func (s *Store) DeleteTicket(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tickets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete ticket %d: %w", id, err)
	}
	return requireRow(res)
}
