package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const invoiceColumns = `id, user_id, status, subtotal, tax, total, currency_code, due_date, paid_at, created_at, updated_at`

func scanInvoice(row interface{ Scan(...any) error }) (*Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.UserID, &inv.Status, &inv.Subtotal, &inv.Tax,
		&inv.Total, &inv.CurrencyCode, &inv.DueDate, &inv.PaidAt, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// CreateInvoice inserts an invoice together with its line items in one
// transaction and returns the invoice id. Totals are computed from the
// items when the caller left them zero.
func (s *Store) CreateInvoice(ctx context.Context, inv *Invoice) (int64, error) {
	if inv.Status == "" {
		inv.Status = InvoiceStatusPending
	}
	if inv.Total == 0 {
		for i := range inv.Items {
			item := &inv.Items[i]
			if item.Quantity == 0 {
				item.Quantity = 1
			}
			if item.Total == 0 {
				item.Total = item.Price * float64(item.Quantity)
			}
			inv.Subtotal += item.Total
		}
		inv.Total = inv.Subtotal + inv.Tax
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("create invoice: %w", err)
	}
	defer tx.Rollback()

	ts := now()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO invoices (user_id, status, subtotal, tax, total, currency_code, due_date, paid_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.UserID, inv.Status, inv.Subtotal, inv.Tax, inv.Total, inv.CurrencyCode,
		inv.DueDate, inv.PaidAt, ts, ts)
	if err != nil {
		return 0, fmt.Errorf("create invoice: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, item := range inv.Items {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO invoice_items (invoice_id, description, quantity, price, total) VALUES (?, ?, ?, ?, ?)`,
			id, item.Description, item.Quantity, item.Price, item.Total)
		if err != nil {
			return 0, fmt.Errorf("create invoice item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("create invoice: %w", err)
	}
	return id, nil
}

// GetInvoice returns an invoice with its line items loaded, or
// ErrNotFound.
func (s *Store) GetInvoice(ctx context.Context, id int64) (*Invoice, error) {
	inv, err := scanInvoice(s.db.QueryRowContext(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get invoice %d: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, invoice_id, description, quantity, price, total FROM invoice_items WHERE invoice_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("get invoice %d items: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var item InvoiceItem
		if err := rows.Scan(&item.ID, &item.InvoiceID, &item.Description, &item.Quantity, &item.Price, &item.Total); err != nil {
			return nil, err
		}
		inv.Items = append(inv.Items, item)
	}
	return inv, rows.Err()
}

// ListInvoices returns invoices for one user, or every invoice when
// userID is zero. Line items are not loaded.
func (s *Store) ListInvoices(ctx context.Context, userID int64) ([]*Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices`
	args := []any{}
	if userID != 0 {
		query += ` WHERE user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	var invoices []*Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

// MarkInvoicePaid flips an invoice to paid and records the payment time.
// Marking an already-paid invoice again is a no-op, so replayed gateway
// webhooks stay harmless.
func (s *Store) MarkInvoicePaid(ctx context.Context, id int64) error {
	ts := now()
	res, err := s.db.ExecContext(ctx,
		`UPDATE invoices SET status = ?, paid_at = ?, updated_at = ? WHERE id = ? AND status != ?`,
		InvoiceStatusPaid, ts, ts, id, InvoiceStatusPaid)
	if err != nil {
		return fmt.Errorf("mark invoice %d paid: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Either already paid or nonexistent; distinguish the two.
		if _, err := s.GetInvoice(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// CancelInvoice marks a pending invoice cancelled.
func (s *Store) CancelInvoice(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE invoices SET status = ?, updated_at = ? WHERE id = ?`,
		InvoiceStatusCancelled, now(), id)
	if err != nil {
		return fmt.Errorf("cancel invoice %d: %w", id, err)
	}
	return requireRow(res)
}

// DeleteInvoice removes an invoice and its items via cascade.
func (s *Store) DeleteInvoice(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM invoices WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete invoice %d: %w", id, err)
	}
	return requireRow(res)
}
