// Package store provides SQLite persistence for payd's billing entities:
// users, orders, services, invoices, and support tickets. Consumers
// depend on *Store directly; the schema is embedded and applied on Init,
// so a fresh database file is usable immediately.
package store

import "time"

// User is an account holder. Role is either "admin" or "customer";
// admins see and manage every resource, customers only their own.
type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"-"` // bcrypt hash, never serialised
	Role      string `json:"role"`
	IsActive  bool   `json:"is_active"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool { return u.Role == "admin" }

// Order groups the services a customer purchased in one checkout.
type Order struct {
	ID           int64  `json:"id"`
	UserID       int64  `json:"user_id"`
	CurrencyCode string `json:"currency_code"`
	CreatedAt    int64  `json:"created_at"`
	UpdatedAt    int64  `json:"updated_at"`
}

// Service statuses.
const (
	ServiceStatusPending    = "pending"
	ServiceStatusActive     = "active"
	ServiceStatusSuspended  = "suspended"
	ServiceStatusTerminated = "terminated"
)

// Service is one provisioned product instance. Extension names the
// server extension that manages it; Config carries the driver state
// (vmid, droplet_id) merged with plan parameters.
type Service struct {
	ID        int64          `json:"id"`
	UserID    int64          `json:"user_id"`
	OrderID   int64          `json:"order_id"`
	Name      string         `json:"name"`
	Status    string         `json:"status"`
	Price     float64        `json:"price"`
	Extension string         `json:"extension"`
	Config    map[string]any `json:"config,omitempty"`
	CreatedAt int64          `json:"created_at"`
	UpdatedAt int64          `json:"updated_at"`
}

// Invoice statuses.
const (
	InvoiceStatusPending   = "pending"
	InvoiceStatusPaid      = "paid"
	InvoiceStatusCancelled = "cancelled"
)

// Invoice is a bill issued to a user, composed of line items.
type Invoice struct {
	ID           int64         `json:"id"`
	UserID       int64         `json:"user_id"`
	Status       string        `json:"status"`
	Subtotal     float64       `json:"subtotal"`
	Tax          float64       `json:"tax"`
	Total        float64       `json:"total"`
	CurrencyCode string        `json:"currency_code"`
	DueDate      *int64        `json:"due_date,omitempty"`
	PaidAt       *int64        `json:"paid_at,omitempty"`
	Items        []InvoiceItem `json:"items,omitempty"`
	CreatedAt    int64         `json:"created_at"`
	UpdatedAt    int64         `json:"updated_at"`
}

// InvoiceItem is one billable line of an invoice.
type InvoiceItem struct {
	ID          int64   `json:"id"`
	InvoiceID   int64   `json:"invoice_id"`
	Description string  `json:"description"`
	Quantity    int64   `json:"quantity"`
	Price       float64 `json:"price"`
	Total       float64 `json:"total"`
}

// Ticket statuses and priorities.
const (
	TicketStatusOpen   = "open"
	TicketStatusClosed = "closed"

	TicketPriorityLow    = "low"
	TicketPriorityNormal = "normal"
	TicketPriorityHigh   = "high"
)

// Ticket is a support request with a message thread.
type Ticket struct {
	ID        int64           `json:"id"`
	UserID    int64           `json:"user_id"`
	Subject   string          `json:"subject"`
	Status    string          `json:"status"`
	Priority  string          `json:"priority"`
	Messages  []TicketMessage `json:"messages,omitempty"`
	CreatedAt int64           `json:"created_at"`
	UpdatedAt int64           `json:"updated_at"`
}

// TicketMessage is one entry in a ticket's thread. IsStaff marks replies
// from administrators.
type TicketMessage struct {
	ID        int64  `json:"id"`
	TicketID  int64  `json:"ticket_id"`
	UserID    int64  `json:"user_id"`
	Message   string `json:"message"`
	IsStaff   bool   `json:"is_staff"`
	CreatedAt int64  `json:"created_at"`
}

// now returns the current unix timestamp; split out so tests stay
// readable.
func now() int64 { return time.Now().Unix() }
