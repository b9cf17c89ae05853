package extension

import "net/http"

// Service is the provisioning view of a customer service. Config carries
// driver state such as the VM or droplet identifier alongside plan
// parameters (cores, memory). The package defines its own type so
// extensions do not depend on the host's storage layer.
type Service struct {
	ID     int64
	Name   string
	Config Config
}

// InvoiceItem is one billable line of an invoice.
type InvoiceItem struct {
	Description string
	Quantity    int64
	Price       float64
}

// Invoice is the payment view of an invoice handed to a gateway.
type Invoice struct {
	ID       int64
	UserID   int64
	Currency string
	Total    float64
	Items    []InvoiceItem
}

// Transaction identifies a settled payment for refund purposes.
type Transaction struct {
	ID       string // gateway-side charge or payment reference
	Amount   float64
	Currency string
}

// WebhookRequest is the opaque inbound request a gateway webhook
// receives. The gateway must verify authenticity from these raw parts
// before trusting the body.
type WebhookRequest struct {
	Headers http.Header
	Body    []byte
}

// Result is the generic outcome of an extension operation. Data carries
// operation-specific values (a VM id, a remote task reference).
type Result struct {
	Success bool           `json:"success"`
	Message string         `json:"message,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// PaymentResult is the outcome of initiating a payment: where to send the
// customer, the gateway-side reference, and the payment status.
type PaymentResult struct {
	RedirectURL string `json:"redirect_url"`
	Reference   string `json:"reference"`
	Status      string `json:"status"`
}

// WebhookResult is the outcome of processing a verified gateway webhook.
// InvoiceID is set when the event settles a specific invoice.
type WebhookResult struct {
	Event     string `json:"event"`
	InvoiceID string `json:"invoice_id,omitempty"`
	Status    string `json:"status"`
}
