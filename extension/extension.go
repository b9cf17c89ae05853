// Package extension defines the capability contracts and registry for payd
// extensions. Extensions come in three categories: server provisioners
// (hypervisor and cloud drivers), payment gateways, and other integrations
// (notification sinks, webhooks). Each extension is identified by its
// (category, name) pair and constructed per request with the tenant's
// configuration, so instances carry no shared mutable state.
package extension

import "context"

// Category identifies the capability contract an extension implements.
// The set is closed: server, gateway, other.
type Category string

const (
	// CategoryServer is for provisioning integrations (hypervisors, cloud APIs).
	CategoryServer Category = "server"
	// CategoryGateway is for payment gateway integrations.
	CategoryGateway Category = "gateway"
	// CategoryOther is for everything else (notifications, webhooks).
	CategoryOther Category = "other"
)

// Categories lists the known categories in their canonical order.
var Categories = []Category{CategoryServer, CategoryGateway, CategoryOther}

// Valid reports whether c is one of the three known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryServer, CategoryGateway, CategoryOther:
		return true
	}
	return false
}

// ParseCategory converts a user-supplied string into a Category.
// Returns ErrInvalidCategory for anything outside the known set.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", ErrInvalidCategory
	}
	return c, nil
}

// Metadata is the static descriptive record every extension exposes.
// The admin UI lists extensions from this; none of it varies per instance.
type Metadata struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Version     string   `json:"version"`
	Author      string   `json:"author"`
	Category    Category `json:"category"`
}

// FieldType tags a configuration field so the admin UI can render the
// right input widget.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldPassword FieldType = "password"
	FieldNumber   FieldType = "number"
	FieldBoolean  FieldType = "boolean"
	FieldSelect   FieldType = "select"
)

// Option is one choice of a select-type field.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Field describes one configurable setting of an extension. This is
// schema, not a value: the registry never stores filled-in configuration,
// it only relays the shape so a front-end can render a form.
type Field struct {
	Name        string    `json:"name"`
	Type        FieldType `json:"type"`
	Label       string    `json:"label"`
	Description string    `json:"description,omitempty"`
	Required    bool      `json:"required"`
	Default     any       `json:"default,omitempty"`
	Options     []Option  `json:"options,omitempty"`
}

// Extension is the base contract every extension implements regardless of
// category.
type Extension interface {
	// Metadata returns the static descriptive record for this extension.
	Metadata() Metadata

	// ConfigFields returns the ordered configuration schema. The current
	// values are passed in so an extension can tailor the schema (for
	// example, populating select options from a configured endpoint);
	// most implementations ignore them.
	ConfigFields(values Config) []Field
}

// Server is the contract for provisioning extensions. All four lifecycle
// operations are mandatory. Terminate must tolerate the preliminary stop
// failing (the resource may already be stopped) but never a failing
// delete.
type Server interface {
	Extension

	Create(ctx context.Context, svc Service) (*Result, error)
	Suspend(ctx context.Context, svc Service) (*Result, error)
	Unsuspend(ctx context.Context, svc Service) (*Result, error)
	Terminate(ctx context.Context, svc Service) (*Result, error)
}

// LoginURLProvider is an optional interface for server extensions that can
// produce a control-panel or console URL for a provisioned service.
type LoginURLProvider interface {
	// LoginURL returns the console URL for the service, or false when the
	// service has no addressable resource yet.
	LoginURL(svc Service) (string, bool)
}

// LoginURL returns the console URL for svc if the server extension
// supports one.
func LoginURL(s Server, svc Service) (string, bool) {
	if p, ok := s.(LoginURLProvider); ok {
		return p.LoginURL(svc)
	}
	return "", false
}

// Gateway is the contract for payment gateway extensions. Webhook
// implementations must verify request authenticity (signature over the
// raw body) before trusting any of its contents.
type Gateway interface {
	Extension

	Pay(ctx context.Context, inv Invoice) (*PaymentResult, error)
	Webhook(ctx context.Context, req WebhookRequest) (*WebhookResult, error)
}

// Refunder is an optional interface for gateways that support refunds.
type Refunder interface {
	Refund(ctx context.Context, tx Transaction) (*Result, error)
}

// Refund refunds tx through g, or returns ErrUnsupported when the gateway
// does not implement refunds. Callers branch on the sentinel to show
// "not supported" rather than a generic failure.
func Refund(ctx context.Context, g Gateway, tx Transaction) (*Result, error) {
	if r, ok := g.(Refunder); ok {
		return r.Refund(ctx, tx)
	}
	return nil, ErrUnsupported
}

// Args carries the named arguments of an Other extension invocation.
// Event tags what happened; Data is the event payload, keyed by
// extension-defined names.
type Args struct {
	Event string
	Data  map[string]any
}

// Other is the catch-all contract for notification and integration
// extensions.
type Other interface {
	Extension

	Execute(ctx context.Context, args Args) (*Result, error)
}
