// Package billing glues the store, the extension registry, and the
// configuration together: it runs service lifecycle operations through
// the configured server extension, takes payments through gateways,
// settles invoices from verified webhooks, and fans host events out to
// the configured notifier extensions.
package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/payd-dev/payd/extension"
	"github.com/payd-dev/payd/internal/audit"
	"github.com/payd-dev/payd/internal/config"
	"github.com/payd-dev/payd/internal/store"
)

var (
	// ErrUnknownExtension indicates a service or payment references an
	// extension name that is not registered for the required category.
	ErrUnknownExtension = errors.New("unknown extension")

	// ErrAlreadyPaid indicates a payment attempt against a settled
	// invoice. A client condition, not a server fault.
	ErrAlreadyPaid = errors.New("invoice is already paid")
)

// Manager coordinates billing operations. Construct with New; all
// dependencies are explicit.
type Manager struct {
	store    *store.Store
	registry *extension.Registry
	cfg      *config.Config
	log      *slog.Logger
}

// New returns a Manager using the given store, registry, and config.
func New(st *store.Store, reg *extension.Registry, cfg *config.Config, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{store: st, registry: reg, cfg: cfg, log: log}
}

// server resolves the server extension a service is bound to.
func (m *Manager) server(name string) (extension.Server, error) {
	srv, ok := m.registry.Server(name, m.cfg.Settings(extension.CategoryServer, name))
	if !ok {
		return nil, fmt.Errorf("server extension %q: %w", name, ErrUnknownExtension)
	}
	return srv, nil
}

// gateway resolves a payment gateway by name.
func (m *Manager) gateway(name string) (extension.Gateway, error) {
	gw, ok := m.registry.Gateway(name, m.cfg.Settings(extension.CategoryGateway, name))
	if !ok {
		return nil, fmt.Errorf("gateway %q: %w", name, ErrUnknownExtension)
	}
	return gw, nil
}

// view converts a stored service into the provisioning view handed to
// extensions.
func view(svc *store.Service) extension.Service {
	return extension.Service{
		ID:     svc.ID,
		Name:   svc.Name,
		Config: extension.Config(svc.Config),
	}
}

// lifecycleOp names a service lifecycle transition.
type lifecycleOp struct {
	name   string // audit verb
	status string // resulting service status
	run    func(extension.Server, context.Context, extension.Service) (*extension.Result, error)
}

var (
	opProvision = lifecycleOp{"create", store.ServiceStatusActive, extension.Server.Create}
	opSuspend   = lifecycleOp{"suspend", store.ServiceStatusSuspended, extension.Server.Suspend}
	opUnsuspend = lifecycleOp{"unsuspend", store.ServiceStatusActive, extension.Server.Unsuspend}
	opTerminate = lifecycleOp{"terminate", store.ServiceStatusTerminated, extension.Server.Terminate}
)

// lifecycle runs one transition: resolve the extension, call the remote
// operation, merge any returned driver state into the service config,
// and persist the new status.
func (m *Manager) lifecycle(ctx context.Context, actor *store.User, serviceID int64, op lifecycleOp) (res *extension.Result, err error) {
	defer func() {
		b := audit.Event("service:"+op.name, op.name).Target("service", serviceID)
		if actor != nil {
			b.Actor(actor.ID, actor.Email)
		}
		b.Write(err)
	}()

	svc, err := m.store.GetService(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	srv, err := m.server(svc.Extension)
	if err != nil {
		return nil, err
	}

	res, err = op.run(srv, ctx, view(svc))
	if err != nil {
		m.log.Error("lifecycle operation failed",
			"op", op.name, "service", serviceID, "extension", svc.Extension, "error", err)
		return nil, err
	}

	// Driver state (vmid, droplet_id) comes back in the result data and
	// must survive for later operations on the same service.
	if len(res.Data) > 0 {
		if svc.Config == nil {
			svc.Config = make(map[string]any, len(res.Data))
		}
		for k, v := range res.Data {
			svc.Config[k] = v
		}
	}
	svc.Status = op.status
	if err := m.store.UpdateService(ctx, svc); err != nil {
		return nil, err
	}

	m.log.Info("service lifecycle", "op", op.name, "service", serviceID, "extension", svc.Extension)
	return res, nil
}

// ProvisionService creates the remote resource for a pending service and
// marks it active.
func (m *Manager) ProvisionService(ctx context.Context, actor *store.User, serviceID int64) (*extension.Result, error) {
	return m.lifecycle(ctx, actor, serviceID, opProvision)
}

// SuspendService suspends a service's remote resource.
func (m *Manager) SuspendService(ctx context.Context, actor *store.User, serviceID int64) (*extension.Result, error) {
	return m.lifecycle(ctx, actor, serviceID, opSuspend)
}

// UnsuspendService resumes a suspended service.
func (m *Manager) UnsuspendService(ctx context.Context, actor *store.User, serviceID int64) (*extension.Result, error) {
	return m.lifecycle(ctx, actor, serviceID, opUnsuspend)
}

// TerminateService destroys a service's remote resource and marks the
// service terminated.
func (m *Manager) TerminateService(ctx context.Context, actor *store.User, serviceID int64) (*extension.Result, error) {
	return m.lifecycle(ctx, actor, serviceID, opTerminate)
}

// ServiceLoginURL returns the console URL for a service, or false when
// its extension does not provide one.
func (m *Manager) ServiceLoginURL(ctx context.Context, serviceID int64) (string, bool, error) {
	svc, err := m.store.GetService(ctx, serviceID)
	if err != nil {
		return "", false, err
	}
	srv, err := m.server(svc.Extension)
	if err != nil {
		return "", false, err
	}
	url, ok := extension.LoginURL(srv, view(svc))
	return url, ok, nil
}

// PayInvoice initiates payment of a pending invoice through the named
// gateway and returns where to redirect the customer.
func (m *Manager) PayInvoice(ctx context.Context, actor *store.User, invoiceID int64, gatewayName string) (res *extension.PaymentResult, err error) {
	defer func() {
		b := audit.Event("invoice:pay", "pay").Target("invoice", invoiceID).Detail("gateway", gatewayName)
		if actor != nil {
			b.Actor(actor.ID, actor.Email)
		}
		b.Write(err)
	}()

	inv, err := m.store.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.Status == store.InvoiceStatusPaid {
		return nil, fmt.Errorf("invoice %d: %w", invoiceID, ErrAlreadyPaid)
	}

	gw, err := m.gateway(gatewayName)
	if err != nil {
		return nil, err
	}

	items := make([]extension.InvoiceItem, 0, len(inv.Items))
	for _, it := range inv.Items {
		items = append(items, extension.InvoiceItem{
			Description: it.Description,
			Quantity:    it.Quantity,
			Price:       it.Price,
		})
	}

	res, err = gw.Pay(ctx, extension.Invoice{
		ID:       inv.ID,
		UserID:   inv.UserID,
		Currency: inv.CurrencyCode,
		Total:    inv.Total,
		Items:    items,
	})
	if err != nil {
		m.log.Error("payment failed", "invoice", invoiceID, "gateway", gatewayName, "error", err)
		return nil, err
	}

	m.log.Info("payment initiated", "invoice", invoiceID, "gateway", gatewayName, "reference", res.Reference)
	return res, nil
}

// HandleWebhook processes an inbound gateway webhook. The gateway
// verifies authenticity; when the verified event settles an invoice the
// invoice is marked paid and a payment notification goes out.
func (m *Manager) HandleWebhook(ctx context.Context, gatewayName string, req extension.WebhookRequest) (res *extension.WebhookResult, err error) {
	defer func() {
		audit.Event("webhook:"+gatewayName, "webhook").Write(err)
	}()

	gw, err := m.gateway(gatewayName)
	if err != nil {
		return nil, err
	}

	res, err = gw.Webhook(ctx, req)
	if err != nil {
		m.log.Warn("webhook rejected", "gateway", gatewayName, "error", err)
		return nil, err
	}

	if res.Status == "paid" && res.InvoiceID != "" {
		id, perr := strconv.ParseInt(res.InvoiceID, 10, 64)
		if perr != nil {
			err = fmt.Errorf("webhook invoice id %q: %w", res.InvoiceID, perr)
			return nil, err
		}
		if err = m.store.MarkInvoicePaid(ctx, id); err != nil {
			return nil, err
		}
		m.log.Info("invoice settled", "invoice", id, "gateway", gatewayName, "event", res.Event)
		m.Notify(ctx, "payment", map[string]any{
			"invoice_id": id,
			"gateway":    gatewayName,
		})
	}
	return res, nil
}

// RefundTransaction refunds a settled payment through the named gateway.
// Returns extension.ErrUnsupported when the gateway cannot refund.
func (m *Manager) RefundTransaction(ctx context.Context, actor *store.User, gatewayName string, tx extension.Transaction) (res *extension.Result, err error) {
	defer func() {
		b := audit.Event("invoice:refund", "refund").Detail("gateway", gatewayName).Detail("reference", tx.ID)
		if actor != nil {
			b.Actor(actor.ID, actor.Email)
		}
		b.Write(err)
	}()

	gw, err := m.gateway(gatewayName)
	if err != nil {
		return nil, err
	}
	return extension.Refund(ctx, gw, tx)
}

// Notify fans an event out to every configured notifier extension.
// Notifier failures are logged, never propagated: a Discord outage must
// not fail the payment that triggered the message.
func (m *Manager) Notify(ctx context.Context, event string, data map[string]any) {
	for _, name := range m.cfg.Notifiers {
		other, ok := m.registry.Other(name, m.cfg.Settings(extension.CategoryOther, name))
		if !ok {
			m.log.Warn("notifier not registered", "name", name)
			continue
		}
		if _, err := other.Execute(ctx, extension.Args{Event: event, Data: data}); err != nil {
			m.log.Warn("notifier failed", "name", name, "event", event, "error", err)
		}
	}
}
