// Package api exposes payd's REST surface: authentication, the billing
// entities (users, orders, services, invoices, tickets), the extension
// query endpoints, and the inbound gateway webhook. Handlers are plain
// net/http on the 1.22 method-pattern mux; responses are JSON envelopes
// with either data or an error.
package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/payd-dev/payd/extension"
	"github.com/payd-dev/payd/internal/auth"
	"github.com/payd-dev/payd/internal/billing"
	"github.com/payd-dev/payd/internal/config"
	"github.com/payd-dev/payd/internal/store"
)

// Server holds the dependencies of all API handlers.
type Server struct {
	store    *store.Store
	tokens   *auth.Manager
	billing  *billing.Manager
	registry *extension.Registry
	cfg      *config.Config
	log      *slog.Logger
}

// NewServer builds a Server from its dependencies.
func NewServer(st *store.Store, tokens *auth.Manager, bm *billing.Manager, reg *extension.Registry, cfg *config.Config, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{store: st, tokens: tokens, billing: bm, registry: reg, cfg: cfg, log: log}
}

// Router returns the handler with all API v1 routes registered.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	// Auth
	mux.Handle("POST /api/v1/auth/register", http.HandlerFunc(s.handleRegister))
	mux.Handle("POST /api/v1/auth/login", http.HandlerFunc(s.handleLogin))
	mux.Handle("GET /api/v1/auth/me", s.requireAuth(http.HandlerFunc(s.handleMe)))

	// Users (admin only)
	mux.Handle("GET /api/v1/users", s.requireAdmin(http.HandlerFunc(s.handleListUsers)))
	mux.Handle("GET /api/v1/users/{id}", s.requireAdmin(http.HandlerFunc(s.handleGetUser)))
	mux.Handle("PUT /api/v1/users/{id}", s.requireAdmin(http.HandlerFunc(s.handleUpdateUser)))
	mux.Handle("DELETE /api/v1/users/{id}", s.requireAdmin(http.HandlerFunc(s.handleDeleteUser)))

	// Orders
	mux.Handle("GET /api/v1/orders", s.requireAuth(http.HandlerFunc(s.handleListOrders)))
	mux.Handle("POST /api/v1/orders", s.requireAuth(http.HandlerFunc(s.handleCreateOrder)))
	mux.Handle("GET /api/v1/orders/{id}", s.requireAuth(http.HandlerFunc(s.handleGetOrder)))
	mux.Handle("DELETE /api/v1/orders/{id}", s.requireAdmin(http.HandlerFunc(s.handleDeleteOrder)))

	// Services
	mux.Handle("GET /api/v1/services", s.requireAuth(http.HandlerFunc(s.handleListServices)))
	mux.Handle("POST /api/v1/services", s.requireAdmin(http.HandlerFunc(s.handleCreateService)))
	mux.Handle("GET /api/v1/services/{id}", s.requireAuth(http.HandlerFunc(s.handleGetService)))
	mux.Handle("GET /api/v1/services/{id}/login", s.requireAuth(http.HandlerFunc(s.handleServiceLogin)))
	mux.Handle("POST /api/v1/services/{id}/provision", s.requireAdmin(http.HandlerFunc(s.handleProvisionService)))
	mux.Handle("POST /api/v1/services/{id}/suspend", s.requireAdmin(http.HandlerFunc(s.handleSuspendService)))
	mux.Handle("POST /api/v1/services/{id}/unsuspend", s.requireAdmin(http.HandlerFunc(s.handleUnsuspendService)))
	mux.Handle("POST /api/v1/services/{id}/terminate", s.requireAdmin(http.HandlerFunc(s.handleTerminateService)))

	// Invoices
	mux.Handle("GET /api/v1/invoices", s.requireAuth(http.HandlerFunc(s.handleListInvoices)))
	mux.Handle("POST /api/v1/invoices", s.requireAdmin(http.HandlerFunc(s.handleCreateInvoice)))
	mux.Handle("GET /api/v1/invoices/{id}", s.requireAuth(http.HandlerFunc(s.handleGetInvoice)))
	mux.Handle("POST /api/v1/invoices/{id}/pay", s.requireAuth(http.HandlerFunc(s.handlePayInvoice)))
	mux.Handle("POST /api/v1/invoices/{id}/cancel", s.requireAdmin(http.HandlerFunc(s.handleCancelInvoice)))

	// Tickets
	mux.Handle("GET /api/v1/tickets", s.requireAuth(http.HandlerFunc(s.handleListTickets)))
	mux.Handle("POST /api/v1/tickets", s.requireAuth(http.HandlerFunc(s.handleCreateTicket)))
	mux.Handle("GET /api/v1/tickets/{id}", s.requireAuth(http.HandlerFunc(s.handleGetTicket)))
	mux.Handle("POST /api/v1/tickets/{id}/messages", s.requireAuth(http.HandlerFunc(s.handleAddTicketMessage)))
	mux.Handle("POST /api/v1/tickets/{id}/close", s.requireAuth(http.HandlerFunc(s.handleCloseTicket)))

	// Extension queries (admin only: config schemas describe credentials)
	mux.Handle("GET /api/v1/extensions", s.requireAdmin(http.HandlerFunc(s.handleListExtensions)))
	mux.Handle("GET /api/v1/extensions/{category}", s.requireAdmin(http.HandlerFunc(s.handleListCategory)))
	mux.Handle("GET /api/v1/extensions/{category}/{name}", s.requireAdmin(http.HandlerFunc(s.handleGetExtension)))
	mux.Handle("GET /api/v1/extensions/{category}/{name}/metadata", s.requireAdmin(http.HandlerFunc(s.handleExtensionMetadata)))
	mux.Handle("GET /api/v1/extensions/{category}/{name}/config", s.requireAdmin(http.HandlerFunc(s.handleExtensionConfig)))

	// Inbound gateway webhooks; authenticated by signature, not by token.
	mux.Handle("POST /api/v1/webhooks/{gateway}", http.HandlerFunc(s.handleWebhook))

	return s.withRequestLog(mux)
}

// fail maps domain errors to HTTP status codes.
func (s *Server) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "already exists")
	case errors.Is(err, extension.ErrInvalidCategory):
		writeError(w, http.StatusBadRequest, "invalid extension category")
	case errors.Is(err, billing.ErrUnknownExtension):
		writeError(w, http.StatusNotFound, "unknown extension")
	case errors.Is(err, billing.ErrAlreadyPaid):
		writeError(w, http.StatusConflict, "invoice is already paid")
	case errors.Is(err, extension.ErrUnsupported):
		writeError(w, http.StatusBadRequest, "operation not supported by this extension")
	case extension.IsExternal(err):
		s.log.Error("upstream failure", "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		s.log.Error("internal error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
