package api

import (
	"encoding/json"
	"net/http"

	"github.com/payd-dev/payd/internal/store"
)

func (s *Server) handleListInvoices(w http.ResponseWriter, r *http.Request) {
	invoices, err := s.store.ListInvoices(r.Context(), scopeUserID(r))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, invoices)
}

func (s *Server) handleCreateInvoice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID       int64               `json:"user_id"`
		CurrencyCode string              `json:"currency_code"`
		Tax          float64             `json:"tax"`
		DueDate      *int64              `json:"due_date"`
		Items        []store.InvoiceItem `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == 0 || len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "user_id and items are required")
		return
	}
	if req.CurrencyCode == "" {
		req.CurrencyCode = "USD"
	}

	inv := &store.Invoice{
		UserID:       req.UserID,
		CurrencyCode: req.CurrencyCode,
		Tax:          req.Tax,
		DueDate:      req.DueDate,
		Items:        req.Items,
	}
	id, err := s.store.CreateInvoice(r.Context(), inv)
	if err != nil {
		s.fail(w, err)
		return
	}

	created, err := s.store.GetInvoice(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	inv, err := s.store.GetInvoice(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}
	if !canAccess(r, inv.UserID) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

// handlePayInvoice starts payment through the gateway named in the
// request body and returns the redirect target.
func (s *Server) handlePayInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	inv, err := s.store.GetInvoice(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}
	if !canAccess(r, inv.UserID) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	var req struct {
		Gateway string `json:"gateway"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Gateway == "" {
		writeError(w, http.StatusBadRequest, "gateway is required")
		return
	}

	res, err := s.billing.PayInvoice(r.Context(), userFrom(r.Context()), id, req.Gateway)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCancelInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.store.CancelInvoice(r.Context(), id); err != nil {
		s.fail(w, err)
		return
	}
	inv, err := s.store.GetInvoice(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}
