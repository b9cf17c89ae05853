package api

import (
	"encoding/json"
	"net/http"

	"github.com/payd-dev/payd/internal/store"
)

// scopeUserID returns the user id to filter list queries by: zero
// (everything) for admins, the caller's own id otherwise.
func scopeUserID(r *http.Request) int64 {
	user := userFrom(r.Context())
	if user.IsAdmin() {
		return 0
	}
	return user.ID
}

// canAccess reports whether the caller may see a resource owned by
// ownerID.
func canAccess(r *http.Request, ownerID int64) bool {
	user := userFrom(r.Context())
	return user.IsAdmin() || user.ID == ownerID
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := s.store.ListOrders(r.Context(), scopeUserID(r))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CurrencyCode string `json:"currency_code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CurrencyCode == "" {
		req.CurrencyCode = "USD"
	}

	user := userFrom(r.Context())
	order := &store.Order{UserID: user.ID, CurrencyCode: req.CurrencyCode}
	id, err := s.store.CreateOrder(r.Context(), order)
	if err != nil {
		s.fail(w, err)
		return
	}
	order.ID = id

	s.billing.Notify(r.Context(), "new_order", map[string]any{
		"order_id": id,
		"user_id":  user.ID,
	})
	writeJSON(w, http.StatusCreated, order)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	order, err := s.store.GetOrder(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}
	if !canAccess(r, order.UserID) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (s *Server) handleDeleteOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.store.DeleteOrder(r.Context(), id); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
