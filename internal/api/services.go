package api

import (
	"encoding/json"
	"net/http"

	"github.com/payd-dev/payd/extension"
	"github.com/payd-dev/payd/internal/store"
)

func (s *Server) handleListServices(w http.ResponseWriter, r *http.Request) {
	services, err := s.store.ListServices(r.Context(), scopeUserID(r))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, services)
}

func (s *Server) handleCreateService(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID    int64          `json:"user_id"`
		OrderID   int64          `json:"order_id"`
		Name      string         `json:"name"`
		Price     float64        `json:"price"`
		Extension string         `json:"extension"`
		Config    map[string]any `json:"config"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Extension == "" {
		writeError(w, http.StatusBadRequest, "name and extension are required")
		return
	}
	// Reject unknown extensions up front rather than at provision time.
	if _, ok := s.registry.Metadata(extension.CategoryServer, req.Extension); !ok {
		writeError(w, http.StatusBadRequest, "unknown server extension")
		return
	}

	svc := &store.Service{
		UserID:    req.UserID,
		OrderID:   req.OrderID,
		Name:      req.Name,
		Price:     req.Price,
		Extension: req.Extension,
		Config:    req.Config,
	}
	id, err := s.store.CreateService(r.Context(), svc)
	if err != nil {
		s.fail(w, err)
		return
	}
	svc.ID = id
	writeJSON(w, http.StatusCreated, svc)
}

func (s *Server) handleGetService(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	svc, err := s.store.GetService(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}
	if !canAccess(r, svc.UserID) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}
	writeJSON(w, http.StatusOK, svc)
}

// handleServiceLogin returns the console URL for a service when its
// extension provides one.
func (s *Server) handleServiceLogin(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	svc, err := s.store.GetService(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}
	if !canAccess(r, svc.UserID) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	url, ok, err := s.billing.ServiceLoginURL(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}
	if !ok {
		writeError(w, http.StatusBadRequest, "extension does not provide a login URL")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

// lifecycleHandler wraps one billing lifecycle call as an admin
// endpoint.
func (s *Server) lifecycleHandler(run func(*http.Request, int64) (*extension.Result, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		res, err := run(r, id)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func (s *Server) handleProvisionService(w http.ResponseWriter, r *http.Request) {
	s.lifecycleHandler(func(r *http.Request, id int64) (*extension.Result, error) {
		return s.billing.ProvisionService(r.Context(), userFrom(r.Context()), id)
	})(w, r)
}

func (s *Server) handleSuspendService(w http.ResponseWriter, r *http.Request) {
	s.lifecycleHandler(func(r *http.Request, id int64) (*extension.Result, error) {
		return s.billing.SuspendService(r.Context(), userFrom(r.Context()), id)
	})(w, r)
}

func (s *Server) handleUnsuspendService(w http.ResponseWriter, r *http.Request) {
	s.lifecycleHandler(func(r *http.Request, id int64) (*extension.Result, error) {
		return s.billing.UnsuspendService(r.Context(), userFrom(r.Context()), id)
	})(w, r)
}

func (s *Server) handleTerminateService(w http.ResponseWriter, r *http.Request) {
	s.lifecycleHandler(func(r *http.Request, id int64) (*extension.Result, error) {
		return s.billing.TerminateService(r.Context(), userFrom(r.Context()), id)
	})(w, r)
}
