package api

import (
	"encoding/json"
	"net/http"

	"github.com/payd-dev/payd/internal/store"
)

func (s *Server) handleListTickets(w http.ResponseWriter, r *http.Request) {
	tickets, err := s.store.ListTickets(r.Context(), scopeUserID(r))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tickets)
}

func (s *Server) handleCreateTicket(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Subject  string `json:"subject"`
		Priority string `json:"priority"`
		Message  string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Subject == "" {
		writeError(w, http.StatusBadRequest, "subject is required")
		return
	}
	switch req.Priority {
	case "", store.TicketPriorityLow, store.TicketPriorityNormal, store.TicketPriorityHigh:
	default:
		writeError(w, http.StatusBadRequest, "priority must be low, normal, or high")
		return
	}

	user := userFrom(r.Context())
	ticket := &store.Ticket{UserID: user.ID, Subject: req.Subject, Priority: req.Priority}
	id, err := s.store.CreateTicket(r.Context(), ticket)
	if err != nil {
		s.fail(w, err)
		return
	}

	if req.Message != "" {
		_, err = s.store.AddTicketMessage(r.Context(), &store.TicketMessage{
			TicketID: id,
			UserID:   user.ID,
			Message:  req.Message,
			IsStaff:  user.IsAdmin(),
		})
		if err != nil {
			s.fail(w, err)
			return
		}
	}

	s.billing.Notify(r.Context(), "ticket", map[string]any{
		"ticket_id": id,
		"subject":   req.Subject,
	})

	created, err := s.store.GetTicket(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetTicket(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	ticket, err := s.store.GetTicket(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}
	if !canAccess(r, ticket.UserID) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

func (s *Server) handleAddTicketMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	ticket, err := s.store.GetTicket(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}
	if !canAccess(r, ticket.UserID) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}
	if ticket.Status == store.TicketStatusClosed {
		writeError(w, http.StatusBadRequest, "ticket is closed")
		return
	}

	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	user := userFrom(r.Context())
	msgID, err := s.store.AddTicketMessage(r.Context(), &store.TicketMessage{
		TicketID: id,
		UserID:   user.ID,
		Message:  req.Message,
		IsStaff:  user.IsAdmin(),
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": msgID})
}

func (s *Server) handleCloseTicket(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	ticket, err := s.store.GetTicket(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}
	if !canAccess(r, ticket.UserID) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	if err := s.store.SetTicketStatus(r.Context(), id, store.TicketStatusClosed); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": store.TicketStatusClosed})
}
