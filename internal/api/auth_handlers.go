package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/payd-dev/payd/internal/audit"
	"github.com/payd-dev/payd/internal/auth"
	"github.com/payd-dev/payd/internal/store"
)

type tokenResponse struct {
	Token string      `json:"token"`
	User  *store.User `json:"user"`
}

// handleRegister handles POST /api/v1/auth/register.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Email     string `json:"email"`
		Password  string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.fail(w, err)
		return
	}

	user := &store.User{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  hash,
		IsActive:  true,
	}
	id, err := s.store.CreateUser(r.Context(), user)
	if errors.Is(err, store.ErrAlreadyExists) {
		writeError(w, http.StatusConflict, "email already registered")
		return
	}
	if err != nil {
		s.fail(w, err)
		return
	}
	user.ID = id

	audit.Event("auth:register", "register").Actor(id, user.Email).Target("user", id).Write(nil)
	s.billing.Notify(r.Context(), "new_user", map[string]any{
		"user_id": id,
		"email":   user.Email,
	})

	token, err := s.tokens.Issue(id, user.Email, user.Role)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tokenResponse{Token: token, User: user})
}

// handleLogin handles POST /api/v1/auth/login.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.store.GetUserByEmail(r.Context(), strings.TrimSpace(req.Email))
	if err != nil || !user.IsActive || !auth.CheckPassword(user.Password, req.Password) {
		// One message for every failure mode; do not leak which part failed.
		audit.Event("auth:login", "login").Write(errors.New("invalid credentials"))
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := s.tokens.Issue(user.ID, user.Email, user.Role)
	if err != nil {
		s.fail(w, err)
		return
	}

	audit.Event("auth:login", "login").Actor(user.ID, user.Email).Write(nil)
	writeJSON(w, http.StatusOK, tokenResponse{Token: token, User: user})
}

// handleMe handles GET /api/v1/auth/me.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userFrom(r.Context()))
}
