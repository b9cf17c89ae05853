package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/payd-dev/payd/internal/store"
)

// requireAuth validates the Bearer token and loads the user into the
// request context. Responds 401 when the token is missing, invalid, or
// the account no longer exists or is disabled.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := s.authenticate(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r.WithContext(setUser(r.Context(), user)))
	})
}

// requireAdmin is requireAuth plus an admin role check.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return s.requireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !userFrom(r.Context()).IsAdmin() {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		next.ServeHTTP(w, r)
	}))
}

var errNoToken = errors.New("missing bearer token")

// authenticate resolves the request's Bearer token to an active user.
func (s *Server) authenticate(r *http.Request) (*store.User, error) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return nil, errNoToken
	}

	claims, err := s.tokens.Validate(token)
	if err != nil {
		return nil, err
	}
	id, err := claims.UserID()
	if err != nil {
		return nil, err
	}

	user, err := s.store.GetUser(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, errors.New("account disabled")
	}
	return user, nil
}
