package api

import (
	"context"

	"github.com/payd-dev/payd/internal/store"
)

type contextKey int

const contextKeyUser contextKey = iota

// setUser returns a new context with the authenticated user attached.
func setUser(ctx context.Context, u *store.User) context.Context {
	return context.WithValue(ctx, contextKeyUser, u)
}

// userFrom extracts the authenticated user from context, or nil.
func userFrom(ctx context.Context) *store.User {
	u, _ := ctx.Value(contextKeyUser).(*store.User)
	return u
}
