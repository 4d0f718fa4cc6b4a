package auth

import (
	"context"

	"github.com/dukerupert/rolodex/internal/model"
)

type contextKey struct{}

// WithUser attaches the authenticated user to the request context.
func WithUser(ctx context.Context, u *model.User) context.Context {
	return context.WithValue(ctx, contextKey{}, u)
}

// FromContext returns the authenticated user, or false if the request
// was not resolved by the authentication middleware.
func FromContext(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(contextKey{}).(*model.User)
	return u, ok && u != nil
}

// UserID returns the authenticated user's ID, or 0 if unauthenticated.
func UserID(ctx context.Context) int64 {
	u, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return u.ID
}
