package auth

import "context"

type contextKey int

const ctxKeyUser contextKey = iota

// User is the authenticated account attached to a request context by the
// bearer-token middleware. It mirrors what the identity provider asserts
// about the token, nothing more.
type User struct {
	ID    string
	Email string
}

// WithUser returns a context carrying the authenticated user.
func WithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, ctxKeyUser, user)
}

// UserFromContext returns the authenticated user or nil.
func UserFromContext(ctx context.Context) *User {
	user, ok := ctx.Value(ctxKeyUser).(*User)
	if !ok {
		return nil
	}

	return user
}
