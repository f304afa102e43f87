package auth

import "context"

type contextKey struct{}

// Identity is the caller of a request. Guests get an Identity too, with
// Anonymous set.
type Identity struct {
	UserID    int64
	SessionID int64
	Anonymous bool
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}

func UserID(ctx context.Context) int64 {
	id, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return id.UserID
}
