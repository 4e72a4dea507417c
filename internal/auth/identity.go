package auth

import "context"

// Identity is the authenticated caller.
type Identity struct {
	UserID int64
	Role   string
}

// HasRole reports whether the caller holds role.
func (i Identity) HasRole(role string) bool {
	return role != "" && i.Role == role
}

type ctxKey struct{}

// WithIdentity stores id in ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// IdentityFromCtx extracts the caller. ok is false for anonymous requests.
func IdentityFromCtx(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	if !ok || id.UserID == 0 {
		return Identity{}, false
	}
	return id, true
}
