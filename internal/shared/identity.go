package shared

import "context"

// Identity is the acting user recorded on every posting. It is supplied by
// the external authentication layer and passed explicitly into service
// inputs; nothing below the handlers reads it from context.
type Identity struct {
	UserID int64
	Name   string
}

type identityContextKey struct{}

// ContextWithIdentity stores the acting identity in context.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext extracts the acting identity from context. The zero
// Identity means the request was not authenticated.
func IdentityFromContext(ctx context.Context) Identity {
	id, _ := ctx.Value(identityContextKey{}).(Identity)
	return id
}
