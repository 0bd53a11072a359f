package interceptors

import (
	"context"

	userdomain "github.com/kodacci/o-monitor-rest/internal/user/domain"
)

type contextKey struct{ name string }

var identityKey = contextKey{"identity"}

// WithIdentity returns a context carrying the resolved caller identity.
func WithIdentity(ctx context.Context, identity *userdomain.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFrom returns the identity set by ResolveIdentity, or nil for anonymous requests.
func IdentityFrom(ctx context.Context) *userdomain.Identity {
	v, _ := ctx.Value(identityKey).(*userdomain.Identity)
	return v
}
