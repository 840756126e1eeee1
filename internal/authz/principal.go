package authz

import "context"

// Principal describes the authenticated actor of a request, bound to a tenant
// and a role. It is reconstructed per request from the session and a fresh
// directory lookup; nothing here is persisted.
type Principal struct {
	UserID   int64
	TenantID int64
	Role     Role
}

type principalContextKey struct{}

// ContextWithPrincipal stores the authorized principal in the context.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal placed by the authorization
// pipeline. The second return is false on requests that never passed the
// pipeline.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(Principal)
	return p, ok
}
