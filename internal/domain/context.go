package domain

import "context"

type principalKey struct{}

// Principal carries the authenticated identity through request context.
// IsAdmin is the process-wide super admin flag resolved at authentication
// time; group-scoped roles are resolved per decision by the role resolver.
type Principal struct {
	UserID  int64
	Email   string
	IsAdmin bool
}

// WithPrincipal stores a Principal in the context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext extracts the Principal from the context.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
