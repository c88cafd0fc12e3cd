package middleware

import (
	"context"

	"github.com/revibe-app/revibe-backend/internal/authz"
)

type contextKey string

const ctxPrincipal contextKey = "principal"

// WithPrincipal injects the authenticated identity into the context.
func WithPrincipal(ctx context.Context, principal authz.Principal) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxPrincipal, principal)
}

// Principal returns the identity attached by the auth middleware. Requests
// that never passed through it act as the anonymous principal.
func Principal(ctx context.Context) authz.Principal {
	if ctx == nil {
		return authz.Anonymous()
	}
	if v, ok := ctx.Value(ctxPrincipal).(authz.Principal); ok {
		return v
	}
	return authz.Anonymous()
}

func UserIDFromContext(ctx context.Context) string {
	principal := Principal(ctx)
	if !principal.Authenticated {
		return ""
	}
	return principal.UserID.String()
}

func ProfileIDFromContext(ctx context.Context) string {
	principal := Principal(ctx)
	if !principal.HasProfile() {
		return ""
	}
	return principal.ProfileID.String()
}

func RoleFromContext(ctx context.Context) string {
	principal := Principal(ctx)
	if !principal.Authenticated {
		return ""
	}
	return principal.Role.String()
}
