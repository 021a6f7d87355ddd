// Package ctxutil provides shared context key accessors.
//
// server's auth middleware stores the token claims and mcp's tool handlers
// read them; both import ctxutil instead of each other.
package ctxutil

import (
	"context"

	"github.com/lifemosaic/negotiator/internal/auth"
)

type contextKey string

const keyClaims contextKey = "claims"

// WithClaims returns a new context carrying the given claims.
func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, keyClaims, claims)
}

// ClaimsFromContext extracts the JWT claims from the context.
func ClaimsFromContext(ctx context.Context) *auth.Claims {
	if v, ok := ctx.Value(keyClaims).(*auth.Claims); ok {
		return v
	}
	return nil
}

// UserIDFromContext returns the authenticated user, or "" when the request
// carried no valid token.
func UserIDFromContext(ctx context.Context) string {
	if c := ClaimsFromContext(ctx); c != nil {
		return c.UserID()
	}
	return ""
}
