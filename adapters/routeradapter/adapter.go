package routeradapter

import (
	"context"

	"github.com/goliatone/go-router"

	"github.com/goliatone/go-viewas/engine"
	"github.com/goliatone/go-viewas/identity"
)

// Context extracts the standard context from a router context.
func Context(ctx router.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx.Context()
}

// Operator returns the operator stored in the router context.
func Operator(ctx router.Context) (identity.Operator, bool) {
	return identity.OperatorFromContext(Context(ctx))
}

// SessionToken returns the session token stored in the router context.
func SessionToken(ctx router.Context) string {
	return identity.SessionToken(Context(ctx))
}

// Request returns the view request stored in the router context.
func Request(ctx router.Context) (*engine.Request, bool) {
	return engine.FromContext(Context(ctx))
}

// Can reports whether the presented identity holds capability. Without a
// view request it falls back to the stored operator.
func Can(ctx router.Context, capability string) bool {
	if r, ok := Request(ctx); ok {
		return r.Can(capability)
	}
	if op, ok := Operator(ctx); ok {
		return op.Can(capability)
	}
	return false
}
