package identity

import (
	"context"
	"strings"
)

type contextKey string

const (
	operatorKey     contextKey = "viewas.operator"
	sessionTokenKey contextKey = "viewas.session_token"
)

// WithOperator stores the operator in context.
func WithOperator(ctx context.Context, op Operator) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, operatorKey, op)
}

// OperatorFromContext extracts the operator from context. A session token
// stored with WithSessionToken fills in a missing operator token.
func OperatorFromContext(ctx context.Context) (Operator, bool) {
	if ctx == nil {
		return Operator{}, false
	}
	op, ok := ctx.Value(operatorKey).(Operator)
	if !ok {
		return Operator{}, false
	}
	if op.SessionToken == "" {
		op.SessionToken = SessionToken(ctx)
	}
	return op, true
}

// WithSessionToken stores a session token in context. Blank tokens are a
// no-op.
func WithSessionToken(ctx context.Context, token string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionTokenKey, token)
}

// SessionToken extracts the session token from context.
func SessionToken(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if s, ok := ctx.Value(sessionTokenKey).(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// ContextSource reads the operator stored by WithOperator.
type ContextSource struct{}

// Operator implements Source.
func (ContextSource) Operator(ctx context.Context) (Operator, error) {
	op, ok := OperatorFromContext(ctx)
	if !ok {
		return Operator{}, nil
	}
	return op, nil
}

var _ Source = ContextSource{}
var _ Source = SourceFunc(nil)
