package intercept

import "context"

// CapabilityChecker is the host's permission check.
type CapabilityChecker interface {
	HasCapability(ctx context.Context, userID, capability string) bool
}

// CheckerFunc adapts a function to CapabilityChecker.
type CheckerFunc func(ctx context.Context, userID, capability string) bool

// HasCapability implements CapabilityChecker.
func (fn CheckerFunc) HasCapability(ctx context.Context, userID, capability string) bool {
	if fn == nil {
		return false
	}
	return fn(ctx, userID, capability)
}

// Checker decorates a host checker so checks about the operator's own
// identity use the simulated identity.
type Checker struct {
	next        CapabilityChecker
	interceptor *Interceptor
}

// NewChecker wraps next.
func NewChecker(next CapabilityChecker, interceptor *Interceptor) *Checker {
	return &Checker{next: next, interceptor: interceptor}
}

// HasCapability implements CapabilityChecker.
func (c *Checker) HasCapability(ctx context.Context, userID, capability string) bool {
	if c == nil {
		return false
	}
	if allowed, handled := c.interceptor.Can(userID, capability); handled {
		return allowed
	}
	if c.next == nil {
		return false
	}
	return c.next.HasCapability(ctx, userID, capability)
}

var _ CapabilityChecker = (*Checker)(nil)
