package intercept

import (
	"context"
	"sync"

	"github.com/goliatone/go-viewas/identity"
	"github.com/goliatone/go-viewas/logger"
	"github.com/goliatone/go-viewas/roledefaults"
	"github.com/goliatone/go-viewas/session"
	"github.com/goliatone/go-viewas/viewtype"
)

// Interceptor answers permission and metadata questions about the operator's
// own identity from the simulated identity once armed. Questions about any
// other account fall through untouched.
type Interceptor struct {
	session      *session.Store
	roleDefaults *roledefaults.Store
	metaPrefix   string
	logger       logger.Logger

	once  sync.Once
	armed bool
}

// Option customizes an Interceptor.
type Option func(*Interceptor)

// WithRoleDefaults enables redirecting screen preference writes while a
// role view is active.
func WithRoleDefaults(store *roledefaults.Store) Option {
	return func(i *Interceptor) {
		if i == nil {
			return
		}
		i.roleDefaults = store
	}
}

// WithMetaPrefix sets the host prefix of protected metadata fields, such as
// "wp_" for "wp_capabilities".
func WithMetaPrefix(prefix string) Option {
	return func(i *Interceptor) {
		if i == nil {
			return
		}
		i.metaPrefix = prefix
	}
}

// WithLogger sets the logger.
func WithLogger(lgr logger.Logger) Option {
	return func(i *Interceptor) {
		if i == nil || lgr == nil {
			return
		}
		i.logger = lgr
	}
}

// New builds an interceptor over a request session.
func New(s *session.Store, opts ...Option) *Interceptor {
	i := &Interceptor{session: s, logger: logger.Discard()}
	for _, opt := range opts {
		if opt != nil {
			opt(i)
		}
	}
	return i
}

// Arm enables interception. Only the first call has an effect; it reports
// whether this call armed the interceptor.
func (i *Interceptor) Arm() bool {
	if i == nil || i.session == nil {
		return false
	}
	armed := false
	i.once.Do(func() {
		i.armed = true
		armed = true
	})
	return armed
}

// Armed reports whether interception is enabled.
func (i *Interceptor) Armed() bool {
	return i != nil && i.armed
}

// Owns reports whether userID is the operator's own real identifier and the
// interceptor is armed.
func (i *Interceptor) Owns(userID string) bool {
	if !i.Armed() {
		return false
	}
	own := i.session.Operator().ID
	return own != "" && userID == own
}

// Identity returns the simulated identity.
func (i *Interceptor) Identity() session.Identity {
	if i == nil {
		return session.Identity{}
	}
	return i.session.Identity()
}

// Can answers a capability check for userID, reporting false in the second
// value when the check is not intercepted.
func (i *Interceptor) Can(userID, capability string) (allowed bool, handled bool) {
	if !i.Owns(userID) {
		return false, false
	}
	return i.Identity().Can(capability), true
}

// MapCapability rewrites the primitive capabilities a host check requires.
// A capability the simulated identity lacks maps to the impossible
// capability alone so the check denies.
func (i *Interceptor) MapCapability(userID, capability string, required []string) []string {
	allowed, handled := i.Can(userID, capability)
	if handled && !allowed {
		return []string{identity.CapDoNotAllow}
	}
	return append([]string(nil), required...)
}

// FilterCapabilities replaces the host's capability map for the operator
// with the simulated one. Requested capabilities the simulated identity
// lacks are forced false, as is the impossible capability.
func (i *Interceptor) FilterCapabilities(userID string, all map[string]bool, requested []string) map[string]bool {
	if !i.Owns(userID) {
		return all
	}
	sim := i.Identity()
	out := make(map[string]bool, len(sim.Capabilities)+len(requested)+1)
	for name, granted := range sim.Capabilities {
		out[name] = granted && sim.LoggedIn
	}
	for _, name := range requested {
		out[name] = sim.Can(name)
	}
	out[identity.CapDoNotAllow] = false
	return out
}

// Install registers the capability filter last on chain.
func (i *Interceptor) Install(chain *FilterChain) {
	if i == nil || chain == nil {
		return
	}
	chain.Add(PriorityLast, FilterFunc(func(_ context.Context, userID string, caps map[string]bool, requested []string) map[string]bool {
		return i.FilterCapabilities(userID, caps, requested)
	}))
}

// ActiveRole returns the role slug of an active role view.
func (i *Interceptor) ActiveRole() (string, bool) {
	if !i.Armed() {
		return "", false
	}
	raw, ok := i.session.View().Get(viewtype.IDRole)
	if !ok {
		return "", false
	}
	role, ok := raw.(string)
	if !ok || role == "" {
		return "", false
	}
	return role, true
}
