// Package casbinadapter exposes a casbin policy as a third-party permission
// system: its actions become selectable capabilities and its enforcer
// becomes a host capability check the view interceptor can wrap.
package casbinadapter

import (
	"context"
	"strings"

	"github.com/casbin/casbin/v2"

	"github.com/goliatone/go-viewas/compat"
	"github.com/goliatone/go-viewas/ferrors"
	"github.com/goliatone/go-viewas/intercept"
	"github.com/goliatone/go-viewas/logger"
)

// DefaultObject is the policy object capability checks are issued against.
const DefaultObject = "viewas"

// DefaultSourceName names the capability source.
const DefaultSourceName = "casbin"

const actionToken = "p_act"

// Enforcer is the subset of *casbin.Enforcer used for checks.
type Enforcer interface {
	Enforce(rvals ...any) (bool, error)
}

// Adapter bridges a casbin enforcer to the capability contracts.
type Adapter struct {
	enforcer *casbin.Enforcer
	check    Enforcer
	object   string
	name     string
	ptype    string
	logger   logger.Logger
}

// Option customizes the adapter.
type Option func(*Adapter)

// WithObject sets the policy object used for checks and action listing.
// An empty object lists every action.
func WithObject(object string) Option {
	return func(a *Adapter) {
		if a == nil {
			return
		}
		a.object = strings.TrimSpace(object)
	}
}

// WithSourceName overrides the capability source name.
func WithSourceName(name string) Option {
	return func(a *Adapter) {
		if a == nil || strings.TrimSpace(name) == "" {
			return
		}
		a.name = strings.TrimSpace(name)
	}
}

// WithPolicyType selects the policy section actions are read from.
func WithPolicyType(ptype string) Option {
	return func(a *Adapter) {
		if a == nil || strings.TrimSpace(ptype) == "" {
			return
		}
		a.ptype = strings.TrimSpace(ptype)
	}
}

// WithLogger sets the logger used for enforcement failures.
func WithLogger(lgr logger.Logger) Option {
	return func(a *Adapter) {
		if a == nil || lgr == nil {
			return
		}
		a.logger = lgr
	}
}

// New wraps enforcer.
func New(enforcer *casbin.Enforcer, opts ...Option) *Adapter {
	a := &Adapter{
		enforcer: enforcer,
		object:   DefaultObject,
		name:     DefaultSourceName,
		ptype:    "p",
		logger:   logger.Discard(),
	}
	if enforcer != nil {
		a.check = enforcer
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// Name implements compat.CapabilitySource.
func (a *Adapter) Name() string {
	if a == nil {
		return DefaultSourceName
	}
	return a.name
}

// Capabilities implements compat.CapabilitySource by listing the policy
// actions granted on the configured object.
func (a *Adapter) Capabilities(_ context.Context) ([]string, error) {
	if a == nil || a.enforcer == nil {
		return nil, ferrors.WrapSentinel(ferrors.ErrStoreRequired, "casbinadapter: enforcer is required", map[string]any{
			ferrors.MetaAdapter:   "casbin",
			ferrors.MetaOperation: "capabilities",
		})
	}
	section, ok := a.enforcer.GetModel()["p"]
	if !ok {
		return nil, nil
	}
	assertion, ok := section[a.ptype]
	if !ok || assertion == nil {
		return nil, nil
	}
	actIdx, objIdx := -1, -1
	for i, token := range assertion.Tokens {
		switch token {
		case a.ptype + "_act", actionToken:
			actIdx = i
		case a.ptype + "_obj", "p_obj":
			objIdx = i
		}
	}
	if actIdx < 0 {
		return nil, nil
	}
	names := []string{}
	for _, rule := range assertion.Policy {
		if actIdx >= len(rule) {
			continue
		}
		if a.object != "" && objIdx >= 0 && objIdx < len(rule) && rule[objIdx] != a.object {
			continue
		}
		names = append(names, rule[actIdx])
	}
	return compat.Normalize(names), nil
}

// HasCapability implements intercept.CapabilityChecker. Enforcement errors
// deny the check.
func (a *Adapter) HasCapability(ctx context.Context, userID, capability string) bool {
	if a == nil || a.check == nil {
		return false
	}
	allowed, err := a.check.Enforce(userID, a.object, capability)
	if err != nil {
		a.logger.WithContext(ctx).Warn("casbin enforce failed",
			"user_id", userID,
			"capability", capability,
			"error", err,
		)
		return false
	}
	return allowed
}

var _ compat.CapabilitySource = (*Adapter)(nil)
var _ intercept.CapabilityChecker = (*Adapter)(nil)
