package goauthadapter

import (
	"context"
	"strings"

	"github.com/goliatone/go-auth"

	"github.com/goliatone/go-viewas/directory"
	"github.com/goliatone/go-viewas/ferrors"
	"github.com/goliatone/go-viewas/identity"
)

// ActorExtractor extracts an auth.ActorContext from context.
type ActorExtractor func(context.Context) (*auth.ActorContext, bool)

// Option customizes the operator source behavior.
type Option func(*OperatorSource)

// OperatorSource derives the view operator from go-auth actor context.
// Capabilities come from the role definitions of the directory.
type OperatorSource struct {
	extractor  ActorExtractor
	roles      directory.RoleSource
	superRoles map[string]struct{}
}

// NewOperatorSource builds a source using go-auth's actor context extractor.
func NewOperatorSource(opts ...Option) *OperatorSource {
	source := &OperatorSource{
		extractor:  auth.ActorFromContext,
		superRoles: map[string]struct{}{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(source)
		}
	}
	if source.extractor == nil {
		source.extractor = auth.ActorFromContext
	}
	return source
}

// WithActorExtractor overrides the actor context extractor.
func WithActorExtractor(extractor ActorExtractor) Option {
	return func(source *OperatorSource) {
		if source == nil {
			return
		}
		source.extractor = extractor
	}
}

// WithRoles sets the role source used to resolve actor capabilities.
func WithRoles(roles directory.RoleSource) Option {
	return func(source *OperatorSource) {
		if source == nil {
			return
		}
		source.roles = roles
	}
}

// WithSuperAdminRoles marks actor roles that hold every capability.
func WithSuperAdminRoles(roles ...string) Option {
	return func(source *OperatorSource) {
		if source == nil {
			return
		}
		if source.superRoles == nil {
			source.superRoles = map[string]struct{}{}
		}
		for _, role := range roles {
			if role = strings.TrimSpace(role); role != "" {
				source.superRoles[role] = struct{}{}
			}
		}
	}
}

// Operator implements identity.Source. A context without an actor yields
// an empty operator.
func (s *OperatorSource) Operator(ctx context.Context) (identity.Operator, error) {
	if s == nil || s.extractor == nil {
		return identity.Operator{}, nil
	}
	actor, ok := s.extractor(ctx)
	if !ok || actor == nil {
		return identity.Operator{}, nil
	}
	op := OperatorFromActor(actor)
	op.SessionToken = identity.SessionToken(ctx)
	if _, super := s.superRoles[actor.Role]; super {
		op.SuperAdmin = true
	}
	if s.roles == nil || actor.Role == "" {
		return op, nil
	}
	roles, err := s.roles.Roles(ctx)
	if err != nil {
		return identity.Operator{}, ferrors.WrapExternal(err, ferrors.TextCodeIdentityResolveFailed, "goauthadapter: resolve actor roles", map[string]any{
			ferrors.MetaAdapter: "goauth",
			ferrors.MetaUserID:  op.ID,
			ferrors.MetaRole:    actor.Role,
		})
	}
	op.Capabilities = directory.ResolveCapabilities(directory.User{ID: op.ID, Roles: op.Roles}, roles)
	return op, nil
}

// OperatorFromActor builds an operator from an auth.ActorContext.
func OperatorFromActor(actor *auth.ActorContext) identity.Operator {
	if actor == nil {
		return identity.Operator{}
	}
	id := actor.ActorID
	if id == "" {
		id = actor.Subject
	}
	op := identity.Operator{ID: id, Login: actor.Subject}
	if actor.Role != "" {
		op.Roles = []string{actor.Role}
	}
	return op
}

// OperatorFromContext extracts an operator from context.
func OperatorFromContext(ctx context.Context) (identity.Operator, bool) {
	actor, ok := auth.ActorFromContext(ctx)
	if !ok || actor == nil {
		return identity.Operator{}, false
	}
	op := OperatorFromActor(actor)
	op.SessionToken = identity.SessionToken(ctx)
	return op, true
}

var _ identity.Source = (*OperatorSource)(nil)
