package identity

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Operator is the real, authenticated user making the request.
type Operator struct {
	ID           string
	Login        string
	Roles        []string
	Capabilities Capabilities
	SessionToken string
	SuperAdmin   bool
}

// Valid reports whether the operator carries the fields the engine needs.
func (o Operator) Valid() bool {
	return strings.TrimSpace(o.ID) != "" && strings.TrimSpace(o.SessionToken) != ""
}

// Can reports whether the operator really holds name.
func (o Operator) Can(name string) bool {
	if o.SuperAdmin && name != CapDoNotAllow {
		return true
	}
	return o.Capabilities.Has(name)
}

// HasBaseAccess reports whether the operator may switch views at all.
func (o Operator) HasBaseAccess() bool {
	return o.Can(CapViewAdminAs)
}

// HasRole reports whether the operator holds the role slug.
func (o Operator) HasRole(slug string) bool {
	for _, role := range o.Roles {
		if role == slug {
			return true
		}
	}
	return false
}

// Source supplies the authenticated operator at the start of a request.
type Source interface {
	Operator(ctx context.Context) (Operator, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (Operator, error)

// Operator implements Source.
func (fn SourceFunc) Operator(ctx context.Context) (Operator, error) {
	return fn(ctx)
}

// NewSessionToken issues a random per-session token.
func NewSessionToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// NormalizeRoles trims, dedupes and sorts role slugs.
func NormalizeRoles(roles []string) []string {
	if len(roles) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(roles))
	out := make([]string, 0, len(roles))
	for _, role := range roles {
		role = strings.TrimSpace(role)
		if role == "" {
			continue
		}
		if _, ok := seen[role]; ok {
			continue
		}
		seen[role] = struct{}{}
		out = append(out, role)
	}
	sort.Strings(out)
	return out
}
