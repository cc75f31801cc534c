package store

import (
	"context"
	"strings"

	"github.com/goliatone/go-viewas/ferrors"
)

// Key is the fixed namespaced key under which view state is stored, both in
// the global options and in each user's metadata.
const Key = "view_admin_as"

// Fields of the stored documents.
const (
	FieldViews        = "views"
	FieldSettings     = "settings"
	FieldRoleDefaults = "role_defaults"
)

// ScopeKind identifies a storage partition.
type ScopeKind string

const (
	ScopeGlobal ScopeKind = "global"
	ScopeUser   ScopeKind = "user"
)

// Scope addresses global options or one user's metadata.
type Scope struct {
	Kind   ScopeKind
	UserID string
}

// Global returns the site-wide scope.
func Global() Scope {
	return Scope{Kind: ScopeGlobal}
}

// User returns the metadata scope for a user.
func User(userID string) Scope {
	return Scope{Kind: ScopeUser, UserID: strings.TrimSpace(userID)}
}

// Validate checks the scope is addressable.
func (s Scope) Validate() error {
	switch s.Kind {
	case ScopeGlobal:
		return nil
	case ScopeUser:
		if strings.TrimSpace(s.UserID) == "" {
			return ferrors.WrapSentinel(ferrors.ErrUserRequired, "", map[string]any{
				ferrors.MetaScope: string(s.Kind),
			})
		}
		return nil
	default:
		return ferrors.WrapSentinel(ferrors.ErrScopeInvalid, "", map[string]any{
			ferrors.MetaScope: string(s.Kind),
		})
	}
}

// String renders the scope as kind or kind:id.
func (s Scope) String() string {
	if s.Kind == ScopeUser {
		return string(s.Kind) + ":" + s.UserID
	}
	return string(s.Kind)
}

// Reader loads opaque nested maps.
type Reader interface {
	Read(ctx context.Context, scope Scope, key string) (map[string]any, bool, error)
}

// Writer persists opaque nested maps.
type Writer interface {
	Write(ctx context.Context, scope Scope, key string, value map[string]any) error
	Delete(ctx context.Context, scope Scope, key string) error
}

// ReadWriter is a combined reader/writer.
type ReadWriter interface {
	Reader
	Writer
}

// UserLister enumerates the users holding a document under key. Stores that
// implement it support sweeping records of every user.
type UserLister interface {
	Users(ctx context.Context, key string) ([]string, error)
}
