package store

import (
	"context"

	"github.com/goliatone/go-viewas/ferrors"
)

// Split routes global options and user metadata to separate stores, so a
// host can keep per-user view records and settings in its own preference
// storage.
type Split struct {
	global ReadWriter
	user   ReadWriter
}

// NewSplit routes the global scope to global and user scopes to user.
func NewSplit(global, user ReadWriter) *Split {
	return &Split{global: global, user: user}
}

// Read implements Reader.
func (s *Split) Read(ctx context.Context, scope Scope, key string) (map[string]any, bool, error) {
	rw, err := s.route(scope)
	if err != nil {
		return nil, false, err
	}
	return rw.Read(ctx, scope, key)
}

// Write implements Writer.
func (s *Split) Write(ctx context.Context, scope Scope, key string, value map[string]any) error {
	rw, err := s.route(scope)
	if err != nil {
		return err
	}
	return rw.Write(ctx, scope, key, value)
}

// Delete implements Writer.
func (s *Split) Delete(ctx context.Context, scope Scope, key string) error {
	rw, err := s.route(scope)
	if err != nil {
		return err
	}
	return rw.Delete(ctx, scope, key)
}

// Users implements UserLister when the user store does. Otherwise it
// returns no users.
func (s *Split) Users(ctx context.Context, key string) ([]string, error) {
	if s == nil {
		return nil, ferrors.ErrStoreRequired
	}
	lister, ok := s.user.(UserLister)
	if !ok {
		return nil, nil
	}
	return lister.Users(ctx, key)
}

func (s *Split) route(scope Scope) (ReadWriter, error) {
	if s == nil {
		return nil, ferrors.ErrStoreRequired
	}
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	rw := s.global
	if scope.Kind == ScopeUser {
		rw = s.user
	}
	if rw == nil {
		return nil, ferrors.WrapSentinel(ferrors.ErrStoreRequired, "", map[string]any{
			ferrors.MetaScope: scope.String(),
		})
	}
	return rw, nil
}

var (
	_ ReadWriter = (*Split)(nil)
	_ UserLister = (*Split)(nil)
)
