package intercept

import (
	"context"
	"strings"
)

// Protected metadata fields answered from the simulated identity.
const (
	FieldCapabilities = "capabilities"
	FieldUserLevel    = "user_level"
)

// MetaStore is the host's per-user metadata storage.
type MetaStore interface {
	GetMeta(ctx context.Context, userID, key string) (any, bool, error)
	SetMeta(ctx context.Context, userID, key string, value any) error
	DeleteMeta(ctx context.Context, userID, key string) error
}

// ScopedIdentityStore decorates a host MetaStore. For the operator's own
// record it answers the protected fields from the simulated identity and
// suppresses writes to them. While a role view is active, whitelisted screen
// preference keys are read from and written to that role's defaults instead.
type ScopedIdentityStore struct {
	next        MetaStore
	interceptor *Interceptor
}

// NewScopedIdentityStore wraps next.
func NewScopedIdentityStore(next MetaStore, interceptor *Interceptor) *ScopedIdentityStore {
	return &ScopedIdentityStore{next: next, interceptor: interceptor}
}

// GetMeta implements MetaStore.
func (s *ScopedIdentityStore) GetMeta(ctx context.Context, userID, key string) (any, bool, error) {
	if s == nil {
		return nil, false, nil
	}
	if s.interceptor.Owns(userID) {
		if field, ok := s.interceptor.protected(key); ok {
			sim := s.interceptor.Identity()
			switch field {
			case FieldCapabilities:
				return sim.Capabilities.AsMap(), true, nil
			case FieldUserLevel:
				return sim.Capabilities.Level(), true, nil
			}
		}
		if role, ok := s.interceptor.roleDefaultsFor(key); ok {
			value, found, err := s.interceptor.roleDefaults.Get(ctx, role, key)
			if err != nil {
				s.interceptor.logger.Warn("role default read failed, falling through", "role", role, "key", key, "error", err)
			} else if found {
				return value, true, nil
			}
		}
	}
	if s.next == nil {
		return nil, false, nil
	}
	return s.next.GetMeta(ctx, userID, key)
}

// SetMeta implements MetaStore.
func (s *ScopedIdentityStore) SetMeta(ctx context.Context, userID, key string, value any) error {
	if s == nil {
		return nil
	}
	if s.interceptor.Owns(userID) {
		if _, ok := s.interceptor.protected(key); ok {
			s.interceptor.logger.Debug("suppressed protected meta write", "user_id", userID, "key", key)
			return nil
		}
		if role, ok := s.interceptor.roleDefaultsFor(key); ok {
			if err := s.interceptor.roleDefaults.Set(ctx, role, key, value); err != nil {
				s.interceptor.logger.Warn("role default write failed", "role", role, "key", key, "error", err)
			}
			return nil
		}
	}
	if s.next == nil {
		return nil
	}
	return s.next.SetMeta(ctx, userID, key, value)
}

// DeleteMeta implements MetaStore.
func (s *ScopedIdentityStore) DeleteMeta(ctx context.Context, userID, key string) error {
	if s == nil {
		return nil
	}
	if s.interceptor.Owns(userID) {
		if _, ok := s.interceptor.protected(key); ok {
			return nil
		}
		if role, ok := s.interceptor.roleDefaultsFor(key); ok {
			if err := s.interceptor.roleDefaults.Delete(ctx, role, key); err != nil {
				s.interceptor.logger.Warn("role default delete failed", "role", role, "key", key, "error", err)
			}
			return nil
		}
	}
	if s.next == nil {
		return nil
	}
	return s.next.DeleteMeta(ctx, userID, key)
}

func (i *Interceptor) protected(key string) (string, bool) {
	key = strings.TrimSpace(key)
	for _, field := range []string{FieldCapabilities, FieldUserLevel} {
		if key == field || (i.metaPrefix != "" && key == i.metaPrefix+field) {
			return field, true
		}
	}
	return "", false
}

func (i *Interceptor) roleDefaultsFor(key string) (string, bool) {
	if i.roleDefaults == nil || !i.roleDefaults.Allowed(key) {
		return "", false
	}
	return i.ActiveRole()
}

var _ MetaStore = (*ScopedIdentityStore)(nil)
