package roledefaults

import (
	"context"
	"sort"
	"strings"

	"github.com/goliatone/go-viewas/ferrors"
	"github.com/goliatone/go-viewas/kv"
	"github.com/goliatone/go-viewas/store"
)

// MetaWriter is the slice of a host metadata store needed to push defaults
// onto a real account.
type MetaWriter interface {
	GetMeta(ctx context.Context, userID, key string) (any, bool, error)
	SetMeta(ctx context.Context, userID, key string, value any) error
}

// Store keeps per-role screen preference defaults in the global options.
type Store struct {
	storage store.ReadWriter
	policy  Policy
}

// Option customizes a Store.
type Option func(*Store)

// WithPolicy replaces the key policy.
func WithPolicy(policy Policy) Option {
	return func(s *Store) {
		if s == nil {
			return
		}
		s.policy = policy
	}
}

// NewStore builds a role defaults store.
func NewStore(storage store.ReadWriter, opts ...Option) *Store {
	s := &Store{storage: storage, policy: DefaultPolicy()}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Policy returns the key policy.
func (s *Store) Policy() Policy {
	if s == nil {
		return DefaultPolicy()
	}
	return s.policy
}

// Allowed reports whether key may be stored as a role default.
func (s *Store) Allowed(key string) bool {
	return s.Policy().Allowed(key)
}

// All returns every default of a role.
func (s *Store) All(ctx context.Context, role string) (map[string]any, error) {
	role, err := requireRole(role)
	if err != nil {
		return nil, err
	}
	defaults, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	values, ok := kv.GetMap(defaults, role)
	if !ok {
		return map[string]any{}, nil
	}
	out := map[string]any{}
	for key, value := range values {
		if s.Allowed(key) {
			out[key] = value
		}
	}
	return out, nil
}

// Roles returns the roles holding defaults, sorted.
func (s *Store) Roles(ctx context.Context) ([]string, error) {
	defaults, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	roles := make([]string, 0, len(defaults))
	for role := range defaults {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	return roles, nil
}

// Get returns one default.
func (s *Store) Get(ctx context.Context, role, key string) (any, bool, error) {
	if !s.Allowed(key) {
		return nil, false, nil
	}
	values, err := s.All(ctx, role)
	if err != nil {
		return nil, false, err
	}
	value, ok := kv.Get(values, key)
	return value, ok, nil
}

// Set stores one default. Keys outside the policy are rejected.
func (s *Store) Set(ctx context.Context, role, key string, value any) error {
	role, err := requireRole(role)
	if err != nil {
		return err
	}
	key = strings.TrimSpace(key)
	if !s.Allowed(key) {
		return ferrors.WrapSentinel(ferrors.ErrRoleKeyForbidden, "", map[string]any{
			ferrors.MetaRole: role,
			ferrors.MetaKey:  key,
		})
	}
	return s.mutate(ctx, func(defaults map[string]any) {
		values, ok := kv.GetMap(defaults, role)
		if !ok {
			values = map[string]any{}
		}
		kv.Set(values, key, kv.Clone(value), true)
		kv.Set(defaults, role, values, true)
	})
}

// Delete removes one default.
func (s *Store) Delete(ctx context.Context, role, key string) error {
	role, err := requireRole(role)
	if err != nil {
		return err
	}
	return s.mutate(ctx, func(defaults map[string]any) {
		values, ok := kv.GetMap(defaults, role)
		if !ok {
			return
		}
		delete(values, strings.TrimSpace(key))
		if len(values) == 0 {
			delete(defaults, role)
		}
	})
}

// Clear removes every default of a role.
func (s *Store) Clear(ctx context.Context, role string) error {
	role, err := requireRole(role)
	if err != nil {
		return err
	}
	return s.mutate(ctx, func(defaults map[string]any) {
		delete(defaults, role)
	})
}

// Copy copies the defaults of one role onto another. Without overwrite,
// keys already set on the target are kept.
func (s *Store) Copy(ctx context.Context, from, to string, overwrite bool) error {
	source, err := s.All(ctx, from)
	if err != nil {
		return err
	}
	to, err = requireRole(to)
	if err != nil {
		return err
	}
	return s.mutate(ctx, func(defaults map[string]any) {
		values, ok := kv.GetMap(defaults, to)
		if !ok {
			values = map[string]any{}
		}
		for key, value := range source {
			if _, exists := values[key]; exists && !overwrite {
				continue
			}
			kv.Set(values, key, kv.Clone(value), true)
		}
		if len(values) > 0 {
			kv.Set(defaults, to, values, true)
		}
	})
}

// ApplyToUser pushes a role's defaults onto a real account and returns how
// many keys were written.
func (s *Store) ApplyToUser(ctx context.Context, meta MetaWriter, userID, role string, overwrite bool) (int, error) {
	if meta == nil {
		return 0, ferrors.ErrStoreRequired
	}
	if strings.TrimSpace(userID) == "" {
		return 0, ferrors.ErrUserRequired
	}
	values, err := s.All(ctx, role)
	if err != nil {
		return 0, err
	}
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	written := 0
	for _, key := range keys {
		if !overwrite {
			_, exists, err := meta.GetMeta(ctx, userID, key)
			if err != nil {
				return written, err
			}
			if exists {
				continue
			}
		}
		if err := meta.SetMeta(ctx, userID, key, kv.Clone(values[key])); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

func (s *Store) load(ctx context.Context) (map[string]any, error) {
	if s == nil || s.storage == nil {
		return nil, ferrors.ErrStoreRequired
	}
	return store.GlobalDocument(s.storage).Field(ctx, store.FieldRoleDefaults)
}

func (s *Store) mutate(ctx context.Context, fn func(defaults map[string]any)) error {
	if s == nil || s.storage == nil {
		return ferrors.ErrStoreRequired
	}
	return store.GlobalDocument(s.storage).MutateField(ctx, store.FieldRoleDefaults, func(defaults map[string]any) error {
		fn(defaults)
		return nil
	})
}

func requireRole(role string) (string, error) {
	role = strings.TrimSpace(role)
	if role == "" {
		return "", ferrors.ErrRoleRequired
	}
	return role, nil
}
