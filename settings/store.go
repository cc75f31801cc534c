package settings

import (
	"context"

	"github.com/goliatone/go-viewas/ferrors"
	"github.com/goliatone/go-viewas/kv"
	"github.com/goliatone/go-viewas/store"
)

// Change describes a persisted settings update.
type Change struct {
	Scope     store.Scope
	Namespace string
	Before    map[string]any
	After     map[string]any
}

// Changed reports whether key differs between Before and After.
func (c Change) Changed(key string) bool {
	before, _ := kv.Get(c.Before, key)
	after, _ := kv.Get(c.After, key)
	return !kv.Equal(before, after)
}

// ChangeHook observes settings updates.
type ChangeHook interface {
	OnSettingsChange(ctx context.Context, change Change) error
}

// ChangeHookFunc adapts a function to ChangeHook.
type ChangeHookFunc func(ctx context.Context, change Change) error

// OnSettingsChange implements ChangeHook.
func (fn ChangeHookFunc) OnSettingsChange(ctx context.Context, change Change) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, change)
}

// Store reads and writes validated settings through persistent storage.
type Store struct {
	registry *Registry
	storage  store.ReadWriter
	hooks    []ChangeHook
	accessor kv.Accessor
}

// Option customizes a Store.
type Option func(*Store)

// WithHook registers a change hook.
func WithHook(hook ChangeHook) Option {
	return func(s *Store) {
		if s == nil || hook == nil {
			return
		}
		s.hooks = append(s.hooks, hook)
	}
}

// WithAccessor routes writes through a diagnostic accessor.
func WithAccessor(accessor kv.Accessor) Option {
	return func(s *Store) {
		if s == nil {
			return
		}
		s.accessor = accessor
	}
}

// NewStore builds a settings store.
func NewStore(registry *Registry, storage store.ReadWriter, opts ...Option) *Store {
	s := &Store{registry: registry, storage: storage}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// AddHook registers a change hook after construction.
func (s *Store) AddHook(hook ChangeHook) {
	if s == nil || hook == nil {
		return
	}
	s.hooks = append(s.hooks, hook)
}

// Registry returns the namespace registry.
func (s *Store) Registry() *Registry {
	if s == nil {
		return nil
	}
	return s.registry
}

// ScopeOf maps a storage scope to a settings scope.
func ScopeOf(scope store.Scope) Scope {
	if scope.Kind == store.ScopeUser {
		return ScopeUser
	}
	return ScopeGlobal
}

// Raw returns the stored, unvalidated settings of a namespace.
func (s *Store) Raw(ctx context.Context, scope store.Scope, namespace string) (map[string]any, error) {
	if s == nil || s.storage == nil {
		return nil, ferrors.ErrStoreRequired
	}
	all, err := store.NewDocument(s.storage, scope).Field(ctx, store.FieldSettings)
	if err != nil {
		return nil, err
	}
	raw, _ := kv.GetMap(all, namespace)
	return raw, nil
}

// Get returns the validated settings of a namespace. Reads never return
// unvalidated data.
func (s *Store) Get(ctx context.Context, scope store.Scope, namespace string) (map[string]any, error) {
	raw, err := s.Raw(ctx, scope, namespace)
	if err != nil {
		return nil, err
	}
	return s.registry.Validate(namespace, ScopeOf(scope), raw, true)
}

// Value returns one validated setting.
func (s *Store) Value(ctx context.Context, scope store.Scope, namespace, key string) (any, bool, error) {
	values, err := s.Get(ctx, scope, namespace)
	if err != nil {
		return nil, false, err
	}
	value, ok := kv.Get(values, key)
	return value, ok, nil
}

// String returns one validated string setting.
func (s *Store) String(ctx context.Context, scope store.Scope, namespace, key string) (string, error) {
	values, err := s.Get(ctx, scope, namespace)
	if err != nil {
		return "", err
	}
	value, _ := kv.GetString(values, key)
	return value, nil
}

// ViewMode returns the user's view mode.
func (s *Store) ViewMode(ctx context.Context, userID string) (string, error) {
	mode, err := s.String(ctx, store.User(userID), NamespaceCore, KeyViewMode)
	if err != nil {
		return ViewModeBrowse, err
	}
	if mode == "" {
		mode = ViewModeBrowse
	}
	return mode, nil
}

// ViewTypeEnabled reports the global toggle of a view type. Types without a
// declared toggle are enabled.
func (s *Store) ViewTypeEnabled(ctx context.Context, id string) (bool, error) {
	value, ok, err := s.Value(ctx, store.Global(), NamespaceCore, ViewTypeKey(id))
	if err != nil {
		return true, err
	}
	if !ok {
		return true, nil
	}
	return kv.Bool(value), nil
}

// Update validates changes strictly, merges them onto the current validated
// settings, persists the result and notifies hooks. It returns the new
// settings and whether anything was accepted.
func (s *Store) Update(ctx context.Context, scope store.Scope, namespace string, changes map[string]any) (map[string]any, bool, error) {
	if s == nil || s.storage == nil {
		return nil, false, ferrors.ErrStoreRequired
	}
	kind := ScopeOf(scope)
	accepted, err := s.registry.Validate(namespace, kind, changes, false)
	if err != nil {
		return nil, false, err
	}
	before, err := s.Get(ctx, scope, namespace)
	if err != nil {
		return nil, false, err
	}
	if len(accepted) == 0 {
		return before, false, nil
	}
	merged := kv.CloneMap(before)
	for key, value := range accepted {
		merged = s.accessor.SetMap(merged, key, value, true)
	}
	after, err := s.registry.Validate(namespace, kind, merged, true)
	if err != nil {
		return nil, false, err
	}

	doc := store.NewDocument(s.storage, scope)
	err = doc.MutateField(ctx, store.FieldSettings, func(all map[string]any) error {
		kv.Set(all, namespace, kv.CloneMap(after), true)
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	change := Change{Scope: scope, Namespace: namespace, Before: before, After: after}
	for _, hook := range s.hooks {
		if err := hook.OnSettingsChange(ctx, change); err != nil {
			return after, true, err
		}
	}
	return after, true, nil
}
