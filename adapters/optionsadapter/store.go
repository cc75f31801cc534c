package optionsadapter

import (
	"context"
	"fmt"
	"strings"

	opts "github.com/goliatone/go-options"
	"github.com/goliatone/go-options/pkg/state"

	"github.com/goliatone/go-viewas/ferrors"
	"github.com/goliatone/go-viewas/identity"
	"github.com/goliatone/go-viewas/kv"
	"github.com/goliatone/go-viewas/store"
)

const (
	priorityGlobal = 10
	priorityUser   = 40
)

// DefaultDomain is the options domain holding view state.
const DefaultDomain = store.Key

// MetadataUserID is the scope metadata key carrying the user ID.
const MetadataUserID = "user_id"

// ErrStoreRequired indicates the underlying state store is missing.
var ErrStoreRequired = ferrors.ErrStoreRequired

// MetaBuilder builds storage metadata for a mutation.
type MetaBuilder func(ctx context.Context, scope store.Scope) state.Meta

// Option customizes the Store adapter.
type Option func(*Store)

// Store adapts a go-options state.Store into a view state store. Global
// options map to the system scope and user metadata to a user scope.
type Store struct {
	stateStore state.Store[map[string]any]
	domain     string
	meta       MetaBuilder
}

// NewStore constructs an adapter backed by a go-options state.Store.
func NewStore(stateStore state.Store[map[string]any], opts ...Option) *Store {
	adapter := &Store{
		stateStore: stateStore,
		domain:     DefaultDomain,
		meta:       defaultMeta,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(adapter)
		}
	}
	if adapter.domain == "" {
		adapter.domain = DefaultDomain
	}
	if adapter.meta == nil {
		adapter.meta = defaultMeta
	}
	return adapter
}

// WithDomain sets the options domain.
func WithDomain(domain string) Option {
	return func(adapter *Store) {
		if adapter == nil {
			return
		}
		adapter.domain = strings.TrimSpace(domain)
	}
}

// WithMetaBuilder overrides the metadata builder used on mutations.
func WithMetaBuilder(builder MetaBuilder) Option {
	return func(adapter *Store) {
		if adapter == nil {
			return
		}
		adapter.meta = builder
	}
}

// Read implements store.Reader.
func (s *Store) Read(ctx context.Context, scope store.Scope, key string) (map[string]any, bool, error) {
	ref, err := s.ref(scope, key, "read")
	if err != nil {
		return nil, false, err
	}
	snapshot, _, ok, err := s.stateStore.Load(ctx, ref)
	if err != nil {
		return nil, false, ferrors.WrapExternal(err, ferrors.TextCodeStoreReadFailed, "optionsadapter: load failed", storeMeta(scope, key, "read", s.domain))
	}
	if !ok || len(snapshot) == 0 {
		return nil, false, nil
	}
	raw, found := kv.GetPath(snapshot, key)
	if !found || raw == nil {
		return nil, false, nil
	}
	value, ok := kv.AsMap(raw)
	if !ok {
		return nil, false, ferrors.NewExternal(ferrors.TextCodeStoreDecodeFailed, fmt.Sprintf("optionsadapter: unsupported value type %T", raw), storeMeta(scope, key, "decode", s.domain))
	}
	return kv.CloneMap(value), true, nil
}

// Write implements store.Writer.
func (s *Store) Write(ctx context.Context, scope store.Scope, key string, value map[string]any) error {
	return s.mutate(ctx, scope, key, "write", func(snapshot map[string]any) error {
		return kv.SetPath(snapshot, key, kv.CloneMap(value))
	})
}

// Delete implements store.Writer.
func (s *Store) Delete(ctx context.Context, scope store.Scope, key string) error {
	return s.mutate(ctx, scope, key, "delete", func(snapshot map[string]any) error {
		kv.DeletePath(snapshot, key)
		return nil
	})
}

func (s *Store) mutate(ctx context.Context, scope store.Scope, key, operation string, fn func(map[string]any) error) error {
	ref, err := s.ref(scope, key, operation)
	if err != nil {
		return err
	}
	resolver := state.Resolver[map[string]any]{Store: s.stateStore}
	_, _, err = resolver.Mutate(ctx, ref, s.meta(ctx, scope), func(snapshot *map[string]any) error {
		if snapshot == nil {
			return ferrors.NewInternal(ferrors.TextCodeStoreWriteFailed, "optionsadapter: snapshot is nil", storeMeta(scope, key, operation, s.domain))
		}
		if *snapshot == nil {
			*snapshot = map[string]any{}
		}
		return fn(*snapshot)
	})
	if err != nil {
		return ferrors.WrapExternal(err, ferrors.TextCodeStoreWriteFailed, "optionsadapter: "+operation+" failed", storeMeta(scope, key, operation, s.domain))
	}
	return nil
}

func (s *Store) ref(scope store.Scope, key, operation string) (state.Ref, error) {
	if s == nil || s.stateStore == nil {
		domain := ""
		if s != nil {
			domain = s.domain
		}
		return state.Ref{}, ferrors.WrapSentinel(ErrStoreRequired, "optionsadapter: state store is required", storeMeta(scope, key, operation, domain))
	}
	if err := scope.Validate(); err != nil {
		return state.Ref{}, err
	}
	if strings.TrimSpace(key) == "" {
		return state.Ref{}, ferrors.WrapSentinel(ferrors.ErrPathRequired, "optionsadapter: key is required", storeMeta(scope, key, operation, s.domain))
	}
	return state.Ref{Domain: s.domain, Scope: optionsScope(scope)}, nil
}

func optionsScope(scope store.Scope) opts.Scope {
	if scope.Kind == store.ScopeUser {
		return opts.NewScope(
			"user",
			priorityUser,
			opts.WithScopeLabel("User"),
			opts.WithScopeMetadata(map[string]any{MetadataUserID: scope.UserID}),
		)
	}
	return opts.NewScope("system", priorityGlobal, opts.WithScopeLabel("System"))
}

func defaultMeta(ctx context.Context, scope store.Scope) state.Meta {
	extra := map[string]string{"scope": scope.String()}
	if token := identity.SessionToken(ctx); token != "" {
		extra["session_token"] = token
	}
	return state.Meta{Extra: extra}
}

func storeMeta(scope store.Scope, key, operation, domain string) map[string]any {
	meta := map[string]any{
		ferrors.MetaAdapter:   "options",
		ferrors.MetaStore:     "state",
		ferrors.MetaOperation: operation,
		ferrors.MetaScope:     scope.String(),
		ferrors.MetaKey:       key,
	}
	if strings.TrimSpace(domain) != "" {
		meta[ferrors.MetaNamespace] = strings.TrimSpace(domain)
	}
	return meta
}

var _ store.ReadWriter = (*Store)(nil)
