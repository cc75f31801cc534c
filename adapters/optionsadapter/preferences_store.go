package optionsadapter

import (
	"context"
	"strings"

	"github.com/goliatone/go-admin/admin"
	opts "github.com/goliatone/go-options"
	"github.com/goliatone/go-options/pkg/state"

	"github.com/goliatone/go-viewas/ferrors"
	"github.com/goliatone/go-viewas/kv"
	"github.com/goliatone/go-viewas/store"
)

// PreferencesOption customizes Preferences.
type PreferencesOption func(*Preferences)

// Preferences keeps view state documents in go-admin preferences. Each leaf
// of a document becomes one preference named <prefix>.<path>, so operators'
// view records and settings sit next to their other admin preferences.
// Path segments must not contain dots.
type Preferences struct {
	prefs  admin.PreferencesStore
	prefix string
}

// NewPreferences wraps a go-admin preferences store. The options domain is
// used as the preference prefix unless WithPreferencePrefix overrides it.
func NewPreferences(prefs admin.PreferencesStore, options ...PreferencesOption) *Preferences {
	p := &Preferences{prefs: prefs}
	for _, opt := range options {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// NewPreferencesStore returns a view state store persisted in go-admin
// preferences. Global options live at the system level, user metadata at
// the user level.
func NewPreferencesStore(prefs admin.PreferencesStore, options ...PreferencesOption) *Store {
	return NewStore(NewPreferences(prefs, options...))
}

// WithPreferencePrefix sets the preference name prefix.
func WithPreferencePrefix(prefix string) PreferencesOption {
	return func(p *Preferences) {
		if p == nil {
			return
		}
		p.prefix = strings.Trim(strings.TrimSpace(prefix), ".")
	}
}

// Load implements state.Store.
func (p *Preferences) Load(ctx context.Context, ref state.Ref) (map[string]any, state.Meta, bool, error) {
	current, err := p.current(ctx, ref)
	if err != nil {
		return nil, state.Meta{}, false, err
	}
	if len(current) == 0 {
		return nil, state.Meta{}, false, nil
	}
	doc := map[string]any{}
	for path, value := range current {
		if err := kv.SetPath(doc, path, value); err != nil {
			return nil, state.Meta{}, false, ferrors.WrapExternal(err, ferrors.TextCodeStoreDecodeFailed, "optionsadapter: rebuild document from preferences", map[string]any{
				ferrors.MetaAdapter: "preferences",
				ferrors.MetaPath:    path,
			})
		}
	}
	return doc, state.Meta{}, true, nil
}

// Save implements state.Store. Leaves missing from snapshot are deleted.
func (p *Preferences) Save(ctx context.Context, ref state.Ref, snapshot map[string]any, _ state.Meta) (state.Meta, error) {
	level, scope, err := preferenceLevel(ref.Scope)
	if err != nil {
		return state.Meta{}, err
	}
	current, err := p.current(ctx, ref)
	if err != nil {
		return state.Meta{}, err
	}

	leaves := map[string]any{}
	kv.Flatten("", snapshot, leaves)
	prefix := p.namePrefix(ref.Domain)

	upserts := map[string]any{}
	for path, value := range leaves {
		if old, ok := current[path]; ok && kv.Equal(old, value) {
			continue
		}
		upserts[prefix+path] = value
	}
	var stale []string
	for path := range current {
		if _, ok := leaves[path]; !ok {
			stale = append(stale, prefix+path)
		}
	}

	if len(upserts) > 0 {
		if _, err := p.prefs.Upsert(ctx, admin.PreferencesUpsertInput{Scope: scope, Level: level, Values: upserts}); err != nil {
			return state.Meta{}, err
		}
	}
	if len(stale) > 0 {
		if err := p.prefs.Delete(ctx, admin.PreferencesDeleteInput{Scope: scope, Level: level, Keys: stale}); err != nil {
			return state.Meta{}, err
		}
	}
	return state.Meta{}, nil
}

// current returns the stored leaves of ref keyed by path without prefix.
func (p *Preferences) current(ctx context.Context, ref state.Ref) (map[string]any, error) {
	if p == nil || p.prefs == nil {
		return nil, ferrors.ErrPreferencesStoreRequired
	}
	level, scope, err := preferenceLevel(ref.Scope)
	if err != nil {
		return nil, err
	}
	snapshot, err := p.prefs.Resolve(ctx, admin.PreferencesResolveInput{
		Scope:  scope,
		Levels: []admin.PreferenceLevel{level},
	})
	if err != nil {
		return nil, err
	}
	prefix := p.namePrefix(ref.Domain)
	out := map[string]any{}
	for name, value := range snapshot.Effective {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		out[strings.TrimPrefix(name, prefix)] = value
	}
	return out, nil
}

func (p *Preferences) namePrefix(domain string) string {
	name := p.prefix
	if name == "" {
		name = strings.Trim(strings.TrimSpace(domain), ".")
	}
	if name == "" {
		name = store.Key
	}
	return name + "."
}

func preferenceLevel(scope opts.Scope) (admin.PreferenceLevel, admin.PreferenceScope, error) {
	switch scope.Name {
	case "system":
		return admin.PreferenceLevelSystem, admin.PreferenceScope{}, nil
	case "user":
		id, _ := scope.Metadata[MetadataUserID].(string)
		if id = strings.TrimSpace(id); id == "" {
			return "", admin.PreferenceScope{}, ferrors.WrapSentinel(ferrors.ErrUserRequired, "optionsadapter: user scope without user id", map[string]any{
				ferrors.MetaAdapter: "preferences",
				ferrors.MetaScope:   scope.Name,
			})
		}
		return admin.PreferenceLevelUser, admin.PreferenceScope{UserID: id}, nil
	default:
		return "", admin.PreferenceScope{}, ferrors.WrapSentinel(ferrors.ErrScopeInvalid, "optionsadapter: unsupported preference scope", map[string]any{
			ferrors.MetaAdapter: "preferences",
			ferrors.MetaScope:   scope.Name,
		})
	}
}

var _ state.Store[map[string]any] = (*Preferences)(nil)
