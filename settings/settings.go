package settings

import (
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-viewas/ferrors"
	"github.com/goliatone/go-viewas/kv"
)

// Scope selects the global or the per-user settings dictionary.
type Scope string

const (
	ScopeGlobal Scope = "global"
	ScopeUser   Scope = "user"
)

// NamespaceCore is the namespace owned by the engine itself.
const NamespaceCore = "core"

// Core setting keys.
const (
	KeyViewMode          = "view_mode"
	KeyAdminMenuLocation = "admin_menu_location"
	KeyFreezeLocale      = "freeze_locale"
	KeyHideFront         = "hide_front"
	KeyHideCustomizer    = "hide_customizer"
)

// View modes.
const (
	ViewModeBrowse = "browse"
	ViewModeSingle = "single"
)

// ViewTypeKey returns the global toggle key of a view type.
func ViewTypeKey(id string) string {
	return "view_type_" + id
}

// Definition declares the defaults and allowed values of one scope. A key
// listed in Allowed with an empty list accepts any value.
type Definition struct {
	Defaults map[string]any
	Allowed  map[string][]any
}

// Namespace groups the global and per-user definitions of one module.
type Namespace struct {
	ID     string
	Global Definition
	User   Definition
}

// Definition returns the definition for scope.
func (n Namespace) Definition(scope Scope) Definition {
	if scope == ScopeGlobal {
		return n.Global
	}
	return n.User
}

// Validate filters settings against the definition. With merge, missing
// keys are filled from defaults and rejected values fall back to their
// default; unknown keys are dropped. Without merge, only known keys whose
// values pass the allowed list survive and nothing is invented.
func (d Definition) Validate(settings map[string]any, merge bool) map[string]any {
	out := map[string]any{}
	if merge {
		for key, def := range d.Defaults {
			value, ok := kv.Get(settings, key)
			if !ok || !d.accepts(key, value) {
				value = def
			}
			kv.Set(out, key, kv.Clone(value), true)
		}
		return out
	}
	for key, value := range settings {
		if !d.known(key) || !d.accepts(key, value) {
			continue
		}
		kv.Set(out, key, kv.Clone(value), true)
	}
	return out
}

// Keys returns every known key, sorted.
func (d Definition) Keys() []string {
	seen := map[string]struct{}{}
	for key := range d.Defaults {
		seen[key] = struct{}{}
	}
	for key := range d.Allowed {
		seen[key] = struct{}{}
	}
	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func (d Definition) known(key string) bool {
	if _, ok := d.Defaults[key]; ok {
		return true
	}
	_, ok := d.Allowed[key]
	return ok
}

func (d Definition) accepts(key string, value any) bool {
	allowed := d.Allowed[key]
	if len(allowed) == 0 {
		return true
	}
	for _, candidate := range allowed {
		if kv.Equal(candidate, value) {
			return true
		}
	}
	return false
}

// CoreNamespace returns the engine namespace. viewTypes lists the view type
// IDs that get a global on/off toggle.
func CoreNamespace(viewTypes ...string) Namespace {
	global := Definition{
		Defaults: map[string]any{},
		Allowed:  map[string][]any{},
	}
	for _, id := range viewTypes {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		global.Defaults[ViewTypeKey(id)] = true
		global.Allowed[ViewTypeKey(id)] = []any{true, false}
	}
	yesNo := []any{"yes", "no"}
	return Namespace{
		ID:     NamespaceCore,
		Global: global,
		User: Definition{
			Defaults: map[string]any{
				KeyViewMode:          ViewModeBrowse,
				KeyAdminMenuLocation: "top-secondary",
				KeyFreezeLocale:      "no",
				KeyHideFront:         "no",
				KeyHideCustomizer:    "no",
			},
			Allowed: map[string][]any{
				KeyViewMode:          {ViewModeBrowse, ViewModeSingle},
				KeyAdminMenuLocation: {"top-secondary", "my-account"},
				KeyFreezeLocale:      yesNo,
				KeyHideFront:         yesNo,
				KeyHideCustomizer:    yesNo,
			},
		},
	}
}

// Registry holds the declared namespaces.
type Registry struct {
	mu         sync.RWMutex
	namespaces map[string]Namespace
}

// NewRegistry builds a registry seeded with namespaces.
func NewRegistry(namespaces ...Namespace) (*Registry, error) {
	r := &Registry{namespaces: map[string]Namespace{}}
	for _, ns := range namespaces {
		if err := r.Register(ns); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a namespace. IDs never collide.
func (r *Registry) Register(ns Namespace) error {
	if r == nil {
		return ferrors.ErrNamespaceRequired
	}
	ns.ID = strings.TrimSpace(ns.ID)
	if ns.ID == "" {
		return ferrors.ErrNamespaceRequired
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.namespaces == nil {
		r.namespaces = map[string]Namespace{}
	}
	if _, exists := r.namespaces[ns.ID]; exists {
		return ferrors.WrapSentinel(ferrors.ErrNamespaceConflict, "", map[string]any{
			ferrors.MetaNamespace: ns.ID,
		})
	}
	r.namespaces[ns.ID] = ns
	return nil
}

// Extend adds view type toggles to the core global definition.
func (r *Registry) Extend(viewTypes ...string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	core, ok := r.namespaces[NamespaceCore]
	if !ok {
		return
	}
	extra := CoreNamespace(viewTypes...)
	if core.Global.Defaults == nil {
		core.Global.Defaults = map[string]any{}
	}
	if core.Global.Allowed == nil {
		core.Global.Allowed = map[string][]any{}
	}
	for key, value := range extra.Global.Defaults {
		if _, exists := core.Global.Defaults[key]; !exists {
			core.Global.Defaults[key] = value
			core.Global.Allowed[key] = extra.Global.Allowed[key]
		}
	}
	r.namespaces[NamespaceCore] = core
}

// Namespace returns a registered namespace.
func (r *Registry) Namespace(id string) (Namespace, bool) {
	if r == nil {
		return Namespace{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	ns, ok := r.namespaces[strings.TrimSpace(id)]
	return ns, ok
}

// IDs returns the registered namespace IDs, sorted.
func (r *Registry) IDs() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.namespaces))
	for id := range r.namespaces {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Validate runs Definition.Validate for a registered namespace.
func (r *Registry) Validate(namespace string, scope Scope, settings map[string]any, merge bool) (map[string]any, error) {
	ns, ok := r.Namespace(namespace)
	if !ok {
		return nil, ferrors.WrapSentinel(ferrors.ErrNamespaceUnknown, "", map[string]any{
			ferrors.MetaNamespace: namespace,
		})
	}
	return ns.Definition(scope).Validate(settings, merge), nil
}
