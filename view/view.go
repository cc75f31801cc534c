package view

import (
	"sort"
	"strings"

	"github.com/goliatone/go-viewas/kv"
)

// View maps view type IDs to their type-specific payloads.
type View map[string]any

// FromAny coerces a stored or submitted payload into a View.
func FromAny(raw any) View {
	m, ok := kv.AsMap(raw)
	if !ok || len(m) == 0 {
		return nil
	}
	out := make(View, len(m))
	for key, value := range m {
		key = NormalizeKey(key)
		if key == "" {
			continue
		}
		out[key] = kv.Clone(value)
	}
	return out
}

// NormalizeKey trims and lowercases a view type ID.
func NormalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// Empty reports whether no view type is selected.
func (v View) Empty() bool {
	return len(v) == 0
}

// Get returns the payload of a view type.
func (v View) Get(key string) (any, bool) {
	return kv.Get(map[string]any(v), key)
}

// Clone deep copies the view.
func (v View) Clone() View {
	if v == nil {
		return nil
	}
	return View(kv.CloneMap(map[string]any(v)))
}

// Keys returns the selected view type IDs, sorted.
func (v View) Keys() []string {
	keys := make([]string, 0, len(v))
	for key := range v {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Equal compares two views structurally, ignoring map order.
func (v View) Equal(other View) bool {
	if len(v) == 0 && len(other) == 0 {
		return true
	}
	return kv.Equal(map[string]any(v), map[string]any(other))
}

// Intersect keeps only the listed keys.
func (v View) Intersect(keys []string) View {
	if len(v) == 0 {
		return nil
	}
	keep := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		keep[key] = struct{}{}
	}
	out := View{}
	for key, value := range v {
		if _, ok := keep[key]; ok {
			out[key] = value
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Map renders the view for storage.
func (v View) Map() map[string]any {
	return kv.CloneMap(map[string]any(v))
}
