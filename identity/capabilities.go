package identity

import (
	"sort"
	"strconv"
	"strings"

	"github.com/goliatone/go-viewas/kv"
)

// Well known capability names.
const (
	// CapViewAdminAs grants base access to view switching.
	CapViewAdminAs = "view_admin_as"
	// CapEditUsers is required for role, caps and user views.
	CapEditUsers = "edit_users"
	// CapDoNotAllow is the impossible capability no identity may hold.
	CapDoNotAllow = "do_not_allow"
	// CapManageOptions is required to change site-wide settings.
	CapManageOptions = "manage_options"
)

// Capabilities maps capability names to grants.
type Capabilities map[string]bool

// CapabilitiesFrom coerces a loosely typed capability map.
func CapabilitiesFrom(raw any) Capabilities {
	m, ok := kv.AsMap(raw)
	if !ok {
		if list, ok := raw.([]string); ok {
			out := make(Capabilities, len(list))
			for _, name := range list {
				if name = strings.TrimSpace(name); name != "" {
					out[name] = true
				}
			}
			return out
		}
		return Capabilities{}
	}
	out := make(Capabilities, len(m))
	for name, value := range m {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		out[name] = kv.Bool(value)
	}
	return out
}

// Has reports whether name is granted.
func (c Capabilities) Has(name string) bool {
	if c == nil {
		return false
	}
	return c[name]
}

// Clone copies the map.
func (c Capabilities) Clone() Capabilities {
	out := make(Capabilities, len(c))
	for name, granted := range c {
		out[name] = granted
	}
	return out
}

// Merge returns a copy of c with other folded on top key by key.
func (c Capabilities) Merge(other Capabilities) Capabilities {
	out := c.Clone()
	for name, granted := range other {
		out[name] = granted
	}
	return out
}

// Granted returns the sorted names of truthy capabilities.
func (c Capabilities) Granted() []string {
	names := make([]string, 0, len(c))
	for name, granted := range c {
		if granted {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Names returns every key, granted or not, sorted.
func (c Capabilities) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Covers reports whether every capability granted in other is granted in c.
func (c Capabilities) Covers(other Capabilities) bool {
	for name, granted := range other {
		if granted && !c.Has(name) {
			return false
		}
	}
	return true
}

// Level returns the highest level_N capability granted, or 0.
func (c Capabilities) Level() int {
	level := 0
	for name, granted := range c {
		if !granted || !strings.HasPrefix(name, "level_") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(name, "level_"))
		if err != nil {
			continue
		}
		if n > level {
			level = n
		}
	}
	return level
}

// AsMap renders the set as a 0/1 map for storage and templates.
func (c Capabilities) AsMap() map[string]any {
	out := make(map[string]any, len(c))
	for name, granted := range c {
		if granted {
			out[name] = 1
		} else {
			out[name] = 0
		}
	}
	return out
}
