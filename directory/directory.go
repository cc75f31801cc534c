package directory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-viewas/identity"
)

// Role is a named capability bundle known to the host.
type Role struct {
	Slug         string                `json:"slug" yaml:"slug"`
	Name         string                `json:"name" yaml:"name"`
	Capabilities identity.Capabilities `json:"capabilities" yaml:"capabilities"`
}

// User is a host account that can be viewed as.
type User struct {
	ID           string                `json:"id" yaml:"id"`
	Login        string                `json:"login" yaml:"login"`
	DisplayName  string                `json:"display_name" yaml:"display_name"`
	Roles        []string              `json:"roles" yaml:"roles"`
	Capabilities identity.Capabilities `json:"capabilities" yaml:"capabilities"`
	Locale       string                `json:"locale" yaml:"locale"`
	SuperAdmin   bool                  `json:"super_admin" yaml:"super_admin"`
}

// RoleSource lists roles.
type RoleSource interface {
	Roles(ctx context.Context) ([]Role, error)
}

// UserSource lists and looks up users.
type UserSource interface {
	Users(ctx context.Context) ([]User, error)
	User(ctx context.Context, id string) (User, bool, error)
}

// LocaleSource lists installed locale codes.
type LocaleSource interface {
	Locales(ctx context.Context) ([]string, error)
}

// Directory bundles every candidate data source.
type Directory interface {
	RoleSource
	UserSource
	LocaleSource
}

// ResolveCapabilities folds a user's role capabilities under their own grants.
func ResolveCapabilities(user User, roles []Role) identity.Capabilities {
	caps := identity.Capabilities{}
	index := make(map[string]Role, len(roles))
	for _, role := range roles {
		index[role.Slug] = role
	}
	for _, slug := range user.Roles {
		if role, ok := index[slug]; ok {
			caps = caps.Merge(role.Capabilities)
		}
	}
	return caps.Merge(user.Capabilities)
}

// MemoryDirectory holds roles, users and locales in memory.
type MemoryDirectory struct {
	mu      sync.RWMutex
	roles   map[string]Role
	users   map[string]User
	locales []string
}

// NewMemoryDirectory constructs an empty directory.
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		roles: map[string]Role{},
		users: map[string]User{},
	}
}

// AddRole registers or replaces a role.
func (d *MemoryDirectory) AddRole(role Role) {
	if d == nil {
		return
	}
	role.Slug = strings.TrimSpace(role.Slug)
	if role.Slug == "" {
		return
	}
	if role.Name == "" {
		role.Name = role.Slug
	}
	role.Capabilities = role.Capabilities.Clone()
	d.mu.Lock()
	defer d.mu.Unlock()
	d.roles[role.Slug] = role
}

// RemoveRole drops a role.
func (d *MemoryDirectory) RemoveRole(slug string) {
	if d == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.roles, slug)
}

// AddUser registers or replaces a user.
func (d *MemoryDirectory) AddUser(user User) {
	if d == nil {
		return
	}
	user.ID = strings.TrimSpace(user.ID)
	if user.ID == "" {
		return
	}
	user.Capabilities = user.Capabilities.Clone()
	user.Roles = append([]string(nil), user.Roles...)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[user.ID] = user
}

// RemoveUser drops a user.
func (d *MemoryDirectory) RemoveUser(id string) {
	if d == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.users, id)
}

// SetLocales replaces the installed locales.
func (d *MemoryDirectory) SetLocales(locales ...string) {
	if d == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.locales = append([]string(nil), locales...)
}

// Roles implements RoleSource.
func (d *MemoryDirectory) Roles(_ context.Context) ([]Role, error) {
	if d == nil {
		return nil, nil
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Role, 0, len(d.roles))
	for _, role := range d.roles {
		role.Capabilities = role.Capabilities.Clone()
		out = append(out, role)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out, nil
}

// Users implements UserSource.
func (d *MemoryDirectory) Users(_ context.Context) ([]User, error) {
	if d == nil {
		return nil, nil
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]User, 0, len(d.users))
	for _, user := range d.users {
		out = append(out, d.resolveLocked(user))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// User implements UserSource. Capabilities include the user's role grants.
func (d *MemoryDirectory) User(_ context.Context, id string) (User, bool, error) {
	if d == nil {
		return User{}, false, nil
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	user, ok := d.users[strings.TrimSpace(id)]
	if !ok {
		return User{}, false, nil
	}
	return d.resolveLocked(user), true, nil
}

// Locales implements LocaleSource.
func (d *MemoryDirectory) Locales(_ context.Context) ([]string, error) {
	if d == nil {
		return nil, nil
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]string(nil), d.locales...), nil
}

func (d *MemoryDirectory) resolveLocked(user User) User {
	roles := make([]Role, 0, len(user.Roles))
	for _, slug := range user.Roles {
		if role, ok := d.roles[slug]; ok {
			roles = append(roles, role)
		}
	}
	user.Capabilities = ResolveCapabilities(user, roles)
	user.Roles = append([]string(nil), user.Roles...)
	return user
}

var _ Directory = (*MemoryDirectory)(nil)
