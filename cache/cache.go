package cache

import (
	"context"

	"github.com/goliatone/go-viewas/directory"
)

// Entry stores the candidate data computed for one operator.
type Entry struct {
	Roles        []directory.Role
	Users        []directory.User
	Capabilities []string
	Locales      []string
}

// Clone returns an entry that shares no slices with e.
func (e Entry) Clone() Entry {
	out := Entry{
		Capabilities: append([]string(nil), e.Capabilities...),
		Locales:      append([]string(nil), e.Locales...),
	}
	if e.Roles != nil {
		out.Roles = make([]directory.Role, len(e.Roles))
		for i, role := range e.Roles {
			role.Capabilities = role.Capabilities.Clone()
			out.Roles[i] = role
		}
	}
	if e.Users != nil {
		out.Users = make([]directory.User, len(e.Users))
		for i, user := range e.Users {
			user.Capabilities = user.Capabilities.Clone()
			user.Roles = append([]string(nil), user.Roles...)
			out.Users[i] = user
		}
	}
	return out
}

// Cache stores candidate data by key, typically the operator ID.
type Cache interface {
	Get(ctx context.Context, key string) (Entry, bool)
	Set(ctx context.Context, key string, entry Entry)
	Delete(ctx context.Context, key string)
	Clear(ctx context.Context)
}

// NoopCache ignores all cache operations.
type NoopCache struct{}

// Get implements Cache.
func (NoopCache) Get(context.Context, string) (Entry, bool) {
	return Entry{}, false
}

// Set implements Cache.
func (NoopCache) Set(context.Context, string, Entry) {}

// Delete implements Cache.
func (NoopCache) Delete(context.Context, string) {}

// Clear implements Cache.
func (NoopCache) Clear(context.Context) {}

var _ Cache = NoopCache{}
