package session

import (
	"context"
	"sort"
	"strings"

	"golang.org/x/text/language"

	"github.com/goliatone/go-viewas/cache"
	"github.com/goliatone/go-viewas/compat"
	"github.com/goliatone/go-viewas/directory"
	"github.com/goliatone/go-viewas/ferrors"
	"github.com/goliatone/go-viewas/identity"
)

func (s *Store) load(ctx context.Context) (cache.Entry, error) {
	if s == nil {
		return cache.Entry{}, nil
	}
	if s.candidates != nil {
		return *s.candidates, nil
	}
	key := s.cacheKey()
	if entry, ok := s.cache.Get(ctx, key); ok {
		s.candidates = &entry
		return entry, nil
	}
	entry, err := s.compute(ctx)
	if err != nil {
		return cache.Entry{}, err
	}
	s.cache.Set(ctx, key, entry)
	s.candidates = &entry
	return entry, nil
}

// cacheKey includes the granted capabilities so a demoted operator never
// reads candidates computed for the old grant set.
func (s *Store) cacheKey() string {
	parts := []string{s.operator.ID}
	if s.operator.SuperAdmin {
		parts = append(parts, "*")
	}
	parts = append(parts, s.operator.Capabilities.Granted()...)
	return strings.Join(parts, "|")
}

func (s *Store) compute(ctx context.Context) (cache.Entry, error) {
	entry := cache.Entry{}
	if s.dir == nil {
		entry.Capabilities = s.grantable(s.operator.Capabilities.Names())
		return entry, nil
	}

	allRoles, err := s.dir.Roles(ctx)
	if err != nil {
		return cache.Entry{}, ferrors.WrapExternal(err, ferrors.TextCodeDirectoryLookupFailed, "list roles", nil)
	}
	entry.Roles = s.allowedRoles(allRoles)

	users, err := s.dir.Users(ctx)
	if err != nil {
		return cache.Entry{}, ferrors.WrapExternal(err, ferrors.TextCodeDirectoryLookupFailed, "list users", nil)
	}
	entry.Users = s.allowedUsers(users)

	names := s.operator.Capabilities.Names()
	for _, role := range allRoles {
		names = append(names, role.Capabilities.Names()...)
	}
	for _, src := range s.sources {
		extra, err := src.Capabilities(ctx)
		if err != nil {
			s.logger.Warn("capability source failed", "source", src.Name(), "error", err)
			continue
		}
		names = append(names, extra...)
	}
	entry.Capabilities = s.grantable(names)

	locales, err := s.dir.Locales(ctx)
	if err != nil {
		return cache.Entry{}, ferrors.WrapExternal(err, ferrors.TextCodeDirectoryLookupFailed, "list locales", nil)
	}
	entry.Locales = validLocales(locales)
	return entry, nil
}

// manager reports whether the operator may grant capabilities it does not
// hold itself.
func (s *Store) manager() bool {
	return s.operator.SuperAdmin || s.operator.Can(identity.CapEditUsers)
}

// allowedRoles drops administrative roles, those granting view_admin_as,
// unless the operator is a super admin. Operators without edit_users only
// see roles they fully hold.
func (s *Store) allowedRoles(roles []directory.Role) []directory.Role {
	out := make([]directory.Role, 0, len(roles))
	for _, role := range roles {
		if !s.operator.SuperAdmin {
			if role.Capabilities.Has(identity.CapViewAdminAs) {
				continue
			}
			if !s.manager() && !s.operator.Capabilities.Covers(role.Capabilities) {
				continue
			}
		}
		out = append(out, role)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out
}

func (s *Store) allowedUsers(users []directory.User) []directory.User {
	out := make([]directory.User, 0, len(users))
	for _, user := range users {
		if user.ID == s.operator.ID || user.SuperAdmin {
			continue
		}
		if !s.operator.SuperAdmin {
			if !s.operator.Capabilities.Covers(user.Capabilities) {
				continue
			}
			if user.Capabilities.Covers(s.operator.Capabilities) {
				continue
			}
		}
		out = append(out, user)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) grantable(names []string) []string {
	names = compat.Normalize(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		if name == identity.CapDoNotAllow {
			continue
		}
		if !s.manager() && !s.operator.Capabilities.Has(name) {
			continue
		}
		out = append(out, name)
	}
	return out
}

// ParseLocale validates a locale code and returns its BCP 47 tag.
func ParseLocale(code string) (language.Tag, bool) {
	code = strings.TrimSpace(code)
	if code == "" {
		return language.Und, false
	}
	tag, err := language.Parse(strings.ReplaceAll(code, "_", "-"))
	if err != nil {
		return language.Und, false
	}
	return tag, true
}

// MatchLocale finds the installed locale equal to code, ignoring case and
// the -/_ separator.
func MatchLocale(installed []string, code string) (string, bool) {
	want, ok := ParseLocale(code)
	if !ok {
		return "", false
	}
	for _, candidate := range installed {
		tag, ok := ParseLocale(candidate)
		if ok && tag == want {
			return candidate, true
		}
	}
	return "", false
}

func validLocales(codes []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(codes))
	for _, code := range codes {
		code = strings.TrimSpace(code)
		if _, ok := ParseLocale(code); !ok {
			continue
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}
