package urlbuilder

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/goliatone/go-viewas/ferrors"
)

// Builder resolves group/route pairs into URLs.
type Builder interface {
	Resolve(groupPath, route string, params map[string]any, query map[string]string) (string, error)
}

// Target names a route a toolbar link or redirect points at.
type Target struct {
	Group  string
	Route  string
	Params map[string]any
}

// IsZero reports whether no route is set.
func (t Target) IsZero() bool {
	return strings.TrimSpace(t.Route) == ""
}

// Resolve builds the URL for target with query.
func Resolve(b Builder, target Target, query map[string]string) (string, error) {
	if b == nil {
		return "", ferrors.ErrURLBuilderRequired
	}
	return b.Resolve(target.Group, target.Route, target.Params, query)
}

// WithQuery returns rawURL with set applied and remove dropped from its
// query string. Keys are encoded in sorted order.
func WithQuery(rawURL string, set map[string]string, remove ...string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", ferrors.WrapExternal(err, ferrors.TextCodeRedirectBuildFailed, "urlbuilder: invalid url", map[string]any{
			ferrors.MetaOperation: "with_query",
		})
	}
	values := parsed.Query()
	for _, key := range remove {
		values.Del(key)
	}
	for key, value := range set {
		values.Set(key, value)
	}
	parsed.RawQuery = values.Encode()
	return parsed.String(), nil
}

// Static resolves routes from a fixed table keyed by "group.route" (or just
// "route" when the group is empty). Params replace ":name" path segments.
type Static struct {
	Routes map[string]string
}

// Resolve implements Builder.
func (s Static) Resolve(groupPath, route string, params map[string]any, query map[string]string) (string, error) {
	key := strings.TrimSpace(route)
	if group := strings.TrimSpace(groupPath); group != "" {
		key = group + "." + key
	}
	path, ok := s.Routes[key]
	if !ok {
		return "", ferrors.NewBadInput(ferrors.TextCodeRedirectBuildFailed, "urlbuilder: unknown route", map[string]any{
			ferrors.MetaPath: key,
		})
	}
	if len(params) > 0 {
		names := make([]string, 0, len(params))
		for name := range params {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			path = strings.ReplaceAll(path, ":"+name, url.PathEscape(toString(params[name])))
		}
	}
	if len(query) == 0 {
		return path, nil
	}
	return WithQuery(path, query)
}

func toString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

var _ Builder = Static{}
