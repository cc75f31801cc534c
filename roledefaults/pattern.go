package roledefaults

import "strings"

// Wildcard is the single wildcard token a pattern may carry.
const Wildcard = "%%"

// DefaultWhitelist lists the screen preference keys a role may default.
var DefaultWhitelist = []string{
	"admin_color",
	"rich_editing",
	"comment_shortcuts",
	"show_admin_bar_front",
	"show_welcome_panel",
	"metaboxhidden_%%",
	"closedpostboxes_%%",
	"meta-box-order_%%",
	"screen_layout_%%",
	"edit_%%_per_page",
	"manage%%columnshidden",
}

// ForbiddenKeys can never be stored as role defaults, whatever the
// whitelist says.
var ForbiddenKeys = []string{
	"capabilities",
	"user_level",
	"session_tokens",
	"user_pass",
	"user_email",
	"user_login",
	"user_url",
	"nickname",
	"first_name",
	"last_name",
	"display_name",
	"description",
	"view_admin_as",
	"%%capabilities",
	"%%user_level",
}

// Match reports whether key matches pattern. A pattern without the
// wildcard matches exactly; otherwise the parts before and after the
// wildcard must be a prefix and suffix of key. Only the first wildcard is
// honored.
func Match(pattern, key string) bool {
	if pattern == "" || key == "" {
		return false
	}
	idx := strings.Index(pattern, Wildcard)
	if idx < 0 {
		return pattern == key
	}
	prefix := pattern[:idx]
	suffix := pattern[idx+len(Wildcard):]
	if len(key) < len(prefix)+len(suffix) {
		return false
	}
	return strings.HasPrefix(key, prefix) && strings.HasSuffix(key, suffix)
}

// MatchAny reports whether key matches one of patterns.
func MatchAny(patterns []string, key string) bool {
	for _, pattern := range patterns {
		if Match(pattern, key) {
			return true
		}
	}
	return false
}

// Policy decides which metadata keys may be stored as role defaults.
type Policy struct {
	Whitelist []string
	Forbidden []string
}

// DefaultPolicy returns the built-in whitelist and forbidden lists.
func DefaultPolicy() Policy {
	return Policy{
		Whitelist: append([]string(nil), DefaultWhitelist...),
		Forbidden: append([]string(nil), ForbiddenKeys...),
	}
}

// Extend returns a policy with additional whitelist patterns. The
// forbidden list cannot be narrowed.
func (p Policy) Extend(patterns ...string) Policy {
	out := Policy{
		Whitelist: append([]string(nil), p.Whitelist...),
		Forbidden: append([]string(nil), p.Forbidden...),
	}
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern != "" {
			out.Whitelist = append(out.Whitelist, pattern)
		}
	}
	return out
}

// Allowed reports whether key is whitelisted and not forbidden.
func (p Policy) Allowed(key string) bool {
	key = strings.TrimSpace(key)
	if key == "" {
		return false
	}
	if MatchAny(ForbiddenKeys, key) || MatchAny(p.Forbidden, key) {
		return false
	}
	return MatchAny(p.Whitelist, key)
}
