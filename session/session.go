package session

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/goliatone/go-viewas/cache"
	"github.com/goliatone/go-viewas/compat"
	"github.com/goliatone/go-viewas/directory"
	"github.com/goliatone/go-viewas/ferrors"
	"github.com/goliatone/go-viewas/identity"
	"github.com/goliatone/go-viewas/logger"
	"github.com/goliatone/go-viewas/view"
)

// Identity is the simulated identity presented downstream for the request.
type Identity struct {
	UserID       string
	Login        string
	LoggedIn     bool
	Roles        []string
	Capabilities identity.Capabilities
	Locale       string
	SuperAdmin   bool
}

// Can reports whether the simulated identity holds name.
func (i Identity) Can(name string) bool {
	if !i.LoggedIn || name == identity.CapDoNotAllow {
		return false
	}
	return i.SuperAdmin || i.Capabilities.Has(name)
}

// Store holds the request-scoped operator, candidate data and the
// simulated capability channel.
type Store struct {
	operator identity.Operator
	dir      directory.Directory
	sources  []compat.CapabilitySource
	cache    cache.Cache
	secret   []byte
	logger   logger.Logger

	candidates *cache.Entry

	view          view.View
	selected      identity.Capabilities
	selectedSet   bool
	target        *directory.User
	roles         []string
	rolesSet      bool
	loggedOut     bool
	locale        string
	freezeLocale  bool
	committed     bool
	simulated     Identity
	requiresReset bool
}

// Option customizes a Store.
type Option func(*Store)

// WithDirectory sets the candidate data source.
func WithDirectory(dir directory.Directory) Option {
	return func(s *Store) {
		if s == nil {
			return
		}
		s.dir = dir
	}
}

// WithCapabilitySources adds compatibility capability sources.
func WithCapabilitySources(sources ...compat.CapabilitySource) Option {
	return func(s *Store) {
		if s == nil {
			return
		}
		for _, src := range sources {
			if src != nil {
				s.sources = append(s.sources, src)
			}
		}
	}
}

// WithCache sets the candidate data cache.
func WithCache(c cache.Cache) Option {
	return func(s *Store) {
		if s == nil || c == nil {
			return
		}
		s.cache = c
	}
}

// WithSecret sets the anti-forgery secret.
func WithSecret(secret []byte) Option {
	return func(s *Store) {
		if s == nil {
			return
		}
		s.secret = append([]byte(nil), secret...)
	}
}

// WithFreezeLocale keeps the operator's locale when switching users.
func WithFreezeLocale(freeze bool) Option {
	return func(s *Store) {
		if s == nil {
			return
		}
		s.freezeLocale = freeze
	}
}

// WithLogger sets the logger.
func WithLogger(lgr logger.Logger) Option {
	return func(s *Store) {
		if s == nil || lgr == nil {
			return
		}
		s.logger = lgr
	}
}

// New builds the store for one request.
func New(op identity.Operator, opts ...Option) *Store {
	op.Capabilities = op.Capabilities.Clone()
	op.Roles = identity.NormalizeRoles(op.Roles)
	s := &Store{
		operator: op,
		cache:    cache.NoopCache{},
		logger:   logger.Discard(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Operator returns the real operator.
func (s *Store) Operator() identity.Operator {
	if s == nil {
		return identity.Operator{}
	}
	return s.operator
}

// SessionToken returns the operator's session token.
func (s *Store) SessionToken() string {
	if s == nil {
		return ""
	}
	return s.operator.SessionToken
}

// Roles returns the roles the operator may view as.
func (s *Store) Roles(ctx context.Context) ([]directory.Role, error) {
	entry, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return entry.Roles, nil
}

// Role returns one allowed role.
func (s *Store) Role(ctx context.Context, slug string) (directory.Role, bool, error) {
	roles, err := s.Roles(ctx)
	if err != nil {
		return directory.Role{}, false, err
	}
	slug = strings.TrimSpace(slug)
	for _, role := range roles {
		if role.Slug == slug {
			return role, true, nil
		}
	}
	return directory.Role{}, false, nil
}

// Users returns the users the operator may view as.
func (s *Store) Users(ctx context.Context) ([]directory.User, error) {
	entry, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return entry.Users, nil
}

// User returns one allowed user.
func (s *Store) User(ctx context.Context, id string) (directory.User, bool, error) {
	users, err := s.Users(ctx)
	if err != nil {
		return directory.User{}, false, err
	}
	id = strings.TrimSpace(id)
	for _, user := range users {
		if user.ID == id {
			return user, true, nil
		}
	}
	return directory.User{}, false, nil
}

// Capabilities returns the capability names the operator may grant.
func (s *Store) Capabilities(ctx context.Context) ([]string, error) {
	entry, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return entry.Capabilities, nil
}

// CanGrant reports whether name is in the grantable capability list.
func (s *Store) CanGrant(ctx context.Context, name string) (bool, error) {
	names, err := s.Capabilities(ctx)
	if err != nil {
		return false, err
	}
	i := sort.SearchStrings(names, name)
	return i < len(names) && names[i] == name, nil
}

// Locales returns the installed locale codes.
func (s *Store) Locales(ctx context.Context) ([]string, error) {
	entry, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return entry.Locales, nil
}

// Refresh drops the loaded candidate data for this operator.
func (s *Store) Refresh(ctx context.Context) {
	if s == nil {
		return
	}
	s.candidates = nil
	s.cache.Delete(ctx, s.cacheKey())
}

// SetView records the view being applied.
func (s *Store) SetView(v view.View) {
	if s == nil {
		return
	}
	s.view = v.Clone()
}

// View returns the view being applied.
func (s *Store) View() view.View {
	if s == nil {
		return nil
	}
	return s.view.Clone()
}

// SetSelectedCaps replaces the simulated capability set.
func (s *Store) SetSelectedCaps(caps identity.Capabilities) {
	if s == nil {
		return
	}
	s.selected = caps.Clone()
	s.selectedSet = true
}

// SelectedCaps returns the simulated capability set and whether one has been
// selected.
func (s *Store) SelectedCaps() (identity.Capabilities, bool) {
	if s == nil || !s.selectedSet {
		return nil, false
	}
	return s.selected.Clone(), true
}

// SwitchUser makes the simulated identity the target user.
func (s *Store) SwitchUser(user directory.User) {
	if s == nil {
		return
	}
	target := user
	target.Capabilities = user.Capabilities.Clone()
	target.Roles = identity.NormalizeRoles(user.Roles)
	s.target = &target
}

// SetRoles replaces the simulated roles.
func (s *Store) SetRoles(roles ...string) {
	if s == nil {
		return
	}
	s.roles = identity.NormalizeRoles(roles)
	s.rolesSet = true
}

// SetLoggedOut simulates an anonymous visitor.
func (s *Store) SetLoggedOut() {
	if s == nil {
		return
	}
	s.loggedOut = true
}

// SetLocale overrides the request locale.
func (s *Store) SetLocale(locale string) {
	if s == nil {
		return
	}
	s.locale = strings.TrimSpace(locale)
}

// Commit copies the merged selection onto the simulated identity.
func (s *Store) Commit() Identity {
	if s == nil {
		return Identity{}
	}
	out := s.base()
	if s.target != nil {
		out.UserID = s.target.ID
		out.Login = s.target.Login
		out.Roles = s.target.Roles
		out.Capabilities = s.target.Capabilities.Clone()
		if !s.freezeLocale {
			out.Locale = s.target.Locale
		}
		out.SuperAdmin = false
	}
	if s.rolesSet {
		out.Roles = append([]string(nil), s.roles...)
	}
	if s.selectedSet {
		out.Capabilities = s.selected.Clone()
		out.SuperAdmin = false
	}
	if s.loggedOut {
		out.UserID = ""
		out.Login = ""
		out.LoggedIn = false
		out.Roles = nil
		out.Capabilities = identity.Capabilities{}
		out.SuperAdmin = false
	}
	if s.locale != "" {
		out.Locale = s.locale
	}
	s.simulated = out
	s.committed = true
	return out
}

// Committed reports whether Commit ran.
func (s *Store) Committed() bool {
	return s != nil && s.committed
}

// ResetSelection drops every selection channel and the committed identity
// so a new view can be applied within the same request.
func (s *Store) ResetSelection() {
	if s == nil {
		return
	}
	s.view = nil
	s.selected = nil
	s.selectedSet = false
	s.target = nil
	s.roles = nil
	s.rolesSet = false
	s.loggedOut = false
	s.locale = ""
	s.committed = false
	s.simulated = Identity{}
}

// Identity returns the simulated identity, or the operator's own identity
// before Commit.
func (s *Store) Identity() Identity {
	if s == nil {
		return Identity{}
	}
	if s.committed {
		out := s.simulated
		out.Capabilities = out.Capabilities.Clone()
		out.Roles = append([]string(nil), out.Roles...)
		return out
	}
	return s.base()
}

// Switched reports whether the simulated identity is another user or a
// visitor.
func (s *Store) Switched() bool {
	return s != nil && (s.target != nil || s.loggedOut)
}

// MarkRequiresReset flags that every stored view must be cleared.
func (s *Store) MarkRequiresReset() {
	if s == nil {
		return
	}
	s.requiresReset = true
}

// RequiresReset reports whether a full reset is pending.
func (s *Store) RequiresReset() bool {
	return s != nil && s.requiresReset
}

// Nonce returns the anti-forgery token for action.
func (s *Store) Nonce(action string) string {
	if s == nil {
		return ""
	}
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(s.operator.ID))
	mac.Write([]byte{0})
	mac.Write([]byte(s.operator.SessionToken))
	mac.Write([]byte{0})
	mac.Write([]byte(action))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyNonce checks a token issued by Nonce.
func (s *Store) VerifyNonce(action, token string) error {
	if s == nil || strings.TrimSpace(token) == "" || len(s.secret) == 0 {
		return ferrors.ErrNonceInvalid
	}
	expected := s.Nonce(action)
	if !hmac.Equal([]byte(expected), []byte(strings.TrimSpace(token))) {
		return ferrors.WrapSentinel(ferrors.ErrNonceInvalid, "", map[string]any{
			ferrors.MetaAction: action,
		})
	}
	return nil
}

func (s *Store) base() Identity {
	return Identity{
		UserID:       s.operator.ID,
		Login:        s.operator.Login,
		LoggedIn:     true,
		Roles:        append([]string(nil), s.operator.Roles...),
		Capabilities: s.operator.Capabilities.Clone(),
		SuperAdmin:   s.operator.SuperAdmin,
	}
}
