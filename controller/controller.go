package controller

import (
	"context"
	"sort"
	"time"

	"github.com/goliatone/go-viewas/activity"
	"github.com/goliatone/go-viewas/identity"
	"github.com/goliatone/go-viewas/logger"
	"github.com/goliatone/go-viewas/session"
	"github.com/goliatone/go-viewas/settings"
	"github.com/goliatone/go-viewas/store"
	"github.com/goliatone/go-viewas/urlbuilder"
	"github.com/goliatone/go-viewas/view"
	"github.com/goliatone/go-viewas/viewtype"
)

// Query parameters of apply-and-redirect links.
const (
	ParamView  = "view_admin_as"
	ParamNonce = "view_admin_as_nonce"
)

// NonceAction is the anti-forgery action of view change requests.
const NonceAction = "view_admin_as"

// Armer enables the interception layer.
type Armer interface {
	Arm() bool
}

// ExpirationFunc returns the lifetime of a persisted view record. Zero or
// negative durations fall back to view.DefaultExpiration.
type ExpirationFunc func(ctx context.Context, op identity.Operator) time.Duration

// ExpireAfter returns an ExpirationFunc with a fixed lifetime.
func ExpireAfter(ttl time.Duration) ExpirationFunc {
	return func(context.Context, identity.Operator) time.Duration {
		return ttl
	}
}

// Updater replaces the default validate-merge-collect step of one view type.
// It returns the payload to store, or false to drop the key.
type Updater interface {
	UpdateView(ctx context.Context, c *Controller, t viewtype.Type, current, raw any) (any, bool)
}

// UpdaterFunc adapts a function to Updater.
type UpdaterFunc func(ctx context.Context, c *Controller, t viewtype.Type, current, raw any) (any, bool)

// UpdateView implements Updater.
func (fn UpdaterFunc) UpdateView(ctx context.Context, c *Controller, t viewtype.Type, current, raw any) (any, bool) {
	if fn == nil {
		return nil, false
	}
	return fn(ctx, c, t, current, raw)
}

// Handler processes a change-set key that is not a view type.
type Handler interface {
	HandleUpdate(ctx context.Context, c *Controller, value any) (view.Result, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, c *Controller, value any) (view.Result, error)

// HandleUpdate implements Handler.
func (fn HandlerFunc) HandleUpdate(ctx context.Context, c *Controller, value any) (view.Result, error) {
	if fn == nil {
		return view.Fail(), nil
	}
	return fn(ctx, c, value)
}

// Controller drives one request's view through resolve, apply, update and
// reset.
type Controller struct {
	session    *session.Store
	registry   *viewtype.Registry
	settings   *settings.Store
	storage    store.ReadWriter
	urls       urlbuilder.Builder
	target     urlbuilder.Target
	now        func() time.Time
	expiration ExpirationFunc
	updaters   map[string]Updater
	handlers   map[string]Handler
	applyHooks []view.ApplyHook
	hooks      []activity.Hook
	armer      Armer
	logger     logger.Logger

	mode       view.Mode
	modeLoaded bool
	state      view.State
	source     view.Source
	current    view.View
	applied    []string
}

// Option customizes a Controller.
type Option func(*Controller)

// WithRegistry sets the view type registry.
func WithRegistry(registry *viewtype.Registry) Option {
	return func(c *Controller) {
		if c == nil {
			return
		}
		c.registry = registry
	}
}

// WithSettings sets the settings store.
func WithSettings(s *settings.Store) Option {
	return func(c *Controller) {
		if c == nil {
			return
		}
		c.settings = s
	}
}

// WithStorage sets the persistent storage holding view records.
func WithStorage(rw store.ReadWriter) Option {
	return func(c *Controller) {
		if c == nil {
			return
		}
		c.storage = rw
	}
}

// WithURLBuilder sets the URL builder and the fallback redirect target.
func WithURLBuilder(b urlbuilder.Builder, target urlbuilder.Target) Option {
	return func(c *Controller) {
		if c == nil {
			return
		}
		c.urls = b
		c.target = target
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if c == nil || now == nil {
			return
		}
		c.now = now
	}
}

// WithExpiration overrides the persisted record lifetime.
func WithExpiration(fn ExpirationFunc) Option {
	return func(c *Controller) {
		if c == nil {
			return
		}
		c.expiration = fn
	}
}

// WithUpdater registers the update step of a view type.
func WithUpdater(viewType string, updater Updater) Option {
	return func(c *Controller) {
		if c == nil || updater == nil {
			return
		}
		c.updaters[view.NormalizeKey(viewType)] = updater
	}
}

// WithHandler registers the handler of a non view type key.
func WithHandler(key string, handler Handler) Option {
	return func(c *Controller) {
		if c == nil || handler == nil {
			return
		}
		c.handlers[view.NormalizeKey(key)] = handler
	}
}

// WithApplyHook registers an apply hook.
func WithApplyHook(hook view.ApplyHook) Option {
	return func(c *Controller) {
		if c == nil || hook == nil {
			return
		}
		c.applyHooks = append(c.applyHooks, hook)
	}
}

// WithActivityHook registers an update hook.
func WithActivityHook(hook activity.Hook) Option {
	return func(c *Controller) {
		if c == nil || hook == nil {
			return
		}
		c.hooks = append(c.hooks, hook)
	}
}

// WithInterceptor sets what Apply arms once a view is active.
func WithInterceptor(armer Armer) Option {
	return func(c *Controller) {
		if c == nil {
			return
		}
		c.armer = armer
	}
}

// WithLogger sets the logger.
func WithLogger(lgr logger.Logger) Option {
	return func(c *Controller) {
		if c == nil || lgr == nil {
			return
		}
		c.logger = lgr
	}
}

// New builds the controller of one request.
func New(s *session.Store, opts ...Option) *Controller {
	c := &Controller{
		session:  s,
		now:      time.Now,
		updaters: map[string]Updater{},
		handlers: map[string]Handler{},
		logger:   logger.Discard(),
		state:    view.StateInactive,
		source:   view.SourceNone,
	}
	c.handlers[KeyReset] = HandlerFunc(handleReset)
	c.handlers[KeySetting] = HandlerFunc(handleSetting)
	c.handlers[KeyUserSetting] = HandlerFunc(handleUserSetting)
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.registry == nil {
		c.registry, _ = viewtype.NewRegistry(viewtype.Builtin()...)
	}
	return c
}

// Session returns the request session.
func (c *Controller) Session() *session.Store {
	if c == nil {
		return nil
	}
	return c.session
}

// Registry returns the view type registry.
func (c *Controller) Registry() *viewtype.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// State returns the lifecycle state.
func (c *Controller) State() view.State {
	if c == nil {
		return view.StateInactive
	}
	return c.state
}

// Source returns where the current view came from.
func (c *Controller) Source() view.Source {
	if c == nil {
		return view.SourceNone
	}
	return c.source
}

// View returns the resolved or active view.
func (c *Controller) View() view.View {
	if c == nil {
		return nil
	}
	return c.current.Clone()
}

// Applied returns the view type IDs that took effect, in apply order.
func (c *Controller) Applied() []string {
	if c == nil {
		return nil
	}
	return append([]string(nil), c.applied...)
}

// Mode returns the operator's view mode.
func (c *Controller) Mode(ctx context.Context) view.Mode {
	if c == nil {
		return view.ModeBrowse
	}
	if c.modeLoaded {
		return c.mode
	}
	c.mode = view.ModeBrowse
	c.modeLoaded = true
	if c.settings == nil {
		return c.mode
	}
	mode, err := c.settings.ViewMode(ctx, c.session.Operator().ID)
	if err != nil {
		c.logger.Warn("view mode lookup failed, using browse", "error", err)
	}
	c.mode = view.ParseMode(mode)
	return c.mode
}

// Available returns the view types the operator may use, keyed by ID.
func (c *Controller) Available(ctx context.Context) map[string]viewtype.Type {
	out := map[string]viewtype.Type{}
	if c == nil || c.session == nil {
		return out
	}
	var toggle viewtype.Toggle
	if c.settings != nil {
		toggle = c.settings
	}
	for _, t := range c.registry.Available(ctx, c.session.Operator(), toggle) {
		out[viewtype.Key(t)] = t
	}
	return out
}

func (c *Controller) availableOrdered(ctx context.Context) []viewtype.Type {
	var toggle viewtype.Toggle
	if c.settings != nil {
		toggle = c.settings
	}
	return c.registry.Available(ctx, c.session.Operator(), toggle)
}

func (c *Controller) ttl(ctx context.Context) time.Duration {
	if c.expiration == nil {
		return view.DefaultExpiration
	}
	ttl := c.expiration(ctx, c.session.Operator())
	if ttl <= 0 {
		return view.DefaultExpiration
	}
	return ttl
}

func (c *Controller) emit(ctx context.Context, event activity.UpdateEvent) {
	op := c.session.Operator()
	event.OperatorID = op.ID
	if event.UserID == "" {
		event.UserID = op.ID
	}
	activity.Emit(ctx, c.hooks, event)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
