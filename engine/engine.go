package engine

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-viewas/activity"
	"github.com/goliatone/go-viewas/cache"
	"github.com/goliatone/go-viewas/catalog"
	"github.com/goliatone/go-viewas/compat"
	"github.com/goliatone/go-viewas/controller"
	"github.com/goliatone/go-viewas/directory"
	"github.com/goliatone/go-viewas/ferrors"
	"github.com/goliatone/go-viewas/identity"
	"github.com/goliatone/go-viewas/intercept"
	"github.com/goliatone/go-viewas/kv"
	"github.com/goliatone/go-viewas/logger"
	"github.com/goliatone/go-viewas/roledefaults"
	"github.com/goliatone/go-viewas/session"
	"github.com/goliatone/go-viewas/settings"
	"github.com/goliatone/go-viewas/store"
	"github.com/goliatone/go-viewas/urlbuilder"
	"github.com/goliatone/go-viewas/view"
	"github.com/goliatone/go-viewas/viewtype"
)

// Engine owns the long-lived collaborators and builds one Request per
// incoming request.
type Engine struct {
	storage      store.ReadWriter
	userStorage  store.ReadWriter
	directory    directory.Directory
	registry     *viewtype.Registry
	namespaces   *settings.Registry
	settings     *settings.Store
	roleDefaults *roledefaults.Store
	sources      []compat.CapabilitySource
	cache        cache.Cache
	catalog      *catalog.StaticCatalog
	secret       []byte
	logger       logger.Logger
	debug        bool
	now          func() time.Time
	expiration   controller.ExpirationFunc
	urls         urlbuilder.Builder
	target       urlbuilder.Target
	metaPrefix   string

	viewTypes     []viewtype.Type
	catalogs      []catalog.Catalog
	extraSpaces   []settings.Namespace
	policy        roledefaults.Policy
	updaters      map[string]controller.Updater
	handlers      map[string]controller.Handler
	applyHooks    []view.ApplyHook
	activityHooks []activity.Hook
	settingsHooks []settings.ChangeHook
}

// Option customizes an Engine.
type Option func(*Engine)

// WithStorage sets the persistent storage.
func WithStorage(rw store.ReadWriter) Option {
	return func(e *Engine) {
		if e == nil || rw == nil {
			return
		}
		e.storage = rw
	}
}

// WithUserStorage keeps user metadata, that is view records and user
// settings, in rw while global options stay in the main storage.
func WithUserStorage(rw store.ReadWriter) Option {
	return func(e *Engine) {
		if e == nil || rw == nil {
			return
		}
		e.userStorage = rw
	}
}

// WithDirectory sets the role, user and locale source.
func WithDirectory(dir directory.Directory) Option {
	return func(e *Engine) {
		if e == nil || dir == nil {
			return
		}
		e.directory = dir
	}
}

// WithViewTypes registers additional view types.
func WithViewTypes(types ...viewtype.Type) Option {
	return func(e *Engine) {
		if e == nil {
			return
		}
		e.viewTypes = append(e.viewTypes, types...)
	}
}

// WithNamespaces registers additional settings namespaces.
func WithNamespaces(namespaces ...settings.Namespace) Option {
	return func(e *Engine) {
		if e == nil {
			return
		}
		e.extraSpaces = append(e.extraSpaces, namespaces...)
	}
}

// WithCapabilitySources adds compatibility capability sources.
func WithCapabilitySources(sources ...compat.CapabilitySource) Option {
	return func(e *Engine) {
		if e == nil {
			return
		}
		e.sources = append(e.sources, sources...)
	}
}

// WithCache sets the candidate data cache.
func WithCache(c cache.Cache) Option {
	return func(e *Engine) {
		if e == nil || c == nil {
			return
		}
		e.cache = c
	}
}

// WithCatalog overlays view type labels and descriptions on the built-in
// ones. Later catalogs win.
func WithCatalog(c catalog.Catalog) Option {
	return func(e *Engine) {
		if e == nil || c == nil {
			return
		}
		e.catalogs = append(e.catalogs, c)
	}
}

// WithSecret sets the anti-forgery secret.
func WithSecret(secret []byte) Option {
	return func(e *Engine) {
		if e == nil || len(secret) == 0 {
			return
		}
		e.secret = append([]byte(nil), secret...)
	}
}

// WithLogger sets the logger.
func WithLogger(lgr logger.Logger) Option {
	return func(e *Engine) {
		if e == nil || lgr == nil {
			return
		}
		e.logger = lgr
	}
}

// WithDebug routes development diagnostics to the logger.
func WithDebug(debug bool) Option {
	return func(e *Engine) {
		if e == nil {
			return
		}
		e.debug = debug
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if e == nil || now == nil {
			return
		}
		e.now = now
	}
}

// WithExpiration overrides the persisted record lifetime.
func WithExpiration(fn controller.ExpirationFunc) Option {
	return func(e *Engine) {
		if e == nil {
			return
		}
		e.expiration = fn
	}
}

// WithURLBuilder sets the URL builder and fallback redirect target.
func WithURLBuilder(b urlbuilder.Builder, target urlbuilder.Target) Option {
	return func(e *Engine) {
		if e == nil {
			return
		}
		e.urls = b
		e.target = target
	}
}

// WithMetaPrefix sets the host prefix of protected metadata fields.
func WithMetaPrefix(prefix string) Option {
	return func(e *Engine) {
		if e == nil {
			return
		}
		e.metaPrefix = prefix
	}
}

// WithRoleDefaultsPolicy replaces the role defaults key policy.
func WithRoleDefaultsPolicy(policy roledefaults.Policy) Option {
	return func(e *Engine) {
		if e == nil {
			return
		}
		e.policy = policy
	}
}

// WithUpdater registers the update step of a view type.
func WithUpdater(viewType string, updater controller.Updater) Option {
	return func(e *Engine) {
		if e == nil || updater == nil {
			return
		}
		e.updaters[viewType] = updater
	}
}

// WithHandler registers the handler of a non view type change-set key.
func WithHandler(key string, handler controller.Handler) Option {
	return func(e *Engine) {
		if e == nil || handler == nil {
			return
		}
		e.handlers[key] = handler
	}
}

// WithApplyHook registers an apply hook.
func WithApplyHook(hook view.ApplyHook) Option {
	return func(e *Engine) {
		if e == nil || hook == nil {
			return
		}
		e.applyHooks = append(e.applyHooks, hook)
	}
}

// WithActivityHook registers an update hook.
func WithActivityHook(hook activity.Hook) Option {
	return func(e *Engine) {
		if e == nil || hook == nil {
			return
		}
		e.activityHooks = append(e.activityHooks, hook)
	}
}

// WithSettingsHook registers a settings change hook.
func WithSettingsHook(hook settings.ChangeHook) Option {
	return func(e *Engine) {
		if e == nil || hook == nil {
			return
		}
		e.settingsHooks = append(e.settingsHooks, hook)
	}
}

// New builds an engine. Missing collaborators default to in-memory ones.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		cache:    cache.NoopCache{},
		logger:   logger.Discard(),
		now:      time.Now,
		policy:   roledefaults.DefaultPolicy(),
		updaters: map[string]controller.Updater{},
		handlers: map[string]controller.Handler{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	if e.storage == nil {
		e.storage = store.NewMemoryStore()
	}
	if e.userStorage != nil {
		e.storage = store.NewSplit(e.storage, e.userStorage)
	}
	if e.directory == nil {
		e.directory = directory.NewMemoryDirectory()
	}
	if len(e.secret) == 0 {
		e.secret = []byte(uuid.NewString())
	}
	e.catalog = catalog.NewStatic(catalog.Builtin())
	for _, c := range e.catalogs {
		e.catalog = e.catalog.Merge(c)
	}

	registry, err := viewtype.NewRegistry(append(viewtype.Builtin(), e.viewTypes...)...)
	if err != nil {
		return nil, err
	}
	e.registry = registry

	namespaces, err := settings.NewRegistry(append([]settings.Namespace{settings.CoreNamespace(registry.IDs()...)}, e.extraSpaces...)...)
	if err != nil {
		return nil, err
	}
	e.namespaces = namespaces

	settingsOpts := []settings.Option{
		settings.WithHook(controller.ModeChangeHook(e.storage)),
		settings.WithAccessor(e.accessor()),
	}
	for _, hook := range e.settingsHooks {
		settingsOpts = append(settingsOpts, settings.WithHook(hook))
	}
	e.settings = settings.NewStore(namespaces, e.storage, settingsOpts...)
	e.roleDefaults = roledefaults.NewStore(e.storage, roledefaults.WithPolicy(e.policy))
	return e, nil
}

func (e *Engine) accessor() kv.Accessor {
	if !e.debug {
		return kv.New()
	}
	lgr := e.logger
	return kv.New(kv.WithViolationHandler(func(v kv.Violation) {
		lgr.Debug("key-value contract violation", "operation", v.Operation, "key", v.Key, "message", v.Message)
	}))
}

// Storage returns the persistent storage.
func (e *Engine) Storage() store.ReadWriter { return e.storage }

// Directory returns the candidate data source.
func (e *Engine) Directory() directory.Directory { return e.directory }

// Registry returns the view type registry.
func (e *Engine) Registry() *viewtype.Registry { return e.registry }

// Catalog returns the view type catalog.
func (e *Engine) Catalog() catalog.Catalog { return e.catalog }

// Settings returns the settings store.
func (e *Engine) Settings() *settings.Store { return e.settings }

// RoleDefaults returns the role defaults store.
func (e *Engine) RoleDefaults() *roledefaults.Store { return e.roleDefaults }

// Now returns the engine clock reading.
func (e *Engine) Now() time.Time { return e.now() }

// Input carries the per-request signals Begin needs besides the operator.
type Input struct {
	// Login marks the request that completes a login.
	Login bool
	// Logout marks the request that ends the session.
	Logout bool
	// View carries the one-shot and pending view inputs.
	View controller.Request
}

// Begin builds the request pipeline for op: it sweeps records on login,
// resolves the current view and applies it. A returned Request whose
// Redirect is set must end request handling.
func (e *Engine) Begin(ctx context.Context, op identity.Operator, in Input) (*Request, error) {
	if e == nil {
		return nil, ferrors.ErrStoreRequired
	}
	if op.SessionToken == "" {
		op.SessionToken = identity.SessionToken(ctx)
	}
	if strings.TrimSpace(op.ID) == "" {
		return nil, ferrors.ErrOperatorRequired
	}
	if strings.TrimSpace(op.SessionToken) == "" {
		return nil, ferrors.WrapSentinel(ferrors.ErrSessionTokenRequired, "", map[string]any{
			ferrors.MetaUserID: op.ID,
		})
	}
	ctx = identity.WithSessionToken(ctx, op.SessionToken)
	lgr := logger.WithFields(e.logger, map[string]any{"operator_id": op.ID})

	s := session.New(op,
		session.WithDirectory(e.directory),
		session.WithCapabilitySources(e.sources...),
		session.WithCache(e.cache),
		session.WithSecret(e.secret),
		session.WithFreezeLocale(e.freezeLocale(ctx, op.ID)),
		session.WithLogger(lgr),
	)
	interceptor := intercept.New(s,
		intercept.WithRoleDefaults(e.roleDefaults),
		intercept.WithMetaPrefix(e.metaPrefix),
		intercept.WithLogger(lgr),
	)
	ctrl := controller.New(s, e.controllerOptions(interceptor, lgr)...)

	r := &Request{engine: e, session: s, controller: ctrl, interceptor: interceptor}
	if !op.HasBaseAccess() {
		s.MarkRequiresReset()
	}
	if in.Login {
		if err := ctrl.OnLogin(ctx); err != nil {
			return r, err
		}
	}
	if in.Logout {
		return r, ctrl.OnLogout(ctx)
	}

	resolution, err := ctrl.Resolve(ctx, in.View)
	r.resolution = resolution
	if err != nil {
		return r, err
	}
	if resolution.Terminate() {
		return r, nil
	}
	r.event = ctrl.Apply(ctx)
	return r, nil
}

func (e *Engine) controllerOptions(armer controller.Armer, lgr logger.Logger) []controller.Option {
	opts := []controller.Option{
		controller.WithRegistry(e.registry),
		controller.WithSettings(e.settings),
		controller.WithStorage(e.storage),
		controller.WithClock(e.now),
		controller.WithExpiration(e.expiration),
		controller.WithInterceptor(armer),
		controller.WithLogger(lgr),
	}
	if e.urls != nil {
		opts = append(opts, controller.WithURLBuilder(e.urls, e.target))
	}
	for id, updater := range e.updaters {
		opts = append(opts, controller.WithUpdater(id, updater))
	}
	for key, handler := range e.handlers {
		opts = append(opts, controller.WithHandler(key, handler))
	}
	for _, hook := range e.applyHooks {
		opts = append(opts, controller.WithApplyHook(hook))
	}
	for _, hook := range e.activityHooks {
		opts = append(opts, controller.WithActivityHook(hook))
	}
	return opts
}

func (e *Engine) freezeLocale(ctx context.Context, userID string) bool {
	value, err := e.settings.String(ctx, store.User(userID), settings.NamespaceCore, settings.KeyFreezeLocale)
	if err != nil {
		e.logger.Warn("freeze locale lookup failed", "user_id", userID, "error", err)
		return false
	}
	return value == "yes"
}
