package templates

import (
	"context"
	"fmt"
	"strings"

	"github.com/flosch/pongo2/v6"

	"github.com/goliatone/go-viewas/catalog"
	"github.com/goliatone/go-viewas/controller"
	"github.com/goliatone/go-viewas/engine"
	"github.com/goliatone/go-viewas/ferrors"
	"github.com/goliatone/go-viewas/logger"
	"github.com/goliatone/go-viewas/view"
)

const (
	TemplateContextKey  = "viewas_ctx"
	TemplateRequestKey  = "viewas_request"
	TemplateSnapshotKey = "viewas_snapshot"
)

// HelperConfig configures template helpers.
type HelperConfig struct {
	ContextKey             string
	RequestKey             string
	SnapshotKey            string
	Resolver               catalog.MessageResolver
	EnableStructuredErrors bool
	EnableErrorLogging     bool
	Logger                 logger.Logger
}

// HelperOption configures template helpers.
type HelperOption func(*HelperConfig)

// DefaultHelperConfig returns the default helper configuration.
func DefaultHelperConfig() HelperConfig {
	return HelperConfig{
		ContextKey:  TemplateContextKey,
		RequestKey:  TemplateRequestKey,
		SnapshotKey: TemplateSnapshotKey,
		Resolver:    catalog.PlainResolver{},
	}
}

// WithContextKey overrides the template context key name.
func WithContextKey(key string) HelperOption {
	return func(cfg *HelperConfig) {
		if cfg == nil {
			return
		}
		cfg.ContextKey = strings.TrimSpace(key)
	}
}

// WithRequestKey overrides the template request key name.
func WithRequestKey(key string) HelperOption {
	return func(cfg *HelperConfig) {
		if cfg == nil {
			return
		}
		cfg.RequestKey = strings.TrimSpace(key)
	}
}

// WithSnapshotKey overrides the template snapshot key name.
func WithSnapshotKey(key string) HelperOption {
	return func(cfg *HelperConfig) {
		if cfg == nil {
			return
		}
		cfg.SnapshotKey = strings.TrimSpace(key)
	}
}

// WithResolver sets the message resolver used by view_title.
func WithResolver(resolver catalog.MessageResolver) HelperOption {
	return func(cfg *HelperConfig) {
		if cfg == nil || resolver == nil {
			return
		}
		cfg.Resolver = resolver
	}
}

// WithStructuredErrors toggles structured error output for value helpers.
func WithStructuredErrors(enabled bool) HelperOption {
	return func(cfg *HelperConfig) {
		if cfg == nil {
			return
		}
		cfg.EnableStructuredErrors = enabled
	}
}

// WithErrorLogging toggles error logging for helper failures.
func WithErrorLogging(enabled bool) HelperOption {
	return func(cfg *HelperConfig) {
		if cfg == nil {
			return
		}
		cfg.EnableErrorLogging = enabled
	}
}

// WithLogger injects a logger for helper error logging.
func WithLogger(lgr logger.Logger) HelperOption {
	return func(cfg *HelperConfig) {
		if cfg == nil {
			return
		}
		cfg.Logger = lgr
	}
}

// TemplateHelpers returns the view helper set for pongo2 templates. The
// request is read from the template data, or from a context stored there.
func TemplateHelpers(opts ...HelperOption) map[string]any {
	cfg := DefaultHelperConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.EnableErrorLogging && cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}
	helpers := &helperSet{cfg: cfg}

	return map[string]any{
		"view_can":        helpers.can,
		"view_can_any":    helpers.canAny,
		"view_can_all":    helpers.canAll,
		"view_if":         helpers.viewIf,
		"view_class":      helpers.viewClass,
		"view_active":     helpers.active,
		"view_title":      helpers.title,
		"view_is_current": helpers.isCurrent,
		"view_link":       helpers.link,
		"view_nonce":      helpers.nonce,
	}
}

type helperSet struct {
	cfg HelperConfig
}

func (h *helperSet) can(execCtx *pongo2.ExecutionContext, capability any) bool {
	name, ok := parseCapability(capability)
	if !ok {
		return false
	}
	value, err := h.resolveCapability(execCtx, name)
	return err == nil && value
}

func (h *helperSet) canAny(execCtx *pongo2.ExecutionContext, caps ...any) bool {
	parsed := parseCapabilities(caps...)
	for _, name := range parsed {
		value, err := h.resolveCapability(execCtx, name)
		if err == nil && value {
			return true
		}
	}
	return false
}

func (h *helperSet) canAll(execCtx *pongo2.ExecutionContext, caps ...any) bool {
	parsed := parseCapabilities(caps...)
	if len(parsed) == 0 {
		return false
	}
	for _, name := range parsed {
		value, err := h.resolveCapability(execCtx, name)
		if err != nil || !value {
			return false
		}
	}
	return true
}

func (h *helperSet) viewIf(execCtx *pongo2.ExecutionContext, capability any, whenTrue any, whenFalse ...any) any {
	return h.choose("view_if", execCtx, capability, whenTrue, whenFalse)
}

func (h *helperSet) viewClass(execCtx *pongo2.ExecutionContext, capability any, on any, off ...any) any {
	return h.choose("view_class", execCtx, capability, on, off)
}

func (h *helperSet) choose(helper string, execCtx *pongo2.ExecutionContext, capability any, on any, off []any) any {
	var fallback any = ""
	if len(off) > 0 {
		fallback = off[0]
	}
	name, ok := parseCapability(capability)
	if !ok {
		return h.errorOrFallback(helper, invalidCapability(capability), fallback)
	}
	value, err := h.resolveCapability(execCtx, name)
	if err != nil {
		return h.errorOrFallback(helper, err, fallback)
	}
	if value {
		return on
	}
	return fallback
}

func (h *helperSet) active(execCtx *pongo2.ExecutionContext) bool {
	r, err := h.request(execCtx)
	return err == nil && r.Active()
}

func (h *helperSet) title(execCtx *pongo2.ExecutionContext) any {
	r, err := h.request(execCtx)
	if err != nil {
		return h.errorOrFallback("view_title", err, "")
	}
	return r.Title(h.context(execCtx), h.cfg.Resolver)
}

func (h *helperSet) isCurrent(execCtx *pongo2.ExecutionContext, raw any) bool {
	r, err := h.request(execCtx)
	if err != nil {
		return false
	}
	v, ok := viewFromValue(raw)
	return ok && r.IsCurrentView(v)
}

func (h *helperSet) link(execCtx *pongo2.ExecutionContext, base any, raw any) any {
	r, err := h.request(execCtx)
	if err != nil {
		return h.errorOrFallback("view_link", err, "")
	}
	v, ok := viewFromValue(raw)
	if !ok {
		return h.errorOrFallback("view_link", ferrors.NewBadInput(ferrors.TextCodeRequestPayloadInvalid, "view payload is required", nil), "")
	}
	out, err := r.ViewLink(fmt.Sprint(unwrapValue(base)), v)
	if err != nil {
		return h.errorOrFallback("view_link", err, "")
	}
	return out
}

func (h *helperSet) nonce(execCtx *pongo2.ExecutionContext) string {
	r, err := h.request(execCtx)
	if err != nil {
		return ""
	}
	return r.Nonce()
}

func (h *helperSet) resolveCapability(execCtx *pongo2.ExecutionContext, name string) (bool, error) {
	if snapshot := h.snapshot(execCtx); snapshot != nil {
		if value, ok := snapshotValue(snapshot, name); ok {
			return value, nil
		}
	}
	r, err := h.request(execCtx)
	if err != nil {
		return false, err
	}
	return r.Can(name), nil
}

func (h *helperSet) request(execCtx *pongo2.ExecutionContext) (*engine.Request, error) {
	data := templateData(execCtx)
	if raw, ok := data[keyOr(h.cfg.RequestKey, TemplateRequestKey)]; ok {
		if r, ok := raw.(*engine.Request); ok && r != nil {
			return r, nil
		}
	}
	if r, ok := engine.FromContext(h.context(execCtx)); ok {
		return r, nil
	}
	return nil, ferrors.WrapSentinel(ferrors.ErrOperatorRequired, "view request is not available in template", nil)
}

func (h *helperSet) context(execCtx *pongo2.ExecutionContext) context.Context {
	data := templateData(execCtx)
	raw, ok := data[keyOr(h.cfg.ContextKey, TemplateContextKey)]
	if !ok || raw == nil {
		return context.Background()
	}
	return contextFromValue(raw)
}

func (h *helperSet) snapshot(execCtx *pongo2.ExecutionContext) any {
	data := templateData(execCtx)
	raw, ok := data[keyOr(h.cfg.SnapshotKey, TemplateSnapshotKey)]
	if !ok {
		return nil
	}
	return raw
}

func (h *helperSet) errorOrFallback(helper string, err error, fallback any) any {
	if h.cfg.EnableErrorLogging {
		h.logHelperError(helper, err)
	}
	if h.cfg.EnableStructuredErrors {
		return templateError(helper, err)
	}
	return fallback
}

// TemplateError provides structured helper error output.
type TemplateError struct {
	Helper   string         `json:"helper"`
	Type     string         `json:"type,omitempty"`
	Message  string         `json:"message,omitempty"`
	Category string         `json:"category,omitempty"`
	TextCode string         `json:"text_code,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func templateError(helper string, err error) TemplateError {
	out := TemplateError{Helper: helper}
	if err == nil {
		return out
	}
	if rich, ok := ferrors.As(err); ok {
		out.Message = rich.Message
		out.Category = rich.Category.String()
		out.TextCode = rich.TextCode
		if len(rich.Metadata) > 0 {
			out.Metadata = rich.Metadata
		}
		if out.TextCode != "" {
			out.Type = out.TextCode
		} else if out.Category != "" {
			out.Type = out.Category
		}
		return out
	}
	out.Message = err.Error()
	out.Type = "error"
	return out
}

// SnapshotReader reports precomputed capability checks.
type SnapshotReader interface {
	Can(capability string) (bool, bool)
}

// Snapshot holds precomputed capability checks, used by cached fragments
// rendered without a live request.
type Snapshot map[string]bool

// Can implements SnapshotReader.
func (s Snapshot) Can(capability string) (bool, bool) {
	value, ok := s[strings.TrimSpace(capability)]
	return value, ok
}

func snapshotValue(snapshot any, name string) (bool, bool) {
	if reader, ok := snapshot.(SnapshotReader); ok {
		return reader.Can(name)
	}
	switch typed := snapshot.(type) {
	case map[string]bool:
		value, ok := typed[name]
		return value, ok
	case map[string]any:
		if value, ok := typed[name].(bool); ok {
			return value, true
		}
	}
	return false, false
}

func invalidCapability(value any) error {
	return ferrors.NewBadInput(ferrors.TextCodeRequestPayloadInvalid, "capability is required", map[string]any{
		ferrors.MetaCapability: value,
	})
}

func parseCapability(value any) (string, bool) {
	switch typed := unwrapValue(value).(type) {
	case string:
		name := strings.TrimSpace(typed)
		return name, name != ""
	case fmt.Stringer:
		name := strings.TrimSpace(typed.String())
		return name, name != ""
	default:
		return "", false
	}
}

func parseCapabilities(values ...any) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		for _, item := range flatten(value) {
			if name, ok := parseCapability(item); ok {
				out = append(out, name)
			}
		}
	}
	return out
}

func flatten(value any) []any {
	value = unwrapValue(value)
	switch typed := value.(type) {
	case []string:
		out := make([]any, 0, len(typed))
		for _, item := range typed {
			out = append(out, item)
		}
		return out
	case []any:
		return typed
	default:
		return []any{value}
	}
}

func viewFromValue(raw any) (view.View, bool) {
	raw = unwrapValue(raw)
	if s, ok := raw.(string); ok {
		return controller.DecodeViewParam(s)
	}
	v := view.FromAny(raw)
	return v, !v.Empty()
}

func unwrapValue(value any) any {
	if value == nil {
		return nil
	}
	if pv, ok := value.(*pongo2.Value); ok && pv != nil {
		return pv.Interface()
	}
	return value
}

func contextFromValue(value any) context.Context {
	switch typed := value.(type) {
	case context.Context:
		return typed
	case interface{ Context() context.Context }:
		return typed.Context()
	default:
		return context.Background()
	}
}

func templateData(execCtx *pongo2.ExecutionContext) map[string]any {
	if execCtx == nil || execCtx.Public == nil {
		return nil
	}
	data := make(map[string]any, len(execCtx.Public))
	for key, value := range execCtx.Public {
		data[key] = value
	}
	return data
}

func keyOr(key, fallback string) string {
	if key == "" {
		return fallback
	}
	return key
}

func (h *helperSet) logHelperError(helper string, err error) {
	if h == nil || h.cfg.Logger == nil {
		return
	}
	args := []any{
		"helper", helper,
		"error", err,
	}
	if rich, ok := ferrors.As(err); ok {
		args = append(args,
			"category", rich.Category,
			"text_code", rich.TextCode,
			"metadata", rich.Metadata,
		)
	}
	h.cfg.Logger.Error("viewas.helper_error", args...)
}
