package configadapter

import (
	"context"
	"strings"

	"github.com/goliatone/go-config/config"

	"github.com/goliatone/go-viewas/ferrors"
	"github.com/goliatone/go-viewas/settings"
	"github.com/goliatone/go-viewas/store"
	"github.com/goliatone/go-viewas/view"
)

type configOptions struct {
	delimiter string
}

// Option configures configadapter parsing.
type Option func(*configOptions)

// WithDelimiter sets the key delimiter used when flattening nested maps.
func WithDelimiter(delimiter string) Option {
	return func(cfg *configOptions) {
		if cfg == nil {
			return
		}
		cfg.delimiter = delimiter
	}
}

func newConfigOptions(opts []Option) configOptions {
	cfg := configOptions{delimiter: "."}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.delimiter == "" {
		cfg.delimiter = "."
	}
	return cfg
}

// NewNamespace builds a settings namespace from config of the form
// {global: {defaults: {...}, allowed: {...}}, user: {...}}.
func NewNamespace(id string, data map[string]any) (settings.Namespace, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return settings.Namespace{}, ferrors.ErrNamespaceRequired
	}
	return settings.Namespace{
		ID:     id,
		Global: definitionFrom(data["global"]),
		User:   definitionFrom(data["user"]),
	}, nil
}

func definitionFrom(raw any) settings.Definition {
	def := settings.Definition{Defaults: map[string]any{}, Allowed: map[string][]any{}}
	data, ok := raw.(map[string]any)
	if !ok {
		return def
	}
	if defaults, ok := data["defaults"].(map[string]any); ok {
		for key, value := range defaults {
			if key = strings.TrimSpace(key); key != "" {
				def.Defaults[key] = value
			}
		}
	}
	if allowed, ok := data["allowed"].(map[string]any); ok {
		for key, value := range allowed {
			key = strings.TrimSpace(key)
			if key == "" {
				continue
			}
			switch typed := value.(type) {
			case []any:
				def.Allowed[key] = typed
			case []string:
				values := make([]any, 0, len(typed))
				for _, item := range typed {
					values = append(values, item)
				}
				def.Allowed[key] = values
			}
		}
	}
	return def
}

// ViewTypeToggles reads per view type on/off switches. Values may be
// OptionalBool or bool; unset optionals are skipped. The result is keyed by
// the global core setting of each view type.
func ViewTypeToggles(data map[string]any) map[string]any {
	out := map[string]any{}
	for id, value := range data {
		id = view.NormalizeKey(id)
		if id == "" {
			continue
		}
		if enabled, set := toggleFromValue(value); set {
			out[settings.ViewTypeKey(id)] = enabled
		}
	}
	return out
}

// ApplyViewTypeToggles writes the toggles into the global core settings.
func ApplyViewTypeToggles(ctx context.Context, s *settings.Store, data map[string]any) (bool, error) {
	if s == nil {
		return false, ferrors.ErrStoreRequired
	}
	toggles := ViewTypeToggles(data)
	if len(toggles) == 0 {
		return false, nil
	}
	_, changed, err := s.Update(ctx, store.Global(), settings.NamespaceCore, toggles)
	return changed, err
}

type optionalBool interface {
	IsSet() bool
	Value() bool
}

func toggleFromValue(value any) (bool, bool) {
	switch typed := value.(type) {
	case *config.OptionalBool:
		if typed == nil {
			return false, false
		}
		return typed.Value(), typed.IsSet()
	case config.OptionalBool:
		return typed.Value(), typed.IsSet()
	case optionalBool:
		return typed.Value(), typed.IsSet()
	case bool:
		return typed, true
	case *bool:
		if typed == nil {
			return false, false
		}
		return *typed, true
	default:
		return false, false
	}
}
