package gologgeradapter

import (
	"context"
	"strings"

	"github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-viewas/activity"
	"github.com/goliatone/go-viewas/settings"
	"github.com/goliatone/go-viewas/view"
)

// Hook logs apply, update and settings events using go-logger.
type Hook struct {
	logger          glog.Logger
	applyLevel      string
	updateLevel     string
	applyMessage    string
	updateMessage   string
	settingsMessage string
}

// Option customizes the logger hook.
type Option func(*Hook)

// New builds a logging hook for view events.
func New(logger glog.Logger, opts ...Option) *Hook {
	hook := &Hook{
		logger:          logger,
		applyLevel:      "debug",
		updateLevel:     "info",
		applyMessage:    "viewas.apply",
		updateMessage:   "viewas.update",
		settingsMessage: "viewas.settings",
	}
	for _, opt := range opts {
		if opt != nil {
			opt(hook)
		}
	}
	return hook
}

// WithApplyLevel sets the log level for apply events.
func WithApplyLevel(level string) Option {
	return func(hook *Hook) {
		if hook == nil {
			return
		}
		hook.applyLevel = strings.ToLower(strings.TrimSpace(level))
	}
}

// WithUpdateLevel sets the log level for update and settings events.
func WithUpdateLevel(level string) Option {
	return func(hook *Hook) {
		if hook == nil {
			return
		}
		hook.updateLevel = strings.ToLower(strings.TrimSpace(level))
	}
}

// WithApplyMessage overrides the apply log message.
func WithApplyMessage(message string) Option {
	return func(hook *Hook) {
		if hook == nil {
			return
		}
		hook.applyMessage = message
	}
}

// WithUpdateMessage overrides the update log message.
func WithUpdateMessage(message string) Option {
	return func(hook *Hook) {
		if hook == nil {
			return
		}
		hook.updateMessage = message
	}
}

// OnApply implements view.ApplyHook.
func (h *Hook) OnApply(ctx context.Context, event view.ApplyEvent) {
	if h == nil || h.logger == nil {
		return
	}
	h.log(ctx, h.applyLevel, h.applyMessage, applyFields(event))
}

// OnUpdate implements activity.Hook.
func (h *Hook) OnUpdate(ctx context.Context, event activity.UpdateEvent) {
	if h == nil || h.logger == nil {
		return
	}
	h.log(ctx, h.updateLevel, h.updateMessage, updateFields(event))
}

// OnSettingsChange implements settings.ChangeHook.
func (h *Hook) OnSettingsChange(ctx context.Context, change settings.Change) error {
	if h == nil || h.logger == nil {
		return nil
	}
	h.log(ctx, h.updateLevel, h.settingsMessage, settingsFields(change))
	return nil
}

func (h *Hook) log(ctx context.Context, level string, message string, fields map[string]any) {
	logger := h.logger
	if logger == nil {
		return
	}
	if ctx != nil {
		logger = logger.WithContext(ctx)
	}
	if fieldsLogger, ok := logger.(glog.FieldsLogger); ok && len(fields) > 0 {
		logger = fieldsLogger.WithFields(fields)
	}
	switch level {
	case "trace":
		logger.Trace(message)
	case "debug":
		logger.Debug(message)
	case "warn":
		logger.Warn(message)
	case "error", "fatal":
		logger.Error(message)
	default:
		logger.Info(message)
	}
}

func applyFields(event view.ApplyEvent) map[string]any {
	return map[string]any{
		"operator_id":   event.OperatorID,
		"session_token": event.SessionToken,
		"view_mode":     string(event.Mode),
		"view_source":   string(event.Source),
		"view_state":    string(event.State),
		"view_keys":     event.View.Keys(),
		"view_applied":  event.Applied,
		"view_skipped":  event.Skipped,
	}
}

func updateFields(event activity.UpdateEvent) map[string]any {
	fields := map[string]any{
		"view_action":   string(event.Action),
		"operator_id":   event.OperatorID,
		"session_token": event.SessionToken,
		"view_keys":     event.Keys,
	}
	if event.UserID != "" {
		fields["user_id"] = event.UserID
	}
	if event.Namespace != "" {
		fields["settings_namespace"] = event.Namespace
	}
	if event.Removed > 0 {
		fields["view_removed"] = event.Removed
	}
	return fields
}

func settingsFields(change settings.Change) map[string]any {
	changed := []string{}
	seen := map[string]struct{}{}
	for _, data := range []map[string]any{change.Before, change.After} {
		for key := range data {
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			if change.Changed(key) {
				changed = append(changed, key)
			}
		}
	}
	return map[string]any{
		"settings_scope":     change.Scope.String(),
		"settings_namespace": change.Namespace,
		"settings_changed":   changed,
	}
}

var _ view.ApplyHook = (*Hook)(nil)
var _ activity.Hook = (*Hook)(nil)
var _ settings.ChangeHook = (*Hook)(nil)
