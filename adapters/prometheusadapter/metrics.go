// Package prometheusadapter counts view applications, view updates and
// settings changes.
package prometheusadapter

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/goliatone/go-viewas/activity"
	"github.com/goliatone/go-viewas/settings"
	"github.com/goliatone/go-viewas/store"
	"github.com/goliatone/go-viewas/view"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "viewas"

// Metrics implements the apply, activity and settings hooks.
type Metrics struct {
	applied  *prometheus.CounterVec
	viewKeys *prometheus.CounterVec
	skipped  *prometheus.CounterVec
	updates  *prometheus.CounterVec
	removed  prometheus.Counter
	settings *prometheus.CounterVec
}

// Option customizes metric registration.
type Option func(*config)

type config struct {
	namespace  string
	registerer prometheus.Registerer
}

// WithNamespace overrides the metric namespace.
func WithNamespace(namespace string) Option {
	return func(c *config) {
		if c == nil || namespace == "" {
			return
		}
		c.namespace = namespace
	}
}

// WithRegisterer registers the metrics on reg instead of the default
// registerer.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *config) {
		if c == nil || reg == nil {
			return
		}
		c.registerer = reg
	}
}

// New registers the metrics. Registering twice on the same registerer panics.
func New(opts ...Option) *Metrics {
	cfg := &config{namespace: DefaultNamespace, registerer: prometheus.DefaultRegisterer}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	factory := promauto.With(cfg.registerer)
	return &Metrics{
		applied: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.namespace,
			Subsystem: "apply",
			Name:      "requests_total",
			Help:      "Requests processed by the view controller broken down by mode, source and resulting state.",
		}, []string{"mode", "source", "state"}),
		viewKeys: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.namespace,
			Subsystem: "apply",
			Name:      "view_types_total",
			Help:      "View types applied to requests broken down by view type.",
		}, []string{"view_type"}),
		skipped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.namespace,
			Subsystem: "apply",
			Name:      "skipped_total",
			Help:      "View types skipped during apply broken down by view type.",
		}, []string{"view_type"}),
		updates: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.namespace,
			Subsystem: "update",
			Name:      "events_total",
			Help:      "View and settings mutations broken down by action.",
		}, []string{"action"}),
		removed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.namespace,
			Subsystem: "update",
			Name:      "records_removed_total",
			Help:      "Persisted view records removed by reset and cleanup.",
		}),
		settings: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.namespace,
			Subsystem: "settings",
			Name:      "changes_total",
			Help:      "Settings changes broken down by scope kind and namespace.",
		}, []string{"scope", "namespace"}),
	}
}

// OnApply implements view.ApplyHook.
func (m *Metrics) OnApply(_ context.Context, event view.ApplyEvent) {
	if m == nil {
		return
	}
	source := string(event.Source)
	if source == "" {
		source = string(view.SourceNone)
	}
	m.applied.WithLabelValues(string(event.Mode), source, string(event.State)).Inc()
	for _, key := range event.Applied {
		m.viewKeys.WithLabelValues(key).Inc()
	}
	for _, key := range event.Skipped {
		m.skipped.WithLabelValues(key).Inc()
	}
}

// OnUpdate implements activity.Hook.
func (m *Metrics) OnUpdate(_ context.Context, event activity.UpdateEvent) {
	if m == nil {
		return
	}
	m.updates.WithLabelValues(string(event.Action)).Inc()
	if event.Removed > 0 {
		m.removed.Add(float64(event.Removed))
	}
}

// OnSettingsChange implements settings.ChangeHook.
func (m *Metrics) OnSettingsChange(_ context.Context, change settings.Change) error {
	if m == nil {
		return nil
	}
	kind := string(change.Scope.Kind)
	if kind == "" {
		kind = string(store.ScopeGlobal)
	}
	m.settings.WithLabelValues(kind, change.Namespace).Inc()
	return nil
}

var _ view.ApplyHook = (*Metrics)(nil)
var _ activity.Hook = (*Metrics)(nil)
var _ settings.ChangeHook = (*Metrics)(nil)
