package prometheusadapter

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/goliatone/go-viewas/directory"
	"github.com/goliatone/go-viewas/engine"
	"github.com/goliatone/go-viewas/identity"
	"github.com/goliatone/go-viewas/settings"
	"github.com/goliatone/go-viewas/store"
)

func expectCount(t *testing.T, name string, c prometheus.Collector, want float64) {
	t.Helper()
	if got := testutil.ToFloat64(c); got != want {
		t.Fatalf("%s = %v, want %v", name, got, want)
	}
}

func TestMetricsCountEngineEvents(t *testing.T) {
	ctx := context.Background()
	metrics := New(WithRegisterer(prometheus.NewRegistry()))

	dir := directory.NewMemoryDirectory()
	dir.AddRole(directory.Role{Slug: "editor", Name: "Editor", Capabilities: identity.Capabilities{"edit_posts": true}})
	e, err := engine.New(
		engine.WithDirectory(dir),
		engine.WithApplyHook(metrics),
		engine.WithActivityHook(metrics),
		engine.WithSettingsHook(metrics),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	op := identity.Operator{
		ID:           "1",
		SessionToken: "tok",
		SuperAdmin:   true,
		Capabilities: identity.Capabilities{identity.CapViewAdminAs: true, identity.CapEditUsers: true},
	}
	r, err := e.Begin(ctx, op, engine.Input{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res, err := r.Update(ctx, map[string]any{"role": "editor"}, r.Nonce())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	expectCount(t, "updates{update}", metrics.updates.WithLabelValues("update"), 1)

	r, err = e.Begin(ctx, op, engine.Input{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !r.Active() {
		t.Fatalf("expected stored view to be active")
	}
	expectCount(t, "applied", metrics.applied.WithLabelValues("browse", "record", "active"), 1)
	expectCount(t, "view keys{role}", metrics.viewKeys.WithLabelValues("role"), 1)

	res, err = r.Update(ctx, map[string]any{"reset": true}, r.Nonce())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected reset to succeed, got %+v", res)
	}
	expectCount(t, "updates{reset}", metrics.updates.WithLabelValues("reset"), 1)
	expectCount(t, "removed", metrics.removed, 1)

	_, changed, err := e.Settings().Update(ctx, store.User("1"), settings.NamespaceCore, map[string]any{settings.KeyViewMode: settings.ViewModeSingle})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !changed {
		t.Fatalf("expected settings change")
	}
	expectCount(t, "settings", metrics.settings.WithLabelValues("user", settings.NamespaceCore), 1)
}

func TestNilMetricsIgnoreEvents(t *testing.T) {
	var m *Metrics
	if err := m.OnSettingsChange(context.Background(), settings.Change{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
