package controller

import (
	"context"
	"errors"
	"net/url"
	"reflect"
	"testing"
	"time"

	"github.com/goliatone/go-viewas/activity"
	"github.com/goliatone/go-viewas/directory"
	"github.com/goliatone/go-viewas/ferrors"
	"github.com/goliatone/go-viewas/identity"
	"github.com/goliatone/go-viewas/kv"
	"github.com/goliatone/go-viewas/session"
	"github.com/goliatone/go-viewas/settings"
	"github.com/goliatone/go-viewas/store"
	"github.com/goliatone/go-viewas/view"
	"github.com/goliatone/go-viewas/viewtype"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	storage  *store.MemoryStore
	settings *settings.Store
	registry *viewtype.Registry
	dir      *directory.MemoryDirectory
	events   []activity.UpdateEvent
	armed    int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	registry, err := viewtype.NewRegistry(viewtype.Builtin()...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	namespaces, err := settings.NewRegistry(settings.CoreNamespace(registry.IDs()...))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mem := store.NewMemoryStore()
	dir := directory.NewMemoryDirectory()
	dir.AddRole(directory.Role{Slug: "editor", Name: "Editor", Capabilities: identity.Capabilities{"edit_posts": true, "upload_files": true}})
	dir.AddUser(directory.User{ID: "5", Login: "sub", Capabilities: identity.Capabilities{"read": true}})
	dir.SetLocales("en_US", "de_DE")
	return &fixture{
		storage:  mem,
		settings: settings.NewStore(namespaces, mem, settings.WithHook(ModeChangeHook(mem))),
		registry: registry,
		dir:      dir,
	}
}

func operator(token string) identity.Operator {
	return identity.Operator{
		ID:           "1",
		SessionToken: token,
		SuperAdmin:   true,
		Capabilities: identity.Capabilities{"view_admin_as": true, "edit_users": true},
	}
}

func (f *fixture) controller(op identity.Operator, now time.Time, opts ...Option) *Controller {
	s := session.New(op, session.WithDirectory(f.dir), session.WithSecret([]byte("secret")))
	base := []Option{
		WithRegistry(f.registry),
		WithSettings(f.settings),
		WithStorage(f.storage),
		WithClock(func() time.Time { return now }),
		WithActivityHook(activity.HookFunc(func(_ context.Context, event activity.UpdateEvent) {
			f.events = append(f.events, event)
		})),
		WithInterceptor(armerFunc(func() bool { f.armed++; return true })),
	}
	return New(s, append(base, opts...)...)
}

type armerFunc func() bool

func (fn armerFunc) Arm() bool { return fn() }

func TestUpdateThenResolveAppliesRole(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	c := f.controller(operator("tok"), fixedNow)
	res, err := c.Update(ctx, map[string]any{"role": "editor"})
	if err != nil || !res.Success {
		t.Fatalf("unexpected update result: %+v %v", res, err)
	}

	next := f.controller(operator("tok"), fixedNow)
	resolution, err := next.Resolve(ctx, Request{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolution.State != view.StateResolving || resolution.Source != view.SourceRecord {
		t.Fatalf("unexpected resolution: %+v", resolution)
	}
	event := next.Apply(ctx)
	if event.State != view.StateActive || len(event.Applied) != 1 || f.armed != 1 {
		t.Fatalf("unexpected apply event: %+v armed=%d", event, f.armed)
	}
	if !next.IsCurrentView(map[string]any{"role": "editor"}) {
		t.Fatalf("expected role view to be current")
	}
	sim := next.Session().Identity()
	if !sim.Can("edit_posts") || sim.Can("manage_options") {
		t.Fatalf("unexpected simulated identity: %+v", sim)
	}
	if titles := next.Titles(ctx); len(titles) != 1 {
		t.Fatalf("expected one title, got %v", titles)
	}
}

func TestUpdateAlreadySelectedAndNothingValid(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := f.controller(operator("tok"), fixedNow)

	if res, _ := c.Update(ctx, map[string]any{"role": "editor"}); !res.Success {
		t.Fatalf("expected first update to succeed")
	}
	res, err := c.Update(ctx, map[string]any{"role": "editor"})
	if err != nil || res.Success || res.Data.Type != view.MessageAlreadySelected {
		t.Fatalf("expected already selected, got %+v %v", res, err)
	}
	res, _ = c.Update(ctx, map[string]any{"role": "ghost", "bogus": 1})
	if res.Data.Type != view.MessageNothingValid {
		t.Fatalf("expected nothing valid, got %+v", res)
	}
	res, _ = c.Update(ctx, nil)
	if res.Data.Type != view.MessageNothingValid {
		t.Fatalf("expected nothing valid for empty change-set, got %+v", res)
	}
}

func TestUpdateNarrowsStoredViewToChangeSet(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := f.controller(operator("tok"), fixedNow)

	if _, err := c.Update(ctx, map[string]any{"role": "editor", "locale": "de_DE"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := c.Update(ctx, map[string]any{"caps": map[string]any{"upload_files": 1}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	records, err := c.Records(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := records["tok"].View
	if len(got) != 1 || !kv.Equal(got["caps"], map[string]any{"upload_files": true}) {
		t.Fatalf("unexpected stored view: %v", got)
	}
}

func TestUpdateFailsFastOnHandler(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	calls := 0
	c := f.controller(operator("tok"), fixedNow,
		WithHandler("alpha", HandlerFunc(func(context.Context, *Controller, any) (view.Result, error) {
			calls++
			return view.Failure(view.MessageError, "nope"), nil
		})),
		WithHandler("beta", HandlerFunc(func(context.Context, *Controller, any) (view.Result, error) {
			calls++
			return view.Ok(), nil
		})),
	)
	res, err := c.Update(ctx, map[string]any{"alpha": 1, "beta": 1, "role": "editor"})
	if err != nil || res.Success || res.Data.Text != "nope" || calls != 1 {
		t.Fatalf("expected fail fast, got %+v calls=%d", res, calls)
	}
	if records, _ := c.Records(ctx); len(records) != 0 {
		t.Fatalf("expected no view to be stored, got %v", records)
	}
}

func TestCustomUpdaterReplacesDefault(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := f.controller(operator("tok"), fixedNow, WithUpdater("locale", UpdaterFunc(
		func(context.Context, *Controller, viewtype.Type, any, any) (any, bool) {
			return "en_US", true
		})))
	if _, err := c.Update(ctx, map[string]any{"locale": "anything"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	records, _ := c.Records(ctx)
	if records["tok"].View["locale"] != "en_US" {
		t.Fatalf("expected updater payload, got %v", records["tok"].View)
	}
}

func TestResetViewIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := f.controller(operator("tok"), fixedNow)
	_, _ = c.Update(ctx, map[string]any{"role": "editor"})

	for i := 0; i < 2; i++ {
		if err := c.ResetView(ctx, "tok"); err != nil {
			t.Fatalf("unexpected error on reset %d: %v", i, err)
		}
		if records, _ := c.Records(ctx); len(records) != 0 {
			t.Fatalf("expected no records after reset %d", i)
		}
	}
	if err := c.ResetView(ctx, " "); !errors.Is(err, ferrors.ErrSessionTokenRequired) {
		t.Fatalf("expected token required, got %v", err)
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.controller(operator("a"), fixedNow)
	b := f.controller(operator("b"), fixedNow)
	_, _ = a.Update(ctx, map[string]any{"role": "editor"})
	_, _ = b.Update(ctx, map[string]any{"visitor": true})

	if err := a.ResetView(ctx, "a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	records, _ := b.Records(ctx)
	if _, ok := records["b"]; !ok || len(records) != 1 {
		t.Fatalf("expected session b to keep its view, got %v", records)
	}
	if err := a.ResetAllViews(ctx, "1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if records, _ := b.Records(ctx); len(records) != 0 {
		t.Fatalf("expected every record to be cleared, got %v", records)
	}
}

func TestExpiredRecordIgnoredThenCleaned(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := f.controller(operator("tok"), fixedNow, WithExpiration(ExpireAfter(time.Hour)))
	_, _ = c.Update(ctx, map[string]any{"role": "editor"})

	later := f.controller(operator("tok"), fixedNow.Add(time.Hour+time.Second))
	resolution, err := later.Resolve(ctx, Request{})
	if err != nil || resolution.State != view.StateInactive {
		t.Fatalf("expected expired record to be ignored: %+v %v", resolution, err)
	}
	if records, _ := later.Records(ctx); len(records) != 1 {
		t.Fatalf("expected record to remain until cleanup")
	}
	if err := later.OnLogin(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if records, _ := later.Records(ctx); len(records) != 0 {
		t.Fatalf("expected cleanup to remove the record, got %v", records)
	}
}

func TestOnLoginResetsAllWhenRequired(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, _ = f.controller(operator("a"), fixedNow).Update(ctx, map[string]any{"role": "editor"})
	_, _ = f.controller(operator("b"), fixedNow).Update(ctx, map[string]any{"role": "editor"})

	c := f.controller(operator("c"), fixedNow)
	c.Session().MarkRequiresReset()
	if err := c.OnLogin(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if records, _ := c.Records(ctx); len(records) != 0 {
		t.Fatalf("expected full reset, got %v", records)
	}
}

func TestSingleModeNeverPersists(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	if _, _, err := f.settings.Update(ctx, store.User("1"), settings.NamespaceCore, map[string]any{settings.KeyViewMode: "single"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	writes := f.storage.Writes()

	c := f.controller(operator("tok"), fixedNow)
	token := c.Session().Nonce(NonceAction)
	resolution, err := c.Resolve(ctx, Request{Payload: map[string]any{"visitor": true}, Token: token})
	if err != nil || resolution.Source != view.SourceRequest {
		t.Fatalf("unexpected resolution: %+v %v", resolution, err)
	}
	if c.Apply(ctx).State != view.StateActive {
		t.Fatalf("expected one-shot view to apply")
	}
	if f.storage.Writes() != writes {
		t.Fatalf("expected no persistence in single mode")
	}

	forged := f.controller(operator("tok"), fixedNow)
	resolution, _ = forged.Resolve(ctx, Request{Payload: map[string]any{"visitor": true}, Token: "bad"})
	if resolution.State != view.StateInactive {
		t.Fatalf("expected forged payload to be ignored")
	}
}

func TestPendingViewPersistsAndRedirects(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := f.controller(operator("tok"), fixedNow)

	link, err := c.ViewLink("/admin/posts?page=2", view.View{"role": "editor"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	parsed, _ := url.Parse(link)
	pending, ok := DecodeViewParam(parsed.Query().Get(ParamView))
	if !ok {
		t.Fatalf("expected link to carry the view")
	}
	resolution, err := c.Resolve(ctx, Request{Pending: pending, Token: parsed.Query().Get(ParamNonce), URL: link})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resolution.Terminate() || resolution.Redirect != "/admin/posts?page=2" {
		t.Fatalf("unexpected redirect: %+v", resolution)
	}
	records, _ := c.Records(ctx)
	if records["tok"].View["role"] != "editor" {
		t.Fatalf("expected pending view to persist, got %v", records)
	}
}

func TestViewModeChangeResetsSessionView(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := f.controller(operator("tok"), fixedNow)
	_, _ = c.Update(ctx, map[string]any{"role": "editor"})

	res, err := c.Update(ctx, map[string]any{"user_setting": map[string]any{settings.KeyViewMode: "single"}})
	if err != nil || !res.Success {
		t.Fatalf("unexpected result: %+v %v", res, err)
	}
	if records, _ := c.Records(ctx); len(records) != 0 {
		t.Fatalf("expected mode change to reset the view, got %v", records)
	}
	if c.Mode(ctx) != view.ModeSingle {
		t.Fatalf("expected mode to reload")
	}
}

func TestGlobalSettingRequiresManageOptions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	limited := identity.Operator{ID: "2", SessionToken: "tok", Capabilities: identity.Capabilities{"view_admin_as": true}}
	c := f.controller(limited, fixedNow)
	res, err := c.Update(ctx, map[string]any{"setting": map[string]any{settings.ViewTypeKey("locale"): false}})
	if err != nil || res.Success {
		t.Fatalf("expected access denial, got %+v %v", res, err)
	}

	admin := f.controller(operator("tok"), fixedNow)
	res, err = admin.Update(ctx, map[string]any{"setting": map[string]any{settings.ViewTypeKey("locale"): false}})
	if err != nil || !res.Success {
		t.Fatalf("unexpected result: %+v %v", res, err)
	}
	if _, ok := admin.Available(ctx)["locale"]; ok {
		t.Fatalf("expected locale view type to be toggled off")
	}
}

func TestValidateViewDataNarrows(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := f.controller(operator("tok"), fixedNow)
	input := map[string]any{"role": "ghost", "visitor": true, "unknown": 1}
	got := c.ValidateViewData(ctx, input)
	if len(got) != 1 || got["visitor"] != true {
		t.Fatalf("unexpected validated view: %v", got)
	}
	for key := range got {
		if _, ok := input[key]; !ok {
			t.Fatalf("validation invented key %q", key)
		}
	}
}

func manager(token string) identity.Operator {
	return identity.Operator{
		ID:           "1",
		SessionToken: token,
		Capabilities: identity.Capabilities{"view_admin_as": true, "edit_users": true},
	}
}

func (f *fixture) applyStored(t *testing.T, op identity.Operator, changes map[string]any) *Controller {
	t.Helper()
	ctx := context.Background()
	res, err := f.controller(op, fixedNow).Update(ctx, changes)
	if err != nil || !res.Success {
		t.Fatalf("unexpected update result: %+v %v", res, err)
	}
	c := f.controller(op, fixedNow)
	if _, err := c.Resolve(ctx, Request{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event := c.Apply(ctx); event.State != view.StateActive {
		t.Fatalf("expected view to apply, got %+v", event)
	}
	return c
}

func TestApplyUserThenRole(t *testing.T) {
	f := newFixture(t)
	c := f.applyStored(t, operator("tok"), map[string]any{"user": "5", "role": "editor"})

	if got := c.Applied(); !reflect.DeepEqual(got, []string{"user", "role"}) {
		t.Fatalf("unexpected apply order: %v", got)
	}
	sim := c.Session().Identity()
	if sim.UserID != "5" || !reflect.DeepEqual(sim.Roles, []string{"editor"}) {
		t.Fatalf("expected switched user restricted to editor, got %+v", sim)
	}
	if !sim.Can("edit_posts") || !sim.Can("upload_files") || sim.Can("read") || sim.Can("edit_users") {
		t.Fatalf("unexpected simulated capabilities: %v", sim.Capabilities)
	}
}

func TestApplyCapsOverlayOnRole(t *testing.T) {
	f := newFixture(t)
	c := f.applyStored(t, manager("tok"), map[string]any{
		"role": "editor",
		"caps": map[string]any{"upload_files": false, "edit_users": true},
	})

	if got := c.Applied(); !reflect.DeepEqual(got, []string{"role", "caps"}) {
		t.Fatalf("unexpected apply order: %v", got)
	}
	sim := c.Session().Identity()
	if !sim.Can("edit_posts") || !sim.Can("edit_users") {
		t.Fatalf("expected role capabilities plus overlay, got %v", sim.Capabilities)
	}
	if sim.Can("upload_files") || sim.Can("view_admin_as") {
		t.Fatalf("expected overlay to revoke upload_files, got %v", sim.Capabilities)
	}
}

func TestManagerSelectsRolesAndCapsItDoesNotHold(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.dir.AddRole(directory.Role{Slug: "administrator", Capabilities: identity.Capabilities{"view_admin_as": true, "manage_options": true}})

	c := f.controller(manager("tok"), fixedNow)
	if res, err := c.Update(ctx, map[string]any{"role": "editor"}); err != nil || !res.Success {
		t.Fatalf("expected editor role to be selectable, got %+v %v", res, err)
	}
	if res, _ := c.Update(ctx, map[string]any{"role": "administrator"}); res.Success {
		t.Fatalf("expected administrative role to be rejected")
	}
	if res, err := c.Update(ctx, map[string]any{"caps": map[string]any{"manage_options": true}}); err != nil || !res.Success {
		t.Fatalf("expected manage_options to be grantable, got %+v %v", res, err)
	}
}

func TestSingleModeUpdateAppliesWithoutPersisting(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	if _, _, err := f.settings.Update(ctx, store.User("1"), settings.NamespaceCore, map[string]any{settings.KeyViewMode: "single"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	writes := f.storage.Writes()

	c := f.controller(manager("tok"), fixedNow)
	if _, err := c.Resolve(ctx, Request{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c.Apply(ctx)
	res, err := c.Update(ctx, map[string]any{"role": "editor"})
	if err != nil || !res.Success {
		t.Fatalf("unexpected update result: %+v %v", res, err)
	}
	if c.State() != view.StateActive || c.Source() != view.SourceRequest {
		t.Fatalf("expected one-shot view to be active, got state=%v source=%v", c.State(), c.Source())
	}
	sim := c.Session().Identity()
	if !sim.Can("edit_posts") || sim.Can("edit_users") {
		t.Fatalf("unexpected simulated capabilities: %v", sim.Capabilities)
	}
	if f.storage.Writes() != writes {
		t.Fatalf("expected no persistence in single mode")
	}

	res, err = c.Update(ctx, map[string]any{"visitor": true})
	if err != nil || !res.Success {
		t.Fatalf("unexpected update result: %+v %v", res, err)
	}
	sim = c.Session().Identity()
	if sim.LoggedIn || sim.Can("edit_posts") || !reflect.DeepEqual(c.Applied(), []string{"visitor"}) {
		t.Fatalf("expected the new view to replace the old one, got %+v applied=%v", sim, c.Applied())
	}
}

func TestMixedCaseCustomTypeIsSelectable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	theme := &viewtype.Funcs{
		Descriptor: viewtype.Descriptor{TypeID: "Theme", Order: 50},
		ValidateFn: func(_ context.Context, _ *session.Store, raw any) (any, bool) {
			return raw, raw != nil
		},
		ApplyFn: func(context.Context, *session.Store, any) bool { return true },
	}
	if err := f.registry.Register(theme); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	c := f.controller(operator("tok"), fixedNow)
	res, err := c.Update(ctx, map[string]any{"Theme": "dark"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	records, _ := c.Records(ctx)
	if records["tok"].View["theme"] != "dark" {
		t.Fatalf("expected theme payload, got %v", records["tok"].View)
	}

	next := f.controller(operator("tok"), fixedNow)
	if _, err := next.Resolve(ctx, Request{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event := next.Apply(ctx); !reflect.DeepEqual(event.Applied, []string{"theme"}) {
		t.Fatalf("unexpected applied types: %v", event.Applied)
	}
}
