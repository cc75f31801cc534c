package engine

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/goliatone/go-viewas/catalog"
	"github.com/goliatone/go-viewas/compat"
	"github.com/goliatone/go-viewas/controller"
	"github.com/goliatone/go-viewas/directory"
	"github.com/goliatone/go-viewas/ferrors"
	"github.com/goliatone/go-viewas/identity"
	"github.com/goliatone/go-viewas/settings"
	"github.com/goliatone/go-viewas/store"
	"github.com/goliatone/go-viewas/view"
)

var now = time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)

type harness struct {
	engine  *Engine
	storage *store.MemoryStore
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	dir := directory.NewMemoryDirectory()
	dir.AddRole(directory.Role{Slug: "administrator", Name: "Administrator", Capabilities: identity.Capabilities{
		"view_admin_as": true, "edit_users": true, "manage_options": true,
	}})
	dir.AddRole(directory.Role{Slug: "editor", Name: "Editor", Capabilities: identity.Capabilities{"edit_posts": true, "upload_files": true}})
	dir.AddUser(directory.User{ID: "5", Login: "sub", Capabilities: identity.Capabilities{"read": true}})
	dir.SetLocales("en_US", "de_DE")

	mem := store.NewMemoryStore()
	base := []Option{
		WithStorage(mem),
		WithDirectory(dir),
		WithSecret([]byte("test-secret")),
		WithClock(func() time.Time { return now }),
		WithCapabilitySources(compat.StaticSource{Names: []string{"manage_options"}}),
	}
	e, err := New(append(base, opts...)...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return &harness{engine: e, storage: mem}
}

// scenarioOperator holds base access and edit_users only.
func scenarioOperator() identity.Operator {
	return identity.Operator{
		ID:           "1",
		SessionToken: "tok",
		Capabilities: identity.Capabilities{"view_admin_as": true, "edit_users": true},
	}
}

func (h *harness) begin(t *testing.T, in Input) *Request {
	t.Helper()
	r, err := h.engine.Begin(context.Background(), scenarioOperator(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return r
}

func (h *harness) update(t *testing.T, changes map[string]any) view.Result {
	t.Helper()
	r := h.begin(t, Input{})
	res, err := r.Update(context.Background(), changes, r.Nonce())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return res
}

func (h *harness) records(t *testing.T) map[string]view.Record {
	t.Helper()
	records, err := controller.Records(context.Background(), h.storage, "1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return records
}

func (h *harness) setSingleMode(t *testing.T) {
	t.Helper()
	_, _, err := h.engine.Settings().Update(context.Background(), store.User("1"), settings.NamespaceCore, map[string]any{settings.KeyViewMode: settings.ViewModeSingle})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestScenarioRoleView(t *testing.T) {
	h := newHarness(t)
	if res := h.update(t, map[string]any{"role": "editor"}); !res.Success {
		t.Fatalf("expected role update to succeed, got %+v", res)
	}

	r := h.begin(t, Input{})
	if !r.Active() {
		t.Fatalf("expected role view to be active")
	}
	if !r.Can("edit_posts") || !r.Can("upload_files") {
		t.Fatalf("expected editor capabilities, got %v", r.Identity().Capabilities)
	}
	if r.Can("manage_options") {
		t.Fatalf("expected manage_options to be denied")
	}
	if !r.IsCurrentView(map[string]any{"role": "editor"}) {
		t.Fatalf("expected role view to be current")
	}
	if got := r.Title(context.Background(), nil); got != "Viewing as Role: Editor" {
		t.Fatalf("unexpected title: %q", got)
	}
}

func TestAdministrativeRolesAreNotSelectable(t *testing.T) {
	h := newHarness(t)
	res := h.update(t, map[string]any{"role": "administrator"})
	if res.Success || res.Data.Type != view.MessageNothingValid {
		t.Fatalf("expected administrative role to be rejected, got %+v", res)
	}
}

func TestScenarioCapsReplaceRoleView(t *testing.T) {
	h := newHarness(t)
	if res := h.update(t, map[string]any{"role": "editor"}); !res.Success {
		t.Fatalf("expected role update to succeed, got %+v", res)
	}
	if res := h.update(t, map[string]any{"caps": map[string]any{"manage_options": 1}}); !res.Success {
		t.Fatalf("expected caps update to succeed, got %+v", res)
	}

	stored := h.records(t)["tok"].View
	if !reflect.DeepEqual(stored.Keys(), []string{"caps"}) {
		t.Fatalf("expected stored view narrowed to caps, got %v", stored.Keys())
	}

	r := h.begin(t, Input{})
	if !r.Active() {
		t.Fatalf("expected caps view to be active")
	}
	if !r.Can("manage_options") || !r.Can("edit_users") {
		t.Fatalf("expected caps overlay on operator capabilities, got %v", r.Identity().Capabilities)
	}
	if r.Can("edit_posts") {
		t.Fatalf("expected role capabilities to be gone")
	}
}

func TestScenarioVisitorDeniesEverything(t *testing.T) {
	h := newHarness(t)
	if res := h.update(t, map[string]any{"visitor": true}); !res.Success {
		t.Fatalf("expected visitor update to succeed, got %+v", res)
	}

	r := h.begin(t, Input{})
	if !r.Active() {
		t.Fatalf("expected visitor view to be active")
	}
	for _, capability := range []string{"read", "view_admin_as", "manage_options", "edit_posts"} {
		if r.Can(capability) {
			t.Fatalf("expected %s to be denied", capability)
		}
	}
	if r.Identity().LoggedIn {
		t.Fatalf("expected logged out identity")
	}
}

func TestScenarioSingleModeOneShot(t *testing.T) {
	h := newHarness(t)
	h.setSingleMode(t)
	writes := h.storage.Writes()

	nonce := h.begin(t, Input{}).Nonce()
	r := h.begin(t, Input{View: controller.Request{Payload: map[string]any{"role": "editor"}, Token: nonce}})
	if !r.Active() || r.Event().Source != view.SourceRequest {
		t.Fatalf("expected one-shot view from the request, got %+v", r.Event())
	}
	if got := h.storage.Writes(); got != writes {
		t.Fatalf("expected no persistence, writes went from %d to %d", writes, got)
	}

	next := h.begin(t, Input{})
	if next.Active() {
		t.Fatalf("expected next request to be inactive")
	}
	if !next.Can("edit_users") || next.Can("edit_posts") {
		t.Fatalf("expected operator identity, got %v", next.Identity().Capabilities)
	}
}

func TestSingleModeUpdateAppliesToCurrentRequest(t *testing.T) {
	h := newHarness(t)
	h.setSingleMode(t)
	writes := h.storage.Writes()

	r := h.begin(t, Input{})
	res, err := r.Update(context.Background(), map[string]any{"role": "editor"}, r.Nonce())
	if err != nil || !res.Success {
		t.Fatalf("unexpected update result: %+v %v", res, err)
	}
	if !r.Active() {
		t.Fatalf("expected view to be applied, state=%v", r.Controller().State())
	}
	if !r.Can("edit_posts") || r.Can("edit_users") || r.Can("manage_options") {
		t.Fatalf("expected editor identity, got %v", r.Identity().Capabilities)
	}
	if got := h.storage.Writes(); got != writes {
		t.Fatalf("expected no persistence, writes went from %d to %d", writes, got)
	}
	if h.begin(t, Input{}).Active() {
		t.Fatalf("expected next request to be inactive")
	}
}

func TestScenarioExpiredRecord(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	expired := view.Record{View: view.View{"role": "editor"}, Expire: now.Unix() - 1}
	err := store.UserDocument(h.storage, "1").MutateField(ctx, store.FieldViews, func(views map[string]any) error {
		views["tok"] = expired.Map()
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r := h.begin(t, Input{})
	if r.Active() || r.Resolution().State != view.StateInactive {
		t.Fatalf("expected expired record to be ignored, got %+v", r.Resolution())
	}
	if records := h.records(t); len(records) != 1 {
		t.Fatalf("expected record to survive until login, got %v", records)
	}

	h.begin(t, Input{Login: true})
	if records := h.records(t); len(records) != 0 {
		t.Fatalf("expected login sweep to drop expired record, got %v", records)
	}
}

func TestScenarioRoleDefaultsRedirect(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if res := h.update(t, map[string]any{"role": "editor"}); !res.Success {
		t.Fatalf("expected role update to succeed, got %+v", res)
	}

	host := hostMeta{"1": {"admin_color": "fresh"}}
	r := h.begin(t, Input{})
	if !r.Active() {
		t.Fatalf("expected role view to be active")
	}
	if err := r.MetaStore(host).SetMeta(ctx, "1", "admin_color", "midnight"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if host["1"]["admin_color"] != "fresh" {
		t.Fatalf("expected operator record untouched, got %v", host["1"]["admin_color"])
	}
	value, ok, err := h.engine.RoleDefaults().Get(ctx, "editor", "admin_color")
	if err != nil || !ok || value != "midnight" {
		t.Fatalf("expected write redirected to role defaults, got %v %v %v", value, ok, err)
	}
}

func TestBeginRejectsMissingOperatorAndToken(t *testing.T) {
	h := newHarness(t)
	_, err := h.engine.Begin(context.Background(), identity.Operator{}, Input{})
	if !errors.Is(err, ferrors.ErrOperatorRequired) {
		t.Fatalf("expected operator required, got %v", err)
	}

	_, err = h.engine.Begin(context.Background(), identity.Operator{ID: "1"}, Input{})
	if !errors.Is(err, ferrors.ErrSessionTokenRequired) {
		t.Fatalf("expected session token required, got %v", err)
	}

	ctx := identity.WithSessionToken(context.Background(), "ctx-token")
	r, err := h.engine.Begin(ctx, identity.Operator{ID: "1", SuperAdmin: true}, Input{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := r.Session().SessionToken(); got != "ctx-token" {
		t.Fatalf("expected context token, got %q", got)
	}
}

func TestUpdateRejectsForgedToken(t *testing.T) {
	h := newHarness(t)
	r := h.begin(t, Input{})
	res, err := r.Update(context.Background(), map[string]any{"role": "editor"}, "forged")
	if !errors.Is(err, ferrors.ErrNonceInvalid) {
		t.Fatalf("expected invalid nonce, got %v", err)
	}
	if res.Success {
		t.Fatalf("expected failure result")
	}
	if records := h.records(t); len(records) != 0 {
		t.Fatalf("expected nothing persisted, got %v", records)
	}
	if err := r.VerifyNonce(r.Nonce()); err != nil {
		t.Fatalf("expected own nonce to verify, got %v", err)
	}
}

func TestDemotedOperatorResetOnLogin(t *testing.T) {
	h := newHarness(t)
	if res := h.update(t, map[string]any{"role": "editor"}); !res.Success {
		t.Fatalf("expected role update to succeed, got %+v", res)
	}

	demoted := identity.Operator{ID: "1", SessionToken: "other", Capabilities: identity.Capabilities{"read": true}}
	r, err := h.engine.Begin(context.Background(), demoted, Input{Login: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Active() {
		t.Fatalf("expected demoted operator to be inactive")
	}
	if records := h.records(t); len(records) != 0 {
		t.Fatalf("expected every record cleared, got %v", records)
	}
}

func TestMenuListsAvailableTypes(t *testing.T) {
	h := newHarness(t)
	menu, err := h.begin(t, Input{}).Menu(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, id := range []string{"role", "visitor", "locale"} {
		if _, ok := menu[id]; !ok {
			t.Fatalf("expected %s menu, got %v", id, menu)
		}
	}
	for _, item := range menu["role"] {
		if item.Value == "administrator" {
			t.Fatalf("expected administrative role to be hidden")
		}
	}
}

func TestViewTypesUseCatalogOverlay(t *testing.T) {
	h := newHarness(t, WithCatalog(catalog.NewStatic(map[string]catalog.ViewTypeDefinition{
		"role": {Label: catalog.Message{Text: "Rolle"}},
	})))
	types := h.begin(t, Input{}).ViewTypes(context.Background())

	ids := make([]string, 0, len(types))
	labels := map[string]string{}
	for _, def := range types {
		ids = append(ids, def.ID)
		labels[def.ID] = def.Label.Text
	}
	if !reflect.DeepEqual(ids, []string{"user", "visitor", "role", "caps", "locale"}) {
		t.Fatalf("unexpected view type order: %v", ids)
	}
	if labels["role"] != "Rolle" || labels["locale"] != "Language" {
		t.Fatalf("unexpected labels: %v", labels)
	}
}

func TestContextHelpers(t *testing.T) {
	h := newHarness(t)
	r := h.begin(t, Input{})
	got, ok := FromContext(WithRequest(context.Background(), r))
	if !ok || got != r {
		t.Fatalf("expected request from context")
	}
	if _, ok := FromContext(context.Background()); ok {
		t.Fatalf("expected empty context to hold no request")
	}
}

type hostMeta map[string]map[string]any

func (m hostMeta) GetMeta(_ context.Context, userID, key string) (any, bool, error) {
	value, ok := m[userID][key]
	return value, ok, nil
}

func (m hostMeta) SetMeta(_ context.Context, userID, key string, value any) error {
	if m[userID] == nil {
		m[userID] = map[string]any{}
	}
	m[userID][key] = value
	return nil
}

func (m hostMeta) DeleteMeta(_ context.Context, userID, key string) error {
	delete(m[userID], key)
	return nil
}
