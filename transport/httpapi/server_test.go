package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strings"
	"testing"

	"github.com/goliatone/go-viewas/controller"
	"github.com/goliatone/go-viewas/directory"
	"github.com/goliatone/go-viewas/engine"
	"github.com/goliatone/go-viewas/identity"
	"github.com/goliatone/go-viewas/store"
	"github.com/goliatone/go-viewas/view"
)

type fixture struct {
	engine  *engine.Engine
	storage *store.MemoryStore
	handler http.Handler
}

func operator() identity.Operator {
	return identity.Operator{
		ID:           "1",
		SessionToken: "tok",
		Capabilities: identity.Capabilities{identity.CapViewAdminAs: true, identity.CapEditUsers: true},
	}
}

func newFixture(t *testing.T, withOperator bool) *fixture {
	t.Helper()
	dir := directory.NewMemoryDirectory()
	dir.AddRole(directory.Role{Slug: "editor", Name: "Editor", Capabilities: identity.Capabilities{"edit_posts": true}})
	mem := store.NewMemoryStore()
	e, err := engine.New(engine.WithStorage(mem), engine.WithDirectory(dir), engine.WithSecret([]byte("secret")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	src := identity.SourceFunc(func(context.Context) (identity.Operator, error) {
		if !withOperator {
			return identity.Operator{}, nil
		}
		return operator(), nil
	})
	return &fixture{engine: e, storage: mem, handler: New(e, WithOperatorSource(src)).Routes()}
}

func (f *fixture) nonce(t *testing.T) string {
	t.Helper()
	r, err := f.engine.Begin(context.Background(), operator(), engine.Input{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return r.Nonce()
}

func (f *fixture) postRaw(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, PathUpdate, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) postJSON(t *testing.T, body UpdateRequest) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return f.postRaw(t, string(payload))
}

func (f *fixture) status(t *testing.T) StatusResponse {
	t.Helper()
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, PathStatus, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	body := StatusResponse{}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	return body
}

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) view.Result {
	t.Helper()
	res := view.Result{}
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	return res
}

func TestUpdateJSONAppliesView(t *testing.T) {
	f := newFixture(t, true)
	rec := f.postJSON(t, UpdateRequest{View: map[string]any{"role": "editor"}, Nonce: f.nonce(t)})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if res := decodeResult(t, rec); !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}

	status := f.status(t)
	if !status.Active || status.View["role"] != "editor" {
		t.Fatalf("unexpected status: %+v", status)
	}
	if status.Title != "Viewing as Role: Editor" {
		t.Fatalf("unexpected title: %q", status.Title)
	}
	if !reflect.DeepEqual(status.Identity.Roles, []string{"editor"}) {
		t.Fatalf("unexpected roles: %v", status.Identity.Roles)
	}
}

func TestUpdateRejectsBadNonce(t *testing.T) {
	f := newFixture(t, true)
	rec := f.postJSON(t, UpdateRequest{View: map[string]any{"role": "editor"}, Nonce: "forged"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", rec.Code)
	}
	if f.status(t).Active {
		t.Fatalf("expected forged update to be ignored")
	}
}

func TestUpdateRejectionsAreIndistinguishable(t *testing.T) {
	f := newFixture(t, true)
	nonce := f.nonce(t)
	bodies := map[string]string{
		"bad token":       `{"view_admin_as":{"role":"editor"},"view_admin_as_nonce":"forged"}`,
		"missing token":   `{"view_admin_as":{"role":"editor"}}`,
		"bad payload":     `{"view_admin_as":"editor","view_admin_as_nonce":"` + nonce + `"}`,
		"unreadable body": `{"view_admin_as":`,
	}
	var first string
	for name, body := range bodies {
		rec := f.postRaw(t, body)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("%s: expected status 403, got %d", name, rec.Code)
		}
		got := rec.Body.String()
		if first == "" {
			first = got
		}
		if got != first {
			t.Fatalf("%s: expected identical rejection body, got %q and %q", name, got, first)
		}
	}

	rec := f.postRaw(t, `{"view_admin_as_nonce":"`+nonce+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected valid token with empty payload to reach the controller, got %d", rec.Code)
	}
	if res := decodeResult(t, rec); res.Data.Type != view.MessageNothingValid {
		t.Fatalf("expected nothing valid, got %+v", res)
	}
}

func TestUpdateFormRedirectsToReferer(t *testing.T) {
	f := newFixture(t, true)
	form := url.Values{}
	form.Set(controller.ParamView, `{"role":"editor"}`)
	form.Set(controller.ParamNonce, f.nonce(t))
	req := httptest.NewRequest(http.MethodPost, PathUpdate, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Referer", "/admin/posts")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected status 303, got %d", rec.Code)
	}
	if got := rec.Header().Get("Location"); got != "/admin/posts" {
		t.Fatalf("unexpected location: %q", got)
	}
	if !f.status(t).Active {
		t.Fatalf("expected form update to apply")
	}
}

func TestPendingViewRedirectsWithoutParams(t *testing.T) {
	f := newFixture(t, true)
	r, err := f.engine.Begin(context.Background(), operator(), engine.Input{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	link, err := r.ViewLink("/status?page=2", view.View{"role": "editor"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, link, nil))
	if rec.Code != http.StatusFound {
		t.Fatalf("expected status 302, got %d", rec.Code)
	}
	if got := rec.Header().Get("Location"); got != "/status?page=2" {
		t.Fatalf("unexpected location: %q", got)
	}

	records, err := controller.Records(context.Background(), f.storage, "1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected one record, got %v", records)
	}
}

func TestRoutesWithoutOperator(t *testing.T) {
	f := newFixture(t, false)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, PathStatus, nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}

	rec = f.postJSON(t, UpdateRequest{View: map[string]any{"role": "editor"}})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}
}

func TestMenuListsSelectableTypes(t *testing.T) {
	f := newFixture(t, true)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, PathMenu, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	menu := map[string]any{}
	if err := json.NewDecoder(rec.Body).Decode(&menu); err != nil {
		t.Fatalf("decode menu: %v", err)
	}
	if _, ok := menu["role"]; !ok {
		t.Fatalf("expected role menu, got %v", menu)
	}
}

func TestTypesListsLabels(t *testing.T) {
	f := newFixture(t, true)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, PathTypes, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	types := []TypeBody{}
	if err := json.NewDecoder(rec.Body).Decode(&types); err != nil {
		t.Fatalf("decode types: %v", err)
	}
	labels := map[string]string{}
	for _, typ := range types {
		labels[typ.ID] = typ.Label
	}
	if labels["role"] != "Role" || labels["visitor"] != "Site visitor" {
		t.Fatalf("unexpected labels: %v", labels)
	}
}
