package casbinadapter

import (
	"context"
	"testing"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"github.com/goliatone/go-viewas/directory"
	"github.com/goliatone/go-viewas/engine"
	"github.com/goliatone/go-viewas/identity"
)

const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj && r.act == p.act
`

func newEnforcer(t *testing.T) *casbin.Enforcer {
	t.Helper()
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	policies := [][]string{
		{"members", DefaultObject, "list_members"},
		{"members", DefaultObject, "manage_members"},
		{"members", "reports", "export_reports"},
	}
	for _, p := range policies {
		if _, err := enforcer.AddPolicy(p[0], p[1], p[2]); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if _, err := enforcer.AddGroupingPolicy("1", "members"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := enforcer.AddGroupingPolicy("2", "members"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return enforcer
}

func TestCapabilitiesListActionsForObject(t *testing.T) {
	adapter := New(newEnforcer(t))
	names, err := adapter.Capabilities(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(names) != 2 || names[0] != "list_members" || names[1] != "manage_members" {
		t.Fatalf("unexpected capabilities: %v", names)
	}

	all, err := New(newEnforcer(t), WithObject("")).Capabilities(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected every action, got %v", all)
	}
}

func TestCapabilitiesRequireEnforcer(t *testing.T) {
	if _, err := New(nil).Capabilities(context.Background()); err == nil {
		t.Fatalf("expected error without enforcer")
	}
	if New(nil).HasCapability(context.Background(), "1", "list_members") {
		t.Fatalf("expected denial without enforcer")
	}
}

func TestHasCapabilityEnforcesPolicy(t *testing.T) {
	adapter := New(newEnforcer(t))
	ctx := context.Background()
	if !adapter.HasCapability(ctx, "1", "manage_members") {
		t.Fatalf("expected policy to grant manage_members")
	}
	if adapter.HasCapability(ctx, "3", "manage_members") {
		t.Fatalf("expected unknown subject to be denied")
	}
}

func TestInterceptedCheckUsesViewedIdentity(t *testing.T) {
	ctx := context.Background()
	adapter := New(newEnforcer(t))
	dir := directory.NewMemoryDirectory()
	dir.AddRole(directory.Role{Slug: "member", Name: "Member", Capabilities: identity.Capabilities{"list_members": true}})

	e, err := engine.New(
		engine.WithDirectory(dir),
		engine.WithCapabilitySources(adapter),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	op := identity.Operator{
		ID:           "1",
		SessionToken: "tok",
		SuperAdmin:   true,
		Capabilities: identity.Capabilities{identity.CapViewAdminAs: true, "edit_users": true},
	}
	r, err := e.Begin(ctx, op, engine.Input{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res, err := r.Update(ctx, map[string]any{"role": "member"}, r.Nonce())
	if err != nil || !res.Success {
		t.Fatalf("expected role view to apply, got %+v %v", res, err)
	}
	r, err = e.Begin(ctx, op, engine.Input{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	checker := r.Checker(adapter)
	if !checker.HasCapability(ctx, "1", "list_members") {
		t.Fatalf("expected viewed role to keep list_members")
	}
	if checker.HasCapability(ctx, "1", "manage_members") {
		t.Fatalf("expected viewed role to drop manage_members")
	}
	if !checker.HasCapability(ctx, "2", "manage_members") {
		t.Fatalf("expected other users to use the policy")
	}
}
