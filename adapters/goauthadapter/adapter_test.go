package goauthadapter

import (
	"context"
	"testing"

	"github.com/goliatone/go-auth"

	"github.com/goliatone/go-viewas/directory"
	"github.com/goliatone/go-viewas/identity"
)

func TestOperatorSourceResolvesRoleCapabilities(t *testing.T) {
	dir := directory.NewMemoryDirectory()
	dir.AddRole(directory.Role{Slug: "admin", Name: "Admin", Capabilities: identity.Capabilities{"view_admin_as": true, "edit_users": true}})

	source := NewOperatorSource(
		WithRoles(dir),
		WithActorExtractor(func(context.Context) (*auth.ActorContext, bool) {
			return &auth.ActorContext{ActorID: "42", Subject: "ana", Role: "admin"}, true
		}),
	)
	ctx := identity.WithSessionToken(context.Background(), "tok")
	op, err := source.Operator(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if op.ID != "42" || op.Login != "ana" || op.SessionToken != "tok" {
		t.Fatalf("unexpected operator: %+v", op)
	}
	if !op.HasBaseAccess() || !op.Can("edit_users") {
		t.Fatalf("expected role capabilities, got %v", op.Capabilities)
	}
	if op.SuperAdmin {
		t.Fatalf("expected non super admin")
	}
}

func TestOperatorSourceSuperAdminRole(t *testing.T) {
	source := NewOperatorSource(
		WithSuperAdminRoles("owner"),
		WithActorExtractor(func(context.Context) (*auth.ActorContext, bool) {
			return &auth.ActorContext{Subject: "root", Role: "owner"}, true
		}),
	)
	op, err := source.Operator(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if op.ID != "root" || !op.SuperAdmin {
		t.Fatalf("expected super admin falling back to subject, got %+v", op)
	}
}

func TestOperatorSourceWithoutActor(t *testing.T) {
	source := NewOperatorSource(WithActorExtractor(func(context.Context) (*auth.ActorContext, bool) {
		return nil, false
	}))
	op, err := source.Operator(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if op.ID != "" {
		t.Fatalf("expected empty operator, got %+v", op)
	}
}
