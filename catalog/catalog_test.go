package catalog

import (
	"context"
	"testing"
)

func TestStaticCatalogGetNormalizesID(t *testing.T) {
	cat := NewStatic(map[string]ViewTypeDefinition{
		" Role ": {
			Label: Message{Text: " Role "},
		},
	})

	def, ok := cat.Get("role")
	if !ok {
		t.Fatalf("expected definition to be found")
	}
	if def.ID != "role" {
		t.Fatalf("expected normalized id, got %q", def.ID)
	}
	if def.Label.Text != "Role" {
		t.Fatalf("unexpected label: %q", def.Label.Text)
	}
}

func TestPlainResolverPrefersText(t *testing.T) {
	resolver := PlainResolver{}
	msg := Message{
		Key:  KeyRole,
		Text: "Role",
	}
	value, err := resolver.Resolve(context.Background(), "en", msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value != "Role" {
		t.Fatalf("expected text to be returned, got %q", value)
	}

	value, err = resolver.Resolve(context.Background(), "en", Message{Key: KeyRole})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value != KeyRole {
		t.Fatalf("expected key to be returned, got %q", value)
	}
}

func TestPlainResolverSubstitutesArgs(t *testing.T) {
	value, err := PlainResolver{}.Resolve(context.Background(), "", Message{
		Text: "Viewing as {type}: {value}",
		Args: map[string]any{"type": "Role", "value": "Editor"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value != "Viewing as Role: Editor" {
		t.Fatalf("unexpected value: %q", value)
	}
}

func TestMergeOverlaysDefinitions(t *testing.T) {
	base := NewStatic(Builtin())
	merged := base.Merge(NewStatic(map[string]ViewTypeDefinition{
		"role": {Label: Message{Text: "Rol"}},
		"shop": {Label: Message{Text: "Shop"}},
	}))
	role, _ := merged.Get("role")
	if role.Label.Text != "Rol" {
		t.Fatalf("expected override, got %q", role.Label.Text)
	}
	if len(merged.List()) != 6 {
		t.Fatalf("expected six definitions, got %d", len(merged.List()))
	}
}
