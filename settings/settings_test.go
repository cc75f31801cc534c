package settings

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-viewas/ferrors"
	"github.com/goliatone/go-viewas/kv"
	"github.com/goliatone/go-viewas/store"
)

func newTestStore(t *testing.T, opts ...Option) (*Store, *store.MemoryStore) {
	t.Helper()
	registry, err := NewRegistry(CoreNamespace("role", "caps", "user", "visitor", "locale"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mem := store.NewMemoryStore()
	return NewStore(registry, mem, opts...), mem
}

func TestValidateMergeFillsDefaultsAndRejects(t *testing.T) {
	def := CoreNamespace().User
	got := def.Validate(map[string]any{
		KeyViewMode:  "single",
		KeyHideFront: "maybe",
		"unknown":    "x",
	}, true)

	if got[KeyViewMode] != "single" {
		t.Fatalf("expected allowed value to survive, got %v", got[KeyViewMode])
	}
	if got[KeyHideFront] != "no" {
		t.Fatalf("expected invalid value to fall back to default, got %v", got[KeyHideFront])
	}
	if got[KeyAdminMenuLocation] != "top-secondary" {
		t.Fatalf("expected missing key to be filled from defaults")
	}
	if _, ok := got["unknown"]; ok {
		t.Fatalf("expected unknown key to be dropped")
	}
}

func TestValidateStrictNeverInvents(t *testing.T) {
	def := CoreNamespace().User
	got := def.Validate(map[string]any{
		KeyViewMode:  "single",
		KeyHideFront: "maybe",
		"unknown":    "x",
	}, false)
	if len(got) != 1 || got[KeyViewMode] != "single" {
		t.Fatalf("unexpected strict result: %v", got)
	}
}

func TestValidateIsFixedPoint(t *testing.T) {
	inputs := []map[string]any{
		nil,
		{KeyViewMode: "single"},
		{KeyViewMode: 3, KeyFreezeLocale: "yes", "x": 1},
		{KeyAdminMenuLocation: "my-account", KeyHideCustomizer: "bogus"},
	}
	def := CoreNamespace().User
	for _, input := range inputs {
		once := def.Validate(input, true)
		twice := def.Validate(once, true)
		if !kv.Equal(once, twice) {
			t.Fatalf("validate not idempotent for %v: %v vs %v", input, once, twice)
		}
	}
	global := CoreNamespace("role").Global
	once := global.Validate(map[string]any{ViewTypeKey("role"): 0}, true)
	if !kv.Equal(once, global.Validate(once, true)) {
		t.Fatalf("global validate not idempotent: %v", once)
	}
}

func TestRegistryRejectsConflicts(t *testing.T) {
	registry, err := NewRegistry(CoreNamespace())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err = registry.Register(Namespace{ID: NamespaceCore})
	if !errors.Is(err, ferrors.ErrNamespaceConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if err := registry.Register(Namespace{ID: " "}); !errors.Is(err, ferrors.ErrNamespaceRequired) {
		t.Fatalf("expected namespace required, got %v", err)
	}
	if err := registry.Register(Namespace{ID: "shop"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ids := registry.IDs(); len(ids) != 2 || ids[0] != NamespaceCore {
		t.Fatalf("unexpected ids: %v", ids)
	}
}

func TestStoreGetReturnsDefaultsWhenEmpty(t *testing.T) {
	s, _ := newTestStore(t)
	mode, err := s.ViewMode(context.Background(), "1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mode != ViewModeBrowse {
		t.Fatalf("ViewMode() = %q, want browse", mode)
	}
	enabled, err := s.ViewTypeEnabled(context.Background(), "custom")
	if err != nil || !enabled {
		t.Fatalf("expected undeclared view type to be enabled, got %v %v", enabled, err)
	}
}

func TestStoreUpdatePersistsAndNotifies(t *testing.T) {
	var changes []Change
	s, mem := newTestStore(t, WithHook(ChangeHookFunc(func(_ context.Context, change Change) error {
		changes = append(changes, change)
		return nil
	})))
	ctx := context.Background()

	after, ok, err := s.Update(ctx, store.User("1"), NamespaceCore, map[string]any{
		KeyViewMode: ViewModeSingle,
		"bogus":     true,
	})
	if err != nil || !ok {
		t.Fatalf("expected update to apply, ok=%v err=%v", ok, err)
	}
	if after[KeyViewMode] != ViewModeSingle {
		t.Fatalf("unexpected settings: %v", after)
	}
	if len(changes) != 1 || !changes[0].Changed(KeyViewMode) || changes[0].Changed(KeyHideFront) {
		t.Fatalf("unexpected change events: %+v", changes)
	}

	raw, found, err := mem.Read(ctx, store.User("1"), store.Key)
	if err != nil || !found {
		t.Fatalf("expected user document to be stored")
	}
	stored, _ := kv.GetPath(raw, "settings.core.view_mode")
	if stored != ViewModeSingle {
		t.Fatalf("unexpected stored view mode: %v", stored)
	}
	if _, ok := kv.GetPath(raw, "settings.core.bogus"); ok {
		t.Fatalf("expected unknown key not to be stored")
	}
}

func TestStoreUpdateIgnoresInvalidChangeSet(t *testing.T) {
	s, mem := newTestStore(t)
	_, ok, err := s.Update(context.Background(), store.User("1"), NamespaceCore, map[string]any{
		KeyViewMode: "forever",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("expected nothing to be accepted")
	}
	if mem.Writes() != 0 {
		t.Fatalf("expected no writes, got %d", mem.Writes())
	}
}

func TestStoreGlobalToggle(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	if _, _, err := s.Update(ctx, store.Global(), NamespaceCore, map[string]any{ViewTypeKey("caps"): false}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	enabled, err := s.ViewTypeEnabled(ctx, "caps")
	if err != nil || enabled {
		t.Fatalf("expected caps to be disabled, got %v %v", enabled, err)
	}
	enabled, _ = s.ViewTypeEnabled(ctx, "role")
	if !enabled {
		t.Fatalf("expected role to stay enabled")
	}
}

func TestStoreUnknownNamespace(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.Get(context.Background(), store.Global(), "missing")
	if !errors.Is(err, ferrors.ErrNamespaceUnknown) {
		t.Fatalf("expected unknown namespace, got %v", err)
	}
}
