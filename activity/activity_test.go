package activity

import (
	"context"
	"testing"
)

func TestEmitSkipsNilHooks(t *testing.T) {
	var got []Action
	hook := HookFunc(func(_ context.Context, event UpdateEvent) {
		got = append(got, event.Action)
	})
	Emit(context.Background(), []Hook{nil, hook, NoopHook{}, hook}, UpdateEvent{Action: ActionReset})
	if len(got) != 2 || got[0] != ActionReset {
		t.Fatalf("unexpected events: %v", got)
	}
	var nilFn HookFunc
	nilFn.OnUpdate(context.Background(), UpdateEvent{})
}
