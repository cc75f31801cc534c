package activity

import (
	"context"

	"github.com/goliatone/go-viewas/view"
)

// Action describes a view or settings mutation.
type Action string

const (
	ActionUpdate   Action = "update"
	ActionReset    Action = "reset"
	ActionResetAll Action = "reset_all"
	ActionCleanup  Action = "cleanup"
	ActionSettings Action = "settings"
)

// UpdateEvent captures a persisted mutation made on behalf of an operator.
type UpdateEvent struct {
	Action       Action
	OperatorID   string
	UserID       string
	SessionToken string
	Keys         []string
	View         view.View
	Namespace    string
	Removed      int
	Result       view.Result
}

// Hook receives update events.
type Hook interface {
	OnUpdate(ctx context.Context, event UpdateEvent)
}

// HookFunc wraps a function as a Hook.
type HookFunc func(context.Context, UpdateEvent)

// OnUpdate implements Hook.
func (fn HookFunc) OnUpdate(ctx context.Context, event UpdateEvent) {
	if fn == nil {
		return
	}
	fn(ctx, event)
}

// NoopHook ignores updates.
type NoopHook struct{}

// OnUpdate implements Hook.
func (NoopHook) OnUpdate(context.Context, UpdateEvent) {}

// Emit fans an event out to hooks, skipping nil entries.
func Emit(ctx context.Context, hooks []Hook, event UpdateEvent) {
	for _, hook := range hooks {
		if hook != nil {
			hook.OnUpdate(ctx, event)
		}
	}
}
