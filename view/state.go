package view

import "context"

// Mode selects how views are carried between requests.
type Mode string

const (
	// ModeBrowse persists the view per session until reset or expiry.
	ModeBrowse Mode = "browse"
	// ModeSingle applies a view to the submitting request only.
	ModeSingle Mode = "single"
)

// ParseMode falls back to browse for unknown values.
func ParseMode(value string) Mode {
	if Mode(value) == ModeSingle {
		return ModeSingle
	}
	return ModeBrowse
}

// State is the lifecycle state of the request's view.
type State string

const (
	StateInactive  State = "inactive"
	StateResolving State = "resolving"
	StateActive    State = "active"
)

// Source tells where the resolved view came from.
type Source string

const (
	SourceNone    Source = "none"
	SourceRecord  Source = "record"
	SourceRequest Source = "request"
	SourcePending Source = "pending"
)

// ApplyEvent is emitted once a request's view has been applied.
type ApplyEvent struct {
	OperatorID   string
	SessionToken string
	Mode         Mode
	Source       Source
	View         View
	Applied      []string
	Skipped      []string
	State        State
}

// ApplyHook receives apply events.
type ApplyHook interface {
	OnApply(ctx context.Context, event ApplyEvent)
}

// ApplyHookFunc wraps a function as an ApplyHook.
type ApplyHookFunc func(context.Context, ApplyEvent)

// OnApply implements ApplyHook.
func (fn ApplyHookFunc) OnApply(ctx context.Context, event ApplyEvent) {
	if fn == nil {
		return
	}
	fn(ctx, event)
}
