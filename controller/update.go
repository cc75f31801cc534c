package controller

import (
	"context"
	"strings"

	"github.com/goliatone/go-viewas/activity"
	"github.com/goliatone/go-viewas/ferrors"
	"github.com/goliatone/go-viewas/identity"
	"github.com/goliatone/go-viewas/kv"
	"github.com/goliatone/go-viewas/settings"
	"github.com/goliatone/go-viewas/store"
	"github.com/goliatone/go-viewas/view"
	"github.com/goliatone/go-viewas/viewtype"
)

// Built-in change-set keys handled outside view types.
const (
	KeyReset       = "reset"
	KeySetting     = "setting"
	KeyUserSetting = "user_setting"
)

// ResetAll is the reset value that clears every session of the operator.
const ResetAll = "all"

// Update applies a change-set. Non view type keys run first through their
// handlers, stopping at the first failure. View type keys are validated and
// merged onto the active view, which is then narrowed to exactly the view
// types of this change-set and persisted. In single mode the view is applied
// to the current request instead and never persisted. Unknown keys and
// invalid payloads are dropped.
func (c *Controller) Update(ctx context.Context, changes map[string]any) (view.Result, error) {
	if c == nil || c.session == nil {
		return view.Fail(), ferrors.ErrOperatorRequired
	}
	if !c.session.Operator().HasBaseAccess() {
		return view.Failure(view.MessageError, "Access denied"), nil
	}
	normalized := map[string]any{}
	for key, value := range changes {
		if key = view.NormalizeKey(key); key != "" {
			normalized[key] = value
		}
	}
	if len(normalized) == 0 {
		return view.NothingValid(), nil
	}
	ctx = identity.WithSessionToken(ctx, c.session.SessionToken())

	var viewKeys []string
	handled := false
	result := view.Ok()
	for _, key := range sortedKeys(normalized) {
		if _, registered := c.registry.Get(key); registered {
			continue
		}
		handler, ok := c.handlers[key]
		if !ok {
			c.logger.Debug("dropped change-set key without handler", "key", key)
			continue
		}
		res, err := handler.HandleUpdate(ctx, c, normalized[key])
		if err != nil {
			if res.Success {
				res = view.Fail()
			}
			return res, err
		}
		if !res.Success {
			return res, nil
		}
		handled = true
		result = mergeResult(result, res)
	}

	base := c.activeView(ctx)
	candidate := base.Clone()
	if candidate == nil {
		candidate = view.View{}
	}
	for _, t := range c.availableOrdered(ctx) {
		key := viewtype.Key(t)
		raw, ok := normalized[key]
		if !ok {
			continue
		}
		current, _ := base.Get(key)
		payload, ok := c.updateType(ctx, t, current, raw)
		if !ok {
			continue
		}
		candidate[key] = payload
		viewKeys = append(viewKeys, key)
	}

	if len(viewKeys) == 0 {
		if handled {
			return result, nil
		}
		return view.NothingValid(), nil
	}
	candidate = candidate.Intersect(viewKeys)
	if candidate.Equal(base) {
		return view.AlreadySelected(), nil
	}

	if c.Mode(ctx) == view.ModeSingle {
		c.session.ResetSelection()
		c.current = nil
		c.state = view.StateInactive
		c.resolving(candidate, view.SourceRequest)
		if event := c.Apply(ctx); event.State != view.StateActive {
			return view.Fail(), nil
		}
		return result, nil
	}
	if err := c.saveView(ctx, candidate); err != nil {
		return view.Fail(), err
	}
	c.emit(ctx, activityUpdate(c.session.SessionToken(), candidate))
	return result, nil
}

func (c *Controller) updateType(ctx context.Context, t viewtype.Type, current, raw any) (any, bool) {
	if updater, ok := c.updaters[viewtype.Key(t)]; ok {
		return updater.UpdateView(ctx, c, t, current, raw)
	}
	payload, ok := t.Validate(ctx, c.session, raw)
	if !ok {
		return nil, false
	}
	if merger, ok := t.(viewtype.Merger); ok && current != nil {
		payload = merger.Merge(current, payload)
	}
	return payload, true
}

// activeView returns the view a change-set is compared and merged against:
// the request's view when one resolved, otherwise the live session record.
func (c *Controller) activeView(ctx context.Context) view.View {
	if !c.current.Empty() {
		return c.current.Clone()
	}
	if c.Mode(ctx) == view.ModeSingle {
		return nil
	}
	record, ok, err := c.loadRecord(ctx)
	if err != nil || !ok || record.Expired(c.now()) {
		return nil
	}
	return c.ValidateViewData(ctx, record.View)
}

func mergeResult(into, res view.Result) view.Result {
	if res.Data.Redirect != "" {
		into.Data.Redirect = res.Data.Redirect
	}
	if res.Data.Display != "" {
		into.Data.Display = res.Data.Display
	}
	if res.Data.Type != "" {
		into.Data.Type = res.Data.Type
		into.Data.Text = res.Data.Text
	}
	into.Data.List = append(into.Data.List, res.Data.List...)
	if res.Data.Textarea != "" {
		into.Data.Textarea = res.Data.Textarea
	}
	return into
}

func activityUpdate(token string, v view.View) activity.UpdateEvent {
	return activity.UpdateEvent{
		Action:       activity.ActionUpdate,
		SessionToken: token,
		Keys:         v.Keys(),
		View:         v.Clone(),
	}
}

func handleReset(ctx context.Context, c *Controller, value any) (view.Result, error) {
	if s, ok := value.(string); ok && strings.EqualFold(strings.TrimSpace(s), ResetAll) {
		if err := c.ResetAllViews(ctx, c.session.Operator().ID); err != nil {
			return view.Fail(), err
		}
		c.current = nil
		return view.Ok(), nil
	}
	if !kv.Bool(value) {
		return view.Fail(), nil
	}
	if err := c.ResetView(ctx, c.session.SessionToken()); err != nil {
		return view.Fail(), err
	}
	c.current = nil
	return view.Ok(), nil
}

func handleSetting(ctx context.Context, c *Controller, value any) (view.Result, error) {
	if !c.session.Operator().Can(identity.CapManageOptions) {
		return view.Failure(view.MessageError, "Access denied"), nil
	}
	return c.updateSettings(ctx, store.Global(), value)
}

func handleUserSetting(ctx context.Context, c *Controller, value any) (view.Result, error) {
	res, err := c.updateSettings(ctx, store.User(c.session.Operator().ID), value)
	c.modeLoaded = false
	return res, err
}

func (c *Controller) updateSettings(ctx context.Context, scope store.Scope, value any) (view.Result, error) {
	if c.settings == nil {
		return view.Fail(), ferrors.ErrStoreRequired
	}
	changes, ok := kv.AsMap(value)
	if !ok || len(changes) == 0 {
		return view.NothingValid(), nil
	}
	after, changed, err := c.settings.Update(ctx, scope, settings.NamespaceCore, changes)
	if err != nil {
		return view.Fail(), err
	}
	if !changed {
		return view.NothingValid(), nil
	}
	c.emit(ctx, activity.UpdateEvent{
		Action:    activity.ActionSettings,
		UserID:    scope.UserID,
		Namespace: settings.NamespaceCore,
		Keys:      sortedKeys(after),
	})
	return view.Ok(), nil
}

// ModeChangeHook resets the current session's view when a user's view mode
// changes, or every session when the change carries no session token.
func ModeChangeHook(rw store.ReadWriter) settings.ChangeHook {
	return settings.ChangeHookFunc(func(ctx context.Context, change settings.Change) error {
		if change.Namespace != settings.NamespaceCore || change.Scope.Kind != store.ScopeUser {
			return nil
		}
		if !change.Changed(settings.KeyViewMode) {
			return nil
		}
		token := identity.SessionToken(ctx)
		_, err := RemoveRecords(ctx, rw, change.Scope.UserID, func(t string, _ view.Record) bool {
			return token == "" || t == token
		})
		return err
	})
}
