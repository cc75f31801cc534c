package controller

import (
	"context"
	"encoding/json"

	"github.com/goliatone/go-viewas/catalog"
	"github.com/goliatone/go-viewas/urlbuilder"
	"github.com/goliatone/go-viewas/view"
	"github.com/goliatone/go-viewas/viewtype"
)

// Request carries the view inputs of the current request.
type Request struct {
	// Payload is a one-shot view honored in single mode.
	Payload any
	// Pending is an apply-and-redirect view from a toolbar link.
	Pending any
	// Token is the anti-forgery token sent with Payload or Pending.
	Token string
	// URL is the current request URL, used to build the redirect.
	URL string
}

// Resolution is the outcome of Resolve.
type Resolution struct {
	State    view.State
	Source   view.Source
	View     view.View
	Redirect string
}

// Terminate reports whether request handling must stop after the redirect.
func (r Resolution) Terminate() bool {
	return r.Redirect != ""
}

// Resolve finds the view of the current request. A valid pending view is
// persisted and answered with a redirect; otherwise single mode reads the
// one-shot payload and browse mode reads the session record, ignoring
// expired ones.
func (c *Controller) Resolve(ctx context.Context, req Request) (Resolution, error) {
	if c == nil || c.session == nil || !c.session.Operator().HasBaseAccess() {
		return Resolution{State: view.StateInactive, Source: view.SourceNone}, nil
	}
	c.current = nil
	c.state = view.StateInactive
	c.source = view.SourceNone

	mode := c.Mode(ctx)
	payload := req.Payload
	if req.Pending != nil {
		if mode == view.ModeSingle {
			payload = req.Pending
		} else if res, ok, err := c.resolvePending(ctx, req); err != nil || ok {
			return res, err
		}
	}

	if mode == view.ModeSingle {
		if payload != nil && c.verify(req.Token) {
			c.resolving(c.ValidateViewData(ctx, payload), view.SourceRequest)
		}
		return c.resolution(), nil
	}

	record, ok, err := c.loadRecord(ctx)
	if err != nil {
		return c.resolution(), err
	}
	if ok && !record.Expired(c.now()) {
		c.resolving(c.ValidateViewData(ctx, record.View), view.SourceRecord)
	}
	return c.resolution(), nil
}

func (c *Controller) resolvePending(ctx context.Context, req Request) (Resolution, bool, error) {
	if !c.verify(req.Token) {
		c.logger.Warn("ignored pending view with invalid token", "operator_id", c.session.Operator().ID)
		return Resolution{}, false, nil
	}
	v := c.ValidateViewData(ctx, req.Pending)
	if v.Empty() {
		return Resolution{}, false, nil
	}
	if err := c.saveView(ctx, v); err != nil {
		return c.resolution(), true, err
	}
	c.emit(ctx, activityUpdate(c.session.SessionToken(), v))
	redirect, err := c.redirectURL(req.URL)
	if err != nil {
		return c.resolution(), true, err
	}
	c.source = view.SourcePending
	return Resolution{State: view.StateInactive, Source: view.SourcePending, View: v, Redirect: redirect}, true, nil
}

func (c *Controller) redirectURL(current string) (string, error) {
	if current != "" {
		return urlbuilder.WithQuery(current, nil, ParamView, ParamNonce)
	}
	if c.urls == nil || c.target.IsZero() {
		return "/", nil
	}
	return urlbuilder.Resolve(c.urls, c.target, nil)
}

func (c *Controller) verify(token string) bool {
	if err := c.session.VerifyNonce(NonceAction, token); err != nil {
		c.logger.Debug("view nonce rejected", "error", err)
		return false
	}
	return true
}

func (c *Controller) resolving(v view.View, source view.Source) {
	if v.Empty() {
		return
	}
	c.current = v
	c.state = view.StateResolving
	c.source = source
}

func (c *Controller) resolution() Resolution {
	return Resolution{State: c.state, Source: c.source, View: c.current.Clone()}
}

// ValidateViewData drops unknown or unavailable view types and revalidates
// each remaining payload, dropping the ones that fail. The result never
// holds a key absent from raw.
func (c *Controller) ValidateViewData(ctx context.Context, raw any) view.View {
	if c == nil || c.session == nil {
		return nil
	}
	available := c.Available(ctx)
	out := view.View{}
	for key, value := range view.FromAny(raw) {
		t, ok := available[key]
		if !ok {
			continue
		}
		payload, ok := t.Validate(ctx, c.session, value)
		if !ok {
			continue
		}
		out[key] = payload
	}
	if out.Empty() {
		return nil
	}
	return out
}

// Apply runs every selected view type in ascending priority, commits the
// simulated identity and arms interception once.
func (c *Controller) Apply(ctx context.Context) view.ApplyEvent {
	event := view.ApplyEvent{Source: view.SourceNone, State: view.StateInactive}
	if c == nil || c.session == nil {
		return event
	}
	op := c.session.Operator()
	event.OperatorID = op.ID
	event.SessionToken = op.SessionToken
	event.Mode = c.Mode(ctx)
	event.Source = c.source
	event.View = c.current.Clone()
	if c.state != view.StateResolving {
		event.State = c.state
		return event
	}

	c.session.SetView(c.current)
	c.applied = nil
	for _, t := range c.availableOrdered(ctx) {
		payload, ok := c.current.Get(viewtype.Key(t))
		if !ok {
			continue
		}
		if t.Apply(ctx, c.session, payload) {
			event.Applied = append(event.Applied, viewtype.Key(t))
		} else {
			event.Skipped = append(event.Skipped, viewtype.Key(t))
		}
	}
	c.applied = append([]string(nil), event.Applied...)

	if len(event.Applied) == 0 {
		c.session.SetView(nil)
		c.state = view.StateInactive
	} else {
		c.session.Commit()
		c.state = view.StateActive
		if c.armer != nil {
			c.armer.Arm()
		}
	}
	event.State = c.state
	for _, hook := range c.applyHooks {
		hook.OnApply(ctx, event)
	}
	return event
}

// IsCurrentView reports whether raw equals the active view.
func (c *Controller) IsCurrentView(raw any) bool {
	if c == nil || c.state != view.StateActive {
		return false
	}
	return view.FromAny(raw).Equal(c.current)
}

// Titles renders the toolbar title of every applied view type.
func (c *Controller) Titles(ctx context.Context) []catalog.Message {
	if c == nil || c.state != view.StateActive {
		return nil
	}
	out := make([]catalog.Message, 0, len(c.applied))
	for _, id := range c.applied {
		t, ok := c.registry.Get(id)
		if !ok {
			continue
		}
		payload, _ := c.current.Get(id)
		if msg := t.Title(ctx, c.session, payload); !msg.IsZero() {
			out = append(out, msg)
		}
	}
	return out
}

// ViewLink returns base with the apply-and-redirect parameters for v.
func (c *Controller) ViewLink(base string, v view.View) (string, error) {
	encoded, err := json.Marshal(v.Map())
	if err != nil {
		return "", err
	}
	return urlbuilder.WithQuery(base, map[string]string{
		ParamView:  string(encoded),
		ParamNonce: c.session.Nonce(NonceAction),
	})
}

// DecodeViewParam decodes the view parameter of a toolbar link.
func DecodeViewParam(raw string) (view.View, bool) {
	if raw == "" {
		return nil, false
	}
	var data map[string]any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, false
	}
	v := view.FromAny(data)
	return v, !v.Empty()
}
