package engine

import (
	"context"
	"strings"

	"github.com/goliatone/go-viewas/catalog"
	"github.com/goliatone/go-viewas/controller"
	"github.com/goliatone/go-viewas/ferrors"
	"github.com/goliatone/go-viewas/intercept"
	"github.com/goliatone/go-viewas/session"
	"github.com/goliatone/go-viewas/view"
	"github.com/goliatone/go-viewas/viewtype"
)

// Request is the per-request view state built by Engine.Begin.
type Request struct {
	engine      *Engine
	session     *session.Store
	controller  *controller.Controller
	interceptor *intercept.Interceptor
	resolution  controller.Resolution
	event       view.ApplyEvent
}

// Session returns the request session.
func (r *Request) Session() *session.Store {
	if r == nil {
		return nil
	}
	return r.session
}

// Controller returns the request controller.
func (r *Request) Controller() *controller.Controller {
	if r == nil {
		return nil
	}
	return r.controller
}

// Interceptor returns the request interceptor.
func (r *Request) Interceptor() *intercept.Interceptor {
	if r == nil {
		return nil
	}
	return r.interceptor
}

// Resolution returns the outcome of view resolution.
func (r *Request) Resolution() controller.Resolution {
	if r == nil {
		return controller.Resolution{}
	}
	return r.resolution
}

// Event returns the apply event.
func (r *Request) Event() view.ApplyEvent {
	if r == nil {
		return view.ApplyEvent{}
	}
	return r.event
}

// Redirect returns the URL the request must redirect to, if any.
func (r *Request) Redirect() string {
	if r == nil {
		return ""
	}
	return r.resolution.Redirect
}

// Active reports whether a view is applied.
func (r *Request) Active() bool {
	return r != nil && r.controller.State() == view.StateActive
}

// Identity returns the identity presented downstream.
func (r *Request) Identity() session.Identity {
	if r == nil {
		return session.Identity{}
	}
	return r.session.Identity()
}

// Can reports whether the presented identity holds capability.
func (r *Request) Can(capability string) bool {
	if r == nil {
		return false
	}
	return r.session.Identity().Can(capability)
}

// IsCurrentView reports whether raw equals the active view.
func (r *Request) IsCurrentView(raw any) bool {
	if r == nil {
		return false
	}
	return r.controller.IsCurrentView(raw)
}

// Titles returns the toolbar title messages of the active view.
func (r *Request) Titles(ctx context.Context) []catalog.Message {
	if r == nil {
		return nil
	}
	return r.controller.Titles(ctx)
}

// Title renders the active view's titles with resolver, joined by ", ".
// A nil resolver renders plain text.
func (r *Request) Title(ctx context.Context, resolver catalog.MessageResolver) string {
	if resolver == nil {
		resolver = catalog.PlainResolver{}
	}
	locale := r.Identity().Locale
	parts := []string{}
	for _, msg := range r.Titles(ctx) {
		text, err := resolver.Resolve(ctx, locale, msg)
		if err != nil || text == "" {
			continue
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, ", ")
}

// Menu returns the selectable items of every available view type.
func (r *Request) Menu(ctx context.Context) (map[string][]viewtype.MenuItem, error) {
	out := map[string][]viewtype.MenuItem{}
	if r == nil {
		return out, nil
	}
	for id, t := range r.controller.Available(ctx) {
		items, err := t.Menu(ctx, r.session)
		if err != nil {
			return nil, err
		}
		if len(items) > 0 {
			out[id] = items
		}
	}
	return out, nil
}

// ViewTypes describes the view types available to the operator, in apply
// order. Types missing from the catalog are labeled with their ID.
func (r *Request) ViewTypes(ctx context.Context) []catalog.ViewTypeDefinition {
	if r == nil {
		return nil
	}
	available := r.controller.Available(ctx)
	types := make([]viewtype.Type, 0, len(available))
	for _, t := range available {
		types = append(types, t)
	}
	viewtype.SortByPriority(types)
	out := make([]catalog.ViewTypeDefinition, 0, len(types))
	for _, t := range types {
		id := viewtype.Key(t)
		def, ok := r.engine.catalog.Get(id)
		if !ok {
			def = catalog.ViewTypeDefinition{ID: id, Label: catalog.Message{Text: id}}
		}
		out = append(out, def)
	}
	return out
}

// Nonce returns the anti-forgery token for view change requests.
func (r *Request) Nonce() string {
	if r == nil {
		return ""
	}
	return r.session.Nonce(controller.NonceAction)
}

// VerifyNonce checks an anti-forgery token for view change requests.
func (r *Request) VerifyNonce(token string) error {
	if r == nil {
		return ferrors.ErrNonceInvalid
	}
	return r.session.VerifyNonce(controller.NonceAction, token)
}

// Update verifies the anti-forgery token and applies a change-set. A bad
// token yields a generic failure and never reaches the controller.
func (r *Request) Update(ctx context.Context, changes map[string]any, token string) (view.Result, error) {
	if r == nil {
		return view.Fail(), ferrors.ErrOperatorRequired
	}
	if err := r.session.VerifyNonce(controller.NonceAction, token); err != nil {
		return view.Fail(), err
	}
	return r.controller.Update(ctx, changes)
}

// ViewLink returns base with apply-and-redirect parameters for v.
func (r *Request) ViewLink(base string, v view.View) (string, error) {
	if r == nil {
		return "", ferrors.ErrOperatorRequired
	}
	return r.controller.ViewLink(base, v)
}

// Checker decorates a host capability checker with the simulated identity.
func (r *Request) Checker(host intercept.CapabilityChecker) *intercept.Checker {
	return intercept.NewChecker(host, r.Interceptor())
}

// MetaStore decorates a host metadata store with the simulated identity.
func (r *Request) MetaStore(host intercept.MetaStore) *intercept.ScopedIdentityStore {
	return intercept.NewScopedIdentityStore(host, r.Interceptor())
}

type requestKey struct{}

// WithRequest stores r in context.
func WithRequest(ctx context.Context, r *Request) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, requestKey{}, r)
}

// FromContext returns the request stored by WithRequest.
func FromContext(ctx context.Context) (*Request, bool) {
	if ctx == nil {
		return nil, false
	}
	r, ok := ctx.Value(requestKey{}).(*Request)
	return r, ok && r != nil
}
