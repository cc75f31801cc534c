package httpapi

import (
	"net/http"
	"strings"

	"github.com/goliatone/go-viewas/controller"
	"github.com/goliatone/go-viewas/engine"
)

// Middleware resolves and applies the operator's view and stores the
// request pipeline in the request context. Requests without an operator
// pass through untouched. A pending view from a toolbar link answers with
// a redirect to the same URL without the view parameters.
func (s *Server) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		op, err := s.operators.Operator(ctx)
		if err != nil {
			s.logger.WithContext(ctx).Warn("operator lookup failed", "error", err)
			next.ServeHTTP(w, r)
			return
		}
		if strings.TrimSpace(op.ID) == "" {
			next.ServeHTTP(w, r)
			return
		}

		in := engine.Input{View: viewInput(r)}
		if s.login != nil {
			in.Login = s.login(r)
		}
		if s.logout != nil {
			in.Logout = s.logout(r)
		}
		req, err := s.engine.Begin(ctx, op, in)
		if err != nil {
			s.logger.WithContext(ctx).Error("view pipeline failed", "operator_id", op.ID, "error", err)
			if req == nil {
				next.ServeHTTP(w, r)
				return
			}
		}
		if redirect := req.Redirect(); redirect != "" {
			http.Redirect(w, r, redirect, http.StatusFound)
			return
		}
		next.ServeHTTP(w, r.WithContext(engine.WithRequest(ctx, req)))
	})
}

// viewInput reads the pending view of a toolbar link from the query and the
// one-shot view of a single mode form post from the body.
func viewInput(r *http.Request) controller.Request {
	in := controller.Request{URL: r.URL.String()}
	query := r.URL.Query()
	if raw := query.Get(controller.ParamView); raw != "" {
		if v, ok := controller.DecodeViewParam(raw); ok {
			in.Pending = v.Map()
			in.Token = query.Get(controller.ParamNonce)
		}
	}
	if r.Method == http.MethodPost && isForm(r) && !strings.HasSuffix(r.URL.Path, PathUpdate) {
		if raw := r.PostFormValue(controller.ParamView); raw != "" {
			if v, ok := controller.DecodeViewParam(raw); ok {
				in.Payload = v.Map()
				in.Token = r.PostFormValue(controller.ParamNonce)
			}
		}
	}
	return in
}

func isForm(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	return strings.HasPrefix(ct, "application/x-www-form-urlencoded") || strings.HasPrefix(ct, "multipart/form-data")
}

func isJSON(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}
