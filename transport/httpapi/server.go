// Package httpapi serves view change requests over HTTP and runs the view
// pipeline for every request routed through its middleware.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/goliatone/go-viewas/catalog"
	"github.com/goliatone/go-viewas/engine"
	"github.com/goliatone/go-viewas/identity"
	"github.com/goliatone/go-viewas/logger"
)

// Route paths mounted by Routes.
const (
	PathUpdate = "/update"
	PathStatus = "/status"
	PathMenu   = "/menu"
	PathTypes  = "/types"
)

// Server wires an engine to net/http.
type Server struct {
	engine    *engine.Engine
	operators identity.Source
	logger    logger.Logger
	login     func(*http.Request) bool
	logout    func(*http.Request) bool
	fallback  string
	resolver  catalog.MessageResolver
}

// Option customizes the server.
type Option func(*Server)

// WithOperatorSource sets how the operator of a request is found. The
// default reads the operator stored with identity.WithOperator.
func WithOperatorSource(src identity.Source) Option {
	return func(s *Server) {
		if s == nil || src == nil {
			return
		}
		s.operators = src
	}
}

// WithLogger sets the logger.
func WithLogger(lgr logger.Logger) Option {
	return func(s *Server) {
		if s == nil || lgr == nil {
			return
		}
		s.logger = lgr
	}
}

// WithLoginDetector marks the requests that complete a login.
func WithLoginDetector(fn func(*http.Request) bool) Option {
	return func(s *Server) {
		if s == nil {
			return
		}
		s.login = fn
	}
}

// WithLogoutDetector marks the requests that end a session.
func WithLogoutDetector(fn func(*http.Request) bool) Option {
	return func(s *Server) {
		if s == nil {
			return
		}
		s.logout = fn
	}
}

// WithMessageResolver sets how titles and labels are rendered.
func WithMessageResolver(resolver catalog.MessageResolver) Option {
	return func(s *Server) {
		if s == nil || resolver == nil {
			return
		}
		s.resolver = resolver
	}
}

// WithFallbackRedirect sets where full-page updates without a referrer
// return to.
func WithFallbackRedirect(path string) Option {
	return func(s *Server) {
		if s == nil || path == "" {
			return
		}
		s.fallback = path
	}
}

// New builds a server for e.
func New(e *engine.Engine, opts ...Option) *Server {
	s := &Server{
		engine:    e,
		operators: identity.ContextSource{},
		logger:    logger.Discard(),
		fallback:  "/",
		resolver:  catalog.PlainResolver{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Routes returns a router serving the view endpoints behind Middleware.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(s.Middleware)
	r.Post(PathUpdate, s.handleUpdate)
	r.Get(PathStatus, s.handleStatus)
	r.Get(PathMenu, s.handleMenu)
	r.Get(PathTypes, s.handleTypes)
	return r
}
