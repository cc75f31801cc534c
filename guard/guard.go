package guard

import (
	"context"
	"fmt"

	"github.com/goliatone/go-viewas/engine"
	"github.com/goliatone/go-viewas/ferrors"
)

// Subject answers capability checks for the identity presented downstream.
// *engine.Request satisfies it.
type Subject interface {
	Can(capability string) bool
}

// DeniedError includes the denied capability and unwraps to
// ferrors.ErrAccessDenied.
type DeniedError struct {
	Capability string
}

func (e DeniedError) Error() string {
	if e.Capability == "" {
		return ferrors.ErrAccessDenied.Error()
	}
	return fmt.Sprintf("%s: %s", ferrors.ErrAccessDenied.Error(), e.Capability)
}

func (e DeniedError) Unwrap() error {
	return ferrors.ErrAccessDenied
}

// Option configures Require behavior.
type Option func(*config)

type config struct {
	deniedErr    error
	errorMapper  func(error) error
	alternatives []string
}

// WithDeniedError sets the error returned when the capability is missing.
func WithDeniedError(err error) Option {
	return func(c *config) {
		if c == nil {
			return
		}
		c.deniedErr = err
	}
}

// WithErrorMapper transforms lookup errors before returning them.
func WithErrorMapper(mapper func(error) error) Option {
	return func(c *config) {
		if c == nil {
			return
		}
		c.errorMapper = mapper
	}
}

// WithAlternatives accepts any of caps when the primary capability is missing.
func WithAlternatives(caps ...string) Option {
	return func(c *config) {
		if c == nil {
			return
		}
		c.alternatives = append(c.alternatives, caps...)
	}
}

// Require checks capability against subject and returns an error when
// access is denied. A nil subject is denied.
func Require(_ context.Context, subject Subject, capability string, opts ...Option) error {
	cfg := newConfig(opts)
	if subject == nil {
		return mapErr(cfg, ferrors.ErrOperatorRequired)
	}
	if subject.Can(capability) {
		return nil
	}
	for _, alt := range cfg.alternatives {
		if subject.Can(alt) {
			return nil
		}
	}
	if cfg.deniedErr != nil {
		return cfg.deniedErr
	}
	return DeniedError{Capability: capability}
}

// RequireContext checks capability against the request stored in ctx by
// engine.WithRequest.
func RequireContext(ctx context.Context, capability string, opts ...Option) error {
	r, ok := engine.FromContext(ctx)
	if !ok {
		return mapErr(newConfig(opts), ferrors.ErrOperatorRequired)
	}
	return Require(ctx, r, capability, opts...)
}

func newConfig(opts []Option) *config {
	cfg := &config{}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	return cfg
}

func mapErr(cfg *config, err error) error {
	if err == nil {
		return nil
	}
	if cfg != nil && cfg.errorMapper != nil {
		return cfg.errorMapper(err)
	}
	return err
}
