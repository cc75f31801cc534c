// Package compat defines the contract third-party permission systems use to
// contribute capabilities to the override engine.
package compat

import (
	"context"
	"sort"
	"strings"
)

// CapabilitySource contributes externally defined capability names.
type CapabilitySource interface {
	Name() string
	Capabilities(ctx context.Context) ([]string, error)
}

// StaticSource returns a fixed list.
type StaticSource struct {
	SourceName string
	Names      []string
}

// Name implements CapabilitySource.
func (s StaticSource) Name() string {
	if s.SourceName == "" {
		return "static"
	}
	return s.SourceName
}

// Capabilities implements CapabilitySource.
func (s StaticSource) Capabilities(_ context.Context) ([]string, error) {
	return Normalize(s.Names), nil
}

// SourceFunc adapts a function to CapabilitySource.
type SourceFunc struct {
	SourceName string
	Fn         func(ctx context.Context) ([]string, error)
}

// Name implements CapabilitySource.
func (s SourceFunc) Name() string {
	return s.SourceName
}

// Capabilities implements CapabilitySource.
func (s SourceFunc) Capabilities(ctx context.Context) ([]string, error) {
	if s.Fn == nil {
		return nil, nil
	}
	names, err := s.Fn(ctx)
	if err != nil {
		return nil, err
	}
	return Normalize(names), nil
}

// Normalize trims, dedupes and sorts capability names.
func Normalize(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

var _ CapabilitySource = StaticSource{}
var _ CapabilitySource = SourceFunc{}
