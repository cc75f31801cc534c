package kv

import (
	"fmt"
	"strings"
)

// Violation describes a contract violation detected by an Accessor.
type Violation struct {
	Operation string
	Key       string
	Message   string
}

// String implements fmt.Stringer.
func (v Violation) String() string {
	return fmt.Sprintf("kv.%s: %s (key=%q)", v.Operation, v.Message, v.Key)
}

// Accessor routes nested map reads and writes and reports contract
// violations through OnViolation. A zero Accessor is silent.
type Accessor struct {
	OnViolation func(Violation)
}

// Option customizes an Accessor.
type Option func(*Accessor)

// WithViolationHandler sets the diagnostic callback.
func WithViolationHandler(fn func(Violation)) Option {
	return func(a *Accessor) {
		if a == nil {
			return
		}
		a.OnViolation = fn
	}
}

// New builds an Accessor.
func New(opts ...Option) Accessor {
	a := Accessor{}
	for _, opt := range opts {
		if opt != nil {
			opt(&a)
		}
	}
	return a
}

// Get returns data when key is empty, the value stored under key when data is
// a map holding it, and false otherwise.
func Get(data any, key string) (any, bool) {
	if key == "" {
		return data, true
	}
	m, ok := AsMap(data)
	if !ok {
		return nil, false
	}
	value, ok := m[key]
	return value, ok
}

// GetKeys returns the subset of keys present in data. With requireAll set,
// a single missing key yields false.
func GetKeys(data any, keys []string, requireAll bool) (map[string]any, bool) {
	m, ok := AsMap(data)
	if !ok {
		return nil, false
	}
	out := make(map[string]any, len(keys))
	for _, key := range keys {
		value, found := m[key]
		if !found {
			if requireAll {
				return nil, false
			}
			continue
		}
		out[key] = value
	}
	return out, true
}

// GetString returns the string stored under key, trimmed.
func GetString(data any, key string) (string, bool) {
	value, ok := Get(data, key)
	if !ok {
		return "", false
	}
	s, ok := value.(string)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(s), true
}

// GetMap returns the nested map stored under key.
func GetMap(data any, key string) (map[string]any, bool) {
	value, ok := Get(data, key)
	if !ok {
		return nil, false
	}
	return AsMap(value)
}

// Set stores value under key using a silent Accessor.
func Set(data map[string]any, key string, value any, appendKey bool) any {
	return Accessor{}.Set(data, key, value, appendKey)
}

// Set returns value unchanged when key is empty. With appendKey the map is
// created when nil and the key is always written. Without appendKey only
// existing keys are written; a missing key leaves data untouched and reports
// a Violation.
func (a Accessor) Set(data map[string]any, key string, value any, appendKey bool) any {
	if key == "" {
		return value
	}
	if appendKey {
		if data == nil {
			data = map[string]any{}
		}
		data[key] = value
		return data
	}
	if data == nil {
		a.report(Violation{Operation: "set", Key: key, Message: "target map is nil"})
		return data
	}
	if _, ok := data[key]; !ok {
		a.report(Violation{Operation: "set", Key: key, Message: "key does not exist and append is disabled"})
		return data
	}
	data[key] = value
	return data
}

// SetMap is Set for callers that always want a map back.
func (a Accessor) SetMap(data map[string]any, key string, value any, appendKey bool) map[string]any {
	out, ok := a.Set(data, key, value, appendKey).(map[string]any)
	if !ok {
		return data
	}
	return out
}

func (a Accessor) report(v Violation) {
	if a.OnViolation == nil {
		return
	}
	a.OnViolation(v)
}

// AsMap coerces the common nested map shapes into map[string]any.
func AsMap(value any) (map[string]any, bool) {
	switch typed := value.(type) {
	case map[string]any:
		return typed, true
	case map[string]bool:
		out := make(map[string]any, len(typed))
		for key, v := range typed {
			out[key] = v
		}
		return out, true
	case map[string]string:
		out := make(map[string]any, len(typed))
		for key, v := range typed {
			out[key] = v
		}
		return out, true
	case map[string]int:
		out := make(map[string]any, len(typed))
		for key, v := range typed {
			out[key] = v
		}
		return out, true
	default:
		return nil, false
	}
}
