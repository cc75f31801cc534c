package kv

import (
	"errors"
	"strings"
)

// ErrPathRequired signals an empty dotted path.
var ErrPathRequired = errors.New("kv: path is required")

// ErrPathInvalid signals a path segment that is not a map.
var ErrPathInvalid = errors.New("kv: path segment is not a map")

// SplitPath splits a dotted path, skipping empty segments.
func SplitPath(path string) []string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil
	}
	parts := strings.Split(trimmed, ".")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

// GetPath resolves a dotted path. A literal key matching the full path wins.
func GetPath(snapshot map[string]any, path string) (any, bool) {
	if len(snapshot) == 0 {
		return nil, false
	}
	if value, ok := snapshot[path]; ok {
		return value, true
	}
	segments := SplitPath(path)
	if len(segments) == 0 {
		return nil, false
	}
	var current any = snapshot
	for _, segment := range segments {
		next, ok := AsMap(current)
		if !ok {
			return nil, false
		}
		value, ok := next[segment]
		if !ok {
			return nil, false
		}
		current = value
	}
	return current, true
}

// SetPath writes value at a dotted path, creating intermediate maps.
func SetPath(snapshot map[string]any, path string, value any) error {
	segments := SplitPath(path)
	if len(segments) == 0 {
		return ErrPathRequired
	}
	current := snapshot
	for _, segment := range segments[:len(segments)-1] {
		next, ok := current[segment]
		if !ok || next == nil {
			child := map[string]any{}
			current[segment] = child
			current = child
			continue
		}
		child, ok := next.(map[string]any)
		if !ok {
			return ErrPathInvalid
		}
		current = child
	}
	current[segments[len(segments)-1]] = value
	return nil
}

// DeletePath removes a dotted path and prunes maps left empty.
func DeletePath(snapshot map[string]any, path string) bool {
	segments := SplitPath(path)
	if len(segments) == 0 || len(snapshot) == 0 {
		return false
	}
	var (
		nodes []map[string]any
		keys  []string
	)
	current := snapshot
	for _, segment := range segments {
		nodes = append(nodes, current)
		keys = append(keys, segment)
		if len(keys) == len(segments) {
			break
		}
		next, ok := current[segment].(map[string]any)
		if !ok {
			return false
		}
		current = next
	}

	last := nodes[len(nodes)-1]
	if _, ok := last[keys[len(keys)-1]]; !ok {
		return false
	}
	delete(last, keys[len(keys)-1])

	for i := len(nodes) - 1; i > 0; i-- {
		if len(nodes[i]) != 0 {
			break
		}
		delete(nodes[i-1], keys[i-1])
	}
	return true
}

// Flatten writes every leaf of data into out keyed by its dotted path.
func Flatten(prefix string, data map[string]any, out map[string]any) {
	if len(data) == 0 {
		return
	}
	for key, value := range data {
		if key == "" {
			continue
		}
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		if child, ok := value.(map[string]any); ok {
			Flatten(path, child, out)
			continue
		}
		out[path] = value
	}
}
