package kv

import (
	"encoding/json"
	"reflect"
	"strconv"
	"strings"
)

// Clone deep copies maps and slices. Other values are returned as is.
func Clone(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		return CloneMap(typed)
	case map[string]bool:
		out := make(map[string]bool, len(typed))
		for key, v := range typed {
			out[key] = v
		}
		return out
	case map[string]string:
		out := make(map[string]string, len(typed))
		for key, v := range typed {
			out[key] = v
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, v := range typed {
			out[i] = Clone(v)
		}
		return out
	case []string:
		out := make([]string, len(typed))
		copy(out, typed)
		return out
	default:
		return value
	}
}

// CloneMap deep copies a nested map. A nil map stays nil.
func CloneMap(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}
	out := make(map[string]any, len(data))
	for key, value := range data {
		out[key] = Clone(value)
	}
	return out
}

// Equal compares two values structurally. Maps compare without regard to
// order, numeric kinds compare by value, and lists compare in order.
func Equal(a, b any) bool {
	if am, ok := AsMap(a); ok {
		bm, ok := AsMap(b)
		if !ok || len(am) != len(bm) {
			return false
		}
		for key, av := range am {
			bv, ok := bm[key]
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	}
	if as, ok := asSlice(a); ok {
		bs, ok := asSlice(b)
		if !ok || len(as) != len(bs) {
			return false
		}
		for i := range as {
			if !Equal(as[i], bs[i]) {
				return false
			}
		}
		return true
	}
	if ab, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			return ab == bb
		}
		if bf, ok := Number(b); ok && (bf == 0 || bf == 1) {
			return ab == (bf == 1)
		}
		return false
	}
	if _, ok := b.(bool); ok {
		return Equal(b, a)
	}
	if af, ok := Number(a); ok {
		bf, ok := Number(b)
		return ok && af == bf
	}
	return scalarEqual(a, b)
}

// scalarEqual compares leftover values without panicking on uncomparable
// dynamic types such as []int or map[int]any.
func scalarEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	av, bv := reflect.ValueOf(a), reflect.ValueOf(b)
	if av.Type() != bv.Type() {
		return false
	}
	if av.Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}

// Number coerces numeric kinds and json.Number into float64.
func Number(value any) (float64, bool) {
	switch typed := value.(type) {
	case int:
		return float64(typed), true
	case int8:
		return float64(typed), true
	case int16:
		return float64(typed), true
	case int32:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case uint:
		return float64(typed), true
	case uint8:
		return float64(typed), true
	case uint16:
		return float64(typed), true
	case uint32:
		return float64(typed), true
	case uint64:
		return float64(typed), true
	case float32:
		return float64(typed), true
	case float64:
		return typed, true
	case json.Number:
		f, err := typed.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// Bool reports the truthiness of a loosely typed flag: true, non-zero
// numbers and the strings "1", "true", "yes" and "on".
func Bool(value any) bool {
	switch typed := value.(type) {
	case nil:
		return false
	case bool:
		return typed
	case *bool:
		return typed != nil && *typed
	case string:
		switch strings.ToLower(strings.TrimSpace(typed)) {
		case "1", "true", "yes", "on":
			return true
		}
		if f, err := strconv.ParseFloat(strings.TrimSpace(typed), 64); err == nil {
			return f != 0
		}
		return false
	default:
		if f, ok := Number(value); ok {
			return f != 0
		}
		return false
	}
}

func asSlice(value any) ([]any, bool) {
	switch typed := value.(type) {
	case []any:
		return typed, true
	case []string:
		out := make([]any, len(typed))
		for i, v := range typed {
			out[i] = v
		}
		return out, true
	default:
		return nil, false
	}
}
