package utilities

import (
	"strconv"
	"strings"
)

// Number converts numeric values to float64; anything else is 0.
func Number(v any) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int8:
		return float64(n)
	case int16:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case uint8:
		return float64(n)
	case uint16:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	case float32:
		return float64(n)
	case float64:
		return n
	}
	return 0
}

// ResolvePath walks obj along a dot separated path of map keys and slice
// indexes, returning def when any step is missing.
func ResolvePath(obj any, path string, def any) any {
	if path == "" {
		return obj
	}
	cur := obj
	for _, part := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			next, ok := node[part]
			if !ok {
				return def
			}
			cur = next
		case []any:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(node) {
				return def
			}
			cur = node[i]
		default:
			return def
		}
	}
	if cur == nil {
		return def
	}
	return cur
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		cp := make(map[string]any, len(t))
		for k, val := range t {
			cp[k] = deepCopy(val)
		}
		return cp
	case []any:
		cp := make([]any, len(t))
		for i, val := range t {
			cp[i] = deepCopy(val)
		}
		return cp
	case []string:
		return append([]string{}, t...)
	}
	return v
}
