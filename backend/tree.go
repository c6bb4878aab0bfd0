package backend

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SplitPath turns "rooms/r1/questions/" into ["rooms" "r1" "questions"].
func SplitPath(path string) ([]string, error) {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	segs := strings.Split(trimmed, "/")
	for _, s := range segs {
		if s == "" || strings.ContainsAny(s, ".#$[]") {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPath, path)
		}
	}
	return segs, nil
}

// JoinPath is the inverse of SplitPath.
func JoinPath(segs []string) string { return strings.Join(segs, "/") }

// Normalize converts v to its JSON tree form.
func Normalize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("backend: encode value: %w", err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("backend: decode value: %w", err)
	}
	return out, nil
}

// Decode converts a JSON tree value into out.
func Decode(v any, out any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// Lookup returns the value at segs under root.
func Lookup(root any, segs []string) (any, bool) {
	cur := root
	for _, s := range segs {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[s]
		if !ok {
			return nil, false
		}
	}
	return cur, cur != nil
}

// Set stores v at segs under root, creating intermediate nodes. A nil v
// removes the node. It returns the new root, which is nil once empty.
func Set(root map[string]any, segs []string, v any) map[string]any {
	if len(segs) == 0 {
		m, _ := v.(map[string]any)
		return pruned(m)
	}
	if root == nil {
		if v == nil {
			return nil
		}
		root = map[string]any{}
	}
	head := segs[0]
	if len(segs) == 1 {
		if v == nil || isEmptyMap(v) {
			delete(root, head)
		} else {
			root[head] = v
		}
		return pruned(root)
	}
	child, _ := root[head].(map[string]any)
	child = Set(child, segs[1:], v)
	if child == nil {
		delete(root, head)
	} else {
		root[head] = child
	}
	return pruned(root)
}

// Merge sets every field of patch as a child of segs. Nil fields are removed.
func Merge(root map[string]any, segs []string, patch map[string]any) map[string]any {
	for k, v := range patch {
		child := append(append([]string{}, segs...), k)
		root = Set(root, child, v)
	}
	return root
}

// Remove deletes the node at segs.
func Remove(root map[string]any, segs []string) map[string]any {
	return Set(root, segs, nil)
}

// Clone deep copies a JSON tree value.
func Clone(v any) any {
	switch t := v.(type) {
	case map[string]any:
		cp := make(map[string]any, len(t))
		for k, val := range t {
			cp[k] = Clone(val)
		}
		return cp
	case []any:
		cp := make([]any, len(t))
		for i, val := range t {
			cp[i] = Clone(val)
		}
		return cp
	}
	return v
}

// Related reports whether a change at one path is visible from the other.
func Related(a, b []string) bool {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func isEmptyMap(v any) bool {
	m, ok := v.(map[string]any)
	return ok && len(m) == 0
}

func pruned(m map[string]any) map[string]any {
	if len(m) == 0 {
		return nil
	}
	return m
}
