package remote

import (
	"encoding/json"
	"fmt"
)

// Normalize converts any JSON-serialisable value into the generic shape
// produced by encoding/json (map[string]any, []any, float64, ...).
func Normalize(value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	if raw, ok := value.(json.RawMessage); ok {
		var out any
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, err
		}
		return out, nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Lookup returns the subtree at segs, or nil when any step is missing.
func Lookup(root any, segs []string) any {
	cur := root
	for _, s := range segs {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		if cur, ok = m[s]; !ok {
			return nil
		}
	}
	return cur
}

// Apply performs a write on root and returns the new root. Writing null
// deletes, and maps left empty by a delete disappear, so a tree never holds
// empty objects.
func Apply(root any, segs []string, value any, mode Mode) (any, error) {
	v, err := Normalize(value)
	if err != nil {
		return root, fmt.Errorf("encode value: %w", err)
	}
	switch mode {
	case ModePut:
		return set(root, segs, v), nil
	case ModeDelete:
		return set(root, segs, nil), nil
	case ModePatch:
		children, ok := v.(map[string]any)
		if !ok {
			return root, fmt.Errorf("patch value must be an object, got %T", v)
		}
		targets := make(map[string][]string, len(children))
		for key := range children {
			sub, err := Segments(key)
			if err != nil || len(sub) == 0 {
				return root, fmt.Errorf("%w: patch key %q", ErrInvalidPath, key)
			}
			targets[key] = append(append([]string(nil), segs...), sub...)
		}
		for key, child := range children {
			root = set(root, targets[key], child)
		}
		return root, nil
	default:
		return root, fmt.Errorf("unsupported write mode %s", mode)
	}
}

func set(node any, segs []string, value any) any {
	if len(segs) == 0 {
		return prune(value)
	}
	m, ok := node.(map[string]any)
	if !ok {
		if value == nil {
			return node
		}
		m = map[string]any{}
	}
	child := set(m[segs[0]], segs[1:], value)
	if child == nil {
		delete(m, segs[0])
	} else {
		m[segs[0]] = child
	}
	if len(m) == 0 {
		return nil
	}
	return m
}

func prune(v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	for k, child := range m {
		if p := prune(child); p == nil {
			delete(m, k)
		} else {
			m[k] = p
		}
	}
	if len(m) == 0 {
		return nil
	}
	return m
}

// Marshal renders a subtree the way the store does: missing is null.
func Marshal(v any) (json.RawMessage, error) {
	if v == nil {
		return json.RawMessage("null"), nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}
