// Package opts decodes the free-form option maps attached to loader and
// plugin descriptors in config files.
package opts

import (
	"fmt"
)

// Options holds decoded YAML or TOML option values.
type Options map[string]any

// String returns the string option key, or def when unset.
func (o Options) String(key, def string) (string, error) {
	v, ok := o[key]
	if !ok || v == nil {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("option %s must be a string, got %T", key, v)
	}
	return s, nil
}

// Bool returns the boolean option key, or def when unset.
func (o Options) Bool(key string, def bool) (bool, error) {
	v, ok := o[key]
	if !ok || v == nil {
		return def, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("option %s must be a boolean, got %T", key, v)
	}
	return b, nil
}

// Int returns the whole-number option key, or def when unset. Decoders
// produce int, int64 or float64 depending on the format.
func (o Options) Int(key string, def int) (int, error) {
	v, ok := o[key]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != float64(int(n)) {
			return 0, fmt.Errorf("option %s must be a whole number", key)
		}
		return int(n), nil
	default:
		return 0, fmt.Errorf("option %s must be a number, got %T", key, v)
	}
}

// StringMap returns the map option key with string values.
func (o Options) StringMap(key string) (map[string]string, error) {
	v, ok := o[key]
	if !ok || v == nil {
		return nil, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("option %s must be a map, got %T", key, v)
	}
	out := make(map[string]string, len(m))
	for k, val := range m {
		s, ok := val.(string)
		if !ok {
			return nil, fmt.Errorf("option %s.%s must be a string, got %T", key, k, val)
		}
		out[k] = s
	}
	return out, nil
}

// Float returns the numeric option key, or def when unset.
func (o Options) Float(key string, def float64) (float64, error) {
	v, ok := o[key]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case float64:
		return n, nil
	default:
		return 0, fmt.Errorf("option %s must be a number, got %T", key, v)
	}
}

// Strings returns the list option key, or def when unset. A single string is
// accepted as a one element list.
func (o Options) Strings(key string, def []string) ([]string, error) {
	v, ok := o[key]
	if !ok || v == nil {
		return def, nil
	}
	switch list := v.(type) {
	case string:
		return []string{list}, nil
	case []string:
		return list, nil
	case []any:
		out := make([]string, 0, len(list))
		for i, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("option %s[%d] must be a string, got %T", key, i, item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("option %s must be a list of strings, got %T", key, v)
	}
}
