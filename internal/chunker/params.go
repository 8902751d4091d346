package chunker

import (
	"encoding/json"
	"math"

	"github.com/spf13/cast"
)

// Params is the open key/value configuration passed to a strategy. Values
// usually come straight from decoded JSON, so numbers arrive as float64 and
// may also be numeric strings. Accessors never fail; they return the
// supplied default for missing or unusable values.
type Params map[string]any

func (p Params) lookup(key string) (any, bool) {
	if p == nil {
		return nil, false
	}
	v, ok := p[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// Int returns the integer value of key or def.
func (p Params) Int(key string, def int) int {
	v, ok := p.lookup(key)
	if !ok {
		return def
	}
	switch f := v.(type) {
	case float64:
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return def
		}
	case float32:
		if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
			return def
		}
	case bool:
		return def
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return def
	}
	return n
}

// PositiveInt is Int restricted to values > 0.
func (p Params) PositiveInt(key string, def int) int {
	if n := p.Int(key, def); n > 0 {
		return n
	}
	return def
}

// NonNegativeInt is Int restricted to values >= 0.
func (p Params) NonNegativeInt(key string, def int) int {
	if n := p.Int(key, def); n >= 0 {
		return n
	}
	return def
}

// String returns the non-empty string value of key or def.
func (p Params) String(key, def string) string {
	v, ok := p.lookup(key)
	if !ok {
		return def
	}
	s, err := cast.ToStringE(v)
	if err != nil || s == "" {
		return def
	}
	return s
}

// Bool returns the boolean value of key or def.
func (p Params) Bool(key string, def bool) bool {
	v, ok := p.lookup(key)
	if !ok {
		return def
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return def
	}
	return b
}

// Strings returns a list of non-empty strings for key or def. A string value
// is accepted when it holds a JSON array.
func (p Params) Strings(key string, def []string) []string {
	v, ok := p.lookup(key)
	if !ok {
		return def
	}
	var items []string
	switch t := v.(type) {
	case []string:
		items = t
	case []any:
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return def
			}
			items = append(items, s)
		}
	case string:
		if err := json.Unmarshal([]byte(t), &items); err != nil {
			return def
		}
	default:
		return def
	}

	out := make([]string, 0, len(items))
	for _, s := range items {
		if s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
