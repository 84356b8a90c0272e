package strategy

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Params carries strategy parameters as decoded from a request body.
// Numbers arrive as float64 from JSON and must hold integral values.
type Params map[string]float64

// Int reads key as an integer. It returns def when the key is absent and
// ErrInvalidConfig when the value is not integral.
func (p Params) Int(key string, def int) (int, error) {
	v, ok := p[key]
	if !ok {
		return def, nil
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
		return 0, fmt.Errorf("%w: %s must be an integer, got %v", ErrInvalidConfig, key, v)
	}
	if v > math.MaxInt32 || v < math.MinInt32 {
		return 0, fmt.Errorf("%w: %s out of range: %v", ErrInvalidConfig, key, v)
	}
	return int(v), nil
}

// firstInt reads the first present key among aliases.
func (p Params) firstInt(def int, keys ...string) (int, error) {
	for _, k := range keys {
		if _, ok := p[k]; ok {
			return p.Int(k, def)
		}
	}
	return def, nil
}

// ParseParams parses "key=value,key=value" as used by the CLI.
func ParseParams(s string) (Params, error) {
	out := Params{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("%w: malformed param %q (want key=value)", ErrInvalidConfig, part)
		}
		var v float64
		if _, err := fmt.Sscan(strings.TrimSpace(kv[1]), &v); err != nil {
			return nil, fmt.Errorf("%w: %s is not a number: %q", ErrInvalidConfig, kv[0], kv[1])
		}
		out[strings.TrimSpace(kv[0])] = v
	}
	return out, nil
}

// String renders params sorted by key ("a=1,b=2").
func (p Params) String() string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%g", k, p[k])
	}
	return strings.Join(parts, ",")
}
