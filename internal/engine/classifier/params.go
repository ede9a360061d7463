package classifier

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Params holds hyperparameters by name. Values come from YAML, JSON or code,
// so numbers may be any Go numeric type.
type Params map[string]any

// Clone returns a shallow copy of p.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Names returns the parameter names in sorted order.
func (p Params) Names() []string {
	names := make([]string, 0, len(p))
	for k := range p {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// String renders p as "a=1 b=x" with names sorted.
func (p Params) String() string {
	parts := make([]string, 0, len(p))
	for _, k := range p.Names() {
		parts = append(parts, fmt.Sprintf("%s=%v", k, p[k]))
	}
	return strings.Join(parts, " ")
}

func (p Params) check(allowed []string) error {
	ok := make(map[string]bool, len(allowed))
	for _, a := range allowed {
		ok[a] = true
	}
	for _, k := range p.Names() {
		if !ok[k] {
			return fmt.Errorf("classifier: unknown parameter %q (allowed: %s)", k, strings.Join(allowed, ", "))
		}
	}
	return nil
}

// reader reads typed values out of Params and keeps the first error.
type reader struct {
	p   Params
	err error
}

func (r *reader) fail(name string, v any, want string) {
	if r.err == nil {
		r.err = fmt.Errorf("classifier: parameter %s: want %s, got %v (%T)", name, want, v, v)
	}
}

func (r *reader) float(name string, def float64) float64 {
	v, ok := r.p[name]
	if !ok || v == nil {
		return def
	}
	f, ok := toFloat(v)
	if !ok {
		r.fail(name, v, "number")
		return def
	}
	return f
}

func (r *reader) int(name string, def int) int {
	v, ok := r.p[name]
	if !ok || v == nil {
		return def
	}
	f, ok := toFloat(v)
	if !ok || f != float64(int(f)) {
		r.fail(name, v, "integer")
		return def
	}
	return int(f)
}

func (r *reader) string(name, def string, choices ...string) string {
	v, ok := r.p[name]
	if !ok || v == nil {
		return def
	}
	s, ok := v.(string)
	if !ok {
		r.fail(name, v, "string")
		return def
	}
	s = strings.ToLower(s)
	for _, c := range choices {
		if s == c {
			return s
		}
	}
	if len(choices) > 0 {
		r.fail(name, v, "one of "+strings.Join(choices, "|"))
		return def
	}
	return s
}

func (r *reader) bool(name string, def bool) bool {
	v, ok := r.p[name]
	if !ok || v == nil {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		r.fail(name, v, "bool")
		return def
	}
	return b
}

// ints accepts a single integer, a list of integers or a comma separated
// string such as "500,200".
func (r *reader) ints(name string, def []int) []int {
	v, ok := r.p[name]
	if !ok || v == nil {
		return def
	}
	var items []any
	switch x := v.(type) {
	case []int:
		return append([]int(nil), x...)
	case []any:
		items = x
	case string:
		for _, part := range strings.Split(x, ",") {
			if part = strings.TrimSpace(part); part != "" {
				items = append(items, part)
			}
		}
	default:
		items = []any{x}
	}
	out := make([]int, 0, len(items))
	for _, it := range items {
		f, ok := toFloat(it)
		if !ok || f != float64(int(f)) {
			r.fail(name, v, "list of integers")
			return def
		}
		out = append(out, int(f))
	}
	return out
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint64:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	return 0, false
}
