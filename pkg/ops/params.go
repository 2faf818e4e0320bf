package ops

import (
	"strings"

	"github.com/spf13/cast"
)

// ParameterSource resolves declared operation parameters per item. It is the
// boundary to the host's declarative schema layer; this package never parses
// raw user input itself.
type ParameterSource interface {
	// Get returns the value of a named parameter for the given item index,
	// and whether the parameter was supplied at all.
	Get(name string, itemIndex int) (any, bool)
}

// MapSource is a ParameterSource backed by plain maps: Base holds run-wide
// values, PerItem optional per-item overrides.
type MapSource struct {
	Base    map[string]any
	PerItem []map[string]any
}

func (s MapSource) Get(name string, itemIndex int) (any, bool) {
	if itemIndex >= 0 && itemIndex < len(s.PerItem) {
		if v, ok := s.PerItem[itemIndex][name]; ok {
			return v, true
		}
	}
	v, ok := s.Base[name]
	return v, ok
}

// ParamKind constrains how a declared parameter is coerced.
type ParamKind int

const (
	ParamString ParamKind = iota
	ParamInt
	ParamFloat
	ParamBool
	// ParamAny passes the raw value through uncoerced (structured set values)
	ParamAny
)

// Param declares one parameter of an operation descriptor.
type Param struct {
	Name     string
	Kind     ParamKind
	Required bool
	Default  any
}

// bag holds the resolved parameters of one item.
type bag map[string]any

// resolveParams validates and coerces every declared parameter of op for one
// item. It fails with a ParameterError before any store call is issued.
func resolveParams(op Operation, src ParameterSource, itemIndex int) (bag, error) {
	out := make(bag, len(op.Params))
	for _, p := range op.Params {
		raw, ok := src.Get(p.Name, itemIndex)
		if !ok || raw == nil {
			if p.Required {
				return nil, &ParameterError{Name: p.Name, Reason: "required parameter missing"}
			}
			if p.Default != nil {
				out[p.Name] = p.Default
			}
			continue
		}

		value, err := coerceParam(p.Kind, raw)
		if err != nil {
			return nil, &ParameterError{Name: p.Name, Reason: err.Error()}
		}
		out[p.Name] = value
	}
	return out, nil
}

func coerceParam(kind ParamKind, raw any) (any, error) {
	switch kind {
	case ParamString:
		return cast.ToStringE(raw)
	case ParamInt:
		return cast.ToInt64E(raw)
	case ParamFloat:
		return cast.ToFloat64E(raw)
	case ParamBool:
		return cast.ToBoolE(raw)
	default:
		return raw, nil
	}
}

func (b bag) str(name string) string {
	v, _ := b[name].(string)
	return v
}

func (b bag) i64(name string) int64 {
	v, _ := b[name].(int64)
	return v
}

func (b bag) boolean(name string) bool {
	v, _ := b[name].(bool)
	return v
}

func (b bag) raw(name string) any {
	return b[name]
}

// tokens splits a space-delimited list parameter on runs of whitespace,
// discarding empty tokens.
func tokens(s string) []string {
	return strings.Fields(s)
}

// pairs converts a flat alternating key/value token sequence into a map. An
// odd token count is a parameter error.
func pairs(name string, toks []string) (map[string]string, error) {
	if len(toks)%2 != 0 {
		return nil, &ParameterError{Name: name, Reason: "expected an even number of space-delimited tokens"}
	}
	out := make(map[string]string, len(toks)/2)
	for i := 0; i < len(toks); i += 2 {
		out[toks[i]] = toks[i+1]
	}
	return out, nil
}
