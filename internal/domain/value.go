// Package domain contains the core model for decision-table rule
// coverage: scalar values, evaluation and coverage events, rule
// catalogs, coverage reports, policies, and history.
package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Kind discriminates the scalar representations a Value can hold.
type Kind int

const (
	KindString Kind = iota
	KindBool
	KindNumber
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	default:
		return "unknown"
	}
}

var (
	ErrNotBool   = errors.New("value is not a boolean")
	ErrNotNumber = errors.New("value is not a number")
)

// Value is a tagged scalar variant: a string, a boolean, or a number.
// Values are immutable; inputs, rule outputs, and recorded coverage
// parameters are all carried as Values so conversion rules live in one
// place.
type Value struct {
	kind Kind
	str  string
	boo  bool
	num  float64
}

func NewString(s string) Value  { return Value{kind: KindString, str: s} }
func NewBool(b bool) Value      { return Value{kind: KindBool, boo: b} }
func NewNumber(n float64) Value { return Value{kind: KindNumber, num: n} }

// FromAny builds a Value from a loosely typed scalar, as produced by
// YAML decoding or expression evaluation. Non-scalar types are
// rejected so malformed data fails at parse time, not at assertion
// time.
func FromAny(v any) (Value, error) {
	switch t := v.(type) {
	case string:
		return NewString(t), nil
	case bool:
		return NewBool(t), nil
	case int:
		return NewNumber(float64(t)), nil
	case int32:
		return NewNumber(float64(t)), nil
	case int64:
		return NewNumber(float64(t)), nil
	case uint:
		return NewNumber(float64(t)), nil
	case uint32:
		return NewNumber(float64(t)), nil
	case uint64:
		return NewNumber(float64(t)), nil
	case float32:
		return NewNumber(float64(t)), nil
	case float64:
		return NewNumber(t), nil
	default:
		return Value{}, fmt.Errorf("unsupported scalar type %T", v)
	}
}

// MustValue is a convenience for fixtures and tests.
func MustValue(v any) Value {
	val, err := FromAny(v)
	if err != nil {
		panic(err)
	}
	return val
}

func (v Value) Kind() Kind { return v.kind }

// AsString renders the value in its canonical string form. Every kind
// has one: booleans become "true"/"false", numbers use the shortest
// decimal representation.
func (v Value) AsString() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.boo)
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	default:
		return v.str
	}
}

// AsBool converts to a boolean. Only native booleans and the
// case-insensitive literals "true"/"false" convert; everything else is
// an error, never a silent false.
func (v Value) AsBool() (bool, error) {
	switch v.kind {
	case KindBool:
		return v.boo, nil
	case KindString:
		switch strings.ToLower(v.str) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return false, fmt.Errorf("%w: %q", ErrNotBool, v.str)
	default:
		return false, fmt.Errorf("%w: %s value", ErrNotBool, v.kind)
	}
}

// AsNumber converts to a float64. Native numbers and strings parseable
// as decimal numbers convert; everything else is an error.
func (v Value) AsNumber() (float64, error) {
	switch v.kind {
	case KindNumber:
		return v.num, nil
	case KindString:
		n, err := strconv.ParseFloat(strings.TrimSpace(v.str), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrNotNumber, v.str)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%w: %s value", ErrNotNumber, v.kind)
	}
}

// Native returns the underlying Go scalar (string, bool, or float64),
// for handing values to an expression engine or an encoder.
func (v Value) Native() any {
	switch v.kind {
	case KindBool:
		return v.boo
	case KindNumber:
		return v.num
	default:
		return v.str
	}
}

func (v Value) Equal(o Value) bool {
	return v.kind == o.kind && v.str == o.str && v.boo == o.boo && v.num == o.num
}

// String implements fmt.Stringer for diagnostics and case labels.
func (v Value) String() string { return v.AsString() }

// MarshalYAML emits the native scalar so traces and reports stay
// readable.
func (v Value) MarshalYAML() (any, error) { return v.Native(), nil }

// CopyValues returns an independent shallow copy of a value map.
// Values are immutable, so copying the map is enough to decouple the
// snapshot from its source.
func CopyValues(m map[string]Value) map[string]Value {
	if m == nil {
		return nil
	}
	out := make(map[string]Value, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
