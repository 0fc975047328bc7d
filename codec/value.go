package codec

import (
	"math"
	"unicode/utf8"

	"github.com/wippyai/pgp-bridge/errors"
)

// Atom is a host symbol.
type Atom string

// Tuple is a fixed-size host tuple.
type Tuple []any

// Well-known symbols.
const (
	AtomOK     Atom = "ok"
	AtomError  Atom = "error"
	AtomNotSet Atom = "not_set"
	AtomOther  Atom = "other"
)

// Other builds the escape tuple for an unnamed native code.
func Other(code uint32) Tuple {
	return Tuple{AtomOther, code}
}

// Symbol decodes a host symbol. Plain strings are accepted as symbols.
func Symbol(path []string, v any) (Atom, error) {
	switch s := v.(type) {
	case Atom:
		return s, nil
	case string:
		return Atom(s), nil
	default:
		return "", errors.TypeMismatch(errors.PhaseDecode, path, v, "symbol")
	}
}

// String decodes a host string.
func String(path []string, v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", errors.TypeMismatch(errors.PhaseDecode, path, v, "string")
	}
	return s, nil
}

// Bool decodes a host boolean.
func Bool(path []string, v any) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, errors.TypeMismatch(errors.PhaseDecode, path, v, "boolean")
	}
	return b, nil
}

// List decodes a host sequence.
func List(path []string, v any) ([]any, error) {
	switch l := v.(type) {
	case []any:
		return l, nil
	case Tuple:
		return []any(l), nil
	case []Atom:
		out := make([]any, len(l))
		for i, a := range l {
			out[i] = a
		}
		return out, nil
	case []string:
		out := make([]any, len(l))
		for i, s := range l {
			out[i] = s
		}
		return out, nil
	default:
		return nil, errors.TypeMismatch(errors.PhaseDecode, path, v, "list")
	}
}

// Uint32 decodes an unsigned 32-bit host integer. Integral float64 values are
// accepted for hosts that carry every number as a float.
func Uint32(path []string, v any) (uint32, error) {
	var n int64
	switch x := v.(type) {
	case int:
		n = int64(x)
	case int8:
		n = int64(x)
	case int16:
		n = int64(x)
	case int32:
		n = int64(x)
	case int64:
		n = x
	case uint:
		if uint64(x) > math.MaxUint32 {
			return 0, errors.Overflow(errors.PhaseDecode, path, v, "u32")
		}
		return uint32(x), nil
	case uint8:
		return uint32(x), nil
	case uint16:
		return uint32(x), nil
	case uint32:
		return x, nil
	case uint64:
		if x > math.MaxUint32 {
			return 0, errors.Overflow(errors.PhaseDecode, path, v, "u32")
		}
		return uint32(x), nil
	case float64:
		if x != math.Trunc(x) || math.IsInf(x, 0) {
			return 0, errors.TypeMismatch(errors.PhaseDecode, path, v, "u32")
		}
		if x < 0 || x > math.MaxUint32 {
			return 0, errors.Overflow(errors.PhaseDecode, path, v, "u32")
		}
		return uint32(x), nil
	default:
		return 0, errors.TypeMismatch(errors.PhaseDecode, path, v, "u32")
	}
	if n < 0 || n > math.MaxUint32 {
		return 0, errors.Overflow(errors.PhaseDecode, path, v, "u32")
	}
	return uint32(n), nil
}

// OtherCode decodes an {other, code} tuple.
func OtherCode(path []string, v any) (uint32, error) {
	var elems []any
	switch t := v.(type) {
	case Tuple:
		elems = t
	case []any:
		elems = t
	default:
		return 0, errors.TypeMismatch(errors.PhaseDecode, path, v, "{other, u32}")
	}
	if len(elems) != 2 {
		return 0, errors.InvalidVariant(errors.PhaseDecode, path, v, "escape tuple must have exactly two elements")
	}
	tag, err := Symbol(errors.PathIndex(path, 0), elems[0])
	if err != nil {
		return 0, errors.InvalidVariant(errors.PhaseDecode, path, v, "escape tuple must start with the symbol other")
	}
	if tag != AtomOther {
		return 0, errors.InvalidVariant(errors.PhaseDecode, path, v, "escape tuple must start with the symbol other, got "+string(tag))
	}
	return Uint32(errors.PathIndex(path, 1), elems[1])
}

// Text returns b as a string if it is valid UTF-8.
func Text(path []string, b []byte) (string, error) {
	if !utf8.Valid(b) {
		return "", errors.InvalidUTF8(errors.PhaseEncode, path, b)
	}
	return string(b), nil
}

// OptionalText is Text for nullable engine strings.
func OptionalText(path []string, b []byte) (*string, error) {
	if b == nil {
		return nil, nil
	}
	s, err := Text(path, b)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
