package codec

import (
	"fmt"
	"sort"

	"github.com/wippyai/pgp-bridge/errors"
)

// Entry binds a symbol to a native code.
type Entry[T ~uint32] struct {
	Name Atom
	Code T
}

// Enum is a bidirectional symbol table for one native enumeration.
type Enum[T ~uint32] struct {
	byName  map[Atom]T
	byCode  map[T]Atom
	name    string
	entries []Entry[T]
}

// NewEnum builds a table. Duplicate symbols or codes panic.
func NewEnum[T ~uint32](name string, entries ...Entry[T]) *Enum[T] {
	e := &Enum[T]{
		name:    name,
		byName:  make(map[Atom]T, len(entries)),
		byCode:  make(map[T]Atom, len(entries)),
		entries: entries,
	}
	for _, en := range entries {
		if en.Name == AtomOther {
			panic(fmt.Sprintf("codec: %s: symbol %q is reserved", name, AtomOther))
		}
		if _, dup := e.byName[en.Name]; dup {
			panic(fmt.Sprintf("codec: %s: duplicate symbol %q", name, en.Name))
		}
		if _, dup := e.byCode[en.Code]; dup {
			panic(fmt.Sprintf("codec: %s: duplicate code %d", name, en.Code))
		}
		e.byName[en.Name] = en.Code
		e.byCode[en.Code] = en.Name
	}
	return e
}

// Name returns the enumeration name used in error messages.
func (e *Enum[T]) Name() string {
	return e.name
}

// Decode converts a symbol or an {other, code} tuple into a native value.
func (e *Enum[T]) Decode(path []string, v any) (T, error) {
	switch v.(type) {
	case Atom, string:
		sym, _ := Symbol(path, v)
		code, ok := e.byName[sym]
		if !ok {
			return 0, errors.InvalidEnum(errors.PhaseDecode, path, v, e.name)
		}
		return code, nil
	case Tuple, []any:
		code, err := OtherCode(path, v)
		if err != nil {
			return 0, err
		}
		return T(code), nil
	default:
		return 0, errors.TypeMismatch(errors.PhaseDecode, path, v, e.name)
	}
}

// Encode converts a native value into its symbol, or an {other, code} tuple
// when the code has no symbol.
func (e *Enum[T]) Encode(v T) any {
	if name, ok := e.byCode[v]; ok {
		return name
	}
	return Other(uint32(v))
}

// Named reports whether v has a symbol.
func (e *Enum[T]) Named(v T) bool {
	_, ok := e.byCode[v]
	return ok
}

// Entries returns the table in declaration order.
func (e *Enum[T]) Entries() []Entry[T] {
	out := make([]Entry[T], len(e.entries))
	copy(out, e.entries)
	return out
}

// Flags is a symbol table for a native bit set.
type Flags[T ~uint32] struct {
	byName  map[Atom]T
	name    string
	entries []Entry[T]
}

// NewFlags builds a flag table. Every code must be a single distinct bit.
func NewFlags[T ~uint32](name string, entries ...Entry[T]) *Flags[T] {
	f := &Flags[T]{
		name:    name,
		byName:  make(map[Atom]T, len(entries)),
		entries: entries,
	}
	var seen T
	for _, en := range entries {
		if en.Code == 0 || en.Code&(en.Code-1) != 0 {
			panic(fmt.Sprintf("codec: %s: %q is not a single bit", name, en.Name))
		}
		if seen&en.Code != 0 {
			panic(fmt.Sprintf("codec: %s: duplicate bit for %q", name, en.Name))
		}
		if _, dup := f.byName[en.Name]; dup || en.Name == AtomOther {
			panic(fmt.Sprintf("codec: %s: bad symbol %q", name, en.Name))
		}
		seen |= en.Code
		f.byName[en.Name] = en.Code
	}
	sort.SliceStable(f.entries, func(i, j int) bool { return f.entries[i].Code < f.entries[j].Code })
	return f
}

// Name returns the flag set name used in error messages.
func (f *Flags[T]) Name() string {
	return f.name
}

// Decode converts a list of symbols into a bit set. Only named symbols are
// accepted; any other element, {other, bits} included, fails the whole list.
func (f *Flags[T]) Decode(path []string, v any) (T, error) {
	list, err := List(path, v)
	if err != nil {
		return 0, err
	}
	var out T
	for i, item := range list {
		p := errors.PathIndex(path, i)
		switch item.(type) {
		case Atom, string:
			sym, _ := Symbol(p, item)
			bit, ok := f.byName[sym]
			if !ok {
				return 0, errors.InvalidFlag(errors.PhaseDecode, p, item, f.name)
			}
			out |= bit
		case Tuple, []any:
			return 0, errors.InvalidFlag(errors.PhaseDecode, p, item, f.name)
		default:
			return 0, errors.TypeMismatch(errors.PhaseDecode, p, item, f.name+" symbol")
		}
	}
	return out, nil
}

// Encode converts a bit set into symbols in ascending bit order. Bits without
// a symbol are collected into one trailing {other, bits} tuple.
func (f *Flags[T]) Encode(v T) []any {
	out := make([]any, 0, len(f.entries))
	rest := v
	for _, en := range f.entries {
		if v&en.Code != 0 {
			out = append(out, en.Name)
			rest &^= en.Code
		}
	}
	if rest != 0 {
		out = append(out, Other(uint32(rest)))
	}
	return out
}
