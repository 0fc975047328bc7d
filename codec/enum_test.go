package codec

import (
	stderrors "errors"
	"strings"
	"testing"

	"github.com/wippyai/pgp-bridge/errors"
	"github.com/wippyai/pgp-bridge/native"
)

func roundTrip[T ~uint32](t *testing.T, e *Enum[T]) {
	t.Helper()
	for _, en := range e.Entries() {
		got, err := e.Decode(nil, e.Encode(en.Code))
		if err != nil {
			t.Fatalf("%s: decode(encode(%s)): %v", e.Name(), en.Name, err)
		}
		if got != en.Code {
			t.Errorf("%s: %s round trip = %d, want %d", e.Name(), en.Name, got, en.Code)
		}
	}
	for _, n := range []uint32{9999, 4000, 1 << 31, 0xFFFFFFFF} {
		if e.Named(T(n)) {
			continue
		}
		enc := e.Encode(T(n))
		tup, ok := enc.(Tuple)
		if !ok || len(tup) != 2 || tup[0] != AtomOther {
			t.Fatalf("%s: encode(%d) = %#v, want other tuple", e.Name(), n, enc)
		}
		got, err := e.Decode(nil, enc)
		if err != nil {
			t.Fatalf("%s: decode(other %d): %v", e.Name(), n, err)
		}
		if uint32(got) != n {
			t.Errorf("%s: other round trip = %d, want %d", e.Name(), got, n)
		}
	}
}

func TestEnums_RoundTrip(t *testing.T) {
	t.Run("protocol", func(t *testing.T) { roundTrip(t, Protocols) })
	t.Run("pinentry", func(t *testing.T) { roundTrip(t, PinentryModes) })
	t.Run("sign mode", func(t *testing.T) { roundTrip(t, SignModes) })
	t.Run("hash", func(t *testing.T) { roundTrip(t, HashAlgorithms) })
	t.Run("key algorithm", func(t *testing.T) { roundTrip(t, KeyAlgorithms) })
	t.Run("validity", func(t *testing.T) { roundTrip(t, Validities) })
	t.Run("pka trust", func(t *testing.T) { roundTrip(t, PkaTrusts) })
}

func TestEnum_DecodeSymbols(t *testing.T) {
	tests := []struct {
		in   any
		want native.Protocol
	}{
		{Atom("open_pgp"), native.ProtocolOpenPGP},
		{"cms", native.ProtocolCMS},
		{Atom("default"), native.ProtocolDefault},
		{Tuple{Atom("other"), 9999}, native.Protocol(9999)},
		{[]any{"other", uint64(7)}, native.Protocol(7)},
		{Tuple{AtomOther, float64(12)}, native.Protocol(12)},
	}
	for _, tt := range tests {
		got, err := Protocols.Decode([]string{"protocol"}, tt.in)
		if err != nil {
			t.Fatalf("Decode(%#v): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("Decode(%#v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestEnum_DecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		in   any
		kind errors.Kind
	}{
		{"unknown symbol", Atom("open_gpg"), errors.KindInvalidEnum},
		{"wrong type", 3, errors.KindTypeMismatch},
		{"one element", Tuple{AtomOther}, errors.KindInvalidVariant},
		{"three elements", Tuple{AtomOther, 1, 2}, errors.KindInvalidVariant},
		{"wrong tag", Tuple{Atom("others"), 1}, errors.KindInvalidVariant},
		{"tag not a symbol", Tuple{1, 1}, errors.KindInvalidVariant},
		{"negative code", Tuple{AtomOther, -1}, errors.KindOverflow},
		{"too large", Tuple{AtomOther, int64(1) << 32}, errors.KindOverflow},
		{"fractional", Tuple{AtomOther, 1.5}, errors.KindTypeMismatch},
		{"string code", Tuple{AtomOther, "9"}, errors.KindTypeMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Protocols.Decode([]string{"protocol"}, tt.in)
			if err == nil {
				t.Fatal("expected error")
			}
			var e *errors.Error
			if !stderrors.As(err, &e) {
				t.Fatalf("error type = %T, want *errors.Error", err)
			}
			if e.Kind != tt.kind {
				t.Errorf("kind = %s, want %s (%v)", e.Kind, tt.kind, err)
			}
			if e.Phase != errors.PhaseDecode {
				t.Errorf("phase = %s, want decode", e.Phase)
			}
		})
	}
}

func TestNewEnum_Panics(t *testing.T) {
	tests := []struct {
		name    string
		entries []Entry[native.Validity]
	}{
		{"duplicate symbol", []Entry[native.Validity]{{"a", 1}, {"a", 2}}},
		{"duplicate code", []Entry[native.Validity]{{"a", 1}, {"b", 1}}},
		{"reserved", []Entry[native.Validity]{{AtomOther, 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("expected panic")
				}
			}()
			NewEnum("test", tt.entries...)
		})
	}
}

func TestFlags_Decode(t *testing.T) {
	got, err := EncryptFlags.Decode(nil, []any{Atom("always_trust"), "no_compress"})
	if err != nil {
		t.Fatal(err)
	}
	if got != native.EncryptAlwaysTrust|native.EncryptNoCompress {
		t.Errorf("flags = %#x", got)
	}

	got, err = EncryptFlags.Decode(nil, []any{})
	if err != nil || got != 0 {
		t.Errorf("empty list = %#x, %v", got, err)
	}

	got, err = EncryptFlags.Decode(nil, []Atom{"symmetric", "symmetric"})
	if err != nil || got != native.EncryptSymmetric {
		t.Errorf("repeated flag = %#x, %v", got, err)
	}

}

func TestFlags_DecodeFailFast(t *testing.T) {
	tests := []struct {
		name string
		in   any
		kind errors.Kind
		path string
	}{
		{"unknown symbol", []any{Atom("always_trust"), Atom("bogus")}, errors.KindInvalidFlag, "flags.[1]"},
		{"wrong element type", []any{Atom("armor"), 5}, errors.KindInvalidFlag, "flags.[0]"},
		{"integer element", []any{5}, errors.KindTypeMismatch, "flags.[0]"},
		{"not a list", Atom("always_trust"), errors.KindTypeMismatch, "flags"},
		{"bad escape", []any{Tuple{AtomOther}}, errors.KindInvalidFlag, "flags.[0]"},
		{"raw bits", []any{Atom("always_trust"), Tuple{AtomOther, uint32(0xFFFF0000)}}, errors.KindInvalidFlag, "flags.[1]"},
		{"raw bits as list", []any{[]any{AtomOther, 1}}, errors.KindInvalidFlag, "flags.[0]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncryptFlags.Decode([]string{"flags"}, tt.in)
			if err == nil {
				t.Fatalf("expected error, got %#x", got)
			}
			if got != 0 {
				t.Errorf("partial flags returned: %#x", got)
			}
			var e *errors.Error
			if !stderrors.As(err, &e) {
				t.Fatalf("error type = %T", err)
			}
			if e.Kind != tt.kind {
				t.Errorf("kind = %s, want %s", e.Kind, tt.kind)
			}
			if p := strings.Join(e.Path, "."); p != tt.path {
				t.Errorf("path = %q, want %q", p, tt.path)
			}
		})
	}
}

func TestFlags_Encode(t *testing.T) {
	got := EncryptFlags.Encode(native.EncryptWrap | native.EncryptAlwaysTrust | 0x1000)
	if len(got) != 3 {
		t.Fatalf("Encode = %#v", got)
	}
	if got[0] != Atom("always_trust") || got[1] != Atom("wrap") {
		t.Errorf("Encode order = %#v", got)
	}
	tup, ok := got[2].(Tuple)
	if !ok || tup[1] != uint32(0x1000) {
		t.Errorf("trailing escape = %#v", got[2])
	}

	back, err := EncryptFlags.Decode(nil, got[:2])
	if err != nil {
		t.Fatal(err)
	}
	if back != native.EncryptWrap|native.EncryptAlwaysTrust {
		t.Errorf("round trip = %#x", back)
	}
	if _, err := EncryptFlags.Decode(nil, got); err == nil {
		t.Error("escape tuple accepted as input")
	}

	if out := SigSummaries.Encode(0); len(out) != 0 {
		t.Errorf("empty set = %#v", out)
	}
}

func TestNewFlags_RejectsMultiBit(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	NewFlags("test", Entry[native.EncryptFlags]{"both", 3})
}
