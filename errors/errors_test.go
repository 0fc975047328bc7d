package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:    PhaseDecode,
				Kind:     KindTypeMismatch,
				Path:     []string{"encrypt_with_flags", "args", "2"},
				GoType:   "int",
				Expected: "string",
				Detail:   "plaintext must be text",
			},
			contains: []string{"[decode]", "type_mismatch", "encrypt_with_flags.args.2", "got int", "want string", "plaintext must be text"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseValidate,
				Kind:  KindEmptyRecipients,
			},
			contains: []string{"[validate]", "empty_recipients"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseRuntime,
				Kind:   KindEngineUnavailable,
				Detail: "engine unavailable",
				Cause:  errors.New("process exited"),
			},
			contains: []string{"[runtime]", "engine_unavailable", "engine unavailable", "caused by", "process exited"},
		},
		{
			name: "expected only",
			err: &Error{
				Phase:    PhaseResolve,
				Kind:     KindInvalidHandle,
				Expected: "key",
			},
			contains: []string{"[resolve]", "want key"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseDecode,
		Kind:  KindInvalidData,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}

	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase: PhaseDecode,
		Kind:  KindInvalidEnum,
		Path:  []string{"mode"},
	}

	if !err.Is(&Error{Phase: PhaseDecode, Kind: KindInvalidEnum}) {
		t.Error("Is should match same phase and kind")
	}

	if err.Is(&Error{Phase: PhaseEncode, Kind: KindInvalidEnum}) {
		t.Error("Is should not match different phase")
	}

	if err.Is(&Error{Phase: PhaseDecode, Kind: KindInvalidFlag}) {
		t.Error("Is should not match different kind")
	}

	target := &Error{Phase: PhaseDecode, Kind: KindInvalidEnum}
	if !errors.Is(err, target) {
		t.Error("errors.Is should match")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseDecode, KindTypeMismatch).
		Path("sign_with_mode", "mode").
		GoType("int").
		Expected("sign mode").
		Value(42).
		Cause(cause).
		Detail("expected %s, got %s", "symbol", "int").
		Build()

	if err.Phase != PhaseDecode {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseDecode)
	}
	if err.Kind != KindTypeMismatch {
		t.Errorf("Kind = %v, want %v", err.Kind, KindTypeMismatch)
	}
	if len(err.Path) != 2 || err.Path[0] != "sign_with_mode" || err.Path[1] != "mode" {
		t.Errorf("Path = %v, want [sign_with_mode mode]", err.Path)
	}
	if err.GoType != "int" {
		t.Errorf("GoType = %v, want 'int'", err.GoType)
	}
	if err.Expected != "sign mode" {
		t.Errorf("Expected = %v, want 'sign mode'", err.Expected)
	}
	if err.Value != 42 {
		t.Errorf("Value = %v, want 42", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "expected symbol, got int" {
		t.Errorf("Detail = %v, want 'expected symbol, got int'", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("TypeMismatch", func(t *testing.T) {
		err := TypeMismatch(PhaseDecode, []string{"data"}, 12, "string")
		if err.Kind != KindTypeMismatch {
			t.Errorf("Kind = %v, want %v", err.Kind, KindTypeMismatch)
		}
		if err.GoType != "int" || err.Expected != "string" {
			t.Errorf("GoType=%v Expected=%v", err.GoType, err.Expected)
		}
	})

	t.Run("InvalidUTF8", func(t *testing.T) {
		err := InvalidUTF8(PhaseEncode, []string{"cleartext"}, []byte{0xff, 0xfe})
		if err.Kind != KindInvalidUTF8 {
			t.Errorf("Kind = %v, want %v", err.Kind, KindInvalidUTF8)
		}
		if !strings.Contains(err.Detail, "fffe") {
			t.Errorf("Detail = %v, should contain hex preview", err.Detail)
		}
	})

	t.Run("Overflow", func(t *testing.T) {
		err := Overflow(PhaseDecode, []string{"code"}, int64(1)<<40, "u32")
		if err.Kind != KindOverflow {
			t.Errorf("Kind = %v, want %v", err.Kind, KindOverflow)
		}
	})

	t.Run("InvalidEnum", func(t *testing.T) {
		err := InvalidEnum(PhaseDecode, []string{"protocol"}, "bogus", "protocol")
		if err.Kind != KindInvalidEnum {
			t.Errorf("Kind = %v, want %v", err.Kind, KindInvalidEnum)
		}
		if err.Value != "bogus" {
			t.Errorf("Value = %v, want bogus", err.Value)
		}
	})

	t.Run("InvalidFlag", func(t *testing.T) {
		err := InvalidFlag(PhaseDecode, []string{"flags", "[1]"}, "sideways", "encrypt flags")
		if err.Kind != KindInvalidFlag {
			t.Errorf("Kind = %v, want %v", err.Kind, KindInvalidFlag)
		}
	})

	t.Run("EmptyRecipients", func(t *testing.T) {
		err := EmptyRecipients([]string{"recipients"})
		if err.Kind != KindEmptyRecipients || err.Phase != PhaseValidate {
			t.Errorf("got %v/%v", err.Phase, err.Kind)
		}
	})

	t.Run("InvalidHandle", func(t *testing.T) {
		err := InvalidHandle(nil, uint32(7), "key")
		if err.Kind != KindInvalidHandle {
			t.Errorf("Kind = %v, want %v", err.Kind, KindInvalidHandle)
		}
		if !strings.Contains(err.Error(), "live key") {
			t.Errorf("message %q should name the wanted type", err.Error())
		}
	})

	t.Run("Arity", func(t *testing.T) {
		err := Arity("decrypt", 1, 2)
		if err.Kind != KindArity {
			t.Errorf("Kind = %v, want %v", err.Kind, KindArity)
		}
		if !strings.Contains(err.Detail, "decrypt takes 2") {
			t.Errorf("Detail = %q", err.Detail)
		}
	})

	t.Run("Cancelled", func(t *testing.T) {
		cause := errors.New("deadline")
		err := Cancelled("import", cause)
		if !errors.Is(err, cause) {
			t.Error("Cancelled should wrap its cause")
		}
	})
}

func TestPathIndex(t *testing.T) {
	base := []string{"recipients"}
	got := PathIndex(base, 3)
	if strings.Join(got, ".") != "recipients.[3]" {
		t.Fatalf("PathIndex = %v", got)
	}
	// base must not be aliased
	_ = PathIndex(base, 4)
	if got[1] != "[3]" {
		t.Fatalf("PathIndex aliased its input: %v", got)
	}
}
