package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseDecode   Phase = "decode"   // host value to native
	PhaseEncode   Phase = "encode"   // native value to host
	PhaseValidate Phase = "validate" // argument validation
	PhaseResolve  Phase = "resolve"  // handle lookup
	PhaseDispatch Phase = "dispatch" // scheduling onto a pool
	PhaseRuntime  Phase = "runtime"  // runtime operations
	PhaseConfig   Phase = "config"   // configuration loading
)

// Kind categorizes the error
type Kind string

const (
	KindTypeMismatch      Kind = "type_mismatch"
	KindInvalidData       Kind = "invalid_data"
	KindInvalidUTF8       Kind = "invalid_utf8"
	KindOverflow          Kind = "overflow"
	KindInvalidEnum       Kind = "invalid_enum"
	KindInvalidVariant    Kind = "invalid_variant"
	KindInvalidFlag       Kind = "invalid_flag"
	KindEmptyRecipients   Kind = "empty_recipients"
	KindInvalidHandle     Kind = "invalid_handle"
	KindArity             Kind = "arity"
	KindNotFound          Kind = "not_found"
	KindInvalidInput      Kind = "invalid_input"
	KindEngineUnavailable Kind = "engine_unavailable"
	KindCancelled         Kind = "cancelled"
	KindClosed            Kind = "closed"
)

// Error is the structured error type used throughout the bridge
type Error struct {
	Value    any
	Cause    error
	Phase    Phase
	Kind     Kind
	GoType   string
	Expected string
	Detail   string
	Path     []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.GoType != "" || e.Expected != "" {
		b.WriteString(": ")
		if e.GoType != "" && e.Expected != "" {
			b.WriteString("got ")
			b.WriteString(e.GoType)
			b.WriteString(", want ")
			b.WriteString(e.Expected)
		} else if e.GoType != "" {
			b.WriteString("got ")
			b.WriteString(e.GoType)
		} else {
			b.WriteString("want ")
			b.WriteString(e.Expected)
		}
	}

	if e.Detail != "" {
		if e.GoType != "" || e.Expected != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the argument path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// GoType sets the Go type name of the received value
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// Expected sets the name of the expected host type
func (b *Builder) Expected(t string) *Builder {
	b.err.Expected = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, path []string, value any, expected string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindTypeMismatch,
		Path:     path,
		GoType:   fmt.Sprintf("%T", value),
		Expected: expected,
		Value:    value,
	}
}

// InvalidUTF8 creates an invalid UTF-8 error
func InvalidUTF8(phase Phase, path []string, data []byte) *Error {
	preview := data
	if len(preview) > 32 {
		preview = preview[:32]
	}
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidUTF8,
		Path:   path,
		Detail: fmt.Sprintf("invalid UTF-8 sequence: %x", preview),
	}
}

// Overflow creates an overflow error
func Overflow(phase Phase, path []string, value any, targetType string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindOverflow,
		Path:     path,
		Expected: targetType,
		Detail:   fmt.Sprintf("value %v overflows %s", value, targetType),
		Value:    value,
	}
}

// InvalidEnum creates an unknown enum symbol error
func InvalidEnum(phase Phase, path []string, value any, enumType string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindInvalidEnum,
		Path:     path,
		Expected: enumType,
		Detail:   fmt.Sprintf("invalid enum value %v for %s", value, enumType),
		Value:    value,
	}
}

// InvalidVariant creates a malformed tagged value error
func InvalidVariant(phase Phase, path []string, value any, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidVariant,
		Path:   path,
		GoType: fmt.Sprintf("%T", value),
		Detail: detail,
		Value:  value,
	}
}

// InvalidFlag creates an unknown flag symbol error
func InvalidFlag(phase Phase, path []string, value any, flagSet string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindInvalidFlag,
		Path:     path,
		Expected: flagSet,
		Detail:   fmt.Sprintf("unknown flag %v for %s", value, flagSet),
		Value:    value,
	}
}

// EmptyRecipients creates an empty recipient list error
func EmptyRecipients(path []string) *Error {
	return &Error{
		Phase:  PhaseValidate,
		Kind:   KindEmptyRecipients,
		Path:   path,
		Detail: "recipient list must not be empty",
	}
}

// InvalidHandle creates a dead or mistyped handle error
func InvalidHandle(path []string, handle any, want string) *Error {
	return &Error{
		Phase:    PhaseResolve,
		Kind:     KindInvalidHandle,
		Path:     path,
		Expected: want,
		Detail:   fmt.Sprintf("handle %v does not refer to a live %s", handle, want),
		Value:    handle,
	}
}

// Arity creates a wrong argument count error
func Arity(operation string, got, want int) *Error {
	return &Error{
		Phase:  PhaseValidate,
		Kind:   KindArity,
		Detail: fmt.Sprintf("%s takes %d argument(s), got %d", operation, want, got),
		Value:  got,
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Path:   path,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// EngineUnavailable creates an error for a handle whose engine is gone
func EngineUnavailable(cause error) *Error {
	return &Error{
		Phase:  PhaseRuntime,
		Kind:   KindEngineUnavailable,
		Detail: "engine unavailable",
		Cause:  cause,
	}
}

// Cancelled creates an error for a call abandoned before it was dispatched
func Cancelled(operation string, cause error) *Error {
	return &Error{
		Phase:  PhaseDispatch,
		Kind:   KindCancelled,
		Detail: fmt.Sprintf("%s cancelled before dispatch", operation),
		Cause:  cause,
	}
}

// Closed creates an error for use after shutdown
func Closed(component string) *Error {
	return &Error{
		Phase:  PhaseRuntime,
		Kind:   KindClosed,
		Detail: fmt.Sprintf("%s closed", component),
	}
}

// PathIndex returns path extended with an index segment
func PathIndex(path []string, i int) []string {
	out := make([]string, len(path), len(path)+1)
	copy(out, path)
	return append(out, fmt.Sprintf("[%d]", i))
}
