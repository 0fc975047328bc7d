// Package envelope is the uniform two-shape result returned by every bridge
// operation: Success(payload) or Failure(kind, message).
//
// Only engine-side outcomes travel in a Result. Malformed arguments never
// reach the engine and are returned as a Go error next to the Result instead.
package envelope

import (
	"errors"
	"fmt"

	"github.com/wippyai/pgp-bridge/codec"
)

// DecodeSentinel is the fixed message for engine output that is not valid
// UTF-8. The bytes themselves are never echoed back.
const DecodeSentinel = "Could not decode cyphertext to utf8"

// UnavailableMessage is the message of a Failure(engine_unavailable).
const UnavailableMessage = "Engine unavailable"

// Status is the outer tag of a Result.
type Status string

const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// Kind classifies a failure.
type Kind string

const (
	KindNone              Kind = ""
	KindNative            Kind = "native"
	KindDecode            Kind = "decode"
	KindNotSet            Kind = "not_set"
	KindEngineUnavailable Kind = "engine_unavailable"
	KindInitFailed        Kind = "init_failed"
)

// Result is the outcome of one operation. For a failure Value holds the
// message string, or codec.AtomNotSet for KindNotSet.
type Result struct {
	Value  any
	Status Status
	Kind   Kind
}

// OK wraps a successful payload.
func OK(v any) Result {
	return Result{Status: StatusOK, Value: v}
}

// Done is OK(codec.AtomOK), the payload of operations with nothing to return.
func Done() Result {
	return OK(codec.AtomOK)
}

// Native wraps an engine failure with the engine's own message.
func Native(err error) Result {
	return Result{Status: StatusError, Kind: KindNative, Value: err.Error()}
}

// Decode is the failure for engine output that could not be rendered as text.
func Decode() Result {
	return Result{Status: StatusError, Kind: KindDecode, Value: DecodeSentinel}
}

// NotSet is the failure for a flag that has no value.
func NotSet() Result {
	return Result{Status: StatusError, Kind: KindNotSet, Value: codec.AtomNotSet}
}

// Unavailable is the failure for a call on an invalidated context.
func Unavailable() Result {
	return Result{Status: StatusError, Kind: KindEngineUnavailable, Value: UnavailableMessage}
}

// InitFailed wraps an engine failure to create a context.
func InitFailed(err error) Result {
	return Result{Status: StatusError, Kind: KindInitFailed, Value: err.Error()}
}

// IsOK reports whether r is a success.
func (r Result) IsOK() bool {
	return r.Status == StatusOK
}

// Message returns the failure text, or "" for a success.
func (r Result) Message() string {
	if r.IsOK() {
		return ""
	}
	switch v := r.Value.(type) {
	case string:
		return v
	case codec.Atom:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

// Tuple renders r as the host's {ok, payload} / {error, reason} pair.
func (r Result) Tuple() codec.Tuple {
	if r.IsOK() {
		return codec.Tuple{codec.AtomOK, r.Value}
	}
	return codec.Tuple{codec.AtomError, r.Value}
}

// Err converts a failure into a Go error, or nil for a success.
func (r Result) Err() error {
	if r.IsOK() {
		return nil
	}
	return &Failure{Kind: r.Kind, Message: r.Message()}
}

func (r Result) String() string {
	if r.IsOK() {
		return fmt.Sprintf("ok: %v", r.Value)
	}
	return fmt.Sprintf("error(%s): %s", r.Kind, r.Message())
}

// Failure is a failed Result seen as a Go error.
type Failure struct {
	Kind    Kind
	Message string
}

func (f *Failure) Error() string {
	return f.Message
}

// Is matches another *Failure by kind.
func (f *Failure) Is(target error) bool {
	var t *Failure
	if errors.As(target, &t) {
		return f.Kind == t.Kind
	}
	return false
}
