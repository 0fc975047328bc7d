package native

import (
	"errors"
	"fmt"
)

// ErrorCode is an engine error code (gpg-error numbering).
type ErrorCode uint32

const (
	CodeNoError             ErrorCode = 0
	CodeGeneral             ErrorCode = 1
	CodeBadSignature        ErrorCode = 8
	CodeNoPubkey            ErrorCode = 9
	CodeBadPassphrase       ErrorCode = 11
	CodeNoSeckey            ErrorCode = 17
	CodeNotFound            ErrorCode = 27
	CodeUnusablePubkey      ErrorCode = 53
	CodeUnusableSeckey      ErrorCode = 54
	CodeInvValue            ErrorCode = 55
	CodeNoData              ErrorCode = 58
	CodeTimeout             ErrorCode = 62
	CodeNoPassphrase        ErrorCode = 67
	CodeNotImplemented      ErrorCode = 69
	CodeConflict            ErrorCode = 70
	CodeNoPinentry          ErrorCode = 85
	CodeCanceled            ErrorCode = 99
	CodeUnsupportedProtocol ErrorCode = 121
	CodeInvEngine           ErrorCode = 150
	CodeDecryptFailed       ErrorCode = 152
	CodeKeyExpired          ErrorCode = 153
	CodeSigExpired          ErrorCode = 154
	CodeUnknownName         ErrorCode = 165
	CodeNotOperational      ErrorCode = 176
	CodeEOF                 ErrorCode = 16383
)

var descriptions = map[ErrorCode]string{
	CodeNoError:             "Success",
	CodeGeneral:             "General error",
	CodeBadSignature:        "Bad signature",
	CodeNoPubkey:            "No public key",
	CodeBadPassphrase:       "Bad passphrase",
	CodeNoSeckey:            "No secret key",
	CodeNotFound:            "Not found",
	CodeUnusablePubkey:      "Unusable public key",
	CodeUnusableSeckey:      "Unusable secret key",
	CodeInvValue:            "Invalid value",
	CodeNoData:              "No data",
	CodeTimeout:             "Timeout",
	CodeNoPassphrase:        "No passphrase given",
	CodeNotImplemented:      "Not implemented",
	CodeConflict:            "Conflict",
	CodeNoPinentry:          "No pinentry",
	CodeCanceled:            "Operation cancelled",
	CodeUnsupportedProtocol: "Unsupported protocol",
	CodeInvEngine:           "Invalid crypto engine",
	CodeDecryptFailed:       "Decryption failed",
	CodeKeyExpired:          "Key expired",
	CodeSigExpired:          "Signature expired",
	CodeUnknownName:         "Unknown name",
	CodeNotOperational:      "Not operational",
	CodeEOF:                 "End of file",
}

// Description returns the engine's text for code.
func (c ErrorCode) Description() string {
	if d, ok := descriptions[c]; ok {
		return d
	}
	return fmt.Sprintf("Unknown error code %d", uint32(c))
}

// ErrEngineUnavailable reports that the engine behind a context is gone.
// Any error matching it invalidates the context that produced it.
var ErrEngineUnavailable = &Error{Code: CodeNotOperational}

// Error is a failure reported by the engine itself.
type Error struct {
	Cause  error
	Detail string
	Code   ErrorCode
}

// NewError returns an engine error for code.
func NewError(code ErrorCode) *Error {
	return &Error{Code: code}
}

// Errorf returns an engine error for code with a formatted detail.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Detail: fmt.Sprintf(format, args...)}
}

// WrapError returns an engine error for code caused by err.
func WrapError(code ErrorCode, err error) *Error {
	return &Error{Code: code, Cause: err}
}

func (e *Error) Error() string {
	msg := e.Code.Description()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// CodeOf extracts the engine code from err, or CodeGeneral when err is not an
// engine error.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return CodeNoError
	}
	var ne *Error
	if errors.As(err, &ne) {
		return ne.Code
	}
	return CodeGeneral
}
