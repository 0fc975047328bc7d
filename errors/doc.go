// Package errors provides structured error types for the bridge.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). The Error type records the argument path, the host type that was
// received, the type that was expected, and an optional cause.
//
// These errors form the bridge's structural tier: they describe arguments the
// bridge refused before any engine call was made, and output it could not
// render back to the host. Failures reported by the engine itself travel in
// an envelope.Result instead.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseDecode, errors.KindTypeMismatch).
//		Path("args", "2").
//		GoType("int").
//		Expected("string").
//		Detail("plaintext must be a string").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.InvalidEnum(errors.PhaseDecode, path, "bogus", "protocol")
//	err := errors.EmptyRecipients(path)
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
