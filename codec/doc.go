// Package codec converts between dynamic host values and native engine types.
//
// Host values are plain Go values as a dynamic caller would build them:
//
//	Atom("open_pgp")                 symbol
//	Tuple{Atom("other"), 9999}       escape for an unnamed native code
//	[]any{Atom("always_trust")}      flag list
//	"text", true, 42                 strings, booleans, integers
//
// Every native enumeration has one Enum table mapping symbols to codes.
// Decoding never guesses: an unknown symbol, a malformed tuple or a value of
// the wrong Go type is an *errors.Error and nothing is partially applied.
// Codes without a symbol decode from and encode to the "other" tuple, so a
// value always survives a round trip.
//
// Engine byte output is returned to the host as text only when it is valid
// UTF-8 (see Text).
package codec
