// Package native describes the object model of the wrapped cryptographic engine.
//
// Enumerations carry the engine's own numeric codes (the gpgme values), so a
// code the bridge does not name is still a valid value of its type:
//
//	native.ProtocolOpenPGP   // 0
//	native.Protocol(9999)    // unnamed, preserved as-is
//
// An engine implements Factory and Context. Context is stateful and not safe
// for concurrent use; callers serialize access (see package resource).
package native
