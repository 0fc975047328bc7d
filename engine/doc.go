// Package engine is an in-process OpenPGP engine implementing native.Factory.
//
// It is a reference backend. The bridge itself (packages runtime, dispatch,
// resource, codec and envelope) depends only on the native interfaces, and
// any other native.Factory can replace this one. Key storage, trust handling
// and passphrase prompting here exist so the bridge runs end to end; they
// are not part of the bridge contract.
//
// Each Context keeps gpgme-style state (armor, text mode, offline, pinentry
// mode, named flags, engine path and home directory) and performs key
// management and cryptographic operations with ProtonMail's go-crypto.
//
// # Keyring
//
// Keys persist in a bbolt database under the home directory (see
// internal/keystore). The database is opened for each operation, so several
// contexts or processes can share one home; the file lock serializes them
// and a lock wait longer than Options.LockTimeout fails with "Timeout".
//
// # Validity
//
// Keys imported with secret material are ultimately valid. Public-only keys
// start at unknown validity and can be raised with Engine.SetTrust. Revoked
// or expired keys are never valid. Encrypting to a key below marginal
// validity requires the always_trust flag or the trust-model=always context
// flag.
//
// # Protocols
//
// Contexts can be created for any protocol code. Only open_pgp and default
// are backed by this engine; other protocols keep their configuration state
// and fail every key or data operation with "Unsupported protocol".
//
// # Passphrases
//
// Encrypted secret keys are unlocked through package pinentry according to the
// context's pinentry mode.
package engine
