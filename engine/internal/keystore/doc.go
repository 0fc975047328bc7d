// Package keystore persists the engine's keyring in a bbolt database under
// the engine home directory.
//
// Keys are stored by uppercase hex fingerprint. Public and secret material
// live in separate buckets so a secret part can be removed on its own. The
// order bucket records insertion order, which decides the default signer.
package keystore
