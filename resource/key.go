package resource

import "github.com/wippyai/pgp-bridge/native"

// KeyHandle is an immutable key snapshot. It outlives the context that found
// it and is safe for concurrent reads without locking.
type KeyHandle struct {
	key native.Key
}

// NewKeyHandle snapshots k.
func NewKeyHandle(k native.Key) *KeyHandle {
	return &KeyHandle{key: k}
}

// Key returns the snapshot. Callers must not modify its slices.
func (k *KeyHandle) Key() native.Key {
	return k.key
}

// Fingerprint returns the primary key fingerprint.
func (k *KeyHandle) Fingerprint() string {
	return k.key.Fingerprint
}
