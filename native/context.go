package native

// Context is one stateful engine session. Implementations are not safe for
// concurrent use and may block on I/O in every method that touches keys or
// data.
type Context interface {
	Protocol() Protocol

	Armor() bool
	SetArmor(yes bool)
	TextMode() bool
	SetTextMode(yes bool)
	Offline() bool
	SetOffline(yes bool)

	// Flag returns the value of a named context flag and whether it was set.
	Flag(name string) (string, bool)
	SetFlag(name, value string) error

	EngineInfo() EngineInfo
	SetEnginePath(path string) error
	SetEngineHomeDir(dir string) error

	PinentryMode() PinentryMode
	SetPinentryMode(mode PinentryMode) error

	Import(data []byte) (ImportResult, error)
	// GetKey looks a key up by fingerprint or key id. With secret set only keys
	// with secret material match.
	GetKey(fingerprint string, secret bool) (Key, error)
	// DeleteKey removes a public key; allowSecret also removes its secret part.
	DeleteKey(key Key, allowSecret bool) error

	Encrypt(recipients []Key, plaintext []byte, flags EncryptFlags) ([]byte, error)
	SignAndEncrypt(recipients []Key, plaintext []byte, flags EncryptFlags) ([]byte, error)
	Decrypt(ciphertext []byte, flags DecryptFlags) ([]byte, error)
	Sign(mode SignMode, data []byte) ([]byte, error)
	// VerifyOpaque checks signature against data. An empty data verifies an
	// inline (normal or cleartext) signature.
	VerifyOpaque(signature, data []byte) (VerificationResult, error)

	Close() error
}

// Factory creates contexts bound to a protocol.
type Factory interface {
	New(protocol Protocol) (Context, error)
}

// FactoryFunc adapts a function to Factory.
type FactoryFunc func(protocol Protocol) (Context, error)

// New calls f(protocol).
func (f FactoryFunc) New(protocol Protocol) (Context, error) {
	return f(protocol)
}
