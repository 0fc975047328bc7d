package native

import "time"

// Protocol selects the crypto engine backend of a context.
type Protocol uint32

const (
	ProtocolOpenPGP  Protocol = 0
	ProtocolCMS      Protocol = 1
	ProtocolGPGConf  Protocol = 2
	ProtocolAssuan   Protocol = 3
	ProtocolG13      Protocol = 4
	ProtocolUIServer Protocol = 5
	ProtocolSpawn    Protocol = 6
	ProtocolDefault  Protocol = 254
	ProtocolUnknown  Protocol = 255
)

// PinentryMode controls how passphrases are requested.
type PinentryMode uint32

const (
	PinentryDefault  PinentryMode = 0
	PinentryAsk      PinentryMode = 1
	PinentryCancel   PinentryMode = 2
	PinentryError    PinentryMode = 3
	PinentryLoopback PinentryMode = 4
)

// SignMode selects the signature layout.
type SignMode uint32

const (
	SignModeNormal   SignMode = 0
	SignModeDetached SignMode = 1
	SignModeClear    SignMode = 2
)

// EncryptFlags is a bit set of encryption options.
type EncryptFlags uint32

const (
	EncryptAlwaysTrust EncryptFlags = 1 << iota
	EncryptNoEncryptTo
	EncryptPrepare
	EncryptExpectSign
	EncryptNoCompress
	EncryptSymmetric
	EncryptThrowKeyIDs
	EncryptWrap
)

// DecryptFlags is a bit set of decryption options.
type DecryptFlags uint32

const (
	DecryptVerify DecryptFlags = 1
	DecryptUnwrap DecryptFlags = 128
)

// HashAlgorithm identifies a digest algorithm.
type HashAlgorithm uint32

const (
	HashNone         HashAlgorithm = 0
	HashMD5          HashAlgorithm = 1
	HashSHA1         HashAlgorithm = 2
	HashRIPEMD160    HashAlgorithm = 3
	HashMD2          HashAlgorithm = 5
	HashTiger        HashAlgorithm = 6
	HashHaval        HashAlgorithm = 7
	HashSHA256       HashAlgorithm = 8
	HashSHA384       HashAlgorithm = 9
	HashSHA512       HashAlgorithm = 10
	HashSHA224       HashAlgorithm = 11
	HashMD4          HashAlgorithm = 301
	HashCRC32        HashAlgorithm = 302
	HashCRC32RFC1510 HashAlgorithm = 303
	HashCRC24RFC2440 HashAlgorithm = 304
)

// KeyAlgorithm identifies a public key algorithm.
type KeyAlgorithm uint32

const (
	KeyRSA            KeyAlgorithm = 1
	KeyRSAEncrypt     KeyAlgorithm = 2
	KeyRSASign        KeyAlgorithm = 3
	KeyElgamalEncrypt KeyAlgorithm = 16
	KeyDSA            KeyAlgorithm = 17
	KeyECC            KeyAlgorithm = 18
	KeyElgamal        KeyAlgorithm = 20
	KeyECDSA          KeyAlgorithm = 301
	KeyECDH           KeyAlgorithm = 302
	KeyEdDSA          KeyAlgorithm = 303
)

// Validity is the computed validity of a key or signature.
type Validity uint32

const (
	ValidityUnknown   Validity = 0
	ValidityUndefined Validity = 1
	ValidityNever     Validity = 2
	ValidityMarginal  Validity = 3
	ValidityFull      Validity = 4
	ValidityUltimate  Validity = 5
)

// PkaTrust is the PKA lookup verdict of a signature.
type PkaTrust uint32

const (
	PkaTrustUnknown PkaTrust = 0
	PkaTrustBad     PkaTrust = 1
	PkaTrustOkay    PkaTrust = 2
)

// ImportStatus is a bit set describing what an import changed for one key.
type ImportStatus uint32

const (
	ImportNew    ImportStatus = 1
	ImportUID    ImportStatus = 2
	ImportSig    ImportStatus = 4
	ImportSubkey ImportStatus = 8
	ImportSecret ImportStatus = 16
)

// SigSummary is a bit set summarizing a signature verdict.
type SigSummary uint32

const (
	SigSumValid        SigSummary = 0x0001
	SigSumGreen        SigSummary = 0x0002
	SigSumRed          SigSummary = 0x0004
	SigSumKeyRevoked   SigSummary = 0x0010
	SigSumKeyExpired   SigSummary = 0x0020
	SigSumSigExpired   SigSummary = 0x0040
	SigSumKeyMissing   SigSummary = 0x0080
	SigSumCRLMissing   SigSummary = 0x0100
	SigSumCRLTooOld    SigSummary = 0x0200
	SigSumBadPolicy    SigSummary = 0x0400
	SigSumSysError     SigSummary = 0x0800
	SigSumTofuConflict SigSummary = 0x1000
)

// EngineInfo describes the backend bound to a context. Text fields are raw
// engine bytes; nil means the engine reported nothing.
type EngineInfo struct {
	Path            []byte
	HomeDir         []byte
	Version         []byte
	RequiredVersion []byte
	Protocol        Protocol
}

// Key is an immutable snapshot of a key record.
type Key struct {
	Created     time.Time
	Expires     time.Time
	Fingerprint string
	UserIDs     []UserID
	Subkeys     []Subkey
	KeyID       uint64
	Algorithm   KeyAlgorithm
	Validity    Validity
	OwnerTrust  Validity
	Secret      bool
	Revoked     bool
	Expired     bool
}

// Primary returns the primary subkey entry.
func (k Key) Primary() (Subkey, bool) {
	if len(k.Subkeys) == 0 {
		return Subkey{}, false
	}
	return k.Subkeys[0], true
}

// UserID is one identity bound to a key.
type UserID struct {
	UID      []byte
	Name     []byte
	Email    []byte
	Comment  []byte
	Validity Validity
	Revoked  bool
}

// Subkey is one (sub)key of a key record. The primary key is Subkeys[0].
type Subkey struct {
	Created     time.Time
	Expires     time.Time
	Fingerprint string
	KeyID       uint64
	Algorithm   KeyAlgorithm
	Length      uint16
	CanEncrypt  bool
	CanSign     bool
	CanCertify  bool
	Secret      bool
	Revoked     bool
	Expired     bool
}

// ImportResult reports the outcome of an import.
type ImportResult struct {
	Imports         []Import
	Considered      uint32
	NoUserID        uint32
	Imported        uint32
	Unchanged       uint32
	NewUserIDs      uint32
	NewSubkeys      uint32
	NewSignatures   uint32
	SecretRead      uint32
	SecretImported  uint32
	SecretUnchanged uint32
	NotImported     uint32
}

// Import is the per-key entry of an ImportResult.
type Import struct {
	Err         error
	Fingerprint []byte
	Status      ImportStatus
}

// VerificationResult reports every signature found by a verify call.
type VerificationResult struct {
	Filename   []byte
	Signatures []Signature
}

// Signature is the verdict for one signature packet.
type Signature struct {
	Timestamp    time.Time
	ExpTimestamp time.Time
	Status       error
	Fingerprint  []byte
	PkaAddress   []byte
	Notations    []SignatureNotation
	Summary      SigSummary
	Validity     Validity
	PubkeyAlgo   KeyAlgorithm
	HashAlgo     HashAlgorithm
	PkaTrust     PkaTrust
	WrongKeyUse  bool
}

// SignatureNotation is a notation or policy URL carried by a signature.
// A nil Name marks a policy URL.
type SignatureNotation struct {
	Name          []byte
	Value         []byte
	HumanReadable bool
	Critical      bool
}
