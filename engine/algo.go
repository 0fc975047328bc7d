package engine

import (
	"crypto"

	"github.com/ProtonMail/go-crypto/openpgp/packet"

	"github.com/wippyai/pgp-bridge/native"
)

// OpenPGP algorithm ids without a go-crypto constant name in every release.
const (
	pubKeyAlgoX25519  packet.PublicKeyAlgorithm = 25
	pubKeyAlgoX448    packet.PublicKeyAlgorithm = 26
	pubKeyAlgoEd25519 packet.PublicKeyAlgorithm = 27
	pubKeyAlgoEd448   packet.PublicKeyAlgorithm = 28
)

// keyAlgorithm maps an OpenPGP public key algorithm to the engine code.
// Unmapped ids pass through as raw codes offset past the named range.
func keyAlgorithm(a packet.PublicKeyAlgorithm) native.KeyAlgorithm {
	switch a {
	case packet.PubKeyAlgoRSA:
		return native.KeyRSA
	case packet.PubKeyAlgoRSAEncryptOnly:
		return native.KeyRSAEncrypt
	case packet.PubKeyAlgoRSASignOnly:
		return native.KeyRSASign
	case packet.PubKeyAlgoElGamal:
		return native.KeyElgamalEncrypt
	case packet.PubKeyAlgoDSA:
		return native.KeyDSA
	case packet.PubKeyAlgoECDH, pubKeyAlgoX25519, pubKeyAlgoX448:
		return native.KeyECDH
	case packet.PubKeyAlgoECDSA:
		return native.KeyECDSA
	case packet.PubKeyAlgoEdDSA, pubKeyAlgoEd25519, pubKeyAlgoEd448:
		return native.KeyEdDSA
	default:
		return native.KeyAlgorithm(1000 + uint32(a))
	}
}

// hashAlgorithm maps a digest to the engine code. SHA-3 digests have no
// engine name and keep their OpenPGP ids.
func hashAlgorithm(h crypto.Hash) native.HashAlgorithm {
	switch h {
	case crypto.MD5:
		return native.HashMD5
	case crypto.SHA1:
		return native.HashSHA1
	case crypto.RIPEMD160:
		return native.HashRIPEMD160
	case crypto.SHA224:
		return native.HashSHA224
	case crypto.SHA256:
		return native.HashSHA256
	case crypto.SHA384:
		return native.HashSHA384
	case crypto.SHA512:
		return native.HashSHA512
	case crypto.SHA3_256:
		return native.HashAlgorithm(12)
	case crypto.SHA3_512:
		return native.HashAlgorithm(14)
	default:
		return native.HashNone
	}
}
