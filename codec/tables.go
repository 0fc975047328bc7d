package codec

import "github.com/wippyai/pgp-bridge/native"

// Protocols maps protocol symbols.
var Protocols = NewEnum("protocol",
	Entry[native.Protocol]{"open_pgp", native.ProtocolOpenPGP},
	Entry[native.Protocol]{"cms", native.ProtocolCMS},
	Entry[native.Protocol]{"gpg_conf", native.ProtocolGPGConf},
	Entry[native.Protocol]{"assuan", native.ProtocolAssuan},
	Entry[native.Protocol]{"g13", native.ProtocolG13},
	Entry[native.Protocol]{"ui_server", native.ProtocolUIServer},
	Entry[native.Protocol]{"spawn", native.ProtocolSpawn},
	Entry[native.Protocol]{"default", native.ProtocolDefault},
	Entry[native.Protocol]{"unknown", native.ProtocolUnknown},
)

// PinentryModes maps pinentry mode symbols.
var PinentryModes = NewEnum("pinentry mode",
	Entry[native.PinentryMode]{"default", native.PinentryDefault},
	Entry[native.PinentryMode]{"ask", native.PinentryAsk},
	Entry[native.PinentryMode]{"cancel", native.PinentryCancel},
	Entry[native.PinentryMode]{"error", native.PinentryError},
	Entry[native.PinentryMode]{"loopback", native.PinentryLoopback},
)

// SignModes maps sign mode symbols.
var SignModes = NewEnum("sign mode",
	Entry[native.SignMode]{"normal", native.SignModeNormal},
	Entry[native.SignMode]{"detached", native.SignModeDetached},
	Entry[native.SignMode]{"clear", native.SignModeClear},
)

// HashAlgorithms maps digest algorithm symbols.
var HashAlgorithms = NewEnum("hash algorithm",
	Entry[native.HashAlgorithm]{"none", native.HashNone},
	Entry[native.HashAlgorithm]{"md2", native.HashMD2},
	Entry[native.HashAlgorithm]{"md4", native.HashMD4},
	Entry[native.HashAlgorithm]{"md5", native.HashMD5},
	Entry[native.HashAlgorithm]{"sha1", native.HashSHA1},
	Entry[native.HashAlgorithm]{"sha224", native.HashSHA224},
	Entry[native.HashAlgorithm]{"sha256", native.HashSHA256},
	Entry[native.HashAlgorithm]{"sha384", native.HashSHA384},
	Entry[native.HashAlgorithm]{"sha512", native.HashSHA512},
	Entry[native.HashAlgorithm]{"ripe_md160", native.HashRIPEMD160},
	Entry[native.HashAlgorithm]{"tiger", native.HashTiger},
	Entry[native.HashAlgorithm]{"haval", native.HashHaval},
	Entry[native.HashAlgorithm]{"crc32", native.HashCRC32},
	Entry[native.HashAlgorithm]{"crc32_rfc1510", native.HashCRC32RFC1510},
	Entry[native.HashAlgorithm]{"crc24_rfc2440", native.HashCRC24RFC2440},
)

// KeyAlgorithms maps public key algorithm symbols.
var KeyAlgorithms = NewEnum("key algorithm",
	Entry[native.KeyAlgorithm]{"rsa", native.KeyRSA},
	Entry[native.KeyAlgorithm]{"rsa_encrypt", native.KeyRSAEncrypt},
	Entry[native.KeyAlgorithm]{"rsa_sign", native.KeyRSASign},
	Entry[native.KeyAlgorithm]{"elgamal_encrypt", native.KeyElgamalEncrypt},
	Entry[native.KeyAlgorithm]{"dsa", native.KeyDSA},
	Entry[native.KeyAlgorithm]{"ecc", native.KeyECC},
	Entry[native.KeyAlgorithm]{"elgamal", native.KeyElgamal},
	Entry[native.KeyAlgorithm]{"ecdsa", native.KeyECDSA},
	Entry[native.KeyAlgorithm]{"ecdh", native.KeyECDH},
	Entry[native.KeyAlgorithm]{"eddsa", native.KeyEdDSA},
)

// Validities maps validity symbols.
var Validities = NewEnum("validity",
	Entry[native.Validity]{"unknown", native.ValidityUnknown},
	Entry[native.Validity]{"undefined", native.ValidityUndefined},
	Entry[native.Validity]{"never", native.ValidityNever},
	Entry[native.Validity]{"marginal", native.ValidityMarginal},
	Entry[native.Validity]{"full", native.ValidityFull},
	Entry[native.Validity]{"ultimate", native.ValidityUltimate},
)

// PkaTrusts maps PKA trust symbols.
var PkaTrusts = NewEnum("pka trust",
	Entry[native.PkaTrust]{"unknown", native.PkaTrustUnknown},
	Entry[native.PkaTrust]{"bad", native.PkaTrustBad},
	Entry[native.PkaTrust]{"okay", native.PkaTrustOkay},
)

// EncryptFlags maps encryption flag symbols.
var EncryptFlags = NewFlags("encrypt flags",
	Entry[native.EncryptFlags]{"always_trust", native.EncryptAlwaysTrust},
	Entry[native.EncryptFlags]{"no_encrypt_to", native.EncryptNoEncryptTo},
	Entry[native.EncryptFlags]{"prepare", native.EncryptPrepare},
	Entry[native.EncryptFlags]{"expect_sign", native.EncryptExpectSign},
	Entry[native.EncryptFlags]{"no_compress", native.EncryptNoCompress},
	Entry[native.EncryptFlags]{"symmetric", native.EncryptSymmetric},
	Entry[native.EncryptFlags]{"throw_keyids", native.EncryptThrowKeyIDs},
	Entry[native.EncryptFlags]{"wrap", native.EncryptWrap},
)

// DecryptFlags maps decryption flag symbols.
var DecryptFlags = NewFlags("decrypt flags",
	Entry[native.DecryptFlags]{"verify", native.DecryptVerify},
	Entry[native.DecryptFlags]{"unwrap", native.DecryptUnwrap},
)

// ImportStatuses maps per-key import status bits.
var ImportStatuses = NewFlags("import status",
	Entry[native.ImportStatus]{"new", native.ImportNew},
	Entry[native.ImportStatus]{"uid", native.ImportUID},
	Entry[native.ImportStatus]{"sig", native.ImportSig},
	Entry[native.ImportStatus]{"subkey", native.ImportSubkey},
	Entry[native.ImportStatus]{"secret", native.ImportSecret},
)

// SigSummaries maps signature summary bits.
var SigSummaries = NewFlags("signature summary",
	Entry[native.SigSummary]{"valid", native.SigSumValid},
	Entry[native.SigSummary]{"green", native.SigSumGreen},
	Entry[native.SigSummary]{"red", native.SigSumRed},
	Entry[native.SigSummary]{"key_revoked", native.SigSumKeyRevoked},
	Entry[native.SigSummary]{"key_expired", native.SigSumKeyExpired},
	Entry[native.SigSummary]{"sig_expired", native.SigSumSigExpired},
	Entry[native.SigSummary]{"key_missing", native.SigSumKeyMissing},
	Entry[native.SigSummary]{"crl_missing", native.SigSumCRLMissing},
	Entry[native.SigSummary]{"crl_too_old", native.SigSumCRLTooOld},
	Entry[native.SigSummary]{"bad_policy", native.SigSumBadPolicy},
	Entry[native.SigSummary]{"sys_error", native.SigSumSysError},
	Entry[native.SigSummary]{"tofu_conflict", native.SigSumTofuConflict},
)
