package engine

import (
	"bytes"
	"errors"
	"io"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/clearsign"
	pgperrors "github.com/ProtonMail/go-crypto/openpgp/errors"
	"github.com/ProtonMail/go-crypto/openpgp/packet"
	"go.uber.org/zap"

	"github.com/wippyai/pgp-bridge/engine/internal/keystore"
	"github.com/wippyai/pgp-bridge/native"
	"github.com/wippyai/pgp-bridge/pinentry"
)

// Armor block types.
const (
	blockMessage   = "PGP MESSAGE"
	blockSignature = "PGP SIGNATURE"
)

// Encrypt encrypts plaintext to recipients.
func (c *Context) Encrypt(recipients []native.Key, plaintext []byte, flags native.EncryptFlags) ([]byte, error) {
	return c.encrypt(recipients, plaintext, flags, false)
}

// SignAndEncrypt encrypts plaintext to recipients and signs it with the
// default secret key.
func (c *Context) SignAndEncrypt(recipients []native.Key, plaintext []byte, flags native.EncryptFlags) ([]byte, error) {
	return c.encrypt(recipients, plaintext, flags, true)
}

func (c *Context) encrypt(recipients []native.Key, plaintext []byte, flags native.EncryptFlags, sign bool) ([]byte, error) {
	if flags&(native.EncryptThrowKeyIDs|native.EncryptWrap) != 0 {
		return nil, native.NewError(native.CodeNotImplemented)
	}
	symmetric := flags&native.EncryptSymmetric != 0
	if symmetric && len(recipients) > 0 {
		return nil, native.NewError(native.CodeNotImplemented)
	}
	if !symmetric && len(recipients) == 0 {
		return nil, native.NewError(native.CodeNoPubkey)
	}

	cfg := c.config()
	if flags&native.EncryptNoCompress != 0 {
		cfg.DefaultCompressionAlgo = packet.CompressionNone
	}
	hints := &openpgp.FileHints{IsBinary: !c.textMode}

	var out []byte
	err := c.withStore(func(s *keystore.Store) error {
		var signer *openpgp.Entity
		if sign {
			var err error
			if signer, err = c.signer(s); err != nil {
				return err
			}
		}

		if symmetric {
			src, err := c.passphrases()
			if err != nil {
				return err
			}
			pass, err := src.Passphrase(pinentry.Request{Symmetric: true, Attempt: 1})
			if err != nil {
				return err
			}
			out, err = armored(c.armor, blockMessage, func(w io.Writer) error {
				pw, err := openpgp.SymmetricallyEncrypt(w, pass, hints, cfg)
				if err != nil {
					return err
				}
				return writeClose(pw, plaintext)
			})
			return encryptError(err)
		}

		to, err := c.recipients(s, recipients, flags)
		if err != nil {
			return err
		}
		out, err = armored(c.armor, blockMessage, func(w io.Writer) error {
			pw, err := openpgp.Encrypt(w, to, signer, hints, cfg)
			if err != nil {
				return err
			}
			return writeClose(pw, plaintext)
		})
		return encryptError(err)
	})
	if err != nil {
		return nil, err
	}
	Logger().Debug("encrypted", zap.Int("recipients", len(recipients)), zap.Bool("signed", sign), zap.Int("bytes", len(out)))
	return out, nil
}

// recipients resolves key snapshots against the keyring and checks that each
// is valid enough to encrypt to.
func (c *Context) recipients(s *keystore.Store, keys []native.Key, flags native.EncryptFlags) ([]*openpgp.Entity, error) {
	trustAll := flags&native.EncryptAlwaysTrust != 0 || c.alwaysTrust()
	now := c.now()
	to := make([]*openpgp.Entity, 0, len(keys))
	unusable := func(fpr, reason string) error {
		Logger().Debug("unusable recipient", zap.String("fingerprint", fpr), zap.String("reason", reason))
		return native.NewError(native.CodeUnusablePubkey)
	}
	for _, k := range keys {
		rec, err := s.Get(k.Fingerprint)
		if err != nil {
			return nil, unusable(k.Fingerprint, "not in keyring")
		}
		st, err := parseRecord(rec)
		if err != nil {
			return nil, native.WrapError(native.CodeGeneral, err)
		}
		v := validity(st.pub, rec.Trust, now)
		if v == native.ValidityNever {
			return nil, unusable(k.Fingerprint, "revoked or expired")
		}
		if !trustAll && v < native.ValidityMarginal {
			return nil, unusable(k.Fingerprint, "untrusted")
		}
		if _, ok := st.pub.EncryptionKey(now); !ok {
			return nil, unusable(k.Fingerprint, "no encryption subkey")
		}
		to = append(to, st.pub)
	}
	return to, nil
}

// signer returns the first usable secret key of the keyring, unlocked.
func (c *Context) signer(s *keystore.Store) (*openpgp.Entity, error) {
	all, err := loadAll(s)
	if err != nil {
		return nil, err
	}
	now := c.now()
	for _, st := range all {
		if st.secret == nil || validity(st.secret, st.rec.Trust, now) == native.ValidityNever {
			continue
		}
		if _, ok := st.secret.SigningKey(now); !ok {
			continue
		}
		if err := c.unlock(st.secret); err != nil {
			return nil, err
		}
		return st.secret, nil
	}
	return nil, native.NewError(native.CodeNoSeckey)
}

// maxAttempts bounds passphrase prompts per key or symmetric message.
const maxAttempts = 3

// unlock decrypts the secret keys of e with a passphrase from the pinentry
// source, asking again after a wrong one.
func (c *Context) unlock(e *openpgp.Entity) error {
	if len(encryptedKeys(e)) == 0 {
		return nil
	}
	src, err := c.passphrases()
	if err != nil {
		return err
	}
	req := pinentry.Request{Fingerprint: fingerprint(e), UserID: primaryUserID(e)}
	for req.Attempt = 1; req.Attempt <= maxAttempts; req.Attempt++ {
		pass, err := src.Passphrase(req)
		if err != nil {
			return err
		}
		for _, pk := range encryptedKeys(e) {
			if err := pk.Decrypt(pass); err != nil {
				break
			}
		}
		if len(encryptedKeys(e)) == 0 {
			return nil
		}
		Logger().Debug("wrong passphrase", zap.String("fingerprint", req.Fingerprint), zap.Int("attempt", req.Attempt))
	}
	return native.NewError(native.CodeBadPassphrase)
}

// encryptedKeys returns the still locked private keys of e.
func encryptedKeys(e *openpgp.Entity) []*packet.PrivateKey {
	var out []*packet.PrivateKey
	if e.PrivateKey != nil && e.PrivateKey.Encrypted {
		out = append(out, e.PrivateKey)
	}
	for _, sk := range e.Subkeys {
		if sk.PrivateKey != nil && sk.PrivateKey.Encrypted {
			out = append(out, sk.PrivateKey)
		}
	}
	return out
}

func writeClose(w io.WriteCloser, data []byte) error {
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

// encryptError keeps engine errors and wraps library failures.
func encryptError(err error) error {
	if err == nil {
		return nil
	}
	var ne *native.Error
	if errors.As(err, &ne) {
		return err
	}
	return native.WrapError(native.CodeGeneral, err)
}

// Decrypt decrypts ciphertext with any secret key of the keyring.
func (c *Context) Decrypt(ciphertext []byte, flags native.DecryptFlags) ([]byte, error) {
	if flags&native.DecryptUnwrap != 0 {
		return nil, native.NewError(native.CodeNotImplemented)
	}

	var out []byte
	err := c.withStore(func(s *keystore.Store) error {
		all, err := loadAll(s)
		if err != nil {
			return err
		}
		src, err := c.passphrases()
		if err != nil {
			return err
		}

		r, err := dearmor(ciphertext)
		if err != nil {
			return native.WrapError(native.CodeNoData, err)
		}
		md, err := openpgp.ReadMessage(r, entityList(all), prompter(src), c.config())
		if err != nil {
			return decryptError(err)
		}
		if !md.IsEncrypted {
			return native.NewError(native.CodeNoData)
		}

		if out, err = io.ReadAll(md.UnverifiedBody); err != nil {
			return native.WrapError(native.CodeDecryptFailed, err)
		}
		if flags&native.DecryptVerify != 0 && md.IsSigned && md.SignatureError != nil {
			if errors.Is(md.SignatureError, pgperrors.ErrUnknownIssuer) {
				return native.NewError(native.CodeNoPubkey)
			}
			return native.WrapError(native.CodeBadSignature, md.SignatureError)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// prompter unlocks secret keys for ReadMessage. Each key, and the symmetric
// passphrase, gets maxAttempts tries before the message is given up on.
func prompter(src pinentry.Source) openpgp.PromptFunction {
	attempts := make(map[uint64]int)
	symmetric := 0
	return func(keys []openpgp.Key, isSymmetric bool) ([]byte, error) {
		if isSymmetric {
			if symmetric >= maxAttempts {
				return nil, native.NewError(native.CodeBadPassphrase)
			}
			symmetric++
			return src.Passphrase(pinentry.Request{Symmetric: true, Attempt: symmetric})
		}
		for _, k := range keys {
			if k.PrivateKey == nil || !k.PrivateKey.Encrypted {
				continue
			}
			id := k.PrivateKey.KeyId
			req := pinentry.Request{Fingerprint: fingerprint(k.Entity), UserID: primaryUserID(k.Entity)}
			for attempts[id] < maxAttempts {
				attempts[id]++
				req.Attempt = attempts[id]
				pass, err := src.Passphrase(req)
				if err != nil {
					return nil, err
				}
				if k.PrivateKey.Decrypt(pass) == nil {
					return nil, nil
				}
			}
		}
		return nil, native.NewError(native.CodeBadPassphrase)
	}
}

func decryptError(err error) error {
	var ne *native.Error
	switch {
	case errors.As(err, &ne):
		return err
	case errors.Is(err, pgperrors.ErrKeyIncorrect):
		return native.NewError(native.CodeNoSeckey)
	default:
		return native.WrapError(native.CodeDecryptFailed, err)
	}
}

// Sign signs data with the default secret key.
func (c *Context) Sign(mode native.SignMode, data []byte) ([]byte, error) {
	switch mode {
	case native.SignModeNormal, native.SignModeDetached, native.SignModeClear:
	default:
		return nil, native.NewError(native.CodeInvValue)
	}

	var out []byte
	err := c.withStore(func(s *keystore.Store) error {
		signer, err := c.signer(s)
		if err != nil {
			return err
		}
		cfg := c.config()

		switch mode {
		case native.SignModeNormal:
			out, err = armored(c.armor, blockMessage, func(w io.Writer) error {
				pw, err := openpgp.Sign(w, signer, &openpgp.FileHints{IsBinary: !c.textMode}, cfg)
				if err != nil {
					return err
				}
				return writeClose(pw, data)
			})
		case native.SignModeDetached:
			out, err = armored(c.armor, blockSignature, func(w io.Writer) error {
				if c.textMode {
					return openpgp.DetachSignText(w, signer, bytes.NewReader(data), cfg)
				}
				return openpgp.DetachSign(w, signer, bytes.NewReader(data), cfg)
			})
		case native.SignModeClear:
			key, ok := signer.SigningKey(c.now())
			if !ok {
				return native.NewError(native.CodeUnusableSeckey)
			}
			var buf bytes.Buffer
			pw, cerr := clearsign.Encode(&buf, key.PrivateKey, cfg)
			if cerr != nil {
				return native.WrapError(native.CodeGeneral, cerr)
			}
			if err = writeClose(pw, data); err == nil {
				out = buf.Bytes()
			}
		}
		return encryptError(err)
	})
	if err != nil {
		return nil, err
	}
	Logger().Debug("signed", zap.Uint32("mode", uint32(mode)), zap.Int("bytes", len(out)))
	return out, nil
}
