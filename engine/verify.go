package engine

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/clearsign"
	pgperrors "github.com/ProtonMail/go-crypto/openpgp/errors"
	"github.com/ProtonMail/go-crypto/openpgp/packet"
	"go.uber.org/zap"

	"github.com/wippyai/pgp-bridge/engine/internal/keystore"
	"github.com/wippyai/pgp-bridge/native"
)

const tagSignature = 2

// VerifyOpaque checks signature against data. With empty data the signature
// is an inline signed message or a cleartext signature.
func (c *Context) VerifyOpaque(signature, data []byte) (native.VerificationResult, error) {
	var res native.VerificationResult
	err := c.withStore(func(s *keystore.Store) error {
		all, err := loadAll(s)
		if err != nil {
			return err
		}
		v := &verifier{ring: entityList(all), keys: all, now: c.now(), cfg: c.config()}

		switch {
		case len(data) > 0:
			res, err = v.detached(signature, data)
		default:
			if block, _ := clearsign.Decode(signature); block != nil {
				sig, rerr := io.ReadAll(block.ArmoredSignature.Body)
				if rerr != nil {
					return native.WrapError(native.CodeNoData, rerr)
				}
				res, err = v.detachedPackets(sig, block.Bytes)
			} else {
				res, err = v.inline(signature)
			}
		}
		return err
	})
	if err != nil {
		return native.VerificationResult{}, err
	}
	Logger().Debug("verified", zap.Int("signatures", len(res.Signatures)))
	return res, nil
}

type verifier struct {
	now  time.Time
	cfg  *packet.Config
	ring openpgp.EntityList
	keys []stored
}

func (v *verifier) detached(signature, data []byte) (native.VerificationResult, error) {
	r, err := dearmor(signature)
	if err != nil {
		return native.VerificationResult{}, native.WrapError(native.CodeNoData, err)
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return native.VerificationResult{}, native.WrapError(native.CodeNoData, err)
	}
	return v.detachedPackets(raw, data)
}

// detachedPackets verifies each signature packet of raw on its own.
func (v *verifier) detachedPackets(raw, data []byte) (native.VerificationResult, error) {
	var res native.VerificationResult
	or := packet.NewOpaqueReader(bytes.NewReader(raw))
	for {
		op, err := or.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			if len(res.Signatures) == 0 {
				return res, native.WrapError(native.CodeNoData, err)
			}
			break
		}
		if op.Tag != tagSignature {
			continue
		}

		p, err := op.Parse()
		sig, ok := p.(*packet.Signature)
		if err != nil || !ok {
			res.Signatures = append(res.Signatures, native.Signature{
				Status:  native.WrapError(native.CodeBadSignature, err),
				Summary: native.SigSumRed,
			})
			continue
		}

		var one bytes.Buffer
		if err := op.Serialize(&one); err != nil {
			return res, native.WrapError(native.CodeGeneral, err)
		}
		signer, verr := openpgp.CheckDetachedSignature(v.ring, bytes.NewReader(data), &one, v.cfg)
		res.Signatures = append(res.Signatures, v.result(sig, sigKeyID(sig), signer, verr))
	}
	if len(res.Signatures) == 0 {
		return res, native.NewError(native.CodeNoData)
	}
	return res, nil
}

func (v *verifier) inline(signature []byte) (native.VerificationResult, error) {
	var res native.VerificationResult
	r, err := dearmor(signature)
	if err != nil {
		return res, native.WrapError(native.CodeNoData, err)
	}
	md, err := openpgp.ReadMessage(r, v.ring, nil, v.cfg)
	if err != nil {
		return res, native.WrapError(native.CodeNoData, err)
	}
	if !md.IsSigned {
		return res, native.NewError(native.CodeNoData)
	}
	if _, err := io.Copy(io.Discard, md.UnverifiedBody); err != nil {
		return res, native.WrapError(native.CodeGeneral, err)
	}
	if md.LiteralData != nil && md.LiteralData.FileName != "" {
		res.Filename = []byte(md.LiteralData.FileName)
	}

	verr := md.SignatureError
	if verr == nil && md.SignedBy == nil {
		verr = pgperrors.ErrUnknownIssuer
	}
	var signer *openpgp.Entity
	if md.SignedBy != nil {
		signer = md.SignedBy.Entity
	}
	res.Signatures = append(res.Signatures, v.result(md.Signature, md.SignedByKeyId, signer, verr))
	return res, nil
}

// result builds the verdict for one signature. sig may be nil when the
// packet was never reached.
func (v *verifier) result(sig *packet.Signature, keyID uint64, signer *openpgp.Entity, verr error) native.Signature {
	out := native.Signature{
		PkaTrust: native.PkaTrustUnknown,
		Validity: native.ValidityUnknown,
	}
	if sig != nil {
		out.Timestamp = sig.CreationTime
		if sig.SigLifetimeSecs != nil && *sig.SigLifetimeSecs > 0 {
			out.ExpTimestamp = sig.CreationTime.Add(time.Duration(*sig.SigLifetimeSecs) * time.Second)
		}
		out.PubkeyAlgo = keyAlgorithm(sig.PubKeyAlgo)
		out.HashAlgo = hashAlgorithm(sig.Hash)
		for _, n := range sig.Notations {
			out.Notations = append(out.Notations, native.SignatureNotation{
				Name:          []byte(n.Name),
				Value:         n.Value,
				HumanReadable: n.IsHumanReadable,
				Critical:      n.IsCritical,
			})
		}
	}
	out.Fingerprint = v.signingFingerprint(sig, keyID)

	if signer != nil {
		if st, ok := v.lookup(fingerprint(signer)); ok {
			out.Validity = validity(st.pub, st.rec.Trust, v.now)
		}
		if revoked(signer) {
			out.Summary |= native.SigSumKeyRevoked
		}
	}

	switch {
	case verr == nil:
		out.Summary |= native.SigSumValid
		if out.Validity >= native.ValidityFull {
			out.Summary |= native.SigSumGreen
		}
	case errors.Is(verr, pgperrors.ErrUnknownIssuer):
		out.Status = native.NewError(native.CodeNoPubkey)
		out.Summary |= native.SigSumKeyMissing
	case errors.Is(verr, pgperrors.ErrSignatureExpired):
		out.Status = native.NewError(native.CodeSigExpired)
		out.Summary |= native.SigSumSigExpired
	case errors.Is(verr, pgperrors.ErrKeyExpired):
		out.Status = native.NewError(native.CodeKeyExpired)
		out.Summary |= native.SigSumKeyExpired
	default:
		out.Status = native.WrapError(native.CodeBadSignature, verr)
		out.Summary |= native.SigSumRed
	}
	return out
}

// signingFingerprint names the key that made sig: the issuer fingerprint
// when present, else the fingerprint of a known key with that id, else the
// long key id.
func (v *verifier) signingFingerprint(sig *packet.Signature, keyID uint64) []byte {
	if sig != nil && len(sig.IssuerFingerprint) > 0 {
		return []byte(fmt.Sprintf("%X", sig.IssuerFingerprint))
	}
	if keyID == 0 {
		return nil
	}
	if keys := v.ring.KeysById(keyID); len(keys) > 0 {
		return []byte(pkFingerprint(keys[0].PublicKey))
	}
	return []byte(fmt.Sprintf("%016X", keyID))
}

func (v *verifier) lookup(fpr string) (stored, bool) {
	for _, st := range v.keys {
		if st.rec.Fingerprint == fpr {
			return st, true
		}
	}
	return stored{}, false
}

func sigKeyID(sig *packet.Signature) uint64 {
	if sig.IssuerKeyId != nil {
		return *sig.IssuerKeyId
	}
	return 0
}
