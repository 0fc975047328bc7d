package codec

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/wippyai/pgp-bridge/native"
)

// EngineInfoReport is the host view of native.EngineInfo.
type EngineInfoReport struct {
	Protocol        any
	Path            *string
	HomeDir         *string
	Version         *string
	RequiredVersion *string
}

// EncodeEngineInfo converts engine info for the host.
func EncodeEngineInfo(info native.EngineInfo) (EngineInfoReport, error) {
	r := EngineInfoReport{Protocol: Protocols.Encode(info.Protocol)}
	var err error
	if r.Path, err = OptionalText([]string{"path"}, info.Path); err != nil {
		return EngineInfoReport{}, err
	}
	if r.HomeDir, err = OptionalText([]string{"home_dir"}, info.HomeDir); err != nil {
		return EngineInfoReport{}, err
	}
	if r.Version, err = OptionalText([]string{"version"}, info.Version); err != nil {
		return EngineInfoReport{}, err
	}
	if r.RequiredVersion, err = OptionalText([]string{"required_version"}, info.RequiredVersion); err != nil {
		return EngineInfoReport{}, err
	}
	return r, nil
}

// KeyReport is the host view of a key snapshot.
type KeyReport struct {
	Fingerprint string
	KeyID       string
	Algorithm   any
	Validity    any
	OwnerTrust  any
	UserIDs     []UserIDReport
	Subkeys     []SubkeyReport
	Secret      bool
	Revoked     bool
	Expired     bool
}

// UserIDReport is one user id of a KeyReport.
type UserIDReport struct {
	UID      string
	Name     string
	Email    string
	Comment  string
	Validity any
	Revoked  bool
}

// SubkeyReport is one subkey of a KeyReport. Timestamps are unix seconds; zero
// means unset.
type SubkeyReport struct {
	Fingerprint string
	KeyID       string
	Algorithm   any
	Created     int64
	Expires     int64
	Length      uint16
	CanEncrypt  bool
	CanSign     bool
	CanCertify  bool
	Secret      bool
	Revoked     bool
	Expired     bool
}

// EncodeKey converts a key snapshot for the host.
func EncodeKey(k native.Key) (KeyReport, error) {
	r := KeyReport{
		Fingerprint: k.Fingerprint,
		KeyID:       keyID(k.KeyID),
		Algorithm:   KeyAlgorithms.Encode(k.Algorithm),
		Validity:    Validities.Encode(k.Validity),
		OwnerTrust:  Validities.Encode(k.OwnerTrust),
		Secret:      k.Secret,
		Revoked:     k.Revoked,
		Expired:     k.Expired,
	}
	for i, u := range k.UserIDs {
		base := []string{"user_ids", strconv.Itoa(i)}
		ur := UserIDReport{Validity: Validities.Encode(u.Validity), Revoked: u.Revoked}
		var err error
		if ur.UID, err = Text(sub(base, "uid"), u.UID); err != nil {
			return KeyReport{}, err
		}
		if ur.Name, err = Text(sub(base, "name"), u.Name); err != nil {
			return KeyReport{}, err
		}
		if ur.Email, err = Text(sub(base, "email"), u.Email); err != nil {
			return KeyReport{}, err
		}
		if ur.Comment, err = Text(sub(base, "comment"), u.Comment); err != nil {
			return KeyReport{}, err
		}
		r.UserIDs = append(r.UserIDs, ur)
	}
	for _, s := range k.Subkeys {
		r.Subkeys = append(r.Subkeys, SubkeyReport{
			Fingerprint: s.Fingerprint,
			KeyID:       keyID(s.KeyID),
			Algorithm:   KeyAlgorithms.Encode(s.Algorithm),
			Created:     unix(s.Created),
			Expires:     unix(s.Expires),
			Length:      s.Length,
			CanEncrypt:  s.CanEncrypt,
			CanSign:     s.CanSign,
			CanCertify:  s.CanCertify,
			Secret:      s.Secret,
			Revoked:     s.Revoked,
			Expired:     s.Expired,
		})
	}
	return r, nil
}

// ImportReport is the host view of native.ImportResult.
type ImportReport struct {
	Imports         []ImportEntry
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

// ImportEntry is the per-key result of an import. Error is nil on success.
type ImportEntry struct {
	Fingerprint *string
	Error       *string
	Status      []any
}

// EncodeImport converts an import result for the host.
func EncodeImport(res native.ImportResult) (ImportReport, error) {
	r := ImportReport{
		Considered:      res.Considered,
		NoUserID:        res.NoUserID,
		Imported:        res.Imported,
		Unchanged:       res.Unchanged,
		NewUserIDs:      res.NewUserIDs,
		NewSubkeys:      res.NewSubkeys,
		NewSignatures:   res.NewSignatures,
		SecretRead:      res.SecretRead,
		SecretImported:  res.SecretImported,
		SecretUnchanged: res.SecretUnchanged,
		NotImported:     res.NotImported,
	}
	for i, imp := range res.Imports {
		fpr, err := OptionalText([]string{"imports", strconv.Itoa(i), "fingerprint"}, imp.Fingerprint)
		if err != nil {
			return ImportReport{}, err
		}
		r.Imports = append(r.Imports, ImportEntry{
			Fingerprint: fpr,
			Error:       errText(imp.Err),
			Status:      ImportStatuses.Encode(imp.Status),
		})
	}
	return r, nil
}

// VerificationReport is the host view of native.VerificationResult.
type VerificationReport struct {
	Filename   *string
	Signatures []SignatureReport
}

// SignatureReport is the verdict for one signature. Status is nil for a good
// signature and the engine's message otherwise.
type SignatureReport struct {
	Fingerprint  *string
	Status       *string
	PkaAddress   *string
	Summary      []any
	Validity     any
	PubkeyAlgo   any
	HashAlgo     any
	PkaTrust     any
	Notations    []NotationReport
	Timestamp    int64
	ExpTimestamp int64
	WrongKeyUse  bool
}

// NotationReport is one signature notation. A nil Name marks a policy URL.
// Values of named notations that are not human readable are hex encoded.
type NotationReport struct {
	Name          *string
	Value         *string
	HumanReadable bool
	Critical      bool
}

// EncodeVerification converts a verification result for the host.
func EncodeVerification(res native.VerificationResult) (VerificationReport, error) {
	var r VerificationReport
	var err error
	if r.Filename, err = OptionalText([]string{"filename"}, res.Filename); err != nil {
		return VerificationReport{}, err
	}
	for i, sig := range res.Signatures {
		sr, err := EncodeSignature([]string{"signatures", strconv.Itoa(i)}, sig)
		if err != nil {
			return VerificationReport{}, err
		}
		r.Signatures = append(r.Signatures, sr)
	}
	return r, nil
}

// EncodeSignature converts one signature verdict. path prefixes error paths.
func EncodeSignature(path []string, sig native.Signature) (SignatureReport, error) {
	sr := SignatureReport{
		Status:       errText(sig.Status),
		Summary:      SigSummaries.Encode(sig.Summary),
		Validity:     Validities.Encode(sig.Validity),
		PubkeyAlgo:   KeyAlgorithms.Encode(sig.PubkeyAlgo),
		HashAlgo:     HashAlgorithms.Encode(sig.HashAlgo),
		PkaTrust:     PkaTrusts.Encode(sig.PkaTrust),
		Timestamp:    unix(sig.Timestamp),
		ExpTimestamp: unix(sig.ExpTimestamp),
		WrongKeyUse:  sig.WrongKeyUse,
	}
	var err error
	if sr.Fingerprint, err = OptionalText(sub(path, "fingerprint"), sig.Fingerprint); err != nil {
		return SignatureReport{}, err
	}
	if sr.PkaAddress, err = OptionalText(sub(path, "pka_address"), sig.PkaAddress); err != nil {
		return SignatureReport{}, err
	}
	for j, n := range sig.Notations {
		nr, err := EncodeNotation(sub(path, "notations", strconv.Itoa(j)), n)
		if err != nil {
			return SignatureReport{}, err
		}
		sr.Notations = append(sr.Notations, nr)
	}
	return sr, nil
}

// EncodeNotation converts one signature notation.
func EncodeNotation(path []string, n native.SignatureNotation) (NotationReport, error) {
	nr := NotationReport{HumanReadable: n.HumanReadable, Critical: n.Critical}
	var err error
	if nr.Name, err = OptionalText(sub(path, "name"), n.Name); err != nil {
		return NotationReport{}, err
	}
	if n.Name != nil && !n.HumanReadable {
		v := hex.EncodeToString(n.Value)
		nr.Value = &v
		return nr, nil
	}
	if nr.Value, err = OptionalText(sub(path, "value"), n.Value); err != nil {
		return NotationReport{}, err
	}
	return nr, nil
}

func sub(path []string, elems ...string) []string {
	out := make([]string, 0, len(path)+len(elems))
	out = append(out, path...)
	return append(out, elems...)
}

func errText(err error) *string {
	if err == nil {
		return nil
	}
	s := err.Error()
	return &s
}

func unix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func keyID(id uint64) string {
	return fmt.Sprintf("%016X", id)
}
