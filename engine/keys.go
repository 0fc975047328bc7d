package engine

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/ProtonMail/go-crypto/openpgp/packet"
	"go.uber.org/zap"

	"github.com/wippyai/pgp-bridge/engine/internal/keystore"
	"github.com/wippyai/pgp-bridge/native"
)

// stored is a keyring record with its parsed entities. secret is nil for
// public-only keys.
type stored struct {
	pub    *openpgp.Entity
	secret *openpgp.Entity
	rec    keystore.Record
}

// entity returns the richest view of the key.
func (s stored) entity() *openpgp.Entity {
	if s.secret != nil {
		return s.secret
	}
	return s.pub
}

func parseEntity(b []byte) (*openpgp.Entity, error) {
	return openpgp.ReadEntity(packet.NewReader(bytes.NewReader(b)))
}

func parseRecord(rec keystore.Record) (stored, error) {
	pub, err := parseEntity(rec.Public)
	if err != nil {
		return stored{}, fmt.Errorf("key %s: %w", rec.Fingerprint, err)
	}
	s := stored{pub: pub, rec: rec}
	if rec.HasSecret() {
		if s.secret, err = parseEntity(rec.Secret); err != nil {
			return stored{}, fmt.Errorf("secret key %s: %w", rec.Fingerprint, err)
		}
	}
	return s, nil
}

// loadAll parses the whole keyring in insertion order. Unreadable records are
// skipped.
func loadAll(s *keystore.Store) ([]stored, error) {
	recs, err := s.List()
	if err != nil {
		return nil, native.WrapError(native.CodeGeneral, err)
	}
	out := make([]stored, 0, len(recs))
	for _, rec := range recs {
		st, err := parseRecord(rec)
		if err != nil {
			Logger().Warn("skipping unreadable key", zap.String("fingerprint", rec.Fingerprint), zap.Error(err))
			continue
		}
		out = append(out, st)
	}
	return out, nil
}

// entityList returns every key as an openpgp keyring, preferring secret views.
func entityList(all []stored) openpgp.EntityList {
	out := make(openpgp.EntityList, 0, len(all))
	for _, s := range all {
		out = append(out, s.entity())
	}
	return out
}

func fingerprint(e *openpgp.Entity) string {
	return strings.ToUpper(hex.EncodeToString(e.PrimaryKey.Fingerprint[:]))
}

func pkFingerprint(pk *packet.PublicKey) string {
	return strings.ToUpper(hex.EncodeToString(pk.Fingerprint[:]))
}

// normalizeQuery strips spaces and a 0x prefix and upper-cases a fingerprint
// or key id.
func normalizeQuery(q string) string {
	q = strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(q), " ", ""))
	return strings.TrimPrefix(q, "0X")
}

// matches reports whether q names e by fingerprint, long or short key id, of
// the primary key or a subkey.
func matches(e *openpgp.Entity, q string) bool {
	match := func(pk *packet.PublicKey) bool {
		fpr := pkFingerprint(pk)
		switch len(q) {
		case len(fpr):
			return fpr == q
		case 16, 8:
			return strings.HasSuffix(fpr, q)
		}
		return false
	}
	if match(e.PrimaryKey) {
		return true
	}
	for _, sk := range e.Subkeys {
		if match(sk.PublicKey) {
			return true
		}
	}
	return false
}

func selfSignature(e *openpgp.Entity) *packet.Signature {
	if id := e.PrimaryIdentity(); id != nil {
		return id.SelfSignature
	}
	return nil
}

func primaryUserID(e *openpgp.Entity) string {
	if id := e.PrimaryIdentity(); id != nil {
		return id.Name
	}
	return ""
}

func expiry(created time.Time, sig *packet.Signature) time.Time {
	if sig == nil || sig.KeyLifetimeSecs == nil || *sig.KeyLifetimeSecs == 0 {
		return time.Time{}
	}
	return created.Add(time.Duration(*sig.KeyLifetimeSecs) * time.Second)
}

func expired(exp, now time.Time) bool {
	return !exp.IsZero() && !now.Before(exp)
}

func revoked(e *openpgp.Entity) bool {
	return len(e.Revocations) > 0
}

// validity is the stored trust capped by the key's own state.
func validity(e *openpgp.Entity, trust uint8, now time.Time) native.Validity {
	if revoked(e) || expired(expiry(e.PrimaryKey.CreationTime, selfSignature(e)), now) {
		return native.ValidityNever
	}
	return native.Validity(trust)
}

func bitLength(pk *packet.PublicKey) uint16 {
	n, err := pk.BitLength()
	if err != nil {
		return 0
	}
	return n
}

// snapshot converts a stored key into the engine-neutral model.
func snapshot(s stored, now time.Time) native.Key {
	e := s.entity()
	self := selfSignature(e)
	v := validity(e, s.rec.Trust, now)
	exp := expiry(e.PrimaryKey.CreationTime, self)

	k := native.Key{
		Created:     e.PrimaryKey.CreationTime,
		Expires:     exp,
		Fingerprint: fingerprint(e),
		KeyID:       e.PrimaryKey.KeyId,
		Algorithm:   keyAlgorithm(e.PrimaryKey.PubKeyAlgo),
		Validity:    v,
		OwnerTrust:  native.Validity(s.rec.Trust),
		Secret:      s.secret != nil,
		Revoked:     revoked(e),
		Expired:     expired(exp, now),
	}

	names := make([]string, 0, len(e.Identities))
	for name := range e.Identities {
		names = append(names, name)
	}
	sort.Strings(names)
	if p := e.PrimaryIdentity(); p != nil {
		// Primary identity first, the rest sorted.
		for i, name := range names {
			if name == p.Name {
				copy(names[1:i+1], names[:i])
				names[0] = name
				break
			}
		}
	}
	for _, name := range names {
		id := e.Identities[name]
		uid := native.UserID{UID: []byte(name), Validity: v, Revoked: len(id.Revocations) > 0}
		if id.UserId != nil {
			uid.Name = []byte(id.UserId.Name)
			uid.Email = []byte(id.UserId.Email)
			uid.Comment = []byte(id.UserId.Comment)
		}
		if uid.Revoked {
			uid.Validity = native.ValidityNever
		}
		k.UserIDs = append(k.UserIDs, uid)
	}

	primary := native.Subkey{
		Created:     e.PrimaryKey.CreationTime,
		Expires:     exp,
		Fingerprint: k.Fingerprint,
		KeyID:       e.PrimaryKey.KeyId,
		Algorithm:   k.Algorithm,
		Length:      bitLength(e.PrimaryKey),
		Secret:      e.PrivateKey != nil,
		Revoked:     k.Revoked,
		Expired:     k.Expired,
	}
	if self != nil && self.FlagsValid {
		primary.CanCertify = self.FlagCertify
		primary.CanSign = self.FlagSign
		primary.CanEncrypt = self.FlagEncryptCommunications || self.FlagEncryptStorage
	} else {
		primary.CanCertify = e.PrimaryKey.CanSign()
		primary.CanSign = e.PrimaryKey.CanSign()
	}
	k.Subkeys = append(k.Subkeys, primary)

	for _, sk := range e.Subkeys {
		skExp := expiry(sk.PublicKey.CreationTime, sk.Sig)
		sub := native.Subkey{
			Created:     sk.PublicKey.CreationTime,
			Expires:     skExp,
			Fingerprint: pkFingerprint(sk.PublicKey),
			KeyID:       sk.PublicKey.KeyId,
			Algorithm:   keyAlgorithm(sk.PublicKey.PubKeyAlgo),
			Length:      bitLength(sk.PublicKey),
			Secret:      sk.PrivateKey != nil,
			Revoked:     len(sk.Revocations) > 0,
			Expired:     expired(skExp, now),
		}
		if sk.Sig != nil && sk.Sig.FlagsValid {
			sub.CanSign = sk.Sig.FlagSign
			sub.CanEncrypt = sk.Sig.FlagEncryptCommunications || sk.Sig.FlagEncryptStorage
		}
		k.Subkeys = append(k.Subkeys, sub)
	}
	return k
}

// readKeys parses an armored or binary key block.
func readKeys(data []byte) (openpgp.EntityList, error) {
	trimmed := bytes.TrimSpace(data)
	if bytes.HasPrefix(trimmed, []byte("-----BEGIN ")) {
		return openpgp.ReadArmoredKeyRing(bytes.NewReader(trimmed))
	}
	return openpgp.ReadKeyRing(bytes.NewReader(data))
}

// Import merges key material into the keyring. The block is stored in one
// transaction, so a failure leaves the keyring as it was.
func (c *Context) Import(data []byte) (native.ImportResult, error) {
	var res native.ImportResult
	err := c.withStore(func(s *keystore.Store) error {
		entities, err := readKeys(data)
		if err != nil || len(entities) == 0 {
			return native.NewError(native.CodeNoData)
		}
		b := &importBatch{store: s, pending: make(map[string]int)}
		for _, e := range entities {
			imp, err := b.add(e, &res)
			if err != nil {
				return err
			}
			res.Imports = append(res.Imports, imp)
		}
		if err := s.PutAll(b.records); err != nil {
			return native.WrapError(native.CodeGeneral, err)
		}
		return nil
	})
	if err != nil {
		return native.ImportResult{}, err
	}
	Logger().Debug("import", zap.Uint32("considered", res.Considered), zap.Uint32("imported", res.Imported))
	return res, nil
}

// importBatch collects the records of one import. Keys repeated within the
// block merge with the pending record instead of the stored one.
type importBatch struct {
	store   *keystore.Store
	records []keystore.Record
	pending map[string]int
}

func (b *importBatch) get(fpr string) (keystore.Record, error) {
	if i, ok := b.pending[fpr]; ok {
		return b.records[i], nil
	}
	return b.store.Get(fpr)
}

func (b *importBatch) put(rec keystore.Record) {
	if i, ok := b.pending[rec.Fingerprint]; ok {
		if rec.Secret == nil {
			rec.Secret = b.records[i].Secret
		}
		b.records[i] = rec
		return
	}
	b.pending[rec.Fingerprint] = len(b.records)
	b.records = append(b.records, rec)
}

func (b *importBatch) add(e *openpgp.Entity, res *native.ImportResult) (native.Import, error) {
	fpr := fingerprint(e)
	imp := native.Import{Fingerprint: []byte(fpr)}
	res.Considered++
	if len(e.Identities) == 0 {
		res.NoUserID++
	}

	importedSecret := e.PrivateKey != nil
	if importedSecret {
		res.SecretRead++
	}

	rec, err := b.get(fpr)
	isNew := errors.Is(err, keystore.ErrNotFound)
	if err != nil && !isNew {
		return imp, native.WrapError(native.CodeGeneral, err)
	}

	trust := uint8(native.ValidityUnknown)
	if isNew {
		res.Imported++
		imp.Status |= native.ImportNew
	} else {
		trust = rec.Trust
		old, err := parseRecord(rec)
		if err != nil {
			return imp, native.WrapError(native.CodeGeneral, err)
		}
		uids, subs := merge(e, old.entity())
		res.NewUserIDs += uids
		res.NewSubkeys += subs
		if uids > 0 {
			imp.Status |= native.ImportUID
		}
		if subs > 0 {
			imp.Status |= native.ImportSubkey
		}
		if uids == 0 && subs == 0 && (!importedSecret || rec.HasSecret()) {
			res.Unchanged++
		}
		if !importedSecret && old.secret != nil {
			// Keep the stored secret half.
			merge(old.secret, e)
			e = old.secret
		}
	}

	var secret []byte
	if e.PrivateKey != nil {
		if importedSecret {
			if !isNew && rec.HasSecret() {
				res.SecretUnchanged++
			} else {
				res.SecretImported++
				imp.Status |= native.ImportSecret
			}
		}
		var buf bytes.Buffer
		if err := e.SerializePrivateWithoutSigning(&buf, nil); err != nil {
			return imp, native.WrapError(native.CodeGeneral, err)
		}
		secret = buf.Bytes()
		trust = uint8(native.ValidityUltimate)
	}

	var pub bytes.Buffer
	if err := e.Serialize(&pub); err != nil {
		return imp, native.WrapError(native.CodeGeneral, err)
	}
	b.put(keystore.Record{Fingerprint: fpr, Public: pub.Bytes(), Secret: secret, Trust: trust})
	return imp, nil
}

// merge copies the identities and subkeys of from that into lacks, and
// returns how many of each were added.
func merge(into, from *openpgp.Entity) (uids, subs uint32) {
	for name, id := range from.Identities {
		if _, ok := into.Identities[name]; !ok {
			into.Identities[name] = id
			uids++
		}
	}
	have := make(map[uint64]bool, len(into.Subkeys))
	for _, sk := range into.Subkeys {
		have[sk.PublicKey.KeyId] = true
	}
	for _, sk := range from.Subkeys {
		if !have[sk.PublicKey.KeyId] {
			into.Subkeys = append(into.Subkeys, sk)
			subs++
		}
	}
	return uids, subs
}

// GetKey finds one key by fingerprint or key id.
func (c *Context) GetKey(query string, secret bool) (native.Key, error) {
	q := normalizeQuery(query)
	if q == "" {
		return native.Key{}, native.NewError(native.CodeInvValue)
	}
	var key native.Key
	err := c.withStore(func(s *keystore.Store) error {
		found, err := find(s, q, secret)
		if err != nil {
			return err
		}
		key = snapshot(found, c.now())
		return nil
	})
	return key, err
}

func find(s *keystore.Store, q string, secret bool) (stored, error) {
	all, err := loadAll(s)
	if err != nil {
		return stored{}, err
	}
	var hits []stored
	for _, st := range all {
		if secret && st.secret == nil {
			continue
		}
		if matches(st.pub, q) {
			hits = append(hits, st)
		}
	}
	switch len(hits) {
	case 0:
		if secret {
			return stored{}, native.NewError(native.CodeNoSeckey)
		}
		return stored{}, native.NewError(native.CodeNotFound)
	case 1:
		return hits[0], nil
	default:
		return stored{}, native.Errorf(native.CodeConflict, "ambiguous key %s", q)
	}
}

// DeleteKey removes a key. Keys with secret material need allowSecret.
func (c *Context) DeleteKey(key native.Key, allowSecret bool) error {
	return c.withStore(func(s *keystore.Store) error {
		rec, err := s.Get(key.Fingerprint)
		if errors.Is(err, keystore.ErrNotFound) {
			return native.NewError(native.CodeNotFound)
		}
		if err != nil {
			return native.WrapError(native.CodeGeneral, err)
		}
		if rec.HasSecret() && !allowSecret {
			return native.Errorf(native.CodeConflict, "secret key present")
		}
		if err := s.Delete(key.Fingerprint); err != nil {
			return native.WrapError(native.CodeGeneral, err)
		}
		Logger().Debug("key deleted", zap.String("fingerprint", key.Fingerprint), zap.Bool("secret", rec.HasSecret()))
		return nil
	})
}

// armored wraps the output of write in an armor block when on is set.
func armored(on bool, blockType string, write func(io.Writer) error) ([]byte, error) {
	var buf bytes.Buffer
	if !on {
		if err := write(&buf); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	w, err := armor.Encode(&buf, blockType, nil)
	if err != nil {
		return nil, err
	}
	if err := write(w); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// dearmor returns the payload of an armored block, or data unchanged when it
// is not armored.
func dearmor(data []byte) (io.Reader, error) {
	trimmed := bytes.TrimSpace(data)
	if !bytes.HasPrefix(trimmed, []byte("-----BEGIN ")) {
		return bytes.NewReader(data), nil
	}
	block, err := armor.Decode(bytes.NewReader(trimmed))
	if err != nil {
		return nil, err
	}
	return block.Body, nil
}
