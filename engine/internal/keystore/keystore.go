package keystore

import (
	"encoding/binary"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"
)

// FileName is the database file created under the home directory.
const FileName = "pubring.db"

// Bucket names
var (
	PublicBucket = []byte("public") // serialized public keys
	SecretBucket = []byte("secret") // serialized keys with secret material
	TrustBucket  = []byte("trust")  // one validity byte per key
	OrderBucket  = []byte("order")  // insertion sequence per key
)

var (
	ErrNotFound = errors.New("key not found")
	ErrLocked   = errors.New("keyring locked by another process")
)

// Record is one stored key.
type Record struct {
	Fingerprint string
	Public      []byte
	Secret      []byte
	Seq         uint64
	Trust       uint8
}

// HasSecret reports whether the record carries secret material.
func (r Record) HasSecret() bool {
	return len(r.Secret) > 0
}

// Store is an open keyring database.
type Store struct {
	db *bolt.DB
}

// Open opens or creates the keyring in dir, waiting up to timeout for the
// file lock. A zero timeout waits forever.
func Open(dir string, timeout time.Duration) (*Store, error) {
	db, err := bolt.Open(filepath.Join(dir, FileName), 0600, &bolt.Options{Timeout: timeout})
	if err != nil {
		if errors.Is(err, bolt.ErrTimeout) {
			return nil, ErrLocked
		}
		return nil, fmt.Errorf("failed to open keyring: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{PublicBucket, SecretBucket, TrustBucket, OrderBucket} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// PutAll stores records in one transaction. Either all of them are written
// or none is. A nil Secret keeps any stored secret part. New keys get the
// next sequence number.
func (s *Store) PutAll(recs []Record) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, rec := range recs {
			if err := put(tx, rec); err != nil {
				return fmt.Errorf("failed to store %s: %w", rec.Fingerprint, err)
			}
		}
		return nil
	})
}

func put(tx *bolt.Tx, rec Record) error {
	key := []byte(rec.Fingerprint)
	if err := tx.Bucket(PublicBucket).Put(key, rec.Public); err != nil {
		return err
	}
	if rec.Secret != nil {
		if err := tx.Bucket(SecretBucket).Put(key, rec.Secret); err != nil {
			return err
		}
	}
	if err := tx.Bucket(TrustBucket).Put(key, []byte{rec.Trust}); err != nil {
		return err
	}

	order := tx.Bucket(OrderBucket)
	if order.Get(key) != nil {
		return nil
	}
	seq, err := order.NextSequence()
	if err != nil {
		return err
	}
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, seq)
	return order.Put(key, buf)
}

// Get returns the record for a fingerprint.
func (s *Store) Get(fingerprint string) (Record, error) {
	var rec Record
	err := s.db.View(func(tx *bolt.Tx) error {
		r, ok := read(tx, []byte(fingerprint))
		if !ok {
			return ErrNotFound
		}
		rec = r
		return nil
	})
	return rec, err
}

// List returns every record in insertion order.
func (s *Store) List() ([]Record, error) {
	var out []Record
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(PublicBucket).ForEach(func(k, _ []byte) error {
			if r, ok := read(tx, k); ok {
				out = append(out, r)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

// SetTrust updates the validity byte of a stored key.
func (s *Store) SetTrust(fingerprint string, trust uint8) error {
	key := []byte(fingerprint)
	return s.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(PublicBucket).Get(key) == nil {
			return ErrNotFound
		}
		return tx.Bucket(TrustBucket).Put(key, []byte{trust})
	})
}

// Delete removes a key with its secret part.
func (s *Store) Delete(fingerprint string) error {
	key := []byte(fingerprint)
	return s.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(PublicBucket).Get(key) == nil {
			return ErrNotFound
		}
		for _, bucket := range [][]byte{PublicBucket, SecretBucket, TrustBucket, OrderBucket} {
			if err := tx.Bucket(bucket).Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
}

// read copies a record out of tx; bbolt slices are only valid inside it.
func read(tx *bolt.Tx, key []byte) (Record, bool) {
	pub := tx.Bucket(PublicBucket).Get(key)
	if pub == nil {
		return Record{}, false
	}
	rec := Record{
		Fingerprint: string(key),
		Public:      append([]byte(nil), pub...),
	}
	if sec := tx.Bucket(SecretBucket).Get(key); sec != nil {
		rec.Secret = append([]byte(nil), sec...)
	}
	if t := tx.Bucket(TrustBucket).Get(key); len(t) == 1 {
		rec.Trust = t[0]
	}
	if o := tx.Bucket(OrderBucket).Get(key); len(o) == 8 {
		rec.Seq = binary.BigEndian.Uint64(o)
	}
	return rec, true
}
