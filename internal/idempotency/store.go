// internal/idempotency/store.go
package idempotency

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "github.com/boltdb/bolt"
)

const bucketName = "idempotency_keys"

// Record is what is kept for one idempotency key. A record without a status
// belongs to a request still being served.
type Record struct {
	Fingerprint string    `json:"fingerprint"`
	Status      int       `json:"status"`
	ContentType string    `json:"content_type"`
	Body        []byte    `json:"body"`
	CreatedAt   time.Time `json:"created_at"`
}

// InFlight reports whether the original request has not finished yet.
func (r *Record) InFlight() bool {
	return r.Status == 0
}

// Store keeps idempotency records in a BoltDB file.
type Store struct {
	db  *bolt.DB
	ttl time.Duration
	now func() time.Time
}

// New opens (or creates) the database at path. Records older than ttl are
// treated as absent.
func New(path string, ttl time.Duration) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open idempotency store: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create idempotency bucket: %w", err)
	}

	return &Store{db: db, ttl: ttl, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Claim reserves key for a new request with the given body fingerprint. When
// a live record already holds the key it is returned and nothing is written.
func (s *Store) Claim(key, fingerprint string) (*Record, bool, error) {
	var existing *Record
	claimed := false

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))

		if raw := b.Get([]byte(key)); raw != nil {
			var rec Record
			if err := json.Unmarshal(raw, &rec); err != nil {
				return err
			}
			if s.now().Sub(rec.CreatedAt) < s.ttl {
				existing = &rec
				return nil
			}
		}

		data, err := json.Marshal(Record{Fingerprint: fingerprint, CreatedAt: s.now().UTC()})
		if err != nil {
			return err
		}
		claimed = true
		return b.Put([]byte(key), data)
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to claim idempotency key: %w", err)
	}
	return existing, claimed, nil
}

// Complete stores the final response for a claimed key.
func (s *Store) Complete(key string, rec Record) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now().UTC()
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Put([]byte(key), data)
	})
}

// Release forgets key so the request can be retried. Releasing an unknown
// key is a no-op.
func (s *Store) Release(key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Delete([]byte(key))
	})
}
