package state

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/httpdwatch/httpdwatch/internal/rate"
)

var bucketSamples = []byte("samples")

// Store holds prior samples in a single-file bbolt database. Concurrent
// invocations for the same identity are last-write-wins; serializing them is
// the scheduler's job, not ours.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if needed) the store file at path. The open itself
// carries a short timeout so a wedged lock from a dead process surfaces as
// an error instead of a hang.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("state: open %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database file.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load returns the stored sample for key. The second return is false on a
// cold start — no sample has ever been saved under this identity.
func (s *Store) Load(key string) (rate.Stored, bool, error) {
	var (
		sample rate.Stored
		found  bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSamples)
		if b == nil {
			return nil
		}
		raw := b.Get([]byte(key))
		if raw == nil {
			return nil
		}
		if err := json.Unmarshal(raw, &sample); err != nil {
			return fmt.Errorf("decode sample: %w", err)
		}
		found = true
		return nil
	})
	if err != nil {
		return rate.Stored{}, false, fmt.Errorf("state: load %q: %w", key, err)
	}
	return sample, found, nil
}

// Save writes the sample under key, replacing any previous value.
func (s *Store) Save(key string, sample rate.Stored) error {
	raw, err := json.Marshal(sample)
	if err != nil {
		return fmt.Errorf("state: encode sample: %w", err)
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketSamples)
		if err != nil {
			return err
		}
		return b.Put([]byte(key), raw)
	})
	if err != nil {
		return fmt.Errorf("state: save %q: %w", key, err)
	}
	return nil
}
