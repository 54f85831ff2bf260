package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/fivetwenty-io/pokeapi/internal/constants"
	"github.com/fivetwenty-io/pokeapi/pkg/pokeapi"
)

// BoltBackend keeps one bucket per endpoint in a single bbolt database.
type BoltBackend struct {
	db *bolt.DB
}

// NewBoltBackend opens (or creates) the database at path.
func NewBoltBackend(path string, timeout time.Duration) (*BoltBackend, error) {
	if timeout <= 0 {
		timeout = constants.BoltOpenTimeout
	}

	if err := os.MkdirAll(filepath.Dir(path), constants.ConfigDirPerm); err != nil {
		return nil, fmt.Errorf("%w: creating cache directory: %w", pokeapi.ErrCacheUnavailable, err)
	}

	db, err := bolt.Open(path, constants.ConfigFilePerm, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %w", pokeapi.ErrCacheUnavailable, path, err)
	}

	return &BoltBackend{db: db}, nil
}

// Load reads the bucket of endpoint.
func (b *BoltBackend) Load(ctx context.Context, endpoint string) (map[string][]byte, error) {
	entries := make(map[string][]byte)

	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(endpoint))
		if bucket == nil {
			return nil
		}

		return bucket.ForEach(func(k, v []byte) error {
			// Values are only valid for the life of the transaction.
			entries[string(k)] = append([]byte(nil), v...)

			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return entries, nil
}

// Save applies the snapshot's changes in one transaction; a reset rewrites the bucket.
func (b *BoltBackend) Save(ctx context.Context, endpoint string, snapshot *Snapshot) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		name := []byte(endpoint)

		if snapshot.Reset && tx.Bucket(name) != nil {
			if err := tx.DeleteBucket(name); err != nil {
				return err
			}
		}

		bucket, err := tx.CreateBucketIfNotExists(name)
		if err != nil {
			return err
		}

		keys := snapshot.Changed
		if snapshot.Reset {
			keys = make([]string, 0, len(snapshot.Entries))
			for key := range snapshot.Entries {
				keys = append(keys, key)
			}
		}

		for _, key := range keys {
			value, ok := snapshot.Entries[key]
			if !ok {
				continue
			}

			if err := bucket.Put([]byte(key), value); err != nil {
				return err
			}
		}

		for _, key := range snapshot.Removed {
			if err := bucket.Delete([]byte(key)); err != nil {
				return err
			}
		}

		return nil
	})
}

// Close closes the database.
func (b *BoltBackend) Close() error {
	return b.db.Close()
}
