package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketUserData = []byte("userdata")

// BlobStore implements domain.BlobStore using BoltDB. Values are opaque
// blobs keyed by per-user strings. A memory-only mode (empty baseDir) backs
// tests and ephemeral runs.
type BlobStore struct {
	db *bolt.DB
	mu sync.RWMutex // protects mem

	// In-memory mirror for hot-path reads (promoted on access)
	mem map[string][]byte
}

// NewBlobStore opens (or creates) the blob database under baseDir. When
// baseDir is empty the store holds data in memory only.
func NewBlobStore(baseDir string) (*BlobStore, error) {
	if baseDir == "" {
		return &BlobStore{mem: make(map[string][]byte)}, nil
	}

	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(baseDir, "favgrid.db")
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketUserData)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BlobStore{db: db, mem: make(map[string][]byte)}, nil
}

func (s *BlobStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Get returns the value stored under key, or def when absent.
func (s *BlobStore) Get(key string, def []byte) ([]byte, error) {
	s.mu.RLock()
	if data, ok := s.mem[key]; ok {
		s.mu.RUnlock()
		return data, nil
	}
	s.mu.RUnlock()

	if s.db == nil {
		return def, nil
	}

	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketUserData)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if data == nil {
		return def, nil
	}

	// Promote to the memory mirror
	s.mu.Lock()
	s.mem[key] = data
	s.mu.Unlock()

	return data, nil
}

// Set stores value under key, overwriting any previous value.
func (s *BlobStore) Set(key string, value []byte) error {
	s.mu.Lock()
	s.mem[key] = value
	s.mu.Unlock()

	if s.db == nil {
		return nil // memory-only mode
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketUserData)
		return b.Put([]byte(key), value)
	})
}

// Delete removes the value for key. Absent keys are a no-op.
func (s *BlobStore) Delete(key string) error {
	s.mu.Lock()
	delete(s.mem, key)
	s.mu.Unlock()

	if s.db == nil {
		return nil
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketUserData)
		if b != nil {
			return b.Delete([]byte(key))
		}
		return nil
	})
}
