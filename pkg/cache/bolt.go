package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

const bucketTrees = "trees"

// BoltCache stores entries in a single bbolt database file.
type BoltCache struct {
	db *bolt.DB
}

// NewBoltCache opens or creates the database at path.
func NewBoltCache(path string) (*BoltCache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0644, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketTrees))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BoltCache{db: db}, nil
}

// Get retrieves a value from the database.
func (c *BoltCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var entry cacheEntry
	found := false
	err := c.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(bucketTrees)).Get([]byte(key))
		if v == nil {
			return nil
		}
		if err := json.Unmarshal(v, &entry); err != nil {
			return nil
		}
		found = true
		return nil
	})
	if err != nil || !found {
		return nil, false, err
	}
	if entry.expired() {
		return nil, false, c.Delete(ctx, key)
	}
	return entry.Data, true, nil
}

// Set stores a value in the database.
func (c *BoltCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	v, err := json.Marshal(newEntry(key, data, ttl))
	if err != nil {
		return err
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketTrees)).Put([]byte(key), v)
	})
}

// Delete removes a value from the database.
func (c *BoltCache) Delete(ctx context.Context, key string) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketTrees)).Delete([]byte(key))
	})
}

// Keys returns the keys of all live entries starting with prefix.
func (c *BoltCache) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := c.db.View(func(tx *bolt.Tx) error {
		cur := tx.Bucket([]byte(bucketTrees)).Cursor()
		p := []byte(prefix)
		for k, v := cur.Seek(p); k != nil && bytes.HasPrefix(k, p); k, v = cur.Next() {
			var entry cacheEntry
			if json.Unmarshal(v, &entry) != nil || entry.expired() {
				continue
			}
			keys = append(keys, string(k))
		}
		return nil
	})
	return keys, err
}

// Close closes the database.
func (c *BoltCache) Close() error {
	return c.db.Close()
}

// Ensure BoltCache implements Cache and Lister.
var (
	_ Cache  = (*BoltCache)(nil)
	_ Lister = (*BoltCache)(nil)
)
