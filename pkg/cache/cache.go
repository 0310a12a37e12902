// Package cache archives finished rewrite trees.
//
// A [Cache] is a small byte-oriented key-value store with expiry. Several
// backends implement it:
//
//   - [FileCache]: one file per entry under a directory (CLI default)
//   - [BoltCache]: a single bbolt database file
//   - [RedisCache]: a shared Redis instance
//   - [NullCache]: stores nothing
//
// [Archive] stores trees in any Cache using the serialization format of
// package graph, under keys produced by [TreeKey].
package cache

import (
	"context"
	"strings"
	"time"
)

// Cache is a key-value store for archived trees.
type Cache interface {
	// Get returns the value for key. It reports false on a miss, including
	// for expired entries.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero keeps the entry forever.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the resources held by the cache.
	Close() error
}

// Lister is implemented by caches that can enumerate their keys.
type Lister interface {
	// Keys returns the keys starting with prefix in ascending order.
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// TreeKeyPrefix prefixes the keys of archived trees.
const TreeKeyPrefix = "tree:"

// TreeKey returns the archive key of the tree with the given ID.
func TreeKey(id string) string { return TreeKeyPrefix + id }

// TreeID returns the tree ID encoded in an archive key. Keys without the
// tree prefix are returned unchanged.
func TreeID(key string) string { return strings.TrimPrefix(key, TreeKeyPrefix) }
