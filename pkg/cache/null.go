package cache

import (
	"context"
	"time"
)

// NullCache is a no-op cache that never stores anything.
// Used when archiving is disabled.
type NullCache struct{}

// NewNullCache creates a null cache.
func NewNullCache() *NullCache {
	return &NullCache{}
}

// Get always returns a cache miss.
func (c *NullCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, nil
}

// Set does nothing.
func (c *NullCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return nil
}

// Delete does nothing.
func (c *NullCache) Delete(ctx context.Context, key string) error {
	return nil
}

// Keys always returns no keys.
func (c *NullCache) Keys(ctx context.Context, prefix string) ([]string, error) {
	return nil, nil
}

// Close does nothing.
func (c *NullCache) Close() error {
	return nil
}

// Ensure NullCache implements Cache and Lister.
var (
	_ Cache  = (*NullCache)(nil)
	_ Lister = (*NullCache)(nil)
)
