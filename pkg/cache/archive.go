package cache

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/matzehuels/rewritetree/pkg/errors"
	"github.com/matzehuels/rewritetree/pkg/graph"
	"github.com/matzehuels/rewritetree/pkg/tree"
)

// Archive stores finished trees in a Cache.
type Archive struct {
	cache Cache
	ttl   time.Duration
}

// NewArchive creates an archive on top of c. Entries expire after ttl; a
// zero ttl keeps them forever.
func NewArchive(c Cache, ttl time.Duration) *Archive {
	return &Archive{cache: c, ttl: ttl}
}

// Cache returns the underlying cache.
func (a *Archive) Cache() Cache { return a.cache }

// Save archives t under [TreeKey] of its ID and returns the key.
func (a *Archive) Save(ctx context.Context, t *tree.Tree) (string, error) {
	key := TreeKey(t.ID())
	if err := errors.ValidateArchiveKey(key); err != nil {
		return "", err
	}
	data, err := graph.MarshalGraph(t)
	if err != nil {
		return "", err
	}
	if err := a.cache.Set(ctx, key, data, a.ttl); err != nil {
		return "", fmt.Errorf("archive %s: %w", key, err)
	}
	return key, nil
}

// Load restores the tree archived under key. A bare tree ID is accepted as
// well. The restored tree keeps its original ID.
func (a *Archive) Load(ctx context.Context, key string, opts ...tree.Option) (*tree.Tree, error) {
	key = TreeKey(TreeID(key))
	if err := errors.ValidateArchiveKey(key); err != nil {
		return nil, err
	}
	data, ok, err := a.cache.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	opts = append([]tree.Option{tree.WithID(TreeID(key))}, opts...)
	return graph.ReadGraph(bytes.NewReader(data), opts...)
}

// List returns the keys of all archived trees. Caches that cannot
// enumerate keys report an UNSUPPORTED error.
func (a *Archive) List(ctx context.Context) ([]string, error) {
	l, ok := a.cache.(Lister)
	if !ok {
		return nil, errors.New(errors.ErrCodeUnsupported, "archive backend %T cannot list entries", a.cache)
	}
	return l.Keys(ctx, TreeKeyPrefix)
}

// Delete removes the tree archived under key.
func (a *Archive) Delete(ctx context.Context, key string) error {
	return a.cache.Delete(ctx, TreeKey(TreeID(key)))
}

// Close closes the underlying cache.
func (a *Archive) Close() error { return a.cache.Close() }
