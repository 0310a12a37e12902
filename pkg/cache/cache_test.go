package cache

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/rewritetree/pkg/errors"
	"github.com/matzehuels/rewritetree/pkg/tree"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	// Get always returns miss
	data, hit, err := c.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if hit {
		t.Error("NullCache.Get should always return miss")
	}
	if data != nil {
		t.Error("NullCache.Get should return nil data")
	}

	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}
	if _, hit, _ = c.Get(ctx, "key"); hit {
		t.Error("NullCache should not store data")
	}
	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
	if keys, _ := c.Keys(ctx, ""); len(keys) != 0 {
		t.Errorf("Keys() = %v, want none", keys)
	}
}

func TestHash(t *testing.T) {
	h1 := Hash([]byte("hello"))
	if h1 != Hash([]byte("hello")) {
		t.Error("Hash should be deterministic")
	}
	if h1 == Hash([]byte("world")) {
		t.Error("Different inputs should produce different hashes")
	}
	if len(h1) != 64 {
		t.Errorf("Hash length should be 64, got %d", len(h1))
	}
}

func TestTreeKey(t *testing.T) {
	key := TreeKey("abc")
	if key != "tree:abc" {
		t.Errorf("TreeKey() = %q", key)
	}
	if TreeID(key) != "abc" || TreeID("abc") != "abc" {
		t.Error("TreeID should strip the prefix")
	}
}

type listingCache interface {
	Cache
	Lister
}

// testBackend exercises the behavior shared by all persistent backends.
func testBackend(t *testing.T, c listingCache) {
	t.Helper()
	ctx := context.Background()

	if _, hit, err := c.Get(ctx, "tree:missing"); hit || err != nil {
		t.Fatalf("Get(missing) = %v, %v", hit, err)
	}

	for _, k := range []string{"tree:b", "tree:a", "other:x"} {
		if err := c.Set(ctx, k, []byte("value-"+k), 0); err != nil {
			t.Fatalf("Set(%q): %v", k, err)
		}
	}
	data, hit, err := c.Get(ctx, "tree:a")
	if err != nil || !hit || string(data) != "value-tree:a" {
		t.Fatalf("Get(tree:a) = %q, %v, %v", data, hit, err)
	}

	keys, err := c.Keys(ctx, "tree:")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"tree:a", "tree:b"}, keys); diff != "" {
		t.Errorf("Keys mismatch (-want +got):\n%s", diff)
	}

	if err := c.Delete(ctx, "tree:a"); err != nil {
		t.Fatal(err)
	}
	if err := c.Delete(ctx, "tree:a"); err != nil {
		t.Errorf("deleting a missing key: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "tree:a"); hit {
		t.Error("deleted key should miss")
	}

	if err := c.Set(ctx, "tree:short", []byte("x"), time.Nanosecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, hit, _ := c.Get(ctx, "tree:short"); hit {
		t.Error("expired entry should miss")
	}
}

func TestFileCache(t *testing.T) {
	c, err := NewFileCache(filepath.Join(t.TempDir(), "archive"))
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	testBackend(t, c)
}

func TestFileCacheCorruptEntry(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(c.path("k"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, hit, err := c.Get(ctx, "k"); hit || err != nil {
		t.Errorf("corrupt entry: hit = %v, err = %v", hit, err)
	}
	if _, err := os.Stat(c.path("k")); !os.IsNotExist(err) {
		t.Error("corrupt entry should be removed")
	}
}

func TestFileCacheClear(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	c.Set(ctx, "tree:a", []byte("a"), 0)
	if err := c.Clear(); err != nil {
		t.Fatal(err)
	}
	if keys, err := c.Keys(ctx, ""); err != nil || len(keys) != 0 {
		t.Errorf("Keys() after Clear = %v, %v", keys, err)
	}
}

func TestBoltCache(t *testing.T) {
	c, err := NewBoltCache(filepath.Join(t.TempDir(), "db", "archive.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	testBackend(t, c)
}

func TestRedisCache(t *testing.T) {
	addr := os.Getenv("REWRITETREE_REDIS_ADDR")
	if addr == "" {
		t.Skip("REWRITETREE_REDIS_ADDR not set")
	}
	ctx := context.Background()
	c, err := NewRedisCache(ctx, addr)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	c.prefix = "rewritetree-test:" + t.Name() + ":"
	for _, k := range []string{"tree:a", "tree:b", "other:x"} {
		defer c.Delete(ctx, k)
	}
	testBackend(t, c)
}

func TestNewRedisCacheUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := NewRedisCache(ctx, "127.0.0.1:1")
	if !stderrors.Is(err, ErrNetwork) {
		t.Errorf("NewRedisCache() error = %v, want ErrNetwork", err)
	}
}

func TestRetryableError(t *testing.T) {
	if Retryable(nil) != nil {
		t.Error("Retryable(nil) should return nil")
	}

	err := Retryable(ErrNetwork)
	if err == nil {
		t.Fatal("Retryable should return wrapped error")
	}
	if !IsRetryable(err) {
		t.Error("IsRetryable should return true for wrapped error")
	}
	if err.Error() != ErrNetwork.Error() {
		t.Errorf("Error message should be preserved: %s", err.Error())
	}
	if IsRetryable(ErrNotFound) {
		t.Error("IsRetryable should return false for unwrapped error")
	}
}

func TestRetryWithBackoff(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name      string
		fail      int
		err       error
		wantCalls int
		wantErr   error
	}{
		{"success", 0, nil, 1, nil},
		{"not retryable", 5, ErrNotFound, 1, ErrNotFound},
		{"retry once", 1, Retryable(ErrNetwork), 2, nil},
		{"gives up", 5, Retryable(ErrNetwork), 3, ErrNetwork},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := RetryWithBackoff(ctx, 3, time.Millisecond, func() error {
				calls++
				if calls <= tt.fail {
					return tt.err
				}
				return nil
			})
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
			if !stderrors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRetryWithBackoffContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RetryWithBackoff(ctx, 3, time.Hour, func() error {
		return Retryable(ErrNetwork)
	})
	if err != context.Canceled {
		t.Errorf("Should return context error: %v", err)
	}
}

func TestArchive(t *testing.T) {
	ctx := context.Background()
	fc, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	a := NewArchive(fc, 0)
	defer a.Close()

	root := tree.NewRoot("reduce")
	root.AddChild("rule", true).AddChild("s(0)", false)
	orig := tree.New(root, tree.WithID("t1"))

	key, err := a.Save(ctx, orig)
	if err != nil {
		t.Fatal(err)
	}
	if key != "tree:t1" {
		t.Errorf("key = %q", key)
	}

	for _, k := range []string{"tree:t1", "t1"} {
		got, err := a.Load(ctx, k)
		if err != nil {
			t.Fatalf("Load(%q): %v", k, err)
		}
		if got.ID() != "t1" || got.NodeCount() != 3 || got.Find([]int{0, 0}).Label != "s(0)" {
			t.Errorf("Load(%q) returned a different tree", k)
		}
	}

	keys, err := a.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"tree:t1"}, keys); diff != "" {
		t.Errorf("List mismatch (-want +got):\n%s", diff)
	}

	if err := a.Delete(ctx, "t1"); err != nil {
		t.Fatal(err)
	}
	if _, err := a.Load(ctx, "t1"); !stderrors.Is(err, ErrNotFound) {
		t.Errorf("Load after Delete = %v, want ErrNotFound", err)
	}
	if _, err := a.Load(ctx, "../etc"); !errors.Is(err, errors.ErrCodeInvalidKey) {
		t.Errorf("Load(bad key) = %v, want INVALID_KEY", err)
	}
}

func TestArchiveListUnsupported(t *testing.T) {
	a := NewArchive(&struct{ Cache }{NewNullCache()}, 0)
	if _, err := a.List(context.Background()); !errors.Is(err, errors.ErrCodeUnsupported) {
		t.Errorf("List() = %v, want UNSUPPORTED", err)
	}
}
