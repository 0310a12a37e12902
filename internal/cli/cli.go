// Package cli implements the rewritetree command-line interface.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/rewritetree/pkg/builder"
	"github.com/matzehuels/rewritetree/pkg/cache"
	"github.com/matzehuels/rewritetree/pkg/config"
	"github.com/matzehuels/rewritetree/pkg/dispatch"
	"github.com/matzehuels/rewritetree/pkg/errors"
	"github.com/matzehuels/rewritetree/pkg/tree"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "rewritetree"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
	LogWarn  = log.WarnLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	cfg        *config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// loadConfig reads the configuration named by --config, or the default
// file when the flag is unset.
func (c *CLI) loadConfig() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.cfg = cfg
	return nil
}

// config returns the loaded configuration, or the defaults when none was
// loaded.
func (c *CLI) config() *config.Config {
	if c.cfg == nil {
		c.cfg = config.Default()
	}
	return c.cfg
}

// =============================================================================
// Pipeline Factories
// =============================================================================

// treeOptions returns the layout options for trees built or loaded by the
// CLI.
func (c *CLI) treeOptions() []tree.Option {
	cfg := c.config()
	return []tree.Option{
		tree.WithLineSpacing(cfg.Layout.LineSpacing),
		tree.WithHorizontalGap(cfg.Layout.HorizontalGap),
	}
}

func (c *CLI) newBuilder() *builder.Builder {
	cfg := c.config()
	return builder.New(
		builder.WithNodeLimit(cfg.Builder.NodeLimit),
		builder.WithMaxDepth(cfg.Builder.MaxDepth),
		builder.WithRecovery(cfg.Recovery()),
		builder.WithLogger(c.Logger),
		builder.WithTreeOptions(c.treeOptions()...),
	)
}

// newStore creates a store using depth, or the configured depth when depth
// is not positive.
func (c *CLI) newStore(depth int) *dispatch.Store {
	if depth <= 0 {
		depth = c.config().Layout.Depth
	}
	return dispatch.NewStore(dispatch.WithDepth(depth), dispatch.WithStoreLogger(c.Logger))
}

func (c *CLI) newDispatcher(store *dispatch.Store, opts ...dispatch.Option) *dispatch.Dispatcher {
	opts = append([]dispatch.Option{
		dispatch.WithCapacity(c.config().Queue.Capacity),
		dispatch.WithLogger(c.Logger),
	}, opts...)
	return dispatch.New(c.newBuilder(), store, opts...)
}

// openArchive opens the configured archive backend.
func (c *CLI) openArchive(ctx context.Context) (*cache.Archive, error) {
	cfg := c.config()
	ttl, err := cfg.TTL()
	if err != nil {
		return nil, err
	}
	backend, err := newCache(ctx, cfg.Archive)
	if err != nil {
		return nil, err
	}
	return cache.NewArchive(backend, ttl), nil
}

func newCache(ctx context.Context, cfg config.Archive) (cache.Cache, error) {
	switch cfg.Backend {
	case config.BackendNone:
		return cache.NewNullCache(), nil
	case config.BackendRedis:
		return cache.NewRedisCache(ctx, cfg.RedisAddr)
	case config.BackendBolt:
		path, err := archiveLocation(cfg)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "archive path")
		}
		return cache.NewBoltCache(path)
	default:
		dir, err := archiveLocation(cfg)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "archive dir")
		}
		return cache.NewFileCache(dir)
	}
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/rewritetree/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
