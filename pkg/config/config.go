// Package config loads rewritetree settings from TOML or YAML files.
//
// A configuration file is optional. Every key has a default, and a file only
// needs to name the keys it changes:
//
//	[layout]
//	depth = 3
//
//	[builder]
//	node_limit = 5000
//	recovery = "pop-retry"
//
//	[archive]
//	backend = "bolt"
//	ttl = "72h"
//
// Files ending in .yaml or .yml are read as YAML with the same keys.
package config

import (
	"bytes"
	stderrors "errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/rewritetree/pkg/builder"
	"github.com/matzehuels/rewritetree/pkg/errors"
)

// Archive backends.
const (
	BackendNone  = "none"
	BackendFile  = "file"
	BackendBolt  = "bolt"
	BackendRedis = "redis"
)

// Defaults.
const (
	DefaultDepth     = 2
	DefaultNodeLimit = 10000
	DefaultCapacity  = 256
	DefaultFPS       = 30
)

// Config is the complete configuration.
type Config struct {
	Layout  Layout  `toml:"layout" yaml:"layout"`
	Builder Builder `toml:"builder" yaml:"builder"`
	Queue   Queue   `toml:"queue" yaml:"queue"`
	Render  Render  `toml:"render" yaml:"render"`
	Archive Archive `toml:"archive" yaml:"archive"`
}

// Layout configures the layout engine. Zero spacing values select the
// engine's defaults.
type Layout struct {
	Depth         int     `toml:"depth" yaml:"depth"`
	LineSpacing   float64 `toml:"line_spacing" yaml:"line_spacing"`
	HorizontalGap float64 `toml:"horizontal_gap" yaml:"horizontal_gap"`
}

// Builder configures tree construction.
type Builder struct {
	NodeLimit int    `toml:"node_limit" yaml:"node_limit"`
	MaxDepth  int    `toml:"max_depth" yaml:"max_depth"`
	Recovery  string `toml:"recovery" yaml:"recovery"`
}

// Queue configures the command queue.
type Queue struct {
	Capacity int `toml:"capacity" yaml:"capacity"`
}

// Render configures the animation loop.
type Render struct {
	FPS int `toml:"fps" yaml:"fps"`
}

// Archive configures where finished trees are stored. Empty Dir and Path
// fall back to the user cache directory.
type Archive struct {
	Backend   string `toml:"backend" yaml:"backend"`
	Dir       string `toml:"dir" yaml:"dir"`
	Path      string `toml:"path" yaml:"path"`
	RedisAddr string `toml:"redis_addr" yaml:"redis_addr"`
	TTL       string `toml:"ttl" yaml:"ttl"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Layout:  Layout{Depth: DefaultDepth},
		Builder: Builder{NodeLimit: DefaultNodeLimit, MaxDepth: -1, Recovery: builder.RecoverFailFast.String()},
		Queue:   Queue{Capacity: DefaultCapacity},
		Render:  Render{FPS: DefaultFPS},
		Archive: Archive{Backend: BackendFile},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/rewritetree/config.toml, falling
// back to ~/.config when XDG_CONFIG_HOME is unset.
func DefaultPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "rewritetree", "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "rewritetree", "config.toml"), nil
}

// Load reads and validates the file at path. With an empty path the
// default location is used, and a missing default file yields [Default].
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return Default(), nil
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if stderrors.Is(err, fs.ErrNotExist) && !explicit {
		return Default(), nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "read config %s", path)
	}

	cfg, err := Parse(data, formatOf(path))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "config %s", path)
	}
	return cfg, nil
}

// Format is a configuration file syntax.
type Format int

const (
	TOML Format = iota
	YAML
)

func formatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML
	default:
		return TOML
	}
}

// Parse decodes data on top of [Default] and validates the result.
// Unknown keys are rejected.
func Parse(data []byte, format Format) (*Config, error) {
	cfg := Default()
	switch format {
	case YAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !stderrors.Is(err, io.EOF) {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "decode yaml")
		}
	default:
		md, err := toml.Decode(string(data), cfg)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "decode toml")
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown key %q", undecoded[0].String())
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting as an INVALID_CONFIG error.
func (c *Config) Validate() error {
	switch {
	case c.Layout.Depth < 1:
		return invalid("layout.depth must be at least 1, got %d", c.Layout.Depth)
	case c.Layout.LineSpacing < 0:
		return invalid("layout.line_spacing must not be negative")
	case c.Layout.HorizontalGap < 0:
		return invalid("layout.horizontal_gap must not be negative")
	case c.Queue.Capacity < 0:
		return invalid("queue.capacity must not be negative")
	case c.Render.FPS < 0:
		return invalid("render.fps must not be negative")
	}
	if _, err := builder.ParseRecovery(c.Builder.Recovery); err != nil {
		return err
	}
	if _, err := c.TTL(); err != nil {
		return err
	}
	switch c.Archive.Backend {
	case "", BackendNone, BackendFile, BackendBolt:
	case BackendRedis:
		if c.Archive.RedisAddr == "" {
			return invalid("archive.redis_addr is required for the redis backend")
		}
	default:
		return invalid("unknown archive.backend %q (want none, file, bolt or redis)", c.Archive.Backend)
	}
	return nil
}

// Recovery returns the configured recovery policy.
func (c *Config) Recovery() builder.Recovery {
	r, _ := builder.ParseRecovery(c.Builder.Recovery)
	return r
}

// TTL returns the archive entry lifetime. Zero means entries never expire.
func (c *Config) TTL() (time.Duration, error) {
	if c.Archive.TTL == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Archive.TTL)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeInvalidConfig, err, "archive.ttl")
	}
	if d < 0 {
		return 0, invalid("archive.ttl must not be negative")
	}
	return d, nil
}

func invalid(format string, args ...any) error {
	return errors.New(errors.ErrCodeInvalidConfig, format, args...)
}
