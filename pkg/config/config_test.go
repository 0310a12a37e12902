package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/rewritetree/pkg/builder"
	"github.com/matzehuels/rewritetree/pkg/errors"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		data   string
		want   func(*Config)
	}{
		{name: "empty toml", format: TOML, want: func(*Config) {}},
		{name: "empty yaml", format: YAML, want: func(*Config) {}},
		{
			name:   "toml",
			format: TOML,
			data: `
[layout]
depth = 3
line_spacing = 1.5

[builder]
node_limit = 50
recovery = "pop-retry"

[archive]
backend = "redis"
redis_addr = "localhost:6379"
ttl = "1h"
`,
			want: func(c *Config) {
				c.Layout.Depth = 3
				c.Layout.LineSpacing = 1.5
				c.Builder.NodeLimit = 50
				c.Builder.Recovery = "pop-retry"
				c.Archive = Archive{Backend: BackendRedis, RedisAddr: "localhost:6379", TTL: "1h"}
			},
		},
		{
			name:   "yaml",
			format: YAML,
			data: `
builder:
  max_depth: 4
queue:
  capacity: 16
render:
  fps: 60
archive:
  backend: bolt
  path: /tmp/trees.db
`,
			want: func(c *Config) {
				c.Builder.MaxDepth = 4
				c.Queue.Capacity = 16
				c.Render.FPS = 60
				c.Archive.Backend = BackendBolt
				c.Archive.Path = "/tmp/trees.db"
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse([]byte(tt.data), tt.format)
			if err != nil {
				t.Fatal(err)
			}
			want := Default()
			tt.want(want)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		data   string
	}{
		{"syntax", TOML, "[layout\n"},
		{"unknown toml key", TOML, "[layout]\nzoom = 2\n"},
		{"unknown yaml key", YAML, "layout:\n  zoom: 2\n"},
		{"zero depth", TOML, "[layout]\ndepth = 0\n"},
		{"negative spacing", TOML, "[layout]\nline_spacing = -1.0\n"},
		{"negative capacity", TOML, "[queue]\ncapacity = -1\n"},
		{"recovery", TOML, "[builder]\nrecovery = \"retry-forever\"\n"},
		{"backend", TOML, "[archive]\nbackend = \"s3\"\n"},
		{"redis without addr", TOML, "[archive]\nbackend = \"redis\"\n"},
		{"ttl", YAML, "archive:\n  ttl: soon\n"},
		{"negative ttl", YAML, "archive:\n  ttl: -1h\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), tt.format)
			if !errors.Is(err, errors.ErrCodeInvalidConfig) {
				t.Errorf("Parse() error = %v, want INVALID_CONFIG", err)
			}
		})
	}
}

func TestAccessors(t *testing.T) {
	c := Default()
	if c.Recovery() != builder.RecoverFailFast {
		t.Errorf("Recovery() = %v", c.Recovery())
	}
	c.Builder.Recovery = "pop-retry"
	if c.Recovery() != builder.RecoverPopRetry {
		t.Errorf("Recovery() = %v", c.Recovery())
	}

	if d, err := c.TTL(); err != nil || d != 0 {
		t.Errorf("TTL() = %v, %v", d, err)
	}
	c.Archive.TTL = "90m"
	if d, err := c.TTL(); err != nil || d != 90*time.Minute {
		t.Errorf("TTL() = %v, %v", d, err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	if err := os.WriteFile(path, []byte("layout:\n  depth: 5\n"), 0644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.Layout.Depth != 5 {
		t.Errorf("depth = %d, want 5", c.Layout.Depth)
	}

	if _, err := Load(filepath.Join(dir, "missing.toml")); !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("Load(missing) = %v, want FILE_NOT_FOUND", err)
	}

	bad := filepath.Join(dir, "bad.toml")
	os.WriteFile(bad, []byte("[render]\nfps = -3\n"), 0644)
	if _, err := Load(bad); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("Load(bad) = %v, want INVALID_CONFIG", err)
	}
}

func TestLoadDefaultLocation(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	c, err := Load("")
	if err != nil {
		t.Fatalf("Load with no default file: %v", err)
	}
	if diff := cmp.Diff(Default(), c); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	path, _ := DefaultPath()
	if path != filepath.Join(dir, "rewritetree", "config.toml") {
		t.Errorf("DefaultPath() = %q", path)
	}
	os.MkdirAll(filepath.Dir(path), 0755)
	os.WriteFile(path, []byte("[queue]\ncapacity = 8\n"), 0644)
	c, err = Load("")
	if err != nil {
		t.Fatal(err)
	}
	if c.Queue.Capacity != 8 {
		t.Errorf("capacity = %d, want 8", c.Queue.Capacity)
	}
}
