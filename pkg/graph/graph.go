package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/rewritetree/pkg/tree"
)

// =============================================================================
// Graph Serialization API
// =============================================================================

// MarshalGraph converts a tree to JSON bytes.
func MarshalGraph(t *tree.Tree) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeGraphTo(t, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteGraphFile writes a tree to a JSON file.
// The file is created with 0644 permissions.
func WriteGraphFile(t *tree.Tree, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return writeGraphTo(t, f)
}

// WriteGraph writes a tree as JSON to an io.Writer.
// Use MarshalGraph for in-memory serialization or WriteGraphFile for files.
func WriteGraph(t *tree.Tree, w io.Writer) error {
	return writeGraphTo(t, w)
}

// ReadGraphFile reads a JSON file and returns the decoded tree.
// Returns validation errors for graphs that do not form a single tree.
func ReadGraphFile(path string, opts ...tree.Option) (*tree.Tree, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return readGraphFrom(f, opts)
}

// ReadGraph decodes a JSON graph from an io.Reader into a tree.
// Use ReadGraphFile for files or pass bytes.NewReader for in-memory data.
func ReadGraph(r io.Reader, opts ...tree.Option) (*tree.Tree, error) {
	return readGraphFrom(r, opts)
}

// =============================================================================
// Internal Implementation
// =============================================================================

func writeGraphTo(t *tree.Tree, w io.Writer) error {
	out := FromTree(t)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

func readGraphFrom(r io.Reader, opts []tree.Option) (*tree.Tree, error) {
	var data Graph
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return ToTree(data, opts...)
}
