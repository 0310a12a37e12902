package graph

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/matzehuels/rewritetree/pkg/tree"
)

// =============================================================================
// Layout - Positioned Snapshot
// =============================================================================

// Layout is a snapshot of the visible part of a tree after a layout pass.
// Node IDs match those of [FromTree] for the same tree, so clients can
// combine a Layout with the full Graph.
type Layout struct {
	TreeID      string       `json:"tree_id"`
	Selected    string       `json:"selected,omitempty"`
	LineSpacing float64      `json:"line_spacing"`
	Nodes       []PlacedNode `json:"nodes"`
	Edges       []Edge       `json:"edges"`
}

// PlacedNode is a visible node with its layout state. X is the left edge
// of the box and Y its vertical center.
type PlacedNode struct {
	ID         string  `json:"id"`
	Label      string  `json:"label"`
	Comment    bool    `json:"comment,omitempty"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Compressed bool    `json:"compressed,omitempty"`
	Selected   bool    `json:"selected,omitempty"`
	Expansion  float64 `json:"expansion"`
	UpperY     float64 `json:"upper_y"`
	LowerY     float64 `json:"lower_y"`
	Leaves     int     `json:"leaves"`
}

// LayoutFromTree captures the visible nodes of t. Children of compressed
// nodes are omitted; the compressed nodes themselves are included.
func LayoutFromTree(t *tree.Tree) Layout {
	ids := IDs(t)
	out := Layout{
		TreeID:      t.ID(),
		LineSpacing: t.LineSpacing(),
		Nodes:       make([]PlacedNode, 0, t.Visible()),
	}
	if sel := t.Selected(); sel != nil {
		out.Selected = ids[sel]
	}
	t.Walk(func(n *tree.Node) bool {
		x, y := n.WorldPosition()
		w, h := n.Size()
		upper, lower := n.SubtreeBounds()
		out.Nodes = append(out.Nodes, PlacedNode{
			ID:         ids[n],
			Label:      n.Label,
			Comment:    n.Comment,
			X:          x,
			Y:          y,
			Width:      w,
			Height:     h,
			Compressed: n.Compressed(),
			Selected:   n.Selected(),
			Expansion:  n.Expansion(),
			UpperY:     upper,
			LowerY:     lower,
			Leaves:     n.NumLeaves(),
		})
		if n.Compressed() {
			return false
		}
		for _, c := range n.Children() {
			out.Edges = append(out.Edges, Edge{From: ids[n], To: ids[c]})
		}
		return true
	})
	return out
}

// =============================================================================
// Layout Serialization API
// =============================================================================

// MarshalLayout serializes a Layout to pretty-printed JSON bytes.
func MarshalLayout(l Layout) ([]byte, error) {
	return json.MarshalIndent(l, "", "  ")
}

// UnmarshalLayout deserializes JSON bytes into a Layout.
func UnmarshalLayout(data []byte) (Layout, error) {
	var l Layout
	if err := json.Unmarshal(data, &l); err != nil {
		return Layout{}, fmt.Errorf("unmarshal layout: %w", err)
	}
	if len(l.Nodes) == 0 {
		return Layout{}, fmt.Errorf("layout must contain nodes")
	}
	return l, nil
}

// WriteLayoutFile writes a Layout to a JSON file.
func WriteLayoutFile(l Layout, path string) error {
	data, err := MarshalLayout(l)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
