package tree

import (
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/rewritetree/pkg/observability"
)

const (
	// DefaultHorizontalGap is the horizontal distance between a parent box
	// and the boxes of its children.
	DefaultHorizontalGap = 2

	// DefaultSpacingFactor is the default distance between adjacent leaf
	// slots in line heights. A label of k lines reserves k-1 slots, which
	// only keeps it clear of its siblings when slots are taller than a line.
	DefaultSpacingFactor = 2

	// DefaultEasingRate controls how fast expansion animations converge,
	// in 1/seconds.
	DefaultEasingRate = 10
)

// Tree is a rewrite tree together with its layout state.
//
// The zero value is not usable; use [New].
type Tree struct {
	id       string
	root     *Node
	selected *Node
	visible  int

	metrics     Metrics
	lineSpacing float64
	hgap        float64
	easing      float64
}

// Option configures a Tree.
type Option func(*Tree)

// WithMetrics sets the box metrics. The default is [CellMetrics].
func WithMetrics(m Metrics) Option {
	return func(t *Tree) {
		if m != nil {
			t.metrics = m
		}
	}
}

// WithLineSpacing sets the vertical distance between adjacent leaf slots.
// The default is [DefaultSpacingFactor] line heights.
func WithLineSpacing(s float64) Option {
	return func(t *Tree) {
		if s > 0 {
			t.lineSpacing = s
		}
	}
}

// WithHorizontalGap sets the gap between a parent box and its children.
func WithHorizontalGap(g float64) Option {
	return func(t *Tree) {
		if g >= 0 {
			t.hgap = g
		}
	}
}

// WithEasingRate sets the speed of expansion animations.
func WithEasingRate(r float64) Option {
	return func(t *Tree) {
		if r > 0 {
			t.easing = r
		}
	}
}

// WithID sets the tree identifier. By default a random UUID is used.
func WithID(id string) Option {
	return func(t *Tree) {
		if id != "" {
			t.id = id
		}
	}
}

// New wraps root in a Tree and computes an initial layout. root must not
// have a parent.
func New(root *Node, opts ...Option) *Tree {
	t := &Tree{
		root:    root,
		metrics: CellMetrics{},
		hgap:    DefaultHorizontalGap,
		easing:  DefaultEasingRate,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.id == "" {
		t.id = uuid.NewString()
	}
	if t.lineSpacing == 0 {
		lh := t.metrics.LineHeight()
		if lh <= 0 {
			lh = 1
		}
		t.lineSpacing = DefaultSpacingFactor * lh
	}
	t.Layout()
	return t
}

// ID returns the tree identifier.
func (t *Tree) ID() string { return t.id }

// Root returns the root node.
func (t *Tree) Root() *Node { return t.root }

// Selected returns the selected node, or nil before the first selection.
func (t *Tree) Selected() *Node { return t.selected }

// Visible returns the number of visible nodes after the last layout pass.
func (t *Tree) Visible() int { return t.visible }

// LineSpacing returns the vertical distance between adjacent leaf slots.
func (t *Tree) LineSpacing() float64 { return t.lineSpacing }

// Walk visits the tree in preorder. Returning false from fn skips the
// children of the visited node.
func (t *Tree) Walk(fn func(n *Node) bool) {
	stack := []*Node{t.root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(n) {
			continue
		}
		for i := len(n.children) - 1; i >= 0; i-- {
			stack = append(stack, n.children[i])
		}
	}
}

// NodeCount returns the number of nodes in the tree.
func (t *Tree) NodeCount() int {
	count := 0
	t.Walk(func(*Node) bool {
		count++
		return true
	})
	return count
}

// Find returns the node reached by following the child indices in path
// from the root, or nil if the path leaves the tree.
func (t *Tree) Find(path []int) *Node {
	n := t.root
	for _, i := range path {
		if n = n.Child(i); n == nil {
			return nil
		}
	}
	return n
}

// Contains reports whether n belongs to t.
func (t *Tree) Contains(n *Node) bool {
	if n == nil {
		return false
	}
	for n.parent != nil {
		n = n.parent
	}
	return n == t.root
}

// WorldPosition returns the layout position of n.
func (t *Tree) WorldPosition(n *Node) (x, y float64) { return n.WorldPosition() }

// SubtreeBounds returns the vertical extent of the visible subtree of n.
func (t *Tree) SubtreeBounds(n *Node) (upper, lower float64) { return n.SubtreeBounds() }

// Select makes n the selected node and recomputes decompression and layout.
//
// Every node on the path from n to the root is expanded. Each node on that
// path also has the subtrees hanging off the path expanded to depth levels
// below it; nodes beyond that depth are compressed. With depth 0 only the
// path itself stays expanded and its other children are shown compressed.
//
// Select reports false and does nothing if n does not belong to t.
func (t *Tree) Select(n *Node, depth int) bool {
	if !t.Contains(n) {
		return false
	}
	start := time.Now()
	if depth < 0 {
		depth = 0
	}

	if t.selected != nil {
		t.selected.selected = false
	}
	n.selected = true
	t.selected = n

	// The branch we came up through was already handled one step earlier,
	// so each ancestor skips it.
	var skipped *Node
	for a := n; a != nil; skipped, a = a, a.parent {
		t.decompress(a, depth, skipped)
	}

	t.Layout()
	observability.Layout().OnSelect(depth, t.visible, time.Since(start))
	return true
}

// decompress expands n and its subtree down to depth levels, except for
// the child skip, and compresses everything below that frontier.
func (t *Tree) decompress(n *Node, depth int, skip *Node) {
	n.compressed = false
	for _, c := range n.children {
		if c == skip {
			continue
		}
		if depth > 0 {
			t.decompress(c, depth-1, nil)
		} else {
			compressSubtree(c)
		}
	}
}

// compressSubtree compresses n and its descendants. It stops at nodes that
// are already compressed: their descendants are compressed too, since a
// compressed node never keeps expanded children.
func compressSubtree(n *Node) {
	stack := []*Node{n}
	for len(stack) > 0 {
		c := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if c.compressed {
			continue
		}
		c.compressed = true
		stack = append(stack, c.children...)
	}
}

// Welcome returns the placeholder tree shown before any tree was built.
func Welcome() *Tree {
	root := NewRoot("rewritetree")
	root.AddChild("No rewrite tree has been recorded yet.", true)
	root.AddChild("Trees appear here as soon as the engine finishes one.", true)
	root.ExpandPath()
	t := New(root, WithID("welcome"))
	t.Select(root, 1)
	return t
}
