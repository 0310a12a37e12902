package tree

// Node is a single vertex of a rewrite tree. It is either a rewritten term
// or a comment annotating the rewrite history (a rule name, a strategy
// step, an explanation).
//
// A Node exclusively owns its children. The parent link is a back-reference
// only and is maintained by [Node.AddChild] and [Node.RemoveLastChild]; the
// zero value is a detached, compressed node with no children.
//
// The layout fields are only meaningful immediately after a layout pass
// ([Tree.Layout] or [Tree.Select]) and are invalidated by any structural
// mutation.
type Node struct {
	Label      string // Display text of the term or comment
	Properties string // Free-form description, e.g. debug attributes of the term
	Comment    bool   // Documentation-only label, not a rewritten term

	parent   *Node
	children []*Node
	index    int

	compressed bool
	selected   bool
	expansion  float64

	numLeaves      int
	width, height  float64
	worldX, worldY float64
	offsetY        float64
	upperY, lowerY float64
}

// NewRoot creates the root of a new tree. Roots are comments and start
// expanded so that the first children of a tree are visible.
func NewRoot(label string) *Node {
	return &Node{Label: label, Comment: true, expansion: 1}
}

// AddChild appends a new compressed child and returns it.
func (n *Node) AddChild(label string, comment bool) *Node {
	c := &Node{
		Label:      label,
		Comment:    comment,
		parent:     n,
		index:      len(n.children),
		compressed: true,
	}
	n.children = append(n.children, c)
	return c
}

// RemoveLastChild detaches the last child of n and reports whether there
// was one. The detached subtree is dropped.
func (n *Node) RemoveLastChild() bool {
	if len(n.children) == 0 {
		return false
	}
	last := len(n.children) - 1
	c := n.children[last]
	n.children[last] = nil
	n.children = n.children[:last]
	c.parent = nil
	c.index = 0
	return true
}

// Parent returns the parent node, or nil for a root.
func (n *Node) Parent() *Node { return n.parent }

// IsRoot reports whether n has no parent.
func (n *Node) IsRoot() bool { return n.parent == nil }

// Children returns the ordered children of n. The slice is owned by n and
// must not be modified.
func (n *Node) Children() []*Node { return n.children }

// Child returns the i-th child, or nil if i is out of range.
func (n *Node) Child(i int) *Node {
	if i < 0 || i >= len(n.children) {
		return nil
	}
	return n.children[i]
}

// Len returns the number of children.
func (n *Node) Len() int { return len(n.children) }

// Index returns the position of n in its parent's children.
func (n *Node) Index() int { return n.index }

// Depth returns the number of edges between n and the root.
func (n *Node) Depth() int {
	d := 0
	for p := n.parent; p != nil; p = p.parent {
		d++
	}
	return d
}

// Path returns the child indices leading from the root to n.
// The root has an empty path.
func (n *Node) Path() []int {
	path := make([]int, n.Depth())
	i := len(path) - 1
	for c := n; c.parent != nil; c = c.parent {
		path[i] = c.index
		i--
	}
	return path
}

// Compressed reports whether the children of n are hidden.
func (n *Node) Compressed() bool { return n.compressed }

// Selected reports whether n is the selected node of its tree.
func (n *Node) Selected() bool { return n.selected }

// Expansion returns the animation parameter in [0, 1]: 0 is fully
// compressed, 1 fully expanded.
func (n *Node) Expansion() float64 { return n.expansion }

// Visible reports whether every ancestor of n is expanded.
func (n *Node) Visible() bool {
	for p := n.parent; p != nil; p = p.parent {
		if p.compressed {
			return false
		}
	}
	return true
}

// ExpandPath decompresses n and all of its ancestors.
func (n *Node) ExpandPath() {
	for c := n; c != nil; c = c.parent {
		c.compressed = false
	}
}

// NumLeaves returns the number of vertical slots reserved by the visible
// subtree of n, as computed by the last layout pass.
func (n *Node) NumLeaves() int { return n.numLeaves }

// Size returns the measured box size of n from the last layout pass.
func (n *Node) Size() (w, h float64) { return n.width, n.height }

// WorldPosition returns the screen-independent position of n. X is the
// left edge of the box and Y its vertical center.
func (n *Node) WorldPosition() (x, y float64) { return n.worldX, n.worldY }

// OffsetY returns the vertical offset of n relative to its parent.
func (n *Node) OffsetY() float64 { return n.offsetY }

// SubtreeBounds returns the vertical extent of the visible subtree of n.
func (n *Node) SubtreeBounds() (upper, lower float64) { return n.upperY, n.lowerY }

// contains reports whether the point lies inside the box of n.
func (n *Node) contains(x, y float64) bool {
	return x >= n.worldX && x <= n.worldX+n.width &&
		y >= n.worldY-n.height/2 && y <= n.worldY+n.height/2
}
