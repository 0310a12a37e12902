package tree

import "math"

// slotEpsilon absorbs float noise when converting label heights to slots.
const slotEpsilon = 1e-9

// Layout recomputes leaf counts, offsets, world positions and subtree
// bounds for the visible part of the tree under the current decompression
// state. The root is placed at the origin.
func (t *Tree) Layout() {
	t.visible = 0
	t.countLeaves(t.root)
	t.root.offsetY = 0
	t.root.worldX, t.root.worldY = 0, 0
	t.computeYOffsets(t.root)
}

// countLeaves measures n and stores the number of vertical slots reserved
// by its visible subtree. Each child of an expanded node takes at least one
// slot, and a label taller than one line takes at least one slot per extra
// line so that it does not overlap its siblings.
func (t *Tree) countLeaves(n *Node) int {
	t.visible++
	n.width, n.height = t.metrics.Measure(n)

	n.numLeaves = 0
	if !n.compressed {
		for _, c := range n.children {
			n.numLeaves += max(1, t.countLeaves(c))
		}
	}

	if lh := t.metrics.LineHeight(); lh > 0 {
		if excess := n.height - lh; excess > 0 {
			n.numLeaves = max(n.numLeaves, int(math.Ceil(excess/lh-slotEpsilon)))
		}
	}
	return n.numLeaves
}

// computeYOffsets places the children of n around the vertical center of n
// and returns the vertical bounds of the visible subtree of n. The world
// position of n must already be set.
func (t *Tree) computeYOffsets(n *Node) (upper, lower float64) {
	upper = n.worldY - n.height/2
	lower = n.worldY + n.height/2

	if !n.compressed && len(n.children) > 0 {
		total := 0
		for _, c := range n.children {
			total += max(1, c.numLeaves)
		}

		before := 0
		for _, c := range n.children {
			slots := max(1, c.numLeaves)
			c.offsetY = float64(2*before+slots-total) / 2 * t.lineSpacing
			c.worldX = n.worldX + n.width + t.hgap
			c.worldY = n.worldY + c.offsetY

			cu, cl := t.computeYOffsets(c)
			upper = min(upper, cu)
			lower = max(lower, cl)
			before += slots
		}
	}

	n.upperY, n.lowerY = upper, lower
	return upper, lower
}

// DetectMouseOver returns the visible node whose box contains the point,
// or nil. Subtrees whose vertical bounds exclude y are never visited.
func (t *Tree) DetectMouseOver(x, y float64) *Node {
	if y < t.root.upperY || y > t.root.lowerY {
		return nil
	}
	return detect(t.root, x, y)
}

func detect(n *Node, x, y float64) *Node {
	if n.contains(x, y) {
		return n
	}
	if n.compressed {
		return nil
	}
	for _, c := range n.children {
		if y < c.upperY || y > c.lowerY {
			continue
		}
		if hit := detect(c, x, y); hit != nil {
			return hit
		}
	}
	return nil
}
