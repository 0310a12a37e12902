// Package tree holds rewrite trees and computes their interactive layout.
//
// A rewrite tree records the step-by-step history of a term processed by a
// rewriting engine. Each [Node] is either a rewritten term or a comment
// annotating a step. Trees are built incrementally by package builder and
// handed to consumers as a [Tree] once complete.
//
// # Decompression
//
// Only part of a tree is shown at any time. A node is either expanded (its
// children are visible) or compressed (its children are hidden). Selecting
// a node with [Tree.Select] expands the path from the root down to the node,
// expands every subtree hanging off that path to a given depth, and
// compresses everything beyond it:
//
//	t.Select(n, 2)
//	x, y := n.WorldPosition()
//
// # Layout
//
// After each selection the visible nodes are assigned vertical slots
// ("leaves"). A node reserves one slot per visible leaf below it, and at
// least as many slots as its own label needs beyond a single line. Children
// are centered on their parent, and every node records the vertical bounds
// of its visible subtree so that [Tree.DetectMouseOver] only descends into
// subtrees that can contain the query point.
//
// Box sizes come from a [Metrics] implementation; [CellMetrics] measures in
// terminal cells.
//
// # Concurrency
//
// A Tree is not safe for concurrent use. Structure must not change once a
// tree is handed off; layout state changes on every Select and Animate call,
// so consumers serialize those behind a lock (see package dispatch).
package tree
