package tree

import (
	"math"
	"time"
)

// settleEpsilon is the distance from the target at which an expansion
// animation snaps to its final value.
const settleEpsilon = 1e-3

// Animate advances the expansion animation of every visible node by dt,
// easing exponentially toward 1 for expanded nodes and 0 for compressed
// ones. It reports whether any node is still moving.
//
// Animate never changes structure or layout.
func (t *Tree) Animate(dt time.Duration) bool {
	k := 1 - math.Exp(-t.easing*dt.Seconds())
	moving := false
	t.Walk(func(n *Node) bool {
		target := 1.0
		if n.compressed {
			target = 0
		}
		n.expansion += (target - n.expansion) * k
		if math.Abs(target-n.expansion) < settleEpsilon {
			n.expansion = target
		} else {
			moving = true
		}
		return !n.compressed
	})
	return moving
}

// Settled reports whether every visible node has reached its target
// expansion.
func (t *Tree) Settled() bool {
	settled := true
	t.Walk(func(n *Node) bool {
		if (n.compressed && n.expansion != 0) || (!n.compressed && n.expansion != 1) {
			settled = false
		}
		return settled && !n.compressed
	})
	return settled
}
