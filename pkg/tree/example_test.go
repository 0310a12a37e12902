package tree_test

import (
	"fmt"

	"github.com/matzehuels/rewritetree/pkg/tree"
)

func ExampleTree_Select() {
	root := tree.NewRoot("reduce")
	step := root.AddChild("rule: plus-zero", true)
	step.AddChild("s(0) + 0", false)
	root.AddChild("rule: plus-succ", true)

	t := tree.New(root)
	t.Select(step, 1)

	t.Walk(func(n *tree.Node) bool {
		x, y := n.WorldPosition()
		fmt.Printf("%s: (%v, %v)\n", n.Label, x, y)
		return !n.Compressed()
	})
	// Output:
	// reduce: (0, 0)
	// rule: plus-zero: (8, -1)
	// s(0) + 0: (25, -1)
	// rule: plus-succ: (8, 1)
}

func ExampleTree_DetectMouseOver() {
	root := tree.NewRoot("root")
	root.AddChild("left", false)
	root.AddChild("right", false)

	t := tree.New(root)
	t.Select(root, 0)

	if n := t.DetectMouseOver(7, 1); n != nil {
		fmt.Println(n.Label)
	}
	// Output:
	// right
}
