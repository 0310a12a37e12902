package graph

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/matzehuels/rewritetree/pkg/errors"
	"github.com/matzehuels/rewritetree/pkg/tree"
)

// =============================================================================
// Graph - Rewrite Tree Serialization
// =============================================================================

// Graph is the canonical serialization format for rewrite trees.
// Used for saved trees, API responses and archive entries.
//
// Node IDs are preorder indices ("n0" is the root) and edges are listed in
// child order, so FromTree followed by ToTree reproduces the structure.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Node is a serialized tree node.
type Node struct {
	ID         string `json:"id"`
	Label      string `json:"label"`
	Properties string `json:"properties,omitempty"`
	Comment    bool   `json:"comment,omitempty"`
}

// Edge connects a parent to one of its children.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// NodeID returns the serialization ID of the i-th node in preorder.
func NodeID(i int) string { return "n" + strconv.Itoa(i) }

// IDs assigns every node of t its serialization ID.
func IDs(t *tree.Tree) map[*tree.Node]string {
	ids := make(map[*tree.Node]string)
	t.Walk(func(n *tree.Node) bool {
		ids[n] = NodeID(len(ids))
		return true
	})
	return ids
}

// Lookup returns the node of t with the given serialization ID, or nil.
func Lookup(t *tree.Tree, id string) *tree.Node {
	want, err := strconv.Atoi(strings.TrimPrefix(id, "n"))
	if err != nil || !strings.HasPrefix(id, "n") || want < 0 {
		return nil
	}
	var found *tree.Node
	i := 0
	t.Walk(func(n *tree.Node) bool {
		if i == want {
			found = n
		}
		i++
		return found == nil
	})
	return found
}

// =============================================================================
// Tree ↔ Graph Conversion
// =============================================================================

// FromTree converts a tree to its serialization format.
func FromTree(t *tree.Tree) Graph {
	ids := IDs(t)
	out := Graph{
		Nodes: make([]Node, 0, len(ids)),
		Edges: make([]Edge, 0, max(0, len(ids)-1)),
	}
	t.Walk(func(n *tree.Node) bool {
		id := ids[n]
		out.Nodes = append(out.Nodes, Node{
			ID:         id,
			Label:      n.Label,
			Properties: n.Properties,
			Comment:    n.Comment,
		})
		for _, c := range n.Children() {
			out.Edges = append(out.Edges, Edge{From: id, To: ids[c]})
		}
		return true
	})
	return out
}

// ToTree rebuilds a tree from its serialization format. The graph must
// form a single tree: unique IDs, known edge endpoints, exactly one node
// without a parent and at most one parent per node. Children keep the
// order of their edges.
func ToTree(g Graph, opts ...tree.Option) (*tree.Tree, error) {
	if len(g.Nodes) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidGraph, "graph has no nodes")
	}

	byID := make(map[string]int, len(g.Nodes))
	for i, n := range g.Nodes {
		if n.ID == "" {
			return nil, errors.New(errors.ErrCodeInvalidGraph, "node %d has no id", i)
		}
		if _, dup := byID[n.ID]; dup {
			return nil, errors.New(errors.ErrCodeInvalidGraph, "duplicate node id %q", n.ID)
		}
		byID[n.ID] = i
	}

	children := make(map[string][]string, len(g.Nodes))
	parent := make(map[string]string, len(g.Nodes))
	for _, e := range g.Edges {
		for _, id := range []string{e.From, e.To} {
			if _, ok := byID[id]; !ok {
				return nil, errors.New(errors.ErrCodeInvalidGraph, "edge %s→%s: unknown node %q", e.From, e.To, id)
			}
		}
		if p, ok := parent[e.To]; ok {
			return nil, errors.New(errors.ErrCodeInvalidGraph, "node %q has two parents (%q and %q)", e.To, p, e.From)
		}
		parent[e.To] = e.From
		children[e.From] = append(children[e.From], e.To)
	}

	var roots []string
	for _, n := range g.Nodes {
		if _, ok := parent[n.ID]; !ok {
			roots = append(roots, n.ID)
		}
	}
	if len(roots) != 1 {
		return nil, errors.New(errors.ErrCodeInvalidGraph, "graph has %d roots, want 1", len(roots))
	}

	rootData := g.Nodes[byID[roots[0]]]
	root := tree.NewRoot(rootData.Label)
	root.Properties = rootData.Properties
	root.Comment = rootData.Comment

	type item struct {
		id   string
		node *tree.Node
	}
	built := 1
	stack := []item{{roots[0], root}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, cid := range children[it.id] {
			data := g.Nodes[byID[cid]]
			c := it.node.AddChild(data.Label, data.Comment)
			c.Properties = data.Properties
			stack = append(stack, item{cid, c})
			built++
		}
	}
	if built != len(g.Nodes) {
		return nil, errors.New(errors.ErrCodeInvalidGraph, "%d nodes are not reachable from root %q", len(g.Nodes)-built, roots[0])
	}

	return tree.New(root, opts...), nil
}

// UnmarshalGraph deserializes JSON bytes to a Graph.
func UnmarshalGraph(data []byte) (Graph, error) {
	var g Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return Graph{}, err
	}
	return g, nil
}
