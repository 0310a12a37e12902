// Package pkg provides the core libraries for rewritetree, a recorder and
// browser for the rewrite trees a term-rewriting engine emits while it
// reduces a term.
//
// # Overview
//
// An engine describes each reduction as a stream of small commands (start a
// tree, add a child, push a scope, finish). rewritetree turns that stream
// into a tree of terms and comments, lays it out around a selected node and
// animates the parts that unfold. The pkg directory is organized into four
// main areas:
//
//  1. [builder] and [protocol] - Command stream to tree construction
//  2. [tree] - Tree structure, decompression, layout and animation
//  3. [dispatch] - Single-consumer queue, shared store and render loop
//  4. [graph], [render] and [cache] - Serialization, diagrams and archiving
//
// # Architecture
//
// The typical data flow through rewritetree:
//
//	Engine (JSON Lines commands)
//	         ↓
//	    [protocol] package (decode commands)
//	         ↓
//	    [dispatch] package (queue, one goroutine applies commands)
//	         ↓
//	    [builder] package (scope stack, node limit, subroot cursor)
//	         ↓
//	    [dispatch.Store] (finished tree, selection, layout)
//	         ↓
//	    TUI / HTTP / graph JSON / DOT / SVG / archive
//
// # Quick Start
//
// Replay a recorded command stream and select a node:
//
//	b := builder.New()
//	store := dispatch.NewStore(dispatch.WithDepth(2))
//	d := dispatch.New(b, store)
//	go d.Run(ctx)
//
//	d.Feed(ctx, protocol.NewReader(f))
//	d.Flush(ctx)
//
//	store.SelectPath([]int{0, 1}, 0)
//	store.View(func(t *tree.Tree) {
//	    graph.WriteLayoutFile(graph.LayoutFromTree(t), "layout.json")
//	})
//
// # Main Packages
//
// [tree] - Nodes, selection-driven decompression, vertical layout with
// configurable line spacing, hit testing and exponential expansion easing.
//
// [builder] - Scoped identifier bindings, the insertion cursor, node count
// checkpoints, the node limit and error recovery.
//
// [protocol] - Typed commands and their JSON Lines wire form.
//
// [dispatch] - The command queue, the [dispatch.Store] every consumer reads
// through, and the [dispatch.Animator] frame loop.
//
// [graph] - Node-link JSON for trees and layout snapshots.
//
// [render/nodelink] - Graphviz diagrams of a tree (DOT, SVG, PDF, PNG).
//
// [cache] - Archive backends: file, bbolt, Redis and a no-op cache.
//
// [config] - TOML or YAML configuration with validation.
//
// [observability] - Hooks for build and layout events, used for logging
// and Prometheus metrics.
//
// [errors] - Structured errors with machine-readable codes.
//
// # Testing
//
// Run tests:
//
//	go test ./...                        # All tests
//	go test ./pkg/tree/...               # Specific package
//	go test -run Example ./pkg/...       # Examples only
//
// Redis tests run when REWRITETREE_REDIS_ADDR points at a server.
//
// [builder]: https://pkg.go.dev/github.com/matzehuels/rewritetree/pkg/builder
// [protocol]: https://pkg.go.dev/github.com/matzehuels/rewritetree/pkg/protocol
// [tree]: https://pkg.go.dev/github.com/matzehuels/rewritetree/pkg/tree
// [dispatch]: https://pkg.go.dev/github.com/matzehuels/rewritetree/pkg/dispatch
// [dispatch.Store]: https://pkg.go.dev/github.com/matzehuels/rewritetree/pkg/dispatch#Store
// [dispatch.Animator]: https://pkg.go.dev/github.com/matzehuels/rewritetree/pkg/dispatch#Animator
// [graph]: https://pkg.go.dev/github.com/matzehuels/rewritetree/pkg/graph
// [render]: https://pkg.go.dev/github.com/matzehuels/rewritetree/pkg/render
// [render/nodelink]: https://pkg.go.dev/github.com/matzehuels/rewritetree/pkg/render/nodelink
// [cache]: https://pkg.go.dev/github.com/matzehuels/rewritetree/pkg/cache
// [config]: https://pkg.go.dev/github.com/matzehuels/rewritetree/pkg/config
// [observability]: https://pkg.go.dev/github.com/matzehuels/rewritetree/pkg/observability
// [errors]: https://pkg.go.dev/github.com/matzehuels/rewritetree/pkg/errors
package pkg
