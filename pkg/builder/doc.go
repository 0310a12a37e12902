// Package builder assembles rewrite trees from a stream of producer
// commands.
//
// A producer, typically a rewriting engine, describes the tree it wants to
// record with a small command vocabulary: start a tree, push and pop
// scopes, move the insertion cursor ("subroot"), add and remove children,
// checkpoint the node count and temporarily ignore commands. Nodes are
// referenced by short identifiers that live in the active [Scope]; every
// scope binds "root" and "subroot".
//
//	b := builder.New(builder.WithNodeLimit(10000))
//	b.NewTree("reduce")
//	b.AddChild(builder.CurrentID, "r", "rule: plus-zero", true)
//	b.SetSubroot("r")
//	b.AddChild(builder.CurrentID, "", "s(0)", false)
//	t := b.FinishTree()
//
// # Failure handling
//
// Producer mistakes never surface as errors. An identifier that cannot be
// resolved, or a tree that reaches the node limit, stops construction: an
// explanatory comment is appended, the builder enters a fatal state and all
// further commands are dropped until the next [Builder.NewTree]. The
// finished tree therefore always explains why it is truncated.
//
// Builders are not safe for concurrent use; package dispatch serializes
// commands from any number of producers onto a single builder.
package builder
