// Package dispatch connects producers of build commands with consumers of
// finished rewrite trees.
//
// A [Dispatcher] is a FIFO mailbox in front of a single builder. Producers
// call [Dispatcher.Send] from any goroutine; [Dispatcher.Run] applies the
// commands one at a time, so the builder never sees concurrent access and
// a FinishTree is applied only after every command queued before it.
//
// Finished trees are published to a [Store], which holds the current tree
// behind a mutex and exposes the consumer operations: selection, hit
// testing, positions and subtree bounds. Before the first tree is finished
// the store shows a welcome tree.
//
// An [Animator] redraws while expansion animations are in flight. It blocks
// on the store's change notifications when idle.
//
//	store := dispatch.NewStore(dispatch.WithDepth(2))
//	d := dispatch.New(builder.New(), store)
//	go d.Run(ctx)
//	d.Send(ctx, protocol.NewTree{Label: "reduce"})
//	d.Send(ctx, protocol.FinishTree{})
//	d.Flush(ctx)
//	t := store.Current()
package dispatch
