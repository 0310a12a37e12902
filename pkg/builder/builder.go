package builder

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/rewritetree/pkg/errors"
	"github.com/matzehuels/rewritetree/pkg/observability"
	"github.com/matzehuels/rewritetree/pkg/tree"
)

// Recovery selects what the builder does when an identifier cannot be
// resolved in the active scope.
type Recovery int

const (
	// RecoverFailFast appends an explanatory comment under the root and
	// stops building the current tree.
	RecoverFailFast Recovery = iota
	// RecoverPopRetry pops the active scope and retries the lookup once in
	// the enclosing one before failing fast.
	RecoverPopRetry
)

// String returns the configuration name of r.
func (r Recovery) String() string {
	switch r {
	case RecoverPopRetry:
		return "pop-retry"
	default:
		return "fail-fast"
	}
}

// ParseRecovery parses a recovery policy name as used in configuration.
func ParseRecovery(s string) (Recovery, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fail-fast":
		return RecoverFailFast, nil
	case "pop-retry":
		return RecoverPopRetry, nil
	default:
		return RecoverFailFast, errors.New(errors.ErrCodeInvalidConfig, "unknown recovery policy %q (want fail-fast or pop-retry)", s)
	}
}

// Builder incrementally constructs rewrite trees from producer commands.
//
// A Builder builds one tree at a time: [Builder.NewTree] starts it and
// [Builder.FinishTree] hands it off. Producer mistakes never surface as
// errors. Unresolvable identifiers and an exceeded node limit put the
// builder into a fatal state in which every further command is dropped
// until the next NewTree, and the tree gets an explanatory comment.
//
// A Builder is not safe for concurrent use; package dispatch serializes
// access to it.
type Builder struct {
	root    *tree.Node
	subroot *tree.Node
	scopes  ScopeStack

	nodeCount int
	saved     []int

	fatal  bool
	ignore bool

	maxDepth  int
	nodeLimit int
	recovery  Recovery

	logger   *log.Logger
	treeOpts []tree.Option
	started  time.Time
}

// Option configures a Builder.
type Option func(*Builder)

// WithNodeLimit stops construction once a tree holds limit nodes.
// Values of 1 or less disable the limit.
func WithNodeLimit(limit int) Option {
	return func(b *Builder) { b.nodeLimit = limit }
}

// WithMaxDepth stops recording nodes once the scope stack, base scope
// included, holds depth entries. Negative values disable the limit.
func WithMaxDepth(depth int) Option {
	return func(b *Builder) { b.maxDepth = depth }
}

// WithRecovery sets the policy for unresolvable identifiers.
func WithRecovery(r Recovery) Option {
	return func(b *Builder) { b.recovery = r }
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithTreeOptions sets the options passed to [tree.New] for finished trees.
func WithTreeOptions(opts ...tree.Option) Option {
	return func(b *Builder) { b.treeOpts = opts }
}

// New creates a Builder with no tree in progress.
func New(opts ...Option) *Builder {
	b := &Builder{
		maxDepth: -1,
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// =============================================================================
// Tree lifecycle
// =============================================================================

// NewTree discards any tree in progress and starts a new one whose root is
// a comment labeled label. It clears the fatal and ignore states.
func (b *Builder) NewTree(label string) {
	if b.root != nil {
		b.logger.Debug("discarding unfinished tree", "root", b.root.Label, "nodes", b.nodeCount)
	}
	b.root = tree.NewRoot(label)
	b.subroot = b.root
	b.scopes.Reset(b.root)
	b.nodeCount = 1
	b.saved = b.saved[:0]
	b.fatal = false
	b.ignore = false
	b.started = time.Now()
	observability.Builder().OnTreeStart(label)
}

// FinishTree packages the tree in progress and resets the builder.
//
// FinishTree panics if no tree is in progress; callers check
// [Builder.Building] first.
func (b *Builder) FinishTree() *tree.Tree {
	if b.root == nil {
		panic("builder: FinishTree called with no tree in progress")
	}
	t := tree.New(b.root, b.treeOpts...)
	observability.Builder().OnTreeFinish(t.ID(), b.nodeCount, time.Since(b.started))
	b.logger.Debug("finished tree", "id", t.ID(), "nodes", b.nodeCount, "fatal", b.fatal)

	b.root = nil
	b.subroot = nil
	b.scopes.Clear()
	b.saved = b.saved[:0]
	b.fatal = false
	b.ignore = false
	return t
}

// =============================================================================
// Scopes
// =============================================================================

// PushScope enters a nested scope seeded with the current root and subroot.
func (b *Builder) PushScope() {
	if !b.accept("push") {
		return
	}
	b.scopes.Push(b.root, b.subroot)
}

// PopScope leaves the active scope and restores the subroot that was
// current when it was pushed. Popping the base scope is a no-op.
func (b *Builder) PopScope() {
	if !b.accept("pop") {
		return
	}
	s, ok := b.scopes.Pop()
	if !ok {
		b.logger.Debug("ignoring pop of the base scope")
		return
	}
	b.moveSubroot(s[SubrootID])
}

// SetSubroot moves the insertion cursor to the node bound to id.
func (b *Builder) SetSubroot(id string) {
	if !b.accept("subroot") || b.tooDeep() {
		return
	}
	n, ok := b.resolve(id)
	if !ok {
		return
	}
	b.moveSubroot(n)
}

// =============================================================================
// Nodes
// =============================================================================

// AddChild appends a node under the node bound to parentID, or under the
// subroot when parentID is empty or [CurrentID]. A non-empty newID binds
// the new node in the active scope. It returns the new node, or nil when
// the command was dropped.
func (b *Builder) AddChild(parentID, newID, label string, comment bool) *tree.Node {
	return b.AddChildWithProperties(parentID, newID, label, "", comment)
}

// AddChildWithProperties is [Builder.AddChild] with a properties text attached
// to the new node.
func (b *Builder) AddChildWithProperties(parentID, newID, label, properties string, comment bool) *tree.Node {
	if !b.accept("add") || b.tooDeep() {
		return nil
	}
	parent, ok := b.parent(parentID)
	if !ok {
		return nil
	}
	return b.addUnder(parent, newID, label, properties, comment)
}

// AddComment appends a comment under the parent and, when payload is not
// empty, a term labeled payload under the comment. newID binds the comment.
// It returns the comment node, or nil when the command was dropped.
func (b *Builder) AddComment(parentID, newID, comment, payload, properties string) *tree.Node {
	c := b.AddChild(parentID, newID, comment, true)
	if c == nil || payload == "" || b.fatal {
		return c
	}
	b.addUnder(c, "", payload, properties, false)
	return c
}

// RemoveLastChild removes the last child of the node bound to parentID
// and reports whether a node was removed.
func (b *Builder) RemoveLastChild(parentID string) bool {
	if !b.accept("remove") || b.tooDeep() {
		return false
	}
	parent, ok := b.parent(parentID)
	if !ok {
		return false
	}
	if !parent.RemoveLastChild() {
		return false
	}
	if !attached(b.subroot, b.root) {
		b.logger.Debug("subroot was removed, moving cursor to its parent", "parent", parent.Label)
		b.moveSubroot(parent)
	}
	return true
}

func (b *Builder) addUnder(parent *tree.Node, newID, label, properties string, comment bool) *tree.Node {
	n := parent.AddChild(label, comment)
	n.Properties = properties
	if newID != "" {
		b.scopes.Bind(newID, n)
	}
	b.nodeCount++
	if b.nodeLimit > 1 && b.nodeCount >= b.nodeLimit {
		b.limitReached()
	}
	return n
}

// limitReached leaves an explanation under the root and under the subroot,
// so it is reachable wherever the viewer is looking, and stops the tree.
func (b *Builder) limitReached() {
	msg := fmt.Sprintf("node limit of %d reached", b.nodeLimit)
	b.root.AddChild(msg, true)
	if b.subroot != b.root {
		b.subroot.AddChild(msg, true)
	}
	b.fatal = true
	b.logger.Warn("node limit reached", "limit", b.nodeLimit, "root", b.root.Label)
	observability.Builder().OnFatal("node limit", b.nodeCount)
}

// =============================================================================
// Node count checkpoints
// =============================================================================

// SaveNodeCount pushes a checkpoint of the node count.
func (b *Builder) SaveNodeCount() {
	if !b.accept("save") {
		return
	}
	b.saved = append(b.saved, b.nodeCount)
}

// RestoreNodeCount pops the last checkpoint. With commit set the node count
// is rolled back to it; otherwise the checkpoint is discarded.
func (b *Builder) RestoreNodeCount(commit bool) {
	if !b.accept("restore") {
		return
	}
	if len(b.saved) == 0 {
		b.logger.Debug("ignoring restore without a saved node count")
		return
	}
	last := b.saved[len(b.saved)-1]
	b.saved = b.saved[:len(b.saved)-1]
	if commit {
		b.nodeCount = last
	}
}

// ToggleIgnore turns command ignoring on or off. While on, every command
// except NewTree, FinishTree and ToggleIgnore is dropped.
func (b *Builder) ToggleIgnore(on bool) {
	if b.fatal {
		b.logger.Debug("dropping command after fatal error", "op", "ignore")
		observability.Builder().OnDropped("ignore")
		return
	}
	b.ignore = on
}

// =============================================================================
// State
// =============================================================================

// Building reports whether a tree is in progress.
func (b *Builder) Building() bool { return b.root != nil }

// Fatal reports whether the tree in progress was stopped by an error.
func (b *Builder) Fatal() bool { return b.fatal }

// Ignoring reports whether commands are being ignored.
func (b *Builder) Ignoring() bool { return b.ignore }

// NodeCount returns the number of nodes counted for the tree in progress.
func (b *Builder) NodeCount() int { return b.nodeCount }

// Root returns the root of the tree in progress.
func (b *Builder) Root() *tree.Node { return b.root }

// Subroot returns the insertion cursor.
func (b *Builder) Subroot() *tree.Node { return b.subroot }

// ScopeDepth returns the number of scopes pushed above the base.
func (b *Builder) ScopeDepth() int { return b.scopes.Depth() }

// Scopes returns the number of scopes, including the base.
func (b *Builder) Scopes() int { return b.scopes.Len() }

// =============================================================================
// Internal helpers
// =============================================================================

// accept reports whether a mutation may run, logging why it may not.
func (b *Builder) accept(op string) bool {
	switch {
	case b.root == nil:
		b.logger.Warn("dropping command outside of a tree", "op", op)
	case b.fatal:
		b.logger.Debug("dropping command after fatal error", "op", op)
	case b.ignore:
		// Ignoring is requested by the producer; dropping is silent.
	default:
		return true
	}
	observability.Builder().OnDropped(op)
	return false
}

// tooDeep reports whether the scope stack has reached the maximum depth at
// which nodes are recorded. RemoveLastChild is gated too, so a rollback deep
// in the stack cannot remove a node recorded at a shallower level.
func (b *Builder) tooDeep() bool {
	return b.maxDepth >= 0 && b.scopes.Len() >= b.maxDepth
}

func (b *Builder) parent(id string) (*tree.Node, bool) {
	if id == "" || id == CurrentID {
		return b.subroot, true
	}
	return b.resolve(id)
}

func (b *Builder) resolve(id string) (*tree.Node, bool) {
	if n, ok := b.scopes.Resolve(id); ok {
		return n, true
	}
	if b.recovery == RecoverPopRetry && b.scopes.Len() > 1 {
		b.logger.Warn("unknown identifier, retrying in the enclosing scope", "id", id, "depth", b.scopes.Depth())
		if s, ok := b.scopes.Pop(); ok {
			b.moveSubroot(s[SubrootID])
		}
		if n, ok := b.scopes.Resolve(id); ok {
			return n, true
		}
	}
	b.fail(fmt.Sprintf("unknown identifier %q", id))
	return nil, false
}

func (b *Builder) fail(reason string) {
	b.root.AddChild("fatal error: "+reason, true)
	b.fatal = true
	b.logger.Warn("tree construction stopped", "reason", reason, "root", b.root.Label, "nodes", b.nodeCount)
	observability.Builder().OnFatal(reason, b.nodeCount)
}

// moveSubroot moves the insertion cursor and keeps its ancestors expanded.
func (b *Builder) moveSubroot(n *tree.Node) {
	if n == nil || !attached(n, b.root) {
		n = b.root
	}
	b.subroot = n
	n.ExpandPath()
}

// attached reports whether n is still part of the tree under root.
func attached(n, root *tree.Node) bool {
	for n != nil && n != root {
		n = n.Parent()
	}
	return n == root
}
