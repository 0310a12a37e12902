package dispatch

import (
	"sync"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/rewritetree/pkg/errors"
	"github.com/matzehuels/rewritetree/pkg/tree"
)

// DefaultDepth is the decompression depth used when none is configured.
const DefaultDepth = 2

// DefaultHistory is the number of finished tree IDs a Store remembers.
const DefaultHistory = 64

// Store is the hand-off point between the builder and consumers. It holds
// the latest finished tree, or the welcome tree before any was built, and
// serializes every layout read and write on it.
type Store struct {
	mu      sync.Mutex
	tree    *tree.Tree
	depth   int
	history []string
	limit   int

	changed chan struct{}
	logger  *log.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithDepth sets the decompression depth applied to published trees.
func WithDepth(depth int) StoreOption {
	return func(s *Store) {
		if depth > 0 {
			s.depth = depth
		}
	}
}

// WithHistory bounds the number of remembered tree IDs.
func WithHistory(n int) StoreOption {
	return func(s *Store) {
		if n > 0 {
			s.limit = n
		}
	}
}

// WithStoreLogger sets the logger used for diagnostics.
func WithStoreLogger(l *log.Logger) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewStore creates a Store showing the welcome tree.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		tree:    tree.Welcome(),
		depth:   DefaultDepth,
		limit:   DefaultHistory,
		changed: make(chan struct{}, 1),
		logger:  log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Publish makes t the current tree and selects its root.
func (s *Store) Publish(t *tree.Tree) {
	s.mu.Lock()
	t.Select(t.Root(), s.depth)
	s.tree = t
	s.history = append(s.history, t.ID())
	if over := len(s.history) - s.limit; over > 0 {
		s.history = append(s.history[:0], s.history[over:]...)
	}
	s.mu.Unlock()

	s.logger.Debug("published tree", "id", t.ID(), "root", t.Root().Label, "visible", t.Visible())
	s.notify()
}

// Current returns the current tree. Callers must not read or change its
// layout outside of [Store.View].
func (s *Store) Current() *tree.Tree {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree
}

// Depth returns the decompression depth.
func (s *Store) Depth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.depth
}

// SetDepth changes the decompression depth and reapplies the current
// selection with it.
func (s *Store) SetDepth(depth int) {
	if depth < 1 {
		depth = 1
	}
	s.mu.Lock()
	s.depth = depth
	sel := s.tree.Selected()
	if sel == nil {
		sel = s.tree.Root()
	}
	s.tree.Select(sel, depth)
	s.mu.Unlock()
	s.notify()
}

// Select selects n in the current tree at the given depth, or at the
// store's depth when depth is not positive. It reports false if n belongs
// to a different tree.
func (s *Store) Select(n *tree.Node, depth int) bool {
	s.mu.Lock()
	if depth <= 0 {
		depth = s.depth
	}
	ok := s.tree.Select(n, depth)
	s.mu.Unlock()
	if ok {
		s.notify()
	}
	return ok
}

// SelectPath selects the node reached by following path from the root.
func (s *Store) SelectPath(path []int, depth int) (*tree.Node, error) {
	s.mu.Lock()
	n := s.tree.Find(path)
	if n == nil {
		s.mu.Unlock()
		return nil, errors.New(errors.ErrCodeNodeNotFound, "no node at path %v", path)
	}
	if depth <= 0 {
		depth = s.depth
	}
	s.tree.Select(n, depth)
	s.mu.Unlock()
	s.notify()
	return n, nil
}

// DetectMouseOver returns the visible node whose box contains the point.
func (s *Store) DetectMouseOver(x, y float64) *tree.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.DetectMouseOver(x, y)
}

// WorldPosition returns the layout position of n.
func (s *Store) WorldPosition(n *tree.Node) (x, y float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.WorldPosition(n)
}

// SubtreeBounds returns the vertical extent of the visible subtree of n.
func (s *Store) SubtreeBounds(n *tree.Node) (upper, lower float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.SubtreeBounds(n)
}

// View runs fn with exclusive access to the current tree.
func (s *Store) View(fn func(t *tree.Tree)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.tree)
}

// Changed returns a channel that receives a value after the current tree
// or its selection changed. Notifications are coalesced: a slow reader sees
// one wake-up for any number of changes.
func (s *Store) Changed() <-chan struct{} { return s.changed }

// History returns the IDs of published trees, oldest first.
func (s *Store) History() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.history...)
}

func (s *Store) notify() {
	select {
	case s.changed <- struct{}{}:
	default:
	}
}
