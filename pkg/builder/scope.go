package builder

import "github.com/matzehuels/rewritetree/pkg/tree"

// Identifiers bound in every scope.
const (
	RootID    = "root"
	SubrootID = "subroot"

	// CurrentID refers to the builder's insertion cursor in parent
	// positions. It is not a scope binding.
	CurrentID = "current"
)

// Scope maps producer-supplied identifiers to nodes.
type Scope map[string]*tree.Node

func newScope(root, subroot *tree.Node) Scope {
	return Scope{RootID: root, SubrootID: subroot}
}

// ScopeStack is a stack of scopes. Only the topmost scope is consulted
// when resolving identifiers. The bottommost scope is never popped.
//
// The zero value is an empty stack; [ScopeStack.Reset] installs the base.
type ScopeStack struct {
	tables []Scope
}

// Reset discards all scopes and installs a base scope for a new tree.
func (s *ScopeStack) Reset(root *tree.Node) {
	clear(s.tables)
	s.tables = append(s.tables[:0], newScope(root, root))
}

// Clear discards all scopes, including the base.
func (s *ScopeStack) Clear() {
	clear(s.tables)
	s.tables = s.tables[:0]
}

// Push makes a new scope seeded with root and subroot the active one.
func (s *ScopeStack) Push(root, subroot *tree.Node) {
	s.tables = append(s.tables, newScope(root, subroot))
}

// Pop discards the active scope and returns it. It refuses to pop the base
// scope and reports false in that case.
func (s *ScopeStack) Pop() (Scope, bool) {
	if len(s.tables) <= 1 {
		return nil, false
	}
	top := s.tables[len(s.tables)-1]
	s.tables[len(s.tables)-1] = nil
	s.tables = s.tables[:len(s.tables)-1]
	return top, true
}

// Resolve looks id up in the active scope.
func (s *ScopeStack) Resolve(id string) (*tree.Node, bool) {
	if len(s.tables) == 0 {
		return nil, false
	}
	n, ok := s.tables[len(s.tables)-1][id]
	return n, ok
}

// Bind adds or replaces a binding in the active scope.
func (s *ScopeStack) Bind(id string, n *tree.Node) {
	if len(s.tables) == 0 {
		return
	}
	s.tables[len(s.tables)-1][id] = n
}

// Len returns the number of scopes, including the base.
func (s *ScopeStack) Len() int { return len(s.tables) }

// Depth returns the number of scopes pushed above the base.
func (s *ScopeStack) Depth() int { return max(0, len(s.tables)-1) }
