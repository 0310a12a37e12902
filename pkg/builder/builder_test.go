package builder

import (
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/rewritetree/pkg/observability"
	"github.com/matzehuels/rewritetree/pkg/tree"
)

func newTestBuilder(opts ...Option) *Builder {
	opts = append([]Option{WithLogger(log.New(io.Discard))}, opts...)
	return New(opts...)
}

func labels(n *tree.Node) []string {
	var out []string
	for _, c := range n.Children() {
		out = append(out, c.Label)
	}
	return out
}

func checkShape(t *testing.T, n *tree.Node) {
	t.Helper()
	for i, c := range n.Children() {
		if c.Parent() != n || c.Index() != i || n.Child(i) != c {
			t.Errorf("%q: broken parent/index link under %q", c.Label, n.Label)
		}
		checkShape(t, c)
	}
}

func TestNewTreeAndFinish(t *testing.T) {
	b := newTestBuilder()
	if b.Building() {
		t.Fatal("new builder should not be building")
	}

	b.NewTree("root")
	b.AddChild(CurrentID, "a", "child1", true)
	b.AddChild(CurrentID, "b", "child2", true)

	if got := b.NodeCount(); got != 3 {
		t.Errorf("NodeCount() = %d, want 3", got)
	}
	tr := b.FinishTree()
	root := tr.Root()
	if diff := cmp.Diff([]string{"child1", "child2"}, labels(root)); diff != "" {
		t.Errorf("children mismatch (-want +got):\n%s", diff)
	}
	for _, c := range root.Children() {
		if !c.Comment {
			t.Errorf("%q should be a comment", c.Label)
		}
	}
	if root.Label != "root" || !root.Comment {
		t.Errorf("root = %q (comment %v)", root.Label, root.Comment)
	}
	if b.Building() || b.Root() != nil || b.Scopes() != 0 {
		t.Error("FinishTree should reset the builder")
	}
}

func TestNewTreeDiscardsPrevious(t *testing.T) {
	b := newTestBuilder()
	b.NewTree("first")
	b.AddChild("", "", "x", false)
	b.PushScope()
	b.ToggleIgnore(true)

	b.NewTree("second")
	if b.Root().Label != "second" || b.Root().Len() != 0 {
		t.Errorf("root = %q with %d children", b.Root().Label, b.Root().Len())
	}
	if b.NodeCount() != 1 || b.ScopeDepth() != 0 || b.Ignoring() || b.Fatal() {
		t.Error("NewTree should reset count, scopes and flags")
	}
	if b.Subroot() != b.Root() {
		t.Error("subroot should be the new root")
	}
}

func TestFinishTreeWithoutTreePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("FinishTree without a tree should panic")
		}
	}()
	newTestBuilder().FinishTree()
}

func TestCommandsOutsideTree(t *testing.T) {
	b := newTestBuilder()
	if n := b.AddChild("", "a", "x", true); n != nil {
		t.Error("AddChild outside a tree should be dropped")
	}
	b.PushScope()
	b.PopScope()
	b.SetSubroot("root")
	b.SaveNodeCount()
	b.RestoreNodeCount(true)
	if b.RemoveLastChild("root") {
		t.Error("RemoveLastChild outside a tree should report false")
	}
	if b.Fatal() || b.Building() {
		t.Error("dropped commands must not change state")
	}
}

func TestTreeShape(t *testing.T) {
	b := newTestBuilder()
	b.NewTree("root")
	for i := range 3 {
		id := fmt.Sprintf("n%d", i)
		b.AddChild(CurrentID, id, id, i%2 == 0)
		b.PushScope()
		b.SetSubroot(SubrootID)
		b.AddChild(CurrentID, "", "inner", false)
		b.PopScope()
		b.SetSubroot(id)
		checkShape(t, b.Root())
	}
	b.RemoveLastChild(SubrootID)
	b.AddComment(RootID, "", "rule", "f(x)", "")
	checkShape(t, b.Root())

	if b.Fatal() {
		t.Fatal("valid commands should not be fatal")
	}
}

func TestPopBaseScope(t *testing.T) {
	b := newTestBuilder()
	b.NewTree("root")
	b.PopScope()
	b.PopScope()
	if b.Scopes() != 1 {
		t.Errorf("Scopes() = %d, want 1", b.Scopes())
	}
	if b.Fatal() {
		t.Error("unbalanced pop is not an error")
	}
}

func TestNodeCount(t *testing.T) {
	for _, n := range []int{0, 1, 5, 50} {
		t.Run(fmt.Sprint(n), func(t *testing.T) {
			b := newTestBuilder()
			b.NewTree("root")
			for i := range n {
				b.AddChild(CurrentID, "", fmt.Sprint(i), false)
			}
			if got := b.NodeCount(); got != 1+n {
				t.Errorf("NodeCount() = %d, want %d", got, 1+n)
			}
		})
	}
}

func TestRestoreNodeCount(t *testing.T) {
	tests := []struct {
		name   string
		commit bool
		remove bool
		want   int
	}{
		{"rollback", true, true, 2},
		{"keep", false, false, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTestBuilder()
			b.NewTree("root")
			b.AddChild(CurrentID, "p", "p", true)

			b.SaveNodeCount()
			b.AddChild("p", "", "x", false)
			b.AddChild("p", "", "y", false)
			if tt.remove {
				b.RemoveLastChild("p")
				b.RemoveLastChild("p")
			}
			b.RestoreNodeCount(tt.commit)

			if got := b.NodeCount(); got != tt.want {
				t.Errorf("NodeCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRestoreWithoutSave(t *testing.T) {
	b := newTestBuilder()
	b.NewTree("root")
	b.AddChild("", "", "x", false)
	b.RestoreNodeCount(true)
	if b.NodeCount() != 2 || b.Fatal() {
		t.Errorf("NodeCount() = %d, fatal = %v", b.NodeCount(), b.Fatal())
	}
}

func TestNodeLimit(t *testing.T) {
	for _, limit := range []int{2, 3, 10} {
		t.Run(fmt.Sprint(limit), func(t *testing.T) {
			b := newTestBuilder(WithNodeLimit(limit))
			b.NewTree("root")
			added := 0
			for range limit + 5 {
				if b.AddChild(CurrentID, "", "x", false) != nil {
					added++
				}
			}
			if !b.Fatal() {
				t.Fatal("builder should be fatal after reaching the limit")
			}
			if b.NodeCount() != limit {
				t.Errorf("NodeCount() = %d, want %d", b.NodeCount(), limit)
			}
			if added != limit-1 {
				t.Errorf("%d additions succeeded, want %d", added, limit-1)
			}
			want := fmt.Sprintf("node limit of %d reached", limit)
			if last := b.Root().Child(b.Root().Len() - 1); last == nil || last.Label != want || !last.Comment {
				t.Errorf("last root child = %v, want comment %q", last, want)
			}
		})
	}
}

func TestNodeLimitSingleAddition(t *testing.T) {
	b := newTestBuilder(WithNodeLimit(2))
	b.NewTree("root")
	if b.AddChild(CurrentID, "", "first", false) == nil {
		t.Fatal("first addition should succeed")
	}
	if b.AddChild(CurrentID, "", "second", false) != nil {
		t.Error("second addition should be rejected")
	}
	if !b.Fatal() {
		t.Error("builder should be fatal")
	}
	if diff := cmp.Diff([]string{"first", "node limit of 2 reached"}, labels(b.Root())); diff != "" {
		t.Errorf("root children mismatch (-want +got):\n%s", diff)
	}
}

func TestNodeLimitUnderSubroot(t *testing.T) {
	b := newTestBuilder(WithNodeLimit(3))
	b.NewTree("root")
	b.AddChild(CurrentID, "a", "a", true)
	b.SetSubroot("a")
	b.AddChild(CurrentID, "", "leaf", false)

	msg := "node limit of 3 reached"
	if diff := cmp.Diff([]string{"a", msg}, labels(b.Root())); diff != "" {
		t.Errorf("root children mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"leaf", msg}, labels(b.Subroot())); diff != "" {
		t.Errorf("subroot children mismatch (-want +got):\n%s", diff)
	}
}

func TestNodeLimitDisabled(t *testing.T) {
	for _, limit := range []int{-1, 0, 1} {
		b := newTestBuilder(WithNodeLimit(limit))
		b.NewTree("root")
		for range 20 {
			b.AddChild("", "", "x", false)
		}
		if b.Fatal() || b.NodeCount() != 21 {
			t.Errorf("limit %d: fatal = %v, count = %d", limit, b.Fatal(), b.NodeCount())
		}
	}
}

func TestScopedSubroot(t *testing.T) {
	b := newTestBuilder()
	b.NewTree("root")
	b.PushScope()
	b.SetSubroot(SubrootID)
	x := b.AddChild(CurrentID, "x", "leaf", true)
	b.PopScope()

	if b.Subroot() != b.Root() {
		t.Errorf("subroot = %q, want root", b.Subroot().Label)
	}
	if b.Root().Child(0) != x || x.Label != "leaf" {
		t.Error("x should remain the child that was added")
	}
}

func TestPopRestoresSubroot(t *testing.T) {
	b := newTestBuilder()
	b.NewTree("root")
	a := b.AddChild(CurrentID, "a", "a", true)
	b.SetSubroot("a")

	b.PushScope()
	b.SetSubroot(RootID)
	b.AddChild(CurrentID, "x", "x", false)
	if b.Subroot() != b.Root() {
		t.Fatal("SetSubroot(root) inside the scope should move the cursor")
	}
	b.PopScope()

	if b.Subroot() != a {
		t.Errorf("subroot = %q, want a", b.Subroot().Label)
	}
}

func TestUnknownIdentifier(t *testing.T) {
	tests := []struct {
		name string
		run  func(b *Builder)
	}{
		{"subroot", func(b *Builder) { b.SetSubroot("nope") }},
		{"parent", func(b *Builder) { b.AddChild("nope", "", "x", false) }},
		{"remove", func(b *Builder) { b.RemoveLastChild("nope") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTestBuilder()
			b.NewTree("root")
			b.AddChild(CurrentID, "a", "a", true)
			tt.run(b)

			if !b.Fatal() {
				t.Fatal("unknown identifier should be fatal")
			}
			want := `fatal error: unknown identifier "nope"`
			if diff := cmp.Diff([]string{"a", want}, labels(b.Root())); diff != "" {
				t.Errorf("root children mismatch (-want +got):\n%s", diff)
			}

			count := b.NodeCount()
			if b.AddChild(CurrentID, "", "late", false) != nil || b.NodeCount() != count {
				t.Error("commands after a fatal error should be dropped")
			}
			b.PushScope()
			if b.ScopeDepth() != 0 {
				t.Error("PushScope after a fatal error should be dropped")
			}

			b.NewTree("next")
			if b.Fatal() {
				t.Error("NewTree should clear the fatal state")
			}
		})
	}
}

func TestRecoveryPolicies(t *testing.T) {
	tests := []struct {
		name      string
		recovery  Recovery
		id        string
		wantFatal bool
	}{
		{"fail-fast", RecoverFailFast, "a", true},
		{"pop-retry finds outer binding", RecoverPopRetry, "a", false},
		{"pop-retry misses", RecoverPopRetry, "nope", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTestBuilder(WithRecovery(tt.recovery))
			b.NewTree("root")
			a := b.AddChild(CurrentID, "a", "a", true)
			b.PushScope()
			b.SetSubroot(tt.id)

			if b.Fatal() != tt.wantFatal {
				t.Fatalf("Fatal() = %v, want %v", b.Fatal(), tt.wantFatal)
			}
			if !tt.wantFatal {
				if b.Subroot() != a {
					t.Errorf("subroot = %q, want a", b.Subroot().Label)
				}
				if b.ScopeDepth() != 0 {
					t.Errorf("ScopeDepth() = %d, want 0 after retry", b.ScopeDepth())
				}
			}
		})
	}
}

func TestParseRecovery(t *testing.T) {
	tests := []struct {
		in      string
		want    Recovery
		wantErr bool
	}{
		{"", RecoverFailFast, false},
		{"fail-fast", RecoverFailFast, false},
		{" Pop-Retry ", RecoverPopRetry, false},
		{"retry", RecoverFailFast, true},
	}
	for _, tt := range tests {
		got, err := ParseRecovery(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseRecovery(%q) = %v, %v", tt.in, got, err)
		}
		if err == nil && got.String() != strings.ToLower(strings.TrimSpace(tt.in)) && tt.in != "" {
			t.Errorf("String() = %q, want %q", got.String(), tt.in)
		}
	}
}

func TestToggleIgnore(t *testing.T) {
	b := newTestBuilder()
	b.NewTree("root")
	b.ToggleIgnore(true)
	if !b.Ignoring() {
		t.Fatal("Ignoring() should be true")
	}
	if b.AddChild(CurrentID, "a", "a", false) != nil {
		t.Error("AddChild should be dropped while ignoring")
	}
	b.PushScope()
	b.SetSubroot("nope")
	if b.ScopeDepth() != 0 || b.Fatal() || b.NodeCount() != 1 {
		t.Error("commands while ignoring must have no effect")
	}

	b.ToggleIgnore(false)
	if b.AddChild(CurrentID, "a", "a", false) == nil {
		t.Error("AddChild should work again after ignoring ends")
	}

	b.ToggleIgnore(true)
	tr := b.FinishTree()
	if tr.Root().Len() != 1 {
		t.Errorf("root has %d children, want 1", tr.Root().Len())
	}
}

func TestToggleIgnoreAfterFatal(t *testing.T) {
	b := newTestBuilder()
	b.NewTree("root")
	b.SetSubroot("missing")
	if !b.Fatal() {
		t.Fatal("unknown identifier should be fatal")
	}

	b.ToggleIgnore(true)
	if b.Ignoring() {
		t.Error("ToggleIgnore should be a no-op while fatal")
	}

	b.NewTree("next")
	b.ToggleIgnore(true)
	if !b.Ignoring() {
		t.Error("ToggleIgnore should work again after NewTree")
	}
}

func TestMaxDepth(t *testing.T) {
	tests := []struct {
		maxDepth int
		pushes   int
		recorded bool
	}{
		{maxDepth: -1, pushes: 3, recorded: true},
		{maxDepth: 0, pushes: 0, recorded: false},
		{maxDepth: 1, pushes: 0, recorded: false},
		{maxDepth: 2, pushes: 0, recorded: true},
		{maxDepth: 2, pushes: 1, recorded: false},
		{maxDepth: 3, pushes: 1, recorded: true},
		{maxDepth: 3, pushes: 2, recorded: false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("max=%d/pushes=%d", tt.maxDepth, tt.pushes), func(t *testing.T) {
			b := newTestBuilder(WithMaxDepth(tt.maxDepth))
			b.NewTree("root")
			for range tt.pushes {
				b.PushScope()
			}
			if b.Scopes() != tt.pushes+1 {
				t.Fatalf("Scopes() = %d, want %d", b.Scopes(), tt.pushes+1)
			}

			added := b.AddChild(CurrentID, "a", "a", false) != nil
			if added != tt.recorded {
				t.Errorf("AddChild recorded = %v with %d scopes, want %v", added, b.Scopes(), tt.recorded)
			}

			b.SetSubroot("nope")
			if tt.recorded != b.Fatal() {
				t.Errorf("SetSubroot on an unknown id: Fatal() = %v, want %v", b.Fatal(), tt.recorded)
			}
		})
	}
}

func TestMaxDepthResumesAfterPop(t *testing.T) {
	b := newTestBuilder(WithMaxDepth(2))
	b.NewTree("root")
	b.AddChild(CurrentID, "a", "a", true)

	b.PushScope()
	if b.AddChild(CurrentID, "", "deep", false) != nil {
		t.Error("additions at the maximum depth should be dropped")
	}
	b.PushScope()
	if b.Scopes() != 3 {
		t.Errorf("Scopes() = %d, want 3", b.Scopes())
	}

	b.PopScope()
	b.PopScope()
	if b.AddChild(CurrentID, "", "back", false) == nil {
		t.Error("additions should resume after popping")
	}
	if diff := cmp.Diff([]string{"a", "back"}, labels(b.Root())); diff != "" {
		t.Errorf("root children mismatch (-want +got):\n%s", diff)
	}
}

func TestMaxDepthBlocksRemoveLastChild(t *testing.T) {
	b := newTestBuilder(WithMaxDepth(2))
	b.NewTree("root")
	b.AddChild(CurrentID, "a", "a", false)

	b.PushScope()
	if b.RemoveLastChild(RootID) {
		t.Error("RemoveLastChild at the maximum depth should be a no-op")
	}
	if diff := cmp.Diff([]string{"a"}, labels(b.Root())); diff != "" {
		t.Errorf("root children mismatch (-want +got):\n%s", diff)
	}

	b.PopScope()
	if !b.RemoveLastChild(RootID) {
		t.Error("RemoveLastChild should work below the maximum depth")
	}
}

func TestAddComment(t *testing.T) {
	b := newTestBuilder()
	b.NewTree("root")
	c := b.AddComment(CurrentID, "c", "rule: beta", "f(x)", "arity=1")
	if c == nil || !c.Comment || c.Label != "rule: beta" {
		t.Fatalf("AddComment() = %+v", c)
	}
	payload := c.Child(0)
	if payload == nil || payload.Comment || payload.Label != "f(x)" || payload.Properties != "arity=1" {
		t.Fatalf("payload = %+v", payload)
	}
	if b.NodeCount() != 3 {
		t.Errorf("NodeCount() = %d, want 3", b.NodeCount())
	}

	b.SetSubroot("c")
	if b.Subroot() != c {
		t.Error("the new id should bind the comment")
	}

	only := b.AddComment(RootID, "", "note", "", "")
	if only.Len() != 0 || b.NodeCount() != 4 {
		t.Error("an empty payload adds only the comment")
	}
}

func TestAddChildWithProperties(t *testing.T) {
	b := newTestBuilder()
	b.NewTree("root")
	n := b.AddChildWithProperties(CurrentID, "", "s(0)", "sort=Nat", false)
	if n.Properties != "sort=Nat" {
		t.Errorf("Properties = %q", n.Properties)
	}
}

func TestRemoveLastChild(t *testing.T) {
	b := newTestBuilder()
	b.NewTree("root")
	if b.RemoveLastChild(RootID) {
		t.Error("removing from a leaf should report false")
	}
	b.AddChild(CurrentID, "a", "a", true)
	b.AddChild(CurrentID, "b", "b", true)
	if !b.RemoveLastChild(CurrentID) {
		t.Fatal("RemoveLastChild should report true")
	}
	if diff := cmp.Diff([]string{"a"}, labels(b.Root())); diff != "" {
		t.Errorf("root children mismatch (-want +got):\n%s", diff)
	}
}

func TestRemoveSubroot(t *testing.T) {
	b := newTestBuilder()
	b.NewTree("root")
	b.AddChild(CurrentID, "a", "a", true)
	b.SetSubroot("a")
	b.AddChild(CurrentID, "", "x", false)

	b.RemoveLastChild(RootID)
	if b.Subroot() != b.Root() {
		t.Errorf("subroot = %q, want root after its removal", b.Subroot().Label)
	}
	if b.AddChild(CurrentID, "", "y", false).Parent() != b.Root() {
		t.Error("new children should go under the root")
	}
}

func TestSubrootStaysExpanded(t *testing.T) {
	b := newTestBuilder()
	b.NewTree("root")
	a := b.AddChild(CurrentID, "a", "a", true)
	b.SetSubroot("a")
	c := b.AddChild(CurrentID, "c", "c", false)
	b.SetSubroot("c")

	if a.Compressed() || c.Compressed() {
		t.Error("the subroot and its ancestors should be expanded")
	}
	if !c.Visible() {
		t.Error("the subroot should be visible")
	}
}

type recordingHooks struct {
	observability.NoopBuilderHooks
	started  []string
	finished []int
	fatal    []string
}

func (h *recordingHooks) OnTreeStart(label string) { h.started = append(h.started, label) }
func (h *recordingHooks) OnTreeFinish(_ string, n int, _ time.Duration) {
	h.finished = append(h.finished, n)
}
func (h *recordingHooks) OnFatal(reason string, _ int) { h.fatal = append(h.fatal, reason) }

func TestBuilderHooks(t *testing.T) {
	h := &recordingHooks{}
	observability.SetBuilderHooks(h)
	defer observability.Reset()

	b := newTestBuilder()
	b.NewTree("one")
	b.AddChild("", "", "x", false)
	b.FinishTree()
	b.NewTree("two")
	b.SetSubroot("missing")
	b.FinishTree()

	if diff := cmp.Diff([]string{"one", "two"}, h.started); diff != "" {
		t.Errorf("started mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{2, 1}, h.finished); diff != "" {
		t.Errorf("finished mismatch (-want +got):\n%s", diff)
	}
	if len(h.fatal) != 1 || !strings.Contains(h.fatal[0], "missing") {
		t.Errorf("fatal = %v", h.fatal)
	}
}

func TestFinishTreeOptions(t *testing.T) {
	b := newTestBuilder(WithTreeOptions(tree.WithID("fixed")))
	b.NewTree("root")
	if id := b.FinishTree().ID(); id != "fixed" {
		t.Errorf("ID() = %q, want fixed", id)
	}
}
