package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/rewritetree/pkg/dispatch"
	"github.com/matzehuels/rewritetree/pkg/tree"
)

// Browser styles
var (
	browseTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	browseHelpStyle  = lipgloss.NewStyle().Foreground(colorDim)
	browsePaneStyle  = lipgloss.NewStyle().
				Border(lipgloss.NormalBorder(), true, false, false, false).
				BorderForeground(colorDim)
)

const (
	browseHeaderLines = 2
	browsePaneLines   = 5
)

// frameMsg asks the browser to redraw after the store or an animation
// changed.
type frameMsg struct{}

// waitFrame returns a command that delivers a frameMsg once frames
// receives a value.
func waitFrame(frames <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-frames
		return frameMsg{}
	}
}

// =============================================================================
// BrowseModel - Interactive tree browser
// =============================================================================

// BrowseModel is the bubbletea model of the tree browser. It reads the tree
// from the store and changes only the selection.
type BrowseModel struct {
	store  *dispatch.Store
	frames <-chan struct{}
	title  string

	Width, Height int
	ShowPane      bool

	canvas *canvas
	info   nodeInfo
}

// nodeInfo describes the selected node for the properties pane.
type nodeInfo struct {
	treeID     string
	label      string
	path       string
	properties string
	comment    bool
	children   int
	visible    int
}

// NewBrowseModel creates a browser over store. frames receives a value
// whenever the tree should be drawn again.
func NewBrowseModel(store *dispatch.Store, frames <-chan struct{}, title string) BrowseModel {
	m := BrowseModel{
		store:    store,
		frames:   frames,
		title:    title,
		Width:    80,
		Height:   24,
		ShowPane: true,
	}
	m.redraw()
	return m
}

func (m BrowseModel) Init() tea.Cmd {
	return waitFrame(m.frames)
}

func (m BrowseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case frameMsg:
		m.redraw()
		return m, waitFrame(m.frames)
	case tea.WindowSizeMsg:
		m.Width, m.Height = msg.Width, msg.Height
	case tea.MouseMsg:
		if msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft {
			m.click(msg.X, msg.Y-browseHeaderLines)
		}
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "left", "h":
			m.move(func(n *tree.Node) *tree.Node { return n.Parent() })
		case "right", "l":
			m.move(func(n *tree.Node) *tree.Node { return n.Child(0) })
		case "up", "k":
			m.move(func(n *tree.Node) *tree.Node { return sibling(n, -1) })
		case "down", "j":
			m.move(func(n *tree.Node) *tree.Node { return sibling(n, 1) })
		case "g", "home":
			m.move(func(n *tree.Node) *tree.Node {
				for n.Parent() != nil {
					n = n.Parent()
				}
				return n
			})
		case "+", "=":
			m.store.SetDepth(m.store.Depth() + 1)
		case "-", "_":
			m.store.SetDepth(m.store.Depth() - 1)
		case "p":
			m.ShowPane = !m.ShowPane
		}
	}
	m.redraw()
	return m, nil
}

// move selects the node next returns for the current selection, if any.
func (m *BrowseModel) move(next func(*tree.Node) *tree.Node) {
	var target *tree.Node
	m.store.View(func(t *tree.Tree) {
		if sel := t.Selected(); sel != nil {
			target = next(sel)
		}
	})
	if target != nil {
		m.store.Select(target, 0)
	}
}

// click selects the node drawn at canvas cell (x, y).
func (m *BrowseModel) click(x, y int) {
	if m.canvas == nil {
		return
	}
	wx, wy := m.canvas.world(x, y)
	if n := m.store.DetectMouseOver(wx, wy); n != nil {
		m.store.Select(n, 0)
	}
}

func sibling(n *tree.Node, delta int) *tree.Node {
	p := n.Parent()
	if p == nil {
		return nil
	}
	return p.Child(n.Index() + delta)
}

// canvasHeight is the number of rows left for the tree.
func (m BrowseModel) canvasHeight() int {
	h := m.Height - browseHeaderLines
	if m.ShowPane {
		h -= browsePaneLines + 1
	}
	return max(h, 1)
}

// redraw paints the current tree onto a new canvas.
func (m *BrowseModel) redraw() {
	c := newCanvas(m.Width, m.canvasHeight())
	m.store.View(func(t *tree.Tree) {
		c.draw(t)
		m.info = describe(t)
	})
	m.canvas = c
}

func describe(t *tree.Tree) nodeInfo {
	info := nodeInfo{treeID: t.ID(), visible: t.Visible()}
	if n := t.Selected(); n != nil {
		info.label = n.Label
		info.path = formatPath(n.Path())
		info.properties = n.Properties
		info.comment = n.Comment
		info.children = n.Len()
	}
	return info
}

func (m BrowseModel) View() string {
	var b strings.Builder

	b.WriteString(browseTitleStyle.Render(m.title))
	b.WriteString(StyleDim.Render(fmt.Sprintf("  %s · depth %d · %d visible", m.info.treeID, m.store.Depth(), m.info.visible)))
	b.WriteString("\n")
	b.WriteString(browseHelpStyle.Render("←/→ parent/child  ↑/↓ siblings  +/- depth  p properties  q quit"))
	b.WriteString("\n")
	if m.canvas != nil {
		b.WriteString(m.canvas.String())
	}

	if m.ShowPane {
		b.WriteString("\n")
		b.WriteString(browsePaneStyle.Width(m.Width).Render(m.pane()))
	}
	return b.String()
}

// pane renders the properties of the selected node.
func (m BrowseModel) pane() string {
	kind := "term"
	if m.info.comment {
		kind = "comment"
	}
	props := m.info.properties
	if props == "" {
		props = StyleDim.Render("no properties")
	}
	lines := []string{
		StyleValue.Render(firstLine(m.info.label)),
		StyleDim.Render(fmt.Sprintf("%s · path %s · %d children", kind, m.info.path, m.info.children)),
	}
	lines = append(lines, strings.Split(props, "\n")...)
	if len(lines) > browsePaneLines {
		lines = lines[:browsePaneLines]
	}
	return strings.Join(lines, "\n")
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " …"
	}
	return s
}
