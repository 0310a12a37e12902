package cli

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/rewritetree/pkg/tree"
)

// cellKind selects the style of a canvas cell.
type cellKind uint8

const (
	cellBlank cellKind = iota
	cellEdge
	cellTerm
	cellComment
	cellStub
	cellSelected
)

// Canvas styles
var (
	canvasStyles = map[cellKind]lipgloss.Style{
		cellBlank:    lipgloss.NewStyle(),
		cellEdge:     lipgloss.NewStyle().Foreground(colorDim),
		cellTerm:     lipgloss.NewStyle().Foreground(colorWhite),
		cellComment:  lipgloss.NewStyle().Foreground(colorGray).Italic(true),
		cellStub:     lipgloss.NewStyle().Foreground(colorCyan),
		cellSelected: lipgloss.NewStyle().Bold(true).Reverse(true).Foreground(colorCyan),
	}
)

// canvas is a grid of terminal cells showing part of a tree layout. Cell
// (0, 0) shows the world point (originX, originY).
type canvas struct {
	width, height    int
	runes            [][]rune
	kinds            [][]cellKind
	originX, originY float64
}

func newCanvas(width, height int) *canvas {
	c := &canvas{width: max(width, 1), height: max(height, 1)}
	c.runes = make([][]rune, c.height)
	c.kinds = make([][]cellKind, c.height)
	for y := range c.height {
		c.runes[y] = []rune(strings.Repeat(" ", c.width))
		c.kinds[y] = make([]cellKind, c.width)
	}
	return c
}

func (c *canvas) set(x, y int, r rune, k cellKind) {
	if x < 0 || y < 0 || x >= c.width || y >= c.height {
		return
	}
	c.runes[y][x] = r
	c.kinds[y][x] = k
}

func (c *canvas) text(x, y int, s string, k cellKind) {
	for _, r := range s {
		c.set(x, y, r, k)
		x++
	}
}

// world returns the world point shown at cell (x, y).
func (c *canvas) world(x, y int) (float64, float64) {
	return c.originX + float64(x) + 0.5, c.originY + float64(y)
}

// draw paints the visible part of t, scrolled so the selected node is in
// view. Children slide out of their parents while expansions animate.
func (c *canvas) draw(t *tree.Tree) {
	focus := t.Selected()
	if focus == nil {
		focus = t.Root()
	}
	fx, fy := focus.WorldPosition()
	fw, _ := focus.Size()
	c.originY = math.Floor(fy) - float64(c.height/2)
	if right := fx + fw + 2; right > float64(c.width) {
		c.originX = math.Floor(right - float64(c.width)*2/3)
	}

	_, rootY := t.Root().WorldPosition()
	c.drawNode(t.Root(), rootY)
}

// drawNode paints n with its vertical center at y and recurses into its
// children.
func (c *canvas) drawNode(n *tree.Node, y float64) {
	x, wy := n.WorldPosition()
	w, h := n.Size()
	col := int(x - c.originX)
	row := c.row(y, h)

	kind := cellTerm
	switch {
	case n.Selected():
		kind = cellSelected
	case n.Compressed() && n.Len() > 0:
		kind = cellStub
	case n.Comment:
		kind = cellComment
	}
	for i, line := range strings.Split(n.Label, "\n") {
		c.text(col, row+i, line, kind)
	}
	if n.Compressed() {
		if n.Len() > 0 {
			c.set(col+int(w), c.row(y, 1), '…', cellStub)
		}
		return
	}

	gap := col + int(w)
	py := c.row(y, 1)
	for i, child := range n.Children() {
		cx, cy := child.WorldPosition()
		childY := y + (cy-wy)*n.Expansion()
		crow := c.row(childY, 1)
		if end := int(cx - c.originX); end > gap {
			c.connect(gap, end, py, crow, i == 0, i == n.Len()-1)
		}
		c.drawNode(child, childY)
	}
	if py >= 0 && py < c.height && gap >= 0 && gap < c.width && c.runes[py][gap] == '│' {
		c.set(gap, py, '┤', cellEdge)
	}
}

// connect draws the edge from a parent at row py to a child at row cy in
// the columns [from, to).
func (c *canvas) connect(from, to, py, cy int, first, last bool) {
	lo, hi := min(py, cy), max(py, cy)
	for y := lo; y <= hi; y++ {
		if c.kinds[clamp(y, c.height)][clamp(from, c.width)] != cellEdge {
			c.set(from, y, '│', cellEdge)
		}
	}
	corner := '├'
	switch {
	case cy == py:
		corner = '─'
	case cy < py && first:
		corner = '╭'
	case cy > py && last:
		corner = '╰'
	}
	c.set(from, cy, corner, cellEdge)
	for x := from + 1; x < to; x++ {
		c.set(x, cy, '─', cellEdge)
	}
}

// row returns the canvas row of the top line of a box of height h centered
// at world y.
func (c *canvas) row(y, h float64) int {
	return int(math.Floor(y - h/2 + 0.5 - c.originY))
}

// String renders the canvas with styles applied. Trailing blanks are
// trimmed from every row.
func (c *canvas) String() string {
	var b strings.Builder
	for y := range c.height {
		runes, kinds := c.runes[y], c.kinds[y]
		end := len(runes)
		for end > 0 && kinds[end-1] == cellBlank {
			end--
		}
		for x := 0; x < end; {
			k := kinds[x]
			run := x
			for run < end && kinds[run] == k {
				run++
			}
			b.WriteString(canvasStyles[k].Render(string(runes[x:run])))
			x = run
		}
		if y < c.height-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// plain renders the canvas without styles.
func (c *canvas) plain() string {
	lines := make([]string, c.height)
	for y := range c.height {
		lines[y] = strings.TrimRight(string(c.runes[y]), " ")
	}
	return strings.Join(lines, "\n")
}

func clamp(v, n int) int {
	return min(max(v, 0), n-1)
}
