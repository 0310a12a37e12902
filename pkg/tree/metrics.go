package tree

import "github.com/charmbracelet/lipgloss"

// Metrics measures node boxes for layout. Implementations are supplied by
// the rendering back end, which owns fonts and styling.
type Metrics interface {
	// Measure returns the width and height of the box drawn for n.
	Measure(n *Node) (w, h float64)
	// LineHeight returns the height of a single line of label text.
	LineHeight() float64
}

// CellMetrics measures labels in terminal cells: one cell per column of
// display width and one per line of text.
type CellMetrics struct {
	// Padding is added to the measured width on each side.
	Padding float64
}

// Measure implements [Metrics].
func (m CellMetrics) Measure(n *Node) (w, h float64) {
	return float64(lipgloss.Width(n.Label)) + 2*m.Padding, float64(lipgloss.Height(n.Label))
}

// LineHeight implements [Metrics].
func (CellMetrics) LineHeight() float64 { return 1 }

var _ Metrics = CellMetrics{}
