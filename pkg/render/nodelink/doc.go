// Package nodelink renders rewrite trees as node-link diagrams.
//
// Trees are converted to Graphviz DOT with [ToDOT] and rendered in process
// with [RenderSVG], using [github.com/goccy/go-graphviz]:
//
//	dot := nodelink.ToDOT(t, nodelink.Options{VisibleOnly: true})
//	svg, err := nodelink.RenderSVG(dot)
//
// The diagram runs left to right like the interactive layout. Node IDs are
// the preorder IDs of package graph, so a diagram can be matched against a
// saved tree. PDF and PNG output via [RenderPDF] and [RenderPNG] requires
// librsvg (rsvg-convert).
package nodelink
