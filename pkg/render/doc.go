// Package render converts rendered rewrite trees between output formats.
//
// The [nodelink] subpackage turns a tree into a Graphviz diagram and renders
// it to SVG. [ToPDF] and [ToPNG] convert any SVG further using the external
// rsvg-convert tool (from librsvg):
//
//	dot := nodelink.ToDOT(t, nodelink.Options{VisibleOnly: true})
//	svg, err := nodelink.RenderSVG(dot)
//	pdf, err := render.ToPDF(svg)
//
// [nodelink]: github.com/matzehuels/rewritetree/pkg/render/nodelink
package render
