// Package export serializes a positioned diagram.
//
// # Formats
//
//   - [FormatSVG]: hand-written SVG with Bézier edges, arrowheads and one
//     row per visible column. See [RenderSVG].
//   - [FormatPNG]: the same drawing rasterized with fogleman/gg at a caller
//     scale. See [RenderPNG].
//   - [FormatPDF]: the SVG converted by the external rsvg-convert tool. A
//     missing tool yields an EXPORT_UNAVAILABLE error. See [ToPDF].
//   - [FormatDOT]: Graphviz DOT source with HTML-table node labels, which
//     [RenderGraphviz] can lay out and render through go-graphviz.
//   - [FormatJSON]: the diagram data model.
//
// All formats read the diagram as-is: positions must already be resolved by
// a layout, and nothing in this package mutates the diagram.
//
// # Options
//
// Renderers share functional options ([WithPadding], [WithBackground],
// [WithEdgeLabels], [WithGrid], [WithInteraction], [WithScale]). Display
// choices that affect node contents (visible columns, data types,
// nullability, indexes) come from the diagram's own [diagram.Options].
package export
