// Package layout computes node positions for a diagram.
//
// # Overview
//
// Every algorithm operates on the node and edge slices of a [diagram.Data]
// and writes only [diagram.TableNode.Position]. No algorithm performs I/O or
// uses randomness: the same input order, edges and [Config] always produce the
// same positions.
//
// # Algorithms
//
//   - [Hierarchical]: topological layering. A table is placed one layer below
//     the deepest table it references; tables that reference nothing sit in
//     layer 0. When a cycle blocks progress, every remaining table goes into
//     the current layer and layering stops. Each layer is centered on x = 0.
//   - [Force]: Fruchterman-Reingold with linear cooling and no random seed.
//   - [Circular]: positions evenly spaced on a circle around the origin,
//     starting at the top and proceeding clockwise.
//   - [Grid]: row-major grid with ceil(sqrt(n)) columns.
//
// # Usage
//
//	data := diagram.Build(tables, fks, indexes, diagram.DefaultOptions())
//	if err := layout.Apply(data.Nodes, data.Edges, layout.Hierarchical); err != nil {
//	    return err
//	}
//
// [Cycles] reports the foreign-key cycles that trigger the hierarchical
// tie-break, and [Layers] exposes the layer assignment without moving nodes.
package layout
