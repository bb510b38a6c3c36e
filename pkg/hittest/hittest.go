// Package hittest answers spatial queries against a diagram in world space.
//
// [NodeAt] resolves the topmost node under a point and [EdgeAt] the first
// edge within a tolerance of it. Both are pure reads.
//
// Edge tolerance is measured in world units, so at low zoom levels an edge
// covers fewer screen pixels and is harder to hit.
package hittest

import (
	"github.com/matzehuels/schemagraph/pkg/diagram"
	"github.com/matzehuels/schemagraph/pkg/geom"
)

// DefaultEdgeTolerance is the edge hit distance in world units.
const DefaultEdgeTolerance = 6.0

// NodeAt returns the node whose rectangle contains p, boundary included.
// Nodes are tested in reverse order so the last drawn node wins overlaps.
func NodeAt(d *diagram.Data, p geom.Point) *diagram.TableNode {
	if d == nil {
		return nil
	}
	for i := len(d.Nodes) - 1; i >= 0; i-- {
		if d.Nodes[i].Rect().Contains(p) {
			return d.Nodes[i]
		}
	}
	return nil
}

// EdgeAt returns the first edge, in diagram order, whose straight segment
// from the source's right-center anchor to the target's left-center anchor
// lies within tolerance of p.
func EdgeAt(d *diagram.Data, p geom.Point, tolerance float64) *diagram.RelationshipEdge {
	if d == nil {
		return nil
	}
	for _, e := range d.Edges {
		start, end, ok := d.Anchors(e)
		if !ok {
			continue
		}
		if geom.DistanceToSegment(p, start, end) <= tolerance {
			return e
		}
	}
	return nil
}

// Result is the combined outcome of a hit test. Node takes precedence: when
// a node is hit, Edge is not consulted.
type Result struct {
	Node *diagram.TableNode
	Edge *diagram.RelationshipEdge
}

// Empty reports whether nothing was hit.
func (r Result) Empty() bool { return r.Node == nil && r.Edge == nil }

// At tests nodes first, then edges.
func At(d *diagram.Data, p geom.Point, tolerance float64) Result {
	if n := NodeAt(d, p); n != nil {
		return Result{Node: n}
	}
	return Result{Edge: EdgeAt(d, p, tolerance)}
}
