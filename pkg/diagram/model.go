package diagram

import (
	"github.com/matzehuels/schemagraph/pkg/geom"
)

// RelationshipType classifies the cardinality of an edge.
type RelationshipType string

const (
	OneToOne   RelationshipType = "one-to-one"
	OneToMany  RelationshipType = "one-to-many"
	ManyToMany RelationshipType = "many-to-many"
)

// Column is a table column as shown in a node.
type Column struct {
	Name         string `json:"name"`
	DataType     string `json:"data_type"`
	Nullable     bool   `json:"nullable"`
	IsPrimaryKey bool   `json:"is_primary_key,omitempty"`
	IsForeignKey bool   `json:"is_foreign_key,omitempty"`
	FKReference  string `json:"fk_reference,omitempty"` // schema.table.column
}

// Index is a table index as shown in a node.
type Index struct {
	Name      string   `json:"name"`
	Columns   []string `json:"columns"`
	IsUnique  bool     `json:"is_unique,omitempty"`
	IsPrimary bool     `json:"is_primary,omitempty"`
}

// TableNode is the visual representation of one table.
type TableNode struct {
	ID       string     `json:"id"` // schema.table
	Schema   string     `json:"schema"`
	Name     string     `json:"name"`
	Columns  []Column   `json:"columns"`
	Indexes  []Index    `json:"indexes,omitempty"`
	Position geom.Point `json:"position"`
	Size     geom.Size  `json:"size"`
	Color    Color      `json:"color"`
	Selected bool       `json:"selected,omitempty"`
	Hovered  bool       `json:"hovered,omitempty"`
}

// Rect returns the node's world-space rectangle.
func (n *TableNode) Rect() geom.Rect {
	return geom.RectOf(n.Position, n.Size)
}

// Center returns the center of the node's rectangle.
func (n *TableNode) Center() geom.Point {
	return n.Rect().Center()
}

// RelationshipEdge is the visual representation of one foreign key, drawn
// from the referencing (source) table to the referenced (target) table.
type RelationshipEdge struct {
	ID           string           `json:"id"`
	SourceNode   string           `json:"source_node"`
	SourceColumn string           `json:"source_column"`
	TargetNode   string           `json:"target_node"`
	TargetColumn string           `json:"target_column"`
	Label        string           `json:"label"`
	Type         RelationshipType `json:"type"`
	Selected     bool             `json:"selected,omitempty"`
	Hovered      bool             `json:"hovered,omitempty"`
}

// Data is a complete diagram: nodes, edges and the options they were built with.
type Data struct {
	Nodes   []*TableNode        `json:"nodes"`
	Edges   []*RelationshipEdge `json:"edges"`
	Options Options             `json:"options"`
}

// Node returns the node with the given id, or nil.
func (d *Data) Node(id string) *TableNode {
	for _, n := range d.Nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// Edge returns the edge with the given id, or nil.
func (d *Data) Edge(id string) *RelationshipEdge {
	for _, e := range d.Edges {
		if e.ID == id {
			return e
		}
	}
	return nil
}

// Anchors returns the endpoints of e: the right-center of the source node
// and the left-center of the target node. ok is false when either node is
// missing.
func (d *Data) Anchors(e *RelationshipEdge) (start, end geom.Point, ok bool) {
	src, dst := d.Node(e.SourceNode), d.Node(e.TargetNode)
	if src == nil || dst == nil {
		return geom.Point{}, geom.Point{}, false
	}
	return src.Rect().RightCenter(), dst.Rect().LeftCenter(), true
}

// Bounds returns the union of all node rectangles, or the zero Rect for an
// empty diagram.
func (d *Data) Bounds() geom.Rect {
	rects := make([]geom.Rect, len(d.Nodes))
	for i, n := range d.Nodes {
		rects[i] = n.Rect()
	}
	return geom.Bounds(rects...)
}

// Positions returns a copy of every node position keyed by node id.
func (d *Data) Positions() map[string]geom.Point {
	out := make(map[string]geom.Point, len(d.Nodes))
	for _, n := range d.Nodes {
		out[n.ID] = n.Position
	}
	return out
}

// ApplyPositions moves nodes to the given positions. Ids with no matching
// node are ignored. It returns the number of nodes moved.
func (d *Data) ApplyPositions(pos map[string]geom.Point) int {
	moved := 0
	for _, n := range d.Nodes {
		if p, ok := pos[n.ID]; ok && p != n.Position {
			n.Position = p
			moved++
		}
	}
	return moved
}

// ClearSelection deselects every node and edge. It reports whether anything
// was selected.
func (d *Data) ClearSelection() bool {
	changed := false
	for _, n := range d.Nodes {
		changed = changed || n.Selected
		n.Selected = false
	}
	for _, e := range d.Edges {
		changed = changed || e.Selected
		e.Selected = false
	}
	return changed
}

// SelectedNodes returns the selected nodes in diagram order.
func (d *Data) SelectedNodes() []*TableNode {
	var out []*TableNode
	for _, n := range d.Nodes {
		if n.Selected {
			out = append(out, n)
		}
	}
	return out
}

// SelectedEdges returns the selected edges in diagram order.
func (d *Data) SelectedEdges() []*RelationshipEdge {
	var out []*RelationshipEdge
	for _, e := range d.Edges {
		if e.Selected {
			out = append(out, e)
		}
	}
	return out
}

// HoveredNode returns the hovered node, or nil.
func (d *Data) HoveredNode() *TableNode {
	for _, n := range d.Nodes {
		if n.Hovered {
			return n
		}
	}
	return nil
}

// HoveredEdge returns the hovered edge, or nil.
func (d *Data) HoveredEdge() *RelationshipEdge {
	for _, e := range d.Edges {
		if e.Hovered {
			return e
		}
	}
	return nil
}

// Neighbors returns the ids of nodes connected to id by any edge.
func (d *Data) Neighbors(id string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range d.Edges {
		var other string
		switch id {
		case e.SourceNode:
			other = e.TargetNode
		case e.TargetNode:
			other = e.SourceNode
		default:
			continue
		}
		if other != id && !seen[other] {
			seen[other] = true
			out = append(out, other)
		}
	}
	return out
}
