package hittest

import (
	"testing"

	"github.com/matzehuels/schemagraph/pkg/diagram"
	"github.com/matzehuels/schemagraph/pkg/geom"
)

func fixture() *diagram.Data {
	return &diagram.Data{
		Nodes: []*diagram.TableNode{
			{ID: "a", Position: geom.Point{X: 0, Y: 0}, Size: geom.Size{Width: 100, Height: 100}},
			{ID: "b", Position: geom.Point{X: 50, Y: 50}, Size: geom.Size{Width: 100, Height: 100}},
			{ID: "c", Position: geom.Point{X: 400, Y: 0}, Size: geom.Size{Width: 100, Height: 100}},
		},
		Edges: []*diagram.RelationshipEdge{
			// a right-center (100,50) -> c left-center (400,50)
			{ID: "a-c", SourceNode: "a", TargetNode: "c"},
			{ID: "a-c-dup", SourceNode: "a", TargetNode: "c"},
			{ID: "ghost", SourceNode: "a", TargetNode: "missing"},
		},
	}
}

func TestNodeAt(t *testing.T) {
	d := fixture()
	tests := []struct {
		p    geom.Point
		want string
	}{
		{geom.Point{X: 10, Y: 10}, "a"},
		{geom.Point{X: 75, Y: 75}, "b"}, // overlap: last node wins
		{geom.Point{X: 0, Y: 0}, "a"},   // boundary inclusive
		{geom.Point{X: 150, Y: 150}, "b"},
		{geom.Point{X: 500, Y: 100}, "c"},
		{geom.Point{X: 300, Y: 300}, ""},
		{geom.Point{X: 500.01, Y: 50}, ""},
	}
	for _, tt := range tests {
		got := NodeAt(d, tt.p)
		id := ""
		if got != nil {
			id = got.ID
		}
		if id != tt.want {
			t.Errorf("NodeAt(%v) = %q, want %q", tt.p, id, tt.want)
		}
	}
}

func TestNodeAtContainment(t *testing.T) {
	d := fixture()
	for x := -10.0; x <= 510; x += 10 {
		for y := -10.0; y <= 160; y += 10 {
			p := geom.Point{X: x, Y: y}
			inside := false
			for _, n := range d.Nodes {
				r := n.Rect()
				if x >= r.Min.X && x <= r.Max().X && y >= r.Min.Y && y <= r.Max().Y {
					inside = true
				}
			}
			if got := NodeAt(d, p) != nil; got != inside {
				t.Errorf("NodeAt(%v) hit = %v, want %v", p, got, inside)
			}
		}
	}
}

func TestEdgeAt(t *testing.T) {
	d := fixture()
	tests := []struct {
		name string
		p    geom.Point
		tol  float64
		want string
	}{
		{"on segment", geom.Point{X: 250, Y: 50}, DefaultEdgeTolerance, "a-c"},
		{"within tolerance", geom.Point{X: 250, Y: 56}, DefaultEdgeTolerance, "a-c"},
		{"outside tolerance", geom.Point{X: 250, Y: 56.5}, DefaultEdgeTolerance, ""},
		{"beyond end clamps", geom.Point{X: 404, Y: 50}, DefaultEdgeTolerance, "a-c"},
		{"far beyond end", geom.Point{X: 420, Y: 50}, DefaultEdgeTolerance, ""},
		{"wide tolerance", geom.Point{X: 250, Y: 90}, 50, "a-c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EdgeAt(d, tt.p, tt.tol)
			id := ""
			if got != nil {
				id = got.ID
			}
			if id != tt.want {
				t.Errorf("EdgeAt(%v, %v) = %q, want %q", tt.p, tt.tol, id, tt.want)
			}
		})
	}
}

func TestAt(t *testing.T) {
	d := fixture()
	if r := At(d, geom.Point{X: 99, Y: 50}, 10); r.Node == nil || r.Node.ID != "b" || r.Edge != nil {
		t.Errorf("At(node) = %+v, want node b only", r)
	}
	if r := At(d, geom.Point{X: 300, Y: 52}, DefaultEdgeTolerance); r.Edge == nil || r.Edge.ID != "a-c" {
		t.Errorf("At(edge) = %+v, want edge a-c", r)
	}
	if r := At(d, geom.Point{X: 300, Y: 300}, DefaultEdgeTolerance); !r.Empty() {
		t.Errorf("At(empty) = %+v", r)
	}
	if NodeAt(nil, geom.Point{}) != nil || EdgeAt(nil, geom.Point{}, 1) != nil {
		t.Error("nil data should hit nothing")
	}
}
