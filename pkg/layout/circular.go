package layout

import (
	"math"

	"github.com/matzehuels/schemagraph/pkg/diagram"
	"github.com/matzehuels/schemagraph/pkg/geom"
)

// Radius returns the circle radius used for n nodes.
func Radius(n int, cfg Config) float64 {
	return math.Max(float64(n)*cfg.RadiusPerNode, cfg.MinRadius)
}

// circular puts each node's position on a circle around the origin. Index 0
// is at the top; with y pointing down, increasing angles run clockwise.
func circular(nodes []*diagram.TableNode, cfg Config) {
	n := len(nodes)
	r := Radius(n, cfg)
	step := 2 * math.Pi / float64(n)
	for i, node := range nodes {
		angle := -math.Pi/2 + float64(i)*step
		node.Position = geom.Point{X: r * math.Cos(angle), Y: r * math.Sin(angle)}
	}
}
