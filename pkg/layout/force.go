package layout

import (
	"math"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/schemagraph/pkg/diagram"
	"github.com/matzehuels/schemagraph/pkg/geom"
)

// minDistance floors pairwise distances so forces stay finite.
const minDistance = 1.0

// force runs a Fruchterman-Reingold simulation on node centers, starting
// from the current positions. Iteration order over nodes and edges is the
// slice order, so identical input yields bit-identical output.
func force(nodes []*diagram.TableNode, edges []*diagram.RelationshipEdge, cfg Config, _ *log.Logger) {
	if cfg.Iterations <= 0 {
		return
	}
	_, pairs := links(nodes, edges)

	centers := make([]geom.Point, len(nodes))
	for i, n := range nodes {
		centers[i] = n.Center()
	}

	k := cfg.IdealLength
	k2 := k * k
	disp := make([]geom.Point, len(nodes))

	for iter := 0; iter < cfg.Iterations; iter++ {
		clear(disp)

		for i := 0; i < len(centers); i++ {
			for j := i + 1; j < len(centers); j++ {
				delta := centers[i].Sub(centers[j])
				d := delta.Len()
				var dir geom.Point
				if d == 0 {
					dir = geom.Point{X: 1}
				} else {
					dir = delta.Scale(1 / d)
				}
				d = math.Max(d, minDistance)
				push := dir.Scale(k2 / d)
				disp[i] = disp[i].Add(push)
				disp[j] = disp[j].Sub(push)
			}
		}

		for _, p := range pairs {
			s, t := p[0], p[1]
			delta := centers[s].Sub(centers[t])
			d := delta.Len()
			if d == 0 {
				continue
			}
			pull := delta.Scale(1 / d).Scale(d * d / k)
			disp[s] = disp[s].Sub(pull)
			disp[t] = disp[t].Add(pull)
		}

		temp := cfg.Temperature * (1 - float64(iter)/float64(cfg.Iterations))
		for i := range centers {
			l := disp[i].Len()
			if l == 0 {
				continue
			}
			step := math.Min(l, temp)
			centers[i] = centers[i].Add(disp[i].Scale(step / l))
		}
	}

	for i, n := range nodes {
		n.Position = geom.Point{
			X: centers[i].X - n.Size.Width/2,
			Y: centers[i].Y - n.Size.Height/2,
		}
	}
}
