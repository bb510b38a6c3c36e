package layout

import (
	"github.com/matzehuels/schemagraph/pkg/diagram"
	"github.com/matzehuels/schemagraph/pkg/geom"
)

// grid places nodes row by row with ceil(sqrt(n)) columns. Columns are
// NodeWidth+GridColumnGap apart; each row is as tall as its tallest node
// plus GridRowGap.
func grid(nodes []*diagram.TableNode, cfg Config) {
	cols := diagram.GridColumns(len(nodes))
	cellW := diagram.NodeWidth + cfg.GridColumnGap

	y := 0.0
	for start := 0; start < len(nodes); start += cols {
		row := nodes[start:min(start+cols, len(nodes))]
		tallest := 0.0
		for c, n := range row {
			n.Position = geom.Point{X: float64(c) * cellW, Y: y}
			tallest = max(tallest, n.Size.Height)
		}
		y += tallest + cfg.GridRowGap
	}
}
