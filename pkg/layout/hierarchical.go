package layout

import (
	"github.com/charmbracelet/log"

	"github.com/matzehuels/schemagraph/pkg/diagram"
	"github.com/matzehuels/schemagraph/pkg/geom"
)

// Layers returns the hierarchical layer of every node, keyed by node id.
//
// Edges point from the referencing table to the referenced table. Layering
// is Kahn-style: each round collects, in input order, every unlayered node
// whose referenced tables are all layered, and gives them the current layer.
// For an acyclic edge set every edge therefore satisfies
// layer(target) < layer(source).
//
// When a round finds no candidate while nodes remain (a cycle), all remaining
// nodes are assigned to the current layer and layering stops. Self-loops are
// ignored.
func Layers(nodes []*diagram.TableNode, edges []*diagram.RelationshipEdge) map[string]int {
	layers, _ := assignLayers(nodes, edges)
	out := make(map[string]int, len(nodes))
	for i, n := range nodes {
		out[n.ID] = layers[i]
	}
	return out
}

// assignLayers returns the layer of each node by index and the number of
// nodes placed by the cycle tie-break.
func assignLayers(nodes []*diagram.TableNode, edges []*diagram.RelationshipEdge) ([]int, int) {
	_, pairs := links(nodes, edges)

	deps := make([][]int, len(nodes))
	for _, p := range pairs {
		deps[p[0]] = append(deps[p[0]], p[1])
	}

	layers := make([]int, len(nodes))
	layered := make([]bool, len(nodes))
	remaining := len(nodes)

	for layer := 0; remaining > 0; layer++ {
		var ready []int
		for i := range nodes {
			if layered[i] {
				continue
			}
			ok := true
			for _, d := range deps[i] {
				if !layered[d] {
					ok = false
					break
				}
			}
			if ok {
				ready = append(ready, i)
			}
		}

		if len(ready) == 0 {
			stuck := remaining
			for i := range nodes {
				if !layered[i] {
					layers[i] = layer
					layered[i] = true
				}
			}
			return layers, stuck
		}

		for _, i := range ready {
			layers[i] = layer
			layered[i] = true
		}
		remaining -= len(ready)
	}
	return layers, 0
}

func hierarchical(nodes []*diagram.TableNode, edges []*diagram.RelationshipEdge, cfg Config, logger *log.Logger) {
	layers, stuck := assignLayers(nodes, edges)
	if stuck > 0 {
		logger.Warn("foreign-key cycle: remaining tables share one layer", "tables", stuck)
	}

	byLayer := make(map[int][]*diagram.TableNode)
	for i, n := range nodes {
		byLayer[layers[i]] = append(byLayer[layers[i]], n)
	}

	for layer, members := range byLayer {
		offset := float64(len(members)-1) / 2
		for i, n := range members {
			center := (float64(i) - offset) * cfg.HorizontalSpacing
			n.Position = geom.Point{
				X: center - n.Size.Width/2,
				Y: float64(layer) * cfg.LayerHeight,
			}
		}
	}
}
