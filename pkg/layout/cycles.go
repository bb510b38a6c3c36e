package layout

import (
	"errors"
	"slices"

	"github.com/dominikbraun/graph"

	"github.com/matzehuels/schemagraph/pkg/diagram"
)

// Cycles returns the foreign-key cycles among nodes: every strongly
// connected component with more than one table, plus every table that
// references itself. Members are listed in node order and cycles are
// ordered by their first member.
func Cycles(nodes []*diagram.TableNode, edges []*diagram.RelationshipEdge) ([][]string, error) {
	order := make(map[string]int, len(nodes))
	g := graph.New(graph.StringHash, graph.Directed())
	for i, n := range nodes {
		if _, dup := order[n.ID]; dup {
			continue
		}
		order[n.ID] = i
		if err := g.AddVertex(n.ID); err != nil {
			return nil, err
		}
	}

	selfLoops := make(map[string]bool)
	for _, e := range edges {
		_, okS := order[e.SourceNode]
		_, okT := order[e.TargetNode]
		if !okS || !okT {
			continue
		}
		if e.SourceNode == e.TargetNode {
			selfLoops[e.SourceNode] = true
			continue
		}
		// Parallel foreign keys between the same tables are one graph edge.
		if err := g.AddEdge(e.SourceNode, e.TargetNode); err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
			return nil, err
		}
	}

	sccs, err := graph.StronglyConnectedComponents(g)
	if err != nil {
		return nil, err
	}

	byOrder := func(a, b string) int { return order[a] - order[b] }
	var cycles [][]string
	for _, scc := range sccs {
		switch {
		case len(scc) > 1:
		case len(scc) == 1 && selfLoops[scc[0]]:
		default:
			continue
		}
		members := slices.Clone(scc)
		slices.SortFunc(members, byOrder)
		cycles = append(cycles, members)
	}
	slices.SortFunc(cycles, func(a, b []string) int { return byOrder(a[0], b[0]) })
	return cycles, nil
}
