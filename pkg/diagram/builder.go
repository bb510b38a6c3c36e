package diagram

import (
	"fmt"
	"io"
	"math"
	"slices"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/schemagraph/pkg/geom"
	"github.com/matzehuels/schemagraph/pkg/schema"
)

// Node geometry in world units.
const (
	NodeWidth       = 220.0
	HeaderHeight    = 32.0
	ColumnRowHeight = 24.0
	IndexRowHeight  = 20.0
	NodePadding     = 8.0
)

// Fallback grid used for initial placement before any layout runs.
const (
	FallbackColumnGap = 80.0
	FallbackRowHeight = 320.0
)

// NodeHeight returns the height of a node showing the given number of
// column rows and index rows.
func NodeHeight(columns, indexes int, showIndexes bool) float64 {
	h := HeaderHeight + float64(columns)*ColumnRowHeight + 2*NodePadding
	if showIndexes {
		h += float64(indexes) * IndexRowHeight
	}
	return h
}

// Builder converts schema metadata into diagram data.
type Builder struct {
	Logger *log.Logger
}

// NewBuilder creates a builder. A nil logger discards output.
func NewBuilder(logger *log.Logger) *Builder {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Builder{Logger: logger}
}

// Build is a convenience wrapper around a builder with a discarding logger.
func Build(tables []schema.Table, fks []schema.ForeignKey, indexes []schema.Index, opts Options) *Data {
	return NewBuilder(nil).Build(tables, fks, indexes, opts)
}

// Build creates one node per table, in input order, and one edge per
// foreign key whose referenced table is among tables. Foreign keys pointing
// elsewhere are dropped with a debug log. Nodes are placed on a fallback
// grid; callers are expected to run a layout next.
func (b *Builder) Build(tables []schema.Table, fks []schema.ForeignKey, indexes []schema.Index, opts Options) *Data {
	opts.Normalize()

	fksByTable := make(map[string][]schema.ForeignKey)
	for _, fk := range fks {
		fksByTable[fk.TableID()] = append(fksByTable[fk.TableID()], fk)
	}
	idxByTable := make(map[string][]schema.Index)
	for _, ix := range indexes {
		idxByTable[ix.TableID()] = append(idxByTable[ix.TableID()], ix)
	}

	schemas := make([]string, 0, len(tables))
	for _, t := range tables {
		schemas = append(schemas, t.Schema)
	}
	colors := SchemaColors(schemas)

	data := &Data{Options: opts}
	included := make(map[string]bool, len(tables))
	for _, t := range tables {
		id := t.ID()
		if included[id] {
			b.Logger.Debug("duplicate table ignored", "table", id)
			continue
		}
		included[id] = true

		node := buildNode(t, fksByTable[id], idxByTable[id], opts)
		node.Color = NeutralColor
		if opts.ColorBySchema {
			node.Color = colors[t.Schema]
		}
		data.Nodes = append(data.Nodes, node)
	}

	data.Edges = b.buildEdges(data.Nodes, fksByTable, idxByTable, included)

	PlaceGrid(data.Nodes, NodeWidth+FallbackColumnGap, FallbackRowHeight)
	return data
}

func buildNode(t schema.Table, fks []schema.ForeignKey, indexes []schema.Index, opts Options) *TableNode {
	pkCols := make(map[string]bool)
	for _, ix := range indexes {
		if ix.IsPrimary {
			for _, c := range ix.Columns {
				pkCols[c] = true
			}
		}
	}
	fkRefs := make(map[string]string)
	for _, fk := range fks {
		for i, c := range fk.Columns {
			if _, seen := fkRefs[c]; seen {
				continue
			}
			ref := ""
			if i < len(fk.RefColumns) {
				ref = fk.RefTableID() + "." + fk.RefColumns[i]
			}
			fkRefs[c] = ref
		}
	}

	node := &TableNode{
		ID:     t.ID(),
		Schema: t.Schema,
		Name:   t.Name,
	}

	for _, c := range t.Columns {
		ref, isFK := fkRefs[c.Name]
		col := Column{
			Name:         c.Name,
			DataType:     c.DataType,
			Nullable:     c.Nullable,
			IsPrimaryKey: pkCols[c.Name],
			IsForeignKey: isFK,
			FKReference:  ref,
		}
		switch opts.ColumnDisplay {
		case ColumnsNone:
			continue
		case ColumnsPKFK:
			if !col.IsPrimaryKey && !col.IsForeignKey {
				continue
			}
		}
		node.Columns = append(node.Columns, col)
	}

	for _, ix := range indexes {
		node.Indexes = append(node.Indexes, Index{
			Name:      ix.Name,
			Columns:   slices.Clone(ix.Columns),
			IsUnique:  ix.IsUnique,
			IsPrimary: ix.IsPrimary,
		})
	}

	node.Size = geom.Size{
		Width:  NodeWidth,
		Height: NodeHeight(len(node.Columns), len(node.Indexes), opts.ShowIndexes),
	}
	return node
}

func (b *Builder) buildEdges(nodes []*TableNode, fksByTable map[string][]schema.ForeignKey,
	idxByTable map[string][]schema.Index, included map[string]bool) []*RelationshipEdge {

	type pending struct {
		edge *RelationshipEdge
		name string
	}
	var edges []pending
	nameCount := make(map[string]int)

	for _, n := range nodes {
		for _, fk := range fksByTable[n.ID] {
			target := fk.RefTableID()
			if !included[target] {
				b.Logger.Debug("dropping foreign key to excluded table",
					"fk", fk.Name, "from", n.ID, "to", target)
				continue
			}
			if len(fk.Columns) == 0 || len(fk.RefColumns) == 0 {
				b.Logger.Debug("dropping foreign key without columns", "fk", fk.Name, "from", n.ID)
				continue
			}

			typ := OneToMany
			if coveredByUniqueIndex(fk.Columns, idxByTable[n.ID]) {
				typ = OneToOne
			}

			e := &RelationshipEdge{
				SourceNode:   n.ID,
				SourceColumn: fk.Columns[0],
				TargetNode:   target,
				TargetColumn: fk.RefColumns[0],
				Label:        strings.Join(fk.Columns, ", "),
				Type:         typ,
			}
			edges = append(edges, pending{edge: e, name: fk.Name})
			if fk.Name != "" {
				nameCount[fk.Name]++
			}
		}
	}

	out := make([]*RelationshipEdge, 0, len(edges))
	used := make(map[string]int)
	for _, p := range edges {
		id := p.name
		if id == "" || nameCount[id] > 1 {
			id = fmt.Sprintf("%s.%s->%s.%s",
				p.edge.SourceNode, p.edge.SourceColumn, p.edge.TargetNode, p.edge.TargetColumn)
		}
		used[id]++
		if used[id] > 1 {
			id = fmt.Sprintf("%s#%d", id, used[id])
		}
		p.edge.ID = id
		out = append(out, p.edge)
	}
	return out
}

// coveredByUniqueIndex reports whether cols equals, as a set, the columns of
// some unique or primary index.
func coveredByUniqueIndex(cols []string, indexes []schema.Index) bool {
	want := slices.Clone(cols)
	slices.Sort(want)
	want = slices.Compact(want)

	for _, ix := range indexes {
		if !ix.IsUnique && !ix.IsPrimary {
			continue
		}
		have := slices.Clone(ix.Columns)
		slices.Sort(have)
		have = slices.Compact(have)
		if slices.Equal(want, have) {
			return true
		}
	}
	return false
}

// PlaceGrid positions nodes row by row on a grid with ceil(sqrt(n)) columns
// and fixed cell dimensions.
func PlaceGrid(nodes []*TableNode, cellWidth, cellHeight float64) {
	if len(nodes) == 0 {
		return
	}
	cols := GridColumns(len(nodes))
	for i, n := range nodes {
		n.Position = geom.Point{
			X: float64(i%cols) * cellWidth,
			Y: float64(i/cols) * cellHeight,
		}
	}
}

// GridColumns returns ceil(sqrt(n)), at least 1.
func GridColumns(n int) int {
	return max(1, int(math.Ceil(math.Sqrt(float64(n)))))
}
