package export

import (
	"strings"

	"github.com/matzehuels/schemagraph/pkg/diagram"
)

// Glyphs prefixed to key columns.
type glyphs struct{ pk, fk string }

var (
	vectorGlyphs = glyphs{pk: "🔑", fk: "🔗"}
	rasterGlyphs = glyphs{pk: "PK", fk: "FK"}
)

type rowKind int

const (
	columnRow rowKind = iota
	indexRow
)

// row is one text line inside a node body.
type row struct {
	kind   rowKind
	column string // source column name, empty for index rows
	left   string
	right  string
	top    float64 // world y of the row's top edge
	height float64
	key    bool // primary or foreign key column
}

// center returns the row's vertical midpoint.
func (r row) center() float64 { return r.top + r.height/2 }

// nodeRows lays out the visible text rows of n under the diagram options.
func nodeRows(n *diagram.TableNode, opts diagram.Options, g glyphs) []row {
	y := n.Position.Y + diagram.HeaderHeight + diagram.NodePadding
	rows := make([]row, 0, len(n.Columns)+len(n.Indexes))

	for _, c := range n.Columns {
		var prefix []string
		if c.IsPrimaryKey {
			prefix = append(prefix, g.pk)
		}
		if c.IsForeignKey {
			prefix = append(prefix, g.fk)
		}
		left := c.Name
		if len(prefix) > 0 {
			left = strings.Join(prefix, "") + " " + c.Name
		}

		right := ""
		nullable := opts.ShowNullable && c.Nullable
		switch {
		case opts.ShowDataTypes:
			right = c.DataType
			if nullable {
				right += "?"
			}
		case nullable:
			left += "?"
		}

		rows = append(rows, row{
			kind:   columnRow,
			column: c.Name,
			left:   left,
			right:  right,
			top:    y,
			height: diagram.ColumnRowHeight,
			key:    c.IsPrimaryKey || c.IsForeignKey,
		})
		y += diagram.ColumnRowHeight
	}

	if !opts.ShowIndexes {
		return rows
	}
	for _, ix := range n.Indexes {
		right := ""
		switch {
		case ix.IsPrimary:
			right = "primary"
		case ix.IsUnique:
			right = "unique"
		}
		rows = append(rows, row{
			kind:   indexRow,
			left:   ix.Name + " (" + strings.Join(ix.Columns, ", ") + ")",
			right:  right,
			top:    y,
			height: diagram.IndexRowHeight,
		})
		y += diagram.IndexRowHeight
	}
	return rows
}

// title returns the header text of a node.
func title(n *diagram.TableNode) string {
	if n.Schema == "" {
		return n.Name
	}
	return n.Schema + "." + n.Name
}
