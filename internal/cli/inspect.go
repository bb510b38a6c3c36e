package cli

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/schemagraph/pkg/diagram"
	"github.com/matzehuels/schemagraph/pkg/layout"
	"github.com/matzehuels/schemagraph/pkg/pipeline"
)

// inspectCommand creates the inspect command, which prints the fetched
// metadata without drawing anything.
func (c *CLI) inspectCommand() *cobra.Command {
	var schemas, include, exclude []string

	cmd := &cobra.Command{
		Use:   "inspect [connection|catalog-file]",
		Short: "Print tables, relationships and foreign-key cycles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runInspect(cmd.Context(), args[0], schemas, include, exclude)
		},
	}

	cmd.Flags().StringSliceVarP(&schemas, "schema", "s", nil, "schema to include (repeatable)")
	cmd.Flags().StringSliceVar(&include, "include", nil, "only tables matching these globs")
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "skip tables matching these globs")

	return cmd
}

func (c *CLI) runInspect(ctx context.Context, arg string, schemas, include, exclude []string) error {
	ws, err := c.open(arg)
	if err != nil {
		return err
	}
	defer ws.Close()

	if len(schemas) == 0 {
		schemas = defaultSchemas(ws.conn)
	}
	display := diagram.DefaultOptions()
	display.ColumnDisplay = diagram.ColumnsAll

	spinner := newSpinner(ctx, os.Stderr, "Fetching metadata")
	spinner.Start()
	d, err := ws.runner.Generate(ctx, pipeline.Options{
		ConnectionID: ws.conn.ID,
		Schemas:      schemas,
		Include:      include,
		Exclude:      exclude,
		Display:      &display,
		Logger:       c.Logger,
		Progress:     spinner.progress,
	})
	spinner.Stop()
	if err != nil {
		return err
	}

	cycles, err := layout.Cycles(d.Nodes, d.Edges)
	if err != nil {
		return err
	}

	fmt.Println(StyleTitle.Render(ws.conn.ID) + " " + StyleDim.Render(strings.Join(schemas, ", ")))
	printNewline()
	fmt.Println(tablesTable(d))
	printNewline()
	printStats(len(d.Nodes), len(d.Edges), false)
	printNewline()

	if len(cycles) == 0 {
		printSuccess("No foreign-key cycles")
		return nil
	}
	printWarning("%d foreign-key cycle(s)", len(cycles))
	for _, cycle := range cycles {
		printDetail("%s", strings.Join(cycle, " → "))
	}
	return nil
}

// tablesTable renders one row per table with its hierarchical layer and
// outgoing references.
func tablesTable(d *diagram.Data) string {
	layers := layout.Layers(d.Nodes, d.Edges)
	refs := make(map[string][]string)
	for _, e := range d.Edges {
		refs[e.SourceNode] = append(refs[e.SourceNode], e.TargetNode)
	}

	nodes := make([]*diagram.TableNode, len(d.Nodes))
	copy(nodes, d.Nodes)
	sort.SliceStable(nodes, func(i, j int) bool {
		if layers[nodes[i].ID] != layers[nodes[j].ID] {
			return layers[nodes[i].ID] < layers[nodes[j].ID]
		}
		return nodes[i].ID < nodes[j].ID
	})

	rows := make([][]string, 0, len(nodes))
	for _, n := range nodes {
		pk, fk := 0, 0
		for _, col := range n.Columns {
			if col.IsPrimaryKey {
				pk++
			}
			if col.IsForeignKey {
				fk++
			}
		}
		targets := refs[n.ID]
		sort.Strings(targets)
		rows = append(rows, []string{
			fmt.Sprint(layers[n.ID]),
			n.ID,
			fmt.Sprint(len(n.Columns)),
			fmt.Sprintf("%d/%d", pk, fk),
			fmt.Sprint(len(n.Indexes)),
			strings.Join(targets, ", "),
		})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Layer", "Table", "Columns", "PK/FK", "Indexes", "References").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1:
				return headerStyle
			case col == 1:
				return StyleValue
			case col == 5:
				return StyleHighlight
			}
			return StyleDim
		}).
		Render()
}
