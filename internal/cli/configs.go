package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/schemagraph/pkg/diagram"
	"github.com/matzehuels/schemagraph/pkg/errors"
	"github.com/matzehuels/schemagraph/pkg/persist"
)

// configsCommand creates the saved diagram management command.
func (c *CLI) configsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "configs",
		Aliases: []string{"saved"},
		Short:   "Manage saved diagrams",
	}

	cmd.AddCommand(c.configsListCommand())
	cmd.AddCommand(c.configsShowCommand())
	cmd.AddCommand(c.configsDeleteCommand())

	return cmd
}

// withRepository opens the diagram store for the duration of fn.
func (c *CLI) withRepository(ctx context.Context, fn func(*persist.Repository) error) error {
	cfg, err := c.config()
	if err != nil {
		return err
	}
	repo, err := c.openRepository(ctx, cfg)
	if err != nil {
		return err
	}
	defer repo.Close()
	return fn(repo)
}

func (c *CLI) configsListCommand() *cobra.Command {
	var connID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved diagrams",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return c.withRepository(ctx, func(repo *persist.Repository) error {
				configs, err := repo.List(ctx, connID)
				if err != nil {
					return err
				}
				if len(configs) == 0 {
					printInfo("No saved diagrams")
					return nil
				}
				fmt.Println(configsTable(configs))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&connID, "connection", "c", "", "only diagrams of this connection")
	return cmd
}

func (c *CLI) configsShowCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a saved diagram",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return c.withRepository(ctx, func(repo *persist.Repository) error {
				cfg, found, err := repo.Load(ctx, args[0])
				if err != nil {
					return err
				}
				if !found {
					return errors.New(errors.ErrCodeNotFound, "no saved diagram %q", args[0])
				}
				if asJSON {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(cfg)
				}
				printConfig(cfg)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw JSON document")
	return cmd
}

func (c *CLI) configsDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete saved diagrams",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return c.withRepository(ctx, func(repo *persist.Repository) error {
				for _, id := range args {
					if err := repo.Delete(ctx, id); err != nil {
						return err
					}
					printSuccess("Deleted %s", id)
				}
				return nil
			})
		},
	}
}

// printConfig prints the details of one saved diagram.
func printConfig(cfg diagram.Config) {
	fmt.Println(StyleTitle.Render(cfg.Name) + " " + StyleDim.Render(cfg.ID))
	printKeyValue("Connection", cfg.ConnectionID)
	printKeyValue("Schemas", fmt.Sprint(cfg.Schemas))
	if len(cfg.Include) > 0 {
		printKeyValue("Include", fmt.Sprint(cfg.Include))
	}
	if len(cfg.Exclude) > 0 {
		printKeyValue("Exclude", fmt.Sprint(cfg.Exclude))
	}
	printKeyValue("Layout", cfg.Layout.Algorithm)
	printKeyValue("Columns", string(cfg.Options.ColumnDisplay))
	printKeyValue("Zoom", fmt.Sprintf("%.0f%%", cfg.Layout.Viewport.Zoom*100))
	printKeyValue("Updated", cfg.UpdatedAt.Local().Format(time.DateTime))

	ids := make([]string, 0, len(cfg.Layout.NodePositions))
	for id := range cfg.Layout.NodePositions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	printNewline()
	for _, id := range ids {
		p := cfg.Layout.NodePositions[id]
		printDetail("%-32s %8.1f %8.1f", id, p.X, p.Y)
	}
}

// configsTable renders saved diagrams as a table, newest first.
func configsTable(configs []diagram.Config) string {
	sorted := make([]diagram.Config, len(configs))
	copy(sorted, configs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].UpdatedAt.After(sorted[j].UpdatedAt)
	})

	rows := make([][]string, 0, len(sorted))
	for _, cfg := range sorted {
		rows = append(rows, []string{
			cfg.ID,
			cfg.Name,
			cfg.ConnectionID,
			cfg.Layout.Algorithm,
			fmt.Sprint(len(cfg.Layout.NodePositions)),
			cfg.UpdatedAt.Local().Format(time.DateTime),
		})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("ID", "Name", "Connection", "Layout", "Tables", "Updated").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1:
				return headerStyle
			case col == 1:
				return StyleValue
			}
			return StyleDim
		}).
		Render()
}
