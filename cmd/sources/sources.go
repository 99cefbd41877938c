// Package sources implements the sources command group for inspecting the
// configured feed sources.
package sources

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/tenderwatch/cmd/common"
)

// Command returns the sources command group.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "Manage configured feed sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(listCommand())
	cmd.AddCommand(validateCommand())

	return cmd
}

func listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured feed sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := common.NewCommandDeps()
			if err != nil {
				return fmt.Errorf("initialize dependencies: %w", err)
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Name", "Feed URL", "Follow Detail"})

			for _, src := range deps.Config.Sources {
				t.AppendRow(table.Row{src.Name, src.URL, src.FollowDetail})
			}

			t.Render()
			return nil
		},
	}
}

func validateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration and its feed sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			// NewCommandDeps already validates the full configuration.
			deps, err := common.NewCommandDeps()
			if err != nil {
				return err
			}

			fmt.Printf("configuration valid: %d feed sources\n", len(deps.Config.Sources))
			return nil
		},
	}
}
