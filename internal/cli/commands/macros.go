package commands

import (
	"fmt"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/replmode/internal/macro"
	"github.com/spf13/cobra"
)

// NewMacrosCommand creates the macros command.
func NewMacrosCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "macros",
		Short: "List helper macros",
		Long: `List the public functions of every helper file in the macros directory.

Each file is bound in sessions under its namespace, so a function "fmt_money"
in money.star is called as money.fmt_money(...) or loaded with
load("money.star", "fmt_money").`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMacros(cmd)
		},
	}

	return cmd
}

func runMacros(cmd *cobra.Command) error {
	cfg := getConfig()
	docs, err := macro.DescribeDir(cfg.MacrosDir)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "No macros found in %s\n", cfg.MacrosDir)
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Namespace", "Function", "Description", "Location"})
	for _, doc := range docs {
		for _, fn := range doc.Functions {
			loc := fmt.Sprintf("%s:%d", filepath.Base(doc.Path), fn.Line)
			t.AppendRow(table.Row{doc.Namespace, fn.Signature(), fn.Summary(), loc})
		}
	}
	t.Render()
	return nil
}
