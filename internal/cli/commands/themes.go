package commands

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/replmode/internal/highlight"
	"github.com/spf13/cobra"
)

// NewThemesCommand creates the themes command.
func NewThemesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "themes",
		Short: "List available highlight themes",
		Long: `List every highlight theme that can be named with --theme or the
repl-highlight-style document metadata.

Program output is drawn in the theme's text colour; the Output column shows
the colour the theme would otherwise use.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runThemes(cmd)
		},
	}

	return cmd
}

func runThemes(cmd *cobra.Command) error {
	current := getConfig().Theme

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"", "Theme", "Text", "Background", "Output"})
	for _, info := range highlight.Themes() {
		marker := ""
		if info.Name == current {
			marker = "*"
		}
		t.AppendRow(table.Row{marker, info.Name, info.Foreground, info.Background, info.Output})
	}
	t.Render()
	return nil
}
