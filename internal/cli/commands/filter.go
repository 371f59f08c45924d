package commands

import (
	"bufio"

	"github.com/spf13/cobra"
)

// NewFilterCommand creates the filter command.
func NewFilterCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filter [format]",
		Short: "Run as a Pandoc JSON filter",
		Long: `Read a Pandoc JSON document on stdin, replace every session-mode cell
with its rendered console transcript, and write the document to stdout.

Cells are Divs with class "cell" and attribute repl-mode="true". The
document's repl-highlight-style metadata selects the theme.

Pandoc passes the target format as the only argument; it is logged and
otherwise ignored.`,
		Example: `  # Pipe the AST through between two pandoc runs
  pandoc notes.md -t json | replmode filter html | pandoc -f json -o notes.html

  # Render plain pycon blocks instead of themed HTML
  pandoc notes.md -t json | replmode filter --variant plain | pandoc -f json -t gfm`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFilter(cmd, args)
		},
	}

	return cmd
}

func runFilter(cmd *cobra.Command, args []string) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	if len(args) == 1 {
		cmdCtx.Logger.Debug("pandoc filter", "format", args[0])
	}

	proc, err := cmdCtx.NewProcessor()
	if err != nil {
		return err
	}

	w := bufio.NewWriter(cmd.OutOrStdout())
	if err := proc.FilterPandoc(cmd.Context(), bufio.NewReader(cmd.InOrStdin()), w); err != nil {
		return err
	}
	return w.Flush()
}
