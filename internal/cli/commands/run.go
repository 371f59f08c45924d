package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/chroma/v2"
	"github.com/leapstack-labs/replmode/internal/highlight"
	"github.com/leapstack-labs/replmode/internal/repl"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// RunOptions holds options for the run command.
type RunOptions struct {
	HTML    bool
	NoColor bool
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run <file.star>",
		Short: "Run a script and print its console transcript",
		Long: `Run a Starlark script as if it were typed into the interactive console,
one statement at a time, and print the resulting transcript.

On a colour terminal the transcript is highlighted with the configured
theme. Use "-" to read the script from stdin.`,
		Example: `  # Print a transcript
  replmode run examples/fib.star

  # Produce the themed HTML block used in documents
  replmode run examples/fib.star --html --theme monokai`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.HTML, "html", false, "Print themed HTML instead of text")
	cmd.Flags().BoolVar(&opts.NoColor, "no-color", false, "Never highlight terminal output")

	return cmd
}

func runRun(cmd *cobra.Command, path string, opts *RunOptions) error {
	src, err := readScript(cmd.InOrStdin(), path)
	if err != nil {
		return err
	}

	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	session, err := cmdCtx.NewSession()
	if err != nil {
		return err
	}

	transcript, err := repl.NewEngine(session, repl.WithLogger(cmdCtx.Logger)).Run(cmd.Context(), string(src))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	style := highlight.Theme(cmdCtx.Cfg.Theme, cmdCtx.Logger)

	if opts.HTML {
		r, err := highlight.NewRenderer(style)
		if err != nil {
			return err
		}
		html, err := r.HTML(transcript)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, html)
		return err
	}

	if f := terminalFormatter(out, opts.NoColor); f != nil {
		r, err := highlight.NewRenderer(style, highlight.WithFormatter(f))
		if err != nil {
			return err
		}
		if err := r.Render(out, transcript); err != nil {
			return err
		}
		_, err = fmt.Fprintln(out)
		return err
	}

	_, err = fmt.Fprintln(out, transcript.String())
	return err
}

// readScript reads the script at path, or stdin for "-".
func readScript(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		src, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return src, nil
	}
	src, err := os.ReadFile(path) //nolint:gosec // path comes from the command line
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	return src, nil
}

// terminalFormatter picks a chroma formatter for w when it is a colour
// terminal, and nil otherwise.
func terminalFormatter(w io.Writer, noColor bool) chroma.Formatter {
	if noColor {
		return nil
	}
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) { //nolint:gosec // fd fits in int
		return nil
	}
	return highlight.TerminalFormatter(termenv.NewOutput(f).EnvColorProfile())
}
