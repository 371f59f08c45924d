package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/chzyer/readline"
	"github.com/leapstack-labs/replmode/internal/repl"
	"github.com/leapstack-labs/replmode/internal/starlark"
	"github.com/spf13/cobra"
)

var (
	// resultStyle for echoed expression values
	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("81"))

	// errorStyle for diagnostics and tracebacks
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	// dimStyle for the banner
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

// lineReader is the part of readline the console loop needs.
type lineReader interface {
	Readline() (string, error)
	SetPrompt(prompt string)
}

// NewREPLCommand creates the repl command.
func NewREPLCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive Starlark console",
		Long: `Start an interactive console over the same session used for documents.

Statements are read with ">>> " and continued with "... " until they are
complete; compound statements end with a blank line. Standard modules can
be loaded with load("math", "math"), and helper macros are bound by their
namespace.

Press Ctrl-C to discard the current statement and Ctrl-D to exit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runREPL(cmd)
		},
	}

	cmd.Flags().String("history-file", "", "File to keep console history in")

	return cmd
}

func runREPL(cmd *cobra.Command) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	session, err := cmdCtx.NewSession()
	if err != nil {
		return err
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          repl.PrimaryPrompt,
		HistoryFile:     cmdCtx.Cfg.HistoryFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), dimStyle.Render("replmode console (Starlark). Ctrl-D to exit."))
	if mods := cmdCtx.Registry.Namespaces(); len(mods) > 0 {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), dimStyle.Render("macros: "+strings.Join(mods, ", ")))
	}

	c := &console{
		session: session,
		out:     cmd.OutOrStdout(),
		errOut:  cmd.ErrOrStderr(),
	}
	return c.loop(cmd.Context(), rl)
}

// console feeds lines from a reader into a session one turn at a time.
type console struct {
	session *starlark.Session
	out     io.Writer
	errOut  io.Writer
}

func (c *console) loop(ctx context.Context, rl lineReader) error {
	var buffer []string
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			buffer = nil
			rl.SetPrompt(repl.PrimaryPrompt)
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		if len(buffer) == 0 && strings.TrimSpace(line) == "" {
			continue
		}
		buffer = append(buffer, line)

		if c.session.Probe(strings.Join(buffer, "\n")).Status == repl.StatusIncomplete {
			rl.SetPrompt(repl.ContinuationPrompt)
			continue
		}

		turn := repl.Turn{Lines: buffer, Reason: repl.FlushComplete}
		buffer = nil
		rl.SetPrompt(repl.PrimaryPrompt)

		out, err := c.session.Execute(ctx, turn)
		if err != nil {
			return err
		}
		c.print(repl.Build(turn, out))
	}
}

// print writes everything but the echoed source, which the terminal
// already shows.
func (c *console) print(t repl.Transcript) {
	for _, l := range t {
		switch {
		case l.Kind == repl.ResultText:
			_, _ = fmt.Fprintln(c.out, resultStyle.Render(l.Text))
		case l.Kind != repl.BodyText:
			continue
		case l.Stream == repl.StreamStdout:
			_, _ = fmt.Fprintln(c.out, l.Text)
		default:
			_, _ = fmt.Fprintln(c.errOut, errorStyle.Render(l.Text))
		}
	}
}
