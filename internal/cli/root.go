// Package cli provides the command-line interface for replmode.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/leapstack-labs/replmode/internal/cli/commands"
	"github.com/leapstack-labs/replmode/internal/cli/config"
	intconfig "github.com/leapstack-labs/replmode/internal/config"
	"github.com/leapstack-labs/replmode/internal/highlight"
	"github.com/leapstack-labs/replmode/internal/logging"
	"github.com/leapstack-labs/replmode/internal/starlark"
	"github.com/spf13/cobra"
)

var cfgFile string

// Version is set at build time.
var Version = "0.1.0"

// configKey is used to store config in context.
type configKey struct{}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "replmode",
		Short: "replmode - console transcripts for documents",
		Long: `replmode renders code as if it had been typed into an interactive console.

Each statement is echoed with a ">>> " or "... " prompt and followed by what
it printed and the value it produced. Code runs in an embedded Starlark
interpreter, with state carried from one block of a document to the next.

Use it as a Pandoc filter, on Markdown files, on scripts, or interactively.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for help and completion commands
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.LoadConfig(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}

			logger, err := logging.New(cfg.EffectiveLogLevel())
			if err != nil {
				return err
			}

			ctx := context.WithValue(cmd.Context(), configKey{}, cfg)
			ctx = context.WithValue(ctx, config.LoggerKey(), logger)
			cmd.SetContext(ctx)

			if configFile := config.GetConfigFileUsed(); configFile != "" {
				logger.Debug("using config file", "path", configFile)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Set version template
	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
Console transcripts for Starlark, built with Go
`)

	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./replmode.yaml)")
	rootCmd.PersistentFlags().String("theme", "", "Highlight theme (see 'replmode themes')")
	rootCmd.PersistentFlags().String("variant", "", "Produced block: highlight or plain")
	rootCmd.PersistentFlags().String("macros-dir", "", "Path to helper macros directory")
	rootCmd.PersistentFlags().StringSlice("preload", nil, "Standard modules to bind before the first statement")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().IntP("jobs", "j", 0, "Documents rendered in parallel")

	_ = rootCmd.RegisterFlagCompletionFunc("variant", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"highlight", "plain"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("theme", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		var names []string
		for _, info := range highlight.Themes() {
			names = append(names, info.Name)
		}
		return names, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("preload", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return starlark.StdModules(), cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("log-level", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"debug", "info", "warn", "error"}, cobra.ShellCompDirectiveNoFileComp
	})

	// Add subcommands
	rootCmd.AddCommand(commands.NewVersionCommand(Version))
	rootCmd.AddCommand(commands.NewFilterCommand())
	rootCmd.AddCommand(commands.NewRenderCommand())
	rootCmd.AddCommand(commands.NewRunCommand())
	rootCmd.AddCommand(commands.NewREPLCommand())
	rootCmd.AddCommand(commands.NewThemesCommand())
	rootCmd.AddCommand(commands.NewMacrosCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// GetConfig retrieves the config from the command context.
func GetConfig(ctx context.Context) *config.Config {
	if c, ok := ctx.Value(configKey{}).(*config.Config); ok {
		return c
	}
	// Return default config if none in context
	return &config.Config{
		Theme:     intconfig.DefaultTheme,
		Variant:   intconfig.DefaultVariant,
		MacrosDir: intconfig.DefaultMacrosDir,
		LogLevel:  intconfig.DefaultLogLevel,
		Jobs:      intconfig.DefaultJobs,
	}
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for replmode.

To load completions:

Bash:
  $ source <(replmode completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ replmode completion bash > /etc/bash_completion.d/replmode
  # macOS:
  $ replmode completion bash > $(brew --prefix)/etc/bash_completion.d/replmode

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. Execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ replmode completion zsh > "${fpath[1]}/_replmode"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ replmode completion fish | source

  # To load completions for each session, execute once:
  $ replmode completion fish > ~/.config/fish/completions/replmode.fish

PowerShell:
  PS> replmode completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> replmode completion powershell > replmode.ps1
  # and source this file from your PowerShell profile.
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
	return cmd
}
