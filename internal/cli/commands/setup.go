package commands

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/leapstack-labs/replmode/internal/cli/config"
	intconfig "github.com/leapstack-labs/replmode/internal/config"
	"github.com/leapstack-labs/replmode/internal/document"
	"github.com/leapstack-labs/replmode/internal/macro"
	"github.com/leapstack-labs/replmode/internal/repl"
	"github.com/leapstack-labs/replmode/internal/starlark"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Registry *macro.Registry
}

// NewCommandContext creates a CommandContext and loads the helper macros
// named by the configuration.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())

	registry, err := macro.LoadAndRegister(cfg.MacrosDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load macros: %w", err)
	}
	if registry.Len() > 0 {
		logger.Debug("loaded macros", "dir", cfg.MacrosDir, "namespaces", registry.Namespaces())
	}

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Registry: registry,
	}, nil
}

// NewSession creates a session seeded from the configuration.
func (c *CommandContext) NewSession() (*starlark.Session, error) {
	// Converted per session so mutable values are never shared.
	globals, err := starlark.GlobalsFromMap(c.Cfg.Globals)
	if err != nil {
		return nil, fmt.Errorf("invalid globals: %w", err)
	}
	return starlark.NewSession(
		starlark.WithLogger(c.Logger),
		starlark.WithMacroRegistry(c.Registry),
		starlark.WithPreload(c.Cfg.Preload...),
		starlark.WithGlobals(globals),
	)
}

// NewProcessor creates a document processor whose documents each get a
// fresh session.
func (c *CommandContext) NewProcessor() (*document.Processor, error) {
	variant, err := document.ParseVariant(c.Cfg.Variant)
	if err != nil {
		return nil, err
	}
	factory := func() (repl.Runtime, error) {
		return c.NewSession()
	}
	return document.NewProcessor(factory,
		document.WithVariant(variant),
		document.WithDefaultTheme(c.Cfg.Theme),
		document.WithLogger(c.Logger),
	), nil
}

// Helper functions shared across commands

// getConfig returns the current configuration.
// It uses config.GetCurrentConfig() if available, otherwise falls back to environment variables.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}

	jobs := intconfig.DefaultJobs
	if n, err := strconv.Atoi(os.Getenv(config.EnvPrefix + "JOBS")); err == nil && n > 0 {
		jobs = n
	}
	var preload []string
	if v := os.Getenv(config.EnvPrefix + "PRELOAD"); v != "" {
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				preload = append(preload, name)
			}
		}
	}

	return &config.Config{
		Theme:       getEnvOrDefault(config.EnvPrefix+"THEME", intconfig.DefaultTheme),
		Variant:     getEnvOrDefault(config.EnvPrefix+"VARIANT", intconfig.DefaultVariant),
		MacrosDir:   getEnvOrDefault(config.EnvPrefix+"MACROS_DIR", intconfig.DefaultMacrosDir),
		Preload:     preload,
		LogLevel:    getEnvOrDefault(config.EnvPrefix+"LOG_LEVEL", intconfig.DefaultLogLevel),
		Verbose:     os.Getenv(config.EnvPrefix+"VERBOSE") == "true",
		HistoryFile: os.Getenv(config.EnvPrefix + "HISTORY_FILE"),
		Jobs:        jobs,
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
