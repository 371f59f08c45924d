package config

import (
	"fmt"
	"slices"

	"github.com/leapstack-labs/replmode/internal/document"
	"github.com/leapstack-labs/replmode/internal/logging"
	"github.com/leapstack-labs/replmode/internal/starlark"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if _, err := document.ParseVariant(c.Variant); err != nil {
		return err
	}
	if c.Jobs <= 0 {
		return fmt.Errorf("jobs must be positive, got %d", c.Jobs)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	known := starlark.StdModules()
	for _, name := range c.Preload {
		if !slices.Contains(known, name) {
			return fmt.Errorf("preload %q: not a standard module (have %v)", name, known)
		}
	}
	return nil
}
