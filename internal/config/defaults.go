// Package config holds the replmode defaults and config file discovery
// shared by the CLI and anything else that loads project settings.
package config

// Default configuration values.
const (
	DefaultTheme     = "pygments"
	DefaultVariant   = "highlight"
	DefaultMacrosDir = "macros"
	DefaultLogLevel  = "info"
	DefaultJobs      = 4
)

// Defaults returns the default settings keyed the way config files spell
// them.
func Defaults() map[string]any {
	return map[string]any{
		"theme":      DefaultTheme,
		"variant":    DefaultVariant,
		"macros_dir": DefaultMacrosDir,
		"log_level":  DefaultLogLevel,
		"jobs":       DefaultJobs,
		"verbose":    false,
	}
}
