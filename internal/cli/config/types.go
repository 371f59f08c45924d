// Package config provides configuration management for the replmode CLI.
//
// Settings are layered from built-in defaults, a replmode.yaml file,
// REPLMODE_* environment variables and explicitly set command-line flags,
// in increasing order of precedence.
package config

// Config holds all CLI configuration options.
type Config struct {
	Theme       string         `koanf:"theme"`
	Variant     string         `koanf:"variant"`
	MacrosDir   string         `koanf:"macros_dir"`
	Preload     []string       `koanf:"preload"`
	Globals     map[string]any `koanf:"globals"`
	LogLevel    string         `koanf:"log_level"`
	Verbose     bool           `koanf:"verbose"`
	HistoryFile string         `koanf:"history_file"`
	Jobs        int            `koanf:"jobs"`

	// ProjectRoot is the directory relative paths were resolved against.
	ProjectRoot string `koanf:"-"`
}

// EffectiveLogLevel is the log level after --verbose is applied.
func (c *Config) EffectiveLogLevel() string {
	if c.Verbose {
		return "debug"
	}
	return c.LogLevel
}
