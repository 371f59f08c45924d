// Package highlight renders console transcripts with chroma.
package highlight

import (
	"log/slog"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/styles"
)

// DefaultTheme is used when no theme is configured or the configured one
// is unknown.
const DefaultTheme = "pygments"

// neutralForeground colours program output when a theme has no default
// text colour.
var neutralForeground = chroma.ParseColour("#f8f8f2")

var themeAliases = map[string]string{
	"default": DefaultTheme,
}

// LookupStyle resolves a theme name through chroma's registry.
func LookupStyle(name string) (*chroma.Style, bool) {
	name = strings.TrimSpace(name)
	if alias, ok := themeAliases[strings.ToLower(name)]; ok {
		name = alias
	}
	if s, ok := styles.Registry[name]; ok {
		return s, true
	}
	s, ok := styles.Registry[strings.ToLower(name)]
	return s, ok
}

// Theme returns the named style, falling back to DefaultTheme with a
// warning when the name is unknown.
func Theme(name string, logger *slog.Logger) *chroma.Style {
	if name == "" {
		name = DefaultTheme
	}
	if s, ok := LookupStyle(name); ok {
		return s
	}
	if logger != nil {
		logger.Warn("unknown highlight theme, using default", "theme", name, "default", DefaultTheme)
	}
	if s, ok := LookupStyle(DefaultTheme); ok {
		return s
	}
	return styles.Fallback
}

// Foreground returns the default text colour of base, or the neutral
// output colour when base sets none.
func Foreground(base *chroma.Style) chroma.Colour {
	if fg := base.Get(chroma.Text).Colour; fg.IsSet() {
		return fg
	}
	return neutralForeground
}

// DeriveStyle returns a copy of base in which program output uses the
// default text colour instead of the theme's output colour.
func DeriveStyle(base *chroma.Style) (*chroma.Style, error) {
	return base.Builder().
		Add(chroma.GenericOutput, Foreground(base).String()).
		Build()
}

// ThemeInfo summarises one registered theme.
type ThemeInfo struct {
	Name       string
	Foreground string
	Background string
	Output     string
}

// Themes lists every registered theme in name order.
func Themes() []ThemeInfo {
	names := styles.Names()
	out := make([]ThemeInfo, 0, len(names))
	for _, name := range names {
		s := styles.Get(name)
		info := ThemeInfo{
			Name:       name,
			Foreground: Foreground(s).String(),
		}
		if bg := s.Get(chroma.Background).Background; bg.IsSet() {
			info.Background = bg.String()
		}
		if c := s.Get(chroma.GenericOutput).Colour; c.IsSet() {
			info.Output = c.String()
		}
		out = append(out, info)
	}
	return out
}
