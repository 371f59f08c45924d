package macro

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.starlark.net/starlark"
)

// macrosDir writes files into a fresh macros directory.
func macrosDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "macros")
	require.NoError(t, os.Mkdir(dir, 0o750))
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	}
	return dir
}

func TestLoader_Load(t *testing.T) {
	tests := []struct {
		name           string
		setupDir       func(t *testing.T) string
		wantNil        bool
		wantErr        bool
		wantNamespaces []string
		checkExports   map[string][]string
	}{
		{
			name:     "empty directory",
			setupDir: func(t *testing.T) string { return macrosDir(t, nil) },
		},
		{
			name:     "non-existent directory",
			setupDir: func(t *testing.T) string { return filepath.Join(t.TempDir(), "missing") },
			wantNil:  true,
		},
		{
			name: "not a directory",
			setupDir: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "macros")
				require.NoError(t, os.WriteFile(path, []byte("not a dir"), 0o600))
				return path
			},
			wantErr: true,
		},
		{
			name: "public functions exported",
			setupDir: func(t *testing.T) string {
				return macrosDir(t, map[string]string{"text.star": `
def shout(s):
    return s.upper() + "!"

def banner(s, width = 20):
    return ("*" * width) + s

_private = "hidden"
`})
			},
			wantNamespaces: []string{"text"},
			checkExports:   map[string][]string{"text": {"shout", "banner"}},
		},
		{
			name: "files in name order",
			setupDir: func(t *testing.T) string {
				return macrosDir(t, map[string]string{
					"units.star":  "def km(m):\n    return m / 1000\n",
					"money.star":  "def cents(d):\n    return d * 100\n",
					"notes.txt":   "ignored",
					"colour.star": "RED = \"#f00\"\n",
				})
			},
			wantNamespaces: []string{"colour", "money", "units"},
		},
		{
			name: "syntax error",
			setupDir: func(t *testing.T) string {
				return macrosDir(t, map[string]string{"broken.star": "def broken(:\n    return 1\n"})
			},
			wantErr: true,
		},
		{
			name: "runtime error",
			setupDir: func(t *testing.T) string {
				return macrosDir(t, map[string]string{"fails.star": "x = 1 // 0\n"})
			},
			wantErr: true,
		},
		{
			name: "invalid namespace",
			setupDir: func(t *testing.T) string {
				return macrosDir(t, map[string]string{"123invalid.star": "x = 1\n"})
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			modules, err := NewLoader(tt.setupDir(t)).Load()

			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)

			if tt.wantNil {
				assert.Nil(t, modules)
				return
			}

			namespaces := make([]string, 0, len(modules))
			byName := make(map[string]*LoadedModule)
			for _, m := range modules {
				namespaces = append(namespaces, m.Namespace)
				byName[m.Namespace] = m
			}
			if tt.wantNamespaces == nil {
				assert.Empty(t, namespaces)
			} else {
				assert.Equal(t, tt.wantNamespaces, namespaces)
			}

			for ns, exports := range tt.checkExports {
				m := byName[ns]
				require.NotNil(t, m, "namespace %q", ns)
				for _, name := range exports {
					assert.Contains(t, m.Exports, name)
				}
				assert.NotContains(t, m.Exports, "_private")
			}
		})
	}
}

func TestLoader_LoadError(t *testing.T) {
	dir := macrosDir(t, map[string]string{"broken.star": "def broken(:\n    return 1\n"})

	_, err := NewLoader(dir).Load()
	require.Error(t, err)

	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr), "expected *LoadError, got %T", err)
	assert.Equal(t, filepath.Join(dir, "broken.star"), loadErr.File)
	assert.Contains(t, err.Error(), "macros/broken.star")
}

func TestValidateNamespace(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid lowercase", "text", false},
		{"valid with underscore", "date_time", false},
		{"valid start with underscore", "_private", false},
		{"valid with numbers", "utils2", false},
		{"empty", "", true},
		{"starts with number", "123abc", true},
		{"contains hyphen", "date-time", true},
		{"contains space", "date time", true},
		{"contains dot", "date.time", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateNamespace(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoader_ExportsCallableAndFrozen(t *testing.T) {
	dir := macrosDir(t, map[string]string{"units.star": `
FACTORS = {"km": 1000}

def to_metres(n, unit):
    return n * FACTORS[unit]
`})

	modules, err := NewLoader(dir).Load()
	require.NoError(t, err)
	require.Len(t, modules, 1)

	m := modules[0]
	assert.Equal(t, "units.star", m.LoadName())

	thread := &starlark.Thread{Name: "test"}
	result, err := starlark.Call(thread, m.Exports["to_metres"],
		starlark.Tuple{starlark.MakeInt(3), starlark.String("km")}, nil)
	require.NoError(t, err)
	assert.Equal(t, "3000", result.String())

	factors, ok := m.Exports["FACTORS"].(*starlark.Dict)
	require.True(t, ok)
	assert.Error(t, factors.SetKey(starlark.String("m"), starlark.MakeInt(1)), "exports should be frozen")
}
