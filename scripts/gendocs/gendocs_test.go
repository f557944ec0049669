package main

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/weslink/internal/config"
)

func TestConfigSchemaCoversConfig(t *testing.T) {
	documented := make(map[string]bool)
	for _, f := range configSchema() {
		documented[f.Name] = true
	}
	typ := reflect.TypeFor[config.Config]()
	for i := range typ.NumField() {
		tag := typ.Field(i).Tag.Get("koanf")
		if tag == "" || tag == "-" {
			continue
		}
		assert.True(t, documented[tag], "config key %q is undocumented", tag)
		delete(documented, tag)
	}
	assert.Empty(t, documented, "documented keys missing from Config")
}

func TestDedent(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"shared indent", "  # comment\n  weslink link\n", "# comment\nweslink link"},
		{"nested indent kept", "  weslink link \\\n    -o out.wgsl", "weslink link \\\n  -o out.wgsl"},
		{"blank lines ignored", "\n    a\n\n    b\n", "a\n\nb"},
		{"no indent", "weslink check", "weslink check"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, dedent(tt.in))
		})
	}
}

func TestGenerateDocs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, generateCLIDocs(filepath.Join(dir, "cli")))
	require.NoError(t, generateConfigDocs(dir))

	tests := []struct {
		file string
		want []string
	}{
		{"cli/index.md", []string{"# CLI Reference", "[`link`](/cli/link)", "`WESLINK_SOURCES_DIR`"}},
		{"cli/link.md", []string{
			"# link", "weslink link [root] [flags]",
			"| `--sourcemap` |", "| `sourcemap` | `WESLINK_SOURCEMAP` |",
			"| `--sources-dir` |", "| `sources_dir` | `WESLINK_SOURCES_DIR` |",
			"see [Configuration](/configuration)",
		}},
		{"cli/history.md", []string{"`-n, --limit`"}},
		{"cli/modules.md", []string{"## Aliases", "`weslink ls`"}},
		{"cli/watch.md", []string{"## Examples", "\nweslink watch -o out/main.wgsl"}},
		{"configuration.md", []string{"# Configuration", "| `sources_dir` | string | `shaders` |"}},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			data, err := os.ReadFile(filepath.Join(dir, tt.file))
			require.NoError(t, err)
			for _, want := range tt.want {
				assert.Contains(t, string(data), want)
			}
		})
	}
}
