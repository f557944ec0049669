package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/weslink/pkg/grammar"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	p := filepath.Join(dir, "weslink.yaml")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func parseFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	AddFlags(fs)
	fs.StringP("output", "o", "", "")
	fs.Bool("binding-structs", false, "")
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	cfg, err := Load("", nil)
	require.NoError(t, err)

	wd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, DefaultRoot, cfg.Root)
	assert.Equal(t, filepath.Join(wd, DefaultSourcesDir), cfg.SourcesDir)
	assert.Equal(t, filepath.Join(wd, DefaultStateFile), cfg.StatePath)
	assert.Equal(t, DefaultPackageName, cfg.PackageName)
	assert.Equal(t, grammar.Modern, cfg.GrammarDialect())
	assert.Equal(t, DefaultFormat, cfg.Format)
	assert.Empty(t, cfg.File)
	assert.False(t, cfg.BindingStructs)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
root: app.wesl
sources_dir: src
package_name: demo
dialect: legacy
conditions:
  mobile: true
  debug: false
constants:
  scale: 2.5
  count: 4
  tint: vec3f(1.0)
entry_points: [package::util::main]
bundles: [libs/noise/bundle.yaml]
output: out/app.wgsl
binding_structs: true
`)

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	root := filepath.Dir(path)
	assert.Equal(t, path, cfg.File)
	assert.Equal(t, root, cfg.ProjectRoot)
	assert.Equal(t, "app.wesl", cfg.Root)
	assert.Equal(t, filepath.Join(root, "src"), cfg.SourcesDir)
	assert.Equal(t, "demo", cfg.PackageName)
	assert.Equal(t, grammar.Legacy, cfg.GrammarDialect())
	assert.Equal(t, map[string]bool{"mobile": true, "debug": false}, cfg.Conditions)
	assert.Equal(t, 2.5, cfg.Constants["scale"])
	assert.Equal(t, "vec3f(1.0)", cfg.Constants["tint"])
	assert.Equal(t, []string{"package::util::main"}, cfg.EntryPoints)
	assert.Equal(t, []string{filepath.Join(root, "libs/noise/bundle.yaml")}, cfg.Bundles)
	assert.Equal(t, filepath.Join(root, "out/app.wgsl"), cfg.Output)
	assert.True(t, cfg.BindingStructs)
}

func TestLoad_SearchesUpward(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "root: up.wesl\n")
	sub := filepath.Join(dir, "a", "b")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	t.Chdir(sub)

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "up.wesl", cfg.Root)

	wantRoot, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	gotRoot, err := filepath.EvalSymlinks(cfg.ProjectRoot)
	require.NoError(t, err)
	assert.Equal(t, wantRoot, gotRoot)
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
root: file.wesl
dialect: modern
conditions:
  mobile: false
`)

	t.Run("env overrides file", func(t *testing.T) {
		t.Setenv("WESLINK_ROOT", "env.wesl")
		cfg, err := Load(path, nil)
		require.NoError(t, err)
		assert.Equal(t, "env.wesl", cfg.Root)
	})

	t.Run("flags override env", func(t *testing.T) {
		t.Setenv("WESLINK_ROOT", "env.wesl")
		fs := parseFlags(t, "--root", "flag.wesl", "--condition", "mobile=true", "--condition", "fast=false",
			"--constant", "count=4u", "--entry-point", "a,b", "--binding-structs")
		cfg, err := Load(path, fs)
		require.NoError(t, err)
		assert.Equal(t, "flag.wesl", cfg.Root)
		assert.Equal(t, map[string]bool{"mobile": true, "fast": false}, cfg.Conditions)
		assert.Equal(t, "4u", cfg.Constants["count"])
		assert.Equal(t, []string{"a", "b"}, cfg.EntryPoints)
		assert.True(t, cfg.BindingStructs)
	})

	t.Run("unset flags do not override", func(t *testing.T) {
		cfg, err := Load(path, parseFlags(t))
		require.NoError(t, err)
		assert.Equal(t, "file.wesl", cfg.Root)
	})

	t.Run("path flags are relative to the working directory", func(t *testing.T) {
		wd := t.TempDir()
		t.Chdir(wd)
		cfg, err := Load(path, parseFlags(t, "--sources-dir", "here", "-o", "out.wgsl"))
		require.NoError(t, err)
		abs, err := filepath.Abs("here")
		require.NoError(t, err)
		assert.Equal(t, abs, cfg.SourcesDir)
		assert.Equal(t, filepath.Join(filepath.Dir(abs), "out.wgsl"), cfg.Output)
	})
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		errSubstr string
	}{
		{"unknown key", "rooot: main.wesl\n", "rooot"},
		{"bad dialect", "dialect: glsl\n", "unknown dialect"},
		{"bad format", "format: html\n", "unknown format"},
		{"empty root", "root: \"\"\n", "root is required"},
		{"malformed yaml", "root: [\n", "error reading config file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), tt.content)
			_, err := Load(path, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestFindProjectRoot_NotFound(t *testing.T) {
	assert.Empty(t, FindProjectRoot(t.TempDir()))
}

func TestLoad_IgnoresCommandFlags(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "root: a.wesl\n")
	fs := parseFlags(t)
	fs.Int("limit", 10, "")
	require.NoError(t, fs.Parse([]string{"--limit", "3"}))

	cfg, err := Load(path, fs)
	require.NoError(t, err)
	assert.Equal(t, "a.wesl", cfg.Root)
}
