package resolve

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/weslink/pkg/core"
	"github.com/leapstack-labs/weslink/pkg/grammar"
	"github.com/leapstack-labs/weslink/pkg/modpath"
	"github.com/leapstack-labs/weslink/pkg/registry"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, []string{"foo"}, modpath.Normalize("./foo/bar/../."))
}

func TestResolvePath(t *testing.T) {
	tests := []struct {
		name     string
		segments []string
		current  string
		want     string
		wantErr  bool
	}{
		{"package prefix", []string{"package", "util"}, "package::main", "package::util", false},
		{"package in bundle", []string{"package", "util"}, "noise::lib", "noise::util", false},
		{"super", []string{"super", "b"}, "package::a::c", "package::a::b", false},
		{"super super", []string{"super", "super", "x"}, "package::a::c", "package::x", false},
		{"super to root", []string{"super", "x"}, "package::main", "package::x", false},
		{"super beyond root", []string{"super", "super", "x"}, "package::main", "", true},
		{"absolute", []string{"noise", "perlin"}, "package::main", "noise::perlin", false},
		{"empty", nil, "package::main", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolvePath(tt.segments, tt.current)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, core.ErrUnresolvedImport))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func newRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	r := registry.New(map[string]string{
		"main.wesl":         "fn main() {}",
		"util.wesl":         "fn helper() {} fn other() {} struct Light { c: f32 }",
		"lib/math.wesl":     "fn pi() -> f32 { return 3.14; }",
		"lib/shapes.wesl":   "fn circle() {}",
		"lib/nested/x.wesl": "fn deep() {}",
	})
	require.NoError(t, r.AddBundle(&registry.Bundle{
		Name:    "noise",
		Modules: map[string]string{"lib.wesl": "fn perlin() {}", "simplex.wesl": "fn s2() {}"},
	}))
	return r
}

func resolveSrc(t *testing.T, r registry.Lookup, current, src string) (Map, error) {
	t.Helper()
	mod, err := grammar.Parse(src, current, grammar.Options{})
	require.NoError(t, err)
	return Resolve(mod.Imports, current, r)
}

func TestResolve(t *testing.T) {
	r := newRegistry(t)

	tests := []struct {
		name    string
		current string
		src     string
		want    Map
	}{
		{
			name:    "single item",
			current: "package::main",
			src:     "import package::util::helper;",
			want:    Map{"helper": {Module: "package::util", Name: "helper"}},
		},
		{
			name:    "alias",
			current: "package::main",
			src:     "import package::util::helper as h;",
			want:    Map{"h": {Module: "package::util", Name: "helper"}},
		},
		{
			name:    "collection",
			current: "package::main",
			src:     "import package::util::{helper, Light as L};",
			want: Map{
				"helper": {Module: "package::util", Name: "helper"},
				"L":      {Module: "package::util", Name: "Light"},
			},
		},
		{
			name:    "nested collection",
			current: "package::main",
			src:     "import package::lib::{math::pi, shapes::{circle}, nested::x};",
			want: Map{
				"pi":     {Module: "package::lib::math", Name: "pi"},
				"circle": {Module: "package::lib::shapes", Name: "circle"},
				"x":      {Module: "package::lib::nested::x"},
			},
		},
		{
			name:    "module target",
			current: "package::main",
			src:     "import package::util;",
			want:    Map{"util": {Module: "package::util"}},
		},
		{
			name:    "super",
			current: "package::lib::math",
			src:     "import super::shapes::circle;",
			want:    Map{"circle": {Module: "package::lib::shapes", Name: "circle"}},
		},
		{
			name:    "bundle lib by name",
			current: "package::main",
			src:     "import noise::perlin; import noise::simplex::s2;",
			want: Map{
				"perlin": {Module: "noise::lib", Name: "perlin"},
				"s2":     {Module: "noise::simplex", Name: "s2"},
			},
		},
		{
			name:    "same target twice",
			current: "package::main",
			src:     "import package::util::helper; import package::util::{helper};",
			want:    Map{"helper": {Module: "package::util", Name: "helper"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveSrc(t, r, tt.current, tt.src)
			require.NoError(t, err)
			require.Equal(t, len(tt.want), len(got))
			for alias, want := range tt.want {
				require.Contains(t, got, alias)
				assert.True(t, want.Same(got[alias]), "%s: want %s, got %s", alias, want, got[alias])
			}
		})
	}
}

func TestResolve_Errors(t *testing.T) {
	r := newRegistry(t)

	tests := []struct {
		name    string
		src     string
		want    error
		message string
	}{
		{"missing module", "import package::nope::f;", core.ErrUnresolvedImport, "no module or export"},
		{"missing export", "import package::util::nope;", core.ErrUnresolvedImport, "has no declaration nope"},
		{"super beyond root", "import super::super::util::helper;", core.ErrUnresolvedImport, "package root"},
		{"duplicate alias", "import package::util::helper as f; import package::lib::math::pi as f;", core.ErrDuplicateBinding, "imported as both"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := resolveSrc(t, r, "package::main", tt.src)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.Contains(t, err.Error(), tt.message)
			e, ok := core.AsError(err)
			require.True(t, ok)
			assert.Equal(t, "package::main", e.Module)
			assert.True(t, e.HasSpan)
		})
	}
}

func TestResolve_MissingModuleWrapsNotFound(t *testing.T) {
	_, err := resolveSrc(t, newRegistry(t), "package::main", "import other::thing;")
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrUnresolvedImport))
	assert.True(t, errors.Is(err, core.ErrModuleNotFound))
}

func TestResolve_LegacyExportsOnly(t *testing.T) {
	r := registry.New(map[string]string{
		"util.wgsl": "#export\nfn shared() {}\nfn hidden() {}",
		"main.wgsl": "#import shared from ./util\n#import hidden from ./util\nfn main() {}",
	}, registry.WithDialect(grammar.Legacy))

	main, err := r.GetModule("package::main")
	require.NoError(t, err)
	require.Len(t, main.AST.Imports, 2)

	got, err := Resolve(main.AST.Imports[:1], "package::main", r)
	require.NoError(t, err)
	assert.Equal(t, "package::util", got["shared"].Module)

	_, err = Resolve(main.AST.Imports, "package::main", r)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not exported")
}

func TestResolve_ParseErrorPropagates(t *testing.T) {
	r := registry.New(map[string]string{"bad.wesl": "fn {"})
	_, err := resolveSrc(t, r, "package::main", "import package::bad::f;")
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrParse))
}

func TestTarget(t *testing.T) {
	mt := Target{Module: "package::util"}
	dt := Target{Module: "package::util", Name: "f"}
	assert.True(t, mt.IsModule())
	assert.False(t, dt.IsModule())
	assert.Equal(t, "package::util::f", dt.String())
	assert.Equal(t, []string{"a", "b"}, Map{"b": dt, "a": mt}.Aliases())
}
