package registry

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/weslink/pkg/core"
	"github.com/leapstack-labs/weslink/pkg/grammar"
)

func TestNew_ModulePaths(t *testing.T) {
	r := New(map[string]string{
		"main.wesl":           "fn main() {}",
		"lib/util.wesl":       "fn helper() {}",
		"package::lib::other": "fn other() {}",
		"./shaders/../x.wgsl": "fn x() {}",
	})

	assert.Equal(t, []string{
		"package::lib::other",
		"package::lib::util",
		"package::main",
		"package::x",
	}, r.Paths())
	assert.True(t, r.HasModule("package::lib::util"))
	assert.False(t, r.HasModule("package::lib"))
	assert.Equal(t, "package", r.PackageName())
}

func TestGetModule_NotFound(t *testing.T) {
	r := New(nil)
	_, err := r.GetModule("package::missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrModuleNotFound))
	e, ok := core.AsError(err)
	require.True(t, ok)
	assert.Equal(t, "package::missing", e.Module)
}

func TestGetModule_ParsesOnceUnderConcurrency(t *testing.T) {
	r := New(map[string]string{"main.wesl": "fn main() { let x = 1; }"})

	var wg sync.WaitGroup
	mods := make([]*Module, 32)
	for i := range mods {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m, err := r.GetModule("package::main")
			assert.NoError(t, err)
			mods[i] = m
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), r.Parses())
	for _, m := range mods {
		assert.Same(t, mods[0], m)
	}
}

func TestGetModule_CachesParseErrors(t *testing.T) {
	r := New(map[string]string{"bad.wesl": "fn ("})
	_, err1 := r.GetModule("package::bad")
	_, err2 := r.GetModule("package::bad")
	require.Error(t, err1)
	assert.True(t, errors.Is(err1, core.ErrParse))
	assert.Equal(t, err1, err2)
	assert.Equal(t, int64(1), r.Parses())
}

func TestGetModule_ParseErrorSharedUnderConcurrency(t *testing.T) {
	r := New(map[string]string{"bad.wesl": "fn ("})

	var wg sync.WaitGroup
	errs := make([]error, 32)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = r.GetModule("package::bad")
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), r.Parses())
	for _, err := range errs {
		assert.True(t, errors.Is(err, core.ErrParse))
	}
}

func TestSource(t *testing.T) {
	r := New(map[string]string{"bad.wesl": "fn ("})
	src, ok := r.Source("package::bad")
	require.True(t, ok)
	assert.Equal(t, "fn (", src.Text)
	assert.Equal(t, "bad.wesl", src.File)

	_, ok = r.Source("package::gone")
	assert.False(t, ok)
}

func TestAddSource_ReplacesCachedParse(t *testing.T) {
	r := New(map[string]string{"main.wesl": "fn a() {}"})
	m, err := r.GetModule("package::main")
	require.NoError(t, err)
	assert.Len(t, m.Decls("a"), 1)

	r.AddSource("main.wesl", Source{Text: "fn b() {}"})
	m, err = r.GetModule("package::main")
	require.NoError(t, err)
	assert.Empty(t, m.Decls("a"))
	assert.Len(t, m.Decls("b"), 1)
}

func TestModule_DeclsAndExports(t *testing.T) {
	r := New(map[string]string{"main.wesl": `
@if(a) fn f() -> i32 { return 1; }
@if(!a) fn f() -> i32 { return 2; }
struct S { x: f32 }
const_assert 1 < 2;
`})
	m, err := r.GetModule("package::main")
	require.NoError(t, err)

	assert.Len(t, m.Decls("f"), 2)
	assert.Len(t, m.Decls("S"), 1)
	assert.True(t, m.Exported("f"))
	assert.Equal(t, []string{"S", "f"}, m.ExportNames())
	assert.Equal(t, "package", m.Package)
	assert.Equal(t, "main.wesl", m.File)
}

func TestModule_LegacyExportsOnlyMarked(t *testing.T) {
	r := New(map[string]string{"util.wgsl": `
#export
fn shared() {}
fn private() {}
`}, WithDialect(grammar.Legacy))
	m, err := r.GetModule("package::util")
	require.NoError(t, err)

	assert.Len(t, m.Decls("private"), 1)
	assert.True(t, m.Exported("shared"))
	assert.False(t, m.Exported("private"))
}

func TestAddBundle(t *testing.T) {
	base := &Bundle{Name: "base", Modules: map[string]string{"lib.wesl": "fn pi() -> f32 { return 3.14; }"}}
	noise := &Bundle{
		Name:         "noise",
		Edition:      "unstable_2025_1",
		Modules:      map[string]string{"lib.wesl": "fn perlin() {}", "simplex/two.wesl": "fn s2() {}"},
		Dependencies: []*Bundle{base},
	}

	r := New(map[string]string{"main.wesl": "fn main() {}"})
	require.NoError(t, r.AddBundle(noise))
	require.NoError(t, r.AddBundle(base), "same bundle twice is fine")

	assert.Equal(t, []string{"base", "noise"}, r.Bundles())
	assert.True(t, r.HasModule("noise::simplex::two"))

	// the bundle name alone addresses its lib module
	m, err := r.GetModule("noise")
	require.NoError(t, err)
	assert.Equal(t, "noise::lib", m.Path)
	assert.Equal(t, "noise", m.Package)
	assert.True(t, m.Exported("perlin"))

	m, err = r.GetModule("base::lib")
	require.NoError(t, err)
	assert.True(t, m.Exported("pi"))
}

func TestAddBundle_Errors(t *testing.T) {
	tests := []struct {
		name   string
		bundle *Bundle
		want   string
	}{
		{"no name", &Bundle{}, "without a name"},
		{"package name", &Bundle{Name: "package"}, "collides"},
		{"duplicate", &Bundle{Name: "dup"}, "registered twice"},
	}

	r := New(nil)
	require.NoError(t, r.AddBundle(&Bundle{Name: "dup"}))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.AddBundle(tt.bundle)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestAllModules(t *testing.T) {
	r := New(map[string]string{
		"a.wesl": "fn a() {}",
		"b.wesl": "fn b() {}",
		"c.wesl": "fn c() {}",
	})
	mods, err := r.AllModules()
	require.NoError(t, err)
	require.Len(t, mods, 3)
	assert.Equal(t, "package::a", mods[0].Path)
	assert.Equal(t, "package::c", mods[2].Path)

	r.AddSource("d.wesl", Source{Text: "fn {"})
	_, err = r.AllModules()
	assert.True(t, errors.Is(err, core.ErrParse))
}

func TestOverlay(t *testing.T) {
	r := New(map[string]string{"main.wesl": "fn main() {}"})
	tree, err := grammar.Parse("const DEBUG = true;", "constants", grammar.Options{})
	require.NoError(t, err)

	l := Overlay(r, NewModule("constants", tree))
	assert.True(t, l.HasModule("constants"))
	assert.True(t, l.HasModule("package::main"))
	assert.False(t, r.HasModule("constants"))

	m, err := l.GetModule("constants")
	require.NoError(t, err)
	assert.True(t, m.Exported("DEBUG"))

	_, err = l.GetModule("package::nope")
	assert.True(t, errors.Is(err, core.ErrModuleNotFound))
	assert.Equal(t, "package", l.PackageName())
}

func TestWithPackageName(t *testing.T) {
	r := New(map[string]string{"main.wesl": "fn main() {}"}, WithPackageName("app"))
	assert.Equal(t, []string{"app::main"}, r.Paths())
	assert.Equal(t, "app", r.PackageName())
}
