package loader

import (
	"context"
	"errors"
	"maps"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/weslink/internal/testutil"
	"github.com/leapstack-labs/weslink/pkg/core"
	"github.com/leapstack-labs/weslink/pkg/grammar"
	"github.com/leapstack-labs/weslink/pkg/registry"
)

func TestLoadSources(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteTree(t, dir, map[string]string{
		"main.wesl":         "fn main() {}",
		"lib/util.wgsl":     "fn util() {}",
		"lib/deep/x.wesl":   "fn x() {}",
		"README.md":         "not a shader",
		".cache/skip.wesl":  "fn skip() {}",
		"lib/notes.wesl.md": "nope",
	})

	sources, err := LoadSources(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"main.wesl":       "fn main() {}",
		"lib/util.wgsl":   "fn util() {}",
		"lib/deep/x.wesl": "fn x() {}",
	}, sources)
}

func TestLoadSources_MissingDir(t *testing.T) {
	_, err := LoadSources(context.Background(), filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}

func TestLoadSources_Cancelled(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteTree(t, dir, map[string]string{"a.wesl": "", "b.wesl": ""})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := LoadSources(ctx, dir)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPrepare(t *testing.T) {
	texts := map[string]string{
		"plain.wesl": "fn f() {}",
		"pre.wgsl":   "#if FAST\nfn g() {}\n#else\nfn h() {}\n#endif\n",
	}

	sources, err := Prepare(texts, Options{Conditions: map[string]bool{"FAST": false}})
	require.NoError(t, err)
	assert.Equal(t, "fn f() {}", sources["plain.wesl"].Text)
	assert.Nil(t, sources["plain.wesl"].Map)
	assert.Equal(t, "fn h() {}\n", sources["pre.wgsl"].Text)
	require.NotNil(t, sources["pre.wgsl"].Map)
	assert.Equal(t, "pre.wgsl", sources["pre.wgsl"].File)

	_, err = Prepare(texts, Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrUnknownCondition))
}

func TestLoadPackage(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteTree(t, dir, map[string]string{
		"main.wesl":       "import demo::util::helper;\nfn main() { helper(); }",
		"util.wesl":       "fn helper() {}",
		"old/legacy.wgsl": "#export\nfn exported() {}\nfn private() {}",
	})

	r, err := LoadPackage(context.Background(), dir, "demo", Options{Logger: testutil.NewTestLogger(t)})
	require.NoError(t, err)
	assert.Equal(t, "demo", r.PackageName())
	assert.Equal(t, []string{"demo::main", "demo::old::legacy", "demo::util"}, r.Paths())

	m, err := r.GetModule("demo::util")
	require.NoError(t, err)
	assert.Equal(t, "util.wesl", m.File)
}

func TestParseManifest(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		want      *Manifest
		errSubstr string
	}{
		{
			name:    "full",
			content: "name: noise\nedition: unstable_2025\ndialect: modern\nsources: src\ndependencies: [../rand]\n",
			want: &Manifest{
				Name: "noise", Edition: "unstable_2025", Dialect: "modern",
				Sources: "src", Dependencies: []string{"../rand"},
			},
		},
		{
			name:    "inline modules",
			content: "name: tiny\nmodules:\n  lib.wesl: \"fn one() -> u32 { return 1u; }\"\n",
			want:    &Manifest{Name: "tiny", Modules: map[string]string{"lib.wesl": "fn one() -> u32 { return 1u; }"}},
		},
		{name: "unknown field", content: "name: x\nversion: 2\n", errSubstr: "version"},
		{name: "no name", content: "edition: x\n", errSubstr: "no name"},
		{name: "empty", content: "", errSubstr: "empty bundle manifest"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := ParseManifest(strings.NewReader(tt.content))
			if tt.errSubstr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errSubstr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, m)
		})
	}
}

func TestLoadBundle(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteTree(t, dir, map[string]string{
		"noise/bundle.yaml":     "name: noise\nedition: unstable_2025\nsources: src\ndependencies: [../rand, ../shared/bundle.yaml]\n",
		"noise/src/lib.wesl":    "import rand::lib::next;\nfn noise() -> f32 { return next(); }",
		"noise/src/perlin.wesl": "fn perlin() {}",
		"rand/bundle.yaml":      "name: rand\ndependencies: [../shared]\n",
		"rand/lib.wesl":         "fn next() -> f32 { return 0.5; }",
		"shared/bundle.yaml":    "name: shared\ndialect: legacy\nmodules:\n  consts.wgsl: \"#export\\nconst PI = 3.14;\"\n",
	})

	b, err := LoadBundle(context.Background(), filepath.Join(dir, "noise"), Options{})
	require.NoError(t, err)
	assert.Equal(t, "noise", b.Name)
	assert.Equal(t, "unstable_2025", b.Edition)
	assert.Equal(t, []string{"lib.wesl", "perlin.wesl"}, sortedKeys(b.Modules))
	require.Len(t, b.Dependencies, 2)

	rand, shared := b.Dependencies[0], b.Dependencies[1]
	assert.Equal(t, "rand", rand.Name)
	assert.Equal(t, []string{"lib.wesl"}, sortedKeys(rand.Modules))
	assert.Equal(t, grammar.Legacy, shared.Dialect)
	require.Len(t, rand.Dependencies, 1)
	assert.Same(t, shared, rand.Dependencies[0], "a diamond dependency is loaded once")

	r := registry.New(nil)
	require.NoError(t, r.AddBundle(b))
	assert.Equal(t, []string{"noise", "rand", "shared"}, r.Bundles())
	assert.True(t, r.HasModule("noise::perlin"))
	assert.True(t, r.HasModule("shared::consts"))
}

func TestLoadBundle_Errors(t *testing.T) {
	tests := []struct {
		name      string
		files     map[string]string
		errSubstr string
	}{
		{
			name: "cycle",
			files: map[string]string{
				"a/bundle.yaml": "name: a\ndependencies: [../b]\n",
				"b/bundle.yaml": "name: b\ndependencies: [../a]\n",
			},
			errSubstr: "dependency cycle",
		},
		{
			name:      "missing dependency",
			files:     map[string]string{"a/bundle.yaml": "name: a\ndependencies: [../gone]\n"},
			errSubstr: "failed to read bundle manifest",
		},
		{
			name:      "bad dialect",
			files:     map[string]string{"a/bundle.yaml": "name: a\ndialect: hlsl\n"},
			errSubstr: "unknown dialect",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			testutil.WriteTree(t, dir, tt.files)
			_, err := LoadBundle(context.Background(), filepath.Join(dir, "a"), Options{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestLoadBundles_Shared(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteTree(t, dir, map[string]string{
		"a/bundle.yaml":      "name: a\ndependencies: [../common]\n",
		"b/bundle.yaml":      "name: b\ndependencies: [../common]\n",
		"common/bundle.yaml": "name: common\n",
		"common/lib.wesl":    "fn c() {}",
	})

	bundles, err := LoadBundles(context.Background(),
		[]string{filepath.Join(dir, "a"), filepath.Join(dir, "b")}, Options{})
	require.NoError(t, err)
	require.Len(t, bundles, 2)
	assert.Same(t, bundles[0].Dependencies[0], bundles[1].Dependencies[0])

	r := registry.New(nil)
	for _, b := range bundles {
		require.NoError(t, r.AddBundle(b))
	}
	assert.True(t, r.HasModule("common"))
}

func sortedKeys(m map[string]string) []string {
	return slices.Sorted(maps.Keys(m))
}
