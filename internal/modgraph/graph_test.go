package modgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/weslink/pkg/core"
	"github.com/leapstack-labs/weslink/pkg/registry"
	"github.com/leapstack-labs/weslink/pkg/scope"
)

func build(t *testing.T, sources map[string]string) *Graph {
	t.Helper()
	reg := registry.New(sources)
	g, err := Build(scope.NewAnalyzer(reg, nil), reg.Paths())
	require.NoError(t, err)
	return g
}

func TestGraph_AddDependency(t *testing.T) {
	g := NewGraph()
	g.AddModule("a")
	g.AddModule("b")

	require.NoError(t, g.AddDependency("a", "b"))
	require.NoError(t, g.AddDependency("a", "b"))
	require.NoError(t, g.AddDependency("a", "a"))
	assert.Equal(t, []string{"b"}, g.Dependencies("a"))
	assert.Equal(t, []string{"a"}, g.Dependents("b"))
	assert.Equal(t, 1, g.EdgeCount())

	assert.Error(t, g.AddDependency("a", "missing"))
	assert.Error(t, g.AddDependency("missing", "a"))
	assert.True(t, g.Has("a"))
	assert.False(t, g.Has("missing"))
}

func TestBuild(t *testing.T) {
	g := build(t, map[string]string{
		"main.wesl":       "import package::lights::shade;\nfn main() { shade(); package::util::math::clamp01(); }",
		"lights.wesl":     "import package::util::math::clamp01;\nfn shade() { clamp01(); }",
		"util/math.wesl":  "fn clamp01() {}",
		"standalone.wesl": "fn alone() {}",
	})

	tests := []struct {
		module     string
		deps       []string
		dependents []string
	}{
		{"package::main", []string{"package::lights", "package::util::math"}, nil},
		{"package::lights", []string{"package::util::math"}, []string{"package::main"}},
		{"package::util::math", nil, []string{"package::lights", "package::main"}},
		{"package::standalone", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.module, func(t *testing.T) {
			assert.Equal(t, tt.deps, g.Dependencies(tt.module))
			assert.Equal(t, tt.dependents, g.Dependents(tt.module))
		})
	}

	assert.Equal(t, []string{"package::lights", "package::main", "package::standalone", "package::util::math"}, g.Modules())
	assert.Equal(t, []string{"package::main", "package::standalone"}, g.Roots())
	assert.Nil(t, g.FindCycle())
}

func TestBuild_Error(t *testing.T) {
	reg := registry.New(map[string]string{"main.wesl": "fn main() { return missing; }"})
	_, err := Build(scope.NewAnalyzer(reg, nil), reg.Paths())
	assert.ErrorIs(t, err, core.ErrUnboundIdentifier)
}

func TestGraph_Upstream(t *testing.T) {
	g := build(t, map[string]string{
		"main.wesl":  "import package::a::f;\nfn main() { f(); }",
		"a.wesl":     "import package::b::g;\nfn f() { g(); }",
		"b.wesl":     "fn g() {}",
		"other.wesl": "import package::b::g;\nfn h() { g(); }",
	})

	assert.Equal(t, []string{"package::a", "package::b"}, g.Upstream("package::main"))
	assert.Equal(t, []string{"package::b"}, g.Upstream("package::other"))
	assert.Empty(t, g.Upstream("package::b"))
}

func TestGraph_Affected(t *testing.T) {
	g := build(t, map[string]string{
		"main.wesl":  "import package::a::f;\nfn main() { f(); }",
		"a.wesl":     "import package::b::g;\nfn f() { g(); }",
		"b.wesl":     "fn g() {}",
		"other.wesl": "fn h() {}",
	})

	tests := []struct {
		name    string
		changed []string
		want    []string
	}{
		{"leaf", []string{"package::b"}, []string{"package::a", "package::b", "package::main"}},
		{"root", []string{"package::main"}, []string{"package::main"}},
		{"unrelated", []string{"package::other"}, []string{"package::other"}},
		{"unknown", []string{"package::nope"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, g.Affected(tt.changed))
		})
	}
}

func TestGraph_FindCycle(t *testing.T) {
	g := build(t, map[string]string{
		"a.wesl": "import package::b::g;\nfn f() { g(); }",
		"b.wesl": "import package::c::h;\nfn g() { h(); }",
		"c.wesl": "import package::a::f;\nfn h() { f(); }",
	})

	assert.Equal(t, []string{"package::a", "package::b", "package::c", "package::a"}, g.FindCycle())
	assert.Empty(t, g.Roots())
}
