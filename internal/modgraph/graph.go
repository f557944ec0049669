// Package modgraph builds the dependency graph between modules: which
// modules a module imports or references, and which modules depend on it.
// Unlike a build graph it allows cycles, since modules may import each other.
package modgraph

import (
	"fmt"
	"slices"
	"sort"

	"github.com/leapstack-labs/weslink/pkg/scope"
)

// Graph is a directed graph of module paths. An edge from a to b means a
// depends on b.
type Graph struct {
	nodes      map[string]bool
	deps       map[string][]string // module -> modules it uses
	dependents map[string][]string // module -> modules using it
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:      make(map[string]bool),
		deps:       make(map[string][]string),
		dependents: make(map[string][]string),
	}
}

// Build analyzes every path and records the modules each one imports or
// references through a qualified name.
func Build(an *scope.Analyzer, paths []string) (*Graph, error) {
	g := NewGraph()
	for _, p := range paths {
		g.AddModule(p)
	}
	for _, p := range paths {
		a, err := an.Analyze(p)
		if err != nil {
			return nil, err
		}
		for _, t := range a.Imports {
			g.AddModule(t.Module)
			if err := g.AddDependency(p, t.Module); err != nil {
				return nil, err
			}
		}
		for _, ref := range a.Refs {
			if ref.Kind != scope.RefGlobal {
				continue
			}
			g.AddModule(ref.Global.Module)
			if err := g.AddDependency(p, ref.Global.Module); err != nil {
				return nil, err
			}
		}
	}
	for id := range g.deps {
		sort.Strings(g.deps[id])
	}
	for id := range g.dependents {
		sort.Strings(g.dependents[id])
	}
	return g, nil
}

// AddModule adds a module if it is not present yet.
func (g *Graph) AddModule(path string) {
	g.nodes[path] = true
}

// AddDependency records that from uses to. References of a module to its
// own declarations are not edges.
func (g *Graph) AddDependency(from, to string) error {
	if !g.nodes[from] {
		return fmt.Errorf("module %q is not in the graph", from)
	}
	if !g.nodes[to] {
		return fmt.Errorf("module %q is not in the graph", to)
	}
	if from == to {
		return nil
	}
	if !slices.Contains(g.deps[from], to) {
		g.deps[from] = append(g.deps[from], to)
	}
	if !slices.Contains(g.dependents[to], from) {
		g.dependents[to] = append(g.dependents[to], from)
	}
	return nil
}

// Has reports whether path is in the graph.
func (g *Graph) Has(path string) bool {
	return g.nodes[path]
}

// Dependencies returns the modules path uses directly.
func (g *Graph) Dependencies(path string) []string {
	return g.deps[path]
}

// Dependents returns the modules using path directly.
func (g *Graph) Dependents(path string) []string {
	return g.dependents[path]
}

// Modules returns every module path, sorted.
func (g *Graph) Modules() []string {
	out := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// EdgeCount returns the number of dependency edges.
func (g *Graph) EdgeCount() int {
	n := 0
	for _, d := range g.deps {
		n += len(d)
	}
	return n
}

// FindCycle returns one import cycle as a path that starts and ends with
// the same module, or nil.
func (g *Graph) FindCycle() []string {
	visited := make(map[string]bool)
	onStack := make(map[string]bool)
	parent := make(map[string]string)

	var cycle []string
	var dfs func(id string) bool
	dfs = func(id string) bool {
		visited[id] = true
		onStack[id] = true
		for _, next := range g.deps[id] {
			if !visited[next] {
				parent[next] = id
				if dfs(next) {
					return true
				}
			} else if onStack[next] {
				cycle = []string{next}
				for cur := id; cur != next; cur = parent[cur] {
					cycle = append([]string{cur}, cycle...)
				}
				cycle = append([]string{next}, cycle...)
				return true
			}
		}
		onStack[id] = false
		return false
	}

	for _, id := range g.Modules() {
		if !visited[id] && dfs(id) {
			return cycle
		}
	}
	return nil
}

// Upstream returns every module path depends on, directly or not,
// excluding path itself.
func (g *Graph) Upstream(path string) []string {
	seen := map[string]bool{path: true}
	var visit func(id string)
	visit = func(id string) {
		for _, dep := range g.deps[id] {
			if !seen[dep] {
				seen[dep] = true
				visit(dep)
			}
		}
	}
	visit(path)
	delete(seen, path)
	return sortedKeys(seen)
}

// Affected returns the changed modules and every module depending on them,
// directly or not. Paths not in the graph are ignored.
func (g *Graph) Affected(changed []string) []string {
	affected := make(map[string]bool)
	var mark func(id string)
	mark = func(id string) {
		if affected[id] {
			return
		}
		affected[id] = true
		for _, d := range g.dependents[id] {
			mark(d)
		}
	}
	for _, id := range changed {
		if g.nodes[id] {
			mark(id)
		}
	}
	return sortedKeys(affected)
}

// Roots returns modules no other module depends on.
func (g *Graph) Roots() []string {
	var roots []string
	for _, id := range g.Modules() {
		if len(g.dependents[id]) == 0 {
			roots = append(roots, id)
		}
	}
	return roots
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
