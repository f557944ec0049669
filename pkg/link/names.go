package link

import (
	"strconv"
	"strings"

	"github.com/leapstack-labs/weslink/pkg/ast"
	"github.com/leapstack-labs/weslink/pkg/modpath"
	"github.com/leapstack-labs/weslink/pkg/scope"
)

// Mangle returns the collision-free name of a declaration: its module path
// segments and name joined by single underscores, with underscores inside
// segments doubled so distinct globals never share a mangled name.
func Mangle(g scope.Global) string {
	segs := append(modpath.Split(g.Module), g.Name)
	for i, s := range segs {
		segs[i] = strings.ReplaceAll(s, "_", "__")
	}
	return strings.Join(segs, "_")
}

// assignNames gives every linked global its output name. Names that occur
// once keep their original spelling. On a collision the root module's
// declaration keeps its name and the others are mangled. Non-root names
// that would capture a referenced builtin are mangled as well.
func (lk *linker) assignNames() {
	rootPath := lk.root.Module.Path
	count := make(map[string]int)
	for _, it := range lk.order {
		if it.g.Name != "" {
			count[it.g.Name]++
		}
	}

	taken := make(map[string]bool)
	for _, it := range lk.order {
		if it.g.Name != "" && it.g.Module == rootPath {
			lk.names[it.g] = it.g.Name
			taken[it.g.Name] = true
		}
	}
	for _, it := range lk.order {
		g := it.g
		if g.Name == "" || g.Module == rootPath {
			continue
		}
		name := g.Name
		if count[name] > 1 || lk.reserved[name] || taken[name] {
			name = Mangle(g)
		}
		name = unique(name, taken)
		lk.names[g] = name
		taken[name] = true
	}
	lk.fixCaptures(taken)
}

// fixCaptures renames non-root globals whose output name would be shadowed
// by a local at a reference written under a different name.
func (lk *linker) fixCaptures(taken map[string]bool) {
	rootPath := lk.root.Module.Path
	for _, it := range lk.order {
		fn, ok := it.decl.(*ast.FnDecl)
		if !ok {
			continue
		}
		locals := localNames(fn)
		if len(locals) == 0 {
			continue
		}
		for _, r := range it.refs {
			out := lk.names[r.Global]
			if r.Global.Module == rootPath || out == r.Ident.Name && len(r.Ident.Path) == 0 {
				continue
			}
			if locals[out] {
				name := unique(Mangle(r.Global), mergeSets(taken, locals))
				lk.names[r.Global] = name
				taken[name] = true
			}
		}
	}
}

func localNames(fn *ast.FnDecl) map[string]bool {
	names := make(map[string]bool)
	for _, p := range fn.Params {
		names[p.Name.Text] = true
	}
	ast.Inspect(fn.Body, func(n ast.Node) bool {
		if v, ok := n.(*ast.VarDecl); ok {
			names[v.Name.Text] = true
		}
		return true
	})
	return names
}

func mergeSets(a, b map[string]bool) map[string]bool {
	out := make(map[string]bool, len(a)+len(b))
	for k := range a {
		out[k] = true
	}
	for k := range b {
		out[k] = true
	}
	return out
}

// unique appends _1, _2, ... to name until it is not taken.
func unique(name string, taken map[string]bool) string {
	if !taken[name] {
		return name
	}
	for i := 1; ; i++ {
		candidate := name + "_" + strconv.Itoa(i)
		if !taken[candidate] {
			return candidate
		}
	}
}
