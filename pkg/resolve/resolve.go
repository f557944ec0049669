// Package resolve expands import trees into per-module resolution maps.
//
// A resolution map binds each locally visible alias to a concrete target:
// either an exported declaration of another module, or a whole module that
// qualified references such as util::helper() go through. Resolution is a
// pure function of the import statements, the importing module's path and
// the registry.
package resolve

import (
	"errors"
	"sort"

	"github.com/leapstack-labs/weslink/pkg/ast"
	"github.com/leapstack-labs/weslink/pkg/core"
	"github.com/leapstack-labs/weslink/pkg/modpath"
	"github.com/leapstack-labs/weslink/pkg/registry"
	"github.com/leapstack-labs/weslink/pkg/token"
)

// Target is what an alias resolves to.
type Target struct {
	// Module is the module path of the target.
	Module string
	// Name is the exported name, or "" when the alias names the module
	// itself.
	Name string
	// Span is the import item that created the binding.
	Span token.Span
}

// IsModule reports whether the target is a whole module.
func (t Target) IsModule() bool {
	return t.Name == ""
}

// Same reports whether two targets denote the same module or declaration.
func (t Target) Same(o Target) bool {
	return t.Module == o.Module && t.Name == o.Name
}

// String renders the target as a module path.
func (t Target) String() string {
	if t.IsModule() {
		return t.Module
	}
	return modpath.Join(t.Module, t.Name)
}

// Map binds local aliases to targets: "helper" → {package::util, helper}
type Map map[string]Target

// Aliases returns the bound aliases, sorted.
func (m Map) Aliases() []string {
	out := make([]string, 0, len(m))
	for a := range m {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// ResolvePath turns import path segments into an absolute module path as
// seen from module current. A leading package segment is replaced by
// current's package; each leading super segment steps from current to its
// parent. Stepping above the package root is an error. Paths without a
// relative prefix are absolute and start with a package or bundle name.
func ResolvePath(segments []string, current string) (string, error) {
	if len(segments) == 0 {
		return "", core.Errorf(core.KindUnresolvedImport, "empty import path")
	}
	switch segments[0] {
	case modpath.Package:
		out := append([]string{modpath.Root(current)}, segments[1:]...)
		return modpath.Join(out...), nil

	case modpath.Super:
		base := modpath.Split(current)
		n := 0
		for n < len(segments) && segments[n] == modpath.Super {
			n++
		}
		// base[0] is the package root and can never be stepped over
		if n >= len(base) {
			return "", core.Errorf(core.KindUnresolvedImport,
				"%d super:: segments step above the package root of %s", n, current)
		}
		out := append(append([]string{}, base[:len(base)-n]...), segments[n:]...)
		return modpath.Join(out...), nil

	default:
		return modpath.Join(segments...), nil
	}
}

// Resolve builds the resolution map for module current from its import
// statements. Each leaf a::b::c binds c (or its alias) to export c of module
// a::b; when a::b does not export c but a::b::c is itself a module, the
// alias binds the module.
func Resolve(imports []*ast.ImportStmt, current string, l registry.Lookup) (Map, error) {
	m := make(Map)
	for _, stmt := range imports {
		for _, leaf := range stmt.Tree.Leaves() {
			t, err := resolveLeaf(leaf, current, l)
			if err != nil {
				return nil, err
			}
			if prev, ok := m[leaf.Alias]; ok && !prev.Same(t) {
				return nil, core.SpanErrorf(core.KindDuplicateBinding, current, leaf.Span,
					"%s imported as both %s and %s", leaf.Alias, prev, t)
			}
			m[leaf.Alias] = t
		}
	}
	return m, nil
}

func resolveLeaf(leaf ast.ImportLeaf, current string, l registry.Lookup) (Target, error) {
	fail := func(format string, args ...any) *core.Error {
		return core.SpanErrorf(core.KindUnresolvedImport, current, leaf.Span, format, args...)
	}

	full, err := ResolvePath(leaf.Path, current)
	if err != nil {
		e, _ := core.AsError(err)
		return Target{}, fail("%s", e.Message)
	}
	prefix := leaf.Path[:len(leaf.Path)-1]
	name := leaf.Path[len(leaf.Path)-1]

	var notFound error
	if len(prefix) > 0 {
		modPath, _ := ResolvePath(prefix, current)
		mod, err := l.GetModule(modPath)
		switch {
		case err == nil:
			if mod.Exported(name) {
				return Target{Module: mod.Path, Name: name, Span: leaf.Span}, nil
			}
			if !l.HasModule(full) {
				if len(mod.Decls(name)) > 0 {
					return Target{}, fail("%s is not exported by %s", name, mod.Path)
				}
				return Target{}, fail("module %s has no declaration %s", mod.Path, name)
			}
		case errors.Is(err, core.ErrModuleNotFound):
			notFound = err
		default:
			return Target{}, err
		}
	}

	mod, err := l.GetModule(full)
	if err != nil {
		if !errors.Is(err, core.ErrModuleNotFound) {
			return Target{}, err
		}
		if notFound == nil {
			notFound = err
		}
		e := fail("no module or export at %s", modpath.Join(leaf.Path...))
		e.Err = notFound
		return Target{}, e
	}
	return Target{Module: mod.Path, Span: leaf.Span}, nil
}
