// Package scope builds lexical scopes for each module and binds every
// identifier reference to a local declaration, a module-level declaration
// (possibly in another module) or a builtin.
//
// Lookup order is the scope chain from the point of use outward, then the
// module's resolution map, then the builtin table. Inside a function,
// declarations are visible only after the point where they end, so a later
// redeclaration never captures an earlier reference.
package scope

import (
	"sort"

	"github.com/leapstack-labs/weslink/pkg/ast"
	"github.com/leapstack-labs/weslink/pkg/modpath"
	"github.com/leapstack-labs/weslink/pkg/token"
)

// Kind is the kind of construct that opened a scope.
type Kind int

// Scope kinds.
const (
	ModuleScope Kind = iota + 1
	FunctionScope
	BlockScope
)

func (k Kind) String() string {
	switch k {
	case ModuleScope:
		return "module"
	case FunctionScope:
		return "function"
	case BlockScope:
		return "block"
	default:
		return "unknown"
	}
}

// Local is a declaration inside a function: a parameter or a let, var or
// const statement.
type Local struct {
	Name string
	// Node is the *ast.Param or *ast.VarDecl.
	Node ast.Node
	// Span covers the whole declaration; the name is visible from its end.
	Span token.Span
}

// Scope is a node in a module's scope tree.
type Scope struct {
	Kind     Kind
	Parent   *Scope
	Children []*Scope
	// Node is the construct that opened the scope.
	Node ast.Node

	// locals in declaration order
	locals []*Local

	// globals maps module-level names to their declarations; only set on
	// the module scope
	globals map[string][]ast.Decl
}

func newScope(kind Kind, parent *Scope, node ast.Node) *Scope {
	s := &Scope{Kind: kind, Parent: parent, Node: node}
	if parent != nil {
		parent.Children = append(parent.Children, s)
	}
	return s
}

func (s *Scope) declare(l *Local) {
	s.locals = append(s.locals, l)
}

// Locals returns the scope's own declarations in order.
func (s *Scope) Locals() []*Local {
	return s.locals
}

// Globals returns the module-level names, sorted. Only the module scope has
// any.
func (s *Scope) Globals() []string {
	names := make([]string, 0, len(s.globals))
	for n := range s.globals {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// LookupLocal finds the innermost local called name visible at source
// offset pos: the latest declaration ending at or before pos, searching
// outward through enclosing scopes.
func (s *Scope) LookupLocal(name string, pos int) *Local {
	for sc := s; sc != nil; sc = sc.Parent {
		for i := len(sc.locals) - 1; i >= 0; i-- {
			l := sc.locals[i]
			if l.Name == name && l.Span.End <= pos {
				return l
			}
		}
	}
	return nil
}

// Global identifies a module-level declaration by module path and name.
// Several @if variants may share one Global.
type Global struct {
	Module string
	Name   string
}

func (g Global) String() string {
	return modpath.Join(g.Module, g.Name)
}

// RefKind says what a reference bound to.
type RefKind int

// Reference kinds.
const (
	RefLocal RefKind = iota + 1
	RefGlobal
	RefBuiltin
	// RefUnbound marks a reference that failed to bind inside conditional
	// code. It becomes an error only if the code is linked.
	RefUnbound
)

// Ref is the binding of one identifier.
type Ref struct {
	Kind   RefKind
	Ident  *ast.Ident
	Local  *Local // RefLocal
	Global Global // RefGlobal
	Err    error  // RefUnbound
}
