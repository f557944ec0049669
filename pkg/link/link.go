// Package link flattens a set of modules into one shader text.
//
// Linking starts at a root module, walks resolved references to find every
// reachable declaration, drops elements whose @if condition is false,
// renames declarations whose names would collide, and emits the result with
// a source map back to the original modules.
package link

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/weslink/pkg/ast"
	"github.com/leapstack-labs/weslink/pkg/core"
	"github.com/leapstack-labs/weslink/pkg/modpath"
	"github.com/leapstack-labs/weslink/pkg/registry"
	"github.com/leapstack-labs/weslink/pkg/resolve"
	"github.com/leapstack-labs/weslink/pkg/scope"
	"github.com/leapstack-labs/weslink/pkg/srcmap"
)

// Options configure a link.
type Options struct {
	// Root is the module path of the root module ("package::main") or its
	// source key ("main.wesl").
	Root string

	// Conditions are the values of @if condition names.
	Conditions map[string]bool

	// Constants are exposed as the virtual module constants. Boolean
	// constants also serve as conditions.
	Constants map[string]any

	// EntryPoints name extra declarations to link, as plain names in the
	// root module or as module paths such as package::util::main.
	EntryPoints []string

	// BindingStructs lowers entry-point parameters of binding struct type
	// into separate global resource variables.
	BindingStructs bool

	// Logger receives debug output. Nil discards it.
	Logger *slog.Logger

	// Analyzer reuses bindings across links of the same registry. It is
	// ignored when Constants are set, since those add a module.
	Analyzer *scope.Analyzer
}

// Result is the linked output.
type Result struct {
	Text      string
	SourceMap *srcmap.SourceMap
	// Decls lists the emitted declarations in output order.
	Decls []Emitted
}

// Emitted describes one declaration in the output.
type Emitted struct {
	Module     string
	Name       string
	OutputName string
	// Start and End delimit the declaration in Result.Text.
	Start, End int
}

// item is one declaration selected for output.
type item struct {
	g    scope.Global
	decl ast.Decl
	an   *scope.Analysis
	refs []scope.Ref
}

type linker struct {
	ctx    context.Context
	opts   Options
	lookup registry.Lookup
	an     *scope.Analyzer
	conds  *conditions
	logger *slog.Logger

	root *scope.Analysis

	// order is the emission order: root content first, then first reach
	order []*item

	// items indexes named items by global: {package::util, f} → *item
	items map[scope.Global]*item

	// refCount counts active references per global
	refCount map[scope.Global]int

	// reserved holds builtin names referenced by linked code
	reserved map[string]bool

	// names maps globals to output names
	names map[scope.Global]string

	// modules lists contributing modules in first-contribution order
	modules []*registry.Module

	bindings *bindingPlan
}

// Link links the module tree rooted at opts.Root.
func Link(ctx context.Context, l registry.Lookup, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	an := opts.Analyzer
	if len(opts.Constants) > 0 {
		var err error
		if l, err = WithConstants(l, opts.Constants); err != nil {
			return nil, err
		}
		an = nil
	}
	if an == nil {
		an = scope.NewAnalyzer(l, logger)
	}

	root := opts.Root
	if root == "" {
		return nil, errors.New("link: no root module")
	}
	if !strings.Contains(root, modpath.Sep) {
		root = registry.ModulePath(l.PackageName(), root)
	}

	lk := &linker{
		ctx:      ctx,
		opts:     opts,
		lookup:   l,
		an:       an,
		conds:    newConditions(opts.Conditions, opts.Constants),
		logger:   logger,
		items:    make(map[scope.Global]*item),
		refCount: make(map[scope.Global]int),
		reserved: make(map[string]bool),
		names:    make(map[scope.Global]string),
	}

	var err error
	if lk.root, err = an.Analyze(root); err != nil {
		return nil, err
	}
	if err := lk.reach(); err != nil {
		return nil, err
	}
	if opts.BindingStructs {
		if err := lk.planBindings(); err != nil {
			return nil, err
		}
	}
	lk.assignNames()
	if lk.bindings != nil {
		lk.bindings.name(lk)
	}

	res, err := lk.emit()
	if err != nil {
		return nil, err
	}
	logger.Debug("linked",
		slog.String("root", root),
		slog.Int("decls", len(res.Decls)),
		slog.Int("bytes", len(res.Text)))
	return res, nil
}

// reach collects the declarations reachable from the root module's active
// top-level content and the requested entry points, breadth first.
func (lk *linker) reach() error {
	rootMod := lk.root.Module
	for _, d := range rootMod.AST.Decls {
		ok, err := lk.conds.active(d.Condition(), rootMod.Path)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if d.DeclName() == "" {
			lk.add(&item{g: scope.Global{Module: rootMod.Path}, decl: d, an: lk.root})
			continue
		}
		if err := lk.enqueue(scope.Global{Module: rootMod.Path, Name: d.DeclName()}, nil, ""); err != nil {
			return err
		}
	}
	for _, ep := range lk.opts.EntryPoints {
		g, err := lk.entryPoint(ep)
		if err != nil {
			return err
		}
		if err := lk.enqueue(g, nil, ""); err != nil {
			return err
		}
	}

	for i := 0; i < len(lk.order); i++ {
		if err := lk.ctx.Err(); err != nil {
			return err
		}
		it := lk.order[i]
		refs, err := lk.activeRefs(it)
		if err != nil {
			return err
		}
		it.refs = refs
		for j := range refs {
			r := &refs[j]
			if r.Kind != scope.RefGlobal {
				continue
			}
			lk.refCount[r.Global]++
			if err := lk.enqueue(r.Global, r, it.an.Module.Path); err != nil {
				return err
			}
		}
	}
	lk.logger.Debug("reachability done",
		slog.Int("decls", len(lk.order)),
		slog.Int("modules", len(lk.modules)))
	return nil
}

func (lk *linker) entryPoint(name string) (scope.Global, error) {
	if !strings.Contains(name, modpath.Sep) {
		return scope.Global{Module: lk.root.Module.Path, Name: name}, nil
	}
	segs := modpath.Split(name)
	modPath, err := resolve.ResolvePath(segs[:len(segs)-1], lk.root.Module.Path)
	if err != nil {
		return scope.Global{}, fmt.Errorf("entry point %s: %w", name, err)
	}
	mod, err := lk.lookup.GetModule(modPath)
	if err != nil {
		return scope.Global{}, fmt.Errorf("entry point %s: %w", name, err)
	}
	return scope.Global{Module: mod.Path, Name: segs[len(segs)-1]}, nil
}

func (lk *linker) add(it *item) {
	lk.order = append(lk.order, it)
	for _, m := range lk.modules {
		if m == it.an.Module {
			return
		}
	}
	lk.modules = append(lk.modules, it.an.Module)
}

// enqueue selects the single active declaration of g and schedules it.
// from is the reference that reached g from fromModule, nil for starting
// points.
func (lk *linker) enqueue(g scope.Global, from *scope.Ref, fromModule string) error {
	if _, ok := lk.items[g]; ok {
		return nil
	}
	an, err := lk.an.Analyze(g.Module)
	if err != nil {
		return err
	}

	var chosen ast.Decl
	for _, d := range an.Module.Decls(g.Name) {
		ok, err := lk.conds.active(d.Condition(), g.Module)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if chosen != nil {
			return core.SpanErrorf(core.KindDuplicateBinding, g.Module, d.GetSpan(),
				"%s is declared more than once under the active conditions", g.Name)
		}
		chosen = d
	}

	if chosen == nil {
		msg := "no declaration of %s is active under the given conditions"
		if len(an.Module.Decls(g.Name)) == 0 {
			msg = "no declaration %s"
		}
		if from != nil {
			return core.SpanErrorf(core.KindUnboundIdentifier, fromModule, from.Ident.RefSpan, msg, g)
		}
		e := core.Errorf(core.KindUnboundIdentifier, msg, g)
		e.Module = g.Module
		return e
	}

	it := &item{g: g, decl: chosen, an: an}
	lk.items[g] = it
	lk.add(it)
	return nil
}

// activeRefs returns the references of an item outside inactive members
// and statements. An unbound reference in active code is fatal.
func (lk *linker) activeRefs(it *item) ([]scope.Ref, error) {
	var (
		refs []scope.Ref
		err  error
	)
	mod := it.an.Module.Path
	ast.Inspect(it.decl, func(n ast.Node) bool {
		if err != nil {
			return false
		}
		switch n := n.(type) {
		case *ast.IfAttr:
			return false
		case *ast.Member:
			var ok bool
			ok, err = lk.conds.active(n.If, mod)
			return ok && err == nil
		case *ast.CondStmt:
			var ok bool
			ok, err = lk.conds.active(n.If, mod)
			return ok && err == nil
		case *ast.Ident:
			r, found := it.an.Refs[n]
			if !found {
				return true
			}
			switch r.Kind {
			case scope.RefUnbound:
				err = r.Err
				return false
			case scope.RefGlobal:
				refs = append(refs, r)
			case scope.RefBuiltin:
				lk.reserved[n.Name] = true
			}
		}
		return true
	})
	return refs, err
}
