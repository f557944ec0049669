package scope

import (
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/leapstack-labs/weslink/pkg/ast"
	"github.com/leapstack-labs/weslink/pkg/core"
	"github.com/leapstack-labs/weslink/pkg/modpath"
	"github.com/leapstack-labs/weslink/pkg/registry"
	"github.com/leapstack-labs/weslink/pkg/resolve"
)

// Analysis is the bound form of one module. It is immutable once returned.
type Analysis struct {
	Module  *registry.Module
	Imports resolve.Map
	// Root is the module scope; function scopes hang below it.
	Root *Scope
	// Refs binds every identifier reference of the module.
	Refs map[*ast.Ident]Ref
}

// Ref returns the binding of id.
func (a *Analysis) Ref(id *ast.Ident) (Ref, bool) {
	r, ok := a.Refs[id]
	return r, ok
}

// Analyzer binds modules of a registry, memoizing one Analysis per module
// path. It is safe for concurrent use.
type Analyzer struct {
	lookup registry.Lookup
	logger *slog.Logger

	mu sync.RWMutex

	// done caches completed analyses: "package::util" → *Analysis
	done map[string]*Analysis

	// failed caches analysis errors by module path
	failed map[string]error

	group singleflight.Group
}

// NewAnalyzer creates an analyzer over l. A nil logger discards output.
func NewAnalyzer(l registry.Lookup, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Analyzer{
		lookup: l,
		logger: logger,
		done:   make(map[string]*Analysis),
		failed: make(map[string]error),
	}
}

// Lookup returns the module lookup the analyzer binds against.
func (a *Analyzer) Lookup() registry.Lookup {
	return a.lookup
}

// Analyze returns the analysis of the module at path.
func (a *Analyzer) Analyze(path string) (*Analysis, error) {
	a.mu.RLock()
	if an, ok := a.done[path]; ok {
		a.mu.RUnlock()
		return an, nil
	}
	if err, ok := a.failed[path]; ok {
		a.mu.RUnlock()
		return nil, err
	}
	a.mu.RUnlock()

	v, err, _ := a.group.Do(path, func() (any, error) {
		a.mu.RLock()
		an, done := a.done[path]
		prev, failed := a.failed[path]
		a.mu.RUnlock()
		if done {
			return an, nil
		}
		if failed {
			return nil, prev
		}

		an, err := a.analyze(path)

		a.mu.Lock()
		defer a.mu.Unlock()
		if err != nil {
			a.failed[path] = err
			return nil, err
		}
		a.done[path] = an
		return an, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Analysis), nil
}

func (a *Analyzer) analyze(path string) (*Analysis, error) {
	mod, err := a.lookup.GetModule(path)
	if err != nil {
		return nil, err
	}
	imports, err := resolve.Resolve(mod.AST.Imports, mod.Path, a.lookup)
	if err != nil {
		return nil, err
	}

	b := &binder{
		lookup:  a.lookup,
		mod:     mod,
		imports: imports,
		refs:    make(map[*ast.Ident]Ref),
	}
	root, err := b.bindModule()
	if err != nil {
		return nil, err
	}
	a.logger.Debug("analyzed module",
		slog.String("module", mod.Path),
		slog.Int("imports", len(imports)),
		slog.Int("refs", len(b.refs)))

	return &Analysis{Module: mod, Imports: imports, Root: root, Refs: b.refs}, nil
}

// binder walks one module, building scopes and binding references in a
// single pass.
type binder struct {
	lookup  registry.Lookup
	mod     *registry.Module
	imports resolve.Map
	refs    map[*ast.Ident]Ref
	root    *Scope

	// conditional counts enclosing @if attributes
	conditional int
	err         error
}

func (b *binder) bindModule() (*Scope, error) {
	b.root = newScope(ModuleScope, nil, b.mod.AST)
	b.root.globals = make(map[string][]ast.Decl)
	for _, d := range b.mod.AST.Decls {
		if name := d.DeclName(); name != "" {
			b.root.globals[name] = append(b.root.globals[name], d)
		}
	}
	for _, alias := range b.imports.Aliases() {
		if decls, ok := b.root.globals[alias]; ok {
			t := b.imports[alias]
			return nil, core.SpanErrorf(core.KindDuplicateBinding, b.mod.Path, decls[0].GetSpan(),
				"%s is both declared here and imported from %s", alias, t)
		}
	}

	for _, d := range b.mod.AST.Decls {
		b.decl(d)
		if b.err != nil {
			return nil, b.err
		}
	}
	return b.root, nil
}

func (b *binder) enterIf(attr *ast.IfAttr) func() {
	if attr == nil {
		return func() {}
	}
	b.conditional++
	return func() { b.conditional-- }
}

func (b *binder) attrs(sc *Scope, attrs []*ast.Attribute) {
	for _, a := range attrs {
		if skipAttrs[a.Name] {
			continue
		}
		for _, arg := range a.Args {
			b.expr(sc, arg)
		}
	}
}

func (b *binder) decl(d ast.Decl) {
	defer b.enterIf(d.Condition())()

	switch d := d.(type) {
	case *ast.FnDecl:
		b.attrs(b.root, d.Attrs)
		fs := newScope(FunctionScope, b.root, d)
		for _, p := range d.Params {
			b.attrs(b.root, p.Attrs)
			b.expr(b.root, p.Type)
			fs.declare(&Local{Name: p.Name.Text, Node: p, Span: p.Span})
		}
		b.attrs(b.root, d.ReturnAttrs)
		b.expr(b.root, d.ReturnType)
		if d.Body != nil {
			b.block(fs, d.Body)
		}

	case *ast.StructDecl:
		b.attrs(b.root, d.Attrs)
		for _, m := range d.Members {
			done := b.enterIf(m.If)
			b.attrs(b.root, m.Attrs)
			b.expr(b.root, m.Type)
			done()
		}

	case *ast.VarDecl:
		b.attrs(b.root, d.Attrs)
		b.exprs(b.root, d.Template)
		b.expr(b.root, d.Type)
		b.expr(b.root, d.Init)

	case *ast.AliasDecl:
		b.attrs(b.root, d.Attrs)
		b.expr(b.root, d.Type)

	case *ast.ConstAssert:
		b.expr(b.root, d.Expr)

	default:
		ast.Unreachable(d)
	}
}

func (b *binder) block(parent *Scope, blk *ast.Block) {
	sc := newScope(BlockScope, parent, blk)
	for _, s := range blk.Stmts {
		b.stmt(sc, s)
	}
}

//nolint:gocyclo // one case per statement variant
func (b *binder) stmt(sc *Scope, s ast.Stmt) {
	if s == nil {
		return
	}
	switch s := s.(type) {
	case *ast.Block:
		b.block(sc, s)

	case *ast.CondStmt:
		done := b.enterIf(s.If)
		b.stmt(sc, s.Stmt)
		done()

	case *ast.VarDecl:
		b.attrs(sc, s.Attrs)
		b.exprs(sc, s.Template)
		b.expr(sc, s.Type)
		b.expr(sc, s.Init)
		sc.declare(&Local{Name: s.Name.Text, Node: s, Span: s.Span})

	case *ast.ConstAssert:
		b.expr(sc, s.Expr)

	case *ast.IfStmt:
		b.expr(sc, s.Cond)
		b.block(sc, s.Then)
		b.stmt(sc, s.Else)

	case *ast.ForStmt:
		header := newScope(BlockScope, sc, s)
		b.stmt(header, s.Init)
		b.expr(header, s.Cond)
		b.stmt(header, s.Update)
		b.block(header, s.Body)

	case *ast.WhileStmt:
		b.expr(sc, s.Cond)
		b.block(sc, s.Body)

	case *ast.LoopStmt:
		// continuing sees the loop body's declarations
		body := newScope(BlockScope, sc, s.Body)
		for _, st := range s.Body.Stmts {
			b.stmt(body, st)
		}
		if s.Continuing != nil {
			cont := newScope(BlockScope, body, s.Continuing)
			for _, st := range s.Continuing.Stmts {
				b.stmt(cont, st)
			}
			b.expr(cont, s.BreakIf)
		}

	case *ast.SwitchStmt:
		b.expr(sc, s.Expr)
		for _, c := range s.Clauses {
			b.exprs(sc, c.Selectors)
			b.block(sc, c.Body)
		}

	case *ast.ReturnStmt:
		b.expr(sc, s.Value)

	case *ast.AssignStmt:
		b.expr(sc, s.LHS)
		b.expr(sc, s.RHS)

	case *ast.IncDecStmt:
		b.expr(sc, s.Target)

	case *ast.CallStmt:
		b.expr(sc, s.Call)

	case *ast.BreakStmt, *ast.ContinueStmt, *ast.DiscardStmt, *ast.EmptyStmt:

	default:
		ast.Unreachable(s)
	}
}

func (b *binder) exprs(sc *Scope, es []ast.Expr) {
	for _, e := range es {
		b.expr(sc, e)
	}
}

func (b *binder) expr(sc *Scope, e ast.Node) {
	if e == nil || b.err != nil {
		return
	}
	ast.Inspect(e, func(n ast.Node) bool {
		if id, ok := n.(*ast.Ident); ok {
			b.bind(sc, id)
		}
		return b.err == nil
	})
}

func (b *binder) bind(sc *Scope, id *ast.Ident) {
	ref, err := b.lookupRef(sc, id)
	if err != nil {
		if b.conditional == 0 {
			b.err = err
			return
		}
		ref = Ref{Kind: RefUnbound, Ident: id, Err: err}
	}
	b.refs[id] = ref
}

func (b *binder) unbound(id *ast.Ident, cause error, format string, args ...any) error {
	e := core.SpanErrorf(core.KindUnboundIdentifier, b.mod.Path, id.RefSpan, format, args...)
	e.Err = cause
	return e
}

func (b *binder) lookupRef(sc *Scope, id *ast.Ident) (Ref, error) {
	if len(id.Path) > 0 {
		return b.qualified(id)
	}

	if l := sc.LookupLocal(id.Name, id.RefSpan.Start); l != nil {
		return Ref{Kind: RefLocal, Ident: id, Local: l}, nil
	}
	if _, ok := b.root.globals[id.Name]; ok {
		return Ref{Kind: RefGlobal, Ident: id, Global: Global{Module: b.mod.Path, Name: id.Name}}, nil
	}
	if t, ok := b.imports[id.Name]; ok {
		if t.IsModule() {
			return Ref{}, b.unbound(id, nil, "%s names module %s, not a declaration", id.Name, t.Module)
		}
		return Ref{Kind: RefGlobal, Ident: id, Global: Global{Module: t.Module, Name: t.Name}}, nil
	}
	if IsBuiltin(id.Name) {
		return Ref{Kind: RefBuiltin, Ident: id}, nil
	}
	return Ref{}, b.unbound(id, nil, "unresolved identifier %s", id.Name)
}

// qualified binds a::b::name. The first segment may be a module alias from
// the resolution map; otherwise the path is resolved like an import path.
func (b *binder) qualified(id *ast.Ident) (Ref, error) {
	var modPath string
	if t, ok := b.imports[id.Path[0]]; ok && t.IsModule() {
		modPath = modpath.Join(append([]string{t.Module}, id.Path[1:]...)...)
	} else {
		p, err := resolve.ResolvePath(id.Path, b.mod.Path)
		if err != nil {
			return Ref{}, b.unbound(id, err, "cannot resolve %s", id.FullName())
		}
		modPath = p
	}

	mod, err := b.lookup.GetModule(modPath)
	switch {
	case errors.Is(err, core.ErrModuleNotFound):
		return Ref{}, b.unbound(id, err, "no module %s for %s", modPath, id.FullName())
	case err != nil:
		return Ref{}, err
	}
	if mod.Path == b.mod.Path {
		if _, ok := b.root.globals[id.Name]; ok {
			return Ref{Kind: RefGlobal, Ident: id, Global: Global{Module: mod.Path, Name: id.Name}}, nil
		}
	}
	if !mod.Exported(id.Name) {
		return Ref{}, b.unbound(id, nil, "module %s does not export %s", mod.Path, id.Name)
	}
	return Ref{Kind: RefGlobal, Ident: id, Global: Global{Module: mod.Path, Name: id.Name}}, nil
}
