// Package grammar parses the extended shader language into ast trees.
//
// The grammar is assembled from combinator parsers once per dialect and is
// safe for concurrent use: all per-parse state lives in the combinator
// Context.
package grammar

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/leapstack-labs/weslink/pkg/ast"
	pc "github.com/leapstack-labs/weslink/pkg/combinator"
	"github.com/leapstack-labs/weslink/pkg/core"
	"github.com/leapstack-labs/weslink/pkg/lexer"
	"github.com/leapstack-labs/weslink/pkg/token"
)

// Dialect selects the module syntax accepted by the parser.
type Dialect int

const (
	// Modern accepts import statements with package::, super:: and
	// brace-delimited collections.
	Modern Dialect = iota
	// Legacy accepts "#import name [as alias] from path" and #export
	// markers instead of import statements.
	Legacy
)

// String returns the dialect name.
func (d Dialect) String() string {
	switch d {
	case Modern:
		return "modern"
	case Legacy:
		return "legacy"
	default:
		return fmt.Sprintf("Dialect(%d)", int(d))
	}
}

// ParseDialect parses a dialect name. The empty string selects Modern.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "modern", "wesl":
		return Modern, nil
	case "legacy":
		return Legacy, nil
	default:
		return Modern, fmt.Errorf("unknown dialect %q (want modern or legacy)", s)
	}
}

// Options configure a parse.
type Options struct {
	Dialect Dialect
	// Logger receives debug diagnostics. Nil discards them.
	Logger *slog.Logger
	// Tracer observes named grammar rules in parsetrace builds.
	Tracer pc.Tracer
}

var (
	modernRules = sync.OnceValue(func() *rules { return build(Modern) })
	legacyRules = sync.OnceValue(func() *rules { return build(Legacy) })
)

func rulesFor(d Dialect) *rules {
	if d == Legacy {
		return legacyRules()
	}
	return modernRules()
}

func newContext(src string, opts Options) *pc.Context {
	ctx := pc.NewContext(lexer.NewWeslStream(src), nil, opts.Logger)
	ctx.Tracer = opts.Tracer
	return ctx
}

// Parse parses one module. Errors are *core.Error of kind ParseError
// attributed to path.
func Parse(src, path string, opts Options) (*ast.Module, error) {
	g := rulesFor(opts.Dialect)
	ctx := newContext(src, opts)

	mod, ok, err := pc.Run(g.module, ctx)
	if err != nil {
		return nil, attribute(err, path)
	}
	if !ok {
		return nil, core.SpanErrorf(core.KindParse, path, token.Span{Start: ctx.PeekStart(), End: ctx.PeekStart()},
			"unexpected input")
	}
	mod.Path = path
	mod.Src = src
	mod.Span = token.Span{Start: 0, End: len(src)}

	ctx.Logger.Debug("parsed module",
		slog.String("path", path),
		slog.String("dialect", opts.Dialect.String()),
		slog.Int("imports", len(mod.Imports)),
		slog.Int("decls", len(mod.Decls)))
	return mod, nil
}

// ParseImport parses a single modern import statement.
func ParseImport(src string) (*ast.ImportStmt, error) {
	g := rulesFor(Modern)
	stmt, ok, err := pc.Run(pc.Terminated(g.importStmt, pc.Req(pc.End(), "expected end of input")), newContext(src, Options{}))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, core.SpanErrorf(core.KindParse, "", token.Span{}, "expected import statement")
	}
	return stmt, nil
}

// ParseExpr parses a single expression, such as a condition.
func ParseExpr(src string) (ast.Expr, error) {
	g := rulesFor(Modern)
	e, ok, err := pc.Run(pc.Terminated(g.expr, pc.Req(pc.End(), "expected end of input")), newContext(src, Options{}))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, core.SpanErrorf(core.KindParse, "", token.Span{}, "expected expression")
	}
	return e, nil
}

func attribute(err error, path string) error {
	if e, ok := core.AsError(err); ok {
		return e.InModule(path)
	}
	return err
}

// rules holds the assembled grammar of one dialect.
type rules struct {
	dialect Dialect

	expr         pc.Parser[ast.Expr]
	unary        pc.Parser[ast.Expr]
	callOrIdent  pc.Parser[ast.Expr]
	typeRef      pc.Parser[ast.Expr]
	templateList pc.Parser[[]ast.Expr]

	attrs   pc.Parser[attrList]
	varDecl pc.Parser[*ast.VarDecl]
	stmt    pc.Parser[ast.Stmt]
	block   pc.Parser[*ast.Block]

	item         pc.Parser[ast.Node]
	importStmt   pc.Parser[*ast.ImportStmt]
	legacyImport pc.Parser[*ast.ImportStmt]
	module       pc.Parser[*ast.Module]
}

func build(d Dialect) *rules {
	g := &rules{dialect: d}
	g.buildExpr()
	g.buildAttrs()
	g.buildStmt()
	g.buildDecls()
	g.buildImports()
	g.buildModule()
	return g
}

// ---------- Token helpers ----------

func sym(text string) pc.Parser[*token.Token] { return pc.KindText(token.Symbol, text) }

func kw(text string) pc.Parser[*token.Token] { return pc.KindText(token.Keyword, text) }

func word(text string) pc.Parser[*token.Token] { return pc.KindText(token.Word, text) }

func syms(texts ...string) pc.Parser[*token.Token] {
	ps := make([]pc.Parser[*token.Token], len(texts))
	for i, t := range texts {
		ps[i] = sym(t)
	}
	return pc.Or(ps...)
}

var nameP = pc.Map(pc.Kind(token.Word), func(t *token.Token) ast.Name {
	return ast.Name{Text: t.Text, Span: t.Span}
})

func asExpr[T ast.Expr](p pc.Parser[T]) pc.Parser[ast.Expr] {
	return pc.Map(p, func(v T) ast.Expr { return v })
}

func asStmt[T ast.Stmt](p pc.Parser[T]) pc.Parser[ast.Stmt] {
	return pc.Map(p, func(v T) ast.Stmt { return v })
}

func info(span token.Span) ast.NodeInfo {
	return ast.NodeInfo{Span: span}
}
