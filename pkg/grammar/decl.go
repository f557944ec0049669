package grammar

import (
	"strings"

	"github.com/leapstack-labs/weslink/pkg/ast"
	pc "github.com/leapstack-labs/weslink/pkg/combinator"
	"github.com/leapstack-labs/weslink/pkg/token"
)

// attrList is a parsed attribute run, with @if split out.
type attrList struct {
	If    *ast.IfAttr
	Attrs []*ast.Attribute
}

type attrTags struct {
	ifs   []*ast.IfAttr
	attrs []*ast.Attribute
}

func (g *rules) buildAttrs() {
	ifAttr := pc.Map(pc.WithSpan(pc.Preceded(pc.Seq2(sym("@"), kw("if")),
		pc.Delimited(
			pc.Req(sym("("), "expected '(' after @if"),
			pc.Req(g.expr, "expected condition"),
			pc.Seq2(pc.Opt(sym(",")), pc.Req(sym(")"), "expected ')' closing @if")),
		))),
		func(r pc.Spanned[ast.Expr]) *ast.IfAttr {
			return &ast.IfAttr{NodeInfo: info(r.Span), Cond: r.Value}
		})

	attrArgs := pc.Delimited(sym("("), pc.List(g.expr, sym(",")),
		pc.Req(sym(")"), "expected ')' closing attribute arguments"))
	attribute := pc.Map(pc.WithSpan(pc.Seq2(
		pc.Preceded(sym("@"), pc.Req(pc.Or(pc.Kind(token.Word), pc.Kind(token.Keyword)), "expected attribute name")),
		pc.Opt(attrArgs),
	)), func(r pc.Spanned[pc.Pair[*token.Token, []ast.Expr]]) *ast.Attribute {
		return &ast.Attribute{NodeInfo: info(r.Span), Name: r.Value.First.Text, Args: r.Value.Second}
	})

	collect := pc.Tagged(
		pc.Many(pc.Or(pc.Erase(pc.Tag("if", ifAttr)), pc.Erase(pc.Tag("attr", attribute)))),
		func(_ []any, tags pc.Tags) attrTags {
			return attrTags{
				ifs:   pc.All[*ast.IfAttr](tags, "if"),
				attrs: pc.All[*ast.Attribute](tags, "attr"),
			}
		})
	g.attrs = pc.Named("attributes", pc.MapCtx(collect, func(ctx *pc.Context, t attrTags) (attrList, bool) {
		if len(t.ifs) > 1 {
			ctx.FailAt(t.ifs[1].Span, "duplicate @if attribute")
		}
		out := attrList{Attrs: t.attrs}
		if len(t.ifs) == 1 {
			out.If = t.ifs[0]
		}
		return out, true
	}))
}

func (g *rules) buildDecls() {
	semi := pc.Req(sym(";"), "expected ';'")

	param := pc.Map(pc.WithSpan(pc.Seq3(
		g.attrs,
		nameP,
		pc.Preceded(pc.Req(sym(":"), "expected ':' after parameter name"), pc.Req(g.typeRef, "expected parameter type")),
	)), func(r pc.Spanned[pc.Triple[attrList, ast.Name, ast.Expr]]) *ast.Param {
		return &ast.Param{NodeInfo: info(r.Span), Attrs: r.Value.First.Attrs, Name: r.Value.Second, Type: r.Value.Third}
	})
	returnType := pc.Preceded(sym("->"), pc.Seq2(g.attrs, pc.Req(g.typeRef, "expected return type")))

	fn := pc.Tagged(pc.Seq(
		pc.Erase(kw("fn")),
		pc.Erase(pc.Tag("name", pc.Req(nameP, "expected function name"))),
		pc.Erase(pc.Req(sym("("), "expected '('")),
		pc.Erase(pc.Tag("params", pc.List(param, sym(",")))),
		pc.Erase(pc.Req(sym(")"), "expected ')' closing parameters")),
		pc.Erase(pc.Opt(pc.Tag("ret", returnType))),
		pc.Erase(pc.Tag("body", pc.Req(g.block, "expected function body"))),
	), func(_ []any, tags pc.Tags) ast.Node {
		d := &ast.FnDecl{}
		d.Name, _ = pc.First[ast.Name](tags, "name")
		d.Params, _ = pc.First[[]*ast.Param](tags, "params")
		if ret, ok := pc.First[pc.Pair[attrList, ast.Expr]](tags, "ret"); ok {
			d.ReturnAttrs = ret.First.Attrs
			d.ReturnType = ret.Second
		}
		d.Body, _ = pc.First[*ast.Block](tags, "body")
		return d
	})

	member := pc.Map(pc.WithSpan(pc.Seq3(
		g.attrs,
		nameP,
		pc.Preceded(pc.Req(sym(":"), "expected ':' after member name"), pc.Req(g.typeRef, "expected member type")),
	)), func(r pc.Spanned[pc.Triple[attrList, ast.Name, ast.Expr]]) *ast.Member {
		return &ast.Member{
			NodeInfo: info(r.Span),
			Attrs:    r.Value.First.Attrs,
			If:       r.Value.First.If,
			Name:     r.Value.Second,
			Type:     r.Value.Third,
		}
	})
	structDecl := pc.Map(pc.Seq2(
		pc.Preceded(kw("struct"), pc.Req(nameP, "expected struct name")),
		pc.Delimited(
			pc.Req(sym("{"), "expected '{'"),
			pc.List(member, sym(",")),
			pc.Req(sym("}"), "expected '}' closing struct"),
		),
	), func(r pc.Pair[ast.Name, []*ast.Member]) ast.Node {
		return &ast.StructDecl{Name: r.First, Members: r.Second}
	})

	globalVar := pc.Map(pc.Terminated(g.varDecl, semi), func(d *ast.VarDecl) ast.Node { return d })

	alias := pc.Map(pc.Terminated(pc.Seq2(
		pc.Preceded(kw("alias"), pc.Req(nameP, "expected alias name")),
		pc.Preceded(pc.Req(sym("="), "expected '='"), pc.Req(g.typeRef, "expected aliased type")),
	), semi), func(r pc.Pair[ast.Name, ast.Expr]) ast.Node {
		return &ast.AliasDecl{Name: r.First, Type: r.Second}
	})

	constAssert := pc.Map(pc.Terminated(pc.Preceded(kw("const_assert"), pc.Req(g.expr, "expected expression")), semi),
		func(e ast.Expr) ast.Node { return &ast.ConstAssert{Expr: e} })

	rawArgs := pc.Many(pc.Preceded(pc.Not(sym(";")), pc.Any()))
	directive := pc.Map(pc.Seq2(
		pc.Or(kw("enable"), kw("requires"), kw("diagnostic")),
		pc.Terminated(rawArgs, semi),
	), func(r pc.Pair[*token.Token, []*token.Token]) ast.Node {
		return &ast.Directive{Keyword: r.First.Text, Args: directiveArgs(r.Second)}
	})

	body := pc.Or(fn, structDecl, globalVar, alias, constAssert, directive)
	g.item = pc.Named("declaration", pc.Map(pc.WithSpan(pc.Seq2(g.attrs, body)),
		func(r pc.Spanned[pc.Pair[attrList, ast.Node]]) ast.Node {
			attach(r.Value.Second, r.Value.First, r.Span)
			return r.Value.Second
		}))
}

// attach sets the attributes and full span of a top-level item.
func attach(n ast.Node, a attrList, span token.Span) {
	switch n := n.(type) {
	case *ast.FnDecl:
		n.Attrs, n.If, n.Span = a.Attrs, a.If, span
	case *ast.StructDecl:
		n.Attrs, n.If, n.Span = a.Attrs, a.If, span
	case *ast.VarDecl:
		n.Attrs, n.If, n.Span = a.Attrs, a.If, span
	case *ast.AliasDecl:
		n.Attrs, n.If, n.Span = a.Attrs, a.If, span
	case *ast.ConstAssert:
		n.Attrs, n.If, n.Span = a.Attrs, a.If, span
	case *ast.Directive:
		n.If, n.Span = a.If, span
	default:
		ast.Unreachable(n)
	}
}

func setExported(d ast.Decl, exported bool) {
	switch d := d.(type) {
	case *ast.FnDecl:
		d.Exported = exported
	case *ast.StructDecl:
		d.Exported = exported
	case *ast.VarDecl:
		d.Exported = exported
	case *ast.AliasDecl:
		d.Exported = exported
	case *ast.ConstAssert:
	default:
		ast.Unreachable(d)
	}
}

// directiveArgs splits directive tokens on top-level commas, dropping the
// parentheses of diagnostic(severity, rule).
func directiveArgs(toks []*token.Token) []string {
	var (
		out   []string
		cur   strings.Builder
		depth int
	)
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
	}
	for _, t := range toks {
		switch {
		case t.Text == "(":
			depth++
			if depth == 1 {
				continue
			}
		case t.Text == ")":
			depth--
			if depth == 0 {
				continue
			}
		case t.Text == "," && depth <= 1:
			flush()
			continue
		}
		cur.WriteString(t.Text)
	}
	flush()
	return out
}

func (g *rules) buildModule() {
	end := pc.End()
	empty := sym(";")
	exportMark := pc.Preceded(pc.KindText(token.Directive, "#export"),
		pc.Opt(pc.Delimited(sym("("), pc.List(pc.Kind(token.Word), sym(",")), pc.Req(sym(")"), "expected ')'"))))
	moduleMark := pc.Preceded(pc.KindText(token.Directive, "#module"), pc.Req(legacyPath, "expected module name"))

	g.module = pc.New(func(ctx *pc.Context) (*ast.Module, bool) {
		mod := &ast.Module{}
		for {
			if _, ok := end.Parse(ctx); ok {
				return mod, true
			}
			if _, ok := empty.Parse(ctx); ok {
				continue
			}

			exported := false
			switch g.dialect {
			case Modern:
				if imp, ok := g.importStmt.Parse(ctx); ok {
					mod.Imports = append(mod.Imports, imp)
					continue
				}
			case Legacy:
				if imp, ok := g.legacyImport.Parse(ctx); ok {
					mod.Imports = append(mod.Imports, imp)
					continue
				}
				if _, ok := moduleMark.Parse(ctx); ok {
					continue
				}
				exported, _ = pc.Present(exportMark).Parse(ctx)
			}

			item, ok := g.item.Parse(ctx)
			if !ok {
				if tok := ctx.Peek(); tok != nil && tok.Kind == token.Directive {
					ctx.Fail("unsupported directive in %s dialect", g.dialect)
				}
				ctx.Fail("expected declaration")
			}
			switch item := item.(type) {
			case *ast.Directive:
				mod.Directives = append(mod.Directives, item)
			case ast.Decl:
				setExported(item, exported)
				mod.Decls = append(mod.Decls, item)
			default:
				ast.Unreachable(item)
			}
		}
	})
}
