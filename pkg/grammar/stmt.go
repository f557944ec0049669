package grammar

import (
	"github.com/leapstack-labs/weslink/pkg/ast"
	pc "github.com/leapstack-labs/weslink/pkg/combinator"
	"github.com/leapstack-labs/weslink/pkg/token"
)

type continuingPart struct {
	block   *ast.Block
	breakIf ast.Expr
}

//nolint:funlen // one rule per statement form
func (g *rules) buildStmt() {
	stmt := pc.Deferred[ast.Stmt]()
	block := pc.Deferred[*ast.Block]()
	g.stmt = pc.Named("statement", stmt.Parser())
	g.block = pc.Named("block", block.Parser())

	semi := pc.Req(sym(";"), "expected ';'")
	rbrace := pc.Req(sym("}"), "expected '}'")
	lbrace := pc.Req(sym("{"), "expected '{'")
	body := pc.Req(g.block, "expected '{'")

	block.Set(pc.Map(pc.WithSpan(pc.Delimited(sym("{"), pc.Many(g.stmt), rbrace)),
		func(r pc.Spanned[[]ast.Stmt]) *ast.Block {
			return &ast.Block{NodeInfo: info(r.Span), Stmts: r.Value}
		}))

	g.varDecl = pc.Tagged(pc.Seq(
		pc.Erase(pc.Tag("kw", pc.Or(kw("var"), kw("let"), kw("const"), kw("override")))),
		pc.Erase(pc.Opt(pc.Tag("template", g.templateList))),
		pc.Erase(pc.Tag("name", pc.Req(nameP, "expected variable name"))),
		pc.Erase(pc.Opt(pc.Preceded(sym(":"), pc.Tag("type", pc.Req(g.typeRef, "expected type"))))),
		pc.Erase(pc.Opt(pc.Preceded(sym("="), pc.Tag("init", pc.Req(g.expr, "expected initializer"))))),
	), func(_ []any, tags pc.Tags) *ast.VarDecl {
		d := &ast.VarDecl{}
		if k, ok := pc.First[*token.Token](tags, "kw"); ok {
			d.Keyword = k.Text
		}
		d.Template, _ = pc.First[[]ast.Expr](tags, "template")
		d.Name, _ = pc.First[ast.Name](tags, "name")
		d.Type, _ = pc.First[ast.Expr](tags, "type")
		d.Init, _ = pc.First[ast.Expr](tags, "init")
		return d
	})
	spannedVar := func(p pc.Parser[*ast.VarDecl]) pc.Parser[ast.Stmt] {
		return pc.Map(pc.WithSpan(p), func(r pc.Spanned[*ast.VarDecl]) ast.Stmt {
			r.Value.Span = r.Span
			return r.Value
		})
	}
	localVar := spannedVar(pc.Terminated(g.varDecl, semi))
	headerVar := spannedVar(g.varDecl)

	assign := pc.Map(pc.WithSpan(pc.Seq3(
		g.unary,
		syms("=", "+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "<<=", ">>="),
		pc.Req(g.expr, "expected expression"),
	)), func(r pc.Spanned[pc.Triple[ast.Expr, *token.Token, ast.Expr]]) ast.Stmt {
		s := &ast.AssignStmt{NodeInfo: info(r.Span), LHS: r.Value.First, Op: r.Value.Second.Text, RHS: r.Value.Third}
		if id, ok := s.LHS.(*ast.Ident); ok && id.Name == "_" && len(id.Path) == 0 {
			s.LHS = nil
		}
		return s
	})
	incDec := pc.Map(pc.WithSpan(pc.Seq2(g.unary, syms("++", "--"))),
		func(r pc.Spanned[pc.Pair[ast.Expr, *token.Token]]) ast.Stmt {
			return &ast.IncDecStmt{NodeInfo: info(r.Span), Target: r.Value.First, Op: r.Value.Second.Text}
		})
	callStmt := pc.MapCtx(g.callOrIdent, func(_ *pc.Context, e ast.Expr) (ast.Stmt, bool) {
		call, ok := e.(*ast.CallExpr)
		if !ok {
			return nil, false
		}
		return &ast.CallStmt{NodeInfo: info(call.Span), Call: call}, true
	})
	simple := pc.Or(assign, incDec, callStmt)

	ifStmt := pc.Deferred[ast.Stmt]()
	elseBranch := pc.Preceded(kw("else"),
		pc.Req(pc.Or(ifStmt.Parser(), asStmt(g.block)), "expected 'if' or '{' after else"))
	ifStmt.Set(pc.Map(pc.WithSpan(pc.Seq3(
		pc.Preceded(kw("if"), pc.Req(g.expr, "expected condition")),
		body,
		pc.Opt(elseBranch),
	)), func(r pc.Spanned[pc.Triple[ast.Expr, *ast.Block, ast.Stmt]]) ast.Stmt {
		return &ast.IfStmt{NodeInfo: info(r.Span), Cond: r.Value.First, Then: r.Value.Second, Else: r.Value.Third}
	}))

	forHeader := pc.Delimited(
		pc.Req(sym("("), "expected '(' after for"),
		pc.Seq3(
			pc.Terminated(pc.Opt(pc.Or(headerVar, simple)), semi),
			pc.Terminated(pc.Opt(g.expr), semi),
			pc.Opt(simple),
		),
		pc.Req(sym(")"), "expected ')' closing for header"),
	)
	forStmt := pc.Map(pc.WithSpan(pc.Seq2(pc.Preceded(kw("for"), forHeader), body)),
		func(r pc.Spanned[pc.Pair[pc.Triple[ast.Stmt, ast.Expr, ast.Stmt], *ast.Block]]) ast.Stmt {
			h := r.Value.First
			return &ast.ForStmt{NodeInfo: info(r.Span), Init: h.First, Cond: h.Second, Update: h.Third, Body: r.Value.Second}
		})

	whileStmt := pc.Map(pc.WithSpan(pc.Seq2(pc.Preceded(kw("while"), pc.Req(g.expr, "expected condition")), body)),
		func(r pc.Spanned[pc.Pair[ast.Expr, *ast.Block]]) ast.Stmt {
			return &ast.WhileStmt{NodeInfo: info(r.Span), Cond: r.Value.First, Body: r.Value.Second}
		})

	breakIf := pc.Delimited(pc.Seq2(kw("break"), kw("if")), pc.Req(g.expr, "expected condition"), semi)
	continuing := pc.Map(pc.WithSpan(pc.Preceded(kw("continuing"),
		pc.Delimited(lbrace, pc.Seq2(pc.Many(g.stmt), pc.Opt(breakIf)), rbrace))),
		func(r pc.Spanned[pc.Pair[[]ast.Stmt, ast.Expr]]) continuingPart {
			return continuingPart{
				block:   &ast.Block{NodeInfo: info(r.Span), Stmts: r.Value.First},
				breakIf: r.Value.Second,
			}
		})
	loopStmt := pc.Map(pc.WithSpan(pc.Preceded(kw("loop"),
		pc.WithSpan(pc.Delimited(lbrace, pc.Seq2(pc.Many(g.stmt), pc.Opt(continuing)), rbrace)))),
		func(r pc.Spanned[pc.Spanned[pc.Pair[[]ast.Stmt, continuingPart]]]) ast.Stmt {
			inner := r.Value
			return &ast.LoopStmt{
				NodeInfo:   info(r.Span),
				Body:       &ast.Block{NodeInfo: info(inner.Span), Stmts: inner.Value.First},
				Continuing: inner.Value.Second.block,
				BreakIf:    inner.Value.Second.breakIf,
			}
		})

	caseClause := pc.Or(
		pc.Map(pc.WithSpan(pc.Seq2(
			pc.Preceded(kw("case"), pc.Req(pc.List1(g.expr, sym(",")), "expected case selector")),
			pc.Preceded(pc.Opt(sym(":")), body),
		)), func(r pc.Spanned[pc.Pair[[]ast.Expr, *ast.Block]]) *ast.CaseClause {
			return &ast.CaseClause{NodeInfo: info(r.Span), Selectors: r.Value.First, Body: r.Value.Second}
		}),
		pc.Map(pc.WithSpan(pc.Preceded(pc.Seq2(kw("default"), pc.Opt(sym(":"))), body)),
			func(r pc.Spanned[*ast.Block]) *ast.CaseClause {
				return &ast.CaseClause{NodeInfo: info(r.Span), Body: r.Value}
			}),
	)
	switchStmt := pc.Map(pc.WithSpan(pc.Seq2(
		pc.Preceded(kw("switch"), pc.Req(g.expr, "expected switch expression")),
		pc.Delimited(lbrace, pc.Many(caseClause), rbrace),
	)), func(r pc.Spanned[pc.Pair[ast.Expr, []*ast.CaseClause]]) ast.Stmt {
		return &ast.SwitchStmt{NodeInfo: info(r.Span), Expr: r.Value.First, Clauses: r.Value.Second}
	})

	returnStmt := pc.Map(pc.WithSpan(pc.Preceded(kw("return"), pc.Terminated(pc.Opt(g.expr), semi))),
		func(r pc.Spanned[ast.Expr]) ast.Stmt {
			return &ast.ReturnStmt{NodeInfo: info(r.Span), Value: r.Value}
		})
	breakStmt := pc.Map(pc.WithSpan(pc.Terminated(pc.Terminated(kw("break"), pc.Not(kw("if"))), semi)),
		func(r pc.Spanned[*token.Token]) ast.Stmt { return &ast.BreakStmt{NodeInfo: info(r.Span)} })
	continueStmt := pc.Map(pc.WithSpan(pc.Terminated(kw("continue"), semi)),
		func(r pc.Spanned[*token.Token]) ast.Stmt { return &ast.ContinueStmt{NodeInfo: info(r.Span)} })
	discardStmt := pc.Map(pc.WithSpan(pc.Terminated(kw("discard"), semi)),
		func(r pc.Spanned[*token.Token]) ast.Stmt { return &ast.DiscardStmt{NodeInfo: info(r.Span)} })
	emptyStmt := pc.Map(sym(";"),
		func(t *token.Token) ast.Stmt { return &ast.EmptyStmt{NodeInfo: info(t.Span)} })
	assertStmt := pc.Map(pc.WithSpan(pc.Terminated(pc.Preceded(kw("const_assert"), pc.Req(g.expr, "expected expression")), semi)),
		func(r pc.Spanned[ast.Expr]) ast.Stmt {
			return &ast.ConstAssert{NodeInfo: info(r.Span), Expr: r.Value}
		})

	core := pc.Or(
		emptyStmt,
		asStmt(g.block),
		returnStmt,
		ifStmt.Parser(),
		switchStmt,
		loopStmt,
		forStmt,
		whileStmt,
		breakStmt,
		continueStmt,
		discardStmt,
		assertStmt,
		localVar,
		pc.Terminated(simple, semi),
	)
	stmt.Set(pc.Map(pc.WithSpan(pc.Seq2(g.attrs, core)),
		func(r pc.Spanned[pc.Pair[attrList, ast.Stmt]]) ast.Stmt {
			if r.Value.First.If != nil {
				return &ast.CondStmt{NodeInfo: info(r.Span), If: r.Value.First.If, Stmt: r.Value.Second}
			}
			return r.Value.Second
		}))
}
