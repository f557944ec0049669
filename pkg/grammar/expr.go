package grammar

import (
	"strings"

	"github.com/leapstack-labs/weslink/pkg/ast"
	pc "github.com/leapstack-labs/weslink/pkg/combinator"
	"github.com/leapstack-labs/weslink/pkg/token"
)

// Binary operator levels, tightest first.
var binaryLevels = [][]string{
	{"*", "/", "%"},
	{"+", "-"},
	{"<<", ">>"},
	{"<", ">", "<=", ">=", "==", "!="},
	{"&"},
	{"^"},
	{"|"},
	{"&&"},
	{"||"},
}

func (g *rules) buildExpr() {
	expr := pc.Deferred[ast.Expr]()
	g.expr = pc.Named("expr", expr.Parser())

	g.templateList = pc.Delimited(
		pc.Kind(token.TemplateOpen),
		pc.List1(g.expr, sym(",")),
		pc.Req(pc.Kind(token.TemplateClose), "expected '>' closing template list"),
	)

	qualified := pc.Seq2(pc.Kind(token.Word), pc.Many(pc.Preceded(sym("::"), pc.Kind(token.Word))))
	ident := pc.New(func(ctx *pc.Context) (*ast.Ident, bool) {
		q, ok := qualified.Parse(ctx)
		if !ok {
			return nil, false
		}
		id := &ast.Ident{Name: q.First.Text}
		ref := q.First.Span
		if n := len(q.Second); n > 0 {
			id.Path = []string{q.First.Text}
			for _, seg := range q.Second[:n-1] {
				id.Path = append(id.Path, seg.Text)
			}
			id.Name = q.Second[n-1].Text
			ref = ref.Cover(q.Second[n-1].Span)
		}
		id.RefSpan = ref
		id.Template, _ = g.templateList.Parse(ctx)
		id.Span = token.Span{Start: ref.Start, End: ctx.LastEnd()}
		return id, true
	})
	g.typeRef = pc.Named("type", asExpr(ident))

	args := pc.Delimited(sym("("), pc.List(g.expr, sym(",")),
		pc.Req(sym(")"), "expected ')' closing argument list"))
	g.callOrIdent = pc.New(func(ctx *pc.Context) (ast.Expr, bool) {
		id, ok := ident.Parse(ctx)
		if !ok {
			return nil, false
		}
		if a, ok := args.Parse(ctx); ok {
			return &ast.CallExpr{
				NodeInfo: info(token.Span{Start: id.Span.Start, End: ctx.LastEnd()}),
				Callee:   id,
				Args:     a,
			}, true
		}
		return id, true
	})

	literal := pc.Map(pc.Or(pc.Kind(token.Number), kw("true"), kw("false")), func(t *token.Token) ast.Expr {
		return &ast.Literal{NodeInfo: info(t.Span), LitKind: literalKind(t), Text: t.Text}
	})
	paren := pc.Map(pc.WithSpan(pc.Delimited(sym("("),
		pc.Req(g.expr, "expected expression"),
		pc.Req(sym(")"), "expected ')'"))),
		func(r pc.Spanned[ast.Expr]) ast.Expr {
			return &ast.ParenExpr{NodeInfo: info(r.Span), X: r.Value}
		})
	primary := pc.Or(literal, paren, g.callOrIdent)

	index := pc.Delimited(sym("["), pc.Req(g.expr, "expected index expression"), pc.Req(sym("]"), "expected ']'"))
	member := pc.Preceded(sym("."), pc.Req(nameP, "expected member name"))
	postfix := pc.New(func(ctx *pc.Context) (ast.Expr, bool) {
		x, ok := primary.Parse(ctx)
		if !ok {
			return nil, false
		}
		for {
			start := x.GetSpan().Start
			if i, ok := index.Parse(ctx); ok {
				x = &ast.IndexExpr{NodeInfo: info(token.Span{Start: start, End: ctx.LastEnd()}), X: x, Index: i}
				continue
			}
			if m, ok := member.Parse(ctx); ok {
				x = &ast.MemberExpr{NodeInfo: info(token.Span{Start: start, End: m.Span.End}), X: x, Name: m}
				continue
			}
			return x, true
		}
	})

	unary := pc.Deferred[ast.Expr]()
	g.unary = unary.Parser()
	unary.Set(pc.Or(
		pc.Map(pc.Seq2(syms("-", "!", "~", "*", "&"), pc.Req(g.unary, "expected operand")),
			func(r pc.Pair[*token.Token, ast.Expr]) ast.Expr {
				return &ast.UnaryExpr{
					NodeInfo: info(r.First.Span.Cover(r.Second.GetSpan())),
					Op:       r.First.Text,
					X:        r.Second,
				}
			}),
		postfix,
	))

	level := g.unary
	for _, ops := range binaryLevels {
		level = binaryLevel(level, ops...)
	}
	expr.Set(level)
}

// binaryLevel parses left-associative chains of operand joined by ops.
func binaryLevel(operand pc.Parser[ast.Expr], ops ...string) pc.Parser[ast.Expr] {
	rhs := pc.Seq2(syms(ops...), operand)
	return pc.New(func(ctx *pc.Context) (ast.Expr, bool) {
		left, ok := operand.Parse(ctx)
		if !ok {
			return nil, false
		}
		for {
			r, ok := rhs.Parse(ctx)
			if !ok {
				return left, true
			}
			left = &ast.BinaryExpr{
				NodeInfo: info(left.GetSpan().Cover(r.Second.GetSpan())),
				Op:       r.First.Text,
				Left:     left,
				Right:    r.Second,
			}
		}
	})
}

func literalKind(t *token.Token) ast.LiteralKind {
	if t.Kind == token.Keyword {
		return ast.LitBool
	}
	text := t.Text
	if strings.HasPrefix(text, "0x") || strings.HasPrefix(text, "0X") {
		if strings.ContainsAny(text, ".pP") {
			return ast.LitFloat
		}
		return ast.LitInt
	}
	if strings.ContainsAny(text, ".eEfh") {
		return ast.LitFloat
	}
	return ast.LitInt
}
