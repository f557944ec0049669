package grammar

import (
	"strings"

	"github.com/leapstack-labs/weslink/pkg/ast"
	pc "github.com/leapstack-labs/weslink/pkg/combinator"
	"github.com/leapstack-labs/weslink/pkg/modpath"
	"github.com/leapstack-labs/weslink/pkg/token"
)

// importSegment is an identifier usable inside an import path. The
// reserved segments are only valid as a leading prefix.
var importSegment = pc.MapCtx(pc.Kind(token.Word), func(_ *pc.Context, t *token.Token) (*token.Token, bool) {
	return t, t.Text != modpath.Package && t.Text != modpath.Super
})

func (g *rules) buildImports() {
	pathOrItem := pc.Deferred[*ast.ImportTree]()

	item := pc.Map(pc.WithSpan(pc.Seq2(
		importSegment,
		pc.Opt(pc.Preceded(word("as"), pc.Req(importSegment, "expected alias name"))),
	)), func(r pc.Spanned[pc.Pair[*token.Token, *token.Token]]) *ast.ImportTree {
		it := &ast.ImportItem{Name: r.Value.First.Text, Span: r.Span}
		if r.Value.Second != nil {
			it.Alias = r.Value.Second.Text
		}
		return &ast.ImportTree{Item: it, Span: r.Span}
	})

	collection := pc.Map(pc.WithSpan(pc.Delimited(
		sym("{"),
		pc.List1(pathOrItem.Parser(), sym(",")),
		pc.Req(sym("}"), "expected '}' closing import collection"),
	)), func(r pc.Spanned[[]*ast.ImportTree]) *ast.ImportTree {
		return &ast.ImportTree{Collection: r.Value, Span: r.Span}
	})

	path := pc.Map(pc.WithSpan(pc.Seq2(
		pc.Terminated(importSegment, sym("::")),
		pc.Or(collection, pathOrItem.Parser()),
	)), func(r pc.Spanned[pc.Pair[*token.Token, *ast.ImportTree]]) *ast.ImportTree {
		t := r.Value.Second
		t.Segments = append([]string{r.Value.First.Text}, t.Segments...)
		t.Span = r.Span
		return t
	})
	pathOrItem.Set(pc.Or(path, item))

	relative := pc.Or(
		pc.Map(pc.Terminated(word(modpath.Package), pc.Req(sym("::"), "expected '::' after package")),
			func(*token.Token) []string { return []string{modpath.Package} }),
		pc.Map(pc.Many1(pc.Terminated(word(modpath.Super), pc.Req(sym("::"), "expected '::' after super"))),
			func(ts []*token.Token) []string {
				out := make([]string, len(ts))
				for i := range ts {
					out[i] = modpath.Super
				}
				return out
			}),
	)
	tree := pc.Map(pc.WithSpan(pc.Seq2(pc.Opt(relative), pc.Or(collection, pathOrItem.Parser()))),
		func(r pc.Spanned[pc.Pair[[]string, *ast.ImportTree]]) *ast.ImportTree {
			t := r.Value.Second
			if len(r.Value.First) > 0 {
				t.Segments = append(append([]string{}, r.Value.First...), t.Segments...)
			}
			t.Span = r.Span
			return t
		})

	g.importStmt = pc.Named("import", pc.Map(pc.WithSpan(pc.Preceded(word("import"), pc.Terminated(
		pc.Req(tree, "expected import path"),
		pc.Req(sym(";"), "expected ';' after import"),
	))), func(r pc.Spanned[*ast.ImportTree]) *ast.ImportStmt {
		return &ast.ImportStmt{NodeInfo: info(r.Span), Tree: r.Value}
	}))

	g.legacyImport = pc.Named("legacy-import", pc.Tagged(pc.WithSpan(pc.Seq(
		pc.Erase(pc.KindText(token.Directive, "#import")),
		pc.Erase(pc.Tag("name", pc.Req(pc.Kind(token.Word), "expected import name"))),
		pc.Erase(pc.Opt(pc.Delimited(sym("("), pc.List(pc.Kind(token.Word), sym(",")), pc.Req(sym(")"), "expected ')'")))),
		pc.Erase(pc.Opt(pc.Preceded(word("as"), pc.Tag("alias", pc.Req(pc.Kind(token.Word), "expected alias name"))))),
		pc.Erase(pc.Req(word("from"), "expected 'from'")),
		pc.Erase(pc.Tag("path", pc.Req(legacyPath, "expected module path"))),
		pc.Erase(pc.Opt(sym(";"))),
	)), func(r pc.Spanned[[]any], tags pc.Tags) *ast.ImportStmt {
		name, _ := pc.First[*token.Token](tags, "name")
		p, _ := pc.First[string](tags, "path")
		it := &ast.ImportItem{Name: name.Text, Span: name.Span}
		if alias, ok := pc.First[*token.Token](tags, "alias"); ok {
			it.Alias = alias.Text
			it.Span = it.Span.Cover(alias.Span)
		}
		return &ast.ImportStmt{
			NodeInfo: info(r.Span),
			Tree:     &ast.ImportTree{Segments: modpath.FromLegacy(p), Item: it, Span: r.Span},
		}
	}))
}

// legacyPath matches a quoted path or a run of adjacent path tokens such as
// ./lib/util.wgsl.
var legacyPath = pc.Or(
	pc.Map(pc.Kind(token.String), func(t *token.Token) string { return strings.Trim(t.Text, `"`) }),
	pc.New(func(ctx *pc.Context) (string, bool) {
		first, ok := pathToken.Parse(ctx)
		if !ok {
			return "", false
		}
		var sb strings.Builder
		sb.WriteString(first.Text)
		end := first.Span.End
		for {
			next := ctx.Peek()
			if next == nil || next.Span.Start != end {
				return sb.String(), true
			}
			tok, ok := pathToken.Parse(ctx)
			if !ok {
				return sb.String(), true
			}
			sb.WriteString(tok.Text)
			end = tok.Span.End
		}
	}),
)

var pathToken = pc.Or(pc.Kind(token.Word), pc.Kind(token.Number), sym("."), sym("/"), sym("-"))
