package link

import (
	"sort"
	"strings"
	"unicode"

	"github.com/leapstack-labs/weslink/pkg/ast"
	"github.com/leapstack-labs/weslink/pkg/core"
	"github.com/leapstack-labs/weslink/pkg/registry"
	"github.com/leapstack-labs/weslink/pkg/scope"
	"github.com/leapstack-labs/weslink/pkg/srcmap"
	"github.com/leapstack-labs/weslink/pkg/token"
)

// edit replaces src[start:end] with text. An empty text deletes.
type edit struct {
	start, end int
	text       string
}

func sortEdits(edits []edit) {
	sort.SliceStable(edits, func(i, j int) bool { return edits[i].start < edits[j].start })
}

// apply returns src[span] with edits applied. Edits must lie inside span
// and must not overlap.
func apply(src string, span token.Span, edits []edit) string {
	sortEdits(edits)
	var sb strings.Builder
	pos := span.Start
	for _, e := range edits {
		if e.start < pos {
			continue
		}
		sb.WriteString(src[pos:e.start])
		sb.WriteString(e.text)
		pos = e.end
	}
	sb.WriteString(src[pos:span.End])
	return sb.String()
}

// render appends src[span] with edits applied to b. Unchanged runs map one
// to one, replacements map to the range they replace.
func render(b *srcmap.Builder, src, id string, span token.Span, edits []edit) {
	sortEdits(edits)
	pos := span.Start
	for _, e := range edits {
		if e.start < pos {
			continue
		}
		b.Add(src[pos:e.start], id, pos, e.start)
		b.Add(e.text, id, e.start, e.end)
		pos = e.end
	}
	b.Add(src[pos:span.End], id, pos, span.End)
}

// skipSpace returns the offset of the first non-space byte at or after i,
// bounded by limit.
func skipSpace(src string, i, limit int) int {
	for i < limit && unicode.IsSpace(rune(src[i])) {
		i++
	}
	return i
}

// skipComma extends a removal past a following comma and the space around it.
func skipComma(src string, i, limit int) int {
	j := skipSpace(src, i, limit)
	if j < limit && src[j] == ',' {
		return skipSpace(src, j+1, limit)
	}
	return i
}

// renames returns the edits that rewrite references inside node to the
// output names of their targets.
func (lk *linker) renames(it *item, node ast.Node) ([]edit, error) {
	var (
		edits []edit
		err   error
	)
	ast.Inspect(node, func(n ast.Node) bool {
		if err != nil {
			return false
		}
		switch n := n.(type) {
		case *ast.IfAttr:
			return false
		case *ast.Ident:
			var e *edit
			if e, err = lk.rename(it, n); e != nil {
				edits = append(edits, *e)
			}
			return err == nil
		}
		return true
	})
	return edits, err
}

// rename returns the edit that rewrites id to the output name of its
// target, or nil when the spelling is unchanged.
func (lk *linker) rename(it *item, id *ast.Ident) (*edit, error) {
	r, ok := it.an.Refs[id]
	if !ok {
		return nil, nil
	}
	switch r.Kind {
	case scope.RefUnbound:
		return nil, r.Err
	case scope.RefGlobal:
		if out := lk.names[r.Global]; len(id.Path) > 0 || out != id.Name {
			return &edit{start: id.RefSpan.Start, end: id.RefSpan.End, text: out}, nil
		}
	}
	return nil, nil
}

// edits computes every rewrite of an emitted declaration: condition
// removal, binding struct lowering and renaming.
func (lk *linker) edits(it *item) ([]edit, error) {
	src := it.an.Module.AST.Src
	limit := it.decl.GetSpan().End
	mod := it.g.Module
	var (
		edits []edit
		err   error
	)

	if it.g.Name != "" {
		if name := declName(it.decl); name != nil && lk.names[it.g] != name.Text {
			edits = append(edits, edit{start: name.Span.Start, end: name.Span.End, text: lk.names[it.g]})
		}
	}

	ast.Inspect(it.decl, func(n ast.Node) bool {
		if err != nil {
			return false
		}
		switch n := n.(type) {
		case *ast.IfAttr:
			edits = append(edits, edit{start: n.Span.Start, end: skipSpace(src, n.Span.End, limit)})
			return false

		case *ast.Member:
			var ok bool
			if ok, err = lk.conds.active(n.If, mod); err != nil || ok {
				return err == nil
			}
			edits = append(edits, edit{start: n.Span.Start, end: skipComma(src, n.Span.End, limit)})
			return false

		case *ast.CondStmt:
			var ok bool
			if ok, err = lk.conds.active(n.If, mod); err != nil || ok {
				return err == nil
			}
			edits = append(edits, edit{start: n.Span.Start, end: skipSpace(src, n.Span.End, limit)})
			return false

		case *ast.Param:
			if lk.bindings.param(n) == nil {
				return true
			}
			edits = append(edits, edit{start: n.Span.Start, end: skipComma(src, n.Span.End, limit)})
			return false

		case *ast.MemberExpr:
			bp := lk.bindingUse(it, n)
			if bp == nil {
				return true
			}
			v, ok := bp.varFor(n.Name.Text)
			if !ok {
				err = core.SpanErrorf(core.KindTransform, mod, n.Name.Span,
					"binding struct %s has no active member %s", bp.strct.g.Name, n.Name.Text)
				return false
			}
			edits = append(edits, edit{start: n.Span.Start, end: n.Span.End, text: v})
			return false

		case *ast.Ident:
			var e *edit
			if e, err = lk.rename(it, n); e != nil {
				edits = append(edits, *e)
			}
			return err == nil
		}
		return true
	})
	return edits, err
}

// bindingUse returns the lowered parameter accessed by me, if any.
func (lk *linker) bindingUse(it *item, me *ast.MemberExpr) *bindingParam {
	if lk.bindings == nil {
		return nil
	}
	for _, bp := range lk.bindings.byFn[it] {
		if isParamRef(it, me.X, bp.param) {
			return bp
		}
	}
	return nil
}

func (bp *bindingParam) varFor(member string) (string, bool) {
	for _, m := range bp.members {
		if m.Name.Text == member {
			return bp.vars[m], true
		}
	}
	return "", false
}

func declName(d ast.Decl) *ast.Name {
	switch d := d.(type) {
	case *ast.FnDecl:
		return &d.Name
	case *ast.StructDecl:
		return &d.Name
	case *ast.VarDecl:
		return &d.Name
	case *ast.AliasDecl:
		return &d.Name
	}
	return nil
}

func sourceID(m *registry.Module) string {
	if m.File != "" {
		return m.File
	}
	return m.Path
}

// emit writes directives, then declarations separated by blank lines.
func (lk *linker) emit() (*Result, error) {
	var (
		b   srcmap.Builder
		res Result
	)

	seen := make(map[string]bool)
	for _, m := range lk.modules {
		src := m.AST.Src
		for _, d := range m.AST.Directives {
			ok, err := lk.conds.active(d.If, m.Path)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			var edits []edit
			if d.If != nil {
				edits = append(edits, edit{start: d.If.Span.Start, end: skipSpace(src, d.If.Span.End, d.Span.End)})
			}
			text := apply(src, d.Span, edits)
			if seen[text] {
				continue
			}
			seen[text] = true
			render(&b, src, sourceID(m), d.Span, edits)
			b.AddGenerated("\n")
		}
	}
	if b.Len() > 0 {
		b.AddGenerated("\n")
	}

	first := true
	sep := func() {
		if !first {
			b.AddGenerated("\n\n")
		}
		first = false
	}

	for _, it := range lk.order {
		if lk.bindings.isDropped(it.g) {
			continue
		}
		if err := lk.ctx.Err(); err != nil {
			return nil, err
		}
		if lk.bindings != nil {
			for _, bp := range lk.bindings.byFn[it] {
				for _, m := range bp.members {
					text, err := lk.varDecl(bp, m)
					if err != nil {
						return nil, err
					}
					sep()
					start := b.Len()
					b.Add(text, sourceID(bp.strct.an.Module), m.Span.Start, m.Span.End)
					res.Decls = append(res.Decls, Emitted{
						Module:     bp.strct.g.Module,
						Name:       m.Name.Text,
						OutputName: bp.vars[m],
						Start:      start,
						End:        b.Len(),
					})
				}
			}
		}

		edits, err := lk.edits(it)
		if err != nil {
			return nil, err
		}
		sep()
		start := b.Len()
		render(&b, it.an.Module.AST.Src, sourceID(it.an.Module), it.decl.GetSpan(), edits)
		res.Decls = append(res.Decls, Emitted{
			Module:     it.g.Module,
			Name:       it.g.Name,
			OutputName: lk.names[it.g],
			Start:      start,
			End:        b.Len(),
		})
	}
	if b.Len() > 0 {
		b.AddGenerated("\n")
	}

	res.Text = b.Text()
	res.SourceMap = b.Build()
	for _, m := range lk.modules {
		if m.Map != nil {
			res.SourceMap = srcmap.Merge(res.SourceMap, m.Map, sourceID(m))
		}
	}
	return &res, nil
}
