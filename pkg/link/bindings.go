package link

import (
	"strings"

	"github.com/leapstack-labs/weslink/pkg/ast"
	"github.com/leapstack-labs/weslink/pkg/core"
	"github.com/leapstack-labs/weslink/pkg/scope"
)

// A binding struct is a struct whose members all carry @group and
// @binding. When one is the type of an entry-point parameter, the
// parameter is replaced by one global resource variable per member and
// every param.member access is rewritten to that variable:
//
//	struct Bufs { @group(0) @binding(0) particles: ptr<storage, array<f32>, read_write> }
//	@compute fn main(b: Bufs) { b.particles[0] = 1.0; }
//
// becomes
//
//	@group(0) @binding(0) var<storage, read_write> b_particles: array<f32>;
//	@compute fn main() { b_particles[0] = 1.0; }
//
// The struct itself is dropped when nothing else references it.
type bindingPlan struct {
	params  map[*ast.Param]*bindingParam
	byFn    map[*item][]*bindingParam
	dropped map[scope.Global]bool
}

type bindingParam struct {
	param   *ast.Param
	strct   *item
	members []*ast.Member
	// vars maps members to generated variable names
	vars map[*ast.Member]string
}

func (p *bindingPlan) isDropped(g scope.Global) bool {
	return p != nil && p.dropped[g]
}

func (p *bindingPlan) param(n *ast.Param) *bindingParam {
	if p == nil {
		return nil
	}
	return p.params[n]
}

func (lk *linker) planBindings() error {
	plan := &bindingPlan{
		params:  make(map[*ast.Param]*bindingParam),
		byFn:    make(map[*item][]*bindingParam),
		dropped: make(map[scope.Global]bool),
	}
	uses := make(map[scope.Global]int)

	for _, it := range lk.order {
		fn, ok := it.decl.(*ast.FnDecl)
		if !ok || !fn.IsEntryPoint() {
			continue
		}
		for _, p := range fn.Params {
			bp, err := lk.bindingParam(it, p)
			if err != nil {
				return err
			}
			if bp == nil {
				continue
			}
			if err := checkParamUses(it, fn, p); err != nil {
				return err
			}
			plan.params[p] = bp
			plan.byFn[it] = append(plan.byFn[it], bp)
			uses[bp.strct.g]++
		}
	}
	for g, n := range uses {
		if lk.refCount[g] == n {
			plan.dropped[g] = true
		}
	}
	if len(plan.params) > 0 {
		lk.bindings = plan
	}
	return nil
}

// bindingParam returns the lowering of p, or nil when p is not of binding
// struct type.
func (lk *linker) bindingParam(fnItem *item, p *ast.Param) (*bindingParam, error) {
	id, ok := p.Type.(*ast.Ident)
	if !ok || len(id.Template) > 0 {
		return nil, nil
	}
	r, ok := fnItem.an.Refs[id]
	if !ok || r.Kind != scope.RefGlobal {
		return nil, nil
	}
	sit := lk.items[r.Global]
	if sit == nil {
		return nil, nil
	}
	sd, ok := sit.decl.(*ast.StructDecl)
	if !ok {
		return nil, nil
	}

	var (
		members   []*ast.Member
		annotated int
		bare      *ast.Member
	)
	for _, m := range sd.Members {
		active, err := lk.conds.active(m.If, sit.g.Module)
		if err != nil {
			return nil, err
		}
		if !active {
			continue
		}
		members = append(members, m)
		if ast.FindAttr(m.Attrs, "group") != nil && ast.FindAttr(m.Attrs, "binding") != nil {
			annotated++
		} else if bare == nil {
			bare = m
		}
	}
	if annotated == 0 {
		return nil, nil
	}
	if bare != nil {
		return nil, core.SpanErrorf(core.KindTransform, sit.g.Module, bare.Span,
			"member %s of binding struct %s needs both @group and @binding", bare.Name.Text, sd.Name.Text)
	}
	if len(p.Attrs) > 0 {
		return nil, core.SpanErrorf(core.KindTransform, fnItem.g.Module, p.Span,
			"binding struct parameter %s cannot carry attributes", p.Name.Text)
	}
	return &bindingParam{param: p, strct: sit, members: members, vars: make(map[*ast.Member]string)}, nil
}

// checkParamUses requires every use of p in fn to be a member access.
func checkParamUses(it *item, fn *ast.FnDecl, p *ast.Param) error {
	var err error
	ast.Inspect(fn.Body, func(n ast.Node) bool {
		if err != nil {
			return false
		}
		if me, ok := n.(*ast.MemberExpr); ok && isParamRef(it, me.X, p) {
			return false
		}
		if id, ok := n.(*ast.Ident); ok && isParamRef(it, id, p) {
			err = core.SpanErrorf(core.KindTransform, it.g.Module, id.RefSpan,
				"binding struct parameter %s may only be used as %s.member", p.Name.Text, p.Name.Text)
		}
		return true
	})
	return err
}

func isParamRef(it *item, e ast.Expr, p *ast.Param) bool {
	id, ok := e.(*ast.Ident)
	if !ok {
		return false
	}
	r, ok := it.an.Refs[id]
	return ok && r.Kind == scope.RefLocal && r.Local.Node == ast.Node(p)
}

// name assigns generated variable names: param_member.
func (p *bindingPlan) name(lk *linker) {
	taken := make(map[string]bool, len(lk.names))
	for _, n := range lk.names {
		taken[n] = true
	}
	for name := range lk.reserved {
		taken[name] = true
	}
	for _, it := range lk.order {
		bps := p.byFn[it]
		if len(bps) == 0 {
			continue
		}
		// A local of the entry fn would shadow the new global inside its body.
		avoid := taken
		if fn, ok := it.decl.(*ast.FnDecl); ok {
			avoid = mergeSets(taken, localNames(fn))
		}
		for _, bp := range bps {
			for _, m := range bp.members {
				v := unique(bp.param.Name.Text+"_"+m.Name.Text, avoid)
				avoid[v] = true
				taken[v] = true
				bp.vars[m] = v
			}
		}
	}
}

// varDecl renders the global variable replacing member m.
func (lk *linker) varDecl(bp *bindingParam, m *ast.Member) (string, error) {
	sit := bp.strct
	src := sit.an.Module.AST.Src
	render := func(n ast.Node) (string, error) {
		edits, err := lk.renames(sit, n)
		if err != nil {
			return "", err
		}
		return apply(src, n.GetSpan(), edits), nil
	}

	var sb strings.Builder
	for _, a := range m.Attrs {
		text, err := render(a)
		if err != nil {
			return "", err
		}
		sb.WriteString(text)
		sb.WriteByte(' ')
	}

	sb.WriteString("var")
	typ := m.Type
	id, _ := m.Type.(*ast.Ident)
	switch {
	case id != nil && id.Name == "ptr" && len(id.Path) == 0 && len(id.Template) >= 2:
		space, err := render(id.Template[0])
		if err != nil {
			return "", err
		}
		sb.WriteString("<" + space)
		if len(id.Template) > 2 {
			access, err := render(id.Template[2])
			if err != nil {
				return "", err
			}
			sb.WriteString(", " + access)
		}
		sb.WriteString(">")
		typ = id.Template[1]
	case id != nil && isHandleType(id.Name):
	default:
		sb.WriteString("<uniform>")
	}

	text, err := render(typ)
	if err != nil {
		return "", err
	}
	sb.WriteString(" " + bp.vars[m] + ": " + text + ";")
	return sb.String(), nil
}

func isHandleType(name string) bool {
	return strings.HasPrefix(name, "texture_") || name == "sampler" || name == "sampler_comparison"
}
