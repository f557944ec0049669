package link

import (
	"github.com/leapstack-labs/weslink/pkg/ast"
	"github.com/leapstack-labs/weslink/pkg/core"
)

// conditions evaluates @if expressions. Names come from the caller's
// condition map, falling back to boolean constants.
type conditions struct {
	values map[string]bool
}

func newConditions(conds map[string]bool, constants map[string]any) *conditions {
	c := &conditions{values: make(map[string]bool, len(conds))}
	for k, v := range constants {
		if b, ok := v.(bool); ok {
			c.values[k] = b
		}
	}
	for k, v := range conds {
		c.values[k] = v
	}
	return c
}

// active reports whether an element guarded by attr is linked. A nil
// attribute is always active.
func (c *conditions) active(attr *ast.IfAttr, module string) (bool, error) {
	if attr == nil {
		return true, nil
	}
	return c.eval(attr.Cond, module)
}

func (c *conditions) eval(e ast.Expr, module string) (bool, error) {
	switch e := e.(type) {
	case *ast.Literal:
		if e.LitKind == ast.LitBool {
			return e.Text == "true", nil
		}
	case *ast.Ident:
		if len(e.Path) == 0 && len(e.Template) == 0 {
			v, ok := c.values[e.Name]
			if !ok {
				return false, core.SpanErrorf(core.KindUnknownCondition, module, e.RefSpan,
					"condition %s is not defined", e.Name)
			}
			return v, nil
		}
	case *ast.ParenExpr:
		return c.eval(e.X, module)
	case *ast.UnaryExpr:
		if e.Op == "!" {
			v, err := c.eval(e.X, module)
			return !v, err
		}
	case *ast.BinaryExpr:
		if e.Op != "&&" && e.Op != "||" {
			break
		}
		l, err := c.eval(e.Left, module)
		if err != nil {
			return false, err
		}
		// both sides are evaluated so undefined names always surface
		r, err := c.eval(e.Right, module)
		if err != nil {
			return false, err
		}
		if e.Op == "&&" {
			return l && r, nil
		}
		return l || r, nil
	}
	return false, core.SpanErrorf(core.KindUnknownCondition, module, e.GetSpan(),
		"unsupported condition expression")
}
