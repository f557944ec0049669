package ast

// Inspect traverses the tree depth-first in source order and calls fn for
// each node. If fn returns false, the node's children are skipped.
func Inspect(node Node, fn func(Node) bool) {
	if isNil(node) {
		return
	}
	if !fn(node) {
		return
	}
	walkChildren(node, fn)
}

func isNil(node Node) bool {
	if node == nil {
		return true
	}
	switch n := node.(type) {
	case *Block:
		return n == nil
	case *Ident:
		return n == nil
	case *CallExpr:
		return n == nil
	case *IfAttr:
		return n == nil
	case *IfStmt:
		return n == nil
	}
	return false
}

func inspectAttrs(attrs []*Attribute, fn func(Node) bool) {
	for _, a := range attrs {
		Inspect(a, fn)
	}
}

func inspectExprs(exprs []Expr, fn func(Node) bool) {
	for _, e := range exprs {
		Inspect(e, fn)
	}
}

//nolint:gocyclo,funlen // one case per variant
func walkChildren(node Node, fn func(Node) bool) {
	switch n := node.(type) {
	case *Module:
		for _, d := range n.Directives {
			Inspect(d, fn)
		}
		for _, imp := range n.Imports {
			Inspect(imp, fn)
		}
		for _, d := range n.Decls {
			Inspect(d, fn)
		}

	case *Directive:
		Inspect(n.If, fn)

	case *ImportStmt:
		// leaves are plain data

	case *Attribute:
		inspectExprs(n.Args, fn)

	case *IfAttr:
		Inspect(n.Cond, fn)

	case *FnDecl:
		Inspect(n.If, fn)
		inspectAttrs(n.Attrs, fn)
		for _, p := range n.Params {
			Inspect(p, fn)
		}
		inspectAttrs(n.ReturnAttrs, fn)
		Inspect(n.ReturnType, fn)
		Inspect(n.Body, fn)

	case *Param:
		inspectAttrs(n.Attrs, fn)
		Inspect(n.Type, fn)

	case *StructDecl:
		Inspect(n.If, fn)
		inspectAttrs(n.Attrs, fn)
		for _, m := range n.Members {
			Inspect(m, fn)
		}

	case *Member:
		Inspect(n.If, fn)
		inspectAttrs(n.Attrs, fn)
		Inspect(n.Type, fn)

	case *VarDecl:
		Inspect(n.If, fn)
		inspectAttrs(n.Attrs, fn)
		inspectExprs(n.Template, fn)
		Inspect(n.Type, fn)
		Inspect(n.Init, fn)

	case *AliasDecl:
		Inspect(n.If, fn)
		inspectAttrs(n.Attrs, fn)
		Inspect(n.Type, fn)

	case *ConstAssert:
		Inspect(n.If, fn)
		inspectAttrs(n.Attrs, fn)
		Inspect(n.Expr, fn)

	case *Block:
		for _, s := range n.Stmts {
			Inspect(s, fn)
		}

	case *CondStmt:
		Inspect(n.If, fn)
		Inspect(n.Stmt, fn)

	case *IfStmt:
		Inspect(n.Cond, fn)
		Inspect(n.Then, fn)
		Inspect(n.Else, fn)

	case *ForStmt:
		Inspect(n.Init, fn)
		Inspect(n.Cond, fn)
		Inspect(n.Update, fn)
		Inspect(n.Body, fn)

	case *WhileStmt:
		Inspect(n.Cond, fn)
		Inspect(n.Body, fn)

	case *LoopStmt:
		Inspect(n.Body, fn)
		Inspect(n.Continuing, fn)
		Inspect(n.BreakIf, fn)

	case *SwitchStmt:
		Inspect(n.Expr, fn)
		for _, c := range n.Clauses {
			Inspect(c, fn)
		}

	case *CaseClause:
		inspectExprs(n.Selectors, fn)
		Inspect(n.Body, fn)

	case *ReturnStmt:
		Inspect(n.Value, fn)

	case *BreakStmt, *ContinueStmt, *DiscardStmt, *EmptyStmt:
		// no children

	case *AssignStmt:
		Inspect(n.LHS, fn)
		Inspect(n.RHS, fn)

	case *IncDecStmt:
		Inspect(n.Target, fn)

	case *CallStmt:
		Inspect(n.Call, fn)

	case *Literal:
		// no children

	case *Ident:
		inspectExprs(n.Template, fn)

	case *CallExpr:
		Inspect(n.Callee, fn)
		inspectExprs(n.Args, fn)

	case *BinaryExpr:
		Inspect(n.Left, fn)
		Inspect(n.Right, fn)

	case *UnaryExpr:
		Inspect(n.X, fn)

	case *MemberExpr:
		Inspect(n.X, fn)

	case *IndexExpr:
		Inspect(n.X, fn)
		Inspect(n.Index, fn)

	case *ParenExpr:
		Inspect(n.X, fn)

	default:
		Unreachable(node)
	}
}

// Idents returns every identifier reference under node, in source order.
func Idents(node Node) []*Ident {
	var out []*Ident
	Inspect(node, func(n Node) bool {
		if id, ok := n.(*Ident); ok {
			out = append(out, id)
		}
		return true
	})
	return out
}
