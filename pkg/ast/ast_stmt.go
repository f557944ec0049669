package ast

// Stmt is a statement inside a function body.
type Stmt interface {
	Node
	stmt()
}

// Block is a brace-delimited statement list. It opens a scope.
type Block struct {
	NodeInfo
	Stmts []Stmt
}

// Kind implements Node.
func (*Block) Kind() NodeKind { return KindBlock }
func (*Block) stmt()          {}

// CondStmt is a statement annotated with @if.
type CondStmt struct {
	NodeInfo
	If   *IfAttr
	Stmt Stmt
}

// Kind implements Node.
func (*CondStmt) Kind() NodeKind { return KindCondStmt }
func (*CondStmt) stmt()          {}

// IfStmt is if/else if/else. Else is nil, a *Block or an *IfStmt.
type IfStmt struct {
	NodeInfo
	Cond Expr
	Then *Block
	Else Stmt
}

// Kind implements Node.
func (*IfStmt) Kind() NodeKind { return KindIf }
func (*IfStmt) stmt()          {}

// ForStmt is a for loop. Its header opens a scope enclosing the body.
type ForStmt struct {
	NodeInfo
	Init   Stmt // nil when absent
	Cond   Expr // nil when absent
	Update Stmt // nil when absent
	Body   *Block
}

// Kind implements Node.
func (*ForStmt) Kind() NodeKind { return KindFor }
func (*ForStmt) stmt()          {}

// WhileStmt is a while loop.
type WhileStmt struct {
	NodeInfo
	Cond Expr
	Body *Block
}

// Kind implements Node.
func (*WhileStmt) Kind() NodeKind { return KindWhile }
func (*WhileStmt) stmt()          {}

// LoopStmt is loop { ... continuing { ... } }.
type LoopStmt struct {
	NodeInfo
	Body       *Block
	Continuing *Block // nil when absent
	BreakIf    Expr   // break if expr; inside continuing
}

// Kind implements Node.
func (*LoopStmt) Kind() NodeKind { return KindLoop }
func (*LoopStmt) stmt()          {}

// SwitchStmt is a switch statement.
type SwitchStmt struct {
	NodeInfo
	Expr    Expr
	Clauses []*CaseClause
}

// Kind implements Node.
func (*SwitchStmt) Kind() NodeKind { return KindSwitch }
func (*SwitchStmt) stmt()          {}

// CaseClause is one case or default clause. A nil selector is "default".
type CaseClause struct {
	NodeInfo
	Selectors []Expr
	Body      *Block
}

// Kind implements Node.
func (*CaseClause) Kind() NodeKind { return KindCase }

// ReturnStmt is return [expr];.
type ReturnStmt struct {
	NodeInfo
	Value Expr // nil for bare return
}

// Kind implements Node.
func (*ReturnStmt) Kind() NodeKind { return KindReturn }
func (*ReturnStmt) stmt()          {}

// BreakStmt is break;.
type BreakStmt struct{ NodeInfo }

// Kind implements Node.
func (*BreakStmt) Kind() NodeKind { return KindBreak }
func (*BreakStmt) stmt()          {}

// ContinueStmt is continue;.
type ContinueStmt struct{ NodeInfo }

// Kind implements Node.
func (*ContinueStmt) Kind() NodeKind { return KindContinue }
func (*ContinueStmt) stmt()          {}

// DiscardStmt is discard;.
type DiscardStmt struct{ NodeInfo }

// Kind implements Node.
func (*DiscardStmt) Kind() NodeKind { return KindDiscard }
func (*DiscardStmt) stmt()          {}

// AssignStmt is lhs op rhs, where op is = or a compound operator.
// LHS is nil for the phony assignment _ = rhs.
type AssignStmt struct {
	NodeInfo
	LHS Expr
	Op  string
	RHS Expr
}

// Kind implements Node.
func (*AssignStmt) Kind() NodeKind { return KindAssign }
func (*AssignStmt) stmt()          {}

// IncDecStmt is x++ or x--.
type IncDecStmt struct {
	NodeInfo
	Target Expr
	Op     string
}

// Kind implements Node.
func (*IncDecStmt) Kind() NodeKind { return KindIncDec }
func (*IncDecStmt) stmt()          {}

// CallStmt is a function call used as a statement.
type CallStmt struct {
	NodeInfo
	Call *CallExpr
}

// Kind implements Node.
func (*CallStmt) Kind() NodeKind { return KindCallStmt }
func (*CallStmt) stmt()          {}

// EmptyStmt is a lone semicolon.
type EmptyStmt struct{ NodeInfo }

// Kind implements Node.
func (*EmptyStmt) Kind() NodeKind { return KindEmpty }
func (*EmptyStmt) stmt()          {}
