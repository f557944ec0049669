package ast

import (
	"strings"

	"github.com/leapstack-labs/weslink/pkg/token"
)

// Expr is an expression. Type expressions are expressions too: a type is
// an identifier reference with optional template arguments.
type Expr interface {
	Node
	expr()
}

// LiteralKind classifies literals.
type LiteralKind int

// Literal kinds.
const (
	LitInt LiteralKind = iota
	LitFloat
	LitBool
)

// Literal is a numeric or boolean literal.
type Literal struct {
	NodeInfo
	LitKind LiteralKind
	Text    string
}

// Kind implements Node.
func (*Literal) Kind() NodeKind { return KindLiteral }
func (*Literal) expr()          {}

// Ident is an identifier reference, possibly module-qualified
// (package::util::f) and possibly carrying template arguments
// (array<u32, 4>). Until binding it only carries its source name.
type Ident struct {
	NodeInfo
	Path     []string // qualifying module segments, empty when unqualified
	Name     string
	RefSpan  token.Span // path and name, excluding template arguments
	Template []Expr
}

// Kind implements Node.
func (*Ident) Kind() NodeKind { return KindIdent }
func (*Ident) expr()          {}

// FullName returns the reference as written, without template arguments.
func (i *Ident) FullName() string {
	if len(i.Path) == 0 {
		return i.Name
	}
	return strings.Join(i.Path, "::") + "::" + i.Name
}

// CallExpr is a function call or value constructor.
type CallExpr struct {
	NodeInfo
	Callee *Ident
	Args   []Expr
}

// Kind implements Node.
func (*CallExpr) Kind() NodeKind { return KindCall }
func (*CallExpr) expr()          {}

// BinaryExpr is a binary operation.
type BinaryExpr struct {
	NodeInfo
	Op    string
	Left  Expr
	Right Expr
}

// Kind implements Node.
func (*BinaryExpr) Kind() NodeKind { return KindBinary }
func (*BinaryExpr) expr()          {}

// UnaryExpr is a prefix operation: - ! ~ * &.
type UnaryExpr struct {
	NodeInfo
	Op string
	X  Expr
}

// Kind implements Node.
func (*UnaryExpr) Kind() NodeKind { return KindUnary }
func (*UnaryExpr) expr()          {}

// MemberExpr is component or member access x.name.
type MemberExpr struct {
	NodeInfo
	X    Expr
	Name Name
}

// Kind implements Node.
func (*MemberExpr) Kind() NodeKind { return KindMemberAccess }
func (*MemberExpr) expr()          {}

// IndexExpr is x[index].
type IndexExpr struct {
	NodeInfo
	X     Expr
	Index Expr
}

// Kind implements Node.
func (*IndexExpr) Kind() NodeKind { return KindIndex }
func (*IndexExpr) expr()          {}

// ParenExpr is a parenthesized expression.
type ParenExpr struct {
	NodeInfo
	X Expr
}

// Kind implements Node.
func (*ParenExpr) Kind() NodeKind { return KindParen }
func (*ParenExpr) expr()          {}
