// Package ast defines the syntax tree of the extended shader language.
//
// The tree is a closed sum type: every node implements Node through an
// unexported marker method, and NodeKind enumerates the variants so that
// switches over kinds can end in Unreachable.
package ast

import (
	"fmt"

	"github.com/leapstack-labs/weslink/pkg/token"
)

// NodeKind identifies a node variant.
type NodeKind int

// Node kinds.
const (
	KindModule NodeKind = iota + 1
	KindDirective
	KindImport
	KindFunction
	KindParam
	KindStruct
	KindMember
	KindVar
	KindAlias
	KindConstAssert
	KindAttribute
	KindIfAttr

	// statements
	KindBlock
	KindCondStmt
	KindIf
	KindFor
	KindWhile
	KindLoop
	KindSwitch
	KindCase
	KindReturn
	KindBreak
	KindContinue
	KindDiscard
	KindAssign
	KindIncDec
	KindCallStmt
	KindEmpty

	// expressions
	KindLiteral
	KindIdent
	KindCall
	KindBinary
	KindUnary
	KindMemberAccess
	KindIndex
	KindParen
)

var kindNames = [...]string{
	KindModule:       "module",
	KindDirective:    "directive",
	KindImport:       "import",
	KindFunction:     "function",
	KindParam:        "param",
	KindStruct:       "struct",
	KindMember:       "member",
	KindVar:          "var",
	KindAlias:        "alias",
	KindConstAssert:  "const_assert",
	KindAttribute:    "attribute",
	KindIfAttr:       "if_attr",
	KindBlock:        "block",
	KindCondStmt:     "cond_stmt",
	KindIf:           "if",
	KindFor:          "for",
	KindWhile:        "while",
	KindLoop:         "loop",
	KindSwitch:       "switch",
	KindCase:         "case",
	KindReturn:       "return",
	KindBreak:        "break",
	KindContinue:     "continue",
	KindDiscard:      "discard",
	KindAssign:       "assign",
	KindIncDec:       "inc_dec",
	KindCallStmt:     "call_stmt",
	KindEmpty:        "empty",
	KindLiteral:      "literal",
	KindIdent:        "ident",
	KindCall:         "call",
	KindBinary:       "binary",
	KindUnary:        "unary",
	KindMemberAccess: "member_access",
	KindIndex:        "index",
	KindParen:        "paren",
}

func (k NodeKind) String() string {
	if k > 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("NodeKind(%d)", int(k))
}

// MarshalText renders the kind by name.
func (k NodeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Node is implemented by every syntax tree element.
type Node interface {
	Kind() NodeKind
	GetSpan() token.Span
	node()
}

// Unreachable panics for a node variant a switch did not handle.
func Unreachable(n Node) {
	panic(fmt.Sprintf("ast: unhandled node variant %T", n))
}

// NodeInfo provides the span common to all nodes.
type NodeInfo struct {
	Span token.Span
}

// GetSpan returns the node's source span.
func (n *NodeInfo) GetSpan() token.Span {
	return n.Span
}

func (*NodeInfo) node() {}

// Decl is a top-level declaration.
type Decl interface {
	Node
	// DeclName returns the declared name, or "" for const_assert.
	DeclName() string
	// Condition returns the @if attribute, if any.
	Condition() *IfAttr
	decl()
}

// Name is an identifier at a declaration site.
type Name struct {
	Text string
	Span token.Span
}

// ---------- Module ----------

// Module is one parsed source unit.
type Module struct {
	NodeInfo
	Path       string
	Src        string
	Directives []*Directive
	Imports    []*ImportStmt
	Decls      []Decl // in source order
}

// Kind implements Node.
func (*Module) Kind() NodeKind { return KindModule }

// Directive is an enable, requires or diagnostic directive.
type Directive struct {
	NodeInfo
	If      *IfAttr
	Keyword string   // enable, requires, diagnostic
	Args    []string // raw argument text
}

// Kind implements Node.
func (*Directive) Kind() NodeKind { return KindDirective }

// ---------- Attributes ----------

// Attribute is a generic @name(args) attribute.
type Attribute struct {
	NodeInfo
	Name string
	Args []Expr
}

// Kind implements Node.
func (*Attribute) Kind() NodeKind { return KindAttribute }

// IfAttr is a conditional-compilation attribute @if(cond). The condition is
// evaluated at link time.
type IfAttr struct {
	NodeInfo
	Cond Expr
}

// Kind implements Node.
func (*IfAttr) Kind() NodeKind { return KindIfAttr }

// FindAttr returns the first attribute called name.
func FindAttr(attrs []*Attribute, name string) *Attribute {
	for _, a := range attrs {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// ---------- Imports ----------

// ImportStmt is an import statement holding one import tree.
type ImportStmt struct {
	NodeInfo
	Tree *ImportTree
}

// Kind implements Node.
func (*ImportStmt) Kind() NodeKind { return KindImport }

// ImportTree is a path prefix followed by either a single item or a
// collection of sibling trees: a::b::{c, d as e}.
type ImportTree struct {
	Segments   []string
	Item       *ImportItem
	Collection []*ImportTree
	Span       token.Span
}

// ImportItem is the final name of an import path with optional alias.
type ImportItem struct {
	Name  string
	Alias string
	Span  token.Span
}

// LocalName returns the name the item binds in the importing module.
func (i *ImportItem) LocalName() string {
	if i.Alias != "" {
		return i.Alias
	}
	return i.Name
}

// ImportLeaf is one flattened import: the full segment path and the
// local binding name.
type ImportLeaf struct {
	Path  []string // all segments, the imported name last
	Alias string
	Span  token.Span
}

// Leaves flattens the tree depth first, in source order.
func (t *ImportTree) Leaves() []ImportLeaf {
	var out []ImportLeaf
	t.leaves(nil, &out)
	return out
}

func (t *ImportTree) leaves(prefix []string, out *[]ImportLeaf) {
	path := append(append([]string{}, prefix...), t.Segments...)
	if t.Item != nil {
		full := append(append([]string{}, path...), t.Item.Name)
		*out = append(*out, ImportLeaf{Path: full, Alias: t.Item.LocalName(), Span: t.Item.Span})
		return
	}
	for _, sub := range t.Collection {
		sub.leaves(path, out)
	}
}

// ---------- Declarations ----------

// FnDecl is a function declaration.
type FnDecl struct {
	NodeInfo
	Attrs       []*Attribute
	If          *IfAttr
	Name        Name
	Params      []*Param
	ReturnAttrs []*Attribute
	ReturnType  Expr // nil when absent
	Body        *Block
	Exported    bool // legacy #export marker
}

// Kind implements Node.
func (*FnDecl) Kind() NodeKind { return KindFunction }

// DeclName implements Decl.
func (d *FnDecl) DeclName() string { return d.Name.Text }

// Condition implements Decl.
func (d *FnDecl) Condition() *IfAttr { return d.If }

func (*FnDecl) decl() {}

// IsEntryPoint reports whether the function is a shader stage entry point.
func (d *FnDecl) IsEntryPoint() bool {
	for _, a := range d.Attrs {
		switch a.Name {
		case "vertex", "fragment", "compute":
			return true
		}
	}
	return false
}

// Param is a function parameter.
type Param struct {
	NodeInfo
	Attrs []*Attribute
	Name  Name
	Type  Expr
}

// Kind implements Node.
func (*Param) Kind() NodeKind { return KindParam }

// StructDecl is a struct declaration.
type StructDecl struct {
	NodeInfo
	Attrs    []*Attribute
	If       *IfAttr
	Name     Name
	Members  []*Member
	Exported bool
}

// Kind implements Node.
func (*StructDecl) Kind() NodeKind { return KindStruct }

// DeclName implements Decl.
func (d *StructDecl) DeclName() string { return d.Name.Text }

// Condition implements Decl.
func (d *StructDecl) Condition() *IfAttr { return d.If }

func (*StructDecl) decl() {}

// Member is a struct member. Span covers attributes through the type; the
// separating comma is not included.
type Member struct {
	NodeInfo
	Attrs []*Attribute
	If    *IfAttr
	Name  Name
	Type  Expr
}

// Kind implements Node.
func (*Member) Kind() NodeKind { return KindMember }

// VarDecl is a var, const, override or let declaration, at module scope or
// inside a function body.
type VarDecl struct {
	NodeInfo
	Attrs    []*Attribute
	If       *IfAttr
	Keyword  string // var, const, override, let
	Template []Expr // var<storage, read_write>
	Name     Name
	Type     Expr // nil when inferred
	Init     Expr // nil when absent
	Exported bool
}

// Kind implements Node.
func (*VarDecl) Kind() NodeKind { return KindVar }

// DeclName implements Decl.
func (d *VarDecl) DeclName() string { return d.Name.Text }

// Condition implements Decl.
func (d *VarDecl) Condition() *IfAttr { return d.If }

func (*VarDecl) decl() {}
func (*VarDecl) stmt() {}

// AliasDecl is a type alias.
type AliasDecl struct {
	NodeInfo
	Attrs    []*Attribute
	If       *IfAttr
	Name     Name
	Type     Expr
	Exported bool
}

// Kind implements Node.
func (*AliasDecl) Kind() NodeKind { return KindAlias }

// DeclName implements Decl.
func (d *AliasDecl) DeclName() string { return d.Name.Text }

// Condition implements Decl.
func (d *AliasDecl) Condition() *IfAttr { return d.If }

func (*AliasDecl) decl() {}

// ConstAssert is a const_assert declaration or statement.
type ConstAssert struct {
	NodeInfo
	Attrs []*Attribute
	If    *IfAttr
	Expr  Expr
}

// Kind implements Node.
func (*ConstAssert) Kind() NodeKind { return KindConstAssert }

// DeclName implements Decl. Assertions have no name.
func (*ConstAssert) DeclName() string { return "" }

// Condition implements Decl.
func (d *ConstAssert) Condition() *IfAttr { return d.If }

func (*ConstAssert) decl() {}
func (*ConstAssert) stmt() {}

// IsExported reports whether a legacy-dialect declaration carries #export.
func IsExported(d Decl) bool {
	switch d := d.(type) {
	case *FnDecl:
		return d.Exported
	case *StructDecl:
		return d.Exported
	case *VarDecl:
		return d.Exported
	case *AliasDecl:
		return d.Exported
	case *ConstAssert:
		return false
	default:
		Unreachable(d)
		return false
	}
}
