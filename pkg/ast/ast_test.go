package ast

import (
	"testing"

	"github.com/leapstack-labs/weslink/pkg/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportTree_Leaves(t *testing.T) {
	// a::b::{c, d as e, f::{g}}
	tree := &ImportTree{
		Segments: []string{"a", "b"},
		Collection: []*ImportTree{
			{Item: &ImportItem{Name: "c"}},
			{Item: &ImportItem{Name: "d", Alias: "e"}},
			{Segments: []string{"f"}, Collection: []*ImportTree{
				{Item: &ImportItem{Name: "g"}},
			}},
		},
	}

	leaves := tree.Leaves()
	require.Len(t, leaves, 3)
	assert.Equal(t, []string{"a", "b", "c"}, leaves[0].Path)
	assert.Equal(t, "c", leaves[0].Alias)
	assert.Equal(t, []string{"a", "b", "d"}, leaves[1].Path)
	assert.Equal(t, "e", leaves[1].Alias)
	assert.Equal(t, []string{"a", "b", "f", "g"}, leaves[2].Path)
}

func TestInspect_SourceOrderAndSkip(t *testing.T) {
	x := &Ident{Name: "x"}
	y := &Ident{Name: "y"}
	f32 := &Ident{Name: "f32"}
	fn := &FnDecl{
		Name:       Name{Text: "f"},
		ReturnType: f32,
		Body: &Block{Stmts: []Stmt{
			&ReturnStmt{Value: &BinaryExpr{Op: "+", Left: x, Right: y}},
		}},
	}
	mod := &Module{Decls: []Decl{fn}}

	assert.Equal(t, []*Ident{f32, x, y}, Idents(mod))

	var kinds []NodeKind
	Inspect(mod, func(n Node) bool {
		kinds = append(kinds, n.Kind())
		return n.Kind() != KindReturn
	})
	assert.Equal(t, []NodeKind{KindModule, KindFunction, KindIdent, KindBlock, KindReturn}, kinds)
}

func TestInspect_NilChildren(t *testing.T) {
	loop := &LoopStmt{Body: &Block{}}
	count := 0
	Inspect(loop, func(Node) bool { count++; return true })
	assert.Equal(t, 2, count)
}

type rogue struct{ NodeInfo }

func (*rogue) Kind() NodeKind { return 0 }

func TestUnreachable(t *testing.T) {
	assert.Panics(t, func() { Inspect(&rogue{}, func(Node) bool { return true }) })
}

func TestFnDecl_IsEntryPoint(t *testing.T) {
	fn := &FnDecl{Attrs: []*Attribute{{Name: "compute"}, {Name: "workgroup_size"}}}
	assert.True(t, fn.IsEntryPoint())
	assert.False(t, (&FnDecl{}).IsEntryPoint())
	assert.NotNil(t, FindAttr(fn.Attrs, "workgroup_size"))
	assert.Nil(t, FindAttr(fn.Attrs, "vertex"))
}

func TestIdent_FullName(t *testing.T) {
	id := &Ident{Path: []string{"package", "util"}, Name: "f", RefSpan: token.Span{Start: 0, End: 15}}
	assert.Equal(t, "package::util::f", id.FullName())
	assert.Equal(t, "g", (&Ident{Name: "g"}).FullName())
}

func TestNodeKind_String(t *testing.T) {
	assert.Equal(t, "function", KindFunction.String())
	assert.Equal(t, "member_access", KindMemberAccess.String())
	assert.Equal(t, "paren", KindParen.String())
	assert.Equal(t, "NodeKind(0)", NodeKind(0).String())

	text, err := KindConstAssert.MarshalText()
	assert.NoError(t, err)
	assert.Equal(t, "const_assert", string(text))
}
