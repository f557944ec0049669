package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPositionAt(t *testing.T) {
	src := "fn a() {}\nfn b() {\n  let x = 1;\n}"

	tests := []struct {
		name   string
		offset int
		want   Position
	}{
		{name: "start", offset: 0, want: Position{Line: 1, Column: 1, Offset: 0}},
		{name: "second line", offset: 10, want: Position{Line: 2, Column: 1, Offset: 10}},
		{name: "indented", offset: 21, want: Position{Line: 3, Column: 3, Offset: 21}},
		{name: "clamped", offset: 1000, want: Position{Line: 4, Column: 2, Offset: len(src)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PositionAt(src, tt.offset))
		})
	}
}

func TestSpan(t *testing.T) {
	s := Span{Start: 2, End: 5}

	assert.Equal(t, 3, s.Len())
	assert.True(t, s.Contains(2))
	assert.False(t, s.Contains(5))
	assert.Equal(t, Span{Start: 1, End: 5}, s.Cover(Span{Start: 1, End: 3}))
	assert.Equal(t, "cde", s.Text("abcdefg"))
}

func TestKindByName(t *testing.T) {
	k, ok := KindByName("word")
	assert.True(t, ok)
	assert.Equal(t, Word, k)

	_, ok = KindByName("nope")
	assert.False(t, ok)
	assert.Equal(t, "KIND(99)", Kind(99).String())
}
