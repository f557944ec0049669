package srcmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_CompactsContiguousFragments(t *testing.T) {
	var b Builder
	b.Add("fn ", "a", 0, 3)
	b.Add("main", "a", 3, 7)
	b.Add("()", "a", 7, 9)
	b.AddGenerated("\n\n")
	b.Add("x", "b", 10, 11)
	b.Add("y", "b", 20, 21) // source gap: not merged

	m := b.Build()
	assert.Equal(t, "fn main()\n\nxy", b.Text())
	require.Len(t, m.Entries, 4)
	assert.Equal(t, Entry{Src: "a", SrcStart: 0, SrcEnd: 9, DestStart: 0, DestEnd: 9}, m.Entries[0])
	assert.Equal(t, "", m.Entries[1].Src)
	assert.Equal(t, []string{"a", "b"}, m.Sources)
	assert.True(t, m.Covered(len(b.Text())))
}

func TestCompact_RenamedFragmentStillMerges(t *testing.T) {
	// "let v = foo;" with foo renamed to util_foo
	var b Builder
	b.Add("let v = ", "m", 0, 8)
	b.Add("util_foo", "m", 8, 11)
	b.Add(";", "m", 11, 12)
	m := b.Build()
	require.Len(t, m.Entries, 1)
	assert.Equal(t, Entry{Src: "m", SrcStart: 0, SrcEnd: 12, DestStart: 0, DestEnd: 17}, m.Entries[0])
}

func TestCompact_NoOverlapAndFullCoverage(t *testing.T) {
	var b Builder
	for i := 0; i < 20; i++ {
		src := "a"
		if i%3 == 0 {
			src = "b"
		}
		b.Add("xx", src, i*2, i*2+2)
		if i%5 == 0 {
			b.AddGenerated("\n")
		}
	}
	m := b.Build()
	assert.True(t, m.Covered(b.Len()))
	for i := 1; i < len(m.Entries); i++ {
		assert.LessOrEqual(t, m.Entries[i-1].DestEnd, m.Entries[i].DestStart)
		prev, cur := m.Entries[i-1], m.Entries[i]
		mergeable := prev.Src == cur.Src && prev.DestEnd == cur.DestStart && prev.SrcEnd == cur.SrcStart
		assert.False(t, mergeable, "entries %d and %d should have been merged", i-1, i)
	}
}

func TestLookupAndSourcePos(t *testing.T) {
	var b Builder
	b.Add("abc", "m", 10, 13)
	b.AddGenerated("\n")
	b.Add("LONGNAME", "m", 20, 21)
	m := b.Build()

	src, off, ok := m.SourcePos(1)
	require.True(t, ok)
	assert.Equal(t, "m", src)
	assert.Equal(t, 11, off)

	_, _, ok = m.SourcePos(3)
	assert.False(t, ok, "generated newline has no source")

	_, off, ok = m.SourcePos(7)
	require.True(t, ok)
	assert.Equal(t, 20, off)

	_, ok = m.Lookup(100)
	assert.False(t, ok)
}

func TestMerge(t *testing.T) {
	// Preprocessing copied original[0:10] to pre[0:10], dropped
	// original[10:30] and copied original[30:50] to pre[10:30].
	inner := &SourceMap{Entries: []Entry{
		{Src: "orig", SrcStart: 0, SrcEnd: 10, DestStart: 0, DestEnd: 10},
		{Src: "orig", SrcStart: 30, SrcEnd: 50, DestStart: 10, DestEnd: 30},
	}}
	// Linking copied pre[5:25] to out[100:120].
	outer := &SourceMap{Entries: []Entry{
		{Src: "pre", SrcStart: 5, SrcEnd: 25, DestStart: 100, DestEnd: 120},
		{Src: "other", SrcStart: 0, SrcEnd: 4, DestStart: 120, DestEnd: 124},
	}}

	m := Merge(outer, inner, "pre")
	require.Len(t, m.Entries, 3)
	assert.Equal(t, Entry{Src: "orig", SrcStart: 5, SrcEnd: 10, DestStart: 100, DestEnd: 105}, m.Entries[0])
	assert.Equal(t, Entry{Src: "orig", SrcStart: 30, SrcEnd: 45, DestStart: 105, DestEnd: 120}, m.Entries[1])
	assert.Equal(t, "other", m.Entries[2].Src)
	assert.Equal(t, []string{"orig", "other"}, m.Sources)
}

func TestMerge_FallsBackForUncoveredRange(t *testing.T) {
	inner := &SourceMap{Entries: []Entry{
		{Src: "orig", SrcStart: 0, SrcEnd: 10, DestStart: 0, DestEnd: 10},
	}}
	outer := &SourceMap{Entries: []Entry{
		{Src: "pre", SrcStart: 5, SrcEnd: 15, DestStart: 0, DestEnd: 10},
	}}

	m := Merge(outer, inner, "pre")
	require.Len(t, m.Entries, 2)
	assert.Equal(t, Entry{Src: "orig", SrcStart: 5, SrcEnd: 10, DestStart: 0, DestEnd: 5}, m.Entries[0])
	assert.Equal(t, Entry{Src: "pre", SrcStart: 10, SrcEnd: 15, DestStart: 5, DestEnd: 10}, m.Entries[1])
}

func TestMerge_RewrittenFragment(t *testing.T) {
	inner := &SourceMap{Entries: []Entry{
		{Src: "orig", SrcStart: 40, SrcEnd: 60, DestStart: 0, DestEnd: 20},
	}}
	outer := &SourceMap{Entries: []Entry{
		{Src: "pre", SrcStart: 4, SrcEnd: 7, DestStart: 0, DestEnd: 9},
	}}
	m := Merge(outer, inner, "pre")
	require.Len(t, m.Entries, 1)
	assert.Equal(t, Entry{Src: "orig", SrcStart: 44, SrcEnd: 47, DestStart: 0, DestEnd: 9}, m.Entries[0])
}
