// Package srcmap records where each range of generated text came from.
//
// A SourceMap is an ordered list of entries, non-overlapping in destination
// coordinates. Entries are recorded fragment by fragment while text is
// emitted and compacted afterwards. Maps of successive passes compose with
// Merge.
package srcmap

import (
	"sort"
	"strings"
)

// Entry maps the destination range [DestStart, DestEnd) to the source range
// [SrcStart, SrcEnd) of Src. Src is empty for generated text.
type Entry struct {
	Src       string `json:"src"`
	SrcStart  int    `json:"src_start"`
	SrcEnd    int    `json:"src_end"`
	DestStart int    `json:"dest_start"`
	DestEnd   int    `json:"dest_end"`
}

// verbatim reports whether source and destination have the same length,
// so positions inside the entry map one to one.
func (e Entry) verbatim() bool {
	return e.SrcEnd-e.SrcStart == e.DestEnd-e.DestStart
}

// SourceMap is a compacted provenance map for one generated text.
type SourceMap struct {
	Entries []Entry `json:"entries"`
	// Sources lists every source identity referenced by Entries, sorted.
	Sources []string `json:"sources"`
}

// Builder accumulates output text together with its provenance.
type Builder struct {
	out     strings.Builder
	entries []Entry
}

// Len returns the length of the text emitted so far.
func (b *Builder) Len() int {
	return b.out.Len()
}

// Add appends text that was produced from src[srcStart:srcEnd].
func (b *Builder) Add(text, src string, srcStart, srcEnd int) {
	if text == "" {
		return
	}
	start := b.out.Len()
	b.out.WriteString(text)
	b.entries = append(b.entries, Entry{
		Src:       src,
		SrcStart:  srcStart,
		SrcEnd:    srcEnd,
		DestStart: start,
		DestEnd:   b.out.Len(),
	})
}

// AddGenerated appends text with no source, such as separators.
func (b *Builder) AddGenerated(text string) {
	b.Add(text, "", 0, 0)
}

// Text returns the emitted text.
func (b *Builder) Text() string {
	return b.out.String()
}

// Build returns the compacted map of everything emitted so far.
func (b *Builder) Build() *SourceMap {
	m := &SourceMap{Entries: append([]Entry(nil), b.entries...)}
	m.Compact()
	return m
}

// Compact merges neighbouring entries whose source and destination ranges
// are both contiguous, and drops empty entries.
func (m *SourceMap) Compact() {
	sort.SliceStable(m.Entries, func(i, j int) bool {
		return m.Entries[i].DestStart < m.Entries[j].DestStart
	})
	out := m.Entries[:0]
	for _, e := range m.Entries {
		if e.DestEnd <= e.DestStart {
			continue
		}
		if n := len(out); n > 0 {
			last := &out[n-1]
			if last.Src == e.Src && last.DestEnd == e.DestStart && last.SrcEnd == e.SrcStart {
				last.DestEnd = e.DestEnd
				last.SrcEnd = e.SrcEnd
				continue
			}
		}
		out = append(out, e)
	}
	m.Entries = out
	m.indexSources()
}

func (m *SourceMap) indexSources() {
	seen := make(map[string]bool)
	m.Sources = m.Sources[:0]
	for _, e := range m.Entries {
		if e.Src != "" && !seen[e.Src] {
			seen[e.Src] = true
			m.Sources = append(m.Sources, e.Src)
		}
	}
	sort.Strings(m.Sources)
}

// Lookup returns the entry covering destination offset pos.
func (m *SourceMap) Lookup(pos int) (Entry, bool) {
	i := sort.Search(len(m.Entries), func(i int) bool {
		return m.Entries[i].DestEnd > pos
	})
	if i < len(m.Entries) && m.Entries[i].DestStart <= pos {
		return m.Entries[i], true
	}
	return Entry{}, false
}

// SourcePos maps destination offset pos to a source identity and offset.
// Inside entries whose lengths differ the start of the source range is
// returned.
func (m *SourceMap) SourcePos(pos int) (src string, offset int, ok bool) {
	e, ok := m.Lookup(pos)
	if !ok || e.Src == "" {
		return "", 0, false
	}
	if e.verbatim() {
		return e.Src, e.SrcStart + (pos - e.DestStart), true
	}
	return e.Src, e.SrcStart, true
}

// Covered reports whether the entries cover [0, n) without gaps or
// overlaps.
func (m *SourceMap) Covered(n int) bool {
	pos := 0
	for _, e := range m.Entries {
		if e.DestStart != pos {
			return false
		}
		pos = e.DestEnd
	}
	return pos == n
}

// Merge rewrites the entries of outer that point into innerID, a text
// produced by an earlier pass described by inner, in terms of inner's
// sources. Parts of an outer entry that inner does not cover keep pointing
// at innerID unchanged.
func Merge(outer, inner *SourceMap, innerID string) *SourceMap {
	out := &SourceMap{}
	for _, o := range outer.Entries {
		if o.Src != innerID {
			out.Entries = append(out.Entries, o)
			continue
		}
		out.Entries = append(out.Entries, mergeEntry(o, inner)...)
	}
	out.Compact()
	return out
}

func mergeEntry(o Entry, inner *SourceMap) []Entry {
	if !o.verbatim() {
		// A rewritten fragment maps as a whole.
		first, ok1 := inner.Lookup(o.SrcStart)
		last, ok2 := inner.Lookup(max(o.SrcEnd-1, o.SrcStart))
		if !ok1 || !ok2 || first.Src != last.Src || first.Src == "" {
			return []Entry{o}
		}
		srcEnd := last.SrcEnd
		if last.verbatim() {
			srcEnd = last.SrcStart + (o.SrcEnd - last.DestStart)
		}
		start := first.SrcStart
		if first.verbatim() {
			start += o.SrcStart - first.DestStart
		}
		return []Entry{{
			Src:       first.Src,
			SrcStart:  start,
			SrcEnd:    max(srcEnd, start),
			DestStart: o.DestStart,
			DestEnd:   o.DestEnd,
		}}
	}

	var res []Entry
	pos := o.SrcStart
	for pos < o.SrcEnd {
		i, ok := inner.Lookup(pos)
		if !ok || i.Src == "" {
			// uncovered: find where inner coverage resumes
			next := o.SrcEnd
			for _, e := range inner.Entries {
				if e.DestStart > pos && e.DestStart < next && e.Src != "" {
					next = e.DestStart
					break
				}
			}
			res = append(res, shift(o, pos, next, o.Src, pos))
			pos = next
			continue
		}
		end := min(i.DestEnd, o.SrcEnd)
		if i.verbatim() {
			res = append(res, shift(o, pos, end, i.Src, i.SrcStart+(pos-i.DestStart)))
		} else {
			e := shift(o, pos, end, i.Src, i.SrcStart)
			e.SrcEnd = i.SrcEnd
			res = append(res, e)
		}
		pos = end
	}
	return res
}

// shift returns the part of verbatim entry o covering outer source range
// [from, to), attributed to src starting at srcStart.
func shift(o Entry, from, to int, src string, srcStart int) Entry {
	return Entry{
		Src:       src,
		SrcStart:  srcStart,
		SrcEnd:    srcStart + (to - from),
		DestStart: o.DestStart + (from - o.SrcStart),
		DestEnd:   o.DestStart + (to - o.SrcStart),
	}
}
