// Package preprocess applies legacy line-based conditional directives:
//
//	#if NAME      (or #if !NAME)
//	#else
//	#endif
//
// Lines in inactive branches and the directive lines themselves are
// dropped. The result comes with a source map from the processed text back
// to the original, so link output can be traced through both passes.
package preprocess

import (
	"strings"

	"github.com/leapstack-labs/weslink/pkg/core"
	"github.com/leapstack-labs/weslink/pkg/srcmap"
	"github.com/leapstack-labs/weslink/pkg/token"
)

// HasDirectives reports whether src contains any conditional directive.
func HasDirectives(src string) bool {
	for _, line := range strings.Split(src, "\n") {
		if _, _, ok := directive(line); ok {
			return true
		}
	}
	return false
}

type frame struct {
	parentActive bool
	cond         bool
	inElse       bool
	open         token.Span
}

// Process evaluates the directives in src against conditions. source names
// src in the returned map. Text without directives is returned unchanged
// with a nil map. An #if on a name missing from conditions fails with
// UnknownCondition.
func Process(src, source string, conditions map[string]bool) (string, *srcmap.SourceMap, error) {
	if !HasDirectives(src) {
		return src, nil, nil
	}

	var (
		b      srcmap.Builder
		stack  []frame
		active = true
		offset = 0
	)
	for _, line := range strings.SplitAfter(src, "\n") {
		start := offset
		offset += len(line)
		span := token.Span{Start: start, End: start + len(strings.TrimRight(line, "\r\n"))}

		kw, arg, ok := directive(line)
		if !ok {
			if active {
				b.Add(line, source, start, offset)
			}
			continue
		}

		switch kw {
		case "#if":
			negate := strings.HasPrefix(arg, "!")
			name := strings.TrimSpace(strings.TrimPrefix(arg, "!"))
			if name == "" {
				return "", nil, core.SpanErrorf(core.KindParse, source, span, "#if without a condition name")
			}
			val, known := conditions[name]
			if !known && active {
				return "", nil, core.SpanErrorf(core.KindUnknownCondition, source, span, "unknown condition %s", name)
			}
			cond := val != negate
			stack = append(stack, frame{parentActive: active, cond: cond, open: span})
			active = active && cond

		case "#else":
			if len(stack) == 0 || stack[len(stack)-1].inElse {
				return "", nil, core.SpanErrorf(core.KindParse, source, span, "#else without matching #if")
			}
			top := &stack[len(stack)-1]
			top.inElse = true
			active = top.parentActive && !top.cond

		case "#endif":
			if len(stack) == 0 {
				return "", nil, core.SpanErrorf(core.KindParse, source, span, "#endif without matching #if")
			}
			active = stack[len(stack)-1].parentActive
			stack = stack[:len(stack)-1]
		}
	}
	if len(stack) > 0 {
		return "", nil, core.SpanErrorf(core.KindParse, source, stack[len(stack)-1].open, "#if without matching #endif")
	}
	return b.Text(), b.Build(), nil
}

// directive splits a directive line into keyword and argument.
func directive(line string) (kw, arg string, ok bool) {
	trimmed := strings.TrimSpace(line)
	for _, k := range []string{"#if", "#else", "#endif"} {
		if trimmed == k {
			return k, "", true
		}
		if rest, found := strings.CutPrefix(trimmed, k); found && (rest[0] == ' ' || rest[0] == '\t') {
			return k, strings.TrimSpace(rest), true
		}
	}
	return "", "", false
}
