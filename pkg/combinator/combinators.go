package combinator

import (
	"sync"

	"github.com/leapstack-labs/weslink/pkg/token"
)

// ---------- Token primitives ----------

// Any matches any single token.
func Any() Parser[*token.Token] {
	return New(func(ctx *Context) (*token.Token, bool) {
		tok := ctx.Stream.NextToken()
		if tok == nil {
			return nil, false
		}
		ctx.lastEnd = tok.Span.End
		return tok, true
	})
}

// Kind matches one token of the given kind.
func Kind(kind token.Kind) Parser[*token.Token] {
	return New(func(ctx *Context) (*token.Token, bool) {
		tok := ctx.Stream.NextToken()
		if tok == nil || tok.Kind != kind {
			return nil, false
		}
		ctx.lastEnd = tok.Span.End
		return tok, true
	})
}

// Text matches one token with exactly the given text, whatever its kind.
func Text(text string) Parser[*token.Token] {
	return New(func(ctx *Context) (*token.Token, bool) {
		tok := ctx.Stream.NextToken()
		if tok == nil || tok.Text != text {
			return nil, false
		}
		ctx.lastEnd = tok.Span.End
		return tok, true
	})
}

// KindText matches one token with the given kind and text.
func KindText(kind token.Kind, text string) Parser[*token.Token] {
	return New(func(ctx *Context) (*token.Token, bool) {
		tok := ctx.Stream.NextToken()
		if tok == nil || tok.Kind != kind || tok.Text != text {
			return nil, false
		}
		ctx.lastEnd = tok.Span.End
		return tok, true
	})
}

// End succeeds only at the end of the stream.
func End() Parser[struct{}] {
	return New(func(ctx *Context) (struct{}, bool) {
		return struct{}{}, ctx.Stream.NextToken() == nil
	})
}

// ---------- Structural combinators ----------

// Value succeeds without consuming input.
func Value[T any](v T) Parser[T] {
	return New(func(*Context) (T, bool) { return v, true })
}

// Erase converts a parser into a Parser[any], for use with Seq.
func Erase[T any](p Parser[T]) Parser[any] {
	return Parser[any]{name: p.name, fn: func(ctx *Context) (any, bool) {
		return p.Parse(ctx)
	}}
}

// Seq runs parsers in order and succeeds only if all succeed.
func Seq(ps ...Parser[any]) Parser[[]any] {
	return New(func(ctx *Context) ([]any, bool) {
		out := make([]any, 0, len(ps))
		for _, p := range ps {
			v, ok := p.Parse(ctx)
			if !ok {
				return nil, false
			}
			out = append(out, v)
		}
		return out, true
	})
}

// Pair is the result of Seq2.
type Pair[A, B any] struct {
	First  A
	Second B
}

// Seq2 runs two parsers in order.
func Seq2[A, B any](a Parser[A], b Parser[B]) Parser[Pair[A, B]] {
	return New(func(ctx *Context) (Pair[A, B], bool) {
		va, ok := a.Parse(ctx)
		if !ok {
			return Pair[A, B]{}, false
		}
		vb, ok := b.Parse(ctx)
		if !ok {
			return Pair[A, B]{}, false
		}
		return Pair[A, B]{va, vb}, true
	})
}

// Triple is the result of Seq3.
type Triple[A, B, C any] struct {
	First  A
	Second B
	Third  C
}

// Seq3 runs three parsers in order.
func Seq3[A, B, C any](a Parser[A], b Parser[B], c Parser[C]) Parser[Triple[A, B, C]] {
	return New(func(ctx *Context) (Triple[A, B, C], bool) {
		va, ok := a.Parse(ctx)
		if !ok {
			return Triple[A, B, C]{}, false
		}
		vb, ok := b.Parse(ctx)
		if !ok {
			return Triple[A, B, C]{}, false
		}
		vc, ok := c.Parse(ctx)
		if !ok {
			return Triple[A, B, C]{}, false
		}
		return Triple[A, B, C]{va, vb, vc}, true
	})
}

// Or tries each parser in order; the first success wins.
func Or[T any](ps ...Parser[T]) Parser[T] {
	return New(func(ctx *Context) (T, bool) {
		for _, p := range ps {
			if v, ok := p.Parse(ctx); ok {
				return v, true
			}
		}
		var zero T
		return zero, false
	})
}

// Many matches p zero or more times.
func Many[T any](p Parser[T]) Parser[[]T] {
	return New(func(ctx *Context) ([]T, bool) {
		var out []T
		for {
			before := ctx.Stream.Checkpoint()
			v, ok := p.Parse(ctx)
			if !ok || ctx.Stream.Checkpoint() == before {
				// stop on failure or on a success that consumed nothing
				if ok {
					out = append(out, v)
				}
				return out, true
			}
			out = append(out, v)
		}
	})
}

// Many1 matches p one or more times.
func Many1[T any](p Parser[T]) Parser[[]T] {
	many := Many(p)
	return New(func(ctx *Context) ([]T, bool) {
		out, _ := many.Parse(ctx)
		return out, len(out) > 0
	})
}

// Opt matches p or nothing, yielding the zero value when absent.
func Opt[T any](p Parser[T]) Parser[T] {
	return New(func(ctx *Context) (T, bool) {
		v, _ := p.Parse(ctx)
		return v, true
	})
}

// Present matches p or nothing, reporting whether p matched.
func Present[T any](p Parser[T]) Parser[bool] {
	return New(func(ctx *Context) (bool, bool) {
		_, ok := p.Parse(ctx)
		return ok, true
	})
}

// Not succeeds without consuming input when p fails.
func Not[T any](p Parser[T]) Parser[struct{}] {
	return New(func(ctx *Context) (struct{}, bool) {
		pos := ctx.Stream.Checkpoint()
		lastEnd := ctx.lastEnd
		_, ok := p.Parse(ctx)
		ctx.Stream.Reset(pos)
		ctx.lastEnd = lastEnd
		return struct{}{}, !ok
	})
}

// Map transforms the result of p.
func Map[A, B any](p Parser[A], f func(A) B) Parser[B] {
	return New(func(ctx *Context) (B, bool) {
		v, ok := p.Parse(ctx)
		if !ok {
			var zero B
			return zero, false
		}
		return f(v), true
	})
}

// MapCtx transforms the result of p with access to the context.
// Returning false from f fails the parser.
func MapCtx[A, B any](p Parser[A], f func(*Context, A) (B, bool)) Parser[B] {
	return New(func(ctx *Context) (B, bool) {
		v, ok := p.Parse(ctx)
		if !ok {
			var zero B
			return zero, false
		}
		return f(ctx, v)
	})
}

// Preceded matches prefix then p, keeping p's result.
func Preceded[A, T any](prefix Parser[A], p Parser[T]) Parser[T] {
	return Map(Seq2(prefix, p), func(r Pair[A, T]) T { return r.Second })
}

// Terminated matches p then suffix, keeping p's result.
func Terminated[T, B any](p Parser[T], suffix Parser[B]) Parser[T] {
	return Map(Seq2(p, suffix), func(r Pair[T, B]) T { return r.First })
}

// Delimited matches open, p, close, keeping p's result.
func Delimited[A, T, B any](open Parser[A], p Parser[T], close Parser[B]) Parser[T] {
	return Map(Seq3(open, p, close), func(r Triple[A, T, B]) T { return r.Second })
}

// List matches zero or more p separated by sep, with an optional
// trailing separator.
func List[T, S any](p Parser[T], sep Parser[S]) Parser[[]T] {
	return New(func(ctx *Context) ([]T, bool) {
		var out []T
		for {
			v, ok := p.Parse(ctx)
			if !ok {
				return out, true
			}
			out = append(out, v)
			if _, ok := sep.Parse(ctx); !ok {
				return out, true
			}
		}
	})
}

// List1 is List requiring at least one element.
func List1[T, S any](p Parser[T], sep Parser[S]) Parser[[]T] {
	list := List(p, sep)
	return New(func(ctx *Context) ([]T, bool) {
		out, _ := list.Parse(ctx)
		return out, len(out) > 0
	})
}

// Spanned is a value with the source span it was parsed from.
type Spanned[T any] struct {
	Value T
	Span  token.Span
}

// WithSpan records the span of the tokens consumed by p.
func WithSpan[T any](p Parser[T]) Parser[Spanned[T]] {
	return New(func(ctx *Context) (Spanned[T], bool) {
		start := ctx.PeekStart()
		v, ok := p.Parse(ctx)
		if !ok {
			return Spanned[T]{}, false
		}
		end := ctx.lastEnd
		if end < start {
			end = start
		}
		return Spanned[T]{Value: v, Span: token.Span{Start: start, End: end}}, true
	})
}

// Req converts failure of p into a fatal ParseError. Use it after the
// grammar has committed to a production.
func Req[T any](p Parser[T], msg string) Parser[T] {
	return New(func(ctx *Context) (T, bool) {
		v, ok := p.Parse(ctx)
		if !ok {
			ctx.Fail("%s", msg)
		}
		return v, true
	})
}

// ---------- Deferred references ----------

// Handle is a parser slot filled in after construction, for mutually
// recursive grammar rules.
type Handle[T any] struct {
	p *Parser[T]
}

// Deferred creates an empty handle.
func Deferred[T any]() *Handle[T] {
	return &Handle[T]{}
}

// Set fills the handle.
func (h *Handle[T]) Set(p Parser[T]) {
	h.p = &p
}

// Parser returns a parser that delegates to the handle's content at parse
// time. Parsing an unset handle panics.
func (h *Handle[T]) Parser() Parser[T] {
	return New(func(ctx *Context) (T, bool) {
		if h.p == nil {
			panic("combinator: deferred parser used before Set")
		}
		return h.p.Parse(ctx)
	})
}

// Lazy builds its parser on first use.
func Lazy[T any](build func() Parser[T]) Parser[T] {
	var (
		once  sync.Once
		built Parser[T]
	)
	return New(func(ctx *Context) (T, bool) {
		once.Do(func() { built = build() })
		return built.Parse(ctx)
	})
}
