package combinator

// tagEntry is one named capture in the current tag frame.
type tagEntry struct {
	name  string
	value any
}

// Tags holds the values captured by Tag inside one Tagged frame, in
// capture order.
type Tags map[string][]any

// Tag captures the result of p under name in the enclosing Tagged frame.
// Captures made by alternatives that later fail are discarded.
func Tag[T any](name string, p Parser[T]) Parser[T] {
	return New(func(ctx *Context) (T, bool) {
		v, ok := p.Parse(ctx)
		if ok {
			ctx.frame = append(ctx.frame, tagEntry{name: name, value: v})
		}
		return v, ok
	})
}

// Tagged runs p in a fresh tag frame and hands its captures to f.
// Captures do not leak into outer frames.
func Tagged[T, R any](p Parser[T], f func(T, Tags) R) Parser[R] {
	return New(func(ctx *Context) (R, bool) {
		outer := ctx.frame
		ctx.frame = nil
		v, ok := p.Parse(ctx)
		inner := ctx.frame
		ctx.frame = outer
		if !ok {
			var zero R
			return zero, false
		}
		tags := make(Tags, len(inner))
		for _, e := range inner {
			tags[e.name] = append(tags[e.name], e.value)
		}
		return f(v, tags), true
	})
}

// All returns every value captured under name, converted to T.
// Values of another type are skipped.
func All[T any](tags Tags, name string) []T {
	var out []T
	for _, v := range tags[name] {
		if t, ok := v.(T); ok {
			out = append(out, t)
		}
	}
	return out
}

// First returns the first value captured under name.
func First[T any](tags Tags, name string) (T, bool) {
	for _, v := range tags[name] {
		if t, ok := v.(T); ok {
			return t, true
		}
	}
	var zero T
	return zero, false
}
