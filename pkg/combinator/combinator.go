// Package combinator provides a small backtracking parser-combinator engine
// over lexer streams.
//
// A Parser[T] either succeeds with a value, leaving the stream advanced, or
// fails, leaving the stream where it was. Ordinary failure is a return value;
// only Req turns a failure into a fatal ParseError, which Run reports as an
// error.
//
//	expr := combinator.Deferred[ast.Expr]()
//	paren := combinator.Delimited(combinator.Text("("), expr.Parser(), combinator.Text(")"))
//	expr.Set(combinator.Or(paren, literal))
package combinator

import (
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/weslink/pkg/core"
	"github.com/leapstack-labs/weslink/pkg/lexer"
	"github.com/leapstack-labs/weslink/pkg/token"
)

// Context is the state shared by all parsers during one parse.
type Context struct {
	Stream lexer.Stream
	// App is mutable application state owned by the grammar.
	App any
	// Logger is the diagnostic sink. Defaults to a discarding logger.
	Logger *slog.Logger
	// Tracer receives enter/exit events of Named parsers when the package
	// is built with the parsetrace tag.
	Tracer Tracer

	lastEnd int
	frame   []tagEntry
	depth   int
}

// NewContext creates a parse context over stream.
func NewContext(stream lexer.Stream, app any, logger *slog.Logger) *Context {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Context{Stream: stream, App: app, Logger: logger}
}

// LastEnd returns the end offset of the last consumed token.
func (c *Context) LastEnd() int { return c.lastEnd }

// Peek returns the next token without consuming it.
func (c *Context) Peek() *token.Token {
	pos := c.Stream.Checkpoint()
	tok := c.Stream.NextToken()
	c.Stream.Reset(pos)
	return tok
}

// PeekStart returns the start offset of the next token, or the end of the
// source when the stream is exhausted.
func (c *Context) PeekStart() int {
	if tok := c.Peek(); tok != nil {
		return tok.Span.Start
	}
	return len(c.Stream.Src())
}

// Fail aborts the parse with a fatal ParseError at the next token.
func (c *Context) Fail(format string, args ...any) {
	span := token.Span{Start: len(c.Stream.Src()), End: len(c.Stream.Src())}
	found := "end of input"
	if tok := c.Peek(); tok != nil {
		span = tok.Span
		found = fmt.Sprintf("%q", tok.Text)
	}
	msg := fmt.Sprintf(format, args...)
	panic(abort{err: core.SpanErrorf(core.KindParse, "", span, "%s, found %s", msg, found)})
}

// FailAt aborts the parse with a fatal ParseError at span.
func (c *Context) FailAt(span token.Span, format string, args ...any) {
	panic(abort{err: core.SpanErrorf(core.KindParse, "", span, format, args...)})
}

// abort carries a fatal error through the parser call stack.
type abort struct {
	err *core.Error
}

// Parser parses a T from a Context.
type Parser[T any] struct {
	name string
	fn   func(*Context) (T, bool)
}

// New creates a parser from a function. The function may consume tokens
// freely; the stream is restored if it reports failure.
func New[T any](fn func(*Context) (T, bool)) Parser[T] {
	return Parser[T]{fn: fn}
}

// Parse runs the parser, restoring the stream on failure.
func (p Parser[T]) Parse(ctx *Context) (T, bool) {
	pos := ctx.Stream.Checkpoint()
	lastEnd := ctx.lastEnd
	mark := len(ctx.frame)

	if tracing && p.name != "" && ctx.Tracer != nil {
		ctx.Tracer.Enter(p.name, ctx.depth, ctx.PeekStart())
		ctx.depth++
	}

	v, ok := p.fn(ctx)

	if tracing && p.name != "" && ctx.Tracer != nil {
		ctx.depth--
		ctx.Tracer.Exit(p.name, ctx.depth, ok)
	}

	if !ok {
		ctx.Stream.Reset(pos)
		ctx.lastEnd = lastEnd
		ctx.frame = ctx.frame[:mark]
	}
	return v, ok
}

// Name returns the trace name of the parser, if any.
func (p Parser[T]) Name() string { return p.name }

// Run parses p from the context and converts a fatal abort into an error.
func Run[T any](p Parser[T], ctx *Context) (v T, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			a, isAbort := r.(abort)
			if !isAbort {
				panic(r)
			}
			err = a.err
			ok = false
		}
	}()
	v, ok = p.Parse(ctx)
	return v, ok, nil
}
