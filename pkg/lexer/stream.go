package lexer

import (
	"strings"
	"unicode/utf8"

	"github.com/leapstack-labs/weslink/pkg/token"
)

// Stream is a backtrackable cursor over tokens.
// NextToken consumes exactly one token and returns nil at end of input.
type Stream interface {
	Checkpoint() int
	Reset(pos int)
	NextToken() *token.Token
	Src() string
}

// MatchersStream tokenizes src on demand with a Matcher.
// Every byte of src belongs to exactly one token, trivia included.
type MatchersStream struct {
	src     string
	pos     int
	matcher *Matcher
}

// NewMatchersStream creates a stream over src.
func NewMatchersStream(src string, m *Matcher) *MatchersStream {
	return &MatchersStream{src: src, matcher: m}
}

// Checkpoint returns the current offset.
func (s *MatchersStream) Checkpoint() int { return s.pos }

// Reset moves the cursor back to a checkpoint.
func (s *MatchersStream) Reset(pos int) { s.pos = pos }

// Src returns the source text.
func (s *MatchersStream) Src() string { return s.src }

// NextToken returns the token at the cursor and advances past it.
func (s *MatchersStream) NextToken() *token.Token {
	if s.pos >= len(s.src) {
		return nil
	}
	tok, ok := s.matcher.MatchAt(s.src, s.pos)
	if !ok {
		_, size := utf8.DecodeRuneInString(s.src[s.pos:])
		tok = token.Token{
			Kind: token.Invalid,
			Text: s.src[s.pos : s.pos+size],
			Span: token.Span{Start: s.pos, End: s.pos + size},
		}
	}
	if tok.Kind == token.Comment && tok.Text == "/*" {
		tok = s.blockComment(tok.Span.Start)
	}
	s.pos = tok.Span.End
	return &tok
}

// blockComment scans a possibly nested block comment starting at start.
// An unterminated comment runs to the end of the source.
func (s *MatchersStream) blockComment(start int) token.Token {
	depth := 0
	i := start
	for i < len(s.src) {
		switch {
		case strings.HasPrefix(s.src[i:], "/*"):
			depth++
			i += 2
		case strings.HasPrefix(s.src[i:], "*/"):
			depth--
			i += 2
			if depth == 0 {
				return token.Token{Kind: token.Comment, Text: s.src[start:i], Span: token.Span{Start: start, End: i}}
			}
		default:
			i++
		}
	}
	return token.Token{Kind: token.Comment, Text: s.src[start:], Span: token.Span{Start: start, End: len(s.src)}}
}

// FilterStream hides whitespace and comments from an inner stream.
type FilterStream struct {
	inner Stream
}

// NewFilterStream wraps inner.
func NewFilterStream(inner Stream) *FilterStream {
	return &FilterStream{inner: inner}
}

// Checkpoint delegates to the inner stream.
func (s *FilterStream) Checkpoint() int { return s.inner.Checkpoint() }

// Reset delegates to the inner stream.
func (s *FilterStream) Reset(pos int) { s.inner.Reset(pos) }

// Src delegates to the inner stream.
func (s *FilterStream) Src() string { return s.inner.Src() }

// NextToken returns the next non-trivia token.
func (s *FilterStream) NextToken() *token.Token {
	for {
		tok := s.inner.NextToken()
		if tok == nil || !tok.Kind.IsTrivia() {
			return tok
		}
	}
}

// Tokens drains a stream from its current position.
// Mostly useful in tests and for debugging token tables.
func Tokens(s Stream) []token.Token {
	var out []token.Token
	for tok := s.NextToken(); tok != nil; tok = s.NextToken() {
		out = append(out, *tok)
	}
	return out
}
