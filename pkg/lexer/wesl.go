package lexer

import (
	"strings"

	"github.com/leapstack-labs/weslink/pkg/token"
)

// WeslPatterns is the token table for the extended shader language.
var WeslPatterns = []Pattern{
	{Name: "ws", Kind: token.Whitespace, Expr: `[\s\x{200E}\x{200F}\x{2028}\x{2029}]+`},
	{Name: "comment", Kind: token.Comment, Expr: `//[^\n]*|/\*`},
	{Name: "directive", Kind: token.Directive, Expr: `#[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "string", Kind: token.String, Expr: `"[^"\n]*"`},
	{Name: "number", Kind: token.Number, Expr: `0[xX][0-9a-fA-F]*\.[0-9a-fA-F]*(?:[pP][+-]?[0-9]+)?[fh]?` +
		`|0[xX][0-9a-fA-F]+(?:[pP][+-]?[0-9]+[fh]?|[iu]?)` +
		`|[0-9]*\.[0-9]+(?:[eE][+-]?[0-9]+)?[fh]?` +
		`|[0-9]+\.[0-9]*(?:[eE][+-]?[0-9]+)?[fh]?` +
		`|[0-9]+[eE][+-]?[0-9]+[fh]?` +
		`|[0-9]+[fhiu]?`},
	{Name: "word", Kind: token.Word, Expr: `[_\p{L}][_\p{L}\p{N}]*`},
	{Name: "symbol", Kind: token.Symbol, Expr: `>>=|<<=|::|->|&&|\|\||==|!=|<=|>=|<<|>>|\+\+|--|\+=|-=|\*=|/=|%=|&=|\|=|\^=` +
		`|[-+*/%&|^~!=<>(){}\[\];:,.@]`},
}

var weslMatcher = MustMatcher(WeslPatterns)

// Keywords recognized by the grammar stream. Everything else lexed as a
// word stays a word, including builtin type names like vec3 and array.
var Keywords = map[string]bool{
	"alias": true, "break": true, "case": true, "const": true, "const_assert": true,
	"continue": true, "continuing": true, "default": true, "diagnostic": true,
	"discard": true, "else": true, "enable": true, "false": true, "fn": true,
	"for": true, "if": true, "let": true, "loop": true, "override": true,
	"requires": true, "return": true, "struct": true, "switch": true, "true": true,
	"var": true, "while": true,
}

// maxTemplateScan bounds the template discovery lookahead, in tokens.
const maxTemplateScan = 512

// WeslStream is the stream consumed by the grammar. It hides trivia,
// classifies keywords and decides per occurrence whether '<' opens a
// template list. Closing '>' characters of discovered template lists are
// emitted as one-character TemplateClose tokens, so ">>" closing two
// nested lists becomes two tokens.
//
// Discovery results depend only on source offsets, so they stay valid
// across Reset.
type WeslStream struct {
	raw    *MatchersStream
	opens  map[int]int  // offset of '<' -> offset just past its closing '>'
	closes map[int]bool // offset of '>' closing a template list
	tested map[int]bool // offsets of '<' already examined
}

// NewWeslStream creates a grammar stream over src.
func NewWeslStream(src string) *WeslStream {
	return &WeslStream{
		raw:    NewMatchersStream(src, weslMatcher),
		opens:  make(map[int]int),
		closes: make(map[int]bool),
		tested: make(map[int]bool),
	}
}

// Checkpoint returns the current offset.
func (s *WeslStream) Checkpoint() int { return s.raw.Checkpoint() }

// Reset moves the cursor back to a checkpoint.
func (s *WeslStream) Reset(pos int) { s.raw.Reset(pos) }

// Src returns the source text.
func (s *WeslStream) Src() string { return s.raw.Src() }

// NextToken returns the next grammar token.
func (s *WeslStream) NextToken() *token.Token {
	tok := s.nextNonTrivia()
	if tok == nil {
		return nil
	}

	start := tok.Span.Start
	if s.closes[start] {
		// Split ">>", ">=" and ">>=" at a template close.
		s.raw.Reset(start + 1)
		return &token.Token{Kind: token.TemplateClose, Text: ">", Span: token.Span{Start: start, End: start + 1}}
	}
	if _, ok := s.opens[start]; ok && tok.Kind == token.Symbol && tok.Text == "<" {
		tok.Kind = token.TemplateOpen
		return tok
	}
	if tok.Kind == token.Word {
		if Keywords[tok.Text] {
			tok.Kind = token.Keyword
		}
		s.discoverAfter(tok.Span.End)
	}
	return tok
}

func (s *WeslStream) nextNonTrivia() *token.Token {
	for {
		tok := s.raw.NextToken()
		if tok == nil || !tok.Kind.IsTrivia() {
			return tok
		}
	}
}

// discoverAfter checks whether the token following offset pos is a '<'
// that opens a template list, recording the result.
func (s *WeslStream) discoverAfter(pos int) {
	save := s.raw.Checkpoint()
	defer s.raw.Reset(save)

	s.raw.Reset(pos)
	next := s.nextNonTrivia()
	if next == nil || next.Kind != token.Symbol || next.Text != "<" {
		return
	}
	s.discover(next.Span.Start)
}

// discover runs template-list discovery for the '<' at offset lt and
// returns the offset just past the matching '>' when one is found.
func (s *WeslStream) discover(lt int) (int, bool) {
	if s.tested[lt] {
		end, ok := s.opens[lt]
		return end, ok
	}
	s.tested[lt] = true

	var brackets []string
	s.raw.Reset(lt + 1)
	for n := 0; n < maxTemplateScan; n++ {
		tok := s.nextNonTrivia()
		if tok == nil {
			return 0, false
		}
		start := tok.Span.Start
		switch {
		case tok.Kind == token.Word:
			s.nestedAfter(tok.Span.End)
		case tok.Kind != token.Symbol:
			// numbers, strings: part of an expression
		case tok.Text == "(" || tok.Text == "[":
			brackets = append(brackets, tok.Text)
		case tok.Text == ")" || tok.Text == "]":
			if len(brackets) == 0 {
				return 0, false
			}
			brackets = brackets[:len(brackets)-1]
		case strings.HasPrefix(tok.Text, ">"):
			if len(brackets) == 0 {
				s.opens[lt] = start + 1
				s.closes[start] = true
				return start + 1, true
			}
		case tok.Text == ";" || tok.Text == "{" || tok.Text == "}" || tok.Text == ":":
			return 0, false
		case len(brackets) == 0 && (tok.Text == "=" || tok.Text == "&&" || tok.Text == "||"):
			return 0, false
		}
	}
	return 0, false
}

// nestedAfter handles a word inside a template list that may open a nested
// list. On success the cursor is left just past the nested close.
func (s *WeslStream) nestedAfter(pos int) {
	s.raw.Reset(pos)
	next := s.nextNonTrivia()
	if next == nil || next.Kind != token.Symbol || next.Text != "<" {
		s.raw.Reset(pos)
		return
	}
	if end, ok := s.discover(next.Span.Start); ok {
		s.raw.Reset(end)
		return
	}
	// Not a template: '<' is an operator, continue scanning after it.
	s.raw.Reset(next.Span.End)
}
