// Package lexer turns shader source text into position-tracked tokens.
//
// Tokenizing is table driven: a Matcher is built from an ordered list of
// named regular expressions and tries them at the cursor, first match wins.
// Streams layered on top of the matcher provide checkpoint/reset for the
// backtracking parser, hide trivia and perform template-list discovery.
package lexer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/leapstack-labs/weslink/pkg/token"
)

// Pattern is one named entry in a token table.
type Pattern struct {
	Name string     // pattern name, used in diagnostics
	Kind token.Kind // kind assigned to matching text
	Expr string     // regular expression, without anchors or capture groups
}

// Matcher matches an ordered table of patterns at arbitrary offsets.
type Matcher struct {
	re       *regexp.Regexp
	patterns []Pattern
}

// NewMatcher compiles the patterns into a single anchored expression.
// Earlier patterns take precedence over later ones.
func NewMatcher(patterns []Pattern) (*Matcher, error) {
	if len(patterns) == 0 {
		return nil, fmt.Errorf("lexer: empty pattern table")
	}
	alts := make([]string, len(patterns))
	for i, p := range patterns {
		if _, err := regexp.Compile(p.Expr); err != nil {
			return nil, fmt.Errorf("lexer: pattern %q: %w", p.Name, err)
		}
		alts[i] = "(" + p.Expr + ")"
	}
	re, err := regexp.Compile(`\A(?:` + strings.Join(alts, "|") + `)`)
	if err != nil {
		return nil, fmt.Errorf("lexer: compile table: %w", err)
	}
	if re.NumSubexp() != len(patterns) {
		return nil, fmt.Errorf("lexer: patterns must not contain capture groups")
	}
	return &Matcher{re: re, patterns: patterns}, nil
}

// MustMatcher is like NewMatcher but panics on error.
// Intended for package-level token tables.
func MustMatcher(patterns []Pattern) *Matcher {
	m, err := NewMatcher(patterns)
	if err != nil {
		panic(err)
	}
	return m
}

// MatchAt returns the token matching at offset pos of src.
// Returns false at end of input or when no pattern matches a non-empty prefix.
func (m *Matcher) MatchAt(src string, pos int) (token.Token, bool) {
	if pos >= len(src) {
		return token.Token{}, false
	}
	loc := m.re.FindStringSubmatchIndex(src[pos:])
	if loc == nil || loc[1] == 0 {
		return token.Token{}, false
	}
	for i, p := range m.patterns {
		start := loc[2+2*i]
		if start < 0 {
			continue
		}
		end := pos + loc[2+2*i+1]
		return token.Token{
			Kind: p.Kind,
			Text: src[pos:end],
			Span: token.Span{Start: pos, End: end},
		}, true
	}
	return token.Token{}, false
}

// PatternName returns the table name of the pattern producing kind.
func (m *Matcher) PatternName(kind token.Kind) string {
	for _, p := range m.patterns {
		if p.Kind == kind {
			return p.Name
		}
	}
	return kind.String()
}
