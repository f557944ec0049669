// Package token defines the token kinds and source spans shared by the
// tokenizer, the grammar and the linker.
package token

import "fmt"

// Kind is the lexical class of a token.
type Kind int32

const (
	// Special tokens
	EOF Kind = iota
	Invalid

	// Matched by the pattern table
	Word       // identifier or reserved word
	Keyword    // reserved word recognized by the grammar stream
	Number     // 123, 1.5f, 0x1fu
	String     // "./path" (legacy directives only)
	Symbol     // operators and punctuation
	Whitespace // spaces, tabs, newlines
	Comment    // line or block comment
	Directive  // #import, #export, #if (legacy dialect)

	// Produced by the grammar stream after template discovery
	TemplateOpen  // '<' opening a template list
	TemplateClose // '>' closing a template list
)

var kindNames = map[Kind]string{
	EOF:           "EOF",
	Invalid:       "INVALID",
	Word:          "word",
	Keyword:       "keyword",
	Number:        "number",
	String:        "string",
	Symbol:        "symbol",
	Whitespace:    "ws",
	Comment:       "comment",
	Directive:     "directive",
	TemplateOpen:  "template-open",
	TemplateClose: "template-close",
}

// String returns a human-readable representation of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("KIND(%d)", k)
}

// KindByName returns the kind registered under a pattern name.
// Pattern tables name their entries with these strings.
func KindByName(name string) (Kind, bool) {
	for k, n := range kindNames {
		if n == name {
			return k, true
		}
	}
	return Invalid, false
}

// IsTrivia reports whether tokens of this kind are skipped by the grammar.
func (k Kind) IsTrivia() bool {
	return k == Whitespace || k == Comment
}

// Token is an immutable lexical token with its source span.
type Token struct {
	Kind Kind
	Text string
	Span Span
}

// Is reports whether the token has the given kind and text.
func (t *Token) Is(kind Kind, text string) bool {
	return t != nil && t.Kind == kind && t.Text == text
}

func (t Token) String() string {
	return fmt.Sprintf("%s %q @%d", t.Kind, t.Text, t.Span.Start)
}
