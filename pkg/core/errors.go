package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/leapstack-labs/weslink/pkg/token"
)

// ErrorKind classifies a fatal link or parse failure.
type ErrorKind int

// Error kinds.
const (
	KindParse ErrorKind = iota + 1
	KindModuleNotFound
	KindUnresolvedImport
	KindDuplicateBinding
	KindUnboundIdentifier
	KindUnknownCondition
	KindTransform
)

// String returns the taxonomy name of the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindParse:
		return "ParseError"
	case KindModuleNotFound:
		return "ModuleNotFound"
	case KindUnresolvedImport:
		return "UnresolvedImport"
	case KindDuplicateBinding:
		return "DuplicateBinding"
	case KindUnboundIdentifier:
		return "UnboundIdentifier"
	case KindUnknownCondition:
		return "UnknownCondition"
	case KindTransform:
		return "TransformError"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is. Any *Error matches the sentinel of its kind.
var (
	ErrParse             = &Error{Kind: KindParse}
	ErrModuleNotFound    = &Error{Kind: KindModuleNotFound}
	ErrUnresolvedImport  = &Error{Kind: KindUnresolvedImport}
	ErrDuplicateBinding  = &Error{Kind: KindDuplicateBinding}
	ErrUnboundIdentifier = &Error{Kind: KindUnboundIdentifier}
	ErrUnknownCondition  = &Error{Kind: KindUnknownCondition}
	ErrTransform         = &Error{Kind: KindTransform}
)

// Error is a fatal error with module and source span context.
type Error struct {
	Kind    ErrorKind
	Module  string     // module path, empty when not tied to a module
	Span    token.Span // zero span when no location applies
	HasSpan bool
	Message string
	Err     error // wrapped cause, optional
}

// Errorf creates an error of the given kind without a location.
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// SpanErrorf creates an error of the given kind located in a module.
func SpanErrorf(kind ErrorKind, module string, span token.Span, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Module:  module,
		Span:    span,
		HasSpan: true,
		Message: fmt.Sprintf(format, args...),
	}
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Kind.String())
	if e.Module != "" {
		sb.WriteString(" in ")
		sb.WriteString(e.Module)
	}
	if e.HasSpan {
		fmt.Fprintf(&sb, " at offset %d", e.Span.Start)
	}
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinels by kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Message == "" && t.Module == "" && t.Kind == e.Kind
}

// InModule returns a copy of the error attributed to module, unless it
// already names one.
func (e *Error) InModule(module string) *Error {
	if e.Module != "" {
		return e
	}
	c := *e
	c.Module = module
	return &c
}

// FormatWithContext renders the error with the offending source line and
// a caret under the error location.
func (e *Error) FormatWithContext(src string) string {
	if !e.HasSpan || src == "" {
		return e.Error()
	}
	pos := token.PositionAt(src, e.Span.Start)
	lines := strings.Split(src, "\n")
	line := lines[pos.Line-1]

	var sb strings.Builder
	fmt.Fprintf(&sb, "error[%s]: %s\n", e.Kind, e.Message)
	if e.Module != "" {
		fmt.Fprintf(&sb, "  --> %s:%d:%d\n", e.Module, pos.Line, pos.Column)
	} else {
		fmt.Fprintf(&sb, "  --> line %d:%d\n", pos.Line, pos.Column)
	}
	sb.WriteString("   |\n")
	fmt.Fprintf(&sb, "%3d| %s\n", pos.Line, line)
	width := e.Span.Len()
	if width < 1 || pos.Column-1+width > len(line) {
		width = 1
	}
	fmt.Fprintf(&sb, "   | %s%s\n", strings.Repeat(" ", pos.Column-1), strings.Repeat("^", width))
	return sb.String()
}

// AsError extracts a *Error from err.
func AsError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
