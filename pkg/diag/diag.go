// Package diag defines the source positions and diagnostic records shared
// by the compile-time passes of the Neksis pipeline (lexer, parser,
// analyzer). The VM reports its faults as plain errors and does not use
// this package.
package diag

import "fmt"

// Pos is a single point in a source file.
type Pos struct {
	Line   int // 1-based
	Col    int // 1-based
	Offset int // 0-based byte offset
}

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Col)
}

// Span is a half-open source range [Start, End).
type Span struct {
	Start Pos
	End   Pos
}

// Kind identifies which pass raised a Diagnostic.
type Kind int

const (
	Lex Kind = iota
	Parse
	Semantic
	Runtime
)

func (k Kind) String() string {
	switch k {
	case Lex:
		return "lex error"
	case Parse:
		return "parse error"
	case Semantic:
		return "semantic error"
	case Runtime:
		return "runtime error"
	default:
		return "error"
	}
}

// Diagnostic is a single user-visible error with a span and a message.
type Diagnostic struct {
	Kind    Kind
	Span    Span
	Message string
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s at %s: %s", d.Kind, d.Span.Start, d.Message)
}

// Format renders the diagnostic as "file:line:column: message" followed by
// a caret line under the offending source text, the way the teacher's
// Parser.fmtError renders a trimmed source snippet under each parse error.
func (d Diagnostic) Format(file string, lines []string) string {
	out := fmt.Sprintf("%s:%d:%d: %s", file, d.Span.Start.Line, d.Span.Start.Col, d.Message)
	idx := d.Span.Start.Line - 1
	if idx < 0 || idx >= len(lines) {
		return out
	}
	src := lines[idx]
	caret := make([]byte, 0, d.Span.Start.Col)
	for i := 1; i < d.Span.Start.Col; i++ {
		if i-1 < len(src) && src[i-1] == '\t' {
			caret = append(caret, '\t')
		} else {
			caret = append(caret, ' ')
		}
	}
	caret = append(caret, '^')
	return fmt.Sprintf("%s\n  |> %s\n     %s", out, src, caret)
}

// List is an ordered collection of diagnostics from a single pass.
type List []Diagnostic

func (l List) Error() string {
	if len(l) == 0 {
		return "no errors"
	}
	s := l[0].Error()
	for _, extra := range l[1:] {
		s += "; " + extra.Error()
	}
	return s
}

// HasErrors reports whether any diagnostic was recorded.
func (l List) HasErrors() bool { return len(l) > 0 }
