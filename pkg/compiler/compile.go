package compiler

import (
	"strings"

	"github.com/neksis-lang/neksis/pkg/bytecode"
	"github.com/neksis-lang/neksis/pkg/diag"
)

// Result carries everything a caller might want from a full compile: the
// parsed program (useful for tooling even on failure), every diagnostic
// collected across all passes, and the finished module when compilation
// succeeded.
type Result struct {
	Program     *Program
	Diagnostics diag.List
	Module      *bytecode.Module
	lines       []string
}

// Format renders every diagnostic in the result against file, in the
// order the passes recorded them (lex, then parse, then semantic), the way the teacher's Parser.fmtError renders a caret line under
// each offending token.
func (r Result) Format(file string) string {
	parts := make([]string, len(r.Diagnostics))
	for i, d := range r.Diagnostics {
		parts[i] = d.Format(file, r.lines)
	}
	return strings.Join(parts, "\n")
}

// Options controls optional pipeline behavior.
type Options struct {
	Optimize bool
}

// Compile runs the full Lex -> Parse -> Analyze -> [Optimize] -> Generate
// pipeline over src. Per the propagation policy, Analyze and Generate
// only run once the combined lex+parse diagnostic list is empty — a
// program with syntax errors never reaches semantic analysis or codegen.
func Compile(src string, opts Options) Result {
	lines := strings.Split(src, "\n")

	tokens, lexErrs := Lex(src)

	prog, parseErrs := Parse(tokens, src)

	var diags diag.List
	diags = append(diags, lexErrs...)
	diags = append(diags, parseErrs...)
	if diags.HasErrors() {
		return Result{Program: prog, Diagnostics: diags, lines: lines}
	}

	_, semErrs := Analyze(prog)
	diags = append(diags, semErrs...)
	if diags.HasErrors() {
		return Result{Program: prog, Diagnostics: diags, lines: lines}
	}

	if opts.Optimize {
		prog = Optimize(prog)
	}

	module, err := Generate(prog)
	if err != nil {
		diags = append(diags, diag.Diagnostic{Kind: diag.Semantic, Message: err.Error()})
		return Result{Program: prog, Diagnostics: diags, lines: lines}
	}

	return Result{Program: prog, Diagnostics: diags, Module: module, lines: lines}
}
