package compiler

import "testing"

func mustParse(t *testing.T, src string) *Program {
	toks, lexErrs := Lex(src)
	if lexErrs.HasErrors() {
		t.Fatalf("unexpected lex errors: %v", lexErrs)
	}
	prog, parseErrs := Parse(toks, src)
	if parseErrs.HasErrors() {
		t.Fatalf("unexpected parse errors: %v", parseErrs)
	}
	return prog
}

func TestAnalyzeWellTypedProgram(t *testing.T) {
	src := `
fn add(a: Int, b: Int) -> Int { return a + b; }
fn main() { let x = add(1, 2); println(to_string(x)); }
`
	prog := mustParse(t, src)
	_, errs := Analyze(prog)
	if errs.HasErrors() {
		t.Fatalf("unexpected semantic errors: %v", errs)
	}
}

func TestAnalyzeMissingMainIsAnError(t *testing.T) {
	prog := mustParse(t, "fn helper() { }")
	_, errs := Analyze(prog)
	if !errs.HasErrors() {
		t.Fatal("expected an error for a program with no main function")
	}
}

func TestAnalyzeUndefinedIdentifier(t *testing.T) {
	prog := mustParse(t, "fn main() { let x = y; }")
	_, errs := Analyze(prog)
	if !errs.HasErrors() {
		t.Fatal("expected an undefined-identifier error")
	}
}

func TestAnalyzeAssignToImmutableBinding(t *testing.T) {
	prog := mustParse(t, "fn main() { let x = 1; x = 2; }")
	_, errs := Analyze(prog)
	if !errs.HasErrors() {
		t.Fatal("expected an error assigning to an immutable binding")
	}
}

func TestAnalyzeAssignToMutableBindingIsFine(t *testing.T) {
	prog := mustParse(t, "fn main() { let mut x = 1; x = 2; }")
	_, errs := Analyze(prog)
	if errs.HasErrors() {
		t.Fatalf("unexpected errors: %v", errs)
	}
}

func TestAnalyzeMismatchedArithmeticOperands(t *testing.T) {
	prog := mustParse(t, `fn main() { let x = 1 + 2.0; }`)
	_, errs := Analyze(prog)
	if !errs.HasErrors() {
		t.Fatal("expected a type error mixing Int and Float in +")
	}
}

func TestAnalyzeStringConcatenationWithPlus(t *testing.T) {
	prog := mustParse(t, `fn main() { let x = "n=" + 1; }`)
	_, errs := Analyze(prog)
	if errs.HasErrors() {
		t.Fatalf("unexpected errors: %v", errs)
	}
	let := prog.Functions[0].Body.Stmts[0].(*LetStmt)
	if let.ResolvedTy.Kind != KString {
		t.Errorf("got %v, want String", let.ResolvedTy)
	}
}

func TestAnalyzeModuloOnFloatIsAnError(t *testing.T) {
	prog := mustParse(t, "fn main() { let x = 1.0 % 2.0; }")
	_, errs := Analyze(prog)
	if !errs.HasErrors() {
		t.Fatal("expected an error for Float modulo")
	}
}

func TestAnalyzeIfExprWithMatchingArmsHasArmType(t *testing.T) {
	prog := mustParse(t, "fn main() -> Int { if true { 1 } else { 2 } }")
	_, errs := Analyze(prog)
	if errs.HasErrors() {
		t.Fatalf("unexpected errors: %v", errs)
	}
	ie := prog.Functions[0].Body.Tail.(*IfExpr)
	if ie.Type().Kind != KInt {
		t.Errorf("got %v, want Int", ie.Type())
	}
}

func TestAnalyzeIfExprWithMismatchedArmsIsVoid(t *testing.T) {
	prog := mustParse(t, `fn main() { if true { 1 } else { "x" } }`)
	_, errs := Analyze(prog)
	if errs.HasErrors() {
		t.Fatalf("unexpected errors: %v", errs)
	}
	ie := prog.Functions[0].Body.Tail.(*IfExpr)
	if ie.Type().Kind != KVoid {
		t.Errorf("got %v, want Void", ie.Type())
	}
}

func TestAnalyzeReturnTypeMismatch(t *testing.T) {
	prog := mustParse(t, `fn f() -> Int { return "nope"; }`)
	_, errs := Analyze(prog)
	if !errs.HasErrors() {
		t.Fatal("expected a return-type mismatch error")
	}
}

func TestAnalyzeCallArgumentCountMismatch(t *testing.T) {
	prog := mustParse(t, `
fn add(a: Int, b: Int) -> Int { return a + b; }
fn main() { add(1); }
`)
	_, errs := Analyze(prog)
	if !errs.HasErrors() {
		t.Fatal("expected an argument-count error")
	}
}

func TestAnalyzeDuplicateFunctionDeclaration(t *testing.T) {
	prog := mustParse(t, "fn f() { } fn f() { }")
	_, errs := Analyze(prog)
	if !errs.HasErrors() {
		t.Fatal("expected a duplicate-declaration error")
	}
}

func TestAnalyzeReservedIntrinsicNameCannotBeRedeclared(t *testing.T) {
	prog := mustParse(t, `fn print(x: Int) { } fn main() { }`)
	_, errs := Analyze(prog)
	if !errs.HasErrors() {
		t.Fatal("expected an error redeclaring the reserved name 'print'")
	}
}

func TestAnalyzeAbsIsPolymorphicOverIntAndFloat(t *testing.T) {
	prog := mustParse(t, "fn main() { let a = abs(-1); let b = abs(-1.5); }")
	_, errs := Analyze(prog)
	if errs.HasErrors() {
		t.Fatalf("unexpected errors: %v", errs)
	}
	lets := prog.Functions[0].Body.Stmts
	if lets[0].(*LetStmt).ResolvedTy.Kind != KInt {
		t.Errorf("abs(-1): got %v", lets[0].(*LetStmt).ResolvedTy)
	}
	if lets[1].(*LetStmt).ResolvedTy.Kind != KFloat {
		t.Errorf("abs(-1.5): got %v", lets[1].(*LetStmt).ResolvedTy)
	}
}

func TestAnalyzeAbsRejectsStringArgument(t *testing.T) {
	prog := mustParse(t, `fn main() { let a = abs("x"); }`)
	_, errs := Analyze(prog)
	if !errs.HasErrors() {
		t.Fatal("expected an error calling abs on a String")
	}
}

func TestAnalyzeSlotReuseAcrossSiblingScopes(t *testing.T) {
	src := `
fn main() -> Int {
	if true { let a = 1; } else { let b = 2; }
	return 0;
}
`
	prog := mustParse(t, src)
	_, errs := Analyze(prog)
	if errs.HasErrors() {
		t.Fatalf("unexpected errors: %v", errs)
	}
	// a and b live in disjoint sibling scopes, so the analyzer should
	// reuse the same slot for both rather than growing LocalCount to 2.
	if prog.Functions[0].LocalCount != 1 {
		t.Errorf("got LocalCount %d, want 1", prog.Functions[0].LocalCount)
	}
}
