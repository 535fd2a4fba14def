package compiler

import (
	"testing"

	"github.com/neksis-lang/neksis/pkg/diag"
)

func mustLex(t *testing.T, src string) []Token {
	toks, errs := Lex(src)
	if errs.HasErrors() {
		t.Fatalf("unexpected lex errors: %v", errs)
	}
	return toks
}

func TestParseMinimalFunction(t *testing.T) {
	prog, errs := Parse(mustLex(t, "fn main() { }"), "fn main() { }")
	if errs.HasErrors() {
		t.Fatalf("unexpected parse errors: %v", errs)
	}
	if len(prog.Functions) != 1 {
		t.Fatalf("got %d functions, want 1", len(prog.Functions))
	}
	fn := prog.Functions[0]
	if fn.Name != "main" || len(fn.Params) != 0 || fn.HasRetType {
		t.Errorf("got %+v", fn)
	}
}

func TestParseParamsAndReturnType(t *testing.T) {
	src := "fn add(a: Int, b: Int) -> Int { return a + b; }"
	prog, errs := Parse(mustLex(t, src), src)
	if errs.HasErrors() {
		t.Fatalf("unexpected parse errors: %v", errs)
	}
	fn := prog.Functions[0]
	if len(fn.Params) != 2 || fn.Params[0].Name != "a" || fn.Params[1].Type.Kind != KInt {
		t.Errorf("got %+v", fn.Params)
	}
	if !fn.HasRetType || fn.ReturnType.Kind != KInt {
		t.Errorf("got return type %v", fn.ReturnType)
	}
	ret, ok := fn.Body.Stmts[0].(*ReturnStmt)
	if !ok {
		t.Fatalf("got %T, want *ReturnStmt", fn.Body.Stmts[0])
	}
	bin, ok := ret.Value.(*BinaryExpr)
	if !ok || bin.Op != PLUS {
		t.Errorf("got %v", ret.Value)
	}
}

func TestParseOperatorPrecedence(t *testing.T) {
	src := "fn f() -> Int { return 1 + 2 * 3; }"
	prog, errs := Parse(mustLex(t, src), src)
	if errs.HasErrors() {
		t.Fatalf("unexpected parse errors: %v", errs)
	}
	ret := prog.Functions[0].Body.Stmts[0].(*ReturnStmt)
	add, ok := ret.Value.(*BinaryExpr)
	if !ok || add.Op != PLUS {
		t.Fatalf("top-level op: got %v", ret.Value)
	}
	if _, ok := add.Left.(*IntLiteral); !ok {
		t.Errorf("left operand: got %T", add.Left)
	}
	mul, ok := add.Right.(*BinaryExpr)
	if !ok || mul.Op != STAR {
		t.Errorf("right operand: got %v", add.Right)
	}
}

func TestParseIfExprWithElseIf(t *testing.T) {
	src := "fn f() -> Int { if true { 1 } else if false { 2 } else { 3 } }"
	prog, errs := Parse(mustLex(t, src), src)
	if errs.HasErrors() {
		t.Fatalf("unexpected parse errors: %v", errs)
	}
	tail := prog.Functions[0].Body.Tail
	ifExpr, ok := tail.(*IfExpr)
	if !ok {
		t.Fatalf("got %T, want *IfExpr", tail)
	}
	if ifExpr.Else == nil {
		t.Fatal("expected an else branch")
	}
	if _, ok := ifExpr.Else.Tail.(*IfExpr); !ok {
		t.Errorf("expected the else branch to wrap a nested if, got %T", ifExpr.Else.Tail)
	}
}

func TestParseIfWithoutElseHasNilElse(t *testing.T) {
	src := "fn f() { if true { } }"
	prog, errs := Parse(mustLex(t, src), src)
	if errs.HasErrors() {
		t.Fatalf("unexpected parse errors: %v", errs)
	}
	ifExpr := prog.Functions[0].Body.Tail.(*IfExpr)
	if ifExpr.Else != nil {
		t.Errorf("expected nil else, got %v", ifExpr.Else)
	}
}

func TestParseCallExpression(t *testing.T) {
	src := `fn f() { println("hi", 1 + 2); }`
	prog, errs := Parse(mustLex(t, src), src)
	if errs.HasErrors() {
		t.Fatalf("unexpected parse errors: %v", errs)
	}
	stmt := prog.Functions[0].Body.Stmts[0].(*ExprStmt)
	call, ok := stmt.Value.(*CallExpr)
	if !ok || call.Name != "println" || len(call.Args) != 2 {
		t.Errorf("got %v", stmt.Value)
	}
}

func TestParseLetMutAndAnnotation(t *testing.T) {
	src := "fn f() { let mut x: Int = 1; x = 2; }"
	prog, errs := Parse(mustLex(t, src), src)
	if errs.HasErrors() {
		t.Fatalf("unexpected parse errors: %v", errs)
	}
	let := prog.Functions[0].Body.Stmts[0].(*LetStmt)
	if !let.Mut || !let.HasAnnot || let.Annotated.Kind != KInt {
		t.Errorf("got %+v", let)
	}
	assign := prog.Functions[0].Body.Stmts[1].(*AssignStmt)
	if assign.Name != "x" {
		t.Errorf("got %+v", assign)
	}
}

func TestParseWhileStatement(t *testing.T) {
	src := "fn f() { while true { } }"
	prog, errs := Parse(mustLex(t, src), src)
	if errs.HasErrors() {
		t.Fatalf("unexpected parse errors: %v", errs)
	}
	if _, ok := prog.Functions[0].Body.Stmts[0].(*WhileStmt); !ok {
		t.Errorf("got %T", prog.Functions[0].Body.Stmts[0])
	}
}

func TestParseMissingSemicolonRecordsDiagnostic(t *testing.T) {
	src := "fn f() { let x = 1 let y = 2; }"
	_, errs := Parse(mustLex(t, src), src)
	if !errs.HasErrors() {
		t.Fatal("expected a diagnostic for the missing semicolon")
	}
	if errs[0].Kind != diag.Parse {
		t.Errorf("got kind %v, want Parse", errs[0].Kind)
	}
}

func TestParseCallOnlyAllowedOnNamedFunction(t *testing.T) {
	src := "fn f() { (1)(2); }"
	_, errs := Parse(mustLex(t, src), src)
	if !errs.HasErrors() {
		t.Fatal("expected an error calling a non-identifier expression")
	}
}

func TestParseSynchronizeRecoversAfterBadStatement(t *testing.T) {
	src := "fn f() { ) let x = 1; }"
	prog, errs := Parse(mustLex(t, src), src)
	if !errs.HasErrors() {
		t.Fatal("expected a diagnostic for the stray ')'")
	}
	if len(prog.Functions[0].Body.Stmts) != 1 {
		t.Fatalf("expected recovery to still parse the following let, got %d stmts", len(prog.Functions[0].Body.Stmts))
	}
}

func TestParseMultipleFunctions(t *testing.T) {
	src := "fn a() { } fn b() { }"
	prog, errs := Parse(mustLex(t, src), src)
	if errs.HasErrors() {
		t.Fatalf("unexpected parse errors: %v", errs)
	}
	if len(prog.Functions) != 2 || prog.Functions[0].Name != "a" || prog.Functions[1].Name != "b" {
		t.Errorf("got %+v", prog.Functions)
	}
}

func TestParseIdentifierLedExprIsBlockTail(t *testing.T) {
	src := "fn square(x: Int) -> Int { x * x }"
	prog, errs := Parse(mustLex(t, src), src)
	if errs.HasErrors() {
		t.Fatalf("unexpected parse errors: %v", errs)
	}
	body := prog.Functions[0].Body
	if len(body.Stmts) != 0 {
		t.Fatalf("expected no statements, got %d", len(body.Stmts))
	}
	if body.Tail == nil {
		t.Fatal("expected x * x to become the block's tail expression")
	}
}

func TestParseIfWithoutElseMidBlockNeedsNoSemicolon(t *testing.T) {
	src := "fn fact(n: Int) -> Int { if n <= 1 { return 1; } return n * fact(n - 1); }"
	prog, errs := Parse(mustLex(t, src), src)
	if errs.HasErrors() {
		t.Fatalf("unexpected parse errors: %v", errs)
	}
	body := prog.Functions[0].Body
	if len(body.Stmts) != 2 {
		t.Fatalf("expected an if-statement followed by a return statement, got %d stmts", len(body.Stmts))
	}
	if _, ok := body.Stmts[1].(*ReturnStmt); !ok {
		t.Fatalf("expected the second statement to be the trailing return, got %T", body.Stmts[1])
	}
}

func TestParseAssignmentStatementStillWorksAlongsideIdentifierTails(t *testing.T) {
	src := "fn f() { let mut x = 1; x = 2; x }"
	prog, errs := Parse(mustLex(t, src), src)
	if errs.HasErrors() {
		t.Fatalf("unexpected parse errors: %v", errs)
	}
	body := prog.Functions[0].Body
	if len(body.Stmts) != 2 {
		t.Fatalf("expected a let and an assignment, got %d stmts", len(body.Stmts))
	}
	assign, ok := body.Stmts[1].(*AssignStmt)
	if !ok {
		t.Fatalf("expected the second statement to be an AssignStmt, got %T", body.Stmts[1])
	}
	if assign.Name != "x" {
		t.Errorf("got assignment to %q, want x", assign.Name)
	}
	if body.Tail == nil {
		t.Fatal("expected the trailing bare identifier to become the block's tail")
	}
}
