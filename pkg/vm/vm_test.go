package vm

import (
	"bytes"
	"strings"
	"testing"

	"github.com/neksis-lang/neksis/pkg/compiler"
)

func mustCompile(t *testing.T, src string) *VM {
	t.Helper()
	result := compiler.Compile(src, compiler.Options{})
	if result.Diagnostics.HasErrors() {
		t.Fatalf("unexpected diagnostics: %s", result.Format("<test>"))
	}
	return New(result.Module)
}

func runCapturingStdout(t *testing.T, src string) string {
	t.Helper()
	m := mustCompile(t, src)
	var out bytes.Buffer
	m.Stdout = &out
	if err := m.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if m.State != Halted {
		t.Errorf("got state %s, want halted", m.State)
	}
	return out.String()
}

func TestRunPrintlnProducesTrailingNewline(t *testing.T) {
	got := runCapturingStdout(t, `fn main() { println("hello"); }`)
	if got != "hello\n" {
		t.Errorf("got %q", got)
	}
}

func TestRunPrintHasNoTrailingNewline(t *testing.T) {
	got := runCapturingStdout(t, `fn main() { print("a"); print("b"); }`)
	if got != "ab" {
		t.Errorf("got %q", got)
	}
}

func TestRunArithmeticAndToString(t *testing.T) {
	got := runCapturingStdout(t, `fn main() { println(to_string(2 + 3 * 4)); }`)
	if got != "14\n" {
		t.Errorf("got %q", got)
	}
}

func TestRunFunctionCallAndReturn(t *testing.T) {
	got := runCapturingStdout(t, `
fn square(x: Int) -> Int { return x * x; }
fn main() { println(to_string(square(9))); }
`)
	if got != "81\n" {
		t.Errorf("got %q", got)
	}
}

func TestRunWhileLoopAccumulates(t *testing.T) {
	got := runCapturingStdout(t, `
fn main() {
	let mut i = 0;
	let mut sum = 0;
	while i < 5 {
		sum = sum + i;
		i = i + 1;
	}
	println(to_string(sum));
}
`)
	if got != "10\n" {
		t.Errorf("got %q", got)
	}
}

func TestRunIfExpressionAsValue(t *testing.T) {
	got := runCapturingStdout(t, `
fn classify(n: Int) -> String {
	if n < 0 { "negative" } else if n == 0 { "zero" } else { "positive" }
}
fn main() { println(classify(-5)); println(classify(0)); println(classify(5)); }
`)
	want := "negative\nzero\npositive\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRunLogicalShortCircuitAnd(t *testing.T) {
	got := runCapturingStdout(t, `
fn sideEffecting(mark: Int) -> Bool { println(to_string(mark)); return true; }
fn main() {
	let r = false && sideEffecting(1);
	println(to_string(r));
}
`)
	// sideEffecting must never run: && short-circuits on a false left operand.
	if got != "false\n" {
		t.Errorf("got %q", got)
	}
}

func TestRunLogicalShortCircuitOr(t *testing.T) {
	got := runCapturingStdout(t, `
fn sideEffecting(mark: Int) -> Bool { println(to_string(mark)); return true; }
fn main() {
	let r = true || sideEffecting(1);
	println(to_string(r));
}
`)
	if got != "true\n" {
		t.Errorf("got %q", got)
	}
}

func TestRunDivisionByZeroFaults(t *testing.T) {
	m := mustCompile(t, `fn main() { let x = 1; let y = 0; println(to_string(x / y)); }`)
	var out bytes.Buffer
	m.Stdout = &out
	err := m.Run()
	if err == nil {
		t.Fatal("expected a division-by-zero fault")
	}
	if m.State != Faulted {
		t.Errorf("got state %s, want faulted", m.State)
	}
}

func TestRunAbsIsPolymorphic(t *testing.T) {
	got := runCapturingStdout(t, `fn main() { println(to_string(abs(-7))); println(to_string(abs(-2.5))); }`)
	if got != "7\n2.5\n" {
		t.Errorf("got %q", got)
	}
}

func TestRunLenOnString(t *testing.T) {
	got := runCapturingStdout(t, `fn main() { println(to_string(len("hello"))); }`)
	if got != "5\n" {
		t.Errorf("got %q", got)
	}
}

func TestRunReadLineEchoesInput(t *testing.T) {
	m := mustCompile(t, `fn main() { let line = read_line(); println(line); }`)
	m.Stdin = strings.NewReader("hi there\n")
	var out bytes.Buffer
	m.Stdout = &out
	if err := m.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.String() != "hi there\n" {
		t.Errorf("got %q", out.String())
	}
}

func TestRunBudgetExhaustionFaults(t *testing.T) {
	m := mustCompile(t, `fn main() { let mut i = 0; while true { i = i + 1; } }`)
	m.Budget = 50
	err := m.Run()
	if err != ErrBudgetExceeded {
		t.Fatalf("got %v, want ErrBudgetExceeded", err)
	}
	if m.State != Faulted {
		t.Errorf("got state %s, want faulted", m.State)
	}
}

func TestRunFactorialViaIfWithoutElseMidBlock(t *testing.T) {
	got := runCapturingStdout(t, `
fn fact(n: Int) -> Int {
	if n <= 1 { return 1; }
	return n * fact(n - 1);
}
fn main() { println(to_string(fact(10))); }
`)
	if got != "3628800\n" {
		t.Errorf("got %q, want %q", got, "3628800\n")
	}
}

func TestRunExitCodeComesFromMainReturnValue(t *testing.T) {
	m := mustCompile(t, `fn main() -> Int { return 2; }`)
	if err := m.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := m.ExitCode(); got != 2 {
		t.Errorf("got exit code %d, want 2", got)
	}
}

func TestRunExitCodeDefaultsToZeroForVoidMain(t *testing.T) {
	m := mustCompile(t, `fn main() { let x = 1; }`)
	if err := m.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := m.ExitCode(); got != 0 {
		t.Errorf("got exit code %d, want 0", got)
	}
}

func TestRunExitCodeIsOneOnFault(t *testing.T) {
	m := mustCompile(t, `fn main() -> Int { let x = 1; let y = 0; return x / y; }`)
	if err := m.Run(); err == nil {
		t.Fatal("expected a division-by-zero fault")
	}
	if got := m.ExitCode(); got != 1 {
		t.Errorf("got exit code %d, want 1", got)
	}
}

func TestStepAllowsSingleStepping(t *testing.T) {
	m := mustCompile(t, `fn main() { let x = 1; }`)
	if m.State != Ready {
		t.Fatalf("got state %s, want ready", m.State)
	}
	if err := m.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	steps := 0
	for m.State == Running && steps < 1000 {
		if err := m.Step(); err != nil {
			t.Fatalf("Step: %v", err)
		}
		steps++
	}
	if m.State != Halted {
		t.Errorf("got state %s, want halted after stepping to completion", m.State)
	}
	if steps == 0 {
		t.Error("expected at least one Step call before halting")
	}
}
