package compiler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/neksis-lang/neksis/pkg/diag"
)

// Symbol is a resolved name binding: a local variable or parameter.
type Symbol struct {
	Name    string
	Type    Type
	Mutable bool
	Slot    int
}

// FuncSig is a function's signature as recorded during the analyzer's
// signature-collection pass, before its body is walked.
type FuncSig struct {
	Name   string
	Params []Type
	Return Type
	Span   diag.Span
}

// SymbolTable tracks function signatures (global, populated once) and the
// stack of block-scoped local variables active while a function body is
// being walked. Locals reuse their slot once the scope that declared them
// is exited, so a function's slot count reflects the maximum number of
// bindings live at any one time rather than the total ever declared.
type SymbolTable struct {
	functions map[string]FuncSig

	locals   []map[string]Symbol
	nextSlot int
	maxSlot  int
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{functions: make(map[string]FuncSig)}
}

// DefineFunction registers sig's name globally. It returns false without
// overwriting the existing entry if the name is already declared.
func (s *SymbolTable) DefineFunction(sig FuncSig) bool {
	if _, exists := s.functions[sig.Name]; exists {
		return false
	}
	s.functions[sig.Name] = sig
	return true
}

func (s *SymbolTable) LookupFunction(name string) (FuncSig, bool) {
	sig, ok := s.functions[name]
	return sig, ok
}

// EnterFunction resets the local-scope stack for a fresh function body.
func (s *SymbolTable) EnterFunction() {
	s.locals = []map[string]Symbol{make(map[string]Symbol)}
	s.nextSlot = 0
	s.maxSlot = 0
}

// ExitFunction tears down the local-scope stack and returns the function's
// local-slot count (the high-water mark of simultaneously live bindings).
func (s *SymbolTable) ExitFunction() int {
	count := s.maxSlot
	s.locals = nil
	return count
}

func (s *SymbolTable) EnterScope() {
	if len(s.locals) == 0 {
		panic("EnterScope called outside a function")
	}
	s.locals = append(s.locals, make(map[string]Symbol))
}

// ExitScope pops the innermost scope and frees the slots it held, so a
// later sibling scope can reuse them.
func (s *SymbolTable) ExitScope() {
	if len(s.locals) == 0 {
		return
	}
	freed := len(s.locals[len(s.locals)-1])
	s.locals = s.locals[:len(s.locals)-1]
	s.nextSlot -= freed
}

// Declare binds name in the current (innermost) scope. It returns false,
// without allocating a slot, if name is already declared in that exact
// scope — shadowing an outer scope is fine, redeclaring within the same
// one is a semantic error the caller must report.
func (s *SymbolTable) Declare(name string, ty Type, mutable bool) (Symbol, bool) {
	scope := s.locals[len(s.locals)-1]
	if _, exists := scope[name]; exists {
		return Symbol{}, false
	}
	slot := s.nextSlot
	s.nextSlot++
	if s.nextSlot > s.maxSlot {
		s.maxSlot = s.nextSlot
	}
	sym := Symbol{Name: name, Type: ty, Mutable: mutable, Slot: slot}
	scope[name] = sym
	return sym, true
}

// Lookup searches scopes from innermost to outermost.
func (s *SymbolTable) Lookup(name string) (Symbol, bool) {
	for i := len(s.locals) - 1; i >= 0; i-- {
		if sym, ok := s.locals[i][name]; ok {
			return sym, true
		}
	}
	return Symbol{}, false
}

// String returns a deterministically ordered dump of the table, useful for
// debugging a failed analysis pass.
func (s *SymbolTable) String() string {
	var sb strings.Builder

	names := make([]string, 0, len(s.functions))
	for name := range s.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	sb.WriteString("Functions:\n")
	for _, name := range names {
		sig := s.functions[name]
		fmt.Fprintf(&sb, "  %-20s %v -> %s\n", name, sig.Params, sig.Return)
	}

	if len(s.locals) > 0 {
		sb.WriteString("Locals (active stack):\n")
		for i, scope := range s.locals {
			fmt.Fprintf(&sb, "  scope %d:\n", i)
			ln := make([]string, 0, len(scope))
			for name := range scope {
				ln = append(ln, name)
			}
			sort.Strings(ln)
			for _, name := range ln {
				sym := scope[name]
				fmt.Fprintf(&sb, "    %-20s slot %d  %s\n", name, sym.Slot, sym.Type)
			}
		}
	}
	return sb.String()
}
