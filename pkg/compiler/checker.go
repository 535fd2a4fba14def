package compiler

import (
	"fmt"

	"github.com/neksis-lang/neksis/pkg/bytecode"
	"github.com/neksis-lang/neksis/pkg/diag"
)

// Checker performs the two-pass semantic analysis described in the
// component design: a signature-collection pass over every function so
// forward references resolve, followed by a body-walking pass that
// resolves names, assigns a type to every expression, and enforces the
// language's type rules.
type Checker struct {
	syms    *SymbolTable
	errors  diag.List
	retType Type
}

func NewChecker() *Checker {
	return &Checker{syms: NewSymbolTable()}
}

func (c *Checker) errorf(span diag.Span, format string, args ...any) {
	c.errors = append(c.errors, diag.Diagnostic{Kind: diag.Semantic, Span: span, Message: fmt.Sprintf(format, args...)})
}

// Analyze runs both passes over prog, annotating every Expr's resolved
// type and every LetStmt/FunctionDecl's slot bookkeeping in place. The
// returned SymbolTable holds the final function table.
func Analyze(prog *Program) (*SymbolTable, diag.List) {
	c := NewChecker()
	c.collectSignatures(prog)
	for _, fn := range prog.Functions {
		c.checkFunction(fn)
	}
	if _, ok := c.syms.LookupFunction("main"); !ok {
		c.errors = append(c.errors, diag.Diagnostic{Kind: diag.Semantic, Message: "program has no main function"})
	}
	return c.syms, c.errors
}

func (c *Checker) collectSignatures(prog *Program) {
	for _, fn := range prog.Functions {
		if _, reserved := bytecode.LookupIntrinsic(fn.Name); reserved {
			c.errorf(fn.Span(), "%q is a reserved intrinsic name and cannot be redeclared", fn.Name)
			continue
		}
		params := make([]Type, len(fn.Params))
		for i, p := range fn.Params {
			params[i] = p.Type
		}
		sig := FuncSig{Name: fn.Name, Params: params, Return: fn.ReturnType, Span: fn.Span()}
		if !c.syms.DefineFunction(sig) {
			c.errorf(fn.Span(), "function %q is already declared", fn.Name)
		}
	}
}

func (c *Checker) checkFunction(fn *FunctionDecl) {
	c.syms.EnterFunction()
	for _, p := range fn.Params {
		if _, ok := c.syms.Declare(p.Name, p.Type, false); !ok {
			c.errorf(p.Span, "duplicate parameter %q", p.Name)
		}
	}

	prevRet := c.retType
	c.retType = fn.ReturnType
	tailTy := c.checkBlock(fn.Body)
	c.retType = prevRet

	// A body's tail expression, when present, is the function's result and
	// must match the declared return type (a Void-typed tail included). A
	// body that ends in a `;`-terminated statement or an explicit `return`
	// has no tail and is not checked here.
	if fn.Body.Tail != nil && tailTy.Kind != KUnknown && !tailTy.Equal(fn.ReturnType) {
		c.errorf(fn.Body.Tail.Span(), "function %q returns %s but its body evaluates to %s", fn.Name, fn.ReturnType, tailTy)
	}

	fn.LocalCount = c.syms.ExitFunction()
}

//  Expressions

func (c *Checker) checkExpr(e Expr) Type {
	var ty Type
	switch ex := e.(type) {
	case *IntLiteral:
		ty = TInt
	case *FloatLiteral:
		ty = TFloat
	case *BoolLiteral:
		ty = TBool
	case *StringLiteral:
		ty = TString
	case *Identifier:
		ty = c.checkIdentifier(ex)
	case *BinaryExpr:
		ty = c.checkBinary(ex)
	case *LogicalExpr:
		ty = c.checkLogical(ex)
	case *UnaryExpr:
		ty = c.checkUnary(ex)
	case *CallExpr:
		ty = c.checkCall(ex)
	case *FieldAccess:
		c.checkExpr(ex.Left)
		c.errorf(ex.Span(), "field access is not supported")
		ty = TUnknown
	case *IfExpr:
		ty = c.checkIfExpr(ex)
	case *BlockExpr:
		ty = c.checkBlock(ex)
	default:
		ty = TUnknown
	}
	e.setType(ty)
	return ty
}

func (c *Checker) checkIdentifier(id *Identifier) Type {
	if sym, ok := c.syms.Lookup(id.Name); ok {
		id.Slot = sym.Slot
		return sym.Type
	}
	c.errorf(id.Span(), "undefined identifier %q", id.Name)
	return TUnknown
}

// compatible reports whether two types may be compared without raising a
// cascading error; Unknown already carries a prior diagnostic.
func compatible(a, b Type) bool {
	return a.Kind == KUnknown || b.Kind == KUnknown || a.Equal(b)
}

func (c *Checker) checkBinary(b *BinaryExpr) Type {
	lt := c.checkExpr(b.Left)
	rt := c.checkExpr(b.Right)

	switch b.Op {
	case PLUS:
		if lt.Kind == KString || rt.Kind == KString {
			return TString
		}
		if lt.Kind == KInt && rt.Kind == KInt {
			return TInt
		}
		if lt.Kind == KFloat && rt.Kind == KFloat {
			return TFloat
		}
		if lt.Kind != KUnknown && rt.Kind != KUnknown {
			c.errorf(b.Span(), "mismatched operand types for %s: %s and %s", b.Op, lt, rt)
		}
		return TUnknown
	case MINUS, STAR, SLASH, PERCENT:
		if b.Op == PERCENT && (lt.Kind == KFloat || rt.Kind == KFloat) {
			c.errorf(b.Span(), "modulo is not defined on Float operands")
			return TUnknown
		}
		if lt.Kind == KInt && rt.Kind == KInt {
			return TInt
		}
		if lt.Kind == KFloat && rt.Kind == KFloat {
			return TFloat
		}
		if lt.Kind != KUnknown && rt.Kind != KUnknown {
			c.errorf(b.Span(), "mismatched operand types for %s: %s and %s", b.Op, lt, rt)
		}
		return TUnknown
	case LESS, LESS_EQ, GREATER, GREATER_EQ:
		if (lt.Kind == KInt || lt.Kind == KFloat) && lt.Equal(rt) {
			return TBool
		}
		if lt.Kind == KUnknown || rt.Kind == KUnknown {
			// Same Unknown-tainted operands: suppress the cascade.
			return TBool
		}
		c.errorf(b.Span(), "comparison requires matching Int or Float operands, got %s and %s", lt, rt)
		return TBool
	case EQUALS, NOT_EQ:
		if !compatible(lt, rt) {
			c.errorf(b.Span(), "equality requires matching operand types, got %s and %s", lt, rt)
		}
		return TBool
	default:
		c.errorf(b.Span(), "unsupported binary operator %s", b.Op)
		return TUnknown
	}
}

func (c *Checker) checkLogical(l *LogicalExpr) Type {
	lt := c.checkExpr(l.Left)
	rt := c.checkExpr(l.Right)
	if lt.Kind != KBool && lt.Kind != KUnknown {
		c.errorf(l.Left.Span(), "left operand of %s must be Bool, got %s", l.Op, lt)
	}
	if rt.Kind != KBool && rt.Kind != KUnknown {
		c.errorf(l.Right.Span(), "right operand of %s must be Bool, got %s", l.Op, rt)
	}
	return TBool
}

func (c *Checker) checkUnary(u *UnaryExpr) Type {
	rt := c.checkExpr(u.Right)
	switch u.Op {
	case MINUS:
		if rt.Kind == KInt || rt.Kind == KFloat || rt.Kind == KUnknown {
			return rt
		}
		c.errorf(u.Span(), "unary - requires Int or Float, got %s", rt)
		return TUnknown
	case NOT:
		if rt.Kind == KBool || rt.Kind == KUnknown {
			return TBool
		}
		c.errorf(u.Span(), "unary ! requires Bool, got %s", rt)
		return TBool
	default:
		c.errorf(u.Span(), "unsupported unary operator %s", u.Op)
		return TUnknown
	}
}

func (c *Checker) checkCall(call *CallExpr) Type {
	if ty, ok := c.checkIntrinsicCall(call); ok {
		return ty
	}
	sig, ok := c.syms.LookupFunction(call.Name)
	if !ok {
		c.errorf(call.Span(), "call to undefined function %q", call.Name)
		for _, a := range call.Args {
			c.checkExpr(a)
		}
		return TUnknown
	}
	if len(call.Args) != len(sig.Params) {
		c.errorf(call.Span(), "function %q expects %d argument(s), got %d", call.Name, len(sig.Params), len(call.Args))
	}
	for i, a := range call.Args {
		at := c.checkExpr(a)
		if i < len(sig.Params) && !compatible(at, sig.Params[i]) {
			c.errorf(a.Span(), "argument %d of %q has type %s, expected %s", i+1, call.Name, at, sig.Params[i])
		}
	}
	return sig.Return
}

func (c *Checker) checkIfExpr(ie *IfExpr) Type {
	condTy := c.checkExpr(ie.Condition)
	if condTy.Kind != KBool && condTy.Kind != KUnknown {
		c.errorf(ie.Condition.Span(), "if condition must be Bool, got %s", condTy)
	}
	thenTy := c.checkBlock(ie.Then)
	if ie.Else == nil {
		return TVoid
	}
	elseTy := c.checkBlock(ie.Else)
	if thenTy.Kind == KUnknown || elseTy.Kind == KUnknown {
		return TUnknown
	}
	if !thenTy.Equal(elseTy) {
		return TVoid
	}
	return thenTy
}

func (c *Checker) checkBlock(b *BlockExpr) Type {
	c.syms.EnterScope()
	for _, st := range b.Stmts {
		c.checkStmt(st)
	}
	ty := TVoid
	if b.Tail != nil {
		ty = c.checkExpr(b.Tail)
	}
	c.syms.ExitScope()
	b.setType(ty)
	return ty
}

//  Statements

func (c *Checker) checkStmt(s Stmt) {
	switch st := s.(type) {
	case *LetStmt:
		c.checkLet(st)
	case *AssignStmt:
		c.checkAssign(st)
	case *ReturnStmt:
		c.checkReturn(st)
	case *WhileStmt:
		c.checkWhile(st)
	case *ExprStmt:
		c.checkExpr(st.Value)
	}
}

func (c *Checker) checkLet(ls *LetStmt) {
	initTy := c.checkExpr(ls.Init)
	resolved := initTy
	if ls.HasAnnot {
		if initTy.Kind != KUnknown && !initTy.Equal(ls.Annotated) {
			c.errorf(ls.Init.Span(), "cannot assign %s to a binding of type %s", initTy, ls.Annotated)
		}
		resolved = ls.Annotated
	}
	ls.ResolvedTy = resolved
	sym, ok := c.syms.Declare(ls.Name, resolved, ls.Mut)
	if !ok {
		c.errorf(ls.Span(), "%q is already declared in this scope", ls.Name)
		return
	}
	ls.LocalSlot = sym.Slot
}

func (c *Checker) checkAssign(as *AssignStmt) {
	sym, ok := c.syms.Lookup(as.Name)
	if !ok {
		c.errorf(as.Span(), "undefined identifier %q", as.Name)
		c.checkExpr(as.Value)
		return
	}
	as.Slot = sym.Slot
	if !sym.Mutable {
		c.errorf(as.Span(), "cannot assign to immutable binding %q", as.Name)
	}
	valTy := c.checkExpr(as.Value)
	if !compatible(valTy, sym.Type) {
		c.errorf(as.Value.Span(), "cannot assign %s to %q of type %s", valTy, as.Name, sym.Type)
	}
}

func (c *Checker) checkReturn(rs *ReturnStmt) {
	if rs.Value == nil {
		if c.retType.Kind != KVoid {
			c.errorf(rs.Span(), "function must return a value of type %s", c.retType)
		}
		return
	}
	vty := c.checkExpr(rs.Value)
	if !compatible(vty, c.retType) {
		c.errorf(rs.Value.Span(), "return type %s does not match function's declared return type %s", vty, c.retType)
	}
}

func (c *Checker) checkWhile(ws *WhileStmt) {
	condTy := c.checkExpr(ws.Condition)
	if condTy.Kind != KBool && condTy.Kind != KUnknown {
		c.errorf(ws.Condition.Span(), "while condition must be Bool, got %s", condTy)
	}
	c.checkBlock(ws.Body)
}
