package compiler

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Optimize runs the optional passes described in the component design:
// dead-function elimination (reachability from main) and constant
// folding of literal arithmetic. Dead-function elimination is a single
// sequential pass over the whole program; constant folding then works on
// each surviving function independently, concurrently via errgroup when
// more than one function is present.
func Optimize(prog *Program) *Program {
	prog.Functions = eliminateDeadFunctions(prog.Functions)

	if len(prog.Functions) <= 1 {
		for _, fn := range prog.Functions {
			foldFunction(fn)
		}
		return prog
	}

	g, _ := errgroup.WithContext(context.Background())
	for _, fn := range prog.Functions {
		fn := fn
		g.Go(func() error {
			foldFunction(fn)
			return nil
		})
	}
	_ = g.Wait() // foldFunction never returns an error; nothing to surface
	return prog
}

// eliminateDeadFunctions drops every function not transitively reachable
// from main, the program's only implicit root.
func eliminateDeadFunctions(fns []*FunctionDecl) []*FunctionDecl {
	byName := make(map[string]*FunctionDecl, len(fns))
	for _, f := range fns {
		byName[f.Name] = f
	}

	reachable := make(map[string]bool)
	var worklist []string
	addReachable := func(name string) {
		if !reachable[name] {
			reachable[name] = true
			worklist = append(worklist, name)
		}
	}

	if _, ok := byName["main"]; ok {
		addReachable("main")
	}

	for len(worklist) > 0 {
		name := worklist[0]
		worklist = worklist[1:]
		fn, ok := byName[name]
		if !ok {
			continue // an intrinsic name, not a declared function
		}
		calls := make(map[string]bool)
		findCallsBlock(fn.Body, calls)
		for call := range calls {
			addReachable(call)
		}
	}

	var kept []*FunctionDecl
	for _, f := range fns {
		if reachable[f.Name] {
			kept = append(kept, f)
		}
	}
	return kept
}

func findCallsExpr(e Expr, calls map[string]bool) {
	if e == nil {
		return
	}
	switch n := e.(type) {
	case *CallExpr:
		calls[n.Name] = true
		for _, a := range n.Args {
			findCallsExpr(a, calls)
		}
	case *BinaryExpr:
		findCallsExpr(n.Left, calls)
		findCallsExpr(n.Right, calls)
	case *LogicalExpr:
		findCallsExpr(n.Left, calls)
		findCallsExpr(n.Right, calls)
	case *UnaryExpr:
		findCallsExpr(n.Right, calls)
	case *FieldAccess:
		findCallsExpr(n.Left, calls)
	case *IfExpr:
		findCallsExpr(n.Condition, calls)
		findCallsBlock(n.Then, calls)
		findCallsBlock(n.Else, calls)
	case *BlockExpr:
		findCallsBlock(n, calls)
	case *IntLiteral, *FloatLiteral, *BoolLiteral, *StringLiteral, *Identifier:
		// no calls possible
	}
}

func findCallsBlock(b *BlockExpr, calls map[string]bool) {
	if b == nil {
		return
	}
	for _, s := range b.Stmts {
		findCallsStmt(s, calls)
	}
	findCallsExpr(b.Tail, calls)
}

func findCallsStmt(s Stmt, calls map[string]bool) {
	if s == nil {
		return
	}
	switch n := s.(type) {
	case *LetStmt:
		findCallsExpr(n.Init, calls)
	case *AssignStmt:
		findCallsExpr(n.Value, calls)
	case *ReturnStmt:
		findCallsExpr(n.Value, calls)
	case *WhileStmt:
		findCallsExpr(n.Condition, calls)
		findCallsBlock(n.Body, calls)
	case *ExprStmt:
		findCallsExpr(n.Value, calls)
	}
}

//  Constant folding

// foldFunction rewrites literal arithmetic and comparisons reachable from
// fn's body into their folded literal result in place, bottom-up.
func foldFunction(fn *FunctionDecl) {
	foldBlock(fn.Body)
}

func foldBlock(b *BlockExpr) {
	if b == nil {
		return
	}
	for _, s := range b.Stmts {
		foldStmt(s)
	}
	b.Tail = foldExpr(b.Tail)
}

func foldStmt(s Stmt) {
	switch n := s.(type) {
	case *LetStmt:
		n.Init = foldExpr(n.Init)
	case *AssignStmt:
		n.Value = foldExpr(n.Value)
	case *ReturnStmt:
		n.Value = foldExpr(n.Value)
	case *WhileStmt:
		n.Condition = foldExpr(n.Condition)
		foldBlock(n.Body)
	case *ExprStmt:
		n.Value = foldExpr(n.Value)
	}
}

// foldExpr folds e's subexpressions first, then attempts to fold e itself
// into a literal. A node that cannot be folded (or isn't literal-only) is
// returned unchanged.
func foldExpr(e Expr) Expr {
	if e == nil {
		return nil
	}
	switch n := e.(type) {
	case *BinaryExpr:
		n.Left = foldExpr(n.Left)
		n.Right = foldExpr(n.Right)
		return foldBinary(n)
	case *LogicalExpr:
		n.Left = foldExpr(n.Left)
		n.Right = foldExpr(n.Right)
		return n
	case *UnaryExpr:
		n.Right = foldExpr(n.Right)
		return foldUnary(n)
	case *CallExpr:
		for i, a := range n.Args {
			n.Args[i] = foldExpr(a)
		}
		return n
	case *IfExpr:
		n.Condition = foldExpr(n.Condition)
		foldBlock(n.Then)
		foldBlock(n.Else)
		return n
	case *BlockExpr:
		foldBlock(n)
		return n
	default:
		return e
	}
}

func foldBinary(b *BinaryExpr) Expr {
	li, lok := b.Left.(*IntLiteral)
	ri, rok := b.Right.(*IntLiteral)
	if lok && rok {
		if folded, ok := foldIntPair(b, li.Value, ri.Value); ok {
			return folded
		}
	}
	lf, lfok := b.Left.(*FloatLiteral)
	rf, rfok := b.Right.(*FloatLiteral)
	if lfok && rfok {
		if folded, ok := foldFloatPair(b, lf.Value, rf.Value); ok {
			return folded
		}
	}
	return b
}

func foldIntPair(b *BinaryExpr, l, r int64) (Expr, bool) {
	mk := func(v int64) Expr {
		lit := &IntLiteral{Value: v}
		lit.exprBase = b.exprBase
		return lit
	}
	mkBool := func(v bool) Expr {
		lit := &BoolLiteral{Value: v}
		lit.exprBase = b.exprBase
		return lit
	}
	switch b.Op {
	case PLUS:
		return mk(l + r), true
	case MINUS:
		return mk(l - r), true
	case STAR:
		return mk(l * r), true
	case SLASH:
		if r == 0 {
			return b, false // let the VM raise the runtime division-by-zero fault
		}
		return mk(l / r), true
	case PERCENT:
		if r == 0 {
			return b, false
		}
		return mk(l % r), true
	case EQUALS:
		return mkBool(l == r), true
	case NOT_EQ:
		return mkBool(l != r), true
	case LESS:
		return mkBool(l < r), true
	case LESS_EQ:
		return mkBool(l <= r), true
	case GREATER:
		return mkBool(l > r), true
	case GREATER_EQ:
		return mkBool(l >= r), true
	default:
		return b, false
	}
}

func foldFloatPair(b *BinaryExpr, l, r float64) (Expr, bool) {
	mk := func(v float64) Expr {
		lit := &FloatLiteral{Value: v}
		lit.exprBase = b.exprBase
		return lit
	}
	mkBool := func(v bool) Expr {
		lit := &BoolLiteral{Value: v}
		lit.exprBase = b.exprBase
		return lit
	}
	switch b.Op {
	case PLUS:
		return mk(l + r), true
	case MINUS:
		return mk(l - r), true
	case STAR:
		return mk(l * r), true
	case SLASH:
		return mk(l / r), true
	case EQUALS:
		return mkBool(l == r), true
	case NOT_EQ:
		return mkBool(l != r), true
	case LESS:
		return mkBool(l < r), true
	case LESS_EQ:
		return mkBool(l <= r), true
	case GREATER:
		return mkBool(l > r), true
	case GREATER_EQ:
		return mkBool(l >= r), true
	default:
		return b, false
	}
}

func foldUnary(u *UnaryExpr) Expr {
	switch n := u.Right.(type) {
	case *IntLiteral:
		if u.Op == MINUS {
			lit := &IntLiteral{Value: -n.Value}
			lit.exprBase = u.exprBase
			return lit
		}
	case *FloatLiteral:
		if u.Op == MINUS {
			lit := &FloatLiteral{Value: -n.Value}
			lit.exprBase = u.exprBase
			return lit
		}
	case *BoolLiteral:
		if u.Op == NOT {
			lit := &BoolLiteral{Value: !n.Value}
			lit.exprBase = u.exprBase
			return lit
		}
	}
	return u
}
