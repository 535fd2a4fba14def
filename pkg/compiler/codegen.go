package compiler

import (
	"fmt"

	"github.com/neksis-lang/neksis/pkg/bytecode"
)

// Codegen lowers a type-checked Program to a bytecode.Module: one shared
// instruction stream, a deduplicated constant pool, and a function table.
// Expression lowering always leaves exactly one value on the operand
// stack; statement lowering leaves the stack exactly as it found it.
type Codegen struct {
	code      []byte
	constVals []any
	constIdx  map[any]int
	funcIdx   map[string]int
}

func NewCodegen() *Codegen {
	return &Codegen{constIdx: make(map[any]int), funcIdx: make(map[string]int)}
}

// Generate compiles prog into a Module. prog must already have passed
// Analyze with no errors — Generate trusts every expression's resolved
// type and every binding's resolved slot.
func Generate(prog *Program) (*bytecode.Module, error) {
	g := NewCodegen()
	for i, fn := range prog.Functions {
		g.funcIdx[fn.Name] = i
	}

	entries := make([]bytecode.FuncEntry, len(prog.Functions))
	for i, fn := range prog.Functions {
		entries[i] = bytecode.FuncEntry{
			Name:       fn.Name,
			ParamCount: len(fn.Params),
			LocalCount: fn.LocalCount,
			ReturnVoid: fn.ReturnType.Kind == KVoid,
		}
	}

	for i, fn := range prog.Functions {
		entries[i].Entry = len(g.code)
		g.compileFunctionBody(fn)
	}

	if _, ok := g.funcIdx["main"]; !ok {
		return nil, fmt.Errorf("no main function to generate an entry point for")
	}

	return &bytecode.Module{
		Constants: g.constVals,
		Code:      g.code,
		Functions: entries,
		Entry:     "main",
	}, nil
}

//  Low-level emission

func (g *Codegen) emitByte(b byte) int {
	g.code = append(g.code, b)
	return len(g.code) - 1
}

func (g *Codegen) emitOp(op bytecode.Op) int { return g.emitByte(byte(op)) }

func (g *Codegen) emitU16(v uint16) { g.code = append(g.code, byte(v>>8), byte(v)) }

func (g *Codegen) addConst(v any) int {
	if idx, ok := g.constIdx[v]; ok {
		return idx
	}
	idx := len(g.constVals)
	g.constVals = append(g.constVals, v)
	g.constIdx[v] = idx
	return idx
}

func (g *Codegen) emitConst(v any) {
	g.emitOp(bytecode.PUSH_CONST)
	g.emitU16(uint16(g.addConst(v)))
}

// emitJump writes op followed by a placeholder u16 target and returns the
// offset of that placeholder, to be filled in later by patchJump.
func (g *Codegen) emitJump(op bytecode.Op) int {
	g.emitOp(op)
	pos := len(g.code)
	g.emitU16(0)
	return pos
}

// patchJump fills a jump placeholder with the current end of the code
// buffer, for forward jumps; patchJumpTo fills it with an explicit earlier
// target, for a loop's back-edge.
func (g *Codegen) patchJump(placeholder int) {
	g.patchJumpTo(placeholder, len(g.code))
}

func (g *Codegen) patchJumpTo(placeholder, target int) {
	g.code[placeholder] = byte(target >> 8)
	g.code[placeholder+1] = byte(target)
}

//  Functions

func (g *Codegen) compileFunctionBody(fn *FunctionDecl) {
	for _, st := range fn.Body.Stmts {
		g.compileStmt(st)
	}
	if fn.Body.Tail != nil {
		g.compileExpr(fn.Body.Tail)
		g.emitOp(bytecode.RETURN)
	}
	// Safety net: every function ends in a return instruction even when
	// every reachable path already returned explicitly above.
	g.emitOp(bytecode.RETURN_VOID)
}

//  Statements — leave the operand stack exactly as found.

func (g *Codegen) compileStmt(s Stmt) {
	switch st := s.(type) {
	case *LetStmt:
		g.compileExpr(st.Init)
		g.emitOp(bytecode.STORE_LOCAL)
		g.emitByte(byte(st.LocalSlot))
	case *AssignStmt:
		g.compileExpr(st.Value)
		g.emitOp(bytecode.STORE_LOCAL)
		g.emitByte(byte(st.Slot))
	case *ReturnStmt:
		if st.Value != nil {
			g.compileExpr(st.Value)
			g.emitOp(bytecode.RETURN)
		} else {
			g.emitOp(bytecode.RETURN_VOID)
		}
	case *WhileStmt:
		g.compileWhile(st)
	case *ExprStmt:
		g.compileExpr(st.Value)
		g.emitOp(bytecode.POP)
	}
}

func (g *Codegen) compileWhile(ws *WhileStmt) {
	loopStart := len(g.code)
	g.compileExpr(ws.Condition)
	exitJump := g.emitJump(bytecode.JUMP_IF_FALSE)

	g.compileBlockDiscard(ws.Body)

	backJump := g.emitJump(bytecode.JUMP)
	g.patchJumpTo(backJump, loopStart)
	g.patchJump(exitJump)
}

// compileBlockDiscard runs a block purely for its statements' side
// effects, popping any tail value instead of leaving it on the stack.
func (g *Codegen) compileBlockDiscard(b *BlockExpr) {
	for _, st := range b.Stmts {
		g.compileStmt(st)
	}
	if b.Tail != nil {
		g.compileExpr(b.Tail)
		g.emitOp(bytecode.POP)
	}
}

// compileBlockExpr runs a block as an expression: it always leaves exactly
// one value on the stack, PUSH_VOID standing in when there is no tail.
func (g *Codegen) compileBlockExpr(b *BlockExpr) {
	for _, st := range b.Stmts {
		g.compileStmt(st)
	}
	if b.Tail != nil {
		g.compileExpr(b.Tail)
	} else {
		g.emitOp(bytecode.PUSH_VOID)
	}
}

//  Expressions — leave exactly one value on the operand stack.

func (g *Codegen) compileExpr(e Expr) {
	switch ex := e.(type) {
	case *IntLiteral:
		g.emitConst(ex.Value)
	case *FloatLiteral:
		g.emitConst(ex.Value)
	case *BoolLiteral:
		if ex.Value {
			g.emitOp(bytecode.PUSH_TRUE)
		} else {
			g.emitOp(bytecode.PUSH_FALSE)
		}
	case *StringLiteral:
		g.emitConst(ex.Value)
	case *Identifier:
		g.emitOp(bytecode.LOAD_LOCAL)
		g.emitByte(byte(ex.Slot))
	case *BinaryExpr:
		g.compileBinary(ex)
	case *LogicalExpr:
		g.compileLogical(ex)
	case *UnaryExpr:
		g.compileUnary(ex)
	case *CallExpr:
		g.compileCall(ex)
	case *IfExpr:
		g.compileIf(ex)
	case *BlockExpr:
		g.compileBlockExpr(ex)
	case *FieldAccess:
		// The checker rejects every FieldAccess before codegen runs; reaching
		// here would mean Analyze was skipped.
		panic("codegen: unresolved field access reached bytecode emission")
	default:
		panic(fmt.Sprintf("codegen: unhandled expression node %T", e))
	}
}

func (g *Codegen) compileBinary(b *BinaryExpr) {
	if b.Op == PLUS && b.Type().Kind == KString {
		g.compileStringifyOperand(b.Left)
		g.compileStringifyOperand(b.Right)
		g.emitOp(bytecode.CONCAT_STR)
		return
	}

	g.compileExpr(b.Left)
	g.compileExpr(b.Right)

	isFloat := b.Left.Type().Kind == KFloat
	switch b.Op {
	case PLUS:
		g.emitOp(pick(isFloat, bytecode.ADD_F, bytecode.ADD_I))
	case MINUS:
		g.emitOp(pick(isFloat, bytecode.SUB_F, bytecode.SUB_I))
	case STAR:
		g.emitOp(pick(isFloat, bytecode.MUL_F, bytecode.MUL_I))
	case SLASH:
		g.emitOp(pick(isFloat, bytecode.DIV_F, bytecode.DIV_I))
	case PERCENT:
		g.emitOp(bytecode.MOD_I)
	case EQUALS:
		g.emitOp(bytecode.EQ)
	case NOT_EQ:
		g.emitOp(bytecode.NE)
	case LESS:
		g.emitOp(pick(isFloat, bytecode.LT_F, bytecode.LT_I))
	case LESS_EQ:
		g.emitOp(pick(isFloat, bytecode.LE_F, bytecode.LE_I))
	case GREATER:
		g.emitOp(pick(isFloat, bytecode.GT_F, bytecode.GT_I))
	case GREATER_EQ:
		g.emitOp(pick(isFloat, bytecode.GE_F, bytecode.GE_I))
	default:
		panic(fmt.Sprintf("codegen: unhandled binary operator %s", b.Op))
	}
}

func pick(cond bool, ifTrue, ifFalse bytecode.Op) bytecode.Op {
	if cond {
		return ifTrue
	}
	return ifFalse
}

// compileStringifyOperand compiles e and, if its static type isn't String,
// follows it with a to_string intrinsic call so a following CONCAT_STR
// always sees two strings.
func (g *Codegen) compileStringifyOperand(e Expr) {
	g.compileExpr(e)
	if e.Type().Kind != KString {
		g.emitOp(bytecode.CALL_INTRINSIC)
		g.emitByte(byte(bytecode.IntrinsicToString))
		g.emitByte(1)
	}
}

func (g *Codegen) compileLogical(l *LogicalExpr) {
	g.compileExpr(l.Left)
	if l.Op == AND_AND {
		shortCircuit := g.emitJump(bytecode.JUMP_IF_FALSE)
		g.compileExpr(l.Right)
		end := g.emitJump(bytecode.JUMP)
		g.patchJump(shortCircuit)
		g.emitOp(bytecode.PUSH_FALSE)
		g.patchJump(end)
		return
	}
	// OR_OR
	shortCircuit := g.emitJump(bytecode.JUMP_IF_TRUE)
	g.compileExpr(l.Right)
	end := g.emitJump(bytecode.JUMP)
	g.patchJump(shortCircuit)
	g.emitOp(bytecode.PUSH_TRUE)
	g.patchJump(end)
}

func (g *Codegen) compileUnary(u *UnaryExpr) {
	g.compileExpr(u.Right)
	switch u.Op {
	case MINUS:
		if u.Right.Type().Kind == KFloat {
			g.emitOp(bytecode.NEG_F)
		} else {
			g.emitOp(bytecode.NEG_I)
		}
	case NOT:
		g.emitOp(bytecode.NOT)
	default:
		panic(fmt.Sprintf("codegen: unhandled unary operator %s", u.Op))
	}
}

func (g *Codegen) compileCall(call *CallExpr) {
	if id, ok := bytecode.LookupIntrinsic(call.Name); ok {
		for _, a := range call.Args {
			g.compileExpr(a)
		}
		g.emitOp(bytecode.CALL_INTRINSIC)
		g.emitByte(byte(id))
		g.emitByte(byte(len(call.Args)))
		return
	}

	for _, a := range call.Args {
		g.compileExpr(a)
	}
	idx := g.funcIdx[call.Name]
	g.emitOp(bytecode.CALL)
	g.emitU16(uint16(idx))
	g.emitByte(byte(len(call.Args)))
}

func (g *Codegen) compileIf(ie *IfExpr) {
	g.compileExpr(ie.Condition)
	elseJump := g.emitJump(bytecode.JUMP_IF_FALSE)

	g.compileBlockExpr(ie.Then)
	endJump := g.emitJump(bytecode.JUMP)

	g.patchJump(elseJump)
	if ie.Else != nil {
		g.compileBlockExpr(ie.Else)
	} else {
		g.emitOp(bytecode.PUSH_VOID)
	}
	g.patchJump(endJump)
}
