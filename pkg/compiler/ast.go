package compiler

import (
	"fmt"

	"github.com/neksis-lang/neksis/pkg/diag"
)

//  Expression nodes

// Expr is implemented by every node that produces a value. After a
// successful semantic analysis pass every Expr's ResolvedType is set.
type Expr interface {
	exprNode()
	Span() diag.Span
	String() string
	Type() Type
	setType(Type)
}

type exprBase struct {
	span         diag.Span
	ResolvedType Type
}

func (e *exprBase) exprNode()       {}
func (e *exprBase) Span() diag.Span { return e.span }
func (e *exprBase) Type() Type      { return e.ResolvedType }
func (e *exprBase) setType(t Type)  { e.ResolvedType = t }

// IntLiteral is a compile-time Int constant, e.g. `10`.
type IntLiteral struct {
	exprBase
	Value int64
}

func (l *IntLiteral) String() string { return fmt.Sprintf("%d", l.Value) }

// FloatLiteral is a compile-time Float constant, e.g. `3.14`.
type FloatLiteral struct {
	exprBase
	Value float64
}

func (l *FloatLiteral) String() string { return fmt.Sprintf("%g", l.Value) }

// BoolLiteral is `true` or `false`.
type BoolLiteral struct {
	exprBase
	Value bool
}

func (l *BoolLiteral) String() string { return fmt.Sprintf("%t", l.Value) }

// StringLiteral is a double-quoted string constant, already escape-decoded.
type StringLiteral struct {
	exprBase
	Value string
}

func (s *StringLiteral) String() string { return fmt.Sprintf("%q", s.Value) }

// Identifier is a read of a named binding.
type Identifier struct {
	exprBase
	Name string
	Slot int // filled in by the checker
}

func (v *Identifier) String() string { return v.Name }

// BinaryExpr represents Left Op Right for arithmetic, comparison, and
// equality operators (never && or ||; those are LogicalExpr).
type BinaryExpr struct {
	exprBase
	Op    TokenType
	Left  Expr
	Right Expr
}

func (b *BinaryExpr) String() string { return fmt.Sprintf("(%s %s %s)", b.Left, b.Op, b.Right) }

// LogicalExpr represents Left && Right or Left || Right. Kept separate
// from BinaryExpr so the compiler can emit short-circuit jumps for it.
type LogicalExpr struct {
	exprBase
	Op    TokenType
	Left  Expr
	Right Expr
}

func (l *LogicalExpr) String() string { return fmt.Sprintf("(%s %s %s)", l.Left, l.Op, l.Right) }

// UnaryExpr represents Op Right, i.e. -x or !b.
type UnaryExpr struct {
	exprBase
	Op    TokenType
	Right Expr
}

func (u *UnaryExpr) String() string { return fmt.Sprintf("(%s %s)", u.Op, u.Right) }

// CallExpr represents name(args...).
type CallExpr struct {
	exprBase
	Name string
	Args []Expr
}

func (c *CallExpr) String() string { return fmt.Sprintf("%s(%v)", c.Name, c.Args) }

// FieldAccess represents Left.Field. No struct type exists yet in the
// type system (spec.md §3 keeps field access for future struct support);
// the checker always rejects it as unsupported.
type FieldAccess struct {
	exprBase
	Left  Expr
	Field string
}

func (f *FieldAccess) String() string { return fmt.Sprintf("(%s.%s)", f.Left, f.Field) }

// IfExpr is `if cond thenBlock else elseBlock`, usable as an expression
// only when both arms are present and their types agree (spec.md §4.3);
// otherwise the parser still builds one and the checker demotes it to a
// Void-typed statement form.
type IfExpr struct {
	exprBase
	Condition Expr
	Then      *BlockExpr
	Else      *BlockExpr // nil if there is no else
}

func (i *IfExpr) String() string {
	if i.Else != nil {
		return fmt.Sprintf("(if %s %s else %s)", i.Condition, i.Then, i.Else)
	}
	return fmt.Sprintf("(if %s %s)", i.Condition, i.Then)
}

// BlockExpr is `{ stmt* expr? }`. Tail is nil when the block has no
// trailing expression, in which case the block's value type is Void.
type BlockExpr struct {
	exprBase
	Stmts []Stmt
	Tail  Expr
}

func (b *BlockExpr) String() string { return fmt.Sprintf("{ %d stmts, tail=%v }", len(b.Stmts), b.Tail) }

//  Statement nodes

// Stmt is implemented by every node that does not itself produce a value.
type Stmt interface {
	stmtNode()
	Span() diag.Span
	String() string
}

type stmtBase struct {
	span diag.Span
}

func (s *stmtBase) stmtNode()       {}
func (s *stmtBase) Span() diag.Span { return s.span }

// LetStmt represents `let [mut] name [: Type] = init;`.
type LetStmt struct {
	stmtBase
	Name       string
	Mut        bool
	Annotated  Type
	HasAnnot   bool
	Init       Expr
	ResolvedTy Type // filled in by the checker
	LocalSlot  int  // filled in by the checker
}

func (l *LetStmt) String() string { return fmt.Sprintf("let %s = %s", l.Name, l.Init) }

// AssignStmt represents `name = expr;`.
type AssignStmt struct {
	stmtBase
	Name  string
	Value Expr
	Slot  int // filled in by the checker
}

func (a *AssignStmt) String() string { return fmt.Sprintf("%s = %s", a.Name, a.Value) }

// ReturnStmt represents `return [expr];`.
type ReturnStmt struct {
	stmtBase
	Value Expr // nil for a bare `return;`
}

func (r *ReturnStmt) String() string { return fmt.Sprintf("return %s", r.Value) }

// WhileStmt represents `while cond block`.
type WhileStmt struct {
	stmtBase
	Condition Expr
	Body      *BlockExpr
}

func (w *WhileStmt) String() string { return fmt.Sprintf("while %s %s", w.Condition, w.Body) }

// ExprStmt is an expression evaluated for its side effects. A block's
// trailing value expression is not an ExprStmt; it is held in
// BlockExpr.Tail.
type ExprStmt struct {
	stmtBase
	Value Expr
}

func (e *ExprStmt) String() string { return fmt.Sprintf("%s;", e.Value) }

//  Items

// Param is one declared function parameter: name and annotated type.
type Param struct {
	Name string
	Type Type
	Span diag.Span
}

// FunctionDecl represents `fn name(params) [-> Type] block`.
type FunctionDecl struct {
	stmtBase
	Name       string
	Params     []Param
	ReturnType Type
	HasRetType bool
	Body       *BlockExpr
	LocalCount int // filled in by the checker
}

func (f *FunctionDecl) String() string {
	return fmt.Sprintf("fn %s(%v) -> %s %s", f.Name, f.Params, f.ReturnType, f.Body)
}

// Program is the top-level AST: an ordered list of function declarations.
type Program struct {
	Functions []*FunctionDecl
}
