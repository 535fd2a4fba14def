package compiler

import (
	"fmt"
	"strings"

	"github.com/neksis-lang/neksis/pkg/diag"
)

// Parser consumes the flat token slice produced by the Lexer and builds a
// Program. Unlike a parser that aborts on the first syntax error, this one
// records diagnostics and synchronizes to the next statement boundary so a
// single file can report every syntax error it contains in one pass.
//
// Grammar:
//
//	program    = functionDecl* EOF
//	functionDecl = "fn" IDENTIFIER "(" params? ")" ("->" type)? block
//	params     = param ("," param)*
//	param      = IDENTIFIER ":" type
//	type       = "Int" | "Float" | "Bool" | "String" | "Void"
//	block      = "{" stmt* expr? "}"
//	stmt       = letStmt | assignStmt | returnStmt | whileStmt | exprStmt
//	letStmt    = "let" "mut"? IDENTIFIER (":" type)? "=" expression ";"
//	assignStmt = IDENTIFIER "=" expression ";"
//	returnStmt = "return" expression? ";"
//	whileStmt  = "while" expression block
//	exprStmt   = expression ";"?   (";" optional after a block-like tail)
//	expression = logical_or
//	logical_or  = logical_and ("||" logical_and)*
//	logical_and = equality ("&&" equality)*
//	equality    = relational (("==" | "!=") relational)*
//	relational  = additive (("<" | "<=" | ">" | ">=") additive)*
//	additive    = multiplicative (("+" | "-") multiplicative)*
//	multiplicative = unary (("*" | "/" | "%") unary)*
//	unary       = ("-" | "!") unary | postfix
//	postfix     = primary ("." IDENTIFIER | "(" args ")")*
//	primary     = INTEGER | FLOAT | STRING | "true" | "false" | IDENTIFIER
//	            | "(" expression ")" | ifExpr | block
//	ifExpr      = "if" expression block ("else" (block | ifExpr))?
type Parser struct {
	tokens      []Token
	pos         int
	sourceLines []string
	errors      diag.List
}

func NewParser(tokens []Token, rawSource string) *Parser {
	return &Parser{tokens: tokens, sourceLines: strings.Split(rawSource, "\n")}
}

// errorf records a diagnostic pointing at tok, mirroring the source-line
// snippet the teacher's fmtError produced, but appends rather than returns.
func (p *Parser) errorf(tok Token, format string, args ...any) {
	p.errors = append(p.errors, diag.Diagnostic{
		Kind:    diag.Parse,
		Span:    tok.Span,
		Message: fmt.Sprintf(format, args...),
	})
}

func (p *Parser) peek() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: EOF}
	}
	return p.tokens[p.pos]
}

func (p *Parser) peekAt(offset int) Token {
	if p.pos+offset >= len(p.tokens) {
		return Token{Type: EOF}
	}
	return p.tokens[p.pos+offset]
}

func (p *Parser) advance() Token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *Parser) check(tt TokenType) bool { return p.peek().Type == tt }

func (p *Parser) expect(tt TokenType) (Token, bool) {
	tok := p.advance()
	if tok.Type != tt {
		p.errorf(tok, "expected %s, got %s (%q)", tt, tok.Type, tok.Lexeme)
		return tok, false
	}
	return tok, true
}

// synchronize discards tokens until it finds a plausible statement boundary,
// so a single malformed statement doesn't cascade into spurious errors for
// everything that follows it in the same block.
func (p *Parser) synchronize() {
	for !p.check(EOF) {
		if p.peek().Type == SEMICOLON {
			p.advance()
			return
		}
		switch p.peek().Type {
		case FN, LET, RETURN, IF, WHILE, RBRACE:
			return
		}
		p.advance()
	}
}

func (p *Parser) parseType() (Type, bool) {
	tok := p.advance()
	t, ok := typeFromToken(tok.Type)
	if !ok {
		p.errorf(tok, "expected a type name, got %s (%q)", tok.Type, tok.Lexeme)
		return TUnknown, false
	}
	return t, true
}

//  Expressions

func (p *Parser) parseExpression() Expr { return p.parseLogicalOr() }

func (p *Parser) parseLogicalOr() Expr {
	expr := p.parseLogicalAnd()
	for p.check(OR_OR) {
		op := p.advance()
		right := p.parseLogicalAnd()
		expr = &LogicalExpr{exprBase: exprBase{span: spanOf(expr, right)}, Op: op.Type, Left: expr, Right: right}
	}
	return expr
}

func (p *Parser) parseLogicalAnd() Expr {
	expr := p.parseEquality()
	for p.check(AND_AND) {
		op := p.advance()
		right := p.parseEquality()
		expr = &LogicalExpr{exprBase: exprBase{span: spanOf(expr, right)}, Op: op.Type, Left: expr, Right: right}
	}
	return expr
}

func (p *Parser) parseEquality() Expr {
	expr := p.parseRelational()
	for p.check(EQUALS) || p.check(NOT_EQ) {
		op := p.advance()
		right := p.parseRelational()
		expr = &BinaryExpr{exprBase: exprBase{span: spanOf(expr, right)}, Op: op.Type, Left: expr, Right: right}
	}
	return expr
}

func (p *Parser) parseRelational() Expr {
	expr := p.parseAdditive()
	for p.check(LESS) || p.check(LESS_EQ) || p.check(GREATER) || p.check(GREATER_EQ) {
		op := p.advance()
		right := p.parseAdditive()
		expr = &BinaryExpr{exprBase: exprBase{span: spanOf(expr, right)}, Op: op.Type, Left: expr, Right: right}
	}
	return expr
}

func (p *Parser) parseAdditive() Expr {
	expr := p.parseMultiplicative()
	for p.check(PLUS) || p.check(MINUS) {
		op := p.advance()
		right := p.parseMultiplicative()
		expr = &BinaryExpr{exprBase: exprBase{span: spanOf(expr, right)}, Op: op.Type, Left: expr, Right: right}
	}
	return expr
}

func (p *Parser) parseMultiplicative() Expr {
	expr := p.parseUnary()
	for p.check(STAR) || p.check(SLASH) || p.check(PERCENT) {
		op := p.advance()
		right := p.parseUnary()
		expr = &BinaryExpr{exprBase: exprBase{span: spanOf(expr, right)}, Op: op.Type, Left: expr, Right: right}
	}
	return expr
}

func (p *Parser) parseUnary() Expr {
	if p.check(MINUS) || p.check(NOT) {
		op := p.advance()
		right := p.parseUnary()
		return &UnaryExpr{exprBase: exprBase{span: diag.Span{Start: op.Span.Start, End: right.Span().End}}, Op: op.Type, Right: right}
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() Expr {
	expr := p.parsePrimary()
	for {
		switch p.peek().Type {
		case DOT:
			p.advance()
			field, ok := p.expect(IDENTIFIER)
			if !ok {
				return expr
			}
			expr = &FieldAccess{exprBase: exprBase{span: diag.Span{Start: expr.Span().Start, End: field.Span.End}}, Left: expr, Field: field.Lexeme}
		case LPAREN:
			id, ok := expr.(*Identifier)
			if !ok {
				p.errorf(p.peek(), "only a named function may be called")
				return expr
			}
			p.advance()
			args, end := p.parseCallArgs()
			expr = &CallExpr{exprBase: exprBase{span: diag.Span{Start: expr.Span().Start, End: end}}, Name: id.Name, Args: args}
		default:
			return expr
		}
	}
}

func (p *Parser) parseCallArgs() ([]Expr, diag.Pos) {
	var args []Expr
	if !p.check(RPAREN) {
		for {
			args = append(args, p.parseExpression())
			if !p.check(COMMA) {
				break
			}
			p.advance()
		}
	}
	tok, _ := p.expect(RPAREN)
	return args, tok.Span.End
}

func (p *Parser) parsePrimary() Expr {
	tok := p.peek()
	switch tok.Type {
	case INTEGER:
		p.advance()
		return &IntLiteral{exprBase: exprBase{span: tok.Span}, Value: tok.IntVal}
	case FLOAT:
		p.advance()
		return &FloatLiteral{exprBase: exprBase{span: tok.Span}, Value: tok.FltVal}
	case TRUE:
		p.advance()
		return &BoolLiteral{exprBase: exprBase{span: tok.Span}, Value: true}
	case FALSE:
		p.advance()
		return &BoolLiteral{exprBase: exprBase{span: tok.Span}, Value: false}
	case STRING:
		p.advance()
		return &StringLiteral{exprBase: exprBase{span: tok.Span}, Value: tok.Str}
	case IDENTIFIER:
		p.advance()
		return &Identifier{exprBase: exprBase{span: tok.Span}, Name: tok.Lexeme}
	case LPAREN:
		p.advance()
		expr := p.parseExpression()
		p.expect(RPAREN)
		return expr
	case LBRACE:
		return p.parseBlockExpr()
	case IF:
		return p.parseIfExpr()
	default:
		p.errorf(tok, "expected an expression, got %s (%q)", tok.Type, tok.Lexeme)
		p.advance()
		return &IntLiteral{exprBase: exprBase{span: tok.Span}, Value: 0}
	}
}

// parseIfExpr parses `if cond block (else (block | if))?`. The leading IF
// has not yet been consumed.
func (p *Parser) parseIfExpr() Expr {
	start := p.advance().Span.Start // consume "if"
	cond := p.parseExpression()
	then := p.parseBlockExpr()
	end := then.Span().End

	var elseBlock *BlockExpr
	if p.check(ELSE) {
		p.advance()
		if p.check(IF) {
			nested := p.parseIfExpr()
			elseBlock = &BlockExpr{exprBase: exprBase{span: nested.Span()}, Tail: nested}
		} else {
			elseBlock = p.parseBlockExpr()
		}
		end = elseBlock.Span().End
	}

	return &IfExpr{exprBase: exprBase{span: diag.Span{Start: start, End: end}}, Condition: cond, Then: then, Else: elseBlock}
}

// parseBlockExpr parses `{ stmt* expr? }`. The leading LBRACE has not yet
// been consumed.
func (p *Parser) parseBlockExpr() *BlockExpr {
	openTok, _ := p.expect(LBRACE)
	var stmts []Stmt
	var tail Expr

	for !p.check(RBRACE) && !p.check(EOF) {
		// An identifier immediately followed by "=" is an assignment
		// statement, not an expression-led statement; parseStatement
		// handles it directly rather than going through parseExpression,
		// which has no assignment production.
		isAssign := p.check(IDENTIFIER) && p.peekAt(1).Type == ASSIGN
		if !isAssign && isExprLeadToken(p.peek().Type) {
			expr := p.parseExpression()
			if p.check(SEMICOLON) {
				p.advance()
				stmts = append(stmts, &ExprStmt{stmtBase: stmtBase{span: expr.Span()}, Value: expr})
				continue
			}
			if p.check(RBRACE) {
				// Immediately followed by the closing brace: this is
				// genuinely the block's trailing value, not just a
				// statement that happens to lack a semicolon.
				tail = expr
				break
			}
			// More statements follow without a semicolon. Only a
			// block-like expression (if/block) may end a statement this
			// way; anything else is a missing-semicolon error.
			if !isBlockLikeExpr(expr) {
				p.expect(SEMICOLON)
			}
			stmts = append(stmts, &ExprStmt{stmtBase: stmtBase{span: expr.Span()}, Value: expr})
			continue
		}
		stmt := p.parseStatement()
		if stmt != nil {
			stmts = append(stmts, stmt)
		}
	}

	closeTok, _ := p.expect(RBRACE)
	return &BlockExpr{
		exprBase: exprBase{span: diag.Span{Start: openTok.Span.Start, End: closeTok.Span.End}},
		Stmts:    stmts,
		Tail:     tail,
	}
}

// isBlockLikeExpr reports whether e already ends in its own closing brace,
// the class of expression statement §6's grammar lets omit a semicolon
// even when it isn't the block's tail.
func isBlockLikeExpr(e Expr) bool {
	switch e.(type) {
	case *IfExpr, *BlockExpr:
		return true
	default:
		return false
	}
}

// isExprLeadToken reports whether tt can begin an expression, used to
// detect a block's trailing value before committing to parseStatement.
// IDENTIFIER can also begin an assignment; parseBlockExpr checks for that
// before calling this.
func isExprLeadToken(tt TokenType) bool {
	switch tt {
	case INTEGER, FLOAT, STRING, TRUE, FALSE, IDENTIFIER, LPAREN, MINUS, NOT, IF, LBRACE:
		return true
	default:
		return false
	}
}

//  Statements

func (p *Parser) parseStatement() Stmt {
	tok := p.peek()
	switch tok.Type {
	case LET:
		return p.parseLetStmt()
	case RETURN:
		return p.parseReturnStmt()
	case WHILE:
		return p.parseWhileStmt()
	case IDENTIFIER:
		if p.peekAt(1).Type == ASSIGN {
			return p.parseAssignStmt()
		}
		return p.parseExprStmt()
	case EOF:
		return nil
	default:
		p.errorf(tok, "unexpected token %s (%q) at start of statement", tok.Type, tok.Lexeme)
		p.advance()
		p.synchronize()
		return nil
	}
}

func (p *Parser) parseLetStmt() Stmt {
	start := p.advance().Span.Start // "let"
	mut := false
	if p.check(MUT) {
		p.advance()
		mut = true
	}
	nameTok, _ := p.expect(IDENTIFIER)

	var annotated Type
	hasAnnot := false
	if p.check(COLON) {
		p.advance()
		annotated, hasAnnot = p.parseType()
	}

	p.expect(ASSIGN)
	init := p.parseExpression()
	end := p.peek().Span.End
	p.expect(SEMICOLON)

	return &LetStmt{
		stmtBase:  stmtBase{span: diag.Span{Start: start, End: end}},
		Name:      nameTok.Lexeme,
		Mut:       mut,
		Annotated: annotated,
		HasAnnot:  hasAnnot,
		Init:      init,
	}
}

func (p *Parser) parseAssignStmt() Stmt {
	nameTok := p.advance()
	p.advance() // "="
	value := p.parseExpression()
	end := p.peek().Span.End
	p.expect(SEMICOLON)
	return &AssignStmt{stmtBase: stmtBase{span: diag.Span{Start: nameTok.Span.Start, End: end}}, Name: nameTok.Lexeme, Value: value}
}

func (p *Parser) parseReturnStmt() Stmt {
	start := p.advance().Span.Start // "return"
	var value Expr
	if !p.check(SEMICOLON) {
		value = p.parseExpression()
	}
	end := p.peek().Span.End
	p.expect(SEMICOLON)
	return &ReturnStmt{stmtBase: stmtBase{span: diag.Span{Start: start, End: end}}, Value: value}
}

func (p *Parser) parseWhileStmt() Stmt {
	start := p.advance().Span.Start // "while"
	cond := p.parseExpression()
	body := p.parseBlockExpr()
	return &WhileStmt{stmtBase: stmtBase{span: diag.Span{Start: start, End: body.Span().End}}, Condition: cond, Body: body}
}

func (p *Parser) parseExprStmt() Stmt {
	expr := p.parseExpression()
	end := expr.Span().End
	if p.check(SEMICOLON) {
		end = p.advance().Span.End
	}
	return &ExprStmt{stmtBase: stmtBase{span: diag.Span{Start: expr.Span().Start, End: end}}, Value: expr}
}

//  Items

func (p *Parser) parseParams() []Param {
	var params []Param
	if p.check(RPAREN) {
		return params
	}
	for {
		nameTok, _ := p.expect(IDENTIFIER)
		p.expect(COLON)
		ty, _ := p.parseType()
		params = append(params, Param{Name: nameTok.Lexeme, Type: ty, Span: nameTok.Span})
		if !p.check(COMMA) {
			break
		}
		p.advance()
	}
	return params
}

func (p *Parser) parseFunctionDecl() *FunctionDecl {
	start := p.advance().Span.Start // "fn"
	nameTok, _ := p.expect(IDENTIFIER)
	p.expect(LPAREN)
	params := p.parseParams()
	p.expect(RPAREN)

	retType := TVoid
	hasRetType := false
	if p.check(ARROW) {
		p.advance()
		retType, hasRetType = p.parseType()
	}

	body := p.parseBlockExpr()
	return &FunctionDecl{
		stmtBase:   stmtBase{span: diag.Span{Start: start, End: body.Span().End}},
		Name:       nameTok.Lexeme,
		Params:     params,
		ReturnType: retType,
		HasRetType: hasRetType,
		Body:       body,
	}
}

// Parse consumes every token into a Program. It never halts on a syntax
// error: malformed functions are skipped via synchronize and the error is
// recorded, so one bad declaration doesn't hide errors later in the file.
func Parse(tokens []Token, rawSource string) (*Program, diag.List) {
	p := NewParser(tokens, rawSource)
	prog := &Program{}
	for !p.check(EOF) {
		if !p.check(FN) {
			p.errorf(p.peek(), "expected a function declaration, got %s (%q)", p.peek().Type, p.peek().Lexeme)
			p.advance()
			p.synchronize()
			continue
		}
		prog.Functions = append(prog.Functions, p.parseFunctionDecl())
	}
	return prog, p.errors
}

func spanOf(left, right Expr) diag.Span {
	return diag.Span{Start: left.Span().Start, End: right.Span().End}
}
