package compiler

import (
	"fmt"

	"github.com/neksis-lang/neksis/pkg/diag"
)

// TokenType identifies the category of a lexed token.
type TokenType int

const (
	EOF TokenType = iota // sentinel: end of input

	// Literals
	IDENTIFIER
	INTEGER
	FLOAT
	STRING
	TRUE
	FALSE

	// Keywords
	FN
	LET
	MUT
	RETURN
	IF
	ELSE
	WHILE

	// Type names
	TYPE_INT
	TYPE_FLOAT
	TYPE_BOOL
	TYPE_STRING
	TYPE_VOID

	// Paired delimiters
	LPAREN
	RPAREN
	LBRACE
	RBRACE

	// Punctuation
	COMMA
	SEMICOLON
	COLON
	DOT
	ARROW // ->

	// Operators
	PLUS
	MINUS
	STAR
	SLASH
	PERCENT

	EQUALS  // ==
	NOT_EQ  // !=
	LESS    // <
	LESS_EQ // <=
	GREATER // >
	GREATER_EQ

	AND_AND // &&
	OR_OR   // ||
	NOT     // !

	ASSIGN // =
)

// tokenNames is indexed by TokenType; kept in lock-step with the const block.
var tokenNames = [...]string{
	EOF:         "EOF",
	IDENTIFIER:  "IDENTIFIER",
	INTEGER:     "INTEGER",
	FLOAT:       "FLOAT",
	STRING:      "STRING",
	TRUE:        "TRUE",
	FALSE:       "FALSE",
	FN:          "FN",
	LET:         "LET",
	MUT:         "MUT",
	RETURN:      "RETURN",
	IF:          "IF",
	ELSE:        "ELSE",
	WHILE:       "WHILE",
	TYPE_INT:    "TYPE_INT",
	TYPE_FLOAT:  "TYPE_FLOAT",
	TYPE_BOOL:   "TYPE_BOOL",
	TYPE_STRING: "TYPE_STRING",
	TYPE_VOID:   "TYPE_VOID",
	LPAREN:      "LPAREN",
	RPAREN:      "RPAREN",
	LBRACE:      "LBRACE",
	RBRACE:      "RBRACE",
	COMMA:       "COMMA",
	SEMICOLON:   "SEMICOLON",
	COLON:       "COLON",
	DOT:         "DOT",
	ARROW:       "ARROW",
	PLUS:        "PLUS",
	MINUS:       "MINUS",
	STAR:        "STAR",
	SLASH:       "SLASH",
	PERCENT:     "PERCENT",
	EQUALS:      "EQUALS",
	NOT_EQ:      "NOT_EQ",
	LESS:        "LESS",
	LESS_EQ:     "LESS_EQ",
	GREATER:     "GREATER",
	GREATER_EQ:  "GREATER_EQ",
	AND_AND:     "AND_AND",
	OR_OR:       "OR_OR",
	NOT:         "NOT",
	ASSIGN:      "ASSIGN",
}

func (tt TokenType) String() string {
	if int(tt) >= 0 && int(tt) < len(tokenNames) {
		return tokenNames[tt]
	}
	return fmt.Sprintf("TokenType(%d)", int(tt))
}

// keywords maps source text to its keyword TokenType.
var keywords = map[string]TokenType{
	"fn":     FN,
	"let":    LET,
	"mut":    MUT,
	"return": RETURN,
	"if":     IF,
	"else":   ELSE,
	"while":  WHILE,
	"true":   TRUE,
	"false":  FALSE,
	"Int":    TYPE_INT,
	"Float":  TYPE_FLOAT,
	"Bool":   TYPE_BOOL,
	"String": TYPE_STRING,
	"Void":   TYPE_VOID,
}

// Token is a single lexical unit produced by the Lexer.
type Token struct {
	Type   TokenType
	Lexeme string // the exact source text that was matched
	Str    string // decoded value, set only when Type == STRING
	IntVal int64
	FltVal float64
	Span   diag.Span
}

func (t Token) String() string {
	return fmt.Sprintf("%-10s %-14q  at %s", t.Type, t.Lexeme, t.Span.Start)
}
