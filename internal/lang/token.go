// Package lang is the C-Next front end: lexer, AST, and recursive-descent
// parser. Foreign identifiers stay unresolved in the AST; the code
// generator resolves them against the unified symbol table.
package lang

import "fmt"

// TokenType identifies the category of a lexed token.
type TokenType int

const (
	EOF TokenType = iota

	// Literals
	IDENTIFIER
	INTEGER // decimal or hex integer literal
	FLOATLIT
	STRINGLIT
	CHARLIT

	// Type keywords
	U8
	U16
	U32
	U64
	I8
	I16
	I32
	I64
	F32
	F64
	BOOL
	VOID
	STRING // string<N>

	// Keywords
	SCOPE
	REGISTER
	ENUM
	STRUCT
	CONST
	IF
	ELSE
	WHILE
	FOR
	SWITCH
	CASE
	DEFAULT
	BREAK
	CONTINUE
	RETURN
	AS
	NULLKW
	TRUE
	FALSE

	// Delimiters
	LBRACE   // {
	RBRACE   // }
	LPAREN   // (
	RPAREN   // )
	LBRACKET // [
	RBRACKET // ]
	COMMA    // ,
	SEMICOLON
	COLON // :
	DOT   // .
	AT    // @

	// Assignment (no '=' exists in the language)
	ASSIGN       // <-
	PLUS_ASSIGN  // +<-
	MINUS_ASSIGN // -<-
	STAR_ASSIGN  // *<-
	SLASH_ASSIGN // /<-
	AND_ASSIGN   // &<-
	OR_ASSIGN    // |<-
	XOR_ASSIGN   // ^<-

	// Operators
	PLUS    // +
	MINUS   // -
	STAR    // *
	SLASH   // /
	PERCENT // %
	AMP     // &
	PIPE    // |
	CARET   // ^
	TILDE   // ~
	SHL     // <<
	SHR     // >>
	LAND    // &&
	LOR     // ||
	NOT     // !

	EQ      // ==
	NEQ     // !=
	LESS    // <
	GREATER // >
	LEQ     // <=
	GEQ     // >=
)

var tokenNames = [...]string{
	EOF:          "EOF",
	IDENTIFIER:   "IDENTIFIER",
	INTEGER:      "INTEGER",
	FLOATLIT:     "FLOAT",
	STRINGLIT:    "STRING",
	CHARLIT:      "CHAR",
	U8:           "u8",
	U16:          "u16",
	U32:          "u32",
	U64:          "u64",
	I8:           "i8",
	I16:          "i16",
	I32:          "i32",
	I64:          "i64",
	F32:          "f32",
	F64:          "f64",
	BOOL:         "bool",
	VOID:         "void",
	STRING:       "string",
	SCOPE:        "scope",
	REGISTER:     "register",
	ENUM:         "enum",
	STRUCT:       "struct",
	CONST:        "const",
	IF:           "if",
	ELSE:         "else",
	WHILE:        "while",
	FOR:          "for",
	SWITCH:       "switch",
	CASE:         "case",
	DEFAULT:      "default",
	BREAK:        "break",
	CONTINUE:     "continue",
	RETURN:       "return",
	AS:           "as",
	NULLKW:       "null",
	TRUE:         "true",
	FALSE:        "false",
	LBRACE:       "{",
	RBRACE:       "}",
	LPAREN:       "(",
	RPAREN:       ")",
	LBRACKET:     "[",
	RBRACKET:     "]",
	COMMA:        ",",
	SEMICOLON:    ";",
	COLON:        ":",
	DOT:          ".",
	AT:           "@",
	ASSIGN:       "<-",
	PLUS_ASSIGN:  "+<-",
	MINUS_ASSIGN: "-<-",
	STAR_ASSIGN:  "*<-",
	SLASH_ASSIGN: "/<-",
	AND_ASSIGN:   "&<-",
	OR_ASSIGN:    "|<-",
	XOR_ASSIGN:   "^<-",
	PLUS:         "+",
	MINUS:        "-",
	STAR:         "*",
	SLASH:        "/",
	PERCENT:      "%",
	AMP:          "&",
	PIPE:         "|",
	CARET:        "^",
	TILDE:        "~",
	SHL:          "<<",
	SHR:          ">>",
	LAND:         "&&",
	LOR:          "||",
	NOT:          "!",
	EQ:           "==",
	NEQ:          "!=",
	LESS:         "<",
	GREATER:      ">",
	LEQ:          "<=",
	GEQ:          ">=",
}

func (tt TokenType) String() string {
	if int(tt) >= 0 && int(tt) < len(tokenNames) && tokenNames[tt] != "" {
		return tokenNames[tt]
	}
	return fmt.Sprintf("TokenType(%d)", int(tt))
}

// keywords maps source text to its keyword TokenType.
var keywords = map[string]TokenType{
	"u8":       U8,
	"u16":      U16,
	"u32":      U32,
	"u64":      U64,
	"i8":       I8,
	"i16":      I16,
	"i32":      I32,
	"i64":      I64,
	"f32":      F32,
	"f64":      F64,
	"bool":     BOOL,
	"void":     VOID,
	"string":   STRING,
	"scope":    SCOPE,
	"register": REGISTER,
	"enum":     ENUM,
	"struct":   STRUCT,
	"const":    CONST,
	"if":       IF,
	"else":     ELSE,
	"while":    WHILE,
	"for":      FOR,
	"switch":   SWITCH,
	"case":     CASE,
	"default":  DEFAULT,
	"break":    BREAK,
	"continue": CONTINUE,
	"return":   RETURN,
	"as":       AS,
	"null":     NULLKW,
	"true":     TRUE,
	"false":    FALSE,
}

// IsTypeKeyword reports whether tt names a scalar type.
func (tt TokenType) IsTypeKeyword() bool {
	return tt >= U8 && tt <= STRING
}

// IsAssignOp reports whether tt is one of the assignment operators.
func (tt TokenType) IsAssignOp() bool {
	return tt >= ASSIGN && tt <= XOR_ASSIGN
}

// CompoundBinary returns the underlying binary operator of a compound
// assignment (PLUS for +<-, ...). ASSIGN itself returns EOF.
func (tt TokenType) CompoundBinary() TokenType {
	switch tt {
	case PLUS_ASSIGN:
		return PLUS
	case MINUS_ASSIGN:
		return MINUS
	case STAR_ASSIGN:
		return STAR
	case SLASH_ASSIGN:
		return SLASH
	case AND_ASSIGN:
		return AMP
	case OR_ASSIGN:
		return PIPE
	case XOR_ASSIGN:
		return CARET
	}
	return EOF
}

// Token is a single lexical unit produced by the Lexer.
type Token struct {
	Type   TokenType
	Lexeme string // the exact source text that was matched
	Line   int    // 1-based source line
	Col    int    // 1-based source column
}

func (t Token) String() string {
	return fmt.Sprintf("%-10s %-14q  line %d", t.Type, t.Lexeme, t.Line)
}
