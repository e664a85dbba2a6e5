package lang

import (
	"unicode"

	"github.com/jlaustill/cnextc/internal/diag"
)

// Lexer turns C-Next source into a token stream. #include lines are
// consumed here and exposed via Includes; the dependency resolver has
// already followed them, the parser never sees them.
type Lexer struct {
	file   string
	src    []rune
	pos    int
	line   int
	col    int
	tokens []Token

	// Includes lists the include directives in source order.
	Includes []string

	errs *diag.Collector
}

// NewLexer prepares a lexer over src. Diagnostics go to errs.
func NewLexer(file, src string, errs *diag.Collector) *Lexer {
	return &Lexer{file: file, src: []rune(src), line: 1, col: 1, errs: errs}
}

// Lex scans the whole input and returns the token stream terminated by
// a single EOF token.
func (l *Lexer) Lex() []Token {
	for !l.atEnd() {
		l.skipBlanks()
		if l.atEnd() {
			break
		}
		l.scanToken()
	}
	l.emit(EOF, "")
	return l.tokens
}

func (l *Lexer) atEnd() bool { return l.pos >= len(l.src) }

func (l *Lexer) peek() rune {
	if l.atEnd() {
		return 0
	}
	return l.src[l.pos]
}

func (l *Lexer) peekAt(offset int) rune {
	if l.pos+offset >= len(l.src) {
		return 0
	}
	return l.src[l.pos+offset]
}

func (l *Lexer) advance() rune {
	ch := l.src[l.pos]
	l.pos++
	if ch == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return ch
}

func (l *Lexer) emit(tt TokenType, lexeme string) {
	l.tokens = append(l.tokens, Token{Type: tt, Lexeme: lexeme, Line: l.line, Col: l.col})
}

func (l *Lexer) emitAt(tt TokenType, lexeme string, line, col int) {
	l.tokens = append(l.tokens, Token{Type: tt, Lexeme: lexeme, Line: line, Col: col})
}

func (l *Lexer) skipBlanks() {
	for !l.atEnd() {
		ch := l.peek()
		switch {
		case ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n':
			l.advance()
		case ch == '/' && l.peekAt(1) == '/':
			for !l.atEnd() && l.peek() != '\n' {
				l.advance()
			}
		case ch == '/' && l.peekAt(1) == '*':
			l.advance()
			l.advance()
			for !l.atEnd() && !(l.peek() == '*' && l.peekAt(1) == '/') {
				l.advance()
			}
			if !l.atEnd() {
				l.advance()
				l.advance()
			}
		case ch == '#':
			l.scanDirective()
		default:
			return
		}
	}
}

// scanDirective consumes a #include (or any other #) line.
func (l *Lexer) scanDirective() {
	start := l.pos
	for !l.atEnd() && l.peek() != '\n' {
		l.advance()
	}
	line := string(l.src[start:l.pos])
	if name, ok := includeName(line); ok {
		l.Includes = append(l.Includes, name)
	}
}

func includeName(line string) (string, bool) {
	i := 0
	for i < len(line) && (line[i] == '#' || line[i] == ' ' || line[i] == '\t') {
		i++
	}
	const kw = "include"
	if len(line)-i < len(kw) || line[i:i+len(kw)] != kw {
		return "", false
	}
	i += len(kw)
	for i < len(line) && (line[i] == ' ' || line[i] == '\t') {
		i++
	}
	if i >= len(line) {
		return "", false
	}
	var close byte
	switch line[i] {
	case '"':
		close = '"'
	case '<':
		close = '>'
	default:
		return "", false
	}
	i++
	start := i
	for i < len(line) && line[i] != close {
		i++
	}
	if i >= len(line) {
		return "", false
	}
	return line[start:i], true
}

func (l *Lexer) scanToken() {
	line, col := l.line, l.col
	ch := l.peek()

	switch {
	case unicode.IsLetter(ch) || ch == '_':
		l.scanIdentifier(line, col)
	case unicode.IsDigit(ch):
		l.scanNumber(line, col)
	case ch == '"':
		l.scanString(line, col)
	case ch == '\'':
		l.scanChar(line, col)
	default:
		l.scanOperator(line, col)
	}
}

func (l *Lexer) scanIdentifier(line, col int) {
	start := l.pos
	for !l.atEnd() && (unicode.IsLetter(l.peek()) || unicode.IsDigit(l.peek()) || l.peek() == '_') {
		l.advance()
	}
	word := string(l.src[start:l.pos])
	if tt, ok := keywords[word]; ok {
		l.emitAt(tt, word, line, col)
		return
	}
	l.emitAt(IDENTIFIER, word, line, col)
}

func (l *Lexer) scanNumber(line, col int) {
	start := l.pos
	isFloat := false
	if l.peek() == '0' && (l.peekAt(1) == 'x' || l.peekAt(1) == 'X') {
		l.advance()
		l.advance()
		for !l.atEnd() && isHexDigit(l.peek()) {
			l.advance()
		}
	} else {
		for !l.atEnd() && (unicode.IsDigit(l.peek()) || l.peek() == '_') {
			l.advance()
		}
		// A '.' is part of the number only when a digit follows;
		// "42.min" must lex as INTEGER DOT IDENTIFIER.
		if l.peek() == '.' && unicode.IsDigit(l.peekAt(1)) {
			isFloat = true
			l.advance()
			for !l.atEnd() && unicode.IsDigit(l.peek()) {
				l.advance()
			}
		}
	}
	text := string(l.src[start:l.pos])
	if isFloat {
		l.emitAt(FLOATLIT, text, line, col)
		return
	}
	l.emitAt(INTEGER, text, line, col)
}

func isHexDigit(ch rune) bool {
	return unicode.IsDigit(ch) || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}

func (l *Lexer) scanString(line, col int) {
	l.advance() // opening quote
	start := l.pos
	for !l.atEnd() && l.peek() != '"' {
		if l.peek() == '\\' {
			l.advance()
		}
		if !l.atEnd() {
			l.advance()
		}
	}
	if l.atEnd() {
		l.errs.Add(diag.New(diag.LexError, diag.Pos{File: l.file, Line: line, Col: col},
			"unterminated string literal"))
		return
	}
	text := string(l.src[start:l.pos])
	l.advance() // closing quote
	l.emitAt(STRINGLIT, text, line, col)
}

func (l *Lexer) scanChar(line, col int) {
	l.advance() // opening quote
	start := l.pos
	for !l.atEnd() && l.peek() != '\'' {
		if l.peek() == '\\' {
			l.advance()
		}
		if !l.atEnd() {
			l.advance()
		}
	}
	if l.atEnd() {
		l.errs.Add(diag.New(diag.LexError, diag.Pos{File: l.file, Line: line, Col: col},
			"unterminated character literal"))
		return
	}
	text := string(l.src[start:l.pos])
	l.advance()
	l.emitAt(CHARLIT, text, line, col)
}

func (l *Lexer) scanOperator(line, col int) {
	ch := l.advance()
	two := func(next rune, match, single TokenType) {
		if l.peek() == next {
			l.advance()
			l.emitAt(match, string(ch)+string(next), line, col)
			return
		}
		l.emitAt(single, string(ch), line, col)
	}

	switch ch {
	case '{':
		l.emitAt(LBRACE, "{", line, col)
	case '}':
		l.emitAt(RBRACE, "}", line, col)
	case '(':
		l.emitAt(LPAREN, "(", line, col)
	case ')':
		l.emitAt(RPAREN, ")", line, col)
	case '[':
		l.emitAt(LBRACKET, "[", line, col)
	case ']':
		l.emitAt(RBRACKET, "]", line, col)
	case ',':
		l.emitAt(COMMA, ",", line, col)
	case ';':
		l.emitAt(SEMICOLON, ";", line, col)
	case ':':
		l.emitAt(COLON, ":", line, col)
	case '.':
		l.emitAt(DOT, ".", line, col)
	case '@':
		l.emitAt(AT, "@", line, col)
	case '~':
		l.emitAt(TILDE, "~", line, col)
	case '%':
		l.emitAt(PERCENT, "%", line, col)
	case '+':
		if l.compoundAssign(PLUS_ASSIGN, "+<-", line, col) {
			return
		}
		l.emitAt(PLUS, "+", line, col)
	case '-':
		if l.compoundAssign(MINUS_ASSIGN, "-<-", line, col) {
			return
		}
		l.emitAt(MINUS, "-", line, col)
	case '*':
		if l.compoundAssign(STAR_ASSIGN, "*<-", line, col) {
			return
		}
		l.emitAt(STAR, "*", line, col)
	case '/':
		if l.compoundAssign(SLASH_ASSIGN, "/<-", line, col) {
			return
		}
		l.emitAt(SLASH, "/", line, col)
	case '^':
		if l.compoundAssign(XOR_ASSIGN, "^<-", line, col) {
			return
		}
		l.emitAt(CARET, "^", line, col)
	case '&':
		if l.compoundAssign(AND_ASSIGN, "&<-", line, col) {
			return
		}
		two('&', LAND, AMP)
	case '|':
		if l.compoundAssign(OR_ASSIGN, "|<-", line, col) {
			return
		}
		two('|', LOR, PIPE)
	case '!':
		two('=', NEQ, NOT)
	case '=':
		if l.peek() == '=' {
			l.advance()
			l.emitAt(EQ, "==", line, col)
			return
		}
		l.errs.Add(diag.New(diag.LexError, diag.Pos{File: l.file, Line: line, Col: col},
			"'=' is not an operator; assignment is written '<-'").
			WithFix("replace '=' with '<-'"))
	case '<':
		switch l.peek() {
		case '-':
			l.advance()
			l.emitAt(ASSIGN, "<-", line, col)
		case '<':
			l.advance()
			l.emitAt(SHL, "<<", line, col)
		case '=':
			l.advance()
			l.emitAt(LEQ, "<=", line, col)
		default:
			l.emitAt(LESS, "<", line, col)
		}
	case '>':
		switch l.peek() {
		case '>':
			l.advance()
			l.emitAt(SHR, ">>", line, col)
		case '=':
			l.advance()
			l.emitAt(GEQ, ">=", line, col)
		default:
			l.emitAt(GREATER, ">", line, col)
		}
	default:
		l.errs.Add(diag.New(diag.LexError, diag.Pos{File: l.file, Line: line, Col: col},
			"unexpected character %q", string(ch)))
	}
}

// compoundAssign consumes "<-" after an already-advanced operator rune
// when present, emitting the compound assignment token.
func (l *Lexer) compoundAssign(tt TokenType, lexeme string, line, col int) bool {
	if l.peek() == '<' && l.peekAt(1) == '-' {
		l.advance()
		l.advance()
		l.emitAt(tt, lexeme, line, col)
		return true
	}
	return false
}
