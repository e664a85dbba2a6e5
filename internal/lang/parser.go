package lang

import (
	"strconv"
	"strings"

	"github.com/jlaustill/cnextc/internal/diag"
)

// Parser builds a File from a token stream. Errors are accumulated in
// the collector; the parser recovers at statement boundaries so one
// malformed declaration does not hide the rest of the file.
type Parser struct {
	file   string
	tokens []Token
	pos    int
	errs   *diag.Collector
}

// Parse lexes and parses src in one step.
func Parse(file, src string, errs *diag.Collector) *File {
	lex := NewLexer(file, src, errs)
	toks := lex.Lex()
	p := &Parser{file: file, tokens: toks, errs: errs}
	f := p.parseFile()
	f.Includes = lex.Includes
	return f
}

func (p *Parser) peek() Token { return p.tokens[p.pos] }

func (p *Parser) peekAt(offset int) Token {
	if p.pos+offset >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos+offset]
}

func (p *Parser) advance() Token {
	t := p.tokens[p.pos]
	if p.peek().Type != EOF {
		p.pos++
	}
	return t
}

func (p *Parser) accept(tt TokenType) bool {
	if p.peek().Type == tt {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) expect(tt TokenType) Token {
	if p.peek().Type == tt {
		return p.advance()
	}
	t := p.peek()
	p.fail(t, "expected %q, found %q", tt.String(), t.Lexeme)
	return t
}

func (p *Parser) fail(t Token, format string, args ...any) {
	p.errs.Add(diag.New(diag.ParseError,
		diag.Pos{File: p.file, Line: t.Line, Col: t.Col}, format, args...))
}

func (p *Parser) at(t Token) base { return base{Line: t.Line, Col: t.Col} }

// sync skips forward to the next likely declaration or statement
// boundary after a parse error.
func (p *Parser) sync() {
	depth := 0
	for p.peek().Type != EOF {
		switch p.peek().Type {
		case SEMICOLON:
			if depth == 0 {
				p.advance()
				return
			}
		case LBRACE:
			depth++
		case RBRACE:
			if depth == 0 {
				return
			}
			depth--
		}
		p.advance()
	}
}

// ---- declarations ----

func (p *Parser) parseFile() *File {
	f := &File{Path: p.file}
	for p.peek().Type != EOF {
		before := p.pos
		switch p.peek().Type {
		case SCOPE:
			f.Decls = append(f.Decls, p.parseScope())
		case REGISTER:
			f.Decls = append(f.Decls, p.parseRegister())
		case ENUM:
			f.Decls = append(f.Decls, p.parseEnum())
		case STRUCT:
			f.Decls = append(f.Decls, p.parseStruct())
		default:
			p.fail(p.peek(), "expected scope, register, enum, or struct at top level, found %q",
				p.peek().Lexeme)
			p.sync()
		}
		if p.pos == before {
			p.advance()
		}
	}
	return f
}

func (p *Parser) parseScope() *ScopeDecl {
	kw := p.expect(SCOPE)
	name := p.expect(IDENTIFIER)
	sc := &ScopeDecl{base: p.at(kw), Name: name.Lexeme}
	p.expect(LBRACE)
	for p.peek().Type != RBRACE && p.peek().Type != EOF {
		before := p.pos
		switch p.peek().Type {
		case ENUM:
			sc.Members = append(sc.Members, p.parseEnum())
		case STRUCT:
			sc.Members = append(sc.Members, p.parseStruct())
		default:
			if d := p.parseMember(); d != nil {
				sc.Members = append(sc.Members, d)
			}
		}
		if p.pos == before {
			p.advance()
		}
	}
	p.expect(RBRACE)
	return sc
}

// parseMember parses one variable or function declaration inside a
// scope body. Both start with [const] type name.
func (p *Parser) parseMember() Decl {
	start := p.peek()
	isConst := p.accept(CONST)
	typ := p.parseType()
	if typ == nil {
		p.sync()
		return nil
	}
	name := p.expect(IDENTIFIER)

	if p.peek().Type == LPAREN {
		if isConst {
			p.fail(start, "const applies to variables, not function definitions")
		}
		return p.parseFunc(start, typ, name.Lexeme)
	}
	v := p.parseVarTail(start, typ, name.Lexeme, isConst)
	p.expect(SEMICOLON)
	return v
}

// parseVarTail finishes a variable declaration after the name: array
// suffix and optional initializer. The trailing semicolon is left to
// the caller.
func (p *Parser) parseVarTail(start Token, typ *TypeRef, name string, isConst bool) *VarDecl {
	if p.accept(LBRACKET) {
		typ.IsArray = true
		if p.peek().Type != RBRACKET {
			typ.ArrayLen = p.parseExpr()
		}
		p.expect(RBRACKET)
	}
	v := &VarDecl{base: p.at(start), Name: name, Type: typ, IsConst: isConst}
	if p.accept(ASSIGN) {
		v.Init = p.parseExpr()
	}
	return v
}

func (p *Parser) parseFunc(start Token, ret *TypeRef, name string) *FuncDecl {
	fn := &FuncDecl{base: p.at(start), Name: name}
	if ret.Name != "void" {
		fn.Return = ret
	}
	p.expect(LPAREN)
	for p.peek().Type != RPAREN && p.peek().Type != EOF {
		pt := p.peek()
		isConst := p.accept(CONST)
		typ := p.parseType()
		if typ == nil {
			p.sync()
			break
		}
		pname := p.expect(IDENTIFIER)
		if p.accept(LBRACKET) {
			typ.IsArray = true
			if p.peek().Type != RBRACKET {
				typ.ArrayLen = p.parseExpr()
			}
			p.expect(RBRACKET)
		}
		fn.Params = append(fn.Params, &Param{
			base: p.at(pt), Name: pname.Lexeme, Type: typ, IsConst: isConst,
		})
		if !p.accept(COMMA) {
			break
		}
	}
	p.expect(RPAREN)
	fn.Body = p.parseBlock()
	return fn
}

func (p *Parser) parseEnum() *EnumDecl {
	kw := p.expect(ENUM)
	name := p.expect(IDENTIFIER)
	e := &EnumDecl{base: p.at(kw), Name: name.Lexeme}
	p.expect(LBRACE)
	for p.peek().Type != RBRACE && p.peek().Type != EOF {
		v := p.expect(IDENTIFIER)
		e.Variants = append(e.Variants, v.Lexeme)
		if !p.accept(COMMA) {
			break
		}
	}
	p.expect(RBRACE)
	return e
}

func (p *Parser) parseStruct() *StructDecl {
	kw := p.expect(STRUCT)
	name := p.expect(IDENTIFIER)
	s := &StructDecl{base: p.at(kw), Name: name.Lexeme}
	p.expect(LBRACE)
	for p.peek().Type != RBRACE && p.peek().Type != EOF {
		start := p.peek()
		typ := p.parseType()
		if typ == nil {
			p.sync()
			continue
		}
		fname := p.expect(IDENTIFIER)
		f := p.parseVarTail(start, typ, fname.Lexeme, false)
		if f.Init != nil {
			p.fail(start, "struct fields cannot carry initializers")
		}
		s.Fields = append(s.Fields, f)
		p.expect(SEMICOLON)
	}
	p.expect(RBRACE)
	return s
}

var registerAccessModes = map[string]bool{
	"rw": true, "ro": true, "wo": true, "w1c": true, "w1s": true,
}

func (p *Parser) parseRegister() *RegisterDecl {
	kw := p.expect(REGISTER)
	name := p.expect(IDENTIFIER)
	r := &RegisterDecl{base: p.at(kw), Name: name.Lexeme}
	p.expect(AT)
	r.Base = p.parseExpr()
	p.expect(LBRACE)
	for p.peek().Type != RBRACE && p.peek().Type != EOF {
		start := p.peek()
		fname := p.expect(IDENTIFIER)
		p.expect(COLON)
		typ := p.parseType()
		if typ == nil {
			p.sync()
			continue
		}
		access := p.expect(IDENTIFIER)
		if !registerAccessModes[access.Lexeme] {
			p.fail(access, "unknown access mode %q (want rw, ro, wo, w1c, or w1s)", access.Lexeme)
		}
		p.expect(AT)
		offset := p.parseExpr()
		p.expect(SEMICOLON)
		r.Fields = append(r.Fields, &RegisterField{
			base: p.at(start), Name: fname.Lexeme, Type: typ,
			Access: access.Lexeme, Offset: offset,
		})
	}
	p.expect(RBRACE)
	return r
}

// parseType parses a type reference: a scalar keyword, string<N>, or a
// (possibly scope-qualified) named type. Returns nil on failure.
func (p *Parser) parseType() *TypeRef {
	t := p.peek()
	switch {
	case t.Type == STRING:
		p.advance()
		tr := &TypeRef{base: p.at(t), Name: "string"}
		p.expect(LESS)
		cap := p.expect(INTEGER)
		if n, err := strconv.Atoi(strings.ReplaceAll(cap.Lexeme, "_", "")); err == nil {
			tr.StringCap = n
		}
		p.expect(GREATER)
		return tr
	case t.Type.IsTypeKeyword() || t.Type == VOID:
		p.advance()
		return &TypeRef{base: p.at(t), Name: t.Lexeme}
	case t.Type == IDENTIFIER:
		p.advance()
		name := t.Lexeme
		// Qualified type from another scope: Other.Color counter;
		if p.peek().Type == DOT && p.peekAt(1).Type == IDENTIFIER {
			p.advance()
			name = name + "." + p.advance().Lexeme
		}
		return &TypeRef{base: p.at(t), Name: name}
	}
	p.fail(t, "expected a type, found %q", t.Lexeme)
	return nil
}

// ---- statements ----

func (p *Parser) parseBlock() *BlockStmt {
	lb := p.expect(LBRACE)
	b := &BlockStmt{base: p.at(lb)}
	for p.peek().Type != RBRACE && p.peek().Type != EOF {
		before := p.pos
		if s := p.parseStmt(); s != nil {
			b.Stmts = append(b.Stmts, s)
		}
		if p.pos == before {
			p.advance()
		}
	}
	p.expect(RBRACE)
	return b
}

func (p *Parser) parseStmt() Stmt {
	t := p.peek()
	switch t.Type {
	case LBRACE:
		return p.parseBlock()
	case IF:
		return p.parseIf()
	case WHILE:
		return p.parseWhile()
	case FOR:
		return p.parseFor()
	case SWITCH:
		return p.parseSwitch()
	case RETURN:
		p.advance()
		r := &ReturnStmt{base: p.at(t)}
		if p.peek().Type != SEMICOLON {
			r.Value = p.parseExpr()
		}
		p.expect(SEMICOLON)
		return r
	case BREAK:
		p.advance()
		p.expect(SEMICOLON)
		return &BreakStmt{base: p.at(t)}
	case CONTINUE:
		p.advance()
		p.expect(SEMICOLON)
		return &ContinueStmt{base: p.at(t)}
	case CONST:
		return p.parseDeclStmt()
	case STRING:
		return p.parseDeclStmt()
	}
	if t.Type.IsTypeKeyword() {
		return p.parseDeclStmt()
	}
	// IDENT IDENT is a declaration with a named type; IDENT '.' IDENT
	// IDENT is one with a qualified type. Anything else starting with
	// an identifier is an assignment or a call.
	if t.Type == IDENTIFIER {
		if p.peekAt(1).Type == IDENTIFIER ||
			(p.peekAt(1).Type == DOT && p.peekAt(2).Type == IDENTIFIER && p.peekAt(3).Type == IDENTIFIER) {
			return p.parseDeclStmt()
		}
		return p.parseSimpleStmt()
	}
	p.fail(t, "expected a statement, found %q", t.Lexeme)
	p.sync()
	return nil
}

func (p *Parser) parseDeclStmt() Stmt {
	start := p.peek()
	isConst := p.accept(CONST)
	typ := p.parseType()
	if typ == nil {
		p.sync()
		return nil
	}
	name := p.expect(IDENTIFIER)
	v := p.parseVarTail(start, typ, name.Lexeme, isConst)
	p.expect(SEMICOLON)
	return &DeclStmt{base: p.at(start), Decl: v}
}

// parseSimpleStmt parses an assignment or expression statement,
// terminated by a semicolon.
func (p *Parser) parseSimpleStmt() Stmt {
	s := p.parseSimpleStmtNoSemi()
	p.expect(SEMICOLON)
	return s
}

func (p *Parser) parseSimpleStmtNoSemi() Stmt {
	start := p.peek()
	lhs := p.parseExpr()
	if op := p.peek(); op.Type.IsAssignOp() {
		p.advance()
		rhs := p.parseExpr()
		return &AssignStmt{base: p.at(start), LHS: lhs, Op: op.Type, RHS: rhs}
	}
	return &ExprStmt{base: p.at(start), X: lhs}
}

func (p *Parser) parseIf() Stmt {
	kw := p.expect(IF)
	p.expect(LPAREN)
	cond := p.parseExpr()
	p.expect(RPAREN)
	then := p.parseBlock()
	s := &IfStmt{base: p.at(kw), Cond: cond, Then: then}
	if p.accept(ELSE) {
		if p.peek().Type == IF {
			s.Else = p.parseIf()
		} else {
			s.Else = p.parseBlock()
		}
	}
	return s
}

func (p *Parser) parseWhile() Stmt {
	kw := p.expect(WHILE)
	p.expect(LPAREN)
	cond := p.parseExpr()
	p.expect(RPAREN)
	return &WhileStmt{base: p.at(kw), Cond: cond, Body: p.parseBlock()}
}

func (p *Parser) parseFor() Stmt {
	kw := p.expect(FOR)
	p.expect(LPAREN)
	s := &ForStmt{base: p.at(kw)}
	if p.peek().Type != SEMICOLON {
		if p.peek().Type.IsTypeKeyword() || p.peek().Type == CONST ||
			(p.peek().Type == IDENTIFIER && p.peekAt(1).Type == IDENTIFIER) {
			s.Init = p.parseDeclStmt() // consumes the semicolon
		} else {
			s.Init = p.parseSimpleStmtNoSemi()
			p.expect(SEMICOLON)
		}
	} else {
		p.expect(SEMICOLON)
	}
	if p.peek().Type != SEMICOLON {
		s.Cond = p.parseExpr()
	}
	p.expect(SEMICOLON)
	if p.peek().Type != RPAREN {
		s.Post = p.parseSimpleStmtNoSemi()
	}
	p.expect(RPAREN)
	s.Body = p.parseBlock()
	return s
}

func (p *Parser) parseSwitch() Stmt {
	kw := p.expect(SWITCH)
	p.expect(LPAREN)
	tag := p.parseExpr()
	p.expect(RPAREN)
	s := &SwitchStmt{base: p.at(kw), Tag: tag}
	p.expect(LBRACE)
	for p.peek().Type != RBRACE && p.peek().Type != EOF {
		t := p.peek()
		switch t.Type {
		case CASE:
			p.advance()
			c := &CaseClause{base: p.at(t)}
			for {
				c.Values = append(c.Values, p.parseExpr())
				if !p.accept(COMMA) {
					break
				}
			}
			p.expect(COLON)
			c.Body = p.parseBlock()
			s.Cases = append(s.Cases, c)
		case DEFAULT:
			p.advance()
			d := &DefaultClause{base: p.at(t), Count: -1}
			if p.accept(LPAREN) {
				n := p.expect(INTEGER)
				if v, err := strconv.Atoi(n.Lexeme); err == nil {
					d.Count = v
				}
				p.expect(RPAREN)
			}
			p.expect(COLON)
			d.Body = p.parseBlock()
			if s.Default != nil {
				p.fail(t, "duplicate default clause")
			}
			s.Default = d
		default:
			p.fail(t, "expected case or default inside switch, found %q", t.Lexeme)
			p.sync()
		}
	}
	p.expect(RBRACE)
	return s
}

// ---- expressions ----

// Precedence climbs: || < && < | < ^ < & < == != < relational <
// shifts < + - < * / %. Unary and `as` bind tightest.
var binaryPrec = map[TokenType]int{
	LOR:     1,
	LAND:    2,
	PIPE:    3,
	CARET:   4,
	AMP:     5,
	EQ:      6,
	NEQ:     6,
	LESS:    7,
	GREATER: 7,
	LEQ:     7,
	GEQ:     7,
	SHL:     8,
	SHR:     8,
	PLUS:    9,
	MINUS:   9,
	STAR:    10,
	SLASH:   10,
	PERCENT: 10,
}

func (p *Parser) parseExpr() Expr { return p.parseBinary(1) }

func (p *Parser) parseBinary(minPrec int) Expr {
	left := p.parseUnary()
	for {
		op := p.peek()
		prec, ok := binaryPrec[op.Type]
		if !ok || prec < minPrec {
			return left
		}
		p.advance()
		right := p.parseBinary(prec + 1)
		left = &BinaryExpr{base: p.at(op), Op: op.Type, X: left, Y: right}
	}
}

func (p *Parser) parseUnary() Expr {
	t := p.peek()
	switch t.Type {
	case MINUS, TILDE, NOT:
		p.advance()
		return &UnaryExpr{base: p.at(t), Op: t.Type, X: p.parseUnary()}
	}
	return p.parseCast()
}

// parseCast parses a postfix expression followed by any number of
// `as type` suffixes.
func (p *Parser) parseCast() Expr {
	x := p.parsePostfix()
	for p.peek().Type == AS {
		at := p.advance()
		typ := p.parseType()
		if typ == nil {
			return x
		}
		x = &CastExpr{base: p.at(at), X: x, Type: typ}
	}
	return x
}

func (p *Parser) parsePostfix() Expr {
	x := p.parsePrimary()
	for {
		t := p.peek()
		switch t.Type {
		case DOT:
			p.advance()
			// min/max are reserved member names on type keywords;
			// on ordinary expressions a member is any identifier
			// (including .length).
			name := p.expect(IDENTIFIER)
			x = &MemberExpr{base: p.at(t), X: x, Name: name.Lexeme}
		case LBRACKET:
			p.advance()
			ix := &IndexExpr{base: p.at(t), X: x}
			ix.Args = append(ix.Args, p.parseExpr())
			if p.accept(COMMA) {
				ix.Args = append(ix.Args, p.parseExpr())
			}
			p.expect(RBRACKET)
			x = ix
		case LPAREN:
			p.advance()
			call := &CallExpr{base: p.at(t), Fn: x}
			for p.peek().Type != RPAREN && p.peek().Type != EOF {
				call.Args = append(call.Args, p.parseExpr())
				if !p.accept(COMMA) {
					break
				}
			}
			p.expect(RPAREN)
			x = call
		default:
			return x
		}
	}
}

func (p *Parser) parsePrimary() Expr {
	t := p.peek()
	switch t.Type {
	case INTEGER:
		p.advance()
		return p.intLit(t)
	case FLOATLIT:
		p.advance()
		return &FloatLit{base: p.at(t), Text: t.Lexeme}
	case STRINGLIT:
		p.advance()
		return &StringLit{base: p.at(t), Value: t.Lexeme}
	case CHARLIT:
		p.advance()
		return &CharLit{base: p.at(t), Text: t.Lexeme}
	case TRUE:
		p.advance()
		return &BoolLit{base: p.at(t), Value: true}
	case FALSE:
		p.advance()
		return &BoolLit{base: p.at(t), Value: false}
	case NULLKW:
		p.advance()
		return &NullLit{base: p.at(t)}
	case IDENTIFIER:
		p.advance()
		return &Ident{base: p.at(t), Name: t.Lexeme}
	case LPAREN:
		p.advance()
		x := p.parseExpr()
		p.expect(RPAREN)
		return x
	}
	// i32.min / u8.max boundary constants.
	if t.Type.IsTypeKeyword() && t.Type != STRING && p.peekAt(1).Type == DOT {
		member := p.peekAt(2)
		if member.Type == IDENTIFIER && (member.Lexeme == "min" || member.Lexeme == "max") {
			p.advance()
			p.advance()
			p.advance()
			return &BoundaryLit{base: p.at(t), Type: t.Lexeme, IsMax: member.Lexeme == "max"}
		}
	}
	p.fail(t, "expected an expression, found %q", t.Lexeme)
	p.sync()
	return &Ident{base: p.at(t), Name: t.Lexeme}
}

func (p *Parser) intLit(t Token) *IntLit {
	text := strings.ReplaceAll(t.Lexeme, "_", "")
	lit := &IntLit{base: p.at(t), Text: t.Lexeme}
	if strings.HasPrefix(text, "0x") || strings.HasPrefix(text, "0X") {
		lit.IsHex = true
		v, err := strconv.ParseUint(text[2:], 16, 64)
		if err != nil {
			p.fail(t, "invalid hex literal %q", t.Lexeme)
			return lit
		}
		lit.Value = v
		return lit
	}
	v, err := strconv.ParseUint(text, 10, 64)
	if err != nil {
		p.fail(t, "integer literal %q does not fit in 64 bits", t.Lexeme)
		return lit
	}
	lit.Value = v
	return lit
}
