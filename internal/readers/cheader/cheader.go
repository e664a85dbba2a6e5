// Package cheader extracts symbols from C headers: struct layouts with full
// field types, enumerations, object-like macros with scalar values,
// typedefs, function prototypes, and extern variables. It is deliberately a
// declaration reader, not a full C parser; statement-level constructs never
// appear in the headers it is pointed at.
package cheader

import (
	"strconv"
	"strings"

	"github.com/jlaustill/cnextc/internal/diag"
	"github.com/jlaustill/cnextc/internal/preproc"
	"github.com/jlaustill/cnextc/internal/readers"
	"github.com/jlaustill/cnextc/internal/readers/ctoken"
	"github.com/jlaustill/cnextc/internal/symbols"
)

// Reader implements readers.Reader for the C grammar.
type Reader struct{}

func New() *Reader { return &Reader{} }

func (r *Reader) Language() symbols.Language { return symbols.LangC }

func (r *Reader) Collect(file readers.File, table *symbols.Table, errs *diag.Collector) {
	res, err := ctoken.Lex(string(file.Content))
	if err != nil {
		errs.AddError(diag.HeaderParseFailure, diag.Pos{File: file.Path}, err)
		return
	}
	p := NewParser(file.Path, symbols.LangC, res, table, errs)
	p.CollectDirectives()
	p.ParseDecls()
}

// Parser walks a lexed header and inserts symbols. It is shared with the
// C++ reader, which layers namespace and class handling on top.
type Parser struct {
	File  string
	Lang  symbols.Language
	Toks  []ctoken.Token
	Pos   int
	Table *symbols.Table
	Errs  *diag.Collector

	// Prefix is the flat namespace prefix applied to inserted names
	// (C++ namespaces only; empty for C).
	Prefix string

	// consts accumulates macro and enum values seen in this file for
	// constant-expression evaluation.
	consts map[string]int64

	directives []ctoken.Directive
}

// NewParser builds a Parser over a lex result.
func NewParser(file string, lang symbols.Language, res ctoken.Result, table *symbols.Table, errs *diag.Collector) *Parser {
	p := &Parser{
		File:   file,
		Lang:   lang,
		Toks:   res.Tokens,
		Table:  table,
		Errs:   errs,
		consts: make(map[string]int64),
	}
	p.directives = res.Directives
	return p
}

func (p *Parser) peek() ctoken.Token {
	if p.Pos >= len(p.Toks) {
		return ctoken.Token{Kind: ctoken.EOF}
	}
	return p.Toks[p.Pos]
}

func (p *Parser) peekAt(off int) ctoken.Token {
	if p.Pos+off >= len(p.Toks) {
		return ctoken.Token{Kind: ctoken.EOF}
	}
	return p.Toks[p.Pos+off]
}

func (p *Parser) advance() ctoken.Token {
	t := p.peek()
	if p.Pos < len(p.Toks) {
		p.Pos++
	}
	return t
}

func (p *Parser) accept(text string) bool {
	if p.peek().Text == text && p.peek().Kind != ctoken.EOF {
		p.Pos++
		return true
	}
	return false
}

func (p *Parser) fail(line int, format string, args ...any) {
	p.Errs.Add(diag.New(diag.HeaderParseFailure, diag.Pos{File: p.File, Line: line}, format, args...))
}

// skipToRecovery advances past the current declaration after a parse
// failure: to the ';' closing it, balancing braces on the way.
func (p *Parser) skipToRecovery() {
	depth := 0
	for {
		t := p.advance()
		switch {
		case t.Kind == ctoken.EOF:
			return
		case t.Text == "{":
			depth++
		case t.Text == "}":
			if depth > 0 {
				depth--
			}
		case t.Text == ";" && depth == 0:
			return
		}
	}
}

// lookupConst resolves a name against this file's macros/enums, then the
// shared table (macros and enum variants from already-collected headers).
func (p *Parser) lookupConst(name string) (int64, bool) {
	if v, ok := p.consts[name]; ok {
		return v, true
	}
	if sym, ok := p.Table.Lookup(name); ok {
		if sym.Kind == symbols.KindMacroConstant && sym.HasValue {
			return sym.Value, true
		}
	}
	return 0, false
}

// CollectDirectives turns #define NAME VALUE lines into MacroConstant
// symbols. Function-like macros and valueless defines (include guards) are
// recorded for const evaluation only when a scalar value can be computed.
func (p *Parser) CollectDirectives() {
	for _, d := range p.directives {
		if d.Name != "define" {
			continue
		}
		fields := strings.SplitN(d.Rest, " ", 2)
		name := strings.TrimSpace(fields[0])
		if name == "" || strings.ContainsRune(name, '(') {
			continue // function-like macro: no scalar value
		}
		if len(fields) < 2 || strings.TrimSpace(fields[1]) == "" {
			continue // bare guard define
		}
		valueToks, err := lexFragment(fields[1], d.Line)
		if err != nil {
			continue
		}
		v, ok := ctoken.EvalConstExpr(valueToks, p.lookupConst)
		if !ok {
			continue // non-scalar macro body: not representable
		}
		p.consts[name] = v
		width, signed := widthForValue(v)
		p.insert(&symbols.Symbol{
			Name:       p.qualified(name),
			Kind:       symbols.KindMacroConstant,
			OriginFile: p.File,
			OriginLang: p.Lang,
			Type:       symbols.TypeInfo{BaseType: baseForWidth(width, signed), BitWidth: width, Signed: signed},
			Value:      v,
			HasValue:   true,
		}, d.Line)
	}
}

func lexFragment(text string, line int) ([]ctoken.Token, error) {
	res, err := ctoken.Lex(text)
	if err != nil {
		return nil, err
	}
	toks := res.Tokens
	if len(toks) > 0 && toks[len(toks)-1].Kind == ctoken.EOF {
		toks = toks[:len(toks)-1]
	}
	for i := range toks {
		toks[i].Line = line
	}
	return toks, nil
}

func widthForValue(v int64) (int, bool) {
	switch {
	case v < 0:
		return 32, true
	case v > 0xFFFFFFFF:
		return 64, false
	default:
		return 32, false
	}
}

func baseForWidth(width int, signed bool) string {
	if signed {
		return "int" + strconv.Itoa(width) + "_t"
	}
	return "uint" + strconv.Itoa(width) + "_t"
}

func (p *Parser) qualified(name string) string {
	return symbols.Qualify(p.Prefix, name)
}

func (p *Parser) insert(sym *symbols.Symbol, line int) {
	if d := p.Table.Insert(sym); d != nil {
		d.Pos.Line = line
		p.Errs.Add(d)
	}
}

// Exported wrappers used by the C++ reader, which layers namespace and
// class handling over this parser.

func (p *Parser) Peek() ctoken.Token           { return p.peek() }
func (p *Parser) PeekAt(off int) ctoken.Token  { return p.peekAt(off) }
func (p *Parser) Advance() ctoken.Token        { return p.advance() }
func (p *Parser) Accept(text string) bool      { return p.accept(text) }
func (p *Parser) SkipToRecovery()              { p.skipToRecovery() }
func (p *Parser) SkipBalancedBraces()          { p.skipBalancedBraces() }
func (p *Parser) Qualified(name string) string { return p.qualified(name) }

func (p *Parser) Fail(line int, format string, args ...any) {
	p.fail(line, format, args...)
}

func (p *Parser) Insert(sym *symbols.Symbol, line int) {
	p.insert(sym, line)
}

func (p *Parser) InsertStruct(name string, fields []symbols.Field, line int) {
	p.insertStruct(name, fields, line)
}

func (p *Parser) InsertEnum(name string, variants []symbols.EnumVariant, line int) {
	p.insertEnum(name, variants, line)
}

// ParseDecls is the top-level declaration loop.
func (p *Parser) ParseDecls() {
	for p.peek().Kind != ctoken.EOF {
		if !p.ParseDecl() {
			return
		}
	}
}

// ParseDecl handles one top-level declaration; returns false at EOF.
func (p *Parser) ParseDecl() bool {
	t := p.peek()
	switch {
	case t.Kind == ctoken.EOF:
		return false
	case t.Text == ";":
		p.advance()
	case t.Text == "typedef":
		p.parseTypedef()
	case t.Text == "struct" || t.Text == "union":
		p.parseTaggedType(t.Text)
	case t.Text == "enum":
		p.parseEnum("")
	case t.Text == "extern":
		p.parseExtern()
	case t.Kind == ctoken.Ident:
		p.parseFunctionOrVariable(false)
	default:
		p.fail(t.Line, "unexpected token %q at top level", t.Text)
		p.skipToRecovery()
	}
	return true
}

// parseExtern handles extern declarations, including the extern "C" block
// wrapper that braces a run of ordinary declarations.
func (p *Parser) parseExtern() {
	p.advance() // extern
	if p.peek().Kind == ctoken.String {
		p.advance() // "C"
		if p.accept("{") {
			for p.peek().Kind != ctoken.EOF && p.peek().Text != "}" {
				if !p.ParseDecl() {
					return
				}
			}
			p.accept("}")
			return
		}
	}
	p.parseFunctionOrVariable(true)
}

// parseTypedef covers scalar, struct, enum, pointer and function-pointer
// typedef forms.
func (p *Parser) parseTypedef() {
	line := p.peek().Line
	p.advance() // typedef

	switch p.peek().Text {
	case "struct", "union":
		kw := p.advance().Text
		tag := ""
		if p.peek().Kind == ctoken.Ident {
			tag = p.advance().Text
		}
		if p.peek().Text == "{" {
			fields, ok := p.ParseStructBody(kw == "union")
			if !ok {
				return
			}
			name := ""
			if p.peek().Kind == ctoken.Ident {
				name = p.advance().Text
			}
			if !p.accept(";") {
				p.fail(line, "expected ';' after typedef %s", kw)
				p.skipToRecovery()
				return
			}
			if name == "" {
				name = tag
			}
			if name == "" {
				p.fail(line, "typedef %s has neither tag nor name", kw)
				return
			}
			p.insertStruct(name, fields, line)
			if tag != "" && tag != name {
				p.insertTypedefTo(tag, name, line)
			}
			return
		}
		// typedef struct Tag Name;  or  typedef struct Tag* Name;
		pointer := false
		for p.accept("*") {
			pointer = true
		}
		if p.peek().Kind != ctoken.Ident {
			p.fail(line, "malformed struct typedef")
			p.skipToRecovery()
			return
		}
		name := p.advance().Text
		if !p.accept(";") {
			p.fail(line, "expected ';' after typedef")
			p.skipToRecovery()
			return
		}
		ti := symbols.TypeInfo{BaseType: name, BitWidth: 32, IsPointer: pointer, StructName: tag}
		if !pointer {
			// Opaque forward typedef: layout resolves later if the tag is
			// ever completed; width stays pointer-sized until then.
			if sym, ok := p.Table.Lookup(tag); ok && sym.Kind == symbols.KindStruct {
				ti = sym.Type
				ti.BaseType = name
			}
		}
		p.insert(&symbols.Symbol{
			Name: p.qualified(name), Kind: symbols.KindTypedef,
			OriginFile: p.File, OriginLang: p.Lang, Type: ti,
		}, line)
		return

	case "enum":
		p.parseEnumTypedef(line)
		return
	}

	// typedef <type> Name;  or  typedef <ret> (*Name)(params);
	base, ok := p.ParseType()
	if !ok {
		p.skipToRecovery()
		return
	}
	if p.peek().Text == "(" {
		// Function-pointer typedef: opaque pointer-width handle.
		name, ok := p.parseFunctionPointerDeclarator()
		if !ok {
			p.skipToRecovery()
			return
		}
		if !p.accept(";") {
			p.skipToRecovery()
			return
		}
		p.insert(&symbols.Symbol{
			Name: p.qualified(name), Kind: symbols.KindTypedef,
			OriginFile: p.File, OriginLang: p.Lang,
			Type: symbols.TypeInfo{BaseType: name, BitWidth: 32, IsPointer: true},
		}, line)
		return
	}
	if p.peek().Kind != ctoken.Ident {
		p.fail(line, "expected typedef name, got %q", p.peek().Text)
		p.skipToRecovery()
		return
	}
	name := p.advance().Text
	if !p.accept(";") {
		p.fail(line, "expected ';' after typedef %s", name)
		p.skipToRecovery()
		return
	}
	ti := base
	ti.BaseType = name
	p.insert(&symbols.Symbol{
		Name: p.qualified(name), Kind: symbols.KindTypedef,
		OriginFile: p.File, OriginLang: p.Lang, Type: ti,
	}, line)
}

func (p *Parser) insertTypedefTo(alias, target string, line int) {
	if sym, ok := p.Table.Lookup(p.qualified(target)); ok {
		ti := sym.Type
		ti.BaseType = alias
		p.insert(&symbols.Symbol{
			Name: p.qualified(alias), Kind: symbols.KindTypedef,
			OriginFile: p.File, OriginLang: p.Lang, Type: ti,
		}, line)
	}
}

func (p *Parser) insertStruct(name string, fields []symbols.Field, line int) {
	width := 0
	for _, f := range fields {
		width += f.Type.StorageBits()
	}
	p.insert(&symbols.Symbol{
		Name: p.qualified(name), Kind: symbols.KindStruct,
		OriginFile: p.File, OriginLang: p.Lang,
		Type: symbols.TypeInfo{
			BaseType:     name,
			BitWidth:     width,
			StructName:   p.qualified(name),
			StructFields: fields,
		},
	}, line)
}

// parseTaggedType handles plain struct/union definitions.
func (p *Parser) parseTaggedType(kw string) {
	line := p.peek().Line
	p.advance() // struct | union
	if p.peek().Kind != ctoken.Ident {
		p.fail(line, "%s requires a tag at top level", kw)
		p.skipToRecovery()
		return
	}
	name := p.advance().Text
	if p.peek().Text == ";" {
		p.advance() // bare forward declaration carries no layout
		return
	}
	fields, ok := p.ParseStructBody(kw == "union")
	if !ok {
		return
	}
	if !p.accept(";") {
		p.fail(line, "expected ';' after %s %s", kw, name)
		p.skipToRecovery()
		return
	}
	p.insertStruct(name, fields, line)
}

// ParseStructBody parses "{ field; ... }" and returns the ordered fields.
// For unions the layout width is the widest member, which insertStruct
// approximates by keeping only the widest field's storage; member lookup by
// name still sees every field.
func (p *Parser) ParseStructBody(isUnion bool) ([]symbols.Field, bool) {
	open := p.peek()
	if !p.accept("{") {
		p.fail(open.Line, "expected '{'")
		p.skipToRecovery()
		return nil, false
	}
	var fields []symbols.Field
	for p.peek().Text != "}" && p.peek().Kind != ctoken.EOF {
		f, ok := p.parseField()
		if !ok {
			return nil, false
		}
		fields = append(fields, f...)
	}
	if !p.accept("}") {
		p.fail(open.Line, "unterminated struct body")
		return nil, false
	}
	if isUnion {
		fields = unionLayout(fields)
	}
	return fields, true
}

// unionLayout keeps every member for name lookup but zeroes the storage of
// all but the widest so StorageBits sums to the union's width.
func unionLayout(fields []symbols.Field) []symbols.Field {
	widest := -1
	max := 0
	for i, f := range fields {
		if s := f.Type.StorageBits(); s > max {
			max = s
			widest = i
		}
	}
	for i := range fields {
		if i != widest {
			fields[i].Type.IsArray = false
			fields[i].Type.ArrayLength = 0
			fields[i].Type.BitWidth = 0
		}
	}
	return fields
}

// parseField parses one struct member declaration, possibly declaring
// several comma-separated names.
func (p *Parser) parseField() ([]symbols.Field, bool) {
	line := p.peek().Line

	base, ok := p.ParseType()
	if !ok {
		p.skipToRecovery()
		return nil, false
	}

	if p.peek().Text == "(" {
		// Function-pointer member: opaque pointer-width field.
		name, ok := p.parseFunctionPointerDeclarator()
		if !ok {
			p.skipToRecovery()
			return nil, false
		}
		if !p.accept(";") {
			p.fail(line, "expected ';' after member %s", name)
			p.skipToRecovery()
			return nil, false
		}
		return []symbols.Field{{Name: name, Type: symbols.TypeInfo{BaseType: "void", BitWidth: 32, IsPointer: true}}}, true
	}

	var fields []symbols.Field
	for {
		ti := base
		for p.accept("*") {
			ti.IsPointer = true
			ti.BitWidth = 32
		}
		if p.peek().Kind != ctoken.Ident {
			p.fail(line, "expected member name, got %q", p.peek().Text)
			p.skipToRecovery()
			return nil, false
		}
		name := p.advance().Text
		total := 1
		dims := 0
		for p.peek().Text == "[" {
			n, ok := p.parseArrayDim()
			if !ok {
				p.skipToRecovery()
				return nil, false
			}
			total *= n
			dims++
		}
		if dims > 0 {
			ti.IsArray = true
			ti.ArrayLength = total
		}
		fields = append(fields, symbols.Field{Name: name, Type: ti})
		if p.accept(",") {
			continue
		}
		break
	}
	if !p.accept(";") {
		p.fail(line, "expected ';' after member")
		p.skipToRecovery()
		return nil, false
	}
	return fields, true
}

func (p *Parser) parseArrayDim() (int, bool) {
	p.accept("[")
	var toks []ctoken.Token
	for p.peek().Text != "]" && p.peek().Kind != ctoken.EOF {
		toks = append(toks, p.advance())
	}
	if !p.accept("]") {
		p.fail(p.peek().Line, "unterminated array dimension")
		return 0, false
	}
	if len(toks) == 0 {
		return 0, true // incomplete array: length unknown
	}
	v, ok := ctoken.EvalConstExpr(toks, p.lookupConst)
	if !ok || v < 0 {
		p.fail(toks[0].Line, "array dimension is not a constant expression")
		return 0, false
	}
	return int(v), true
}

// parseFunctionPointerDeclarator consumes "(*name)(params)" and returns name.
func (p *Parser) parseFunctionPointerDeclarator() (string, bool) {
	line := p.peek().Line
	if !p.accept("(") || !p.accept("*") {
		p.fail(line, "malformed function-pointer declarator")
		return "", false
	}
	if p.peek().Kind != ctoken.Ident {
		p.fail(line, "expected function-pointer name")
		return "", false
	}
	name := p.advance().Text
	if !p.accept(")") || !p.accept("(") {
		p.fail(line, "malformed function-pointer declarator for %s", name)
		return "", false
	}
	depth := 1
	for depth > 0 {
		t := p.advance()
		switch t.Text {
		case "(":
			depth++
		case ")":
			depth--
		}
		if t.Kind == ctoken.EOF {
			p.fail(line, "unterminated parameter list for %s", name)
			return "", false
		}
	}
	return name, true
}

// parseEnum handles "enum Name { ... };" and inserts the enum symbol plus
// one MacroConstant-like entry per variant for constant folding.
func (p *Parser) parseEnum(typedefName string) {
	line := p.peek().Line
	p.advance() // enum
	tag := ""
	if p.peek().Kind == ctoken.Ident {
		tag = p.advance().Text
	}
	variants, ok := p.ParseEnumBody()
	if !ok {
		return
	}
	name := typedefName
	if name == "" {
		name = tag
	}
	if typedefName == "" {
		if !p.accept(";") {
			p.fail(line, "expected ';' after enum %s", name)
			p.skipToRecovery()
			return
		}
	}
	if name == "" {
		p.fail(line, "anonymous enum with no typedef name")
		return
	}
	p.insertEnum(name, variants, line)
}

func (p *Parser) parseEnumTypedef(line int) {
	p.advance() // enum
	tag := ""
	if p.peek().Kind == ctoken.Ident {
		tag = p.advance().Text
	}
	_ = tag
	variants, ok := p.ParseEnumBody()
	if !ok {
		return
	}
	if p.peek().Kind != ctoken.Ident {
		p.fail(line, "expected typedef enum name")
		p.skipToRecovery()
		return
	}
	name := p.advance().Text
	if !p.accept(";") {
		p.fail(line, "expected ';' after typedef enum %s", name)
		p.skipToRecovery()
		return
	}
	p.insertEnum(name, variants, line)
}

func (p *Parser) insertEnum(name string, variants []symbols.EnumVariant, line int) {
	p.insert(&symbols.Symbol{
		Name: p.qualified(name), Kind: symbols.KindEnum,
		OriginFile: p.File, OriginLang: p.Lang,
		Type:     symbols.TypeInfo{BaseType: name, BitWidth: 32, Signed: true, EnumName: p.qualified(name)},
		Variants: variants,
	}, line)
	for _, v := range variants {
		p.consts[v.Name] = v.Value
		p.insert(&symbols.Symbol{
			Name: p.qualified(v.Name), Kind: symbols.KindMacroConstant,
			OriginFile: p.File, OriginLang: p.Lang,
			Type:     symbols.TypeInfo{BaseType: "int32_t", BitWidth: 32, Signed: true, EnumName: p.qualified(name)},
			Value:    v.Value,
			HasValue: true,
		}, line)
	}
}

// ParseEnumBody parses "{ A, B = 2, ... }" with explicit-value resolution.
func (p *Parser) ParseEnumBody() ([]symbols.EnumVariant, bool) {
	open := p.peek()
	if !p.accept("{") {
		p.fail(open.Line, "expected '{' in enum")
		p.skipToRecovery()
		return nil, false
	}
	var variants []symbols.EnumVariant
	next := int64(0)
	for p.peek().Text != "}" && p.peek().Kind != ctoken.EOF {
		if p.peek().Kind != ctoken.Ident {
			p.fail(p.peek().Line, "expected enumerator name, got %q", p.peek().Text)
			p.skipToRecovery()
			return nil, false
		}
		name := p.advance().Text
		if p.accept("=") {
			var toks []ctoken.Token
			for p.peek().Text != "," && p.peek().Text != "}" && p.peek().Kind != ctoken.EOF {
				toks = append(toks, p.advance())
			}
			v, ok := ctoken.EvalConstExpr(toks, p.lookupConst)
			if !ok {
				p.fail(open.Line, "enumerator %s has a non-constant value", name)
				p.skipToRecovery()
				return nil, false
			}
			next = v
		}
		variants = append(variants, symbols.EnumVariant{Name: name, Value: next})
		p.consts[name] = next
		next++
		if !p.accept(",") {
			break
		}
	}
	if !p.accept("}") {
		p.fail(open.Line, "unterminated enum body")
		return nil, false
	}
	return variants, true
}

// ParseType parses a type specifier (qualifiers, base, struct/enum tags)
// without the declarator's pointers/arrays.
func (p *Parser) ParseType() (symbols.TypeInfo, bool) {
	line := p.peek().Line
	isConst := false
	for p.peek().Text == "const" || p.peek().Text == "volatile" || p.peek().Text == "static" || p.peek().Text == "inline" {
		if p.peek().Text == "const" {
			isConst = true
		}
		p.advance()
	}

	var ti symbols.TypeInfo
	switch p.peek().Text {
	case "struct", "union":
		p.advance()
		if p.peek().Kind != ctoken.Ident {
			p.fail(line, "expected struct tag")
			return symbols.TypeInfo{}, false
		}
		tag := p.advance().Text
		if sym, ok := p.Table.Lookup(p.qualified(tag)); ok && sym.Kind == symbols.KindStruct {
			ti = sym.Type
		} else if sym, ok := p.Table.Lookup(tag); ok && sym.Kind == symbols.KindStruct {
			ti = sym.Type
		} else {
			// Incomplete type: only usable through a pointer.
			ti = symbols.TypeInfo{BaseType: tag, StructName: tag}
		}
	case "enum":
		p.advance()
		if p.peek().Kind != ctoken.Ident {
			p.fail(line, "expected enum tag")
			return symbols.TypeInfo{}, false
		}
		tag := p.advance().Text
		ti = symbols.TypeInfo{BaseType: tag, BitWidth: 32, Signed: true, EnumName: p.qualified(tag)}
	default:
		if p.peek().Kind != ctoken.Ident {
			p.fail(line, "expected type name, got %q", p.peek().Text)
			return symbols.TypeInfo{}, false
		}
		name := p.advance().Text
		// Multi-word spellings: unsigned int, unsigned long, ...
		for (name == "unsigned" || name == "signed" || name == "long" || name == "short") &&
			p.peek().Kind == ctoken.Ident && isTypeWord(p.peek().Text) {
			name = name + " " + p.advance().Text
		}
		if bt, ok := preproc.BuiltinType(name); ok {
			ti = bt
		} else if sym, ok := p.Table.Lookup(p.qualified(name)); ok {
			ti = sym.Type
		} else if sym, ok := p.Table.Lookup(name); ok {
			ti = sym.Type
		} else {
			// Unknown name: keep the spelling; width resolves to pointer
			// size if only used through a pointer.
			ti = symbols.TypeInfo{BaseType: name}
		}
	}
	ti.IsConst = isConst
	return ti, true
}

func isTypeWord(s string) bool {
	switch s {
	case "int", "long", "short", "char":
		return true
	}
	return false
}

// parseFunctionOrVariable handles prototypes and global variables.
func (p *Parser) parseFunctionOrVariable(isExtern bool) {
	line := p.peek().Line
	ret, ok := p.ParseType()
	if !ok {
		p.skipToRecovery()
		return
	}
	for p.accept("*") {
		ret.IsPointer = true
		ret.BitWidth = 32
	}
	if p.peek().Kind != ctoken.Ident {
		p.fail(line, "expected declarator name, got %q", p.peek().Text)
		p.skipToRecovery()
		return
	}
	name := p.advance().Text

	if p.peek().Text == "(" {
		params, ok := p.ParseParams()
		if !ok {
			return
		}
		// Prototype body ("{...}") never appears in headers we read;
		// tolerate and skip if present.
		if p.peek().Text == "{" {
			p.skipBalancedBraces()
		} else if !p.accept(";") {
			p.fail(line, "expected ';' after prototype %s", name)
			p.skipToRecovery()
			return
		}
		p.insert(&symbols.Symbol{
			Name: p.qualified(name), Kind: symbols.KindFunction,
			OriginFile: p.File, OriginLang: p.Lang,
			Type:           ret,
			Signature:      &symbols.Signature{Params: params, Returns: ret},
			IsExtern:       true, // header prototypes are extern by nature
			NullableReturn: ret.IsPointer && preproc.IsNullableForeign(name),
		}, line)
		return
	}

	// Variable declaration. Initialisers rarely appear in headers; when
	// one does, its tokens are skipped without evaluation.
	ti := ret
	for p.peek().Text == "[" {
		n, ok := p.parseArrayDim()
		if !ok {
			p.skipToRecovery()
			return
		}
		ti.IsArray = true
		ti.ArrayLength = n
	}
	if p.accept("=") {
		for p.peek().Text != ";" && p.peek().Kind != ctoken.EOF {
			p.advance()
		}
	}
	if !p.accept(";") {
		p.fail(line, "expected ';' after variable %s", name)
		p.skipToRecovery()
		return
	}
	p.insert(&symbols.Symbol{
		Name: p.qualified(name), Kind: symbols.KindVariable,
		OriginFile: p.File, OriginLang: p.Lang,
		Type:     ti,
		IsExtern: isExtern,
	}, line)
}

func (p *Parser) skipBalancedBraces() {
	if !p.accept("{") {
		return
	}
	depth := 1
	for depth > 0 {
		t := p.advance()
		switch t.Text {
		case "{":
			depth++
		case "}":
			depth--
		}
		if t.Kind == ctoken.EOF {
			return
		}
	}
}

// ParseParams parses "(type name, ...)"; names are optional in prototypes.
func (p *Parser) ParseParams() ([]symbols.Param, bool) {
	line := p.peek().Line
	if !p.accept("(") {
		p.fail(line, "expected '('")
		p.skipToRecovery()
		return nil, false
	}
	var params []symbols.Param
	if p.accept(")") {
		return params, true
	}
	// (void) means no parameters.
	if p.peek().Text == "void" && p.peekAt(1).Text == ")" {
		p.advance()
		p.advance()
		return params, true
	}
	for {
		if p.peek().Text == "..." {
			p.advance()
			break
		}
		ti, ok := p.ParseType()
		if !ok {
			p.skipToRecovery()
			return nil, false
		}
		for p.accept("*") {
			ti.IsPointer = true
			ti.BitWidth = 32
		}
		name := ""
		if p.peek().Kind == ctoken.Ident {
			name = p.advance().Text
		}
		for p.peek().Text == "[" {
			if _, ok := p.parseArrayDim(); !ok {
				p.skipToRecovery()
				return nil, false
			}
			ti.IsPointer = true // array parameters decay
		}
		params = append(params, symbols.Param{Name: name, Type: ti})
		if !p.accept(",") {
			break
		}
	}
	if !p.accept(")") {
		p.fail(line, "unterminated parameter list")
		p.skipToRecovery()
		return nil, false
	}
	return params, true
}
