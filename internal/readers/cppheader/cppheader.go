// Package cppheader extracts symbols from C++ interop headers. It reuses
// the C declaration parser and adds the constructs the fixtures exercise:
// namespaces (flattened to underscore-qualified names at insertion time),
// classes with public fields and method signatures, scoped enums, and
// template declarations (skipped; templated interop is not supported).
package cppheader

import (
	"github.com/jlaustill/cnextc/internal/diag"
	"github.com/jlaustill/cnextc/internal/readers"
	"github.com/jlaustill/cnextc/internal/readers/cheader"
	"github.com/jlaustill/cnextc/internal/readers/ctoken"
	"github.com/jlaustill/cnextc/internal/symbols"
)

// Reader implements readers.Reader for the C++ grammar.
type Reader struct{}

func New() *Reader { return &Reader{} }

func (r *Reader) Language() symbols.Language { return symbols.LangCPP }

func (r *Reader) Collect(file readers.File, table *symbols.Table, errs *diag.Collector) {
	res, err := ctoken.Lex(string(file.Content))
	if err != nil {
		errs.AddError(diag.HeaderParseFailure, diag.Pos{File: file.Path}, err)
		return
	}
	p := cheader.NewParser(file.Path, symbols.LangCPP, res, table, errs)
	p.CollectDirectives()
	parseScope(p, "")
}

// parseScope parses declarations until EOF or a closing '}' that ends the
// current namespace.
func parseScope(p *cheader.Parser, prefix string) {
	for {
		t := p.Peek()
		switch {
		case t.Kind == ctoken.EOF:
			return
		case t.Text == "}":
			return
		case t.Text == "namespace":
			parseNamespace(p, prefix)
		case t.Text == "template":
			skipTemplate(p)
		case t.Text == "class":
			parseClass(p, prefix)
		case t.Text == "enum" && p.PeekAt(1).Text == "class":
			parseEnumClass(p, prefix)
		case t.Text == "using":
			// using declarations/aliases carry no layout we need
			p.SkipToRecovery()
		default:
			// Plain C declarations are legal C++; the shared parser
			// already applies p.Prefix at insertion.
			prev := p.Prefix
			p.Prefix = prefix
			if !p.ParseDecl() {
				p.Prefix = prev
				return
			}
			p.Prefix = prev
		}
	}
}

func parseNamespace(p *cheader.Parser, prefix string) {
	line := p.Peek().Line
	p.Advance() // namespace
	if p.Peek().Kind != ctoken.Ident {
		p.Fail(line, "expected namespace name")
		p.SkipToRecovery()
		return
	}
	name := p.Advance().Text
	// Nested namespace shorthand: namespace A::B { ... }
	for p.Accept("::") {
		if p.Peek().Kind != ctoken.Ident {
			p.Fail(line, "malformed nested namespace")
			p.SkipToRecovery()
			return
		}
		name = name + "_" + p.Advance().Text
	}
	if !p.Accept("{") {
		p.Fail(line, "expected '{' after namespace %s", name)
		p.SkipToRecovery()
		return
	}
	parseScope(p, symbols.Qualify(prefix, name))
	if !p.Accept("}") {
		p.Fail(line, "unterminated namespace %s", name)
	}
}

// skipTemplate discards "template<...>" plus the declaration it modifies.
func skipTemplate(p *cheader.Parser) {
	p.Advance() // template
	if p.Accept("<") {
		depth := 1
		for depth > 0 && p.Peek().Kind != ctoken.EOF {
			switch p.Advance().Text {
			case "<":
				depth++
			case ">":
				depth--
			}
		}
	}
	// The templated entity itself: skip to its terminating ';',
	// balancing any body braces.
	p.SkipToRecovery()
}

// parseClass collects a class's public fields as a struct layout and its
// public method signatures as functions named Class_method.
func parseClass(p *cheader.Parser, prefix string) {
	line := p.Peek().Line
	p.Advance() // class
	if p.Peek().Kind != ctoken.Ident {
		p.Fail(line, "expected class name")
		p.SkipToRecovery()
		return
	}
	name := p.Advance().Text
	qname := symbols.Qualify(prefix, name)

	if p.Peek().Text == ";" {
		p.Advance() // forward declaration
		return
	}
	// Base-class clause: skip to the body.
	for p.Peek().Text != "{" && p.Peek().Kind != ctoken.EOF {
		p.Advance()
	}
	if !p.Accept("{") {
		p.Fail(line, "expected class body for %s", name)
		return
	}

	// Class members default to private; fixtures mark usable members with
	// an explicit "public:" section.
	visible := false
	var fields []symbols.Field
	var methods []*symbols.Symbol

	for p.Peek().Text != "}" && p.Peek().Kind != ctoken.EOF {
		t := p.Peek()
		switch t.Text {
		case "public":
			p.Advance()
			p.Accept(":")
			visible = true
			continue
		case "private", "protected":
			p.Advance()
			p.Accept(":")
			visible = false
			continue
		}

		// Constructor: Name(...) [: init-list] {...} or ;
		if t.Text == name && p.PeekAt(1).Text == "(" {
			p.Advance()
			if _, ok := p.ParseParams(); !ok {
				return
			}
			skipCtorTail(p)
			continue
		}
		// Destructor.
		if t.Text == "~" {
			for p.Peek().Text != ";" && p.Peek().Text != "{" && p.Peek().Kind != ctoken.EOF {
				p.Advance()
			}
			if p.Peek().Text == "{" {
				p.SkipBalancedBraces()
			} else {
				p.Accept(";")
			}
			continue
		}

		member, ok := parseMember(p, qname, visible)
		if !ok {
			return
		}
		if member.field != nil {
			fields = append(fields, *member.field)
		}
		if member.method != nil {
			methods = append(methods, member.method)
		}
	}
	if !p.Accept("}") {
		p.Fail(line, "unterminated class %s", name)
		return
	}
	p.Accept(";")

	prev := p.Prefix
	p.Prefix = prefix
	p.InsertStruct(name, fields, line)
	p.Prefix = prev
	for _, m := range methods {
		p.Insert(m, line)
	}
}

type classMember struct {
	field  *symbols.Field
	method *symbols.Symbol
}

// parseMember parses one class member: a data field or a method signature.
// Invisible (non-public) members are parsed and discarded.
func parseMember(p *cheader.Parser, qclass string, visible bool) (classMember, bool) {
	line := p.Peek().Line
	// static members belong to the class, not the layout.
	isStatic := p.Accept("static")
	p.Accept("virtual")
	p.Accept("inline")

	ti, ok := p.ParseType()
	if !ok {
		p.SkipToRecovery()
		return classMember{}, false
	}
	for p.Accept("*") {
		ti.IsPointer = true
		ti.BitWidth = 32
	}
	p.Accept("&")
	if p.Peek().Kind != ctoken.Ident {
		p.Fail(line, "expected member name, got %q", p.Peek().Text)
		p.SkipToRecovery()
		return classMember{}, false
	}
	name := p.Advance().Text

	if p.Peek().Text == "(" {
		params, ok := p.ParseParams()
		if !ok {
			return classMember{}, false
		}
		p.Accept("const")
		p.Accept("override")
		if p.Peek().Text == "{" {
			p.SkipBalancedBraces()
		} else {
			// "= 0;" pure specifier or plain ';'
			for p.Peek().Text != ";" && p.Peek().Kind != ctoken.EOF {
				p.Advance()
			}
			p.Accept(";")
		}
		if !visible {
			return classMember{}, true
		}
		return classMember{method: &symbols.Symbol{
			Name:       qclass + "_" + name,
			Kind:       symbols.KindFunction,
			OriginFile: p.File,
			OriginLang: symbols.LangCPP,
			Type:       ti,
			Signature:  &symbols.Signature{Params: params, Returns: ti},
		}}, true
	}

	// Data member, possibly with array dims and in-class initialiser.
	for p.Peek().Text == "[" {
		depth := 0
		for {
			t := p.Advance()
			if t.Text == "[" {
				depth++
			}
			if t.Text == "]" {
				depth--
				if depth == 0 {
					break
				}
			}
			if t.Kind == ctoken.EOF {
				p.Fail(line, "unterminated array member %s", name)
				return classMember{}, false
			}
		}
		ti.IsArray = true
	}
	if p.Accept("=") || p.Accept("{") {
		for p.Peek().Text != ";" && p.Peek().Kind != ctoken.EOF {
			p.Advance()
		}
	}
	if !p.Accept(";") {
		p.Fail(line, "expected ';' after member %s", name)
		p.SkipToRecovery()
		return classMember{}, false
	}
	if !visible || isStatic {
		return classMember{}, true
	}
	return classMember{field: &symbols.Field{Name: name, Type: ti}}, true
}

func skipCtorTail(p *cheader.Parser) {
	// Initialiser list and body, or '= default;', or plain ';'.
	for p.Peek().Text != "{" && p.Peek().Text != ";" && p.Peek().Kind != ctoken.EOF {
		p.Advance()
	}
	if p.Peek().Text == "{" {
		p.SkipBalancedBraces()
	} else {
		p.Accept(";")
	}
}

// parseEnumClass handles "enum class Name [: type] { ... };". Variants are
// inserted qualified by the enum name, matching C++'s scoped access.
func parseEnumClass(p *cheader.Parser, prefix string) {
	line := p.Peek().Line
	p.Advance() // enum
	p.Advance() // class
	if p.Peek().Kind != ctoken.Ident {
		p.Fail(line, "expected enum class name")
		p.SkipToRecovery()
		return
	}
	name := p.Advance().Text
	if p.Accept(":") {
		if _, ok := p.ParseType(); !ok {
			p.SkipToRecovery()
			return
		}
	}
	variants, ok := p.ParseEnumBody()
	if !ok {
		return
	}
	if !p.Accept(";") {
		p.Fail(line, "expected ';' after enum class %s", name)
		p.SkipToRecovery()
		return
	}
	// Scoped enums qualify their variants: Color::Red → Name_Red.
	qualified := make([]symbols.EnumVariant, len(variants))
	for i, v := range variants {
		qualified[i] = symbols.EnumVariant{Name: name + "_" + v.Name, Value: v.Value}
	}
	prev := p.Prefix
	p.Prefix = prefix
	p.InsertEnum(name, qualified, line)
	p.Prefix = prev
}
