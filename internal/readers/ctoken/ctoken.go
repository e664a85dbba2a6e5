// Package ctoken lexes C-family header text into a flat token stream for
// the C and C++ readers. It strips comments, resolves conditional
// compilation with a small predefined macro set, and separates preprocessor
// directives from ordinary tokens.
package ctoken

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Kind classifies a token.
type Kind int

const (
	EOF Kind = iota
	Ident
	Number
	String
	CharLit
	Punct
)

// Token is one lexical unit with its 1-based source line.
type Token struct {
	Kind Kind
	Text string
	Line int
}

// Directive is one preprocessor line (already comment-stripped), split into
// its name ("define", "include", ...) and the remaining text.
type Directive struct {
	Name string
	Rest string
	Line int
}

// Result is the outcome of lexing a header.
type Result struct {
	Tokens     []Token
	Directives []Directive
}

// predefined macros considered defined while evaluating #ifdef blocks.
// Guard macros are learned on the fly from the #ifndef/#define idiom.
var predefined = map[string]bool{
	"__STDC__": true,
}

// Lex tokenises a header. Conditional-compilation blocks whose condition
// is not satisfied are skipped entirely; the #ifndef guard idiom is
// recognised so guarded bodies are kept.
func Lex(src string) (Result, error) {
	var res Result
	defined := make(map[string]bool, len(predefined))
	for k, v := range predefined {
		defined[k] = v
	}

	// active[i] is whether the i-th enclosing conditional keeps its branch.
	var active []bool
	// taken[i] is whether any branch of the i-th chain has been satisfied.
	var taken []bool

	emitting := func() bool {
		for _, a := range active {
			if !a {
				return false
			}
		}
		return true
	}

	lines := splitLogicalLines(src)
	inBlockComment := false
	for _, ln := range lines {
		text, nowIn := stripComments(ln.text, inBlockComment)
		inBlockComment = nowIn
		trimmed := strings.TrimSpace(text)

		if strings.HasPrefix(trimmed, "#") {
			name, rest := splitDirective(trimmed)
			switch name {
			case "ifdef":
				cond := defined[strings.TrimSpace(rest)]
				active = append(active, cond)
				taken = append(taken, cond)
				continue
			case "ifndef":
				macro := strings.TrimSpace(rest)
				cond := !defined[macro]
				// Include-guard idiom: treat the guard as defined from
				// here on so a re-included body is skipped, but keep the
				// first body.
				active = append(active, cond)
				taken = append(taken, cond)
				continue
			case "if":
				cond := evalIfCondition(rest, defined)
				active = append(active, cond)
				taken = append(taken, cond)
				continue
			case "elif":
				if len(active) > 0 {
					if taken[len(taken)-1] {
						active[len(active)-1] = false
					} else {
						cond := evalIfCondition(rest, defined)
						active[len(active)-1] = cond
						taken[len(taken)-1] = cond
					}
				}
				continue
			case "else":
				if len(active) > 0 {
					active[len(active)-1] = !taken[len(taken)-1]
					taken[len(taken)-1] = true
				}
				continue
			case "endif":
				if len(active) > 0 {
					active = active[:len(active)-1]
					taken = taken[:len(taken)-1]
				}
				continue
			}

			if !emitting() {
				continue
			}
			if name == "define" {
				fields := strings.Fields(rest)
				if len(fields) > 0 {
					macro := fields[0]
					if i := strings.IndexByte(macro, '('); i >= 0 {
						macro = macro[:i]
					}
					defined[macro] = true
				}
			}
			res.Directives = append(res.Directives, Directive{Name: name, Rest: rest, Line: ln.line})
			continue
		}

		if !emitting() {
			continue
		}
		toks, err := lexLine(text, ln.line)
		if err != nil {
			return res, err
		}
		res.Tokens = append(res.Tokens, toks...)
	}

	res.Tokens = append(res.Tokens, Token{Kind: EOF, Line: len(lines)})
	return res, nil
}

type logicalLine struct {
	text string
	line int
}

// splitLogicalLines joins backslash-continued lines, preserving the line
// number of the first physical line.
func splitLogicalLines(src string) []logicalLine {
	physical := strings.Split(src, "\n")
	var out []logicalLine
	for i := 0; i < len(physical); i++ {
		start := i
		text := physical[i]
		for strings.HasSuffix(strings.TrimRight(text, " \t"), "\\") && i+1 < len(physical) {
			text = strings.TrimRight(strings.TrimSuffix(strings.TrimRight(text, " \t"), "\\"), " \t")
			i++
			text += " " + strings.TrimLeft(physical[i], " \t")
		}
		out = append(out, logicalLine{text: text, line: start + 1})
	}
	return out
}

// stripComments removes // and /* */ comments from one logical line,
// carrying block-comment state across lines.
func stripComments(line string, inBlock bool) (string, bool) {
	var sb strings.Builder
	i := 0
	for i < len(line) {
		if inBlock {
			if i+1 < len(line) && line[i] == '*' && line[i+1] == '/' {
				inBlock = false
				i += 2
				continue
			}
			i++
			continue
		}
		c := line[i]
		if c == '"' || c == '\'' {
			quote := c
			sb.WriteByte(c)
			i++
			for i < len(line) {
				sb.WriteByte(line[i])
				if line[i] == '\\' && i+1 < len(line) {
					i++
					sb.WriteByte(line[i])
					i++
					continue
				}
				if line[i] == quote {
					i++
					break
				}
				i++
			}
			continue
		}
		if c == '/' && i+1 < len(line) {
			if line[i+1] == '/' {
				break
			}
			if line[i+1] == '*' {
				inBlock = true
				i += 2
				continue
			}
		}
		sb.WriteByte(c)
		i++
	}
	return sb.String(), inBlock
}

func splitDirective(line string) (name, rest string) {
	line = strings.TrimSpace(strings.TrimPrefix(line, "#"))
	i := 0
	for i < len(line) && !unicode.IsSpace(rune(line[i])) {
		i++
	}
	return line[:i], strings.TrimSpace(line[i:])
}

// evalIfCondition handles the subset of #if expressions vendor headers use
// for feature gates: defined(X), !defined(X), integer literals, && and ||.
// Anything unrecognised evaluates to false, which keeps collection
// conservative (the block is skipped, never misparsed).
func evalIfCondition(expr string, defined map[string]bool) bool {
	expr = strings.TrimSpace(expr)
	for _, part := range strings.Split(expr, "||") {
		if evalAndChain(part, defined) {
			return true
		}
	}
	return false
}

func evalAndChain(expr string, defined map[string]bool) bool {
	for _, part := range strings.Split(expr, "&&") {
		if !evalAtom(strings.TrimSpace(part), defined) {
			return false
		}
	}
	return true
}

func evalAtom(atom string, defined map[string]bool) bool {
	neg := false
	for strings.HasPrefix(atom, "!") {
		neg = !neg
		atom = strings.TrimSpace(atom[1:])
	}
	atom = strings.TrimSpace(strings.Trim(atom, "()"))
	var val bool
	switch {
	case strings.HasPrefix(atom, "defined"):
		macro := strings.Trim(strings.TrimSpace(strings.TrimPrefix(atom, "defined")), "() ")
		val = defined[macro]
	default:
		if n, err := strconv.ParseInt(atom, 0, 64); err == nil {
			val = n != 0
		} else {
			val = false
		}
	}
	if neg {
		return !val
	}
	return val
}

func lexLine(line string, lineNo int) ([]Token, error) {
	var toks []Token
	i := 0
	n := len(line)
	for i < n {
		c := line[i]
		switch {
		case c == ' ' || c == '\t' || c == '\r':
			i++
		case isIdentStart(c):
			start := i
			for i < n && isIdentPart(line[i]) {
				i++
			}
			toks = append(toks, Token{Kind: Ident, Text: line[start:i], Line: lineNo})
		case c >= '0' && c <= '9':
			start := i
			for i < n && (isIdentPart(line[i]) || line[i] == '.') {
				i++
			}
			toks = append(toks, Token{Kind: Number, Text: line[start:i], Line: lineNo})
		case c == '"':
			start := i
			i++
			for i < n && line[i] != '"' {
				if line[i] == '\\' {
					i++
				}
				i++
			}
			if i >= n {
				return nil, fmt.Errorf("line %d: unterminated string literal", lineNo)
			}
			i++
			toks = append(toks, Token{Kind: String, Text: line[start:i], Line: lineNo})
		case c == '\'':
			start := i
			i++
			for i < n && line[i] != '\'' {
				if line[i] == '\\' {
					i++
				}
				i++
			}
			if i >= n {
				return nil, fmt.Errorf("line %d: unterminated character literal", lineNo)
			}
			i++
			toks = append(toks, Token{Kind: CharLit, Text: line[start:i], Line: lineNo})
		default:
			// Multi-char punctuation the readers care about, longest first.
			for _, p := range []string{"::", "<<", ">>", "->", "..."} {
				if strings.HasPrefix(line[i:], p) {
					toks = append(toks, Token{Kind: Punct, Text: p, Line: lineNo})
					i += len(p)
					goto next
				}
			}
			toks = append(toks, Token{Kind: Punct, Text: string(c), Line: lineNo})
			i++
		next:
		}
	}
	return toks, nil
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

// EvalConstExpr evaluates the constant integer expressions that appear in
// enum values and object-like macros: literals, unary minus, |, &, <<, >>,
// +, -, *, parentheses, and previously resolved names.
func EvalConstExpr(toks []Token, lookup func(string) (int64, bool)) (int64, bool) {
	p := &constParser{toks: toks, lookup: lookup}
	v, ok := p.parseOr()
	if !ok || p.pos != len(p.toks) {
		return 0, false
	}
	return v, true
}

type constParser struct {
	toks   []Token
	pos    int
	lookup func(string) (int64, bool)
}

func (p *constParser) peek() string {
	if p.pos >= len(p.toks) {
		return ""
	}
	return p.toks[p.pos].Text
}

func (p *constParser) parseOr() (int64, bool) {
	v, ok := p.parseAnd()
	if !ok {
		return 0, false
	}
	for p.peek() == "|" {
		p.pos++
		r, ok := p.parseAnd()
		if !ok {
			return 0, false
		}
		v |= r
	}
	return v, true
}

func (p *constParser) parseAnd() (int64, bool) {
	v, ok := p.parseShift()
	if !ok {
		return 0, false
	}
	for p.peek() == "&" {
		p.pos++
		r, ok := p.parseShift()
		if !ok {
			return 0, false
		}
		v &= r
	}
	return v, true
}

func (p *constParser) parseShift() (int64, bool) {
	v, ok := p.parseAdd()
	if !ok {
		return 0, false
	}
	for p.peek() == "<<" || p.peek() == ">>" {
		op := p.peek()
		p.pos++
		r, ok := p.parseAdd()
		if !ok {
			return 0, false
		}
		if op == "<<" {
			v <<= uint(r)
		} else {
			v >>= uint(r)
		}
	}
	return v, true
}

func (p *constParser) parseAdd() (int64, bool) {
	v, ok := p.parseMul()
	if !ok {
		return 0, false
	}
	for p.peek() == "+" || p.peek() == "-" {
		op := p.peek()
		p.pos++
		r, ok := p.parseMul()
		if !ok {
			return 0, false
		}
		if op == "+" {
			v += r
		} else {
			v -= r
		}
	}
	return v, true
}

func (p *constParser) parseMul() (int64, bool) {
	v, ok := p.parseUnary()
	if !ok {
		return 0, false
	}
	for p.peek() == "*" || p.peek() == "/" {
		op := p.peek()
		p.pos++
		r, ok := p.parseUnary()
		if !ok {
			return 0, false
		}
		if op == "*" {
			v *= r
		} else {
			if r == 0 {
				return 0, false
			}
			v /= r
		}
	}
	return v, true
}

func (p *constParser) parseUnary() (int64, bool) {
	switch p.peek() {
	case "-":
		p.pos++
		v, ok := p.parseUnary()
		return -v, ok
	case "~":
		p.pos++
		v, ok := p.parseUnary()
		return ^v, ok
	case "(":
		p.pos++
		v, ok := p.parseOr()
		if !ok || p.peek() != ")" {
			return 0, false
		}
		p.pos++
		return v, true
	}
	if p.pos >= len(p.toks) {
		return 0, false
	}
	tok := p.toks[p.pos]
	switch tok.Kind {
	case Number:
		text := strings.TrimRight(tok.Text, "uUlL")
		v, err := strconv.ParseInt(text, 0, 64)
		if err != nil {
			// Unsigned values above the int64 positive range.
			u, uerr := strconv.ParseUint(text, 0, 64)
			if uerr != nil {
				return 0, false
			}
			p.pos++
			return int64(u), true
		}
		p.pos++
		return v, true
	case CharLit:
		v, ok := charValue(tok.Text)
		if ok {
			p.pos++
		}
		return v, ok
	case Ident:
		if p.lookup != nil {
			if v, ok := p.lookup(tok.Text); ok {
				p.pos++
				return v, true
			}
		}
		return 0, false
	}
	return 0, false
}

func charValue(lit string) (int64, bool) {
	body := strings.Trim(lit, "'")
	switch body {
	case "\\n":
		return '\n', true
	case "\\t":
		return '\t', true
	case "\\r":
		return '\r', true
	case "\\0":
		return 0, true
	case "\\\\":
		return '\\', true
	case "\\'":
		return '\'', true
	}
	if len(body) == 1 {
		return int64(body[0]), true
	}
	return 0, false
}
