package codegen

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jlaustill/cnextc/internal/diag"
	"github.com/jlaustill/cnextc/internal/lang"
	"github.com/jlaustill/cnextc/internal/preproc"
	"github.com/jlaustill/cnextc/internal/symbols"
)

// Output is the generated C translation unit for one source file.
type Output struct {
	Unit    string // base name without extension
	CSource string
	HSource string
}

// local is one in-scope variable of the function being generated.
type local struct {
	typ      symbols.TypeInfo
	isConst  bool // declared const or inferred
	nullable bool // bound from a nullable foreign call
	written  bool // arrays only: any element, slice, or callee write so far
}

// Generator lowers one parsed file. It owns no I/O; callers hand it a
// table already populated with foreign symbols and collect the
// diagnostics afterwards.
type Generator struct {
	table *symbols.Table
	errs  *diag.Collector
	file  *lang.File
	unit  string
	scope string

	body     strings.Builder // function definitions and file-scope vars
	indent   int
	protos   []string
	hTypes   []string
	hDefines []string
	externs  []string

	needString bool // memcpy/strlen in output

	frames      []map[string]*local
	env         flowEnv
	assigned    map[string]bool // targets of any assignment in current fn
	fnName      string
	fnRet       *symbols.TypeInfo
	nullGuards  []string     // handles currently under a null comparison
	nullableRHS lang.Expr    // call expr being bound directly to a handle
	breakEnvs   []*[]flowEnv // innermost break target; nil for loops

	fileNames map[string]bool // all names this file will define (qualified)
}

// New creates a generator over a shared symbol table.
func New(table *symbols.Table, errs *diag.Collector) *Generator {
	return &Generator{table: table, errs: errs}
}

// Generate lowers f to a C source/header pair. Diagnostics accumulate
// in the collector; the returned output is only meaningful when no new
// errors were added.
func (g *Generator) Generate(f *lang.File) Output {
	g.file = f
	base := filepath.Base(f.Path)
	g.unit = strings.TrimSuffix(base, filepath.Ext(base))

	g.fileNames = map[string]bool{}
	for _, d := range f.Decls {
		g.scanNames(d, "")
	}

	for _, d := range f.Decls {
		g.topDecl(d)
	}
	return Output{
		Unit:    g.unit,
		CSource: g.renderC(),
		HSource: g.renderH(),
	}
}

// scanNames pre-collects every name the file defines so that a failed
// lookup can distinguish use-before-define from a genuinely unknown
// symbol.
func (g *Generator) scanNames(d lang.Decl, scope string) {
	switch dd := d.(type) {
	case *lang.ScopeDecl:
		for _, m := range dd.Members {
			g.scanNames(m, dd.Name)
		}
	case *lang.VarDecl:
		g.fileNames[symbols.Qualify(scope, dd.Name)] = true
	case *lang.FuncDecl:
		g.fileNames[symbols.Qualify(scope, dd.Name)] = true
	case *lang.EnumDecl:
		q := symbols.Qualify(scope, dd.Name)
		g.fileNames[q] = true
		for _, v := range dd.Variants {
			g.fileNames[q+"_"+v] = true
		}
	case *lang.StructDecl:
		g.fileNames[symbols.Qualify(scope, dd.Name)] = true
	case *lang.RegisterDecl:
		g.fileNames[dd.Name] = true
	}
}

func (g *Generator) topDecl(d lang.Decl) {
	switch dd := d.(type) {
	case *lang.ScopeDecl:
		prev := g.scope
		g.scope = dd.Name
		for _, m := range dd.Members {
			g.topDecl(m)
		}
		g.scope = prev
	case *lang.EnumDecl:
		g.enumDecl(dd)
	case *lang.StructDecl:
		g.structDecl(dd)
	case *lang.VarDecl:
		g.scopeVar(dd)
	case *lang.FuncDecl:
		g.funcDecl(dd)
	case *lang.RegisterDecl:
		g.registerDecl(dd)
	}
}

func (g *Generator) pos(n lang.Node) diag.Pos {
	line, col := n.Pos()
	return diag.Pos{File: g.file.Path, Line: line, Col: col}
}

func (g *Generator) report(code diag.Code, n lang.Node, format string, args ...any) {
	g.errs.Add(diag.New(code, g.pos(n), format, args...))
}

// ---- scope-level declarations ----

func (g *Generator) enumDecl(d *lang.EnumDecl) {
	q := symbols.Qualify(g.scope, d.Name)
	sym := &symbols.Symbol{
		Name:       q,
		Kind:       symbols.KindEnum,
		OriginFile: g.file.Path,
		OriginLang: symbols.LangCNext,
		Type:       symbols.TypeInfo{BaseType: q, BitWidth: 32, Signed: true, EnumName: q},
	}
	var lines []string
	for i, v := range d.Variants {
		vq := q + "_" + v
		sym.Variants = append(sym.Variants, symbols.EnumVariant{Name: vq, Value: int64(i)})
		variant := &symbols.Symbol{
			Name:       vq,
			Kind:       symbols.KindMacroConstant,
			OriginFile: g.file.Path,
			OriginLang: symbols.LangCNext,
			Type:       symbols.TypeInfo{BaseType: q, BitWidth: 32, Signed: true, EnumName: q},
			Value:      int64(i),
			HasValue:   true,
		}
		if dg := g.table.Insert(variant); dg != nil {
			g.errs.Add(dg)
		}
		sep := ","
		if i == len(d.Variants)-1 {
			sep = ""
		}
		lines = append(lines, "    "+vq+sep)
	}
	if dg := g.table.Insert(sym); dg != nil {
		g.errs.Add(dg)
	}
	g.hTypes = append(g.hTypes, fmt.Sprintf("typedef enum {\n%s\n} %s;", strings.Join(lines, "\n"), q))
}

func (g *Generator) structDecl(d *lang.StructDecl) {
	q := symbols.Qualify(g.scope, d.Name)
	ti := symbols.TypeInfo{BaseType: q, StructName: q}
	var lines []string
	for _, f := range d.Fields {
		ft, ok := g.typeInfoFor(f.Type)
		if !ok {
			g.report(diag.UnknownSymbol, f.Type, "unknown type %q in struct %s", f.Type.Name, d.Name)
			continue
		}
		ti.StructFields = append(ti.StructFields, symbols.Field{Name: f.Name, Type: ft})
		lines = append(lines, "    "+cType(ft, f.Name)+";")
	}
	sym := &symbols.Symbol{
		Name:       q,
		Kind:       symbols.KindStruct,
		OriginFile: g.file.Path,
		OriginLang: symbols.LangCNext,
		Type:       ti,
	}
	if dg := g.table.Insert(sym); dg != nil {
		g.errs.Add(dg)
	}
	g.hTypes = append(g.hTypes, fmt.Sprintf("typedef struct {\n%s\n} %s;", strings.Join(lines, "\n"), q))
}

func (g *Generator) scopeVar(d *lang.VarDecl) {
	q := symbols.Qualify(g.scope, d.Name)
	ti, ok := g.typeInfoFor(d.Type)
	if !ok {
		g.report(diag.UnknownSymbol, d.Type, "unknown type %q", d.Type.Name)
		return
	}
	ti.IsConst = d.IsConst
	sym := &symbols.Symbol{
		Name:       q,
		Kind:       symbols.KindVariable,
		OriginFile: g.file.Path,
		OriginLang: symbols.LangCNext,
		Type:       ti,
	}
	if v, ok := g.constValue(d.Init); ok && d.Init != nil {
		sym.Value = v
		sym.HasValue = true
	}
	if dg := g.table.Insert(sym); dg != nil {
		g.errs.Add(dg)
	}

	decl := cType(ti, q)
	if d.Init != nil {
		code, rt := g.expr(d.Init)
		g.checkAssignable(d, ti, rt, d.Init)
		g.body.WriteString(decl + " = " + code + ";\n")
	} else {
		if ti.IsConst {
			g.report(diag.ReadBeforeInit, d, "const %s declared without an initializer", d.Name)
		}
		g.body.WriteString(decl + ";\n")
	}
	g.externs = append(g.externs, "extern "+cType(ti, q)+";")
}

func (g *Generator) registerDecl(d *lang.RegisterDecl) {
	baseVal, ok := g.constValue(d.Base)
	if !ok {
		g.report(diag.ParseError, d.Base, "register base address must be a compile-time constant")
		return
	}
	binding := &symbols.RegisterBinding{Name: d.Name, BaseAddress: baseVal}
	for _, f := range d.Fields {
		ft, tok := g.typeInfoFor(f.Type)
		if !tok || ft.Float || ft.IsArray || ft.Bool {
			g.report(diag.ParseError, f, "register field %s must have an unsigned integer type", f.Name)
			continue
		}
		off, ook := g.constValue(f.Offset)
		if !ook {
			g.report(diag.ParseError, f.Offset, "offset of register field %s must be a compile-time constant", f.Name)
			continue
		}
		mode, _ := symbols.ParseAccessMode(f.Access)
		binding.Fields = append(binding.Fields, symbols.RegisterField{
			Name: f.Name, Type: ft, Access: mode, Offset: off,
		})
		g.hDefines = append(g.hDefines, fmt.Sprintf(
			"#define %s_%s (*(volatile %s*)(0x%Xu + 0x%Xu))",
			d.Name, f.Name, ft.BaseType, uint64(baseVal), uint64(off)))
	}
	if dg := g.table.InsertRegister(binding, g.file.Path); dg != nil {
		g.errs.Add(dg)
	}
}

// ---- functions ----

func (g *Generator) funcDecl(d *lang.FuncDecl) {
	q := symbols.Qualify(g.scope, d.Name)

	g.assigned = map[string]bool{}
	g.collectAssigned(d.Body, g.assigned)

	sig := &symbols.Signature{}
	var paramDecls []string
	params := make([]*local, 0, len(d.Params))
	for _, p := range d.Params {
		ti, ok := g.typeInfoFor(p.Type)
		if !ok {
			g.report(diag.UnknownSymbol, p.Type, "unknown type %q for parameter %s", p.Type.Name, p.Name)
			ti = symbols.TypeInfo{BaseType: "int32_t", BitWidth: 32, Signed: true}
		}
		ti.IsConst = p.IsConst
		if !p.IsConst && !g.assigned[p.Name] {
			ti.IsAutoConst = true
		}
		sig.Params = append(sig.Params, symbols.Param{Name: p.Name, Type: ti})
		paramDecls = append(paramDecls, cType(ti, p.Name))
		params = append(params, &local{typ: ti, isConst: ti.IsConst || ti.IsAutoConst, written: true})
	}
	retText := "void"
	if d.Return != nil {
		rt, ok := g.typeInfoFor(d.Return)
		if !ok {
			g.report(diag.UnknownSymbol, d.Return, "unknown return type %q", d.Return.Name)
			rt = symbols.TypeInfo{BaseType: "int32_t", BitWidth: 32, Signed: true}
		}
		sig.Returns = rt
		g.fnRet = &rt
		retText = cType(rt, "")
	} else {
		g.fnRet = nil
	}
	if len(paramDecls) == 0 {
		paramDecls = append(paramDecls, "void")
	}

	sym := &symbols.Symbol{
		Name:       q,
		Kind:       symbols.KindFunction,
		OriginFile: g.file.Path,
		OriginLang: symbols.LangCNext,
		Signature:  sig,
	}
	if dg := g.table.Insert(sym); dg != nil {
		g.errs.Add(dg)
	}

	head := fmt.Sprintf("%s %s(%s)", retText, q, strings.Join(paramDecls, ", "))
	g.protos = append(g.protos, head+";")

	g.fnName = q
	g.frames = []map[string]*local{{}}
	g.env = flowEnv{}
	for i, p := range d.Params {
		g.frames[0][p.Name] = params[i]
		g.env[p.Name] = varFlow{init: initYes, null: nullChecked}
	}

	g.body.WriteString("\n" + head + " {\n")
	g.indent = 1
	for _, s := range d.Body.Stmts {
		g.stmt(s)
	}
	g.indent = 0
	g.body.WriteString("}\n")
	g.frames = nil
	g.env = nil
}

// ---- local scope helpers ----

func (g *Generator) pushFrame() { g.frames = append(g.frames, map[string]*local{}) }

func (g *Generator) popFrame() {
	top := g.frames[len(g.frames)-1]
	for name := range top {
		delete(g.env, name)
	}
	g.frames = g.frames[:len(g.frames)-1]
}

func (g *Generator) lookupLocal(name string) (*local, bool) {
	for i := len(g.frames) - 1; i >= 0; i-- {
		if l, ok := g.frames[i][name]; ok {
			return l, true
		}
	}
	return nil, false
}

func (g *Generator) declareLocal(n lang.Node, name string, l *local) {
	if _, exists := g.lookupLocal(name); exists {
		g.report(diag.SymbolConflict, n, "%s redeclares a name already in scope; shadowing is not resolved", name)
		return
	}
	g.frames[len(g.frames)-1][name] = l
}

func (g *Generator) wr(format string, args ...any) {
	g.body.WriteString(strings.Repeat("    ", g.indent))
	fmt.Fprintf(&g.body, format, args...)
	g.body.WriteString("\n")
}

// ---- output assembly ----

func (g *Generator) guardName() string {
	up := strings.ToUpper(g.unit)
	var b strings.Builder
	for _, ch := range up {
		if (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') {
			b.WriteRune(ch)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String() + "_H"
}

func (g *Generator) renderH() string {
	var b strings.Builder
	guard := g.guardName()
	fmt.Fprintf(&b, "#ifndef %s\n#define %s\n\n", guard, guard)
	b.WriteString("#include <stdint.h>\n#include <stdbool.h>\n#include <stddef.h>\n")
	if g.needString {
		b.WriteString("#include <string.h>\n")
	}
	for _, inc := range g.file.Includes {
		if preproc.IsSystemHeader(inc) {
			fmt.Fprintf(&b, "#include <%s>\n", inc)
		} else {
			fmt.Fprintf(&b, "#include \"%s\"\n", inc)
		}
	}
	b.WriteString("\n")
	for _, def := range g.hDefines {
		b.WriteString(def + "\n")
	}
	if len(g.hDefines) > 0 {
		b.WriteString("\n")
	}
	for _, t := range g.hTypes {
		b.WriteString(t + "\n\n")
	}
	for _, e := range g.externs {
		b.WriteString(e + "\n")
	}
	if len(g.externs) > 0 {
		b.WriteString("\n")
	}
	for _, p := range g.protos {
		b.WriteString(p + "\n")
	}
	fmt.Fprintf(&b, "\n#endif /* %s */\n", guard)
	return b.String()
}

func (g *Generator) renderC() string {
	var b strings.Builder
	fmt.Fprintf(&b, "#include \"%s.h\"\n\n", g.unit)
	b.WriteString(g.body.String())
	return b.String()
}
