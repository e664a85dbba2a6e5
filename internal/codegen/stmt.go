package codegen

import (
	"fmt"
	"strings"

	"github.com/jlaustill/cnextc/internal/diag"
	"github.com/jlaustill/cnextc/internal/lang"
	"github.com/jlaustill/cnextc/internal/symbols"
)

func (g *Generator) stmt(s lang.Stmt) {
	switch st := s.(type) {
	case *lang.BlockStmt:
		g.wr("{")
		g.indent++
		g.pushFrame()
		for _, inner := range st.Stmts {
			g.stmt(inner)
		}
		g.popFrame()
		g.indent--
		g.wr("}")
	case *lang.DeclStmt:
		g.declStmt(st)
	case *lang.AssignStmt:
		g.assignStmt(st)
	case *lang.IfStmt:
		g.ifStmt(st)
	case *lang.WhileStmt:
		g.whileStmt(st)
	case *lang.ForStmt:
		g.forStmt(st)
	case *lang.SwitchStmt:
		g.switchStmt(st)
	case *lang.ReturnStmt:
		g.returnStmt(st)
	case *lang.BreakStmt:
		g.wr("break;")
		// A break inside a switch resumes after the switch, so its facts
		// belong in the post-switch meet. Loop breaks need nothing: the
		// loop exit already meets against the entry env.
		if n := len(g.breakEnvs); n > 0 {
			if sink := g.breakEnvs[n-1]; sink != nil {
				*sink = append(*sink, g.env.clone())
			}
		}
	case *lang.ContinueStmt:
		g.wr("continue;")
	case *lang.ExprStmt:
		code, _ := g.expr(st.X)
		g.wr("%s;", code)
	}
}

func (g *Generator) declStmt(st *lang.DeclStmt) {
	d := st.Decl
	ti, ok := g.typeInfoFor(d.Type)
	if !ok {
		g.report(diag.UnknownSymbol, d.Type, "unknown type %q", d.Type.Name)
		ti = symbols.TypeInfo{BaseType: "int32_t", BitWidth: 32, Signed: true}
	}
	ti.IsConst = d.IsConst
	if d.Init != nil && !d.IsConst && !g.assigned[d.Name] {
		ti.IsAutoConst = true
	}

	l := &local{typ: ti, isConst: ti.IsConst || ti.IsAutoConst, written: d.Init != nil}
	flow := varFlow{init: initNo, null: nullChecked}

	if d.Init != nil {
		flow.init = initYes
		if fn, nullable := g.nullableCall(d.Init); nullable {
			if !strings.HasSuffix(d.Name, "Handle") {
				g.errs.Add(diag.New(diag.NullNamingRequired, g.pos(d),
					"%s may be null; bind results of %s to a name ending in Handle", d.Name, fn).
					WithFix("rename %s to %sHandle", d.Name, d.Name))
			}
			l.nullable = true
			flow.null = nullUnchecked
			ti.IsPointer = true
			l.typ = ti
			g.nullableRHS = d.Init
		}
		code, rt := g.expr(d.Init)
		g.nullableRHS = nil
		g.checkAssignable(d, ti, rt, d.Init)
		g.declareLocal(d, d.Name, l)
		g.env[d.Name] = flow
		g.wr("%s = %s;", cType(ti, d.Name), code)
		return
	}
	if ti.IsConst {
		g.report(diag.ReadBeforeInit, d, "const %s declared without an initializer", d.Name)
	}
	if ti.IsArray {
		// Arrays are storage; element and slice writes do not read the
		// prior contents, so the init lattice only tracks scalars.
		flow.init = initYes
	}
	g.declareLocal(d, d.Name, l)
	g.env[d.Name] = flow
	g.wr("%s;", cType(ti, d.Name))
}

// nullableCall reports whether e is a direct call to a foreign function
// whitelisted as possibly returning null.
func (g *Generator) nullableCall(e lang.Expr) (string, bool) {
	call, ok := e.(*lang.CallExpr)
	if !ok {
		return "", false
	}
	name := callName(call)
	if name == "" {
		return "", false
	}
	if sym, found := g.table.Lookup(name); found && sym.NullableReturn {
		return name, true
	}
	return "", false
}

func callName(call *lang.CallExpr) string {
	switch fn := call.Fn.(type) {
	case *lang.Ident:
		return fn.Name
	case *lang.MemberExpr:
		if base, ok := fn.X.(*lang.Ident); ok {
			return symbols.Qualify(base.Name, fn.Name)
		}
	}
	return ""
}

// ---- assignment ----

func (g *Generator) assignStmt(st *lang.AssignStmt) {
	compound := st.Op != lang.ASSIGN
	cop := "="
	if compound {
		cop = st.Op.CompoundBinary().String() + "="
	}

	switch lhs := st.LHS.(type) {
	case *lang.Ident:
		g.assignIdent(st, lhs, cop, compound)
	case *lang.MemberExpr:
		g.assignMember(st, lhs, cop, compound)
	case *lang.IndexExpr:
		g.assignIndex(st, lhs, compound)
	default:
		g.report(diag.InvalidLValue, st, "left side of assignment is not assignable")
	}
}

func (g *Generator) assignIdent(st *lang.AssignStmt, lhs *lang.Ident, cop string, compound bool) {
	if l, ok := g.lookupLocal(lhs.Name); ok {
		if l.isConst {
			g.report(diag.AssignToConst, st, "%s is const and cannot be reassigned", lhs.Name)
		}
		if compound {
			g.requireInitialized(lhs, lhs.Name)
		}
		flow := g.env[lhs.Name]
		flow.init = initYes
		if l.nullable {
			if _, isNull := st.RHS.(*lang.NullLit); isNull {
				flow.null = nullUnchecked
			} else if _, viaCall := g.nullableCall(st.RHS); viaCall {
				flow.null = nullUnchecked
				g.nullableRHS = st.RHS
			}
		} else if fn, nullable := g.nullableCall(st.RHS); nullable {
			g.report(diag.NullNamingRequired, st,
				"%s may be null; bind results of %s to a name ending in Handle", lhs.Name, fn)
		}
		g.env[lhs.Name] = flow
		code, rt := g.expr(st.RHS)
		g.nullableRHS = nil
		g.checkAssignable(st, l.typ, rt, st.RHS)
		g.wr("%s %s %s;", lhs.Name, cop, code)
		return
	}
	// Scope variable of the current scope, by bare name.
	q := symbols.Qualify(g.scope, lhs.Name)
	if sym, ok := g.table.Lookup(q); ok && sym.Kind == symbols.KindVariable {
		if sym.Type.IsConst {
			g.report(diag.AssignToConst, st, "%s is const and cannot be reassigned", lhs.Name)
		}
		code, rt := g.expr(st.RHS)
		g.checkAssignable(st, sym.Type, rt, st.RHS)
		g.wr("%s %s %s;", q, cop, code)
		return
	}
	g.reportUnknown(lhs, lhs.Name)
}

func (g *Generator) assignMember(st *lang.AssignStmt, lhs *lang.MemberExpr, cop string, compound bool) {
	// Register field write: NAME.FIELD <- value.
	if base, ok := lhs.X.(*lang.Ident); ok {
		if reg, found := g.table.Register(base.Name); found {
			f, ok := reg.FieldByName(lhs.Name)
			if !ok {
				g.report(diag.UnknownMember, lhs, "register %s has no field %s", base.Name, lhs.Name)
				return
			}
			if !f.Access.Writable() {
				g.report(diag.ReadOnlyWrite, st, "%s.%s is read-only", base.Name, lhs.Name)
			}
			if compound && !f.Access.Readable() {
				g.report(diag.WriteOnlyRead, st,
					"compound assignment reads %s.%s, which is %s", base.Name, lhs.Name, f.Access)
			}
			code, rt := g.expr(st.RHS)
			g.checkAssignable(st, f.Type, rt, st.RHS)
			g.wr("%s_%s %s %s;", base.Name, lhs.Name, cop, code)
			return
		}
		// Cross-scope variable: Other.counter <- v.
		if scopeVar, found := g.table.Lookup(symbols.Qualify(base.Name, lhs.Name)); found &&
			scopeVar.Kind == symbols.KindVariable {
			if scopeVar.Type.IsConst {
				g.report(diag.AssignToConst, st, "%s.%s is const and cannot be reassigned", base.Name, lhs.Name)
			}
			code, rt := g.expr(st.RHS)
			g.checkAssignable(st, scopeVar.Type, rt, st.RHS)
			g.wr("%s %s %s;", symbols.Qualify(base.Name, lhs.Name), cop, code)
			return
		}
	}
	// Struct field write through a local or scope variable. There is no
	// struct literal syntax; fields are not tracked individually, so the
	// first field write marks the whole local initialized.
	if name, ok := rootIdent(st.LHS); ok {
		if l, found := g.lookupLocal(name); found {
			if l.isConst {
				g.report(diag.AssignToConst, st, "%s is const; its fields cannot be modified", name)
			}
			if compound {
				g.requireInitialized(lhs, name)
			}
			f := g.env[name]
			f.init = initYes
			g.env[name] = f
		}
	}
	lcode, lt := g.expr(st.LHS)
	code, rt := g.expr(st.RHS)
	g.checkAssignable(st, lt, rt, st.RHS)
	g.wr("%s %s %s;", lcode, cop, code)
}

func (g *Generator) assignIndex(st *lang.AssignStmt, lhs *lang.IndexExpr, compound bool) {
	subject, stype := g.indexSubject(lhs)
	if subject == "" {
		return
	}
	if name, ok := rootIdent(lhs.X); ok {
		if l, found := g.lookupLocal(name); found {
			if l.isConst {
				g.report(diag.AssignToConst, st, "%s is const and cannot be written", name)
			}
			g.requireInitialized(lhs, name)
			if l.typ.IsArray {
				l.written = true
			}
		}
	}

	if stype.IsArray && !stype.IsString {
		if len(lhs.Args) == 2 {
			g.sliceWrite(st, lhs, subject, stype)
			return
		}
		idxCode, _ := g.expr(lhs.Args[0])
		if v, ok := g.constValue(lhs.Args[0]); ok {
			if v < 0 || int(v) >= stype.ArrayLength {
				g.report(diag.SliceBoundsError, lhs,
					"index %d out of range for array of length %d", v, stype.ArrayLength)
			}
		}
		code, rt := g.expr(st.RHS)
		elem := stype
		elem.IsArray = false
		elem.ArrayLength = 0
		g.checkAssignable(st, elem, rt, st.RHS)
		cop := "="
		if compound {
			cop = st.Op.CompoundBinary().String() + "="
		}
		g.wr("%s[%s] %s %s;", subject, idxCode, cop, code)
		return
	}

	// Bit write into a scalar or register field.
	if compound {
		g.report(diag.InvalidLValue, st, "compound assignment to a bit selection is not supported")
		return
	}
	g.bitWrite(st, lhs, subject, stype)
}

// indexSubject resolves the indexed expression to its C spelling and
// type, applying register access checks for field subjects.
func (g *Generator) indexSubject(ix *lang.IndexExpr) (string, symbols.TypeInfo) {
	if m, ok := ix.X.(*lang.MemberExpr); ok {
		if base, bok := m.X.(*lang.Ident); bok {
			if reg, found := g.table.Register(base.Name); found {
				f, fok := reg.FieldByName(m.Name)
				if !fok {
					g.report(diag.UnknownMember, m, "register %s has no field %s", base.Name, m.Name)
					return "", symbols.TypeInfo{}
				}
				if !f.Access.Readable() || !f.Access.Writable() {
					g.report(diag.WriteOnlyRead, ix,
						"bit access on %s.%s requires read-modify-write; field is %s",
						base.Name, m.Name, f.Access)
				}
				return base.Name + "_" + m.Name, f.Type
			}
		}
	}
	code, t := g.expr(ix.X)
	return code, t
}

func (g *Generator) bitWrite(st *lang.AssignStmt, lhs *lang.IndexExpr, subject string, stype symbols.TypeInfo) {
	width := 1
	startCode, _ := g.expr(lhs.Args[0])
	if len(lhs.Args) == 2 {
		w, ok := g.constValue(lhs.Args[1])
		if !ok {
			g.report(diag.BitIndexOutOfRange, lhs.Args[1], "bit range width must be a compile-time constant")
			return
		}
		width = int(w)
	}
	if start, ok := g.constValue(lhs.Args[0]); ok {
		if start < 0 || width < 1 || int(start)+width > stype.BitWidth {
			g.report(diag.BitIndexOutOfRange, lhs,
				"bits [%d, %d) exceed the %d-bit width of the target", start, int(start)+width, stype.BitWidth)
		}
	}
	mask := maskLiteral(width, stype.BitWidth)
	code, _ := g.expr(st.RHS)
	g.wr("%s = (%s & ~(%s << %s)) | (((%s)(%s) & %s) << %s);",
		subject, subject, mask, startCode, stype.BaseType, code, mask, startCode)
}

func (g *Generator) sliceWrite(st *lang.AssignStmt, lhs *lang.IndexExpr, subject string, stype symbols.TypeInfo) {
	off, ok1 := g.constValue(lhs.Args[0])
	length, ok2 := g.constValue(lhs.Args[1])
	if !ok1 || !ok2 {
		g.report(diag.SliceBoundsError, lhs, "slice offset and length must be compile-time constants")
		return
	}
	if off < 0 || length < 0 || int(off+length) > stype.ArrayLength {
		g.report(diag.SliceBoundsError, lhs,
			"slice [%d, %d] exceeds array capacity %d", off, length, stype.ArrayLength)
		return
	}
	code, rt := g.expr(st.RHS)
	if rt.IsArray && rt.ArrayLength > 0 && int(length) > rt.ArrayLength {
		g.report(diag.SliceBoundsError, st.RHS,
			"source array holds %d elements, slice needs %d", rt.ArrayLength, length)
	}
	if name, ok := rootIdent(st.RHS); ok {
		if l, found := g.lookupLocal(name); found && l.typ.IsArray && !l.written {
			g.report(diag.ReadBeforeInit, st.RHS,
				"%s is copied before any of its elements are written", name)
		}
	}
	g.needString = true
	// memcpy counts bytes, the slice counts elements.
	if stype.BitWidth > 0 {
		g.wr("memcpy(&%s[%d], %s, %d);", subject, off, code, int(length)*stype.BitWidth/8)
		return
	}
	g.wr("memcpy(&%s[%d], %s, %d * sizeof(%s[0]));", subject, off, code, length, subject)
}

// ---- control flow ----

func (g *Generator) ifStmt(st *lang.IfStmt) {
	condCode, condType := g.expr(st.Cond)
	if !condType.Bool && condType.BaseType != "" {
		g.report(diag.TypeMismatch, st.Cond, "if condition must be boolean")
	}

	entry := g.env.clone()
	thenEnv := entry.clone()
	elseEnv := entry.clone()

	if handle, nonNull, ok := nullComparison(st.Cond); ok {
		if name, isIdent := identName(handle); isIdent {
			g.checkNullComparand(st.Cond, name)
			if nonNull {
				setNull(thenEnv, name, nullChecked)
			} else {
				setNull(elseEnv, name, nullChecked)
			}
		}
	}

	g.wr("if (%s) {", condCode)
	g.indent++
	g.pushFrame()
	g.env = thenEnv
	for _, s := range st.Then.Stmts {
		g.stmt(s)
	}
	thenOut := g.env
	g.popFrame()
	g.indent--

	if st.Else != nil {
		g.wr("} else {")
		g.indent++
		g.pushFrame()
		g.env = elseEnv
		if blk, ok := st.Else.(*lang.BlockStmt); ok {
			for _, s := range blk.Stmts {
				g.stmt(s)
			}
		} else {
			g.stmt(st.Else)
		}
		elseOut := g.env
		g.popFrame()
		g.indent--
		g.wr("}")
		switch {
		case terminates(st.Then) && terminates(st.Else):
			g.env = entry // unreachable after; keep entry facts
		case terminates(st.Then):
			g.env = elseOut
		case terminates(st.Else):
			g.env = thenOut
		default:
			g.env = thenOut.meet(elseOut)
		}
		return
	}
	g.wr("}")
	if terminates(st.Then) {
		// The early-return idiom: if (h == null) { return; } proves h
		// non-null afterwards.
		g.env = elseEnv
		return
	}
	g.env = thenOut.meet(elseEnv)
}

func identName(e lang.Expr) (string, bool) {
	id, ok := e.(*lang.Ident)
	if !ok {
		return "", false
	}
	return id.Name, true
}

func setNull(env flowEnv, name string, st nullState) {
	f := env[name]
	f.null = st
	env[name] = f
}

// checkNullComparand rejects null comparisons against variables that
// are not nullable handles.
func (g *Generator) checkNullComparand(n lang.Node, name string) {
	if l, ok := g.lookupLocal(name); ok && !l.nullable {
		g.report(diag.NullCompareMisuse, n, "%s is not a nullable handle; comparing it against null is meaningless", name)
	}
}

func (g *Generator) whileStmt(st *lang.WhileStmt) {
	condCode, _ := g.expr(st.Cond)
	entry := g.env.clone()
	bodyEnv := entry.clone()
	if handle, nonNull, ok := nullComparison(st.Cond); ok && nonNull {
		if name, isIdent := identName(handle); isIdent {
			g.checkNullComparand(st.Cond, name)
			setNull(bodyEnv, name, nullChecked)
		}
	}
	g.wr("while (%s) {", condCode)
	g.indent++
	g.pushFrame()
	g.breakEnvs = append(g.breakEnvs, nil)
	g.env = bodyEnv
	for _, s := range st.Body.Stmts {
		g.stmt(s)
	}
	bodyOut := g.env
	g.breakEnvs = g.breakEnvs[:len(g.breakEnvs)-1]
	g.popFrame()
	g.indent--
	g.wr("}")
	// The body may not run at all.
	g.env = entry.meet(bodyOut)
}

func (g *Generator) forStmt(st *lang.ForStmt) {
	// The init clause scopes to the loop, so the whole statement gets
	// its own frame and the loop header is assembled inline.
	g.pushFrame()
	initCode := ""
	if st.Init != nil {
		initCode = g.inlineSimple(st.Init)
	}
	condCode := ""
	if st.Cond != nil {
		condCode, _ = g.expr(st.Cond)
	}
	postCode := ""
	if st.Post != nil {
		postCode = g.inlineSimple(st.Post)
	}
	entry := g.env.clone()
	g.wr("for (%s; %s; %s) {", initCode, condCode, postCode)
	g.indent++
	g.pushFrame()
	g.breakEnvs = append(g.breakEnvs, nil)
	for _, s := range st.Body.Stmts {
		g.stmt(s)
	}
	bodyOut := g.env
	g.breakEnvs = g.breakEnvs[:len(g.breakEnvs)-1]
	g.popFrame()
	g.indent--
	g.wr("}")
	g.popFrame()
	g.env = entry.meet(bodyOut)
}

// inlineSimple renders a declaration or assignment without the
// trailing newline or semicolon, for for-loop headers.
func (g *Generator) inlineSimple(s lang.Stmt) string {
	mark := g.body.Len()
	savedIndent := g.indent
	g.indent = 0
	g.stmt(s)
	text := g.body.String()[mark:]
	// rewind the builder: rebuild without the emitted fragment
	full := g.body.String()[:mark]
	g.body.Reset()
	g.body.WriteString(full)
	g.indent = savedIndent
	text = strings.TrimSpace(text)
	return strings.TrimSuffix(text, ";")
}

func (g *Generator) switchStmt(st *lang.SwitchStmt) {
	tagCode, tagType := g.expr(st.Tag)
	g.wr("switch (%s) {", tagCode)

	entry := g.env.clone()
	var outs []flowEnv

	// Break statements anywhere in the case bodies snapshot their env
	// here; those paths resume after the switch.
	var breaks []flowEnv
	g.breakEnvs = append(g.breakEnvs, &breaks)
	defer func() { g.breakEnvs = g.breakEnvs[:len(g.breakEnvs)-1] }()

	covered := map[string]bool{}
	for _, c := range st.Cases {
		var labels []string
		for _, v := range c.Values {
			code, vt := g.expr(v)
			if tagType.EnumName != "" && vt.EnumName != tagType.EnumName {
				g.report(diag.TypeMismatch, v, "case value is not a variant of %s", tagType.EnumName)
			}
			if tagType.EnumName != "" {
				covered[code] = true
			}
			labels = append(labels, code)
		}
		for _, l := range labels {
			g.wr("case %s:", l)
		}
		g.indent++
		g.pushFrame()
		g.env = entry.clone()
		g.wr("{")
		g.indent++
		for _, s := range c.Body.Stmts {
			g.stmt(s)
		}
		g.indent--
		g.wr("}")
		if !terminates(c.Body) {
			g.wr("break;")
			outs = append(outs, g.env)
		}
		g.popFrame()
		g.indent--
	}

	if tagType.EnumName != "" {
		g.checkExhaustive(st, tagType.EnumName, covered)
	}

	if st.Default != nil {
		g.wr("default:")
		g.indent++
		g.pushFrame()
		g.env = entry.clone()
		g.wr("{")
		g.indent++
		for _, s := range st.Default.Body.Stmts {
			g.stmt(s)
		}
		g.indent--
		g.wr("}")
		if !terminates(st.Default.Body) {
			g.wr("break;")
			outs = append(outs, g.env)
		}
		g.popFrame()
		g.indent--
	} else {
		// Without a default the switch may match nothing.
		outs = append(outs, entry)
	}
	g.wr("}")

	outs = append(outs, breaks...)
	env := entry
	if len(outs) > 0 {
		env = outs[0]
		for _, o := range outs[1:] {
			env = env.meet(o)
		}
	}
	g.env = env
}

// checkExhaustive enforces one-case-per-variant, or an annotated
// default whose count matches the uncovered variants exactly.
func (g *Generator) checkExhaustive(st *lang.SwitchStmt, enumName string, covered map[string]bool) {
	sym, ok := g.table.Lookup(enumName)
	if !ok || sym.Kind != symbols.KindEnum {
		return
	}
	var uncovered []string
	for _, v := range sym.Variants {
		if !covered[v.Name] {
			uncovered = append(uncovered, v.Name)
		}
	}
	if st.Default == nil {
		if len(uncovered) > 0 {
			g.report(diag.SwitchNotExhaustive, st,
				"switch over %s does not cover: %s", enumName, strings.Join(uncovered, ", "))
		}
		return
	}
	if st.Default.Count < 0 {
		g.errs.Add(diag.New(diag.SwitchCountMismatch, g.pos(st.Default),
			"default over enum %s must annotate its covered-variant count", enumName).
			WithFix("write default(%d):", len(uncovered)))
		return
	}
	if st.Default.Count != len(uncovered) {
		g.errs.Add(diag.New(diag.SwitchCountMismatch, g.pos(st.Default),
			"default(%d) does not match the %d uncovered variants of %s",
			st.Default.Count, len(uncovered), enumName).
			WithFix("write default(%d):", len(uncovered)))
	}
}

func (g *Generator) returnStmt(st *lang.ReturnStmt) {
	if st.Value == nil {
		if g.fnRet != nil {
			g.report(diag.TypeMismatch, st, "%s must return a value", g.fnName)
		}
		g.wr("return;")
		return
	}
	if g.fnRet == nil {
		g.report(diag.TypeMismatch, st, "%s returns void", g.fnName)
	}
	code, rt := g.expr(st.Value)
	if g.fnRet != nil {
		g.checkAssignable(st, *g.fnRet, rt, st.Value)
	}
	g.wr("return %s;", code)
}

// requireInitialized reports a read of a variable that is not
// definitely initialized on every path to this point.
func (g *Generator) requireInitialized(n lang.Node, name string) {
	flow, tracked := g.env[name]
	if !tracked {
		return
	}
	switch flow.init {
	case initNo:
		g.report(diag.ReadBeforeInit, n, "%s is read before it is initialized", name)
	case initMaybe:
		g.report(diag.ReadBeforeInit, n, "%s may be uninitialized on some paths", name)
	}
}

// checkAssignable applies literal range, boundary, and shape checks
// when storing rhs into a slot of type lt.
func (g *Generator) checkAssignable(n lang.Node, lt symbols.TypeInfo, rt symbols.TypeInfo, rhs lang.Expr) {
	if _, isNull := rhs.(*lang.NullLit); isNull {
		if !lt.IsPointer {
			g.report(diag.NullCompareMisuse, n, "null can only be assigned to a nullable handle")
		}
		return
	}
	if v, neg, ok := literalValue(rhs); ok {
		if !fitsIn(v, neg, lt) {
			sign := ""
			if neg {
				sign = "-"
			}
			g.report(diag.LiteralOverflow, n, "literal %s%d does not fit in %s", sign, v, describeType(lt))
			return
		}
		if name, isBoundary := boundaryValue(v, neg, lt); isBoundary {
			g.errs.Add(diag.New(diag.BoundaryLiteral, g.pos(n),
				"literal sits exactly on a type boundary; spell it %s", name).
				WithFix("replace the literal with %s", name))
		}
		return
	}
	if lt.Bool != rt.Bool && rt.BaseType != "" {
		g.report(diag.TypeMismatch, n, "cannot store %s into %s", describeType(rt), describeType(lt))
	}
}

// literalValue extracts an integer literal, optionally under a single
// unary minus.
func literalValue(e lang.Expr) (v uint64, neg bool, ok bool) {
	switch x := e.(type) {
	case *lang.IntLit:
		return x.Value, false, true
	case *lang.UnaryExpr:
		if x.Op == lang.MINUS {
			if lit, isLit := x.X.(*lang.IntLit); isLit {
				return lit.Value, true, true
			}
		}
	}
	return 0, false, false
}

func describeType(t symbols.TypeInfo) string {
	if t.BaseType == "" {
		return "an unknown type"
	}
	if t.IsArray {
		return fmt.Sprintf("%s[%d]", t.BaseType, t.ArrayLength)
	}
	return t.BaseType
}
