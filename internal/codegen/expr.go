package codegen

import (
	"fmt"

	"github.com/jlaustill/cnextc/internal/diag"
	"github.com/jlaustill/cnextc/internal/lang"
	"github.com/jlaustill/cnextc/internal/symbols"
)

// expr renders e as a C expression and infers its type. Every read
// path funnels through here, so definite-initialization and
// null-safety checks live alongside the emission.
func (g *Generator) expr(e lang.Expr) (string, symbols.TypeInfo) {
	switch x := e.(type) {
	case *lang.IntLit:
		return x.Text, symbols.TypeInfo{BaseType: "int32_t", Signed: true}
	case *lang.FloatLit:
		return x.Text, symbols.TypeInfo{BaseType: "double", BitWidth: 64, Float: true}
	case *lang.StringLit:
		// escapes pass through verbatim
		return "\"" + x.Value + "\"", symbols.TypeInfo{BaseType: "char", IsString: true, IsArray: true}
	case *lang.CharLit:
		return "'" + x.Text + "'", symbols.TypeInfo{BaseType: "char", BitWidth: 8, Signed: true}
	case *lang.BoolLit:
		if x.Value {
			return "true", symbols.TypeInfo{BaseType: "bool", BitWidth: 8, Bool: true}
		}
		return "false", symbols.TypeInfo{BaseType: "bool", BitWidth: 8, Bool: true}
	case *lang.NullLit:
		return "NULL", symbols.TypeInfo{IsPointer: true}
	case *lang.BoundaryLit:
		return g.boundaryLit(x)
	case *lang.Ident:
		return g.identExpr(x)
	case *lang.MemberExpr:
		return g.memberExpr(x)
	case *lang.IndexExpr:
		return g.indexExpr(x)
	case *lang.CallExpr:
		return g.callExpr(x)
	case *lang.CastExpr:
		return g.castExpr(x)
	case *lang.UnaryExpr:
		return g.unaryExpr(x)
	case *lang.BinaryExpr:
		return g.binaryExpr(x)
	}
	g.report(diag.ParseError, e, "unsupported expression")
	return "0", symbols.TypeInfo{}
}

func (g *Generator) boundaryLit(x *lang.BoundaryLit) (string, symbols.TypeInfo) {
	sc := scalars[x.Type]
	ti := symbols.TypeInfo{BaseType: sc.cName, BitWidth: sc.bits, Signed: sc.signed, Float: sc.float}
	if name, ok := boundaryName(x.Type, x.IsMax); ok {
		return name, ti
	}
	if !sc.signed && !x.IsMax {
		return "0u", ti
	}
	g.report(diag.TypeMismatch, x, "%s has no named boundary constants", x.Type)
	return "0", ti
}

func (g *Generator) identExpr(x *lang.Ident) (string, symbols.TypeInfo) {
	if l, ok := g.lookupLocal(x.Name); ok {
		g.requireInitialized(x, x.Name)
		if l.nullable && g.env[x.Name].null == nullUnchecked && !g.inNullGuard(x) {
			g.errs.Add(diag.New(diag.UncheckedHandleUse, g.pos(x),
				"%s has not been checked against null on this path", x.Name).
				WithFix("guard the use with if (%s != null)", x.Name))
		}
		return x.Name, l.typ
	}
	// Members of the current scope resolve by bare name.
	if g.scope != "" {
		q := symbols.Qualify(g.scope, x.Name)
		if sym, ok := g.table.Lookup(q); ok {
			return q, symbolValueType(sym)
		}
	}
	if sym, ok := g.table.Lookup(x.Name); ok {
		return x.Name, symbolValueType(sym)
	}
	g.reportUnknown(x, x.Name)
	return x.Name, symbols.TypeInfo{}
}

// symbolValueType is the type an expression mentioning sym evaluates to.
func symbolValueType(sym *symbols.Symbol) symbols.TypeInfo {
	switch sym.Kind {
	case symbols.KindFunction:
		if sym.Signature != nil {
			return sym.Signature.Returns
		}
		return symbols.TypeInfo{}
	default:
		return sym.Type
	}
}

func (g *Generator) reportUnknown(n lang.Node, name string) {
	q := symbols.Qualify(g.scope, name)
	if g.fileNames[q] || g.fileNames[name] {
		g.report(diag.UseBeforeDefine, n, "%s is used before its definition; define-before-use is required", name)
		return
	}
	g.report(diag.UnknownSymbol, n, "unknown identifier %q", name)
}

func (g *Generator) memberExpr(x *lang.MemberExpr) (string, symbols.TypeInfo) {
	if base, ok := x.X.(*lang.Ident); ok {
		// Register field read.
		if reg, found := g.table.Register(base.Name); found {
			f, fok := reg.FieldByName(x.Name)
			if !fok {
				g.report(diag.UnknownMember, x, "register %s has no field %s", base.Name, x.Name)
				return "0", symbols.TypeInfo{}
			}
			if !f.Access.Readable() {
				g.report(diag.WriteOnlyRead, x, "%s.%s is %s and cannot be read", base.Name, x.Name, f.Access)
			}
			return base.Name + "_" + x.Name, f.Type
		}
		// Scope or enum qualification when the base is not a local.
		if _, isLocal := g.lookupLocal(base.Name); !isLocal {
			q := symbols.Qualify(base.Name, x.Name)
			if sym, found := g.table.Lookup(q); found {
				return q, symbolValueType(sym)
			}
			// Enum variant access on an in-scope enum: Color.Red.
			if g.scope != "" {
				sq := symbols.Qualify(symbols.Qualify(g.scope, base.Name), x.Name)
				if sym, found := g.table.Lookup(sq); found {
					return sq, symbolValueType(sym)
				}
			}
			if g.fileNames[q] {
				g.report(diag.UseBeforeDefine, x, "%s.%s is used before its definition", base.Name, x.Name)
				return q, symbols.TypeInfo{}
			}
		}
	}

	code, t := g.expr(x.X)

	// .length of sized strings and arrays.
	if x.Name == "length" {
		if t.IsString {
			g.needString = true
			return fmt.Sprintf("(uint32_t)strlen(%s)", code),
				symbols.TypeInfo{BaseType: "uint32_t", BitWidth: 32}
		}
		if t.IsArray {
			return fmt.Sprintf("%du", t.ArrayLength),
				symbols.TypeInfo{BaseType: "uint32_t", BitWidth: 32}
		}
	}

	if t.StructName != "" || len(t.StructFields) > 0 {
		f, ok := t.FieldByName(x.Name)
		if !ok {
			g.report(diag.UnknownMember, x, "%s has no field %s", describeType(t), x.Name)
			return code + "." + x.Name, symbols.TypeInfo{}
		}
		return code + "." + x.Name, f.Type
	}

	g.report(diag.UnknownMember, x, "member %s is not defined on %s", x.Name, describeType(t))
	return code + "." + x.Name, symbols.TypeInfo{}
}

func (g *Generator) indexExpr(x *lang.IndexExpr) (string, symbols.TypeInfo) {
	subject, stype := g.readIndexSubject(x)
	if subject == "" {
		return "0", symbols.TypeInfo{}
	}

	if stype.IsArray {
		if len(x.Args) == 2 {
			g.report(diag.SliceBoundsError, x, "array slices may only appear as assignment targets")
			return subject, symbols.TypeInfo{}
		}
		idx, _ := g.expr(x.Args[0])
		if v, ok := g.constValue(x.Args[0]); ok {
			if v < 0 || (stype.ArrayLength > 0 && int(v) >= stype.ArrayLength) {
				g.report(diag.SliceBoundsError, x,
					"index %d out of range for array of length %d", v, stype.ArrayLength)
			}
		}
		elem := stype
		elem.IsArray = false
		elem.ArrayLength = 0
		elem.IsString = false
		return fmt.Sprintf("%s[%s]", subject, idx), elem
	}

	// Bit read from a scalar or register field.
	width := 1
	startCode, _ := g.expr(x.Args[0])
	if len(x.Args) == 2 {
		w, ok := g.constValue(x.Args[1])
		if !ok {
			g.report(diag.BitIndexOutOfRange, x.Args[1], "bit range width must be a compile-time constant")
			return subject, stype
		}
		width = int(w)
	}
	if start, ok := g.constValue(x.Args[0]); ok {
		if start < 0 || width < 1 || int(start)+width > stype.BitWidth {
			g.report(diag.BitIndexOutOfRange, x,
				"bits [%d, %d) exceed the %d-bit width of the target", start, int(start)+width, stype.BitWidth)
		}
	}
	code := fmt.Sprintf("((%s >> %s) & %s)", subject, startCode, maskLiteral(width, stype.BitWidth))
	if width == 1 {
		return code, symbols.TypeInfo{BaseType: "bool", BitWidth: 8, Bool: true}
	}
	return code, symbols.TypeInfo{BaseType: stype.BaseType, BitWidth: stype.BitWidth}
}

// readIndexSubject resolves the indexed expression for a read;
// register fields only need to be readable.
func (g *Generator) readIndexSubject(ix *lang.IndexExpr) (string, symbols.TypeInfo) {
	if m, ok := ix.X.(*lang.MemberExpr); ok {
		if base, bok := m.X.(*lang.Ident); bok {
			if reg, found := g.table.Register(base.Name); found {
				f, fok := reg.FieldByName(m.Name)
				if !fok {
					g.report(diag.UnknownMember, m, "register %s has no field %s", base.Name, m.Name)
					return "", symbols.TypeInfo{}
				}
				if !f.Access.Readable() {
					g.report(diag.WriteOnlyRead, ix, "%s.%s is %s and cannot be read", base.Name, m.Name, f.Access)
				}
				return base.Name + "_" + m.Name, f.Type
			}
		}
	}
	return g.expr(ix.X)
}

// lookupCall resolves a call target, preferring a function in the
// current scope over a global of the same name. The returned target is
// the emitted C name.
func (g *Generator) lookupCall(name string) (*symbols.Symbol, string) {
	if g.scope != "" {
		if s, ok := g.table.Lookup(symbols.Qualify(g.scope, name)); ok && s.Kind == symbols.KindFunction {
			return s, symbols.Qualify(g.scope, name)
		}
	}
	if s, ok := g.table.Lookup(name); ok {
		return s, name
	}
	return nil, name
}

func (g *Generator) callExpr(x *lang.CallExpr) (string, symbols.TypeInfo) {
	name := callName(x)
	if name == "" {
		g.report(diag.ParseError, x, "call target must be a named function")
		return "0", symbols.TypeInfo{}
	}

	sym, target := g.lookupCall(name)
	if sym == nil {
		g.reportUnknown(x, name)
	} else if sym.Kind != symbols.KindFunction {
		g.report(diag.TypeMismatch, x, "%s is not a function", name)
		sym = nil
	}

	var args []string
	for i, a := range x.Args {
		code, at := g.expr(a)
		if sym != nil && sym.Signature != nil && i < len(sym.Signature.Params) {
			g.checkAssignable(a, sym.Signature.Params[i].Type, at, a)
		}
		args = append(args, code)
		g.markArrayArgWritten(a, sym, i)
	}
	if sym != nil && sym.Signature != nil && len(x.Args) != len(sym.Signature.Params) {
		// C++ overloads carry multiple signatures; arity mismatches on
		// those are left to the C++ side of the build.
		if sym.OriginLang != symbols.LangCPP {
			g.report(diag.TypeMismatch, x, "%s takes %d arguments, got %d",
				target, len(sym.Signature.Params), len(x.Args))
		}
	}

	if sym != nil && sym.NullableReturn && !g.nullableBindOK(x) {
		g.errs.Add(diag.New(diag.NullNamingRequired, g.pos(x),
			"%s may return null; bind its result to a name ending in Handle before use", target).
			WithFix("assign the result to a Handle variable and null-check it"))
	}

	ret := symbols.TypeInfo{}
	if sym != nil {
		ret = symbolValueType(sym)
		if sym.NullableReturn {
			ret.IsPointer = true
		}
	}
	code := target + "("
	for i, a := range args {
		if i > 0 {
			code += ", "
		}
		code += a
	}
	code += ")"
	return code, ret
}

// markArrayArgWritten records that a callee may have filled an array
// argument. Arrays pass by reference and fill-by-callee is the usual
// way they get their first contents, so only a const parameter keeps
// the argument unwritten.
func (g *Generator) markArrayArgWritten(arg lang.Expr, sym *symbols.Symbol, i int) {
	name, ok := rootIdent(arg)
	if !ok {
		return
	}
	l, found := g.lookupLocal(name)
	if !found || !l.typ.IsArray {
		return
	}
	if sym != nil && sym.Signature != nil && i < len(sym.Signature.Params) {
		if sym.Signature.Params[i].Type.IsConst {
			return
		}
	}
	l.written = true
}

func (g *Generator) castExpr(x *lang.CastExpr) (string, symbols.TypeInfo) {
	code, _ := g.expr(x.X)
	ti, ok := g.typeInfoFor(x.Type)
	if !ok {
		g.report(diag.UnknownSymbol, x.Type, "unknown cast target %q", x.Type.Name)
		return code, symbols.TypeInfo{}
	}
	return fmt.Sprintf("(%s)(%s)", ti.BaseType, code), ti
}

func (g *Generator) unaryExpr(x *lang.UnaryExpr) (string, symbols.TypeInfo) {
	// A negative hex literal whose positive form exceeds the signed
	// 32-bit range is rewritten to decimal so the C compiler does not
	// reinterpret the operand as unsigned before negating.
	if lit, ok := x.X.(*lang.IntLit); ok && x.Op == lang.MINUS && lit.IsHex && lit.Value > 0x7FFFFFFF {
		return fmt.Sprintf("-%d", lit.Value), symbols.TypeInfo{BaseType: "int64_t", BitWidth: 64, Signed: true}
	}
	code, t := g.expr(x.X)
	switch x.Op {
	case lang.MINUS:
		return "-" + code, t
	case lang.TILDE:
		return "~" + code, t
	case lang.NOT:
		if !t.Bool && t.BaseType != "" {
			g.report(diag.TypeMismatch, x, "operand of ! must be boolean")
		}
		return "!" + code, symbols.TypeInfo{BaseType: "bool", BitWidth: 8, Bool: true}
	}
	return code, t
}

func (g *Generator) binaryExpr(x *lang.BinaryExpr) (string, symbols.TypeInfo) {
	if handle, _, ok := nullComparison(x); ok {
		if name, isIdent := identName(handle); isIdent {
			g.checkNullComparand(x, name)
			g.nullGuards = append(g.nullGuards, name)
			code, _ := g.expr(handle)
			g.nullGuards = g.nullGuards[:len(g.nullGuards)-1]
			op := "=="
			if x.Op == lang.NEQ {
				op = "!="
			}
			return fmt.Sprintf("(%s %s NULL)", code, op),
				symbols.TypeInfo{BaseType: "bool", BitWidth: 8, Bool: true}
		}
	}

	lcode, lt := g.expr(x.X)
	rcode, rt := g.expr(x.Y)
	op := x.Op.String()

	boolResult := symbols.TypeInfo{BaseType: "bool", BitWidth: 8, Bool: true}
	switch x.Op {
	case lang.EQ, lang.NEQ, lang.LESS, lang.GREATER, lang.LEQ, lang.GEQ:
		return fmt.Sprintf("(%s %s %s)", lcode, op, rcode), boolResult
	case lang.LAND, lang.LOR:
		if (!lt.Bool && lt.BaseType != "") || (!rt.Bool && rt.BaseType != "") {
			g.report(diag.TypeMismatch, x, "operands of %s must be boolean", op)
		}
		return fmt.Sprintf("(%s %s %s)", lcode, op, rcode), boolResult
	}

	// Arithmetic and bitwise results widen to the broader operand.
	result := lt
	if rt.BitWidth > lt.BitWidth {
		result = rt
	}
	if lt.Float || rt.Float {
		if lt.Float {
			result = lt
		} else {
			result = rt
		}
	}
	return fmt.Sprintf("(%s %s %s)", lcode, op, rcode), result
}

// inNullGuard reports whether the identifier read happens inside the
// operand of a null comparison, where an unchecked handle is expected.
func (g *Generator) inNullGuard(x *lang.Ident) bool {
	for _, n := range g.nullGuards {
		if n == x.Name {
			return true
		}
	}
	return false
}

// nullableBindOK reports whether a nullable call result is being bound
// directly to a variable (the only permitted position).
func (g *Generator) nullableBindOK(x *lang.CallExpr) bool {
	return g.nullableRHS == x
}

// ---- compile-time constant evaluation ----

// constValue folds e when it is a compile-time integer constant:
// literals, boundary constants, enum variants, foreign macros, and
// arithmetic over those.
func (g *Generator) constValue(e lang.Expr) (int64, bool) {
	switch x := e.(type) {
	case *lang.IntLit:
		return int64(x.Value), true
	case *lang.BoolLit:
		if x.Value {
			return 1, true
		}
		return 0, true
	case *lang.BoundaryLit:
		return boundaryConst(x.Type, x.IsMax)
	case *lang.Ident:
		if _, isLocal := g.lookupLocal(x.Name); isLocal {
			return 0, false
		}
		if g.scope != "" {
			if sym, ok := g.table.Lookup(symbols.Qualify(g.scope, x.Name)); ok && sym.HasValue {
				return sym.Value, true
			}
		}
		if sym, ok := g.table.Lookup(x.Name); ok && sym.HasValue {
			return sym.Value, true
		}
	case *lang.MemberExpr:
		if base, ok := x.X.(*lang.Ident); ok {
			if sym, found := g.table.Lookup(symbols.Qualify(base.Name, x.Name)); found && sym.HasValue {
				return sym.Value, true
			}
			if g.scope != "" {
				sq := symbols.Qualify(symbols.Qualify(g.scope, base.Name), x.Name)
				if sym, found := g.table.Lookup(sq); found && sym.HasValue {
					return sym.Value, true
				}
			}
		}
	case *lang.CastExpr:
		return g.constValue(x.X)
	case *lang.UnaryExpr:
		v, ok := g.constValue(x.X)
		if !ok {
			return 0, false
		}
		switch x.Op {
		case lang.MINUS:
			return -v, true
		case lang.TILDE:
			return ^v, true
		}
	case *lang.BinaryExpr:
		a, ok1 := g.constValue(x.X)
		b, ok2 := g.constValue(x.Y)
		if !ok1 || !ok2 {
			return 0, false
		}
		switch x.Op {
		case lang.PLUS:
			return a + b, true
		case lang.MINUS:
			return a - b, true
		case lang.STAR:
			return a * b, true
		case lang.SLASH:
			if b != 0 {
				return a / b, true
			}
		case lang.PERCENT:
			if b != 0 {
				return a % b, true
			}
		case lang.SHL:
			return a << uint(b), true
		case lang.SHR:
			return a >> uint(b), true
		case lang.AMP:
			return a & b, true
		case lang.PIPE:
			return a | b, true
		case lang.CARET:
			return a ^ b, true
		}
	}
	return 0, false
}

func boundaryConst(typeName string, isMax bool) (int64, bool) {
	sc, ok := scalars[typeName]
	if !ok || sc.float {
		return 0, false
	}
	w := uint(sc.bits)
	if sc.signed {
		if isMax {
			return int64(uint64(1)<<(w-1) - 1), true
		}
		return -int64(uint64(1) << (w - 1)), true
	}
	if !isMax {
		return 0, true
	}
	if w == 64 {
		return -1, false // does not fit in int64
	}
	return int64(uint64(1)<<w - 1), true
}
