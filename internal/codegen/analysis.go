package codegen

import (
	"github.com/jlaustill/cnextc/internal/lang"
	"github.com/jlaustill/cnextc/internal/symbols"
)

// initState is the definite-initialization lattice for one local.
type initState int

const (
	initNo initState = iota
	initMaybe
	initYes
)

func meetInit(a, b initState) initState {
	if a == b {
		return a
	}
	return initMaybe
}

// nullState tracks whether a nullable handle has been proven non-null
// on the current path.
type nullState int

const (
	nullUnchecked nullState = iota
	nullChecked
)

func meetNull(a, b nullState) nullState {
	if a == nullChecked && b == nullChecked {
		return nullChecked
	}
	return nullUnchecked
}

// varFlow is the per-variable fact set carried through a function body.
type varFlow struct {
	init initState
	null nullState
}

// flowEnv maps local names to their facts. Joins take the conservative
// meet per variable; a name missing on one side keeps the other side's
// facts (it was declared in a branch and is out of scope after it).
type flowEnv map[string]varFlow

func (e flowEnv) clone() flowEnv {
	out := make(flowEnv, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

func (e flowEnv) meet(o flowEnv) flowEnv {
	out := make(flowEnv, len(e))
	for k, v := range e {
		if ov, ok := o[k]; ok {
			out[k] = varFlow{init: meetInit(v.init, ov.init), null: meetNull(v.null, ov.null)}
		} else {
			out[k] = v
		}
	}
	for k, v := range o {
		if _, ok := e[k]; !ok {
			out[k] = v
		}
	}
	return out
}

// terminates reports whether a statement never falls through to the
// next one. Used to drop one arm of a join and to recognize the
// early-return null-check idiom.
func terminates(s lang.Stmt) bool {
	switch st := s.(type) {
	case *lang.ReturnStmt, *lang.BreakStmt, *lang.ContinueStmt:
		return true
	case *lang.BlockStmt:
		if len(st.Stmts) == 0 {
			return false
		}
		return terminates(st.Stmts[len(st.Stmts)-1])
	case *lang.IfStmt:
		if st.Else == nil {
			return false
		}
		return terminates(st.Then) && terminates(st.Else)
	}
	return false
}

// collectAssigned records, per function, every local or parameter name
// that appears as the root of an assignment target anywhere in the
// body, or that is passed by reference to a callee whose matching
// parameter is writable. Names absent from the set are
// const-inferable. Callee signatures are resolved against the table as
// it stands when the caller is generated, so a same-file callee
// defined after its caller is not consulted.
func (g *Generator) collectAssigned(body *lang.BlockStmt, into map[string]bool) {
	var walkExpr func(lang.Expr)
	walkExpr = func(e lang.Expr) {
		switch x := e.(type) {
		case *lang.CallExpr:
			sym, _ := g.lookupCall(callName(x))
			for i, a := range x.Args {
				walkExpr(a)
				if sym == nil || sym.Kind != symbols.KindFunction || sym.Signature == nil {
					continue
				}
				if i >= len(sym.Signature.Params) {
					continue
				}
				pt := sym.Signature.Params[i].Type
				if !pt.IsArray && !pt.IsPointer && !pt.IsString {
					continue
				}
				if pt.IsConst || pt.IsAutoConst {
					continue
				}
				if name, ok := rootIdent(a); ok {
					into[name] = true
				}
			}
		case *lang.BinaryExpr:
			walkExpr(x.X)
			walkExpr(x.Y)
		case *lang.UnaryExpr:
			walkExpr(x.X)
		case *lang.CastExpr:
			walkExpr(x.X)
		case *lang.MemberExpr:
			walkExpr(x.X)
		case *lang.IndexExpr:
			walkExpr(x.X)
			for _, a := range x.Args {
				walkExpr(a)
			}
		}
	}
	var walkStmt func(lang.Stmt)
	walkStmt = func(s lang.Stmt) {
		switch st := s.(type) {
		case *lang.BlockStmt:
			for _, inner := range st.Stmts {
				walkStmt(inner)
			}
		case *lang.DeclStmt:
			if st.Decl.Init != nil {
				walkExpr(st.Decl.Init)
			}
		case *lang.AssignStmt:
			if name, ok := rootIdent(st.LHS); ok {
				into[name] = true
			}
			walkExpr(st.LHS)
			walkExpr(st.RHS)
		case *lang.ExprStmt:
			walkExpr(st.X)
		case *lang.ReturnStmt:
			if st.Value != nil {
				walkExpr(st.Value)
			}
		case *lang.IfStmt:
			walkExpr(st.Cond)
			walkStmt(st.Then)
			if st.Else != nil {
				walkStmt(st.Else)
			}
		case *lang.WhileStmt:
			walkExpr(st.Cond)
			walkStmt(st.Body)
		case *lang.ForStmt:
			if st.Init != nil {
				walkStmt(st.Init)
			}
			if st.Cond != nil {
				walkExpr(st.Cond)
			}
			if st.Post != nil {
				walkStmt(st.Post)
			}
			walkStmt(st.Body)
		case *lang.SwitchStmt:
			walkExpr(st.Tag)
			for _, c := range st.Cases {
				for _, v := range c.Values {
					walkExpr(v)
				}
				walkStmt(c.Body)
			}
			if st.Default != nil {
				walkStmt(st.Default.Body)
			}
		}
	}
	walkStmt(body)
}

// rootIdent finds the identifier at the base of an lvalue expression
// (buf[i] -> buf, p.x -> p).
func rootIdent(e lang.Expr) (string, bool) {
	for {
		switch x := e.(type) {
		case *lang.Ident:
			return x.Name, true
		case *lang.IndexExpr:
			e = x.X
		case *lang.MemberExpr:
			e = x.X
		default:
			return "", false
		}
	}
}

// nullComparison recognizes `x == null` / `x != null` (either operand
// order) and returns the handle expression and whether the operator
// was !=.
func nullComparison(e lang.Expr) (handle lang.Expr, nonNull bool, ok bool) {
	b, isBin := e.(*lang.BinaryExpr)
	if !isBin || (b.Op != lang.EQ && b.Op != lang.NEQ) {
		return nil, false, false
	}
	_, xNull := b.X.(*lang.NullLit)
	_, yNull := b.Y.(*lang.NullLit)
	switch {
	case yNull && !xNull:
		return b.X, b.Op == lang.NEQ, true
	case xNull && !yNull:
		return b.Y, b.Op == lang.NEQ, true
	}
	return nil, false, false
}
