package symbols

import (
	"sort"

	"github.com/jlaustill/cnextc/internal/diag"
)

// Table is the unified name → Symbol mapping. It is owned by one
// compilation run, write-once per symbol, and read-only once collection
// finishes. Overloads (C++ only) are stored as siblings under one name.
type Table struct {
	syms map[string][]*Symbol
	regs map[string]*RegisterBinding
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{
		syms: make(map[string][]*Symbol),
		regs: make(map[string]*RegisterBinding),
	}
}

// Insert adds a symbol, enforcing the conflict policy:
//   - same name from two different origin languages is a hard error,
//   - except repeated extern declarations with identical signatures,
//   - and call-signature-disjoint overloads when the origin language
//     supports overloading (C++).
func (t *Table) Insert(sym *Symbol) *diag.Diagnostic {
	existing := t.syms[sym.Name]
	if len(existing) == 0 {
		t.syms[sym.Name] = []*Symbol{sym}
		return nil
	}

	for _, prev := range existing {
		// Repeated extern declarations of the same function signature are
		// a normal C header idiom, not a conflict.
		if prev.IsExtern && sym.IsExtern &&
			prev.Kind == KindFunction && sym.Kind == KindFunction &&
			prev.Signature != nil && sym.Signature != nil &&
			prev.Signature.Equal(*sym.Signature) {
			return nil // identical redeclaration: keep the first
		}
	}

	// Overloading: only C++ supports it, and only with disjoint signatures.
	if sym.OriginLang == LangCPP && sym.Kind == KindFunction && sym.Signature != nil {
		disjoint := true
		for _, prev := range existing {
			if prev.OriginLang != LangCPP || prev.Kind != KindFunction ||
				prev.Signature == nil || !sym.Signature.ParamsDisjoint(*prev.Signature) {
				disjoint = false
				break
			}
		}
		if disjoint {
			t.syms[sym.Name] = append(existing, sym)
			return nil
		}
	}

	prev := existing[0]
	return diag.New(diag.SymbolConflict,
		diag.Pos{File: sym.OriginFile},
		"symbol %q already defined as %s in %s (%s); redefinition from %s (%s) is not allowed",
		sym.Name, prev.Kind, prev.OriginFile, prev.OriginLang, sym.OriginFile, sym.OriginLang)
}

// Lookup returns the first symbol registered under name.
func (t *Table) Lookup(name string) (*Symbol, bool) {
	syms := t.syms[name]
	if len(syms) == 0 {
		return nil, false
	}
	return syms[0], true
}

// LookupAll returns every symbol under name (overload sets).
func (t *Table) LookupAll(name string) []*Symbol {
	return t.syms[name]
}

// InsertRegister records a register binding. Register names share the
// symbol namespace so a binding cannot shadow a foreign symbol.
func (t *Table) InsertRegister(reg *RegisterBinding, originFile string) *diag.Diagnostic {
	if prev, ok := t.syms[reg.Name]; ok && len(prev) > 0 {
		return diag.New(diag.SymbolConflict, diag.Pos{File: originFile},
			"register %q collides with %s from %s", reg.Name, prev[0].Kind, prev[0].OriginFile)
	}
	if _, ok := t.regs[reg.Name]; ok {
		return diag.New(diag.SymbolConflict, diag.Pos{File: originFile},
			"register %q is already bound", reg.Name)
	}
	t.regs[reg.Name] = reg
	return nil
}

// Register returns a register binding by name.
func (t *Table) Register(name string) (*RegisterBinding, bool) {
	r, ok := t.regs[name]
	return r, ok
}

// Names returns all symbol names in sorted order. Used by serialization and
// the graph exporter; never on the hot path.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.syms))
	for n := range t.syms {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// RegisterNames returns all register binding names in sorted order.
func (t *Table) RegisterNames() []string {
	names := make([]string, 0, len(t.regs))
	for n := range t.regs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Len reports the number of distinct symbol names.
func (t *Table) Len() int { return len(t.syms) }
