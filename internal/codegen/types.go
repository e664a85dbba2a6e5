// Package codegen lowers parsed C-Next files to portable C99. One
// traversal per function carries the flow analyses: definite
// initialization, const and auto-const inference, null-safety for
// foreign handles, bit and literal range checks, and switch
// exhaustiveness. The header emitter reuses the same const decisions.
package codegen

import (
	"fmt"
	"strings"

	"github.com/jlaustill/cnextc/internal/lang"
	"github.com/jlaustill/cnextc/internal/symbols"
)

// scalar describes one fixed-width scalar type of the language.
type scalar struct {
	cName  string // emitted C spelling
	bits   int
	signed bool
	float  bool
}

var scalars = map[string]scalar{
	"u8":   {"uint8_t", 8, false, false},
	"u16":  {"uint16_t", 16, false, false},
	"u32":  {"uint32_t", 32, false, false},
	"u64":  {"uint64_t", 64, false, false},
	"i8":   {"int8_t", 8, true, false},
	"i16":  {"int16_t", 16, true, false},
	"i32":  {"int32_t", 32, true, false},
	"i64":  {"int64_t", 64, true, false},
	"f32":  {"float", 32, false, true},
	"f64":  {"double", 64, false, true},
	"bool": {"bool", 8, false, false},
}

// boundaryName returns the C limits macro for a scalar boundary
// constant (i32.max -> INT32_MAX).
func boundaryName(typeName string, isMax bool) (string, bool) {
	sc, ok := scalars[typeName]
	if !ok || sc.float || typeName == "bool" {
		return "", false
	}
	side := "MIN"
	if isMax {
		side = "MAX"
	}
	if sc.signed {
		return fmt.Sprintf("INT%d_%s", sc.bits, side), true
	}
	if !isMax {
		return "", false // unsigned min is just 0
	}
	return fmt.Sprintf("UINT%d_MAX", sc.bits), true
}

// boundaryValue reports whether v sits exactly on a boundary of the
// given width, returning the spelling of the named constant to suggest.
func boundaryValue(v uint64, neg bool, t symbols.TypeInfo) (string, bool) {
	if t.Float || t.Bool || t.BitWidth == 0 {
		return "", false
	}
	w := uint(t.BitWidth)
	if t.Signed {
		maxPos := uint64(1)<<(w-1) - 1
		maxNeg := uint64(1) << (w - 1)
		if !neg && v == maxPos {
			return fmt.Sprintf("i%d.max", t.BitWidth), true
		}
		if neg && v == maxNeg {
			return fmt.Sprintf("i%d.min", t.BitWidth), true
		}
		return "", false
	}
	var umax uint64
	if w == 64 {
		umax = ^uint64(0)
	} else {
		umax = uint64(1)<<w - 1
	}
	if !neg && v == umax {
		return fmt.Sprintf("u%d.max", t.BitWidth), true
	}
	return "", false
}

// fitsIn reports whether the literal magnitude v (negated when neg)
// fits in type t.
func fitsIn(v uint64, neg bool, t symbols.TypeInfo) bool {
	if t.Float {
		return true
	}
	if t.BitWidth == 0 {
		return true // unknown width, cannot judge
	}
	w := uint(t.BitWidth)
	if t.Signed {
		if neg {
			return v <= uint64(1)<<(w-1)
		}
		return v <= uint64(1)<<(w-1)-1
	}
	if neg {
		return v == 0
	}
	if w == 64 {
		return true
	}
	return v <= uint64(1)<<w-1
}

// typeInfoFor resolves a source TypeRef against the symbol table.
// Qualified names (Other.Color) have already been flattened by the
// caller when needed.
func (g *Generator) typeInfoFor(ref *lang.TypeRef) (symbols.TypeInfo, bool) {
	if sc, ok := scalars[ref.Name]; ok {
		ti := symbols.TypeInfo{
			BaseType: sc.cName,
			BitWidth: sc.bits,
			Signed:   sc.signed,
			Float:    sc.float,
			Bool:     ref.Name == "bool",
			IsArray:  ref.IsArray,
		}
		if ref.IsArray {
			ti.ArrayLength = g.constArrayLen(ref)
		}
		return ti, true
	}
	if ref.Name == "string" {
		return symbols.TypeInfo{
			BaseType:       "char",
			IsString:       true,
			IsArray:        true,
			ArrayLength:    ref.StringCap + 1,
			StringCapacity: ref.StringCap,
		}, true
	}
	if ref.Name == "void" {
		return symbols.TypeInfo{BaseType: "void"}, true
	}
	name := ref.Name
	if scope, member, ok := symbols.SplitQualified(name); ok {
		name = symbols.Qualify(scope, member)
	} else if g.scope != "" {
		// Unqualified named types resolve inside the current scope
		// first, then at file and foreign level.
		if sym, ok := g.table.Lookup(symbols.Qualify(g.scope, name)); ok {
			return g.namedTypeInfo(sym, ref), true
		}
	}
	sym, ok := g.table.Lookup(name)
	if !ok {
		return symbols.TypeInfo{}, false
	}
	return g.namedTypeInfo(sym, ref), true
}

func (g *Generator) namedTypeInfo(sym *symbols.Symbol, ref *lang.TypeRef) symbols.TypeInfo {
	ti := sym.Type
	switch sym.Kind {
	case symbols.KindEnum:
		ti = symbols.TypeInfo{BaseType: sym.Name, BitWidth: 32, Signed: true, EnumName: sym.Name}
	case symbols.KindStruct:
		ti.StructName = sym.Name
		ti.BaseType = sym.Name
	case symbols.KindTypedef:
		// keep the typedef's recorded layout
	}
	if ref.IsArray {
		ti.IsArray = true
		ti.ArrayLength = g.constArrayLen(ref)
	}
	return ti
}

func (g *Generator) constArrayLen(ref *lang.TypeRef) int {
	if ref.ArrayLen == nil {
		return 0
	}
	if v, ok := g.constValue(ref.ArrayLen); ok {
		return int(v)
	}
	return 0
}

// cType renders the C spelling of a TypeInfo for a declaration of the
// given name ("uint8_t buf[16]", "Point p"). name may be empty for
// prototypes.
func cType(t symbols.TypeInfo, name string) string {
	var b strings.Builder
	if t.IsConst || t.IsAutoConst {
		b.WriteString("const ")
	}
	if t.BaseType == "" {
		b.WriteString("int32_t")
	} else {
		b.WriteString(t.BaseType)
	}
	if t.IsPointer {
		b.WriteString(" *")
		if name != "" {
			b.WriteString(name)
		}
	} else if name != "" {
		b.WriteString(" ")
		b.WriteString(name)
	}
	if t.IsArray {
		if t.ArrayLength > 0 {
			fmt.Fprintf(&b, "[%d]", t.ArrayLength)
		} else {
			b.WriteString("[]")
		}
	}
	return b.String()
}

// maskLiteral renders an all-ones mask of the given bit width as a C
// hex literal. operandBits picks the suffix: a mask shifted within a
// 64-bit operand must itself be 64-bit, or the shift overflows the
// default unsigned int.
func maskLiteral(width, operandBits int) string {
	suffix := "u"
	if operandBits > 32 {
		suffix = "ull"
	}
	if width >= 64 {
		return "0xFFFFFFFFFFFFFFFF" + suffix
	}
	return fmt.Sprintf("0x%X%s", uint64(1)<<uint(width)-1, suffix)
}
