// Package system substitutes symbol sets for recognized system
// headers. The headers are never opened; each one maps to a fixed set
// of prototypes and opaque types the generator can resolve against.
package system

import (
	"github.com/jlaustill/cnextc/internal/diag"
	"github.com/jlaustill/cnextc/internal/preproc"
	"github.com/jlaustill/cnextc/internal/readers"
	"github.com/jlaustill/cnextc/internal/symbols"
)

// Reader handles synthetic system-header nodes.
type Reader struct{}

func (Reader) Language() symbols.Language { return symbols.LangSystem }

type proto struct {
	name     string
	params   []symbols.TypeInfo
	returns  symbols.TypeInfo
	nullable bool
}

var (
	voidPtr = symbols.TypeInfo{BaseType: "void", IsPointer: true}
	filePtr = symbols.TypeInfo{BaseType: "FILE", IsPointer: true}
	charPtr = symbols.TypeInfo{BaseType: "char", IsPointer: true, IsString: true}
	sizeT   = symbols.TypeInfo{BaseType: "size_t", BitWidth: 32}
	intT    = symbols.TypeInfo{BaseType: "int", BitWidth: 32, Signed: true}
	doubleT = symbols.TypeInfo{BaseType: "double", BitWidth: 64, Float: true}
)

// headerProtos lists the prototypes each recognized header exports.
// Variadics are recorded with their fixed parameters only.
var headerProtos = map[string][]proto{
	"stdio.h": {
		{name: "fopen", params: []symbols.TypeInfo{charPtr, charPtr}, returns: filePtr, nullable: true},
		{name: "fclose", params: []symbols.TypeInfo{filePtr}, returns: intT},
		{name: "fgets", params: []symbols.TypeInfo{charPtr, intT, filePtr}, returns: charPtr, nullable: true},
		{name: "fputs", params: []symbols.TypeInfo{charPtr, filePtr}, returns: intT},
		{name: "printf", params: []symbols.TypeInfo{charPtr}, returns: intT},
	},
	"stdlib.h": {
		{name: "malloc", params: []symbols.TypeInfo{sizeT}, returns: voidPtr, nullable: true},
		{name: "calloc", params: []symbols.TypeInfo{sizeT, sizeT}, returns: voidPtr, nullable: true},
		{name: "free", params: []symbols.TypeInfo{voidPtr}},
		{name: "abs", params: []symbols.TypeInfo{intT}, returns: intT},
	},
	"string.h": {
		{name: "memcpy", params: []symbols.TypeInfo{voidPtr, voidPtr, sizeT}, returns: voidPtr},
		{name: "memset", params: []symbols.TypeInfo{voidPtr, intT, sizeT}, returns: voidPtr},
		{name: "strlen", params: []symbols.TypeInfo{charPtr}, returns: sizeT},
		{name: "strncpy", params: []symbols.TypeInfo{charPtr, charPtr, sizeT}, returns: charPtr},
		{name: "strncmp", params: []symbols.TypeInfo{charPtr, charPtr, sizeT}, returns: intT},
	},
	"math.h": {
		{name: "sqrt", params: []symbols.TypeInfo{doubleT}, returns: doubleT},
		{name: "pow", params: []symbols.TypeInfo{doubleT, doubleT}, returns: doubleT},
		{name: "fabs", params: []symbols.TypeInfo{doubleT}, returns: doubleT},
		{name: "floor", params: []symbols.TypeInfo{doubleT}, returns: doubleT},
		{name: "ceil", params: []symbols.TypeInfo{doubleT}, returns: doubleT},
	},
}

// opaque typedefs the headers introduce.
var headerTypes = map[string][]string{
	"stdio.h": {"FILE"},
}

func (Reader) Collect(file readers.File, table *symbols.Table, errs *diag.Collector) {
	name := file.Path
	if len(name) > 1 && name[0] == '<' {
		name = name[1 : len(name)-1]
	}
	if !preproc.IsSystemHeader(name) {
		return
	}
	for _, tn := range headerTypes[name] {
		insert(table, errs, &symbols.Symbol{
			Name:       tn,
			Kind:       symbols.KindTypedef,
			OriginFile: "<" + name + ">",
			OriginLang: symbols.LangSystem,
			Type:       symbols.TypeInfo{BaseType: tn, IsPointer: true},
		})
	}
	for _, p := range headerProtos[name] {
		sig := &symbols.Signature{Returns: p.returns}
		for _, pt := range p.params {
			sig.Params = append(sig.Params, symbols.Param{Type: pt})
		}
		insert(table, errs, &symbols.Symbol{
			Name:           p.name,
			Kind:           symbols.KindFunction,
			OriginFile:     "<" + name + ">",
			OriginLang:     symbols.LangSystem,
			Signature:      sig,
			IsExtern:       true,
			NullableReturn: p.nullable || preproc.IsNullableForeign(p.name),
		})
	}
}

func insert(table *symbols.Table, errs *diag.Collector, sym *symbols.Symbol) {
	if d := table.Insert(sym); d != nil {
		errs.Add(d)
	}
}
