// Package symbols holds the unified, cross-language symbol table shared by
// every stage of the pipeline. Symbols are inserted once during collection
// (foreign headers) or generation (DSL declarations) and never mutated.
package symbols

import (
	"fmt"
	"strings"
)

// Language tags the origin grammar of a file or symbol.
type Language int

const (
	LangUnknown Language = iota
	LangCNext            // the DSL itself
	LangC                // foreign read-only interop, C grammar
	LangCPP              // foreign read-only interop, C++ grammar
	LangSystem           // recognised system header, never parsed
)

var languageNames = [...]string{
	LangUnknown: "unknown",
	LangCNext:   "cnext",
	LangC:       "c",
	LangCPP:     "cpp",
	LangSystem:  "system",
}

func (l Language) String() string {
	if int(l) >= 0 && int(l) < len(languageNames) {
		return languageNames[l]
	}
	return fmt.Sprintf("Language(%d)", int(l))
}

// Kind discriminates the Symbol variant.
type Kind int

const (
	KindFunction Kind = iota
	KindStruct
	KindEnum
	KindTypedef
	KindMacroConstant
	KindVariable
)

var kindNames = [...]string{
	KindFunction:      "function",
	KindStruct:        "struct",
	KindEnum:          "enum",
	KindTypedef:       "typedef",
	KindMacroConstant: "macro",
	KindVariable:      "variable",
}

func (k Kind) String() string {
	if int(k) >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Field is one named member of a struct layout, in declaration order.
type Field struct {
	Name string   `json:"name"`
	Type TypeInfo `json:"type"`
}

// TypeInfo describes the shape of a value. BitWidth is always one of
// 8/16/32/64 for scalars; array storage is BitWidth*ArrayLength.
type TypeInfo struct {
	BaseType       string  `json:"base_type"` // emitted C spelling, e.g. "uint32_t"
	BitWidth       int     `json:"bit_width"`
	Signed         bool    `json:"signed,omitempty"`
	Float          bool    `json:"float,omitempty"`
	Bool           bool    `json:"bool,omitempty"`
	IsPointer      bool    `json:"is_pointer,omitempty"`
	IsArray        bool    `json:"is_array,omitempty"`
	ArrayLength    int     `json:"array_length,omitempty"`
	IsConst        bool    `json:"is_const,omitempty"`
	IsAutoConst    bool    `json:"is_auto_const,omitempty"` // inferred, not declared
	IsString       bool    `json:"is_string,omitempty"`
	StringCapacity int     `json:"string_capacity,omitempty"`
	StructName     string  `json:"struct_name,omitempty"` // qualified name of the layout
	EnumName       string  `json:"enum_name,omitempty"`
	StructFields   []Field `json:"struct_fields,omitempty"` // declaration order
}

// FieldByName returns the struct field with the given name.
func (t TypeInfo) FieldByName(name string) (Field, bool) {
	for _, f := range t.StructFields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// StorageBits returns total storage in bits, recursing through arrays.
func (t TypeInfo) StorageBits() int {
	if t.IsArray {
		return t.BitWidth * t.ArrayLength
	}
	return t.BitWidth
}

// Param is one function parameter.
type Param struct {
	Name string   `json:"name"`
	Type TypeInfo `json:"type"`
}

// Signature is a function's call shape.
type Signature struct {
	Params  []Param  `json:"params"`
	Returns TypeInfo `json:"returns"`
}

// Equal reports whether two signatures match exactly (names ignored).
func (s Signature) Equal(o Signature) bool {
	if len(s.Params) != len(o.Params) {
		return false
	}
	if !typeEqual(s.Returns, o.Returns) {
		return false
	}
	for i := range s.Params {
		if !typeEqual(s.Params[i].Type, o.Params[i].Type) {
			return false
		}
	}
	return true
}

// ParamsDisjoint reports whether the parameter lists cannot be confused:
// different arity, or any positional base-type difference.
func (s Signature) ParamsDisjoint(o Signature) bool {
	if len(s.Params) != len(o.Params) {
		return true
	}
	for i := range s.Params {
		if s.Params[i].Type.BaseType != o.Params[i].Type.BaseType {
			return true
		}
	}
	return false
}

func typeEqual(a, b TypeInfo) bool {
	return a.BaseType == b.BaseType &&
		a.IsPointer == b.IsPointer &&
		a.IsArray == b.IsArray &&
		a.ArrayLength == b.ArrayLength &&
		a.IsConst == b.IsConst
}

// EnumVariant is one enumerator with its resolved constant value.
type EnumVariant struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

// Symbol is the closed tagged variant stored in the table. Exactly the
// fields relevant to Kind are populated.
type Symbol struct {
	Name           string        `json:"name"` // qualified (flat-prefixed) name
	Kind           Kind          `json:"kind"`
	OriginFile     string        `json:"origin_file"`
	OriginLang     Language      `json:"origin_lang"`
	Type           TypeInfo      `json:"type"`
	Signature      *Signature    `json:"signature,omitempty"`       // KindFunction
	Variants       []EnumVariant `json:"variants,omitempty"`        // KindEnum
	Value          int64         `json:"value,omitempty"`           // KindMacroConstant
	HasValue       bool          `json:"has_value,omitempty"`       // macro carried a scalar value
	IsExtern       bool          `json:"is_extern,omitempty"`       // repeated extern decls allowed
	NullableReturn bool          `json:"nullable_return,omitempty"` // foreign fn may return the null sentinel
}

func (s *Symbol) String() string {
	return fmt.Sprintf("%s %s (%s, %s)", s.Kind, s.Name, s.OriginLang, s.OriginFile)
}

// AccessMode is a register field's hardware access semantics.
type AccessMode int

const (
	AccessRW AccessMode = iota
	AccessRO
	AccessWO
	AccessW1C
	AccessW1S
)

var accessNames = [...]string{
	AccessRW:  "rw",
	AccessRO:  "ro",
	AccessWO:  "wo",
	AccessW1C: "w1c",
	AccessW1S: "w1s",
}

func (a AccessMode) String() string {
	if int(a) >= 0 && int(a) < len(accessNames) {
		return accessNames[a]
	}
	return fmt.Sprintf("AccessMode(%d)", int(a))
}

// ParseAccessMode maps the source spelling to an AccessMode.
func ParseAccessMode(s string) (AccessMode, bool) {
	for i, n := range accessNames {
		if n == s {
			return AccessMode(i), true
		}
	}
	return 0, false
}

// Readable reports whether a field with this mode may appear as the source
// of a read, including the implicit read of a read-modify-write.
func (a AccessMode) Readable() bool { return a == AccessRW || a == AccessRO }

// Writable reports whether direct whole-field writes are permitted.
func (a AccessMode) Writable() bool { return a != AccessRO }

// RegisterField is one named field of a register binding.
type RegisterField struct {
	Name   string     `json:"name"`
	Type   TypeInfo   `json:"type"`
	Access AccessMode `json:"access"`
	Offset int64      `json:"offset"`
}

// RegisterBinding maps a named hardware register block to a base address.
type RegisterBinding struct {
	Name        string          `json:"name"`
	BaseAddress int64           `json:"base_address"`
	Fields      []RegisterField `json:"fields"` // declaration order
}

// FieldByName returns the register field with the given name.
func (r *RegisterBinding) FieldByName(name string) (RegisterField, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return RegisterField{}, false
}

// Qualify joins a scope prefix and a member name into the flat emitted form.
func Qualify(scope, name string) string {
	if scope == "" {
		return name
	}
	return scope + "_" + name
}

// SplitQualified splits an explicitly qualified DSL reference ("Scope.name")
// into its parts; ok is false when the reference is unqualified.
func SplitQualified(ref string) (scope, name string, ok bool) {
	i := strings.IndexByte(ref, '.')
	if i <= 0 || i == len(ref)-1 {
		return "", ref, false
	}
	return ref[:i], ref[i+1:], true
}
