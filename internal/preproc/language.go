package preproc

import (
	"path/filepath"
	"strings"

	"github.com/jlaustill/cnextc/internal/symbols"
)

// systemHeaders are headers the resolver never parses; their type knowledge
// is substituted from the built-in table below.
var systemHeaders = map[string]bool{
	"stdint.h":   true,
	"stdbool.h":  true,
	"stddef.h":   true,
	"stdio.h":    true,
	"stdlib.h":   true,
	"string.h":   true,
	"math.h":     true,
	"limits.h":   true,
	"inttypes.h": true,
	"float.h":    true,
	"ctype.h":    true,
	"assert.h":   true,
	"errno.h":    true,
	"time.h":     true,
}

// IsSystemHeader reports whether name (the include spelling, not a path)
// is a recognised system header.
func IsSystemHeader(name string) bool {
	return systemHeaders[filepath.Base(name)]
}

// cppSignatures are content markers that force the C++ grammar. A plain .h
// file containing any of these is treated as C++.
var cppSignatures = []string{
	"template<",
	"template <",
	"enum class ",
	"namespace ",
	"class ",
}

// DetectLanguage classifies a file by extension first, then by content
// signature for the ambiguous .h case.
func DetectLanguage(path string, content []byte) symbols.Language {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cnx":
		return symbols.LangCNext
	case ".hpp", ".hh", ".hxx":
		return symbols.LangCPP
	case ".h", ".c":
		if hasCPPSignature(string(content)) {
			return symbols.LangCPP
		}
		return symbols.LangC
	default:
		return symbols.LangUnknown
	}
}

func hasCPPSignature(src string) bool {
	for _, line := range strings.Split(src, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "*") {
			continue
		}
		// extern "C" blocks are a C-compatibility marker, not C++ content.
		if strings.HasPrefix(trimmed, "extern \"C\"") {
			continue
		}
		for _, sig := range cppSignatures {
			if strings.Contains(trimmed, sig) {
				return true
			}
		}
	}
	return false
}

// builtinType is one entry of the substituted system-header knowledge.
type builtinType struct {
	BitWidth int
	Signed   bool
	Float    bool
	Bool     bool
}

// builtinTypes is the width/type table substituted for system headers.
var builtinTypes = map[string]builtinType{
	"uint8_t":  {BitWidth: 8},
	"uint16_t": {BitWidth: 16},
	"uint32_t": {BitWidth: 32},
	"uint64_t": {BitWidth: 64},
	"int8_t":   {BitWidth: 8, Signed: true},
	"int16_t":  {BitWidth: 16, Signed: true},
	"int32_t":  {BitWidth: 32, Signed: true},
	"int64_t":  {BitWidth: 64, Signed: true},
	"size_t":   {BitWidth: 32},
	"bool":     {BitWidth: 8, Bool: true},
	"char":     {BitWidth: 8, Signed: true},
	"float":    {BitWidth: 32, Signed: true, Float: true},
	"double":   {BitWidth: 64, Signed: true, Float: true},
	// Pre-stdint spellings found in vendor headers (Arduino.h et al.); the
	// 32-bit embedded targets the original tool supports fix these widths.
	"int":            {BitWidth: 32, Signed: true},
	"unsigned":       {BitWidth: 32},
	"unsigned int":   {BitWidth: 32},
	"long":           {BitWidth: 32, Signed: true},
	"unsigned long":  {BitWidth: 32},
	"short":          {BitWidth: 16, Signed: true},
	"unsigned short": {BitWidth: 16},
	"unsigned char":  {BitWidth: 8},
	"void":           {BitWidth: 0},
}

// BuiltinType resolves a C spelling against the built-in width table.
func BuiltinType(name string) (symbols.TypeInfo, bool) {
	bt, ok := builtinTypes[name]
	if !ok {
		return symbols.TypeInfo{}, false
	}
	return symbols.TypeInfo{
		BaseType: canonicalSpelling(name, bt),
		BitWidth: bt.BitWidth,
		Signed:   bt.Signed,
		Float:    bt.Float,
		Bool:     bt.Bool,
	}, true
}

// canonicalSpelling maps legacy C spellings onto fixed-width equivalents so
// downstream bit-width reasoning sees one spelling per width.
func canonicalSpelling(name string, bt builtinType) string {
	switch name {
	case "int", "long":
		return "int32_t"
	case "unsigned", "unsigned int", "unsigned long":
		return "uint32_t"
	case "short":
		return "int16_t"
	case "unsigned short":
		return "uint16_t"
	case "unsigned char":
		return "uint8_t"
	}
	return name
}

// NullableForeignFunctions is the closed whitelist of foreign functions
// known to signal failure with a null sentinel. Values bound from these
// calls enter the null-safety analysis.
var NullableForeignFunctions = map[string]bool{
	"fopen":                  true,
	"malloc":                 true,
	"calloc":                 true,
	"realloc":                true,
	"xQueueCreate":           true,
	"xTaskCreate":            false, // returns BaseType_t, not a handle
	"xSemaphoreCreateMutex":  true,
	"xSemaphoreCreateBinary": true,
	"xEventGroupCreate":      true,
	"pvPortMalloc":           true,
}

// IsNullableForeign reports whether calls to name yield a nullable handle.
func IsNullableForeign(name string) bool {
	return NullableForeignFunctions[name]
}
