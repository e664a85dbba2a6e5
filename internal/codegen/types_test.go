package codegen

import (
	"testing"

	"github.com/jlaustill/cnextc/internal/symbols"
)

func TestFitsIn(t *testing.T) {
	u8 := symbols.TypeInfo{BaseType: "uint8_t", BitWidth: 8}
	i8 := symbols.TypeInfo{BaseType: "int8_t", BitWidth: 8, Signed: true}
	tests := []struct {
		name string
		v    uint64
		neg  bool
		t    symbols.TypeInfo
		want bool
	}{
		{"u8 255", 255, false, u8, true},
		{"u8 256", 256, false, u8, false},
		{"u8 -1", 1, true, u8, false},
		{"i8 127", 127, false, i8, true},
		{"i8 128", 128, false, i8, false},
		{"i8 -128", 128, true, i8, true},
		{"i8 -129", 129, true, i8, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fitsIn(tt.v, tt.neg, tt.t); got != tt.want {
				t.Errorf("fitsIn = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBoundaryValue(t *testing.T) {
	i32 := symbols.TypeInfo{BaseType: "int32_t", BitWidth: 32, Signed: true}
	u16 := symbols.TypeInfo{BaseType: "uint16_t", BitWidth: 16}

	if name, ok := boundaryValue(2147483647, false, i32); !ok || name != "i32.max" {
		t.Errorf("i32 max boundary: %q %v", name, ok)
	}
	if name, ok := boundaryValue(2147483648, true, i32); !ok || name != "i32.min" {
		t.Errorf("i32 min boundary: %q %v", name, ok)
	}
	if _, ok := boundaryValue(2147483646, false, i32); ok {
		t.Error("one below the boundary must not match")
	}
	if name, ok := boundaryValue(65535, false, u16); !ok || name != "u16.max" {
		t.Errorf("u16 max boundary: %q %v", name, ok)
	}
	if _, ok := boundaryValue(0, false, u16); ok {
		t.Error("unsigned zero is not a flagged boundary")
	}
}

func TestBoundaryName(t *testing.T) {
	if name, ok := boundaryName("i64", true); !ok || name != "INT64_MAX" {
		t.Errorf("i64.max: %q %v", name, ok)
	}
	if name, ok := boundaryName("u32", true); !ok || name != "UINT32_MAX" {
		t.Errorf("u32.max: %q %v", name, ok)
	}
	if _, ok := boundaryName("u32", false); ok {
		t.Error("unsigned min has no named macro")
	}
	if _, ok := boundaryName("f32", true); ok {
		t.Error("floats have no integer boundary macros")
	}
}

func TestBoundaryConst(t *testing.T) {
	if v, ok := boundaryConst("i8", true); !ok || v != 127 {
		t.Errorf("i8.max = %d, %v", v, ok)
	}
	if v, ok := boundaryConst("i8", false); !ok || v != -128 {
		t.Errorf("i8.min = %d, %v", v, ok)
	}
	if v, ok := boundaryConst("u16", true); !ok || v != 65535 {
		t.Errorf("u16.max = %d, %v", v, ok)
	}
	if _, ok := boundaryConst("u64", true); ok {
		t.Error("u64.max does not fit in int64 and must not fold")
	}
}

func TestCType(t *testing.T) {
	tests := []struct {
		name string
		t    symbols.TypeInfo
		id   string
		want string
	}{
		{"scalar", symbols.TypeInfo{BaseType: "uint8_t"}, "x", "uint8_t x"},
		{"const", symbols.TypeInfo{BaseType: "uint8_t", IsConst: true}, "x", "const uint8_t x"},
		{"auto const", symbols.TypeInfo{BaseType: "int32_t", IsAutoConst: true}, "n", "const int32_t n"},
		{"array", symbols.TypeInfo{BaseType: "uint8_t", IsArray: true, ArrayLength: 16}, "buf", "uint8_t buf[16]"},
		{"unsized array", symbols.TypeInfo{BaseType: "uint8_t", IsArray: true}, "buf", "uint8_t buf[]"},
		{"pointer", symbols.TypeInfo{BaseType: "FILE", IsPointer: true}, "f", "FILE *f"},
		{"anonymous", symbols.TypeInfo{BaseType: "uint32_t"}, "", "uint32_t"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cType(tt.t, tt.id); got != tt.want {
				t.Errorf("cType = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMaskLiteral(t *testing.T) {
	tests := []struct {
		width       int
		operandBits int
		want        string
	}{
		{1, 16, "0x1u"},
		{2, 32, "0x3u"},
		{8, 8, "0xFFu"},
		{32, 32, "0xFFFFFFFFu"},
		{2, 64, "0x3ull"},
		{64, 64, "0xFFFFFFFFFFFFFFFFull"},
	}
	for _, tt := range tests {
		if got := maskLiteral(tt.width, tt.operandBits); got != tt.want {
			t.Errorf("maskLiteral(%d, %d) = %q, want %q", tt.width, tt.operandBits, got, tt.want)
		}
	}
}
