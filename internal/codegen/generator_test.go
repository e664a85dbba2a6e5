package codegen

import (
	"strings"
	"testing"

	"github.com/jlaustill/cnextc/internal/diag"
	"github.com/jlaustill/cnextc/internal/lang"
	"github.com/jlaustill/cnextc/internal/symbols"
)

// gen parses and lowers src with an optionally pre-seeded table.
func gen(t *testing.T, src string, seed func(*symbols.Table)) (Output, *diag.Collector) {
	t.Helper()
	var errs diag.Collector
	f := lang.Parse("main.cnx", src, &errs)
	if errs.HasErrors() {
		t.Fatalf("parse errors: %v", errs.Err())
	}
	table := symbols.NewTable()
	if seed != nil {
		seed(table)
	}
	out := New(table, &errs).Generate(f)
	return out, &errs
}

func mustGen(t *testing.T, src string) Output {
	t.Helper()
	out, errs := gen(t, src, nil)
	if errs.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", errs.Err())
	}
	return out
}

func wantCode(t *testing.T, errs *diag.Collector, code diag.Code) *diag.Diagnostic {
	t.Helper()
	for _, d := range errs.All() {
		if d.Code == code {
			return d
		}
	}
	t.Fatalf("expected diagnostic %s, got: %v", code, errs.Err())
	return nil
}

func wantNoCode(t *testing.T, errs *diag.Collector, code diag.Code) {
	t.Helper()
	for _, d := range errs.All() {
		if d.Code == code {
			t.Fatalf("unexpected diagnostic %s: %s", code, d.Error())
		}
	}
}

// ---- scope flattening ----

func TestScopeFlattening(t *testing.T) {
	out := mustGen(t, `
scope Led {
    bool state;

    void toggle() {
        state <- !state;
    }
}
`)
	if !strings.Contains(out.CSource, "bool Led_state;") {
		t.Errorf("scope variable not flattened:\n%s", out.CSource)
	}
	if !strings.Contains(out.CSource, "void Led_toggle(void) {") {
		t.Errorf("scope function not flattened:\n%s", out.CSource)
	}
	if !strings.Contains(out.CSource, "Led_state = !Led_state;") {
		t.Errorf("bare member access not qualified:\n%s", out.CSource)
	}
	if !strings.Contains(out.HSource, "extern bool Led_state;") {
		t.Errorf("missing extern declaration:\n%s", out.HSource)
	}
	if !strings.Contains(out.HSource, "void Led_toggle(void);") {
		t.Errorf("missing prototype:\n%s", out.HSource)
	}
}

func TestCrossScopeAccess(t *testing.T) {
	out := mustGen(t, `
scope Counter {
    u32 ticks <- 0;

    void bump() {
        ticks +<- 1;
    }
}

scope Main {
    void poll() {
        Counter.bump();
        Counter.ticks <- 0;
    }
}
`)
	if !strings.Contains(out.CSource, "Counter_bump();") {
		t.Errorf("qualified call not flattened:\n%s", out.CSource)
	}
	if !strings.Contains(out.CSource, "Counter_ticks = 0;") {
		t.Errorf("qualified assignment not flattened:\n%s", out.CSource)
	}
	if !strings.Contains(out.CSource, "Counter_ticks += 1;") {
		t.Errorf("compound assignment not lowered:\n%s", out.CSource)
	}
}

func TestEnumLowering(t *testing.T) {
	out := mustGen(t, `
scope Traffic {
    enum Light { Red, Yellow, Green }
    Light current;

    void advance() {
        current <- Light.Red;
    }
}
`)
	if !strings.Contains(out.HSource, "typedef enum {") ||
		!strings.Contains(out.HSource, "Traffic_Light_Red,") ||
		!strings.Contains(out.HSource, "} Traffic_Light;") {
		t.Errorf("enum typedef malformed:\n%s", out.HSource)
	}
	if !strings.Contains(out.CSource, "Traffic_current = Traffic_Light_Red;") {
		t.Errorf("variant reference not flattened:\n%s", out.CSource)
	}
}

func TestStructLowering(t *testing.T) {
	out := mustGen(t, `
struct Point {
    i32 x;
    i32 y;
}

scope M {
    Point origin;

    void reset() {
        origin.x <- 0;
    }
}
`)
	if !strings.Contains(out.HSource, "typedef struct {") ||
		!strings.Contains(out.HSource, "int32_t x;") ||
		!strings.Contains(out.HSource, "} Point;") {
		t.Errorf("struct typedef malformed:\n%s", out.HSource)
	}
	if !strings.Contains(out.CSource, "M_origin.x = 0;") {
		t.Errorf("field write malformed:\n%s", out.CSource)
	}
}

// ---- registers ----

const gpioSrc = `
register GPIO7 @ 0x42004000 {
    DR:  u32 rw @ 0x00;
    PSR: u32 ro @ 0x08;
    TOG: u32 wo @ 0x0C;
}
`

func TestRegisterMacros(t *testing.T) {
	out := mustGen(t, gpioSrc+`
scope M {
    void f() {
        GPIO7.DR <- 1;
    }
}
`)
	if !strings.Contains(out.HSource, "#define GPIO7_DR (*(volatile uint32_t*)(0x42004000u + 0x0u))") {
		t.Errorf("rw field macro malformed:\n%s", out.HSource)
	}
	if !strings.Contains(out.HSource, "#define GPIO7_PSR (*(volatile uint32_t*)(0x42004000u + 0x8u))") {
		t.Errorf("ro field macro malformed:\n%s", out.HSource)
	}
	if !strings.Contains(out.CSource, "GPIO7_DR = 1;") {
		t.Errorf("register write malformed:\n%s", out.CSource)
	}
}

func TestRegisterAccessViolations(t *testing.T) {
	_, errs := gen(t, gpioSrc+`
scope M {
    void f() {
        GPIO7.PSR <- 1;
    }
}
`, nil)
	wantCode(t, errs, diag.ReadOnlyWrite)

	_, errs = gen(t, gpioSrc+`
scope M {
    void f() {
        u32 v <- GPIO7.TOG;
    }
}
`, nil)
	wantCode(t, errs, diag.WriteOnlyRead)

	// Compound assignment implies a read of the old value.
	_, errs = gen(t, gpioSrc+`
scope M {
    void f() {
        GPIO7.TOG +<- 1;
    }
}
`, nil)
	wantCode(t, errs, diag.WriteOnlyRead)
}

func TestRegisterBitWrite(t *testing.T) {
	out, errs := gen(t, gpioSrc+`
scope M {
    void f() {
        GPIO7.DR[3] <- true;
    }
}
`, nil)
	if errs.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", errs.Err())
	}
	want := "GPIO7_DR = (GPIO7_DR & ~(0x1u << 3)) | (((uint32_t)(true) & 0x1u) << 3);"
	if !strings.Contains(out.CSource, want) {
		t.Errorf("bit write RMW malformed, want %q in:\n%s", want, out.CSource)
	}

	// Bit access needs read-modify-write; ro and wo fields reject it.
	_, errs = gen(t, gpioSrc+`
scope M {
    void f() {
        GPIO7.PSR[3] <- true;
    }
}
`, nil)
	wantCode(t, errs, diag.WriteOnlyRead)
}

func TestRegisterBitRead(t *testing.T) {
	out := mustGen(t, gpioSrc+`
scope M {
    void f() {
        bool ready <- GPIO7.PSR[3];
        u32 mode <- GPIO7.PSR[4, 2] as u32;
    }
}
`)
	if !strings.Contains(out.CSource, "((GPIO7_PSR >> 3) & 0x1u)") {
		t.Errorf("single-bit read malformed:\n%s", out.CSource)
	}
	if !strings.Contains(out.CSource, "((GPIO7_PSR >> 4) & 0x3u)") {
		t.Errorf("bit-range read malformed:\n%s", out.CSource)
	}
}

// ---- definite initialization ----

func TestReadBeforeInit(t *testing.T) {
	_, errs := gen(t, `
scope M {
    u32 f() {
        u32 x;
        return x;
    }
}
`, nil)
	d := wantCode(t, errs, diag.ReadBeforeInit)
	if !strings.Contains(d.Message, "x") {
		t.Errorf("diagnostic should name the variable: %s", d.Message)
	}
}

func TestMaybeUninitializedBranch(t *testing.T) {
	_, errs := gen(t, `
scope M {
    u32 f(bool cond) {
        u32 x;
        if (cond) {
            x <- 1;
        }
        return x;
    }
}
`, nil)
	d := wantCode(t, errs, diag.ReadBeforeInit)
	if !strings.Contains(d.Message, "some paths") {
		t.Errorf("expected maybe-uninitialized wording: %s", d.Message)
	}
}

func TestInitializedOnBothBranches(t *testing.T) {
	_, errs := gen(t, `
scope M {
    u32 f(bool cond) {
        u32 x;
        if (cond) {
            x <- 1;
        } else {
            x <- 2;
        }
        return x;
    }
}
`, nil)
	wantNoCode(t, errs, diag.ReadBeforeInit)
}

func TestEarlyReturnInit(t *testing.T) {
	_, errs := gen(t, `
scope M {
    u32 f(bool cond) {
        u32 x;
        if (cond) {
            return 0;
        }
        x <- 1;
        return x;
    }
}
`, nil)
	wantNoCode(t, errs, diag.ReadBeforeInit)
}

func TestWhileBodyMayNotRun(t *testing.T) {
	_, errs := gen(t, `
scope M {
    u32 f(bool cond) {
        u32 x;
        while (cond) {
            x <- 1;
        }
        return x;
    }
}
`, nil)
	wantCode(t, errs, diag.ReadBeforeInit)
}

func TestArrayWriteNeedsNoInit(t *testing.T) {
	_, errs := gen(t, `
scope M {
    void f() {
        u8 buf[4];
        buf[0] <- 1;
    }
}
`, nil)
	wantNoCode(t, errs, diag.ReadBeforeInit)
}

func TestSwitchBreakCaseJoinsInitMeet(t *testing.T) {
	_, errs := gen(t, lightSrc+`
    u32 f(Light l) {
        u32 x;
        switch (l) {
        case Light.Red: {
            break;
        }
        default(2): {
            x <- 1;
        }
        }
        return x;
    }
}
`, nil)
	d := wantCode(t, errs, diag.ReadBeforeInit)
	if !strings.Contains(d.Message, "some paths") {
		t.Errorf("break path must reach the post-switch meet: %s", d.Message)
	}
}

func TestSwitchAllCasesAssignBeforeBreak(t *testing.T) {
	_, errs := gen(t, lightSrc+`
    u32 f(Light l) {
        u32 x;
        switch (l) {
        case Light.Red: {
            x <- 0;
            break;
        }
        default(2): {
            x <- 1;
        }
        }
        return x;
    }
}
`, nil)
	wantNoCode(t, errs, diag.ReadBeforeInit)
}

func TestStructFieldInit(t *testing.T) {
	out, errs := gen(t, `
struct Point {
    i32 x;
    i32 y;
}

scope M {
    i32 f() {
        Point p;
        p.x <- 1;
        p.y <- 2;
        return p.x;
    }
}
`, nil)
	if errs.HasErrors() {
		t.Fatalf("field writes must initialize the struct local: %v", errs.Err())
	}
	if !strings.Contains(out.CSource, "p.x = 1;") {
		t.Errorf("field write malformed:\n%s", out.CSource)
	}
}

func TestStructFieldReadBeforeInit(t *testing.T) {
	_, errs := gen(t, `
struct Point {
    i32 x;
    i32 y;
}

scope M {
    i32 f() {
        Point p;
        return p.x;
    }
}
`, nil)
	wantCode(t, errs, diag.ReadBeforeInit)
}

// ---- const and auto-const ----

func TestAssignToConst(t *testing.T) {
	_, errs := gen(t, `
scope M {
    void f() {
        const u32 c <- 1;
        c <- 2;
    }
}
`, nil)
	wantCode(t, errs, diag.AssignToConst)
}

func TestConstWithoutInitializer(t *testing.T) {
	_, errs := gen(t, `
scope M {
    void f() {
        const u32 c;
    }
}
`, nil)
	wantCode(t, errs, diag.ReadBeforeInit)
}

func TestAutoConstParams(t *testing.T) {
	out := mustGen(t, `
scope M {
    u32 add(u32 a, u32 b) {
        return (a + b);
    }

    void bump(u32 n) {
        n <- (n + 1);
    }
}
`)
	if !strings.Contains(out.HSource, "uint32_t M_add(const uint32_t a, const uint32_t b);") {
		t.Errorf("unassigned params should be auto-const in the prototype:\n%s", out.HSource)
	}
	if !strings.Contains(out.HSource, "void M_bump(uint32_t n);") {
		t.Errorf("assigned param must stay mutable:\n%s", out.HSource)
	}
	if !strings.Contains(out.CSource, "uint32_t M_add(const uint32_t a, const uint32_t b) {") {
		t.Errorf("definition must repeat the const decision:\n%s", out.CSource)
	}
}

func TestAutoConstLocal(t *testing.T) {
	out := mustGen(t, `
scope M {
    u32 f() {
        u32 once <- 5;
        u32 counter <- 0;
        counter <- (counter + once);
        return counter;
    }
}
`)
	if !strings.Contains(out.CSource, "const uint32_t once = 5;") {
		t.Errorf("unassigned local should be auto-const:\n%s", out.CSource)
	}
	if strings.Contains(out.CSource, "const uint32_t counter") {
		t.Errorf("reassigned local must not be const:\n%s", out.CSource)
	}
}

func TestAutoConstArrayPassedToMutatingCallee(t *testing.T) {
	out, errs := gen(t, `
scope M {
    void pack(u8 outBuf[8], u8 inBuf[8]) {
        fill(outBuf, 8);
        u32 check <- crc(inBuf);
    }
}
`, func(table *symbols.Table) {
		table.Insert(&symbols.Symbol{
			Name: "fill", Kind: symbols.KindFunction,
			OriginFile: "lib.h", OriginLang: symbols.LangC,
			Signature: &symbols.Signature{Params: []symbols.Param{
				{Name: "dst", Type: symbols.TypeInfo{BaseType: "uint8_t", BitWidth: 8, IsArray: true}},
				{Name: "n", Type: symbols.TypeInfo{BaseType: "uint32_t", BitWidth: 32}},
			}},
			IsExtern: true,
		})
		table.Insert(&symbols.Symbol{
			Name: "crc", Kind: symbols.KindFunction,
			OriginFile: "lib.h", OriginLang: symbols.LangC,
			Signature: &symbols.Signature{
				Params:  []symbols.Param{{Name: "src", Type: symbols.TypeInfo{BaseType: "uint8_t", BitWidth: 8, IsArray: true, IsConst: true}}},
				Returns: symbols.TypeInfo{BaseType: "uint32_t", BitWidth: 32},
			},
			IsExtern: true,
		})
	})
	if errs.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", errs.Err())
	}
	if !strings.Contains(out.HSource, "void M_pack(uint8_t outBuf[8], const uint8_t inBuf[8]);") {
		t.Errorf("array passed to a writable callee parameter must not be const:\n%s", out.HSource)
	}
}

// ---- literals ----

func TestBoundaryLiteralRejected(t *testing.T) {
	_, errs := gen(t, `
scope M {
    void f() {
        i32 x <- 2147483647;
    }
}
`, nil)
	d := wantCode(t, errs, diag.BoundaryLiteral)
	if !strings.Contains(d.Fix, "i32.max") {
		t.Errorf("fix should suggest i32.max: %q", d.Fix)
	}
}

func TestBoundaryConstantEmission(t *testing.T) {
	out := mustGen(t, `
scope M {
    void f() {
        i32 hi <- i32.max;
        i32 lo <- i32.min;
        u16 top <- u16.max;
        u8 zero <- u8.min;
    }
}
`)
	for _, want := range []string{"INT32_MAX", "INT32_MIN", "UINT16_MAX", "= 0u;"} {
		if !strings.Contains(out.CSource, want) {
			t.Errorf("missing %q in:\n%s", want, out.CSource)
		}
	}
}

func TestLiteralOverflow(t *testing.T) {
	_, errs := gen(t, `
scope M {
    void f() {
        u8 x <- 300;
    }
}
`, nil)
	wantCode(t, errs, diag.LiteralOverflow)

	_, errs = gen(t, `
scope M {
    void f() {
        u8 x <- -1;
    }
}
`, nil)
	wantCode(t, errs, diag.LiteralOverflow)
}

func TestNegativeHexRewrite(t *testing.T) {
	out := mustGen(t, `
scope M {
    void f() {
        i64 x <- -0xFFFFFFFF;
    }
}
`)
	if !strings.Contains(out.CSource, "= -4294967295;") {
		t.Errorf("negative wide hex literal should be emitted in decimal:\n%s", out.CSource)
	}
}

// ---- null safety ----

func seedStdio(tbl *symbols.Table) {
	charPtr := symbols.TypeInfo{BaseType: "char", IsPointer: true}
	filePtr := symbols.TypeInfo{BaseType: "FILE", IsPointer: true}
	tbl.Insert(&symbols.Symbol{
		Name: "FILE", Kind: symbols.KindTypedef,
		OriginFile: "stdio.h", OriginLang: symbols.LangSystem,
		Type: symbols.TypeInfo{BaseType: "FILE"},
	})
	tbl.Insert(&symbols.Symbol{
		Name: "fopen", Kind: symbols.KindFunction,
		OriginFile: "stdio.h", OriginLang: symbols.LangSystem,
		Signature: &symbols.Signature{
			Params:  []symbols.Param{{Name: "path", Type: charPtr}, {Name: "mode", Type: charPtr}},
			Returns: filePtr,
		},
		NullableReturn: true, IsExtern: true,
	})
	tbl.Insert(&symbols.Symbol{
		Name: "fclose", Kind: symbols.KindFunction,
		OriginFile: "stdio.h", OriginLang: symbols.LangSystem,
		Signature: &symbols.Signature{
			Params:  []symbols.Param{{Name: "stream", Type: filePtr}},
			Returns: symbols.TypeInfo{BaseType: "int32_t", BitWidth: 32, Signed: true},
		},
		IsExtern: true,
	})
}

func TestNullableNamingRequired(t *testing.T) {
	_, errs := gen(t, `
scope M {
    void f() {
        FILE log <- fopen("a.txt", "w");
    }
}
`, seedStdio)
	d := wantCode(t, errs, diag.NullNamingRequired)
	if !strings.Contains(d.Fix, "Handle") {
		t.Errorf("fix should suggest the Handle suffix: %q", d.Fix)
	}
}

func TestUncheckedHandleUse(t *testing.T) {
	_, errs := gen(t, `
scope M {
    void f() {
        FILE logHandle <- fopen("a.txt", "w");
        fclose(logHandle);
    }
}
`, seedStdio)
	wantCode(t, errs, diag.UncheckedHandleUse)
}

func TestCheckedHandleUse(t *testing.T) {
	out, errs := gen(t, `
scope M {
    void f() {
        FILE logHandle <- fopen("a.txt", "w");
        if (logHandle != null) {
            fclose(logHandle);
        }
    }
}
`, seedStdio)
	if errs.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", errs.Err())
	}
	if !strings.Contains(out.CSource, "if ((logHandle != NULL)) {") {
		t.Errorf("null comparison should lower to NULL:\n%s", out.CSource)
	}
}

func TestEarlyReturnNullCheck(t *testing.T) {
	_, errs := gen(t, `
scope M {
    void f() {
        FILE logHandle <- fopen("a.txt", "w");
        if (logHandle == null) {
            return;
        }
        fclose(logHandle);
    }
}
`, seedStdio)
	if errs.HasErrors() {
		t.Fatalf("early-return idiom should prove non-null: %v", errs.Err())
	}
}

func TestNullCheckDoesNotSurviveJoin(t *testing.T) {
	_, errs := gen(t, `
scope M {
    void f(bool retry) {
        FILE logHandle <- fopen("a.txt", "w");
        if (logHandle == null) {
            logHandle <- fopen("b.txt", "w");
        }
        fclose(logHandle);
    }
}
`, seedStdio)
	// The else path is checked but the reassigned then-path is not.
	wantCode(t, errs, diag.UncheckedHandleUse)
}

func TestNullCompareMisuse(t *testing.T) {
	_, errs := gen(t, `
scope M {
    void f() {
        u32 x <- 1;
        if (x == null) {
        }
    }
}
`, nil)
	wantCode(t, errs, diag.NullCompareMisuse)
}

func TestNullableResultMustBeBound(t *testing.T) {
	_, errs := gen(t, `
scope M {
    void f() {
        fclose(fopen("a.txt", "w"));
    }
}
`, seedStdio)
	wantCode(t, errs, diag.NullNamingRequired)
}

// ---- switch exhaustiveness ----

const lightSrc = `
scope Traffic {
    enum Light { Red, Yellow, Green }
`

func TestSwitchNotExhaustive(t *testing.T) {
	_, errs := gen(t, lightSrc+`
    void f(Light l) {
        switch (l) {
        case Light.Red: {
        }
        case Light.Yellow: {
        }
        }
    }
}
`, nil)
	d := wantCode(t, errs, diag.SwitchNotExhaustive)
	if !strings.Contains(d.Message, "Green") {
		t.Errorf("diagnostic should name the uncovered variant: %s", d.Message)
	}
}

func TestSwitchExhaustive(t *testing.T) {
	out, errs := gen(t, lightSrc+`
    void f(Light l) {
        switch (l) {
        case Light.Red, Light.Yellow: {
        }
        case Light.Green: {
        }
        }
    }
}
`, nil)
	if errs.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", errs.Err())
	}
	if !strings.Contains(out.CSource, "case Traffic_Light_Red:") {
		t.Errorf("case labels not flattened:\n%s", out.CSource)
	}
}

func TestSwitchDefaultCount(t *testing.T) {
	_, errs := gen(t, lightSrc+`
    void f(Light l) {
        switch (l) {
        case Light.Red: {
        }
        default(2): {
        }
        }
    }
}
`, nil)
	wantNoCode(t, errs, diag.SwitchCountMismatch)
	wantNoCode(t, errs, diag.SwitchNotExhaustive)
}

func TestSwitchDefaultCountMismatch(t *testing.T) {
	_, errs := gen(t, lightSrc+`
    void f(Light l) {
        switch (l) {
        case Light.Red: {
        }
        default(1): {
        }
        }
    }
}
`, nil)
	d := wantCode(t, errs, diag.SwitchCountMismatch)
	if !strings.Contains(d.Fix, "default(2)") {
		t.Errorf("fix should spell the exact count: %q", d.Fix)
	}
}

func TestSwitchBareDefaultOverEnum(t *testing.T) {
	_, errs := gen(t, lightSrc+`
    void f(Light l) {
        switch (l) {
        case Light.Red: {
        }
        default: {
        }
        }
    }
}
`, nil)
	wantCode(t, errs, diag.SwitchCountMismatch)
}

func TestSwitchNonEnumTag(t *testing.T) {
	_, errs := gen(t, `
scope M {
    void f(u8 cmd) {
        switch (cmd) {
        case 1: {
        }
        default: {
        }
        }
    }
}
`, nil)
	wantNoCode(t, errs, diag.SwitchNotExhaustive)
	wantNoCode(t, errs, diag.SwitchCountMismatch)
}

// ---- arrays, slices, bits ----

func TestSliceWrite(t *testing.T) {
	out, errs := gen(t, `
scope M {
    void f(const u8 src[4]) {
        u8 dst[8];
        dst[2, 4] <- src;
    }
}
`, nil)
	if errs.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", errs.Err())
	}
	if !strings.Contains(out.CSource, "memcpy(&dst[2], src, 4);") {
		t.Errorf("slice write should lower to memcpy:\n%s", out.CSource)
	}
	if !strings.Contains(out.HSource, "#include <string.h>") {
		t.Errorf("memcpy needs string.h:\n%s", out.HSource)
	}
}

func TestSliceWriteWideElements(t *testing.T) {
	out, errs := gen(t, `
scope M {
    void f(const u32 src[4]) {
        u32 dst[8];
        dst[0, 4] <- src;
    }
}
`, nil)
	if errs.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", errs.Err())
	}
	if !strings.Contains(out.CSource, "memcpy(&dst[0], src, 16);") {
		t.Errorf("byte count must scale with the element width:\n%s", out.CSource)
	}
}

func TestSliceSourceNeverWritten(t *testing.T) {
	_, errs := gen(t, `
scope M {
    void f() {
        u8 src[4];
        u8 dst[8];
        dst[0, 4] <- src;
    }
}
`, nil)
	d := wantCode(t, errs, diag.ReadBeforeInit)
	if !strings.Contains(d.Message, "src") {
		t.Errorf("diagnostic should name the source array: %s", d.Message)
	}
}

func TestSliceSourceFilledByCallee(t *testing.T) {
	_, errs := gen(t, `
scope M {
    void f() {
        u8 src[4];
        u8 dst[8];
        fill(src, 4);
        dst[0, 4] <- src;
    }
}
`, func(table *symbols.Table) {
		table.Insert(&symbols.Symbol{
			Name: "fill", Kind: symbols.KindFunction,
			OriginFile: "lib.h", OriginLang: symbols.LangC,
			Signature: &symbols.Signature{Params: []symbols.Param{
				{Name: "dst", Type: symbols.TypeInfo{BaseType: "uint8_t", BitWidth: 8, IsArray: true}},
				{Name: "n", Type: symbols.TypeInfo{BaseType: "uint32_t", BitWidth: 32}},
			}},
			IsExtern: true,
		})
	})
	wantNoCode(t, errs, diag.ReadBeforeInit)
}

func TestSliceOutOfBounds(t *testing.T) {
	_, errs := gen(t, `
scope M {
    void f(const u8 src[4]) {
        u8 dst[8];
        dst[6, 4] <- src;
    }
}
`, nil)
	wantCode(t, errs, diag.SliceBoundsError)
}

func TestArrayIndexOutOfRange(t *testing.T) {
	_, errs := gen(t, `
scope M {
    void f() {
        u8 buf[4];
        buf[4] <- 1;
    }
}
`, nil)
	wantCode(t, errs, diag.SliceBoundsError)
}

func TestBitIndexOutOfRange(t *testing.T) {
	_, errs := gen(t, `
scope M {
    void f(u8 flags) {
        bool b <- flags[8];
    }
}
`, nil)
	wantCode(t, errs, diag.BitIndexOutOfRange)
}

func TestScalarBitWrite(t *testing.T) {
	out, errs := gen(t, `
scope M {
    void f() {
        u16 flags <- 0;
        flags[2] <- true;
    }
}
`, nil)
	if errs.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", errs.Err())
	}
	if !strings.Contains(out.CSource, "flags = (flags & ~(0x1u << 2)) | (((uint16_t)(true) & 0x1u) << 2);") {
		t.Errorf("scalar bit write malformed:\n%s", out.CSource)
	}
}

func TestWideBitWrite(t *testing.T) {
	out, errs := gen(t, `
scope M {
    void f() {
        u64 flags <- 0;
        flags[40, 2] <- 3;
    }
}
`, nil)
	if errs.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", errs.Err())
	}
	if !strings.Contains(out.CSource, "flags = (flags & ~(0x3ull << 40)) | (((uint64_t)(3) & 0x3ull) << 40);") {
		t.Errorf("64-bit operand needs a 64-bit mask:\n%s", out.CSource)
	}
}

// ---- symbols and ordering ----

func TestUseBeforeDefine(t *testing.T) {
	_, errs := gen(t, `
scope M {
    void caller() {
        helper();
    }

    void helper() {
    }
}
`, nil)
	wantCode(t, errs, diag.UseBeforeDefine)
}

func TestUnknownSymbol(t *testing.T) {
	_, errs := gen(t, `
scope M {
    void f() {
        frobnicate();
    }
}
`, nil)
	wantCode(t, errs, diag.UnknownSymbol)
	wantNoCode(t, errs, diag.UseBeforeDefine)
}

func TestCallArity(t *testing.T) {
	_, errs := gen(t, `
scope M {
    u32 twice(u32 n) {
        return (n * 2);
    }

    void f() {
        u32 v <- twice(1, 2);
    }
}
`, nil)
	wantCode(t, errs, diag.TypeMismatch)
}

// ---- casts, strings, misc ----

func TestCastEmission(t *testing.T) {
	out := mustGen(t, `
scope M {
    void f(u32 raw) {
        u8 low <- raw as u8;
    }
}
`)
	if !strings.Contains(out.CSource, "= (uint8_t)(raw);") {
		t.Errorf("cast malformed:\n%s", out.CSource)
	}
}

func TestStringLength(t *testing.T) {
	out := mustGen(t, `
scope M {
    string<16> name <- "boot";

    u32 f() {
        return name.length;
    }
}
`)
	if !strings.Contains(out.CSource, "char M_name[17] = \"boot\";") {
		t.Errorf("sized string storage malformed:\n%s", out.CSource)
	}
	if !strings.Contains(out.CSource, "(uint32_t)strlen(M_name)") {
		t.Errorf(".length on strings should use strlen:\n%s", out.CSource)
	}
}

func TestArrayLength(t *testing.T) {
	out := mustGen(t, `
scope M {
    u8 buf[12];

    u32 f() {
        return buf.length;
    }
}
`)
	if !strings.Contains(out.CSource, "return 12u;") {
		t.Errorf(".length on arrays should fold to the constant:\n%s", out.CSource)
	}
}

func TestForLoopEmission(t *testing.T) {
	out := mustGen(t, `
scope M {
    u32 sum(const u8 vals[4]) {
        u32 total <- 0;
        for (u8 i <- 0; i < 4; i +<- 1) {
            total <- (total + vals[i]);
        }
        return total;
    }
}
`)
	if !strings.Contains(out.CSource, "for (uint8_t i = 0; (i < 4); i += 1) {") {
		t.Errorf("for header malformed:\n%s", out.CSource)
	}
}

func TestHeaderGuard(t *testing.T) {
	out := mustGen(t, `
scope M {
    void f() {
    }
}
`)
	if !strings.Contains(out.HSource, "#ifndef MAIN_H") ||
		!strings.Contains(out.HSource, "#define MAIN_H") {
		t.Errorf("missing include guard:\n%s", out.HSource)
	}
	if !strings.Contains(out.HSource, "#include <stdint.h>") ||
		!strings.Contains(out.HSource, "#include <stdbool.h>") {
		t.Errorf("missing base includes:\n%s", out.HSource)
	}
	if out.Unit != "main" {
		t.Errorf("unit name: %s", out.Unit)
	}
}

func TestShadowingRejected(t *testing.T) {
	_, errs := gen(t, `
scope M {
    void f(u32 x) {
        u32 x <- 1;
    }
}
`, nil)
	wantCode(t, errs, diag.SymbolConflict)
}
