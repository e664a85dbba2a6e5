package pipeline

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jlaustill/cnextc/internal/config"
	"github.com/jlaustill/cnextc/internal/diag"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Build.OutputDir = filepath.Join(t.TempDir(), "out")
	cfg.Build.CacheDir = filepath.Join(t.TempDir(), "cache")
	return cfg
}

func mtimePast() time.Time {
	return time.Now().Add(-time.Hour)
}

func writeUnit(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

const goodUnit = `#include "board.h"

scope Main {
    void setup() {
        led_init(13);
    }
}
`

const boardHeader = "void led_init(uint8_t pin);\n"

func TestCompileUnit(t *testing.T) {
	dir := t.TempDir()
	src := writeUnit(t, dir, "main.cnx", goodUnit)
	writeUnit(t, dir, "board.h", boardHeader)

	p, err := New(testConfig(t), testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res := p.CompileUnit(context.Background(), src)
	if res.Failed() {
		t.Fatalf("diagnostics: %s", FormatDiagnostics(res.Diags))
	}
	if res.Output.Unit != "main" {
		t.Errorf("unit name = %q", res.Output.Unit)
	}
	if !strings.Contains(res.Output.CSource, "void Main_setup(void)") {
		t.Errorf("flattened function missing:\n%s", res.Output.CSource)
	}
	if !strings.Contains(res.Output.CSource, "led_init(13)") {
		t.Errorf("foreign call missing:\n%s", res.Output.CSource)
	}
	if res.SymbolCount == 0 {
		t.Error("collected symbols not counted")
	}
	if res.Node == nil || len(res.Node.Children) != 1 {
		t.Errorf("dependency tree not returned: %+v", res.Node)
	}
}

func TestCompileUnitCacheHit(t *testing.T) {
	dir := t.TempDir()
	src := writeUnit(t, dir, "main.cnx", goodUnit)
	writeUnit(t, dir, "board.h", boardHeader)

	cfg := testConfig(t)
	p, err := New(cfg, testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	first := p.CompileUnit(context.Background(), src)
	if first.Failed() {
		t.Fatalf("first run: %s", FormatDiagnostics(first.Diags))
	}
	if first.CacheHit {
		t.Error("first run cannot hit the cache")
	}
	second := p.CompileUnit(context.Background(), src)
	if second.Failed() {
		t.Fatalf("second run: %s", FormatDiagnostics(second.Diags))
	}
	if !second.CacheHit {
		t.Error("unchanged tree must hit the cache")
	}
	if second.Output.CSource != first.Output.CSource {
		t.Error("cached and fresh runs must emit identical code")
	}
}

func TestCompileUnitCacheDisabled(t *testing.T) {
	dir := t.TempDir()
	src := writeUnit(t, dir, "main.cnx", goodUnit)
	writeUnit(t, dir, "board.h", boardHeader)

	cfg := testConfig(t)
	cfg.Build.NoCache = true
	p, err := New(cfg, testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p.CompileUnit(context.Background(), src)
	res := p.CompileUnit(context.Background(), src)
	if res.CacheHit {
		t.Error("no_cache must disable the store")
	}
}

func TestCompileUnitHeaderEdit(t *testing.T) {
	dir := t.TempDir()
	src := writeUnit(t, dir, "main.cnx", goodUnit)
	hdr := writeUnit(t, dir, "board.h", boardHeader)

	p, err := New(testConfig(t), testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p.CompileUnit(context.Background(), src)

	// Rewriting the header with a different mtime invalidates the unit.
	if err := os.Chtimes(hdr, mtimePast(), mtimePast()); err != nil {
		t.Fatal(err)
	}
	res := p.CompileUnit(context.Background(), src)
	if res.CacheHit {
		t.Error("edited dependency must force a fresh compile")
	}
}

func TestCompileAll(t *testing.T) {
	dir := t.TempDir()
	good := writeUnit(t, dir, "good.cnx", "scope Good {\n    u8 n <- 0;\n}\n")
	bad := writeUnit(t, dir, "bad.cnx", "scope Bad {\n    u8 n = 0;\n}\n")

	cfg := testConfig(t)
	p, err := New(cfg, testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	results, err := p.CompileAll(context.Background(), []string{good, bad})
	if err == nil {
		t.Fatal("expected a failure summary")
	}
	if !strings.Contains(err.Error(), "1 of 2 units failed") {
		t.Errorf("summary = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d", len(results))
	}
	if results[0].Failed() || !results[1].Failed() {
		t.Errorf("wrong unit failed: %+v", results)
	}

	// The good unit's outputs land on disk; the bad unit's never do.
	if _, err := os.Stat(filepath.Join(cfg.Build.OutputDir, "good.c")); err != nil {
		t.Errorf("good.c not written: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.Build.OutputDir, "good.h")); err != nil {
		t.Errorf("good.h not written: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.Build.OutputDir, "bad.c")); err == nil {
		t.Error("failing units must not write outputs")
	}
}

func TestCompileAllDefaultOutputBesideSource(t *testing.T) {
	dir := t.TempDir()
	src := writeUnit(t, dir, "led.cnx", "scope Led {\n    u8 pin <- 13;\n}\n")

	cfg := testConfig(t)
	cfg.Build.OutputDir = ""
	p, err := New(cfg, testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.CompileAll(context.Background(), []string{src}); err != nil {
		t.Fatalf("CompileAll: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "led.c")); err != nil {
		t.Errorf("led.c not written beside the source: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "led.h")); err != nil {
		t.Errorf("led.h not written beside the source: %v", err)
	}
}

func TestCompileUnitMissingInclude(t *testing.T) {
	dir := t.TempDir()
	src := writeUnit(t, dir, "main.cnx", "#include \"gone.h\"\nscope Main {}\n")

	p, err := New(testConfig(t), testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res := p.CompileUnit(context.Background(), src)
	if !res.Failed() {
		t.Fatal("expected resolve diagnostics")
	}
	if res.Diags[0].Code != diag.UnresolvedInclude {
		t.Errorf("code = %s", res.Diags[0].Code)
	}
}

func TestFormatDiagnostics(t *testing.T) {
	diags := []*diag.Diagnostic{
		diag.New(diag.ParseError, diag.Pos{File: "a.cnx", Line: 3}, "unexpected token"),
		diag.New(diag.ReadBeforeInit, diag.Pos{File: "a.cnx", Line: 7}, "x may be read before initialization"),
	}
	out := FormatDiagnostics(diags)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected one line per diagnostic:\n%s", out)
	}
	if !strings.Contains(lines[0], "a.cnx:3") || !strings.Contains(lines[1], "CNX-INIT-001") {
		t.Errorf("rendering:\n%s", out)
	}
}
