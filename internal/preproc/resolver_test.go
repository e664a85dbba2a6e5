package preproc

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jlaustill/cnextc/internal/diag"
	"github.com/jlaustill/cnextc/internal/symbols"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		p := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestResolveTree(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"main.cnx":  "#include \"board.cnx\"\n#include \"drivers.h\"\nscope Main {}\n",
		"board.cnx": "scope Board {}\n",
		"drivers.h": "void driver_init(void);\n",
	})

	root, order, err := NewResolver(nil).Resolve(filepath.Join(dir, "main.cnx"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if root.Language != symbols.LangCNext {
		t.Errorf("root language: %s", root.Language)
	}
	if len(root.Children) != 2 {
		t.Fatalf("expected 2 children, got %d", len(root.Children))
	}
	// Leaves first, root last.
	if order[len(order)-1] != root {
		t.Error("root must come last in post-order")
	}
	if len(order) != 3 {
		t.Errorf("expected 3 nodes in order, got %d", len(order))
	}
}

func TestResolveSystemHeader(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"main.cnx": "#include <stdio.h>\nscope Main {}\n",
	})
	root, _, err := NewResolver(nil).Resolve(filepath.Join(dir, "main.cnx"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(root.Children) != 1 {
		t.Fatalf("expected 1 child, got %d", len(root.Children))
	}
	sys := root.Children[0]
	if sys.Language != symbols.LangSystem {
		t.Errorf("system header language: %s", sys.Language)
	}
	if sys.AbsolutePath != "<stdio.h>" {
		t.Errorf("system node path: %s", sys.AbsolutePath)
	}
}

func TestResolveMissingInclude(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"main.cnx": "#include \"missing.h\"\n",
	})
	_, _, err := NewResolver(nil).Resolve(filepath.Join(dir, "main.cnx"))
	if err == nil {
		t.Fatal("expected unresolved include error")
	}
	d, ok := err.(*diag.Diagnostic)
	if !ok {
		t.Fatalf("expected a diagnostic, got %T", err)
	}
	if d.Code != diag.UnresolvedInclude {
		t.Errorf("expected %s, got %s", diag.UnresolvedInclude, d.Code)
	}
	if d.Pos.Line != 1 {
		t.Errorf("diagnostic should carry the directive line, got %d", d.Pos.Line)
	}
}

func TestResolveCycle(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"a.h": "#include \"b.h\"\n",
		"b.h": "#include \"a.h\"\n",
	})
	root, order, err := NewResolver(nil).Resolve(filepath.Join(dir, "a.h"))
	if err != nil {
		t.Fatalf("cycles must not error: %v", err)
	}
	if len(order) != 2 {
		t.Errorf("expected 2 nodes, got %d", len(order))
	}
	// b's child is the already-visited a node, shared, not re-read.
	b := root.Children[0]
	if len(b.Children) != 1 || b.Children[0] != root {
		t.Error("cycle should link back to the shared node")
	}
}

func TestResolveDiamond(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"main.cnx": "#include \"left.h\"\n#include \"right.h\"\n",
		"left.h":   "#include \"shared.h\"\n",
		"right.h":  "#include \"shared.h\"\n",
		"shared.h": "typedef int shared_t;\n",
	})
	_, order, err := NewResolver(nil).Resolve(filepath.Join(dir, "main.cnx"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	// shared.h appears exactly once despite two includers.
	if len(order) != 4 {
		t.Errorf("expected 4 unique nodes, got %d", len(order))
	}
	if order[0].IncludeName != "shared.h" {
		t.Errorf("deepest leaf must come first, got %s", order[0].IncludeName)
	}
}

func TestResolveSearchPaths(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"src/main.cnx":     "#include \"vendor.h\"\n",
		"include/vendor.h": "void vendor(void);\n",
	})
	r := NewResolver([]string{filepath.Join(dir, "include")})
	root, _, err := r.Resolve(filepath.Join(dir, "src", "main.cnx"))
	if err != nil {
		t.Fatalf("Resolve with search path: %v", err)
	}
	if len(root.Children) != 1 || root.Children[0].IncludeName != "vendor.h" {
		t.Errorf("vendor header not resolved: %+v", root.Children)
	}
}

func TestScanIncludesSkipsComments(t *testing.T) {
	src := `
// #include "commented.h"
/* #include "blocked.h" */
/*
#include "multiline.h"
*/
#include "real.h"
`
	incs, malformed := scanIncludes(src)
	if len(incs) != 1 || incs[0].name != "real.h" {
		t.Errorf("expected only real.h, got %+v", incs)
	}
	if len(malformed) != 0 {
		t.Errorf("unexpected malformed lines: %v", malformed)
	}
}

func TestResolveMalformedInclude(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"main.cnx": "#include board.h\n",
	})
	_, _, err := NewResolver(nil).Resolve(filepath.Join(dir, "main.cnx"))
	if err == nil {
		t.Fatal("expected malformed include error")
	}
	d, ok := err.(*diag.Diagnostic)
	if !ok || d.Code != diag.MalformedInclude {
		t.Errorf("expected %s, got %v", diag.MalformedInclude, err)
	}
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		content string
		want    symbols.Language
	}{
		{"cnx", "main.cnx", "scope M {}", symbols.LangCNext},
		{"plain c header", "api.h", "void f(void);", symbols.LangC},
		{"hpp", "util.hpp", "", symbols.LangCPP},
		{"h with class", "widget.h", "class Widget {};", symbols.LangCPP},
		{"h with namespace", "ns.h", "namespace hw {\n}", symbols.LangCPP},
		{"h with enum class", "mode.h", "enum class Mode { A };", symbols.LangCPP},
		{"extern C stays C", "api.h", "extern \"C\" {\nvoid f(void);\n}", symbols.LangC},
		{"class in comment stays C", "api.h", "// class docs\nvoid f(void);", symbols.LangC},
		{"unknown ext", "data.bin", "", symbols.LangUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectLanguage(tt.path, []byte(tt.content)); got != tt.want {
				t.Errorf("DetectLanguage = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestIsSystemHeader(t *testing.T) {
	if !IsSystemHeader("stdio.h") || !IsSystemHeader("limits.h") {
		t.Error("known system headers not recognised")
	}
	if IsSystemHeader("board.h") {
		t.Error("project headers must not be classified as system")
	}
}

func TestBuiltinTypeCanonicalSpelling(t *testing.T) {
	ti, ok := BuiltinType("unsigned long")
	if !ok || ti.BaseType != "uint32_t" || ti.BitWidth != 32 {
		t.Errorf("legacy spelling not canonicalized: %+v", ti)
	}
	ti, ok = BuiltinType("int8_t")
	if !ok || !ti.Signed || ti.BitWidth != 8 {
		t.Errorf("fixed-width spelling wrong: %+v", ti)
	}
	if _, ok := BuiltinType("frob_t"); ok {
		t.Error("unknown spelling must not resolve")
	}
}

func TestIsNullableForeign(t *testing.T) {
	if !IsNullableForeign("fopen") || !IsNullableForeign("malloc") {
		t.Error("classic nullable allocators missing from whitelist")
	}
	if IsNullableForeign("xTaskCreate") {
		t.Error("xTaskCreate returns a status, not a handle")
	}
	if IsNullableForeign("printf") {
		t.Error("printf is not in the whitelist")
	}
}
