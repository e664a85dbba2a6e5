package cnext

import (
	"testing"

	"github.com/jlaustill/cnextc/internal/diag"
	"github.com/jlaustill/cnextc/internal/readers"
	"github.com/jlaustill/cnextc/internal/symbols"
)

func TestCollectExportsScopeSymbols(t *testing.T) {
	src := `
scope Util {
    u32 calls <- 0;

    u32 bump() {
        Util.calls +<- 1;
        return Util.calls;
    }
}
`
	table := symbols.NewTable()
	var errs diag.Collector
	Reader{}.Collect(readers.File{Path: "util.cnx", Content: []byte(src)}, table, &errs)
	if errs.Err() != nil {
		t.Fatalf("collect: %v", errs.Err())
	}

	fn, ok := table.Lookup("Util_bump")
	if !ok || fn.Kind != symbols.KindFunction {
		t.Fatalf("Util_bump = %+v (names %v)", fn, table.Names())
	}
	v, ok := table.Lookup("Util_calls")
	if !ok || v.Kind != symbols.KindVariable {
		t.Errorf("Util_calls = %+v", v)
	}
}

func TestCollectReportsDependencyErrors(t *testing.T) {
	src := `
scope Bad {
    u32 f() {
        u32 x;
        return x;
    }
}
`
	table := symbols.NewTable()
	var errs diag.Collector
	Reader{}.Collect(readers.File{Path: "bad.cnx", Content: []byte(src)}, table, &errs)
	if errs.Err() == nil {
		t.Fatal("flow rules must apply to dependencies too")
	}
	found := false
	for _, d := range errs.All() {
		if d.Code == diag.ReadBeforeInit {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a read-before-init diagnostic, got %v", errs.All())
	}
}
