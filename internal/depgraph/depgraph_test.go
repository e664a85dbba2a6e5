package depgraph

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/jlaustill/cnextc/internal/preproc"
	"github.com/jlaustill/cnextc/internal/symbols"
)

func testTree() (*preproc.Node, *preproc.Node) {
	shared := &preproc.Node{AbsolutePath: "/src/board.h", IncludeName: "board.h", Language: symbols.LangC}
	main := &preproc.Node{
		AbsolutePath: "/src/main.cnx", IncludeName: "main.cnx", Language: symbols.LangCNext,
		Children: []*preproc.Node{shared},
	}
	other := &preproc.Node{
		AbsolutePath: "/src/motor.cnx", IncludeName: "motor.cnx", Language: symbols.LangCNext,
		Children: []*preproc.Node{shared},
	}
	return main, other
}

func TestBuilderMergesUnits(t *testing.T) {
	main, other := testTree()
	b := NewBuilder()
	b.AddUnit(main, []*symbols.Symbol{
		{Name: "led_init", OriginFile: "/src/board.h", OriginLang: symbols.LangC},
	})
	b.AddUnit(other, []*symbols.Symbol{
		{Name: "led_init", OriginFile: "/src/board.h", OriginLang: symbols.LangC},
	})
	g := b.Graph()

	// Three files plus one symbol, deduplicated across units.
	if g.Stats.FileCount != 3 {
		t.Errorf("FileCount = %d, want 3", g.Stats.FileCount)
	}
	if g.Stats.SymbolCount != 1 {
		t.Errorf("SymbolCount = %d, want 1", g.Stats.SymbolCount)
	}
	// Two include edges plus one defines edge.
	if g.Stats.EdgeCount != 3 {
		t.Errorf("EdgeCount = %d, want 3: %+v", g.Stats.EdgeCount, g.Edges)
	}
}

func TestBuilderFanInStats(t *testing.T) {
	main, other := testTree()
	b := NewBuilder()
	b.AddUnit(main, nil)
	b.AddUnit(other, nil)
	g := b.Graph()

	if g.Stats.MaxFanIn != 2 {
		t.Errorf("MaxFanIn = %d, want 2", g.Stats.MaxFanIn)
	}
	if g.Stats.HotFile != "file:/src/board.h" {
		t.Errorf("HotFile = %q", g.Stats.HotFile)
	}
}

func TestBuilderNodeIDs(t *testing.T) {
	main, _ := testTree()
	b := NewBuilder()
	b.AddUnit(main, []*symbols.Symbol{
		{Name: "led_init", OriginFile: "/src/board.h", OriginLang: symbols.LangC},
	})
	g := b.Graph()

	ids := map[string]Node{}
	for _, n := range g.Nodes {
		ids[n.ID] = n
	}
	f, ok := ids["file:/src/main.cnx"]
	if !ok || f.Kind != NodeFile || f.Language != "cnext" {
		t.Errorf("file node = %+v", f)
	}
	s, ok := ids["sym:led_init"]
	if !ok || s.Kind != NodeSymbol || s.Language != "c" {
		t.Errorf("symbol node = %+v", s)
	}
}

func TestBuilderNilRoot(t *testing.T) {
	b := NewBuilder()
	b.AddUnit(nil, []*symbols.Symbol{{Name: "x", OriginFile: "/src/a.h"}})
	g := b.Graph()
	if g.Stats.SymbolCount != 1 || g.Stats.FileCount != 0 {
		t.Errorf("stats = %+v", g.Stats)
	}
}

func TestExportDOT(t *testing.T) {
	main, _ := testTree()
	b := NewBuilder()
	b.AddUnit(main, []*symbols.Symbol{
		{Name: "led_init", OriginFile: "/src/board.h", OriginLang: symbols.LangC},
	})
	dot := ExportDOT(b.Graph())

	if !strings.HasPrefix(dot, "digraph dependencies {") {
		t.Errorf("missing digraph header:\n%s", dot)
	}
	if !strings.Contains(dot, `"file:/src/main.cnx" -> "file:/src/board.h" [style=solid label="includes"];`) {
		t.Errorf("include edge missing:\n%s", dot)
	}
	if !strings.Contains(dot, `"file:/src/board.h" -> "sym:led_init" [style=dashed label="defines"];`) {
		t.Errorf("defines edge missing:\n%s", dot)
	}
	if !strings.Contains(dot, "shape=ellipse") {
		t.Error("symbol nodes render as ellipses")
	}
}

func TestExportJSONRoundtrip(t *testing.T) {
	main, _ := testTree()
	b := NewBuilder()
	b.AddUnit(main, nil)
	data, err := ExportJSON(b.Graph())
	if err != nil {
		t.Fatalf("ExportJSON: %v", err)
	}
	var g Graph
	if err := json.Unmarshal(data, &g); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(g.Nodes) != 2 || g.Stats.FileCount != 2 {
		t.Errorf("roundtrip = %+v", g)
	}
}

func TestFormatStats(t *testing.T) {
	main, other := testTree()
	b := NewBuilder()
	b.AddUnit(main, nil)
	b.AddUnit(other, nil)
	out := FormatStats(b.Graph())

	if !strings.Contains(out, "Files:      3") {
		t.Errorf("file count missing:\n%s", out)
	}
	if !strings.Contains(out, "Max Fan-In: 2 (/src/board.h)") {
		t.Errorf("fan-in line missing:\n%s", out)
	}
}
