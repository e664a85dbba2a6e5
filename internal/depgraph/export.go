package depgraph

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExportDOT generates a Graphviz DOT representation of the graph.
func ExportDOT(g *Graph) string {
	var b strings.Builder
	b.WriteString("digraph dependencies {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [fontname=\"Helvetica\"];\n")
	b.WriteString("  edge [fontname=\"Helvetica\" fontsize=10];\n\n")

	for _, n := range g.Nodes {
		shape := "box"
		color := "#d0e8ff"
		if n.Kind == NodeSymbol {
			shape = "ellipse"
			color = "#e8ffd0"
		}
		b.WriteString(fmt.Sprintf("  \"%s\" [label=\"%s\" shape=%s style=filled fillcolor=\"%s\"];\n",
			n.ID, n.Name, shape, color))
	}
	b.WriteString("\n")
	for _, e := range g.Edges {
		style := "solid"
		if e.Kind == EdgeDefines {
			style = "dashed"
		}
		b.WriteString(fmt.Sprintf("  \"%s\" -> \"%s\" [style=%s label=\"%s\"];\n",
			e.From, e.To, style, e.Kind))
	}
	b.WriteString("}\n")
	return b.String()
}

// ExportJSON serializes the graph to JSON.
func ExportJSON(g *Graph) ([]byte, error) {
	return json.MarshalIndent(g, "", "  ")
}

// FormatStats returns a human-readable summary of graph statistics.
func FormatStats(g *Graph) string {
	var b strings.Builder
	b.WriteString("Dependency Graph Statistics\n")
	b.WriteString("===========================\n\n")
	b.WriteString(fmt.Sprintf("Files:      %d\n", g.Stats.FileCount))
	b.WriteString(fmt.Sprintf("Symbols:    %d\n", g.Stats.SymbolCount))
	b.WriteString(fmt.Sprintf("Edges:      %d\n", g.Stats.EdgeCount))
	if g.Stats.HotFile != "" {
		b.WriteString(fmt.Sprintf("Max Fan-In: %d (%s)\n", g.Stats.MaxFanIn,
			strings.TrimPrefix(g.Stats.HotFile, "file:")))
	}
	return b.String()
}
