package depgraph

import (
	"github.com/jlaustill/cnextc/internal/preproc"
	"github.com/jlaustill/cnextc/internal/symbols"
)

// Builder accumulates units into one graph, deduplicating shared
// headers across translation units.
type Builder struct {
	g     *Graph
	nodes map[string]bool
	edges map[string]bool
}

// NewBuilder creates an empty graph builder.
func NewBuilder() *Builder {
	return &Builder{
		g:     &Graph{},
		nodes: map[string]bool{},
		edges: map[string]bool{},
	}
}

// AddUnit merges one translation unit's include tree and symbols.
func (b *Builder) AddUnit(root *preproc.Node, syms []*symbols.Symbol) {
	seen := map[string]bool{}
	var walk func(n *preproc.Node)
	walk = func(n *preproc.Node) {
		if seen[n.AbsolutePath] {
			return
		}
		seen[n.AbsolutePath] = true
		b.addNode(Node{
			ID:       "file:" + n.AbsolutePath,
			Name:     n.IncludeName,
			Kind:     NodeFile,
			Language: n.Language.String(),
		})
		for _, c := range n.Children {
			b.addNode(Node{
				ID:       "file:" + c.AbsolutePath,
				Name:     c.IncludeName,
				Kind:     NodeFile,
				Language: c.Language.String(),
			})
			b.addEdge(Edge{
				From: "file:" + n.AbsolutePath,
				To:   "file:" + c.AbsolutePath,
				Kind: EdgeIncludes,
			})
			walk(c)
		}
	}
	if root != nil {
		walk(root)
	}

	for _, sym := range syms {
		symID := "sym:" + sym.Name
		b.addNode(Node{ID: symID, Name: sym.Name, Kind: NodeSymbol, Language: sym.OriginLang.String()})
		b.addEdge(Edge{From: "file:" + sym.OriginFile, To: symID, Kind: EdgeDefines})
	}
}

func (b *Builder) addNode(n Node) {
	if b.nodes[n.ID] {
		return
	}
	b.nodes[n.ID] = true
	b.g.Nodes = append(b.g.Nodes, n)
}

func (b *Builder) addEdge(e Edge) {
	key := string(e.Kind) + "|" + e.From + "|" + e.To
	if b.edges[key] {
		return
	}
	b.edges[key] = true
	b.g.Edges = append(b.g.Edges, e)
}

// Graph finalizes the accumulated graph, computing its stats.
func (b *Builder) Graph() *Graph {
	fanIn := map[string]int{}
	for _, n := range b.g.Nodes {
		switch n.Kind {
		case NodeFile:
			b.g.Stats.FileCount++
		case NodeSymbol:
			b.g.Stats.SymbolCount++
		}
	}
	for _, e := range b.g.Edges {
		if e.Kind == EdgeIncludes {
			fanIn[e.To]++
		}
	}
	b.g.Stats.EdgeCount = len(b.g.Edges)
	for id, n := range fanIn {
		if n > b.g.Stats.MaxFanIn {
			b.g.Stats.MaxFanIn = n
			b.g.Stats.HotFile = id
		}
	}
	return b.g
}
