// Package depgraph is the in-memory model of a build's include and
// symbol graph: files, the headers they pull in, and the symbols each
// one defines. Exporters (Neo4j, DOT) consume this instead of walking
// resolver trees themselves.
package depgraph

// Node represents a node in the dependency graph.
type Node struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Kind     NodeKind `json:"kind"`
	Language string   `json:"language,omitempty"`
}

// NodeKind classifies graph nodes.
type NodeKind string

const (
	NodeFile     NodeKind = "file"
	NodeSymbol   NodeKind = "symbol"
	NodeRegister NodeKind = "register"
)

// Edge represents a directed edge between two nodes.
type Edge struct {
	From string   `json:"from"`
	To   string   `json:"to"`
	Kind EdgeKind `json:"kind"`
}

// EdgeKind classifies relationships.
type EdgeKind string

const (
	EdgeIncludes EdgeKind = "includes" // file includes file
	EdgeDefines  EdgeKind = "defines"  // file defines symbol
)

// Graph is the full dependency graph of one build.
type Graph struct {
	Nodes []Node     `json:"nodes"`
	Edges []Edge     `json:"edges"`
	Stats GraphStats `json:"stats"`
}

// GraphStats holds computed metrics about the graph.
type GraphStats struct {
	FileCount   int `json:"file_count"`
	SymbolCount int `json:"symbol_count"`
	EdgeCount   int `json:"edge_count"`
	// MaxFanIn is the largest number of distinct includers any single
	// header has; shared headers dominate rebuild cost.
	MaxFanIn int    `json:"max_fan_in"`
	HotFile  string `json:"hot_file,omitempty"`
}
