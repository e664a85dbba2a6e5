// Package graph defines storage for the build's dependency and symbol
// graph, exported after a successful compile for cross-project queries
// (who includes this header, where is this symbol defined).
package graph

import (
	"context"

	"github.com/jlaustill/cnextc/internal/depgraph"
)

// Repository persists dependency graphs and answers reachability
// queries over previously stored builds.
type Repository interface {
	// StoreGraph persists one build's dependency graph.
	StoreGraph(ctx context.Context, g *depgraph.Graph) error
	// QueryIncluders returns the files that include the given header.
	QueryIncluders(ctx context.Context, includeName string) ([]string, error)
	// QuerySymbols returns the names defined by the given file.
	QuerySymbols(ctx context.Context, path string) ([]string, error)
	// Close releases resources.
	Close(ctx context.Context) error
}
