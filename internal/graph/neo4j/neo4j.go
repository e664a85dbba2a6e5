package neo4j

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/jlaustill/cnextc/internal/depgraph"
)

// Neo4jRepository implements graph.Repository using Neo4j.
type Neo4jRepository struct {
	driver neo4j.DriverWithContext
}

// NewNeo4j creates a Neo4j-backed repository.
func NewNeo4j(ctx context.Context, uri, username, password string) (*Neo4jRepository, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("neo4j connectivity: %w", err)
	}
	return &Neo4jRepository{driver: driver}, nil
}

func (r *Neo4jRepository) StoreGraph(ctx context.Context, g *depgraph.Graph) error {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, n := range g.Nodes {
			label := "File"
			if n.Kind == depgraph.NodeSymbol {
				label = "Symbol"
			}
			_, err := tx.Run(ctx,
				fmt.Sprintf("MERGE (n:%s {id: $id}) SET n.name = $name, n.language = $lang", label),
				map[string]any{"id": n.ID, "name": n.Name, "lang": n.Language})
			if err != nil {
				return nil, err
			}
		}
		for _, e := range g.Edges {
			rel := "INCLUDES"
			if e.Kind == depgraph.EdgeDefines {
				rel = "DEFINES"
			}
			_, err := tx.Run(ctx,
				fmt.Sprintf("MATCH (a {id: $from}), (b {id: $to}) MERGE (a)-[:%s]->(b)", rel),
				map[string]any{"from": e.From, "to": e.To})
			if err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("store graph: %w", err)
	}
	return nil
}

func (r *Neo4jRepository) QueryIncluders(ctx context.Context, includeName string) ([]string, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := tx.Run(ctx,
			"MATCH (a:File)-[:INCLUDES]->(b:File {name: $name}) RETURN a.name",
			map[string]any{"name": includeName})
		if err != nil {
			return nil, err
		}
		var names []string
		for records.Next(ctx) {
			n, _ := records.Record().Get("a.name")
			names = append(names, n.(string))
		}
		return names, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]string), nil
}

func (r *Neo4jRepository) QuerySymbols(ctx context.Context, path string) ([]string, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := tx.Run(ctx,
			"MATCH (:File {id: $id})-[:DEFINES]->(s:Symbol) RETURN s.name",
			map[string]any{"id": "file:" + path})
		if err != nil {
			return nil, err
		}
		var names []string
		for records.Next(ctx) {
			n, _ := records.Record().Get("s.name")
			names = append(names, n.(string))
		}
		return names, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]string), nil
}

func (r *Neo4jRepository) Close(ctx context.Context) error {
	return r.driver.Close(ctx)
}
