// Package lawgraph maintains a small Neo4j graph of regulations and the
// cross-references between them (a state act implementing a federal
// framework, an EU regulation superseding a directive). The analyzer
// uses it to surface regulations adjacent to the ones retrieval found.
package lawgraph

import (
	"context"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Relationship types between regulations.
const (
	RelRelated    = "RELATED_TO"
	RelSupersedes = "SUPERSEDES"
	RelImplements = "IMPLEMENTS"
)

// Store provides regulation-graph operations.
type Store struct {
	driver neo4j.DriverWithContext
}

// New creates a Store over an established Neo4j driver.
func New(driver neo4j.DriverWithContext) *Store {
	return &Store{driver: driver}
}

// Close releases the underlying driver.
func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

// SaveRegulation creates or updates a regulation node.
func (s *Store) SaveRegulation(ctx context.Context, name string, jurisdictions []string) error {
	sess := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer sess.Close(ctx)

	cypher := `MERGE (r:Regulation {name: $name}) SET r.jurisdictions = $jurisdictions`
	_, err := sess.Run(ctx, cypher, map[string]any{
		"name":          name,
		"jurisdictions": jurisdictions,
	})
	if err != nil {
		return fmt.Errorf("lawgraph: save regulation %s: %w", name, err)
	}
	return nil
}

// Link records a directed relationship between two regulations.
func (s *Store) Link(ctx context.Context, from, to, relType string) error {
	sess := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer sess.Close(ctx)

	cypher := fmt.Sprintf(
		`MATCH (a:Regulation {name: $from}), (b:Regulation {name: $to})
		 MERGE (a)-[:%s]->(b)`,
		sanitizeRelType(relType),
	)
	_, err := sess.Run(ctx, cypher, map[string]any{"from": from, "to": to})
	if err != nil {
		return fmt.Errorf("lawgraph: link %s -> %s: %w", from, to, err)
	}
	return nil
}

// Related returns the names of regulations one hop away from name, in
// either direction.
func (s *Store) Related(ctx context.Context, name string) ([]string, error) {
	sess := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer sess.Close(ctx)

	cypher := `MATCH (r:Regulation {name: $name})-[]-(other:Regulation)
	           RETURN DISTINCT other.name AS name ORDER BY name`
	result, err := sess.Run(ctx, cypher, map[string]any{"name": name})
	if err != nil {
		return nil, fmt.Errorf("lawgraph: related %s: %w", name, err)
	}

	var names []string
	for result.Next(ctx) {
		if v, ok := result.Record().Get("name"); ok {
			if n, ok := v.(string); ok {
				names = append(names, n)
			}
		}
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("lawgraph: related %s: %w", name, err)
	}
	return names, nil
}

// sanitizeRelType restricts relationship types to safe identifier
// characters; Cypher cannot parameterize them.
func sanitizeRelType(t string) string {
	t = strings.ToUpper(strings.TrimSpace(t))
	var b strings.Builder
	for _, r := range t {
		if r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return RelRelated
	}
	return b.String()
}
