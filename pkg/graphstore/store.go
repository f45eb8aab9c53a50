// Package graphstore maintains the case/rule/entity/knowledge graph used
// for cross-case visualization, backed by Neo4j.
package graphstore

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Store wraps a Neo4j driver with the merge operations the orchestrator and
// knowledge stage need.
type Store struct {
	driver neo4j.DriverWithContext
}

// NewStore connects to a Neo4j instance at uri with basic auth.
func NewStore(ctx context.Context, uri, username, password string) (*Store, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("connect to graph store: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("verify graph store connectivity: %w", err)
	}
	return &Store{driver: driver}, nil
}

// Close releases the underlying driver.
func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func (s *Store) write(ctx context.Context, cypher string, params map[string]interface{}) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		return tx.Run(ctx, cypher, params)
	})
	if err != nil {
		return fmt.Errorf("graph write: %w", err)
	}
	return nil
}

// MergeCase upserts a Case node.
func (s *Store) MergeCase(ctx context.Context, caseID, title, severity, status string) error {
	return s.write(ctx, `
		MERGE (c:Case {id: $id})
		SET c.title = $title, c.severity = $severity, c.status = $status`,
		map[string]interface{}{"id": caseID, "title": title, "severity": severity, "status": status})
}

// MergeRule upserts a Rule node and a (Case)-[:TRIGGERED_BY]->(Rule) edge.
func (s *Store) MergeRule(ctx context.Context, caseID, ruleName, ruleType string) error {
	return s.write(ctx, `
		MATCH (c:Case {id: $caseID})
		MERGE (r:Rule {name: $ruleName})
		SET r.type = $ruleType
		MERGE (c)-[:TRIGGERED_BY]->(r)`,
		map[string]interface{}{"caseID": caseID, "ruleName": ruleName, "ruleType": ruleType})
}

// MergeEntity upserts an Entity node and a (Case)-[:OBSERVED_IN]->(Entity)
// edge.
func (s *Store) MergeEntity(ctx context.Context, caseID string, entityType, value string) error {
	return s.write(ctx, `
		MATCH (c:Case {id: $caseID})
		MERGE (e:Entity {type: $entityType, value: $value})
		MERGE (c)-[:OBSERVED_IN]->(e)`,
		map[string]interface{}{"caseID": caseID, "entityType": entityType, "value": value})
}

// RelateCases upserts a (CaseA)-[:RELATES_TO {score}]->(CaseB) edge,
// typically from similarity search results.
func (s *Store) RelateCases(ctx context.Context, caseAID, caseBID string, score float64) error {
	return s.write(ctx, `
		MATCH (a:Case {id: $a}), (b:Case {id: $b})
		MERGE (a)-[rel:RELATES_TO]->(b)
		SET rel.score = $score`,
		map[string]interface{}{"a": caseAID, "b": caseBID, "score": score})
}

// MergeKnowledgeItem upserts a KnowledgeItem node.
func (s *Store) MergeKnowledgeItem(ctx context.Context, id, kind, author, createdAtISO, text string, tags []string, trust float64) error {
	return s.write(ctx, `
		MERGE (k:KnowledgeItem {id: $id})
		SET k.kind = $kind, k.author = $author, k.created_at = $createdAt,
		    k.text = $text, k.tags = $tags, k.trust = $trust`,
		map[string]interface{}{
			"id": id, "kind": kind, "author": author, "createdAt": createdAtISO,
			"text": text, "tags": tags, "trust": trust,
		})
}

// Node is one node in a visualization read.
type Node struct {
	ID     string
	Labels []string
	Props  map[string]interface{}
}

// Edge is one relationship in a visualization read.
type Edge struct {
	From string
	To   string
	Type string
	Props map[string]interface{}
}

// Summary describes a visualization snapshot: its node and edge counts and
// the distinct node labels it contains.
type Summary struct {
	TotalNodes int
	TotalEdges int
	NodeTypes  []string
}

// VisualizationSnapshot reads a bounded window of the graph for UI
// rendering: up to limit nodes (any label) and the edges between them.
func (s *Store) VisualizationSnapshot(ctx context.Context, limit int) ([]Node, []Edge, Summary, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		records, err := tx.Run(ctx, `
			MATCH (n) WITH n LIMIT $limit
			OPTIONAL MATCH (n)-[r]->(m) WHERE m IN collect(n)
			RETURN n, r, m`, map[string]interface{}{"limit": limit})
		if err != nil {
			return nil, err
		}
		return records.Collect(ctx)
	})
	if err != nil {
		return nil, nil, Summary{}, fmt.Errorf("graph visualization snapshot: %w", err)
	}

	records, _ := result.([]*neo4j.Record)
	nodeSet := make(map[string]Node)
	typeSet := make(map[string]struct{})
	var edges []Edge

	for _, rec := range records {
		if raw, ok := rec.Get("n"); ok && raw != nil {
			node := raw.(neo4j.Node)
			id := fmt.Sprintf("%d", node.Id)
			nodeSet[id] = Node{ID: id, Labels: node.Labels, Props: node.Props}
			for _, l := range node.Labels {
				typeSet[l] = struct{}{}
			}
		}
		if raw, ok := rec.Get("r"); ok && raw != nil {
			rel := raw.(neo4j.Relationship)
			edges = append(edges, Edge{
				From:  fmt.Sprintf("%d", rel.StartId),
				To:    fmt.Sprintf("%d", rel.EndId),
				Type:  rel.Type,
				Props: rel.Props,
			})
		}
	}

	nodes := make([]Node, 0, len(nodeSet))
	for _, n := range nodeSet {
		nodes = append(nodes, n)
	}
	types := make([]string, 0, len(typeSet))
	for t := range typeSet {
		types = append(types, t)
	}

	return nodes, edges, Summary{TotalNodes: len(nodes), TotalEdges: len(edges), NodeTypes: types}, nil
}
