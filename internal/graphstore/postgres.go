package graphstore

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresGraph is a tenant-scoped, weight-accumulating GraphStore backed
// by two tables: a node table keyed on (tenant, key), and an edge table
// keyed on (tenant, source_key, target_key) with source_key <= target_key,
// an ordering UpsertEdge applies itself via EdgeKey.
type PostgresGraph struct {
	pool *pgxpool.Pool
}

// NewPostgresGraph wraps pool and ensures the schema exists.
func NewPostgresGraph(ctx context.Context, pool *pgxpool.Pool) (*PostgresGraph, error) {
	g := &PostgresGraph{pool: pool}
	if err := g.migrate(ctx); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *PostgresGraph) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS graph_nodes (
			tenant      TEXT NOT NULL,
			key         TEXT NOT NULL,
			label       TEXT NOT NULL DEFAULT '',
			entity_type TEXT NOT NULL DEFAULT '',
			community   INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (tenant, key)
		)`,
		`CREATE TABLE IF NOT EXISTS graph_edges (
			tenant     TEXT NOT NULL,
			source_key TEXT NOT NULL,
			target_key TEXT NOT NULL,
			relation   TEXT NOT NULL DEFAULT '',
			weight     DOUBLE PRECISION NOT NULL DEFAULT 0,
			chunk_ids  TEXT[] NOT NULL DEFAULT '{}',
			PRIMARY KEY (tenant, source_key, target_key)
		)`,
		`CREATE INDEX IF NOT EXISTS graph_edges_source_idx ON graph_edges(tenant, source_key)`,
		`CREATE INDEX IF NOT EXISTS graph_edges_target_idx ON graph_edges(tenant, target_key)`,
	}
	for _, stmt := range stmts {
		if _, err := g.pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (g *PostgresGraph) UpsertNode(ctx context.Context, tenant string, node NodeRecord) error {
	_, err := g.pool.Exec(ctx, `
INSERT INTO graph_nodes (tenant, key, label, entity_type, community)
VALUES ($1, $2, $3, $4, 0)
ON CONFLICT (tenant, key) DO UPDATE SET
	label       = CASE WHEN EXCLUDED.label <> '' THEN EXCLUDED.label ELSE graph_nodes.label END,
	entity_type = CASE WHEN EXCLUDED.entity_type <> '' THEN EXCLUDED.entity_type ELSE graph_nodes.entity_type END
`, tenant, node.Key, node.Label, node.EntityType)
	return err
}

func (g *PostgresGraph) UpsertEdge(ctx context.Context, tenant string, edge EdgeRecord) error {
	src, dst := EdgeKey(edge.SourceKey, edge.TargetKey)
	_, err := g.pool.Exec(ctx, `
INSERT INTO graph_edges (tenant, source_key, target_key, relation, weight, chunk_ids)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (tenant, source_key, target_key) DO UPDATE SET
	weight   = graph_edges.weight + EXCLUDED.weight,
	relation = CASE
		WHEN graph_edges.relation = '' OR graph_edges.relation = 'related'
			THEN CASE WHEN EXCLUDED.relation <> '' THEN EXCLUDED.relation ELSE graph_edges.relation END
		ELSE graph_edges.relation
	END,
	chunk_ids = (SELECT array_agg(DISTINCT c) FROM unnest(graph_edges.chunk_ids || EXCLUDED.chunk_ids) AS c)
`, tenant, src, dst, edge.Relation, edge.Weight, edge.ChunkIDs)
	return err
}

func (g *PostgresGraph) Nodes(ctx context.Context, tenant string) ([]NodeRecord, error) {
	rows, err := g.pool.Query(ctx, `
SELECT key, label, entity_type, community FROM graph_nodes WHERE tenant = $1 ORDER BY key
`, tenant)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []NodeRecord
	for rows.Next() {
		var n NodeRecord
		if err := rows.Scan(&n.Key, &n.Label, &n.EntityType, &n.Community); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (g *PostgresGraph) Edges(ctx context.Context, tenant string) ([]EdgeRecord, error) {
	rows, err := g.pool.Query(ctx, `
SELECT source_key, target_key, relation, weight, chunk_ids FROM graph_edges
WHERE tenant = $1 ORDER BY source_key, target_key
`, tenant)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EdgeRecord
	for rows.Next() {
		var e EdgeRecord
		if err := rows.Scan(&e.SourceKey, &e.TargetKey, &e.Relation, &e.Weight, &e.ChunkIDs); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (g *PostgresGraph) SearchNodes(ctx context.Context, tenant, substring string) ([]NodeRecord, error) {
	rows, err := g.pool.Query(ctx, `
SELECT key, label, entity_type, community FROM graph_nodes
WHERE tenant = $1 AND label ILIKE '%' || $2 || '%'
ORDER BY key
`, tenant, substring)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []NodeRecord
	for rows.Next() {
		var n NodeRecord
		if err := rows.Scan(&n.Key, &n.Label, &n.EntityType, &n.Community); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (g *PostgresGraph) SetCommunity(ctx context.Context, tenant, key string, community int) error {
	_, err := g.pool.Exec(ctx, `
UPDATE graph_nodes SET community = $3 WHERE tenant = $1 AND key = $2
`, tenant, key, community)
	return err
}

func (g *PostgresGraph) Close() error {
	g.pool.Close()
	return nil
}
