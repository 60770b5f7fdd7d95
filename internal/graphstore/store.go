// Package graphstore defines the external persistence contract for the
// knowledge graph and provides an in-memory and a Postgres-backed
// implementation of it.
//
// The contract is intentionally small: callers upsert nodes and edges,
// and weight accumulation happens inside the store, so upserting the same
// pair again (for example from a later ingest run) adds to its weight
// rather than replacing it.
package graphstore

import "context"

// NodeRecord is a canonicalized graph entity scoped to a tenant.
type NodeRecord struct {
	Key        string // lowercase, trimmed label; canonical identity
	Label      string // display label; a later non-empty label replaces it
	EntityType string
	Community  int
}

// EdgeRecord is an unordered relation between two canonical node keys.
// SourceKey is always lexicographically <= TargetKey.
type EdgeRecord struct {
	SourceKey string
	TargetKey string
	Relation  string
	Weight    float64
	ChunkIDs  []string
}

// GraphStore persists the knowledge graph for a tenant. Implementations
// must merge concurrent UpsertEdge calls for the same node pair by summing
// weight and unioning ChunkIDs, rather than overwriting.
type GraphStore interface {
	// UpsertNode creates or updates a node. Label and EntityType are only
	// overwritten when the incoming value is non-empty, so a later
	// mention without a type doesn't erase a type learned earlier.
	UpsertNode(ctx context.Context, tenant string, node NodeRecord) error

	// UpsertEdge creates an edge or accumulates weight/relations/chunk IDs
	// onto an existing one between the same (unordered) pair of keys.
	UpsertEdge(ctx context.Context, tenant string, edge EdgeRecord) error

	// Nodes returns every node for a tenant.
	Nodes(ctx context.Context, tenant string) ([]NodeRecord, error)

	// Edges returns every edge for a tenant.
	Edges(ctx context.Context, tenant string) ([]EdgeRecord, error)

	// SearchNodes returns nodes whose label contains substring, case-insensitively.
	SearchNodes(ctx context.Context, tenant, substring string) ([]NodeRecord, error)

	// SetCommunity persists the community assignment computed for a node.
	SetCommunity(ctx context.Context, tenant, key string, community int) error

	Close() error
}

// EdgeKey returns the canonical (min, max) ordering for an unordered pair.
func EdgeKey(a, b string) (string, string) {
	if a <= b {
		return a, b
	}
	return b, a
}
