package graphstore

import (
	"context"
	"sort"
	"strings"
	"sync"
)

type edgeKey struct{ source, target string }

type tenantGraph struct {
	nodes map[string]NodeRecord
	edges map[edgeKey]EdgeRecord
}

// MemoryGraph is an in-process GraphStore, mainly used for tests and for
// running against a single document set without a database.
type MemoryGraph struct {
	mu      sync.RWMutex
	tenants map[string]*tenantGraph
}

// NewMemoryGraph returns an empty MemoryGraph.
func NewMemoryGraph() *MemoryGraph {
	return &MemoryGraph{tenants: make(map[string]*tenantGraph)}
}

func (m *MemoryGraph) tenantGraph(tenant string) *tenantGraph {
	g, ok := m.tenants[tenant]
	if !ok {
		g = &tenantGraph{nodes: make(map[string]NodeRecord), edges: make(map[edgeKey]EdgeRecord)}
		m.tenants[tenant] = g
	}
	return g
}

func (m *MemoryGraph) UpsertNode(_ context.Context, tenant string, node NodeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g := m.tenantGraph(tenant)
	existing, ok := g.nodes[node.Key]
	if !ok {
		g.nodes[node.Key] = node
		return nil
	}
	if node.Label != "" {
		existing.Label = node.Label
	}
	if node.EntityType != "" {
		existing.EntityType = node.EntityType
	}
	g.nodes[node.Key] = existing
	return nil
}

func (m *MemoryGraph) UpsertEdge(_ context.Context, tenant string, edge EdgeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g := m.tenantGraph(tenant)
	src, dst := EdgeKey(edge.SourceKey, edge.TargetKey)
	key := edgeKey{source: src, target: dst}

	existing, ok := g.edges[key]
	if !ok {
		g.edges[key] = EdgeRecord{
			SourceKey: src,
			TargetKey: dst,
			Relation:  edge.Relation,
			Weight:    edge.Weight,
			ChunkIDs:  append([]string{}, edge.ChunkIDs...),
		}
		return nil
	}
	existing.Weight += edge.Weight
	if existing.Relation == "" || existing.Relation == "related" {
		if edge.Relation != "" {
			existing.Relation = edge.Relation
		}
	}
	existing.ChunkIDs = unionStrings(existing.ChunkIDs, edge.ChunkIDs)
	g.edges[key] = existing
	return nil
}

func (m *MemoryGraph) Nodes(_ context.Context, tenant string) ([]NodeRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.tenants[tenant]
	if !ok {
		return nil, nil
	}
	out := make([]NodeRecord, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *MemoryGraph) Edges(_ context.Context, tenant string) ([]EdgeRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.tenants[tenant]
	if !ok {
		return nil, nil
	}
	out := make([]EdgeRecord, 0, len(g.edges))
	for _, e := range g.edges {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SourceKey != out[j].SourceKey {
			return out[i].SourceKey < out[j].SourceKey
		}
		return out[i].TargetKey < out[j].TargetKey
	})
	return out, nil
}

func (m *MemoryGraph) SearchNodes(_ context.Context, tenant, substring string) ([]NodeRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.tenants[tenant]
	if !ok {
		return nil, nil
	}
	needle := strings.ToLower(substring)
	var out []NodeRecord
	for _, n := range g.nodes {
		if strings.Contains(strings.ToLower(n.Label), needle) {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *MemoryGraph) SetCommunity(_ context.Context, tenant, key string, community int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g := m.tenantGraph(tenant)
	n, ok := g.nodes[key]
	if !ok {
		return nil
	}
	n.Community = community
	g.nodes[key] = n
	return nil
}

func (m *MemoryGraph) Close() error { return nil }

func unionStrings(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range a {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	for _, s := range b {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}
