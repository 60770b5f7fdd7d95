// Package graph assembles extracted relations into a weighted,
// canonicalized concept graph, and projects it for storage or analytics.
package graph

import (
	"sort"

	"rknowledge/internal/community"
	"rknowledge/internal/relations"
)

// pairKey is the unordered canonical ordering (min, max) of two node keys.
type pairKey struct{ a, b string }

func newPairKey(a, b string) pairKey {
	if a <= b {
		return pairKey{a, b}
	}
	return pairKey{b, a}
}

// edgeData is the builder's internal aggregate for one node pair.
type edgeData struct {
	relations []string
	weight    float64
	chunkIDs  map[string]struct{}
}

// Node is the public, projected view of a graph entity.
type Node struct {
	ID         string
	Label      string
	Degree     int
	Community  int
	EntityType string
}

// Edge is the public, projected view of an aggregated pair.
type Edge struct {
	Source   string
	Target   string
	Relation string
	Weight   float64
	ChunkIDs []string
}

// Builder accumulates relations into a graph. It is not safe for
// concurrent use: a single coordinator owns it and calls AddRelations
// serially as worker results complete, which preserves commutativity
// without a lock (spec §5).
type Builder struct {
	nodeTypes  map[string]string
	nodeChunks map[string]map[string]struct{}
	edges      map[pairKey]*edgeData
	nodeOrder  []string
	nodeSeen   map[string]struct{}
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		nodeTypes:  make(map[string]string),
		nodeChunks: make(map[string]map[string]struct{}),
		edges:      make(map[pairKey]*edgeData),
		nodeSeen:   make(map[string]struct{}),
	}
}

// EnsureNode idempotently registers an isolated node, used when
// rehydrating a graph from the store before running analytics.
func (b *Builder) EnsureNode(key string) {
	b.registerNode(key)
}

func (b *Builder) registerNode(key string) {
	if _, ok := b.nodeSeen[key]; ok {
		return
	}
	b.nodeSeen[key] = struct{}{}
	b.nodeOrder = append(b.nodeOrder, key)
}

// AddRelations folds a batch of extracted relations, all drawn from the
// same chunk, into the aggregate. Self-loops and empty nodes are skipped
// (the relations package already filters these, but AddRelations
// re-checks so callers can feed it raw data too).
func (b *Builder) AddRelations(rels []relations.Relation, chunkID string) {
	for _, r := range rels {
		n1, n2 := relations.CanonicalKey(r.Node1), relations.CanonicalKey(r.Node2)
		if n1 == "" || n2 == "" || n1 == n2 {
			continue
		}
		b.registerNode(n1)
		b.registerNode(n2)

		if r.Node1Type != "" {
			b.nodeTypes[n1] = r.Node1Type
		}
		if r.Node2Type != "" {
			b.nodeTypes[n2] = r.Node2Type
		}

		b.recordChunk(n1, chunkID)
		b.recordChunk(n2, chunkID)

		key := newPairKey(n1, n2)
		e := b.edgeFor(key)
		e.relations = append(e.relations, r.Edge)
		e.weight += 4.0
		e.chunkIDs[chunkID] = struct{}{}
	}
}

func (b *Builder) recordChunk(key, chunkID string) {
	set, ok := b.nodeChunks[key]
	if !ok {
		set = make(map[string]struct{})
		b.nodeChunks[key] = set
	}
	set[chunkID] = struct{}{}
}

func (b *Builder) edgeFor(key pairKey) *edgeData {
	e, ok := b.edges[key]
	if !ok {
		e = &edgeData{chunkIDs: make(map[string]struct{})}
		b.edges[key] = e
	}
	return e
}

// CalculateContextualProximity synthesizes "contextual proximity" edges
// (weight +1.0) between every distinct pair of keys that co-occurred in
// the same chunk. The phrase is appended at most once per pair, and only
// if the pair has no non-proximity relation recorded at the moment of
// addition — implementers must not reproduce the source's redundant
// "already present" double-check (spec §9).
func (b *Builder) CalculateContextualProximity() {
	chunkKeys := make(map[string][]string)
	for key, chunks := range b.nodeChunks {
		for chunkID := range chunks {
			chunkKeys[chunkID] = append(chunkKeys[chunkID], key)
		}
	}

	for chunkID, keys := range chunkKeys {
		sort.Strings(keys)
		for i := 0; i < len(keys); i++ {
			for j := i + 1; j < len(keys); j++ {
				a, bKey := keys[i], keys[j]
				if a == bKey {
					continue
				}
				key := newPairKey(a, bKey)
				e := b.edgeFor(key)
				e.weight += 1.0
				e.chunkIDs[chunkID] = struct{}{}
				if !hasNonProximity(e.relations) && !containsString(e.relations, "contextual proximity") {
					e.relations = append(e.relations, "contextual proximity")
				}
			}
		}
	}
}

func hasNonProximity(rels []string) bool {
	for _, r := range rels {
		if r != "contextual proximity" {
			return true
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Nodes projects the current state into public Node records, with degree
// computed from the edge set and community computed by running
// label propagation over the built undirected projection.
func (b *Builder) Nodes() []Node {
	degree := make(map[string]int, len(b.nodeOrder))
	for key := range b.edges {
		degree[key.a]++
		degree[key.b]++
	}

	communities := b.communities()

	out := make([]Node, 0, len(b.nodeOrder))
	for _, key := range b.nodeOrder {
		out = append(out, Node{
			ID:         key,
			Label:      key,
			Degree:     degree[key],
			Community:  communities[key],
			EntityType: b.nodeTypes[key],
		})
	}
	return out
}

// Edges projects the current state into public Edge records, selecting a
// single representative relation phrase per pair per the §3 rule: first
// non-proximity phrase if any, else "contextual proximity" if present,
// else "related".
func (b *Builder) Edges() []Edge {
	out := make([]Edge, 0, len(b.edges))
	for key, e := range b.edges {
		out = append(out, Edge{
			Source:   key.a,
			Target:   key.b,
			Relation: representativeRelation(e.relations),
			Weight:   e.weight,
			ChunkIDs: chunkIDSlice(e.chunkIDs),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Source != out[j].Source {
			return out[i].Source < out[j].Source
		}
		return out[i].Target < out[j].Target
	})
	return out
}

func representativeRelation(rels []string) string {
	for _, r := range rels {
		if r != "contextual proximity" {
			return r
		}
	}
	if containsString(rels, "contextual proximity") {
		return "contextual proximity"
	}
	return "related"
}

func chunkIDSlice(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// communities runs weighted label propagation on the undirected
// projection built from the current edge set.
func (b *Builder) communities() map[string]int {
	g := community.NewGraph()
	for _, key := range b.nodeOrder {
		g.AddNode(key)
	}
	for key, e := range b.edges {
		g.AddEdge(key.a, key.b, e.weight)
	}
	return g.LabelPropagation(50)
}
