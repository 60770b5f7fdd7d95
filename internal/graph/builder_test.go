package graph

import (
	"testing"

	"rknowledge/internal/relations"
)

func rel(n1, n2, edge string) relations.Relation {
	return relations.Relation{Node1: n1, Node2: n2, Edge: edge}
}

func findEdge(edges []Edge, a, b string) (Edge, bool) {
	for _, e := range edges {
		if (e.Source == a && e.Target == b) || (e.Source == b && e.Target == a) {
			return e, true
		}
	}
	return Edge{}, false
}

func TestAddRelationsBasic(t *testing.T) {
	b := NewBuilder()
	b.AddRelations([]relations.Relation{rel("a", "b", "links to")}, "c1")
	edges := b.Edges()
	if len(edges) != 1 {
		t.Fatalf("len(edges) = %d, want 1", len(edges))
	}
	if edges[0].Weight != 4.0 {
		t.Errorf("weight = %v, want 4.0", edges[0].Weight)
	}
}

func TestNodeDeduplicationCaseInsensitive(t *testing.T) {
	b := NewBuilder()
	b.AddRelations([]relations.Relation{{Node1: "Rust", Node2: "Tokio", Edge: "runs"}}, "c1")
	b.AddRelations([]relations.Relation{{Node1: "tokio", Node2: "RUST", Edge: "powers"}}, "c2")

	edges := b.Edges()
	if len(edges) != 1 {
		t.Fatalf("len(edges) = %d, want 1 (deduplicated pair)", len(edges))
	}
	e := edges[0]
	if e.Weight != 8.0 {
		t.Errorf("weight = %v, want 8.0", e.Weight)
	}
	if len(e.ChunkIDs) != 2 {
		t.Errorf("chunk_ids = %v, want both c1 and c2", e.ChunkIDs)
	}
	if e.Relation != "runs" {
		t.Errorf("relation = %q, want first relation 'runs'", e.Relation)
	}
}

func TestSelfLoopSkipped(t *testing.T) {
	b := NewBuilder()
	b.AddRelations([]relations.Relation{rel("a", "a", "loops")}, "c1")
	if len(b.Edges()) != 0 {
		t.Errorf("self-loop should be skipped, got %v", b.Edges())
	}
	if len(b.Nodes()) != 0 {
		t.Errorf("self-loop should register no nodes, got %v", b.Nodes())
	}
}

func TestEmptyNodeSkipped(t *testing.T) {
	b := NewBuilder()
	b.AddRelations([]relations.Relation{rel("", "b", "r")}, "c1")
	if len(b.Edges()) != 0 {
		t.Errorf("empty-node relation should be skipped, got %v", b.Edges())
	}
}

func TestEdgeWeightAccumulates(t *testing.T) {
	b := NewBuilder()
	b.AddRelations([]relations.Relation{rel("a", "b", "r1")}, "c1")
	b.AddRelations([]relations.Relation{rel("a", "b", "r2")}, "c2")
	e, ok := findEdge(b.Edges(), "a", "b")
	if !ok {
		t.Fatal("edge not found")
	}
	if e.Weight != 8.0 {
		t.Errorf("weight = %v, want 8.0", e.Weight)
	}
}

func TestEdgeDirectionNormalized(t *testing.T) {
	b := NewBuilder()
	b.AddRelations([]relations.Relation{rel("zebra", "apple", "r")}, "c1")
	edges := b.Edges()
	if edges[0].Source != "apple" || edges[0].Target != "zebra" {
		t.Errorf("edge = %+v, want canonical (apple, zebra) ordering", edges[0])
	}
}

func TestContextualProximityCreatesEdges(t *testing.T) {
	b := NewBuilder()
	b.AddRelations([]relations.Relation{rel("a", "b", "links to"), rel("a", "c", "cites")}, "ch1")
	b.CalculateContextualProximity()

	edges := b.Edges()
	if len(edges) != 3 {
		t.Fatalf("len(edges) = %d, want 3", len(edges))
	}
	ab, _ := findEdge(edges, "a", "b")
	ac, _ := findEdge(edges, "a", "c")
	bc, _ := findEdge(edges, "b", "c")

	if ab.Weight != 5.0 || ab.Relation != "links to" {
		t.Errorf("edge a-b = %+v, want weight 5.0 relation 'links to'", ab)
	}
	if ac.Weight != 5.0 || ac.Relation != "cites" {
		t.Errorf("edge a-c = %+v, want weight 5.0 relation 'cites'", ac)
	}
	if bc.Weight != 1.0 || bc.Relation != "contextual proximity" {
		t.Errorf("edge b-c = %+v, want weight 1.0 relation 'contextual proximity'", bc)
	}
}

func TestContextualProximityAcrossChunks(t *testing.T) {
	b := NewBuilder()
	b.AddRelations([]relations.Relation{rel("a", "b", "r")}, "c1")
	b.AddRelations([]relations.Relation{rel("c", "d", "r")}, "c2")
	b.CalculateContextualProximity()

	if _, ok := findEdge(b.Edges(), "a", "c"); ok {
		t.Error("proximity should not cross unrelated chunks")
	}
}

func TestGetNodesDegree(t *testing.T) {
	b := NewBuilder()
	b.AddRelations([]relations.Relation{rel("a", "b", "r"), rel("a", "c", "r")}, "c1")
	nodes := b.Nodes()
	degree := make(map[string]int)
	for _, n := range nodes {
		degree[n.ID] = n.Degree
	}
	if degree["a"] != 2 {
		t.Errorf("degree(a) = %d, want 2", degree["a"])
	}
	if degree["b"] != 1 || degree["c"] != 1 {
		t.Errorf("degree(b)=%d degree(c)=%d, want 1 each", degree["b"], degree["c"])
	}
}

func TestGetEdgesPrefersExplicitOverProximity(t *testing.T) {
	b := NewBuilder()
	b.AddRelations([]relations.Relation{rel("a", "b", "r")}, "c1")
	b.CalculateContextualProximity()
	b.AddRelations([]relations.Relation{rel("a", "b", "explicit")}, "c2")

	e, _ := findEdge(b.Edges(), "a", "b")
	if e.Relation != "r" {
		t.Errorf("relation = %q, want first non-proximity phrase 'r'", e.Relation)
	}
}

func TestChunkIDsTracked(t *testing.T) {
	b := NewBuilder()
	b.AddRelations([]relations.Relation{rel("a", "b", "r")}, "c1")
	b.AddRelations([]relations.Relation{rel("a", "b", "r2")}, "c2")
	e, _ := findEdge(b.Edges(), "a", "b")
	if len(e.ChunkIDs) != 2 {
		t.Errorf("chunk_ids = %v, want 2 entries", e.ChunkIDs)
	}
}

func TestEnsureNodeRegistersIsolatedNode(t *testing.T) {
	b := NewBuilder()
	b.EnsureNode("solo")
	nodes := b.Nodes()
	if len(nodes) != 1 || nodes[0].ID != "solo" || nodes[0].Degree != 0 {
		t.Errorf("nodes = %+v, want single isolated 'solo' node with degree 0", nodes)
	}
}

func TestLargeGraph(t *testing.T) {
	b := NewBuilder()
	for i := 0; i < 100; i++ {
		b.AddRelations([]relations.Relation{{Node1: "n", Node2: "m", Edge: "r"}}, "chunk")
	}
	e, ok := findEdge(b.Edges(), "n", "m")
	if !ok {
		t.Fatal("edge not found")
	}
	if e.Weight != 400.0 {
		t.Errorf("weight = %v, want 400.0", e.Weight)
	}
}
