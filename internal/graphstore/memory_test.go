package graphstore

import (
	"context"
	"testing"
)

func TestMemoryGraphUpsertNodePreservesExistingWhenIncomingEmpty(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGraph()

	if err := g.UpsertNode(ctx, "t1", NodeRecord{Key: "acme", Label: "Acme", EntityType: "org"}); err != nil {
		t.Fatal(err)
	}
	if err := g.UpsertNode(ctx, "t1", NodeRecord{Key: "acme", Label: "", EntityType: ""}); err != nil {
		t.Fatal(err)
	}

	nodes, err := g.Nodes(ctx, "t1")
	if err != nil {
		t.Fatal(err)
	}
	if len(nodes) != 1 {
		t.Fatalf("expected 1 node, got %d", len(nodes))
	}
	if nodes[0].Label != "Acme" || nodes[0].EntityType != "org" {
		t.Errorf("node = %+v, want label Acme / type org preserved", nodes[0])
	}
}

func TestMemoryGraphUpsertEdgeAccumulatesWeight(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGraph()

	if err := g.UpsertEdge(ctx, "t1", EdgeRecord{SourceKey: "bob", TargetKey: "acme", Relation: "works at", Weight: 4.0, ChunkIDs: []string{"c1"}}); err != nil {
		t.Fatal(err)
	}
	if err := g.UpsertEdge(ctx, "t1", EdgeRecord{SourceKey: "acme", TargetKey: "bob", Relation: "related", Weight: 1.0, ChunkIDs: []string{"c2"}}); err != nil {
		t.Fatal(err)
	}

	edges, err := g.Edges(ctx, "t1")
	if err != nil {
		t.Fatal(err)
	}
	if len(edges) != 1 {
		t.Fatalf("expected a single canonicalized edge, got %d", len(edges))
	}
	e := edges[0]
	if e.SourceKey != "acme" || e.TargetKey != "bob" {
		t.Errorf("edge keys not canonicalized: %+v", e)
	}
	if e.Weight != 5.0 {
		t.Errorf("weight = %v, want 5.0", e.Weight)
	}
	if e.Relation != "works at" {
		t.Errorf("relation = %q, want explicit relation retained over proximity default", e.Relation)
	}
	if len(e.ChunkIDs) != 2 {
		t.Errorf("chunk ids = %v, want union of both upserts", e.ChunkIDs)
	}
}

func TestMemoryGraphSearchNodesIsCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGraph()
	_ = g.UpsertNode(ctx, "t1", NodeRecord{Key: "acme corp", Label: "Acme Corp"})
	_ = g.UpsertNode(ctx, "t1", NodeRecord{Key: "bob", Label: "Bob"})

	found, err := g.SearchNodes(ctx, "t1", "ACME")
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 1 || found[0].Key != "acme corp" {
		t.Errorf("SearchNodes() = %+v, want acme corp only", found)
	}
}

func TestMemoryGraphTenantsAreIsolated(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGraph()
	_ = g.UpsertNode(ctx, "t1", NodeRecord{Key: "a", Label: "A"})
	_ = g.UpsertNode(ctx, "t2", NodeRecord{Key: "b", Label: "B"})

	t1Nodes, _ := g.Nodes(ctx, "t1")
	t2Nodes, _ := g.Nodes(ctx, "t2")
	if len(t1Nodes) != 1 || t1Nodes[0].Key != "a" {
		t.Errorf("t1 nodes = %+v", t1Nodes)
	}
	if len(t2Nodes) != 1 || t2Nodes[0].Key != "b" {
		t.Errorf("t2 nodes = %+v", t2Nodes)
	}
}

func TestMemoryGraphSetCommunity(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGraph()
	_ = g.UpsertNode(ctx, "t1", NodeRecord{Key: "a", Label: "A"})
	if err := g.SetCommunity(ctx, "t1", "a", 3); err != nil {
		t.Fatal(err)
	}
	nodes, _ := g.Nodes(ctx, "t1")
	if nodes[0].Community != 3 {
		t.Errorf("community = %d, want 3", nodes[0].Community)
	}
}

func TestEdgeKeyOrdering(t *testing.T) {
	a, b := EdgeKey("zebra", "apple")
	if a != "apple" || b != "zebra" {
		t.Errorf("EdgeKey() = (%q, %q), want (apple, zebra)", a, b)
	}
}
