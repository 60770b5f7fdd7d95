package relations

import (
	"context"
	"testing"
)

func TestExtractJSONArrayClean(t *testing.T) {
	in := `[{"node_1":"a","node_2":"b","edge":"r"}]`
	if got := ExtractJSONArray(in); got != in {
		t.Errorf("ExtractJSONArray() = %q, want unchanged", got)
	}
}

func TestExtractJSONArrayLeadingProse(t *testing.T) {
	in := `Here is the answer: [{"node_1":"a","node_2":"b","edge":"r"}]`
	want := `[{"node_1":"a","node_2":"b","edge":"r"}]`
	if got := ExtractJSONArray(in); got != want {
		t.Errorf("ExtractJSONArray() = %q, want %q", got, want)
	}
}

func TestExtractJSONArrayTrailingProse(t *testing.T) {
	in := `[{"node_1":"a","node_2":"b","edge":"r"}] Thanks!`
	want := `[{"node_1":"a","node_2":"b","edge":"r"}]`
	if got := ExtractJSONArray(in); got != want {
		t.Errorf("ExtractJSONArray() = %q, want %q", got, want)
	}
}

func TestExtractJSONArrayFencedWithLanguage(t *testing.T) {
	in := "Here is the answer:\n```json\n[{\"node_1\":\"A\",\"node_2\":\"B\",\"edge\":\"r\"}]\n```\nThanks!"
	want := `[{"node_1":"A","node_2":"B","edge":"r"}]`
	if got := ExtractJSONArray(in); got != want {
		t.Errorf("ExtractJSONArray() = %q, want %q", got, want)
	}
}

func TestExtractJSONArrayFencedPlain(t *testing.T) {
	in := "```\n[{\"node_1\":\"A\",\"node_2\":\"B\",\"edge\":\"r\"}]\n```"
	want := `[{"node_1":"A","node_2":"B","edge":"r"}]`
	if got := ExtractJSONArray(in); got != want {
		t.Errorf("ExtractJSONArray() = %q, want %q", got, want)
	}
}

func TestExtractJSONArrayNestedBracketsInStrings(t *testing.T) {
	in := `[{"node_1":"a[1]","node_2":"b","edge":"r"}]`
	if got := ExtractJSONArray(in); got != in {
		t.Errorf("ExtractJSONArray() = %q, want unchanged", got)
	}
}

func TestExtractJSONArrayIdempotent(t *testing.T) {
	in := "Here is the answer:\n```json\n[{\"node_1\":\"A\",\"node_2\":\"B\",\"edge\":\"r\"}]\n```\nThanks!"
	once := ExtractJSONArray(in)
	twice := ExtractJSONArray(once)
	if once != twice {
		t.Errorf("extract not idempotent: %q != %q", once, twice)
	}
}

func TestExtractJSONArrayNoJSON(t *testing.T) {
	in := "I could not find any relations in this text."
	if got := ExtractJSONArray(in); got != in {
		t.Errorf("ExtractJSONArray() = %q, want raw fallback unchanged", got)
	}
}

func TestParseRelationsValid(t *testing.T) {
	ctx := context.Background()
	reply := `[{"node_1":"Rust","node_1_type":"Language","node_2":"Tokio","node_2_type":"Framework","edge":"powers"}]`
	got := ParseRelations(ctx, reply)
	if len(got) != 1 {
		t.Fatalf("len(got) = %d, want 1", len(got))
	}
	r := got[0]
	if r.Node1 != "rust" || r.Node2 != "tokio" || r.Node1Type != "language" || r.Edge != "powers" {
		t.Errorf("relation = %+v, want lowercased canonical fields", r)
	}
}

func TestParseRelationsFiltersEmptyNodes(t *testing.T) {
	reply := `[{"node_1":"","node_2":"b","edge":"r"},{"node_1":"a","node_2":"b","edge":"r"}]`
	got := ParseRelations(context.Background(), reply)
	if len(got) != 1 {
		t.Fatalf("len(got) = %d, want 1 (empty-node record dropped)", len(got))
	}
}

func TestParseRelationsFiltersSelfLoops(t *testing.T) {
	reply := `[{"node_1":"A","node_2":"a","edge":"r"}]`
	got := ParseRelations(context.Background(), reply)
	if len(got) != 0 {
		t.Errorf("len(got) = %d, want 0 (self-loop dropped case-insensitively)", len(got))
	}
}

func TestParseRelationsInvalidJSONReturnsEmpty(t *testing.T) {
	got := ParseRelations(context.Background(), "not json at all")
	if got != nil {
		t.Errorf("got %+v, want nil", got)
	}
}

func TestParseRelationsEmptyArray(t *testing.T) {
	got := ParseRelations(context.Background(), "[]")
	if len(got) != 0 {
		t.Errorf("len(got) = %d, want 0", len(got))
	}
}

func TestParseRelationsProseWrapped(t *testing.T) {
	reply := "Here is the answer:\n```json\n[{\"node_1\":\"A\",\"node_2\":\"B\",\"edge\":\"r\"}]\n```\nThanks!"
	got := ParseRelations(context.Background(), reply)
	if len(got) != 1 || got[0].Node1 != "a" || got[0].Node2 != "b" {
		t.Errorf("got %+v", got)
	}
}

func TestParseRelationsPreservesUnicode(t *testing.T) {
	reply := `[{"node_1":"café","node_2":"b","edge":"r"}]`
	got := ParseRelations(context.Background(), reply)
	if len(got) != 1 || got[0].Node1 != "café" {
		t.Errorf("got %+v, want café preserved", got)
	}
}

func TestCanonicalKey(t *testing.T) {
	if got := CanonicalKey("  Rust  "); got != "rust" {
		t.Errorf("CanonicalKey() = %q, want rust", got)
	}
}
