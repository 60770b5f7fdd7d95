// Package relations parses free-form LLM output into relation records and
// defines the canonicalization rule shared by the graph builder.
package relations

import "strings"

// Relation is one extracted edge between two concepts.
type Relation struct {
	Node1     string `json:"node_1"`
	Node1Type string `json:"node_1_type,omitempty"`
	Node2     string `json:"node_2"`
	Node2Type string `json:"node_2_type,omitempty"`
	Edge      string `json:"edge"`
}

// CanonicalKey returns a concept label's canonical identity: lowercase,
// trimmed. All node equality and uniqueness operate on this key.
func CanonicalKey(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}
