package relations

import (
	"context"
	"encoding/json"
	"strings"

	"rknowledge/internal/observability"
)

// ParseRelations extracts well-formed relations from a free-form LLM
// reply. It never fails: on unparseable input it returns an empty slice
// and logs a warning through the context's logger.
func ParseRelations(ctx context.Context, reply string) []Relation {
	jsonText := ExtractJSONArray(reply)

	var raw []Relation
	if err := json.Unmarshal([]byte(jsonText), &raw); err != nil {
		observability.LoggerWithTrace(ctx).Warn().
			Err(err).
			Str("extracted", truncate(jsonText, 200)).
			Msg("relation parser: could not decode LLM reply as a JSON relation array")
		return nil
	}

	out := make([]Relation, 0, len(raw))
	for _, r := range raw {
		n1 := CanonicalKey(r.Node1)
		n2 := CanonicalKey(r.Node2)
		edge := strings.TrimSpace(r.Edge)
		if n1 == "" || n2 == "" || n1 == n2 {
			continue
		}
		out = append(out, Relation{
			Node1:     n1,
			Node1Type: strings.ToLower(strings.TrimSpace(r.Node1Type)),
			Node2:     n2,
			Node2Type: strings.ToLower(strings.TrimSpace(r.Node2Type)),
			Edge:      edge,
		})
	}
	return out
}

// ExtractJSONArray pulls a JSON array substring out of arbitrary LLM
// prose: it strips a fenced code block if present, then locates the
// array via a string/escape-aware bracket scanner. It is idempotent on
// its own output.
func ExtractJSONArray(s string) string {
	s = strings.TrimSpace(s)
	s = stripCodeFences(s)

	if strings.HasPrefix(s, "[") {
		if end := findMatchingBracket(s, 0); end >= 0 {
			return s[:end+1]
		}
		return s
	}

	if idx := strings.Index(s, "["); idx >= 0 {
		if end := findMatchingBracket(s, idx); end >= 0 {
			return s[idx : end+1]
		}
	}
	return s
}

// stripCodeFences removes a single surrounding ```lang\n...\n``` or
// ```\n...\n``` block, if the trimmed text is wrapped in one.
func stripCodeFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	rest := s[3:]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		// Drop an optional language tag on the opening fence line.
		rest = rest[nl+1:]
	}
	if end := strings.LastIndex(rest, "```"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}

// findMatchingBracket returns the index of the `]` matching the `[` at
// start, honoring double-quoted string literals and backslash escapes.
// Returns -1 if unmatched.
func findMatchingBracket(s string, start int) int {
	depth := 0
	inString := false
	escapeNext := false

	for i := start; i < len(s); i++ {
		c := s[i]
		if escapeNext {
			escapeNext = false
			continue
		}
		if inString {
			switch c {
			case '\\':
				escapeNext = true
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
