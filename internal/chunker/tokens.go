// Package chunker splits document text into LLM-context-sized pieces.
package chunker

import "math"

// EstimateTokens approximates the token count of s as ceil(len(s)/4), a
// conservative heuristic used only to size chunks — never to enforce a
// provider's real context limit.
func EstimateTokens(s string) int {
	if s == "" {
		return 0
	}
	return int(math.Ceil(float64(len(s)) / 4.0))
}
