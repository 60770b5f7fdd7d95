package chunker

import "strings"

type contextEntry struct {
	pattern string
	size    int
}

// modelContextTable is matched case-insensitively, first match wins, in
// the order listed here.
var modelContextTable = []contextEntry{
	{"claude-3-", 200_000},
	{"gpt-4o", 128_000},
	{"gpt-4", 8_192},
	{"gpt-3.5", 16_385},
	{"gemini", 1_048_576},
	{"llama3.3", 128_000},
	{"llama3.2", 8_192},
	{"mistral", 32_768},
	{"qwen2.5:72b", 32_768},
	{"qwen2.5:7b", 32_768},
	{"qwen2.5:3b", 8_192},
	{"gemma2:9b", 8_192},
	{"gemma2:2b", 4_096},
	{"phi3:mini", 4_096},
}

const defaultContextSize = 4_096

// ContextSizeForModel looks up the known context window for model using a
// case-insensitive substring match, falling back to a conservative default
// for unrecognized model names.
func ContextSizeForModel(model string) int {
	lower := strings.ToLower(model)
	for _, e := range modelContextTable {
		if strings.Contains(lower, e.pattern) {
			return e.size
		}
	}
	return defaultContextSize
}

// ForModel builds an AdaptiveChunker sized for the given model's context window.
func ForModel(model string) *AdaptiveChunker {
	return ForContextWindow(ContextSizeForModel(model))
}
