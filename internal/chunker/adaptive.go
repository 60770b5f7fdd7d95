package chunker

import "strings"

// separators is the structural-to-lexical splitting ladder: paragraph,
// line, sentence-ish punctuation, clause, word, character.
var separators = []string{"\n\n", "\n", ". ", "! ", "? ", "; ", ", ", " ", ""}

// Chunk is a bounded, token-budgeted slice of a document.
type Chunk struct {
	Text            string
	EstimatedTokens int
	ChunkIndex      int
	ParentID        string // set when produced by an overflow re-split
}

// AdaptiveChunker recursively splits text along a separator ladder to fit
// a token budget, seeding each new chunk with trailing overlap from the
// previous one.
type AdaptiveChunker struct {
	TargetTokens  int
	OverlapTokens int
}

// New builds an AdaptiveChunker with an explicit token budget and overlap.
func New(targetTokens, overlapTokens int) *AdaptiveChunker {
	return &AdaptiveChunker{TargetTokens: targetTokens, OverlapTokens: overlapTokens}
}

// ForContextWindow reserves 700 tokens for system prompt and response
// headroom and splits the remainder evenly between the two chunks a
// single LLM call can hold side by side, with 10% overlap.
func ForContextWindow(contextSize int) *AdaptiveChunker {
	const reserved = 700
	safe := contextSize - reserved
	if safe < 0 {
		safe = 0
	}
	target := safe / 2
	overlap := target / 10
	return New(target, overlap)
}

// Split divides text into chunks no larger than TargetTokens where
// possible. Empty or whitespace-only input yields an empty slice; input
// already within budget yields a single chunk of the trimmed text.
func (c *AdaptiveChunker) Split(text string) []Chunk {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	tokens := EstimateTokens(trimmed)
	if tokens <= c.TargetTokens {
		return []Chunk{{Text: trimmed, EstimatedTokens: tokens, ChunkIndex: 0}}
	}
	return c.recursiveSplit(trimmed, 0, 0, "")
}

// SplitWithTarget re-splits text under a different (typically smaller)
// token budget, with an overlap of a tenth of that budget.
func (c *AdaptiveChunker) SplitWithTarget(text string, targetTokens int) []Chunk {
	tmp := New(targetTokens, targetTokens/10)
	return tmp.Split(text)
}

func (c *AdaptiveChunker) recursiveSplit(text string, separatorIdx, chunkIndex int, parentID string) []Chunk {
	if separatorIdx >= len(separators) {
		return c.splitByWords(text, chunkIndex, parentID)
	}

	sep := separators[separatorIdx]
	var parts []string
	if sep == "" {
		parts = splitChars(text)
	} else {
		parts = strings.Split(text, sep)
	}

	var chunks []Chunk
	var buf strings.Builder
	bufTokens := 0
	idx := chunkIndex

	flush := func(trimTrailing bool) {
		s := buf.String()
		if trimTrailing {
			s = strings.TrimSpace(s)
		}
		if s == "" {
			return
		}
		t := EstimateTokens(s)
		if t > c.TargetTokens {
			chunks = append(chunks, c.recursiveSplit(s, separatorIdx+1, idx, parentID)...)
			if n := len(chunks); n > 0 {
				idx = chunks[n-1].ChunkIndex + 1
			}
			return
		}
		chunks = append(chunks, Chunk{Text: s, EstimatedTokens: t, ChunkIndex: idx, ParentID: parentID})
		idx++
	}

	for i, part := range parts {
		withSep := part
		if i < len(parts)-1 && sep != "" {
			withSep = part + sep
		}
		partTokens := EstimateTokens(withSep)

		if bufTokens+partTokens > c.TargetTokens && buf.Len() > 0 {
			flush(true)

			overlapText := ""
			if len(chunks) > 0 && c.OverlapTokens > 0 {
				overlapText = c.overlapText(chunks[len(chunks)-1].Text)
			}

			buf.Reset()
			buf.WriteString(overlapText)
			buf.WriteString(withSep)
			bufTokens = EstimateTokens(buf.String())
			continue
		}

		buf.WriteString(withSep)
		bufTokens += partTokens
	}

	flush(true)
	return chunks
}

// splitByWords is the last-resort packer used once the separator ladder
// is exhausted and a piece is still over budget.
func (c *AdaptiveChunker) splitByWords(text string, chunkIndex int, parentID string) []Chunk {
	words := strings.Fields(text)
	var chunks []Chunk
	var cur []string
	curTokens := 0
	idx := chunkIndex

	wordTokens := func(w string) int { return int(float64(len(w))*0.5) + 1 }

	for _, w := range words {
		wt := wordTokens(w)
		if curTokens+wt > c.TargetTokens && len(cur) > 0 {
			text := strings.Join(cur, " ")
			chunks = append(chunks, Chunk{Text: text, EstimatedTokens: EstimateTokens(text), ChunkIndex: idx, ParentID: parentID})
			idx++

			overlapCount := 0
			if c.OverlapTokens > 0 {
				overlapCount = c.OverlapTokens / 2
				if overlapCount < 5 {
					overlapCount = 5
				}
				if overlapCount > len(cur) {
					overlapCount = len(cur)
				}
			}
			overlap := append([]string{}, cur[len(cur)-overlapCount:]...)

			cur = append(overlap, w)
			curTokens = 0
			for _, ow := range cur {
				curTokens += wordTokens(ow)
			}
			continue
		}
		cur = append(cur, w)
		curTokens += wt
	}

	if len(cur) > 0 {
		text := strings.Join(cur, " ")
		chunks = append(chunks, Chunk{Text: text, EstimatedTokens: curTokens, ChunkIndex: idx, ParentID: parentID})
	}
	return chunks
}

// overlapText returns the trailing max(5, OverlapTokens/2) words of text,
// with a single trailing space so it concatenates directly with the next piece.
func (c *AdaptiveChunker) overlapText(text string) string {
	words := strings.Fields(text)
	n := c.OverlapTokens / 2
	if n < 5 {
		n = 5
	}
	if n > len(words) {
		n = len(words)
	}
	if n == 0 {
		return ""
	}
	return strings.Join(words[len(words)-n:], " ") + " "
}

func splitChars(s string) []string {
	runes := []rune(s)
	out := make([]string, len(runes))
	for i, r := range runes {
		out[i] = string(r)
	}
	return out
}
