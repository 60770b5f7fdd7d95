// Package docselect picks a representative subset of documents out of a
// large corpus: it prioritizes index-like files (README, SKILL, TOC),
// caps how many files come from any one directory, and drops
// auto-generated or too-small documents outright.
package docselect

import (
	"path/filepath"
	"sort"
	"strings"
)

// Document is a single (source path, text) pair considered for selection.
type Document struct {
	Source string
	Text   string
}

// DefaultMaxPerDir is the per-directory cap applied when the caller
// doesn't override it.
const DefaultMaxPerDir = 5

// Threshold is the corpus size above which selection kicks in at all;
// smaller corpora are processed in full.
const Threshold = 100

// Select returns the subset of docs worth processing: sorted by
// descending priority, generated/broken/too-small documents dropped, and
// no more than maxPerDir documents kept from any one directory. If
// maxPerDir <= 0, DefaultMaxPerDir is used.
func Select(docs []Document, maxPerDir int) []Document {
	if maxPerDir <= 0 {
		maxPerDir = DefaultMaxPerDir
	}

	sorted := make([]Document, len(docs))
	copy(sorted, docs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return Priority(sorted[i].Source) > Priority(sorted[j].Source)
	})

	dirCounts := make(map[string]int)
	selected := make([]Document, 0, len(sorted))
	for _, doc := range sorted {
		if ShouldSkip(doc.Source, doc.Text) {
			continue
		}
		dir := filepath.Dir(doc.Source)
		if dirCounts[dir] >= maxPerDir {
			continue
		}
		dirCounts[dir]++
		selected = append(selected, doc)
	}
	return selected
}

// Priority scores a document path; higher means more representative of
// the corpus. Index-like names score highest, generated files are
// penalized, and a plain .md suffix gets a small bonus.
func Priority(path string) int {
	lower := strings.ToLower(path)
	score := 0

	if strings.Contains(lower, "readme") || strings.Contains(lower, "skill") || strings.Contains(lower, "toc") {
		score += 100
	}
	if strings.Contains(lower, "overview") || strings.Contains(lower, "getting-started") {
		score += 50
	}
	if strings.Contains(lower, "example") || strings.Contains(lower, "guide") {
		score += 30
	}
	if strings.Contains(lower, "generated") || strings.Contains(lower, "auto") {
		score -= 50
	}
	if strings.HasSuffix(lower, ".md") {
		score += 10
	}

	return score
}

// ShouldSkip reports whether a document should be dropped outright:
// generated/broken-link/reference-map paths, anything under 100 bytes,
// or a .json data file.
func ShouldSkip(source, text string) bool {
	lower := strings.ToLower(source)
	if strings.Contains(lower, "generated") ||
		strings.Contains(lower, "auto-generated") ||
		strings.Contains(lower, "broken-links") ||
		strings.Contains(lower, "source-reference-map") {
		return true
	}
	if len(text) < 100 {
		return true
	}
	if strings.HasSuffix(lower, ".json") {
		return true
	}
	return false
}
