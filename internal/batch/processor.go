// Package batch drives documents through the chunker and LLM provider at
// bounded concurrency, batching multiple chunks into single LLM calls,
// falling back to per-chunk calls on context overflow, and persisting
// resumable progress to disk.
package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"rknowledge/internal/chunker"
	"rknowledge/internal/graph"
	"rknowledge/internal/observability"
	"rknowledge/internal/relations"
)

// ExtractRelationsFunc is the single operation a Processor needs from an
// LLM provider: extract relations from one chunk (or batch) of text.
type ExtractRelationsFunc func(ctx context.Context, text string) ([]relations.Relation, error)

// Document is a single (source, text) pair to process.
type Document struct {
	Source string
	Text   string
}

// overflowIndicators are case-insensitive substrings of an error message
// that signal the provider rejected the request for being too long.
var overflowIndicators = []string{
	"context length",
	"context window",
	"too long",
	"token limit",
	"max tokens",
	"exceeds",
	"context size",
	"input length",
	"too many tokens",
	"sequence length",
}

// IsContextOverflow reports whether err's message looks like a provider
// context-window rejection rather than some other failure.
func IsContextOverflow(err error) bool {
	if err == nil {
		return false
	}
	lower := strings.ToLower(err.Error())
	for _, indicator := range overflowIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}

// processedDoc records a document's last successful processing, keyed by
// source path in the progress file.
type processedDoc struct {
	Hash            string `json:"hash"`
	ChunksProcessed int    `json:"chunks_processed"`
	RelationsCount  int    `json:"relations_count"`
	Timestamp       string `json:"timestamp"`
}

// Processor batches documents through an extraction function at bounded
// concurrency, accumulating relations into a single owned graph.Builder.
// Only the coordinator goroutine (the one running ProcessDocuments)
// touches the builder; worker goroutines only perform I/O and hand their
// results back over a channel, so no locking is needed around the graph.
type Processor struct {
	extract      ExtractRelationsFunc
	chunker      *chunker.AdaptiveChunker
	concurrency  int
	batchSize    int
	progressPath string
	processed    map[string]processedDoc
	builder      *graph.Builder
}

// NewProcessor builds a Processor sized for model's context window.
func NewProcessor(extract ExtractRelationsFunc, model string, concurrency, batchSize int) *Processor {
	if batchSize < 1 {
		batchSize = 1
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Processor{
		extract:     extract,
		chunker:     chunker.ForModel(model),
		concurrency: concurrency,
		batchSize:   batchSize,
		processed:   make(map[string]processedDoc),
		builder:     graph.NewBuilder(),
	}
}

// WithProgressPersistence enables resumable progress tracking alongside
// outputPath, in a ".rknowledge_progress.json" file in the same directory.
func (p *Processor) WithProgressPersistence(outputPath string) *Processor {
	p.progressPath = filepath.Join(filepath.Dir(outputPath), ".rknowledge_progress.json")
	return p
}

// LoadProgress reads a previously saved progress file, if one exists at
// the configured path. A missing file is not an error.
func (p *Processor) LoadProgress() error {
	if p.progressPath == "" {
		return nil
	}
	raw, err := os.ReadFile(p.progressPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("batch: read progress file: %w", err)
	}
	var loaded map[string]processedDoc
	if err := json.Unmarshal(raw, &loaded); err != nil {
		return fmt.Errorf("batch: parse progress file: %w", err)
	}
	p.processed = loaded
	return nil
}

func (p *Processor) saveProgress() error {
	if p.progressPath == "" {
		return nil
	}
	raw, err := json.MarshalIndent(p.processed, "", "  ")
	if err != nil {
		return fmt.Errorf("batch: encode progress: %w", err)
	}
	return os.WriteFile(p.progressPath, raw, 0o644)
}

func contentHash(text string) string {
	return strconv.FormatUint(xxhash.Sum64String(text), 16)
}

func (p *Processor) alreadyProcessed(source, hash string) bool {
	doc, ok := p.processed[source]
	return ok && doc.Hash == hash
}

// Builder returns the accumulated graph builder. Call only after
// ProcessDocuments has returned.
func (p *Processor) Builder() *graph.Builder { return p.builder }

// ProcessDocuments chunks and extracts relations from every document not
// already processed (per the loaded progress file), saving progress every
// 10 documents and once more at the end.
func (p *Processor) ProcessDocuments(ctx context.Context, documents []Document) (int, error) {
	log := observability.LoggerWithTrace(ctx)
	relationCount := 0
	processedCount := 0

	for _, doc := range documents {
		hash := contentHash(doc.Text)
		if p.alreadyProcessed(doc.Source, hash) {
			log.Debug().Str("source", doc.Source).Msg("batch: skipping already-processed document")
			continue
		}

		chunks := p.chunker.Split(doc.Text)
		log.Info().Str("source", doc.Source).Int("chunks", len(chunks)).Msg("batch: processing document")

		groups, err := p.processChunksInBatches(ctx, chunks, doc.Source)
		if err != nil {
			return relationCount, err
		}

		docRelationCount := 0
		for _, grp := range groups {
			p.builder.AddRelations(grp.relations, grp.chunkID)
			docRelationCount += len(grp.relations)
		}
		relationCount += docRelationCount

		p.processed[doc.Source] = processedDoc{
			Hash:            hash,
			ChunksProcessed: len(chunks),
			RelationsCount:  docRelationCount,
			Timestamp:       strconv.FormatInt(time.Now().Unix(), 10),
		}
		processedCount++

		if processedCount%10 == 0 {
			if err := p.saveProgress(); err != nil {
				return relationCount, err
			}
		}
	}

	if err := p.saveProgress(); err != nil {
		return relationCount, err
	}
	return relationCount, nil
}

// relationGroup is a set of relations attributed to one batch (or, on
// overflow fallback, one chunk) for the graph builder's chunk-ID tracking.
type relationGroup struct {
	chunkID   string
	relations []relations.Relation
}

// processChunksInBatches groups chunks into p.batchSize-sized groups,
// processes each group with one extraction call, and falls back to
// per-chunk calls if a batch call fails with a context-overflow error.
// Extraction calls run at bounded concurrency; only this (coordinator)
// goroutine ever touches the caller's graph.Builder, via the returned
// groups.
func (p *Processor) processChunksInBatches(ctx context.Context, chunks []chunker.Chunk, source string) ([]relationGroup, error) {
	log := observability.LoggerWithTrace(ctx)

	type batchResult struct {
		index  int
		groups []relationGroup
	}

	var batches [][]chunker.Chunk
	for i := 0; i < len(chunks); i += p.batchSize {
		end := i + p.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batches = append(batches, chunks[i:end])
	}

	results := make([]batchResult, len(batches))
	resultsCh := make(chan batchResult, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for batchIdx, batch := range batches {
		batchIdx, batch := batchIdx, batch
		g.Go(func() error {
			correlationID := uuid.NewString()
			batchText := formatBatchForProcessing(batch, source, batchIdx)

			rels, err := p.extract(gctx, batchText)
			if err != nil {
				if !IsContextOverflow(err) {
					return fmt.Errorf("batch %d for %s: %w", batchIdx, source, err)
				}
				log.Warn().Str("correlation_id", correlationID).Str("source", source).Int("batch", batchIdx).
					Err(err).Msg("batch: context overflow, falling back to per-chunk processing")
				resultsCh <- batchResult{index: batchIdx, groups: p.processChunksIndividually(gctx, batch, source)}
				return nil
			}
			chunkID := fmt.Sprintf("%s#batch%d", source, batchIdx)
			resultsCh <- batchResult{index: batchIdx, groups: []relationGroup{{chunkID: chunkID, relations: rels}}}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	close(resultsCh)

	for r := range resultsCh {
		results[r.index] = r
	}

	var all []relationGroup
	for _, r := range results {
		all = append(all, r.groups...)
	}
	return all, nil
}

// processChunksIndividually is the overflow fallback: each chunk is sent
// on its own, and a chunk that fails (for any reason) is skipped and
// logged rather than aborting the whole document.
func (p *Processor) processChunksIndividually(ctx context.Context, batch []chunker.Chunk, source string) []relationGroup {
	log := observability.LoggerWithTrace(ctx)
	var groups []relationGroup
	for _, c := range batch {
		rels, err := p.extract(ctx, c.Text)
		if err != nil {
			log.Warn().Str("source", source).Int("chunk", c.ChunkIndex).Err(err).Msg("batch: chunk processing failed, skipping")
			continue
		}
		chunkID := fmt.Sprintf("%s#chunk%d", source, c.ChunkIndex)
		groups = append(groups, relationGroup{chunkID: chunkID, relations: rels})
	}
	return groups
}

// formatBatchForProcessing combines a group of chunks into one payload,
// byte-for-byte compatible with the delimiter scheme the LLM is primed to
// recognize.
func formatBatchForProcessing(batch []chunker.Chunk, source string, batchIdx int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Document: %s (Batch %d)", source, batchIdx)
	sb.WriteString("\n===CHUNK_SEPARATOR===\n")
	for i, c := range batch {
		fmt.Fprintf(&sb, "\n---CHUNK_%d---\n", i)
		sb.WriteString(c.Text)
	}
	sb.WriteString("\n===END_DOCUMENT===\n")
	return sb.String()
}
