package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/textsplitter"

	"github.com/docqa-ai/docqa-go/internal/logging"
	"github.com/docqa-ai/docqa-go/internal/rag"
	"github.com/docqa-ai/docqa-go/internal/store"
)

// ChunkCatalog is the slice of the session store the pipeline writes chunk
// rows to. *store.SQLiteStore satisfies it.
type ChunkCatalog interface {
	ReplaceSource(ctx context.Context, source string, chunks []store.Chunk) error
}

// Config holds the configuration for the ingestion pipeline.
type Config struct {
	// ChunkSize is the maximum number of characters per document chunk.
	// Defaults to 800 if zero.
	ChunkSize int

	// ChunkOverlap is the number of characters to overlap between consecutive
	// chunks. Defaults to 200 if zero.
	ChunkOverlap int
}

// FileResult reports the outcome of ingesting one file. Err is set when the
// file failed; other files in the same run are unaffected.
type FileResult struct {
	// Path is the file path as given to Ingest.
	Path string

	// Source is the file basename used as provenance metadata.
	Source string

	// Pages is the number of pages extracted from the file.
	Pages int

	// GarbledPages counts pages dropped by the garbled-text heuristic.
	GarbledPages int

	// Chunks is the number of chunks indexed.
	Chunks int

	// Elapsed is the wall time spent on this file.
	Elapsed time.Duration

	// Err is the terminal error for this file, nil on success.
	Err error
}

// Pipeline orchestrates the extract → split → embed → upsert flow for a set
// of document files.
type Pipeline struct {
	// embedder converts text chunks into dense vector embeddings.
	embedder rag.Embedder

	// vectors persists the embedded chunks.
	vectors rag.VectorStore

	// catalog mirrors every chunk into SQLite for BM25 rebuilds.
	catalog ChunkCatalog

	// splitter produces overlapping chunks bounded by cfg.ChunkSize.
	splitter textsplitter.RecursiveCharacter

	// cfg holds the resolved pipeline configuration.
	cfg *Config

	// ensured records that the vector collection exists for this run.
	ensured bool
}

// NewPipeline constructs a Pipeline from the provided dependencies and config.
func NewPipeline(embedder rag.Embedder, vectors rag.VectorStore, catalog ChunkCatalog, cfg *Config) (*Pipeline, error) {
	if embedder == nil {
		return nil, fmt.Errorf("ingest: embedder must not be nil")
	}
	if vectors == nil {
		return nil, fmt.Errorf("ingest: vector store must not be nil")
	}
	if catalog == nil {
		return nil, fmt.Errorf("ingest: chunk catalog must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 800
	}
	if cfg.ChunkOverlap <= 0 {
		cfg.ChunkOverlap = 200
	}
	if cfg.ChunkOverlap >= cfg.ChunkSize {
		cfg.ChunkOverlap = cfg.ChunkSize / 10
	}

	return &Pipeline{
		embedder: embedder,
		vectors:  vectors,
		catalog:  catalog,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(cfg.ChunkSize),
			textsplitter.WithChunkOverlap(cfg.ChunkOverlap),
		),
		cfg: cfg,
	}, nil
}

// Ingest processes the given files sequentially. A failing file is recorded
// in its FileResult and the remaining files still run. Progress is reported
// via the optional progress callback.
func (p *Pipeline) Ingest(ctx context.Context, paths []string, progress func(msg string)) []FileResult {
	if progress == nil {
		progress = func(string) {}
	}

	results := make([]FileResult, 0, len(paths))
	for _, path := range paths {
		progress(fmt.Sprintf("ingesting %s", path))

		res := p.ingestFile(ctx, path)
		if res.Err != nil {
			progress(fmt.Sprintf("failed %s: %v", path, res.Err))
		} else {
			progress(fmt.Sprintf("ingested %d chunks from %s (%d pages)", res.Chunks, res.Source, res.Pages))
		}
		results = append(results, res)
	}

	return results
}

// ingestFile runs the full pipeline for one file.
func (p *Pipeline) ingestFile(ctx context.Context, path string) FileResult {
	start := time.Now()
	log := logging.FromContext(ctx)

	source := filepath.Base(path)
	res := FileResult{Path: path, Source: source}

	pages, err := ExtractPages(path)
	if err != nil {
		res.Err = err
		return res
	}
	res.Pages = len(pages)

	format, err := DetectFormat(path)
	if err != nil {
		res.Err = err
		return res
	}

	var (
		texts []string
		docs  []rag.Document
		rows  []store.Chunk
	)
	for _, page := range pages {
		if format == FormatPDF && likelyGarbled(page.Text) {
			res.GarbledPages++
			log.Warn("dropping likely garbled page",
				slog.String("source", source),
				slog.Int("page", page.Number))
			continue
		}
		if strings.TrimSpace(page.Text) == "" {
			continue
		}

		chunks, err := p.splitter.SplitText(page.Text)
		if err != nil {
			res.Err = fmt.Errorf("ingest: splitting %s page %d: %w", source, page.Number, err)
			return res
		}

		for i, chunk := range chunks {
			id := chunkID(source, page.Number, i)
			docs = append(docs, rag.Document{
				ID:      id,
				Content: chunk,
				Source:  source,
				Metadata: map[string]string{
					"source": source,
					"page":   strconv.Itoa(page.Number),
				},
			})
			texts = append(texts, chunk)
			rows = append(rows, store.Chunk{ID: id, Source: source, Page: page.Number, Content: chunk})
		}
	}

	if len(docs) == 0 {
		// The file no longer contributes chunks. Clear its catalog rows and
		// make a best-effort sweep of previously stored vectors.
		if err := p.catalog.ReplaceSource(ctx, source, nil); err != nil {
			res.Err = fmt.Errorf("ingest: clearing catalog for %s: %w", source, err)
			return res
		}
		if err := p.vectors.DeleteBySource(ctx, source); err != nil {
			log.Warn("could not clear vectors for empty source",
				slog.String("source", source),
				slog.Any("error", err))
		}
		res.Elapsed = time.Since(start)
		return res
	}

	embeddings, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		res.Err = fmt.Errorf("ingest: embedding %s: %w", source, err)
		return res
	}
	if len(embeddings) != len(texts) {
		res.Err = fmt.Errorf("ingest: embedder returned %d vectors for %d chunks of %s", len(embeddings), len(texts), source)
		return res
	}

	if !p.ensured {
		if err := p.vectors.EnsureCollection(ctx, len(embeddings[0])); err != nil {
			res.Err = fmt.Errorf("ingest: ensuring collection: %w", err)
			return res
		}
		p.ensured = true
	}

	// Clear first so chunks from a previous, longer version of the file
	// don't linger past the tail of the new chunk set.
	if err := p.vectors.DeleteBySource(ctx, source); err != nil {
		res.Err = fmt.Errorf("ingest: clearing vectors for %s: %w", source, err)
		return res
	}
	if err := p.vectors.Upsert(ctx, docs, embeddings); err != nil {
		res.Err = fmt.Errorf("ingest: upsert failed for %s: %w", source, err)
		return res
	}
	if err := p.catalog.ReplaceSource(ctx, source, rows); err != nil {
		res.Err = fmt.Errorf("ingest: updating catalog for %s: %w", source, err)
		return res
	}

	res.Chunks = len(docs)
	res.Elapsed = time.Since(start)
	log.Info("ingested file",
		slog.String("source", source),
		slog.Int("pages", res.Pages),
		slog.Int("chunks", res.Chunks),
		slog.Duration("elapsed", res.Elapsed))

	return res
}

// RemoveSource deletes every chunk ingested from the named file, in both
// the vector store and the catalog. Used when a watched file disappears.
func (p *Pipeline) RemoveSource(ctx context.Context, source string) error {
	if err := p.vectors.DeleteBySource(ctx, source); err != nil {
		return fmt.Errorf("ingest: clearing vectors for %s: %w", source, err)
	}
	if err := p.catalog.ReplaceSource(ctx, source, nil); err != nil {
		return fmt.Errorf("ingest: clearing catalog for %s: %w", source, err)
	}
	return nil
}

// DiscoverFiles resolves the set of files to ingest. Explicit paths take
// precedence; otherwise dataDir is scanned recursively for supported files.
func DiscoverFiles(explicit []string, dataDir string) ([]string, error) {
	if len(explicit) > 0 {
		return explicit, nil
	}
	if dataDir == "" {
		return nil, fmt.Errorf("ingest: no file paths given and no data directory configured")
	}

	var out []string
	err := filepath.WalkDir(dataDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		if _, err := DetectFormat(path); err == nil {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ingest: scanning %s: %w", dataDir, err)
	}

	sort.Strings(out)
	return out, nil
}

// chunkNamespace is the UUIDv5 namespace for deterministic chunk IDs.
var chunkNamespace = uuid.MustParse("8f2a4f5e-63a1-4cc8-9d6b-5dd0a1f207c4")

// chunkID derives a stable UUID for a chunk from its provenance, so
// re-ingesting a file produces the same IDs and overwrites in place.
func chunkID(source string, page, index int) string {
	return uuid.NewSHA1(chunkNamespace, []byte(fmt.Sprintf("%s#%d#%d", source, page, index))).String()
}

// DocumentsFromChunks converts catalog rows back into retrievable documents
// for BM25 index rebuilds.
func DocumentsFromChunks(chunks []store.Chunk) []rag.Document {
	docs := make([]rag.Document, 0, len(chunks))
	for _, c := range chunks {
		docs = append(docs, rag.Document{
			ID:      c.ID,
			Content: c.Content,
			Source:  c.Source,
			Metadata: map[string]string{
				"source": c.Source,
				"page":   strconv.Itoa(c.Page),
			},
		})
	}
	return docs
}
