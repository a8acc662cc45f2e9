package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Chunk is one catalogued text chunk. The catalog is the durable copy of the
// corpus: the lexical index is rebuilt from it at startup and after ingestion,
// so query commands never re-parse source documents.
type Chunk struct {
	// ID is the deterministic chunk identifier (matches the vector store ID).
	ID string
	// Source is the originating file's basename.
	Source string
	// Page is the 1-based page number (1 for single-page formats).
	Page int
	// Content is the chunk text.
	Content string
}

// SourceInfo summarises one ingested source document.
type SourceInfo struct {
	// Source is the file basename.
	Source string
	// Chunks is the number of catalogued chunks for the source.
	Chunks int
}

// ChunkCatalog persists ingested chunks so the lexical index can be rebuilt
// without re-parsing documents. Implementations must be safe for concurrent use.
type ChunkCatalog interface {
	// ReplaceSource atomically swaps all chunks for a source. Re-ingesting a
	// document replaces rather than duplicates its chunks.
	ReplaceSource(ctx context.Context, source string, chunks []Chunk) error
	// AllChunks returns every catalogued chunk, ordered by source then page.
	AllChunks(ctx context.Context) ([]Chunk, error)
	// Sources lists ingested sources with chunk counts, sorted by source.
	Sources(ctx context.Context) ([]SourceInfo, error)
	// DeleteSource removes all chunks for a source.
	DeleteSource(ctx context.Context, source string) error
}

// ReplaceSource atomically swaps all chunks for a source inside one
// transaction, so concurrent readers never observe a half-ingested document.
func (s *SQLiteStore) ReplaceSource(ctx context.Context, source string, chunks []Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: replace source begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE source = ?`, source); err != nil {
		return fmt.Errorf("store: replace source delete: %w", err)
	}

	const ins = `INSERT INTO chunks (id, source, page, content) VALUES (?, ?, ?, ?)`
	for _, c := range chunks {
		if _, err := tx.ExecContext(ctx, ins, c.ID, c.Source, c.Page, c.Content); err != nil {
			return fmt.Errorf("store: replace source insert %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: replace source commit: %w", err)
	}
	return nil
}

// AllChunks returns every catalogued chunk, ordered by source then page then ID.
func (s *SQLiteStore) AllChunks(ctx context.Context) ([]Chunk, error) {
	const q = `SELECT id, source, page, content FROM chunks ORDER BY source, page, id`

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("store: all chunks: %w", err)
	}
	defer rows.Close()

	return scanChunks(rows)
}

// Sources lists ingested sources with their chunk counts.
func (s *SQLiteStore) Sources(ctx context.Context) ([]SourceInfo, error) {
	const q = `SELECT source, COUNT(*) FROM chunks GROUP BY source ORDER BY source`

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("store: sources: %w", err)
	}
	defer rows.Close()

	var infos []SourceInfo
	for rows.Next() {
		var info SourceInfo
		if err := rows.Scan(&info.Source, &info.Chunks); err != nil {
			return nil, fmt.Errorf("store: sources scan: %w", err)
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: sources rows: %w", err)
	}
	return infos, nil
}

// DeleteSource removes all chunks for a source.
func (s *SQLiteStore) DeleteSource(ctx context.Context, source string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chunks WHERE source = ?`, source); err != nil {
		return fmt.Errorf("store: delete source: %w", err)
	}
	return nil
}

// scanChunks drains a chunk result set.
func scanChunks(rows *sql.Rows) ([]Chunk, error) {
	var chunks []Chunk
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.ID, &c.Source, &c.Page, &c.Content); err != nil {
			return nil, fmt.Errorf("store: chunk scan: %w", err)
		}
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: chunk rows: %w", err)
	}
	return chunks, nil
}
