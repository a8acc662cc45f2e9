package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/docqa-ai/docqa-go/internal/embedder"
	"github.com/docqa-ai/docqa-go/internal/ingest"
	"github.com/docqa-ai/docqa-go/internal/rag"
)

// NewIngestCmd constructs the `docqa ingest` command, which chunks, embeds
// and indexes documents so they can be retrieved at question time.
func NewIngestCmd() *cobra.Command {
	var dataDir string
	var list bool
	var remove string

	cmd := &cobra.Command{
		Use:   "ingest [files...]",
		Short: "Index documents for question answering",
		Long: `Chunk, embed and index documents into the vector store and the local
chunk catalog. Supported formats: PDF, Markdown, plain text.

Pass file paths directly, or point --data-dir at a directory to index every
supported file under it. Re-ingesting a file replaces its previous chunks,
so running ingest again after editing a document is always safe.

Examples:
  docqa ingest manual.pdf faq.md
  docqa ingest --data-dir ./docs
  docqa ingest --list
  docqa ingest --remove manual.pdf`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if err := cfg.Validate(); err != nil {
				return err
			}

			st, err := openHistoryStore()
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			defer st.Close()

			// --list inspects the catalog; no backends needed.
			if list {
				infos, err := st.Sources(ctx)
				if err != nil {
					return fmt.Errorf("ingest: listing sources: %w", err)
				}
				if len(infos) == 0 {
					fmt.Println("no documents ingested yet")
					return nil
				}
				for _, info := range infos {
					fmt.Printf("%s\t%d chunks\n", info.Source, info.Chunks)
				}
				return nil
			}

			// --remove deletes a source from both indexes.
			if remove != "" {
				vectors, err := rag.NewVectorStore(ctx, vectorConfig())
				if err != nil {
					return fmt.Errorf("ingest: connecting to the %s vector store: %w", cfg.Vector.Backend, err)
				}
				defer vectors.Close()

				if err := vectors.DeleteBySource(ctx, remove); err != nil {
					return fmt.Errorf("ingest: removing %s from the vector store: %w", remove, err)
				}
				if err := st.ReplaceSource(ctx, remove, nil); err != nil {
					return fmt.Errorf("ingest: removing %s from the catalog: %w", remove, err)
				}
				logger.Info("source removed", slog.String("source", remove))
				return nil
			}

			// Precedence: CLI args, then PDF_FILE_PATHS from the config,
			// then a recursive scan of the data directory.
			explicit := args
			if len(explicit) == 0 {
				explicit = cfg.Ingest.PDFPaths
			}
			if dataDir == "" {
				dataDir = cfg.Ingest.DataDir
			}
			files, err := ingest.DiscoverFiles(explicit, dataDir)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				return fmt.Errorf("ingest: no supported documents found in %s", dataDir)
			}

			emb, err := embedder.New(embedderConfig())
			if err != nil {
				return fmt.Errorf("ingest: initialising embedder: %w", err)
			}

			// Pre-flight probe: fail now with a clear error rather than on
			// the first chunk of the first file.
			dim, err := embedder.ValidateForRAG(ctx, logger, emb, embedderConfig())
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			logger.Info("embedder ready",
				slog.String("backend", cfg.Embedding.Backend),
				slog.Int("dimensions", dim),
			)

			vectors, err := rag.NewVectorStore(ctx, vectorConfig())
			if err != nil {
				return fmt.Errorf("ingest: connecting to the %s vector store: %w", cfg.Vector.Backend, err)
			}
			defer vectors.Close()

			pipeline, err := ingest.NewPipeline(emb, vectors, st, ingestConfig())
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			logger.Info("starting ingestion", slog.Int("files", len(files)))
			results := pipeline.Ingest(ctx, files, func(msg string) {
				logger.Info(msg)
			})

			failed := 0
			totalChunks := 0
			for _, res := range results {
				if res.Err != nil {
					failed++
					logger.Error("file failed",
						slog.String("path", res.Path),
						slog.Any("error", res.Err),
					)
					continue
				}
				totalChunks += res.Chunks
				logger.Info("file indexed",
					slog.String("source", res.Source),
					slog.Int("pages", res.Pages),
					slog.Int("chunks", res.Chunks),
					slog.Duration("elapsed", res.Elapsed),
				)
			}

			logger.Info("ingestion complete",
				slog.Int("files", len(results)-failed),
				slog.Int("chunks", totalChunks),
			)
			if failed > 0 {
				return fmt.Errorf("ingest: %d of %d files failed", failed, len(results))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&dataDir, "data-dir", "d", "", "Directory to scan recursively for documents (default: from config)")
	cmd.Flags().BoolVarP(&list, "list", "l", false, "List ingested documents and exit")
	cmd.Flags().StringVar(&remove, "remove", "", "Remove a document from the indexes by source name")

	return cmd
}
