package commands

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/cloudwego/eino/callbacks"
	"github.com/spf13/cobra"

	"github.com/docqa-ai/docqa-go/internal/ingest"
	"github.com/docqa-ai/docqa-go/internal/logging"
	"github.com/docqa-ai/docqa-go/internal/server"
	"github.com/docqa-ai/docqa-go/internal/tracing"
	"github.com/docqa-ai/docqa-go/internal/watch"
)

// NewServeCmd constructs the `docqa serve` command, which starts the HTTP
// API for chat, session management and document listing.
func NewServeCmd() *cobra.Command {
	var host string
	var port int
	var watchDocs bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the docqa HTTP API",
		Long: `Start the docqa HTTP server.

The server exposes a REST/SSE API: POST /api/chat streams answers, the
sessions and sources endpoints manage conversation history and list indexed
documents, and /metrics serves Prometheus metrics. With --watch, the data
directory is monitored and documents are re-indexed as they change on disk.

Examples:
  docqa serve
  docqa serve --port 9090
  docqa serve --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			ctx = logging.WithLogger(ctx, logger)

			// Langfuse tracing is opt-in; a no-op unless both keys are set.
			handler, flush, ok := tracing.Setup(tracing.Config{
				PublicKey: cfg.Tracing.PublicKey,
				SecretKey: cfg.Tracing.SecretKey,
				Host:      cfg.Tracing.Host,
			})
			if ok {
				callbacks.AppendGlobalHandlers(handler)
				defer flush()
				logger.Info("langfuse tracing enabled")
			} else {
				logger.Info("langfuse tracing disabled", slog.String("reason", "langfuse keys not set"))
			}

			stk, err := buildStack(ctx, 0)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer stk.Close()

			if watchDocs {
				dir := cfg.Ingest.DataDir
				if dir == "" {
					return fmt.Errorf("serve: --watch requires a data directory (set DATA_DIR or ingest.data_dir)")
				}

				pipeline, err := ingest.NewPipeline(stk.Embedder, stk.Vectors, stk.Store, ingestConfig())
				if err != nil {
					return fmt.Errorf("serve: %w", err)
				}
				watcher, err := watch.New(pipeline, &watch.Config{
					Dir: dir,
					OnUpdate: func() {
						chunks, err := stk.Store.AllChunks(ctx)
						if err != nil {
							logger.Error("watch: reloading chunk catalog failed", slog.Any("error", err))
							return
						}
						stk.Lexical.Rebuild(ingest.DocumentsFromChunks(chunks))
						logger.Info("watch: lexical index rebuilt", slog.Int("chunks", len(chunks)))
					},
				})
				if err != nil {
					return fmt.Errorf("serve: %w", err)
				}
				go func() {
					if err := watcher.Run(ctx); err != nil {
						logger.Error("watch: stopped", slog.Any("error", err))
					}
				}()
				logger.Info("watching for document changes", slog.String("dir", dir))
			}

			pingers := []server.Pinger{
				server.NewVectorStorePinger(stk.Vectors, cfg.Vector.Backend),
				server.NewEmbedderPinger(stk.Embedder, "embedder"),
			}

			serverHost := cfg.Server.Host
			if host != "" {
				serverHost = host
			}
			serverPort := cfg.Server.Port
			if port != 0 {
				serverPort = port
			}

			srv, err := server.New(stk.Assistant, &server.Config{
				Host:      serverHost,
				Port:      serverPort,
				Logger:    logger,
				Pingers:   pingers,
				RateLimit: cfg.Server.RateLimitRPS,
				RateBurst: cfg.Server.RateLimitBurst,
				APIKey:    cfg.Server.APIKey,
				History:   stk.Store,
				Catalog:   stk.Store,
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Host address to bind to (default: from config)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "TCP port to listen on (default: from config)")
	cmd.Flags().BoolVarP(&watchDocs, "watch", "w", false, "Re-index documents when they change on disk")

	return cmd
}
