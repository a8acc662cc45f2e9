// Package commands defines all Cobra CLI commands for the docqa binary.
package commands

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/docqa-ai/docqa-go/internal/audit"
	"github.com/docqa-ai/docqa-go/internal/config"
	"github.com/docqa-ai/docqa-go/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// cfg is the configuration resolved once in PersistentPreRunE. Subcommands
// treat it as read-only.
var cfg *config.Config

// logger is the process logger, built from cfg.Logging.
var logger *slog.Logger

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "docqa",
		Short: "docqa — retrieval-augmented question answering over your documents",
		Long: `docqa answers natural language questions over your own documents.

Ingest PDF, Markdown, or plain text files once, then ask questions from the
command line, an interactive chat session, or the HTTP API. Answers are
grounded in the indexed documents through a hybrid lexical/semantic retriever
and cite the source files they came from.

Model and embedding providers are selected via a YAML config file
(~/.docqa/config.yaml) or environment variables; environment always wins.
See 'docqa --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Load resolves defaults, YAML, .env and environment. Backend
			// validation happens in the subcommands that construct backends,
			// so `docqa version` works without credentials.
			c, path, err := config.Load(configPath, nil)
			if err != nil {
				return err
			}
			cfg = c
			loadedConfigPath = path
			logger = logging.New(cfg.Logging.Level, cfg.Logging.Format)

			// Emit structured audit log for every command invocation.
			audit.LogCommandStart(logger, cmd.Name(), loadedConfigPath)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.docqa/config.yaml)")

	root.AddCommand(
		NewAskCmd(),
		NewChatCmd(),
		NewIngestCmd(),
		NewServeCmd(),
		NewVersionCmd(),
	)

	return root
}
