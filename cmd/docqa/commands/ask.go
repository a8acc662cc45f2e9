package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// NewAskCmd constructs the `docqa ask` command, which sends a single natural
// language question to the assistant and streams the answer to stdout.
func NewAskCmd() *cobra.Command {
	var session string
	var topK int
	var noSources bool

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a single question about your documents",
		Long: `Ask the assistant a single natural language question about the ingested
documents. The answer streams to stdout, followed by the list of source
documents on stderr. The exchange is recorded in the session history, so
follow-up questions can refer back to it.

The question can also be piped on stdin.

Examples:
  docqa ask "what does the warranty cover?"
  docqa ask --session support-42 "and what about water damage?"
  echo "summarise the returns policy" | docqa ask`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			question := strings.TrimSpace(strings.Join(args, " "))
			if question == "" {
				// Fall back to piped stdin.
				stat, err := os.Stdin.Stat()
				if err != nil {
					return fmt.Errorf("ask: failed to stat stdin: %w", err)
				}
				if (stat.Mode() & os.ModeCharDevice) == 0 {
					data, err := io.ReadAll(os.Stdin)
					if err != nil {
						return fmt.Errorf("ask: failed to read stdin: %w", err)
					}
					question = strings.TrimSpace(string(data))
				}
			}
			if question == "" {
				return fmt.Errorf("ask: provide a question as an argument or pipe it via stdin")
			}

			stk, err := buildStack(ctx, topK)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer stk.Close()

			state, err := stk.Assistant.Answer(ctx, session, question, os.Stdout)
			if err != nil {
				return err //nolint:wrapcheck // the error goes straight to cobra
			}
			fmt.Println()

			if !noSources && len(state.Retrieved) > 0 {
				fmt.Fprintf(os.Stderr, "sources: %s\n", formatSourceList(state.Retrieved))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&session, "session", "s", "", "Session ID for conversation history (default: \"default\")")
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of passages to retrieve (default: from config)")
	cmd.Flags().BoolVar(&noSources, "no-sources", false, "Suppress the source list printed after the answer")

	return cmd
}
