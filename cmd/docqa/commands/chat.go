package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/docqa-ai/docqa-go/internal/agent"
)

// NewChatCmd constructs the `docqa chat` command, an interactive REPL over
// the same assistant the ask command and the HTTP server use.
func NewChatCmd() *cobra.Command {
	var session string
	var topK int

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat interactively with your documents",
		Long: `Start an interactive chat session over the ingested documents.

Every exchange is recorded in the session history, so the assistant can
resolve follow-ups like "and what about water damage?". Use --session to
keep separate conversations apart.

In-session commands:
  /sources   list the ingested documents
  /clear     forget this session's history
  /help      show the command list
  exit       leave (quit, q and Ctrl-D work too)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			stk, err := buildStack(ctx, topK)
			if err != nil {
				return fmt.Errorf("chat: %w", err)
			}
			defer stk.Close()

			sessionID := session
			if sessionID == "" {
				sessionID = agent.DefaultSession
			}

			youStyle := color.New(color.FgCyan, color.Bold)
			botStyle := color.New(color.FgGreen, color.Bold)
			dimStyle := color.New(color.Faint)
			errStyle := color.New(color.FgRed)

			fmt.Printf("docqa interactive chat (type /help for commands, exit to leave)\n")
			dimStyle.Printf("session: %s\n\n", sessionID)

			scanner := bufio.NewScanner(os.Stdin)
			scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

			for {
				if ctx.Err() != nil {
					return nil
				}

				youStyle.Print("you> ")
				if !scanner.Scan() {
					fmt.Println()
					return scanner.Err() //nolint:wrapcheck // nil on EOF, which is the normal exit
				}
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}

				switch strings.ToLower(line) {
				case "exit", "quit", "q", "/exit", "/quit":
					return nil
				case "/help":
					fmt.Println("  /sources   list the ingested documents")
					fmt.Println("  /clear     forget this session's history")
					fmt.Println("  exit       leave (quit, q and Ctrl-D work too)")
					continue
				case "/clear":
					if err := stk.Store.Clear(ctx, sessionID); err != nil {
						errStyle.Fprintf(os.Stderr, "error: %v\n", err)
						continue
					}
					dimStyle.Printf("session %s cleared\n", sessionID)
					continue
				case "/sources":
					infos, err := stk.Store.Sources(ctx)
					if err != nil {
						errStyle.Fprintf(os.Stderr, "error: %v\n", err)
						continue
					}
					if len(infos) == 0 {
						dimStyle.Println("no documents ingested yet — run `docqa ingest` first")
						continue
					}
					for _, info := range infos {
						fmt.Printf("  %s (%d chunks)\n", info.Source, info.Chunks)
					}
					continue
				}

				botStyle.Print("docqa> ")
				state, err := stk.Assistant.Answer(ctx, sessionID, line, os.Stdout)
				fmt.Println()
				if err != nil {
					errStyle.Fprintf(os.Stderr, "error: %v\n", err)
					continue
				}
				if len(state.Retrieved) > 0 {
					dimStyle.Printf("(sources: %s)\n", formatSourceList(state.Retrieved))
				}
				fmt.Println()
			}
		},
	}

	cmd.Flags().StringVarP(&session, "session", "s", "", "Session ID for conversation history (default: \"default\")")
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of passages to retrieve (default: from config)")

	return cmd
}
