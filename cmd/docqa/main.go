// Command docqa is the entry point for the document question-answering
// assistant. It provides a CLI (via Cobra) for ingesting documents, asking
// one-shot questions, chatting interactively, and running the HTTP API.
package main

import (
	"fmt"
	"os"

	"github.com/docqa-ai/docqa-go/cmd/docqa/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
