// Package tracing wires the optional Langfuse callback handler into Eino.
// Tracing is opt-in: without keys it stays a no-op.
package tracing

import (
	"github.com/cloudwego/eino-ext/callbacks/langfuse"
	"github.com/cloudwego/eino/callbacks"
)

const defaultHost = "http://localhost:3000"

// Config carries the Langfuse credentials. Resolution from the environment
// or a config file happens in internal/config, not here.
type Config struct {
	PublicKey string
	SecretKey string
	Host      string
}

// Enabled reports whether both keys are present.
func (c Config) Enabled() bool {
	return c.PublicKey != "" && c.SecretKey != ""
}

// Setup initialises the Langfuse callback handler when both keys are set.
// It returns a flush function that must be called before process exit so
// buffered traces are sent. When tracing is not configured, both return
// values are nil and the third is false.
func Setup(cfg Config) (callbacks.Handler, func(), bool) {
	if !cfg.Enabled() {
		return nil, nil, false
	}
	host := cfg.Host
	if host == "" {
		host = defaultHost
	}

	handler, flusher := langfuse.NewLangfuseHandler(&langfuse.Config{
		Host:      host,
		PublicKey: cfg.PublicKey,
		SecretKey: cfg.SecretKey,
	})

	return handler, flusher, true
}
