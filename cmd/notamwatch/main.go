// CLAUDE:SUMMARY notamwatch CLI entry point: fetch, serve, mcp, list, stats, export, runs.
// Command notamwatch scrapes the Israeli AeroInfo NOTAM listing into a JSON
// store and serves it.
//
// Usage:
//
//	notamwatch fetch                      # incremental run with a local headless Chrome
//	notamwatch fetch --full-refresh       # re-expand every entry
//	notamwatch fetch --replay page.html   # run against a saved page
//	notamwatch serve                      # HTTP API over the store
//	notamwatch mcp                        # MCP tools over stdio
//	notamwatch list --date today --icao LLBG
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// version is set with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		slog.Error("notamwatch: fatal", "error", err)
		stop()
		os.Exit(1)
	}
}
