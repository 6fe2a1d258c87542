// fscmd: local filesystem command server
//
// An MCP server (stdio transport) exposing named, schema-declared
// file operations — reads served through a bounded cache, mutations
// applied transactionally with rollback on partial failure.
//
// Usage:
//
//	fscmd serve    # Start the MCP server on stdio
//	fscmd version  # Print the version
package main

import (
	"fmt"
	"os"

	"github.com/avilab/fscmd/internal/config"
	fscmdserver "github.com/avilab/fscmd/internal/server"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := run(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "--help", "-h", "help":
		printUsage()
	case "--version", "-v", "version":
		fmt.Printf("fscmd v%s\n", fscmdserver.Version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	// Logs go to stderr — stdout belongs to the MCP stdio transport.
	log := newLogger(cfg.LogLevel)

	s, cleanup, err := fscmdserver.New(cfg, log)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer cleanup()

	// ServeStdio handles SIGINT/SIGTERM and returns when the client
	// disconnects; cleanup then runs via the defer above.
	return server.ServeStdio(s)
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `fscmd v%s — local filesystem command server

Usage:
  fscmd serve      Start the MCP server (stdio transport)
  fscmd version    Print the version
  fscmd help       Show this help

Configuration (environment):
  FSCMD_ROOT                     Directory served (default: cwd)
  FSCMD_CACHE_MAX_SIZE           Read cache entries (default: 256)
  FSCMD_CACHE_TTL                Read cache entry lifetime (default: 5m)
  FSCMD_CACHE_SWEEP              Expired-entry sweep interval (default: 1m)
  FSCMD_CACHE_REFRESH_ON_ACCESS  Promote entries on read (default: true)
  FSCMD_HISTORY_PATH             Audit log database (default: ~/.fscmd/history.db)
  FSCMD_LOG_LEVEL                trace|debug|info|warn|error (default: info)
`, fscmdserver.Version)
}
