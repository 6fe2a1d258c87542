// Package server wires all components and creates the MCP server
// instance.
//
// This is the composition root: it builds the service container,
// registers the backend services (cache, file service, history),
// assembles the command registry, and exposes every registered
// command as an MCP tool over stdio. No business logic lives here —
// only wiring.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/avilab/fscmd/internal/cache"
	"github.com/avilab/fscmd/internal/command"
	"github.com/avilab/fscmd/internal/commands"
	"github.com/avilab/fscmd/internal/config"
	"github.com/avilab/fscmd/internal/container"
	"github.com/avilab/fscmd/internal/fsio"
	"github.com/avilab/fscmd/internal/history"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates and configures the MCP server with every file command
// registered as a tool. The returned cleanup function disposes the
// service container (stopping the cache sweep and closing the history
// database) and must be called on shutdown, typically via defer. It
// is always non-nil and safe to call more than once.
func New(cfg config.Config, log zerolog.Logger) (*server.MCPServer, func(), error) {
	svcs := container.New()
	cleanup := func() {
		if err := svcs.Dispose(); err != nil {
			log.Error().Err(err).Msg("service teardown reported errors")
		}
	}

	// --- Backend services ---

	fileCache := cache.New(cache.Config{
		MaxSize:         cfg.CacheMaxSize,
		TTL:             cfg.CacheTTL,
		CleanupInterval: cfg.CacheSweepInterval,
		RefreshOnAccess: cfg.CacheRefreshOnAccess,
	}, log.With().Str("component", "cache").Logger())

	if err := svcs.Register(commands.ServiceCache, fileCache, false); err != nil {
		cleanup()
		return nil, cleanup, fmt.Errorf("registering cache service: %w", err)
	}

	files, err := fsio.New(cfg.Root, fileCache, log.With().Str("component", "fsio").Logger())
	if err != nil {
		cleanup()
		return nil, cleanup, fmt.Errorf("creating file service: %w", err)
	}
	if err := svcs.Register(commands.ServiceFiles, files, false); err != nil {
		cleanup()
		return nil, cleanup, fmt.Errorf("registering file service: %w", err)
	}

	// The history database opens lazily on first use, so a purely
	// read-only session that is never audited does not create it.
	if err := svcs.RegisterFactory(commands.ServiceHistory, func() (any, error) {
		return history.Open(cfg.HistoryPath)
	}, false); err != nil {
		cleanup()
		return nil, cleanup, fmt.Errorf("registering history service: %w", err)
	}

	// --- Command registry ---

	registry := command.NewRegistry(svcs,
		command.WithLogger(log.With().Str("component", "registry").Logger()),
		command.WithObserver(auditObserver(svcs, log)),
	)
	for _, cmd := range commands.All() {
		if err := registry.Register(cmd); err != nil {
			cleanup()
			return nil, cleanup, fmt.Errorf("registering command: %w", err)
		}
	}

	// --- MCP server ---

	s := server.NewMCPServer(
		"fscmd",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions(cfg.Root)),
	)
	infos := registry.List()
	for _, info := range infos {
		s.AddTool(toolDef(info), toolHandler(registry, info.Name))
	}

	log.Info().Str("root", cfg.Root).Int("commands", len(infos)).Msg("server configured")
	return s, cleanup, nil
}

// auditObserver records every dispatch outcome in the history store.
// The store resolves lazily; any failure here is logged and never
// affects the dispatched command.
func auditObserver(svcs *container.Container, log zerolog.Logger) command.Observer {
	return func(name string, res command.Result, elapsed time.Duration) {
		v, err := svcs.Get(commands.ServiceHistory)
		if err != nil {
			log.Warn().Err(err).Msg("history unavailable, dispatch not recorded")
			return
		}
		store, ok := v.(*history.Store)
		if !ok {
			log.Warn().Msgf("history service has unexpected type %T", v)
			return
		}
		if err := store.Record(name, res.Success, res.Error, elapsed); err != nil {
			log.Warn().Err(err).Str("command", name).Msg("recording dispatch failed")
		}
	}
}

// toolDef converts a registry command into its MCP tool declaration.
func toolDef(info command.Info) mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription(info.Description)}
	for _, f := range info.Schema.Fields {
		opts = append(opts, fieldOption(f))
	}
	return mcp.NewTool(info.Name, opts...)
}

func fieldOption(f command.Field) mcp.ToolOption {
	var props []mcp.PropertyOption
	if f.Description != "" {
		props = append(props, mcp.Description(f.Description))
	}
	if f.Required {
		props = append(props, mcp.Required())
	}
	if len(f.Enum) > 0 {
		props = append(props, mcp.Enum(f.Enum...))
	}

	switch f.Type {
	case command.TypeInt, command.TypeNumber:
		return mcp.WithNumber(f.Name, props...)
	case command.TypeBool:
		return mcp.WithBoolean(f.Name, props...)
	case command.TypeArray:
		return mcp.WithArray(f.Name, props...)
	case command.TypeObject:
		return mcp.WithObject(f.Name, props...)
	default:
		return mcp.WithString(f.Name, props...)
	}
}

// toolHandler adapts an MCP tool call onto the dispatch boundary. The
// registry's normalized result maps directly: failures become tool
// error results, successes are rendered as JSON.
func toolHandler(registry *command.Registry, name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		res := registry.Dispatch(ctx, name, req.GetArguments())
		if !res.Success {
			return mcp.NewToolResultError(res.Error), nil
		}
		data, err := json.MarshalIndent(res.Data, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("encoding result: %v", err)), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}

func serverInstructions(root string) string {
	return fmt.Sprintf(
		"fscmd serves file operations under %s. "+
			"All paths are relative to that root; paths escaping it are rejected. "+
			"Mutating operations (write_file, edit_file, move_file, delete_file) are "+
			"transactional: a failure leaves the filesystem unchanged. "+
			"Use command_log to inspect recent operations and cache_stats for read-cache health.",
		root,
	)
}
