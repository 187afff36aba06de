package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"fieldvault-mcp-server/internal/chrome"
	"fieldvault-mcp-server/internal/config"
	"fieldvault-mcp-server/internal/entry"
	mcpserver "fieldvault-mcp-server/internal/mcp"
	"fieldvault-mcp-server/internal/recorder"
	"fieldvault-mcp-server/internal/resolve"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the FieldVault MCP config file")
	ssePort := flag.Int("sse-port", 0, "Optional SSE port override (falls back to config)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		// Before we can redirect logs, write to stderr as last resort
		log.Fatalf("failed to load config: %v", err)
	}

	// Redirect logging to file for stdio mode (stderr interferes with MCP protocol)
	if cfg.MCP.SSEPort == 0 && cfg.Server.LogFile != "" {
		logFile, err := os.OpenFile(cfg.Server.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err == nil {
			log.SetOutput(logFile)
			defer logFile.Close()
		} else {
			// If we can't open log file, disable logging to avoid stderr pollution
			log.SetOutput(io.Discard)
		}
	}
	if *ssePort != 0 {
		cfg.MCP.SSEPort = *ssePort
	}

	var trace *recorder.Recorder
	if cfg.Recorder.Enable {
		trace, err = recorder.NewRecorder(cfg.Recorder.Dir)
		if err != nil {
			log.Fatalf("failed to initialize decision recorder: %v", err)
		}
		if err := trace.Start(); err != nil {
			log.Fatalf("failed to start decision recorder: %v", err)
		}
		defer trace.Close()
	}

	store, err := entry.OpenStore(cfg.Store.Path)
	if err != nil {
		log.Fatalf("failed to open entry store: %v", err)
	}
	defer store.Close()

	resolver := resolve.NewCoordinator(nil, traceOrNil(trace))
	go resolver.Run(ctx)

	// Every store mutation invalidates the resolver cache with a fresh
	// snapshot; the initial snapshot primes it before any event arrives.
	store.OnChange(resolver.OnEntriesChanged)
	initial, err := store.List()
	if err != nil {
		log.Fatalf("failed to read initial entries: %v", err)
	}
	resolver.OnEntriesChanged(initial)

	if cfg.Store.WatchEnabled() {
		watcher, err := entry.NewWatcher(store)
		if err != nil {
			log.Printf("store watcher disabled: %v", err)
		} else {
			watcher.Start(ctx)
			defer watcher.Stop()
		}
	}

	if cfg.Browser.AutoStart {
		tracker := chrome.NewTracker(cfg.Browser, resolver)
		if err := tracker.Start(ctx); err != nil {
			log.Fatalf("failed to start chrome tab feed: %v", err)
		}
		defer tracker.Shutdown()
	} else {
		log.Printf("chrome tab feed disabled; tabs report via report-page/report-field tools")
	}

	server, err := mcpserver.NewServer(cfg, store, resolver)
	if err != nil {
		log.Fatalf("failed to initialize MCP server: %v", err)
	}
	resolver.SetPublisher(server)

	var startErr error
	if cfg.MCP.SSEPort > 0 {
		log.Printf("starting FieldVault MCP SSE server on port %d", cfg.MCP.SSEPort)
		startErr = server.StartSSE(ctx, cfg.MCP.SSEPort)
	} else {
		log.Printf("starting FieldVault MCP stdio server")
		startErr = server.Start(ctx)
	}

	if startErr != nil && !errors.Is(startErr, context.Canceled) {
		log.Fatalf("server exited with error: %v", startErr)
	}
}

// traceOrNil avoids handing the coordinator a typed nil when the recorder
// is disabled.
func traceOrNil(r *recorder.Recorder) resolve.Tracer {
	if r == nil {
		return nil
	}
	return r
}
