// Package mcp exposes the resolver to its collaborators: tools for entry
// mutations and tab reports, resources for reading per-tab match state, and
// notifications pushing fresh resolutions to presentation clients.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"fieldvault-mcp-server/internal/config"
	"fieldvault-mcp-server/internal/entry"
	"fieldvault-mcp-server/internal/resolve"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Server wires the MCP runtime, the entry store, and the resolver.
type Server struct {
	cfg       config.Config
	store     *entry.Store
	resolver  *resolve.Coordinator
	tools     map[string]Tool
	mcpServer *mcpserver.MCPServer
}

// Tool describes the contract for MCP tool implementations.
type Tool interface {
	Name() string
	Description() string
	InputSchema() map[string]interface{}
	Execute(ctx context.Context, args map[string]interface{}) (interface{}, error)
}

// NewServer constructs the FieldVault MCP server and registers all tools.
func NewServer(cfg config.Config, store *entry.Store, resolver *resolve.Coordinator) (*Server, error) {
	mcpSrv := mcpserver.NewMCPServer(
		cfg.Server.Name,
		cfg.Server.Version,
		mcpserver.WithResourceCapabilities(true, true),
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithLogging(),
		mcpserver.WithRecovery(),
	)

	server := &Server{
		cfg:       cfg,
		store:     store,
		resolver:  resolver,
		tools:     make(map[string]Tool),
		mcpServer: mcpSrv,
	}

	server.registerAllTools()
	server.registerAllResources()
	return server, nil
}

// Start launches the stdio server.
func (s *Server) Start(ctx context.Context) error {
	stdio := mcpserver.NewStdioServer(s.mcpServer)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// StartSSE hosts the server over HTTP using SSE endpoints with graceful
// shutdown.
func (s *Server) StartSSE(ctx context.Context, port int) error {
	sseServer := mcpserver.NewSSEServer(s.mcpServer, mcpserver.WithBaseURL("http://localhost:"+strconv.Itoa(port)))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{
		Addr:    ":" + strconv.Itoa(port),
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Printf("SSE server shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// PublishResolution pushes a fresh resolution to connected presentation
// clients. The full result stays readable via the tab matches resource;
// the notification carries the compact quick-slot view.
func (s *Server) PublishResolution(tabID string, result resolve.Result) {
	titles := make([]string, 0, len(result.QuickSlots))
	for _, slot := range result.QuickSlots {
		titles = append(titles, slot.Title)
	}
	s.mcpServer.SendNotificationToAllClients("notifications/fieldvault/resolution", map[string]any{
		"tab_id":                     tabID,
		"matches":                    len(result.Matches),
		"quick_slots":                titles,
		"predictive_tracking_needed": result.PredictiveTrackingNeeded,
	})
}

// ExecuteTool executes a tool directly (used by tests).
func (s *Server) ExecuteTool(name string, args map[string]interface{}) (interface{}, error) {
	tool, exists := s.tools[name]
	if !exists {
		return nil, fmt.Errorf("tool not found: %s", name)
	}
	return tool.Execute(context.Background(), args)
}

func (s *Server) registerAllTools() {
	// Entry collection management
	s.registerTool(&ListEntriesTool{store: s.store})
	s.registerTool(&SaveEntryTool{store: s.store})
	s.registerTool(&DeleteEntryTool{store: s.store})
	s.registerTool(&ExportEntriesTool{store: s.store})
	s.registerTool(&ImportEntriesTool{store: s.store})

	// Tab context reports and resolution queries
	s.registerTool(&QueryMatchesTool{resolver: s.resolver})
	s.registerTool(&ReportPageTool{resolver: s.resolver})
	s.registerTool(&ReportFieldTool{resolver: s.resolver})
	s.registerTool(&CloseTabTool{resolver: s.resolver})
	s.registerTool(&GetQuickSlotsTool{resolver: s.resolver})
}

func (s *Server) registerTool(tool Tool) {
	s.tools[tool.Name()] = tool

	schema, err := json.Marshal(tool.InputSchema())
	if err != nil {
		schema = json.RawMessage(`{"type":"object"}`)
	}

	mcpTool := mcp.NewToolWithRawSchema(tool.Name(), tool.Description(), schema)
	s.mcpServer.AddTool(mcpTool, s.wrapTool(tool))
}

func (s *Server) wrapTool(tool Tool) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		if args == nil {
			args = map[string]interface{}{}
		}

		result, err := tool.Execute(ctx, args)
		if err != nil {
			return &mcp.CallToolResult{
				Content: []mcp.Content{mcp.NewTextContent(fmt.Sprintf("tool %s failed: %v", tool.Name(), err))},
				IsError: true,
			}, nil
		}

		payload := marshalToolPayload(tool.Name(), result)
		return &mcp.CallToolResult{
			Content: []mcp.Content{mcp.NewTextContent(string(payload))},
			IsError: false,
		}, nil
	}
}

func marshalToolPayload(toolName string, result interface{}) []byte {
	payload, marshalErr := json.Marshal(result)
	if marshalErr == nil {
		return payload
	}

	fallback := map[string]interface{}{
		"success": false,
		"error":   fmt.Sprintf("tool %s returned non-serializable payload: %v", toolName, marshalErr),
	}
	payload, fallbackErr := json.Marshal(fallback)
	if fallbackErr == nil {
		return payload
	}

	return []byte(fmt.Sprintf(`{"success":false,"error":"tool %s failed to encode payload"}`, toolName))
}
