package mcp

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/urmzd/hbconsole/pkg/accessory"
	"github.com/urmzd/hbconsole/pkg/accessory/schema"
	"github.com/urmzd/hbconsole/pkg/bridge"
	"github.com/urmzd/hbconsole/pkg/db"
)

// Restarter restarts the bridge.
type Restarter interface {
	Restart() bridge.RestartResult
}

// SetupCoder returns the bridge's pairing setup code.
type SetupCoder interface {
	SetupCode() (string, error)
}

// Server wraps the MCP server with accessory control and bridge lifecycle
// tools
type Server struct {
	mcpServer *server.MCPServer
	client    accessory.Client
	validator *schema.Validator
	layouts   db.LayoutStore
	restarter Restarter
	coder     SetupCoder
	timeout   time.Duration
}

// NewServer creates a new MCP server
func NewServer(client accessory.Client, validator *schema.Validator, layouts db.LayoutStore, restarter Restarter, coder SetupCoder, timeout time.Duration) *Server {
	if timeout <= 0 {
		timeout = accessory.DefaultRequestTimeout
	}
	s := &Server{
		client:    client,
		validator: validator,
		layouts:   layouts,
		restarter: restarter,
		coder:     coder,
		timeout:   timeout,
	}

	// Create MCP server
	s.mcpServer = server.NewMCPServer(
		"hbconsole",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	// Register all tools
	s.registerTools()

	return s
}

// ServeStdio starts the MCP server using stdio transport
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}
