// Package mcp exposes the engine to MCP clients as a small tool surface.
package mcp

import (
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// Server bundles the mcp-go server with the engine's logger.
type Server struct {
	mcp    *server.MCPServer
	logger *zap.Logger
}

// NewServer creates an MCP server advertising tool capabilities only.
func NewServer(name, version string, logger *zap.Logger) *Server {
	return &Server{
		mcp: server.NewMCPServer(name, version,
			server.WithToolCapabilities(true)),
		logger: logger.Named("mcp"),
	}
}

// MCP exposes the underlying server for tool registration.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// ServeStdio blocks serving the stdio transport until the client disconnects
// or stdin closes.
func (s *Server) ServeStdio() error {
	s.logger.Info("Serving MCP over stdio")
	return server.ServeStdio(s.mcp)
}
