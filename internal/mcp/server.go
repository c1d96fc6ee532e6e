package mcp

import (
	"context"
	"io"

	"github.com/mark3labs/mcp-go/server"

	"github.com/ziadkadry99/gemchat/internal/markdown"
	"github.com/ziadkadry99/gemchat/internal/presenter"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Chatter answers prompts and describes images. *chat.Service implements it.
type Chatter interface {
	Chat(ctx context.Context, prompt string) (*presenter.Reply, error)
	Upload(ctx context.Context, prompt, original string, r io.Reader) (*presenter.Reply, error)
}

// Server wraps an MCP server that exposes the chat model and the renderer.
type Server struct {
	chat   Chatter
	engine markdown.Engine
	mcp    *server.MCPServer
}

// NewServer creates a new MCP server. chat may be nil, in which case only
// render_markdown is registered.
func NewServer(chat Chatter, engine markdown.Engine) *Server {
	if engine == nil {
		engine = markdown.Simple
	}
	s := &Server{
		chat:   chat,
		engine: engine,
	}

	s.mcp = server.NewMCPServer(
		"gemchat",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(renderMarkdownTool, s.handleRenderMarkdown)
	if s.chat != nil {
		s.mcp.AddTool(chatTool, s.handleChat)
		s.mcp.AddTool(describeImageTool, s.handleDescribeImage)
	}
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
