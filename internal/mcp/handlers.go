package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/gemchat/internal/markdown"
)

// handleChat forwards a prompt to the model.
func (s *Server) handleChat(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	prompt, err := request.RequireString("prompt")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: prompt"), nil
	}

	reply, err := s.chat.Chat(ctx, prompt)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if reply.Output == "" {
		return mcp.NewToolResultText("The model returned an empty reply."), nil
	}
	return mcp.NewToolResultText(reply.Output), nil
}

// handleDescribeImage uploads a local file and returns the model's answer.
func (s *Server) handleDescribeImage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: path"), nil
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return mcp.NewToolResultError(fmt.Sprintf("no such file: %s", path)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("failed to open image: %v", err)), nil
	}
	defer f.Close()

	reply, err := s.chat.Upload(ctx, request.GetString("prompt", ""), filepath.Base(path), f)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(reply.Output), nil
}

// handleRenderMarkdown renders text with the requested engine.
func (s *Server) handleRenderMarkdown(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: text"), nil
	}

	engine := s.engine
	if name := request.GetString("engine", ""); name != "" {
		engine, err = markdown.NewEngine(name)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}

	html := engine.Render(text)
	switch request.GetString("format", "html") {
	case "html":
		return mcp.NewToolResultText(html), nil
	case "text":
		return mcp.NewToolResultText(markdown.PlainText(html)), nil
	default:
		return mcp.NewToolResultError("format must be html or text"), nil
	}
}
