package mcp

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/gemchat/internal/markdown"
	"github.com/ziadkadry99/gemchat/internal/presenter"
)

// mockChatter implements Chatter for testing.
type mockChatter struct {
	output   string
	err      error
	prompt   string
	filename string
	data     string
}

func (m *mockChatter) Chat(_ context.Context, prompt string) (*presenter.Reply, error) {
	m.prompt = prompt
	if m.err != nil {
		return nil, m.err
	}
	return &presenter.Reply{Output: m.output}, nil
}

func (m *mockChatter) Upload(_ context.Context, prompt, original string, r io.Reader) (*presenter.Reply, error) {
	m.prompt = prompt
	m.filename = original
	data, _ := io.ReadAll(r)
	m.data = string(data)
	if m.err != nil {
		return nil, m.err
	}
	return &presenter.Reply{Output: m.output, FileURL: "/uploads/x.png", Filename: "x.png"}, nil
}

// extractText gets the text content from a CallToolResult.
func extractText(result *mcp.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func call(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func TestToolDefinitions(t *testing.T) {
	tests := []struct {
		name     string
		tool     mcp.Tool
		wantName string
	}{
		{"chat", chatTool, "chat"},
		{"describe_image", describeImageTool, "describe_image"},
		{"render_markdown", renderMarkdownTool, "render_markdown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.tool.Name != tt.wantName {
				t.Errorf("tool name = %q, want %q", tt.tool.Name, tt.wantName)
			}
			if tt.tool.Description == "" {
				t.Error("tool description should not be empty")
			}
		})
	}
}

func TestNewServer(t *testing.T) {
	srv := NewServer(nil, nil)
	if srv.mcp == nil {
		t.Fatal("MCP server not initialized")
	}
	if srv.engine == nil {
		t.Error("engine should default to the simple renderer")
	}
}

func TestHandleChat(t *testing.T) {
	ctx := context.Background()

	t.Run("reply", func(t *testing.T) {
		chatter := &mockChatter{output: "Good day"}
		srv := NewServer(chatter, nil)

		result, err := srv.handleChat(ctx, call(map[string]any{"prompt": "Hello"}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.IsError {
			t.Fatalf("unexpected tool error: %v", result.Content)
		}
		if got := extractText(result); got != "Good day" {
			t.Errorf("text = %q", got)
		}
		if chatter.prompt != "Hello" {
			t.Errorf("prompt = %q", chatter.prompt)
		}
	})

	t.Run("empty reply", func(t *testing.T) {
		srv := NewServer(&mockChatter{}, nil)
		result, _ := srv.handleChat(ctx, call(map[string]any{"prompt": "Hello"}))
		if !strings.Contains(extractText(result), "empty reply") {
			t.Errorf("text = %q", extractText(result))
		}
	})

	t.Run("model error", func(t *testing.T) {
		srv := NewServer(&mockChatter{err: errors.New("Gemini API Error: quota")}, nil)
		result, err := srv.handleChat(ctx, call(map[string]any{"prompt": "Hello"}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsError {
			t.Error("expected tool error")
		}
		if got := extractText(result); got != "Gemini API Error: quota" {
			t.Errorf("text = %q", got)
		}
	})

	t.Run("missing prompt", func(t *testing.T) {
		srv := NewServer(&mockChatter{}, nil)
		result, _ := srv.handleChat(ctx, call(map[string]any{}))
		if !result.IsError {
			t.Error("expected error for missing prompt")
		}
	})
}

func TestHandleDescribeImage(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "cat.png")
	if err := os.WriteFile(path, []byte("png-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Run("uploads the file", func(t *testing.T) {
		chatter := &mockChatter{output: "A cat"}
		srv := NewServer(chatter, nil)

		result, err := srv.handleDescribeImage(ctx, call(map[string]any{"path": path, "prompt": "What animal?"}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.IsError {
			t.Fatalf("unexpected tool error: %v", result.Content)
		}
		if extractText(result) != "A cat" {
			t.Errorf("text = %q", extractText(result))
		}
		if chatter.filename != "cat.png" || chatter.data != "png-bytes" || chatter.prompt != "What animal?" {
			t.Errorf("upload = %q %q %q", chatter.filename, chatter.data, chatter.prompt)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		srv := NewServer(&mockChatter{}, nil)
		result, _ := srv.handleDescribeImage(ctx, call(map[string]any{"path": filepath.Join(dir, "nope.png")}))
		if !result.IsError {
			t.Error("expected error for missing file")
		}
	})
}

func TestHandleRenderMarkdown(t *testing.T) {
	srv := NewServer(nil, nil)
	ctx := context.Background()

	tests := []struct {
		name    string
		args    map[string]any
		want    string
		wantErr bool
	}{
		{"default engine", map[string]any{"text": "**hi** <b>"}, "<strong>hi</strong> &lt;b&gt;", false},
		{"plain text", map[string]any{"text": "**hi** & bye", "format": "text"}, "hi & bye", false},
		{"unknown engine", map[string]any{"text": "x", "engine": "wiki"}, "", true},
		{"bad format", map[string]any{"text": "x", "format": "pdf"}, "", true},
		{"missing text", map[string]any{}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := srv.handleRenderMarkdown(ctx, call(tt.args))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.IsError != tt.wantErr {
				t.Fatalf("IsError = %v, want %v (%s)", result.IsError, tt.wantErr, extractText(result))
			}
			if !tt.wantErr && extractText(result) != tt.want {
				t.Errorf("text = %q, want %q", extractText(result), tt.want)
			}
		})
	}

	t.Run("commonmark", func(t *testing.T) {
		result, _ := srv.handleRenderMarkdown(ctx, call(map[string]any{"text": "- one\n- two", "engine": markdown.EngineCommonMark}))
		if !strings.Contains(extractText(result), "<li>one</li>") {
			t.Errorf("text = %q", extractText(result))
		}
	})
}
