package mcp

import "github.com/mark3labs/mcp-go/mcp"

// chatTool defines the chat MCP tool.
var chatTool = mcp.NewTool("chat",
	mcp.WithDescription("Send a prompt to the configured model and return its reply."),
	mcp.WithString("prompt",
		mcp.Required(),
		mcp.Description("The message to send"),
	),
)

// describeImageTool defines the describe_image MCP tool.
var describeImageTool = mcp.NewTool("describe_image",
	mcp.WithDescription("Send a local image file to the model, optionally with a question about it."),
	mcp.WithString("path",
		mcp.Required(),
		mcp.Description("Path of the image file"),
	),
	mcp.WithString("prompt",
		mcp.Description("Question about the image (default: describe it)"),
	),
)

// renderMarkdownTool defines the render_markdown MCP tool.
var renderMarkdownTool = mcp.NewTool("render_markdown",
	mcp.WithDescription("Render Markdown into HTML that is safe to insert into a page."),
	mcp.WithString("text",
		mcp.Required(),
		mcp.Description("Markdown source"),
	),
	mcp.WithString("engine",
		mcp.Description("Renderer to use (default: the server's configured engine)"),
		mcp.Enum("simple", "commonmark"),
	),
	mcp.WithString("format",
		mcp.Description("Output format"),
		mcp.Enum("html", "text"),
	),
)
