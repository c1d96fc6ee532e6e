package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/gemchat/internal/audit"
	"github.com/ziadkadry99/gemchat/internal/chat"
	"github.com/ziadkadry99/gemchat/internal/db"
	"github.com/ziadkadry99/gemchat/internal/markdown"
	mcpserver "github.com/ziadkadry99/gemchat/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for AI agent integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio, exposing the chat model and the Markdown renderer as tools.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		// Stdout carries the protocol.
		if cfg.Log.Output == "stdout" {
			cfg.Log.Output = "stderr"
		}
		logger, closeLog, err := newLogger(cfg)
		if err != nil {
			return fmt.Errorf("creating logger: %w", err)
		}
		defer closeLog()

		engine, err := markdown.NewEngine(cfg.Render.Engine)
		if err != nil {
			return err
		}

		var svc mcpserver.Chatter
		provider, err := createLLMProviderFromConfig(cfg, logger)
		if err != nil {
			// Rendering still works without a model.
			fmt.Fprintf(os.Stderr, "Warning: %v; only render_markdown is available\n", err)
		} else {
			store, err := newUploadStore(cfg, logger)
			if err != nil {
				return err
			}
			var recorder chat.Recorder
			if database, err := db.Open(cfg.DB.Path); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: exchange log disabled: %v\n", err)
			} else {
				defer database.Close()
				recorder = audit.NewStore(database)
			}
			svc = newChatService(cfg, provider, store, recorder, logger)
		}

		mcpserver.Version = Version

		fmt.Fprintf(os.Stderr, "gemchat MCP server started on stdio (model=%s)\n", cfg.LLM.Model)

		srv := mcpserver.NewServer(svc, engine)
		return srv.Serve()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
