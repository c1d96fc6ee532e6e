package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/gemchat/internal/audit"
	"github.com/ziadkadry99/gemchat/internal/chat"
	"github.com/ziadkadry99/gemchat/internal/dashboard"
	"github.com/ziadkadry99/gemchat/internal/db"
	"github.com/ziadkadry99/gemchat/internal/markdown"
	"github.com/ziadkadry99/gemchat/internal/server"
)

var serverPort int

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the chat server",
	Long:  `Starts the gemchat HTTP server: the chat page, /api/chat, /api/upload, the uploaded files and the exchange log.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = serverPort
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

		provider, err := createLLMProviderFromConfig(cfg, logger)
		if err != nil {
			return fmt.Errorf("creating LLM provider: %w", err)
		}

		database, err := db.Open(cfg.DB.Path)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()
		auditStore := audit.NewStore(database)

		store, err := newUploadStore(cfg, logger)
		if err != nil {
			return err
		}
		svc := newChatService(cfg, provider, store, auditStore, logger)

		srv := server.New(server.Config{
			Host:              cfg.Server.Host,
			Port:              cfg.Server.Port,
			RequestTimeout:    cfg.Server.RequestTimeout,
			AllowedOrigins:    cfg.Server.AllowedOrigins,
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
			TrustedProxies:    cfg.RateLimit.TrustedProxies,
			UploadDir:         store.Dir(),
		}, logger)

		registerAllRoutes(srv, svc, auditStore, dashboard.Options{
			Engine:         engine,
			Typing:         typingFromConfig(cfg),
			MaxUploadBytes: cfg.Upload.MaxBytes,
			CheckOrigin:    server.CheckOrigin(cfg.Server.AllowedOrigins),
			Logger:         logger,
		})

		// Graceful shutdown.
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		go func() {
			<-ctx.Done()
			fmt.Fprintln(os.Stderr, "\nShutting down server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()

		fmt.Fprintf(os.Stderr, "gemchat server %s starting on http://%s\n", Version, srv.Addr())
		fmt.Fprintf(os.Stderr, "  Model:    %s (%s)\n", cfg.LLM.Model, cfg.LLM.Provider)
		fmt.Fprintf(os.Stderr, "  Uploads:  %s\n", store.Dir())
		fmt.Fprintf(os.Stderr, "  Database: %s\n", database.Path())

		return srv.Start()
	},
}

// registerAllRoutes wires up the feature routes.
func registerAllRoutes(srv *server.Server, svc *chat.Service, auditStore *audit.Store, dashOpts dashboard.Options) {
	r := srv.Router()

	chat.RegisterRoutes(r, svc)
	audit.RegisterRoutes(r, auditStore)

	dash := dashboard.New(svc.Backend(), dashOpts)
	dash.RegisterRoutes(r)
}

func init() {
	serverCmd.Flags().IntVar(&serverPort, "port", 3000, "Port to listen on (overrides config)")
	rootCmd.AddCommand(serverCmd)
}
