// Package server hosts the gemchat HTTP API, the upload file server and
// the dashboard behind one chi router.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Config holds server configuration.
type Config struct {
	Host           string
	Port           int
	RequestTimeout time.Duration
	AllowedOrigins []string

	// RequestsPerSecond limits /api/ requests per client IP. Zero disables
	// the limiter.
	RequestsPerSecond float64
	Burst             int
	TrustedProxies    []string

	// UploadDir is served under /uploads/. Empty disables the file server.
	UploadDir string
}

// Server is the gemchat HTTP server.
type Server struct {
	cfg        Config
	router     chi.Router
	httpServer *http.Server
	logger     *slog.Logger

	// stop ends background goroutines started by middleware.
	stop context.CancelFunc
}

// New creates a server with the shared middleware, /healthz and the
// upload file server. Feature packages add their routes via Router.
func New(cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, stop := context.WithCancel(context.Background())
	s := &Server{
		cfg:    cfg,
		logger: logger.With("component", "server"),
		stop:   stop,
	}
	s.router = s.buildRouter(ctx)
	return s
}

// buildRouter creates and configures the chi router.
func (s *Server) buildRouter(ctx context.Context) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger:  slog.NewLogLogger(s.logger.Handler(), slog.LevelInfo),
		NoColor: true,
	}))
	r.Use(Recoverer(s.logger))
	if s.cfg.RequestTimeout > 0 {
		r.Use(skipUpgrades(middleware.Timeout(s.cfg.RequestTimeout)))
	}

	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = DefaultOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	if s.cfg.RequestsPerSecond > 0 {
		r.Use(onlyPrefix("/api/", RateLimit(ctx, RateLimitConfig{
			RequestsPerSecond: s.cfg.RequestsPerSecond,
			Burst:             s.cfg.Burst,
			TrustedProxies:    s.cfg.TrustedProxies,
		})))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if s.cfg.UploadDir != "" {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", noListing(http.FileServer(http.Dir(s.cfg.UploadDir)))))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	})

	return r
}

// Router returns the chi router for registering additional routes.
func (s *Server) Router() chi.Router { return s.router }

// Addr is the address the server listens on.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
}

// Start begins listening on the configured address. It returns nil after
// a graceful Shutdown.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.cfg.RequestTimeout + 30*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("listening", "addr", s.Addr())
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stop()
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// skipUpgrades applies mw to every request except websocket upgrades,
// which outlive any request timeout.
func skipUpgrades(mw func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		wrapped := mw(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
				next.ServeHTTP(w, r)
				return
			}
			wrapped.ServeHTTP(w, r)
		})
	}
}

// onlyPrefix applies mw to requests whose path starts with prefix.
func onlyPrefix(prefix string, mw func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		wrapped := mw(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, prefix) {
				wrapped.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// noListing hides directory listings of a file server.
func noListing(fs http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		fs.ServeHTTP(w, r)
	})
}
