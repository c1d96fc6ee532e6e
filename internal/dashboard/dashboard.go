// Package dashboard serves the chat page and drives it over a websocket.
// Each connection gets its own Presenter; the page only applies the
// message-log events it is sent.
package dashboard

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/ziadkadry99/gemchat/internal/markdown"
	"github.com/ziadkadry99/gemchat/internal/presenter"
)

// Options configures a Dashboard.
type Options struct {
	Engine markdown.Engine
	Typing presenter.TypingConfig
	// MaxUploadBytes bounds a decoded file in a submit frame. Zero means
	// no limit beyond the websocket read limit.
	MaxUploadBytes int64
	// CheckOrigin overrides the websocket origin check. Nil accepts only
	// same-origin requests.
	CheckOrigin func(r *http.Request) bool
	Logger      *slog.Logger
}

// Dashboard provides the chat page and its websocket.
type Dashboard struct {
	backend  presenter.Backend
	opts     Options
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// New creates a Dashboard sending submissions to backend.
func New(backend presenter.Backend, opts Options) *Dashboard {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Dashboard{
		backend:  backend,
		opts:     opts,
		upgrader: websocket.Upgrader{CheckOrigin: opts.CheckOrigin},
		logger:   logger.With("component", "dashboard"),
	}
}

// RegisterRoutes mounts all dashboard routes onto the given router.
func (d *Dashboard) RegisterRoutes(r chi.Router) {
	r.Get("/", d.ServeIndex)
	r.Get("/ws/chat", d.handleWebSocket)
}
