package dashboard

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
	"unicode/utf16"

	"github.com/gorilla/websocket"

	"github.com/ziadkadry99/gemchat/internal/markdown"
	"github.com/ziadkadry99/gemchat/internal/presenter"
)

const (
	writeWait = 10 * time.Second
	// defaultReadLimit caps one incoming frame.
	defaultReadLimit = 16 << 20
)

// clientFrame is the incoming WebSocket message format.
type clientFrame struct {
	Type   string     `json:"type"` // "submit", "copy" or "cancel"
	Prompt string     `json:"prompt,omitempty"`
	File   *fileFrame `json:"file,omitempty"`
	ID     string     `json:"id,omitempty"` // message id for "copy"
}

type fileFrame struct {
	Name string `json:"name"`
	MIME string `json:"mime"`
	Data string `json:"data"` // base64, standard encoding
}

// serverFrame is the outgoing WebSocket message format.
type serverFrame struct {
	Type    string        `json:"type"` // an event kind, "copy" or "error"
	Message *messageFrame `json:"message,omitempty"`
	ID      string        `json:"id,omitempty"`
	Patch   *patchFrame   `json:"patch,omitempty"`
	Text    string        `json:"text,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// patchFrame replaces a bubble's HTML from UTF-16 offset Keep with Tail.
type patchFrame struct {
	Keep int    `json:"keep"`
	Tail string `json:"tail"`
}

// messageFrame adds the copy text to a message once it is complete.
type messageFrame struct {
	presenter.Message
	Text string `json:"text,omitempty"`
}

// wsDisplay writes presenter events to one connection. In-progress updates
// go out as patches against the HTML the client already holds.
type wsDisplay struct {
	conn *websocket.Conn

	mu     sync.Mutex
	closed bool
	shown  map[string]string
}

func newWSDisplay(conn *websocket.Conn) *wsDisplay {
	return &wsDisplay{conn: conn, shown: make(map[string]string)}
}

func (d *wsDisplay) Show(e presenter.Event) {
	d.write(d.frame(e))
}

func (d *wsDisplay) frame(e presenter.Event) serverFrame {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := e.Message.ID
	switch {
	case e.Kind == presenter.EventScroll:
		return serverFrame{Type: string(e.Kind), ID: id}
	case e.Kind == presenter.EventRemove:
		delete(d.shown, id)
		return serverFrame{Type: string(e.Kind), Message: &messageFrame{Message: e.Message}}
	case e.Patch != nil:
		prev := d.shown[id]
		keep := min(e.Patch.Keep, len(prev))
		d.shown[id] = e.Patch.Apply(prev)
		return serverFrame{
			Type:  string(e.Kind),
			ID:    id,
			Patch: &patchFrame{Keep: utf16Len(prev[:keep]), Tail: e.Patch.Tail},
		}
	}
	m := &messageFrame{Message: e.Message}
	if m.InProgress {
		d.shown[id] = m.HTML
	} else {
		delete(d.shown, id)
		if m.HasCopyButton {
			m.Text = markdown.PlainText(m.HTML)
		}
	}
	return serverFrame{Type: string(e.Kind), Message: m}
}

// write sends one frame. After a failed write the connection is closed so
// the read loop stops too.
func (d *wsDisplay) write(f serverFrame) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return websocket.ErrCloseSent
	}
	d.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := d.conn.WriteJSON(f); err != nil {
		d.closed = true
		d.conn.Close()
		return err
	}
	return nil
}

// utf16Len is the length of s in the units JavaScript strings index by.
func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}

func (d *Dashboard) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := d.upgrader.Upgrade(w, r, nil)
	if err != nil {
		d.logger.Warn("websocket upgrade", "error", err)
		return
	}
	defer conn.Close()

	limit := int64(defaultReadLimit)
	if d.opts.MaxUploadBytes > 0 {
		limit = d.opts.MaxUploadBytes*4/3 + 64<<10
	}
	conn.SetReadLimit(limit)

	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	display := newWSDisplay(conn)
	p := presenter.New(display, d.backend, presenter.Options{
		Engine: d.opts.Engine,
		Typing: d.opts.Typing,
		Logger: d.logger,
	})

	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
		p.CancelTyping()
	}()

	d.logger.Debug("chat session opened", "remote", r.RemoteAddr)
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				d.logger.Warn("websocket read", "error", err)
			}
			return
		}
		if err := d.handleFrame(ctx, &wg, p, display, msg); err != nil {
			d.logger.Warn("websocket write", "error", err)
			return
		}
	}
}

// handleFrame acts on one client frame. It returns only write errors.
func (d *Dashboard) handleFrame(ctx context.Context, wg *sync.WaitGroup, p *presenter.Presenter, display *wsDisplay, msg []byte) error {
	var f clientFrame
	if err := json.Unmarshal(msg, &f); err != nil {
		return display.write(serverFrame{Type: "error", Error: "invalid message format"})
	}

	switch f.Type {
	case "submit":
		file, err := d.decodeFile(f.File)
		if err != nil {
			return display.write(serverFrame{Type: "error", Error: err.Error()})
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Submit(ctx, f.Prompt, file)
		}()
	case "copy":
		text, err := p.CopyText(f.ID)
		if err != nil {
			return display.write(serverFrame{Type: "error", ID: f.ID, Error: err.Error()})
		}
		return display.write(serverFrame{Type: "copy", ID: f.ID, Text: text})
	case "cancel":
		p.CancelTyping()
	default:
		return display.write(serverFrame{Type: "error", Error: "unknown message type: " + f.Type})
	}
	return nil
}

func (d *Dashboard) decodeFile(f *fileFrame) (*presenter.UploadedFile, error) {
	if f == nil || f.Data == "" {
		return nil, nil
	}
	data, err := base64.StdEncoding.DecodeString(f.Data)
	if err != nil {
		return nil, fmt.Errorf("file is not valid base64: %w", err)
	}
	if d.opts.MaxUploadBytes > 0 && int64(len(data)) > d.opts.MaxUploadBytes {
		return nil, fmt.Errorf("file exceeds %d bytes", d.opts.MaxUploadBytes)
	}
	return &presenter.UploadedFile{Name: f.Name, MIMEType: f.MIME, Data: data}, nil
}
