// Package presenter owns the chat message log and drives its display.
//
// A Presenter never touches a page directly. Every mutation of its Log is
// reported to an injected Display as an Event, so the same logic backs the
// websocket dashboard, the terminal client and the tests.
package presenter

import (
	"context"
	"errors"
	"fmt"
)

// Sender tags a message bubble.
type Sender string

const (
	SenderUser    Sender = "user"
	SenderAI      Sender = "ai"
	SenderLoading Sender = "loading"
	SenderError   Sender = "error"
	SenderImage   Sender = "image"
)

// Message is one bubble in the log. Raw is the source text, HTML its
// rendered form.
type Message struct {
	ID            string `json:"id"`
	Sender        Sender `json:"sender"`
	Raw           string `json:"raw,omitempty"`
	HTML          string `json:"html"`
	ImageURL      string `json:"image_url,omitempty"`
	HasCopyButton bool   `json:"has_copy_button"`
	InProgress    bool   `json:"in_progress"`
}

// UploadedFile is an image attached to a single submission.
type UploadedFile struct {
	Name     string
	MIMEType string
	Data     []byte
}

// Reply is what a backend returns for a successful exchange. FileURL and
// Filename are only set for uploads.
type Reply struct {
	Output   string `json:"output"`
	FileURL  string `json:"fileUrl,omitempty"`
	Filename string `json:"filename,omitempty"`
}

// Backend sends prompts and images to the model. A non-2xx answer must be
// reported as *HTTPError; any other error is treated as a transport failure.
type Backend interface {
	Chat(ctx context.Context, prompt string) (*Reply, error)
	Upload(ctx context.Context, prompt string, file UploadedFile) (*Reply, error)
}

// HTTPError is an application-level failure carrying the server's message.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned status %d", e.Status)
	}
	return fmt.Sprintf("server returned status %d: %s", e.Status, e.Message)
}

var (
	ErrUnknownMessage = errors.New("unknown message")
	ErrNotRemovable   = errors.New("only loading messages can be removed")
	ErrNotInProgress  = errors.New("message is not in progress")
)

// Fixed texts shown to the user.
const (
	ImagePlaceholder = "[Sent an image]"
	FallbackReply    = "Sorry, I couldn't generate a response."
	TransportFailure = "An error occurred while connecting to the AI server"
)
