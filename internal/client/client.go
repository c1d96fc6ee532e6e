// Package client talks to a running gemchat server. Client implements
// presenter.Backend so a terminal session can drive the same Presenter as
// the web page.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/ziadkadry99/gemchat/internal/presenter"
)

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 4 << 20

// Client calls /api/chat and /api/upload.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a Client for the server at baseURL, e.g. http://localhost:3000.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 3 * time.Minute},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Chat sends a text prompt.
func (c *Client) Chat(ctx context.Context, prompt string) (*presenter.Reply, error) {
	body, err := json.Marshal(map[string]string{"prompt": prompt})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

// Upload sends an image with an optional prompt as multipart/form-data.
func (c *Client) Upload(ctx context.Context, prompt string, file presenter.UploadedFile) (*presenter.Reply, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if prompt != "" {
		if err := mw.WriteField("prompt", prompt); err != nil {
			return nil, fmt.Errorf("writing prompt: %w", err)
		}
	}

	name := file.Name
	if name == "" {
		name = "image"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	if file.MIMEType != "" {
		h.Set("Content-Type", file.MIMEType)
	} else {
		h.Set("Content-Type", "application/octet-stream")
	}
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("creating file part: %w", err)
	}
	if _, err := part.Write(file.Data); err != nil {
		return nil, fmt.Errorf("writing file part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/upload", &buf)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.do(req)
}

func (c *Client) do(req *http.Request) (*presenter.Reply, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &presenter.HTTPError{
			Status:  resp.StatusCode,
			Message: gjson.GetBytes(data, "error").String(),
		}
	}

	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid JSON response from %s", req.URL.Path)
	}
	parsed := gjson.ParseBytes(data)
	return &presenter.Reply{
		Output:   parsed.Get("output").String(),
		FileURL:  parsed.Get("fileUrl").String(),
		Filename: parsed.Get("filename").String(),
	}, nil
}
