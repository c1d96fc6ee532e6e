// Package chat forwards prompts and images to the configured model and
// exposes the exchange over HTTP.
package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/ziadkadry99/gemchat/internal/audit"
	"github.com/ziadkadry99/gemchat/internal/llm"
	"github.com/ziadkadry99/gemchat/internal/presenter"
	"github.com/ziadkadry99/gemchat/internal/uploads"
)

var (
	ErrNoPrompt = errors.New("no message provided")
	ErrNoFile   = errors.New("no file uploaded")
	ErrNoStore  = errors.New("uploads are not configured")
)

// DefaultImagePrompt is sent with an image that comes without a prompt.
const DefaultImagePrompt = "Please describe this image"

// ModelError is a failed model call. Label names the API, e.g. "Gemini".
type ModelError struct {
	Label string
	Err   error
}

func (e *ModelError) Error() string { return e.Label + " API Error: " + e.Err.Error() }

func (e *ModelError) Unwrap() error { return e.Err }

// Recorder receives one audit record per exchange.
type Recorder interface {
	Log(ctx context.Context, x audit.Exchange) (audit.Exchange, error)
}

// Options configures a Service.
type Options struct {
	Model             string
	SystemInstruction string
	MaxTokens         int
	Temperature       float64
	// DefaultPrompt replaces an empty prompt on uploads.
	DefaultPrompt string
	Recorder      Recorder
	Logger        *slog.Logger
}

// Service owns the model call for text chat and image uploads.
type Service struct {
	provider llm.Provider
	store    *uploads.Store
	opts     Options
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a Service. store may be nil, in which case Upload
// always fails with ErrNoStore.
func NewService(provider llm.Provider, store *uploads.Store, opts Options) *Service {
	if opts.DefaultPrompt == "" {
		opts.DefaultPrompt = DefaultImagePrompt
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		provider: provider,
		store:    store,
		opts:     opts,
		logger:   logger.With("component", "chat"),
		now:      time.Now,
	}
}

// Uploads returns the upload store, nil if uploads are disabled.
func (s *Service) Uploads() *uploads.Store { return s.store }

// Label is the display name of the provider's API.
func (s *Service) Label() string {
	if s.provider == nil {
		return "Model"
	}
	return apiLabel(s.provider.Name())
}

func apiLabel(provider string) string {
	switch provider {
	case "google":
		return "Gemini"
	case "openai":
		return "OpenAI"
	case "ollama":
		return "Ollama"
	default:
		return provider
	}
}

// Chat sends a text prompt and returns the trimmed reply.
func (s *Service) Chat(ctx context.Context, prompt string) (*presenter.Reply, error) {
	start := s.now()
	x := audit.Exchange{Kind: audit.KindChat, Prompt: prompt}

	if strings.TrimSpace(prompt) == "" {
		s.record(ctx, x, start, ErrNoPrompt)
		return nil, ErrNoPrompt
	}

	resp, err := s.complete(ctx, llm.Message{Role: llm.RoleUser, Content: prompt}, &x)
	if err != nil {
		s.record(ctx, x, start, err)
		return nil, err
	}

	output := strings.TrimSpace(resp.Content)
	x.OutputChars = len([]rune(output))
	s.record(ctx, x, start, nil)
	return &presenter.Reply{Output: output}, nil
}

// Upload stores the image read from r under a fresh name and asks the
// model about it. original is the client's file name; a nil r means no
// file was sent. The stored file is deleted if the model call fails.
func (s *Service) Upload(ctx context.Context, prompt, original string, r io.Reader) (*presenter.Reply, error) {
	start := s.now()
	x := audit.Exchange{Kind: audit.KindUpload, Prompt: prompt}

	if r == nil {
		s.record(ctx, x, start, ErrNoFile)
		return nil, ErrNoFile
	}
	if s.store == nil {
		s.record(ctx, x, start, ErrNoStore)
		return nil, ErrNoStore
	}

	f, err := s.store.Save(original, r)
	if err != nil {
		s.record(ctx, x, start, err)
		return nil, err
	}
	x.File = f.Name

	reply, err := s.describe(ctx, prompt, f, &x)
	if err != nil {
		if derr := s.store.Delete(f.Name); derr != nil {
			s.logger.Warn("removing failed upload", "file", f.Name, "error", derr)
		}
		s.record(ctx, x, start, err)
		return nil, err
	}

	x.OutputChars = len([]rune(reply.Output))
	s.record(ctx, x, start, nil)
	return reply, nil
}

func (s *Service) describe(ctx context.Context, prompt string, f *uploads.File, x *audit.Exchange) (*presenter.Reply, error) {
	data, err := s.store.Read(f.Name)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", f.Name, err)
	}
	if prompt == "" {
		prompt = s.opts.DefaultPrompt
	}

	s.logger.Info("processing upload", "file", f.Name, "mime", f.MIMEType, "bytes", f.Size)
	resp, err := s.complete(ctx, llm.Message{
		Role:    llm.RoleUser,
		Content: prompt,
		Images:  []llm.Image{{MIMEType: f.MIMEType, Data: data}},
	}, x)
	if err != nil {
		return nil, err
	}

	return &presenter.Reply{
		Output:   resp.Content,
		FileURL:  f.URL(),
		Filename: f.Name,
	}, nil
}

func (s *Service) complete(ctx context.Context, msg llm.Message, x *audit.Exchange) (*llm.CompletionResponse, error) {
	if s.provider == nil {
		return nil, &ModelError{Label: "Model", Err: errors.New("no provider configured")}
	}
	x.Provider = s.provider.Name()
	x.Model = s.opts.Model

	var msgs []llm.Message
	if s.opts.SystemInstruction != "" {
		msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: s.opts.SystemInstruction})
	}
	msgs = append(msgs, msg)

	req := llm.CompletionRequest{
		Model:       s.opts.Model,
		Messages:    msgs,
		MaxTokens:   s.opts.MaxTokens,
		Temperature: s.opts.Temperature,
	}
	resp, err := s.provider.Complete(ctx, req)
	if err != nil {
		s.logger.Error("model call failed", "provider", x.Provider, "error", err)
		return nil, &ModelError{Label: s.Label(), Err: err}
	}

	if resp.Model != "" {
		x.Model = resp.Model
	}
	x.InputTokens = resp.InputTokens
	x.OutputTokens = resp.OutputTokens
	if x.InputTokens == 0 {
		x.InputTokens = llm.EstimateRequestTokens(req)
	}
	if x.OutputTokens == 0 {
		x.OutputTokens = llm.EstimateTokens(resp.Content)
	}
	x.CostUSD = llm.EstimateCost(x.Model, x.InputTokens, x.OutputTokens)
	return resp, nil
}

func (s *Service) record(ctx context.Context, x audit.Exchange, start time.Time, err error) {
	x.DurationMS = s.now().Sub(start).Milliseconds()
	switch {
	case err == nil && x.OutputChars == 0:
		x.Status = audit.StatusEmpty
	case err == nil:
		x.Status = audit.StatusOK
	case isRejection(err):
		x.Status = audit.StatusRejected
		x.Error = err.Error()
	default:
		x.Status = audit.StatusFailed
		x.Error = err.Error()
	}

	s.logger.Info("exchange", "kind", x.Kind, "status", x.Status, "file", x.File, "duration_ms", x.DurationMS)
	if s.opts.Recorder == nil {
		return
	}
	// Cancelled requests are recorded too.
	if _, rerr := s.opts.Recorder.Log(context.WithoutCancel(ctx), x); rerr != nil {
		s.logger.Warn("recording exchange", "error", rerr)
	}
}

func isRejection(err error) bool {
	return errors.Is(err, ErrNoPrompt) ||
		errors.Is(err, ErrNoFile) ||
		errors.Is(err, uploads.ErrTooLarge) ||
		errors.Is(err, uploads.ErrNotAllowed)
}
