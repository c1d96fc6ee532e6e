package presenter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/ziadkadry99/gemchat/internal/markdown"
)

// Options configures a Presenter. Zero values fall back to the defaults.
type Options struct {
	Engine markdown.Engine
	Typing TypingConfig
	Sleep  Sleeper
	Logger *slog.Logger
}

// State is the submission state of a Presenter.
type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
)

// Presenter manages one chat: its message log, the typing animation and
// the submission flow. All log mutations go through mu so the Display sees
// them in order.
type Presenter struct {
	log     *Log
	display Display
	backend Backend
	engine  markdown.Engine
	typing  TypingConfig
	sleep   Sleeper
	logger  *slog.Logger

	mu sync.Mutex

	// typingMu serialises "stop the old animation, start a new one" so that
	// at most one animation runs at a time.
	typingMu sync.Mutex
	animMu   sync.Mutex
	current  *Animation

	stateMu  sync.Mutex
	inFlight int
}

// New creates a Presenter writing to display and sending to backend.
// backend may be nil when Submit is not used.
func New(display Display, backend Backend, opts Options) *Presenter {
	if opts.Engine == nil {
		opts.Engine = markdown.Simple
	}
	if opts.Typing == (TypingConfig{}) {
		opts.Typing = DefaultTyping()
	}
	if opts.Sleep == nil {
		opts.Sleep = Sleep
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Presenter{
		log:     NewLog(),
		display: display,
		backend: backend,
		engine:  opts.Engine,
		typing:  opts.Typing,
		sleep:   opts.Sleep,
		logger:  opts.Logger.With("component", "presenter"),
	}
}

// Messages returns a snapshot of the log.
func (p *Presenter) Messages() []Message { return p.log.Snapshot() }

// Message returns one message by id.
func (p *Presenter) Message(id string) (Message, bool) { return p.log.Get(id) }

// State reports whether a submission is in flight.
func (p *Presenter) State() State {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	if p.inFlight > 0 {
		return StateSubmitting
	}
	return StateIdle
}

// AppendStatic renders text in one pass and appends it with a copy button.
func (p *Presenter) AppendStatic(sender Sender, text string) Message {
	return p.append(Message{
		Sender:        sender,
		Raw:           text,
		HTML:          p.engine.Render(text),
		HasCopyButton: true,
	})
}

// AppendImagePreview appends a bubble showing the image at url.
func (p *Presenter) AppendImagePreview(url string) Message {
	return p.append(Message{
		Sender:   SenderImage,
		HTML:     `<img src="` + markdown.Escape(url) + `" alt="Uploaded image">`,
		ImageURL: url,
	})
}

// ShowLoading appends the placeholder shown while a request is in flight.
func (p *Presenter) ShowLoading() Message {
	return p.append(Message{
		Sender: SenderLoading,
		HTML:   "<span></span>",
	})
}

// RemoveLoading removes a placeholder created by ShowLoading.
func (p *Presenter) RemoveLoading(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	m, err := p.log.Remove(id)
	if err != nil {
		return err
	}
	p.display.Show(Event{Kind: EventRemove, Message: m})
	return nil
}

// CopyText returns what the copy button of message id puts on the
// clipboard: the visible text, not the HTML source.
func (p *Presenter) CopyText(id string) (string, error) {
	m, ok := p.log.Get(id)
	if !ok {
		return "", ErrUnknownMessage
	}
	return markdown.PlainText(m.HTML), nil
}

// AppendTyping appends an empty AI bubble and reveals text in it one rune
// at a time. Any animation already running is cancelled (and completed)
// first. The returned handle can cancel this animation; cancelling ctx
// has the same effect.
func (p *Presenter) AppendTyping(ctx context.Context, text string) *Animation {
	p.typingMu.Lock()
	defer p.typingMu.Unlock()

	p.CancelTyping()

	msg := p.append(Message{Sender: SenderAI, InProgress: true})

	actx, cancel := context.WithCancel(ctx)
	anim := newAnimation(msg.ID, cancel)

	p.animMu.Lock()
	p.current = anim
	p.animMu.Unlock()

	go p.runTyping(actx, anim, text)
	return anim
}

// Type is AppendTyping followed by Wait. It returns the completed message.
func (p *Presenter) Type(ctx context.Context, text string) Message {
	anim := p.AppendTyping(ctx, text)
	anim.Wait()
	m, _ := p.log.Get(anim.MessageID())
	return m
}

// CancelTyping cancels the running animation, if any, and waits for its
// bubble to be completed.
func (p *Presenter) CancelTyping() {
	p.animMu.Lock()
	anim := p.current
	p.animMu.Unlock()

	if anim == nil {
		return
	}
	select {
	case <-anim.Done():
		return
	default:
	}
	anim.Cancel()
	anim.Wait()
}

func (p *Presenter) runTyping(ctx context.Context, anim *Animation, text string) {
	defer func() {
		anim.cancel()
		p.animMu.Lock()
		if p.current == anim {
			p.current = nil
		}
		p.animMu.Unlock()
		close(anim.done)
	}()

	state := NewRenderState(text)
	delay := p.typing.DelayFor(state.Len())
	batch := p.typing.RunesPerFrame(state.Len())

	shown := ""
	for !state.Done() {
		delta := state.AdvanceBy(batch, p.engine)
		patch := diffHTML(shown, state.Displayed)
		patch.Delta = delta
		shown = state.Displayed
		p.progress(anim.MessageID(), state.Prefix(), state.Displayed, patch)

		step := time.Duration(utf8.RuneCountInString(delta)) * delay
		if err := p.sleep(ctx, step); err != nil {
			p.logger.Debug("typing interrupted", "message", anim.MessageID(), "shown", state.Cursor, "total", state.Len())
			break
		}
	}

	state.Finish(p.engine)
	p.update(anim.MessageID(), func(m *Message) {
		m.Raw = text
		m.HTML = state.Displayed
		m.InProgress = false
		m.HasCopyButton = true
	})
}

// Outcome classifies how a submission ended.
type Outcome string

const (
	OutcomeSkipped     Outcome = "skipped"
	OutcomeSuccess     Outcome = "success"
	OutcomeSoftFailure Outcome = "soft_failure"
	OutcomeHardFailure Outcome = "hard_failure"
)

// Submission is the result of Submit. Animation is set when a reply is
// being typed; Err holds the backend error of a hard failure.
type Submission struct {
	Outcome   Outcome
	Animation *Animation
	Err       error
}

// Wait blocks until the reply, if any, has been fully typed.
func (s Submission) Wait() {
	if s.Animation != nil {
		s.Animation.Wait()
	}
}

// Submit sends a prompt, optionally with an image, and renders the
// exchange. An empty prompt without a file does nothing. The loading
// bubble is always removed before the reply or the error is shown.
func (p *Presenter) Submit(ctx context.Context, prompt string, file *UploadedFile) Submission {
	prompt = strings.TrimSpace(prompt)
	if file != nil && len(file.Data) == 0 {
		file = nil
	}
	if prompt == "" && file == nil {
		return Submission{Outcome: OutcomeSkipped}
	}
	if p.backend == nil {
		return Submission{Outcome: OutcomeHardFailure, Err: errors.New("presenter has no backend")}
	}

	p.setSubmitting(1)
	defer p.setSubmitting(-1)

	p.CancelTyping()

	userText := prompt
	if userText == "" {
		userText = ImagePlaceholder
	}
	p.AppendStatic(SenderUser, userText)
	loading := p.ShowLoading()

	var (
		reply *Reply
		err   error
	)
	if file != nil {
		reply, err = p.backend.Upload(ctx, prompt, *file)
	} else {
		reply, err = p.backend.Chat(ctx, prompt)
	}

	if rerr := p.RemoveLoading(loading.ID); rerr != nil {
		p.logger.Warn("removing loading bubble", "error", rerr)
	}

	if err != nil {
		p.logger.Info("submission failed", "error", err)
		p.AppendStatic(SenderError, failureText(err))
		return Submission{Outcome: OutcomeHardFailure, Err: err}
	}

	if reply != nil && reply.FileURL != "" {
		p.AppendImagePreview(reply.FileURL)
	}

	if reply == nil || reply.Output == "" {
		p.AppendStatic(SenderAI, FallbackReply)
		return Submission{Outcome: OutcomeSoftFailure}
	}

	anim := p.AppendTyping(context.WithoutCancel(ctx), reply.Output)
	return Submission{Outcome: OutcomeSuccess, Animation: anim}
}

func failureText(err error) string {
	var herr *HTTPError
	if errors.As(err, &herr) {
		if herr.Message != "" {
			return "Error: " + herr.Message
		}
		return fmt.Sprintf("Error: server returned status %d", herr.Status)
	}
	return fmt.Sprintf("%s: %v", TransportFailure, err)
}

func (p *Presenter) setSubmitting(delta int) {
	p.stateMu.Lock()
	p.inFlight += delta
	p.stateMu.Unlock()
}

func (p *Presenter) append(m Message) Message {
	p.mu.Lock()
	defer p.mu.Unlock()

	m = p.log.Append(m)
	p.display.Show(Event{Kind: EventAppend, Message: m})
	p.display.Show(Event{Kind: EventScroll, Message: Message{ID: m.ID}})
	return m
}

// update replaces a message and shows it whole.
func (p *Presenter) update(id string, fn func(*Message)) {
	p.mu.Lock()
	defer p.mu.Unlock()

	m, err := p.log.Update(id, fn)
	if err != nil {
		p.logger.Warn("updating message", "message", id, "error", err)
		return
	}
	p.display.Show(Event{Kind: EventUpdate, Message: m})
	p.display.Show(Event{Kind: EventScroll, Message: Message{ID: m.ID}})
}

// progress records one typing step and shows only its patch.
func (p *Presenter) progress(id, raw, html string, patch *Patch) {
	p.mu.Lock()
	defer p.mu.Unlock()

	m, err := p.log.Update(id, func(m *Message) {
		m.Raw = raw
		m.HTML = html
	})
	if err != nil {
		p.logger.Warn("updating message", "message", id, "error", err)
		return
	}
	p.display.Show(Event{
		Kind:    EventUpdate,
		Message: Message{ID: m.ID, Sender: m.Sender, InProgress: m.InProgress},
		Patch:   patch,
	})
	p.display.Show(Event{Kind: EventScroll, Message: Message{ID: m.ID}})
}
