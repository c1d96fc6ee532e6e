package presenter

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/gemchat/internal/markdown"
)

// fakeClock is a Sleeper that never blocks; it only adds up the delays.
type fakeClock struct {
	mu    sync.Mutex
	total time.Duration
	calls int
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.total += d
	c.calls++
	c.mu.Unlock()
	return nil
}

func (c *fakeClock) Total() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

// gatedSleep blocks every step until ctx is cancelled.
func gatedSleep(started chan<- struct{}) Sleeper {
	var once sync.Once
	return func(ctx context.Context, d time.Duration) error {
		once.Do(func() { close(started) })
		<-ctx.Done()
		return ctx.Err()
	}
}

type mockBackend struct {
	mu      sync.Mutex
	reply   *Reply
	err     error
	chats   []string
	uploads []UploadedFile
}

func (b *mockBackend) Chat(_ context.Context, prompt string) (*Reply, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.chats = append(b.chats, prompt)
	return b.reply, b.err
}

func (b *mockBackend) Upload(_ context.Context, prompt string, file UploadedFile) (*Reply, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.uploads = append(b.uploads, file)
	return b.reply, b.err
}

func (b *mockBackend) calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.chats) + len(b.uploads)
}

func newTestPresenter(backend Backend) (*Presenter, *Recorder, *fakeClock) {
	rec := &Recorder{}
	clock := &fakeClock{}
	p := New(rec, backend, Options{Sleep: clock.Sleep})
	return p, rec, clock
}

func senders(msgs []Message) []Sender {
	out := make([]Sender, len(msgs))
	for i, m := range msgs {
		out[i] = m.Sender
	}
	return out
}

func TestAppendStatic(t *testing.T) {
	p, rec, _ := newTestPresenter(nil)

	m := p.AppendStatic(SenderUser, "a <b> **c**")
	assert.NotEmpty(t, m.ID)
	assert.Equal(t, "a &lt;b&gt; <strong>c</strong>", m.HTML)
	assert.True(t, m.HasCopyButton)
	assert.False(t, m.InProgress)

	assert.Equal(t, 1, rec.Count(EventAppend))
	assert.Equal(t, 1, rec.Count(EventScroll))
	require.Len(t, p.Messages(), 1)
}

func TestTypingTimingShortText(t *testing.T) {
	p, rec, clock := newTestPresenter(nil)

	text := "Hi there, ünïcode"
	m := p.Type(t.Context(), text)

	n := len([]rune(text))
	assert.Equal(t, time.Duration(n)*15*time.Millisecond, clock.Total())
	assert.Equal(t, n, rec.Count(EventUpdate)-1, "one update per rune plus the completion")
	assert.Equal(t, markdown.Render(text), m.HTML)
	assert.Equal(t, text, m.Raw)
	assert.True(t, m.HasCopyButton)
	assert.False(t, m.InProgress)
}

func TestTypingTimingLongText(t *testing.T) {
	p, _, clock := newTestPresenter(nil)

	text := strings.Repeat("x", 1000)
	p.Type(t.Context(), text)

	assert.Equal(t, 1000*time.Millisecond, clock.Total())
}

func TestTypingShowsGrowingPrefixes(t *testing.T) {
	p, rec, _ := newTestPresenter(nil)

	p.Type(t.Context(), "**ab**")

	var shown []string
	html := ""
	for _, e := range rec.Events() {
		if e.Kind == EventUpdate && e.Message.InProgress {
			require.NotNil(t, e.Patch)
			assert.Empty(t, e.Message.Raw)
			html = e.Patch.Apply(html)
			shown = append(shown, html)
		}
	}
	require.Len(t, shown, 6)
	assert.Equal(t, "*", shown[0])
	assert.Equal(t, "**ab", shown[3])
	assert.Equal(t, "<em>*ab</em>", shown[4])
	assert.Equal(t, "<strong>ab</strong>", shown[5])
}

func TestTypingLongReplyBoundedFrames(t *testing.T) {
	p, rec, clock := newTestPresenter(nil)

	line := "line with ünïcode, **bold** and `code`\n"
	text := string([]rune(strings.Repeat(line, 10000/len([]rune(line))+1))[:10000])
	m := p.Type(t.Context(), text)
	n := len([]rune(text))

	assert.Equal(t, time.Duration(n)*time.Millisecond, clock.Total())
	assert.Equal(t, text, m.Raw)

	var (
		size, frames int
		html, typed  string
	)
	for _, e := range rec.Events() {
		b, err := json.Marshal(e)
		require.NoError(t, err)
		size += len(b)

		switch {
		case e.Kind == EventScroll:
			assert.Equal(t, Message{ID: m.ID}, e.Message)
		case e.Kind == EventUpdate && e.Message.InProgress:
			frames++
			assert.Empty(t, e.Message.Raw)
			assert.Empty(t, e.Message.HTML)
			html = e.Patch.Apply(html)
			typed += e.Patch.Delta
		}
	}
	assert.Equal(t, (n+15)/16, frames, "16 runes per frame at 1ms per rune")
	assert.Less(t, size, 50*n)
	assert.Equal(t, text, typed)
	assert.Equal(t, markdown.Render(text), html)
}

func TestTypingElapsedMatchesPace(t *testing.T) {
	if testing.Short() {
		t.Skip("runs in real time")
	}
	p := New(DisplayFunc(func(Event) {}), nil, Options{})

	text := strings.Repeat("lorem ipsum **dolor** sit amet\n", 2000/31+1)[:2000]
	start := time.Now()
	p.Type(t.Context(), text)
	elapsed := time.Since(start)

	budget := 2000 * time.Millisecond
	assert.GreaterOrEqual(t, elapsed, budget)
	assert.Less(t, elapsed, budget*5/4)
}

func TestTypingBufferEscapedOnce(t *testing.T) {
	p, _, _ := newTestPresenter(nil)

	m := p.Type(t.Context(), "a < b & c")
	assert.Equal(t, "a &lt; b &amp; c", m.HTML)
	assert.NotContains(t, m.HTML, "&amp;lt;")
}

func TestAnimationCancelFlushes(t *testing.T) {
	started := make(chan struct{})
	rec := &Recorder{}
	p := New(rec, nil, Options{Sleep: gatedSleep(started)})

	anim := p.AppendTyping(t.Context(), "hello world")
	<-started
	anim.Cancel()
	anim.Wait()

	assert.True(t, anim.Cancelled())
	m, ok := p.Message(anim.MessageID())
	require.True(t, ok)
	assert.Equal(t, "hello world", m.HTML)
	assert.False(t, m.InProgress)
	assert.True(t, m.HasCopyButton)
}

func TestContextCancelFlushes(t *testing.T) {
	started := make(chan struct{})
	p := New(&Recorder{}, nil, Options{Sleep: gatedSleep(started)})

	ctx, cancel := context.WithCancel(t.Context())
	anim := p.AppendTyping(ctx, "bye")
	<-started
	cancel()
	anim.Wait()

	m, _ := p.Message(anim.MessageID())
	assert.Equal(t, "bye", m.HTML)
	assert.False(t, anim.Cancelled())
}

func TestNewAnimationCancelsPrevious(t *testing.T) {
	started := make(chan struct{})
	p := New(&Recorder{}, nil, Options{Sleep: gatedSleep(started)})

	first := p.AppendTyping(t.Context(), "first reply")
	<-started
	second := p.AppendTyping(t.Context(), "second")

	select {
	case <-first.Done():
	default:
		t.Fatal("first animation still running after a new one started")
	}
	assert.True(t, first.Cancelled())

	m, _ := p.Message(first.MessageID())
	assert.Equal(t, "first reply", m.HTML)
	assert.False(t, m.InProgress)

	second.Cancel()
	second.Wait()
	msgs := p.Messages()
	require.Len(t, msgs, 2)
	for _, m := range msgs {
		assert.False(t, m.InProgress)
	}
}

func TestSubmitEmptyIsNoop(t *testing.T) {
	backend := &mockBackend{reply: &Reply{Output: "x"}}
	p, rec, _ := newTestPresenter(backend)

	sub := p.Submit(t.Context(), "   ", nil)
	assert.Equal(t, OutcomeSkipped, sub.Outcome)

	sub = p.Submit(t.Context(), "", &UploadedFile{Name: "empty.png"})
	assert.Equal(t, OutcomeSkipped, sub.Outcome)

	assert.Equal(t, 0, backend.calls())
	assert.Empty(t, p.Messages())
	assert.Empty(t, rec.Events())
}

func TestSubmitText(t *testing.T) {
	backend := &mockBackend{reply: &Reply{Output: "Hi there"}}
	p, rec, _ := newTestPresenter(backend)

	sub := p.Submit(t.Context(), "Hello", nil)
	sub.Wait()

	assert.Equal(t, OutcomeSuccess, sub.Outcome)
	assert.Equal(t, []string{"Hello"}, backend.chats)

	msgs := p.Messages()
	require.Equal(t, []Sender{SenderUser, SenderAI}, senders(msgs))
	assert.Equal(t, "Hello", msgs[0].HTML)
	assert.Equal(t, "Hi there", msgs[1].HTML)
	assert.True(t, msgs[1].HasCopyButton)
	assert.Equal(t, 1, rec.Count(EventRemove))
	assert.Equal(t, StateIdle, p.State())
}

func TestSubmitUploadWithoutPrompt(t *testing.T) {
	backend := &mockBackend{reply: &Reply{Output: "A cat.", FileURL: "/uploads/x.png", Filename: "x.png"}}
	p, _, _ := newTestPresenter(backend)

	file := &UploadedFile{Name: "cat.png", MIMEType: "image/png", Data: []byte{0x89, 'P', 'N', 'G'}}
	sub := p.Submit(t.Context(), "", file)
	sub.Wait()

	assert.Equal(t, OutcomeSuccess, sub.Outcome)
	require.Len(t, backend.uploads, 1)
	assert.Equal(t, "cat.png", backend.uploads[0].Name)

	msgs := p.Messages()
	require.Equal(t, []Sender{SenderUser, SenderImage, SenderAI}, senders(msgs))
	assert.Equal(t, ImagePlaceholder, msgs[0].Raw)
	assert.Equal(t, "/uploads/x.png", msgs[1].ImageURL)
	assert.Contains(t, msgs[1].HTML, `src="/uploads/x.png"`)
	assert.False(t, msgs[1].HasCopyButton)
	assert.Equal(t, "A cat.", msgs[2].HTML)
}

func TestSubmitUploadWithPromptShowsPrompt(t *testing.T) {
	backend := &mockBackend{reply: &Reply{Output: "ok", FileURL: "/uploads/y.jpg"}}
	p, _, _ := newTestPresenter(backend)

	sub := p.Submit(t.Context(), "What is this?", &UploadedFile{Name: "y.jpg", Data: []byte{1}})
	sub.Wait()

	assert.Equal(t, "What is this?", p.Messages()[0].Raw)
}

func TestSubmitHardFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "server error",
			err:  &HTTPError{Status: 500, Message: "Failed to process image with AI: quota"},
			want: "Error: Failed to process image with AI: quota",
		},
		{
			name: "status only",
			err:  &HTTPError{Status: 502},
			want: "Error: server returned status 502",
		},
		{
			name: "transport",
			err:  errors.New("connection refused"),
			want: TransportFailure + ": connection refused",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &mockBackend{err: tt.err}
			p, rec, _ := newTestPresenter(backend)

			sub := p.Submit(t.Context(), "", &UploadedFile{Name: "a.png", Data: []byte{1}})
			assert.Equal(t, OutcomeHardFailure, sub.Outcome)
			assert.ErrorIs(t, sub.Err, tt.err)

			msgs := p.Messages()
			require.Equal(t, []Sender{SenderUser, SenderError}, senders(msgs))
			assert.Equal(t, tt.want, msgs[1].Raw)
			assert.Equal(t, 1, rec.Count(EventRemove))
		})
	}
}

func TestLoadingAndErrorNeverCoexist(t *testing.T) {
	backend := &mockBackend{err: &HTTPError{Status: 500, Message: "boom"}}
	var (
		mu      sync.Mutex
		present = map[string]Sender{}
		both    bool
	)
	display := DisplayFunc(func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		switch e.Kind {
		case EventAppend:
			present[e.Message.ID] = e.Message.Sender
		case EventRemove:
			delete(present, e.Message.ID)
		}
		var loading, failed bool
		for _, s := range present {
			loading = loading || s == SenderLoading
			failed = failed || s == SenderError
		}
		both = both || (loading && failed)
	})
	p := New(display, backend, Options{Sleep: (&fakeClock{}).Sleep})

	p.Submit(t.Context(), "", &UploadedFile{Name: "a.png", Data: []byte{1}})

	mu.Lock()
	defer mu.Unlock()
	assert.False(t, both)
}

func TestSubmitSoftFailure(t *testing.T) {
	for _, reply := range []*Reply{nil, {Output: ""}} {
		backend := &mockBackend{reply: reply}
		p, _, _ := newTestPresenter(backend)

		sub := p.Submit(t.Context(), "Hello", nil)
		assert.Equal(t, OutcomeSoftFailure, sub.Outcome)
		assert.Nil(t, sub.Animation)

		msgs := p.Messages()
		require.Equal(t, []Sender{SenderUser, SenderAI}, senders(msgs))
		assert.Equal(t, FallbackReply, msgs[1].Raw)
	}
}

func TestSessionUsableAfterFailure(t *testing.T) {
	backend := &mockBackend{err: errors.New("offline")}
	p, _, _ := newTestPresenter(backend)

	p.Submit(t.Context(), "one", nil)

	backend.mu.Lock()
	backend.err = nil
	backend.reply = &Reply{Output: "two"}
	backend.mu.Unlock()

	sub := p.Submit(t.Context(), "again", nil)
	sub.Wait()
	assert.Equal(t, OutcomeSuccess, sub.Outcome)
	assert.Equal(t,
		[]Sender{SenderUser, SenderError, SenderUser, SenderAI},
		senders(p.Messages()))
}

func TestSubmitCancelsRunningAnimation(t *testing.T) {
	started := make(chan struct{})
	backend := &mockBackend{reply: &Reply{Output: "a long answer"}}
	p := New(&Recorder{}, backend, Options{Sleep: gatedSleep(started)})

	first := p.Submit(t.Context(), "q1", nil)
	<-started

	backend.mu.Lock()
	backend.reply = &Reply{Output: ""}
	backend.mu.Unlock()

	p.Submit(t.Context(), "q2", nil)

	select {
	case <-first.Animation.Done():
	default:
		t.Fatal("previous animation was not stopped")
	}
	msgs := p.Messages()
	require.Equal(t, []Sender{SenderUser, SenderAI, SenderUser, SenderAI}, senders(msgs))
	assert.Equal(t, "a long answer", msgs[1].HTML)
	assert.False(t, msgs[1].InProgress)
}

func TestCopyText(t *testing.T) {
	p, _, _ := newTestPresenter(nil)

	m := p.AppendStatic(SenderAI, "**Tom & Jerry**\nline `two`")
	got, err := p.CopyText(m.ID)
	require.NoError(t, err)
	assert.Equal(t, "Tom & Jerry\nline two", got)

	_, err = p.CopyText("missing")
	assert.ErrorIs(t, err, ErrUnknownMessage)
}

func TestRemoveLoadingRejectsOtherBubbles(t *testing.T) {
	p, _, _ := newTestPresenter(nil)

	m := p.AppendStatic(SenderUser, "keep me")
	assert.ErrorIs(t, p.RemoveLoading(m.ID), ErrNotRemovable)
	assert.ErrorIs(t, p.RemoveLoading("nope"), ErrUnknownMessage)

	l := p.ShowLoading()
	require.NoError(t, p.RemoveLoading(l.ID))
	assert.Len(t, p.Messages(), 1)
}

func TestCommonMarkEngine(t *testing.T) {
	p := New(&Recorder{}, nil, Options{
		Engine: markdown.NewCommonMark(),
		Sleep:  (&fakeClock{}).Sleep,
	})
	m := p.AppendStatic(SenderAI, "- one\n- two")
	assert.Contains(t, m.HTML, "<li>one</li>")
}
