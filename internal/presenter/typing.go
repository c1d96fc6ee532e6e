package presenter

import (
	"context"
	"sync"
	"time"

	"github.com/ziadkadry99/gemchat/internal/markdown"
)

// TypingConfig controls the pace of the typing animation. Replies shorter
// than Threshold runes are revealed at ShortDelay per rune; longer ones at
// LongDelay.
//
// FrameInterval caps the frame rate: when the per-rune delay is shorter,
// each frame reveals FrameInterval/delay runes and waits for all of them,
// so the total time stays delay × length. Zero shows one frame per rune.
type TypingConfig struct {
	ShortDelay    time.Duration
	LongDelay     time.Duration
	Threshold     int
	FrameInterval time.Duration
}

// DefaultTyping returns the standard pace: 15ms per rune, 1ms per rune
// from 1000 runes up, at most one frame every 16ms.
func DefaultTyping() TypingConfig {
	return TypingConfig{
		ShortDelay:    15 * time.Millisecond,
		LongDelay:     1 * time.Millisecond,
		Threshold:     1000,
		FrameInterval: 16 * time.Millisecond,
	}
}

// DelayFor returns the per-rune delay for a reply of n runes.
func (c TypingConfig) DelayFor(n int) time.Duration {
	if n < c.Threshold {
		return c.ShortDelay
	}
	return c.LongDelay
}

// RunesPerFrame returns how many runes each frame of a reply of n runes
// reveals.
func (c TypingConfig) RunesPerFrame(n int) int {
	d := c.DelayFor(n)
	switch {
	case d <= 0:
		return max(n, 1)
	case c.FrameInterval > d:
		return int(c.FrameInterval / d)
	default:
		return 1
	}
}

// Sleeper waits for d or until ctx is done, whichever comes first.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the real-time Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RenderState is the transient state of one typing animation. Displayed
// is always the rendered form of the first Cursor runes of Source.
type RenderState struct {
	Source    []rune
	Displayed string
	Cursor    int
}

// NewRenderState starts a state at cursor zero.
func NewRenderState(text string) *RenderState {
	return &RenderState{Source: []rune(text)}
}

// Len returns the total number of runes to reveal.
func (s *RenderState) Len() int { return len(s.Source) }

// Done reports whether every rune has been revealed.
func (s *RenderState) Done() bool { return s.Cursor >= len(s.Source) }

// Prefix returns the raw text revealed so far.
func (s *RenderState) Prefix() string { return string(s.Source[:s.Cursor]) }

// Advance reveals one more rune and re-renders the prefix.
func (s *RenderState) Advance(engine markdown.Engine) { s.AdvanceBy(1, engine) }

// AdvanceBy reveals up to n more runes and re-renders the prefix. It
// returns the raw text revealed.
func (s *RenderState) AdvanceBy(n int, engine markdown.Engine) string {
	if s.Done() || n <= 0 {
		return ""
	}
	from := s.Cursor
	s.Cursor = min(s.Cursor+n, len(s.Source))
	s.Displayed = engine.Render(s.Prefix())
	return string(s.Source[from:s.Cursor])
}

// Finish reveals everything that is left in one step.
func (s *RenderState) Finish(engine markdown.Engine) {
	s.Cursor = len(s.Source)
	s.Displayed = engine.Render(s.Prefix())
}

// Animation is the handle of a running typing animation.
type Animation struct {
	messageID string
	cancel    context.CancelFunc
	done      chan struct{}

	mu        sync.Mutex
	cancelled bool
}

func newAnimation(messageID string, cancel context.CancelFunc) *Animation {
	return &Animation{
		messageID: messageID,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
}

// MessageID is the bubble being typed.
func (a *Animation) MessageID() string { return a.messageID }

// Cancel stops the animation. The rest of the text is shown at once and
// the bubble is completed as usual.
func (a *Animation) Cancel() {
	a.mu.Lock()
	a.cancelled = true
	a.mu.Unlock()
	a.cancel()
}

// Cancelled reports whether Cancel was called.
func (a *Animation) Cancelled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cancelled
}

// Done is closed once the bubble is complete.
func (a *Animation) Done() <-chan struct{} { return a.done }

// Wait blocks until the bubble is complete.
func (a *Animation) Wait() { <-a.done }
